// Package api is the stateless JSON-over-HTTPS wrapper around the JobRefMe
// backend. It owns nothing but the wire contract: bearer-token injection,
// status mapping, and normalization of the backend's loosely shaped payloads.
package api

import (
	"context"
	"net/url"
)

// TokenSource supplies the current bearer token per request, or "" when the
// session is not valid. Tokens are never cached at client construction, so a
// logout mid-flight does not retroactively invalidate issued requests but
// every new request immediately sees the cleared session.
type TokenSource func() string

// Client defines the backend operations used by the services layer.
//
// Error contract:
//   - any 401 response maps to common.ErrUnauthorized;
//   - a generation result that is still cooking maps to ErrProcessing;
//   - other non-2xx responses surface the backend's error message.
type Client interface {
	FetchProfile(ctx context.Context) (*Profile, error)

	StoreAPIKey(ctx context.Context, apiKey string) error
	DeleteAPIKey(ctx context.Context) error
	VerifyAPIKey(ctx context.Context) (bool, error)

	ListTemplates(ctx context.Context) ([]Template, error)
	CreateTemplate(ctx context.Context, t NewTemplate) (*Template, error)
	UpdateTemplate(ctx context.Context, id string, patch TemplatePatch) (*Template, error)
	DeleteTemplate(ctx context.Context, id string) error

	ValidateJobURL(ctx context.Context, jobURL string) (bool, error)
	InitiateGeneration(ctx context.Context, jobURL string, templateID string) error
	FetchGenerationResult(ctx context.Context, jobURL string) (*Referral, error)
	GenerateFromContent(ctx context.Context, jobContent string) (*Referral, error)
	ClearCache(ctx context.Context, jobURL string) (bool, error)
}

// AuthURL builds the identity provider's authorization URL for browser
// navigation; the backend redirects back to callbackURL with the token.
func AuthURL(baseURL string, callbackURL string) string {
	return baseURL + "/auth/google?redirect=" + url.QueryEscape(callbackURL)
}
