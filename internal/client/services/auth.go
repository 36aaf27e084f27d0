// Package services contains the application services behind the JobRefMe
// surfaces: authentication, user profile and API key management, message
// templates, and the job-generation workflow engine. Services hold no
// cross-context state of their own; everything shared lives in the state
// manager and, through it, the persistent store.
package services

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sethvargo/go-retry"

	"github.com/jobrefme/jobrefme-cli/internal/client/api"
	"github.com/jobrefme/jobrefme-cli/internal/client/notify"
	"github.com/jobrefme/jobrefme-cli/internal/client/state"
	"github.com/jobrefme/jobrefme-cli/internal/common"
	"github.com/jobrefme/jobrefme-cli/internal/logging"
)

// profileFetchAttempts bounds the post-callback profile fetch: up to 3
// attempts with exponential backoff starting at profileFetchBase.
const (
	profileFetchAttempts = 3
	profileFetchBase     = time.Second
)

// URLOpener launches a URL in the user's browser (tab-creation analog).
type URLOpener func(url string) error

// AuthService owns the authentication lifecycle: OAuth hand-off, token
// installation, profile bootstrap, and logout.
type AuthService struct {
	client      api.Client
	state       *state.Manager
	notifier    *notify.Notifier
	log         logging.Logger
	baseURL     string
	callbackURL string
	openURL     URLOpener
	now         func() time.Time

	// backoff is a factory so tests can collapse the retry delays.
	backoff func() retry.Backoff
}

type AuthOption func(*AuthService)

func WithAuthClock(now func() time.Time) AuthOption {
	return func(a *AuthService) { a.now = now }
}

func WithAuthBackoff(factory func() retry.Backoff) AuthOption {
	return func(a *AuthService) { a.backoff = factory }
}

func NewAuthService(client api.Client, st *state.Manager, n *notify.Notifier, log logging.Logger,
	baseURL, callbackURL string, opener URLOpener, opts ...AuthOption) *AuthService {

	a := &AuthService{
		client:      client,
		state:       st,
		notifier:    n,
		log:         log,
		baseURL:     baseURL,
		callbackURL: callbackURL,
		openURL:     opener,
		now:         time.Now,
		backoff: func() retry.Backoff {
			return retry.WithMaxRetries(profileFetchAttempts-1, retry.NewExponential(profileFetchBase))
		},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Login opens the identity provider's authorization page in the browser.
// The actual token arrives later through HandleAuthCallback. A failed
// browser launch surfaces as a notification error, nothing else changes.
func (a *AuthService) Login(ctx context.Context) error {
	authURL := api.AuthURL(a.baseURL, a.callbackURL)
	if err := a.openURL(authURL); err != nil {
		a.log.Error(ctx, "failed to open auth url", "error", err)
		a.notifier.SetError("Failed to start authentication")
		return fmt.Errorf("start authentication: %w", err)
	}
	return nil
}

// HandleAuthCallback installs the token received from the OAuth redirect
// and bootstraps the user profile. Returns true iff a profile was obtained;
// on total failure the session is rolled back so the user is not left
// half-authenticated.
func (a *AuthService) HandleAuthCallback(ctx context.Context, token string) bool {
	a.state.SetSession(ctx, token, a.tokenExpiry(token))

	var profile *api.Profile
	err := retry.Do(ctx, a.backoff(), func(ctx context.Context) error {
		p, err := a.client.FetchProfile(ctx)
		if err != nil {
			a.log.Warn(ctx, "profile fetch attempt failed", "error", err)
			return retry.RetryableError(err)
		}
		profile = p
		return nil
	})
	if err != nil {
		a.log.Error(ctx, "profile fetch failed after retries, rolling back session", "error", err)
		a.state.ClearSession(ctx)
		a.notifier.SetError("Authentication failed")
		return false
	}

	a.state.SetUser(ctx, profile)
	return true
}

// tokenExpiry returns now+30d, unless the token is a JWT whose exp claim
// lands sooner (but still in the future) — servers that shorten token
// lifetimes win over the local default.
func (a *AuthService) tokenExpiry(token string) time.Time {
	fallback := a.now().Add(common.TokenLifetime)

	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return fallback
	}
	if claims.ExpiresAt == nil {
		return fallback
	}
	exp := claims.ExpiresAt.Time
	if exp.After(a.now()) && exp.Before(fallback) {
		return exp
	}
	return fallback
}

// Logout clears the session and profile everywhere. Idempotent.
func (a *AuthService) Logout(ctx context.Context) {
	a.state.ClearSession(ctx)
}

// IsSessionValid reports whether a non-expired token is present.
func (a *AuthService) IsSessionValid() bool {
	return a.state.IsSessionValid()
}

// Token returns the bearer token while the session is valid, else "".
func (a *AuthService) Token() string {
	return a.state.Token()
}
