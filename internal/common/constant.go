package common

import "time"

// Persisted store keys shared by every surface. The names match the legacy
// extension storage schema so an existing store stays readable.
const (
	KeyAuthToken        = "authToken"
	KeyTokenExpiry      = "tokenExpiry"
	KeyUser             = "user"
	KeySelectedTemplate = "selectedTemplateId"
	KeyHasAPIKey        = "hasGeminiApiKey"

	// Content-capture side channel.
	KeySelectedContent          = "selectedJobContent"
	KeySelectedContentTimestamp = "selectedJobContentTimestamp"

	// Detection side channel, written by the agent's tab watcher.
	KeyCurrentURL      = "currentUrl"
	KeyIsSupportedPage = "isSupportedPageUrl"
)

// TokenLifetime is the fallback validity window installed for tokens that do
// not carry their own expiry.
const TokenLifetime = 30 * 24 * time.Hour

// SelectedContentTTL is how long captured page content stays usable before
// CheckForSelectedContent discards it.
const SelectedContentTTL = 5 * time.Minute
