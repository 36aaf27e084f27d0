// Package common contains shared constants and sentinel errors used across
// JobRefMe client components. Callers should use errors.Is to match these
// values.
package common

import "errors"

var (
	// Store-level errors.
	ErrNotFound = errors.New("not found")

	// Auth lifecycle errors.
	ErrUnauthorized    = errors.New("unauthorized")
	ErrSessionExpired  = errors.New("session expired")
	ErrNoAPIKey        = errors.New("api key not configured")
	ErrProfileNotFound = errors.New("profile not available")

	// Generation errors.
	ErrPollTimeout   = errors.New("timed out waiting for referral result")
	ErrInvalidJobURL = errors.New("job posting url is not valid or accessible")

	// Generic internal flow control.
	ErrInternal = errors.New("internal error")
)
