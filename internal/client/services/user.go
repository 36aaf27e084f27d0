package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/jobrefme/jobrefme-cli/internal/client/api"
	"github.com/jobrefme/jobrefme-cli/internal/client/notify"
	"github.com/jobrefme/jobrefme-cli/internal/client/state"
	"github.com/jobrefme/jobrefme-cli/internal/common"
	"github.com/jobrefme/jobrefme-cli/internal/logging"
)

// UserService owns the user profile and the server-side Gemini API key.
type UserService struct {
	client   api.Client
	state    *state.Manager
	notifier *notify.Notifier
	log      logging.Logger
}

func NewUserService(client api.Client, st *state.Manager, n *notify.Notifier, log logging.Logger) *UserService {
	return &UserService{client: client, state: st, notifier: n, log: log}
}

// FetchProfile refreshes the user profile from the backend. A 401 forces a
// logout: the token is dead, every context should see that.
func (u *UserService) FetchProfile(ctx context.Context) (*api.Profile, error) {
	if !u.state.IsSessionValid() {
		return nil, common.ErrUnauthorized
	}

	profile, err := u.client.FetchProfile(ctx)
	if err != nil {
		if errors.Is(err, common.ErrUnauthorized) {
			u.log.Warn(ctx, "profile fetch unauthorized, forcing logout")
			u.state.ClearSession(ctx)
		}
		return nil, fmt.Errorf("fetch profile: %w", err)
	}

	u.state.SetUser(ctx, profile)
	return profile, nil
}

// StoreAPIKey saves the Gemini API key on the backend and flips the local
// configured flag.
func (u *UserService) StoreAPIKey(ctx context.Context, apiKey string) error {
	if !u.state.IsSessionValid() {
		return common.ErrUnauthorized
	}

	if err := u.client.StoreAPIKey(ctx, apiKey); err != nil {
		if errors.Is(err, common.ErrUnauthorized) {
			u.state.ClearSession(ctx)
		}
		u.notifier.SetError("Failed to store API key")
		return fmt.Errorf("store api key: %w", err)
	}

	u.state.SetHasAPIKey(ctx, true)
	u.notifier.ShowTemporarySuccess("API key saved", 0)
	return nil
}

// DeleteAPIKey removes the key from the backend and clears the local flag.
func (u *UserService) DeleteAPIKey(ctx context.Context) error {
	if !u.state.IsSessionValid() {
		return common.ErrUnauthorized
	}

	if err := u.client.DeleteAPIKey(ctx); err != nil {
		if errors.Is(err, common.ErrUnauthorized) {
			u.state.ClearSession(ctx)
		}
		u.notifier.SetError("Failed to delete API key")
		return fmt.Errorf("delete api key: %w", err)
	}

	u.state.SetHasAPIKey(ctx, false)
	u.notifier.ShowTemporarySuccess("API key removed", 0)
	return nil
}

// VerifyAPIKey asks the backend whether a key is on file and refreshes the
// local flag accordingly.
func (u *UserService) VerifyAPIKey(ctx context.Context) (bool, error) {
	if !u.state.IsSessionValid() {
		return false, common.ErrUnauthorized
	}

	has, err := u.client.VerifyAPIKey(ctx)
	if err != nil {
		if errors.Is(err, common.ErrUnauthorized) {
			u.state.ClearSession(ctx)
		}
		return false, fmt.Errorf("verify api key: %w", err)
	}

	u.state.SetHasAPIKey(ctx, has)
	return has, nil
}
