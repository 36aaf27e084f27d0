package services

import (
	"context"
	"testing"
	"time"

	"github.com/sethvargo/go-retry"
	"github.com/stretchr/testify/require"

	"github.com/jobrefme/jobrefme-cli/internal/client/api"
	"github.com/jobrefme/jobrefme-cli/internal/client/notify"
	"github.com/jobrefme/jobrefme-cli/internal/client/state"
	"github.com/jobrefme/jobrefme-cli/internal/client/store"
	"github.com/jobrefme/jobrefme-cli/internal/logging"
)

// fakeClient implements api.Client with per-method hooks. A nil hook returns
// zero values.
type fakeClient struct {
	fetchProfileFn          func(ctx context.Context) (*api.Profile, error)
	storeAPIKeyFn           func(ctx context.Context, apiKey string) error
	deleteAPIKeyFn          func(ctx context.Context) error
	verifyAPIKeyFn          func(ctx context.Context) (bool, error)
	listTemplatesFn         func(ctx context.Context) ([]api.Template, error)
	createTemplateFn        func(ctx context.Context, t api.NewTemplate) (*api.Template, error)
	updateTemplateFn        func(ctx context.Context, id string, patch api.TemplatePatch) (*api.Template, error)
	deleteTemplateFn        func(ctx context.Context, id string) error
	validateJobURLFn        func(ctx context.Context, jobURL string) (bool, error)
	initiateGenerationFn    func(ctx context.Context, jobURL, templateID string) error
	fetchGenerationResultFn func(ctx context.Context, jobURL string) (*api.Referral, error)
	generateFromContentFn   func(ctx context.Context, jobContent string) (*api.Referral, error)
	clearCacheFn            func(ctx context.Context, jobURL string) (bool, error)
}

var _ api.Client = (*fakeClient)(nil)

func (f *fakeClient) FetchProfile(ctx context.Context) (*api.Profile, error) {
	if f.fetchProfileFn == nil {
		return &api.Profile{}, nil
	}
	return f.fetchProfileFn(ctx)
}

func (f *fakeClient) StoreAPIKey(ctx context.Context, apiKey string) error {
	if f.storeAPIKeyFn == nil {
		return nil
	}
	return f.storeAPIKeyFn(ctx, apiKey)
}

func (f *fakeClient) DeleteAPIKey(ctx context.Context) error {
	if f.deleteAPIKeyFn == nil {
		return nil
	}
	return f.deleteAPIKeyFn(ctx)
}

func (f *fakeClient) VerifyAPIKey(ctx context.Context) (bool, error) {
	if f.verifyAPIKeyFn == nil {
		return false, nil
	}
	return f.verifyAPIKeyFn(ctx)
}

func (f *fakeClient) ListTemplates(ctx context.Context) ([]api.Template, error) {
	if f.listTemplatesFn == nil {
		return nil, nil
	}
	return f.listTemplatesFn(ctx)
}

func (f *fakeClient) CreateTemplate(ctx context.Context, t api.NewTemplate) (*api.Template, error) {
	if f.createTemplateFn == nil {
		return &api.Template{}, nil
	}
	return f.createTemplateFn(ctx, t)
}

func (f *fakeClient) UpdateTemplate(ctx context.Context, id string, patch api.TemplatePatch) (*api.Template, error) {
	if f.updateTemplateFn == nil {
		return &api.Template{}, nil
	}
	return f.updateTemplateFn(ctx, id, patch)
}

func (f *fakeClient) DeleteTemplate(ctx context.Context, id string) error {
	if f.deleteTemplateFn == nil {
		return nil
	}
	return f.deleteTemplateFn(ctx, id)
}

func (f *fakeClient) ValidateJobURL(ctx context.Context, jobURL string) (bool, error) {
	if f.validateJobURLFn == nil {
		return true, nil
	}
	return f.validateJobURLFn(ctx, jobURL)
}

func (f *fakeClient) InitiateGeneration(ctx context.Context, jobURL, templateID string) error {
	if f.initiateGenerationFn == nil {
		return nil
	}
	return f.initiateGenerationFn(ctx, jobURL, templateID)
}

func (f *fakeClient) FetchGenerationResult(ctx context.Context, jobURL string) (*api.Referral, error) {
	if f.fetchGenerationResultFn == nil {
		return &api.Referral{}, nil
	}
	return f.fetchGenerationResultFn(ctx, jobURL)
}

func (f *fakeClient) GenerateFromContent(ctx context.Context, jobContent string) (*api.Referral, error) {
	if f.generateFromContentFn == nil {
		return &api.Referral{}, nil
	}
	return f.generateFromContentFn(ctx, jobContent)
}

func (f *fakeClient) ClearCache(ctx context.Context, jobURL string) (bool, error) {
	if f.clearCacheFn == nil {
		return true, nil
	}
	return f.clearCacheFn(ctx, jobURL)
}

// testEnv bundles the shared collaborators every service needs.
type testEnv struct {
	hub      *store.MemoryHub
	state    *state.Manager
	notifier *notify.Notifier
	client   *fakeClient
	log      logging.Logger
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	hub := store.NewMemoryHub()
	s := hub.Open()
	m, err := state.NewManager(context.Background(), s)
	require.NoError(t, err)
	t.Cleanup(func() {
		m.Close()
		_ = s.Close()
	})
	return &testEnv{
		hub:      hub,
		state:    m,
		notifier: notify.New(),
		client:   &fakeClient{},
		log:      logging.NewNopLogger(),
	}
}

// logIn installs a valid session, and optionally the configured-key flag.
func (e *testEnv) logIn(t *testing.T, hasAPIKey bool) {
	t.Helper()
	e.state.SetSession(context.Background(), "test-token", time.Now().Add(time.Hour))
	e.state.SetHasAPIKey(context.Background(), hasAPIKey)
}

// instantBackoff removes the retry delays.
func instantBackoff() retry.Backoff {
	return retry.WithMaxRetries(profileFetchAttempts-1, retry.NewConstant(time.Nanosecond))
}

// instantSleep removes the polling delay.
func instantSleep(ctx context.Context, d time.Duration) error {
	return ctx.Err()
}
