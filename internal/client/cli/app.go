package cli

import (
	"bufio"
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/jobrefme/jobrefme-cli/internal/client/api"
	"github.com/jobrefme/jobrefme-cli/internal/client/config"
	"github.com/jobrefme/jobrefme-cli/internal/client/notify"
	"github.com/jobrefme/jobrefme-cli/internal/client/services"
	"github.com/jobrefme/jobrefme-cli/internal/client/state"
	"github.com/jobrefme/jobrefme-cli/internal/client/store"
	"github.com/jobrefme/jobrefme-cli/internal/common"
	"github.com/jobrefme/jobrefme-cli/internal/cryptox"
	"github.com/jobrefme/jobrefme-cli/internal/filex"
	"github.com/jobrefme/jobrefme-cli/internal/logging"
)

// App wires the interactive surface together: one store handle, one state
// manager, the services, and the REPL on top.
type App struct {
	config   *config.Config
	log      logging.Logger
	store    store.Store
	state    *state.Manager
	notifier *notify.Notifier

	auth      *services.AuthService
	user      *services.UserService
	templates *services.TemplateService
	jobs      *services.JobService

	reader *bufio.Reader
}

func NewApp(ctx context.Context, cfg *config.Config, log logging.Logger) (*App, error) {
	st, err := OpenStore(ctx, cfg, log)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	sealer, err := LoadSealer(cfg.KeyfilePath)
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	manager, err := state.NewManager(ctx, st, state.WithLogger(log), state.WithSealer(sealer))
	if err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("init state manager: %w", err)
	}

	notifier := notify.New()
	client := api.NewHTTPClient(cfg.APIBaseURL, manager.Token,
		api.WithLogger(log),
		api.WithHTTPClient(httpClientFor(cfg)))

	app := &App{
		config:   cfg,
		log:      log,
		store:    st,
		state:    manager,
		notifier: notifier,
		reader:   bufio.NewReader(os.Stdin),
	}
	app.auth = services.NewAuthService(client, manager, notifier, log,
		cfg.APIBaseURL, cfg.CallbackURL, openBrowser)
	app.user = services.NewUserService(client, manager, notifier, log)
	app.templates = services.NewTemplateService(client, manager, log)
	app.jobs = services.NewJobService(client, manager, notifier, log)

	return app, nil
}

// httpClientFor builds the backend transport with the configured
// per-request timeout.
func httpClientFor(cfg *config.Config) *http.Client {
	return &http.Client{Timeout: cfg.HTTPTimeout}
}

// OpenStore opens the configured store backend. Shared with the agent.
func OpenStore(ctx context.Context, cfg *config.Config, log logging.Logger) (store.Store, error) {
	switch cfg.StoreBackend {
	case config.BackendRedis:
		return store.OpenRedis(cfg.RedisURL, cfg.RedisPrefix, store.WithRedisLogger(log))
	case config.BackendSQLite:
		return store.OpenSQLite(ctx, cfg.StorePath, store.WithLogger(log))
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}

// LoadSealer builds the token sealer from the machine-local keyfile,
// creating the keyfile on first use. Shared with the agent.
func LoadSealer(keyfilePath string) (*cryptox.TokenSealer, error) {
	secret, err := filex.LoadOrCreate(keyfilePath, func() []byte {
		return common.GenerateRandByteArray(32)
	})
	if err != nil {
		return nil, fmt.Errorf("load keyfile: %w", err)
	}
	return cryptox.NewTokenSealer(secret), nil
}

// Run drives the REPL until the user exits.
func (a *App) Run(ctx context.Context) {
	defer a.Close(ctx)
	a.Root(ctx)
}

func (a *App) Close(ctx context.Context) {
	a.jobs.Teardown(ctx)
	a.state.Close()
	if err := a.store.Close(); err != nil {
		a.log.Error(ctx, "failed to close store", "error", err)
	}
}

func (a *App) isLoggedIn() bool {
	return a.state.IsSessionValid()
}
