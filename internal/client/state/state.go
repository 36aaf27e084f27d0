// Package state is the cross-context sync layer. Each surface owns one
// Manager: an in-memory copy of the shared keys, hydrated from the
// persistent store on start, merged with external store changes as they
// arrive, and written through to the store on every local mutation. Session
// validity is always recomputed from token and expiry, never trusted from a
// stored boolean. There is no conflict resolution: last writer wins.
package state

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/jobrefme/jobrefme-cli/internal/client/api"
	"github.com/jobrefme/jobrefme-cli/internal/client/store"
	"github.com/jobrefme/jobrefme-cli/internal/common"
	"github.com/jobrefme/jobrefme-cli/internal/logging"
)

// Sealer encrypts the bearer token before it reaches the store and decrypts
// it on the way back. The zero value of the package (no sealer) stores the
// token as-is.
type Sealer interface {
	Seal(plaintext []byte) ([]byte, error)
	Open(sealed []byte) ([]byte, error)
}

// Shared is a point-in-time snapshot of the cross-context state.
type Shared struct {
	AuthToken          string
	TokenExpiry        time.Time
	SessionValid       bool
	User               *api.Profile
	SelectedTemplateID string
	HasAPIKey          bool
}

// Manager owns one surface's copy of the shared state.
type Manager struct {
	store store.Store
	log   logging.Logger
	seal  Sealer
	now   func() time.Time

	mu                 sync.Mutex
	authToken          string
	tokenExpiry        time.Time
	user               *api.Profile
	selectedTemplateID string
	hasAPIKey          bool

	listeners []func()

	cancelWatch context.CancelFunc
	watchDone   chan struct{}
}

type Option func(*Manager)

func WithLogger(l logging.Logger) Option {
	return func(m *Manager) { m.log = l }
}

func WithSealer(s Sealer) Option {
	return func(m *Manager) { m.seal = s }
}

// WithClock substitutes the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// NewManager hydrates a Manager from st and subscribes to external changes.
// Call Close to stop the subscription.
func NewManager(ctx context.Context, st store.Store, opts ...Option) (*Manager, error) {
	m := &Manager{
		store: st,
		log:   logging.NewNopLogger(),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}

	m.hydrate(ctx)

	watchCtx, cancel := context.WithCancel(context.Background())
	ch, err := st.Watch(watchCtx)
	if err != nil {
		cancel()
		return nil, err
	}
	m.cancelWatch = cancel
	m.watchDone = make(chan struct{})
	go m.mergeLoop(watchCtx, ch)

	return m, nil
}

func (m *Manager) Close() {
	m.cancelWatch()
	<-m.watchDone
}

// OnChange registers fn to run after any state change, local or external.
// Callbacks run on the mutating goroutine and must not block.
func (m *Manager) OnChange(fn func()) {
	m.mu.Lock()
	m.listeners = append(m.listeners, fn)
	m.mu.Unlock()
}

func (m *Manager) notifyLocked() []func() {
	out := make([]func(), len(m.listeners))
	copy(out, m.listeners)
	return out
}

// Snapshot returns the current shared state with validity computed fresh.
func (m *Manager) Snapshot() Shared {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Shared{
		AuthToken:          m.authToken,
		TokenExpiry:        m.tokenExpiry,
		SessionValid:       m.sessionValidLocked(),
		User:               m.user,
		SelectedTemplateID: m.selectedTemplateID,
		HasAPIKey:          m.hasAPIKey,
	}
}

func (m *Manager) sessionValidLocked() bool {
	return m.authToken != "" && !m.tokenExpiry.IsZero() && m.now().Before(m.tokenExpiry)
}

// IsSessionValid reports whether a non-empty token exists and has not expired.
func (m *Manager) IsSessionValid() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessionValidLocked()
}

// Token returns the bearer token when the session is valid, else "".
// Callers must treat "" as "not authenticated".
func (m *Manager) Token() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.sessionValidLocked() {
		return ""
	}
	return m.authToken
}

// SetSession installs a token and expiry and writes both through.
func (m *Manager) SetSession(ctx context.Context, token string, expiry time.Time) {
	m.mu.Lock()
	m.authToken = token
	m.tokenExpiry = expiry
	fns := m.notifyLocked()
	m.mu.Unlock()

	m.writeToken(ctx, token)
	m.write(ctx, common.KeyTokenExpiry, []byte(strconv.FormatInt(expiry.UnixMilli(), 10)))
	runAll(fns)
}

// ClearSession removes token, expiry and profile everywhere. Idempotent.
func (m *Manager) ClearSession(ctx context.Context) {
	m.mu.Lock()
	m.authToken = ""
	m.tokenExpiry = time.Time{}
	m.user = nil
	fns := m.notifyLocked()
	m.mu.Unlock()

	m.remove(ctx, common.KeyAuthToken)
	m.remove(ctx, common.KeyTokenExpiry)
	m.remove(ctx, common.KeyUser)
	runAll(fns)
}

func (m *Manager) User() *api.Profile {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.user
}

func (m *Manager) SetUser(ctx context.Context, u *api.Profile) {
	m.mu.Lock()
	m.user = u
	if u != nil {
		m.hasAPIKey = u.HasAPIKey
	}
	fns := m.notifyLocked()
	m.mu.Unlock()

	if u == nil {
		m.remove(ctx, common.KeyUser)
	} else {
		payload, err := json.Marshal(u)
		if err != nil {
			m.log.Error(ctx, "failed to encode user profile", "error", err)
		} else {
			m.write(ctx, common.KeyUser, payload)
		}
		m.write(ctx, common.KeyHasAPIKey, []byte(strconv.FormatBool(u.HasAPIKey)))
	}
	runAll(fns)
}

func (m *Manager) SelectedTemplateID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.selectedTemplateID
}

func (m *Manager) SetSelectedTemplateID(ctx context.Context, id string) {
	m.mu.Lock()
	m.selectedTemplateID = id
	fns := m.notifyLocked()
	m.mu.Unlock()

	if id == "" {
		m.remove(ctx, common.KeySelectedTemplate)
	} else {
		m.write(ctx, common.KeySelectedTemplate, []byte(id))
	}
	runAll(fns)
}

func (m *Manager) HasAPIKey() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.hasAPIKey
}

func (m *Manager) SetHasAPIKey(ctx context.Context, has bool) {
	m.mu.Lock()
	m.hasAPIKey = has
	if m.user != nil {
		u := *m.user
		u.HasAPIKey = has
		m.user = &u
	}
	fns := m.notifyLocked()
	m.mu.Unlock()

	m.write(ctx, common.KeyHasAPIKey, []byte(strconv.FormatBool(has)))
	runAll(fns)
}

// SelectedContent reads the content-capture side channel. ok is false when
// nothing is stored.
func (m *Manager) SelectedContent(ctx context.Context) (content string, capturedAt time.Time, ok bool) {
	raw, err := m.store.Get(ctx, common.KeySelectedContent)
	if err != nil {
		if !errors.Is(err, common.ErrNotFound) {
			m.log.Error(ctx, "failed to read selected content", "error", err)
		}
		return "", time.Time{}, false
	}
	tsRaw, err := m.store.Get(ctx, common.KeySelectedContentTimestamp)
	if err != nil {
		return "", time.Time{}, false
	}
	ms, err := strconv.ParseInt(string(tsRaw), 10, 64)
	if err != nil {
		return "", time.Time{}, false
	}
	return string(raw), time.UnixMilli(ms), true
}

// SetSelectedContent writes the side channel (context-menu capture analog).
func (m *Manager) SetSelectedContent(ctx context.Context, content string, capturedAt time.Time) {
	m.write(ctx, common.KeySelectedContent, []byte(content))
	m.write(ctx, common.KeySelectedContentTimestamp, []byte(strconv.FormatInt(capturedAt.UnixMilli(), 10)))
}

// ClearSelectedContent drops the side channel. Idempotent.
func (m *Manager) ClearSelectedContent(ctx context.Context) {
	m.remove(ctx, common.KeySelectedContent)
	m.remove(ctx, common.KeySelectedContentTimestamp)
}

// hydrate loads persisted keys into memory. Missing or malformed values are
// treated as absent; sync is best-effort by design.
func (m *Manager) hydrate(ctx context.Context) {
	all, err := m.store.List(ctx)
	if err != nil {
		m.log.Error(ctx, "failed to hydrate state from store", "error", err)
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if raw, ok := all[common.KeyAuthToken]; ok {
		if token, err := m.openToken(raw); err != nil {
			m.log.Warn(ctx, "stored auth token unreadable, ignoring", "error", err)
		} else {
			m.authToken = token
		}
	}
	if raw, ok := all[common.KeyTokenExpiry]; ok {
		if ms, err := strconv.ParseInt(string(raw), 10, 64); err == nil {
			m.tokenExpiry = time.UnixMilli(ms)
		}
	}
	if raw, ok := all[common.KeyUser]; ok {
		var u api.Profile
		if err := json.Unmarshal(raw, &u); err == nil {
			m.user = &u
		}
	}
	if raw, ok := all[common.KeySelectedTemplate]; ok {
		m.selectedTemplateID = string(raw)
	}
	if raw, ok := all[common.KeyHasAPIKey]; ok {
		m.hasAPIKey = string(raw) == "true"
	}
}

// mergeLoop folds external store changes into local state.
func (m *Manager) mergeLoop(ctx context.Context, ch <-chan store.Change) {
	defer close(m.watchDone)
	for {
		select {
		case <-ctx.Done():
			return
		case c, ok := <-ch:
			if !ok {
				return
			}
			m.merge(ctx, c)
		}
	}
}

func (m *Manager) merge(ctx context.Context, c store.Change) {
	m.mu.Lock()
	changed := true
	switch c.Key {
	case common.KeyAuthToken:
		if c.Deleted {
			m.authToken = ""
		} else if token, err := m.openToken(c.Value); err != nil {
			m.log.Warn(ctx, "external auth token unreadable, ignoring", "error", err)
			changed = false
		} else {
			m.authToken = token
		}
	case common.KeyTokenExpiry:
		if c.Deleted {
			m.tokenExpiry = time.Time{}
		} else if ms, err := strconv.ParseInt(string(c.Value), 10, 64); err == nil {
			m.tokenExpiry = time.UnixMilli(ms)
		}
	case common.KeyUser:
		if c.Deleted {
			m.user = nil
		} else {
			var u api.Profile
			if err := json.Unmarshal(c.Value, &u); err == nil {
				m.user = &u
			}
		}
	case common.KeySelectedTemplate:
		if c.Deleted {
			m.selectedTemplateID = ""
		} else {
			m.selectedTemplateID = string(c.Value)
		}
	case common.KeyHasAPIKey:
		m.hasAPIKey = !c.Deleted && string(c.Value) == "true"
	default:
		// side channel and unknown keys are read on demand, not mirrored
		changed = false
	}
	var fns []func()
	if changed {
		fns = m.notifyLocked()
	}
	m.mu.Unlock()
	runAll(fns)
}

func (m *Manager) writeToken(ctx context.Context, token string) {
	if token == "" {
		m.remove(ctx, common.KeyAuthToken)
		return
	}
	value := []byte(token)
	if m.seal != nil {
		sealed, err := m.seal.Seal(value)
		if err != nil {
			m.log.Error(ctx, "failed to seal auth token", "error", err)
			return
		}
		value = sealed
	}
	m.write(ctx, common.KeyAuthToken, value)
}

func (m *Manager) openToken(raw []byte) (string, error) {
	if m.seal == nil {
		return string(raw), nil
	}
	plain, err := m.seal.Open(raw)
	if err != nil {
		return "", err
	}
	return string(plain), nil
}

// write and remove are best-effort: storage failures are logged, never
// surfaced, so a broken store degrades to single-context behavior.
func (m *Manager) write(ctx context.Context, key string, value []byte) {
	if err := m.store.Set(ctx, key, value); err != nil {
		m.log.Error(ctx, "failed to persist state", "key", key, "error", err)
	}
}

func (m *Manager) remove(ctx context.Context, key string) {
	if err := m.store.Delete(ctx, key); err != nil {
		m.log.Error(ctx, "failed to remove persisted state", "key", key, "error", err)
	}
}

func runAll(fns []func()) {
	for _, fn := range fns {
		fn()
	}
}
