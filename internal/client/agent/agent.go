// Package agent is the background surface. It listens on a localhost TCP
// endpoint for newline-delimited JSON notifications from the browser side
// (page navigation and selected-content capture) and records them in the
// shared store, where the interactive surface picks them up.
package agent

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/google/uuid"

	"github.com/jobrefme/jobrefme-cli/internal/client/detect"
	"github.com/jobrefme/jobrefme-cli/internal/client/state"
	"github.com/jobrefme/jobrefme-cli/internal/client/store"
	"github.com/jobrefme/jobrefme-cli/internal/logging"
)

// Notification types accepted on the wire.
const (
	TypePageDetected    = "HIREJOBS_PAGE_DETECTED"
	TypeContentSelected = "CONTENT_SELECTED"
)

// Notification is one NDJSON message from the browser companion.
type Notification struct {
	Type    string `json:"type"`
	URL     string `json:"url,omitempty"`
	Content string `json:"content,omitempty"`
}

// maxLineBytes bounds a single notification line; selected job content can
// be a whole posting but not more.
const maxLineBytes = 1 << 20

// Agent consumes notifications and writes their effects into shared state.
type Agent struct {
	state   *state.Manager
	watcher *detect.Watcher
	log     logging.Logger
	now     func() time.Time
}

type Option func(*Agent)

// WithClock substitutes the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(a *Agent) { a.now = now }
}

func New(st store.Store, manager *state.Manager, log logging.Logger, opts ...Option) *Agent {
	a := &Agent{
		state:   manager,
		watcher: detect.NewWatcher(st, log),
		log:     log,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Handle applies one notification. Unknown types are logged and dropped;
// the sender gets no feedback, matching fire-and-forget browser messaging.
func (a *Agent) Handle(ctx context.Context, n Notification) {
	switch n.Type {
	case TypePageDetected:
		a.watcher.Apply(ctx, n.URL)
	case TypeContentSelected:
		if n.Content == "" {
			a.log.Warn(ctx, "ignoring empty content capture")
			return
		}
		captureID := uuid.NewString()
		a.state.SetSelectedContent(ctx, n.Content, a.now())
		a.log.Info(ctx, "job content captured", "captureId", captureID, "bytes", len(n.Content))
	default:
		a.log.Warn(ctx, "unknown notification type", "type", n.Type)
	}
}

// ListenAndServe listens on addr and serves until ctx is done.
func (a *Agent) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	a.log.Info(ctx, "agent listening", "addr", ln.Addr().String())
	return a.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is done. Each connection is a
// stream of NDJSON notifications; malformed lines are logged and skipped.
func (a *Agent) Serve(ctx context.Context, ln net.Listener) error {
	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			a.log.Error(ctx, "accept failed", "error", err)
			continue
		}
		go a.serveConn(ctx, conn)
	}
}

func (a *Agent) serveConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var n Notification
		if err := json.Unmarshal(line, &n); err != nil {
			a.log.Warn(ctx, "malformed notification", "error", err)
			continue
		}
		a.Handle(ctx, n)
	}
	if err := scanner.Err(); err != nil {
		a.log.Warn(ctx, "connection read failed", "error", err)
	}
}
