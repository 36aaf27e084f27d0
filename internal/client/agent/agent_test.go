package agent

import (
	"context"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jobrefme/jobrefme-cli/internal/client/detect"
	"github.com/jobrefme/jobrefme-cli/internal/client/state"
	"github.com/jobrefme/jobrefme-cli/internal/client/store"
	"github.com/jobrefme/jobrefme-cli/internal/logging"
)

func newTestAgent(t *testing.T, opts ...Option) (*Agent, store.Store, *state.Manager) {
	t.Helper()
	hub := store.NewMemoryHub()

	agentStore := hub.Open()
	manager, err := state.NewManager(context.Background(), agentStore)
	require.NoError(t, err)
	t.Cleanup(func() {
		manager.Close()
		_ = agentStore.Close()
	})

	return New(agentStore, manager, logging.NewNopLogger(), opts...), agentStore, manager
}

func TestHandlePageDetected(t *testing.T) {
	a, st, _ := newTestAgent(t)
	ctx := context.Background()

	a.Handle(ctx, Notification{Type: TypePageDetected, URL: "https://hirejobs.in/jobs/abc123"})

	url, supported := detect.Current(ctx, st)
	require.Equal(t, "https://hirejobs.in/jobs/abc123", url)
	require.True(t, supported)

	a.Handle(ctx, Notification{Type: TypePageDetected, URL: "https://hirejobs.in/about"})

	url, supported = detect.Current(ctx, st)
	require.Equal(t, "https://hirejobs.in/about", url)
	require.False(t, supported)
}

func TestHandleContentSelected(t *testing.T) {
	capturedAt := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	a, _, manager := newTestAgent(t, WithClock(func() time.Time { return capturedAt }))
	ctx := context.Background()

	a.Handle(ctx, Notification{Type: TypeContentSelected, Content: "Go Developer at Acme"})

	content, ts, ok := manager.SelectedContent(ctx)
	require.True(t, ok)
	require.Equal(t, "Go Developer at Acme", content)
	require.True(t, capturedAt.Equal(ts))
}

func TestHandleIgnoresEmptyContentAndUnknownTypes(t *testing.T) {
	a, _, manager := newTestAgent(t)
	ctx := context.Background()

	a.Handle(ctx, Notification{Type: TypeContentSelected, Content: ""})
	a.Handle(ctx, Notification{Type: "SOMETHING_ELSE", URL: "https://hirejobs.in/jobs/x"})

	_, _, ok := manager.SelectedContent(ctx)
	require.False(t, ok)
}

func TestServeNDJSONStream(t *testing.T) {
	a, st, manager := newTestAgent(t)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = a.Serve(ctx, ln)
	}()

	conn, err := net.Dial("tcp", ln.Addr().String())
	require.NoError(t, err)

	fmt.Fprintln(conn, `{"type":"HIREJOBS_PAGE_DETECTED","url":"https://hirejobs.in/jobs/xyz789"}`)
	fmt.Fprintln(conn, `this is not json`)
	fmt.Fprintln(conn, `{"type":"CONTENT_SELECTED","content":"Backend Engineer at Hooli"}`)
	require.NoError(t, conn.Close())

	require.Eventually(t, func() bool {
		_, _, ok := manager.SelectedContent(context.Background())
		return ok
	}, 3*time.Second, 10*time.Millisecond)

	url, supported := detect.Current(context.Background(), st)
	require.Equal(t, "https://hirejobs.in/jobs/xyz789", url)
	require.True(t, supported)

	cancel()
	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("Serve did not stop after context cancellation")
	}
}

func TestServeStopsWhenContextCancelled(t *testing.T) {
	a, _, _ := newTestAgent(t)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Serve(ctx, ln) }()

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("Serve did not return")
	}
}
