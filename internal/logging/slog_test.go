package logging

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSlogLogger(t *testing.T) {
	var buf bytes.Buffer
	l := NewSlogLogger(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))

	ctx := context.Background()
	l.Debug(ctx, "dbg", "k", "v")
	l.Info(ctx, "inf")
	l.Warn(ctx, "wrn")
	l.Error(ctx, "err")

	out := buf.String()
	require.Contains(t, out, "dbg")
	require.Contains(t, out, "k=v")
	require.Contains(t, out, "inf")
	require.Contains(t, out, "wrn")
	require.Contains(t, out, "err")
}

func TestNewTextLogger(t *testing.T) {
	l := NewTextLogger(slog.LevelWarn)
	require.NotNil(t, l)
	// below the minimum level must not panic either
	l.Debug(context.Background(), "dropped")
}

func TestSlogLoggerWith(t *testing.T) {
	var buf bytes.Buffer
	l := NewSlogLogger(slog.New(slog.NewTextHandler(&buf, nil)))

	child := l.With("component", "store")
	child.Info(context.Background(), "hello")

	require.Contains(t, buf.String(), "component=store")
}
