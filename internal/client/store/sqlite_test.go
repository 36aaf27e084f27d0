package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jobrefme/jobrefme-cli/internal/common"
)

func openTestSQLite(t *testing.T, path string) *SQLiteStore {
	t.Helper()
	s, err := OpenSQLite(context.Background(), path, WithPollInterval(20*time.Millisecond))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSQLiteStoreBasics(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.db")
	s := openTestSQLite(t, path)
	ctx := context.Background()

	_, err := s.Get(ctx, "missing")
	require.ErrorIs(t, err, common.ErrNotFound)

	require.NoError(t, s.Set(ctx, "k", []byte("v1")))
	require.NoError(t, s.Set(ctx, "k", []byte("v2")))

	got, err := s.Get(ctx, "k")
	require.NoError(t, err)
	require.Equal(t, []byte("v2"), got)

	all, err := s.List(ctx)
	require.NoError(t, err)
	require.Equal(t, map[string][]byte{"k": []byte("v2")}, all)

	require.NoError(t, s.Delete(ctx, "k"))
	_, err = s.Get(ctx, "k")
	require.ErrorIs(t, err, common.ErrNotFound)
}

func TestSQLiteStoreSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.db")
	ctx := context.Background()

	s := openTestSQLite(t, path)
	require.NoError(t, s.Set(ctx, "authToken", []byte("tok")))
	require.NoError(t, s.Close())

	s2 := openTestSQLite(t, path)
	got, err := s2.Get(ctx, "authToken")
	require.NoError(t, err)
	require.Equal(t, []byte("tok"), got)
}

func TestSQLiteStoreCrossHandleWatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.db")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	writer := openTestSQLite(t, path)
	reader := openTestSQLite(t, path)

	readerCh, err := reader.Watch(ctx)
	require.NoError(t, err)
	writerCh, err := writer.Watch(ctx)
	require.NoError(t, err)

	require.NoError(t, writer.Set(ctx, "selectedTemplateId", []byte("tpl-1")))

	select {
	case c := <-readerCh:
		require.Equal(t, "selectedTemplateId", c.Key)
		require.Equal(t, []byte("tpl-1"), c.Value)
		require.False(t, c.Deleted)
	case <-time.After(3 * time.Second):
		t.Fatal("other process handle never observed the write")
	}

	// the writer's own handle stays quiet
	select {
	case c := <-writerCh:
		t.Fatalf("writer observed its own change: %+v", c)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestSQLiteStoreConcurrentDistinctKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.db")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a := openTestSQLite(t, path)
	b := openTestSQLite(t, path)

	aCh, err := a.Watch(ctx)
	require.NoError(t, err)
	bCh, err := b.Watch(ctx)
	require.NoError(t, err)

	require.NoError(t, a.Set(ctx, "authToken", []byte("tok")))
	require.NoError(t, b.Set(ctx, "selectedTemplateId", []byte("tpl")))

	waitFor := func(ch <-chan Change, key string) Change {
		t.Helper()
		for {
			select {
			case c := <-ch:
				if c.Key == key {
					return c
				}
			case <-time.After(3 * time.Second):
				t.Fatalf("change for %s never delivered", key)
			}
		}
	}

	require.Equal(t, []byte("tpl"), waitFor(aCh, "selectedTemplateId").Value)
	require.Equal(t, []byte("tok"), waitFor(bCh, "authToken").Value)
}
