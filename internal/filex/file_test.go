package filex

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadOrCreate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "keyfile")

	data, err := LoadOrCreate(path, func() []byte { return []byte("initial") })
	require.NoError(t, err)
	require.Equal(t, []byte("initial"), data)

	// second call reads, init must not run again
	data, err = LoadOrCreate(path, func() []byte {
		t.Fatal("init called for existing file")
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, []byte("initial"), data)

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}
