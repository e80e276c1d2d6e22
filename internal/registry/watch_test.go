package registry

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"firestige.xyz/canframe/internal/log"
)

func TestWatchReloads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registry.yaml")
	require.NoError(t, os.WriteFile(path, []byte("messages:\n  - id: 1\n    name: One\n"), 0o644))

	m, err := LoadFile(path)
	require.NoError(t, err)
	store := NewStore(m)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Watch(ctx, path, store, log.GetLogger()) }()

	// Give the watcher time to register before writing
	time.Sleep(100 * time.Millisecond)

	// An invalid document keeps the previous snapshot
	require.NoError(t, os.WriteFile(path, []byte("messages: [\n"), 0o644))
	time.Sleep(200 * time.Millisecond)
	_, ok := store.Snapshot().Lookup(1)
	assert.True(t, ok)

	require.NoError(t, os.WriteFile(path, []byte("messages:\n  - id: 2\n    name: Two\n  - id: 3\n    name: Three\n"), 0o644))
	require.Eventually(t, func() bool { return store.Len() == 2 }, 2*time.Second, 20*time.Millisecond)

	name, ok := store.Snapshot().Lookup(2)
	assert.True(t, ok)
	assert.Equal(t, "Two", name)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("watch did not stop after cancel")
	}
}

func TestWatchMissingDirectory(t *testing.T) {
	err := Watch(context.Background(), "/nonexistent/dir/registry.yaml", NewStore(nil), log.GetLogger())
	assert.Error(t, err)
}
