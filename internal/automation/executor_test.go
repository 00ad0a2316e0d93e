package automation

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inbox-rpa/internal/config"
)

func TestNavigationReason(t *testing.T) {
	assert.Equal(t, "navigation/element timeout",
		navigationReason(fmt.Errorf("navigate: %w", context.DeadlineExceeded)))

	backend := errors.New("net::ERR_NAME_NOT_RESOLVED")
	assert.Contains(t, navigationReason(backend), "ERR_NAME_NOT_RESOLVED")
}

func TestElementReason(t *testing.T) {
	assert.Equal(t, "element timeout",
		elementReason(fmt.Errorf("element: %w", context.DeadlineExceeded), "button"))

	backend := errors.New("node detached")
	reason := elementReason(backend, ".cta")
	assert.Contains(t, reason, ".cta")
	assert.Contains(t, reason, "node detached")
}

func TestCleanCacheRemovesEntries(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "profile", "Default"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "lockfile"), []byte("x"), 0o644))

	e := NewExecutor(config.AutomationConfig{CacheDir: dir, TimeoutSeconds: 1})
	require.NoError(t, e.CleanCache())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)

	// Cleaning an already-empty cache is a no-op.
	require.NoError(t, e.CleanCache())
}

func TestCleanCacheMissingDir(t *testing.T) {
	e := NewExecutor(config.AutomationConfig{
		CacheDir:       filepath.Join(t.TempDir(), "never-created"),
		TimeoutSeconds: 1,
	})
	assert.NoError(t, e.CleanCache())
}

func TestCacheRootDefault(t *testing.T) {
	e := NewExecutor(config.AutomationConfig{TimeoutSeconds: 1})
	assert.Equal(t, filepath.Join(os.TempDir(), "rod"), e.cacheRoot())
}
