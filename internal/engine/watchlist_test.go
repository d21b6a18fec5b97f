package engine

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWatchlist(t *testing.T) {
	t.Parallel()

	w := NewWatchlist("  Pearson ", "McGraw-Hill", "", "pearson")
	assert.Len(t, w, 2)
	assert.True(t, w.Contains("pearson"))
	assert.True(t, w.Contains("PEARSON"))
	assert.True(t, w.Contains(" McGraw-Hill "))
	assert.False(t, w.Contains("wiley"))
	assert.False(t, w.Contains(""))
}

func TestDefaultWatchlist(t *testing.T) {
	t.Parallel()

	w := DefaultWatchlist()
	assert.True(t, w.Contains("Test Prep Company"))
	assert.True(t, w.Contains("workbook publisher"))
}

func TestLoadWatchlist(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "watchlist.yaml")
	require.NoError(t, os.WriteFile(path, []byte("- Pearson\n- \"Cengage Learning\"\n"), 0o644))

	w, err := LoadWatchlist(path)
	require.NoError(t, err)
	assert.Len(t, w, 2)
	assert.True(t, w.Contains("pearson"))
	assert.True(t, w.Contains("cengage learning"))
}

func TestLoadWatchlist_Errors(t *testing.T) {
	t.Parallel()

	_, err := LoadWatchlist(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "read watchlist")

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("not: a: list:"), 0o644))
	_, err = LoadWatchlist(path)
	assert.ErrorContains(t, err, "parse watchlist")
}
