package missset

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSet_AddPersistsAndReloads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "misses.json")

	s, err := New(path)
	require.NoError(t, err)
	assert.False(t, s.Contains("st1"))

	require.NoError(t, s.Add("st1"))
	assert.True(t, s.Contains("st1"))
	assert.Equal(t, 1, s.Len())

	// A re-add is a no-op, not an error.
	require.NoError(t, s.Add("st1"))
	assert.Equal(t, 1, s.Len())

	reloaded, err := New(path)
	require.NoError(t, err)
	assert.True(t, reloaded.Contains("st1"))
}

func TestSet_MissingFileStartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "absent.json")
	s, err := New(path)
	require.NoError(t, err)
	assert.Equal(t, 0, s.Len())
}

func TestSet_CorruptFileToleratedAsEmpty(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "corrupt.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	s, err := New(path)
	require.NoError(t, err)
	assert.Equal(t, 0, s.Len())
}
