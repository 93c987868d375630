package state

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileStartsFresh(t *testing.T) {
	s, err := Load(filepath.Join(t.TempDir(), "state.json"))
	require.NoError(t, err)
	assert.Empty(t, s.Briefed)
	assert.False(t, s.Contains("anything"))
}

func TestSaveAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")

	s, err := Load(path)
	require.NoError(t, err)
	s.Add("uid-1_2026-03-15T14:00:00Z")
	s.Add("uid-2_2026-03-16T09:00:00Z")
	s.Add("uid-1_2026-03-15T14:00:00Z") // duplicate ignored
	require.NoError(t, s.Save())

	reloaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"uid-1_2026-03-15T14:00:00Z", "uid-2_2026-03-16T09:00:00Z"}, reloaded.Briefed)
	assert.True(t, reloaded.Contains("uid-1_2026-03-15T14:00:00Z"))
	assert.False(t, reloaded.Contains("uid-3_2026-03-17T10:00:00Z"))
}

func TestLoadExistingFormat(t *testing.T) {
	// The on-disk shape is a flat {"briefed": [...]} document.
	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"briefed":["a","b"]}`), 0644))

	s, err := Load(path)
	require.NoError(t, err)
	assert.True(t, s.Contains("a"))
	assert.True(t, s.Contains("b"))
}

func TestLoadCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	_, err := Load(path)
	require.Error(t, err)
}
