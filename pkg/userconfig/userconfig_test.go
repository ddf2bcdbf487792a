package userconfig

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()

	s, err := Load(filepath.Join(t.TempDir(), "prefs.yaml"))
	require.NoError(t, err)
	assert.Empty(t, s.AlwaysAllowedTools("alice"))
}

func TestAddAndReload(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "prefs.yaml")

	s, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, s.AddAlwaysAllowedTool("alice", "write_file"))
	require.NoError(t, s.AddAlwaysAllowedTool("alice", "shell"))
	require.NoError(t, s.AddAlwaysAllowedTool("bob", "write_file"))

	// Duplicates are ignored.
	require.NoError(t, s.AddAlwaysAllowedTool("alice", "write_file"))
	assert.Equal(t, []string{"write_file", "shell"}, s.AlwaysAllowedTools("alice"))

	reloaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"write_file", "shell"}, reloaded.AlwaysAllowedTools("alice"))
	assert.Equal(t, []string{"write_file"}, reloaded.AlwaysAllowedTools("bob"))
	assert.Empty(t, reloaded.AlwaysAllowedTools("carol"))
}

func TestEmptyPathStaysInMemory(t *testing.T) {
	t.Parallel()

	s, err := Load("")
	require.NoError(t, err)
	require.NoError(t, s.AddAlwaysAllowedTool("alice", "write_file"))
	assert.Equal(t, []string{"write_file"}, s.AlwaysAllowedTools("alice"))
}

func TestLoadCorruptFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "prefs.yaml")
	require.NoError(t, os.WriteFile(path, []byte("users: [not a map"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}
