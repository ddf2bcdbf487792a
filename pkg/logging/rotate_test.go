package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRotatingFileWrite(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "app.log")
	rf, err := NewRotatingFile(path)
	require.NoError(t, err)
	defer rf.Close()

	n, err := rf.Write([]byte("hello\n"))
	require.NoError(t, err)
	assert.Equal(t, 6, n)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "hello\n", string(content))
}

func TestRotatingFileAppendsToExisting(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "app.log")
	require.NoError(t, os.WriteFile(path, []byte("old\n"), 0o600))

	rf, err := NewRotatingFile(path)
	require.NoError(t, err)
	defer rf.Close()

	_, err = rf.Write([]byte("new\n"))
	require.NoError(t, err)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "old\nnew\n", string(content))
}

func TestRotatingFileRotates(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "app.log")
	rf, err := NewRotatingFile(path)
	require.NoError(t, err)
	defer rf.Close()

	// Fill close to the limit, then push one write over it.
	big := bytes.Repeat([]byte("x"), maxFileSize-10)
	_, err = rf.Write(big)
	require.NoError(t, err)

	_, err = rf.Write([]byte("this write rotates\n"))
	require.NoError(t, err)

	backup, err := os.ReadFile(path + ".1")
	require.NoError(t, err)
	assert.Len(t, backup, maxFileSize-10)

	current, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "this write rotates\n", string(current))
}

func TestRotatingFileCreatesDirectory(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "deep", "app.log")
	rf, err := NewRotatingFile(path)
	require.NoError(t, err)
	defer rf.Close()

	_, err = rf.Write([]byte("x"))
	require.NoError(t, err)
}
