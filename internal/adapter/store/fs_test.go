package store_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/halcyon-wx/frameline/internal/adapter/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteReadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	fs := store.NewFS()

	path := filepath.Join(dir, "frame.png")
	require.NoError(t, fs.Write(path, []byte("payload")))

	data, err := fs.Read(path)
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), data)
	assert.True(t, fs.Exists(path))
}

func TestWriteLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	fs := store.NewFS()

	require.NoError(t, fs.Write(filepath.Join(dir, "frame.png"), []byte("payload")))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "frame.png", entries[0].Name())
	assert.False(t, strings.HasPrefix(entries[0].Name(), "."))
}

func TestWriteOverwrites(t *testing.T) {
	dir := t.TempDir()
	fs := store.NewFS()
	path := filepath.Join(dir, "frame.png")

	require.NoError(t, fs.Write(path, []byte("first")))
	require.NoError(t, fs.Write(path, []byte("second")))

	data, err := fs.Read(path)
	require.NoError(t, err)
	assert.Equal(t, []byte("second"), data)
}

func TestExists(t *testing.T) {
	dir := t.TempDir()
	fs := store.NewFS()

	assert.False(t, fs.Exists(filepath.Join(dir, "missing.png")))
	assert.False(t, fs.Exists(dir), "directories are not assets")

	path := filepath.Join(dir, "present.png")
	require.NoError(t, fs.Write(path, nil))
	assert.True(t, fs.Exists(path))
}

func TestDelete(t *testing.T) {
	dir := t.TempDir()
	fs := store.NewFS()
	path := filepath.Join(dir, "frame.png")

	require.NoError(t, fs.Write(path, []byte("x")))
	require.NoError(t, fs.Delete(path))
	assert.False(t, fs.Exists(path))
	assert.Error(t, fs.Delete(path))
}

func TestEnsureDir(t *testing.T) {
	dir := t.TempDir()
	fs := store.NewFS()

	nested := filepath.Join(dir, "overlay", "20190124")
	require.NoError(t, fs.EnsureDir(nested))
	require.NoError(t, fs.EnsureDir(nested), "must be idempotent")

	info, err := os.Stat(nested)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestList(t *testing.T) {
	dir := t.TempDir()
	fs := store.NewFS()

	require.NoError(t, fs.EnsureDir(filepath.Join(dir, "20190124")))
	require.NoError(t, fs.Write(filepath.Join(dir, "last.png"), []byte("x")))

	entries, err := fs.List(dir)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	byName := map[string]bool{}
	for _, e := range entries {
		byName[e.Name] = e.Dir
	}
	assert.True(t, byName["20190124"])
	assert.False(t, byName["last.png"])
}

func TestListMissingDir(t *testing.T) {
	fs := store.NewFS()
	_, err := fs.List(filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}
