package fsutil

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
}

func TestRemoveTree(t *testing.T) {
	root := filepath.Join(t.TempDir(), "apache-maven-3.9.6")
	writeTree(t, root, map[string]string{
		"bin/mvn":               "#!/bin/sh",
		"lib/ext/readme.txt":    "ext",
		"conf/settings.xml":     "<settings/>",
		"boot/plexus/empty.txt": "",
	})
	require.NoError(t, os.MkdirAll(filepath.Join(root, "empty", "nested"), 0o755))

	require.NoError(t, RemoveTree(root))
	assert.NoDirExists(t, root)
}

func TestRemoveTree_MissingPath(t *testing.T) {
	assert.NoError(t, RemoveTree(filepath.Join(t.TempDir(), "does-not-exist")))
}

func TestRemoveTree_SingleFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "file.txt")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))

	require.NoError(t, RemoveTree(file))
	assert.NoFileExists(t, file)
}

func TestRemoveTree_DoesNotFollowSymlinks(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks require privileges on Windows")
	}
	tempDir := t.TempDir()
	outside := filepath.Join(tempDir, "outside")
	writeTree(t, outside, map[string]string{"keep.txt": "keep"})

	root := filepath.Join(tempDir, "root")
	require.NoError(t, os.MkdirAll(root, 0o755))
	require.NoError(t, os.Symlink(outside, filepath.Join(root, "link")))

	require.NoError(t, RemoveTree(root))
	assert.NoDirExists(t, root)
	assert.FileExists(t, filepath.Join(outside, "keep.txt"))
}

func TestRemoveTree_ReportsFailingPath(t *testing.T) {
	if runtime.GOOS == "windows" || os.Geteuid() == 0 {
		t.Skip("permission based failure needs a non-root POSIX user")
	}
	root := filepath.Join(t.TempDir(), "root")
	locked := filepath.Join(root, "locked")
	writeTree(t, locked, map[string]string{"file.txt": "x"})
	require.NoError(t, os.Chmod(locked, 0o555))
	t.Cleanup(func() { _ = os.Chmod(locked, 0o755) })

	err := RemoveTree(root)
	require.Error(t, err)

	var removeErr *RemoveError
	require.True(t, errors.As(err, &removeErr))
	assert.Equal(t, filepath.Join(locked, "file.txt"), removeErr.Path)
	assert.True(t, errors.Is(err, os.ErrPermission))
	assert.DirExists(t, root)
}

func TestListDirs(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "b-dist"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "a-dist"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "file.txt"), nil, 0o644))

	dirs, err := ListDirs(dir)
	require.NoError(t, err)

	abs, err := filepath.Abs(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(abs, "a-dist"), filepath.Join(abs, "b-dist")}, dirs)
}

func TestListDirs_Missing(t *testing.T) {
	dirs, err := ListDirs(filepath.Join(t.TempDir(), "missing"))
	require.NoError(t, err)
	assert.Empty(t, dirs)
}

func TestDirSize(t *testing.T) {
	dir := t.TempDir()
	writeTree(t, dir, map[string]string{"a.txt": "12345", "sub/b.txt": "123"})

	size, count, err := DirSize(dir)
	require.NoError(t, err)
	assert.Equal(t, int64(8), size)
	assert.Equal(t, 2, count)

	size, count, err = DirSize(filepath.Join(dir, "missing"))
	require.NoError(t, err)
	assert.Zero(t, size)
	assert.Zero(t, count)
}
