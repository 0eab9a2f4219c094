package fsutil

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestWalkFilesOrderAndRelativePaths(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "b.txt"), "b")
	writeFile(t, filepath.Join(root, "a", "z.txt"), "z")
	writeFile(t, filepath.Join(root, "a", "y", "x.txt"), "x")

	var rels []string
	err := WalkFiles(root, func(_, rel string, _ os.FileInfo) error {
		rels = append(rels, rel)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a/y/x.txt", "a/z.txt", "b.txt"}, rels)
}

func TestWalkFilesFollowsSymlinksAndStopsAtCycles(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks require privileges on windows")
	}
	root := t.TempDir()
	outside := t.TempDir()
	writeFile(t, filepath.Join(outside, "shared.txt"), "s")
	require.NoError(t, os.Symlink(outside, filepath.Join(root, "linked")))
	// cycle back to root
	require.NoError(t, os.Symlink(root, filepath.Join(root, "loop")))

	var rels []string
	err := WalkFiles(root, func(_, rel string, _ os.FileInfo) error {
		rels = append(rels, rel)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"linked/shared.txt"}, rels)
}

func TestWalkFilesReportsEveryAliasOfADirectory(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks require privileges on windows")
	}
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "dist", "assets", "app.js"), "js")
	require.NoError(t, os.Symlink(filepath.Join(root, "dist", "assets"), filepath.Join(root, "assets")))
	// a cycle below an alias still terminates
	require.NoError(t, os.Symlink(filepath.Join(root, "dist"), filepath.Join(root, "dist", "assets", "up")))

	var rels []string
	err := WalkFiles(root, func(_, rel string, _ os.FileInfo) error {
		rels = append(rels, rel)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"assets/app.js", "dist/assets/app.js"}, rels)
}

func TestWalkFilesSkipsDanglingLinks(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks require privileges on windows")
	}
	root := t.TempDir()
	require.NoError(t, os.Symlink(filepath.Join(root, "missing"), filepath.Join(root, "dangling")))

	n, err := CountFiles(root)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestCopyTreeMergesAndOverwrites(t *testing.T) {
	src := t.TempDir()
	dst := t.TempDir()
	writeFile(t, filepath.Join(src, "index.html"), "new")
	writeFile(t, filepath.Join(src, "css", "site.css"), "css")
	writeFile(t, filepath.Join(dst, "index.html"), "old")
	writeFile(t, filepath.Join(dst, "v", "nojs", "index.html"), "keep")

	n, err := CopyTree(src, dst)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	got, err := os.ReadFile(filepath.Join(dst, "index.html"))
	require.NoError(t, err)
	assert.Equal(t, "new", string(got))
	assert.FileExists(t, filepath.Join(dst, "css", "site.css"))
	assert.FileExists(t, filepath.Join(dst, "v", "nojs", "index.html"))
}

func TestIsEmptyDir(t *testing.T) {
	dir := t.TempDir()
	empty, err := IsEmptyDir(dir)
	require.NoError(t, err)
	assert.True(t, empty)

	empty, err = IsEmptyDir(filepath.Join(dir, "missing"))
	require.NoError(t, err)
	assert.True(t, empty)

	writeFile(t, filepath.Join(dir, "x"), "x")
	empty, err = IsEmptyDir(dir)
	require.NoError(t, err)
	assert.False(t, empty)
}
