// Package fsutil holds filesystem helpers shared by the router, the executor
// and the deploy step: a symlink-following tree walk and file/tree copies.
package fsutil

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// WalkFunc is called once per regular file. rel is the slash-separated path
// relative to the walk root, following the names as seen through symlinks.
type WalkFunc func(path, rel string, info os.FileInfo) error

// WalkFiles walks root recursively, following symbolic links to files and
// directories. A directory reached through several links is walked under each
// name; a link back to a directory on the current descent path is skipped so
// cycles terminate. Entries are visited in lexical order. Dangling links are
// skipped.
func WalkFiles(root string, fn WalkFunc) error {
	info, err := os.Stat(root)
	if err != nil {
		return fmt.Errorf("stat walk root: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("walk root %s is not a directory", root)
	}
	w := &walker{fn: fn}
	return w.walkDir(root, "", info)
}

type walker struct {
	fn WalkFunc
	// ancestors are the directories on the current descent path.
	ancestors []os.FileInfo
}

func (w *walker) onPath(info os.FileInfo) bool {
	for _, a := range w.ancestors {
		if os.SameFile(a, info) {
			return true
		}
	}
	return false
}

func (w *walker) walkDir(dir, rel string, info os.FileInfo) error {
	if w.onPath(info) {
		return nil
	}
	w.ancestors = append(w.ancestors, info)
	defer func() { w.ancestors = w.ancestors[:len(w.ancestors)-1] }()

	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read dir %s: %w", dir, err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	for _, entry := range entries {
		full := filepath.Join(dir, entry.Name())
		childRel := entry.Name()
		if rel != "" {
			childRel = rel + "/" + entry.Name()
		}

		// os.Stat resolves symlinks; Lstat-only entries would stop at the link.
		st, err := os.Stat(full)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return fmt.Errorf("stat %s: %w", full, err)
		}
		switch {
		case st.IsDir():
			if err := w.walkDir(full, childRel, st); err != nil {
				return err
			}
		case st.Mode().IsRegular():
			if err := w.fn(full, childRel, st); err != nil {
				return err
			}
		}
	}
	return nil
}

// CountFiles returns the number of regular files reachable under root.
func CountFiles(root string) (int, error) {
	n := 0
	err := WalkFiles(root, func(string, string, os.FileInfo) error {
		n++
		return nil
	})
	return n, err
}
