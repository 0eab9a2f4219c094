package pipeline

import (
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/net/html"

	"git.home.luguber.info/inful/sitevariants/internal/foundation/errors"
	"git.home.luguber.info/inful/sitevariants/internal/fsutil"
	"git.home.luguber.info/inful/sitevariants/internal/htmldoc"
)

// docState tracks the parsed document held by a FileContext.
type docState int

const (
	docUnparsed docState = iota
	docParsed
	docDirty
)

// FileContext is the per-file state shared by the actions of one batch.
//
// The file is read on first access and the bytes are cached for the rest of
// the batch. Document parses the cached bytes once. At batch exit the executor
// writes the file back at most once: the serialized document when dirty, or
// replaced raw content, or nothing.
type FileContext struct {
	script *Script
	root   string
	path   string
	rel    string
	html   bool
	stats  *Stats

	raw      []byte
	loaded   bool
	replaced bool
	doc      *html.Node
	state    docState
	removed  bool
}

// Script returns the build script being executed.
func (fc *FileContext) Script() *Script { return fc.script }

// Root returns the staging root.
func (fc *FileContext) Root() string { return fc.root }

// Path returns the file's absolute path.
func (fc *FileContext) Path() string { return fc.path }

// Rel returns the file's slash-separated path relative to the staging root.
func (fc *FileContext) Rel() string { return fc.rel }

// IsHTML reports whether the file has one of the configured HTML extensions.
func (fc *FileContext) IsHTML() bool { return fc.html }

// Ext returns the lower-cased file extension including the dot.
func (fc *FileContext) Ext() string { return strings.ToLower(filepath.Ext(fc.path)) }

// Content returns the file's current bytes.
func (fc *FileContext) Content() ([]byte, error) {
	if fc.removed {
		return nil, os.ErrNotExist
	}
	if !fc.loaded {
		// #nosec G304 - path is inside the staging area
		b, err := os.ReadFile(fc.path)
		if err != nil {
			return nil, err
		}
		fc.raw = b
		fc.loaded = true
	}
	return fc.raw, nil
}

// Document returns the parsed HTML document, parsing the current content on
// first request.
func (fc *FileContext) Document() (*html.Node, error) {
	if fc.state != docUnparsed {
		return fc.doc, nil
	}
	b, err := fc.Content()
	if err != nil {
		return nil, err
	}
	doc, err := htmldoc.Parse(b)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryContent, "failed to parse page").
			Warning().
			WithContext("file", fc.rel).
			Build()
	}
	fc.stats.Parses++
	fc.doc = doc
	fc.state = docParsed
	return doc, nil
}

// MarkDirty flags the parsed document for write-back at batch exit. It has no
// effect before Document has been called.
func (fc *FileContext) MarkDirty() {
	if fc.state == docParsed {
		fc.state = docDirty
	}
}

// Dirty reports whether the parsed document will be written back.
func (fc *FileContext) Dirty() bool { return fc.state == docDirty }

// ReplaceContent swaps the file's content for b. Any parsed document is
// discarded; a later Document call parses b.
func (fc *FileContext) ReplaceContent(b []byte) {
	fc.raw = b
	fc.loaded = true
	fc.replaced = true
	fc.doc = nil
	fc.state = docUnparsed
}

// Remove deletes the file. Remaining actions in the batch skip it.
func (fc *FileContext) Remove() error {
	if fc.removed {
		return nil
	}
	if err := os.Remove(fc.path); err != nil && !os.IsNotExist(err) {
		return errors.WrapError(err, errors.CategoryFileSystem, "failed to delete staged file").
			WithContext("file", fc.rel).
			Build()
	}
	fc.removed = true
	fc.stats.Removed++
	return nil
}

// Removed reports whether the file was deleted during this batch.
func (fc *FileContext) Removed() bool { return fc.removed }

// Count adds n to a named build counter.
func (fc *FileContext) Count(key string, n int) { fc.stats.add(key, n) }

// flush writes pending changes back to disk and reports whether it wrote.
func (fc *FileContext) flush() (bool, error) {
	if fc.removed {
		return false, nil
	}
	var out []byte
	switch {
	case fc.state == docDirty:
		b, err := htmldoc.Render(fc.doc)
		if err != nil {
			return false, errors.WrapError(err, errors.CategoryInternal, "failed to serialize page").
				WithContext("file", fc.rel).
				Build()
		}
		out = b
	case fc.replaced:
		out = fc.raw
	default:
		return false, nil
	}
	if err := writeFile(fc.path, out); err != nil {
		return false, errors.WrapError(err, errors.CategoryFileSystem, "failed to write staged file").
			Fatal().
			WithContext("file", fc.rel).
			Build()
	}
	fc.stats.Writes++
	return true, nil
}

func writeFile(path string, b []byte) error {
	perm := os.FileMode(0o644)
	if st, err := os.Stat(path); err == nil {
		perm = st.Mode().Perm()
	}
	return os.WriteFile(path, b, perm)
}

// ProjectContext gives a project action access to the whole staging tree.
type ProjectContext struct {
	script *Script
	root   string
	isHTML func(string) bool
	stats  *Stats
}

// Script returns the build script being executed.
func (pc *ProjectContext) Script() *Script { return pc.script }

// Root returns the staging root.
func (pc *ProjectContext) Root() string { return pc.root }

// IsHTML reports whether path has one of the configured HTML extensions.
func (pc *ProjectContext) IsHTML(path string) bool { return pc.isHTML(path) }

// Files lists every file currently staged, in walk order.
func (pc *ProjectContext) Files() ([]File, error) {
	return listFiles(pc.root)
}

// Count adds n to a named build counter.
func (pc *ProjectContext) Count(key string, n int) { pc.stats.add(key, n) }

// File is a staged file.
type File struct {
	Path string // absolute
	Rel  string // slash-separated, relative to the staging root
}

func listFiles(root string) ([]File, error) {
	var out []File
	err := fsutil.WalkFiles(root, func(path, rel string, _ os.FileInfo) error {
		out = append(out, File{Path: path, Rel: rel})
		return nil
	})
	return out, err
}
