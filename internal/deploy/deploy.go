// Package deploy owns the final output tree that variants are merged into.
package deploy

import (
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	"git.home.luguber.info/inful/sitevariants/internal/foundation/errors"
	"git.home.luguber.info/inful/sitevariants/internal/fsutil"
	"git.home.luguber.info/inful/sitevariants/internal/logfields"
)

// Prepare readies the deploy root before the first variant runs. With clean
// set, any previous output is removed first.
func Prepare(root string, clean bool) error {
	if clean {
		if err := os.RemoveAll(root); err != nil {
			return errors.WrapError(err, errors.CategoryFileSystem, "failed to clean deploy directory").
				Fatal().
				WithContext("path", root).
				Build()
		}
	}
	if err := os.MkdirAll(root, 0o750); err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "failed to create deploy directory").
			Fatal().
			WithContext("path", root).
			Build()
	}
	return nil
}

// ValidateMount checks that mount is a clean relative slash path that stays
// inside the deploy root. The empty mount is the root itself.
func ValidateMount(mount string) error {
	if mount == "" {
		return nil
	}
	bad := strings.HasPrefix(mount, "/") ||
		strings.Contains(mount, `\`) ||
		path.Clean(mount) != mount ||
		mount == "." || mount == ".." || strings.HasPrefix(mount, "../")
	if bad {
		return errors.ConfigError("invalid mount path").
			WithContext("mount", mount).
			Build()
	}
	return nil
}

// Dir returns the directory a mount resolves to under root.
func Dir(root, mount string) string {
	if mount == "" {
		return root
	}
	return filepath.Join(root, filepath.FromSlash(mount))
}

// MountResult describes one merge into the deploy tree.
type MountResult struct {
	Dir       string
	Files     int
	Clobbered bool // the mount directory already held content
}

// Mount merges the staged tree into root/mount. Existing files with the same
// relative path are overwritten; a non-empty mount directory is reported with
// a warning and the merge goes ahead.
func Mount(stagingRoot, root, mount string) (MountResult, error) {
	if err := ValidateMount(mount); err != nil {
		return MountResult{}, err
	}
	res := MountResult{Dir: Dir(root, mount)}

	empty, err := fsutil.IsEmptyDir(res.Dir)
	if err != nil {
		return res, errors.WrapError(err, errors.CategoryFileSystem, "failed to inspect mount directory").
			Fatal().
			WithContext("path", res.Dir).
			Build()
	}
	if !empty {
		res.Clobbered = true
		slog.Warn("Mount path already has content; merging over it",
			logfields.Mount(mount),
			logfields.Path(res.Dir))
	}

	n, err := fsutil.CopyTree(stagingRoot, res.Dir)
	res.Files = n
	if err != nil {
		return res, errors.WrapError(err, errors.CategoryFileSystem, "failed to mount variant").
			Fatal().
			WithContext("mount", mount).
			WithContext("path", res.Dir).
			Build()
	}
	slog.Info("Mounted variant", logfields.Mount(mount), logfields.Path(res.Dir), logfields.Count(n))
	return res, nil
}
