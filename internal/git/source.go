package git

import (
	stderrors "errors"
	"fmt"

	"github.com/go-git/go-git/v5"
)

// SourceInfo identifies the checked-out revision of a source tree.
type SourceInfo struct {
	Commit string `yaml:"commit"`
	Branch string `yaml:"branch,omitempty"`
	// Dirty is set when the worktree has uncommitted changes.
	Dirty bool `yaml:"dirty"`
}

// Describe inspects the repository containing path (searching parent
// directories). ok is false when path is not inside a repository or the
// repository has no commits yet.
func Describe(path string) (info SourceInfo, ok bool, err error) {
	repo, err := git.PlainOpenWithOptions(path, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		if stderrors.Is(err, git.ErrRepositoryNotExists) {
			return SourceInfo{}, false, nil
		}
		return SourceInfo{}, false, fmt.Errorf("open repository: %w", err)
	}

	head, err := repo.Head()
	if err != nil {
		// unborn branch: nothing committed yet
		return SourceInfo{}, false, nil
	}
	info.Commit = head.Hash().String()
	if head.Name().IsBranch() {
		info.Branch = head.Name().Short()
	}

	wt, err := repo.Worktree()
	if err != nil {
		// bare repositories have no worktree to be dirty
		return info, true, nil
	}
	status, err := wt.Status()
	if err != nil {
		return info, true, fmt.Errorf("worktree status: %w", err)
	}
	info.Dirty = !status.IsClean()
	return info, true, nil
}

// Short returns the abbreviated commit hash.
func (s SourceInfo) Short() string {
	if len(s.Commit) > 7 {
		return s.Commit[:7]
	}
	return s.Commit
}
