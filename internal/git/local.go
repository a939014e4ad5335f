package git

import (
	"errors"
	"fmt"

	"github.com/go-git/go-git/v6"
	"github.com/go-git/go-git/v6/plumbing"
)

// IsRepository reports whether dir is a git repository (worktree or bare).
func IsRepository(dir string) bool {
	_, err := git.PlainOpen(dir)
	return err == nil
}

// HasCommits reports whether the repository at dir has a resolvable HEAD,
// i.e. at least one commit on the current branch. A freshly initialized
// repository yields (false, nil). A dir that is not a repository yields an
// error wrapping ErrNotRepository.
func HasCommits(dir string) (bool, error) {
	repo, err := git.PlainOpen(dir)
	if err != nil {
		if errors.Is(err, git.ErrRepositoryNotExists) {
			return false, fmt.Errorf("%w: %s", ErrNotRepository, dir)
		}
		return false, fmt.Errorf("open %s: %w", dir, err)
	}
	if _, err := repo.Head(); err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("resolve HEAD in %s: %w", dir, err)
	}
	return true, nil
}
