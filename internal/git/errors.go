package git

import "errors"

var (
	// ErrGitMissing means the git executable is not discoverable. This is a
	// fatal precondition, not a per-item failure.
	ErrGitMissing = errors.New("git executable not found")

	ErrClone         = errors.New("clone failed")
	ErrSparseConfig  = errors.New("sparse filter configuration failed")
	ErrCheckout      = errors.New("checkout failed")
	ErrNotRepository = errors.New("not a git repository")
)
