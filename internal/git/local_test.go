package git

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	gogit "github.com/go-git/go-git/v6"
	"github.com/go-git/go-git/v6/plumbing/object"
)

func initRepo(t *testing.T) (string, *gogit.Repository) {
	t.Helper()

	dir := t.TempDir()
	repo, err := gogit.PlainInit(dir, false)
	if err != nil {
		t.Fatalf("PlainInit failed: %v", err)
	}
	return dir, repo
}

func commitFile(t *testing.T, dir string, repo *gogit.Repository) {
	t.Helper()

	worktree, err := repo.Worktree()
	if err != nil {
		t.Fatalf("Worktree failed: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "README.md"), []byte("# test\n"), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	if _, err := worktree.Add("README.md"); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	_, err = worktree.Commit("initial commit", &gogit.CommitOptions{
		Author: &object.Signature{
			Name:  "Test Author",
			Email: "test@example.com",
			When:  time.Now(),
		},
	})
	if err != nil {
		t.Fatalf("Commit failed: %v", err)
	}
}

func TestIsRepository(t *testing.T) {
	dir, _ := initRepo(t)
	if !IsRepository(dir) {
		t.Fatalf("expected %s to be a repository", dir)
	}

	plain := t.TempDir()
	if IsRepository(plain) {
		t.Fatalf("expected %s not to be a repository", plain)
	}
}

func TestHasCommits_EmptyRepository(t *testing.T) {
	dir, _ := initRepo(t)

	has, err := HasCommits(dir)
	if err != nil {
		t.Fatalf("HasCommits failed: %v", err)
	}
	if has {
		t.Fatalf("expected no commits in a fresh repository")
	}
}

func TestHasCommits_RepositoryWithCommit(t *testing.T) {
	dir, repo := initRepo(t)
	commitFile(t, dir, repo)

	has, err := HasCommits(dir)
	if err != nil {
		t.Fatalf("HasCommits failed: %v", err)
	}
	if !has {
		t.Fatalf("expected commits after committing")
	}
}

func TestHasCommits_NotARepository(t *testing.T) {
	_, err := HasCommits(t.TempDir())
	if err == nil {
		t.Fatalf("expected error, got nil")
	}
	if !errors.Is(err, ErrNotRepository) {
		t.Fatalf("expected ErrNotRepository, got %v", err)
	}
}
