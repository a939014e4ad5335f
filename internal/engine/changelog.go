package engine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"repofleet/internal/changelog"
	"repofleet/internal/git"
	"repofleet/internal/outcome"
)

// ChangelogRunner walks the immediate subdirectories of a repositories root
// and asks the external generator to write a changelog artifact into each
// one that has commit history. Failures are isolated per directory.
type ChangelogRunner struct {
	generator changelog.Generator
	pool      *Pool

	// Test seams for local repository inspection.
	isRepository func(dir string) bool
	hasCommits   func(dir string) (bool, error)
}

func NewChangelogRunner(generator changelog.Generator, concurrency int) (*ChangelogRunner, error) {
	if generator == nil {
		return nil, errors.New("generator is nil")
	}
	pool, err := NewPool(concurrency)
	if err != nil {
		return nil, err
	}
	return &ChangelogRunner{
		generator:    generator,
		pool:         pool,
		isRepository: git.IsRepository,
		hasCommits:   git.HasCommits,
	}, nil
}

// GenerateAll produces one outcome per subdirectory of reposRoot, in lexical
// order. Non-directories are ignored and not counted. emit, when non-nil,
// observes outcomes in completion order.
//
// The returned error is reserved for fatal preconditions: the generator tool
// being undiscoverable or reposRoot being unreadable. Per-directory problems
// become outcomes.
func (r *ChangelogRunner) GenerateAll(ctx context.Context, reposRoot, outputName string, emit func(outcome.Outcome)) ([]outcome.Outcome, outcome.Summary, error) {
	if err := r.generator.Check(); err != nil {
		return nil, outcome.Summary{}, err
	}
	if outputName == "" {
		return nil, outcome.Summary{}, errors.New("output file name is empty")
	}

	dirs, err := listSubdirectories(reposRoot)
	if err != nil {
		return nil, outcome.Summary{}, err
	}

	jobs := make([]Job, 0, len(dirs))
	for i, d := range dirs {
		idx, dir := i, d
		jobs = append(jobs, func(ctx context.Context) outcome.Outcome {
			return r.generateOne(ctx, idx, filepath.Join(reposRoot, dir), dir, outputName)
		})
	}

	outcomes, errCh := r.pool.Execute(ctx, jobs)
	return drain(outcomes, errCh, emit)
}

func (r *ChangelogRunner) generateOne(ctx context.Context, idx int, dir, name, outputName string) outcome.Outcome {
	if !r.isRepository(dir) {
		return skipOutcome(idx, outcome.OpChangelog, name, outcome.ReasonNotRepository)
	}

	ok, err := r.hasCommits(dir)
	if err != nil {
		return failOutcome(idx, outcome.OpChangelog, name, outcome.ReasonReadError, err)
	}
	if !ok {
		return skipOutcome(idx, outcome.OpChangelog, name, outcome.ReasonNoCommits)
	}

	if err := r.generator.Generate(ctx, dir, outputName); err != nil {
		return failOutcome(idx, outcome.OpChangelog, name, outcome.ReasonGenerationError, err)
	}

	return okOutcome(idx, outcome.OpChangelog, name, artifactNote(filepath.Join(dir, outputName)))
}

// artifactNote reports the artifact's line count as an informational side
// note. A missing or unreadable artifact is not an error here; the generator
// already exited zero.
func artifactNote(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	lines := bytes.Count(data, []byte("\n"))
	if len(data) > 0 && !bytes.HasSuffix(data, []byte("\n")) {
		lines++
	}
	return fmt.Sprintf("%d lines", lines)
}

// listSubdirectories returns the immediate subdirectory names of root in
// lexical order. Symlinked entries count only if they resolve to a
// directory.
func listSubdirectories(root string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("read repositories root: %w", err)
	}

	dirs := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			dirs = append(dirs, e.Name())
			continue
		}
		if e.Type()&os.ModeSymlink != 0 {
			if info, err := os.Stat(filepath.Join(root, e.Name())); err == nil && info.IsDir() {
				dirs = append(dirs, e.Name())
			}
		}
	}
	sort.Strings(dirs)
	return dirs, nil
}
