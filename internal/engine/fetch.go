package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"repofleet/internal/git"
	"repofleet/internal/manifest"
	"repofleet/internal/outcome"
)

// FetchItem is one planned unit of fetch work: a descriptor plus its
// effective sparse path filter set.
type FetchItem struct {
	Descriptor manifest.Descriptor
	Paths      []string
}

// Fetcher materializes partial local copies of remote repositories under a
// target root, one subdirectory per descriptor name.
//
// Per-item guarantees:
//   - idempotence: an existing target directory is never touched again;
//   - isolation: a failing item never aborts the rest of the run;
//   - no cleanup: a directory left behind by a failed clone or checkout
//     stays on disk so a re-run after manual repair cannot destroy user work.
type Fetcher struct {
	transport git.Transport
	root      string
	pool      *Pool

	// Retries is the number of additional clone attempts after a transport
	// failure. 0 means a single attempt.
	Retries int

	// Backoff is the base delay between clone attempts, doubled per retry.
	Backoff time.Duration
}

func NewFetcher(transport git.Transport, root string, concurrency int) (*Fetcher, error) {
	if transport == nil {
		return nil, errors.New("transport is nil")
	}
	if root == "" {
		return nil, errors.New("target root is empty")
	}
	pool, err := NewPool(concurrency)
	if err != nil {
		return nil, err
	}
	return &Fetcher{
		transport: transport,
		root:      root,
		pool:      pool,
		Backoff:   time.Second,
	}, nil
}

// FetchAll processes every item and returns one outcome per item, in input
// order, plus the folded summary. emit, when non-nil, observes outcomes in
// completion order as they happen.
//
// The returned error is reserved for fatal preconditions (transport tool
// missing, target root not creatable) and run-level failures such as
// cancellation; those abort before or during iteration. Per-item problems
// never surface here.
func (f *Fetcher) FetchAll(ctx context.Context, items []FetchItem, emit func(outcome.Outcome)) ([]outcome.Outcome, outcome.Summary, error) {
	if err := f.transport.Check(); err != nil {
		return nil, outcome.Summary{}, err
	}
	if err := os.MkdirAll(f.root, 0o755); err != nil {
		return nil, outcome.Summary{}, fmt.Errorf("create target root: %w", err)
	}

	jobs := f.plan(items)
	outcomes, errCh := f.pool.Execute(ctx, jobs)
	return drain(outcomes, errCh, emit)
}

// plan turns items into jobs, resolving everything that can be decided
// without touching the remote: invalid descriptors fail and duplicate
// derived names are skipped here, deterministically in list order, so the
// first occurrence owns the directory regardless of worker interleaving.
func (f *Fetcher) plan(items []FetchItem) []Job {
	jobs := make([]Job, 0, len(items))
	claimed := make(map[string]struct{}, len(items))

	for i, item := range items {
		idx, it := i, item
		name := it.Descriptor.Name

		switch {
		case it.Descriptor.URL == "" || name == "":
			jobs = append(jobs, func(context.Context) outcome.Outcome {
				return failOutcome(idx, outcome.OpFetch, name, outcome.ReasonInvalidDescriptor,
					fmt.Errorf("descriptor %d has no usable url/name", idx))
			})
		case hasClaim(claimed, name):
			jobs = append(jobs, func(context.Context) outcome.Outcome {
				return skipOutcome(idx, outcome.OpFetch, name, outcome.ReasonAlreadyExists)
			})
		default:
			claimed[name] = struct{}{}
			jobs = append(jobs, func(ctx context.Context) outcome.Outcome {
				return f.fetchOne(ctx, idx, it)
			})
		}
	}
	return jobs
}

func hasClaim(claimed map[string]struct{}, name string) bool {
	_, ok := claimed[name]
	return ok
}

// fetchOne runs the three transport steps for one descriptor. Each step maps
// to its own failure reason so a summary reader can tell a dead remote from
// a rejected filter.
func (f *Fetcher) fetchOne(ctx context.Context, idx int, it FetchItem) outcome.Outcome {
	name := it.Descriptor.Name
	dir := filepath.Join(f.root, name)

	if info, err := os.Stat(dir); err == nil && info.IsDir() {
		return skipOutcome(idx, outcome.OpFetch, name, outcome.ReasonAlreadyExists)
	}

	if err := f.cloneWithRetry(ctx, it.Descriptor.URL, dir); err != nil {
		return failOutcome(idx, outcome.OpFetch, name, outcome.ReasonCloneError, err)
	}

	if err := f.transport.SetSparsePatterns(ctx, dir, git.ExpandPatterns(it.Paths)); err != nil {
		return failOutcome(idx, outcome.OpFetch, name, outcome.ReasonSparseError, err)
	}

	if err := f.transport.Materialize(ctx, dir); err != nil {
		// The partially-populated directory stays on disk on purpose.
		return failOutcome(idx, outcome.OpFetch, name, outcome.ReasonCheckoutError, err)
	}

	return okOutcome(idx, outcome.OpFetch, name, "")
}

// cloneWithRetry wraps the clone step only. Sparse configuration and
// checkout act on local state and are not retried.
func (f *Fetcher) cloneWithRetry(ctx context.Context, url, dir string) error {
	var err error
	for attempt := 0; ; attempt++ {
		err = f.transport.CloneShell(ctx, url, dir)
		if err == nil || attempt >= f.Retries || ctx.Err() != nil {
			return err
		}
		// A failed clone can leave an empty shell behind; clear it so the
		// retry does not trip over its own debris. Only remove what this
		// attempt just created and only if it is empty.
		removeIfEmptyDir(dir)

		delay := f.Backoff << attempt
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return err
		}
	}
}

func removeIfEmptyDir(dir string) {
	entries, err := os.ReadDir(dir)
	if err != nil || len(entries) > 0 {
		return
	}
	_ = os.Remove(dir)
}
