package engine

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"repofleet/internal/outcome"

	"golang.org/x/sync/semaphore"
)

// Job computes the outcome for one work item. Implementations must return
// promptly once ctx is done; the pool drops outcomes it cannot deliver after
// cancellation.
type Job func(ctx context.Context) outcome.Outcome

// Pool runs jobs with bounded parallelism. Items are fully isolated, so no
// coordination beyond outcome collection is needed.
type Pool struct {
	concurrency int64
}

func NewPool(concurrency int) (*Pool, error) {
	if concurrency <= 0 {
		return nil, fmt.Errorf("concurrency must be >= 1, got %d", concurrency)
	}
	return &Pool{concurrency: int64(concurrency)}, nil
}

// Execute streams per-item outcomes.
//
// Channel semantics:
//   - In the normal (non-canceled) case, exactly one Outcome is sent per job.
//   - On context cancellation, the pool stops promptly; it may emit fewer
//     than N outcomes, but every outcome already emitted stands.
//   - The outcomes channel and error channel are both closed reliably.
//   - The error channel carries fatal errors and cancellation signals;
//     per-item problems are encoded in the Outcome itself.
func (p *Pool) Execute(ctx context.Context, jobs []Job) (<-chan outcome.Outcome, <-chan error) {
	outcomes := make(chan outcome.Outcome)
	errCh := make(chan error, 1)

	go func() {
		defer close(outcomes)
		defer close(errCh)

		trySendErr := func(err error) {
			if err == nil {
				return
			}
			select {
			case errCh <- err:
			default:
			}
		}

		if ctx == nil {
			trySendErr(errors.New("context is nil"))
			return
		}
		if p == nil {
			trySendErr(errors.New("pool is nil"))
			return
		}
		if p.concurrency <= 0 {
			trySendErr(fmt.Errorf("pool concurrency must be >= 1, got %d", p.concurrency))
			return
		}

		runCtx, cancel := context.WithCancel(ctx)
		defer cancel()

		// Limit in-flight items (favor item completion over starting new work).
		sem := semaphore.NewWeighted(p.concurrency)
		var wg sync.WaitGroup

		var fatalErr error

		for _, job := range jobs {
			if job == nil {
				fatalErr = errors.New("nil job")
				cancel()
				break
			}
			if err := sem.Acquire(runCtx, 1); err != nil {
				// Canceled while waiting for a slot.
				break
			}

			wg.Add(1)
			go func(job Job) {
				defer wg.Done()
				defer sem.Release(1)

				oc := job(runCtx)
				select {
				case outcomes <- oc:
				case <-runCtx.Done():
				}
			}(job)
		}

		wg.Wait()
		if fatalErr != nil {
			trySendErr(fatalErr)
			return
		}
		trySendErr(ctx.Err())
	}()

	return outcomes, errCh
}

// Collect drains an Execute stream into an index-ordered slice plus its
// summary. The returned error is the stream's fatal error, if any.
func Collect(outcomes <-chan outcome.Outcome, errCh <-chan error) ([]outcome.Outcome, outcome.Summary, error) {
	return drain(outcomes, errCh, nil)
}

// drain consumes both Execute channels, invoking emit per outcome in
// completion order before folding. The slice comes back in index order.
func drain(outcomes <-chan outcome.Outcome, errCh <-chan error, emit func(outcome.Outcome)) ([]outcome.Outcome, outcome.Summary, error) {
	collected := make([]outcome.Outcome, 0, 16)
	for oc := range outcomes {
		if emit != nil {
			emit(oc)
		}
		collected = append(collected, oc)
	}
	var fatal error
	for err := range errCh {
		if err != nil {
			fatal = err
		}
	}
	sortOutcomes(collected)
	return collected, outcome.Summarize(collected), fatal
}

func sortOutcomes(outcomes []outcome.Outcome) {
	sort.Slice(outcomes, func(i, j int) bool { return outcomes[i].Index < outcomes[j].Index })
}
