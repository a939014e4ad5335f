package engine

import (
	"context"
	"fmt"
	"os"

	"repofleet/internal/changelog"
	"repofleet/internal/config"
	"repofleet/internal/git"
	"repofleet/internal/outcome"
	"repofleet/internal/output"
)

// Exit code contract (shared by both subcommands):
// 0 = all items succeeded or were skipped
// 1 = at least one item failed
// 2 = fatal error (run aborted before or during iteration)
const (
	ExitOK    = 0
	ExitFail  = 1
	ExitFatal = 2
)

func setupOutputManager(cfg *config.Config) (*output.Manager, error) {
	outMgr := output.NewManager()

	// Console Sink
	if !cfg.Output.NoConsole {
		if err := outMgr.AddSink(output.NewConsoleSink(nil, cfg.Output.ConsoleFormat)); err != nil {
			outMgr.Close()
			return nil, err
		}
	}

	// Emit Sinks (additional structured streams)
	for _, emit := range cfg.Output.Emit {
		es, err := output.NewEmitSink(os.Stdout, emit)
		if err != nil {
			outMgr.Close()
			return nil, err
		}
		if err := outMgr.AddSink(es); err != nil {
			outMgr.Close()
			return nil, err
		}
	}

	// File Sink
	if cfg.Output.Out != "" {
		fs, err := output.NewFileSink(cfg.Output.Out, cfg.Output.OutFormat)
		if err != nil {
			outMgr.Close()
			return nil, err
		}
		if err := outMgr.AddSink(fs); err != nil {
			outMgr.Close()
			return nil, err
		}
	}

	return outMgr, nil
}

// RunFetch drives the sparse fetch orchestrator for a resolved item list and
// returns the process exit code.
func RunFetch(ctx context.Context, cfg *config.Config, transport git.Transport, root string, items []FetchItem) int {
	fetcher, err := NewFetcher(transport, root, cfg.Runtime.Concurrency)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return ExitFatal
	}
	fetcher.Retries = cfg.Fetch.Retries

	return run(ctx, cfg, outcome.OpFetch, len(items), func(ctx context.Context, emit func(outcome.Outcome)) ([]outcome.Outcome, outcome.Summary, error) {
		return fetcher.FetchAll(ctx, items, emit)
	})
}

// RunChangelog drives the changelog batch runner over reposRoot and returns
// the process exit code.
func RunChangelog(ctx context.Context, cfg *config.Config, generator changelog.Generator, reposRoot string) int {
	runner, err := NewChangelogRunner(generator, cfg.Runtime.Concurrency)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return ExitFatal
	}

	return run(ctx, cfg, outcome.OpChangelog, -1, func(ctx context.Context, emit func(outcome.Outcome)) ([]outcome.Outcome, outcome.Summary, error) {
		return runner.GenerateAll(ctx, reposRoot, cfg.Changelog.Output, emit)
	})
}

// run is the shared orchestration shell: set up sinks, stream per-item
// outcomes as they complete, fold the summary and map it to an exit code.
// items < 0 means the item count is unknown until enumeration.
func run(ctx context.Context, cfg *config.Config, op outcome.Op, items int, execute func(context.Context, func(outcome.Outcome)) ([]outcome.Outcome, outcome.Summary, error)) int {
	runCtx, cancel := context.WithTimeout(ctx, cfg.Runtime.Timeout)
	defer cancel()

	outMgr, err := setupOutputManager(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating output sinks: %v\n", err)
		return ExitFatal
	}
	defer outMgr.Close()

	_ = outMgr.Write(output.Event{Type: "run.started", Op: op, Items: items})

	_, summary, err := execute(runCtx, func(oc outcome.Outcome) {
		_ = outMgr.Write(oc)
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		_ = outMgr.Write(output.Event{Type: "run.finished", Op: op, ExitCode: ExitFatal})
		return ExitFatal
	}

	code := summary.ExitCode()
	_ = outMgr.Write(output.Event{Type: "run.finished", Op: op, Summary: &summary, ExitCode: code})
	return code
}
