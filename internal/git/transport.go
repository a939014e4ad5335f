package git

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"time"
)

// Transport is the remote repository capability consumed by the fetch
// orchestrator. It exposes the three steps of a sparse materialization as
// separate operations so the orchestrator can attribute failures precisely
// and tests can inject a fake without touching the network.
type Transport interface {
	// Check verifies the transport tool is usable. Called once before any
	// item is processed; failure aborts the whole run.
	Check() error

	// CloneShell performs a metadata-only fetch of url into dir: the
	// repository shell is created but no file content is materialized.
	CloneShell(ctx context.Context, url, dir string) error

	// SetSparsePatterns configures the working-tree path filter for the
	// repository at dir. Patterns are applied in order; callers are expected
	// to pass directory prefixes in both bare and "/*" forms (see
	// ExpandPatterns).
	SetSparsePatterns(ctx context.Context, dir string, patterns []string) error

	// Materialize populates the filtered working tree at dir.
	Materialize(ctx context.Context, dir string) error
}

// CLI is the production Transport, backed by the git executable.
type CLI struct {
	// Bin is the git executable name or path. Empty means "git".
	Bin string

	// Filter is the partial-clone object filter passed to clone
	// (e.g. "blob:none"). Empty disables partial cloning.
	Filter string

	// Trace, when non-nil, receives one line per git invocation with its
	// duration. Used by --verbose.
	Trace io.Writer
}

const defaultBin = "git"

func (c *CLI) bin() string {
	if c.Bin != "" {
		return c.Bin
	}
	return defaultBin
}

func (c *CLI) Check() error {
	if _, err := exec.LookPath(c.bin()); err != nil {
		return fmt.Errorf("%w: %v", ErrGitMissing, err)
	}
	return nil
}

func (c *CLI) CloneShell(ctx context.Context, url, dir string) error {
	args := []string{"clone", "--no-checkout"}
	if c.Filter != "" {
		args = append(args, "--filter="+c.Filter)
	}
	args = append(args, "--", url, dir)
	if err := c.run(ctx, "", args...); err != nil {
		return fmt.Errorf("%w: %w", ErrClone, err)
	}
	return nil
}

func (c *CLI) SetSparsePatterns(ctx context.Context, dir string, patterns []string) error {
	if len(patterns) == 0 {
		// No filter configured: the full tree is materialized by checkout.
		return nil
	}
	args := append([]string{"sparse-checkout", "set", "--no-cone", "--"}, patterns...)
	if err := c.run(ctx, dir, args...); err != nil {
		return fmt.Errorf("%w: %w", ErrSparseConfig, err)
	}
	return nil
}

func (c *CLI) Materialize(ctx context.Context, dir string) error {
	if err := c.run(ctx, dir, "checkout"); err != nil {
		return fmt.Errorf("%w: %w", ErrCheckout, err)
	}
	return nil
}

// run executes one git invocation and folds stderr into the returned error.
// It never inherits the parent's stdio so structured output on stdout stays
// clean.
func (c *CLI) run(ctx context.Context, dir string, args ...string) error {
	cmd := exec.CommandContext(ctx, c.bin(), args...)
	cmd.Dir = dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	if c.Trace != nil {
		status := "ok"
		if err != nil {
			status = err.Error()
		}
		fmt.Fprintf(c.Trace, "[verbose] git %s: %s (%s)\n", strings.Join(args, " "), status, time.Since(start).Truncate(time.Millisecond))
	}
	if err != nil {
		// Prefer the context error so deadline exceeded / canceled is visible
		// instead of "signal: killed".
		if ctx.Err() != nil {
			return fmt.Errorf("git %s: %w", args[0], ctx.Err())
		}
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			return fmt.Errorf("git %s: %w", args[0], err)
		}
		return fmt.Errorf("git %s: %w: %s", args[0], err, msg)
	}
	return nil
}
