// Package changelog wraps the external changelog generator invoked once per
// materialized repository. The generator is a collaborator, not part of this
// tool: repofleet points it at a working directory and an output file name
// and only interprets its exit status.
package changelog

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"time"
)

var (
	// ErrToolMissing means the generator executable is not discoverable.
	// This is a fatal precondition, not a per-directory failure.
	ErrToolMissing = errors.New("changelog tool not found")

	// ErrGenerator wraps a non-zero generator exit for one directory.
	ErrGenerator = errors.New("changelog generation failed")
)

// DefaultTool is the generator invoked when no tool is configured.
const DefaultTool = "git-chglog"

// DefaultToolArgs precede the output file name on the generator command line.
var DefaultToolArgs = []string{"--output"}

// Generator produces a changelog artifact inside one repository directory.
type Generator interface {
	// Check verifies the generator is usable. Called once before any
	// directory is processed; failure aborts the whole run.
	Check() error

	// Generate runs the tool with its working directory set to dir, asking
	// it to write the artifact named outFile at the directory root.
	Generate(ctx context.Context, dir, outFile string) error
}

// Command is the production Generator, shelling out to an external tool as
// "<bin> <args...> <outFile>" with the repository as working directory.
type Command struct {
	// Bin is the tool executable name or path. Empty means DefaultTool.
	Bin string

	// Args sit between the binary and the output file name. Nil means
	// DefaultToolArgs.
	Args []string

	// Trace, when non-nil, receives one line per invocation with its
	// duration. Used by --verbose.
	Trace io.Writer
}

func (c *Command) bin() string {
	if c.Bin != "" {
		return c.Bin
	}
	return DefaultTool
}

func (c *Command) args() []string {
	if c.Args != nil {
		return c.Args
	}
	return DefaultToolArgs
}

func (c *Command) Check() error {
	if _, err := exec.LookPath(c.bin()); err != nil {
		return fmt.Errorf("%w: %v", ErrToolMissing, err)
	}
	return nil
}

func (c *Command) Generate(ctx context.Context, dir, outFile string) error {
	args := append(append([]string{}, c.args()...), outFile)
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
		fmt.Fprintf(c.Trace, "[verbose] %s %s: %s (%s)\n", c.bin(), strings.Join(args, " "), status, time.Since(start).Truncate(time.Millisecond))
	}
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("%w: %w", ErrGenerator, ctx.Err())
		}
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			// Some tools report problems on stdout only.
			msg = strings.TrimSpace(stdout.String())
		}
		if msg == "" {
			return fmt.Errorf("%w: %w", ErrGenerator, err)
		}
		return fmt.Errorf("%w: %w: %s", ErrGenerator, err, msg)
	}
	return nil
}
