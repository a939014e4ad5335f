package flags

// Package flags defines canonical CLI flag names shared across the CLI and
// config validation. Keeping these as constants helps avoid drift between
// Cobra flag wiring and error messages that need to reference flags.
// IMPORTANT: These are flag *names* without leading dashes.
// Example usage:
//
//	cmd.Flags().StringVar(&cfg.Source.Org, flags.FlagOrg, "", "...")
//	arg := "--" + flags.FlagOrg
const (
	// Source (descriptor store)
	FlagManifest = "manifest"
	FlagOrg      = "org"
	FlagUser     = "user"
	FlagInclude  = "include"
	FlagExclude  = "exclude"
	FlagArchived = "archived"
	FlagForks    = "forks"
	FlagMaxRepos = "max-repos"

	// Fetch
	FlagRoot    = "root"
	FlagPaths   = "paths"
	FlagRetries = "retries"

	// Changelog
	FlagDir           = "dir"
	FlagChangelogFile = "output"
	FlagTool          = "tool"
	FlagToolArg       = "tool-arg"

	// Output
	FlagConsoleFormat = "console-format"
	FlagOut           = "out"
	FlagOutFormat     = "out-format"
	FlagEmit          = "emit"
	FlagNoConsole     = "no-console"

	// Runtime
	FlagConcurrency = "concurrency"
	FlagTimeout     = "timeout"
)
