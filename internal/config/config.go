package config

import (
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"time"
)

type Config struct {
	// MAINTAINER NOTE: If you add/change/remove config fields, keep the CLI
	// flags in internal/cli/fetch.go and internal/cli/changelog.go in sync.
	Source    Source
	Fetch     Fetch
	Changelog Changelog
	Output    Output
	Runtime   Runtime
}

type Source struct {
	// Manifest is the fleet manifest file read when no discovery scope is
	// given (see --manifest).
	Manifest string

	// Org is a GitHub organization account to discover repositories from
	// (name or URL; see --org). Mutually exclusive with User.
	Org string

	// User is a GitHub user account to discover repositories from (name or
	// URL; see --user).
	User string

	// Include filters discovered repositories by name using Go path.Match
	// style (see --include). If a pattern contains '/', it matches
	// OWNER/REPO; otherwise it matches repo name.
	Include []string

	// Exclude filters discovered repositories by name (see --exclude).
	// Same matching rules as Include.
	Exclude []string

	// Archived controls how archived repos are handled during discovery
	// (see --archived). Allowed values: include, exclude, only.
	Archived string

	// Forks controls how forked repos are handled during discovery
	// (see --forks). Allowed values: include, exclude, only.
	Forks string

	// MaxRepos limits how many repositories discovery resolves
	// (see --max-repos). 0 means unlimited.
	MaxRepos int
}

type Fetch struct {
	// Root is the target root directory for local copies (see --root).
	// Empty means: the manifest's root, falling back to "repos".
	Root string

	// Paths is the default sparse path filter set (see --paths). Entries
	// from the manifest take precedence per repository.
	Paths []string

	// Retries is the number of additional clone attempts after a transport
	// failure (see --retries). 0 preserves the single-attempt behavior.
	Retries int
}

type Changelog struct {
	// Dir is the repositories root the changelog runner walks (see --dir).
	Dir string

	// Output is the changelog artifact file name written at each
	// repository's root (see --output).
	Output string

	// Tool is the external generator executable (see --tool).
	// Empty means the built-in default.
	Tool string

	// ToolArgs sit between the tool and the output file name on its command
	// line (see --tool-arg). Nil means the tool's default argument form.
	ToolArgs []string
}

type Output struct {
	// ConsoleFormat controls the human-facing console sink format (see --console-format).
	// Allowed values: text, json, ndjson.
	ConsoleFormat string

	// Out writes structured output to this path (see --out).
	Out string

	// OutFormat selects the format for --out (see --out-format).
	// Allowed values: json, ndjson. If empty, it is inferred from the --out file extension.
	OutFormat string

	// Emit writes an additional structured event stream to stdout (see --emit).
	// Allowed values: json, ndjson.
	Emit []string

	// NoConsole suppresses the console sink (see --no-console).
	// Use with --emit/--out for machine-readable output.
	NoConsole bool
}

type Runtime struct {
	// Concurrency controls parallelism for item processing (see --concurrency).
	// Must be >= 1. The default of 1 preserves strictly sequential,
	// input-order processing.
	Concurrency int

	// Timeout is the global timeout for the run (see --timeout).
	// Must be > 0.
	Timeout time.Duration

	// Verbose enables more detailed diagnostics (traces every git/generator
	// invocation and GitHub API call).
	Verbose bool
}

func New() *Config {
	return &Config{
		Source: Source{
			Manifest: "fleet.yaml",
			Archived: "exclude",
			Forks:    "exclude",
		},
		Fetch: Fetch{
			Root: "",
		},
		Changelog: Changelog{
			Dir:    "repos",
			Output: "CHANGELOG.md",
		},
		Output: Output{
			ConsoleFormat: "text",
		},
		Runtime: Runtime{
			Concurrency: 1,
			Timeout:     30 * time.Minute,
		},
	}
}

func (c *Config) Validate() error {
	// Normalize comma-delimited list inputs.
	c.Source.Include = splitCommaList(c.Source.Include)
	c.Source.Exclude = splitCommaList(c.Source.Exclude)
	c.Fetch.Paths = splitCommaList(c.Fetch.Paths)

	// Normalize account selectors.
	if c.Source.Org != "" {
		org, err := normalizeAccountSelector(c.Source.Org)
		if err != nil {
			return fmt.Errorf("invalid --org value: %w", err)
		}
		c.Source.Org = org
	}
	if c.Source.User != "" {
		user, err := normalizeAccountSelector(c.Source.User)
		if err != nil {
			return fmt.Errorf("invalid --user value: %w", err)
		}
		c.Source.User = user
	}

	// Source validation
	if c.Source.Org != "" && c.Source.User != "" {
		return errors.New("--org and --user are mutually exclusive")
	}
	if (c.Source.Org != "" || c.Source.User != "") && c.Source.MaxRepos < 0 {
		return errors.New("--max-repos must be >= 0")
	}

	c.Source.Archived = normalizeEnumValue(c.Source.Archived)
	if c.Source.Archived == "" {
		c.Source.Archived = "exclude"
	}
	if c.Source.Archived != "include" && c.Source.Archived != "exclude" && c.Source.Archived != "only" {
		return fmt.Errorf("unsupported --archived: %s (must be one of: include, exclude, only)", c.Source.Archived)
	}

	c.Source.Forks = normalizeEnumValue(c.Source.Forks)
	if c.Source.Forks == "" {
		c.Source.Forks = "exclude"
	}
	if c.Source.Forks != "include" && c.Source.Forks != "exclude" && c.Source.Forks != "only" {
		return fmt.Errorf("unsupported --forks: %s (must be one of: include, exclude, only)", c.Source.Forks)
	}

	// Fetch validation
	if c.Fetch.Retries < 0 {
		return errors.New("--retries must be >= 0")
	}

	// Changelog validation
	c.Changelog.Output = strings.TrimSpace(c.Changelog.Output)
	if c.Changelog.Output == "" {
		return errors.New("--output must not be empty")
	}
	if strings.ContainsAny(c.Changelog.Output, `/\`) {
		return fmt.Errorf("--output must be a bare file name, got %q", c.Changelog.Output)
	}

	// Output validation
	c.Output.ConsoleFormat = normalizeEnumValue(c.Output.ConsoleFormat)
	if c.Output.ConsoleFormat == "" {
		return errors.New("--console-format must be one of: text, json, ndjson")
	}
	if c.Output.ConsoleFormat != "text" && c.Output.ConsoleFormat != "json" && c.Output.ConsoleFormat != "ndjson" {
		return fmt.Errorf("unsupported --console-format: %s (must be one of: text, json, ndjson)", c.Output.ConsoleFormat)
	}

	for _, emit := range c.Output.Emit {
		v := normalizeEnumValue(emit)
		if v == "" {
			return errors.New("--emit must be one of: json, ndjson")
		}
		if v != "json" && v != "ndjson" {
			return fmt.Errorf("unsupported --emit value: %s (must be one of: json, ndjson)", v)
		}
	}

	// Runtime validation
	if c.Runtime.Concurrency <= 0 {
		return errors.New("--concurrency must be >= 1")
	}
	if c.Runtime.Timeout <= 0 {
		return errors.New("--timeout must be > 0")
	}

	if c.Output.Out != "" {
		c.Output.OutFormat = normalizeEnumValue(c.Output.OutFormat)
		if c.Output.OutFormat == "" {
			ext := strings.ToLower(filepath.Ext(c.Output.Out))
			switch ext {
			case ".json":
				c.Output.OutFormat = "json"
			case ".ndjson":
				c.Output.OutFormat = "ndjson"
			default:
				if ext == "" {
					return errors.New("cannot infer output format from file extension (missing extension); use --out-format")
				}
				return fmt.Errorf("cannot infer output format from file extension %q; use --out-format", ext)
			}
		} else {
			if c.Output.OutFormat != "json" && c.Output.OutFormat != "ndjson" {
				return fmt.Errorf("unsupported output format: %s", c.Output.OutFormat)
			}
		}
	}

	return nil
}

func normalizeEnumValue(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

func normalizeAccountSelector(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", nil
	}

	// Accept a raw account name, or a GitHub URL like:
	//   https://github.com/<name>
	//   https://github.com/orgs/<name>
	//   https://github.com/users/<name>
	//   github.com/<name>
	if strings.HasPrefix(raw, "github.com/") || strings.HasPrefix(raw, "www.github.com/") {
		raw = "https://" + raw
	}
	if strings.HasPrefix(raw, "http://") || strings.HasPrefix(raw, "https://") {
		u, err := url.Parse(raw)
		if err != nil {
			return "", fmt.Errorf("%q", raw)
		}
		host := strings.ToLower(u.Hostname())
		if host == "www.github.com" {
			host = "github.com"
		}
		if host != "github.com" {
			return "", fmt.Errorf("%q", raw)
		}
		parts := strings.FieldsFunc(strings.Trim(u.Path, "/"), func(r rune) bool { return r == '/' })
		if len(parts) == 0 {
			return "", fmt.Errorf("%q", raw)
		}
		if parts[0] == "orgs" || parts[0] == "users" {
			if len(parts) < 2 {
				return "", fmt.Errorf("%q", raw)
			}
			return parts[1], nil
		}
		return parts[0], nil
	}

	// Basic sanity: reject obvious repo-like inputs.
	if strings.Contains(raw, "/") {
		return "", fmt.Errorf("%q", raw)
	}
	return raw, nil
}

func splitCommaList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			p := strings.TrimSpace(part)
			if p == "" {
				continue
			}
			out = append(out, p)
		}
	}
	return out
}
