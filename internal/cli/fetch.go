package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"repofleet/internal/config"
	"repofleet/internal/engine"
	"repofleet/internal/flags"
	"repofleet/internal/git"
	gh "repofleet/internal/github"
	"repofleet/internal/manifest"

	"github.com/spf13/cobra"
)

var cfg = config.New()

// defaultRoot is the target root when neither --root nor the manifest sets one.
const defaultRoot = "repos"

const fetchHelpTemplate = `{{with (or .Long .Short)}}{{. | trimTrailingWhitespaces}}

{{end}}Usage:
  {{.UseLine}}

{{if .HasAvailableLocalFlags}}Flags:
{{.LocalFlags.FlagUsages | trimTrailingWhitespaces}}

{{end}}{{if .HasAvailableInheritedFlags}}Global Flags:
{{.InheritedFlags.FlagUsages | trimTrailingWhitespaces}}

{{end}}Environment:
  RepoFleet fetches through the git executable, which must be on PATH.
  Remote authentication is git's concern: whatever credentials work for
  "git clone <url>" in your shell work here (SSH agent, credential helper).

  GitHub discovery (--org/--user) needs an access token.

  Sources (in order):
  1) GITHUB_TOKEN environment variable
  2) GitHub CLI (gh) authentication via gh auth token (if gh is installed and logged in)

  Examples:
    # macOS/Linux
    export GITHUB_TOKEN="<your_token>"
    repofleet fetch --org my-org

    # GitHub CLI auth
    gh auth login
    repofleet fetch --org my-org

{{if .HasAvailableSubCommands}}Available Commands:
{{range .Commands}}{{if (or .IsAvailableCommand (eq .Name "help"))}}
  {{rpad .Name .NamePadding }} {{.Short}}{{end}}{{end}}

{{end}}{{if .HasAvailableSubCommands}}Use "{{.CommandPath}} [command] --help" for more information about a command.
{{end}}`

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Materialize sparse local copies of the fleet",
	Long: `Materialize a sparse local copy of every repository in the fleet.

The fleet comes from a YAML manifest (default: fleet.yaml) or, with
--org/--user, from GitHub discovery. Each repository lands in its own
subdirectory of the target root, restricted to the configured path filters.

Re-running is safe: a subdirectory that already exists is skipped untouched,
and one repository's failure never aborts the rest. A directory left behind
by a failed clone or checkout stays on disk so a re-run after manual repair
cannot destroy your work.

Output:
	Console output is controlled by --console-format (default: text).
	Structured outputs can be written via:
	- --out / --out-format: write an aggregate JSON array or NDJSON stream to a file
	- --emit: write an additional structured stream to stdout (json or ndjson)
	- --no-console: suppress the console sink (use with --emit/--out for machine output)

	NDJSON mode emits one JSON object per line. Objects are lifecycle Events with a
	"type" field (run.started, item.result, run.finished).

Exit codes:
	0 = every repository fetched or already present
	1 = at least one repository failed
	2 = fatal error (run did not start: bad flags, unreadable manifest, git missing)

Examples:
  # Fetch the fleet defined in ./fleet.yaml
  repofleet fetch

  # Fetch a whole GitHub org, docs subtrees only
  repofleet fetch --org my-org --paths "README*,docs"

  # AI Agent: stream machine-readable events to stdout
  repofleet fetch --no-console --emit ndjson
`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		if err := cfg.Validate(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(engine.ExitFatal)
		}

		ctx := context.Background()
		root, items, err := resolveFleet(ctx, cfg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(engine.ExitFatal)
		}
		if !cfg.Output.NoConsole {
			fmt.Fprintf(os.Stderr, "Fetching %d repositories into %s...\n", len(items), root)
		}

		transport := newTransport(cfg)
		os.Exit(engine.RunFetch(ctx, cfg, transport, root, items))
	},
}

func newTransport(cfg *config.Config) *git.CLI {
	var trace io.Writer
	if cfg.Runtime.Verbose {
		trace = os.Stderr
	}
	return &git.CLI{Filter: "blob:none", Trace: trace}
}

// resolveFleet produces the target root and the planned fetch items, either
// from the manifest file or from GitHub discovery when a scope is given.
func resolveFleet(ctx context.Context, cfg *config.Config) (string, []engine.FetchItem, error) {
	if cfg.Source.Org != "" || cfg.Source.User != "" {
		descriptors, err := discoverFleet(ctx, cfg)
		if err != nil {
			return "", nil, err
		}
		items := make([]engine.FetchItem, 0, len(descriptors))
		for _, d := range descriptors {
			items = append(items, engine.FetchItem{Descriptor: d, Paths: cfg.Fetch.Paths})
		}
		return rootOr(cfg.Fetch.Root, ""), items, nil
	}

	m, err := manifest.Load(cfg.Source.Manifest)
	if err != nil {
		return "", nil, err
	}
	items := make([]engine.FetchItem, 0, len(m.Repos))
	for _, d := range m.Repos {
		paths := m.PathsFor(d)
		if len(cfg.Fetch.Paths) > 0 && len(d.Paths) == 0 {
			// --paths overrides the manifest-wide default, not per-repo sets.
			paths = cfg.Fetch.Paths
		}
		items = append(items, engine.FetchItem{Descriptor: d, Paths: paths})
	}
	return rootOr(cfg.Fetch.Root, m.Root), items, nil
}

func rootOr(flagRoot, manifestRoot string) string {
	if flagRoot != "" {
		return flagRoot
	}
	if manifestRoot != "" {
		return manifestRoot
	}
	return defaultRoot
}

func discoverFleet(ctx context.Context, cfg *config.Config) ([]manifest.Descriptor, error) {
	if !cfg.Output.NoConsole {
		fmt.Fprintln(os.Stderr, "Discovering repositories...")
	}
	token, _, err := gh.ResolveAuthToken(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("failed to resolve GitHub auth token: %w", err)
	}
	if strings.TrimSpace(token) == "" {
		return nil, fmt.Errorf("GitHub auth token is required for discovery (set GITHUB_TOKEN or run 'gh auth login')")
	}
	client, err := gh.NewClient(ctx, token, gh.WithVerbose(cfg.Runtime.Verbose, nil))
	if err != nil {
		return nil, fmt.Errorf("failed to create GitHub client: %w", err)
	}
	return gh.Discover(ctx, client, cfg)
}

func addSourceFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&cfg.Source.Manifest, flags.FlagManifest, cfg.Source.Manifest, "Fleet manifest file (used when no --org/--user is given)")
	cmd.Flags().StringVar(&cfg.Source.Org, flags.FlagOrg, "", "GitHub organization account to discover repositories from (name or URL)")
	cmd.Flags().StringVar(&cfg.Source.User, flags.FlagUser, "", "GitHub user account to discover repositories from (name or URL)")
	cmd.Flags().StringSliceVar(&cfg.Source.Include, flags.FlagInclude, nil, "Include pattern(s) for discovery (repeatable; comma-separated accepted). Go path.Match style; if pattern contains '/', matches OWNER/REPO, else matches repo name")
	cmd.Flags().StringSliceVar(&cfg.Source.Exclude, flags.FlagExclude, nil, "Exclude pattern(s) for discovery (repeatable; comma-separated accepted). Same matching rules as --include")
	cmd.Flags().StringVar(&cfg.Source.Archived, flags.FlagArchived, "exclude", "Archived repos policy for discovery: include|exclude|only (default: exclude)")
	cmd.Flags().StringVar(&cfg.Source.Forks, flags.FlagForks, "exclude", "Forks policy for discovery: include|exclude|only (default: exclude)")
	cmd.Flags().IntVar(&cfg.Source.MaxRepos, flags.FlagMaxRepos, 0, "Maximum number of repositories to discover (0 = unlimited)")
}

func addOutputFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&cfg.Output.ConsoleFormat, flags.FlagConsoleFormat, "text", "Console output format: text|json|ndjson (default: text)")
	cmd.Flags().StringVar(&cfg.Output.Out, flags.FlagOut, "", "Write structured output to this path")
	cmd.Flags().StringVar(&cfg.Output.OutFormat, flags.FlagOutFormat, "", "Structured output format for --out: json|ndjson (default: inferred from file extension)")
	cmd.Flags().StringSliceVar(&cfg.Output.Emit, flags.FlagEmit, nil, "Emit additional structured stream to stdout: json|ndjson (repeatable; comma-separated accepted)")
	cmd.Flags().BoolVar(&cfg.Output.NoConsole, flags.FlagNoConsole, false, "Suppress console output (use with --emit/--out)")
}

func addRuntimeFlags(cmd *cobra.Command) {
	cmd.Flags().IntVar(&cfg.Runtime.Concurrency, flags.FlagConcurrency, cfg.Runtime.Concurrency, "Concurrent workers (default: 1, strictly sequential)")
	cmd.Flags().DurationVar(&cfg.Runtime.Timeout, flags.FlagTimeout, cfg.Runtime.Timeout, "Global timeout (default: 30m)")
}

func init() {
	rootCmd.AddCommand(fetchCmd)
	fetchCmd.SetHelpTemplate(fetchHelpTemplate)

	addSourceFlags(fetchCmd)

	// Fetch
	fetchCmd.Flags().StringVar(&cfg.Fetch.Root, flags.FlagRoot, "", "Target root directory (default: manifest root, else \"repos\")")
	fetchCmd.Flags().StringSliceVar(&cfg.Fetch.Paths, flags.FlagPaths, nil, "Sparse path filter(s) (repeatable; comma-separated accepted). Directory prefixes automatically include their contents")
	fetchCmd.Flags().IntVar(&cfg.Fetch.Retries, flags.FlagRetries, 0, "Additional clone attempts after a transport failure (default: 0)")

	addOutputFlags(fetchCmd)
	addRuntimeFlags(fetchCmd)
}
