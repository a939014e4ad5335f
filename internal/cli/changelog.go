package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"repofleet/internal/changelog"
	"repofleet/internal/config"
	"repofleet/internal/engine"
	"repofleet/internal/flags"

	"github.com/spf13/cobra"
)

var changelogCmd = &cobra.Command{
	Use:   "changelog",
	Short: "Generate a changelog for every fetched repository",
	Long: `Generate a changelog artifact in every repository directory under the
repositories root.

Each immediate subdirectory is handled independently: directories that are
not git repositories are skipped, repositories without commit history are
skipped, and one repository's generator failure never aborts the rest.

The generator is an external tool (default: git-chglog) invoked with its
working directory set to the repository and told to write the artifact
there. The tool must be discoverable before the run starts.

Exit codes:
	0 = every repository generated or was skipped
	1 = at least one generation failed
	2 = fatal error (run did not start: bad flags, tool missing, root unreadable)

Examples:
  # Generate changelogs under ./repos
  repofleet changelog

  # Use a different repositories root and artifact name
  repofleet changelog --dir /srv/mirrors --output HISTORY.md

  # Swap in another generator
  repofleet changelog --tool conventional-changelog --tool-arg -o
`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		if err := cfg.Validate(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(engine.ExitFatal)
		}

		ctx := context.Background()
		if !cfg.Output.NoConsole {
			fmt.Fprintf(os.Stderr, "Generating changelogs under %s...\n", cfg.Changelog.Dir)
		}

		os.Exit(engine.RunChangelog(ctx, cfg, newGenerator(cfg), cfg.Changelog.Dir))
	},
}

func newGenerator(cfg *config.Config) *changelog.Command {
	var trace io.Writer
	if cfg.Runtime.Verbose {
		trace = os.Stderr
	}
	return &changelog.Command{
		Bin:   cfg.Changelog.Tool,
		Args:  cfg.Changelog.ToolArgs,
		Trace: trace,
	}
}

func init() {
	rootCmd.AddCommand(changelogCmd)

	changelogCmd.Flags().StringVarP(&cfg.Changelog.Dir, flags.FlagDir, "d", cfg.Changelog.Dir, "Repositories root to walk")
	changelogCmd.Flags().StringVar(&cfg.Changelog.Output, flags.FlagChangelogFile, cfg.Changelog.Output, "Changelog artifact file name written at each repository's root")
	changelogCmd.Flags().StringVar(&cfg.Changelog.Tool, flags.FlagTool, "", "External generator executable (default: "+changelog.DefaultTool+")")
	changelogCmd.Flags().StringArrayVar(&cfg.Changelog.ToolArgs, flags.FlagToolArg, nil, "Argument placed before the output file name on the generator command line (repeatable; default: --output)")

	addOutputFlags(changelogCmd)
	addRuntimeFlags(changelogCmd)
}
