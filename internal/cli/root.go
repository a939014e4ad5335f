package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	buildVersion = "dev"
	buildCommit  = "unknown"
	buildDate    = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "repofleet",
	Short: "Materialize sparse local copies of a repository fleet and aggregate changelogs",
	Long: `RepoFleet keeps partial local copies of a fleet of remote repositories and
generates a changelog for each one.

The two subcommands are independent and share only the filesystem:
"fetch" materializes sparse checkouts under a target root, and "changelog"
walks that root invoking an external release-notes generator per repository.

Examples:
	# Show available commands and global flags
	repofleet --help

	# Fetch the fleet defined in fleet.yaml
	repofleet fetch

	# Generate changelogs for everything fetched so far
	repofleet changelog

	# List the resolved fleet without fetching
	repofleet repos

	# Print build info
	repofleet version

Output:
	By default, commands write human-readable output to stdout.
	Structured output is available via emitter flags (see each command's --help).`,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&cfg.Runtime.Verbose, "verbose", false, "Enable verbose logging (traces every git/generator invocation and GitHub API call)")
}

func SetBuildInfo(version, commit, date string) {
	if version != "" {
		buildVersion = version
	}
	if commit != "" {
		buildCommit = commit
	}
	if date != "" {
		buildDate = date
	}

	rootCmd.Version = fmt.Sprintf("%s (%s) %s", buildVersion, buildCommit, buildDate)
	rootCmd.SetVersionTemplate("{{.Version}}\n")
}

func BuildInfo() (version, commit, date string) {
	return buildVersion, buildCommit, buildDate
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
