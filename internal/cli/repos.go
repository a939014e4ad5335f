package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"repofleet/internal/engine"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var reposQuiet bool

var reposCmd = &cobra.Command{
	Use:   "repos",
	Short: "List the resolved fleet without fetching",
	Long: `Resolve the fleet (manifest or GitHub discovery) and print each
repository's name, remote locator and effective sparse path filters, without
touching the network beyond discovery or mutating the filesystem.

Examples:
  # List the fleet defined in ./fleet.yaml
  repofleet repos

  # List what a discovery run would fetch
  repofleet repos --org my-org --exclude "*-archive"

  # Names only (for scripting)
  repofleet repos -q
`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(engine.ExitFatal)
		}

		_, items, err := resolveFleet(context.Background(), cfg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(engine.ExitFatal)
		}

		for _, item := range items {
			if reposQuiet {
				fmt.Fprintln(cmd.OutOrStdout(), item.Descriptor.Name)
				continue
			}
			printFetchItem(cmd.OutOrStdout(), item)
		}
		return nil
	},
}

func printFetchItem(w io.Writer, item engine.FetchItem) {
	bold := color.New(color.Bold)
	bold.Fprintln(w, item.Descriptor.Name)
	fmt.Fprintf(w, "  url:   %s\n", item.Descriptor.URL)
	if len(item.Paths) > 0 {
		fmt.Fprintf(w, "  paths: %v\n", item.Paths)
	} else {
		fmt.Fprintln(w, "  paths: (full tree)")
	}
}

func init() {
	rootCmd.AddCommand(reposCmd)
	reposCmd.Flags().BoolVarP(&reposQuiet, "quiet", "q", false, "Only print repository names")

	addSourceFlags(reposCmd)
}
