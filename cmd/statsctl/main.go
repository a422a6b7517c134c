// Package main provides statsctl, the command-line client of the stats engine.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"transstats/cmd/statsctl/commands"
	"transstats/internal/cli"
)

// Set by -ldflags at build time.
var (
	version = "dev"
	commit  = "none"
)

func main() {
	cli.LoadEnvFile()
	rt := commands.DefaultRuntime()

	rootCmd := &cobra.Command{
		Use:   "statsctl",
		Short: "Monthly translation statistics from the command line",
		Long: `statsctl loads the monthly translation reports from the configured source
and aggregates them the same way the transstats server does.

Commands:
  summary   Print the aggregated views as tables, JSON or YAML
  chart     Render a standalone HTML chart
  months    List reporting periods and their report files
  import    Copy report files into the configured source
  events    Follow load-completed events`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().BoolVarP(&rt.Verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(commands.NewSummaryCommand(rt))
	rootCmd.AddCommand(commands.NewChartCommand(rt))
	rootCmd.AddCommand(commands.NewMonthsCommand(rt))
	rootCmd.AddCommand(commands.NewImportCommand(rt))
	rootCmd.AddCommand(commands.NewEventsCommand(rt))
	rootCmd.AddCommand(versionCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Fprintf(os.Stdout, "statsctl %s (commit: %s)\n", version, commit)
		},
	}
}
