package commands

import (
	"bytes"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"transstats/internal/chart"
)

type chartOptions struct {
	filters    filterFlags
	kind       string
	out        string
	noProgress bool
}

// NewChartCommand creates the chart command.
func NewChartCommand(rt *Runtime) *cobra.Command {
	opts := &chartOptions{}

	cmd := &cobra.Command{
		Use:   "chart",
		Short: "Render the stats as a standalone HTML chart",
		Example: `  statsctl chart --kind stacked --from 2022-01 --out stacked.html
  statsctl chart --view cumulative --out - > series.html`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runChart(cmd, rt, opts)
		},
	}

	opts.filters.register(cmd)
	cmd.Flags().StringVarP(&opts.kind, "kind", "k", string(chart.KindTimeSeries), "chart kind (timeseries|stacked)")
	cmd.Flags().StringVarP(&opts.out, "out", "o", "stats.html", "output file, - for stdout")
	cmd.Flags().BoolVar(&opts.noProgress, "no-progress", false, "disable the fetch progress bar")

	return cmd
}

func runChart(cmd *cobra.Command, rt *Runtime, opts *chartOptions) error {
	kind, err := chart.ParseKind(opts.kind)
	if err != nil {
		return err
	}
	patch, err := opts.filters.patch(cmd)
	if err != nil {
		return err
	}

	s, err := rt.open(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	stats, err := rt.loadStats(cmd, s, !opts.noProgress && opts.out != "-")
	if err != nil {
		return err
	}
	if _, err := stats.UpdateFilters(patch); err != nil {
		return fmt.Errorf("apply filters: %w", err)
	}

	var buf bytes.Buffer
	if err := chart.Render(&buf, kind, stats.Views()); err != nil {
		return err
	}

	if opts.out == "-" {
		_, err := cmd.OutOrStdout().Write(buf.Bytes())
		return err
	}
	if err := os.WriteFile(opts.out, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write chart: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s chart to %s\n", kind, opts.out)
	return nil
}
