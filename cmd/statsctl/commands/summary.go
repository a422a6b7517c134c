package commands

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"transstats/internal/core"
)

// Summary is the machine-readable output of the summary command.
type Summary struct {
	Filters           core.Filters        `json:"filters" yaml:"filters"`
	EffectiveChannels []string            `json:"effectiveChannels" yaml:"effectiveChannels"`
	Months            []core.SeriesPoint  `json:"months" yaml:"months"`
	Channels          []core.ChannelTotal `json:"channels" yaml:"channels"`
	Totals            core.GrandTotal     `json:"totals" yaml:"totals"`
}

func newSummary(v core.Views) Summary {
	return Summary{
		Filters:           v.Filters,
		EffectiveChannels: v.EffectiveChannels,
		Months:            v.TimeSeries,
		Channels:          v.PerChannelTotals,
		Totals:            v.GrandTotals,
	}
}

type summaryOptions struct {
	filters    filterFlags
	format     string
	noProgress bool
}

// NewSummaryCommand creates the summary command.
func NewSummaryCommand(rt *Runtime) *cobra.Command {
	opts := &summaryOptions{}

	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Load every monthly report and print the aggregated views",
		Long: `Load every monthly report from the configured source and print the
time series, per-channel totals and grand totals for the selected filters.

Filters default to the full history, all discovered channels and both
translation directions.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSummary(cmd, rt, opts)
		},
	}

	opts.filters.register(cmd)
	cmd.Flags().StringVarP(&opts.format, "format", "f", FormatTable, "output format (table|json|yaml)")
	cmd.Flags().BoolVar(&opts.noProgress, "no-progress", false, "disable the fetch progress bar")

	return cmd
}

func runSummary(cmd *cobra.Command, rt *Runtime, opts *summaryOptions) error {
	if err := validateFormat(opts.format, FormatTable, FormatJSON, FormatYAML); err != nil {
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

	stats, err := rt.loadStats(cmd, s, !opts.noProgress && opts.format == FormatTable)
	if err != nil {
		return err
	}
	if _, err := stats.UpdateFilters(patch); err != nil {
		return fmt.Errorf("apply filters: %w", err)
	}

	summary := newSummary(stats.Views())
	out := cmd.OutOrStdout()

	switch opts.format {
	case FormatJSON:
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(summary)
	case FormatYAML:
		data, err := yaml.Marshal(summary)
		if err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		_, err = out.Write(data)
		return err
	default:
		renderSummaryTables(out, summary)
		return nil
	}
}

func renderSummaryTables(w io.Writer, s Summary) {
	f := s.Filters
	fmt.Fprintf(w, "%s to %s, %s view\n\n",
		core.MonthLabel(f.StartPeriod), core.MonthLabel(f.EndPeriod), f.ViewMode)

	months := newTable(w)
	months.SetTitle("Translations per month")
	months.AppendHeader(table.Row{"Month", "toJP", "toEN"})
	for _, p := range s.Months {
		months.AppendRow(table.Row{p.Label, countCell(f, core.ToJP, p.ToJP), countCell(f, core.ToEN, p.ToEN)})
	}
	if len(s.Months) == 0 {
		months.AppendRow(table.Row{"no data", "", ""})
	}
	months.SetColumnConfigs(numericColumns(2, 3))
	months.Render()
	fmt.Fprintln(w)

	channels := newTable(w)
	channels.SetTitle("Translations per channel")
	channels.AppendHeader(table.Row{"Channel", "toJP", "toEN", "Total"})
	for _, c := range s.Channels {
		channels.AppendRow(table.Row{c.Channel, humanize.Comma(c.ToJP), humanize.Comma(c.ToEN), humanize.Comma(c.Total)})
	}
	channels.AppendFooter(table.Row{"Total",
		humanize.Comma(s.Totals.ToJP), humanize.Comma(s.Totals.ToEN), humanize.Comma(s.Totals.Total)})
	channels.SetColumnConfigs(numericColumns(2, 4))
	channels.Render()
}

// countCell blanks directions the filters deselected; the series still
// carries their numbers.
func countCell(f core.Filters, l core.Language, n int64) string {
	if !f.HasLanguage(l) {
		return "-"
	}
	return humanize.Comma(n)
}

func numericColumns(from, to int) []table.ColumnConfig {
	configs := make([]table.ColumnConfig, 0, to-from+1)
	for n := from; n <= to; n++ {
		configs = append(configs, table.ColumnConfig{Number: n, Align: text.AlignRight, AlignFooter: text.AlignRight})
	}
	return configs
}
