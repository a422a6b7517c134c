package commands

import (
	"encoding/json"
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"transstats/internal/core"
)

type monthsOptions struct {
	epoch  string
	format string
}

// NewMonthsCommand creates the months command.
func NewMonthsCommand(rt *Runtime) *cobra.Command {
	opts := &monthsOptions{}

	cmd := &cobra.Command{
		Use:   "months",
		Short: "List the reporting periods and the report file each one is read from",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runMonths(cmd, rt, opts)
		},
	}

	cmd.Flags().StringVar(&opts.epoch, "epoch", "", "first period (default: STATS_EPOCH)")
	cmd.Flags().StringVarP(&opts.format, "format", "f", FormatTable, "output format (table|json)")

	return cmd
}

func runMonths(cmd *cobra.Command, rt *Runtime, opts *monthsOptions) error {
	if err := validateFormat(opts.format, FormatTable, FormatJSON); err != nil {
		return err
	}

	var epoch core.PeriodKey
	if cmd.Flags().Changed("epoch") {
		k, err := core.ParsePeriodKey(opts.epoch)
		if err != nil {
			return fmt.Errorf("--epoch: %w", err)
		}
		epoch = k
	} else {
		cfg, err := rt.LoadConfig()
		if err != nil {
			return err
		}
		epoch = cfg.Epoch
	}

	months := core.EnumerateMonths(epoch, rt.Now())
	out := cmd.OutOrStdout()

	if opts.format == FormatJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(months)
	}

	tbl := newTable(out)
	tbl.AppendHeader(table.Row{"Period", "Label", "Report"})
	for _, m := range months {
		tbl.AppendRow(table.Row{m.Period, m.Label, m.FileID})
	}
	tbl.AppendFooter(table.Row{"", "", fmt.Sprintf("%d months", len(months))})
	tbl.Render()
	return nil
}
