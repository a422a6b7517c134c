package commands

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	applog "transstats/internal/log"
	"transstats/internal/reports/files"
)

type importOptions struct {
	dir string
}

// NewImportCommand creates the import command.
func NewImportCommand(rt *Runtime) *cobra.Command {
	opts := &importOptions{}

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Copy report files from a directory into the configured report source",
		Long: `Validate every *.json report in --dir and store it in the configured
report source under its file name. Read-only sources (http, gcs) cannot be
imported into.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runImport(cmd, rt, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.dir, "dir", "d", "", "directory holding the report files")
	_ = cmd.MarkFlagRequired("dir")

	return cmd
}

func runImport(cmd *cobra.Command, rt *Runtime, opts *importOptions) error {
	s, err := rt.open(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	if s.source.Importer == nil {
		return fmt.Errorf("report source %s is read-only", s.cfg.ReportSource)
	}

	names, err := files.New(opts.dir).List()
	if err != nil {
		return err
	}
	if len(names) == 0 {
		return fmt.Errorf("no report files in %s", opts.dir)
	}

	tbl := newTable(cmd.OutOrStdout())
	tbl.AppendHeader(table.Row{"Report", "Result"})

	var failed []error
	for _, name := range names {
		err := importFile(cmd, s, filepath.Join(opts.dir, name), name)
		if err != nil {
			s.logger.Debug("Report import failed",
				applog.FieldOperation, applog.OpImport,
				applog.FieldFileID, name,
				applog.FieldError, err)
			failed = append(failed, err)
			tbl.AppendRow(table.Row{name, err.Error()})
			continue
		}
		tbl.AppendRow(table.Row{name, "imported"})
	}
	tbl.AppendFooter(table.Row{"", fmt.Sprintf("%d of %d imported", len(names)-len(failed), len(names))})
	tbl.Render()

	if len(failed) > 0 {
		return fmt.Errorf("%d of %d reports failed to import: %w", len(failed), len(names), errors.Join(failed...))
	}
	return nil
}

func importFile(cmd *cobra.Command, s *session, path, fileID string) error {
	body, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", fileID, err)
	}
	return s.source.Importer.Import(cmd.Context(), fileID, body)
}
