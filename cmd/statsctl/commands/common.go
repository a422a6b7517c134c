// Package commands implements the statsctl subcommands.
package commands

import (
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"transstats/internal/backend"
	"transstats/internal/cli"
	"transstats/internal/config"
	"transstats/internal/core"
	applog "transstats/internal/log"
	"transstats/internal/services"
)

// Output formats.
const (
	FormatTable = "table"
	FormatJSON  = "json"
	FormatYAML  = "yaml"
)

// Runtime carries the process environment the commands depend on.
type Runtime struct {
	Now        func() time.Time
	LoadConfig func() (*config.Config, error)
	Verbose    bool
}

// DefaultRuntime reads configuration from the environment and uses the wall clock.
func DefaultRuntime() *Runtime {
	return &Runtime{
		Now:        time.Now,
		LoadConfig: cli.LoadConfig,
	}
}

// logger writes to the command's stderr so stdout stays machine-readable.
func (rt *Runtime) logger(cmd *cobra.Command) *applog.Logger {
	level := slog.LevelWarn
	if rt.Verbose {
		level = slog.LevelDebug
	}
	logger := applog.New(applog.Config{
		Level:     level,
		Component: applog.ComponentApp,
		Output:    cmd.ErrOrStderr(),
	})
	applog.SetDefault(logger)
	return logger
}

type session struct {
	cfg    *config.Config
	source *backend.SourceResult
	logger *applog.Logger
}

// open loads configuration and opens the configured report source.
func (rt *Runtime) open(cmd *cobra.Command) (*session, error) {
	cfg, err := rt.LoadConfig()
	if err != nil {
		return nil, err
	}
	logger := rt.logger(cmd)

	src, err := cli.OpenReportSource(cmd.Context(), logger.WithComponent(applog.ComponentReports).Logger, cfg)
	if err != nil {
		return nil, err
	}
	return &session{cfg: cfg, source: src, logger: logger}, nil
}

func (s *session) Close() {
	if err := s.source.Close(); err != nil {
		s.logger.Warn("Report source close error", applog.FieldError, err)
	}
}

// loadStats runs one full load and returns the loaded engine.
func (rt *Runtime) loadStats(cmd *cobra.Command, s *session, progress bool) (*services.StatsService, error) {
	now := rt.Now()
	opts := []services.LoaderOption{services.WithConcurrency(s.cfg.FetchConcurrency)}

	if progress {
		bar := progressbar.NewOptions(len(core.EnumerateMonths(s.cfg.Epoch, now)),
			progressbar.OptionSetWriter(cmd.ErrOrStderr()),
			progressbar.OptionSetDescription("Fetching reports"),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish())
		defer func() { _ = bar.Finish() }()
		opts = append(opts, services.WithProgress(func(services.FetchResult) {
			_ = bar.Add(1)
		}))
	}

	stats := services.NewStatsService(
		services.NewLoader(s.source.Fetcher, opts...),
		services.NewFilterStore(core.DefaultFilters(s.cfg.Epoch, now)),
		services.WithEpoch(s.cfg.Epoch),
		services.WithClock(rt.Now))

	if err := stats.Load(cmd.Context()); err != nil {
		return nil, fmt.Errorf("load stats: %w", err)
	}
	return stats, nil
}

// filterFlags are the filter overrides shared by summary and chart. Only
// flags the user actually set end up in the patch.
type filterFlags struct {
	from      string
	to        string
	channels  []string
	languages []string
	view      string
}

func (f *filterFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVar(&f.from, "from", "", "first period to include (YYYY-MM)")
	fs.StringVar(&f.to, "to", "", "last period to include (YYYY-MM)")
	fs.StringSliceVar(&f.channels, "channels", nil, "channels to include (default: all discovered)")
	fs.StringSliceVar(&f.languages, "languages", nil, "translation directions to include (toJP,toEN)")
	fs.StringVar(&f.view, "view", "", "time series mode (monthly|cumulative)")
}

func (f *filterFlags) patch(cmd *cobra.Command) (core.FilterPatch, error) {
	fs := cmd.Flags()
	var p core.FilterPatch

	if fs.Changed("from") {
		k, err := core.ParsePeriodKey(strings.TrimSpace(f.from))
		if err != nil {
			return p, fmt.Errorf("--from: %w", err)
		}
		p.StartPeriod = &k
	}
	if fs.Changed("to") {
		k, err := core.ParsePeriodKey(strings.TrimSpace(f.to))
		if err != nil {
			return p, fmt.Errorf("--to: %w", err)
		}
		p.EndPeriod = &k
	}
	if fs.Changed("channels") {
		channels := trimList(f.channels)
		p.SelectedChannels = &channels
	}
	if fs.Changed("languages") {
		langs := make([]core.Language, 0, len(f.languages))
		for _, s := range trimList(f.languages) {
			l := core.Language(s)
			if err := l.Validate(); err != nil {
				return p, fmt.Errorf("--languages: %w", err)
			}
			langs = append(langs, l)
		}
		p.SelectedLanguages = &langs
	}
	if fs.Changed("view") {
		v := core.ViewMode(strings.TrimSpace(f.view))
		if err := v.Validate(); err != nil {
			return p, fmt.Errorf("--view: %w", err)
		}
		p.ViewMode = &v
	}
	return p, nil
}

func trimList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// newTable returns a light-styled table mirrored to w. Footers keep the
// case they were written in.
func newTable(w io.Writer) table.Writer {
	tbl := table.NewWriter()
	tbl.SetOutputMirror(w)
	tbl.SetStyle(table.StyleLight)
	tbl.Style().Format.Footer = text.FormatDefault
	return tbl
}

func validateFormat(format string, allowed ...string) error {
	if slices.Contains(allowed, format) {
		return nil
	}
	return fmt.Errorf("unsupported format %q: must be one of %s", format, strings.Join(allowed, ", "))
}
