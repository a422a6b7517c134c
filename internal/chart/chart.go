// Package chart renders the time-series and stacked per-channel views as
// standalone go-echarts HTML pages.
package chart

import (
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"transstats/internal/core"
)

// Kind selects which view is charted.
type Kind string

const (
	KindTimeSeries Kind = "timeseries"
	KindStacked    Kind = "stacked"
)

const (
	chartWidth   = "100%"
	chartHeight  = "520px"
	stackName    = "channels"
	fullZoomPct  = 100
	emptySubtext = "No data for the selected range"
)

var seriesColors = map[core.Language]string{
	core.ToJP: "#c23531",
	core.ToEN: "#2f4554",
}

// ParseKind validates a chart kind. The empty string selects the time series.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case "", KindTimeSeries:
		return KindTimeSeries, nil
	case KindStacked:
		return KindStacked, nil
	default:
		return "", fmt.Errorf("unknown chart kind %q: must be %q or %q", s, KindTimeSeries, KindStacked)
	}
}

// Render writes the chart of the given kind for v to w.
func Render(w io.Writer, kind Kind, v core.Views) error {
	var err error
	switch kind {
	case KindTimeSeries:
		err = TimeSeries(v).Render(w)
	case KindStacked:
		err = Stacked(v).Render(w)
	default:
		return fmt.Errorf("unknown chart kind %q", kind)
	}
	if err != nil {
		return fmt.Errorf("render %s chart: %w", kind, err)
	}
	return nil
}

// TimeSeries builds a line chart with one series per selected language.
func TimeSeries(v core.Views) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: chartWidth, Height: chartHeight, PageTitle: "Translations"}),
		charts.WithTitleOpts(title(v, "Translations per month")),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Top: "8%"}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "slider", Start: 0, End: fullZoomPct}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Translations"}),
	)

	labels := make([]string, len(v.TimeSeries))
	for i, p := range v.TimeSeries {
		labels[i] = p.Label
	}
	line.SetXAxis(labels)

	for _, lang := range core.AllLanguages() {
		if !v.Filters.HasLanguage(lang) {
			continue
		}
		data := make([]opts.LineData, len(v.TimeSeries))
		for i, p := range v.TimeSeries {
			data[i] = opts.LineData{Value: languageValue(p, lang)}
		}
		line.AddSeries(string(lang), data,
			charts.WithLineChartOpts(opts.LineChart{Smooth: opts.Bool(true)}),
			charts.WithItemStyleOpts(opts.ItemStyle{Color: seriesColors[lang]}),
		)
	}
	return line
}

// Stacked builds a bar chart with one stacked series per effective channel.
func Stacked(v core.Views) *charts.Bar {
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: chartWidth, Height: chartHeight, PageTitle: "Translations by channel"}),
		charts.WithTitleOpts(title(v, "Translations by channel")),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Type: "scroll", Top: "8%"}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "slider", Start: 0, End: fullZoomPct}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Translations"}),
	)

	labels := make([]string, len(v.StackedMonthly))
	for i, m := range v.StackedMonthly {
		labels[i] = m.Label
	}
	bar.SetXAxis(labels)

	for _, ch := range v.EffectiveChannels {
		data := make([]opts.BarData, len(v.StackedMonthly))
		for i, m := range v.StackedMonthly {
			data[i] = opts.BarData{Value: m.Channels[ch]}
		}
		bar.AddSeries(ch, data, charts.WithBarChartOpts(opts.BarChart{Stack: stackName}))
	}
	return bar
}

func title(v core.Views, text string) opts.Title {
	sub := emptySubtext
	if len(v.FilteredMonths) > 0 {
		sub = fmt.Sprintf("%s to %s, %s view, %s translations",
			core.MonthLabel(v.Filters.StartPeriod),
			core.MonthLabel(v.Filters.EndPeriod),
			v.Filters.ViewMode,
			humanize.Comma(v.GrandTotals.Total))
	}
	return opts.Title{Title: text, Subtitle: sub, Left: "2%"}
}

func languageValue(p core.SeriesPoint, lang core.Language) int64 {
	if lang == core.ToJP {
		return p.ToJP
	}
	return p.ToEN
}
