package core

import "sort"

// SeriesPoint is one month of the aggregated time series.
type SeriesPoint struct {
	Period PeriodKey `json:"period" yaml:"period"`
	Label  string    `json:"label" yaml:"label"`
	ToJP   int64     `json:"toJP" yaml:"toJP"`
	ToEN   int64     `json:"toEN" yaml:"toEN"`
}

// ChannelTotal is a channel's sum over the filtered months.
type ChannelTotal struct {
	Channel string `json:"channel" yaml:"channel"`
	ToJP    int64  `json:"toJP" yaml:"toJP"`
	ToEN    int64  `json:"toEN" yaml:"toEN"`
	Total   int64  `json:"total" yaml:"total"`
}

// StackedMonth maps every effective channel to its toJP+toEN for one month.
type StackedMonth struct {
	Period   PeriodKey        `json:"period"`
	Label    string           `json:"label"`
	Channels map[string]int64 `json:"channels"`
}

// GrandTotal is the headline sum over filtered months and effective channels.
type GrandTotal struct {
	ToJP  int64 `json:"toJP" yaml:"toJP"`
	ToEN  int64 `json:"toEN" yaml:"toEN"`
	Total int64 `json:"total" yaml:"total"`
}

// Views bundles every derived view computed from one (months, filters) snapshot.
type Views struct {
	Filters           Filters           `json:"filters"`
	FilteredMonths    []NormalizedMonth `json:"filteredMonths"`
	EffectiveChannels []string          `json:"effectiveChannels"`
	TimeSeries        []SeriesPoint     `json:"timeSeries"`
	PerChannelTotals  []ChannelTotal    `json:"perChannelTotals"`
	StackedMonthly    []StackedMonth    `json:"stackedMonthly"`
	GrandTotals       GrandTotal        `json:"grandTotals"`
}

// BuildViews computes all views at once so they cannot drift from each other.
func BuildViews(months []NormalizedMonth, f Filters) Views {
	filtered := FilterMonths(months, f)
	channels := EffectiveChannels(f)
	return Views{
		Filters:           f.Clone(),
		FilteredMonths:    filtered,
		EffectiveChannels: channels,
		TimeSeries:        timeSeries(filtered, channels, f.ViewMode),
		PerChannelTotals:  perChannelTotals(filtered, channels),
		StackedMonthly:    stackedMonthly(filtered, channels),
		GrandTotals:       grandTotals(filtered, channels),
	}
}

// FilterMonths returns the months whose period lies in [StartPeriod, EndPeriod].
func FilterMonths(months []NormalizedMonth, f Filters) []NormalizedMonth {
	out := make([]NormalizedMonth, 0, len(months))
	for _, m := range months {
		if m.Period >= f.StartPeriod && m.Period <= f.EndPeriod {
			out = append(out, m)
		}
	}
	return out
}

// EffectiveChannels is exactly the selection, first occurrence wins.
// An empty selection means no channel contributes.
func EffectiveChannels(f Filters) []string {
	seen := make(map[string]struct{}, len(f.SelectedChannels))
	out := make([]string, 0, len(f.SelectedChannels))
	for _, ch := range f.SelectedChannels {
		if _, ok := seen[ch]; ok {
			continue
		}
		seen[ch] = struct{}{}
		out = append(out, ch)
	}
	return out
}

// TimeSeries returns one point per filtered month. Cumulative view passes the
// producer's running totals through untouched and ignores the channel filter.
func TimeSeries(months []NormalizedMonth, f Filters) []SeriesPoint {
	return timeSeries(FilterMonths(months, f), EffectiveChannels(f), f.ViewMode)
}

// PerChannelTotals sums each effective channel over the filtered months using
// monthly values. Channels with no entry in any filtered month are omitted.
// Sorted by total descending; ties keep selection order.
func PerChannelTotals(months []NormalizedMonth, f Filters) []ChannelTotal {
	return perChannelTotals(FilterMonths(months, f), EffectiveChannels(f))
}

// StackedMonthly returns per-month channel contributions for a stacked chart.
func StackedMonthly(months []NormalizedMonth, f Filters) []StackedMonth {
	return stackedMonthly(FilterMonths(months, f), EffectiveChannels(f))
}

// GrandTotals always uses monthly per-channel values, so toggling the view
// mode never changes it.
func GrandTotals(months []NormalizedMonth, f Filters) GrandTotal {
	return grandTotals(FilterMonths(months, f), EffectiveChannels(f))
}

func timeSeries(filtered []NormalizedMonth, channels []string, mode ViewMode) []SeriesPoint {
	out := make([]SeriesPoint, 0, len(filtered))
	for _, m := range filtered {
		if mode == Cumulative {
			out = append(out, SeriesPoint{
				Period: m.Period,
				Label:  m.Label,
				ToJP:   m.CumulativeTotals.ToJP,
				ToEN:   m.CumulativeTotals.ToEN,
			})
			continue
		}
		sum := sumChannels(m, channels)
		out = append(out, SeriesPoint{Period: m.Period, Label: m.Label, ToJP: sum.ToJP, ToEN: sum.ToEN})
	}
	return out
}

func perChannelTotals(filtered []NormalizedMonth, channels []string) []ChannelTotal {
	sums := make(map[string]Counts, len(channels))
	for _, m := range filtered {
		for _, ch := range channels {
			if d, ok := m.PerChannel[ch]; ok {
				sums[ch] = sums[ch].Add(d)
			}
		}
	}

	out := make([]ChannelTotal, 0, len(sums))
	for _, ch := range channels {
		c, ok := sums[ch]
		if !ok {
			continue
		}
		out = append(out, ChannelTotal{Channel: ch, ToJP: c.ToJP, ToEN: c.ToEN, Total: c.Total()})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Total > out[j].Total
	})
	return out
}

func stackedMonthly(filtered []NormalizedMonth, channels []string) []StackedMonth {
	out := make([]StackedMonth, 0, len(filtered))
	for _, m := range filtered {
		row := make(map[string]int64, len(channels))
		for _, ch := range channels {
			row[ch] = m.PerChannel[ch].Total()
		}
		out = append(out, StackedMonth{Period: m.Period, Label: m.Label, Channels: row})
	}
	return out
}

func grandTotals(filtered []NormalizedMonth, channels []string) GrandTotal {
	var sum Counts
	for _, m := range filtered {
		sum = sum.Add(sumChannels(m, channels))
	}
	return GrandTotal{ToJP: sum.ToJP, ToEN: sum.ToEN, Total: sum.Total()}
}

// sumChannels treats a channel missing from the month as zero.
func sumChannels(m NormalizedMonth, channels []string) Counts {
	var sum Counts
	for _, ch := range channels {
		sum = sum.Add(m.PerChannel[ch])
	}
	return sum
}
