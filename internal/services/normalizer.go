package services

import (
	"maps"
	"slices"

	"transstats/internal/core"
)

// Normalize converts fetched reports into month records sorted by period and
// returns the sorted, de-duplicated channel universe. Month and Total are
// copied verbatim. When a report lists a channel twice the last entry wins.
// When two pairs share a period the later pair wins.
func Normalize(pairs []Fetched) ([]core.NormalizedMonth, []string) {
	byPeriod := make(map[core.PeriodKey]core.NormalizedMonth, len(pairs))
	universe := make(map[string]struct{})

	for _, p := range pairs {
		perChannel := make(map[string]core.Counts, len(p.Report.PerChannel))
		for _, stat := range p.Report.PerChannel {
			perChannel[stat.Channel] = core.Counts{ToJP: stat.ToJP, ToEN: stat.ToEN}
			universe[stat.Channel] = struct{}{}
		}

		byPeriod[p.Descriptor.Period] = core.NormalizedMonth{
			Period:           p.Descriptor.Period,
			Label:            p.Descriptor.Label,
			PerChannel:       perChannel,
			MonthTotals:      p.Report.Month,
			CumulativeTotals: p.Report.Total,
		}
	}

	months := make([]core.NormalizedMonth, 0, len(byPeriod))
	for _, period := range slices.Sorted(maps.Keys(byPeriod)) {
		months = append(months, byPeriod[period])
	}

	channels := slices.Sorted(maps.Keys(universe))
	if channels == nil {
		channels = []string{}
	}
	return months, channels
}
