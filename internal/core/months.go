package core

import "time"

const (
	// DefaultEpoch is the first reporting period the dashboard recognizes.
	DefaultEpoch PeriodKey = "2021-09"

	// LiveFileID is where the current month's report is always published.
	LiveFileID = "stats.json"

	archivedFileSuffix = "-stats.json"
	labelLayout        = "Jan 2006"
)

// MonthDescriptor describes one candidate reporting period.
type MonthDescriptor struct {
	Period PeriodKey `json:"period"`
	FileID string    `json:"fileId"`
	Label  string    `json:"label"`
}

// EnumerateMonths lists every period from epoch through the period of now,
// inclusive and ascending. An epoch after the current period, or an invalid
// epoch, yields an empty slice.
func EnumerateMonths(epoch PeriodKey, now time.Time) []MonthDescriptor {
	start, err := epoch.Time()
	if err != nil {
		return []MonthDescriptor{}
	}
	current := PeriodOf(now)
	if epoch > current {
		return []MonthDescriptor{}
	}

	months := make([]MonthDescriptor, 0, monthsBetween(start, now)+1)
	for d := start; PeriodOf(d) <= current; d = d.AddDate(0, 1, 0) {
		key := PeriodOf(d)
		months = append(months, MonthDescriptor{
			Period: key,
			FileID: FileIDFor(key, current),
			Label:  d.Format(labelLayout),
		})
	}
	return months
}

// FileIDFor maps a period to its report file. The current period is served
// from the live, non-dated location.
func FileIDFor(period, current PeriodKey) string {
	if period == current {
		return LiveFileID
	}
	return string(period) + archivedFileSuffix
}

// MonthLabel renders a period as e.g. "Sep 2021". Invalid keys are returned as-is.
func MonthLabel(period PeriodKey) string {
	t, err := period.Time()
	if err != nil {
		return string(period)
	}
	return t.Format(labelLayout)
}

func monthsBetween(from, to time.Time) int {
	n := (to.Year()-from.Year())*12 + int(to.Month()) - int(from.Month())
	if n < 0 {
		return 0
	}
	return n
}
