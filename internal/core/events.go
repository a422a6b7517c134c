package core

import "time"

// LoadSummary describes a completed load. It is published to downstream
// consumers once the month records are in place.
type LoadSummary struct {
	Generation  uint64      `json:"generation"`
	Epoch       PeriodKey   `json:"epoch"`
	Requested   int         `json:"requested"`
	Succeeded   int         `json:"succeeded"`
	Periods     []PeriodKey `json:"periods"`
	Channels    []string    `json:"channels"`
	GrandTotal  Counts      `json:"grandTotal"`
	Duration    string      `json:"duration"`
	CompletedAt time.Time   `json:"completedAt"`
}

// Failed is the number of descriptors whose report could not be used.
func (s LoadSummary) Failed() int {
	return s.Requested - s.Succeeded
}
