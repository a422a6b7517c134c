package core

import (
	"errors"
	"fmt"
	"time"
)

const (
	ToJP Language = "toJP"
	ToEN Language = "toEN"
)

const (
	Monthly    ViewMode = "monthly"
	Cumulative ViewMode = "cumulative"
)

// periodLayout is the time layout of a PeriodKey.
const periodLayout = "2006-01"

type (
	// PeriodKey identifies a reporting month as "YYYY-MM". Both fields are
	// zero-padded, so string comparison is chronological comparison.
	PeriodKey string

	Language string

	ViewMode string

	// Counts holds the two tracked translation directions.
	Counts struct {
		ToJP int64 `json:"toJP" yaml:"toJP"`
		ToEN int64 `json:"toEN" yaml:"toEN"`
	}

	// ChannelStat is one perChannel entry of a raw report.
	ChannelStat struct {
		Channel string `json:"channel"`
		ToJP    int64  `json:"toJP"`
		ToEN    int64  `json:"toEN"`
	}

	// RawReport is a monthly report file as produced upstream.
	// ChannelList is informational; channels are derived from PerChannel.
	RawReport struct {
		ChannelList []string      `json:"channellist"`
		PerChannel  []ChannelStat `json:"perChannel"`
		Month       Counts        `json:"Month"`
		Total       Counts        `json:"Total"`
	}

	// NormalizedMonth is the canonical record for one successfully loaded period.
	NormalizedMonth struct {
		Period           PeriodKey         `json:"period"`
		Label            string            `json:"label"`
		PerChannel       map[string]Counts `json:"perChannel"`
		MonthTotals      Counts            `json:"monthTotals"`
		CumulativeTotals Counts            `json:"cumulativeTotals"`
	}
)

var (
	ErrInvalidPeriod   = errors.New("invalid period key")
	ErrInvalidViewMode = errors.New("invalid view mode")
	ErrInvalidLanguage = errors.New("invalid language")
)

// ParsePeriodKey validates s as a zero-padded "YYYY-MM" key.
func ParsePeriodKey(s string) (PeriodKey, error) {
	if len(s) != len(periodLayout) {
		return "", fmt.Errorf("%w: %q", ErrInvalidPeriod, s)
	}
	if _, err := time.Parse(periodLayout, s); err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidPeriod, s)
	}
	return PeriodKey(s), nil
}

// PeriodOf returns the period containing t, in t's location.
func PeriodOf(t time.Time) PeriodKey {
	return PeriodKey(fmt.Sprintf("%04d-%02d", t.Year(), int(t.Month())))
}

// Time returns the first instant of the period in UTC.
func (k PeriodKey) Time() (time.Time, error) {
	t, err := time.Parse(periodLayout, string(k))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidPeriod, string(k))
	}
	return t, nil
}

// Next returns the following period. Invalid keys are returned unchanged.
func (k PeriodKey) Next() PeriodKey {
	t, err := k.Time()
	if err != nil {
		return k
	}
	return PeriodOf(t.AddDate(0, 1, 0))
}

func (k PeriodKey) String() string {
	return string(k)
}

// Total returns ToJP + ToEN.
func (c Counts) Total() int64 {
	return c.ToJP + c.ToEN
}

// Add returns the element-wise sum of c and o.
func (c Counts) Add(o Counts) Counts {
	return Counts{ToJP: c.ToJP + o.ToJP, ToEN: c.ToEN + o.ToEN}
}

func (l Language) Validate() error {
	switch l {
	case ToJP, ToEN:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrInvalidLanguage, string(l))
	}
}

func (v ViewMode) Validate() error {
	switch v {
	case Monthly, Cumulative:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrInvalidViewMode, string(v))
	}
}

// AllLanguages returns both directions in display order.
func AllLanguages() []Language {
	return []Language{ToJP, ToEN}
}
