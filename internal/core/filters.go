package core

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"
)

// Filters is the user-adjustable query the views are computed from.
// SelectedChannels has set semantics. StartPeriod <= EndPeriod is expected
// but not enforced; an inverted range selects nothing.
type Filters struct {
	SelectedChannels  []string   `json:"selectedChannels" yaml:"selectedChannels"`
	SelectedLanguages []Language `json:"selectedLanguages" yaml:"selectedLanguages"`
	StartPeriod       PeriodKey  `json:"startPeriod" yaml:"startPeriod"`
	EndPeriod         PeriodKey  `json:"endPeriod" yaml:"endPeriod"`
	ViewMode          ViewMode   `json:"viewMode" yaml:"viewMode"`
}

// DefaultFilters covers the full history up to the period of now, both
// languages, monthly view and no channels.
func DefaultFilters(epoch PeriodKey, now time.Time) Filters {
	return Filters{
		SelectedChannels:  []string{},
		SelectedLanguages: AllLanguages(),
		StartPeriod:       epoch,
		EndPeriod:         PeriodOf(now),
		ViewMode:          Monthly,
	}
}

// Clone returns a deep copy.
func (f Filters) Clone() Filters {
	out := f
	out.SelectedChannels = slices.Clone(f.SelectedChannels)
	out.SelectedLanguages = slices.Clone(f.SelectedLanguages)
	if out.SelectedChannels == nil {
		out.SelectedChannels = []string{}
	}
	if out.SelectedLanguages == nil {
		out.SelectedLanguages = []Language{}
	}
	return out
}

// Validate checks field formats only; range ordering is left to the engine.
func (f Filters) Validate() error {
	if _, err := ParsePeriodKey(string(f.StartPeriod)); err != nil {
		return fmt.Errorf("start period: %w", err)
	}
	if _, err := ParsePeriodKey(string(f.EndPeriod)); err != nil {
		return fmt.Errorf("end period: %w", err)
	}
	if err := f.ViewMode.Validate(); err != nil {
		return err
	}
	for _, l := range f.SelectedLanguages {
		if err := l.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// HasLanguage reports whether l is part of the language selection.
func (f Filters) HasLanguage(l Language) bool {
	return slices.Contains(f.SelectedLanguages, l)
}

// Fingerprint is a canonical string for the filter. Duplicate channels are
// ignored; channel order is kept because it breaks ties in PerChannelTotals.
// Channel names are quoted so no name can mimic a separator.
func (f Filters) Fingerprint() string {
	chans := EffectiveChannels(f)
	for i, c := range chans {
		chans[i] = strconv.Quote(c)
	}
	langs := make([]string, 0, len(f.SelectedLanguages))
	for _, l := range f.SelectedLanguages {
		langs = append(langs, string(l))
	}
	slices.Sort(langs)
	langs = slices.Compact(langs)
	return strings.Join([]string{
		string(f.StartPeriod),
		string(f.EndPeriod),
		string(f.ViewMode),
		strings.Join(langs, ","),
		strings.Join(chans, ","),
	}, "|")
}

// FilterPatch is a partial update; nil fields are left unchanged.
type FilterPatch struct {
	SelectedChannels  *[]string   `json:"selectedChannels,omitempty"`
	SelectedLanguages *[]Language `json:"selectedLanguages,omitempty"`
	StartPeriod       *PeriodKey  `json:"startPeriod,omitempty"`
	EndPeriod         *PeriodKey  `json:"endPeriod,omitempty"`
	ViewMode          *ViewMode   `json:"viewMode,omitempty"`
}

// Apply returns a copy of f with the patch applied. The result is not validated.
func (p FilterPatch) Apply(f Filters) Filters {
	out := f.Clone()
	if p.SelectedChannels != nil {
		out.SelectedChannels = slices.Clone(*p.SelectedChannels)
		if out.SelectedChannels == nil {
			out.SelectedChannels = []string{}
		}
	}
	if p.SelectedLanguages != nil {
		out.SelectedLanguages = slices.Clone(*p.SelectedLanguages)
		if out.SelectedLanguages == nil {
			out.SelectedLanguages = []Language{}
		}
	}
	if p.StartPeriod != nil {
		out.StartPeriod = *p.StartPeriod
	}
	if p.EndPeriod != nil {
		out.EndPeriod = *p.EndPeriod
	}
	if p.ViewMode != nil {
		out.ViewMode = *p.ViewMode
	}
	return out
}
