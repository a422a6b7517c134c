package services

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"transstats/internal/core"
	applog "transstats/internal/log"
	"transstats/internal/reports"
)

// FetchResult is the outcome of fetching one month's report. Exactly one of
// Report (when Err is nil) or Err is meaningful.
type FetchResult struct {
	Descriptor core.MonthDescriptor
	Report     core.RawReport
	Err        error
}

// Fetched pairs a descriptor with its successfully parsed report.
type Fetched struct {
	Descriptor core.MonthDescriptor
	Report     core.RawReport
}

// FetchRecorder observes individual fetch outcomes.
type FetchRecorder interface {
	FetchCompleted(err error)
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithConcurrency bounds the number of in-flight fetches. Zero or negative
// means one goroutine per descriptor.
func WithConcurrency(n int) LoaderOption {
	return func(l *Loader) {
		l.limit = n
	}
}

// WithFetchRecorder reports every fetch outcome to r.
func WithFetchRecorder(r FetchRecorder) LoaderOption {
	return func(l *Loader) {
		l.recorder = r
	}
}

// WithProgress calls fn after each fetch completes. fn may be called from
// several goroutines at once.
func WithProgress(fn func(FetchResult)) LoaderOption {
	return func(l *Loader) {
		l.progress = fn
	}
}

// Loader fetches monthly reports concurrently. A failed fetch never cancels
// or delays the others.
type Loader struct {
	fetcher  reports.Fetcher
	limit    int
	recorder FetchRecorder
	progress func(FetchResult)
}

func NewLoader(fetcher reports.Fetcher, opts ...LoaderOption) *Loader {
	l := &Loader{fetcher: fetcher}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// FetchAll fetches every descriptor and returns one result per descriptor in
// input order, regardless of completion order. It returns once all fetches
// have settled.
func (l *Loader) FetchAll(ctx context.Context, descriptors []core.MonthDescriptor) []FetchResult {
	results := make([]FetchResult, len(descriptors))

	// No derived context: one worker's failure must not cancel its siblings.
	var g errgroup.Group
	if l.limit > 0 {
		g.SetLimit(l.limit)
	}
	for i, d := range descriptors {
		g.Go(func() error {
			results[i] = l.fetchOne(ctx, d)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

func (l *Loader) fetchOne(ctx context.Context, d core.MonthDescriptor) (res FetchResult) {
	res.Descriptor = d

	defer func() {
		if r := recover(); r != nil {
			res.Report = core.RawReport{}
			res.Err = fmt.Errorf("fetch %s panicked: %v", d.FileID, r)
		}
		if res.Err != nil {
			slog.WarnContext(ctx, "Report excluded from load",
				applog.FieldPeriod, d.Period,
				applog.FieldFileID, d.FileID,
				applog.FieldError, res.Err)
		}
		if l.recorder != nil {
			l.recorder.FetchCompleted(res.Err)
		}
		if l.progress != nil {
			l.progress(res)
		}
	}()

	report, err := l.fetcher.Fetch(ctx, d.FileID)
	if err != nil {
		res.Err = fmt.Errorf("fetch %s: %w", d.FileID, err)
		return res
	}
	res.Report = report
	return res
}

// Successes keeps the successful results, preserving input order.
func Successes(results []FetchResult) []Fetched {
	out := make([]Fetched, 0, len(results))
	for _, r := range results {
		if r.Err != nil {
			continue
		}
		out = append(out, Fetched{Descriptor: r.Descriptor, Report: r.Report})
	}
	return out
}
