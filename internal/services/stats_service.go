package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"transstats/internal/core"
	applog "transstats/internal/log"
)

// notifyTimeout bounds how long a load waits on the notifier.
const notifyTimeout = 5 * time.Second

// LoadState is the observable state of the load lifecycle.
type LoadState struct {
	Loading bool   `json:"loading"`
	Loaded  bool   `json:"loaded"`
	Error   string `json:"error,omitempty"`
}

// LoadRecorder observes completed load attempts.
type LoadRecorder interface {
	LoadCompleted(d time.Duration, months, channels int, err error)
}

// LoadNotifier is told about every successful load.
type LoadNotifier interface {
	NotifyLoadCompleted(ctx context.Context, summary core.LoadSummary) error
}

// StatsOption configures a StatsService.
type StatsOption func(*StatsService)

// WithEpoch sets the first period enumerated on load.
func WithEpoch(epoch core.PeriodKey) StatsOption {
	return func(s *StatsService) {
		s.epoch = epoch
	}
}

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) StatsOption {
	return func(s *StatsService) {
		s.now = now
	}
}

// WithLoadRecorder reports every load attempt to r.
func WithLoadRecorder(r LoadRecorder) StatsOption {
	return func(s *StatsService) {
		s.recorder = r
	}
}

// WithNotifier publishes a summary after each successful load.
func WithNotifier(n LoadNotifier) StatsOption {
	return func(s *StatsService) {
		s.notifier = n
	}
}

// StatsService owns the loaded month records, the channel universe and the
// load lifecycle. Views are recomputed from a consistent snapshot of months
// and filters on every read.
type StatsService struct {
	loader  *Loader
	filters *FilterStore

	epoch    core.PeriodKey
	now      func() time.Time
	recorder LoadRecorder
	notifier LoadNotifier

	mu         sync.RWMutex
	state      LoadState
	done       chan struct{} // non-nil while a load is in flight
	months     []core.NormalizedMonth
	channels   []string
	generation uint64
}

func NewStatsService(loader *Loader, filters *FilterStore, opts ...StatsOption) *StatsService {
	s := &StatsService{
		loader:   loader,
		filters:  filters,
		epoch:    core.DefaultEpoch,
		now:      time.Now,
		months:   []core.NormalizedMonth{},
		channels: []string{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Trigger starts a load in the background unless one is in flight or data is
// already loaded. It reports whether a new load was started. The load is
// detached from ctx cancellation and cannot be aborted.
func (s *StatsService) Trigger(ctx context.Context) bool {
	s.mu.Lock()
	if s.state.Loading || s.state.Loaded {
		s.mu.Unlock()
		return false
	}
	s.state = LoadState{Loading: true}
	done := make(chan struct{})
	s.done = done
	s.mu.Unlock()

	go s.run(context.WithoutCancel(ctx), done)
	return true
}

// Load triggers a load and waits for whichever load is in flight to settle.
// It is a no-op once data is loaded. The returned error is the orchestration
// failure recorded in the load state, or ctx's error if ctx ends first.
func (s *StatsService) Load(ctx context.Context) error {
	s.Trigger(ctx)
	if err := s.Wait(ctx); err != nil {
		return err
	}
	if st := s.State(); st.Error != "" {
		return errors.New(st.Error)
	}
	return nil
}

// Wait blocks until no load is in flight or ctx ends.
func (s *StatsService) Wait(ctx context.Context) error {
	s.mu.RLock()
	done := s.done
	s.mu.RUnlock()
	if done == nil {
		return nil
	}

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

type loadOutcome struct {
	months    []core.NormalizedMonth
	channels  []string
	requested int
	succeeded int
}

func (s *StatsService) run(ctx context.Context, done chan struct{}) {
	start := time.Now()
	out, err := s.collect(ctx)
	elapsed := time.Since(start)

	// Recorded before the state settles so Load and Wait observe the metrics.
	if s.recorder != nil {
		s.recorder.LoadCompleted(elapsed, len(out.months), len(out.channels), err)
	}

	var generation uint64
	s.mu.Lock()
	if err != nil {
		s.state = LoadState{Error: err.Error()}
	} else {
		s.filters.SeedChannels(out.channels)
		s.months = out.months
		s.channels = out.channels
		s.generation++
		generation = s.generation
		s.state = LoadState{Loaded: true}
	}
	s.done = nil
	s.mu.Unlock()
	close(done)

	if err != nil {
		slog.ErrorContext(ctx, "Stats load failed",
			applog.FieldOperation, applog.OpLoad,
			applog.FieldError, err,
			applog.FieldDurationHuman, elapsed)
		return
	}

	slog.InfoContext(ctx, "Stats load completed",
		applog.FieldOperation, applog.OpLoad,
		applog.FieldRequested, out.requested,
		applog.FieldSucceeded, out.succeeded,
		applog.FieldFailed, out.requested-out.succeeded,
		applog.FieldChannels, len(out.channels),
		applog.FieldGeneration, generation,
		applog.FieldDurationHuman, elapsed)

	s.notify(ctx, out, generation, elapsed)
}

// collect runs enumeration, fetching and normalization. Panics are turned
// into errors so the load state always settles.
func (s *StatsService) collect(ctx context.Context) (out loadOutcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			out = loadOutcome{}
			err = fmt.Errorf("load panicked: %v", r)
		}
	}()

	if _, err := core.ParsePeriodKey(string(s.epoch)); err != nil {
		return loadOutcome{}, fmt.Errorf("enumerate months: epoch: %w", err)
	}
	descriptors := core.EnumerateMonths(s.epoch, s.now())

	results := s.loader.FetchAll(ctx, descriptors)
	pairs := Successes(results)
	months, channels := Normalize(pairs)

	return loadOutcome{
		months:    months,
		channels:  channels,
		requested: len(descriptors),
		succeeded: len(pairs),
	}, nil
}

func (s *StatsService) notify(ctx context.Context, out loadOutcome, generation uint64, elapsed time.Duration) {
	if s.notifier == nil {
		return
	}

	periods := make([]core.PeriodKey, 0, len(out.months))
	for _, m := range out.months {
		periods = append(periods, m.Period)
	}
	var total core.Counts
	for _, m := range out.months {
		for _, c := range m.PerChannel {
			total = total.Add(c)
		}
	}

	summary := core.LoadSummary{
		Generation:  generation,
		Epoch:       s.epoch,
		Requested:   out.requested,
		Succeeded:   out.succeeded,
		Periods:     periods,
		Channels:    slices.Clone(out.channels),
		GrandTotal:  total,
		Duration:    elapsed.String(),
		CompletedAt: s.now().UTC(),
	}

	nctx, cancel := context.WithTimeout(ctx, notifyTimeout)
	defer cancel()
	if err := s.notifier.NotifyLoadCompleted(nctx, summary); err != nil {
		slog.ErrorContext(ctx, "Failed to publish load completed event",
			applog.FieldOperation, applog.OpPublish,
			applog.FieldGeneration, generation,
			applog.FieldError, err)
	}
}

// State returns the current load state.
func (s *StatsService) State() LoadState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Generation increases with every successful load; zero means never loaded.
func (s *StatsService) Generation() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.generation
}

// Months returns the loaded month records in ascending period order. The
// PerChannel maps are shared and must not be modified.
func (s *StatsService) Months() []core.NormalizedMonth {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.months)
}

// Channels returns the sorted channel universe.
func (s *StatsService) Channels() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.channels)
}

// Epoch returns the first enumerated period.
func (s *StatsService) Epoch() core.PeriodKey {
	return s.epoch
}

func (s *StatsService) Filters() core.Filters {
	return s.filters.Get()
}

// UpdateFilters applies a partial filter update.
func (s *StatsService) UpdateFilters(p core.FilterPatch) (core.Filters, error) {
	return s.filters.Apply(p)
}

// Snapshot returns the month records, the filters and the generation they
// belong to, read consistently.
func (s *StatsService) Snapshot() ([]core.NormalizedMonth, core.Filters, uint64) {
	s.mu.RLock()
	months := s.months
	generation := s.generation
	s.mu.RUnlock()
	return months, s.filters.Get(), generation
}

// Views computes every derived view from one snapshot.
func (s *StatsService) Views() core.Views {
	months, f, _ := s.Snapshot()
	return core.BuildViews(months, f)
}

func (s *StatsService) FilteredMonths() []core.NormalizedMonth {
	months, f, _ := s.Snapshot()
	return core.FilterMonths(months, f)
}

func (s *StatsService) EffectiveChannels() []string {
	return core.EffectiveChannels(s.filters.Get())
}

func (s *StatsService) TimeSeries() []core.SeriesPoint {
	months, f, _ := s.Snapshot()
	return core.TimeSeries(months, f)
}

func (s *StatsService) PerChannelTotals() []core.ChannelTotal {
	months, f, _ := s.Snapshot()
	return core.PerChannelTotals(months, f)
}

func (s *StatsService) StackedMonthly() []core.StackedMonth {
	months, f, _ := s.Snapshot()
	return core.StackedMonthly(months, f)
}

func (s *StatsService) GrandTotals() core.GrandTotal {
	months, f, _ := s.Snapshot()
	return core.GrandTotals(months, f)
}
