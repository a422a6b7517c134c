package services

import (
	"errors"
	"sync"
	"time"

	"transstats/internal/core"
	"transstats/internal/reports/memory"
)

var (
	scenarioNow   = time.Date(2021, time.November, 14, 10, 0, 0, 0, time.UTC)
	errUnreadable = errors.New("unreadable")
)

func fixedClock() time.Time { return scenarioNow }

// scenarioStore serves 2021-09 and the live 2021-11 report; 2021-10 fails.
func scenarioStore() *memory.Store {
	s := memory.New(map[string]core.RawReport{
		"2021-09-stats.json": {
			ChannelList: []string{"A"},
			PerChannel:  []core.ChannelStat{{Channel: "A", ToJP: 5, ToEN: 0}},
			Month:       core.Counts{ToJP: 5, ToEN: 0},
			Total:       core.Counts{ToJP: 5, ToEN: 0},
		},
		"stats.json": {
			ChannelList: []string{"A", "B"},
			PerChannel: []core.ChannelStat{
				{Channel: "A", ToJP: 2, ToEN: 3},
				{Channel: "B", ToJP: 1, ToEN: 1},
			},
			Month: core.Counts{ToJP: 3, ToEN: 4},
			Total: core.Counts{ToJP: 8, ToEN: 4},
		},
	})
	s.Fail("2021-10-stats.json", errUnreadable)
	return s
}

type recordedLoad struct {
	months, channels int
	err              error
}

type fakeRecorder struct {
	// delay stalls LoadCompleted to expose callers that race the recorder.
	delay time.Duration

	mu        sync.Mutex
	fetchErrs []error
	loads     []recordedLoad
}

func (r *fakeRecorder) FetchCompleted(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fetchErrs = append(r.fetchErrs, err)
}

func (r *fakeRecorder) LoadCompleted(_ time.Duration, months, channels int, err error) {
	time.Sleep(r.delay)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.loads = append(r.loads, recordedLoad{months: months, channels: channels, err: err})
}

func (r *fakeRecorder) Loads() []recordedLoad {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]recordedLoad(nil), r.loads...)
}
