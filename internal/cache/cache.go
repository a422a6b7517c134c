// Package cache holds the in-process caches of computed views and the
// janitor that expires them.
package cache

import (
	"log/slog"
	"sync"
	"time"
)

// Cleaner is a cache that can drop its expired entries on demand.
type Cleaner interface {
	CleanExpired() int
}

// Manager periodically expires entries of every registered cache.
type Manager struct {
	mu      sync.Mutex
	caches  []Cleaner
	logger  *slog.Logger
	stop    chan struct{}
	done    chan struct{}
	started bool
	once    sync.Once
}

func NewManager(logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		logger: logger,
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
}

func (m *Manager) Register(c Cleaner) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.caches = append(m.caches, c)
}

// StartCleanup runs CleanAll every interval until Stop. Later calls are no-ops.
func (m *Manager) StartCleanup(interval time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.started {
		return
	}
	m.started = true
	go m.loop(interval)
}

func (m *Manager) loop(interval time.Duration) {
	defer close(m.done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if n := m.CleanAll(); n > 0 {
				m.logger.Debug("Expired cache entries removed", "count", n)
			}
		case <-m.stop:
			return
		}
	}
}

// CleanAll runs one cleanup pass over every registered cache.
func (m *Manager) CleanAll() int {
	m.mu.Lock()
	caches := append([]Cleaner(nil), m.caches...)
	m.mu.Unlock()

	total := 0
	for _, c := range caches {
		total += c.CleanExpired()
	}
	return total
}

// Stop ends the cleanup loop and waits for it to exit. Safe to call more than once.
func (m *Manager) Stop() {
	m.once.Do(func() {
		m.mu.Lock()
		started := m.started
		m.mu.Unlock()
		close(m.stop)
		if started {
			<-m.done
		}
	})
}
