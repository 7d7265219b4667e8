package cache

import (
	"sync"
	"time"

	applog "sismobi/internal/log"
)

// DefaultClearInterval is how often the manager empties every registered memo.
const DefaultClearInterval = 10 * time.Minute

// Clearer is a cache that can be emptied wholesale.
type Clearer interface {
	Name() string
	Clear() int
}

// Manager clears registered caches on a timer. Clearing only bounds memory;
// results do not depend on it.
type Manager struct {
	mu          sync.Mutex
	caches      []Clearer
	logger      *applog.Logger
	stopCleanup chan struct{}
	cleanupDone chan struct{}
	started     bool
	stopOnce    sync.Once
}

// NewManager creates a new cache manager. A nil logger disables logging.
func NewManager(logger *applog.Logger) *Manager {
	if logger != nil {
		logger = logger.WithComponent(applog.ComponentCache)
	}
	return &Manager{
		logger:      logger,
		stopCleanup: make(chan struct{}),
		cleanupDone: make(chan struct{}),
	}
}

// Register adds a cache to the manager
func (m *Manager) Register(caches ...Clearer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.caches = append(m.caches, caches...)
}

// ClearAll empties every registered cache and returns the number of entries dropped.
func (m *Manager) ClearAll() int {
	m.mu.Lock()
	caches := append([]Clearer(nil), m.caches...)
	m.mu.Unlock()

	total := 0
	for _, c := range caches {
		total += c.Clear()
	}
	return total
}

// StartCleanup begins periodic clearing of all registered caches.
// Calling it more than once has no effect.
func (m *Manager) StartCleanup(interval time.Duration) {
	if interval <= 0 {
		interval = DefaultClearInterval
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.started {
		return
	}
	m.started = true
	go m.cleanup(interval)
}

func (m *Manager) cleanup(interval time.Duration) {
	defer close(m.cleanupDone)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			cleared := m.ClearAll()
			if m.logger != nil {
				m.logger.Debug("Caches cleared", "entries", cleared, "interval", interval.String())
			}
		case <-m.stopCleanup:
			return
		}
	}
}

// Stop gracefully stops the cleanup routine
func (m *Manager) Stop() {
	m.stopOnce.Do(func() {
		close(m.stopCleanup)
		m.mu.Lock()
		started := m.started
		m.mu.Unlock()
		if started {
			<-m.cleanupDone
		}
	})
}
