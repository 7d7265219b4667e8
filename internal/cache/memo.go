package cache

import (
	"container/list"
	"sync"
	"time"
)

const (
	// DefaultMaxSize is the entry count that triggers a cleanup.
	DefaultMaxSize = 20
	// DefaultCleanupThreshold is the size a cleanup shrinks the memo back to.
	DefaultCleanupThreshold = 15
)

// Memo stores computed results by key and evicts in insertion order.
// Reads do not refresh an entry's position.
type Memo[T any] struct {
	mu        sync.Mutex
	name      string
	maxSize   int
	threshold int
	items     map[string]*list.Element
	order     *list.List

	operations  int64
	hits        int64
	cleanups    int64
	evictions   int64
	lastCleanup time.Time
}

type memoItem[T any] struct {
	key  string
	data T
}

// Stats is a snapshot of a memo's counters.
type Stats struct {
	Name        string    `json:"name"`
	Size        int       `json:"size"`
	MaxSize     int       `json:"maxSize"`
	Operations  int64     `json:"totalOperations"`
	Hits        int64     `json:"cacheHits"`
	Misses      int64     `json:"cacheMisses"`
	HitRate     float64   `json:"hitRate"`
	Cleanups    int64     `json:"cleanupCount"`
	Evictions   int64     `json:"evictions"`
	LastCleanup time.Time `json:"lastCleanup"`
}

// NewMemo creates a memo. Non-positive sizes fall back to the defaults and a
// threshold above maxSize is clamped to it.
func NewMemo[T any](name string, maxSize, threshold int) *Memo[T] {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	if threshold <= 0 {
		threshold = DefaultCleanupThreshold
	}
	if threshold > maxSize {
		threshold = maxSize
	}
	return &Memo[T]{
		name:      name,
		maxSize:   maxSize,
		threshold: threshold,
		items:     make(map[string]*list.Element),
		order:     list.New(),
	}
}

// Name returns the memo name used in stats and logs.
func (m *Memo[T]) Name() string { return m.name }

// Get looks up key. Every call counts as one operation.
func (m *Memo[T]) Get(key string) (T, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.operations++
	elem, ok := m.items[key]
	if !ok {
		var zero T
		return zero, false
	}
	m.hits++
	return elem.Value.(*memoItem[T]).data, true
}

// Set stores data under key. Replacing an existing key keeps its position.
func (m *Memo[T]) Set(key string, data T) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if elem, ok := m.items[key]; ok {
		elem.Value.(*memoItem[T]).data = data
		return
	}

	m.items[key] = m.order.PushBack(&memoItem[T]{key: key, data: data})
	if m.order.Len() > m.maxSize {
		m.shrink()
	}
}

// GetOrCompute returns the stored value for key, computing and storing it on a miss.
// The second result reports a hit.
func (m *Memo[T]) GetOrCompute(key string, compute func() T) (T, bool) {
	if v, ok := m.Get(key); ok {
		return v, true
	}
	v := compute()
	m.Set(key, v)
	return v, false
}

// shrink evicts the oldest entries until the cleanup threshold is reached.
// Callers hold m.mu.
func (m *Memo[T]) shrink() {
	for m.order.Len() > m.threshold {
		oldest := m.order.Front()
		delete(m.items, oldest.Value.(*memoItem[T]).key)
		m.order.Remove(oldest)
		m.evictions++
	}
	m.cleanups++
	m.lastCleanup = time.Now()
}

// Clear drops every entry and returns how many were removed. Counters are kept.
func (m *Memo[T]) Clear() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := m.order.Len()
	m.items = make(map[string]*list.Element)
	m.order.Init()
	return n
}

// Len returns the number of stored entries.
func (m *Memo[T]) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.order.Len()
}

// Keys returns the stored keys, oldest first.
func (m *Memo[T]) Keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	keys := make([]string, 0, m.order.Len())
	for e := m.order.Front(); e != nil; e = e.Next() {
		keys = append(keys, e.Value.(*memoItem[T]).key)
	}
	return keys
}

func (m *Memo[T]) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := Stats{
		Name:        m.name,
		Size:        m.order.Len(),
		MaxSize:     m.maxSize,
		Operations:  m.operations,
		Hits:        m.hits,
		Misses:      m.operations - m.hits,
		Cleanups:    m.cleanups,
		Evictions:   m.evictions,
		LastCleanup: m.lastCleanup,
	}
	if m.operations > 0 {
		s.HitRate = float64(m.hits) / float64(m.operations) * 100
	}
	return s
}
