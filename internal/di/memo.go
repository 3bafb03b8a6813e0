package di

import (
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"
)

// Kind names one of the four memo maps of a DataInstance.
type Kind string

const (
	KindConverted Kind = "converted"
	KindFeatures  Kind = "features"
	KindLive      Kind = "live"
	KindOthers    Kind = "others"
)

// Kinds lists the memo maps in a fixed order.
var Kinds = []Kind{KindConverted, KindFeatures, KindLive, KindOthers}

// DefaultLimits are the entry counts above which a memo map is cleared.
var DefaultLimits = map[Kind]int{
	KindConverted: 15,
	KindFeatures:  150,
	KindLive:      150,
	KindOthers:    15,
}

// MemoStats is a snapshot of one memo map's counters.
type MemoStats struct {
	Size     int
	Computes int64
	Hits     int64
	Clears   int64
}

// Observer receives memo events, typically to mirror them into metrics.
type Observer interface {
	MemoCompute(kind Kind)
	MemoHit(kind Kind)
	MemoClear(kind Kind)
}

type memo struct {
	kind   Kind
	limit  int
	mu     sync.RWMutex
	values map[string]any
	group  singleflight.Group

	computes atomic.Int64
	hits     atomic.Int64
	clears   atomic.Int64
}

func newMemo(kind Kind, limit int) *memo {
	return &memo{
		kind:   kind,
		limit:  limit,
		values: make(map[string]any),
	}
}

func (m *memo) get(key string) (any, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.values[key]

	return v, ok
}

// getOrCompute runs compute at most once per key across concurrent callers.
func (m *memo) getOrCompute(key string, obs Observer, compute func() (any, error)) (any, error) {
	if v, ok := m.get(key); ok {
		m.hits.Add(1)

		if obs != nil {
			obs.MemoHit(m.kind)
		}

		return v, nil
	}

	v, err, _ := m.group.Do(key, func() (any, error) {
		// another caller may have inserted between the read and the flight
		if v, ok := m.get(key); ok {
			return v, nil
		}

		m.computes.Add(1)

		if obs != nil {
			obs.MemoCompute(m.kind)
		}

		v, err := compute()
		if err != nil {
			return nil, err
		}

		return m.insert(key, v, obs), nil
	})

	return v, err
}

// insert stores v unless key already holds a value, in which case the
// existing value is returned.
func (m *memo) insert(key string, v any, obs Observer) any {
	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.values[key]; ok {
		return existing
	}

	if m.limit > 0 && len(m.values) >= m.limit {
		m.values = make(map[string]any)
		m.clears.Add(1)

		if obs != nil {
			obs.MemoClear(m.kind)
		}
	}

	m.values[key] = v

	return v
}

func (m *memo) replace(key string, v any) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.values[key] = v
}

func (m *memo) remove(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.values, key)
}

func (m *memo) reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.values = make(map[string]any)
}

func (m *memo) snapshot() map[string]any {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string]any, len(m.values))
	for k, v := range m.values {
		out[k] = v
	}

	return out
}

func (m *memo) stats() MemoStats {
	m.mu.RLock()
	size := len(m.values)
	m.mu.RUnlock()

	return MemoStats{
		Size:     size,
		Computes: m.computes.Load(),
		Hits:     m.hits.Load(),
		Clears:   m.clears.Load(),
	}
}
