// Package di holds one contract's bars together with the memoised values
// derived from them.
package di

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/baiguoname/qust-sub001/internal/logger"
	"github.com/baiguoname/qust-sub001/internal/pricestore"
	"github.com/baiguoname/qust-sub001/internal/types"
	"github.com/baiguoname/qust-sub001/pkg/errors"
)

// DataInstance owns a price store and four memo maps. The store is replaced
// on AppendBar; values already handed out keep pointing at the old columns.
type DataInstance struct {
	Contract types.Contract

	mu       sync.RWMutex
	store    *pricestore.PriceStore
	memos    map[Kind]*memo
	observer Observer
	logger   *logger.Logger
}

type Option func(*DataInstance)

// WithObserver attaches a sink for memo events.
func WithObserver(obs Observer) Option {
	return func(d *DataInstance) {
		d.observer = obs
	}
}

// WithLimits overrides the per-map clear thresholds.
func WithLimits(limits map[Kind]int) Option {
	return func(d *DataInstance) {
		for kind, limit := range limits {
			if m, ok := d.memos[kind]; ok {
				m.limit = limit
			}
		}
	}
}

func WithLogger(log *logger.Logger) Option {
	return func(d *DataInstance) {
		d.logger = log
	}
}

// New creates a DataInstance over store.
func New(contract types.Contract, store *pricestore.PriceStore, opts ...Option) *DataInstance {
	d := &DataInstance{
		Contract: contract,
		store:    store,
		memos:    make(map[Kind]*memo, len(Kinds)),
		logger:   logger.NewNopLogger(),
	}

	for _, kind := range Kinds {
		d.memos[kind] = newMemo(kind, DefaultLimits[kind])
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

func (d *DataInstance) String() string {
	return fmt.Sprintf("di(%s)", d.Contract)
}

// Store returns the current price store.
func (d *DataInstance) Store() *pricestore.PriceStore {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return d.store
}

func (d *DataInstance) Len() int {
	return d.Store().Len()
}

// AppendBar adds a finished bar. Callers are expected to extend or drop
// cached values afterwards.
func (d *DataInstance) AppendBar(bar types.Bar) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if n := d.store.Len(); n > 0 && bar.T.Before(d.store.T[n-1]) {
		return errors.NewRowError(errors.ErrCodeNonMonotonicTime, n, "bar at %s is before the last bar at %s", bar.T, d.store.T[n-1])
	}

	if err := pricestore.CheckOHLC(bar.O, bar.H, bar.L, bar.C); err != nil {
		return err
	}

	d.store = d.store.Append(bar)

	d.logger.Debug("bar appended",
		zap.String("contract", d.Contract.String()),
		zap.Time("t", bar.T),
		zap.Int("rows", d.store.Len()),
	)

	return nil
}

// Lookup reads a memo entry without computing it.
func (d *DataInstance) Lookup(kind Kind, key string) (any, bool) {
	return d.memos[kind].get(key)
}

// Replace overwrites a memo entry unconditionally.
func (d *DataInstance) Replace(kind Kind, key string, v any) {
	d.memos[kind].replace(key, v)
}

// Invalidate drops one memo entry.
func (d *DataInstance) Invalidate(kind Kind, key string) {
	d.memos[kind].remove(key)
}

// Reset drops every entry of one memo map.
func (d *DataInstance) Reset(kind Kind) {
	d.memos[kind].reset()
}

// Entries returns a copy of one memo map.
func (d *DataInstance) Entries(kind Kind) map[string]any {
	return d.memos[kind].snapshot()
}

// Stats reports the counters of every memo map.
func (d *DataInstance) Stats() map[Kind]MemoStats {
	out := make(map[Kind]MemoStats, len(d.memos))
	for kind, m := range d.memos {
		out[kind] = m.stats()
	}

	return out
}

// Load returns the memoised value for key, computing it on first use. At most
// one computation runs per key; a value that raced in first is kept.
func Load[T any](d *DataInstance, kind Kind, key string, compute func() (T, error)) (T, error) {
	var zero T

	m, ok := d.memos[kind]
	if !ok {
		return zero, errors.Newf(errors.ErrCodeInvalidParameter, "unknown memo kind %q", kind)
	}

	v, err := m.getOrCompute(key, d.observer, func() (any, error) {
		return compute()
	})
	if err != nil {
		return zero, err
	}

	out, ok := v.(T)
	if !ok {
		return zero, errors.Newf(errors.ErrCodeCacheMiss, "memo %s[%s] holds %T", kind, key, v)
	}

	return out, nil
}
