// Package partition splits a series into contiguous row ranges.
package partition

import (
	"time"

	"github.com/baiguoname/qust-sub001/internal/pricestore"
	"github.com/baiguoname/qust-sub001/internal/types"
)

// Range is the half-open row range [Lo, Hi).
type Range struct {
	Lo int
	Hi int
}

func (r Range) Len() int {
	return r.Hi - r.Lo
}

// Partitioner cuts a store into ranges that cover every row in order.
type Partitioner interface {
	String() string
	Partition(store *pricestore.PriceStore) []Range
}

type allAtOnce struct{}

// AllAtOnce treats the whole series as one partition.
func AllAtOnce() Partitioner {
	return allAtOnce{}
}

func (allAtOnce) String() string { return "all" }

func (allAtOnce) Partition(store *pricestore.PriceStore) []Range {
	if store.Len() == 0 {
		return nil
	}

	return []Range{{Lo: 0, Hi: store.Len()}}
}

type perSession struct{}

// PerSession splits on trading-session boundaries.
func PerSession() Partitioner {
	return perSession{}
}

func (perSession) String() string { return "session" }

func (perSession) Partition(store *pricestore.PriceStore) []Range {
	return FromStarts(SessionStarts(store.T), store.Len())
}

// FromStarts turns sorted start rows into ranges ending at n.
func FromStarts(starts []int, n int) []Range {
	out := make([]Range, 0, len(starts))

	for i, lo := range starts {
		hi := n
		if i+1 < len(starts) {
			hi = starts[i+1]
		}

		if hi > lo {
			out = append(out, Range{Lo: lo, Hi: hi})
		}
	}

	return out
}

func inDayBand(t time.Time) bool {
	return t.Hour() >= 8 && t.Hour() < 20
}

func inNightBand(t time.Time) bool {
	return t.Hour() >= 20
}

// NewSession reports whether a session starts between prev and next. A session
// starts when the day band gives way to the night band, when the clock runs
// backwards inside the night band, or when it runs backwards inside the day
// band (a day with no night session).
func NewSession(prev, next time.Time) bool {
	backwards := types.TimeOfDay(next) < types.TimeOfDay(prev) || !types.DateOf(next).Equal(types.DateOf(prev)) &&
		types.TimeOfDay(next) == types.TimeOfDay(prev)

	switch {
	case inDayBand(prev) && inNightBand(next):
		return true
	case inNightBand(prev) && inNightBand(next):
		return backwards
	case inDayBand(prev) && inDayBand(next):
		return backwards
	default:
		return false
	}
}

// SessionStarts returns the rows at which a session starts. Row 0 always
// starts one when the series is not empty.
func SessionStarts(times []time.Time) []int {
	if len(times) == 0 {
		return nil
	}

	starts := []int{0}

	for i := 1; i < len(times); i++ {
		if NewSession(times[i-1], times[i]) {
			starts = append(starts, i)
		}
	}

	return starts
}
