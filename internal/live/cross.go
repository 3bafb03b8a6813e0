package live

import (
	"fmt"

	"github.com/moznion/go-optional"

	"github.com/baiguoname/qust-sub001/internal/types"
)

// CrossSync coalesces ticks from several contracts into aligned vectors, one
// entry per contract index.
type CrossSync interface {
	String() string
	Size() int
	// Update feeds one tick and returns a vector when one is released.
	Update(index int, tick types.TickData) optional.Option[[]types.TickData]
}

// newer reports whether tick advances past last. Equal timestamps count as a
// duplicate.
func newer(last, tick types.TickData) bool {
	return last.T.IsZero() || tick.T.After(last.T)
}

type allEmerged struct {
	latest  []types.TickData
	emerged []bool
	waiting int
}

// AllEmerged releases once every contract has delivered a new tick since the
// previous release, carrying each contract's latest tick.
func AllEmerged(n int) CrossSync {
	return &allEmerged{latest: make([]types.TickData, n), emerged: make([]bool, n), waiting: n}
}

func (s *allEmerged) String() string { return fmt.Sprintf("all_emerged(%d)", len(s.latest)) }

func (s *allEmerged) Size() int { return len(s.latest) }

func (s *allEmerged) Update(index int, tick types.TickData) optional.Option[[]types.TickData] {
	if index < 0 || index >= len(s.latest) || !newer(s.latest[index], tick) {
		return optional.None[[]types.TickData]()
	}

	s.latest[index] = tick

	if !s.emerged[index] {
		s.emerged[index] = true
		s.waiting--
	}

	if s.waiting > 0 {
		return optional.None[[]types.TickData]()
	}

	for i := range s.emerged {
		s.emerged[i] = false
	}

	s.waiting = len(s.latest)

	return optional.Some(append([]types.TickData(nil), s.latest...))
}

// BinMillis is the MillisAlignment bucket width.
const BinMillis = 500

type millisAlignment struct {
	latest []types.TickData
	bin    int64
	seen   int
}

// MillisAlignment buckets ticks into 500 ms bins. The first tick of a later
// bin releases the vector cached so far, in which contracts that missed the
// bin carry their previous tick. Nothing is released until every contract has
// ticked once.
func MillisAlignment(n int) CrossSync {
	return &millisAlignment{latest: make([]types.TickData, n), bin: -1}
}

func (s *millisAlignment) String() string { return fmt.Sprintf("millis_alignment(%d)", len(s.latest)) }

func (s *millisAlignment) Size() int { return len(s.latest) }

func (s *millisAlignment) Update(index int, tick types.TickData) optional.Option[[]types.TickData] {
	if index < 0 || index >= len(s.latest) || !newer(s.latest[index], tick) {
		return optional.None[[]types.TickData]()
	}

	out := optional.None[[]types.TickData]()
	bin := types.UnixMillis(tick.T) / BinMillis

	if s.bin >= 0 && bin > s.bin && s.seen == len(s.latest) {
		out = optional.Some(append([]types.TickData(nil), s.latest...))
	}

	if bin > s.bin {
		s.bin = bin
	}

	if s.latest[index].T.IsZero() {
		s.seen++
	}

	s.latest[index] = tick

	return out
}
