package cond

import (
	"fmt"

	"github.com/baiguoname/qust-sub001/internal/types"
)

// TickCond gates live order placement on the latest quote.
type TickCond interface {
	String() string
	Allow(tick types.TickData) bool
}

type spread struct {
	maxTicks int
	tickSize float64
}

// Spread allows quotes whose bid-ask spread is at most maxTicks ticks. A
// one-sided book is never allowed.
func Spread(maxTicks int, tickSize float64) TickCond {
	return spread{maxTicks: maxTicks, tickSize: tickSize}
}

func (c spread) String() string { return fmt.Sprintf("spread(%d,%g)", c.maxTicks, c.tickSize) }

func (c spread) Allow(tick types.TickData) bool {
	if tick.Bid1 <= 0 || tick.Ask1 <= 0 || tick.Ask1 < tick.Bid1 {
		return false
	}

	width := float64(tick.Ask1 - tick.Bid1)

	return width <= float64(c.maxTicks)*c.tickSize+c.tickSize*1e-6
}

type allowAll struct{}

// AllowAll never blocks.
func AllowAll() TickCond { return allowAll{} }

func (allowAll) String() string { return "any" }

func (allowAll) Allow(types.TickData) bool { return true }
