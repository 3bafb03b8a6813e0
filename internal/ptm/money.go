package ptm

import (
	"fmt"
	"math"
)

// Money maps an entry price and the current equity to a contract count.
type Money interface {
	String() string
	Size(price, equity float64) float64
}

// Fixed always trades N contracts.
type Fixed struct {
	N float64
}

func (m Fixed) String() string { return fmt.Sprintf("fixed(%g)", m.N) }

func (m Fixed) Size(float64, float64) float64 { return max(m.N, 0) }

// Percent commits Ratio of equity at Multiplier per point, rounded down to
// whole contracts.
type Percent struct {
	Ratio      float64
	Multiplier float64
}

func (m Percent) String() string { return fmt.Sprintf("percent(%g,%g)", m.Ratio, m.Multiplier) }

func (m Percent) Size(price, equity float64) float64 {
	mult := m.Multiplier
	if mult <= 0 {
		mult = 1
	}

	if price <= 0 || equity <= 0 || m.Ratio <= 0 {
		return 0
	}

	return math.Floor(equity * m.Ratio / (price * mult))
}
