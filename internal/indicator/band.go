package indicator

import (
	"fmt"

	"github.com/baiguoname/qust-sub001/internal/di"
	"github.com/baiguoname/qust-sub001/internal/pricestore"
)

// Bollinger outputs (down, mid, up) around the n-bar mean of close.
type Bollinger struct {
	N int
	K float64
}

func (b Bollinger) String() string { return fmt.Sprintf("boll(%d,%g)", b.N, b.K) }

func (b Bollinger) Lookback() int { return b.N }

func (b Bollinger) SelectInputs(store *pricestore.PriceStore) [][]float64 {
	return selectCols(store, pricestore.ColClose)
}

func (b Bollinger) Compute(inputs [][]float64, _ di.Scope) ([][]float64, error) {
	if err := checkPeriod("boll", b.N, 2); err != nil {
		return nil, err
	}

	if err := checkInputs("boll", inputs, 1); err != nil {
		return nil, err
	}

	mid := rollingMean(inputs[0], b.N)
	std := rollingStd(inputs[0], b.N)
	down, up := make([]float64, len(mid)), make([]float64, len(mid))

	for i := range mid {
		down[i] = mid[i] - b.K*std[i]
		up[i] = mid[i] + b.K*std[i]
	}

	return [][]float64{down, mid, up}, nil
}

// BollPrice outputs (down, close, up) with the Bollinger band of close, the
// layout band conditions read breakouts from.
type BollPrice struct {
	N int
	K float64
}

func (b BollPrice) String() string { return fmt.Sprintf("bollprice(%d,%g)", b.N, b.K) }

func (b BollPrice) Lookback() int { return b.N }

func (b BollPrice) SelectInputs(store *pricestore.PriceStore) [][]float64 {
	return selectCols(store, pricestore.ColClose)
}

func (b BollPrice) Compute(inputs [][]float64, scope di.Scope) ([][]float64, error) {
	out, err := Bollinger(b).Compute(inputs, scope)
	if err != nil {
		return nil, err
	}

	out[1] = append([]float64(nil), inputs[0]...)

	return out, nil
}

// PriceBand outputs (down, close, up) where the band is the lowest low and
// highest high of the n bars before the current one.
type PriceBand struct {
	N int
}

func (p PriceBand) String() string { return fmt.Sprintf("band(%d)", p.N) }

func (p PriceBand) Lookback() int { return p.N + 1 }

func (p PriceBand) SelectInputs(store *pricestore.PriceStore) [][]float64 {
	return selectCols(store, pricestore.ColHigh, pricestore.ColLow, pricestore.ColClose)
}

func (p PriceBand) Compute(inputs [][]float64, _ di.Scope) ([][]float64, error) {
	if err := checkPeriod("band", p.N, 1); err != nil {
		return nil, err
	}

	if err := checkInputs("band", inputs, 3); err != nil {
		return nil, err
	}

	h, l, c := inputs[0], inputs[1], inputs[2]

	mid := make([]float64, len(c))
	copy(mid, c)

	return [][]float64{shift(rollingMin(l, p.N), 1), mid, shift(rollingMax(h, p.N), 1)}, nil
}

func shift(x []float64, n int) []float64 {
	out := nans(len(x))
	for i := n; i < len(x); i++ {
		out[i] = x[i-n]
	}

	return out
}

// SAR is the parabolic stop-and-reverse. It outputs the stop level and the
// trend it guards (+1 long, -1 short).
type SAR struct {
	Step float64
	Max  float64
}

func (s SAR) String() string { return fmt.Sprintf("sar(%g,%g)", s.Step, s.Max) }

func (s SAR) SelectInputs(store *pricestore.PriceStore) [][]float64 {
	return selectCols(store, pricestore.ColHigh, pricestore.ColLow)
}

func (s SAR) Compute(inputs [][]float64, _ di.Scope) ([][]float64, error) {
	if s.Step <= 0 || s.Max < s.Step {
		return nil, errorf("sar needs 0 < step <= max, got step=%g max=%g", s.Step, s.Max)
	}

	if err := checkInputs("sar", inputs, 2); err != nil {
		return nil, err
	}

	h, l := inputs[0], inputs[1]
	stop, trend := nans(len(h)), nans(len(h))

	if len(h) < 2 {
		return [][]float64{stop, trend}, nil
	}

	long := true
	sar, ep, af := l[0], h[0], s.Step

	for i := 1; i < len(h); i++ {
		sar += af * (ep - sar)
		prior := max(i-2, 0)

		if long {
			sar = min(sar, l[i-1], l[prior])

			switch {
			case l[i] < sar:
				long, sar, ep, af = false, ep, l[i], s.Step
			case h[i] > ep:
				ep, af = h[i], min(af+s.Step, s.Max)
			}
		} else {
			sar = max(sar, h[i-1], h[prior])

			switch {
			case h[i] > sar:
				long, sar, ep, af = true, ep, h[i], s.Step
			case l[i] < ep:
				ep, af = l[i], min(af+s.Step, s.Max)
			}
		}

		stop[i] = sar
		trend[i] = -1

		if long {
			trend[i] = 1
		}
	}

	return [][]float64{stop, trend}, nil
}
