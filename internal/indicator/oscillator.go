package indicator

import (
	"fmt"
	"math"

	"github.com/baiguoname/qust-sub001/internal/di"
	"github.com/baiguoname/qust-sub001/internal/pricestore"
)

// KDJ is the stochastic oscillator with smoothing factors M1 and M2.
// K and D start at 50.
type KDJ struct {
	N  int
	M1 int
	M2 int
}

func (k KDJ) String() string { return fmt.Sprintf("kdj(%d,%d,%d)", k.N, k.M1, k.M2) }

func (k KDJ) SelectInputs(store *pricestore.PriceStore) [][]float64 {
	return selectCols(store, pricestore.ColHigh, pricestore.ColLow, pricestore.ColClose)
}

func (k KDJ) Compute(inputs [][]float64, _ di.Scope) ([][]float64, error) {
	if err := checkPeriod("kdj", k.N, 1); err != nil {
		return nil, err
	}

	if err := checkPeriod("kdj m1", k.M1, 1); err != nil {
		return nil, err
	}

	if err := checkPeriod("kdj m2", k.M2, 1); err != nil {
		return nil, err
	}

	if err := checkInputs("kdj", inputs, 3); err != nil {
		return nil, err
	}

	h, l, c := inputs[0], inputs[1], inputs[2]
	hh := rollingMax(h, k.N)
	ll := rollingMin(l, k.N)

	kOut, dOut, jOut := nans(len(c)), nans(len(c)), nans(len(c))
	kPrev, dPrev := 50.0, 50.0
	m1, m2 := float64(k.M1), float64(k.M2)

	for i := k.N - 1; i < len(c); i++ {
		rsv := 50.0
		if span := hh[i] - ll[i]; span > 0 {
			rsv = (c[i] - ll[i]) / span * 100
		}

		kPrev = (m1-1)/m1*kPrev + rsv/m1
		dPrev = (m2-1)/m2*dPrev + kPrev/m2

		kOut[i], dOut[i], jOut[i] = kPrev, dPrev, 3*kPrev-2*dPrev
	}

	return [][]float64{kOut, dOut, jOut}, nil
}

// ER is the efficiency ratio: net move over path length across n bars.
// A window without movement reads 0.
type ER struct {
	N int
}

func (e ER) String() string { return fmt.Sprintf("er(%d)", e.N) }

func (e ER) Lookback() int { return e.N + 1 }

func (e ER) SelectInputs(store *pricestore.PriceStore) [][]float64 {
	return selectCols(store, pricestore.ColClose)
}

func (e ER) Compute(inputs [][]float64, _ di.Scope) ([][]float64, error) {
	if err := checkPeriod("er", e.N, 1); err != nil {
		return nil, err
	}

	if err := checkInputs("er", inputs, 1); err != nil {
		return nil, err
	}

	c := inputs[0]
	out := nans(len(c))

	for i := e.N; i < len(c); i++ {
		path := 0.0
		for j := i - e.N + 1; j <= i; j++ {
			path += math.Abs(c[j] - c[j-1])
		}

		out[i] = 0
		if path > 0 {
			out[i] = math.Abs(c[i]-c[i-e.N]) / path
		}
	}

	return [][]float64{out}, nil
}

// Rank is the share of the last n closes at or below the current one.
type Rank struct {
	N int
}

func (r Rank) String() string { return fmt.Sprintf("rank(%d)", r.N) }

func (r Rank) Lookback() int { return r.N }

func (r Rank) SelectInputs(store *pricestore.PriceStore) [][]float64 {
	return selectCols(store, pricestore.ColClose)
}

func (r Rank) Compute(inputs [][]float64, _ di.Scope) ([][]float64, error) {
	if err := checkPeriod("rank", r.N, 1); err != nil {
		return nil, err
	}

	if err := checkInputs("rank", inputs, 1); err != nil {
		return nil, err
	}

	return [][]float64{rollingRank(inputs[0], r.N)}, nil
}

func rollingRank(x []float64, n int) []float64 {
	out := nans(len(x))

	for i := n - 1; i < len(x); i++ {
		if math.IsNaN(x[i]) {
			continue
		}

		below := 0
		for _, v := range x[i-n+1 : i+1] {
			if v <= x[i] {
				below++
			}
		}

		out[i] = float64(below) / float64(n)
	}

	return out
}
