package indicator

import (
	"fmt"
	"math"

	"github.com/baiguoname/qust-sub001/internal/di"
	"github.com/baiguoname/qust-sub001/internal/pricestore"
)

// RSI is Wilder's relative strength index of close. A flat window reads 50.
type RSI struct {
	N int
}

func (r RSI) String() string { return fmt.Sprintf("rsi(%d)", r.N) }

func (r RSI) SelectInputs(store *pricestore.PriceStore) [][]float64 {
	return selectCols(store, pricestore.ColClose)
}

func (r RSI) Compute(inputs [][]float64, _ di.Scope) ([][]float64, error) {
	if err := checkPeriod("rsi", r.N, 1); err != nil {
		return nil, err
	}

	if err := checkInputs("rsi", inputs, 1); err != nil {
		return nil, err
	}

	c := inputs[0]
	gains := make([]float64, len(c))
	losses := make([]float64, len(c))

	for i := 1; i < len(c); i++ {
		change := c[i] - c[i-1]
		if change > 0 {
			gains[i] = change
		} else {
			losses[i] = -change
		}
	}

	avgGain := wilder(gains, r.N, 1)
	avgLoss := wilder(losses, r.N, 1)
	out := nans(len(c))

	for i := range out {
		g, l := avgGain[i], avgLoss[i]

		switch {
		case math.IsNaN(g):
		case l == 0 && g == 0:
			out[i] = 50
		case l == 0:
			out[i] = 100
		default:
			out[i] = 100 - 100/(1+g/l)
		}
	}

	return [][]float64{out}, nil
}

// ATR is the Wilder-smoothed true range.
type ATR struct {
	N int
}

func (a ATR) String() string { return fmt.Sprintf("atr(%d)", a.N) }

func (a ATR) SelectInputs(store *pricestore.PriceStore) [][]float64 {
	return selectCols(store, pricestore.ColHigh, pricestore.ColLow, pricestore.ColClose)
}

func (a ATR) Compute(inputs [][]float64, _ di.Scope) ([][]float64, error) {
	if err := checkPeriod("atr", a.N, 1); err != nil {
		return nil, err
	}

	if err := checkInputs("atr", inputs, 3); err != nil {
		return nil, err
	}

	return [][]float64{wilder(trueRange(inputs[0], inputs[1], inputs[2]), a.N, 0)}, nil
}

func trueRange(h, l, c []float64) []float64 {
	tr := make([]float64, len(c))

	for i := range tr {
		tr[i] = h[i] - l[i]
		if i > 0 {
			tr[i] = max(tr[i], math.Abs(h[i]-c[i-1]), math.Abs(l[i]-c[i-1]))
		}
	}

	return tr
}
