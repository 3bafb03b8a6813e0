package indicator

import (
	"fmt"
	"sort"
	"time"

	"github.com/baiguoname/qust-sub001/internal/di"
	"github.com/baiguoname/qust-sub001/internal/pricestore"
	"github.com/baiguoname/qust-sub001/internal/types"
	"github.com/baiguoname/qust-sub001/pkg/errors"
)

// OrderFlow splits each bar's volume into a buy and a sell bucket by where the
// close sits in the bar's range, then sums both over n bars. Outputs are
// (buy, sell, imbalance) with imbalance in [-1, 1].
type OrderFlow struct {
	N int
}

func (o OrderFlow) String() string { return fmt.Sprintf("flow(%d)", o.N) }

func (o OrderFlow) Lookback() int { return o.N }

func (o OrderFlow) SelectInputs(store *pricestore.PriceStore) [][]float64 {
	return selectCols(store, pricestore.ColHigh, pricestore.ColLow, pricestore.ColClose, pricestore.ColVolume)
}

func (o OrderFlow) Compute(inputs [][]float64, _ di.Scope) ([][]float64, error) {
	if err := checkPeriod("flow", o.N, 1); err != nil {
		return nil, err
	}

	if err := checkInputs("flow", inputs, 4); err != nil {
		return nil, err
	}

	h, l, c, v := inputs[0], inputs[1], inputs[2], inputs[3]
	buy, sell := make([]float64, len(c)), make([]float64, len(c))

	for i := range c {
		share := 0.5
		if span := h[i] - l[i]; span > 0 {
			share = (c[i] - l[i]) / span
		}

		buy[i] = v[i] * share
		sell[i] = v[i] - buy[i]
	}

	buyN, sellN := rollingSum(buy, o.N), rollingSum(sell, o.N)
	imbalance := nans(len(c))

	for i := range imbalance {
		total := buyN[i] + sellN[i]

		switch {
		case total > 0:
			imbalance[i] = (buyN[i] - sellN[i]) / total
		case total == 0:
			imbalance[i] = 0
		}
	}

	return [][]float64{buyN, sellN, imbalance}, nil
}

// Agg folds one day's values into a single number.
type Agg string

const (
	AggFirst Agg = "first"
	AggLast  Agg = "last"
	AggMax   Agg = "max"
	AggMin   Agg = "min"
	AggSum   Agg = "sum"
)

func (a Agg) fold(values []float64) float64 {
	out := values[0]

	switch a {
	case AggFirst:
	case AggLast:
		out = values[len(values)-1]
	case AggMax:
		for _, v := range values[1:] {
			out = max(out, v)
		}
	case AggMin:
		for _, v := range values[1:] {
			out = min(out, v)
		}
	case AggSum:
		for _, v := range values[1:] {
			out += v
		}
	}

	return out
}

func (a Agg) valid() bool {
	switch a {
	case AggFirst, AggLast, AggMax, AggMin, AggSum:
		return true
	}

	return false
}

// ShiftDays aggregates a column per calendar date and reports, on every row,
// the aggregate of the date n trading days earlier.
type ShiftDays struct {
	N   int
	Agg Agg
	Col pricestore.Col
}

func (s ShiftDays) String() string {
	return fmt.Sprintf("shiftdays(%d,%s%s)", s.N, s.Agg, colSuffix(s.Col))
}

func (s ShiftDays) SelectInputs(store *pricestore.PriceStore) [][]float64 {
	return selectCols(store, colOr(s.Col))
}

func (s ShiftDays) Compute(inputs [][]float64, scope di.Scope) ([][]float64, error) {
	if err := checkPeriod("shiftdays", s.N, 1); err != nil {
		return nil, err
	}

	if !s.Agg.valid() {
		return nil, errors.Newf(errors.ErrCodeInvalidParameter, "unknown aggregation %q", s.Agg)
	}

	if err := checkInputs("shiftdays", inputs, 1); err != nil {
		return nil, err
	}

	x := inputs[0]
	times := scope.Times()

	if len(times) != len(x) {
		return nil, errors.Newf(errors.ErrCodeIndicatorCalculation, "shiftdays needs row times, got %d for %d rows", len(times), len(x))
	}

	var (
		days   []time.Time
		values [][]float64
		dayOf  = make([]int, len(x))
	)

	for i, t := range times {
		d := types.DateOf(t)
		if len(days) == 0 || !days[len(days)-1].Equal(d) {
			days = append(days, d)
			values = append(values, nil)
		}

		dayOf[i] = len(days) - 1
		values[len(values)-1] = append(values[len(values)-1], x[i])
	}

	if !sort.SliceIsSorted(days, func(a, b int) bool { return days[a].Before(days[b]) }) {
		return nil, errors.New(errors.ErrCodeNonMonotonicTime, "shiftdays rows are not in time order")
	}

	folded := make([]float64, len(days))
	for d, vs := range values {
		folded[d] = s.Agg.fold(vs)
	}

	out := nans(len(x))

	for i, d := range dayOf {
		if d >= s.N {
			out[i] = folded[d-s.N]
		}
	}

	return [][]float64{out}, nil
}
