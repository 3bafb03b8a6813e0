package indicator

import (
	"fmt"

	"github.com/gammazero/deque"
	"gonum.org/v1/gonum/stat"

	"github.com/baiguoname/qust-sub001/internal/di"
	"github.com/baiguoname/qust-sub001/internal/pricestore"
)

// rollingMean sums each window from scratch so equal inputs give bit-equal
// means regardless of what preceded them.
func rollingMean(x []float64, n int) []float64 {
	out := rollingSum(x, n)
	for i := range out {
		out[i] /= float64(n)
	}

	return out
}

func rollingSum(x []float64, n int) []float64 {
	out := nans(len(x))

	for i := n - 1; i < len(x); i++ {
		sum := 0.0
		for _, v := range x[i-n+1 : i+1] {
			sum += v
		}

		out[i] = sum
	}

	return out
}

func rollingStd(x []float64, n int) []float64 {
	out := nans(len(x))

	for i := n - 1; i < len(x); i++ {
		out[i] = stat.StdDev(x[i-n+1:i+1], nil)
	}

	return out
}

// rollingExtreme keeps a monotonic deque of indices; better(a, b) reports
// whether a should evict b.
func rollingExtreme(x []float64, n int, better func(a, b float64) bool) []float64 {
	out := nans(len(x))

	var window deque.Deque[int]

	for i, v := range x {
		for window.Len() > 0 && better(v, x[window.Back()]) {
			window.PopBack()
		}

		window.PushBack(i)

		if window.Front() <= i-n {
			window.PopFront()
		}

		if i >= n-1 {
			out[i] = x[window.Front()]
		}
	}

	return out
}

func rollingMin(x []float64, n int) []float64 {
	return rollingExtreme(x, n, func(a, b float64) bool { return a <= b })
}

func rollingMax(x []float64, n int) []float64 {
	return rollingExtreme(x, n, func(a, b float64) bool { return a >= b })
}

func momentum(x []float64, n int) []float64 {
	out := nans(len(x))
	for i := n; i < len(x); i++ {
		out[i] = x[i] - x[i-n]
	}

	return out
}

func colSuffix(c pricestore.Col) string {
	if c == "" || c == pricestore.ColClose {
		return ""
	}

	return "," + string(c)
}

// MA is the simple moving average of one column, close by default.
type MA struct {
	N   int
	Col pricestore.Col
}

func (m MA) String() string { return fmt.Sprintf("ma(%d%s)", m.N, colSuffix(m.Col)) }

func (m MA) Lookback() int { return m.N }

func (m MA) SelectInputs(store *pricestore.PriceStore) [][]float64 {
	return selectCols(store, colOr(m.Col))
}

func (m MA) Compute(inputs [][]float64, _ di.Scope) ([][]float64, error) {
	if err := checkPeriod("ma", m.N, 1); err != nil {
		return nil, err
	}

	if err := checkInputs("ma", inputs, 1); err != nil {
		return nil, err
	}

	return [][]float64{rollingMean(inputs[0], m.N)}, nil
}

// CrossMA outputs a short and a long moving average of close.
type CrossMA struct {
	Short int
	Long  int
}

func (m CrossMA) String() string { return fmt.Sprintf("crossma(%d,%d)", m.Short, m.Long) }

func (m CrossMA) Lookback() int { return max(m.Short, m.Long) }

func (m CrossMA) SelectInputs(store *pricestore.PriceStore) [][]float64 {
	return selectCols(store, pricestore.ColClose)
}

func (m CrossMA) Compute(inputs [][]float64, _ di.Scope) ([][]float64, error) {
	if err := checkPeriod("crossma short", m.Short, 1); err != nil {
		return nil, err
	}

	if err := checkPeriod("crossma long", m.Long, 1); err != nil {
		return nil, err
	}

	if err := checkInputs("crossma", inputs, 1); err != nil {
		return nil, err
	}

	return [][]float64{rollingMean(inputs[0], m.Short), rollingMean(inputs[0], m.Long)}, nil
}

// Sum is the rolling sum of one column, close by default.
type Sum struct {
	N   int
	Col pricestore.Col
}

func (s Sum) String() string { return fmt.Sprintf("sum(%d%s)", s.N, colSuffix(s.Col)) }

func (s Sum) Lookback() int { return s.N }

func (s Sum) SelectInputs(store *pricestore.PriceStore) [][]float64 {
	return selectCols(store, colOr(s.Col))
}

func (s Sum) Compute(inputs [][]float64, _ di.Scope) ([][]float64, error) {
	if err := checkPeriod("sum", s.N, 1); err != nil {
		return nil, err
	}

	if err := checkInputs("sum", inputs, 1); err != nil {
		return nil, err
	}

	return [][]float64{rollingSum(inputs[0], s.N)}, nil
}

// Std is the rolling sample standard deviation of close.
type Std struct {
	N int
}

func (s Std) String() string { return fmt.Sprintf("std(%d)", s.N) }

func (s Std) Lookback() int { return s.N }

func (s Std) SelectInputs(store *pricestore.PriceStore) [][]float64 {
	return selectCols(store, pricestore.ColClose)
}

func (s Std) Compute(inputs [][]float64, _ di.Scope) ([][]float64, error) {
	if err := checkPeriod("std", s.N, 2); err != nil {
		return nil, err
	}

	if err := checkInputs("std", inputs, 1); err != nil {
		return nil, err
	}

	return [][]float64{rollingStd(inputs[0], s.N)}, nil
}

// Lowest is the rolling minimum of low.
type Lowest struct {
	N int
}

func (l Lowest) String() string { return fmt.Sprintf("lowest(%d)", l.N) }

func (l Lowest) Lookback() int { return l.N }

func (l Lowest) SelectInputs(store *pricestore.PriceStore) [][]float64 {
	return selectCols(store, pricestore.ColLow)
}

func (l Lowest) Compute(inputs [][]float64, _ di.Scope) ([][]float64, error) {
	if err := checkPeriod("lowest", l.N, 1); err != nil {
		return nil, err
	}

	if err := checkInputs("lowest", inputs, 1); err != nil {
		return nil, err
	}

	return [][]float64{rollingMin(inputs[0], l.N)}, nil
}

// Highest is the rolling maximum of high.
type Highest struct {
	N int
}

func (h Highest) String() string { return fmt.Sprintf("highest(%d)", h.N) }

func (h Highest) Lookback() int { return h.N }

func (h Highest) SelectInputs(store *pricestore.PriceStore) [][]float64 {
	return selectCols(store, pricestore.ColHigh)
}

func (h Highest) Compute(inputs [][]float64, _ di.Scope) ([][]float64, error) {
	if err := checkPeriod("highest", h.N, 1); err != nil {
		return nil, err
	}

	if err := checkInputs("highest", inputs, 1); err != nil {
		return nil, err
	}

	return [][]float64{rollingMax(inputs[0], h.N)}, nil
}

// Mom is close minus close n bars earlier.
type Mom struct {
	N int
}

func (m Mom) String() string { return fmt.Sprintf("mom(%d)", m.N) }

func (m Mom) Lookback() int { return m.N + 1 }

func (m Mom) SelectInputs(store *pricestore.PriceStore) [][]float64 {
	return selectCols(store, pricestore.ColClose)
}

func (m Mom) Compute(inputs [][]float64, _ di.Scope) ([][]float64, error) {
	if err := checkPeriod("mom", m.N, 1); err != nil {
		return nil, err
	}

	if err := checkInputs("mom", inputs, 1); err != nil {
		return nil, err
	}

	return [][]float64{momentum(inputs[0], m.N)}, nil
}
