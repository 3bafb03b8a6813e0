package indicator

import (
	"fmt"
	"math"

	"github.com/baiguoname/qust-sub001/internal/di"
	"github.com/baiguoname/qust-sub001/internal/pricestore"
)

// ema seeds with the simple average of the first n valid values and then
// applies alpha = 2/(n+1). Leading NaNs are skipped.
func ema(x []float64, n int) []float64 {
	out := nans(len(x))

	start := 0
	for start < len(x) && math.IsNaN(x[start]) {
		start++
	}

	if len(x)-start < n {
		return out
	}

	seed := 0.0
	for _, v := range x[start : start+n] {
		seed += v
	}

	prev := seed / float64(n)
	out[start+n-1] = prev
	alpha := 2.0 / float64(n+1)

	for i := start + n; i < len(x); i++ {
		prev = x[i]*alpha + prev*(1-alpha)
		out[i] = prev
	}

	return out
}

// wilder is the running average used by RSI and ATR, seeded like ema.
func wilder(x []float64, n int, from int) []float64 {
	out := nans(len(x))
	if len(x)-from < n {
		return out
	}

	sum := 0.0
	for _, v := range x[from : from+n] {
		sum += v
	}

	prev := sum / float64(n)
	out[from+n-1] = prev

	for i := from + n; i < len(x); i++ {
		prev = (prev*float64(n-1) + x[i]) / float64(n)
		out[i] = prev
	}

	return out
}

// EMA is the exponential moving average of close.
type EMA struct {
	N int
}

func (e EMA) String() string { return fmt.Sprintf("ema(%d)", e.N) }

func (e EMA) SelectInputs(store *pricestore.PriceStore) [][]float64 {
	return selectCols(store, pricestore.ColClose)
}

func (e EMA) Compute(inputs [][]float64, _ di.Scope) ([][]float64, error) {
	if err := checkPeriod("ema", e.N, 1); err != nil {
		return nil, err
	}

	if err := checkInputs("ema", inputs, 1); err != nil {
		return nil, err
	}

	return [][]float64{ema(inputs[0], e.N)}, nil
}

// MACD outputs the macd line, its signal line and their difference.
type MACD struct {
	Fast   int
	Slow   int
	Signal int
}

func (m MACD) String() string { return fmt.Sprintf("macd(%d,%d,%d)", m.Fast, m.Slow, m.Signal) }

func (m MACD) SelectInputs(store *pricestore.PriceStore) [][]float64 {
	return selectCols(store, pricestore.ColClose)
}

func (m MACD) Compute(inputs [][]float64, _ di.Scope) ([][]float64, error) {
	if err := checkPeriod("macd fast", m.Fast, 1); err != nil {
		return nil, err
	}

	if err := checkPeriod("macd slow", m.Slow, m.Fast+1); err != nil {
		return nil, err
	}

	if err := checkPeriod("macd signal", m.Signal, 1); err != nil {
		return nil, err
	}

	if err := checkInputs("macd", inputs, 1); err != nil {
		return nil, err
	}

	fast := ema(inputs[0], m.Fast)
	slow := ema(inputs[0], m.Slow)

	line := make([]float64, len(fast))
	for i := range line {
		line[i] = fast[i] - slow[i]
	}

	signal := ema(line, m.Signal)

	hist := make([]float64, len(line))
	for i := range hist {
		hist[i] = line[i] - signal[i]
	}

	return [][]float64{line, signal, hist}, nil
}
