// Package converter resamples a price store into another price store.
package converter

import (
	"math"

	"github.com/baiguoname/qust-sub001/internal/partition"
	"github.com/baiguoname/qust-sub001/internal/pricestore"
)

// Converted is a resampled store plus, for each of its rows, the last raw row
// folded into it.
type Converted struct {
	Store  *pricestore.PriceStore
	RawEnd []int
}

// Converter is a pure function of its input store. String is the stable
// descriptor used in cache keys; equal descriptors produce equal output.
type Converter interface {
	String() string
	Convert(store *pricestore.PriceStore) (*Converted, error)
}

// CutIndex returns the rows of c's output at which a trading session starts.
func CutIndex(c Converter, store *pricestore.PriceStore) ([]int, error) {
	converted, err := c.Convert(store)
	if err != nil {
		return nil, err
	}

	return partition.SessionStarts(converted.Store.T), nil
}

// VertBack spreads columns computed on the converted axis back onto rawLen
// raw rows. Each value lands on the raw row that closed its bar; every other
// row is NaN.
func VertBack(conv *Converted, rawLen int, cols [][]float64) [][]float64 {
	if isIdentity(conv.RawEnd, rawLen) {
		return cols
	}

	out := make([][]float64, len(cols))

	for j, col := range cols {
		back := make([]float64, rawLen)
		for i := range back {
			back[i] = math.NaN()
		}

		for k, raw := range conv.RawEnd {
			if k < len(col) && raw < rawLen {
				back[raw] = col[k]
			}
		}

		out[j] = back
	}

	return out
}

func isIdentity(rawEnd []int, rawLen int) bool {
	if len(rawEnd) != rawLen {
		return false
	}

	for i, r := range rawEnd {
		if r != i {
			return false
		}
	}

	return true
}

func identityEnds(n int) []int {
	ends := make([]int, n)
	for i := range ends {
		ends[i] = i
	}

	return ends
}

type ori struct{}

// Ori passes the raw store through unchanged.
func Ori() Converter {
	return ori{}
}

func (ori) String() string { return "ori" }

func (ori) Convert(store *pricestore.PriceStore) (*Converted, error) {
	return &Converted{Store: store, RawEnd: identityEnds(store.Len())}, nil
}
