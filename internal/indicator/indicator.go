// Package indicator contains the feature kernels evaluated by pipelines.
//
// A Ta selects its input columns from a price store and computes output
// columns for one partition at a time. Outputs always have the length of the
// partition; rows without enough history are NaN.
package indicator

import (
	"math"

	"github.com/baiguoname/qust-sub001/internal/di"
	"github.com/baiguoname/qust-sub001/internal/pricestore"
	"github.com/baiguoname/qust-sub001/pkg/errors"
)

// Ta is a feature kernel. String is its stable descriptor.
type Ta interface {
	String() string
	SelectInputs(store *pricestore.PriceStore) [][]float64
	Compute(inputs [][]float64, scope di.Scope) ([][]float64, error)
}

// Windowed is implemented by kernels whose last output row depends only on the
// last Lookback input rows of the partition. Such kernels can be extended one
// row at a time.
type Windowed interface {
	Lookback() int
}

// PostProcessor runs over the concatenated output of every partition.
type PostProcessor interface {
	String() string
	Process(cols [][]float64) [][]float64
}

// PostProcessed is implemented by kernels carrying a post-processor.
type PostProcessed interface {
	Post() PostProcessor
}

// Fore wraps a Ta with a post-processor.
type Fore struct {
	Inner Ta
	Proc  PostProcessor
}

var _ PostProcessed = Fore{}

func (f Fore) String() string {
	return "fore(" + f.Inner.String() + "," + f.Proc.String() + ")"
}

func (f Fore) SelectInputs(store *pricestore.PriceStore) [][]float64 {
	return f.Inner.SelectInputs(store)
}

func (f Fore) Compute(inputs [][]float64, scope di.Scope) ([][]float64, error) {
	return f.Inner.Compute(inputs, scope)
}

func (f Fore) Post() PostProcessor {
	return f.Proc
}

func selectCols(store *pricestore.PriceStore, cols ...pricestore.Col) [][]float64 {
	out := make([][]float64, len(cols))
	for i, c := range cols {
		out[i] = store.Column(c)
	}

	return out
}

func colOr(c pricestore.Col) pricestore.Col {
	if c == "" {
		return pricestore.ColClose
	}

	return c
}

func nans(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}

	return out
}

func checkPeriod(name string, n, least int) error {
	if n < least {
		return errors.Newf(errors.ErrCodeInvalidPeriod, "%s period must be at least %d, got %d", name, least, n)
	}

	return nil
}

func checkInputs(name string, inputs [][]float64, want int) error {
	if len(inputs) != want {
		return errors.Newf(errors.ErrCodeColumnCount, "%s takes %d input columns, got %d", name, want, len(inputs))
	}

	return nil
}
