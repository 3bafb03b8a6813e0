package indicator

import (
	"fmt"
	"math"

	"github.com/baiguoname/qust-sub001/pkg/errors"
)

func errorf(format string, args ...any) error {
	return errors.Newf(errors.ErrCodeInvalidParameter, format, args...)
}

type ffill struct{}

// FFill carries the last non-NaN value forward in every column.
func FFill() PostProcessor {
	return ffill{}
}

func (ffill) String() string { return "ffill" }

func (ffill) Process(cols [][]float64) [][]float64 {
	out := make([][]float64, len(cols))

	for j, col := range cols {
		filled := make([]float64, len(col))
		last := math.NaN()

		for i, v := range col {
			if !math.IsNaN(v) {
				last = v
			}

			filled[i] = last
		}

		out[j] = filled
	}

	return out
}

type rankPost struct {
	n int
}

// RollingRank replaces every column with its rolling rank over n rows of the
// whole history, across partition boundaries.
func RollingRank(n int) PostProcessor {
	return rankPost{n: max(n, 1)}
}

func (r rankPost) String() string { return fmt.Sprintf("rollrank(%d)", r.n) }

func (r rankPost) Process(cols [][]float64) [][]float64 {
	out := make([][]float64, len(cols))
	for j, col := range cols {
		out[j] = rollingRank(col, r.n)
	}

	return out
}
