package converter

import (
	"fmt"

	"gonum.org/v1/gonum/stat"

	"github.com/baiguoname/qust-sub001/internal/pricestore"
	"github.com/baiguoname/qust-sub001/pkg/errors"
)

type volFilter struct {
	n int
	k float64
}

// VolFilter groups raw bars until their summed volume reaches
// mean + k*std of the last n raw volumes, then emits one bar.
func VolFilter(n int, k float64) (Converter, error) {
	if n < 1 {
		return nil, errors.Newf(errors.ErrCodeInvalidPeriod, "volfilter window must be positive, got %d", n)
	}

	return volFilter{n: n, k: k}, nil
}

func (c volFilter) String() string {
	return fmt.Sprintf("volfilter(%d,%g)", c.n, c.k)
}

// Threshold returns the volume a group must reach when it includes row i.
func (c volFilter) Threshold(volumes []float64, i int) float64 {
	window := volumes[max(0, i-c.n+1) : i+1]
	if len(window) < 2 {
		return window[0]
	}

	mean, std := stat.MeanStdDev(window, nil)

	return mean + c.k*std
}

func (c volFilter) Convert(store *pricestore.PriceStore) (*Converted, error) {
	volumes := store.Column(pricestore.ColVolume)

	var (
		out output
		g   grouper
		acc float64
	)

	for i := 0; i < store.Len(); i++ {
		g.add(store, i)
		acc += volumes[i]

		if acc >= c.Threshold(volumes, i) {
			out.emit(g.take(), i)
			acc = 0
		}
	}

	if g.open {
		out.emit(g.take(), store.Len()-1)
	}

	return out.converted(store.HasImmutInfo()), nil
}
