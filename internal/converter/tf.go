package converter

import (
	"fmt"

	"github.com/baiguoname/qust-sub001/internal/pricestore"
	"github.com/baiguoname/qust-sub001/pkg/errors"
)

type tf struct {
	m int
	n int
}

// TF groups every n raw bars into one. m shifts the grouping phase so that
// the first group holds n-m bars.
func TF(m, n int) (Converter, error) {
	if n < 1 || m < 0 || m >= n {
		return nil, errors.Newf(errors.ErrCodeInvalidParameter, "tf needs n >= 1 and 0 <= m < n, got m=%d n=%d", m, n)
	}

	return tf{m: m, n: n}, nil
}

func (c tf) String() string {
	return fmt.Sprintf("tf(%d,%d)", c.m, c.n)
}

func (c tf) Convert(store *pricestore.PriceStore) (*Converted, error) {
	if c.n == 1 {
		return ori{}.Convert(store)
	}

	var (
		out output
		g   grouper
	)

	for i := 0; i < store.Len(); i++ {
		if g.open && (i+c.m)/c.n != (g.first+c.m)/c.n {
			out.emit(g.take(), i-1)
		}

		g.add(store, i)
	}

	if g.open {
		out.emit(g.take(), store.Len()-1)
	}

	return out.converted(store.HasImmutInfo()), nil
}
