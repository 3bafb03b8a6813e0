package converter

import (
	"github.com/baiguoname/qust-sub001/internal/pricestore"
	"github.com/baiguoname/qust-sub001/internal/types"
)

type ha struct{}

// Ha derives Heiken-Ashi bars. Per-bar matrices are dropped.
func Ha() Converter {
	return ha{}
}

func (ha) String() string { return "ha" }

func (ha) Convert(store *pricestore.PriceStore) (*Converted, error) {
	n := store.Len()
	bars := make([]types.Bar, n)

	var prevO, prevC float32

	for i := 0; i < n; i++ {
		o, h, l, c := store.O[i], store.H[i], store.L[i], store.C[i]

		haC := (o + h + l + c) / 4
		haO := o

		if i > 0 {
			haO = (prevO + prevC) / 2
		}

		bars[i] = types.Bar{
			T:  store.T[i],
			O:  haO,
			H:  max(h, haO, haC),
			L:  min(l, haO, haC),
			C:  haC,
			V:  store.V[i],
			Ki: store.Ki[i],
		}

		prevO, prevC = haO, haC
	}

	return &Converted{Store: pricestore.FromBars(bars), RawEnd: identityEnds(n)}, nil
}
