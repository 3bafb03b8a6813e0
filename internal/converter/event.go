package converter

import (
	"github.com/baiguoname/qust-sub001/internal/inter"
	"github.com/baiguoname/qust-sub001/internal/kline"
	"github.com/baiguoname/qust-sub001/internal/pricestore"
)

type event struct {
	spec *inter.InterSpec
}

// Event resamples into one bar per window of spec. Rows outside every window
// are skipped and counted in the next bar's PassLast.
func Event(spec *inter.InterSpec) Converter {
	return event{spec: spec}
}

func (c event) String() string {
	return "event(" + c.spec.String() + ")"
}

func (c event) Convert(store *pricestore.PriceStore) (*Converted, error) {
	m := kline.NewMachine(c.spec)

	var out output

	lastFolded := -1

	for i := 0; i < store.Len(); i++ {
		tr := m.Update(kline.QuoteFromBar(store.Row(i)))

		if tr.Finished.IsSome() {
			out.emit(tr.Finished.Unwrap(), lastFolded)
		}

		if tr.State == kline.StateBegin || tr.State == kline.StateMerging {
			lastFolded = i
		}
	}

	if last := m.Flush(); last.IsSome() {
		out.emit(last.Unwrap(), lastFolded)
	}

	return out.converted(store.HasImmutInfo()), nil
}
