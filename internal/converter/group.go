package converter

import (
	"github.com/baiguoname/qust-sub001/internal/pricestore"
	"github.com/baiguoname/qust-sub001/internal/types"
)

// grouper folds consecutive raw rows into one bar.
type grouper struct {
	bar   types.Bar
	open  bool
	first int
}

func (g *grouper) add(store *pricestore.PriceStore, i int) {
	row := store.Row(i)

	if !g.open {
		g.bar = row
		g.bar.Ki = types.BarKey{
			OpenTime: row.Ki.OpenTime,
			PassThis: row.Ki.PassThis,
			PassLast: row.Ki.PassLast,
		}
		g.bar.ImmutInfo = appendRows(nil, row.ImmutInfo)
		g.open = true
		g.first = i

		return
	}

	g.bar.T = row.T
	g.bar.H = max(g.bar.H, row.H)
	g.bar.L = min(g.bar.L, row.L)
	g.bar.C = row.C
	g.bar.V += row.V
	g.bar.Ki.PassThis += row.Ki.PassThis
	g.bar.ImmutInfo = appendRows(g.bar.ImmutInfo, row.ImmutInfo)
}

func (g *grouper) take() types.Bar {
	g.open = false

	return g.bar
}

func appendRows(dst, src [][]float32) [][]float32 {
	if src == nil {
		return dst
	}

	out := make([][]float32, 0, len(dst)+len(src))
	out = append(out, dst...)

	return append(out, src...)
}

// output collects emitted bars and their raw end rows.
type output struct {
	bars []types.Bar
	ends []int
}

func (o *output) emit(b types.Bar, rawEnd int) {
	o.bars = append(o.bars, b)
	o.ends = append(o.ends, rawEnd)
}

func (o *output) converted(carryInfo bool) *Converted {
	store := pricestore.FromBars(o.bars)
	if !carryInfo {
		store.ImmutInfo = nil
	}

	return &Converted{Store: store, RawEnd: o.ends}
}
