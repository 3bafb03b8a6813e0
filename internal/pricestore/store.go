// Package pricestore holds one contract's column-oriented OHLCV series.
package pricestore

import (
	"time"

	"github.com/baiguoname/qust-sub001/internal/types"
	"github.com/baiguoname/qust-sub001/pkg/errors"
)

type Col string

const (
	ColOpen   Col = "o"
	ColHigh   Col = "h"
	ColLow    Col = "l"
	ColClose  Col = "c"
	ColVolume Col = "v"
)

// PriceStore is an immutable set of equal-length columns. ImmutInfo is nil
// when the series carries no per-bar matrices.
//
// Append may grow the shared backing arrays past the length seen by older
// stores, so appends to one lineage must come from a single goroutine.
type PriceStore struct {
	T         []time.Time
	O         []float32
	H         []float32
	L         []float32
	C         []float32
	V         []float32
	Ki        []types.BarKey
	ImmutInfo [][][]float32
}

// New returns an empty store with room for capacity rows.
func New(capacity int) *PriceStore {
	return &PriceStore{
		T:         make([]time.Time, 0, capacity),
		O:         make([]float32, 0, capacity),
		H:         make([]float32, 0, capacity),
		L:         make([]float32, 0, capacity),
		C:         make([]float32, 0, capacity),
		V:         make([]float32, 0, capacity),
		Ki:        make([]types.BarKey, 0, capacity),
		ImmutInfo: nil,
	}
}

// FromBars builds a store from rows. ImmutInfo is kept only when every bar
// carries a matrix.
func FromBars(bars []types.Bar) *PriceStore {
	p := New(len(bars))
	keepInfo := len(bars) > 0

	for _, b := range bars {
		if b.ImmutInfo == nil {
			keepInfo = false
		}
	}

	for _, b := range bars {
		p.push(b, keepInfo)
	}

	return p
}

func (p *PriceStore) push(b types.Bar, keepInfo bool) {
	p.T = append(p.T, b.T)
	p.O = append(p.O, b.O)
	p.H = append(p.H, b.H)
	p.L = append(p.L, b.L)
	p.C = append(p.C, b.C)
	p.V = append(p.V, b.V)
	p.Ki = append(p.Ki, b.Ki)

	if keepInfo {
		p.ImmutInfo = append(p.ImmutInfo, b.ImmutInfo)
	}
}

func (p *PriceStore) Len() int {
	return len(p.T)
}

func (p *PriceStore) HasImmutInfo() bool {
	return p.ImmutInfo != nil
}

// Row returns bar i.
func (p *PriceStore) Row(i int) types.Bar {
	b := types.Bar{
		T:  p.T[i],
		O:  p.O[i],
		H:  p.H[i],
		L:  p.L[i],
		C:  p.C[i],
		V:  p.V[i],
		Ki: p.Ki[i],
	}
	if p.HasImmutInfo() {
		b.ImmutInfo = p.ImmutInfo[i]
	}

	return b
}

// Last returns the final bar. The store must not be empty.
func (p *PriceStore) Last() types.Bar {
	return p.Row(p.Len() - 1)
}

// Append returns a store with b added as the last row.
func (p *PriceStore) Append(b types.Bar) *PriceStore {
	next := &PriceStore{
		T:  append(p.T, b.T),
		O:  append(p.O, b.O),
		H:  append(p.H, b.H),
		L:  append(p.L, b.L),
		C:  append(p.C, b.C),
		V:  append(p.V, b.V),
		Ki: append(p.Ki, b.Ki),
	}

	if p.HasImmutInfo() || (p.Len() == 0 && b.ImmutInfo != nil) {
		next.ImmutInfo = append(p.ImmutInfo, b.ImmutInfo)
	}

	return next
}

// Slice returns rows [lo, hi) sharing the underlying arrays.
func (p *PriceStore) Slice(lo, hi int) *PriceStore {
	s := &PriceStore{
		T:  p.T[lo:hi:hi],
		O:  p.O[lo:hi:hi],
		H:  p.H[lo:hi:hi],
		L:  p.L[lo:hi:hi],
		C:  p.C[lo:hi:hi],
		V:  p.V[lo:hi:hi],
		Ki: p.Ki[lo:hi:hi],
	}
	if p.HasImmutInfo() {
		s.ImmutInfo = p.ImmutInfo[lo:hi:hi]
	}

	return s
}

// Concat stacks stores vertically. ImmutInfo survives only if every part has it.
func Concat(parts ...*PriceStore) *PriceStore {
	n := 0
	keepInfo := len(parts) > 0

	for _, part := range parts {
		n += part.Len()
		if !part.HasImmutInfo() {
			keepInfo = false
		}
	}

	out := New(n)
	for _, part := range parts {
		out.T = append(out.T, part.T...)
		out.O = append(out.O, part.O...)
		out.H = append(out.H, part.H...)
		out.L = append(out.L, part.L...)
		out.C = append(out.C, part.C...)
		out.V = append(out.V, part.V...)
		out.Ki = append(out.Ki, part.Ki...)

		if keepInfo {
			out.ImmutInfo = append(out.ImmutInfo, part.ImmutInfo...)
		}
	}

	return out
}

// Column returns a float64 copy of one price column.
func (p *PriceStore) Column(col Col) []float64 {
	var src []float32

	switch col {
	case ColOpen:
		src = p.O
	case ColHigh:
		src = p.H
	case ColLow:
		src = p.L
	case ColClose:
		src = p.C
	case ColVolume:
		src = p.V
	default:
		return nil
	}

	out := make([]float64, len(src))
	for i, v := range src {
		out[i] = float64(v)
	}

	return out
}

// Validate checks the store invariants and reports the first offending row.
func (p *PriceStore) Validate() error {
	n := len(p.T)
	if len(p.O) != n || len(p.H) != n || len(p.L) != n || len(p.C) != n || len(p.V) != n || len(p.Ki) != n {
		return errors.Newf(errors.ErrCodeColumnLength,
			"column lengths differ: t=%d o=%d h=%d l=%d c=%d v=%d ki=%d",
			n, len(p.O), len(p.H), len(p.L), len(p.C), len(p.V), len(p.Ki))
	}

	if p.ImmutInfo != nil && len(p.ImmutInfo) != n {
		return errors.Newf(errors.ErrCodeColumnLength, "immut_info has %d rows, expected %d", len(p.ImmutInfo), n)
	}

	for i := 0; i < n; i++ {
		if i > 0 && p.T[i].Before(p.T[i-1]) {
			return errors.NewRowError(errors.ErrCodeNonMonotonicTime, i, "timestamp %s before previous %s", p.T[i], p.T[i-1])
		}

		if p.Ki[i].OpenTime.After(p.T[i]) {
			return errors.NewRowError(errors.ErrCodeMalformedInput, i, "open time %s after bar time %s", p.Ki[i].OpenTime, p.T[i])
		}

		if err := CheckOHLC(p.O[i], p.H[i], p.L[i], p.C[i]); err != nil {
			return errors.NewRowError(errors.ErrCodeInvertedBar, i, "%v", err)
		}
	}

	return nil
}

// CheckOHLC verifies h >= max(o,c) >= min(o,c) >= l.
func CheckOHLC(o, h, l, c float32) error {
	hi, lo := o, c
	if c > o {
		hi, lo = c, o
	}

	if h < hi || lo < l {
		return errors.Newf(errors.ErrCodeInvertedBar, "inverted bar o=%g h=%g l=%g c=%g", o, h, l, c)
	}

	return nil
}
