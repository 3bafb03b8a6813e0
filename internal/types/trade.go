package types

import "time"

// TradeInfo records one fill.
type TradeInfo struct {
	T      time.Time   `json:"t"`
	Action OrderAction `json:"action"`
}

// Hold is the today-long/today-short contract book.
type Hold struct {
	TdLo float64 `json:"td_lo"`
	TdSh float64 `json:"td_sh"`
}

// Net returns long minus short.
func (h Hold) Net() float64 {
	return h.TdLo - h.TdSh
}

// Apply folds n filled contracts of the given action into the book.
func (h *Hold) Apply(kind OrderKind, n float64) {
	switch kind {
	case OrderLoOpen:
		h.TdLo += n
	case OrderShClose:
		h.TdLo -= n
	case OrderShOpen:
		h.TdSh += n
	case OrderLoClose:
		h.TdSh -= n
	case OrderNo, OrderCancelOrder:
	}
}

type Side string

const (
	SideNo    Side = "NO"
	SideLong  Side = "LONG"
	SideShort Side = "SHORT"
)

// NormHold is the normalised position a position machine wants to hold on a bar.
type NormHold struct {
	Side Side    `json:"side"`
	Size float64 `json:"size"`
}

func Flat() NormHold { return NormHold{Side: SideNo} }

// HoldOf converts a signed size into a NormHold.
func HoldOf(signed float64) NormHold {
	switch {
	case signed > 0:
		return NormHold{Side: SideLong, Size: signed}
	case signed < 0:
		return NormHold{Side: SideShort, Size: -signed}
	default:
		return Flat()
	}
}

// Signed returns +Size for long, -Size for short and 0 when flat.
func (h NormHold) Signed() float64 {
	switch h.Side {
	case SideLong:
		return h.Size
	case SideShort:
		return -h.Size
	default:
		return 0
	}
}

func (h NormHold) IsFlat() bool {
	return h.Side == SideNo || h.Side == "" || h.Size == 0
}
