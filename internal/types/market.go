package types

import "time"

// TickData is one top-of-book update. Ct is the number of ticks folded so far
// into the emerging bar and defaults to 1.
type TickData struct {
	T     time.Time `json:"t" csv:"t"`
	C     float32   `json:"c" csv:"c"`
	V     float32   `json:"v" csv:"v"`
	Bid1  float32   `json:"bid1" csv:"bid1"`
	Ask1  float32   `json:"ask1" csv:"ask1"`
	Bid1V float32   `json:"bid1_v" csv:"bid1_v"`
	Ask1V float32   `json:"ask1_v" csv:"ask1_v"`
	Ct    int       `json:"ct" csv:"-"`
}

// Mid returns the mid price of the top of book.
func (t TickData) Mid() float32 {
	return (t.Bid1 + t.Ask1) / 2
}

// BarKey is per-bar aggregation metadata.
type BarKey struct {
	// OpenTime is the opening instant of the aggregation window.
	OpenTime time.Time `json:"open_time"`
	// PassThis counts the ticks (or source bars) folded into the bar.
	PassThis int `json:"pass_this"`
	// PassLast counts the ticks skipped before the bar started.
	PassLast int `json:"pass_last"`
}

// Bar is a single row of a price store.
type Bar struct {
	T         time.Time
	O         float32
	H         float32
	L         float32
	C         float32
	V         float32
	Ki        BarKey
	ImmutInfo [][]float32
}

// Contract identifies one tradable instrument.
type Contract struct {
	Ticker string `yaml:"ticker" json:"ticker" validate:"required"`
	Code   string `yaml:"code" json:"code" validate:"required"`
}

func (c Contract) String() string {
	return c.Ticker + "." + c.Code
}
