package backtest

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// CommSlip charges Rate of traded notional as commission and moves every fill
// SlipTicks ticks against the trader.
type CommSlip struct {
	Rate      float64 `yaml:"rate" json:"rate" validate:"gte=0"`
	SlipTicks float64 `yaml:"slip_ticks" json:"slip_ticks" validate:"gte=0"`
}

// Zero charges nothing.
func Zero() CommSlip { return CommSlip{} }

func (c CommSlip) String() string {
	return fmt.Sprintf("commslip(%g,%g)", c.Rate, c.SlipTicks)
}

// Slipped returns price moved against a buy or a sell by the slippage.
func (c CommSlip) Slipped(price float64, buy bool, tickSize float64) float64 {
	slip := decimal.NewFromFloat(c.SlipTicks).Mul(decimal.NewFromFloat(tickSize))
	p := decimal.NewFromFloat(price)

	if buy {
		p = p.Add(slip)
	} else {
		p = p.Sub(slip)
	}

	v, _ := p.Float64()

	return v
}

// Commission returns the fee for size contracts filled at price.
func (c CommSlip) Commission(size, price, multiplier float64) decimal.Decimal {
	if size < 0 {
		size = -size
	}

	return decimal.NewFromFloat(c.Rate).
		Mul(decimal.NewFromFloat(size)).
		Mul(decimal.NewFromFloat(price)).
		Mul(decimal.NewFromFloat(multiplier))
}
