package backtest

import (
	"math"
	"time"

	"github.com/shopspring/decimal"
	"gonum.org/v1/gonum/stat"

	"github.com/baiguoname/qust-sub001/internal/types"
)

// TradingDays annualises the daily Sharpe ratio.
const TradingDays = 252

// DayPnl is the P&L of one calendar date.
type DayPnl struct {
	Date time.Time `json:"date"`
	Pnl  float64   `json:"pnl"`
}

// DayAgg groups the deltas of res by the date of each bar, in bar order.
func DayAgg(res *PnlRes) []DayPnl {
	var (
		days []DayPnl
		acc  decimal.Decimal
	)

	for i, t := range res.T {
		date := types.DateOf(t)
		if len(days) == 0 || !days[len(days)-1].Date.Equal(date) {
			if len(days) > 0 {
				days[len(days)-1].Pnl, _ = acc.Float64()
			}

			days = append(days, DayPnl{Date: date})
			acc = decimal.Zero
		}

		acc = acc.Add(decimal.NewFromFloat(res.PnlDelta[i]))
	}

	if len(days) > 0 {
		days[len(days)-1].Pnl, _ = acc.Float64()
	}

	return days
}

// Summary condenses a result into headline statistics.
type Summary struct {
	Total       float64 `json:"total"`
	Sharpe      float64 `json:"sharpe"`
	MaxDrawdown float64 `json:"max_drawdown"`
	Trades      int     `json:"trades"`
	Fees        float64 `json:"fees"`
	Days        int     `json:"days"`
}

// Summarize computes the Summary of res. Sharpe is annualised from daily
// P&L and is zero with fewer than two days or no variance.
func Summarize(res *PnlRes) Summary {
	days := DayAgg(res)
	daily := make([]float64, len(days))

	for i, d := range days {
		daily[i] = d.Pnl
	}

	s := Summary{
		Total:       res.Total(),
		MaxDrawdown: MaxDrawdown(res.Equity),
		Trades:      len(res.Trades),
		Days:        len(days),
	}

	if len(daily) >= 2 {
		mean, std := stat.MeanStdDev(daily, nil)
		if std > 0 {
			s.Sharpe = mean / std * math.Sqrt(TradingDays)
		}
	}

	fees := decimal.Zero
	for _, f := range res.Trades {
		fees = fees.Add(decimal.NewFromFloat(f.Commission))
	}

	s.Fees, _ = fees.Float64()

	return s
}

// MaxDrawdown is the largest drop of equity from a running peak.
func MaxDrawdown(equity []float64) float64 {
	peak := math.Inf(-1)
	worst := 0.0

	for _, e := range equity {
		peak = math.Max(peak, e)
		worst = math.Max(worst, peak-e)
	}

	return worst
}
