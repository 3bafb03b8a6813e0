// Package backtest drives a DataInstance through a position machine bar by
// bar and accounts the resulting fills into a P&L series.
package backtest

import (
	"context"
	"sort"
	"time"

	"github.com/moznion/go-optional"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/baiguoname/qust-sub001/internal/di"
	"github.com/baiguoname/qust-sub001/internal/logger"
	"github.com/baiguoname/qust-sub001/internal/match"
	"github.com/baiguoname/qust-sub001/internal/ptm"
	"github.com/baiguoname/qust-sub001/internal/types"
	"github.com/baiguoname/qust-sub001/pkg/errors"
)

// DefaultEquity is the starting equity when Config leaves it unset.
const DefaultEquity = 1_000_000

// Config controls pricing and accounting of a run.
type Config struct {
	CommSlip   CommSlip
	TickSize   float64
	Multiplier float64
	Equity     float64
	// Match replaces close[i] as the fill price. Only OldBt and Mean are
	// meaningful on bars.
	Match  optional.Option[match.Kind]
	Logger *logger.Logger
}

func (c Config) withDefaults() (Config, match.Policy, error) {
	if c.Multiplier <= 0 {
		c.Multiplier = 1
	}

	if c.Equity == 0 {
		c.Equity = DefaultEquity
	}

	if c.TickSize < 0 || c.CommSlip.Rate < 0 || c.CommSlip.SlipTicks < 0 {
		return c, nil, errors.New(errors.ErrCodeBacktestConfigError, "tick size, commission and slippage must not be negative")
	}

	if c.Logger == nil {
		c.Logger = logger.NewNopLogger()
	}

	if c.Match.IsNone() {
		return c, nil, nil
	}

	kind := c.Match.Unwrap()
	if kind != match.KindOldBt && kind != match.KindMean {
		return c, nil, errors.Newf(errors.ErrCodeBacktestConfigError, "match policy %q needs quotes and cannot price bars", kind)
	}

	policy, err := match.ByKind(kind)
	if err != nil {
		return c, nil, errors.Wrap(errors.ErrCodeBacktestConfigError, "match policy", err)
	}

	return c, policy, nil
}

// Fill is one executed action.
type Fill struct {
	types.TradeInfo
	Bar        int     `json:"bar"`
	Commission float64 `json:"commission"`
}

// PnlRes is the per-bar result of a run. All slices are aligned with the
// DataInstance's bars.
type PnlRes struct {
	T        []time.Time `json:"t"`
	PnlDelta []float64   `json:"pnl_delta"`
	Position []float64   `json:"position"`
	Equity   []float64   `json:"equity"`
	Trades   []Fill      `json:"trades"`
}

func (r *PnlRes) Len() int { return len(r.T) }

// Total is the sum of all deltas.
func (r *PnlRes) Total() float64 {
	total := decimal.Zero
	for _, d := range r.PnlDelta {
		total = total.Add(decimal.NewFromFloat(d))
	}

	v, _ := total.Float64()

	return v
}

// Run backtests p on d. A Ptm4 is split into its parts, each part runs on
// its own book and the results are summed.
func Run(ctx context.Context, d *di.DataInstance, p ptm.Ptm, cfg Config) (*PnlRes, error) {
	cfg, policy, err := cfg.withDefaults()
	if err != nil {
		return nil, err
	}

	parts := ptm.Parts(p)
	results := make([]*PnlRes, 0, len(parts))

	for _, part := range parts {
		res, err := runBook(ctx, d, part, cfg, policy)
		if err != nil {
			return nil, err
		}

		results = append(results, res)
	}

	res := Sum(cfg.Equity, results...)
	cfg.Logger.Debug("Backtest finished",
		zap.String("di", d.String()),
		zap.String("ptm", p.String()),
		zap.Int("bars", res.Len()),
		zap.Int("trades", len(res.Trades)),
		zap.Float64("pnl", res.Total()),
	)

	return res, nil
}

func runBook(ctx context.Context, d *di.DataInstance, p ptm.Ptm, cfg Config, policy match.Policy) (*PnlRes, error) {
	book := p.NewBook()
	if err := book.Bind(d); err != nil {
		return nil, errors.Wrapf(errors.ErrCodeBacktestFailed, err, "bind %s on %s", p, d)
	}

	store := d.Store()
	n := store.Len()
	mult := decimal.NewFromFloat(cfg.Multiplier)

	res := &PnlRes{
		T:        append([]time.Time(nil), store.T...),
		PnlDelta: make([]float64, n),
		Position: make([]float64, n),
		Equity:   make([]float64, n),
	}

	equity := decimal.NewFromFloat(cfg.Equity)
	held := types.Flat()

	for i := 0; i < n; i++ {
		if i%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, errors.Wrap(errors.ErrCodeBacktestFailed, "backtest cancelled", err)
			}
		}

		c := float64(store.C[i])
		prevC := c
		if i > 0 {
			prevC = float64(store.C[i-1])
		}

		eq, _ := equity.Float64()
		target := book.Step(i, c, eq)

		delta := decimal.NewFromFloat(held.Signed()).
			Mul(decimal.NewFromFloat(c).Sub(decimal.NewFromFloat(prevC))).
			Mul(mult)

		for _, action := range Transition(held, target) {
			price := c
			if policy != nil {
				prev := types.TickData{T: store.T[max(i-1, 0)], C: store.C[max(i-1, 0)]}
				cur := types.TickData{T: store.T[i], C: store.C[i]}
				price = policy.Match(action, prev, cur, nil).Unwrap().Action.Price
			}

			price = cfg.CommSlip.Slipped(price, action.IsBuy(), cfg.TickSize)
			fee := cfg.CommSlip.Commission(action.Size, price, cfg.Multiplier)

			delta = delta.
				Add(decimal.NewFromFloat(action.SignedSize()).
					Mul(decimal.NewFromFloat(c).Sub(decimal.NewFromFloat(price))).
					Mul(mult)).
				Sub(fee)

			feeF, _ := fee.Float64()
			res.Trades = append(res.Trades, Fill{
				TradeInfo:  types.TradeInfo{T: store.T[i], Action: action.WithPrice(price)},
				Bar:        i,
				Commission: feeF,
			})
		}

		equity = equity.Add(delta)
		held = target

		res.PnlDelta[i], _ = delta.Float64()
		res.Position[i] = target.Signed()
		res.Equity[i], _ = equity.Float64()
	}

	return res, nil
}

// Transition lists the actions that move a position from one NormHold to
// another: the close of the old side comes before the open of the new one.
func Transition(from, to types.NormHold) []types.OrderAction {
	if from.IsFlat() {
		from = types.Flat()
	}

	if to.IsFlat() {
		to = types.Flat()
	}

	if from.Side == to.Side {
		diff := to.Size - from.Size

		switch {
		case diff == 0 || to.Side == types.SideNo:
			return nil
		case diff > 0:
			return []types.OrderAction{openAction(to.Side, diff)}
		default:
			return []types.OrderAction{closeAction(to.Side, -diff)}
		}
	}

	var actions []types.OrderAction

	if from.Side != types.SideNo {
		actions = append(actions, closeAction(from.Side, from.Size))
	}

	if to.Side != types.SideNo {
		actions = append(actions, openAction(to.Side, to.Size))
	}

	return actions
}

func openAction(side types.Side, n float64) types.OrderAction {
	if side == types.SideLong {
		return types.LoOpen(n, 0)
	}

	return types.ShOpen(n, 0)
}

func closeAction(side types.Side, n float64) types.OrderAction {
	if side == types.SideLong {
		return types.ShClose(n, 0)
	}

	return types.LoClose(n, 0)
}

// Sum adds aligned results bar by bar and recomputes equity from equity0.
func Sum(equity0 float64, results ...*PnlRes) *PnlRes {
	if len(results) == 1 {
		return results[0]
	}

	out := &PnlRes{}
	if len(results) == 0 {
		return out
	}

	n := results[0].Len()
	out.T = results[0].T
	out.PnlDelta = make([]float64, n)
	out.Position = make([]float64, n)
	out.Equity = make([]float64, n)

	equity := decimal.NewFromFloat(equity0)

	for i := 0; i < n; i++ {
		delta := decimal.Zero
		for _, r := range results {
			delta = delta.Add(decimal.NewFromFloat(r.PnlDelta[i]))
			out.Position[i] += r.Position[i]
		}

		equity = equity.Add(delta)
		out.PnlDelta[i], _ = delta.Float64()
		out.Equity[i], _ = equity.Float64()
	}

	for _, r := range results {
		out.Trades = append(out.Trades, r.Trades...)
	}

	sort.SliceStable(out.Trades, func(a, b int) bool { return out.Trades[a].Bar < out.Trades[b].Bar })

	return out
}
