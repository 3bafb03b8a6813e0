package live

import (
	"fmt"
	"time"

	"github.com/baiguoname/qust-sub001/internal/types"
	"github.com/baiguoname/qust-sub001/pkg/errors"
)

type AlgoKind string

const (
	// AlgoDefault crosses the spread: buys at ask1, sells at bid1.
	AlgoDefault AlgoKind = "default"
	// AlgoQuik joins the near side: buys at bid1, sells at ask1.
	AlgoQuik AlgoKind = "quik"
	// AlgoHalf prices opens at the mid and crosses on closes.
	AlgoHalf AlgoKind = "half"
)

var AllAlgoKinds = []any{AlgoDefault, AlgoQuik, AlgoHalf}

// AlgoTarget turns a signed target position into one order action at a time.
// Existing positions on the wrong side are closed first; the open follows on
// a later tick once the close has filled. Nothing is sent while an order is
// pending, except a cancel of one pending longer than CancelAfter.
type AlgoTarget struct {
	Kind        AlgoKind      `yaml:"kind" json:"kind" validate:"omitempty,oneof=default quik half"`
	CancelAfter time.Duration `yaml:"cancel_after" json:"cancel_after"`
}

func NewAlgoTarget(kind AlgoKind, cancelAfter time.Duration) (AlgoTarget, error) {
	switch kind {
	case "", AlgoDefault, AlgoQuik, AlgoHalf:
	default:
		return AlgoTarget{}, errors.Newf(errors.ErrCodeInvalidParameter, "unknown algo %q", kind)
	}

	if cancelAfter < 0 {
		return AlgoTarget{}, errors.New(errors.ErrCodeInvalidParameter, "cancel delay must not be negative")
	}

	return AlgoTarget{Kind: kind, CancelAfter: cancelAfter}, nil
}

func (a AlgoTarget) String() string {
	kind := a.Kind
	if kind == "" {
		kind = AlgoDefault
	}

	return fmt.Sprintf("algo(%s)", kind)
}

// Decide returns the next action that moves pool's hold towards target.
func (a AlgoTarget) Decide(target float64, pool *OrderPool, tick types.TickData) types.OrderAction {
	if pool.Pending() > 0 {
		if a.CancelAfter > 0 {
			if stale := pool.Stale(tick.T, a.CancelAfter); len(stale) > 0 {
				return types.CancelOrder(stale[0])
			}
		}

		return types.NoAction()
	}

	hold := pool.Hold()

	if target >= 0 {
		switch {
		case hold.TdSh > 0:
			return types.LoClose(hold.TdSh, a.price(tick, true, false))
		case hold.TdLo > target:
			return types.ShClose(hold.TdLo-target, a.price(tick, false, false))
		case hold.TdLo < target:
			return types.LoOpen(target-hold.TdLo, a.price(tick, true, true))
		}

		return types.NoAction()
	}

	short := -target

	switch {
	case hold.TdLo > 0:
		return types.ShClose(hold.TdLo, a.price(tick, false, false))
	case hold.TdSh > short:
		return types.LoClose(hold.TdSh-short, a.price(tick, true, false))
	case hold.TdSh < short:
		return types.ShOpen(short-hold.TdSh, a.price(tick, false, true))
	}

	return types.NoAction()
}

func (a AlgoTarget) price(tick types.TickData, buy, open bool) float64 {
	bid, ask := float64(tick.Bid1), float64(tick.Ask1)
	if bid <= 0 || ask <= 0 {
		return float64(tick.C)
	}

	switch a.Kind {
	case AlgoQuik:
		if buy {
			return bid
		}

		return ask
	case AlgoHalf:
		if open {
			return (bid + ask) / 2
		}
	}

	if buy {
		return ask
	}

	return bid
}
