// Package match decides whether an order action fills against a quote and
// at what price, folding the fill into a Hold book.
package match

import (
	"sort"

	"github.com/moznion/go-optional"

	"github.com/baiguoname/qust-sub001/internal/types"
	"github.com/baiguoname/qust-sub001/pkg/errors"
)

// Policy fills an action against the previous and current quote.
type Policy interface {
	String() string
	// Match returns the fill, if any, and applies it to hold.
	Match(action types.OrderAction, prev, cur types.TickData, hold *types.Hold) optional.Option[types.TradeInfo]
}

type Kind string

const (
	KindSimple Kind = "simple"
	KindSimnow Kind = "simnow"
	KindOldBt  Kind = "oldbt"
	KindMean   Kind = "mean"
)

var AllKinds = []any{
	KindSimple,
	KindSimnow,
	KindOldBt,
	KindMean,
}

// ByKind returns the policy registered under kind.
func ByKind(kind Kind) (Policy, error) {
	switch kind {
	case KindSimple:
		return Simple(), nil
	case KindSimnow:
		return Simnow(), nil
	case KindOldBt:
		return OldBt(), nil
	case KindMean:
		return Mean(), nil
	default:
		return nil, errors.Newf(errors.ErrCodeInvalidParameter, "unknown match policy %q", kind)
	}
}

// fill records a fill of action at price and updates hold.
func fill(action types.OrderAction, price float64, cur types.TickData, hold *types.Hold) optional.Option[types.TradeInfo] {
	if hold != nil {
		hold.Apply(action.Kind, action.Size)
	}

	return optional.Some(types.TradeInfo{T: cur.T, Action: action.WithPrice(price)})
}

func tradable(action types.OrderAction) bool {
	switch action.Kind {
	case types.OrderLoOpen, types.OrderLoClose, types.OrderShOpen, types.OrderShClose:
		return action.Size > 0
	default:
		return false
	}
}

type simple struct{}

// Simple fills a buy when the last price is at or below the order price and
// a sell when it is at or above. The fill is at the order price.
func Simple() Policy { return simple{} }

func (simple) String() string { return string(KindSimple) }

func (simple) Match(action types.OrderAction, _, cur types.TickData, hold *types.Hold) optional.Option[types.TradeInfo] {
	if !tradable(action) {
		return optional.None[types.TradeInfo]()
	}

	c := float64(cur.C)
	if action.IsBuy() && c <= action.Price || !action.IsBuy() && c >= action.Price {
		return fill(action, action.Price, cur, hold)
	}

	return optional.None[types.TradeInfo]()
}

type simnow struct{}

// Simnow matches against the opposite side of the book like the exchange
// simulator does: a buy crosses when ask1 is at or below the order price and
// fills at the median of the order price, the last price and ask1. Sells use
// bid1.
func Simnow() Policy { return simnow{} }

func (simnow) String() string { return string(KindSimnow) }

func (simnow) Match(action types.OrderAction, _, cur types.TickData, hold *types.Hold) optional.Option[types.TradeInfo] {
	if !tradable(action) {
		return optional.None[types.TradeInfo]()
	}

	if action.IsBuy() {
		ask := float64(cur.Ask1)
		if ask > 0 && ask <= action.Price {
			return fill(action, median(action.Price, float64(cur.C), ask), cur, hold)
		}

		return optional.None[types.TradeInfo]()
	}

	bid := float64(cur.Bid1)
	if bid > 0 && bid >= action.Price {
		return fill(action, median(action.Price, float64(cur.C), bid), cur, hold)
	}

	return optional.None[types.TradeInfo]()
}

func median(a, b, c float64) float64 {
	v := []float64{a, b, c}
	sort.Float64s(v)

	return v[1]
}

type oldBt struct{}

// OldBt always fills at the previous close.
func OldBt() Policy { return oldBt{} }

func (oldBt) String() string { return string(KindOldBt) }

func (oldBt) Match(action types.OrderAction, prev, cur types.TickData, hold *types.Hold) optional.Option[types.TradeInfo] {
	if !tradable(action) {
		return optional.None[types.TradeInfo]()
	}

	return fill(action, float64(prev.C), cur, hold)
}

type mean struct{}

// Mean always fills at the mean of the previous and current close.
func Mean() Policy { return mean{} }

func (mean) String() string { return string(KindMean) }

func (mean) Match(action types.OrderAction, prev, cur types.TickData, hold *types.Hold) optional.Option[types.TradeInfo] {
	if !tradable(action) {
		return optional.None[types.TradeInfo]()
	}

	return fill(action, (float64(prev.C)+float64(cur.C))/2, cur, hold)
}
