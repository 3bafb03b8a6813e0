package live

import (
	"sort"
	"time"

	"github.com/baiguoname/qust-sub001/internal/types"
	"github.com/baiguoname/qust-sub001/pkg/errors"
)

type pendingOrder struct {
	action    types.OrderAction
	filled    float64
	submitted time.Time
	brokerID  string
	// cancelled is when a cancel for this order was last sent.
	cancelled time.Time
}

// OrderPool tracks one contract's orders in flight and the Hold their fills
// produced. It is owned by the bridge worker and is not safe for concurrent
// use.
type OrderPool struct {
	pending map[string]*pendingOrder
	hold    types.Hold
}

func NewOrderPool() *OrderPool {
	return &OrderPool{pending: make(map[string]*pendingOrder)}
}

func (p *OrderPool) Hold() types.Hold { return p.hold }

func (p *OrderPool) Pending() int { return len(p.pending) }

// Add registers an order sent under ref. A cancel is not an order of its own;
// it marks the order it targets as cancel-requested at time at.
func (p *OrderPool) Add(ref string, action types.OrderAction, at time.Time) {
	if action.IsNo() {
		return
	}

	if action.Kind == types.OrderCancelOrder {
		if order, ok := p.pending[action.Ref]; ok {
			order.cancelled = at
		}

		return
	}

	p.pending[ref] = &pendingOrder{action: action, submitted: at}
}

// Apply folds a broker update into the pool and returns the contracts newly
// filled by it. Rejected orders are dropped and reported as OrderRejected;
// Unknown statuses leave the pool untouched and report UnexpectedStatus.
func (p *OrderPool) Apply(recv types.OrderRecv) (float64, error) {
	ref := recv.Ref()

	order, ok := p.pending[ref]
	if !ok {
		return 0, errors.Newf(errors.ErrCodeUnexpectedStatus, "no pending order %q for %s", ref, recv.Status)
	}

	if order.brokerID == "" {
		order.brokerID = recv.ID
	}

	switch recv.Status.Kind {
	case types.RecvInserted, types.RecvNotTouched:
		return 0, nil
	case types.RecvPartTradedQueueing:
		return p.fillTo(order, recv.Status.Filled), nil
	case types.RecvAllTraded:
		n := p.fillTo(order, order.action.Size)
		delete(p.pending, ref)

		return n, nil
	case types.RecvCanceled:
		n := p.fillTo(order, recv.Status.Filled)
		delete(p.pending, ref)

		return n, nil
	case types.RecvInsertError:
		delete(p.pending, ref)

		return 0, errors.Newf(errors.ErrCodeOrderRejected, "order %s %s rejected with code %d", ref, order.action, recv.Status.Code)
	default:
		return 0, errors.Newf(errors.ErrCodeUnexpectedStatus, "order %s: %s", ref, recv.Status)
	}
}

// fillTo raises the filled amount of order to total and books the increase.
func (p *OrderPool) fillTo(order *pendingOrder, total float64) float64 {
	total = min(total, order.action.Size)
	n := total - order.filled

	if n <= 0 {
		return 0
	}

	order.filled = total
	p.hold.Apply(order.action.Kind, n)

	return n
}

// Stale lists refs of orders submitted more than maxAge before now, oldest
// first. An order with a cancel in flight is only listed again once that
// cancel is itself older than maxAge.
func (p *OrderPool) Stale(now time.Time, maxAge time.Duration) []string {
	var refs []string

	for ref, order := range p.pending {
		if !order.cancelled.IsZero() && now.Sub(order.cancelled) <= maxAge {
			continue
		}

		if now.Sub(order.submitted) > maxAge {
			refs = append(refs, ref)
		}
	}

	sort.Slice(refs, func(a, b int) bool {
		oa, ob := p.pending[refs[a]], p.pending[refs[b]]
		if !oa.submitted.Equal(ob.submitted) {
			return oa.submitted.Before(ob.submitted)
		}

		return refs[a] < refs[b]
	})

	return refs
}

// Replay rebuilds the pool from the broker's order history. Records are
// applied in update-time order; orders still open at the end stay pending.
func (p *OrderPool) Replay(records []types.OrderRecvWithAction) []error {
	sorted := append([]types.OrderRecvWithAction(nil), records...)
	sort.SliceStable(sorted, func(a, b int) bool {
		return sorted[a].Recv.UpdateTime.Before(sorted[b].Recv.UpdateTime)
	})

	var errs []error
	done := make(map[string]bool)

	for _, r := range sorted {
		ref := r.Recv.Ref()
		if done[ref] {
			continue
		}

		if _, ok := p.pending[ref]; !ok {
			p.Add(ref, r.Action, r.Recv.UpdateTime)
		}

		if _, err := p.Apply(r.Recv); err != nil {
			errs = append(errs, err)
		}

		if r.Recv.Status.Terminal() {
			done[ref] = true
		}
	}

	return errs
}
