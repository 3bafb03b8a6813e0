package live

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/moznion/go-optional"

	"github.com/baiguoname/qust-sub001/internal/match"
	"github.com/baiguoname/qust-sub001/internal/types"
	"github.com/baiguoname/qust-sub001/pkg/errors"
)

// OrderRequest is one outbound action addressed to a contract. Ref is
// assigned by the bridge and echoed back in OrderRecv.OrderRef.
type OrderRequest struct {
	Index    int
	Contract types.Contract
	Ref      string
	Action   types.OrderAction
	Time     time.Time
}

// Broker is the gateway the bridge sends orders to. Order-state updates come
// back asynchronously through the bridge's Push.
type Broker interface {
	Submit(ctx context.Context, req OrderRequest) error
}

type restingOrder struct {
	req OrderRequest
	id  string
}

// SimBroker fills resting orders against ticks with a match policy. Feed it
// every tick with OnTick before the bridge sees it.
type SimBroker struct {
	mu      sync.Mutex
	policy  match.Policy
	sink    func(types.DataRecv) error
	resting map[int][]restingOrder
	last    map[int]types.TickData
	holds   map[int]*types.Hold
}

// NewSimBroker reports order updates to sink, usually Bridge.Push.
func NewSimBroker(policy match.Policy, sink func(types.DataRecv) error) *SimBroker {
	return &SimBroker{
		policy:  policy,
		sink:    sink,
		resting: make(map[int][]restingOrder),
		last:    make(map[int]types.TickData),
		holds:   make(map[int]*types.Hold),
	}
}

// SetSink replaces the update receiver.
func (b *SimBroker) SetSink(sink func(types.DataRecv) error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.sink = sink
}

func (b *SimBroker) Submit(_ context.Context, req OrderRequest) error {
	b.mu.Lock()

	if req.Action.Kind == types.OrderCancelOrder {
		recv, ok := b.cancel(req)
		b.mu.Unlock()

		if !ok {
			return errors.Newf(errors.ErrCodeOrderRejected, "order %s is not resting", req.Action.Ref)
		}

		return b.emit(req.Index, recv)
	}

	if req.Action.IsNo() {
		b.mu.Unlock()

		return nil
	}

	order := restingOrder{req: req, id: uuid.New().String()}
	b.resting[req.Index] = append(b.resting[req.Index], order)
	t := req.Time
	b.mu.Unlock()

	return b.emit(req.Index, recvOf(order, types.RecvStatus{Kind: types.RecvInserted}, t))
}

func (b *SimBroker) cancel(req OrderRequest) (types.OrderRecv, bool) {
	orders := b.resting[req.Index]

	for i, o := range orders {
		if o.req.Ref == req.Action.Ref {
			b.resting[req.Index] = append(orders[:i:i], orders[i+1:]...)

			return recvOf(o, types.RecvStatus{Kind: types.RecvCanceled}, req.Time), true
		}
	}

	return types.OrderRecv{}, false
}

// OnTick matches the resting orders of index against tick.
func (b *SimBroker) OnTick(index int, tick types.TickData) error {
	b.mu.Lock()

	prev, ok := b.last[index]
	if !ok {
		prev = tick
	}

	b.last[index] = tick

	hold := b.holds[index]
	if hold == nil {
		hold = &types.Hold{}
		b.holds[index] = hold
	}

	var (
		fills []types.OrderRecv
		rest  []restingOrder
	)

	for _, o := range b.resting[index] {
		if b.policy.Match(o.req.Action, prev, tick, hold).IsSome() {
			fills = append(fills, recvOf(o, types.RecvStatus{Kind: types.RecvAllTraded}, tick.T))
		} else {
			rest = append(rest, o)
		}
	}

	b.resting[index] = rest
	b.mu.Unlock()

	for _, recv := range fills {
		if err := b.emit(index, recv); err != nil {
			return err
		}
	}

	return nil
}

// Hold returns the simulated exchange-side hold of index.
func (b *SimBroker) Hold(index int) types.Hold {
	b.mu.Lock()
	defer b.mu.Unlock()

	if h := b.holds[index]; h != nil {
		return *h
	}

	return types.Hold{}
}

// SetHold seeds the exchange-side hold of index, as after a restart.
func (b *SimBroker) SetHold(index int, h types.Hold) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.holds[index] = &h
}

// Resting counts the open orders of index.
func (b *SimBroker) Resting(index int) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return len(b.resting[index])
}

func (b *SimBroker) emit(index int, recv types.OrderRecv) error {
	b.mu.Lock()
	sink := b.sink
	b.mu.Unlock()

	if sink == nil {
		return nil
	}

	return sink(types.OrderRecvEvent{Index: index, Recv: recv})
}

func recvOf(o restingOrder, status types.RecvStatus, t time.Time) types.OrderRecv {
	return types.OrderRecv{
		ID:         o.id,
		Status:     status,
		UpdateTime: t,
		OrderRef:   optional.Some(o.req.Ref),
		FrontID:    optional.None[int](),
		SessionID:  optional.None[int](),
		ExchangeID: optional.Some("SIM"),
	}
}
