// Package live runs position machines against a streaming tick feed and a
// broker gateway.
//
// A Bridge owns one worker goroutine that drains inbound events (ticks and
// order updates) in arrival order, folds ticks into bars, keeps each
// contract's OrderPool in step with the broker and, once the queue is empty,
// calls the Callback a single time. Actions the callback returns are queued
// for a second goroutine that submits them to the Broker under a rate limit.
package live

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/moznion/go-optional"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/baiguoname/qust-sub001/internal/di"
	"github.com/baiguoname/qust-sub001/internal/inter"
	"github.com/baiguoname/qust-sub001/internal/kline"
	"github.com/baiguoname/qust-sub001/internal/logger"
	"github.com/baiguoname/qust-sub001/internal/metrics"
	"github.com/baiguoname/qust-sub001/internal/pipeline"
	"github.com/baiguoname/qust-sub001/internal/types"
	"github.com/baiguoname/qust-sub001/pkg/errors"
)

// DefaultQueueSize bounds the inbound and outbound queues.
const DefaultQueueSize = 4096

// ContractSetup describes one traded contract. DI may already hold history;
// Inter is the bar interval ticks are folded into. Logger receives the
// contract's bar and order events; the bridge logger is used when it is nil.
type ContractSetup struct {
	Contract types.Contract
	DI       *di.DataInstance
	Inter    *inter.InterSpec
	Logger   *logger.Logger
}

// Order is an action the callback wants sent for the contract at Index.
type Order struct {
	Index  int
	Action types.OrderAction
}

// Callback decides what to send after each drained batch of events.
type Callback interface {
	OnData(v *View) []Order
}

type CallbackFunc func(v *View) []Order

func (f CallbackFunc) OnData(v *View) []Order { return f(v) }

// Journal records outbound actions and inbound order updates.
type Journal interface {
	RecordAction(req OrderRequest) error
	RecordRecv(contract types.Contract, recv types.OrderRecv) error
}

type slot struct {
	setup   ContractSetup
	machine *kline.Machine
	pool    *OrderPool
	last    types.TickData
	newBars int
	logger  *logger.Logger
	ctp     *logger.Logger
	spy     *logger.Logger
}

type Option func(*Bridge)

func WithLogger(log *logger.Logger) Option {
	return func(b *Bridge) { b.logger = log }
}

// WithBrokerLogger sends broker submissions and order updates to log.
func WithBrokerLogger(log *logger.Logger) Option {
	return func(b *Bridge) { b.ctp = log }
}

// WithFeedLogger sends tick feed events to log.
func WithFeedLogger(log *logger.Logger) Option {
	return func(b *Bridge) { b.spy = log }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(b *Bridge) { b.metrics = m }
}

func WithJournal(j Journal) Option {
	return func(b *Bridge) { b.journal = j }
}

// WithCrossSync makes the callback run only when s releases an aligned
// vector instead of after every tick.
func WithCrossSync(s CrossSync) Option {
	return func(b *Bridge) { b.cross = s }
}

// WithRateLimit throttles broker submissions.
func WithRateLimit(limit rate.Limit, burst int) Option {
	return func(b *Bridge) { b.limiter = rate.NewLimiter(limit, burst) }
}

func WithQueueSize(n int) Option {
	return func(b *Bridge) { b.queueSize = n }
}

// Bridge is the live event loop of one trade-API instance.
type Bridge struct {
	slots    []*slot
	broker   Broker
	callback Callback
	cross    CrossSync
	aligned  optional.Option[[]types.TickData]
	dirty    bool
	nextRef  int

	inbound   *NotifyQueue[types.DataRecv]
	outbound  *NotifyQueue[OrderRequest]
	queueSize int
	limiter   *rate.Limiter

	logger  *logger.Logger
	ctp     *logger.Logger
	spy     *logger.Logger
	metrics *metrics.Metrics
	journal Journal

	mu      sync.Mutex
	started bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

func NewBridge(setups []ContractSetup, broker Broker, cb Callback, opts ...Option) (*Bridge, error) {
	if len(setups) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidConfiguration, "bridge needs at least one contract")
	}

	if broker == nil || cb == nil {
		return nil, errors.New(errors.ErrCodeInvalidConfiguration, "bridge needs a broker and a callback")
	}

	b := &Bridge{
		broker:    broker,
		callback:  cb,
		queueSize: DefaultQueueSize,
		limiter:   rate.NewLimiter(rate.Inf, 1),
		logger:    logger.NewNopLogger(),
	}

	for _, opt := range opts {
		opt(b)
	}

	if b.ctp == nil {
		b.ctp = b.logger
	}

	if b.spy == nil {
		b.spy = b.logger
	}

	if b.cross != nil && b.cross.Size() != len(setups) {
		return nil, errors.Newf(errors.ErrCodeInvalidConfiguration, "%s does not cover %d contracts", b.cross, len(setups))
	}

	for i, s := range setups {
		if s.DI == nil || s.Inter == nil {
			return nil, errors.Newf(errors.ErrCodeInvalidConfiguration, "contract %d needs a data instance and an interval", i)
		}

		own := s.Logger
		if own == nil {
			own = b.logger
		}

		b.slots = append(b.slots, &slot{
			setup:   s,
			machine: kline.NewMachine(s.Inter),
			pool:    NewOrderPool(),
			logger:  own.Ticker(s.Contract.Ticker, s.Contract.Code),
			ctp:     b.ctp.Ticker(s.Contract.Ticker, s.Contract.Code),
			spy:     b.spy.Ticker(s.Contract.Ticker, s.Contract.Code),
		})
	}

	b.inbound = NewNotifyQueue[types.DataRecv](b.queueSize)
	b.outbound = NewNotifyQueue[OrderRequest](b.queueSize)

	return b, nil
}

// Push enqueues an inbound event. It blocks while the queue is full.
func (b *Bridge) Push(ev types.DataRecv) error {
	return b.inbound.Push(ev)
}

// Start launches the event worker and the broker worker.
func (b *Bridge) Start(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.started {
		return errors.New(errors.ErrCodeInvalidConfiguration, "bridge already started")
	}

	b.started = true

	brokerCtx, cancel := context.WithCancel(ctx)
	b.cancel = cancel

	b.wg.Add(2)

	go func() {
		defer b.wg.Done()
		// the event loop ends when inbound is closed and drained
		b.runEvents(context.WithoutCancel(ctx))
		b.outbound.Close()
	}()

	go func() {
		defer b.wg.Done()
		b.runBroker(brokerCtx)
	}()

	return nil
}

// Stop drains pending events, lets queued orders go out, stops the broker
// worker and waits for both goroutines.
func (b *Bridge) Stop() {
	b.inbound.Close()

	b.mu.Lock()
	started := b.started
	b.mu.Unlock()

	if !started {
		return
	}

	b.wg.Wait()
	b.cancel()
}

func (b *Bridge) runEvents(ctx context.Context) {
	for {
		events, err := b.inbound.DrainWait(ctx)
		if err != nil {
			return
		}

		for _, ev := range events {
			b.handle(ev)
		}

		b.gauge("inbound", b.inbound.Len())

		if b.inbound.Len() == 0 && b.dirty {
			b.evaluate()
		}
	}
}

func (b *Bridge) runBroker(ctx context.Context) {
	for {
		reqs, err := b.outbound.DrainWait(ctx)
		if err != nil {
			return
		}

		for _, req := range reqs {
			if err := b.limiter.Wait(ctx); err != nil {
				return
			}

			if err := b.broker.Submit(ctx, req); err != nil {
				b.slots[req.Index].ctp.Warn("Broker rejected order",
					zap.String("ref", req.Ref),
					zap.Stringer("action", req.Action),
					zap.Error(err),
				)

				if req.Action.Kind != types.OrderCancelOrder {
					_ = b.inbound.Push(types.OrderRecvEvent{Index: req.Index, Recv: submitFailure(req)})
				}

				continue
			}

			b.slots[req.Index].ctp.Info("Order submitted",
				zap.String("ref", req.Ref),
				zap.Stringer("action", req.Action),
			)
		}
	}
}

func submitFailure(req OrderRequest) types.OrderRecv {
	return types.OrderRecv{
		ID:         req.Ref,
		Status:     types.RecvStatus{Kind: types.RecvInsertError, Code: -1},
		UpdateTime: req.Time,
		OrderRef:   optional.Some(req.Ref),
		FrontID:    optional.None[int](),
		SessionID:  optional.None[int](),
		ExchangeID: optional.None[string](),
	}
}

func (b *Bridge) slot(index int) (*slot, bool) {
	if index < 0 || index >= len(b.slots) {
		b.spy.Warn("Event for unknown contract index", zap.Int("index", index))

		return nil, false
	}

	return b.slots[index], true
}

func (b *Bridge) handle(ev types.DataRecv) {
	switch e := ev.(type) {
	case types.TickRecv:
		b.handleTick(e)
	case types.OrderRecvEvent:
		b.handleRecv(e)
	case types.OrderRecvHis:
		s, ok := b.slot(e.Index)
		if !ok {
			return
		}

		for _, err := range s.pool.Replay(e.Records) {
			s.logger.Warn("Order history record skipped", zap.Error(err))
		}

		s.logger.Info("Order history replayed",
			zap.Int("records", len(e.Records)),
			zap.Float64("net", s.pool.Hold().Net()),
			zap.Int("pending", s.pool.Pending()),
		)
	}
}

func (b *Bridge) handleTick(e types.TickRecv) {
	s, ok := b.slot(e.Index)
	if !ok {
		return
	}

	contract := s.setup.Contract.String()

	if !s.last.T.IsZero() && e.Tick.T.Before(s.last.T) {
		if b.metrics != nil {
			b.metrics.StaleTicks.WithLabelValues(contract).Inc()
		}

		s.spy.Warn("Stale tick dropped", zap.Time("t", e.Tick.T), zap.Time("last", s.last.T))

		return
	}

	s.last = e.Tick

	if b.metrics != nil {
		b.metrics.TicksTotal.WithLabelValues(contract).Inc()
	}

	tr := s.machine.Update(kline.QuoteFromTick(e.Tick))
	if tr.Finished.IsSome() {
		bar := tr.Finished.Unwrap()

		if err := s.setup.DI.AppendBar(bar); err != nil {
			s.logger.Error("Finished bar rejected", zap.Time("t", bar.T), zap.Error(err))
		} else {
			report := pipeline.Extend(s.setup.DI)
			s.newBars++

			if b.metrics != nil {
				b.metrics.BarsTotal.WithLabelValues(contract).Inc()
			}

			s.logger.Info("Bar finished",
				zap.Time("t", bar.T),
				zap.Int("extended", report.Extended),
				zap.Int("dropped", report.Dropped),
			)
		}
	}

	if b.cross == nil {
		b.dirty = true

		return
	}

	if released := b.cross.Update(e.Index, e.Tick); released.IsSome() {
		b.aligned = released
		b.dirty = true
	}
}

func (b *Bridge) handleRecv(e types.OrderRecvEvent) {
	s, ok := b.slot(e.Index)
	if !ok {
		return
	}

	if b.journal != nil {
		if err := b.journal.RecordRecv(s.setup.Contract, e.Recv); err != nil {
			s.logger.Warn("Journal write failed", zap.Error(err))
		}
	}

	s.ctp.Info("Order update received",
		zap.String("id", e.Recv.ID),
		zap.String("ref", e.Recv.Ref()),
		zap.Stringer("status", e.Recv.Status),
	)

	n, err := s.pool.Apply(e.Recv)
	if err != nil {
		if b.metrics != nil && errors.HasCode(err, errors.ErrCodeOrderRejected) {
			b.metrics.RejectsTotal.WithLabelValues(s.setup.Contract.String()).Inc()
		}

		s.ctp.Warn("Order update skipped", zap.String("id", e.Recv.ID), zap.Error(err))
		s.logger.Warn("Order update skipped", zap.String("id", e.Recv.ID), zap.Error(err))

		return
	}

	if n > 0 {
		if b.metrics != nil {
			b.metrics.FillsTotal.WithLabelValues(s.setup.Contract.String()).Add(n)
		}

		s.logger.Info("Order filled",
			zap.String("ref", e.Recv.Ref()),
			zap.Float64("filled", n),
			zap.Float64("net", s.pool.Hold().Net()),
		)
	}
}

func (b *Bridge) evaluate() {
	v := &View{bridge: b}
	orders := b.callback.OnData(v)

	b.dirty = false
	b.aligned = optional.None[[]types.TickData]()

	for _, s := range b.slots {
		s.newBars = 0
	}

	for _, o := range orders {
		if o.Action.IsNo() {
			continue
		}

		s, ok := b.slot(o.Index)
		if !ok {
			continue
		}

		b.nextRef++
		req := OrderRequest{
			Index:    o.Index,
			Contract: s.setup.Contract,
			Ref:      strconv.Itoa(b.nextRef),
			Action:   o.Action,
			Time:     s.last.T,
		}

		s.pool.Add(req.Ref, req.Action, req.Time)

		if b.journal != nil {
			if err := b.journal.RecordAction(req); err != nil {
				s.logger.Warn("Journal write failed", zap.Error(err))
			}
		}

		if err := b.outbound.Push(req); err != nil {
			s.logger.Error("Order dropped", zap.String("ref", req.Ref), zap.Error(err))

			continue
		}

		if b.metrics != nil {
			b.metrics.ActionsTotal.WithLabelValues(s.setup.Contract.String(), string(req.Action.Kind)).Inc()
		}

		s.logger.Info("Order action sent", zap.String("ref", req.Ref), zap.Stringer("action", req.Action))
	}
}

func (b *Bridge) gauge(queue string, n int) {
	if b.metrics != nil {
		b.metrics.QueueDepth.WithLabelValues(queue).Set(float64(n))
	}
}

// View is the callback's read access to the bridge state. It is only valid
// during the call.
type View struct {
	bridge *Bridge
}

func (v *View) Len() int { return len(v.bridge.slots) }

func (v *View) Contract(i int) types.Contract { return v.bridge.slots[i].setup.Contract }

func (v *View) DI(i int) *di.DataInstance { return v.bridge.slots[i].setup.DI }

func (v *View) Pool(i int) *OrderPool { return v.bridge.slots[i].pool }

func (v *View) Hold(i int) types.Hold { return v.bridge.slots[i].pool.Hold() }

// Tick is the latest accepted tick of contract i.
func (v *View) Tick(i int) types.TickData { return v.bridge.slots[i].last }

// NewBars counts the bars contract i finished since the previous call.
func (v *View) NewBars(i int) int { return v.bridge.slots[i].newBars }

// Aligned is the vector released by the cross synchroniser, if one was.
func (v *View) Aligned() optional.Option[[]types.TickData] { return v.bridge.aligned }

// Emerging is the bar contract i is currently building.
func (v *View) Emerging(i int) optional.Option[types.Bar] { return v.bridge.slots[i].machine.Emerging() }

func (v *View) Logger(i int) *logger.Logger { return v.bridge.slots[i].logger }

// Now is the time of the latest tick across all contracts.
func (v *View) Now() time.Time {
	var now time.Time

	for _, s := range v.bridge.slots {
		if s.last.T.After(now) {
			now = s.last.T
		}
	}

	return now
}
