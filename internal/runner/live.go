// Package runner wires the live bridge, the simulated broker and the
// persisted state into a run the supervisor can start and stop.
package runner

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/moznion/go-optional"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/time/rate"

	"github.com/baiguoname/qust-sub001/internal/config"
	"github.com/baiguoname/qust-sub001/internal/di"
	"github.com/baiguoname/qust-sub001/internal/indicator"
	"github.com/baiguoname/qust-sub001/internal/inter"
	"github.com/baiguoname/qust-sub001/internal/live"
	"github.com/baiguoname/qust-sub001/internal/logger"
	"github.com/baiguoname/qust-sub001/internal/match"
	"github.com/baiguoname/qust-sub001/internal/metrics"
	"github.com/baiguoname/qust-sub001/internal/persist"
	"github.com/baiguoname/qust-sub001/internal/pricestore"
	"github.com/baiguoname/qust-sub001/internal/ptm"
	"github.com/baiguoname/qust-sub001/internal/types"
	"github.com/baiguoname/qust-sub001/pkg/errors"
)

const (
	stateDir  = "state"
	stateName = "live_state"
)

// Live runs one LiveConfig against a tick channel. Every Start opens a new
// run folder and bridge; Stop persists holds and bars so the next run picks
// them up.
type Live struct {
	cfg     *config.LiveConfig
	reg     indicator.Registry
	ticks   <-chan types.TickRecv
	log     *logger.Logger
	metrics *metrics.Metrics
	now     func() time.Time

	exhausted chan struct{}
	once      sync.Once

	mu  sync.Mutex
	run *liveRun
}

type liveRun struct {
	session *live.Session
	router  *logger.Router
	journal *live.OrderJournal
	broker  *live.SimBroker
	bridge  *live.Bridge
	setups  []live.ContractSetup
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

type Option func(*Live)

func WithLogger(log *logger.Logger) Option {
	return func(l *Live) {
		l.log = log
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(l *Live) {
		l.metrics = m
	}
}

// WithClock replaces time.Now for run folder dates and saved state.
func WithClock(now func() time.Time) Option {
	return func(l *Live) {
		l.now = now
	}
}

func NewLive(cfg *config.LiveConfig, ticks <-chan types.TickRecv, opts ...Option) (*Live, error) {
	if cfg == nil || ticks == nil {
		return nil, errors.New(errors.ErrCodeInvalidConfiguration, "live runner needs a config and a tick source")
	}

	l := &Live{
		cfg:       cfg,
		reg:       indicator.DefaultRegistry(),
		ticks:     ticks,
		log:       logger.NewNopLogger(),
		metrics:   metrics.New(),
		now:       time.Now,
		exhausted: make(chan struct{}),
	}

	for _, opt := range opts {
		opt(l)
	}

	return l, nil
}

// Exhausted is closed once the tick channel is closed.
func (l *Live) Exhausted() <-chan struct{} {
	return l.exhausted
}

func (l *Live) Running() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.run != nil
}

func (l *Live) Start(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.run != nil {
		return errors.New(errors.ErrCodeInvalidConfiguration, "live run already started")
	}

	run, err := l.open()
	if err != nil {
		return err
	}

	if err := run.bridge.Start(ctx); err != nil {
		l.close(run)

		return err
	}

	pumpCtx, cancel := context.WithCancel(ctx)
	run.cancel = cancel

	run.wg.Add(1)

	go func() {
		defer run.wg.Done()
		l.pump(pumpCtx, run)
	}()

	l.run = run

	l.log.Info("Live run started",
		zap.Int("run", run.session.Run()),
		zap.Int("contracts", len(run.setups)),
	)

	return nil
}

// Stop ends the current run and saves its state.
func (l *Live) Stop() {
	l.mu.Lock()
	run := l.run
	l.run = nil
	l.mu.Unlock()

	if run == nil {
		return
	}

	run.cancel()
	run.wg.Wait()
	run.bridge.Stop()

	if err := l.save(run); err != nil {
		l.log.Error("Failed to save live state", zap.Error(err))
	}

	l.close(run)

	l.log.Info("Live run stopped", zap.Int("run", run.session.Run()))
}

func (l *Live) open() (*liveRun, error) {
	session, err := live.NewSession(l.cfg.Output, l.now(), l.log)
	if err != nil {
		return nil, err
	}

	router, err := logger.NewRouter(session.Path("logs"), zapcore.InfoLevel)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodePersistFailed, "failed to open run logs", err)
	}

	run := &liveRun{session: session, router: router}

	journal, err := live.NewOrderJournal(session.Path("journal"))
	if err != nil {
		router.Close()

		return nil, err
	}

	run.journal = journal

	if err := l.build(run); err != nil {
		l.close(run)

		return nil, err
	}

	return run, nil
}

func (l *Live) build(run *liveRun) error {
	sessions, err := l.cfg.Intervals()
	if err != nil {
		return err
	}

	state, err := l.loadState()
	if err != nil {
		return err
	}

	ptms := make(map[int]ptm.Ptm, len(l.cfg.Contracts))

	for i, lc := range l.cfg.Contracts {
		spec, err := inter.Minutes(lc.Minutes, sessions...)
		if err != nil {
			return err
		}

		store, err := l.loadBars(lc)
		if err != nil {
			return err
		}

		tickerLog := run.router.Ticker(lc.Contract.Ticker)

		d := di.New(lc.Contract, store,
			di.WithObserver(l.metrics.Observer()),
			di.WithLogger(tickerLog),
		)

		p, err := l.cfg.Strategy.BuildLive(l.reg, lc.TickSize)
		if err != nil {
			return err
		}

		ptms[i] = p
		run.setups = append(run.setups, live.ContractSetup{Contract: lc.Contract, DI: d, Inter: spec, Logger: tickerLog})
	}

	algo, err := live.NewAlgoTarget(live.AlgoKind(l.cfg.Algo), l.cfg.CancelAfter)
	if err != nil {
		return err
	}

	strategy, err := live.NewPtmStrategy(ptms, algo, l.cfg.Equity)
	if err != nil {
		return err
	}

	policy, err := match.ByKind(l.cfg.MatchKind())
	if err != nil {
		return err
	}

	targets := make(map[string]*logger.Logger, 3)
	for _, target := range []string{logger.TargetStra, logger.TargetCtp, logger.TargetSpy} {
		log, err := run.router.For(target)
		if err != nil {
			return errors.Wrapf(errors.ErrCodePersistFailed, err, "failed to open %s log", target)
		}

		targets[target] = log
	}

	opts := []live.Option{
		live.WithLogger(targets[logger.TargetStra]),
		live.WithBrokerLogger(targets[logger.TargetCtp]),
		live.WithFeedLogger(targets[logger.TargetSpy]),
		live.WithMetrics(l.metrics),
		live.WithJournal(run.journal),
	}

	switch l.cfg.Cross {
	case config.CrossAll:
		opts = append(opts, live.WithCrossSync(live.AllEmerged(len(run.setups))))
	case config.CrossMillis:
		opts = append(opts, live.WithCrossSync(live.MillisAlignment(len(run.setups))))
	}

	if l.cfg.RateLimit > 0 {
		opts = append(opts, live.WithRateLimit(rate.Limit(l.cfg.RateLimit), max(l.cfg.Burst, 1)))
	}

	run.broker = live.NewSimBroker(policy, nil)

	run.bridge, err = live.NewBridge(run.setups, run.broker, strategy, opts...)
	if err != nil {
		return err
	}

	run.broker.SetSink(run.bridge.Push)

	if state != nil {
		for i, s := range run.setups {
			if h, ok := state.Hold(s.Contract); ok {
				run.broker.SetHold(i, h)

				if err := run.bridge.Push(restoredHold(i, h, state.SavedTime(time.Local))); err != nil {
					return err
				}
			}
		}
	}

	return nil
}

// restoredHold replays a saved hold as filled opens.
func restoredHold(index int, h types.Hold, t time.Time) types.OrderRecvHis {
	his := types.OrderRecvHis{Index: index}

	add := func(ref string, action types.OrderAction) {
		if action.Size <= 0 {
			return
		}

		his.Records = append(his.Records, types.OrderRecvWithAction{
			Action: action,
			Recv: types.OrderRecv{
				ID:         ref,
				Status:     types.RecvStatus{Kind: types.RecvAllTraded},
				UpdateTime: t,
				OrderRef:   optional.Some(ref),
			},
		})
	}

	add("restore-lo", types.LoOpen(h.TdLo, 0))
	add("restore-sh", types.ShOpen(h.TdSh, 0))

	return his
}

// pump forwards ticks to the simulated broker first and then to the bridge.
func (l *Live) pump(ctx context.Context, run *liveRun) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-l.ticks:
			if !ok {
				l.once.Do(func() { close(l.exhausted) })

				return
			}

			if _, err := run.session.Roll(ev.Tick.T); err != nil {
				l.log.Warn("Failed to roll run folder", zap.Error(err))
			}

			if err := run.broker.OnTick(ev.Index, ev.Tick); err != nil {
				l.log.Warn("Simulated broker failed", zap.Error(err))

				return
			}

			if err := run.bridge.Push(ev); err != nil {
				return
			}
		}
	}
}

func (l *Live) statePath() string {
	return filepath.Join(l.cfg.Output, stateDir)
}

func barsName(c types.Contract) string {
	return "bars_" + c.Code
}

func (l *Live) loadState() (*persist.LiveState, error) {
	var state persist.LiveState

	err := persist.Load(l.statePath(), stateName, l.cfg.PersistFormat(), &state)
	if errors.HasCode(err, errors.ErrCodeDataNotFound) {
		return nil, nil
	}

	if err != nil {
		return nil, err
	}

	return &state, nil
}

// loadBars prefers bars saved by an earlier run over the configured history
// file.
func (l *Live) loadBars(lc config.LiveContract) (*pricestore.PriceStore, error) {
	var bars persist.Bars

	err := persist.Load(l.statePath(), barsName(lc.Contract), l.cfg.PersistFormat(), &bars)
	switch {
	case err == nil:
		return bars.Store(time.Local)
	case !errors.HasCode(err, errors.ErrCodeDataNotFound):
		return nil, err
	}

	if lc.History == "" {
		return pricestore.New(0), nil
	}

	return pricestore.LoadBarsCSVFile(lc.History, pricestore.BarCSVOptions{Location: time.Local})
}

func (l *Live) save(run *liveRun) error {
	now := l.now()
	holds := make(map[types.Contract]types.Hold, len(run.setups))
	format := l.cfg.PersistFormat()

	for i, s := range run.setups {
		holds[s.Contract] = run.broker.Hold(i)

		if err := persist.Save(l.statePath(), barsName(s.Contract), format, persist.BarsOf(s.Contract, s.DI.Store())); err != nil {
			return err
		}
	}

	return persist.Save(l.statePath(), stateName, format, persist.NewLiveState(now, now, run.session.Run(), holds))
}

func (l *Live) close(run *liveRun) {
	if run.journal != nil {
		if err := run.journal.Flush(); err != nil {
			l.log.Warn("Failed to flush order journal", zap.Error(err))
		}

		if err := run.journal.Close(); err != nil {
			l.log.Warn("Failed to close order journal", zap.Error(err))
		}
	}

	run.router.Close()
}
