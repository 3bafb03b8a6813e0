package live_test

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/moznion/go-optional"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap/zapcore"

	"github.com/baiguoname/qust-sub001/internal/cond"
	"github.com/baiguoname/qust-sub001/internal/di"
	"github.com/baiguoname/qust-sub001/internal/inter"
	"github.com/baiguoname/qust-sub001/internal/live"
	"github.com/baiguoname/qust-sub001/internal/logger"
	"github.com/baiguoname/qust-sub001/internal/metrics"
	"github.com/baiguoname/qust-sub001/internal/pricestore"
	"github.com/baiguoname/qust-sub001/internal/ptm"
	"github.com/baiguoname/qust-sub001/internal/types"
	"github.com/baiguoname/qust-sub001/mocks"
	"github.com/baiguoname/qust-sub001/pkg/errors"
)

// snapshot is what a callback saw on one call.
type snapshot struct {
	tick    types.TickData
	hold    types.Hold
	pending int
	newBars int
	aligned bool
}

type fakeJournal struct {
	mu      sync.Mutex
	actions []live.OrderRequest
	recvs   chan types.OrderRecv
}

func (j *fakeJournal) RecordAction(req live.OrderRequest) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.actions = append(j.actions, req)

	return nil
}

func (j *fakeJournal) RecordRecv(_ types.Contract, recv types.OrderRecv) error {
	j.recvs <- recv

	return nil
}

type BridgeTestSuite struct {
	suite.Suite
	ctrl     *gomock.Controller
	broker   *mocks.MockBroker
	contract types.Contract
	spec     *inter.InterSpec
	t0       time.Time
	seen     chan snapshot
	reqs     chan live.OrderRequest
}

func TestBridgeSuite(t *testing.T) {
	suite.Run(t, new(BridgeTestSuite))
}

func (suite *BridgeTestSuite) SetupTest() {
	suite.ctrl = gomock.NewController(suite.T())
	suite.broker = mocks.NewMockBroker(suite.ctrl)
	suite.contract = types.Contract{Ticker: "rb", Code: "rb2405"}
	suite.t0 = time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)
	suite.seen = make(chan snapshot, 64)
	suite.reqs = make(chan live.OrderRequest, 64)

	spec, err := inter.Minutes(1, inter.Between(9, 0, 10, 0))
	suite.Require().NoError(err)
	suite.spec = spec
}

func (suite *BridgeTestSuite) setup() live.ContractSetup {
	return live.ContractSetup{
		Contract: suite.contract,
		DI:       di.New(suite.contract, pricestore.New(16)),
		Inter:    suite.spec,
	}
}

func (suite *BridgeTestSuite) tick(sec int) types.TickRecv {
	return types.TickRecv{Index: 0, Tick: types.TickData{
		T:    suite.t0.Add(time.Duration(sec) * time.Second),
		C:    100,
		V:    1,
		Bid1: 99,
		Ask1: 101,
	}}
}

// record wraps decide so every call is reported on suite.seen.
func (suite *BridgeTestSuite) record(decide func(v *live.View) []live.Order) live.Callback {
	return live.CallbackFunc(func(v *live.View) []live.Order {
		suite.seen <- snapshot{
			tick:    v.Tick(0),
			hold:    v.Hold(0),
			pending: v.Pool(0).Pending(),
			newBars: v.NewBars(0),
			aligned: v.Aligned().IsSome(),
		}

		if decide == nil {
			return nil
		}

		return decide(v)
	})
}

func (suite *BridgeTestSuite) capture() {
	suite.broker.EXPECT().Submit(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, req live.OrderRequest) error {
			suite.reqs <- req

			return nil
		},
	).AnyTimes()
}

func (suite *BridgeTestSuite) nextSeen() snapshot {
	select {
	case s := <-suite.seen:
		return s
	case <-time.After(2 * time.Second):
		suite.FailNow("callback was not called")
	}

	return snapshot{}
}

func (suite *BridgeTestSuite) nextReq() live.OrderRequest {
	select {
	case r := <-suite.reqs:
		return r
	case <-time.After(2 * time.Second):
		suite.FailNow("no order reached the broker")
	}

	return live.OrderRequest{}
}

func (suite *BridgeTestSuite) TestOneEvaluationPerDrainedBatch() {
	m := metrics.New()
	b, err := live.NewBridge([]live.ContractSetup{suite.setup()}, suite.broker, suite.record(nil), live.WithMetrics(m))
	suite.Require().NoError(err)

	for _, sec := range []int{1, 2, 30, 20, 61} {
		suite.Require().NoError(b.Push(suite.tick(sec)))
	}

	suite.Require().NoError(b.Start(context.Background()))
	b.Stop()

	s := suite.nextSeen()
	suite.Equal(suite.t0.Add(61*time.Second), s.tick.T)
	suite.Equal(1, s.newBars)
	suite.False(s.aligned)
	suite.Empty(suite.seen)

	suite.Equal(4.0, testutil.ToFloat64(m.TicksTotal.WithLabelValues(suite.contract.String())))
	suite.Equal(1.0, testutil.ToFloat64(m.StaleTicks.WithLabelValues(suite.contract.String())))
	suite.Equal(1.0, testutil.ToFloat64(m.BarsTotal.WithLabelValues(suite.contract.String())))
}

func (suite *BridgeTestSuite) TestReverseAcrossTicks() {
	suite.capture()

	algo, err := live.NewAlgoTarget(live.AlgoDefault, 0)
	suite.Require().NoError(err)

	decide := func(v *live.View) []live.Order {
		return []live.Order{{Index: 0, Action: algo.Decide(-1, v.Pool(0), v.Tick(0))}}
	}

	b, err := live.NewBridge([]live.ContractSetup{suite.setup()}, suite.broker, suite.record(decide))
	suite.Require().NoError(err)

	seed := types.OrderRecv{
		ID:         "h1",
		Status:     types.RecvStatus{Kind: types.RecvAllTraded},
		UpdateTime: suite.t0,
		OrderRef:   optional.Some("h1"),
	}
	suite.Require().NoError(b.Push(types.OrderRecvHis{Index: 0, Records: []types.OrderRecvWithAction{
		{Action: types.LoOpen(2, 100), Recv: seed},
	}}))
	suite.Require().NoError(b.Push(suite.tick(1)))
	suite.Require().NoError(b.Start(context.Background()))
	defer b.Stop()

	suite.Equal(types.Hold{TdLo: 2}, suite.nextSeen().hold)

	first := suite.nextReq()
	suite.Equal("1", first.Ref)
	suite.Equal(types.ShClose(2, 99), first.Action)
	suite.Equal(suite.contract, first.Contract)

	suite.Require().NoError(b.Push(types.OrderRecvEvent{Index: 0, Recv: types.OrderRecv{
		ID:         "x1",
		Status:     types.RecvStatus{Kind: types.RecvAllTraded},
		UpdateTime: suite.t0.Add(time.Second),
		OrderRef:   optional.Some("1"),
	}}))
	suite.Require().NoError(b.Push(suite.tick(2)))

	suite.Equal(types.Hold{}, suite.nextSeen().hold)

	second := suite.nextReq()
	suite.Equal("2", second.Ref)
	suite.Equal(types.ShOpen(1, 99), second.Action)
}

func (suite *BridgeTestSuite) TestLogsRoutedByTarget() {
	suite.capture()

	dir := suite.T().TempDir()
	router, err := logger.NewRouter(dir, zapcore.InfoLevel)
	suite.Require().NoError(err)

	target := func(name string) *logger.Logger {
		l, err := router.For(name)
		suite.Require().NoError(err)

		return l
	}

	setup := suite.setup()
	setup.Logger = router.Ticker("rb")

	sent := false
	decide := func(v *live.View) []live.Order {
		if sent {
			return nil
		}

		sent = true

		return []live.Order{{Index: 0, Action: types.LoOpen(1, 101)}}
	}

	b, err := live.NewBridge([]live.ContractSetup{setup}, suite.broker, suite.record(decide),
		live.WithLogger(target(logger.TargetStra)),
		live.WithBrokerLogger(target(logger.TargetCtp)),
		live.WithFeedLogger(target(logger.TargetSpy)),
	)
	suite.Require().NoError(err)

	suite.Require().NoError(b.Push(suite.tick(2)))
	suite.Require().NoError(b.Push(suite.tick(1)))
	suite.Require().NoError(b.Start(context.Background()))

	suite.nextSeen()
	suite.Equal("1", suite.nextReq().Ref)

	b.Stop()
	router.Close()

	read := func(name string) string {
		raw, err := os.ReadFile(filepath.Join(dir, name+".log"))
		suite.Require().NoError(err)

		return string(raw)
	}

	ticker := read("rb")
	suite.Contains(ticker, "Order action sent")
	suite.Contains(ticker, `"code":"rb2405"`)
	suite.Contains(read(logger.TargetCtp), "Order submitted")
	suite.Contains(read(logger.TargetSpy), "Stale tick dropped")
	suite.NotContains(read(logger.TargetStra), "Order action sent")
}

func (suite *BridgeTestSuite) TestSubmitFailureDropsOrder() {
	suite.broker.EXPECT().Submit(gomock.Any(), gomock.Any()).
		Return(errors.New(errors.ErrCodeBrokerFailure, "gateway down")).
		Times(1)

	calls := 0
	decide := func(v *live.View) []live.Order {
		calls++
		if calls > 1 {
			return nil
		}

		return []live.Order{{Index: 0, Action: types.LoOpen(1, 101)}}
	}

	journal := &fakeJournal{recvs: make(chan types.OrderRecv, 8)}
	b, err := live.NewBridge([]live.ContractSetup{suite.setup()}, suite.broker, suite.record(decide), live.WithJournal(journal))
	suite.Require().NoError(err)

	suite.Require().NoError(b.Push(suite.tick(1)))
	suite.Require().NoError(b.Start(context.Background()))
	defer b.Stop()

	suite.Equal(0, suite.nextSeen().pending)

	select {
	case r := <-journal.recvs:
		suite.Equal(types.RecvInsertError, r.Status.Kind)
		suite.Equal(-1, r.Status.Code)
		suite.Equal("1", r.Ref())
	case <-time.After(2 * time.Second):
		suite.FailNow("submit failure was not reported back")
	}

	suite.Require().NoError(b.Push(suite.tick(2)))

	s := suite.nextSeen()
	suite.Equal(0, s.pending)
	suite.Equal(types.Hold{}, s.hold)

	journal.mu.Lock()
	suite.Len(journal.actions, 1)
	journal.mu.Unlock()
}

func (suite *BridgeTestSuite) TestCrossSyncGatesEvaluation() {
	second := suite.setup()
	second.Contract = types.Contract{Ticker: "hc", Code: "hc2405"}
	second.DI = di.New(second.Contract, pricestore.New(16))

	b, err := live.NewBridge(
		[]live.ContractSetup{suite.setup(), second},
		suite.broker,
		suite.record(nil),
		live.WithCrossSync(live.AllEmerged(2)),
	)
	suite.Require().NoError(err)

	suite.Require().NoError(b.Push(suite.tick(1)))
	suite.Require().NoError(b.Start(context.Background()))
	defer b.Stop()

	select {
	case <-suite.seen:
		suite.Fail("callback ran before every contract ticked")
	case <-time.After(50 * time.Millisecond):
	}

	other := suite.tick(2)
	other.Index = 1
	suite.Require().NoError(b.Push(other))

	suite.True(suite.nextSeen().aligned)
}

func (suite *BridgeTestSuite) TestPtmStrategyTradesFinishedBars() {
	suite.capture()

	tsig, err := ptm.NewTsig(types.DirLong, types.DirShort, cond.True(), cond.False())
	suite.Require().NoError(err)

	strategy, err := live.NewPtmStrategy(
		map[int]ptm.Ptm{0: &ptm.Ptm1{Money: ptm.Fixed{N: 2}, Stp: ptm.NewStp(tsig)}},
		live.AlgoTarget{Kind: live.AlgoQuik},
		1e6,
	)
	suite.Require().NoError(err)

	setup := suite.setup()
	b, err := live.NewBridge([]live.ContractSetup{setup}, suite.broker, strategy)
	suite.Require().NoError(err)

	for _, sec := range []int{10, 40, 65} {
		suite.Require().NoError(b.Push(suite.tick(sec)))
	}

	suite.Require().NoError(b.Start(context.Background()))
	defer b.Stop()

	req := suite.nextReq()
	suite.Equal(types.LoOpen(2, 99), req.Action)
	suite.Equal(suite.t0.Add(65*time.Second), req.Time)
	suite.Equal(1, setup.DI.Len())
	suite.Equal(2.0, strategy.Target(0))
}

func (suite *BridgeTestSuite) TestConstructorValidates() {
	_, err := live.NewBridge(nil, suite.broker, suite.record(nil))
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidConfiguration))

	_, err = live.NewBridge([]live.ContractSetup{suite.setup()}, suite.broker, suite.record(nil), live.WithCrossSync(live.AllEmerged(3)))
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidConfiguration))

	_, err = live.NewBridge([]live.ContractSetup{{Contract: suite.contract}}, suite.broker, suite.record(nil))
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidConfiguration))

	_, err = live.NewPtmStrategy(nil, live.AlgoTarget{}, 1e6)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidConfiguration))
}
