package runner

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/baiguoname/qust-sub001/internal/config"
	"github.com/baiguoname/qust-sub001/internal/persist"
	"github.com/baiguoname/qust-sub001/internal/types"
	"github.com/baiguoname/qust-sub001/pkg/errors"
)

type LiveTestSuite struct {
	suite.Suite
	cfg      *config.LiveConfig
	contract types.Contract
	t0       time.Time
}

func TestLiveSuite(t *testing.T) {
	suite.Run(t, new(LiveTestSuite))
}

func (suite *LiveTestSuite) SetupTest() {
	suite.contract = types.Contract{Ticker: "rb", Code: "rb2405"}
	suite.t0 = time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)
	suite.cfg = &config.LiveConfig{
		Contracts: []config.LiveContract{{Contract: suite.contract, Minutes: 1, TickSize: 1}},
		Sessions:  []config.SessionConfig{{Start: "00:00", End: "24:00"}},
		Strategy:  config.StrategyConfig{Name: "cross", Preset: config.PresetMaCross, Short: 3, Long: 5},
		Output:    suite.T().TempDir(),
	}
}

func (suite *LiveTestSuite) runner(ticks <-chan types.TickRecv) *Live {
	l, err := NewLive(suite.cfg, ticks, WithClock(func() time.Time { return suite.t0 }))
	suite.Require().NoError(err)

	return l
}

func (suite *LiveTestSuite) tick(offset time.Duration, price float32) types.TickRecv {
	return types.TickRecv{Index: 0, Tick: types.TickData{
		T:    suite.t0.Add(offset),
		C:    price,
		Bid1: price - 1,
		Ask1: price + 1,
	}}
}

func (suite *LiveTestSuite) TestReplaySavesBars() {
	ticks := make(chan types.TickRecv, 4)
	ticks <- suite.tick(time.Second, 100)
	ticks <- suite.tick(30*time.Second, 102)
	ticks <- suite.tick(65*time.Second, 101)
	close(ticks)

	l := suite.runner(ticks)
	suite.Require().NoError(l.Start(context.Background()))
	suite.True(l.Running())

	select {
	case <-l.Exhausted():
	case <-time.After(5 * time.Second):
		suite.FailNow("tick source never drained")
	}

	l.Stop()
	suite.False(l.Running())

	var bars persist.Bars
	suite.Require().NoError(persist.Load(filepath.Join(suite.cfg.Output, "state"), "bars_rb2405", persist.FormatBinary, &bars))
	suite.Equal(1, bars.Len())
	suite.Equal(float32(100), bars.O[0])
	suite.Equal(float32(102), bars.H[0])

	var state persist.LiveState
	suite.Require().NoError(persist.Load(filepath.Join(suite.cfg.Output, "state"), "live_state", persist.FormatBinary, &state))
	suite.Equal(int64(1), state.Run)

	logs := filepath.Join(suite.cfg.Output, "2024-03-04", "run_1", "logs")
	for _, target := range []string{"stra", "ctp", "spy"} {
		_, err := os.Stat(filepath.Join(logs, target+".log"))
		suite.NoError(err, target)
	}

	ticker, err := os.ReadFile(filepath.Join(logs, "rb.log"))
	suite.Require().NoError(err)
	suite.Contains(string(ticker), `"message":"Bar finished"`)
	suite.Contains(string(ticker), `"code":"rb2405"`)

	stra, err := os.ReadFile(filepath.Join(logs, "stra.log"))
	suite.Require().NoError(err)
	suite.NotContains(string(stra), "Bar finished")
}

func (suite *LiveTestSuite) TestRestartRestoresHoldAndBars() {
	suite.cfg.Persist = persist.FormatJSON

	dir := filepath.Join(suite.cfg.Output, "state")
	held := persist.NewLiveState(suite.t0, suite.t0, 1, map[types.Contract]types.Hold{suite.contract: {TdLo: 2}})
	suite.Require().NoError(persist.Save(dir, "live_state", persist.FormatJSON, held))

	l := suite.runner(make(chan types.TickRecv))

	suite.Require().NoError(l.Start(context.Background()))
	l.Stop()

	suite.Require().NoError(l.Start(context.Background()))
	suite.Error(l.Start(context.Background()))
	l.Stop()

	var state persist.LiveState
	suite.Require().NoError(persist.Load(dir, "live_state", persist.FormatJSON, &state))

	h, ok := state.Hold(suite.contract)
	suite.True(ok)
	suite.Equal(types.Hold{TdLo: 2}, h)
	suite.Equal(int64(2), state.Run)

	ticker, err := os.ReadFile(filepath.Join(suite.cfg.Output, "2024-03-04", "run_2", "logs", "rb.log"))
	suite.Require().NoError(err)
	suite.Contains(string(ticker), "Order history replayed")
}

func (suite *LiveTestSuite) TestStartFailsOnBadStrategy() {
	suite.cfg.Strategy.Long = 2

	l := suite.runner(make(chan types.TickRecv))
	err := l.Start(context.Background())
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidParameter))
	suite.False(l.Running())
}

func (suite *LiveTestSuite) TestNewLiveValidates() {
	_, err := NewLive(nil, make(chan types.TickRecv))
	suite.Error(err)

	_, err = NewLive(suite.cfg, nil)
	suite.Error(err)
}

func (suite *LiveTestSuite) TestRestoredHold() {
	his := restoredHold(1, types.Hold{TdSh: 3}, suite.t0)
	suite.Equal(1, his.Index)
	suite.Require().Len(his.Records, 1)
	suite.Equal(types.ShOpen(3, 0), his.Records[0].Action)
	suite.Equal(types.RecvAllTraded, his.Records[0].Recv.Status.Kind)
	suite.Equal("restore-sh", his.Records[0].Recv.Ref())
}
