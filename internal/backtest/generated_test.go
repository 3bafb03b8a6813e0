package backtest_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/baiguoname/qust-sub001/internal/backtest"
	"github.com/baiguoname/qust-sub001/internal/cond"
	"github.com/baiguoname/qust-sub001/internal/di"
	"github.com/baiguoname/qust-sub001/internal/indicator"
	"github.com/baiguoname/qust-sub001/internal/pipeline"
	"github.com/baiguoname/qust-sub001/internal/pricestore"
	"github.com/baiguoname/qust-sub001/internal/ptm"
	"github.com/baiguoname/qust-sub001/internal/types"
	"github.com/baiguoname/qust-sub001/mocks"
)

type GeneratedBarsTestSuite struct {
	suite.Suite
	di *di.DataInstance
}

func TestGeneratedBarsSuite(t *testing.T) {
	suite.Run(t, new(GeneratedBarsTestSuite))
}

func (suite *GeneratedBarsTestSuite) SetupTest() {
	cfg := mocks.DefaultConfig()
	cfg.Count = 2000

	bars := mocks.NewDataGenerator(42).GenerateBars(cfg)
	suite.di = di.New(types.Contract{Ticker: "rb", Code: "rb2405"}, pricestore.FromBars(bars))
}

func crossPtm(short, long int) ptm.Ptm {
	p := pipeline.OnOri(indicator.CrossMA{Short: short, Long: long})

	lo, _ := ptm.Ptm3(ptm.Fixed{N: 1}, types.DirLong, cond.CrossCond(types.DirLong, p), cond.CrossCond(types.DirShort, p))

	return lo
}

func (suite *GeneratedBarsTestSuite) TestRunManyMatchesSequentialRuns() {
	cfg := backtest.Config{TickSize: 1, Multiplier: 10, CommSlip: backtest.CommSlip{Rate: 0.0001, SlipTicks: 1}}

	var jobs []backtest.Job
	for _, n := range [][2]int{{3, 5}, {5, 20}, {10, 40}} {
		jobs = append(jobs, backtest.Job{DI: suite.di, Ptm: crossPtm(n[0], n[1]), Config: cfg})
	}

	results, err := backtest.RunMany(context.Background(), jobs, 3, nil)
	suite.Require().NoError(err)
	suite.Require().Len(results, 3)

	for i, job := range jobs {
		res, err := backtest.Run(context.Background(), suite.di, job.Ptm, cfg)
		suite.Require().NoError(err)
		suite.Equal(res.PnlDelta, results[i].Res.PnlDelta, job.Ptm.String())
		suite.Equal(2000, results[i].Res.Len())
		suite.NotEmpty(results[i].JobID)
	}
}

func BenchmarkRunGeneratedBars(b *testing.B) {
	cfg := mocks.DefaultConfig()
	d := di.New(types.Contract{Ticker: "rb", Code: "rb2405"}, pricestore.FromBars(mocks.NewDataGenerator(1).GenerateBars(cfg)))
	p := crossPtm(5, 20)

	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		if _, err := backtest.Run(context.Background(), d, p, backtest.Config{}); err != nil {
			b.Fatal(err)
		}
	}
}
