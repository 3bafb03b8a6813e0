package cond

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/baiguoname/qust-sub001/internal/di"
	"github.com/baiguoname/qust-sub001/internal/indicator"
	"github.com/baiguoname/qust-sub001/internal/pipeline"
	"github.com/baiguoname/qust-sub001/internal/pricestore"
	"github.com/baiguoname/qust-sub001/internal/types"
	"github.com/baiguoname/qust-sub001/pkg/errors"
)

type CondTestSuite struct {
	suite.Suite
}

func TestCondSuite(t *testing.T) {
	suite.Run(t, new(CondTestSuite))
}

var start = time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)

// secondDI builds one bar per close, a second apart.
func secondDI(closes ...float32) *di.DataInstance {
	bars := make([]types.Bar, len(closes))

	for i, c := range closes {
		t := start.Add(time.Duration(i) * time.Second)
		bars[i] = types.Bar{T: t, O: c, H: c, L: c, C: c, V: 1, Ki: types.BarKey{OpenTime: t, PassThis: 1}}
	}

	return di.New(types.Contract{Ticker: "rb", Code: "rb2405"}, pricestore.FromBars(bars))
}

func crossoverCloses() []float32 {
	var closes []float32
	for i := 0; i < 9; i++ {
		closes = append(closes, 100)
	}

	for i := 0; i < 20; i++ {
		closes = append(closes, 110)
	}

	for i := 0; i < 20; i++ {
		closes = append(closes, 90)
	}

	return closes
}

func (suite *CondTestSuite) firing(c Cond, d *di.DataInstance) []int {
	fn, err := c.Materialise(d)
	suite.Require().NoError(err, c.String())

	var out []int

	for i := 0; i < d.Len(); i++ {
		if fn(i, i) {
			out = append(out, i)
		}
	}

	return out
}

func (suite *CondTestSuite) TestCrossOnMovingAverages() {
	d := secondDI(crossoverCloses()...)
	ma := pipeline.OnOri(indicator.CrossMA{Short: 3, Long: 5})

	suite.Equal([]int{9}, suite.firing(CrossCond(types.DirLong, ma), d))
	suite.Equal([]int{29}, suite.firing(CrossCond(types.DirShort, ma), d))
}

func (suite *CondTestSuite) TestCrossNeedsTwoColumns() {
	_, err := CrossCond(types.DirLong, pipeline.OnOri(indicator.MA{N: 2})).Materialise(secondDI(1, 2, 3))
	suite.True(errors.HasCode(err, errors.ErrCodeColumnCount))
}

func (suite *CondTestSuite) TestRepeatedReadsAreIdempotent() {
	d := secondDI(crossoverCloses()...)
	fn, err := CrossCond(types.DirLong, pipeline.OnOri(indicator.CrossMA{Short: 3, Long: 5})).Materialise(d)
	suite.Require().NoError(err)

	for i := 0; i < 3; i++ {
		suite.True(fn(9, 9))
		suite.False(fn(10, 9))
	}
}

func (suite *CondTestSuite) TestLogic() {
	d := secondDI(1, 2, 3, 4)
	even := Mask("even", []bool{true, false, true, false})
	low := Mask("low", []bool{true, true, false, false})

	suite.Equal([]int{0}, suite.firing(And(even, low), d))
	suite.Equal([]int{0, 1, 2}, suite.firing(Or(even, low), d))
	suite.Equal([]int{1, 3}, suite.firing(Not(even), d))
	suite.Equal([]int{0, 1, 2, 3}, suite.firing(True(), d))
	suite.Empty(suite.firing(False(), d))
	suite.Equal([]int{0, 1, 2, 3}, suite.firing(And(), d))
	suite.Equal("and(true,not(false))", And(True(), Not(False())).String())
	suite.Equal("or(false)", Or(False()).String())
}

func (suite *CondTestSuite) TestMaskDescriptorsDependOnContent() {
	a := Mask("m", []bool{true, false})
	b := Mask("m", []bool{false, true})

	suite.NotEqual(a.String(), b.String())
	suite.Equal(a.String(), Mask("m", []bool{true, false}).String())
}

func (suite *CondTestSuite) TestTimeFilter() {
	d := secondDI(1, 2, 3, 4, 5)

	from := 9 * time.Hour
	suite.Equal([]int{1, 2, 3}, suite.firing(TimeFilter(from+time.Second, from+3*time.Second), d))

	// wraps midnight
	suite.Equal([]int{0, 1, 4}, suite.firing(TimeFilter(from+4*time.Second, from+time.Second), d))
}

func (suite *CondTestSuite) TestRangeIsHalfOpen() {
	d := secondDI(1, 2, 3, 4)
	suite.Equal([]int{1, 2}, suite.firing(RangeCond(pipeline.OnOri(indicator.MA{N: 1}), 2, 4), d))
}

func (suite *CondTestSuite) TestBandWithThreeColumns() {
	d := secondDI(10, 11, 10, 12, 13, 9)
	band := pipeline.OnOri(indicator.PriceBand{N: 2})

	// up is the prior two highs: row 3 breaks 11, row 4 stays above 12
	suite.Equal([]int{3}, suite.firing(BandCond(types.DirLong, ModeAction, band), d))
	suite.Equal([]int{3, 4}, suite.firing(BandCond(types.DirLong, ModeLieing, band), d))
	suite.Equal([]int{5}, suite.firing(BandCond(types.DirShort, ModeAction, band), d))
}

func (suite *CondTestSuite) TestBandWithOneColumnAgainstZero() {
	d := secondDI(5, 4, 6, 7, 3)
	mom := pipeline.OnOri(indicator.Mom{N: 1})

	suite.Equal([]int{2}, suite.firing(BandCond(types.DirLong, ModeAction, mom), d))
	suite.Equal([]int{2, 3}, suite.firing(BandCond(types.DirLong, ModeLieing, mom), d))
	suite.Equal([]int{1, 4}, suite.firing(BandCond(types.DirShort, ModeLieing, mom), d))

	_, err := BandCond(types.DirLong, "sideways", mom).Materialise(d)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidParameter))
}

func (suite *CondTestSuite) TestHoldBarsAndStopLoss() {
	d := secondDI(100, 99, 97, 103)

	hold, err := HoldBars(2).Materialise(d)
	suite.Require().NoError(err)
	suite.False(hold(1, 0))
	suite.True(hold(2, 0))

	longStop, err := StopLoss(types.DirLong, 0.02).Materialise(d)
	suite.Require().NoError(err)
	suite.False(longStop(1, 0))
	suite.True(longStop(2, 0))

	shortStop, err := StopLoss(types.DirShort, 0.02).Materialise(d)
	suite.Require().NoError(err)
	suite.True(shortStop(3, 0))
	suite.False(shortStop(2, 0))

	_, err = StopLoss(types.DirLong, 0).Materialise(d)
	suite.Error(err)
}

func (suite *CondTestSuite) TestMaterialiseErrorsCarryCause() {
	_, err := RangeCond(pipeline.OnOri(indicator.MA{N: -1}), 0, 1).Materialise(secondDI(1))
	suite.True(errors.HasCode(err, errors.ErrCodeConditionMaterialise))
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidPeriod))

	_, err = And(True(), RangeCond(pipeline.OnOri(indicator.MA{N: -1}), 0, 1)).Materialise(secondDI(1))
	suite.Error(err)
}

func (suite *CondTestSuite) TestSpread() {
	gate := Spread(2, 0.5)

	suite.True(gate.Allow(types.TickData{Bid1: 100, Ask1: 101}))
	suite.False(gate.Allow(types.TickData{Bid1: 100, Ask1: 101.5}))
	suite.False(gate.Allow(types.TickData{Bid1: 0, Ask1: 101}))
	suite.True(AllowAll().Allow(types.TickData{}))
}
