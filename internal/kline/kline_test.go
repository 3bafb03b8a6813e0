package kline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/baiguoname/qust-sub001/internal/inter"
	"github.com/baiguoname/qust-sub001/internal/types"
)

type KlineTestSuite struct {
	suite.Suite
	spec *inter.InterSpec
	day  time.Time
}

func TestKlineSuite(t *testing.T) {
	suite.Run(t, new(KlineTestSuite))
}

func (suite *KlineTestSuite) SetupTest() {
	spec, err := inter.Minutes(1, inter.Between(9, 0, 9, 3))
	suite.Require().NoError(err)
	suite.spec = spec
	suite.day = time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
}

func (suite *KlineTestSuite) tick(h, m, s, ms int, price float32) Quote {
	t := suite.day.Add(types.Clock(h, m, s, ms))

	return QuoteFromTick(types.TickData{T: t, C: price, V: 1, Ct: 1})
}

func (suite *KlineTestSuite) TestStateSequence() {
	m := NewMachine(suite.spec)

	tr := m.Update(suite.tick(8, 59, 59, 0, 100))
	suite.Equal(StateIgnor, tr.Kind())

	tr = m.Update(suite.tick(9, 0, 0, 500, 101))
	suite.Equal(StateBegin, tr.Kind())

	tr = m.Update(suite.tick(9, 0, 30, 0, 103))
	suite.Equal(StateMerging, tr.Kind())

	tr = m.Update(suite.tick(9, 0, 45, 0, 99))
	suite.Equal(StateMerging, tr.Kind())

	tr = m.Update(suite.tick(9, 1, 0, 0, 102))
	suite.Equal(StateFinished, tr.Kind())
	suite.Equal(StateBegin, tr.State)

	bar := tr.Finished.Unwrap()
	suite.Equal(float32(101), bar.O)
	suite.Equal(float32(103), bar.H)
	suite.Equal(float32(99), bar.L)
	suite.Equal(float32(99), bar.C)
	suite.Equal(float32(3), bar.V)
	suite.Equal(3, bar.Ki.PassThis)
	suite.Equal(1, bar.Ki.PassLast)
	suite.Equal(suite.day.Add(9*time.Hour), bar.Ki.OpenTime)
	suite.Equal(suite.day.Add(types.Clock(9, 0, 45, 0)), bar.T)
}

func (suite *KlineTestSuite) TestGapCountsSkippedTicks() {
	m := NewMachine(suite.spec)

	m.Update(suite.tick(9, 2, 0, 0, 100))
	tr := m.Update(suite.tick(9, 5, 0, 0, 100))
	suite.Equal(StateIgnor, tr.State)
	suite.True(tr.Finished.IsSome())

	m.Update(suite.tick(9, 6, 0, 0, 100))

	// next day, same window
	next := suite.day.AddDate(0, 0, 1).Add(9 * time.Hour)
	tr = m.Update(QuoteFromTick(types.TickData{T: next, C: 105, V: 1, Ct: 1}))
	suite.Equal(StateBegin, tr.Kind())

	bar := m.Flush().Unwrap()
	suite.Equal(2, bar.Ki.PassLast)
	suite.True(m.Emerging().IsNone())
}

func (suite *KlineTestSuite) TestSameWindowNextDayFinishes() {
	spec := inter.MustNew("night", inter.Between(21, 0, 23, 0))
	m := NewMachine(spec)

	m.Update(QuoteFromTick(types.TickData{T: suite.day.Add(22 * time.Hour), C: 1, V: 1}))
	tr := m.Update(QuoteFromTick(types.TickData{T: suite.day.AddDate(0, 0, 1).Add(21 * time.Hour), C: 2, V: 1}))
	suite.Equal(StateFinished, tr.Kind())
}

func (suite *KlineTestSuite) TestStaleQuoteIgnored() {
	m := NewMachine(suite.spec)
	m.Update(suite.tick(9, 0, 10, 0, 100))

	tr := m.Update(suite.tick(9, 0, 5, 0, 200))
	suite.Equal(StateIgnor, tr.Kind())
	suite.Equal(float32(100), m.Emerging().Unwrap().H)
}

func (suite *KlineTestSuite) TestReplayDeterministic() {
	quotes := []Quote{
		suite.tick(9, 0, 1, 0, 100),
		suite.tick(9, 0, 2, 0, 100.5),
		suite.tick(9, 1, 1, 0, 101),
		suite.tick(9, 2, 59, 999, 99.5),
	}

	first := Replay(suite.spec, quotes)
	second := Replay(suite.spec, quotes)

	suite.Len(first, 3)
	suite.Equal(first, second)
}

func (suite *KlineTestSuite) TestBarQuotesCarryInfo() {
	b := types.Bar{
		T: suite.day.Add(9 * time.Hour), O: 1, H: 2, L: 1, C: 2, V: 3,
		Ki:        types.BarKey{PassThis: 4},
		ImmutInfo: [][]float32{{1, 2, 3}},
	}
	m := NewMachine(suite.spec)
	m.Update(QuoteFromBar(b))
	b.T = b.T.Add(time.Second)
	m.Update(QuoteFromBar(b))

	bar := m.Flush().Unwrap()
	suite.Equal(8, bar.Ki.PassThis)
	suite.Len(bar.ImmutInfo, 2)
}
