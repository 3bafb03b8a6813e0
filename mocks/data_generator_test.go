package mocks

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/baiguoname/qust-sub001/internal/pricestore"
)

type DataGeneratorTestSuite struct {
	suite.Suite
}

func TestDataGeneratorSuite(t *testing.T) {
	suite.Run(t, new(DataGeneratorTestSuite))
}

func (suite *DataGeneratorTestSuite) TestBarsAreValid() {
	config := DefaultConfig()
	config.Count = 500

	bars := NewDataGenerator(42).GenerateBars(config)
	suite.Len(bars, 500)

	for i := 1; i < len(bars); i++ {
		suite.Equal(config.Interval, bars[i].T.Sub(bars[i-1].T))
		suite.Equal(bars[i-1].C, bars[i].O)
	}

	suite.NoError(pricestore.FromBars(bars).Validate())
}

func (suite *DataGeneratorTestSuite) TestTicksHaveOneTickSpread() {
	config := DefaultConfig()
	config.Count = 200
	config.Interval = 250 * time.Millisecond

	for _, tick := range NewDataGenerator(7).GenerateTicks(config) {
		suite.Equal(float32(config.TickSize), tick.Ask1-tick.Bid1)
		suite.GreaterOrEqual(tick.C, tick.Bid1)
		suite.LessOrEqual(tick.C, tick.Ask1)
		suite.Equal(1, tick.Ct)
	}
}

func (suite *DataGeneratorTestSuite) TestReproducibility() {
	config := DefaultConfig()
	config.Count = 50

	suite.Equal(NewDataGenerator(42).GenerateBars(config), NewDataGenerator(42).GenerateBars(config))
	suite.NotEqual(NewDataGenerator(42).GenerateBars(config), NewDataGenerator(123).GenerateBars(config))
}

func (suite *DataGeneratorTestSuite) TestGenerate10K() {
	suite.Len(Generate10K(), 10000)
}
