package converter

import (
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/baiguoname/qust-sub001/internal/inter"
	"github.com/baiguoname/qust-sub001/internal/kline"
	"github.com/baiguoname/qust-sub001/internal/pricestore"
	"github.com/baiguoname/qust-sub001/internal/types"
	"github.com/baiguoname/qust-sub001/pkg/errors"
)

type ConverterTestSuite struct {
	suite.Suite
	day time.Time
}

func TestConverterSuite(t *testing.T) {
	suite.Run(t, new(ConverterTestSuite))
}

func (suite *ConverterTestSuite) SetupTest() {
	suite.day = time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)
}

// minuteBars builds one bar per closing price, 30s into each minute from 09:00.
func (suite *ConverterTestSuite) minuteBars(closes []float32, volumes []float32) *pricestore.PriceStore {
	bars := make([]types.Bar, len(closes))
	prev := closes[0]

	for i, c := range closes {
		open := suite.day.Add(time.Duration(i) * time.Minute)
		bars[i] = types.Bar{
			T:  open.Add(30 * time.Second),
			O:  prev,
			H:  max(prev, c) + 1,
			L:  min(prev, c) - 1,
			C:  c,
			V:  volumes[i],
			Ki: types.BarKey{OpenTime: open, PassThis: 1},
		}
		prev = c
	}

	return pricestore.FromBars(bars)
}

func ones(n int) []float32 {
	v := make([]float32, n)
	for i := range v {
		v[i] = 1
	}

	return v
}

func (suite *ConverterTestSuite) TestOriIsIdentity() {
	store := suite.minuteBars([]float32{1, 2, 3}, ones(3))

	out, err := Ori().Convert(store)
	suite.Require().NoError(err)
	suite.Same(store, out.Store)
	suite.Equal([]int{0, 1, 2}, out.RawEnd)
}

func (suite *ConverterTestSuite) TestTFGroups() {
	store := suite.minuteBars([]float32{1, 2, 3, 4, 5, 6, 7}, ones(7))

	c, err := TF(0, 3)
	suite.Require().NoError(err)
	suite.Equal("tf(0,3)", c.String())

	out, err := c.Convert(store)
	suite.Require().NoError(err)
	suite.Equal([]int{2, 5, 6}, out.RawEnd)
	suite.Equal([]float32{3, 6, 7}, out.Store.C)
	suite.Equal([]float32{3, 3, 1}, out.Store.V)
	suite.Equal(float32(4), out.Store.H[0])
	suite.Equal(float32(0), out.Store.L[0])
	suite.Equal(3, out.Store.Ki[1].PassThis)
	suite.Equal(store.Ki[3].OpenTime, out.Store.Ki[1].OpenTime)
	suite.Equal(store.T[5], out.Store.T[1])
}

func (suite *ConverterTestSuite) TestTFPhase() {
	store := suite.minuteBars([]float32{1, 2, 3, 4, 5, 6, 7}, ones(7))

	c, err := TF(1, 3)
	suite.Require().NoError(err)

	out, err := c.Convert(store)
	suite.Require().NoError(err)
	suite.Equal([]int{1, 4, 6}, out.RawEnd)
}

func (suite *ConverterTestSuite) TestTFRejectsBadParameters() {
	_, err := TF(0, 0)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidParameter))

	_, err = TF(3, 3)
	suite.Error(err)
}

func (suite *ConverterTestSuite) TestHaConstantSeries() {
	closes := []float32{50, 50, 50, 50}
	bars := make([]types.Bar, len(closes))

	for i := range bars {
		bars[i] = types.Bar{T: suite.day.Add(time.Duration(i) * time.Minute), O: 50, H: 50, L: 50, C: 50, V: 1}
	}

	out, err := Ha().Convert(pricestore.FromBars(bars))
	suite.Require().NoError(err)

	for i := range closes {
		suite.Equal(float32(50), out.Store.O[i])
		suite.Equal(float32(50), out.Store.H[i])
		suite.Equal(float32(50), out.Store.L[i])
		suite.Equal(float32(50), out.Store.C[i])
	}
}

func (suite *ConverterTestSuite) TestHaDropsInfo() {
	bars := []types.Bar{{T: suite.day, O: 1, H: 2, L: 1, C: 2, ImmutInfo: [][]float32{{1}}}}

	out, err := Ha().Convert(pricestore.FromBars(bars))
	suite.Require().NoError(err)
	suite.False(out.Store.HasImmutInfo())
}

func (suite *ConverterTestSuite) TestOutputsKeepOHLCInvariant() {
	rng := rand.New(rand.NewSource(7))
	closes := make([]float32, 200)
	price := float32(100)

	for i := range closes {
		price += float32(rng.NormFloat64())
		closes[i] = price
	}

	store := suite.minuteBars(closes, ones(len(closes)))

	tf5, err := TF(2, 5)
	suite.Require().NoError(err)

	vf, err := VolFilter(10, 1.5)
	suite.Require().NoError(err)

	for _, c := range []Converter{Ori(), Ha(), tf5, vf, PreNow(Ha(), tf5)} {
		out, err := c.Convert(store)
		suite.Require().NoError(err, c.String())
		suite.NoError(out.Store.Validate(), c.String())
		suite.Equal(out.Store.Len(), len(out.RawEnd), c.String())
		suite.Equal(store.Len()-1, out.RawEnd[len(out.RawEnd)-1], c.String())
	}
}

func (suite *ConverterTestSuite) TestEventMatchesReplay() {
	spec, err := inter.Minutes(2, inter.Between(9, 0, 9, 6))
	suite.Require().NoError(err)

	// raw bars run past the last window
	store := suite.minuteBars([]float32{1, 2, 3, 4, 5, 6, 7, 8}, ones(8))

	out, err := Event(spec).Convert(store)
	suite.Require().NoError(err)

	quotes := make([]kline.Quote, store.Len())
	for i := range quotes {
		quotes[i] = kline.QuoteFromBar(store.Row(i))
	}

	suite.Equal(kline.Replay(spec, quotes), rowsOf(out.Store))
	suite.Equal([]int{1, 3, 5}, out.RawEnd)
	suite.Equal("event(inter(m2))", Event(spec).String())
}

func rowsOf(store *pricestore.PriceStore) []types.Bar {
	rows := make([]types.Bar, store.Len())
	for i := range rows {
		rows[i] = store.Row(i)
	}

	return rows
}

func (suite *ConverterTestSuite) TestPreNowComposesRawEnds() {
	store := suite.minuteBars([]float32{1, 2, 3, 4, 5, 6, 7, 8}, ones(8))

	tf2, err := TF(0, 2)
	suite.Require().NoError(err)

	tf4, err := TF(0, 4)
	suite.Require().NoError(err)

	composed, err := PreNow(tf2, tf2).Convert(store)
	suite.Require().NoError(err)

	direct, err := tf4.Convert(store)
	suite.Require().NoError(err)

	suite.Equal(direct.RawEnd, composed.RawEnd)
	suite.Equal(direct.Store.C, composed.Store.C)
	suite.Equal(direct.Store.V, composed.Store.V)
	suite.Equal("prenow(tf(0,2),tf(0,2))", PreNow(tf2, tf2).String())
}

func (suite *ConverterTestSuite) TestVolFilterThreshold() {
	store := suite.minuteBars([]float32{1, 2, 3, 4, 5, 6}, []float32{10, 10, 10, 1, 1, 1})

	vf, err := VolFilter(3, 0)
	suite.Require().NoError(err)

	out, err := vf.Convert(store)
	suite.Require().NoError(err)
	suite.Equal([]int{0, 1, 2, 5}, out.RawEnd)
	suite.Equal(float32(3), out.Store.V[3])

	_, err = VolFilter(0, 1)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidPeriod))
}

func (suite *ConverterTestSuite) TestVertBack() {
	store := suite.minuteBars([]float32{1, 2, 3, 4}, ones(4))

	tf2, err := TF(0, 2)
	suite.Require().NoError(err)

	out, err := tf2.Convert(store)
	suite.Require().NoError(err)

	back := VertBack(out, store.Len(), [][]float64{{10, 20}})
	suite.Require().Len(back, 1)
	suite.True(math.IsNaN(back[0][0]))
	suite.Equal(10.0, back[0][1])
	suite.True(math.IsNaN(back[0][2]))
	suite.Equal(20.0, back[0][3])

	ori, err := Ori().Convert(store)
	suite.Require().NoError(err)

	cols := [][]float64{{1, 2, 3, 4}}
	suite.Equal(cols, VertBack(ori, store.Len(), cols))
}

func (suite *ConverterTestSuite) TestCutIndex() {
	bars := []types.Bar{
		{T: time.Date(2024, 3, 4, 14, 58, 0, 0, time.UTC), O: 1, H: 1, L: 1, C: 1},
		{T: time.Date(2024, 3, 4, 14, 59, 0, 0, time.UTC), O: 1, H: 1, L: 1, C: 1},
		{T: time.Date(2024, 3, 4, 21, 0, 0, 0, time.UTC), O: 1, H: 1, L: 1, C: 1},
		{T: time.Date(2024, 3, 4, 21, 1, 0, 0, time.UTC), O: 1, H: 1, L: 1, C: 1},
	}

	cuts, err := CutIndex(Ori(), pricestore.FromBars(bars))
	suite.Require().NoError(err)
	suite.Equal([]int{0, 2}, cuts)
}
