package persist

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/baiguoname/qust-sub001/internal/backtest"
	"github.com/baiguoname/qust-sub001/internal/pricestore"
	"github.com/baiguoname/qust-sub001/internal/types"
	"github.com/baiguoname/qust-sub001/internal/version"
	"github.com/baiguoname/qust-sub001/pkg/errors"
)

type PersistTestSuite struct {
	suite.Suite
	dir      string
	contract types.Contract
}

func TestPersistSuite(t *testing.T) {
	suite.Run(t, new(PersistTestSuite))
}

func (suite *PersistTestSuite) SetupTest() {
	suite.dir = suite.T().TempDir()
	suite.contract = types.Contract{Ticker: "rb", Code: "rb2405"}
}

func (suite *PersistTestSuite) store() *pricestore.PriceStore {
	start := time.Date(1969, 12, 31, 21, 0, 0, 0, time.UTC)
	bars := make([]types.Bar, 5)

	for i := range bars {
		t := start.Add(time.Duration(i) * time.Hour)
		c := float32(3500 + i)
		bars[i] = types.Bar{
			T:  t.Add(59 * time.Second),
			O:  c - 1,
			H:  c + 2,
			L:  c - 3,
			C:  c,
			V:  float32(10 * i),
			Ki: types.BarKey{OpenTime: t, PassThis: 60 + i, PassLast: i % 2},
		}
	}

	return pricestore.FromBars(bars)
}

func (suite *PersistTestSuite) TestBarsRoundTrip() {
	want := BarsOf(suite.contract, suite.store())

	for _, f := range []Format{FormatBinary, FormatJSON} {
		suite.Run(string(f), func() {
			suite.Require().NoError(Save(suite.dir, "rb", f, want))
			suite.FileExists(Path(suite.dir, "rb", f))

			got := &Bars{}
			suite.Require().NoError(Load(suite.dir, "rb", f, got))
			suite.Equal(want, got)

			store, err := got.Store(time.UTC)
			suite.Require().NoError(err)
			suite.Equal(5, store.Len())
			suite.Equal(want, BarsOf(suite.contract, store))
		})
	}
}

func (suite *PersistTestSuite) TestBarsKeepInfoMatrices() {
	src := suite.store()
	bars := make([]types.Bar, src.Len())

	for i := range bars {
		bars[i] = src.Row(i)
		bars[i].ImmutInfo = [][]float32{{float32(i), 1.5}, {-2, float32(10 * i)}}
	}

	bars[2].ImmutInfo = [][]float32{}
	want := BarsOf(suite.contract, pricestore.FromBars(bars))
	suite.Require().Len(want.Info, 5)

	for _, f := range []Format{FormatBinary, FormatJSON} {
		suite.Run(string(f), func() {
			suite.Require().NoError(Save(suite.dir, "info", f, want))

			got := &Bars{}
			suite.Require().NoError(Load(suite.dir, "info", f, got))

			store, err := got.Store(time.UTC)
			suite.Require().NoError(err)
			suite.Require().True(store.HasImmutInfo())
			suite.Equal([][]float32{{3, 1.5}, {-2, 30}}, store.ImmutInfo[3])
			suite.Empty(store.ImmutInfo[2])
		})
	}

	short := BarsOf(suite.contract, pricestore.FromBars(bars))
	short.Info = short.Info[:2]
	_, err := short.Store(time.UTC)
	suite.True(errors.HasCode(err, errors.ErrCodeColumnLength))
}

func (suite *PersistTestSuite) TestDaySeriesUsesDayNumbers() {
	days := []backtest.DayPnl{
		{Date: time.Date(1970, 1, 2, 0, 0, 0, 0, time.UTC), Pnl: 12.5},
		{Date: time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC), Pnl: -3},
	}

	s := DaySeriesOf(days)
	suite.Equal([]int32{1, 19786}, s.Days)

	for _, f := range []Format{FormatBinary, FormatJSON} {
		suite.Require().NoError(Save(suite.dir, "days", f, s))

		got := &DaySeries{}
		suite.Require().NoError(Load(suite.dir, "days", f, got))

		back, err := got.DayPnl(time.UTC)
		suite.Require().NoError(err)
		suite.Equal(days, back)
	}

	_, err := (&DaySeries{Days: []int32{1}}).DayPnl(time.UTC)
	suite.True(errors.HasCode(err, errors.ErrCodeColumnLength))
}

func (suite *PersistTestSuite) TestLockedStatePersistsInnerValue() {
	saved := time.Date(2024, 3, 4, 23, 0, 0, 0, time.UTC)
	hc := types.Contract{Ticker: "hc", Code: "hc2405"}
	state := NewLiveState(saved, saved, 3, map[types.Contract]types.Hold{
		suite.contract: {TdLo: 2},
		hc:             {TdSh: 1.5},
	})
	locked := NewLocked(state)

	suite.Equal("hc.hc2405", state.Holds[0].Contract)

	for _, f := range []Format{FormatBinary, FormatJSON} {
		suite.Run(string(f), func() {
			suite.Require().NoError(Save(suite.dir, "state", f, locked))

			// the unlocked form reads the same file
			plain := &LiveState{}
			suite.Require().NoError(Load(suite.dir, "state", f, plain))
			suite.Equal(state, plain)

			other := NewLocked(&LiveState{})
			suite.Require().NoError(Load(suite.dir, "state", f, other))
			suite.Equal(state, other.Get())

			h, ok := other.Get().Hold(suite.contract)
			suite.True(ok)
			suite.Equal(types.Hold{TdLo: 2}, h)
			suite.Equal(saved, other.Get().SavedTime(time.UTC))
			suite.Equal(time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC), other.Get().Day(time.UTC))
		})
	}
}

func (suite *PersistTestSuite) TestLoadErrors() {
	err := Load(suite.dir, "missing", FormatBinary, &Bars{})
	suite.True(errors.HasCode(err, errors.ErrCodeDataNotFound))

	suite.Require().NoError(Save(suite.dir, "rb", FormatBinary, BarsOf(suite.contract, suite.store())))
	err = Load(suite.dir, "rb", FormatBinary, &DaySeries{})
	suite.True(errors.HasCode(err, errors.ErrCodeMalformedInput))

	suite.Require().NoError(os.WriteFile(Path(suite.dir, "bad", FormatBinary), []byte{0xff, 0xff, 0xff}, 0644))
	err = Load(suite.dir, "bad", FormatBinary, &Bars{})
	suite.True(errors.HasCode(err, errors.ErrCodeMalformedInput))

	err = Save(suite.dir, "x", Format("xml"), &Bars{})
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidParameter))
}

func (suite *PersistTestSuite) TestNewerArtifactIsRefused() {
	current := version.Version
	defer func() { version.Version = current }()

	version.Version = "v0.9.0"
	suite.Require().NoError(Save(suite.dir, "days", FormatJSON, &DaySeries{Days: []int32{1}, Values: []float64{1}}))

	version.Version = "v0.4.0"
	err := Load(suite.dir, "days", FormatJSON, &DaySeries{})
	suite.True(errors.HasCode(err, errors.ErrCodeVersionMismatch))
}

func (suite *PersistTestSuite) TestBarsColumnCheck() {
	b := BarsOf(suite.contract, suite.store())
	b.C = b.C[:2]

	_, err := b.Store(time.UTC)
	suite.True(errors.HasCode(err, errors.ErrCodeColumnLength))
}
