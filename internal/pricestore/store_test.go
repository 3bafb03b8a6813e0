package pricestore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/baiguoname/qust-sub001/internal/types"
	"github.com/baiguoname/qust-sub001/pkg/errors"
)

type PriceStoreTestSuite struct {
	suite.Suite
	base time.Time
}

func TestPriceStoreSuite(t *testing.T) {
	suite.Run(t, new(PriceStoreTestSuite))
}

func (suite *PriceStoreTestSuite) SetupTest() {
	suite.base = time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)
}

func (suite *PriceStoreTestSuite) bar(i int, o, h, l, c float32) types.Bar {
	t := suite.base.Add(time.Duration(i) * time.Minute)

	return types.Bar{T: t, O: o, H: h, L: l, C: c, V: 10, Ki: types.BarKey{OpenTime: t, PassThis: 1}}
}

func (suite *PriceStoreTestSuite) TestFromBarsAndRow() {
	store := FromBars([]types.Bar{
		suite.bar(0, 10, 11, 9, 10.5),
		suite.bar(1, 10.5, 12, 10, 11),
	})

	suite.Equal(2, store.Len())
	suite.False(store.HasImmutInfo())
	suite.NoError(store.Validate())
	suite.Equal(float32(11), store.Row(1).C)
	suite.Equal([]float64{10.5, 11}, store.Column(ColClose))
	suite.Nil(store.Column(Col("x")))
}

func (suite *PriceStoreTestSuite) TestValidateReportsRow() {
	tests := []struct {
		name string
		bars []types.Bar
		code errors.ErrorCode
		row  int
	}{
		{
			name: "inverted high low",
			bars: []types.Bar{suite.bar(0, 10, 11, 9, 10), suite.bar(1, 10, 9, 11, 10)},
			code: errors.ErrCodeInvertedBar,
			row:  1,
		},
		{
			name: "close above high",
			bars: []types.Bar{suite.bar(0, 10, 11, 9, 12)},
			code: errors.ErrCodeInvertedBar,
			row:  0,
		},
		{
			name: "time goes backwards",
			bars: []types.Bar{suite.bar(2, 10, 11, 9, 10), suite.bar(1, 10, 11, 9, 10)},
			code: errors.ErrCodeNonMonotonicTime,
			row:  1,
		},
	}

	for _, tc := range tests {
		suite.Run(tc.name, func() {
			err := FromBars(tc.bars).Validate()
			suite.Require().Error(err)
			suite.Equal(tc.code, errors.GetCode(err))
			suite.Equal(tc.row, errors.RowOf(err))
		})
	}
}

func (suite *PriceStoreTestSuite) TestValidateOpenTimeAfterBar() {
	b := suite.bar(0, 10, 11, 9, 10)
	b.Ki.OpenTime = b.T.Add(time.Second)

	err := FromBars([]types.Bar{b}).Validate()
	suite.Require().Error(err)
	suite.Equal(0, errors.RowOf(err))
}

func (suite *PriceStoreTestSuite) TestValidateColumnLengths() {
	store := FromBars([]types.Bar{suite.bar(0, 10, 11, 9, 10)})
	store.C = append(store.C, 1)

	suite.True(errors.HasCode(store.Validate(), errors.ErrCodeColumnLength))
}

func (suite *PriceStoreTestSuite) TestAppendLeavesOriginalUntouched() {
	store := FromBars([]types.Bar{suite.bar(0, 10, 11, 9, 10)})
	next := store.Append(suite.bar(1, 10, 12, 10, 12))

	suite.Equal(1, store.Len())
	suite.Equal(2, next.Len())
	suite.Equal(float32(12), next.Last().C)
}

func (suite *PriceStoreTestSuite) TestSliceAndConcat() {
	store := FromBars([]types.Bar{
		suite.bar(0, 10, 11, 9, 10),
		suite.bar(1, 10, 11, 9, 11),
		suite.bar(2, 11, 12, 10, 12),
	})

	head := store.Slice(0, 1)
	tail := store.Slice(1, 3)
	suite.Equal(1, head.Len())
	suite.Equal(2, tail.Len())

	// appending to a slice must not clobber the parent
	grown := head.Append(suite.bar(5, 1, 1, 1, 1))
	suite.Equal(float32(11), store.C[1])
	suite.Equal(2, grown.Len())

	joined := Concat(head, tail)
	suite.Equal(store.C, joined.C)
	suite.Equal(store.T, joined.T)
}

func (suite *PriceStoreTestSuite) TestImmutInfoCarriedOnlyWhenComplete() {
	a := suite.bar(0, 10, 11, 9, 10)
	a.ImmutInfo = [][]float32{{10, 1, 2}}
	b := suite.bar(1, 10, 11, 9, 10)

	suite.False(FromBars([]types.Bar{a, b}).HasImmutInfo())

	b.ImmutInfo = [][]float32{{10, 3, 4}}
	withInfo := FromBars([]types.Bar{a, b})
	suite.True(withInfo.HasImmutInfo())
	suite.Equal([][]float32{{10, 3, 4}}, withInfo.Row(1).ImmutInfo)

	suite.False(Concat(withInfo, FromBars([]types.Bar{suite.bar(2, 1, 1, 1, 1)})).HasImmutInfo())
}
