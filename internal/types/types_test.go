package types

import (
	"testing"
	"time"

	"github.com/moznion/go-optional"
	"github.com/stretchr/testify/suite"
)

type TypesTestSuite struct {
	suite.Suite
}

func TestTypesSuite(t *testing.T) {
	suite.Run(t, new(TypesTestSuite))
}

func (suite *TypesTestSuite) TestDirOpposite() {
	suite.Equal(DirShort, DirLong.Opposite())
	suite.Equal(DirLong, DirShort.Opposite())
	suite.Equal(1.0, DirLong.Sign())
	suite.Equal(-1.0, DirShort.Sign())
	suite.False(Dir("UP").Valid())
}

func (suite *TypesTestSuite) TestTimeOfDay() {
	t := time.Date(2024, 3, 4, 21, 5, 7, int(250*time.Millisecond), time.UTC)
	suite.Equal(Clock(21, 5, 7, 250), TimeOfDay(t))
	suite.Equal(time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC), DateOf(t))
}

func (suite *TypesTestSuite) TestDayNumberRoundTrip() {
	loc := time.FixedZone("CST", 8*3600)
	t := time.Date(2024, 3, 4, 23, 30, 0, 0, loc)

	n := DayNumber(t)
	suite.Equal(int32(19786), n)
	suite.Equal(time.Date(2024, 3, 4, 0, 0, 0, 0, loc), FromDayNumber(n, loc))
}

func (suite *TypesTestSuite) TestMillisRoundTrip() {
	t := time.Date(2024, 3, 4, 9, 0, 0, int(150*time.Millisecond), time.UTC)
	suite.True(t.Equal(FromUnixMillis(UnixMillis(t), time.UTC)))
}

func (suite *TypesTestSuite) TestSignedSize() {
	tests := []struct {
		name     string
		action   OrderAction
		expected float64
	}{
		{"lo open buys", LoOpen(2, 10), 2},
		{"lo close buys", LoClose(3, 10), 3},
		{"sh open sells", ShOpen(3, 10), -3},
		{"sh close sells", ShClose(2, 10), -2},
		{"no action", NoAction(), 0},
		{"cancel", CancelOrder("7"), 0},
	}

	for _, tc := range tests {
		suite.Run(tc.name, func() {
			suite.Equal(tc.expected, tc.action.SignedSize())
		})
	}
}

func (suite *TypesTestSuite) TestActionString() {
	suite.Equal("SH_CLOSE(2, 3500)", ShClose(2, 3500).String())
	suite.True(LoClose(1, 3500).IsBuy())
	suite.False(ShClose(1, 3500).IsBuy())
	suite.Equal("No", NoAction().String())
	suite.Equal("CancelOrder(12)", CancelOrder("12").String())
}

func (suite *TypesTestSuite) TestHoldApply() {
	h := Hold{}
	h.Apply(OrderLoOpen, 2)
	suite.Equal(2.0, h.Net())

	h.Apply(OrderShClose, 2)
	h.Apply(OrderShOpen, 1)
	suite.Equal(-1.0, h.Net())
	suite.Equal(Hold{TdLo: 0, TdSh: 1}, h)

	h.Apply(OrderLoClose, 1)
	suite.Equal(0.0, h.Net())
}

func (suite *TypesTestSuite) TestNormHold() {
	suite.Equal(NormHold{Side: SideLong, Size: 2}, HoldOf(2))
	suite.Equal(NormHold{Side: SideShort, Size: 1.5}, HoldOf(-1.5))
	suite.True(HoldOf(0).IsFlat())
	suite.Equal(-1.5, HoldOf(-1.5).Signed())
}

func (suite *TypesTestSuite) TestRecvStatus() {
	suite.Equal("INSERT_ERROR(31)", RecvStatus{Kind: RecvInsertError, Code: 31}.String())
	suite.Equal("CANCELED(1)", RecvStatus{Kind: RecvCanceled, Filled: 1}.String())
	suite.True(RecvStatus{Kind: RecvAllTraded}.Terminal())
	suite.False(RecvStatus{Kind: RecvPartTradedQueueing, Filled: 1}.Terminal())
}

func (suite *TypesTestSuite) TestOrderRecvRef() {
	withRef := OrderRecv{ID: "a", OrderRef: optional.Some("17")}
	suite.Equal("17", withRef.Ref())

	withoutRef := OrderRecv{ID: "a", OrderRef: optional.None[string]()}
	suite.Equal("a", withoutRef.Ref())
}
