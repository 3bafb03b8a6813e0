package persist

import (
	"time"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/baiguoname/qust-sub001/internal/backtest"
	"github.com/baiguoname/qust-sub001/internal/types"
	"github.com/baiguoname/qust-sub001/pkg/errors"
)

// DaySeries is a value per calendar date.
type DaySeries struct {
	Days   []int32   `json:"days"`
	Values []float64 `json:"values"`
}

func DaySeriesOf(days []backtest.DayPnl) *DaySeries {
	s := &DaySeries{Days: make([]int32, len(days)), Values: make([]float64, len(days))}

	for i, d := range days {
		s.Days[i] = types.DayNumber(d.Date)
		s.Values[i] = d.Pnl
	}

	return s
}

func (s *DaySeries) Kind() string { return "day_series" }

// DayPnl converts the series back with dates at midnight in loc.
func (s *DaySeries) DayPnl(loc *time.Location) ([]backtest.DayPnl, error) {
	if len(s.Days) != len(s.Values) {
		return nil, errors.Newf(errors.ErrCodeColumnLength, "day series has %d dates and %d values", len(s.Days), len(s.Values))
	}

	out := make([]backtest.DayPnl, len(s.Days))
	for i, d := range s.Days {
		out[i] = backtest.DayPnl{Date: types.FromDayNumber(d, loc), Pnl: s.Values[i]}
	}

	return out, nil
}

func (s *DaySeries) AppendWire(out []byte) []byte {
	days := make([]int64, len(s.Days))
	for i, d := range s.Days {
		days[i] = int64(d)
	}

	out = appendPackedSint(out, 1, days)

	return appendPackedDouble(out, 2, s.Values)
}

func (s *DaySeries) ConsumeWire(in []byte) error {
	*s = DaySeries{}

	return consumeFields(in, func(num protowire.Number, _ protowire.Type, v []byte) error {
		switch num {
		case 1:
			days, err := unpackSint(v)
			if err != nil {
				return err
			}

			s.Days = make([]int32, len(days))
			for i, d := range days {
				s.Days[i] = int32(d)
			}
		case 2:
			values, err := unpackDouble(v)
			if err != nil {
				return err
			}

			s.Values = values
		}

		return nil
	})
}
