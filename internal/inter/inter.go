// Package inter describes intra-day bar windows.
package inter

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/baiguoname/qust-sub001/internal/types"
	"github.com/baiguoname/qust-sub001/pkg/errors"
)

// Interval is a half-open [Start, End) window in time-of-day coordinates.
type Interval struct {
	Start time.Duration
	End   time.Duration
}

// Between builds an interval from hh:mm pairs.
func Between(startHour, startMinute, endHour, endMinute int) Interval {
	return Interval{
		Start: types.Clock(startHour, startMinute, 0, 0),
		End:   types.Clock(endHour, endMinute, 0, 0),
	}
}

func (iv Interval) Contains(tod time.Duration) bool {
	return tod >= iv.Start && tod < iv.End
}

func (iv Interval) String() string {
	return clockString(iv.Start) + "-" + clockString(iv.End)
}

func clockString(d time.Duration) string {
	return fmt.Sprintf("%02d:%02d", int(d.Hours()), int(d.Minutes())%60)
}

// InterSpec is an ordered set of non-overlapping intervals.
type InterSpec struct {
	name      string
	intervals []Interval
}

// New sorts and checks the intervals.
func New(name string, intervals ...Interval) (*InterSpec, error) {
	if len(intervals) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidParameter, "inter spec needs at least one interval")
	}

	sorted := append([]Interval(nil), intervals...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })

	for i, iv := range sorted {
		if iv.End <= iv.Start || iv.Start < 0 || iv.End > 24*time.Hour {
			return nil, errors.Newf(errors.ErrCodeInvalidParameter, "invalid interval %s", iv)
		}

		if i > 0 && iv.Start < sorted[i-1].End {
			return nil, errors.Newf(errors.ErrCodeInvalidParameter, "interval %s overlaps %s", iv, sorted[i-1])
		}
	}

	if name == "" {
		parts := make([]string, len(sorted))
		for i, iv := range sorted {
			parts[i] = iv.String()
		}

		name = strings.Join(parts, ",")
	}

	return &InterSpec{name: name, intervals: sorted}, nil
}

// MustNew is New for static tables.
func MustNew(name string, intervals ...Interval) *InterSpec {
	s, err := New(name, intervals...)
	if err != nil {
		panic(err)
	}

	return s
}

func (s *InterSpec) String() string {
	return "inter(" + s.name + ")"
}

func (s *InterSpec) Intervals() []Interval {
	return s.intervals
}

// Locate returns the index of the interval holding t's time of day.
func (s *InterSpec) Locate(t time.Time) (int, bool) {
	tod := types.TimeOfDay(t)

	i := sort.Search(len(s.intervals), func(i int) bool { return s.intervals[i].End > tod })
	if i < len(s.intervals) && s.intervals[i].Contains(tod) {
		return i, true
	}

	return -1, false
}

// At returns interval i.
func (s *InterSpec) At(i int) Interval {
	return s.intervals[i]
}

// FuturesSessions is the regular day and night trading schedule of the
// domestic commodity exchanges.
func FuturesSessions() []Interval {
	return []Interval{
		Between(9, 0, 10, 15),
		Between(10, 30, 11, 30),
		Between(13, 30, 15, 0),
		Between(21, 0, 23, 0),
	}
}

// Minutes tiles every session into windows of n minutes. The last window of a
// session is cut at the session end.
func Minutes(n int, sessions ...Interval) (*InterSpec, error) {
	if n <= 0 {
		return nil, errors.Newf(errors.ErrCodeInvalidPeriod, "window must be positive, got %d", n)
	}

	if len(sessions) == 0 {
		sessions = FuturesSessions()
	}

	step := time.Duration(n) * time.Minute

	var out []Interval

	for _, session := range sessions {
		for start := session.Start; start < session.End; start += step {
			out = append(out, Interval{Start: start, End: min(start+step, session.End)})
		}
	}

	return New(fmt.Sprintf("m%d", n), out...)
}
