package persist

import (
	"encoding/json"
	"sort"
	"sync"
	"time"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/baiguoname/qust-sub001/internal/types"
)

type HoldEntry struct {
	Contract string  `json:"contract"`
	TdLo     float64 `json:"td_lo"`
	TdSh     float64 `json:"td_sh"`
}

// LiveState is the snapshot a live run leaves behind.
type LiveState struct {
	TradingDay int32       `json:"trading_day"`
	SavedAt    int64       `json:"saved_at"`
	Run        int64       `json:"run"`
	Holds      []HoldEntry `json:"holds"`
}

// NewLiveState builds a snapshot with holds ordered by contract.
func NewLiveState(day, savedAt time.Time, run int, holds map[types.Contract]types.Hold) *LiveState {
	s := &LiveState{
		TradingDay: types.DayNumber(day),
		SavedAt:    types.UnixMillis(savedAt),
		Run:        int64(run),
	}

	for c, h := range holds {
		s.Holds = append(s.Holds, HoldEntry{Contract: c.String(), TdLo: h.TdLo, TdSh: h.TdSh})
	}

	sort.Slice(s.Holds, func(i, j int) bool { return s.Holds[i].Contract < s.Holds[j].Contract })

	return s
}

func (s *LiveState) Kind() string { return "live_state" }

func (s *LiveState) Day(loc *time.Location) time.Time {
	return types.FromDayNumber(s.TradingDay, loc)
}

func (s *LiveState) SavedTime(loc *time.Location) time.Time {
	return types.FromUnixMillis(s.SavedAt, loc)
}

func (s *LiveState) Hold(contract types.Contract) (types.Hold, bool) {
	key := contract.String()

	for _, h := range s.Holds {
		if h.Contract == key {
			return types.Hold{TdLo: h.TdLo, TdSh: h.TdSh}, true
		}
	}

	return types.Hold{}, false
}

func (s *LiveState) AppendWire(out []byte) []byte {
	out = appendSint(out, 1, int64(s.TradingDay))
	out = appendSint(out, 2, s.SavedAt)
	out = appendSint(out, 3, s.Run)

	for _, h := range s.Holds {
		msg := appendString(nil, 1, h.Contract)
		msg = appendDouble(msg, 2, h.TdLo)
		msg = appendDouble(msg, 3, h.TdSh)
		out = appendMessage(out, 4, msg)
	}

	return out
}

func (s *LiveState) ConsumeWire(in []byte) error {
	*s = LiveState{}

	return consumeFields(in, func(num protowire.Number, typ protowire.Type, v []byte) error {
		var err error

		switch num {
		case 1:
			var day int64
			day, err = sintOf(typ, v)
			s.TradingDay = int32(day)
		case 2:
			s.SavedAt, err = sintOf(typ, v)
		case 3:
			s.Run, err = sintOf(typ, v)
		case 4:
			var h HoldEntry
			err = consumeFields(v, func(num protowire.Number, typ protowire.Type, v []byte) error {
				var ferr error

				switch num {
				case 1:
					h.Contract = string(v)
				case 2:
					h.TdLo, ferr = doubleOf(typ, v)
				case 3:
					h.TdSh, ferr = doubleOf(typ, v)
				}

				return ferr
			})
			s.Holds = append(s.Holds, h)
		}

		return err
	})
}

// Locked guards a value shared between goroutines. It persists as the value
// it holds.
type Locked[T Artifact] struct {
	mu sync.RWMutex
	v  T
}

func NewLocked[T Artifact](v T) *Locked[T] {
	return &Locked[T]{v: v}
}

func (l *Locked[T]) Get() T {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return l.v
}

func (l *Locked[T]) Set(v T) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.v = v
}

func (l *Locked[T]) Kind() string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return l.v.Kind()
}

func (l *Locked[T]) AppendWire(b []byte) []byte {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return l.v.AppendWire(b)
}

func (l *Locked[T]) ConsumeWire(b []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.v.ConsumeWire(b)
}

func (l *Locked[T]) MarshalJSON() ([]byte, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return json.Marshal(l.v)
}

func (l *Locked[T]) UnmarshalJSON(b []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	return json.Unmarshal(b, &l.v)
}
