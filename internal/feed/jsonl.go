// Package feed decodes JSON-lines tick streams into bridge events.
//
// Each line is one tick:
//
//	{"code":"rb2405","t":1709514000500,"c":3500,"v":12,"bid1":3499,"ask1":3501,"bid1_v":3,"ask1_v":5}
//
// t is epoch milliseconds or an RFC 3339 string.
package feed

import (
	"bufio"
	"context"
	"io"
	"time"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/baiguoname/qust-sub001/internal/logger"
	"github.com/baiguoname/qust-sub001/internal/types"
	"github.com/baiguoname/qust-sub001/pkg/errors"
)

const maxLine = 1 << 20

// Decoder maps contract codes to bridge indices.
type Decoder struct {
	index map[string]int
	loc   *time.Location
}

// NewDecoder indexes contracts in order. Times are reported in loc, UTC when
// nil.
func NewDecoder(contracts []types.Contract, loc *time.Location) (*Decoder, error) {
	if len(contracts) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidConfiguration, "feed needs at least one contract")
	}

	if loc == nil {
		loc = time.UTC
	}

	d := &Decoder{index: make(map[string]int, len(contracts)), loc: loc}

	for i, c := range contracts {
		if _, dup := d.index[c.Code]; dup {
			return nil, errors.Newf(errors.ErrCodeInvalidConfiguration, "contract %s listed twice", c.Code)
		}

		d.index[c.Code] = i
	}

	return d, nil
}

// Decode parses one line.
func (d *Decoder) Decode(line []byte) (types.TickRecv, error) {
	if !gjson.ValidBytes(line) {
		return types.TickRecv{}, errors.New(errors.ErrCodeMalformedInput, "line is not valid JSON")
	}

	fields := gjson.GetManyBytes(line, "code", "t", "c", "v", "bid1", "ask1", "bid1_v", "ask1_v")

	code := fields[0]
	if !code.Exists() {
		return types.TickRecv{}, errors.New(errors.ErrCodeMalformedInput, "tick has no code")
	}

	index, ok := d.index[code.String()]
	if !ok {
		return types.TickRecv{}, errors.Newf(errors.ErrCodeInstrumentNotFound, "unknown contract %q", code.String())
	}

	t, err := d.time(fields[1])
	if err != nil {
		return types.TickRecv{}, err
	}

	if !fields[2].Exists() {
		return types.TickRecv{}, errors.New(errors.ErrCodeMalformedInput, "tick has no price")
	}

	return types.TickRecv{
		Index: index,
		Tick: types.TickData{
			T:     t,
			C:     float32(fields[2].Float()),
			V:     float32(fields[3].Float()),
			Bid1:  float32(fields[4].Float()),
			Ask1:  float32(fields[5].Float()),
			Bid1V: float32(fields[6].Float()),
			Ask1V: float32(fields[7].Float()),
		},
	}, nil
}

func (d *Decoder) time(v gjson.Result) (time.Time, error) {
	switch v.Type {
	case gjson.Number:
		return time.UnixMilli(v.Int()).In(d.loc), nil
	case gjson.String:
		t, err := time.Parse(time.RFC3339Nano, v.Str)
		if err != nil {
			return time.Time{}, errors.Wrapf(errors.ErrCodeUnparseableTime, err, "bad tick time %q", v.Str)
		}

		return t.In(d.loc), nil
	default:
		return time.Time{}, errors.New(errors.ErrCodeUnparseableTime, "tick has no time")
	}
}

// Stream decodes r line by line into out until r ends or ctx is done. Bad
// lines are logged and skipped. out is closed on return.
func Stream(ctx context.Context, r io.Reader, d *Decoder, out chan<- types.TickRecv, log *logger.Logger) error {
	defer close(out)

	if log == nil {
		log = logger.NewNopLogger()
	}

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLine)

	row := 0

	for sc.Scan() {
		row++

		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}

		ev, err := d.Decode(line)
		if err != nil {
			log.Warn("Skipping tick line", zap.Int("row", row), zap.Error(err))

			continue
		}

		select {
		case out <- ev:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	if err := sc.Err(); err != nil {
		return errors.Wrap(errors.ErrCodeDataSourceFailure, "failed to read tick stream", err)
	}

	return nil
}
