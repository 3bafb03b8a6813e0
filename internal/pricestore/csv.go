package pricestore

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/ncruces/go-strftime"

	"github.com/baiguoname/qust-sub001/internal/types"
	"github.com/baiguoname/qust-sub001/pkg/errors"
)

// DefaultPattern is the strftime pattern used when none is given.
const DefaultPattern = "%Y-%m-%dT%H:%M:%S%.f"

// TimeParser parses timestamps with a strftime pattern. A trailing "%.f" is
// optional fractional seconds.
type TimeParser struct {
	layout string
	loc    *time.Location
}

// NewTimeParser converts pattern into a Go layout. An empty pattern selects
// DefaultPattern and a nil location selects time.Local.
func NewTimeParser(pattern string, loc *time.Location) (*TimeParser, error) {
	if pattern == "" {
		pattern = DefaultPattern
	}

	if loc == nil {
		loc = time.Local
	}

	// Go accepts fractional seconds after the seconds field without a layout element.
	layout, err := strftime.Layout(strings.ReplaceAll(pattern, "%.f", ""))
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeInvalidParameter, err, "unsupported time pattern %q", pattern)
	}

	return &TimeParser{layout: layout, loc: loc}, nil
}

func (p *TimeParser) Parse(value string) (time.Time, error) {
	return time.ParseInLocation(p.layout, strings.TrimSpace(value), p.loc)
}

// BarCSVOptions selects the bar columns by index.
type BarCSVOptions struct {
	// Columns holds the indices of t, o, h, l, c, v. The zero value means 0..5.
	Columns  [6]int
	Pattern  string
	Location *time.Location
}

func (o BarCSVOptions) columns() [6]int {
	if o.Columns == [6]int{} {
		return [6]int{0, 1, 2, 3, 4, 5}
	}

	return o.Columns
}

// LoadBarsCSVFile opens path and loads it with LoadBarsCSV.
func LoadBarsCSVFile(path string, opts BarCSVOptions) (*PriceStore, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeDataNotFound, err, "failed to open bar file %s", path)
	}
	defer f.Close()

	return LoadBarsCSV(f, opts)
}

// LoadBarsCSV reads bars from r. A first row whose time column does not parse
// is treated as a header; any later unparseable or inconsistent row is fatal.
// Every row must have as many fields as the first one.
func LoadBarsCSV(r io.Reader, opts BarCSVOptions) (*PriceStore, error) {
	parser, err := NewTimeParser(opts.Pattern, opts.Location)
	if err != nil {
		return nil, err
	}

	// columns are picked by index, so rows are decoded one at a time
	decoder := gocsv.NewSimpleDecoderFromCSVReader(gocsv.LazyCSVReader(bufio.NewReader(r)))

	cols := opts.columns()
	store := New(1024)

	for row := 0; ; row++ {
		record, err := decoder.GetCSVRow()
		if err == io.EOF {
			break
		}

		if err != nil {
			return nil, errors.NewRowError(errors.ErrCodeMalformedInput, row, "%v", err)
		}

		bar, err := parseBarRecord(record, cols, parser)
		if err != nil {
			if row == 0 && errors.HasCode(err, errors.ErrCodeUnparseableTime) {
				continue
			}

			return nil, errors.NewRowError(errors.GetCode(err), row, "%v", err)
		}

		store.push(bar, false)
	}

	if err := store.Validate(); err != nil {
		return nil, err
	}

	return store, nil
}

func parseBarRecord(record []string, cols [6]int, parser *TimeParser) (types.Bar, error) {
	for _, idx := range cols {
		if idx >= len(record) {
			return types.Bar{}, errors.Newf(errors.ErrCodeMalformedInput, "missing column %d", idx)
		}
	}

	t, err := parser.Parse(record[cols[0]])
	if err != nil {
		return types.Bar{}, errors.Wrap(errors.ErrCodeUnparseableTime, "bad timestamp", err)
	}

	var vals [5]float32

	for k := 0; k < 5; k++ {
		v, err := strconv.ParseFloat(strings.TrimSpace(record[cols[k+1]]), 32)
		if err != nil {
			return types.Bar{}, errors.Wrap(errors.ErrCodeMalformedInput, "bad number", err)
		}

		vals[k] = float32(v)
	}

	return types.Bar{
		T:  t,
		O:  vals[0],
		H:  vals[1],
		L:  vals[2],
		C:  vals[3],
		V:  vals[4],
		Ki: types.BarKey{OpenTime: t, PassThis: 1, PassLast: 0},
	}, nil
}

// tickRow mirrors the tick CSV column order.
type tickRow struct {
	T     string  `csv:"t"`
	C     float32 `csv:"c"`
	V     float32 `csv:"v"`
	Bid1  float32 `csv:"bid1"`
	Ask1  float32 `csv:"ask1"`
	Bid1V float32 `csv:"bid1_v"`
	Ask1V float32 `csv:"ask1_v"`
}

// LoadTicksCSV reads t, c, v, bid1, ask1, bid1_v, ask1_v rows. The header is
// optional and Ct is set to 1. Timestamps must not go backwards.
func LoadTicksCSV(r io.Reader, pattern string, loc *time.Location) ([]types.TickData, error) {
	parser, err := NewTimeParser(pattern, loc)
	if err != nil {
		return nil, err
	}

	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeMalformedInput, "failed to read ticks", err)
	}

	offset := 0
	if first, _, _ := bytes.Cut(raw, []byte("\n")); len(first) > 0 {
		cell, _, _ := strings.Cut(strings.TrimRight(string(first), "\r"), ",")
		if _, err := parser.Parse(cell); err != nil {
			raw = raw[min(len(first)+1, len(raw)):]
			offset = 1
		}
	}

	var rows []*tickRow
	if err := gocsv.UnmarshalWithoutHeaders(bytes.NewReader(raw), &rows); err != nil {
		return nil, errors.Wrap(errors.ErrCodeMalformedInput, "failed to decode ticks", err)
	}

	ticks := make([]types.TickData, 0, len(rows))

	for i, row := range rows {
		t, err := parser.Parse(row.T)
		if err != nil {
			return nil, errors.NewRowError(errors.ErrCodeUnparseableTime, i+offset, "bad timestamp %q: %v", row.T, err)
		}

		if len(ticks) > 0 && t.Before(ticks[len(ticks)-1].T) {
			return nil, errors.NewRowError(errors.ErrCodeNonMonotonicTime, i+offset, "tick at %s before previous", t)
		}

		ticks = append(ticks, types.TickData{
			T:     t,
			C:     row.C,
			V:     row.V,
			Bid1:  row.Bid1,
			Ask1:  row.Ask1,
			Bid1V: row.Bid1V,
			Ask1V: row.Ask1V,
			Ct:    1,
		})
	}

	return ticks, nil
}

// LoadTicksCSVFile opens path and loads it with LoadTicksCSV.
func LoadTicksCSVFile(path, pattern string, loc *time.Location) ([]types.TickData, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open tick file %s: %w", path, err)
	}
	defer f.Close()

	return LoadTicksCSV(f, pattern, loc)
}
