package cond

import (
	"fmt"
	"hash/fnv"
	"time"

	"github.com/baiguoname/qust-sub001/internal/di"
	"github.com/baiguoname/qust-sub001/internal/types"
	"github.com/baiguoname/qust-sub001/pkg/errors"
)

type timeFilter struct {
	from time.Duration
	to   time.Duration
}

// TimeFilter holds when the bar's time of day lies in [from, to]. A window
// with from after to wraps midnight.
func TimeFilter(from, to time.Duration) Cond {
	return timeFilter{from: from, to: to}
}

func (c timeFilter) String() string {
	return fmt.Sprintf("time(%s,%s)", c.from, c.to)
}

func (c timeFilter) Materialise(d *di.DataInstance) (Fn, error) {
	times := d.Store().T

	return func(now, _ int) bool {
		if now >= len(times) {
			return false
		}

		tod := types.TimeOfDay(times[now])
		if c.from <= c.to {
			return tod >= c.from && tod <= c.to
		}

		return tod >= c.from || tod <= c.to
	}, nil
}

type mask struct {
	name string
	bits []bool
}

// Mask reads a precomputed vector aligned with the raw bars. Rows past its
// end are false. name must identify the vector's contents.
func Mask(name string, bits []bool) Cond {
	return mask{name: name, bits: bits}
}

func (c mask) String() string {
	h := fnv.New32a()
	for _, b := range c.bits {
		if b {
			h.Write([]byte{1})
		} else {
			h.Write([]byte{0})
		}
	}

	return fmt.Sprintf("mask(%s,%08x)", c.name, h.Sum32())
}

func (c mask) Materialise(*di.DataInstance) (Fn, error) {
	bits := c.bits

	return func(now, _ int) bool {
		return now < len(bits) && bits[now]
	}, nil
}

type holdBars struct {
	n int
}

// HoldBars holds once at least n bars have passed since the open.
func HoldBars(n int) Cond {
	return holdBars{n: n}
}

func (c holdBars) String() string { return fmt.Sprintf("hold(%d)", c.n) }

func (c holdBars) Materialise(*di.DataInstance) (Fn, error) {
	if c.n < 0 {
		return nil, errors.Newf(errors.ErrCodeInvalidPeriod, "hold bars must not be negative, got %d", c.n)
	}

	return func(now, open int) bool { return now-open >= c.n }, nil
}

type stopLoss struct {
	dir   types.Dir
	ratio float64
}

// StopLoss holds when close has moved against a dir position by ratio of the
// close at the open bar.
func StopLoss(dir types.Dir, ratio float64) Cond {
	return stopLoss{dir: dir, ratio: ratio}
}

func (c stopLoss) String() string { return fmt.Sprintf("stop(%s,%g)", c.dir, c.ratio) }

func (c stopLoss) Materialise(d *di.DataInstance) (Fn, error) {
	if c.ratio <= 0 {
		return nil, errors.Newf(errors.ErrCodeInvalidParameter, "stop ratio must be positive, got %g", c.ratio)
	}

	closes := d.Store().C
	sign := c.dir.Sign()

	return func(now, open int) bool {
		if now >= len(closes) || open < 0 || open >= len(closes) {
			return false
		}

		entry := float64(closes[open])
		move := (float64(closes[now]) - entry) * sign

		return move <= -entry*c.ratio
	}, nil
}
