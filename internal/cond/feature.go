package cond

import (
	"fmt"

	"github.com/baiguoname/qust-sub001/internal/di"
	"github.com/baiguoname/qust-sub001/internal/pipeline"
	"github.com/baiguoname/qust-sub001/internal/types"
	"github.com/baiguoname/qust-sub001/pkg/errors"
)

// Mode selects how BandCond reads a band.
type Mode string

const (
	// ModeAction fires on the bar the line breaks out of the band.
	ModeAction Mode = "action"
	// ModeLieing holds on every bar the line sits outside the band.
	ModeLieing Mode = "lieing"
)

// columns materialises p on the raw axis and checks its width. With no
// allowed widths any non-empty stack is accepted.
func columns(d *di.DataInstance, p *pipeline.Pms, allowed ...int) ([][]float64, error) {
	cols, err := p.OnRaw(d)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeConditionMaterialise, err, "materialise %s", p)
	}

	if len(allowed) == 0 && len(cols) > 0 {
		return cols, nil
	}

	for _, n := range allowed {
		if len(cols) == n {
			return cols, nil
		}
	}

	return nil, errors.Newf(errors.ErrCodeColumnCount, "%s has %d columns, want one of %v", p, len(cols), allowed)
}

type rangeCond struct {
	pms *pipeline.Pms
	lo  float64
	hi  float64
}

// RangeCond holds when the first column of p lies in [lo, hi).
func RangeCond(p *pipeline.Pms, lo, hi float64) Cond {
	return rangeCond{pms: p, lo: lo, hi: hi}
}

func (c rangeCond) String() string {
	return fmt.Sprintf("range(%s,%g,%g)", c.pms, c.lo, c.hi)
}

func (c rangeCond) Materialise(d *di.DataInstance) (Fn, error) {
	cols, err := columns(d, c.pms)
	if err != nil {
		return nil, err
	}

	x := cols[0]

	return func(now, _ int) bool {
		return now < len(x) && x[now] >= c.lo && x[now] < c.hi
	}, nil
}

type bandCond struct {
	dir  types.Dir
	mode Mode
	pms  *pipeline.Pms
}

// BandCond tests a (down, mid, up) band, or a single line against zero.
// Long looks at mid above up, Short at mid below down; ModeAction requires the
// previous bar to have been inside.
func BandCond(dir types.Dir, mode Mode, p *pipeline.Pms) Cond {
	return bandCond{dir: dir, mode: mode, pms: p}
}

func (c bandCond) String() string {
	return fmt.Sprintf("band(%s,%s,%s)", c.dir, c.mode, c.pms)
}

func (c bandCond) Materialise(d *di.DataInstance) (Fn, error) {
	if c.mode != ModeAction && c.mode != ModeLieing {
		return nil, errors.Newf(errors.ErrCodeInvalidParameter, "unknown band mode %q", c.mode)
	}

	cols, err := columns(d, c.pms, 1, 3)
	if err != nil {
		return nil, err
	}

	var down, mid, up []float64

	if len(cols) == 3 {
		down, mid, up = cols[0], cols[1], cols[2]
	} else {
		mid = cols[0]
		down = make([]float64, len(mid))
		up = down
	}

	outside := func(i int) bool {
		if c.dir == types.DirLong {
			return mid[i] > up[i]
		}

		return mid[i] < down[i]
	}

	inside := func(i int) bool {
		if c.dir == types.DirLong {
			return mid[i] <= up[i]
		}

		return mid[i] >= down[i]
	}

	if c.mode == ModeLieing {
		return func(now, _ int) bool {
			return now < len(mid) && outside(now)
		}, nil
	}

	return func(now, _ int) bool {
		return now > 0 && now < len(mid) && inside(now-1) && outside(now)
	}, nil
}

type crossCond struct {
	dir types.Dir
	pms *pipeline.Pms
}

// CrossCond fires when the first column of p crosses the second: for Long the
// first was at or below the second on the previous bar and is above it now,
// for Short the mirror image.
func CrossCond(dir types.Dir, p *pipeline.Pms) Cond {
	return crossCond{dir: dir, pms: p}
}

func (c crossCond) String() string {
	return fmt.Sprintf("cross(%s,%s)", c.dir, c.pms)
}

func (c crossCond) Materialise(d *di.DataInstance) (Fn, error) {
	cols, err := columns(d, c.pms, 2)
	if err != nil {
		return nil, err
	}

	s, l := cols[0], cols[1]

	if c.dir == types.DirLong {
		return func(now, _ int) bool {
			return now > 0 && now < len(s) && s[now-1] <= l[now-1] && s[now] > l[now]
		}, nil
	}

	return func(now, _ int) bool {
		return now > 0 && now < len(s) && s[now-1] >= l[now-1] && s[now] < l[now]
	}, nil
}
