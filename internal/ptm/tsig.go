// Package ptm turns conditions into per-bar target positions.
//
// A Tsig pairs an entry and an exit condition for one direction, an Stp adds
// sizing weights, and a Ptm combines Stps with a money rule. Iterating a
// Ptm's Book bar by bar yields the NormHold series the backtester and the
// live bridge trade towards.
package ptm

import (
	"fmt"

	"github.com/baiguoname/qust-sub001/internal/cond"
	"github.com/baiguoname/qust-sub001/internal/di"
	"github.com/baiguoname/qust-sub001/internal/types"
	"github.com/baiguoname/qust-sub001/pkg/errors"
)

// Tsig is the entry and exit rule of one direction. In is the direction
// opened; Out is the direction whose signal closes it.
type Tsig struct {
	In    types.Dir
	Out   types.Dir
	Entry cond.Cond
	Exit  cond.Cond
	gate  cond.Cond
}

// NewTsig validates and builds a Tsig. In and Out must differ.
func NewTsig(in, out types.Dir, entry, exit cond.Cond) (*Tsig, error) {
	if !in.Valid() || !out.Valid() {
		return nil, errors.Newf(errors.ErrCodeInvalidTsig, "tsig directions must be LONG or SHORT, got %q and %q", in, out)
	}

	if in == out {
		return nil, errors.Newf(errors.ErrCodeInvalidTsig, "tsig entry and exit direction are both %s", in)
	}

	if entry == nil || exit == nil {
		return nil, errors.New(errors.ErrCodeInvalidTsig, "tsig needs both an entry and an exit condition")
	}

	return &Tsig{In: in, Out: out, Entry: entry, Exit: exit}, nil
}

// TsigFilter returns a copy of t whose entries also require io. Exits are not
// gated.
func TsigFilter(t *Tsig, io cond.Cond) *Tsig {
	out := *t
	if out.gate != nil {
		out.gate = cond.And(out.gate, io)
	} else {
		out.gate = io
	}

	return &out
}

func (t *Tsig) String() string {
	if t.gate != nil {
		return fmt.Sprintf("tsig(%s,%s,%s,%s,%s)", t.In, t.Out, t.Entry, t.Exit, t.gate)
	}

	return fmt.Sprintf("tsig(%s,%s,%s,%s)", t.In, t.Out, t.Entry, t.Exit)
}

func (t *Tsig) materialise(d *di.DataInstance) (entry, exit cond.Fn, err error) {
	entryCond := t.Entry
	if t.gate != nil {
		entryCond = cond.And(t.Entry, t.gate)
	}

	entry, err = entryCond.Materialise(d)
	if err != nil {
		return nil, nil, err
	}

	exit, err = t.Exit.Materialise(d)
	if err != nil {
		return nil, nil, err
	}

	return entry, exit, nil
}
