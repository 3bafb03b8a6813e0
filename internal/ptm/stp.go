package ptm

import (
	"fmt"
	"strings"

	"github.com/baiguoname/qust-sub001/internal/cond"
	"github.com/baiguoname/qust-sub001/internal/di"
	"github.com/baiguoname/qust-sub001/internal/types"
)

// Rule is an Stp materialised on one DataInstance.
type Rule struct {
	Dir   types.Dir
	Entry cond.Fn
	Exit  cond.Fn
	// Weight returns the size multiplier for an entry at bar i; false
	// suppresses the entry.
	Weight func(i int) (float64, bool)
}

// Stp is a signal-to-position stage for one direction.
type Stp interface {
	String() string
	Dir() types.Dir
	Bind(d *di.DataInstance) (*Rule, error)
}

type plain struct {
	tsig *Tsig
}

// NewStp sizes every entry of t at the nominal size.
func NewStp(t *Tsig) Stp {
	return plain{tsig: t}
}

func (s plain) String() string { return "stp(" + s.tsig.String() + ")" }

func (s plain) Dir() types.Dir { return s.tsig.In }

func (s plain) Bind(d *di.DataInstance) (*Rule, error) {
	entry, exit, err := s.tsig.materialise(d)
	if err != nil {
		return nil, err
	}

	return &Rule{
		Dir:    s.tsig.In,
		Entry:  entry,
		Exit:   exit,
		Weight: func(int) (float64, bool) { return 1, true },
	}, nil
}

// CondWeight attaches a size multiplier to a condition.
type CondWeight struct {
	Cond   cond.Cond
	Weight float64
}

type weighted struct {
	inner   Stp
	weights []CondWeight
}

// StpWeight scales each entry of s by the weight of the first condition in
// weights that holds at the entry bar. Entries matching none are dropped.
func StpWeight(s Stp, weights ...CondWeight) Stp {
	return weighted{inner: s, weights: weights}
}

func (s weighted) String() string {
	parts := make([]string, len(s.weights))
	for i, w := range s.weights {
		parts[i] = fmt.Sprintf("%s:%g", w.Cond, w.Weight)
	}

	return "stpw(" + s.inner.String() + ",[" + strings.Join(parts, ",") + "])"
}

func (s weighted) Dir() types.Dir { return s.inner.Dir() }

func (s weighted) Bind(d *di.DataInstance) (*Rule, error) {
	rule, err := s.inner.Bind(d)
	if err != nil {
		return nil, err
	}

	fns := make([]cond.Fn, len(s.weights))
	for i, w := range s.weights {
		fn, err := w.Cond.Materialise(d)
		if err != nil {
			return nil, err
		}

		fns[i] = fn
	}

	inner := rule.Weight
	weights := s.weights

	return &Rule{
		Dir:   rule.Dir,
		Entry: rule.Entry,
		Exit:  rule.Exit,
		Weight: func(i int) (float64, bool) {
			base, ok := inner(i)
			if !ok {
				return 0, false
			}

			for j, fn := range fns {
				if fn(i, i) {
					return base * weights[j].Weight, true
				}
			}

			return 0, false
		},
	}, nil
}
