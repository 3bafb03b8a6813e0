// Package cond builds boolean conditions over a DataInstance's bar axis.
//
// A Cond materialises once per DataInstance into an Fn bound to the
// instance's columns. Fn(now, open) is a pure read: calling it repeatedly with
// the same arguments gives the same answer.
package cond

import (
	"fmt"
	"strings"

	"github.com/baiguoname/qust-sub001/internal/di"
)

// Fn evaluates a condition at bar now for a position opened at bar open.
type Fn func(now, open int) bool

// Cond is a condition. String is its stable descriptor.
type Cond interface {
	String() string
	Materialise(d *di.DataInstance) (Fn, error)
}

type and struct {
	conds []Cond
}

// And holds when every operand holds.
func And(conds ...Cond) Cond {
	return and{conds: conds}
}

func (c and) String() string { return "and(" + join(c.conds) + ")" }

func (c and) Materialise(d *di.DataInstance) (Fn, error) {
	fns, err := materialiseAll(d, c.conds)
	if err != nil {
		return nil, err
	}

	return func(now, open int) bool {
		for _, fn := range fns {
			if !fn(now, open) {
				return false
			}
		}

		return true
	}, nil
}

type or struct {
	conds []Cond
}

// Or holds when any operand holds.
func Or(conds ...Cond) Cond {
	return or{conds: conds}
}

func (c or) String() string { return "or(" + join(c.conds) + ")" }

func (c or) Materialise(d *di.DataInstance) (Fn, error) {
	fns, err := materialiseAll(d, c.conds)
	if err != nil {
		return nil, err
	}

	return func(now, open int) bool {
		for _, fn := range fns {
			if fn(now, open) {
				return true
			}
		}

		return false
	}, nil
}

type not struct {
	cond Cond
}

func Not(c Cond) Cond {
	return not{cond: c}
}

func (c not) String() string { return "not(" + c.cond.String() + ")" }

func (c not) Materialise(d *di.DataInstance) (Fn, error) {
	fn, err := c.cond.Materialise(d)
	if err != nil {
		return nil, err
	}

	return func(now, open int) bool { return !fn(now, open) }, nil
}

type constant bool

// True always holds.
func True() Cond { return constant(true) }

// False never holds.
func False() Cond { return constant(false) }

func (c constant) String() string { return fmt.Sprint(bool(c)) }

func (c constant) Materialise(*di.DataInstance) (Fn, error) {
	v := bool(c)

	return func(int, int) bool { return v }, nil
}

func materialiseAll(d *di.DataInstance, conds []Cond) ([]Fn, error) {
	fns := make([]Fn, len(conds))

	for i, c := range conds {
		fn, err := c.Materialise(d)
		if err != nil {
			return nil, err
		}

		fns[i] = fn
	}

	return fns, nil
}

func join(conds []Cond) string {
	parts := make([]string, len(conds))
	for i, c := range conds {
		parts[i] = c.String()
	}

	return strings.Join(parts, ",")
}
