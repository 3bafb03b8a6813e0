// Package kline folds ticks (or finer bars) into interval bars.
package kline

import (
	"time"

	"github.com/moznion/go-optional"

	"github.com/baiguoname/qust-sub001/internal/inter"
	"github.com/baiguoname/qust-sub001/internal/types"
)

type State string

const (
	// StateIgnor means the quote fell outside every window and was skipped.
	StateIgnor State = "IGNOR"
	// StateBegin means the quote opened a new bar.
	StateBegin State = "BEGIN"
	// StateMerging means the quote was folded into the emerging bar.
	StateMerging State = "MERGING"
	// StateFinished means the quote pushed the emerging bar past its window.
	StateFinished State = "FINISHED"
)

// Quote is one input to the machine. Ticks have O=H=L=C and Count 1.
type Quote struct {
	T     time.Time
	O     float32
	H     float32
	L     float32
	C     float32
	V     float32
	Count int
	Info  [][]float32
}

func QuoteFromTick(t types.TickData) Quote {
	return Quote{T: t.T, O: t.C, H: t.C, L: t.C, C: t.C, V: t.V, Count: max(t.Ct, 1)}
}

func QuoteFromBar(b types.Bar) Quote {
	return Quote{T: b.T, O: b.O, H: b.H, L: b.L, C: b.C, V: b.V, Count: max(b.Ki.PassThis, 1), Info: b.ImmutInfo}
}

// Transition is the outcome of one Update. State describes the new quote
// (Ignor, Begin or Merging); Finished holds the bar the quote closed, if any.
type Transition struct {
	State    State
	Finished optional.Option[types.Bar]
}

// Kind folds the two parts into a single state, reporting Finished when a bar closed.
func (t Transition) Kind() State {
	if t.Finished.IsSome() {
		return StateFinished
	}

	return t.State
}

// Machine is the incremental tick-to-bar converter for one contract.
type Machine struct {
	spec     *inter.InterSpec
	active   int
	bar      types.Bar
	emerging bool
	skipped  int
	last     time.Time
}

func NewMachine(spec *inter.InterSpec) *Machine {
	return &Machine{spec: spec, active: -1}
}

// Update folds q into the machine.
func (m *Machine) Update(q Quote) Transition {
	if !m.last.IsZero() && q.T.Before(m.last) {
		return Transition{State: StateIgnor, Finished: optional.None[types.Bar]()}
	}

	m.last = q.T
	idx, ok := m.spec.Locate(q.T)

	if m.emerging && ok && idx == m.active && types.DateOf(q.T).Equal(types.DateOf(m.bar.Ki.OpenTime)) {
		m.merge(q)

		return Transition{State: StateMerging, Finished: optional.None[types.Bar]()}
	}

	finished := optional.None[types.Bar]()
	if m.emerging {
		finished = optional.Some(m.bar)
		m.emerging = false
		m.active = -1
	}

	if !ok {
		m.skipped += q.Count

		return Transition{State: StateIgnor, Finished: finished}
	}

	m.begin(q, idx)

	return Transition{State: StateBegin, Finished: finished}
}

func (m *Machine) begin(q Quote, idx int) {
	m.active = idx
	m.emerging = true
	m.bar = types.Bar{
		T: q.T,
		O: q.O,
		H: q.H,
		L: q.L,
		C: q.C,
		V: q.V,
		Ki: types.BarKey{
			OpenTime: types.DateOf(q.T).Add(m.spec.At(idx).Start),
			PassThis: q.Count,
			PassLast: m.skipped,
		},
		ImmutInfo: appendInfo(nil, q.Info),
	}
	m.skipped = 0
}

func (m *Machine) merge(q Quote) {
	m.bar.T = q.T
	m.bar.H = max(m.bar.H, q.H)
	m.bar.L = min(m.bar.L, q.L)
	m.bar.C = q.C
	m.bar.V += q.V
	m.bar.Ki.PassThis += q.Count
	m.bar.ImmutInfo = appendInfo(m.bar.ImmutInfo, q.Info)
}

func appendInfo(dst, src [][]float32) [][]float32 {
	if src == nil {
		return dst
	}

	out := make([][]float32, 0, len(dst)+len(src))
	out = append(out, dst...)

	return append(out, src...)
}

// Emerging returns the bar currently being built.
func (m *Machine) Emerging() optional.Option[types.Bar] {
	if !m.emerging {
		return optional.None[types.Bar]()
	}

	return optional.Some(m.bar)
}

// Flush closes the emerging bar, as at the end of a stream.
func (m *Machine) Flush() optional.Option[types.Bar] {
	out := m.Emerging()
	m.emerging = false
	m.active = -1

	return out
}

// Replay runs quotes through a fresh machine and returns every bar, including
// the final emerging one.
func Replay(spec *inter.InterSpec, quotes []Quote) []types.Bar {
	m := NewMachine(spec)

	var bars []types.Bar

	for _, q := range quotes {
		if tr := m.Update(q); tr.Finished.IsSome() {
			bars = append(bars, tr.Finished.Unwrap())
		}
	}

	if last := m.Flush(); last.IsSome() {
		bars = append(bars, last.Unwrap())
	}

	return bars
}
