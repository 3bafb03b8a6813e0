package live

import (
	"go.uber.org/zap"

	"github.com/baiguoname/qust-sub001/internal/ptm"
	"github.com/baiguoname/qust-sub001/pkg/errors"
)

type ptmRunner struct {
	machine ptm.Ptm
	book    ptm.Book
	stepped int
	target  float64
}

// PtmStrategy trades one Ptm per contract index. Each finished bar is
// stepped through the Ptm's book; AlgoTarget then works the resulting target
// against the latest tick. A Ptm implementing ptm.Gated only trades on ticks
// its gate allows.
type PtmStrategy struct {
	runners map[int]*ptmRunner
	algo    AlgoTarget
	equity  float64
}

func NewPtmStrategy(ptms map[int]ptm.Ptm, algo AlgoTarget, equity float64) (*PtmStrategy, error) {
	if len(ptms) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidConfiguration, "strategy needs at least one ptm")
	}

	s := &PtmStrategy{runners: make(map[int]*ptmRunner, len(ptms)), algo: algo, equity: equity}

	for i, p := range ptms {
		s.runners[i] = &ptmRunner{machine: p, book: p.NewBook()}
	}

	return s, nil
}

// Target returns the position the Ptm of index currently wants.
func (s *PtmStrategy) Target(index int) float64 {
	if r, ok := s.runners[index]; ok {
		return r.target
	}

	return 0
}

func (s *PtmStrategy) OnData(v *View) []Order {
	var orders []Order

	for i := 0; i < v.Len(); i++ {
		r, ok := s.runners[i]
		if !ok {
			continue
		}

		if err := s.step(v, i, r); err != nil {
			v.Logger(i).Error("Position machine step failed", zap.String("ptm", r.machine.String()), zap.Error(err))

			continue
		}

		tick := v.Tick(i)
		if tick.T.IsZero() {
			continue
		}

		if g, ok := r.machine.(ptm.Gated); ok && !g.Gate().Allow(tick) {
			continue
		}

		action := s.algo.Decide(r.target, v.Pool(i), tick)
		if !action.IsNo() {
			orders = append(orders, Order{Index: i, Action: action})
		}
	}

	return orders
}

// step rebinds the book to the grown DataInstance and feeds it every bar it
// has not seen.
func (s *PtmStrategy) step(v *View, i int, r *ptmRunner) error {
	d := v.DI(i)
	n := d.Len()

	if r.stepped >= n {
		return nil
	}

	if err := r.book.Bind(d); err != nil {
		return err
	}

	closes := d.Store().C
	for ; r.stepped < n; r.stepped++ {
		r.target = r.book.Step(r.stepped, float64(closes[r.stepped]), s.equity).Signed()
	}

	return nil
}
