package pipeline

import (
	"strings"

	"github.com/baiguoname/qust-sub001/internal/di"
	"github.com/baiguoname/qust-sub001/internal/indicator"
)

// ExtendReport counts what Extend did to the feature memo.
type ExtendReport struct {
	Extended int
	Dropped  int
}

// Extend brings d's memo up to date after one AppendBar. Windowed kernels on
// raw bars gain one row computed from the tail of the last partition; every
// other stack, converted store and raw projection is dropped and recomputed
// on next use. Live-signal state is left alone.
func Extend(d *di.DataInstance) ExtendReport {
	var report ExtendReport

	d.Reset(di.KindConverted)

	for key := range d.Entries(di.KindOthers) {
		if strings.HasPrefix(key, "raw:") {
			d.Invalidate(di.KindOthers, key)
		}
	}

	rows := d.Len()

	for key, v := range d.Entries(di.KindFeatures) {
		stack, ok := v.(*Stack)
		if !ok || stack.Rows != rows-1 || !stack.Pms.incremental() {
			d.Invalidate(di.KindFeatures, key)
			report.Dropped++

			continue
		}

		next, err := stack.extend(d)
		if err != nil {
			d.Invalidate(di.KindFeatures, key)
			report.Dropped++

			continue
		}

		d.Replace(di.KindFeatures, key, next)
		report.Extended++
	}

	return report
}

func (p *Pms) incremental() bool {
	if !isOri(p.Conv) {
		return false
	}

	if _, ok := p.Ta.(indicator.PostProcessed); ok {
		return false
	}

	_, ok := p.Ta.(indicator.Windowed)

	return ok
}

func (s *Stack) extend(d *di.DataInstance) (*Stack, error) {
	store := d.Store()
	ranges := s.Pms.Part.Partition(store)
	last := ranges[len(ranges)-1]
	lookback := s.Pms.Ta.(indicator.Windowed).Lookback()
	lo := max(last.Lo, last.Hi-lookback)

	tail := store.Slice(lo, last.Hi)
	scope := di.RootScope(d).
		Push(di.Frame{Converter: s.Pms.Conv, Partitioner: s.Pms.Part}).
		WithTimes(tail.T)

	out, err := s.Pms.Ta.Compute(s.Pms.Ta.SelectInputs(tail), scope)
	if err != nil {
		return nil, err
	}

	if err := checkShape(s.Pms, out, len(s.Cols), tail.Len()); err != nil {
		return nil, err
	}

	cols := make([][]float64, len(s.Cols))
	for j, col := range s.Cols {
		// full-capacity slice so the append never writes into a shared array
		cols[j] = append(col[:len(col):len(col)], out[j][len(out[j])-1])
	}

	return &Stack{Pms: s.Pms, Cols: cols, Rows: store.Len()}, nil
}
