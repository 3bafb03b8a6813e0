// Package pipeline evaluates (converter, partitioner, kernel) triples on a
// DataInstance and memoises the resulting column stacks.
package pipeline

import (
	"fmt"

	"github.com/baiguoname/qust-sub001/internal/converter"
	"github.com/baiguoname/qust-sub001/internal/di"
	"github.com/baiguoname/qust-sub001/internal/indicator"
	"github.com/baiguoname/qust-sub001/internal/partition"
	"github.com/baiguoname/qust-sub001/pkg/errors"
)

// Pms is one feature pipeline. Its descriptor is the memo key of its output.
type Pms struct {
	Conv converter.Converter
	Part partition.Partitioner
	Ta   indicator.Ta
}

// New builds a pipeline.
func New(conv converter.Converter, part partition.Partitioner, ta indicator.Ta) *Pms {
	return &Pms{Conv: conv, Part: part, Ta: ta}
}

// OnOri runs ta on the raw bars as a single partition.
func OnOri(ta indicator.Ta) *Pms {
	return New(converter.Ori(), partition.AllAtOnce(), ta)
}

func (p *Pms) String() string {
	return fmt.Sprintf("pms(%s|%s|%s)", p.Conv, p.Part, p.Ta)
}

// Stack is the memoised output of a pipeline on its converted axis.
type Stack struct {
	Pms  *Pms
	Cols [][]float64
	Rows int
}

// Materialise returns the pipeline's columns on the converted axis of d.
// Concurrent callers share one computation.
func (p *Pms) Materialise(d *di.DataInstance) ([][]float64, error) {
	return p.Eval(di.RootScope(d))
}

// Eval is Materialise within an enclosing scope, for kernels that evaluate
// other pipelines.
func (p *Pms) Eval(scope di.Scope) ([][]float64, error) {
	stack, err := di.Load(scope.DI(), di.KindFeatures, p.String(), func() (*Stack, error) {
		cols, rows, err := p.compute(scope.Push(di.Frame{Converter: p.Conv, Partitioner: p.Part}))
		if err != nil {
			return nil, err
		}

		return &Stack{Pms: p, Cols: cols, Rows: rows}, nil
	})
	if err != nil {
		return nil, err
	}

	return stack.Cols, nil
}

// OnRaw returns the pipeline's columns spread back onto the raw bar axis,
// NaN on rows that did not close a converted bar.
func (p *Pms) OnRaw(d *di.DataInstance) ([][]float64, error) {
	cols, err := p.Materialise(d)
	if err != nil {
		return nil, err
	}

	if isOri(p.Conv) {
		return cols, nil
	}

	return di.Load(d, di.KindOthers, "raw:"+p.String(), func() ([][]float64, error) {
		conv, err := Convert(d, p.Conv)
		if err != nil {
			return nil, err
		}

		return converter.VertBack(conv, d.Len(), cols), nil
	})
}

// Convert returns d's bars under conv, memoised per converter descriptor.
func Convert(d *di.DataInstance, conv converter.Converter) (*converter.Converted, error) {
	if isOri(conv) {
		return conv.Convert(d.Store())
	}

	return di.Load(d, di.KindConverted, conv.String(), func() (*converter.Converted, error) {
		out, err := conv.Convert(d.Store())
		if err != nil {
			return nil, errors.Wrapf(errors.ErrCodeConverterFailed, err, "convert %s with %s", d, conv)
		}

		return out, nil
	})
}

func isOri(conv converter.Converter) bool {
	return conv.String() == converter.Ori().String()
}

func (p *Pms) compute(scope di.Scope) ([][]float64, int, error) {
	conv, err := Convert(scope.DI(), p.Conv)
	if err != nil {
		return nil, 0, err
	}

	store := conv.Store
	inputs := p.Ta.SelectInputs(store)
	ranges := p.Part.Partition(store)

	if len(ranges) == 0 {
		ranges = []partition.Range{{Lo: 0, Hi: 0}}
	}

	var cols [][]float64

	for _, r := range ranges {
		part := make([][]float64, len(inputs))
		for j, in := range inputs {
			part[j] = in[r.Lo:r.Hi]
		}

		out, err := p.Ta.Compute(part, scope.WithTimes(store.T[r.Lo:r.Hi]))
		if err != nil {
			return nil, 0, errors.Wrapf(errors.ErrCodeIndicatorCalculation, err, "%s on rows [%d, %d)", p, r.Lo, r.Hi)
		}

		if cols == nil {
			cols = make([][]float64, len(out))
			for j := range cols {
				cols[j] = make([]float64, 0, store.Len())
			}
		}

		if err := checkShape(p, out, len(cols), r.Len()); err != nil {
			return nil, 0, err
		}

		for j := range cols {
			cols[j] = append(cols[j], out[j]...)
		}
	}

	if post, ok := p.Ta.(indicator.PostProcessed); ok {
		cols = post.Post().Process(cols)
	}

	return cols, store.Len(), nil
}

func checkShape(p *Pms, out [][]float64, width, rows int) error {
	if len(out) != width {
		return errors.Newf(errors.ErrCodeColumnCount, "%s returned %d columns, expected %d", p, len(out), width)
	}

	for j, col := range out {
		if len(col) != rows {
			return errors.Newf(errors.ErrCodeColumnLength, "%s column %d has %d rows, expected %d", p, j, len(col), rows)
		}
	}

	return nil
}
