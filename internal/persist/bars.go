package persist

import (
	"time"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/baiguoname/qust-sub001/internal/pricestore"
	"github.com/baiguoname/qust-sub001/internal/types"
	"github.com/baiguoname/qust-sub001/pkg/errors"
)

// Bars is the persisted form of a PriceStore. Info holds the per-bar
// matrices and is empty when the store has none.
type Bars struct {
	Contract string        `json:"contract"`
	T        []int64       `json:"t"`
	O        []float32     `json:"o"`
	H        []float32     `json:"h"`
	L        []float32     `json:"l"`
	C        []float32     `json:"c"`
	V        []float32     `json:"v"`
	OpenTime []int64       `json:"open_time"`
	PassThis []int64       `json:"pass_this"`
	PassLast []int64       `json:"pass_last"`
	Info     [][][]float32 `json:"info,omitempty"`
}

func BarsOf(contract types.Contract, p *pricestore.PriceStore) *Bars {
	n := p.Len()
	b := &Bars{
		Contract: contract.String(),
		T:        make([]int64, n),
		O:        append([]float32(nil), p.O...),
		H:        append([]float32(nil), p.H...),
		L:        append([]float32(nil), p.L...),
		C:        append([]float32(nil), p.C...),
		V:        append([]float32(nil), p.V...),
		OpenTime: make([]int64, n),
		PassThis: make([]int64, n),
		PassLast: make([]int64, n),
	}

	if p.HasImmutInfo() {
		b.Info = make([][][]float32, n)

		for i, m := range p.ImmutInfo {
			b.Info[i] = make([][]float32, len(m))
			for r, row := range m {
				b.Info[i][r] = append([]float32{}, row...)
			}
		}
	}

	for i := 0; i < n; i++ {
		b.T[i] = types.UnixMillis(p.T[i])
		b.OpenTime[i] = types.UnixMillis(p.Ki[i].OpenTime)
		b.PassThis[i] = int64(p.Ki[i].PassThis)
		b.PassLast[i] = int64(p.Ki[i].PassLast)
	}

	return b
}

func (b *Bars) Kind() string { return "bars" }

func (b *Bars) Len() int { return len(b.T) }

// Store rebuilds the PriceStore with timestamps in loc.
func (b *Bars) Store(loc *time.Location) (*pricestore.PriceStore, error) {
	n := len(b.T)

	for _, l := range []int{len(b.O), len(b.H), len(b.L), len(b.C), len(b.V), len(b.OpenTime), len(b.PassThis), len(b.PassLast)} {
		if l != n {
			return nil, errors.Newf(errors.ErrCodeColumnLength, "persisted bars of %s have columns of %d and %d rows", b.Contract, n, l)
		}
	}

	if len(b.Info) > 0 && len(b.Info) != n {
		return nil, errors.Newf(errors.ErrCodeColumnLength, "persisted bars of %s have %d rows and %d info matrices", b.Contract, n, len(b.Info))
	}

	bars := make([]types.Bar, n)

	for i := range bars {
		bars[i] = types.Bar{
			T: types.FromUnixMillis(b.T[i], loc),
			O: b.O[i],
			H: b.H[i],
			L: b.L[i],
			C: b.C[i],
			V: b.V[i],
			Ki: types.BarKey{
				OpenTime: types.FromUnixMillis(b.OpenTime[i], loc),
				PassThis: int(b.PassThis[i]),
				PassLast: int(b.PassLast[i]),
			},
		}

		if len(b.Info) > 0 {
			bars[i].ImmutInfo = b.Info[i]
			if bars[i].ImmutInfo == nil {
				bars[i].ImmutInfo = [][]float32{}
			}
		}
	}

	return pricestore.FromBars(bars), nil
}

func (b *Bars) AppendWire(out []byte) []byte {
	out = appendString(out, 1, b.Contract)
	out = appendPackedSint(out, 2, b.T)
	out = appendPackedFloat(out, 3, b.O)
	out = appendPackedFloat(out, 4, b.H)
	out = appendPackedFloat(out, 5, b.L)
	out = appendPackedFloat(out, 6, b.C)
	out = appendPackedFloat(out, 7, b.V)
	out = appendPackedSint(out, 8, b.OpenTime)
	out = appendPackedSint(out, 9, b.PassThis)
	out = appendPackedSint(out, 10, b.PassLast)

	// one message per bar, one packed row per matrix row
	for _, m := range b.Info {
		var msg []byte
		for _, row := range m {
			msg = appendMessage(msg, 1, packFloat(row))
		}

		out = appendMessage(out, 11, msg)
	}

	return out
}

func (b *Bars) ConsumeWire(in []byte) error {
	*b = Bars{}

	return consumeFields(in, func(num protowire.Number, _ protowire.Type, v []byte) error {
		var err error

		switch num {
		case 1:
			b.Contract = string(v)
		case 2:
			b.T, err = unpackSint(v)
		case 3:
			b.O, err = unpackFloat(v)
		case 4:
			b.H, err = unpackFloat(v)
		case 5:
			b.L, err = unpackFloat(v)
		case 6:
			b.C, err = unpackFloat(v)
		case 7:
			b.V, err = unpackFloat(v)
		case 8:
			b.OpenTime, err = unpackSint(v)
		case 9:
			b.PassThis, err = unpackSint(v)
		case 10:
			b.PassLast, err = unpackSint(v)
		case 11:
			var m [][]float32
			m, err = unpackMatrix(v)
			b.Info = append(b.Info, m)
		}

		return err
	})
}

func unpackMatrix(msg []byte) ([][]float32, error) {
	m := [][]float32{}

	err := consumeFields(msg, func(num protowire.Number, _ protowire.Type, v []byte) error {
		if num != 1 {
			return nil
		}

		row, err := unpackFloat(v)
		if err != nil {
			return err
		}

		m = append(m, row)

		return nil
	})

	return m, err
}
