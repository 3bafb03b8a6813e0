package ptm

import (
	"fmt"

	"github.com/baiguoname/qust-sub001/internal/cond"
	"github.com/baiguoname/qust-sub001/internal/di"
	"github.com/baiguoname/qust-sub001/internal/types"
	"github.com/baiguoname/qust-sub001/pkg/errors"
)

// Ptm is an immutable position-and-trade machine.
type Ptm interface {
	String() string
	NewBook() Book
}

// Book is the mutable iteration state of a Ptm on one DataInstance. Bind
// (re)materialises the conditions and keeps any open position, so it can be
// called again after bars are appended.
type Book interface {
	Bind(d *di.DataInstance) error
	Step(i int, price, equity float64) types.NormHold
}

// Gated is implemented by live machines that check each quote before trading.
type Gated interface {
	Gate() cond.TickCond
}

// Ptm1 trades a single Stp.
type Ptm1 struct {
	Money Money
	Stp   Stp
}

func (p *Ptm1) String() string { return fmt.Sprintf("ptm1(%s,%s)", p.Money, p.Stp) }

func (p *Ptm1) NewBook() Book {
	return &book{money: p.Money, legs: []*leg{newLeg(p.Stp, p.Stp.Dir())}}
}

// Ptm2 runs a long and a short Stp competing for one position. Either side
// may be nil. When both would enter on the same bar the long side wins.
type Ptm2 struct {
	Money Money
	Long  Stp
	Short Stp
}

func (p *Ptm2) String() string {
	return fmt.Sprintf("ptm2(%s,%s,%s)", p.Money, stpString(p.Long), stpString(p.Short))
}

func (p *Ptm2) NewBook() Book {
	var legs []*leg

	if p.Long != nil {
		legs = append(legs, newLeg(p.Long, types.DirLong))
	}

	if p.Short != nil {
		legs = append(legs, newLeg(p.Short, types.DirShort))
	}

	return &book{money: p.Money, legs: legs}
}

func stpString(s Stp) string {
	if s == nil {
		return "none"
	}

	return s.String()
}

// Ptm3 builds a one-sided Ptm2 from an entry and exit condition.
func Ptm3(money Money, dir types.Dir, entry, exit cond.Cond) (*Ptm2, error) {
	tsig, err := NewTsig(dir, dir.Opposite(), entry, exit)
	if err != nil {
		return nil, err
	}

	if dir == types.DirLong {
		return &Ptm2{Money: money, Long: NewStp(tsig)}, nil
	}

	return &Ptm2{Money: money, Short: NewStp(tsig)}, nil
}

// Ptm4 runs two independent books whose positions and P&L add up.
type Ptm4 struct {
	A Ptm
	B Ptm
}

func (p *Ptm4) String() string { return fmt.Sprintf("ptm4(%s,%s)", p.A, p.B) }

func (p *Ptm4) NewBook() Book {
	return &sumBook{books: []Book{p.A.NewBook(), p.B.NewBook()}}
}

// Ptm5 wraps another Ptm without changing its behaviour.
type Ptm5 struct {
	Inner Ptm
}

func (p *Ptm5) String() string { return fmt.Sprintf("ptm5(%s)", p.Inner) }

func (p *Ptm5) NewBook() Book { return p.Inner.NewBook() }

// Ptm6 is a live Ptm1 gated on each quote.
type Ptm6 struct {
	Money Money
	Stp   Stp
	Guard cond.TickCond
}

func (p *Ptm6) String() string {
	return fmt.Sprintf("ptm6(%s,%s,%s)", p.Money, p.Stp, gateString(p.Guard))
}

func (p *Ptm6) NewBook() Book { return (&Ptm1{Money: p.Money, Stp: p.Stp}).NewBook() }

func (p *Ptm6) Gate() cond.TickCond { return gateOr(p.Guard) }

// Ptm7 is a live Ptm2 gated on each quote.
type Ptm7 struct {
	Money Money
	Long  Stp
	Short Stp
	Guard cond.TickCond
}

func (p *Ptm7) String() string {
	return fmt.Sprintf("ptm7(%s,%s,%s,%s)", p.Money, stpString(p.Long), stpString(p.Short), gateString(p.Guard))
}

func (p *Ptm7) NewBook() Book {
	return (&Ptm2{Money: p.Money, Long: p.Long, Short: p.Short}).NewBook()
}

func (p *Ptm7) Gate() cond.TickCond { return gateOr(p.Guard) }

func gateOr(g cond.TickCond) cond.TickCond {
	if g == nil {
		return cond.AllowAll()
	}

	return g
}

func gateString(g cond.TickCond) string {
	return gateOr(g).String()
}

// Parts splits p into the independent books it runs, unwrapping Ptm5 and
// flattening Ptm4.
func Parts(p Ptm) []Ptm {
	switch v := p.(type) {
	case *Ptm5:
		return Parts(v.Inner)
	case *Ptm4:
		return append(Parts(v.A), Parts(v.B)...)
	default:
		return []Ptm{p}
	}
}

// leg is one Stp's position state.
type leg struct {
	stp      Stp
	dir      types.Dir
	rule     *Rule
	open     int
	size     float64
	closedAt int
}

func newLeg(stp Stp, dir types.Dir) *leg {
	return &leg{stp: stp, dir: dir, open: -1, closedAt: -1}
}

func (l *leg) held() bool { return l.open >= 0 }

func (l *leg) tryExit(i int) {
	if l.held() && l.rule.Exit(i, l.open) {
		l.open, l.size, l.closedAt = -1, 0, i
	}
}

func (l *leg) tryEnter(i int, base float64) bool {
	if l.held() || l.closedAt == i || !l.rule.Entry(i, i) {
		return false
	}

	w, ok := l.rule.Weight(i)
	if !ok || w*base <= 0 {
		return false
	}

	l.open, l.size = i, w*base

	return true
}

func (l *leg) hold() types.NormHold {
	if !l.held() {
		return types.Flat()
	}

	return types.HoldOf(l.dir.Sign() * l.size)
}

// book holds at most one open leg at a time. Legs are checked in order, so
// the first leg wins ties.
type book struct {
	money Money
	legs  []*leg
}

func (b *book) Bind(d *di.DataInstance) error {
	if len(b.legs) == 0 {
		return errors.New(errors.ErrCodeUnsupportedPtm, "position machine has no stp")
	}

	for _, l := range b.legs {
		if l.stp.Dir() != l.dir {
			return errors.Newf(errors.ErrCodeUnsupportedPtm, "%s trades %s but sits on the %s side", l.stp, l.stp.Dir(), l.dir)
		}

		rule, err := l.stp.Bind(d)
		if err != nil {
			return errors.Wrapf(errors.ErrCodeConditionMaterialise, err, "bind %s", l.stp)
		}

		l.rule = rule
	}

	return nil
}

func (b *book) Step(i int, price, equity float64) types.NormHold {
	for _, l := range b.legs {
		if l.held() {
			l.tryExit(i)

			if l.held() {
				return l.hold()
			}
		}
	}

	base := b.money.Size(price, equity)

	for _, l := range b.legs {
		if l.tryEnter(i, base) {
			return l.hold()
		}
	}

	return types.Flat()
}

type sumBook struct {
	books []Book
}

func (b *sumBook) Bind(d *di.DataInstance) error {
	for _, inner := range b.books {
		if err := inner.Bind(d); err != nil {
			return err
		}
	}

	return nil
}

func (b *sumBook) Step(i int, price, equity float64) types.NormHold {
	total := 0.0
	for _, inner := range b.books {
		total += inner.Step(i, price, equity).Signed()
	}

	return types.HoldOf(total)
}
