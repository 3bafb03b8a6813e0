package config

import (
	"github.com/baiguoname/qust-sub001/internal/cond"
	"github.com/baiguoname/qust-sub001/internal/converter"
	"github.com/baiguoname/qust-sub001/internal/indicator"
	"github.com/baiguoname/qust-sub001/internal/partition"
	"github.com/baiguoname/qust-sub001/internal/pipeline"
	"github.com/baiguoname/qust-sub001/internal/ptm"
	"github.com/baiguoname/qust-sub001/internal/types"
	"github.com/baiguoname/qust-sub001/pkg/errors"
)

type Preset string

const (
	// PresetMaCross enters on a short/long moving-average cross and exits on
	// the opposite cross.
	PresetMaCross Preset = "ma_cross"
	// PresetBollBreak enters when close breaks out of a Bollinger band and
	// exits on the opposite breakout, a holding period or a stop.
	PresetBollBreak Preset = "boll_break"
)

var AllPresets = []any{PresetMaCross, PresetBollBreak}

// StrategyConfig describes a position machine built from a preset. Dir
// restricts it to one side; left empty both sides trade.
type StrategyConfig struct {
	Name      string    `yaml:"name" json:"name" jsonschema:"title=Name,description=Label used in logs and results" validate:"required"`
	Preset    Preset    `yaml:"preset" json:"preset" jsonschema:"title=Preset,enum=ma_cross,enum=boll_break" validate:"required,oneof=ma_cross boll_break"`
	Dir       types.Dir `yaml:"dir" json:"dir,omitempty" jsonschema:"title=Direction,enum=LONG,enum=SHORT" validate:"omitempty,oneof=LONG SHORT"`
	Converter string    `yaml:"converter" json:"converter,omitempty" jsonschema:"title=Converter,description=Bars the indicator runs on,enum=ori,enum=ha" validate:"omitempty,oneof=ori ha"`

	Short  int     `yaml:"short" json:"short,omitempty" jsonschema:"description=Short average length (ma_cross)" validate:"gte=0"`
	Long   int     `yaml:"long" json:"long,omitempty" jsonschema:"description=Long average length (ma_cross)" validate:"gte=0"`
	Window int     `yaml:"window" json:"window,omitempty" jsonschema:"description=Band length (boll_break)" validate:"gte=0"`
	Width  float64 `yaml:"width" json:"width,omitempty" jsonschema:"description=Band width in standard deviations (boll_break)" validate:"gte=0"`

	HoldBars int     `yaml:"hold_bars" json:"hold_bars,omitempty" jsonschema:"description=Exit after this many bars (boll_break)" validate:"gte=0"`
	StopLoss float64 `yaml:"stop_loss" json:"stop_loss,omitempty" jsonschema:"description=Exit when price moves against the position by this ratio (boll_break)" validate:"gte=0,lt=1"`

	Size       float64 `yaml:"size" json:"size,omitempty" jsonschema:"description=Fixed contract count,default=1" validate:"gte=0"`
	Percent    float64 `yaml:"percent" json:"percent,omitempty" jsonschema:"description=Share of equity to commit instead of a fixed size" validate:"gte=0,lte=1"`
	Multiplier float64 `yaml:"multiplier" json:"multiplier,omitempty" validate:"gte=0"`

	MaxSpreadTicks int `yaml:"max_spread_ticks" json:"max_spread_ticks,omitempty" jsonschema:"description=Live only: skip quotes wider than this many ticks" validate:"gte=0"`
}

func (s StrategyConfig) money() ptm.Money {
	if s.Percent > 0 {
		return ptm.Percent{Ratio: s.Percent, Multiplier: s.Multiplier}
	}

	if s.Size > 0 {
		return ptm.Fixed{N: s.Size}
	}

	return ptm.Fixed{N: 1}
}

func (s StrategyConfig) pipeline(reg indicator.Registry) (*pipeline.Pms, error) {
	var (
		ta  indicator.Ta
		err error
	)

	switch s.Preset {
	case PresetMaCross:
		if s.Short <= 0 || s.Long <= s.Short {
			return nil, errors.Newf(errors.ErrCodeInvalidParameter, "%s: ma_cross needs 0 < short < long, got %d and %d", s.Name, s.Short, s.Long)
		}

		ta, err = reg.Build("crossma", s.Short, s.Long)
	case PresetBollBreak:
		if s.Window < 2 || s.Width <= 0 {
			return nil, errors.Newf(errors.ErrCodeInvalidParameter, "%s: boll_break needs window >= 2 and a positive width", s.Name)
		}

		ta, err = reg.Build("bollprice", s.Window, s.Width)
	default:
		return nil, errors.Newf(errors.ErrCodeInvalidConfiguration, "%s: unknown preset %q", s.Name, s.Preset)
	}

	if err != nil {
		return nil, err
	}

	conv := converter.Ori()
	if s.Converter == "ha" {
		conv = converter.Ha()
	}

	return pipeline.New(conv, partition.AllAtOnce(), ta), nil
}

func (s StrategyConfig) signals(p *pipeline.Pms, dir types.Dir) (entry, exit cond.Cond) {
	if s.Preset == PresetMaCross {
		return cond.CrossCond(dir, p), cond.CrossCond(dir.Opposite(), p)
	}

	exits := []cond.Cond{cond.BandCond(dir.Opposite(), cond.ModeAction, p)}

	if s.HoldBars > 0 {
		exits = append(exits, cond.HoldBars(s.HoldBars))
	}

	if s.StopLoss > 0 {
		exits = append(exits, cond.StopLoss(dir, s.StopLoss))
	}

	return cond.BandCond(dir, cond.ModeAction, p), cond.Or(exits...)
}

func (s StrategyConfig) stps(reg indicator.Registry) (long, short ptm.Stp, err error) {
	p, err := s.pipeline(reg)
	if err != nil {
		return nil, nil, err
	}

	for _, dir := range []types.Dir{types.DirLong, types.DirShort} {
		if s.Dir != "" && s.Dir != dir {
			continue
		}

		entry, exit := s.signals(p, dir)

		tsig, err := ptm.NewTsig(dir, dir.Opposite(), entry, exit)
		if err != nil {
			return nil, nil, err
		}

		if dir == types.DirLong {
			long = ptm.NewStp(tsig)
		} else {
			short = ptm.NewStp(tsig)
		}
	}

	return long, short, nil
}

// Build returns the backtest position machine.
func (s StrategyConfig) Build(reg indicator.Registry) (ptm.Ptm, error) {
	long, short, err := s.stps(reg)
	if err != nil {
		return nil, err
	}

	return &ptm.Ptm2{Money: s.money(), Long: long, Short: short}, nil
}

// BuildLive returns the live position machine, gated on the spread when
// MaxSpreadTicks is set.
func (s StrategyConfig) BuildLive(reg indicator.Registry, tickSize float64) (ptm.Ptm, error) {
	long, short, err := s.stps(reg)
	if err != nil {
		return nil, err
	}

	if s.MaxSpreadTicks == 0 {
		return &ptm.Ptm2{Money: s.money(), Long: long, Short: short}, nil
	}

	if tickSize <= 0 {
		return nil, errors.Newf(errors.ErrCodeInvalidConfiguration, "%s: a spread gate needs a tick size", s.Name)
	}

	return &ptm.Ptm7{Money: s.money(), Long: long, Short: short, Guard: cond.Spread(s.MaxSpreadTicks, tickSize)}, nil
}
