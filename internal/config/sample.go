package config

import (
	"time"

	"github.com/moznion/go-optional"

	"github.com/baiguoname/qust-sub001/internal/backtest"
	"github.com/baiguoname/qust-sub001/internal/match"
	"github.com/baiguoname/qust-sub001/internal/persist"
	"github.com/baiguoname/qust-sub001/internal/types"
)

var sampleContract = types.Contract{Ticker: "rb", Code: "rb2405"}

// SampleBacktest is the starter backtest config written by cmd/generate.
func SampleBacktest() BacktestConfig {
	return BacktestConfig{
		Data: []DataConfig{{
			Contract: sampleContract,
			Path:     "data/rb2405.parquet",
			Format:   FormatParquet,
			Start:    optional.Some(time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)),
			End:      optional.None[time.Time](),
		}},
		Strategies: []StrategyConfig{
			{Name: "ma_3_5", Preset: PresetMaCross, Short: 3, Long: 5, Size: 1},
			{Name: "boll_20", Preset: PresetBollBreak, Window: 20, Width: 2, HoldBars: 30, StopLoss: 0.02, Size: 1},
		},
		CommSlip:   backtest.CommSlip{Rate: 0.0001, SlipTicks: 1},
		TickSize:   1,
		Multiplier: 10,
		Equity:     1e6,
		Match:      match.KindOldBt,
		Workers:    4,
		Output:     "results",
		Persist:    persist.FormatBinary,
	}
}

// SampleLive is the starter live config written by cmd/generate.
func SampleLive() LiveConfig {
	return LiveConfig{
		Contracts: []LiveContract{{Contract: sampleContract, Minutes: 1, TickSize: 1}},
		Sessions: []SessionConfig{
			{Start: "09:00", End: "10:15"},
			{Start: "10:30", End: "11:30"},
			{Start: "13:30", End: "15:00"},
			{Start: "21:00", End: "23:00"},
		},
		Strategy:    StrategyConfig{Name: "ma_3_5", Preset: PresetMaCross, Short: 3, Long: 5, Size: 1, MaxSpreadTicks: 2},
		Algo:        "default",
		CancelAfter: 5 * time.Second,
		RateLimit:   5,
		Burst:       1,
		Match:       match.KindSimple,
		Equity:      1e6,
		Output:      "live",
		MetricsAddr: ":9102",
		Persist:     persist.FormatBinary,
		MaxSleep:    time.Minute,
	}
}
