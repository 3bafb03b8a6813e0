package mocks

import (
	"math"
	"math/rand"
	"time"

	"github.com/baiguoname/qust-sub001/internal/types"
)

// DataGenerator generates random-walk bars and ticks for tests and
// benchmarks.
type DataGenerator struct {
	rng *rand.Rand
}

// NewDataGenerator creates a new DataGenerator with the given seed.
// Use a fixed seed for reproducible results in tests.
func NewDataGenerator(seed int64) *DataGenerator {
	return &DataGenerator{
		rng: rand.New(rand.NewSource(seed)),
	}
}

// GeneratorConfig configures how market data is generated.
type GeneratorConfig struct {
	// StartTime is the beginning of the data series
	StartTime time.Time
	// Interval is the duration between each bar or tick
	Interval time.Duration
	// Count is the number of data points to generate
	Count int
	// InitialPrice is the starting price
	InitialPrice float64
	// TickSize is the price grid every generated price is rounded to
	TickSize float64
	// Volatility is the per-step standard deviation in ticks
	Volatility float64
	// VolumeBase is the average volume per step
	VolumeBase float64
}

// DefaultConfig returns a sensible default configuration.
func DefaultConfig() GeneratorConfig {
	return GeneratorConfig{
		StartTime:    time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC),
		Interval:     time.Minute,
		Count:        10000,
		InitialPrice: 3500,
		TickSize:     1,
		Volatility:   3,
		VolumeBase:   100,
	}
}

func (g *DataGenerator) step(price float64, config GeneratorConfig) float64 {
	next := price + g.rng.NormFloat64()*config.Volatility*config.TickSize

	return math.Max(roundToTick(next, config.TickSize), config.TickSize)
}

func (g *DataGenerator) volume(config GeneratorConfig) float32 {
	return float32(math.Max(1, math.Round(config.VolumeBase*(0.5+g.rng.Float64()))))
}

// GenerateBars creates config.Count bars whose high and low enclose open and
// close.
func (g *DataGenerator) GenerateBars(config GeneratorConfig) []types.Bar {
	bars := make([]types.Bar, config.Count)
	price := roundToTick(config.InitialPrice, config.TickSize)
	t := config.StartTime

	for i := range bars {
		open := price
		closePrice := g.step(open, config)
		high := math.Max(open, closePrice) + float64(g.rng.Intn(3))*config.TickSize
		low := math.Max(math.Min(open, closePrice)-float64(g.rng.Intn(3))*config.TickSize, config.TickSize)

		bars[i] = types.Bar{
			T:  t,
			O:  float32(open),
			H:  float32(high),
			L:  float32(low),
			C:  float32(closePrice),
			V:  g.volume(config),
			Ki: types.BarKey{OpenTime: t, PassThis: 1},
		}

		price = closePrice
		t = t.Add(config.Interval)
	}

	return bars
}

// GenerateTicks creates config.Count ticks with a one-tick spread around the
// last price.
func (g *DataGenerator) GenerateTicks(config GeneratorConfig) []types.TickData {
	ticks := make([]types.TickData, config.Count)
	price := roundToTick(config.InitialPrice, config.TickSize)
	t := config.StartTime

	for i := range ticks {
		price = g.step(price, config)

		bid := price
		if g.rng.Intn(2) == 0 {
			bid -= config.TickSize
		}

		ticks[i] = types.TickData{
			T:     t,
			C:     float32(price),
			V:     g.volume(config),
			Bid1:  float32(bid),
			Ask1:  float32(bid + config.TickSize),
			Bid1V: float32(1 + g.rng.Intn(50)),
			Ask1V: float32(1 + g.rng.Intn(50)),
			Ct:    1,
		}

		t = t.Add(config.Interval)
	}

	return ticks
}

// Generate10K is a convenience function to generate 10,000 minute bars
// with default settings for benchmarking.
func Generate10K() []types.Bar {
	gen := NewDataGenerator(42) // Fixed seed for reproducibility
	config := DefaultConfig()
	config.Count = 10000

	return gen.GenerateBars(config)
}

func roundToTick(price, tick float64) float64 {
	if tick <= 0 {
		return price
	}

	return math.Round(price/tick) * tick
}
