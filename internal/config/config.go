// Package config loads the YAML files that drive the backtest and live
// commands.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/invopop/jsonschema"
	"github.com/moznion/go-optional"
	"gopkg.in/yaml.v3"

	"github.com/baiguoname/qust-sub001/internal/backtest"
	"github.com/baiguoname/qust-sub001/internal/inter"
	"github.com/baiguoname/qust-sub001/internal/logger"
	"github.com/baiguoname/qust-sub001/internal/match"
	"github.com/baiguoname/qust-sub001/internal/persist"
	"github.com/baiguoname/qust-sub001/internal/pricestore"
	"github.com/baiguoname/qust-sub001/internal/types"
	"github.com/baiguoname/qust-sub001/pkg/errors"
)

const (
	FormatCSV     = "csv"
	FormatParquet = "parquet"
)

// DataConfig points at one contract's bar file.
type DataConfig struct {
	Contract types.Contract             `yaml:"contract" json:"contract" jsonschema:"title=Contract" validate:"required"`
	Path     string                     `yaml:"path" json:"path" jsonschema:"title=Path,description=Bar file to load" validate:"required"`
	Format   string                     `yaml:"format" json:"format,omitempty" jsonschema:"title=Format,enum=csv,enum=parquet,default=csv" validate:"omitempty,oneof=csv parquet"`
	Pattern  string                     `yaml:"pattern" json:"pattern,omitempty" jsonschema:"title=Time Pattern,description=strftime pattern of the csv time column"`
	Timezone string                     `yaml:"timezone" json:"timezone,omitempty" jsonschema:"title=Timezone,description=IANA zone of the csv time column"`
	Columns  []int                      `yaml:"columns" json:"columns,omitempty" jsonschema:"title=Columns,description=Indices of t o h l c v in the csv" validate:"omitempty,len=6,dive,gte=0"`
	Start    optional.Option[time.Time] `yaml:"start" json:"start" jsonschema:"title=Start,description=Optional first bar time (parquet only)"`
	End      optional.Option[time.Time] `yaml:"end" json:"end" jsonschema:"title=End,description=Optional last bar time (parquet only)"`
}

type dataYAML struct {
	Contract types.Contract `yaml:"contract"`
	Path     string         `yaml:"path"`
	Format   string         `yaml:"format,omitempty"`
	Pattern  string         `yaml:"pattern,omitempty"`
	Timezone string         `yaml:"timezone,omitempty"`
	Columns  []int          `yaml:"columns,omitempty,flow"`
	Start    *time.Time     `yaml:"start,omitempty"`
	End      *time.Time     `yaml:"end,omitempty"`
}

// UnmarshalYAML maps the optional time bounds.
func (d *DataConfig) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var r dataYAML
	if err := unmarshal(&r); err != nil {
		return err
	}

	*d = DataConfig{
		Contract: r.Contract,
		Path:     r.Path,
		Format:   r.Format,
		Pattern:  r.Pattern,
		Timezone: r.Timezone,
		Columns:  r.Columns,
		Start:    optional.None[time.Time](),
		End:      optional.None[time.Time](),
	}

	if r.Start != nil {
		d.Start = optional.Some(*r.Start)
	}

	if r.End != nil {
		d.End = optional.Some(*r.End)
	}

	return nil
}

func (d DataConfig) MarshalYAML() (interface{}, error) {
	r := dataYAML{
		Contract: d.Contract,
		Path:     d.Path,
		Format:   d.Format,
		Pattern:  d.Pattern,
		Timezone: d.Timezone,
		Columns:  d.Columns,
	}

	if d.Start.IsSome() {
		t := d.Start.Unwrap()
		r.Start = &t
	}

	if d.End.IsSome() {
		t := d.End.Unwrap()
		r.End = &t
	}

	return r, nil
}

// Location returns the csv time zone, UTC when unset.
func (d DataConfig) Location() (*time.Location, error) {
	if d.Timezone == "" {
		return time.UTC, nil
	}

	loc, err := time.LoadLocation(d.Timezone)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "unknown timezone %q", d.Timezone)
	}

	return loc, nil
}

// Load reads the bars. Parquet files go through src, which may be nil for csv
// data.
func (d DataConfig) Load(src *pricestore.ParquetSource) (*pricestore.PriceStore, error) {
	if d.Format == FormatParquet {
		if src == nil {
			return nil, errors.New(errors.ErrCodeInvalidConfiguration, "parquet data needs a parquet source")
		}

		return src.Load(d.Path, d.Start, d.End)
	}

	loc, err := d.Location()
	if err != nil {
		return nil, err
	}

	opts := pricestore.BarCSVOptions{Pattern: d.Pattern, Location: loc}
	copy(opts.Columns[:], d.Columns)

	return pricestore.LoadBarsCSVFile(d.Path, opts)
}

// BacktestConfig drives cmd/backtest. Every strategy runs on every data set.
type BacktestConfig struct {
	Data       []DataConfig      `yaml:"data" json:"data" jsonschema:"title=Data" validate:"required,min=1,dive"`
	Strategies []StrategyConfig  `yaml:"strategies" json:"strategies" jsonschema:"title=Strategies" validate:"required,min=1,dive"`
	CommSlip   backtest.CommSlip `yaml:"comm_slip" json:"comm_slip" jsonschema:"title=Commission and Slippage"`
	TickSize   float64           `yaml:"tick_size" json:"tick_size" jsonschema:"title=Tick Size,minimum=0" validate:"gte=0"`
	Multiplier float64           `yaml:"multiplier" json:"multiplier" jsonschema:"title=Multiplier,minimum=0,default=1" validate:"gte=0"`
	Equity     float64           `yaml:"equity" json:"equity" jsonschema:"title=Equity,description=Starting equity for percent sizing,minimum=0" validate:"gte=0"`
	Match      match.Kind        `yaml:"match" json:"match,omitempty" jsonschema:"title=Match,description=Fill price policy" validate:"omitempty,oneof=oldbt mean"`
	Workers    int               `yaml:"workers" json:"workers" jsonschema:"title=Workers,minimum=0" validate:"gte=0"`
	Output     string            `yaml:"output" json:"output" jsonschema:"title=Output,description=Directory results are written to" validate:"required"`
	Persist    persist.Format    `yaml:"persist" json:"persist,omitempty" jsonschema:"title=Persist Format" validate:"omitempty,oneof=bin json"`
}

// Backtest returns the engine configuration shared by every job.
func (c BacktestConfig) Backtest(log *logger.Logger) backtest.Config {
	cfg := backtest.Config{
		CommSlip:   c.CommSlip,
		TickSize:   c.TickSize,
		Multiplier: c.Multiplier,
		Equity:     c.Equity,
		Match:      optional.None[match.Kind](),
		Logger:     log,
	}

	if c.Match != "" {
		cfg.Match = optional.Some(c.Match)
	}

	return cfg
}

func (c BacktestConfig) PersistFormat() persist.Format {
	if c.Persist == "" {
		return persist.FormatBinary
	}

	return c.Persist
}

// SessionConfig is one trading session as "HH:MM" clock times. A session
// whose end is not after its start wraps midnight.
type SessionConfig struct {
	Start string `yaml:"start" json:"start" jsonschema:"title=Start,pattern=^[0-2][0-9]:[0-5][0-9]$" validate:"required"`
	End   string `yaml:"end" json:"end" jsonschema:"title=End,pattern=^[0-2][0-9]:[0-5][0-9]$" validate:"required"`
}

func (s SessionConfig) Interval() (inter.Interval, error) {
	sh, sm, err := parseClock(s.Start)
	if err != nil {
		return inter.Interval{}, err
	}

	eh, em, err := parseClock(s.End)
	if err != nil {
		return inter.Interval{}, err
	}

	return inter.Between(sh, sm, eh, em), nil
}

func parseClock(s string) (int, int, error) {
	hh, mm, ok := strings.Cut(s, ":")
	if !ok {
		return 0, 0, errors.Newf(errors.ErrCodeInvalidPeriod, "clock %q is not HH:MM", s)
	}

	h, err := strconv.Atoi(hh)
	if err != nil || h < 0 || h > 24 {
		return 0, 0, errors.Newf(errors.ErrCodeInvalidPeriod, "clock %q has a bad hour", s)
	}

	m, err := strconv.Atoi(mm)
	if err != nil || m < 0 || m > 59 {
		return 0, 0, errors.Newf(errors.ErrCodeInvalidPeriod, "clock %q has a bad minute", s)
	}

	return h, m, nil
}

type CrossKind string

const (
	CrossNone   CrossKind = ""
	CrossAll    CrossKind = "all_emerged"
	CrossMillis CrossKind = "millis"
)

// LiveContract is one traded contract and its bar window.
type LiveContract struct {
	Contract types.Contract `yaml:"contract" json:"contract" validate:"required"`
	Minutes  int            `yaml:"minutes" json:"minutes" jsonschema:"title=Bar Minutes,minimum=1" validate:"required,gte=1"`
	TickSize float64        `yaml:"tick_size" json:"tick_size" jsonschema:"minimum=0" validate:"gte=0"`
	History  string         `yaml:"history" json:"history,omitempty" jsonschema:"description=Optional bars file to warm the contract from"`
}

// LiveConfig drives cmd/live.
type LiveConfig struct {
	Contracts   []LiveContract  `yaml:"contracts" json:"contracts" validate:"required,min=1,dive"`
	Sessions    []SessionConfig `yaml:"sessions" json:"sessions" jsonschema:"description=Trading sessions; empty means the regular futures schedule" validate:"dive"`
	Strategy    StrategyConfig  `yaml:"strategy" json:"strategy" validate:"required"`
	Algo        string          `yaml:"algo" json:"algo,omitempty" jsonschema:"enum=default,enum=quik,enum=half" validate:"omitempty,oneof=default quik half"`
	CancelAfter time.Duration   `yaml:"cancel_after" json:"cancel_after,omitempty" jsonschema:"description=Cancel resting orders older than this"`
	Cross       CrossKind       `yaml:"cross" json:"cross,omitempty" jsonschema:"enum=all_emerged,enum=millis" validate:"omitempty,oneof=all_emerged millis"`
	RateLimit   float64         `yaml:"rate_limit" json:"rate_limit,omitempty" jsonschema:"description=Orders per second; zero disables the limit" validate:"gte=0"`
	Burst       int             `yaml:"burst" json:"burst,omitempty" validate:"gte=0"`
	Match       match.Kind      `yaml:"match" json:"match,omitempty" jsonschema:"description=Simulated broker fill policy" validate:"omitempty,oneof=simple simnow oldbt mean"`
	Equity      float64         `yaml:"equity" json:"equity,omitempty" validate:"gte=0"`
	Output      string          `yaml:"output" json:"output" jsonschema:"description=Directory for sessions and journals" validate:"required"`
	MetricsAddr string          `yaml:"metrics_addr" json:"metrics_addr,omitempty" jsonschema:"description=Listen address of the metrics endpoint"`
	Persist     persist.Format  `yaml:"persist" json:"persist,omitempty" validate:"omitempty,oneof=bin json"`
	MaxSleep    time.Duration   `yaml:"max_sleep" json:"max_sleep,omitempty"`
}

// Intervals converts the configured sessions, falling back to the regular
// futures schedule.
func (c LiveConfig) Intervals() ([]inter.Interval, error) {
	if len(c.Sessions) == 0 {
		return inter.FuturesSessions(), nil
	}

	out := make([]inter.Interval, 0, len(c.Sessions))

	for _, s := range c.Sessions {
		iv, err := s.Interval()
		if err != nil {
			return nil, err
		}

		out = append(out, iv)
	}

	return out, nil
}

func (c LiveConfig) MatchKind() match.Kind {
	if c.Match == "" {
		return match.KindSimple
	}

	return c.Match
}

func (c LiveConfig) PersistFormat() persist.Format {
	if c.Persist == "" {
		return persist.FormatBinary
	}

	return c.Persist
}

var validate = validator.New()

func load(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "failed to read config %s", path)
	}

	if err := yaml.Unmarshal(data, out); err != nil {
		return errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "failed to parse config %s", path)
	}

	if err := validate.Struct(out); err != nil {
		return errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "invalid config %s", path)
	}

	return nil
}

// LoadBacktest reads and validates a backtest config file.
func LoadBacktest(path string) (*BacktestConfig, error) {
	var c BacktestConfig
	if err := load(path, &c); err != nil {
		return nil, err
	}

	return &c, nil
}

// LoadLive reads and validates a live config file.
func LoadLive(path string) (*LiveConfig, error) {
	var c LiveConfig
	if err := load(path, &c); err != nil {
		return nil, err
	}

	if _, err := c.Intervals(); err != nil {
		return nil, err
	}

	for _, lc := range c.Contracts {
		if c.Strategy.MaxSpreadTicks > 0 && lc.TickSize <= 0 {
			return nil, errors.Newf(errors.ErrCodeInvalidConfiguration, "%s needs a tick size for the spread gate", lc.Contract)
		}
	}

	return &c, nil
}

func mapper(t reflect.Type) *jsonschema.Schema {
	switch {
	case t.String() == "optional.Option[time.Time]":
		return &jsonschema.Schema{Type: "string", Format: "date-time"}
	case t == reflect.TypeOf(time.Duration(0)):
		return &jsonschema.Schema{Type: "string", Description: "Go duration such as 5s or 1m30s"}
	case t == reflect.TypeOf(match.Kind("")):
		return &jsonschema.Schema{Type: "string", Enum: match.AllKinds}
	case t == reflect.TypeOf(persist.Format("")):
		return &jsonschema.Schema{Type: "string", Enum: persist.AllFormats}
	case t == reflect.TypeOf(Preset("")):
		return &jsonschema.Schema{Type: "string", Enum: AllPresets}
	}

	return nil
}

// GenerateSchema returns the JSON schema of v, a pointer to one of the
// config structs.
func GenerateSchema(title string, v any) *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		RequiredFromJSONSchemaTags: true,
		ExpandedStruct:             true,
		AllowAdditionalProperties:  false,
		Mapper:                     mapper,
	}

	schema := reflector.Reflect(v)
	schema.Title = title
	schema.Version = "http://json-schema.org/draft-07/schema#"

	return schema
}

// GenerateSchemaJSON renders GenerateSchema as indented JSON.
func GenerateSchemaJSON(title string, v any) (string, error) {
	b, err := json.MarshalIndent(GenerateSchema(title, v), "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal schema: %w", err)
	}

	return string(b), nil
}
