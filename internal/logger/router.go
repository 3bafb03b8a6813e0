package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Aggregate targets that always get their own file next to the per-ticker files.
const (
	TargetCtp  = "ctp"
	TargetSpy  = "spy"
	TargetStra = "stra"
)

// Router hands out loggers that write one JSON line per event into
// {dir}/{target}.log. Every line carries timestamp_ms, target, message,
// file and line.
type Router struct {
	dir     string
	level   zapcore.Level
	mu      sync.Mutex
	loggers map[string]*Logger
	closers []func()
}

// NewRouter creates the log directory and opens the aggregate targets.
func NewRouter(dir string, level zapcore.Level) (*Router, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	r := &Router{
		dir:     dir,
		level:   level,
		mu:      sync.Mutex{},
		loggers: make(map[string]*Logger),
		closers: nil,
	}

	for _, target := range []string{TargetCtp, TargetSpy, TargetStra} {
		if _, err := r.For(target); err != nil {
			r.Close()

			return nil, err
		}
	}

	return r, nil
}

// For returns the logger for a target, opening its file on first use.
func (r *Router) For(target string) (*Logger, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if l, ok := r.loggers[target]; ok {
		return l, nil
	}

	sink, closeFn, err := zap.Open(filepath.Join(r.dir, target+".log"))
	if err != nil {
		return nil, fmt.Errorf("failed to open log file for %s: %w", target, err)
	}

	core := callerCore{Core: zapcore.NewCore(zapcore.NewJSONEncoder(routerEncoderConfig()), sink, r.level)}
	l := &Logger{Logger: zap.New(core, zap.AddCaller()).Named(target)}

	r.loggers[target] = l
	r.closers = append(r.closers, closeFn)

	return l, nil
}

// Ticker returns the per-ticker logger, falling back to the ctp target when the
// ticker file cannot be opened.
func (r *Router) Ticker(ticker string) *Logger {
	l, err := r.For(ticker)
	if err == nil {
		return l
	}

	fallback, ferr := r.For(TargetCtp)
	if ferr != nil {
		return NewNopLogger()
	}

	fallback.Warn("ticker log unavailable", zap.String("ticker", ticker), zap.Error(err))

	return fallback
}

// Close flushes and closes every file opened by the router.
func (r *Router) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, l := range r.loggers {
		_ = l.Sync()
	}

	for _, closeFn := range r.closers {
		closeFn()
	}

	r.loggers = make(map[string]*Logger)
	r.closers = nil
}

func routerEncoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		TimeKey:        "timestamp_ms",
		LevelKey:       "level",
		NameKey:        "target",
		CallerKey:      zapcore.OmitKey,
		FunctionKey:    zapcore.OmitKey,
		MessageKey:     "message",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     epochMillisEncoder,
		EncodeDuration: zapcore.MillisDurationEncoder,
		EncodeName:     zapcore.FullNameEncoder,
	}
}

func epochMillisEncoder(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendInt64(t.UnixMilli())
}

// callerCore splits the caller into separate file and line fields.
type callerCore struct {
	zapcore.Core
}

func (c callerCore) With(fields []zapcore.Field) zapcore.Core {
	return callerCore{Core: c.Core.With(fields)}
}

func (c callerCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(ent.Level) {
		return ce.AddCore(ent, c)
	}

	return ce
}

func (c callerCore) Write(ent zapcore.Entry, fields []zapcore.Field) error {
	if ent.Caller.Defined {
		fields = append(fields,
			zap.String("file", filepath.Base(ent.Caller.File)),
			zap.Int("line", ent.Caller.Line),
		)
	}

	return c.Core.Write(ent, fields)
}
