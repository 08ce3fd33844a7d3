package log

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/YuminosukeSato/rent/pkg/errors"
)

// ZerologProvider is the default LoggerProvider. All loggers it hands out
// share one writer and one level.
type ZerologProvider struct {
	base  zerolog.Logger
	level atomic.Int32
}

// NewZerologProvider creates a provider writing JSON lines to w.
func NewZerologProvider(w io.Writer) *ZerologProvider {
	p := &ZerologProvider{
		base: zerolog.New(w).With().Timestamp().Logger(),
	}
	p.level.Store(int32(LevelInfo))
	return p
}

// NewConsoleProvider creates a provider with zerolog's human readable console output.
func NewConsoleProvider(w io.Writer) *ZerologProvider {
	return NewZerologProvider(zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen})
}

// GetLogger implements LoggerProvider.GetLogger.
func (p *ZerologProvider) GetLogger() Logger {
	return &zerologLogger{provider: p, zl: p.base}
}

// GetLoggerWithName implements LoggerProvider.GetLoggerWithName.
func (p *ZerologProvider) GetLoggerWithName(name string) Logger {
	return &zerologLogger{provider: p, zl: p.base.With().Str(ComponentKey, name).Logger()}
}

// SetLevel implements LoggerProvider.SetLevel.
func (p *ZerologProvider) SetLevel(level Level) {
	p.level.Store(int32(level))
}

func (p *ZerologProvider) enabled(level Level) bool {
	return level >= Level(p.level.Load())
}

type zerologLogger struct {
	provider *ZerologProvider
	zl       zerolog.Logger
}

func (l *zerologLogger) Debug(msg string, fields ...any) {
	if l.provider.enabled(LevelDebug) {
		emit(l.zl.Debug(), msg, fields)
	}
}

func (l *zerologLogger) Info(msg string, fields ...any) {
	if l.provider.enabled(LevelInfo) {
		emit(l.zl.Info(), msg, fields)
	}
}

func (l *zerologLogger) Warn(msg string, fields ...any) {
	if l.provider.enabled(LevelWarn) {
		emit(l.zl.Warn(), msg, fields)
	}
}

func (l *zerologLogger) Error(msg string, fields ...any) {
	if l.provider.enabled(LevelError) {
		emit(l.zl.Error(), msg, fields)
	}
}

func (l *zerologLogger) With(fields ...any) Logger {
	ctx := l.zl.With()
	if len(fields)%2 == 1 {
		if err, ok := fields[0].(error); ok {
			ctx = ctx.Err(err)
		}
		fields = fields[1:]
	}
	for i := 0; i+1 < len(fields); i += 2 {
		ctx = ctx.Interface(fmt.Sprint(fields[i]), fields[i+1])
	}
	return &zerologLogger{provider: l.provider, zl: ctx.Logger()}
}

func (l *zerologLogger) Enabled(_ context.Context, level Level) bool {
	return l.provider.enabled(level)
}

// emit attaches key/value pairs to ev and sends it. A leading error
// (odd number of fields) is attached under "error".
func emit(ev *zerolog.Event, msg string, fields []any) {
	if len(fields)%2 == 1 {
		if err, ok := fields[0].(error); ok {
			ev = ev.Err(err)
		}
		fields = fields[1:]
	}
	for i := 0; i+1 < len(fields); i += 2 {
		key := fmt.Sprint(fields[i])
		switch v := fields[i+1].(type) {
		case string:
			ev = ev.Str(key, v)
		case int:
			ev = ev.Int(key, v)
		case int64:
			ev = ev.Int64(key, v)
		case float64:
			ev = ev.Float64(key, v)
		case bool:
			ev = ev.Bool(key, v)
		case time.Duration:
			ev = ev.Dur(key, v)
		case []int:
			ev = ev.Ints(key, v)
		case []float64:
			ev = ev.Floats64(key, v)
		case zerolog.LogObjectMarshaler:
			ev = ev.Object(key, v)
		case error:
			ev = ev.AnErr(key, v)
		default:
			ev = ev.Interface(key, v)
		}
	}
	ev.Msg(msg)
}

// ===========================================================================
// package-level provider
// ===========================================================================

var (
	providerMu     sync.RWMutex
	globalProvider LoggerProvider = NewZerologProvider(os.Stderr)
)

func init() {
	InstallWarningSink()
}

// InstallWarningSink routes errors.Warn to the "warnings" logger of the
// package-level provider. It runs at init; call it again to undo
// errors.SetZerologWarnFunc overrides.
func InstallWarningSink() {
	errors.SetZerologWarnFunc(func(w error) {
		GetLoggerWithName("warnings").Warn(w.Error(), "warning", w)
	})
}

// SetProvider replaces the provider used by GetLogger and GetLoggerWithName.
func SetProvider(p LoggerProvider) {
	providerMu.Lock()
	defer providerMu.Unlock()
	globalProvider = p
}

// Provider returns the current package-level provider.
func Provider() LoggerProvider {
	providerMu.RLock()
	defer providerMu.RUnlock()
	return globalProvider
}

// GetLogger returns a logger from the package-level provider.
func GetLogger() Logger {
	return Provider().GetLogger()
}

// GetLoggerWithName returns a named logger from the package-level provider.
func GetLoggerWithName(name string) Logger {
	return Provider().GetLoggerWithName(name)
}

// SetLevel sets the level of the package-level provider.
func SetLevel(level Level) {
	Provider().SetLevel(level)
}

// Nop returns a logger that discards everything.
func Nop() Logger {
	p := NewZerologProvider(io.Discard)
	p.SetLevel(LevelError + 1)
	return p.GetLogger()
}
