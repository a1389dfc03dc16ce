package log

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"

	foodErrors "github.com/YuminosukeSato/foodcast/pkg/errors"
)

// Config holds logging configuration.
type Config struct {
	// Level is the minimum log level: debug, info, warn, error.
	Level string

	// Format is the output format: json or console.
	Format string

	// Output is the writer for log output. Default: os.Stderr, so that
	// command output on stdout stays clean.
	Output io.Writer
}

// DefaultConfig returns the default logging configuration.
func DefaultConfig() Config {
	return Config{
		Level:  "info",
		Format: "json",
		Output: os.Stderr,
	}
}

// ParseLevel converts a level name to a Level.
func ParseLevel(level string) (Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return LevelDebug, nil
	case "info", "":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	default:
		return LevelInfo, fmt.Errorf("invalid log level: %s", level)
	}
}

func toZerologLevel(level Level) zerolog.Level {
	switch {
	case level <= LevelDebug:
		return zerolog.DebugLevel
	case level <= LevelInfo:
		return zerolog.InfoLevel
	case level <= LevelWarn:
		return zerolog.WarnLevel
	default:
		return zerolog.ErrorLevel
	}
}

// zeroLogger adapts zerolog.Logger to the Logger interface.
type zeroLogger struct {
	zl zerolog.Logger
}

func newZeroLogger(zl zerolog.Logger) *zeroLogger {
	return &zeroLogger{zl: zl}
}

func (l *zeroLogger) Debug(msg string, fields ...any) {
	l.emit(l.zl.Debug(), msg, fields)
}

func (l *zeroLogger) Info(msg string, fields ...any) {
	l.emit(l.zl.Info(), msg, fields)
}

func (l *zeroLogger) Warn(msg string, fields ...any) {
	l.emit(l.zl.Warn(), msg, fields)
}

func (l *zeroLogger) Error(msg string, fields ...any) {
	e := l.zl.Error()
	if len(fields) > 0 {
		if err, ok := fields[0].(error); ok {
			e = e.Stack().Err(err)
			fields = fields[1:]
		}
	}
	l.emit(e, msg, fields)
}

func (l *zeroLogger) emit(e *zerolog.Event, msg string, fields []any) {
	if e == nil {
		return
	}
	if len(fields) > 0 {
		e = e.Fields(normalizeFields(fields))
	}
	e.Msg(msg)
}

func (l *zeroLogger) With(fields ...any) Logger {
	return &zeroLogger{zl: l.zl.With().Fields(normalizeFields(fields)).Logger()}
}

func (l *zeroLogger) Enabled(_ context.Context, level Level) bool {
	return l.zl.GetLevel() <= toZerologLevel(level)
}

// normalizeFields turns a trailing key without value into a key with nil value
// and stringifies non-string keys.
func normalizeFields(fields []any) []any {
	if len(fields)%2 != 0 {
		fields = append(fields, nil)
	}
	out := make([]any, len(fields))
	for i := 0; i < len(fields); i += 2 {
		key, ok := fields[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", fields[i])
		}
		out[i] = key
		out[i+1] = fields[i+1]
	}
	return out
}

// Provider creates loggers that share one output and level.
type Provider struct {
	mu    sync.RWMutex
	root  zerolog.Logger
	level Level
}

// NewProvider builds a provider from cfg.
func NewProvider(cfg Config) (*Provider, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	if cfg.Output == nil {
		cfg.Output = os.Stderr
	}

	output := cfg.Output
	if cfg.Format == "console" {
		output = zerolog.ConsoleWriter{
			Out:        cfg.Output,
			TimeFormat: "15:04:05",
		}
	}

	zl := zerolog.New(zerolog.SyncWriter(output)).With().Timestamp().Logger()
	return &Provider{root: zl.Level(toZerologLevel(level)), level: level}, nil
}

// GetLogger implements LoggerProvider.GetLogger.
func (p *Provider) GetLogger() Logger {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return newZeroLogger(p.root)
}

// GetLoggerWithName implements LoggerProvider.GetLoggerWithName.
func (p *Provider) GetLoggerWithName(name string) Logger {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return newZeroLogger(p.root.With().Str(ComponentKey, name).Logger())
}

// SetLevel implements LoggerProvider.SetLevel.
func (p *Provider) SetLevel(level Level) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.level = level
	p.root = p.root.Level(toZerologLevel(level))
}

var (
	globalMu       sync.RWMutex
	globalProvider LoggerProvider
)

func init() {
	zerolog.TimeFieldFormat = time.RFC3339
	zerolog.ErrorStackMarshaler = extractStacktrace

	p, _ := NewProvider(DefaultConfig())
	globalProvider = p
}

// Setup configures the global provider and routes warnings raised through
// pkg/errors into the log stream.
func Setup(cfg Config) error {
	p, err := NewProvider(cfg)
	if err != nil {
		return err
	}
	SetProvider(p)

	warnLogger := p.GetLoggerWithName("warnings")
	foodErrors.SetZerologWarnFunc(func(w error) {
		if m, ok := w.(zerolog.LogObjectMarshaler); ok {
			warnLogger.Warn(w.Error(), "warning", m)
			return
		}
		warnLogger.Warn(w.Error())
	})
	return nil
}

// SetProvider replaces the global provider. Tests use it to capture logs.
func SetProvider(p LoggerProvider) {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalProvider = p
}

// GetLogger returns a logger from the global provider.
func GetLogger() Logger {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalProvider.GetLogger()
}

// GetLoggerWithName returns a component logger from the global provider.
func GetLoggerWithName(name string) Logger {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalProvider.GetLoggerWithName(name)
}

// extractStacktrace pulls the stack recorded by cockroachdb/errors.WithStack.
func extractStacktrace(err error) interface{} {
	safeDetails := errors.GetSafeDetails(err).SafeDetails
	if len(safeDetails) > 0 {
		return safeDetails[0]
	}
	return nil
}
