package observability

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/zerospeak/stranglergw/internal/util"
)

// Field is a structured log field. It aliases zap.Field so call sites can
// build fields without importing zap.
type Field = zap.Field

// Field constructors re-exported from zap.
var (
	String   = zap.String
	Int      = zap.Int
	Int64    = zap.Int64
	Float64  = zap.Float64
	Bool     = zap.Bool
	Error    = zap.Error
	Any      = zap.Any
	Duration = zap.Duration
	Time     = zap.Time
)

// Logger is the logging interface used throughout the gateway.
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
	Fatal(msg string, fields ...Field)

	// With returns a child logger with the given fields attached.
	With(fields ...Field) Logger

	// WithContext returns a child logger carrying the request-scoped
	// identifiers found in ctx (request ID, route, cluster).
	WithContext(ctx context.Context) Logger

	// Sync flushes buffered entries. Call before process exit.
	Sync() error
}

// LogConfig configures the logger.
type LogConfig struct {
	// Level is one of debug, info, warn, error. Defaults to info.
	Level string `yaml:"level" json:"level"`

	// Format is json or console. Defaults to json.
	Format string `yaml:"format" json:"format"`

	// Output is stdout, stderr, or a file path. Defaults to stdout.
	Output string `yaml:"output" json:"output"`
}

// zapLogger implements Logger on top of *zap.Logger.
type zapLogger struct {
	l *zap.Logger
}

// NewLogger creates a Logger from the given configuration.
func NewLogger(cfg LogConfig) (Logger, error) {
	level, err := parseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	encoder, err := buildEncoder(cfg.Format)
	if err != nil {
		return nil, err
	}

	sink, err := openSink(cfg.Output)
	if err != nil {
		return nil, err
	}

	core := zapcore.NewCore(encoder, sink, level)
	return &zapLogger{l: zap.New(core, zap.AddCaller())}, nil
}

func parseLevel(level string) (zapcore.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return zapcore.DebugLevel, nil
	case "info", "":
		return zapcore.InfoLevel, nil
	case "warn", "warning":
		return zapcore.WarnLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	default:
		return zapcore.InfoLevel, fmt.Errorf("unknown log level %q", level)
	}
}

func buildEncoder(format string) (zapcore.Encoder, error) {
	encCfg := zapcore.EncoderConfig{
		TimeKey:        "timestamp",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		MessageKey:     "message",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}

	switch strings.ToLower(format) {
	case "json", "":
		return zapcore.NewJSONEncoder(encCfg), nil
	case "console":
		encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		return zapcore.NewConsoleEncoder(encCfg), nil
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}
}

func openSink(output string) (zapcore.WriteSyncer, error) {
	switch output {
	case "stdout", "":
		return zapcore.AddSync(os.Stdout), nil
	case "stderr":
		return zapcore.AddSync(os.Stderr), nil
	default:
		f, err := os.OpenFile(output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open log output %q: %w", output, err)
		}
		return zapcore.AddSync(f), nil
	}
}

func (z *zapLogger) Debug(msg string, fields ...Field) { z.l.Debug(msg, fields...) }
func (z *zapLogger) Info(msg string, fields ...Field)  { z.l.Info(msg, fields...) }
func (z *zapLogger) Warn(msg string, fields ...Field)  { z.l.Warn(msg, fields...) }
func (z *zapLogger) Error(msg string, fields ...Field) { z.l.Error(msg, fields...) }
func (z *zapLogger) Fatal(msg string, fields ...Field) { z.l.Fatal(msg, fields...) }

func (z *zapLogger) With(fields ...Field) Logger {
	return &zapLogger{l: z.l.With(fields...)}
}

func (z *zapLogger) WithContext(ctx context.Context) Logger {
	fields := make([]Field, 0, 3)
	if id := util.RequestIDFromContext(ctx); id != "" {
		fields = append(fields, String("request_id", id))
	}
	if route := util.RouteFromContext(ctx); route != "" {
		fields = append(fields, String("route", route))
	}
	if cluster := util.ClusterFromContext(ctx); cluster != "" {
		fields = append(fields, String("cluster", cluster))
	}
	if len(fields) == 0 {
		return z
	}
	return z.With(fields...)
}

func (z *zapLogger) Sync() error { return z.l.Sync() }

// NewZapLogger wraps an existing zap logger. Tests use it to observe
// emitted entries through a zaptest observer core.
func NewZapLogger(l *zap.Logger) Logger {
	return &zapLogger{l: l}
}

// NopLogger returns a Logger that discards everything. Used in tests and as
// the default for optional logger parameters.
func NopLogger() Logger {
	return &zapLogger{l: zap.NewNop()}
}

var (
	globalMu     sync.RWMutex
	globalLogger Logger = NopLogger()
)

// SetGlobalLogger installs the process-wide logger. Called once at startup.
func SetGlobalLogger(l Logger) {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalLogger = l
}

// L returns the process-wide logger.
func L() Logger {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalLogger
}
