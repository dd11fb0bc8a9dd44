// Package logger provides the structured logger shared by the service.
package logger

import (
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger wraps zap with a key/value API
type Logger struct {
	zap   *zap.Logger
	sugar *zap.SugaredLogger
}

// New creates a logger for the given level and environment.
// Production uses the JSON encoder, everything else the console encoder.
func New(level, environment string) *Logger {
	var cfg zap.Config
	if environment == "production" || environment == "staging" {
		cfg = zap.NewProductionConfig()
		cfg.EncoderConfig.TimeKey = "timestamp"
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	} else {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	cfg.Level = zap.NewAtomicLevelAt(parseLevel(level))

	z, err := cfg.Build()
	if err != nil {
		z = zap.New(zapcore.NewCore(
			zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
			zapcore.Lock(os.Stderr),
			parseLevel(level),
		))
	}
	return NewFromZap(z)
}

// NewFromZap wraps an existing zap logger
func NewFromZap(z *zap.Logger) *Logger {
	return &Logger{zap: z, sugar: z.WithOptions(zap.AddCallerSkip(1)).Sugar()}
}

// NewNop returns a logger that discards everything
func NewNop() *Logger {
	return NewFromZap(zap.NewNop())
}

func parseLevel(level string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// Zap returns the underlying zap logger for typed-field logging
func (l *Logger) Zap() *zap.Logger {
	return l.zap
}

func (l *Logger) Debug(msg string, keysAndValues ...interface{}) {
	l.sugar.Debugw(msg, keysAndValues...)
}

func (l *Logger) Info(msg string, keysAndValues ...interface{}) {
	l.sugar.Infow(msg, keysAndValues...)
}

func (l *Logger) Warn(msg string, keysAndValues ...interface{}) {
	l.sugar.Warnw(msg, keysAndValues...)
}

func (l *Logger) Error(msg string, keysAndValues ...interface{}) {
	l.sugar.Errorw(msg, keysAndValues...)
}

func (l *Logger) Fatal(msg string, keysAndValues ...interface{}) {
	l.sugar.Fatalw(msg, keysAndValues...)
}

// With returns a child logger carrying the given key/value pairs
func (l *Logger) With(keysAndValues ...interface{}) *Logger {
	child := l.sugar.With(keysAndValues...)
	return &Logger{zap: child.Desugar().WithOptions(zap.AddCallerSkip(-1)), sugar: child}
}

// Sync flushes buffered entries
func (l *Logger) Sync() error {
	return l.zap.Sync()
}
