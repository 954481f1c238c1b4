// Package xlog provides the module-scoped structured logger used across the
// flow tracker, wrapping zap the way the pack wraps log15: every package
// gets its own named logger via New, and call sites pass alternating
// key/value pairs rather than a format string.
package xlog

import (
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu        sync.Mutex
	base      *zap.Logger
	atomLevel = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	initted   bool
)

// Init sets the process-wide log level. Safe to call before or after any
// New(module) — every Logger shares the same AtomicLevel, so adjusting it
// here takes effect immediately for loggers already constructed as
// package-level vars (the common case: every package builds its logger at
// init time, before main() has parsed LOG_LEVEL).
func Init(level string) {
	mu.Lock()
	defer mu.Unlock()
	atomLevel.SetLevel(parseLevel(level))
}

func buildBase() *zap.Logger {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	cfg.Level = atomLevel
	cfg.OutputPaths = []string{"stdout"}

	l, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		// fall back to a minimal logger rather than panicking at startup.
		l = zap.NewExample()
	}
	return l
}

func parseLevel(level string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	case "":
		return zapcore.InfoLevel
	default:
		return zapcore.InfoLevel
	}
}

// Logger is a module-scoped, key/value-pair structured logger.
type Logger struct {
	s *zap.SugaredLogger
}

// New returns a logger scoped to module, mirroring log.NewModuleLogger.
func New(module string) *Logger {
	mu.Lock()
	if !initted {
		base = buildBase()
		initted = true
	}
	b := base
	mu.Unlock()
	return &Logger{s: b.Sugar().With("module", module)}
}

func (l *Logger) Debug(msg string, kv ...interface{}) { l.s.Debugw(msg, kv...) }
func (l *Logger) Info(msg string, kv ...interface{})  { l.s.Infow(msg, kv...) }
func (l *Logger) Warn(msg string, kv ...interface{})  { l.s.Warnw(msg, kv...) }
func (l *Logger) Error(msg string, kv ...interface{}) { l.s.Errorw(msg, kv...) }

// Crit logs at error level and terminates the process, matching the pack's
// logger.Crit for unrecoverable startup failures.
func (l *Logger) Crit(msg string, kv ...interface{}) {
	l.s.Errorw(msg, kv...)
	os.Exit(1)
}

// Sync flushes buffered log entries; call before process exit.
func (l *Logger) Sync() {
	_ = l.s.Sync()
}
