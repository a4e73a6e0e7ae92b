// Package logger provides the process-wide structured logger. Call sites use
// the key/value helpers (Info("msg", "key", val, ...)); values under keys that
// look like email fields, and addresses embedded in other string values, are
// redacted unless redaction is turned off.
package logger

import (
	"fmt"
	"regexp"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu        sync.RWMutex
	base      = zap.Must(newConfig(zapcore.InfoLevel).Build(zap.AddCallerSkip(2)))
	redactPII = true
)

func newConfig(level zapcore.Level) zap.Config {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.EncoderConfig.TimeKey = "time"
	cfg.EncoderConfig.MessageKey = "msg"
	cfg.EncoderConfig.EncodeTime = zapcore.RFC3339TimeEncoder
	cfg.Sampling = nil
	return cfg
}

// Setup replaces the default logger. level is one of debug, info, warn, error.
func Setup(level string, redact bool) error {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(strings.ToLower(level))); err != nil {
		return fmt.Errorf("logger: invalid level %q: %w", level, err)
	}
	l, err := newConfig(lvl).Build(zap.AddCallerSkip(2))
	if err != nil {
		return fmt.Errorf("logger: build: %w", err)
	}
	mu.Lock()
	old := base
	base = l
	redactPII = redact
	mu.Unlock()
	_ = old.Sync()
	return nil
}

// Use installs an externally built logger, typically zaptest or zap.NewNop in tests.
func Use(l *zap.Logger) {
	mu.Lock()
	base = l.WithOptions(zap.AddCallerSkip(2))
	mu.Unlock()
}

// L returns the underlying zap logger for callers that want typed fields.
func L() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return base.WithOptions(zap.AddCallerSkip(-2))
}

// Sync flushes buffered entries.
func Sync() error {
	mu.RLock()
	defer mu.RUnlock()
	return base.Sync()
}

// Debug emits a DEBUG-level structured log entry.
func Debug(msg string, fields ...interface{}) { write(zapcore.DebugLevel, msg, fields) }

// Info emits an INFO-level structured log entry.
func Info(msg string, fields ...interface{}) { write(zapcore.InfoLevel, msg, fields) }

// Warn emits a WARN-level structured log entry.
func Warn(msg string, fields ...interface{}) { write(zapcore.WarnLevel, msg, fields) }

// Error emits an ERROR-level structured log entry.
func Error(msg string, fields ...interface{}) { write(zapcore.ErrorLevel, msg, fields) }

func write(level zapcore.Level, msg string, kv []interface{}) {
	mu.RLock()
	l, redact := base, redactPII
	mu.RUnlock()

	ce := l.Check(level, msg)
	if ce == nil {
		return
	}
	ce.Write(Fields(redact, kv...)...)
}

// Fields converts alternating key/value pairs into zap fields. A trailing key
// without a value is dropped.
func Fields(redact bool, kv ...interface{}) []zap.Field {
	out := make([]zap.Field, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		key := fmt.Sprintf("%v", kv[i])
		val := kv[i+1]
		switch v := val.(type) {
		case error:
			out = append(out, zap.NamedError(key, v))
			continue
		case string:
			if redact {
				v = redactPIIValue(key, v)
			}
			out = append(out, zap.String(key, v))
			continue
		}
		out = append(out, zap.Any(key, val))
	}
	return out
}

var emailRegex = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)

func redactPIIValue(key, val string) string {
	key = strings.ToLower(key)
	if strings.Contains(key, "email") || strings.Contains(key, "recipient") {
		return RedactEmail(val)
	}
	return emailRegex.ReplaceAllStringFunc(val, RedactEmail)
}
