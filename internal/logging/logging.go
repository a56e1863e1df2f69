// Package logging carries the small structured logger interface used
// throughout schedulerd, backed by go.uber.org/zap.
package logging

import "go.uber.org/zap"

// Logger is the structured logging surface every component depends on,
// narrowed to what the scheduler loop, dispatcher, and registry actually
// need: a message plus loosely-typed key/value pairs, at four levels.
type Logger interface {
	Debug(msg string, kv ...any)
	Info(msg string, kv ...any)
	Warn(msg string, kv ...any)
	Error(msg string, kv ...any)
	// Named returns a Logger scoped under the given component name.
	Named(name string) Logger
}

// zapLogger adapts a *zap.Logger to Logger, converting kv pairs to
// zap.Any fields at the call site.
type zapLogger struct {
	z *zap.Logger
}

// New wraps z as a Logger. A nil z yields a no-op logger, so callers
// that construct one before a real *zap.Logger is available (tests,
// early startup) never need a nil check.
func New(z *zap.Logger) Logger {
	if z == nil {
		z = zap.NewNop()
	}
	return &zapLogger{z: z}
}

// NewProduction builds a Logger from zap's production config, suitable
// for cmd/schedulerd's default.
func NewProduction() (Logger, error) {
	z, err := zap.NewProduction()
	if err != nil {
		return nil, err
	}
	return &zapLogger{z: z}, nil
}

func fields(kv []any) []zap.Field {
	fs := make([]zap.Field, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			continue
		}
		fs = append(fs, zap.Any(key, kv[i+1]))
	}
	return fs
}

func (l *zapLogger) Debug(msg string, kv ...any) { l.z.Debug(msg, fields(kv)...) }
func (l *zapLogger) Info(msg string, kv ...any)  { l.z.Info(msg, fields(kv)...) }
func (l *zapLogger) Warn(msg string, kv ...any)  { l.z.Warn(msg, fields(kv)...) }
func (l *zapLogger) Error(msg string, kv ...any) { l.z.Error(msg, fields(kv)...) }

func (l *zapLogger) Named(name string) Logger {
	return &zapLogger{z: l.z.Named(name)}
}
