// Package logger builds the structured zap loggers used throughout UltraKV.
// Every subsystem constructor takes a *zap.SugaredLogger so that log fields
// (segment id, offset, key, byte counts) stay structured end to end instead
// of being interpolated into format strings.
package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a production-profile zap logger scoped to the given engine name
// and returns its sugared form, matching the shape the teacher's
// pkg/ignite.NewInstance expects from a logger constructor.
func New(engine string) *zap.SugaredLogger {
	cfg := zap.NewProductionConfig()
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.DisableStacktrace = true

	base, err := cfg.Build()
	if err != nil {
		// Falling back to a no-op logger keeps Open()/New() from failing
		// purely because of a logging misconfiguration.
		base = zap.NewNop()
	}

	return base.Sugar().With("engine", engine)
}

// Nop returns a logger that discards everything, useful for tests that don't
// want engine log noise.
func Nop() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}
