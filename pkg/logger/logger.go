// Package logger builds the structured loggers used throughout the
// database: one zap.SugaredLogger per service, tagged so every log line can
// be traced back to the component that emitted it.
package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a production-configured zap logger scoped to service, e.g.
// "tree", "allocator", "handler". Output goes to stderr as JSON so it can be
// shipped to a log aggregator without reformatting.
func New(service string) *zap.SugaredLogger {
	cfg := zap.NewProductionConfig()
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.OutputPaths = []string{"stderr"}

	base, err := cfg.Build()
	if err != nil {
		// Logging infrastructure failing to construct is unrecoverable;
		// fall back to a bare core rather than panic on startup.
		base = zap.NewExample()
	}

	return base.With(zap.String("service", service)).Sugar()
}

// NewDevelopment builds a human-readable, colorized logger suited to local
// development and tests. Unlike New it writes to stdout and includes
// caller/stacktrace info on warnings and above.
func NewDevelopment(service string) *zap.SugaredLogger {
	cfg := zap.NewDevelopmentConfig()
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	cfg.OutputPaths = []string{"stdout"}

	base, err := cfg.Build()
	if err != nil {
		base = zap.NewExample()
	}

	return base.With(zap.String("service", service)).Sugar()
}

// NewNop returns a logger that discards everything, used by components
// that accept an optional logger and default to silence.
func NewNop() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}
