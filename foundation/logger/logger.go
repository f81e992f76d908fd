// Package logger provides a convenience function to construct a
// logger. It's require for the application and testing.
package logger

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New constructs a Sugared Logger that writes to stdout with human-readable
// timestamps. The level is one of debug, info, warn or error, empty is info.
func New(service string, level string) (*zap.SugaredLogger, error) {
	config := zap.NewProductionConfig()
	config.OutputPaths = []string{"stdout"}
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	config.DisableStacktrace = true
	config.InitialFields = map[string]any{
		"service": service,
	}

	if level != "" {
		if err := config.Level.UnmarshalText([]byte(level)); err != nil {
			return nil, fmt.Errorf("parsing level %q: %w", level, err)
		}
	}

	log, err := config.Build()
	if err != nil {
		return nil, err
	}

	return log.Sugar(), nil
}

// EvHandler adapts the logger to the printf style event handlers the
// background workers report through.
func EvHandler(log *zap.SugaredLogger, traceID string) func(v string, args ...any) {
	return func(v string, args ...any) {
		s := fmt.Sprintf(v, args...)
		log.Infow(s, "traceid", traceID)
	}
}
