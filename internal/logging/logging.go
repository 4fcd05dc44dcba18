// Package logging builds the daemon's structured logger. "bug-level"
// selects development (human-readable, debug-enabled) vs production
// (JSON) encoding.
package logging

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a *zap.Logger for the given bug-level string. "debug"
// selects zap's development config (console encoding, debug level
// enabled); anything else selects production JSON encoding at info
// level or above.
func New(bugLevel string) (*zap.Logger, error) {
	if strings.EqualFold(bugLevel, "debug") {
		cfg := zap.NewDevelopmentConfig()
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		return cfg.Build()
	}

	cfg := zap.NewProductionConfig()
	level := zapcore.InfoLevel
	if bugLevel != "" {
		if err := level.UnmarshalText([]byte(bugLevel)); err == nil {
			cfg.Level = zap.NewAtomicLevelAt(level)
		}
	}
	return cfg.Build()
}
