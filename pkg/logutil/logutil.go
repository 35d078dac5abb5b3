package logutil

import (
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	logger *zap.Logger
	once   sync.Once
)

// InitLogger builds the process-wide zap logger. The level defaults to info
// and can be overridden with FRAMETIME_LOG_LEVEL (debug enables the
// start/stop mismatch diagnostics).
func InitLogger() {
	once.Do(func() {
		level := zapcore.InfoLevel
		if raw := os.Getenv("FRAMETIME_LOG_LEVEL"); raw != "" {
			if parsed, err := zapcore.ParseLevel(raw); err == nil {
				level = parsed
			}
		}

		cfg := zap.NewProductionConfig()
		cfg.Level = zap.NewAtomicLevelAt(level)

		built, err := cfg.Build()
		if err != nil {
			built = zap.NewNop()
		}
		logger = built
	})
}

func GetLogger() *zap.Logger {
	if logger == nil {
		InitLogger()
	}
	return logger
}
