package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds the knobs of the demo harness. Everything comes from the
// environment with sane defaults; the library itself takes these as plain
// arguments and never reads the environment.
type Config struct {
	AvgRefreshPeriodMS float64
	MaxFrameLatency    uint32
	FrameInterval      time.Duration
	HistoryDir         string
}

func LoadConfig() *Config {
	cfg := &Config{
		AvgRefreshPeriodMS: 1000,
		MaxFrameLatency:    2,
		FrameInterval:      16 * time.Millisecond,
	}

	if v := os.Getenv("FRAMETIME_AVG_REFRESH_MS"); v != "" {
		if ms, err := strconv.ParseFloat(v, 64); err == nil && ms > 0 {
			cfg.AvgRefreshPeriodMS = ms
		}
	}
	if v := os.Getenv("FRAMETIME_MAX_FRAME_LATENCY"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 32); err == nil {
			cfg.MaxFrameLatency = uint32(n)
		}
	}
	if v := os.Getenv("FRAMETIME_FRAME_INTERVAL_MS"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 32); err == nil && n > 0 {
			cfg.FrameInterval = time.Duration(n) * time.Millisecond
		}
	}
	cfg.HistoryDir = os.Getenv("FRAMETIME_HISTORY_DIR")

	return cfg
}
