package config

import (
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	t.Setenv("FRAMETIME_AVG_REFRESH_MS", "")
	t.Setenv("FRAMETIME_MAX_FRAME_LATENCY", "")
	t.Setenv("FRAMETIME_FRAME_INTERVAL_MS", "")
	t.Setenv("FRAMETIME_HISTORY_DIR", "")

	cfg := LoadConfig()

	if cfg.AvgRefreshPeriodMS != 1000 {
		t.Errorf("AvgRefreshPeriodMS: got %v", cfg.AvgRefreshPeriodMS)
	}
	if cfg.MaxFrameLatency != 2 {
		t.Errorf("MaxFrameLatency: got %v", cfg.MaxFrameLatency)
	}
	if cfg.FrameInterval != 16*time.Millisecond {
		t.Errorf("FrameInterval: got %v", cfg.FrameInterval)
	}
	if cfg.HistoryDir != "" {
		t.Errorf("HistoryDir: got %q", cfg.HistoryDir)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("FRAMETIME_AVG_REFRESH_MS", "250")
	t.Setenv("FRAMETIME_MAX_FRAME_LATENCY", "3")
	t.Setenv("FRAMETIME_FRAME_INTERVAL_MS", "8")
	t.Setenv("FRAMETIME_HISTORY_DIR", "/tmp/frametime-history")

	cfg := LoadConfig()

	if cfg.AvgRefreshPeriodMS != 250 {
		t.Errorf("AvgRefreshPeriodMS: got %v", cfg.AvgRefreshPeriodMS)
	}
	if cfg.MaxFrameLatency != 3 {
		t.Errorf("MaxFrameLatency: got %v", cfg.MaxFrameLatency)
	}
	if cfg.FrameInterval != 8*time.Millisecond {
		t.Errorf("FrameInterval: got %v", cfg.FrameInterval)
	}
	if cfg.HistoryDir != "/tmp/frametime-history" {
		t.Errorf("HistoryDir: got %q", cfg.HistoryDir)
	}
}

func TestInvalidValuesKeepDefaults(t *testing.T) {
	t.Setenv("FRAMETIME_AVG_REFRESH_MS", "-5")
	t.Setenv("FRAMETIME_MAX_FRAME_LATENCY", "not-a-number")
	t.Setenv("FRAMETIME_FRAME_INTERVAL_MS", "0")

	cfg := LoadConfig()

	if cfg.AvgRefreshPeriodMS != 1000 {
		t.Errorf("AvgRefreshPeriodMS: got %v", cfg.AvgRefreshPeriodMS)
	}
	if cfg.MaxFrameLatency != 2 {
		t.Errorf("MaxFrameLatency: got %v", cfg.MaxFrameLatency)
	}
	if cfg.FrameInterval != 16*time.Millisecond {
		t.Errorf("FrameInterval: got %v", cfg.FrameInterval)
	}
}
