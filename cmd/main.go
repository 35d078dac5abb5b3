package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gfxprof/frametime/internal/config"
	"github.com/gfxprof/frametime/internal/history"
	"github.com/gfxprof/frametime/internal/simdevice"
	"github.com/gfxprof/frametime/internal/timers"
	"github.com/gfxprof/frametime/pkg/logutil"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Demo timer ids. A real host names its own regions.
const (
	timerFrame  = 0
	timerShadow = 1
	timerPost   = 2
)

// gpuFrequency is the simulated GPU timestamp frequency, 1 GHz.
const gpuFrequency = 1_000_000_000

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	logutil.InitLogger()

	logger := logutil.GetLogger()
	defer logger.Sync()

	go func() {
		sigch := make(chan os.Signal, 1)
		signal.Notify(sigch, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigch
		logger.Info("Received signal, shutting down", zap.String("signal", sig.String()))
		cancel()
	}()

	cfg := config.LoadConfig()

	cpu, err := timers.NewCPUTimer()
	if err != nil {
		logger.Fatal("CPU clock unavailable", zap.Error(err))
	}
	cpu.SetLogger(logger)

	gpu, err := timers.NewGPUTimer()
	if err != nil {
		logger.Fatal("GPU timer construction failed", zap.Error(err))
	}
	gpu.SetLogger(logger)
	gpu.SetAvgRefreshPeriodMS(cfg.AvgRefreshPeriodMS)

	dev := simdevice.New(gpuFrequency)
	if err := gpu.RestoreDevice(dev, dev, cfg.MaxFrameLatency); err != nil {
		logger.Fatal("Error restoring timer device resources", zap.Error(err))
	}
	defer gpu.ReleaseDevice()

	var store *history.Store
	if cfg.HistoryDir != "" {
		store, err = history.Open(cfg.HistoryDir)
		if err != nil {
			logger.Fatal("Error opening history store", zap.Error(err))
		}
		defer store.Close()
		logger.Info("Recording period history", zap.String("dir", cfg.HistoryDir))
	}

	logger.Info("Starting simulated frame loop",
		zap.Uint32("max_frame_latency", cfg.MaxFrameLatency),
		zap.Float64("avg_refresh_ms", cfg.AvgRefreshPeriodMS),
		zap.Duration("frame_interval", cfg.FrameInterval))

	rec := dev.NewRecorder()
	frames := time.NewTicker(cfg.FrameInterval)
	defer frames.Stop()
	report := time.NewTicker(time.Duration(cfg.AvgRefreshPeriodMS * float64(time.Millisecond)))
	defer report.Stop()

	var periodFrames uint32
	for {
		select {
		case <-ctx.Done():
			logger.Info("Frame loop finished")
			return

		case <-frames.C:
			if err := runFrame(cpu, gpu, dev, rec); err != nil {
				logger.Error("Frame instrumentation failed", zap.Error(err))
				return
			}
			periodFrames++

		case <-report.C:
			readings := gpu.Readings()
			for _, r := range readings {
				logger.Info("GPU timer",
					zap.Uint32("id", r.ID),
					zap.Float64("avg_ms", r.AverageMS),
					zap.Float64("last_ms", r.LastMS))
			}
			logger.Info("CPU frame",
				zap.Float64("avg_ms", cpu.GetAverageMS(timerFrame)),
				zap.Float64("last_ms", cpu.GetElapsedMS(timerFrame)))

			if store != nil {
				record := history.Record{
					Unix:     time.Now().Unix(),
					Frames:   periodFrames,
					Readings: readings,
				}
				if err := store.Append(record); err != nil {
					logger.Error("Error appending history record", zap.Error(err))
				}
			}
			periodFrames = 0
		}
	}
}

// runFrame drives one instrumented frame: the CPU timer brackets the whole
// frame body, the GPU timer brackets two fake passes whose cost is modelled
// by advancing the simulated GPU clock.
func runFrame(cpu *timers.CPUTimer, gpu *timers.GPUTimer, dev *simdevice.Device, rec *simdevice.Recorder) error {
	var err error

	err = multierr.Append(err, cpu.Start(timerFrame))
	gpu.BeginFrame(rec)

	err = multierr.Append(err, gpu.Start(rec, timerShadow))
	dev.Advance(2_400_000) // ~2.4ms shadow pass
	err = multierr.Append(err, gpu.Stop(rec, timerShadow))

	err = multierr.Append(err, gpu.Start(rec, timerPost))
	dev.Advance(900_000) // ~0.9ms post pass
	err = multierr.Append(err, gpu.Stop(rec, timerPost))

	err = multierr.Append(err, gpu.EndFrame(rec))
	err = multierr.Append(err, cpu.Stop(timerFrame))
	cpu.Update()

	return err
}
