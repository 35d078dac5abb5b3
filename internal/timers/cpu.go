package timers

import (
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sys/unix"
)

// MaxTimers is the number of logical timer slots each timer owns.
const MaxTimers = 64

// Clock supplies raw monotonic ticks and the tick frequency in Hz. The
// conversion factor to milliseconds is fixed once at construction.
type Clock interface {
	Ticks() (uint64, error)
	Frequency() uint64
}

// monotonicClock reads CLOCK_MONOTONIC_RAW, which is unaffected by NTP slew.
type monotonicClock struct{}

func (monotonicClock) Ticks() (uint64, error) {
	var ts unix.Timespec
	if err := unix.ClockGettime(unix.CLOCK_MONOTONIC_RAW, &ts); err != nil {
		return 0, fmt.Errorf("clock_gettime: %w", err)
	}
	return uint64(ts.Nano()), nil
}

func (monotonicClock) Frequency() uint64 { return 1e9 }

// CPUTimer measures named CPU-side code regions with immediate reads.
// All calls are made from the single frame thread; there is no locking.
type CPUTimer struct {
	clock     Clock
	msPerTick float64
	start     [MaxTimers]uint64
	end       [MaxTimers]uint64
	avg       [MaxTimers]float64
	log       *zap.Logger
}

// NewCPUTimer builds a timer on the host monotonic clock. Construction fails
// if the clock cannot be read, since nothing works without one.
func NewCPUTimer() (*CPUTimer, error) {
	return NewCPUTimerWithClock(monotonicClock{})
}

func NewCPUTimerWithClock(c Clock) (*CPUTimer, error) {
	if _, err := c.Ticks(); err != nil {
		return nil, err
	}
	return &CPUTimer{
		clock:     c,
		msPerTick: 1000.0 / float64(c.Frequency()),
		log:       zap.NewNop(),
	}, nil
}

// SetLogger installs the diagnostics logger. Start/stop mismatch warnings are
// emitted at debug level only and never change what gets computed.
func (t *CPUTimer) SetLogger(l *zap.Logger) {
	if l != nil {
		t.log = l
	}
}

func (t *CPUTimer) Start(id uint32) error {
	if id >= MaxTimers {
		return fmt.Errorf("%w: %d", ErrTimerRange, id)
	}
	ticks, err := t.clock.Ticks()
	if err != nil {
		return err
	}
	t.start[id] = ticks
	return nil
}

func (t *CPUTimer) Stop(id uint32) error {
	if id >= MaxTimers {
		return fmt.Errorf("%w: %d", ErrTimerRange, id)
	}
	ticks, err := t.clock.Ticks()
	if err != nil {
		return err
	}
	t.end[id] = ticks
	return nil
}

// Update folds every slot's latest start/stop pair into its running average.
// Call once per frame after the measured regions have stopped.
func (t *CPUTimer) Update() {
	for id := uint32(0); id < MaxTimers; id++ {
		start, end := t.start[id], t.end[id]
		warnMismatch(t.log, id, start, end)
		t.avg[id] = UpdateRunningAverage(t.avg[id], elapsedMS(start, end, t.msPerTick))
	}
}

// Reset zeroes the averages. Raw ticks stay until overwritten by the next
// Start/Stop.
func (t *CPUTimer) Reset() {
	t.avg = [MaxTimers]float64{}
}

// GetElapsedMS returns the instantaneous elapsed time of the most recent
// start/stop pair. Out-of-range ids read as 0; display code must not crash.
func (t *CPUTimer) GetElapsedMS(id uint32) float64 {
	if id >= MaxTimers {
		return 0
	}
	return elapsedMS(t.start[id], t.end[id], t.msPerTick)
}

// GetAverageMS returns the smoothed average for a slot, 0 when out of range.
func (t *CPUTimer) GetAverageMS(id uint32) float64 {
	if id >= MaxTimers {
		return 0
	}
	return t.avg[id]
}

// elapsedMS converts a tick pair to milliseconds. A pair with end before
// start is stale or torn and reads as 0, never negative.
func elapsedMS(start, end uint64, msPerTick float64) float64 {
	if end < start {
		return 0
	}
	return float64(end-start) * msPerTick
}

func warnMismatch(log *zap.Logger, id uint32, start, end uint64) {
	if start == 0 && end > 0 {
		log.Debug("timer stopped but not started", zap.Uint32("timer", id))
	} else if start > 0 && end == 0 {
		log.Debug("timer started but not stopped", zap.Uint32("timer", id))
	}
}
