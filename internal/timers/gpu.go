package timers

import (
	"encoding/binary"
	"fmt"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/gfxprof/frametime/pkg/types"
)

// timerSlots is the query heap size: one start/end slot pair per logical
// timer. Timer id n stamps slots n*2 and n*2+1.
const timerSlots = 2 * MaxTimers

// tickBytes is the wire size of one timestamp in the read-back buffer.
const tickBytes = 8

// DefaultAvgRefreshPeriodMS is how often published averages are recomputed.
// Decoupling the displayed numbers from per-frame jitter is the point.
const DefaultAvgRefreshPeriodMS = 1000.0

// GPUTimer measures named GPU-side command-list regions. Timestamp queries
// are resolved into a ring of per-frame read-back regions, and each frame the
// CPU consumes the region written maxFrameLatency frames ago, which the
// host's frame pacing guarantees has retired. No fence is needed on the hot
// path; the cost is a fixed staleness of maxFrameLatency frames.
//
// All calls come from the single frame thread, in frame order.
type GPUTimer struct {
	heap   types.QueryHeap
	buffer types.ReadbackBuffer

	// Snapshot of the most recently consumed frame region.
	timing [timerSlots]uint64

	avg          [MaxTimers]float64
	periodTotal  [MaxTimers]float64
	periodFrames uint32

	// periodClock gates average publication; it uses slot 0 only.
	periodClock        *CPUTimer
	avgRefreshPeriodMS float64

	msPerTick       float64
	maxFrameLatency uint32
	frameCursor     uint32

	log *zap.Logger
}

func NewGPUTimer() (*GPUTimer, error) {
	return NewGPUTimerWithClock(monotonicClock{})
}

// NewGPUTimerWithClock uses c for the internal period clock. The GPU clock
// itself always comes from the queue passed to RestoreDevice.
func NewGPUTimerWithClock(c Clock) (*GPUTimer, error) {
	clock, err := NewCPUTimerWithClock(c)
	if err != nil {
		return nil, err
	}
	g := &GPUTimer{
		periodClock:        clock,
		avgRefreshPeriodMS: DefaultAvgRefreshPeriodMS,
		log:                zap.NewNop(),
	}
	if err := g.periodClock.Start(0); err != nil {
		return nil, err
	}
	return g, nil
}

// SetLogger installs the diagnostics logger, debug-level warnings only.
func (g *GPUTimer) SetLogger(l *zap.Logger) {
	if l != nil {
		g.log = l
	}
}

// SetAvgRefreshPeriodMS overrides the publication period. Values <= 0 are
// ignored.
func (g *GPUTimer) SetAvgRefreshPeriodMS(ms float64) {
	if ms > 0 {
		g.avgRefreshPeriodMS = ms
	}
}

// BeginFrame marks the start of a frame's measured region set. Reserved hook,
// kept for symmetry with EndFrame.
func (g *GPUTimer) BeginFrame(types.CommandRecorder) {}

// Start stamps the GPU clock into timer id's start slot. Must be called
// between BeginFrame and EndFrame on the same recorder.
func (g *GPUTimer) Start(rec types.CommandRecorder, id uint32) error {
	if id >= MaxTimers {
		return fmt.Errorf("%w: %d", ErrTimerRange, id)
	}
	if g.heap == nil {
		return ErrDeviceNotRestored
	}
	rec.WriteTimestamp(g.heap, id*2)
	return nil
}

// Stop stamps the GPU clock into timer id's end slot.
func (g *GPUTimer) Stop(rec types.CommandRecorder, id uint32) error {
	if id >= MaxTimers {
		return fmt.Errorf("%w: %d", ErrTimerRange, id)
	}
	if g.heap == nil {
		return ErrDeviceNotRestored
	}
	rec.WriteTimestamp(g.heap, id*2+1)
	return nil
}

// EndFrame resolves this frame's queries into the current ring region, reads
// back the region that is guaranteed complete, accumulates per-timer elapsed
// times, and rotates the ring. Published averages refresh once per period,
// not once per frame.
func (g *GPUTimer) EndFrame(rec types.CommandRecorder) error {
	if g.heap == nil || g.buffer == nil {
		return ErrDeviceNotRestored
	}

	resolveOffset := int64(g.frameCursor) * timerSlots * tickBytes
	rec.ResolveTimestamps(g.heap, 0, timerSlots, g.buffer, resolveOffset)

	// The region written maxFrameLatency frames ago: the host's frame pacing
	// bounds in-flight frames, so its GPU work has retired by now.
	readBackFrame := (g.frameCursor + 1) % (g.maxFrameLatency + 1)
	readBackOffset := int64(readBackFrame) * timerSlots * tickBytes

	data, err := g.buffer.Map(readBackOffset, timerSlots*tickBytes)
	if err != nil {
		return fmt.Errorf("map readback region: %w", err)
	}
	for i := 0; i < timerSlots; i++ {
		g.timing[i] = binary.LittleEndian.Uint64(data[i*tickBytes:])
	}
	g.buffer.Unmap()

	for id := uint32(0); id < MaxTimers; id++ {
		start, end := g.timing[id*2], g.timing[id*2+1]
		warnMismatch(g.log, id, start, end)
		g.periodTotal[id] += elapsedMS(start, end, g.msPerTick)
	}
	g.periodFrames++

	if err := g.periodClock.Stop(0); err != nil {
		return err
	}
	if g.periodClock.GetElapsedMS(0) >= g.avgRefreshPeriodMS {
		for id := uint32(0); id < MaxTimers; id++ {
			g.avg[id] = g.periodTotal[id] / float64(g.periodFrames)
			g.periodTotal[id] = 0
		}
		g.periodFrames = 0
		if err := g.periodClock.Start(0); err != nil {
			return err
		}
	}

	g.frameCursor = readBackFrame
	return nil
}

// GetElapsedMS returns the instantaneous value from the latest snapshot.
// Out-of-range ids and pairs with end before start (not yet written, or torn)
// read as 0, never negative, never an error.
func (g *GPUTimer) GetElapsedMS(id uint32) float64 {
	if id >= MaxTimers {
		return 0
	}
	return elapsedMS(g.timing[id*2], g.timing[id*2+1], g.msPerTick)
}

// GetAverageMS returns the published average for a slot, 0 when out of range.
func (g *GPUTimer) GetAverageMS(id uint32) float64 {
	if id >= MaxTimers {
		return 0
	}
	return g.avg[id]
}

// Readings returns the published view of every slot that has produced data.
func (g *GPUTimer) Readings() []types.Reading {
	var out []types.Reading
	for id := uint32(0); id < MaxTimers; id++ {
		last := g.GetElapsedMS(id)
		if g.avg[id] == 0 && last == 0 {
			continue
		}
		out = append(out, types.Reading{ID: id, AverageMS: g.avg[id], LastMS: last})
	}
	return out
}

// Reset zeroes published averages and accumulators and restarts the period
// clock. The device resources and the ring cursor are untouched.
func (g *GPUTimer) Reset() error {
	g.avg = [MaxTimers]float64{}
	g.periodTotal = [MaxTimers]float64{}
	g.periodFrames = 0
	g.periodClock.Reset()
	return g.periodClock.Start(0)
}

// ReleaseDevice drops the query heap and read-back buffer. Idempotent.
// Averages and accumulators survive for the next RestoreDevice.
func (g *GPUTimer) ReleaseDevice() error {
	var err error
	if g.heap != nil {
		err = multierr.Append(err, g.heap.Release())
		g.heap = nil
	}
	if g.buffer != nil {
		err = multierr.Append(err, g.buffer.Release())
		g.buffer = nil
	}
	return err
}

// RestoreDevice (re)creates the GPU-side resources after construction or a
// device loss: a heap of 2*MaxTimers timestamp slots and a read-back buffer
// with maxFrameLatency+1 frame regions. Must succeed before any Start, Stop
// or EndFrame call.
func (g *GPUTimer) RestoreDevice(device types.Device, queue types.Queue, maxFrameLatency uint32) error {
	freq, err := queue.TimestampFrequency()
	if err != nil {
		return fmt.Errorf("query timestamp frequency: %w", err)
	}

	heap, err := device.CreateTimestampHeap(timerSlots)
	if err != nil {
		return fmt.Errorf("create timestamp heap: %w", err)
	}

	size := int64(maxFrameLatency+1) * timerSlots * tickBytes
	buffer, err := device.CreateReadbackBuffer(size)
	if err != nil {
		return multierr.Append(fmt.Errorf("create readback buffer: %w", err), heap.Release())
	}

	if err := g.ReleaseDevice(); err != nil {
		g.log.Warn("releasing previous device resources", zap.Error(err))
	}

	g.heap = heap
	g.buffer = buffer
	g.msPerTick = 1000.0 / float64(freq)
	g.maxFrameLatency = maxFrameLatency
	g.frameCursor = 0
	return nil
}
