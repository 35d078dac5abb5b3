// Package simdevice is a software stand-in for the GPU device, queue and
// command recorder contracts. It backs the demo harness and the tests with a
// deterministic, host-controlled GPU clock.
package simdevice

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/gfxprof/frametime/pkg/types"
)

// Device owns a fake GPU clock and hands out heaps, read-back buffers and
// recorders bound to it. It implements both types.Device and types.Queue;
// real backends usually split these.
type Device struct {
	freq  uint64
	ticks atomic.Uint64
}

func New(frequency uint64) *Device {
	return &Device{freq: frequency}
}

// Advance moves the fake GPU clock forward. The host drives this between
// timestamp writes to model GPU work taking time.
func (d *Device) Advance(ticks uint64) {
	d.ticks.Add(ticks)
}

func (d *Device) Now() uint64 {
	return d.ticks.Load()
}

func (d *Device) TimestampFrequency() (uint64, error) {
	if d.freq == 0 {
		return 0, errors.New("timestamp frequency unavailable")
	}
	return d.freq, nil
}

func (d *Device) CreateTimestampHeap(slots uint32) (types.QueryHeap, error) {
	if slots == 0 {
		return nil, errors.New("timestamp heap needs at least one slot")
	}
	return &queryHeap{slots: make([]uint64, slots)}, nil
}

func (d *Device) CreateReadbackBuffer(size int64) (types.ReadbackBuffer, error) {
	if size <= 0 {
		return nil, fmt.Errorf("invalid readback buffer size %d", size)
	}
	return &readbackBuffer{data: make([]byte, size)}, nil
}

// NewRecorder returns a recorder that executes commands immediately against
// the fake clock, which stands in for a submitted-and-retired command list.
func (d *Device) NewRecorder() *Recorder {
	return &Recorder{dev: d}
}

type queryHeap struct {
	slots []uint64
}

func (h *queryHeap) SlotCount() uint32 {
	return uint32(len(h.slots))
}

func (h *queryHeap) Release() error {
	h.slots = nil
	return nil
}

type readbackBuffer struct {
	data   []byte
	mapped bool
}

func (b *readbackBuffer) Size() int64 {
	return int64(len(b.data))
}

func (b *readbackBuffer) Map(offset, length int64) ([]byte, error) {
	if offset < 0 || length < 0 || offset+length > int64(len(b.data)) {
		return nil, fmt.Errorf("map range [%d, %d) outside buffer of %d bytes",
			offset, offset+length, len(b.data))
	}
	b.mapped = true
	return b.data[offset : offset+length], nil
}

func (b *readbackBuffer) Unmap() {
	b.mapped = false
}

func (b *readbackBuffer) Release() error {
	b.data = nil
	return nil
}

// Recorder implements types.CommandRecorder against the fake GPU clock.
type Recorder struct {
	dev *Device
}

// WriteTimestamp stamps the current fake GPU ticks into a heap slot.
// Out-of-range slots are ignored, as a real GPU would scribble undefined
// results rather than fail.
func (r *Recorder) WriteTimestamp(heap types.QueryHeap, slot uint32) {
	h, ok := heap.(*queryHeap)
	if !ok || int(slot) >= len(h.slots) {
		return
	}
	h.slots[slot] = r.dev.ticks.Load()
}

// ResolveTimestamps copies slot values into the destination buffer as
// little-endian uint64s at dstOffset.
func (r *Recorder) ResolveTimestamps(heap types.QueryHeap, startSlot, slotCount uint32, dst types.ReadbackBuffer, dstOffset int64) {
	h, hok := heap.(*queryHeap)
	b, bok := dst.(*readbackBuffer)
	if !hok || !bok {
		return
	}
	for i := uint32(0); i < slotCount; i++ {
		src := int(startSlot + i)
		off := dstOffset + int64(i)*8
		if src >= len(h.slots) || off+8 > int64(len(b.data)) {
			return
		}
		binary.LittleEndian.PutUint64(b.data[off:], h.slots[src])
	}
}
