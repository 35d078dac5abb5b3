package types

// QueryHeap is a block of GPU timestamp query slots owned by a GPUTimer.
type QueryHeap interface {
	SlotCount() uint32
	Release() error
}

// ReadbackBuffer is a CPU-mappable buffer the GPU resolves query results into.
// Map exposes the byte range [offset, offset+length) for read-only access and
// must be paired with Unmap. Mapping is bounded to the requested range only,
// so it never waits on writes to other regions of the buffer.
type ReadbackBuffer interface {
	Map(offset, length int64) ([]byte, error)
	Unmap()
	Size() int64
	Release() error
}

// Device creates the GPU-side resources the timer subsystem owns.
type Device interface {
	CreateTimestampHeap(slots uint32) (QueryHeap, error)
	CreateReadbackBuffer(size int64) (ReadbackBuffer, error)
}

// Queue reports the timestamp tick frequency of the command queue the
// measured work is submitted on, in ticks per second.
type Queue interface {
	TimestampFrequency() (uint64, error)
}
