package types

// CommandRecorder is the command-list surface the timer subsystem needs: it
// can stamp the GPU clock into a query slot and copy a range of query results
// into a destination buffer. The core only issues these commands in order and
// never inspects recorder state.
type CommandRecorder interface {
	WriteTimestamp(heap QueryHeap, slot uint32)
	ResolveTimestamps(heap QueryHeap, startSlot, slotCount uint32, dst ReadbackBuffer, dstOffset int64)
}
