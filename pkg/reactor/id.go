package reactor

import "sync/atomic"

// globalIDCounter is the source of unique IDs for all reactive primitives.
// Atomic so that independent goroutines driving separate graphs never
// hand out the same ID.
var globalIDCounter uint64

// nextID returns the next unique ID for a reactive primitive.
// IDs are monotonically increasing and never reused; creation order is
// therefore recoverable from the IDs themselves.
func nextID() uint64 {
	return atomic.AddUint64(&globalIDCounter, 1)
}
