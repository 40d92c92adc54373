package tlsf

// Stats holds allocator counters for testing and instrumentation.
type Stats struct {
	AllocCalls     int // Alloc calls, including the allocation half of a moving Realloc
	FreeCalls      int // Free calls with a non-nil pointer
	ReallocCalls   int // Realloc calls that resized an existing block
	ReallocInPlace int // Reallocs served without moving data
	ReallocMoved   int // Reallocs that copied into a new block
	OutOfMemory    int // Requests that failed with ErrOutOfMemory
	Splits         int // Blocks split to return a remainder to a free list
	MergeForward   int // Merges with the next physical block
	MergeBackward  int // Merges with the previous physical block
}

// Stats returns a copy of the allocator counters.
func (a *Allocator) Stats() Stats { return a.stats }
