package tlsf

import (
	"errors"
	"fmt"
)

var (
	// ErrOutOfMemory indicates that no free block large enough was found.
	ErrOutOfMemory = errors.New("tlsf: out of memory")

	// ErrInvalidRegion indicates a region too small, too large, or overlapping a pool.
	ErrInvalidRegion = errors.New("tlsf: invalid region")

	// ErrBadPointer indicates a pointer that does not belong to any pool.
	ErrBadPointer = errors.New("tlsf: pointer outside every pool")

	// ErrUnknownPool indicates a pool handle not owned by this allocator.
	ErrUnknownPool = errors.New("tlsf: unknown pool")

	// ErrPoolInUse indicates a strict removal of a pool that still holds used blocks.
	ErrPoolInUse = errors.New("tlsf: pool has live allocations")

	// ErrCorrupted indicates inconsistent heap metadata: an overrun, a double
	// free, or a stray write into a header.
	ErrCorrupted = errors.New("tlsf: heap corrupted")
)

// CorruptionError describes where a consistency check failed.
// It unwraps to ErrCorrupted.
type CorruptionError struct {
	Pool   int // Pool slot, -1 for control structure failures
	Offset int // Header offset inside the pool, -1 when unknown
	Reason string
}

func (e *CorruptionError) Error() string {
	switch {
	case e.Pool < 0:
		return fmt.Sprintf("tlsf: heap corrupted: %s", e.Reason)
	case e.Offset < 0:
		return fmt.Sprintf("tlsf: heap corrupted in pool %d: %s", e.Pool, e.Reason)
	default:
		return fmt.Sprintf("tlsf: heap corrupted in pool %d at offset 0x%X: %s", e.Pool, e.Offset, e.Reason)
	}
}

func (e *CorruptionError) Unwrap() error { return ErrCorrupted }

func corruptf(pool, off int, format string, args ...any) error {
	return &CorruptionError{Pool: pool, Offset: off, Reason: fmt.Sprintf(format, args...)}
}
