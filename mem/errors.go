package mem

import (
	"errors"

	"github.com/joshuapare/memkit/mem/tlsf"
)

// Engine errors, re-exported so callers need only this package.
var (
	ErrOutOfMemory   = tlsf.ErrOutOfMemory
	ErrInvalidRegion = tlsf.ErrInvalidRegion
	ErrBadPointer    = tlsf.ErrBadPointer
	ErrUnknownPool   = tlsf.ErrUnknownPool
	ErrPoolInUse     = tlsf.ErrPoolInUse
	ErrCorrupted     = tlsf.ErrCorrupted
)

var (
	// ErrPrimaryPool is returned when removing the pool created by Init.
	// Use Deinit to reset the heap instead.
	ErrPrimaryPool = errors.New("mem: primary pool cannot be removed")

	// ErrClosed is returned by operations on a closed Heap.
	ErrClosed = errors.New("mem: heap closed")
)

// CorruptionError describes a damaged block header.
type CorruptionError = tlsf.CorruptionError
