package format

import (
	"fmt"

	"github.com/joshuapare/memkit/internal/buf"
)

// Block is a decoded block header.
type Block struct {
	Offset   int    // Header offset relative to the pool start
	PrevPhys uint32 // Offset of the previous physical header, NoPrev for the first
	Size     int    // Payload size in bytes
	Free     bool
	PrevFree bool
}

// NextOffset returns the offset of the following physical header.
func (b Block) NextOffset() int { return b.Offset + HeaderSize + b.Size }

// IsSentinel reports whether b is the zero-size terminator of a pool of
// length poolLen.
func (b Block) IsSentinel(poolLen int) bool {
	return b.Offset == poolLen-HeaderSize
}

// DecodeBlock decodes the header at off. It checks only that the header and
// the declared payload fit inside b; chain consistency is the caller's job.
func DecodeBlock(b []byte, off int) (Block, error) {
	hdr, ok := buf.Slice(b, off, HeaderSize)
	if !ok {
		return Block{}, fmt.Errorf("block at 0x%X: %w", off, ErrTruncated)
	}
	if !IsAligned(off) {
		return Block{}, fmt.Errorf("block at 0x%X: %w", off, ErrMisaligned)
	}
	sf := ReadU32(hdr, SizeFlagsOffset)
	size := int(sf &^ FlagMask)
	if !IsAligned(size) {
		return Block{}, fmt.Errorf("block at 0x%X size %d: %w", off, size, ErrMisaligned)
	}
	if end, ok := buf.AddOverflowSafe(off+HeaderSize, size); !ok || end > len(b) {
		return Block{}, fmt.Errorf("block at 0x%X size %d: %w", off, size, ErrOverrun)
	}
	return Block{
		Offset:   off,
		PrevPhys: ReadU32(hdr, PrevPhysOffset),
		Size:     size,
		Free:     sf&FlagFree != 0,
		PrevFree: sf&FlagPrevFree != 0,
	}, nil
}

// EncodeBlock writes blk's header into b at blk.Offset.
func EncodeBlock(b []byte, blk Block) {
	sf := uint32(blk.Size)
	if blk.Free {
		sf |= FlagFree
	}
	if blk.PrevFree {
		sf |= FlagPrevFree
	}
	PutU32(b, blk.Offset+PrevPhysOffset, blk.PrevPhys)
	PutU32(b, blk.Offset+SizeFlagsOffset, sf)
}
