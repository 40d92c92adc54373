// Package format houses the in-band block layout shared by the allocator
// engine and its validators. Every pool is a run of block headers and
// payloads terminated by a zero-size sentinel header:
//
//	+--------+---------+--------+---------+-- ... --+----------+
//	| hdr 0  | payload | hdr 1  | payload |         | sentinel |
//	+--------+---------+--------+---------+-- ... --+----------+
//
// The helpers here are allocation-free and keep no state so higher-level
// packages can decode a pool without going through the engine.
package format

const (
	// WordSize is the natural alignment of every header and payload.
	WordSize = 8

	// AlignMask masks the low bits that must be zero in aligned values.
	AlignMask = WordSize - 1

	// HeaderSize is the size of the header preceding every block payload.
	//
	// Layout (little-endian):
	//
	//	Offset  Size  Description
	//	0x00    4     Offset of the previous physical header (NoPrev for the first block)
	//	0x04    4     Payload size, low bits carry FlagFree and FlagPrevFree
	HeaderSize = 8

	// PrevPhysOffset is the header field holding the previous block offset.
	PrevPhysOffset = 0x00

	// SizeFlagsOffset is the header field holding size and flag bits.
	SizeFlagsOffset = 0x04

	// NextFreeOffset is where a free block stores its next free-list link.
	// It lives in the first payload word, so it only exists while the block is free.
	NextFreeOffset = HeaderSize

	// PrevFreeOffset is where a free block stores its previous free-list link.
	PrevFreeOffset = HeaderSize + 8

	// MinBlockSize is the smallest payload a block may carry. It has to hold
	// both free-list links once the block is released.
	MinBlockSize = 16

	// PoolOverhead is the bookkeeping carved from every pool: the first
	// block header plus the terminating sentinel.
	PoolOverhead = 2 * HeaderSize

	// MinPoolSize is the smallest aligned region that can host a pool.
	MinPoolSize = PoolOverhead + MinBlockSize

	// MaxPoolSize is the largest aligned region a pool may span. Header
	// offsets are 32-bit.
	MaxPoolSize = (1<<32 - 1) &^ AlignMask

	// NoPrev marks the first block of a pool.
	NoPrev = 0xFFFFFFFF
)

const (
	// FlagFree is set while the block sits on a free list.
	FlagFree = 1 << 0

	// FlagPrevFree mirrors FlagFree of the previous physical block.
	FlagPrevFree = 1 << 1

	// FlagMask covers every flag bit stored alongside the size.
	FlagMask = FlagFree | FlagPrevFree
)
