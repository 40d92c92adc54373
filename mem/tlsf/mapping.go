package tlsf

import (
	"math/bits"

	"github.com/joshuapare/memkit/internal/format"
)

const (
	alignLog2 = 3 // log2(format.WordSize)

	// slLog2 is the number of second-level classes per first-level range, log2.
	slLog2  = 5
	slCount = 1 << slLog2

	// Sizes below smallBlockSize all map to first level 0 in linear steps
	// of format.WordSize.
	flShift        = slLog2 + alignLog2
	smallBlockSize = 1 << flShift

	// flMax covers every payload a 32-bit pool can hold.
	flMax   = 32
	flCount = flMax - flShift + 1
)

// MaxAllocSize is the largest request the allocator accepts. Rounding a
// request up to its class boundary must stay inside 32 bits, and the value
// fits a 32-bit int.
const MaxAllocSize = 1<<31 - format.WordSize

// mapInsert returns the class a free block of size belongs to.
func mapInsert(size uint32) (fl, sl int) {
	if size < smallBlockSize {
		return 0, int(size) / (smallBlockSize / slCount)
	}
	f := bits.Len32(size) - 1
	sl = int(size>>(f-slLog2)) ^ slCount
	fl = f - (flShift - 1)
	return fl, sl
}

// mapSearch returns the first class whose every block is at least size
// bytes.
func mapSearch(size uint32) (fl, sl int) {
	if size >= smallBlockSize {
		round := uint32(1)<<(bits.Len32(size)-1-slLog2) - 1
		size += round
	}
	return mapInsert(size)
}

// adjustRequest converts a caller size into a payload size: word aligned
// and at least format.MinBlockSize. Zero-byte requests get the minimum block.
func adjustRequest(size int) (uint32, bool) {
	if size < 0 || size > MaxAllocSize {
		return 0, false
	}
	n := format.Align8(size)
	if n < format.MinBlockSize {
		n = format.MinBlockSize
	}
	return uint32(n), true
}

// findSuitable returns the first non-empty class at or above (fl, sl).
func (a *Allocator) findSuitable(fl, sl int) (int, int, bool) {
	if fl >= flCount {
		return 0, 0, false
	}
	slMap := a.slBitmap[fl] & (^uint32(0) << uint(sl))
	if slMap == 0 {
		flMap := a.flBitmap & (^uint32(0) << uint(fl+1))
		if flMap == 0 {
			return 0, 0, false
		}
		fl = bits.TrailingZeros32(flMap)
		slMap = a.slBitmap[fl]
	}
	return fl, bits.TrailingZeros32(slMap), true
}
