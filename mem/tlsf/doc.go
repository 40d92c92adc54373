// Package tlsf implements a two-level segregated fit allocator over caller
// supplied memory pools.
//
// # Overview
//
// The allocator carves every pool into a chain of blocks. Each block carries
// an 8-byte header (see internal/format) and a word-aligned payload. Free
// blocks are threaded onto segregated free lists indexed by a two-level
// size class table; two bitmaps locate a non-empty list in constant time,
// so Alloc, Free and Realloc run in time bounded by the number of size
// classes, never by heap occupancy.
//
// # Size Classes
//
// The first level splits sizes into power-of-two ranges, the second level
// splits every range into 32 linear classes:
//
//	fl 0:     0 -   255 bytes, 8-byte steps
//	fl 1:   256 -   511 bytes, 8-byte steps
//	fl 2:   512 -  1023 bytes, 16-byte steps
//	...
//	fl 24:   2 -     4 GiB
//
// Searches round the request up to the next class boundary, so the head of
// any list found is guaranteed to fit. This is good-fit, not best-fit.
//
// # Pools
//
// Pools are never assumed to be contiguous with each other. Every pool ends
// in a zero-size sentinel header marked used, so coalescing never crosses a
// pool boundary:
//
//	a, err := tlsf.New(region, tlsf.Options{})
//	if err != nil {
//	    return err
//	}
//	extra, err := a.AddPool(moreMemory)
//
//	p, err := a.Alloc(128)
//	if errors.Is(err, tlsf.ErrOutOfMemory) {
//	    // expected, recoverable
//	}
//	size, err := a.Free(p)
//
// # Pointers
//
// Alloc returns unsafe.Pointer values into the pool regions. The regions
// must stay reachable (and must not be moved) for as long as the pool is
// registered; the allocator keeps a reference to each region slice.
//
// # Thread Safety
//
// Allocator instances are not thread-safe. Callers must synchronize access
// externally. Visitors passed to Walk must not call back into the allocator.
package tlsf
