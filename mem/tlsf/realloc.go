package tlsf

import (
	"unsafe"

	"github.com/joshuapare/memkit/internal/format"
)

// Realloc resizes the block at ptr to hold size bytes.
//
// A nil ptr behaves like Alloc; size 0 frees ptr and returns nil. The block
// is resized in place when it shrinks or when a free physical successor
// can absorb the growth; otherwise the data is copied into a new block and
// the old one freed. On failure the original block is left untouched.
func (a *Allocator) Realloc(ptr unsafe.Pointer, size int) (unsafe.Pointer, error) {
	if ptr == nil {
		return a.Alloc(size)
	}
	if size == 0 {
		_, err := a.Free(ptr)
		return nil, err
	}
	a.stats.ReallocCalls++

	p, off, err := a.locate(ptr)
	if err != nil {
		return nil, err
	}
	if p.isFree(off) {
		return nil, corruptf(p.slot, int(off), "realloc of free block %p", ptr)
	}
	need, ok := adjustRequest(size)
	if !ok {
		a.stats.OutOfMemory++
		return nil, ErrOutOfMemory
	}

	cur := p.size(off)
	if need <= cur {
		a.stats.ReallocInPlace++
		a.trimUsed(p, off, need)
		return ptr, nil
	}

	next := p.next(off)
	if p.isFree(next) && cur+format.HeaderSize+p.size(next) >= need {
		a.stats.ReallocInPlace++
		a.stats.MergeForward++
		a.removeFree(p, next)
		after := p.next(next)
		p.setSize(off, cur+format.HeaderSize+p.size(next))
		p.setPrevPhys(after, off)
		p.setPrevFree(after, false)
		a.trimUsed(p, off, need)
		return ptr, nil
	}

	a.stats.AllocCalls++
	moved, err := a.alloc(size)
	if err != nil {
		a.stats.OutOfMemory++
		return nil, err
	}
	a.stats.ReallocMoved++
	copy(unsafe.Slice((*byte)(moved), cur), unsafe.Slice((*byte)(ptr), cur))
	if _, err := a.Free(ptr); err != nil {
		return nil, err
	}
	return moved, nil
}
