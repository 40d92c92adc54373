package tlsf

import (
	"fmt"
	"unsafe"

	"github.com/joshuapare/memkit/internal/format"
)

// blockRef names a free block across pools: (slot+1)<<32 | header offset.
// The zero value is the nil link.
type blockRef uint64

func makeRef(p *Pool, off uint32) blockRef {
	return blockRef(uint64(p.slot+1)<<32 | uint64(off))
}

func (r blockRef) slot() int      { return int(r>>32) - 1 }
func (r blockRef) offset() uint32 { return uint32(r) }

// Options tunes allocator behaviour.
type Options struct {
	// StrictRemove makes RemovePool scan the pool and refuse removal while
	// any used block remains.
	StrictRemove bool
}

// Allocator is a TLSF heap spanning one or more pools.
type Allocator struct {
	opts Options

	// Two-level bitmap index over the segregated free lists. Bit fl of
	// flBitmap is set iff slBitmap[fl] != 0; bit sl of slBitmap[fl] is set
	// iff heads[fl][sl] is non-nil.
	flBitmap uint32
	slBitmap [flCount]uint32
	heads    [flCount][slCount]blockRef

	slots     []*Pool // slot -> pool, nil once removed
	freeSlots []int
	byBase    []*Pool // sorted by base address for PoolOf

	stats Stats
}

// New creates an allocator with one pool over region.
func New(region []byte, opts Options) (*Allocator, error) {
	a := &Allocator{opts: opts}
	if _, err := a.AddPool(region); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *Allocator) deref(r blockRef) (*Pool, uint32) {
	return a.slots[r.slot()], r.offset()
}

// insertFree pushes the free block at off onto the head of its class list.
func (a *Allocator) insertFree(p *Pool, off uint32) {
	fl, sl := mapInsert(p.size(off))
	ref := makeRef(p, off)
	head := a.heads[fl][sl]

	p.setFreeNext(off, head)
	p.setFreePrev(off, 0)
	if head != 0 {
		hp, hoff := a.deref(head)
		hp.setFreePrev(hoff, ref)
	}
	a.heads[fl][sl] = ref
	a.flBitmap |= 1 << uint(fl)
	a.slBitmap[fl] |= 1 << uint(sl)
}

// removeFree unlinks the free block at off from its class list.
func (a *Allocator) removeFree(p *Pool, off uint32) {
	fl, sl := mapInsert(p.size(off))
	prev, next := p.freePrev(off), p.freeNext(off)

	if next != 0 {
		np, noff := a.deref(next)
		np.setFreePrev(noff, prev)
	}
	if prev != 0 {
		pp, poff := a.deref(prev)
		pp.setFreeNext(poff, next)
		return
	}
	a.heads[fl][sl] = next
	if next == 0 {
		a.slBitmap[fl] &^= 1 << uint(sl)
		if a.slBitmap[fl] == 0 {
			a.flBitmap &^= 1 << uint(fl)
		}
	}
}

// Alloc returns a word-aligned pointer to at least size bytes.
// ErrOutOfMemory is an expected outcome, never a fatal one.
//
// The search is good-fit: it looks in classes whose every block fits, then
// tries only the head of the request's own class. A fitting block deeper in
// that list is not found, so Alloc can fail while a monitor reports a free
// block at least as large as the request.
func (a *Allocator) Alloc(size int) (unsafe.Pointer, error) {
	a.stats.AllocCalls++
	ptr, err := a.alloc(size)
	if err != nil {
		a.stats.OutOfMemory++
	}
	return ptr, err
}

func (a *Allocator) alloc(size int) (unsafe.Pointer, error) {
	need, ok := adjustRequest(size)
	if !ok {
		return nil, fmt.Errorf("%w: request of %d bytes", ErrOutOfMemory, size)
	}
	fl, sl := mapSearch(need)
	fl, sl, ok = a.findSuitable(fl, sl)
	if !ok {
		// The rounded search skips the request's own class; its head may
		// still be large enough.
		fl, sl = mapInsert(need)
		if !a.headFits(fl, sl, need) {
			return nil, fmt.Errorf("%w: no free block for %d bytes", ErrOutOfMemory, size)
		}
	}

	p, off := a.deref(a.heads[fl][sl])
	a.removeFree(p, off)
	p.setFree(off, false)
	p.setPrevFree(p.next(off), false)
	a.trimUsed(p, off, need)
	return p.payload(off), nil
}

func (a *Allocator) headFits(fl, sl int, need uint32) bool {
	head := a.heads[fl][sl]
	if head == 0 {
		return false
	}
	p, off := a.deref(head)
	return p.size(off) >= need
}

// trimUsed shrinks the used block at off to size when the tail can host a
// header plus a minimum block. The tail is freed and merged with a free
// successor.
func (a *Allocator) trimUsed(p *Pool, off, size uint32) {
	cur := p.size(off)
	if cur < size+format.HeaderSize+format.MinBlockSize {
		return
	}
	a.stats.Splits++

	next := p.next(off)
	rem := cur - size - format.HeaderSize
	tail := off + format.HeaderSize + size
	p.setSize(off, size)
	p.writeHeader(tail, off, rem, true, false)
	p.setPrevPhys(next, tail)
	p.setPrevFree(next, true)

	if p.isFree(next) {
		a.stats.MergeForward++
		a.removeFree(p, next)
		after := p.next(next)
		p.setSize(tail, rem+format.HeaderSize+p.size(next))
		p.setPrevPhys(after, tail)
	}
	a.insertFree(p, tail)
}

// locate maps ptr to its pool and header offset.
func (a *Allocator) locate(ptr unsafe.Pointer) (*Pool, uint32, error) {
	p := a.PoolOf(ptr)
	if p == nil {
		return nil, 0, fmt.Errorf("%w: %p", ErrBadPointer, ptr)
	}
	rel := int(uintptr(ptr) - p.base)
	off := rel - format.HeaderSize
	if off < 0 || !format.IsAligned(rel) || off >= int(p.sentinel()) {
		return nil, 0, corruptf(p.slot, off, "pointer %p is not a block payload", ptr)
	}
	return p, uint32(off), nil
}

// Free releases ptr and returns the payload size of the released block.
// Free(nil) is a no-op.
func (a *Allocator) Free(ptr unsafe.Pointer) (int, error) {
	if ptr == nil {
		return 0, nil
	}
	a.stats.FreeCalls++
	p, off, err := a.locate(ptr)
	if err != nil {
		return 0, err
	}
	if p.isFree(off) {
		return 0, corruptf(p.slot, int(off), "double free of %p", ptr)
	}
	size := p.size(off)

	p.setFree(off, true)
	next := p.next(off)
	p.setPrevFree(next, true)

	if p.isPrevFree(off) {
		a.stats.MergeBackward++
		prev := p.prevPhys(off)
		a.removeFree(p, prev)
		p.setSize(prev, p.size(prev)+format.HeaderSize+p.size(off))
		p.setPrevPhys(next, prev)
		off = prev
	}
	if p.isFree(next) {
		a.stats.MergeForward++
		a.removeFree(p, next)
		after := p.next(next)
		p.setSize(off, p.size(off)+format.HeaderSize+p.size(next))
		p.setPrevPhys(after, off)
	}
	a.insertFree(p, off)
	return int(size), nil
}

// BlockSize returns the payload size of the live block at ptr, or 0 when
// ptr is nil or not a live block.
func (a *Allocator) BlockSize(ptr unsafe.Pointer) int {
	if ptr == nil {
		return 0
	}
	p, off, err := a.locate(ptr)
	if err != nil || p.isFree(off) {
		return 0
	}
	return int(p.size(off))
}
