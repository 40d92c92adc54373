package tlsf

import (
	"github.com/joshuapare/memkit/internal/format"
)

// Check validates the free-list index: bitmap bits agree with list
// emptiness, every listed block is free and filed under the class its size
// maps to, and back links mirror forward links. It does not mutate the heap.
func (a *Allocator) Check() error {
	// Upper bound on list length; a longer walk means a cycle.
	budget := 0
	for _, p := range a.byBase {
		budget += len(p.mem) / (format.HeaderSize + format.MinBlockSize)
	}

	for fl := 0; fl < flCount; fl++ {
		flSet := a.flBitmap&(1<<uint(fl)) != 0
		if flSet != (a.slBitmap[fl] != 0) {
			return corruptf(-1, -1, "first-level bit %d is %v but second-level map is 0x%X", fl, flSet, a.slBitmap[fl])
		}
		for sl := 0; sl < slCount; sl++ {
			head := a.heads[fl][sl]
			slSet := a.slBitmap[fl]&(1<<uint(sl)) != 0
			if slSet != (head != 0) {
				return corruptf(-1, -1, "second-level bit %d/%d is %v but list head is %#x", fl, sl, slSet, uint64(head))
			}
			if err := a.checkList(fl, sl, budget); err != nil {
				return err
			}
		}
	}
	return nil
}

func (a *Allocator) checkList(fl, sl, budget int) error {
	var prev blockRef
	for r := a.heads[fl][sl]; r != 0; r = a.refNext(r) {
		if budget--; budget < 0 {
			return corruptf(-1, -1, "free list %d/%d does not terminate", fl, sl)
		}
		slot := r.slot()
		if slot < 0 || slot >= len(a.slots) || a.slots[slot] == nil {
			return corruptf(-1, -1, "free list %d/%d links to unknown pool slot %d", fl, sl, slot)
		}
		p, off := a.deref(r)
		if int(off)+format.HeaderSize+format.MinBlockSize > int(p.sentinel()) || !format.IsAligned(int(off)) {
			return corruptf(slot, int(off), "free list %d/%d links outside the pool", fl, sl)
		}
		if !p.isFree(off) {
			return corruptf(slot, int(off), "block on free list %d/%d is not marked free", fl, sl)
		}
		if next := p.next(off); next <= off || next > p.sentinel() {
			return corruptf(slot, int(off), "free block of %d bytes overruns the pool", p.size(off))
		}
		if !p.isPrevFree(p.next(off)) {
			return corruptf(slot, int(off), "successor of free block lacks prev-free flag")
		}
		if f, s := mapInsert(p.size(off)); f != fl || s != sl {
			return corruptf(slot, int(off), "block of %d bytes filed under %d/%d, belongs in %d/%d", p.size(off), fl, sl, f, s)
		}
		if p.freePrev(off) != prev {
			return corruptf(slot, int(off), "free list back link %#x, want %#x", uint64(p.freePrev(off)), uint64(prev))
		}
		prev = r
	}
	return nil
}

func (a *Allocator) refNext(r blockRef) blockRef {
	p, off := a.deref(r)
	return p.freeNext(off)
}

// CheckPool walks p in physical order verifying that headers stay inside
// the pool, previous-physical links and prev-free flags match the chain, no
// two free blocks are adjacent, and the sentinel terminates the pool
// exactly.
func (a *Allocator) CheckPool(p *Pool) error {
	if !a.owns(p) {
		return ErrUnknownPool
	}
	end := int(p.sentinel())
	prev := uint32(format.NoPrev)
	prevFree := false

	off := 0
	for {
		blk, err := format.DecodeBlock(p.mem, off)
		if err != nil {
			return corruptf(p.slot, off, "%v", err)
		}
		if blk.PrevPhys != prev {
			return corruptf(p.slot, off, "previous-physical link 0x%X, want 0x%X", blk.PrevPhys, prev)
		}
		if blk.PrevFree != prevFree {
			return corruptf(p.slot, off, "prev-free flag %v disagrees with previous block", blk.PrevFree)
		}
		if blk.IsSentinel(len(p.mem)) {
			if blk.Size != 0 || blk.Free {
				return corruptf(p.slot, off, "sentinel damaged: size %d free %v", blk.Size, blk.Free)
			}
			return nil
		}
		if blk.Free && prevFree {
			return corruptf(p.slot, off, "adjacent free blocks left unmerged")
		}
		if blk.Size < format.MinBlockSize {
			return corruptf(p.slot, off, "block size %d below minimum %d", blk.Size, format.MinBlockSize)
		}
		if blk.NextOffset() > end {
			return corruptf(p.slot, off, "block of %d bytes runs into the sentinel", blk.Size)
		}
		prev, prevFree = uint32(off), blk.Free
		off = blk.NextOffset()
	}
}
