package tlsf

import (
	"cmp"
	"fmt"
	"slices"
	"unsafe"

	"github.com/joshuapare/memkit/internal/buf"
	"github.com/joshuapare/memkit/internal/format"
)

// Pool is a handle for one contiguous region owned by an Allocator.
type Pool struct {
	slot int    // index in Allocator.slots, stable while registered
	mem  []byte // aligned, trimmed view of the caller region
	base uintptr
	raw  int // caller region length before alignment
}

// Base returns the address of the first header in the pool.
func (p *Pool) Base() unsafe.Pointer { return unsafe.Pointer(&p.mem[0]) }

// Len returns the aligned pool length managed by the allocator.
func (p *Pool) Len() int { return len(p.mem) }

// RegionLen returns the length of the region the pool was created from,
// including any alignment slack the allocator could not use.
func (p *Pool) RegionLen() int { return p.raw }

// Contains reports whether ptr points inside the pool.
func (p *Pool) Contains(ptr unsafe.Pointer) bool {
	return buf.Contains(p.base, len(p.mem), uintptr(ptr))
}

func (p *Pool) String() string {
	return fmt.Sprintf("pool#%d[0x%X+%d]", p.slot, p.base, len(p.mem))
}

// Header accessors. off is always a header offset inside p.mem.

func (p *Pool) sizeFlags(off uint32) uint32 {
	return format.ReadU32(p.mem, int(off)+format.SizeFlagsOffset)
}

func (p *Pool) size(off uint32) uint32 { return p.sizeFlags(off) &^ format.FlagMask }

func (p *Pool) isFree(off uint32) bool { return p.sizeFlags(off)&format.FlagFree != 0 }

func (p *Pool) isPrevFree(off uint32) bool { return p.sizeFlags(off)&format.FlagPrevFree != 0 }

func (p *Pool) setSize(off, size uint32) {
	sf := p.sizeFlags(off)
	format.PutU32(p.mem, int(off)+format.SizeFlagsOffset, sf&format.FlagMask|size)
}

func (p *Pool) setFlag(off, flag uint32, on bool) {
	sf := p.sizeFlags(off)
	if on {
		sf |= flag
	} else {
		sf &^= flag
	}
	format.PutU32(p.mem, int(off)+format.SizeFlagsOffset, sf)
}

func (p *Pool) setFree(off uint32, on bool) { p.setFlag(off, format.FlagFree, on) }

func (p *Pool) setPrevFree(off uint32, on bool) { p.setFlag(off, format.FlagPrevFree, on) }

func (p *Pool) prevPhys(off uint32) uint32 {
	return format.ReadU32(p.mem, int(off)+format.PrevPhysOffset)
}

func (p *Pool) setPrevPhys(off, prev uint32) {
	format.PutU32(p.mem, int(off)+format.PrevPhysOffset, prev)
}

// writeHeader overwrites the whole header at off.
func (p *Pool) writeHeader(off, prev, size uint32, free, prevFree bool) {
	format.EncodeBlock(p.mem, format.Block{
		Offset:   int(off),
		PrevPhys: prev,
		Size:     int(size),
		Free:     free,
		PrevFree: prevFree,
	})
}

// next returns the offset of the physical successor of the block at off.
func (p *Pool) next(off uint32) uint32 { return off + format.HeaderSize + p.size(off) }

func (p *Pool) sentinel() uint32 { return uint32(len(p.mem) - format.HeaderSize) }

func (p *Pool) freeNext(off uint32) blockRef {
	return blockRef(format.ReadU64(p.mem, int(off)+format.NextFreeOffset))
}

func (p *Pool) freePrev(off uint32) blockRef {
	return blockRef(format.ReadU64(p.mem, int(off)+format.PrevFreeOffset))
}

func (p *Pool) setFreeNext(off uint32, r blockRef) {
	format.PutU64(p.mem, int(off)+format.NextFreeOffset, uint64(r))
}

func (p *Pool) setFreePrev(off uint32, r blockRef) {
	format.PutU64(p.mem, int(off)+format.PrevFreeOffset, uint64(r))
}

func (p *Pool) payload(off uint32) unsafe.Pointer {
	return unsafe.Pointer(&p.mem[off+format.HeaderSize])
}

// AddPool extends the heap with region. The region must not overlap a
// registered pool and must stay reachable until the pool is removed.
func (a *Allocator) AddPool(region []byte) (*Pool, error) {
	p, err := newPool(region)
	if err != nil {
		return nil, err
	}
	for _, q := range a.byBase {
		if buf.Overlaps(q.base, len(q.mem), p.base, len(p.mem)) {
			return nil, fmt.Errorf("%w: region 0x%X+%d overlaps %v", ErrInvalidRegion, p.base, len(p.mem), q)
		}
	}

	if n := len(a.freeSlots); n > 0 {
		p.slot = a.freeSlots[n-1]
		a.freeSlots = a.freeSlots[:n-1]
		a.slots[p.slot] = p
	} else {
		p.slot = len(a.slots)
		a.slots = append(a.slots, p)
	}
	i, _ := slices.BinarySearchFunc(a.byBase, p.base, cmpBase)
	a.byBase = slices.Insert(a.byBase, i, p)

	// One free block spanning the pool, followed by the used sentinel.
	size := uint32(len(p.mem) - format.PoolOverhead)
	p.writeHeader(0, format.NoPrev, size, true, false)
	p.writeHeader(p.sentinel(), 0, 0, false, true)
	a.insertFree(p, 0)
	return p, nil
}

func newPool(region []byte) (*Pool, error) {
	if len(region) == 0 {
		return nil, fmt.Errorf("%w: empty region", ErrInvalidRegion)
	}
	pad := format.AlignPad(uintptr(unsafe.Pointer(&region[0])))
	if len(region) <= pad {
		return nil, fmt.Errorf("%w: %d bytes cannot be aligned", ErrInvalidRegion, len(region))
	}
	mem := region[pad:]
	mem = mem[:format.AlignDown8(len(mem))]
	if len(mem) < format.MinPoolSize {
		return nil, fmt.Errorf("%w: %d usable bytes, need at least %d", ErrInvalidRegion, len(mem), format.MinPoolSize)
	}
	if uint64(len(mem)) > format.MaxPoolSize {
		return nil, fmt.Errorf("%w: %d bytes exceeds pool limit %d", ErrInvalidRegion, len(mem), uint64(format.MaxPoolSize))
	}
	return &Pool{
		slot: -1,
		mem:  mem,
		base: uintptr(unsafe.Pointer(&mem[0])),
		raw:  len(region),
	}, nil
}

// RemovePool detaches p from the heap. The caller must guarantee that no
// allocation inside p is still live; with Options.StrictRemove a pool that
// holds used blocks is refused with ErrPoolInUse and left untouched.
func (a *Allocator) RemovePool(p *Pool) error {
	if !a.owns(p) {
		return ErrUnknownPool
	}
	if a.opts.StrictRemove {
		used := 0
		a.Walk(p, func(_ unsafe.Pointer, _ int, isUsed bool) {
			if isUsed {
				used++
			}
		})
		if used > 0 {
			return fmt.Errorf("%w: %v holds %d used blocks", ErrPoolInUse, p, used)
		}
	}

	for off := uint32(0); off < p.sentinel(); {
		next := p.next(off)
		if next <= off || next > p.sentinel() {
			break
		}
		if p.isFree(off) {
			a.removeFree(p, off)
		}
		off = next
	}

	a.slots[p.slot] = nil
	a.freeSlots = append(a.freeSlots, p.slot)
	a.byBase = slices.DeleteFunc(a.byBase, func(q *Pool) bool { return q == p })
	p.slot = -1
	return nil
}

// Pools returns the registered pools ordered by base address.
func (a *Allocator) Pools() []*Pool {
	return slices.Clone(a.byBase)
}

func cmpBase(q *Pool, addr uintptr) int { return cmp.Compare(q.base, addr) }

func (a *Allocator) owns(p *Pool) bool {
	return p != nil && p.slot >= 0 && p.slot < len(a.slots) && a.slots[p.slot] == p
}

// PoolOf returns the pool containing ptr, or nil.
// O(log P) via binary search on pool base addresses.
func (a *Allocator) PoolOf(ptr unsafe.Pointer) *Pool {
	addr := uintptr(ptr)
	i, found := slices.BinarySearchFunc(a.byBase, addr, cmpBase)
	if !found {
		i--
	}
	if i < 0 {
		return nil
	}
	if q := a.byBase[i]; q.Contains(ptr) {
		return q
	}
	return nil
}

// Visitor is called once per block by Walk.
type Visitor func(ptr unsafe.Pointer, size int, used bool)

// Walk visits every block of p in physical order. The sentinel is not
// reported. Walk stops early at a header whose size would move the cursor
// backwards or outside the pool; CheckPool reports such damage.
func (a *Allocator) Walk(p *Pool, visit Visitor) {
	if !a.owns(p) {
		return
	}
	end := p.sentinel()
	for off := uint32(0); off < end; {
		next := p.next(off)
		if next <= off || next > end {
			return
		}
		visit(p.payload(off), int(p.size(off)), !p.isFree(off))
		off = next
	}
}
