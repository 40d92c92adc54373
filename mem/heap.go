package mem

import (
	"fmt"
	"log/slog"
	"unsafe"

	"github.com/joshuapare/memkit/mem/monitor"
	"github.com/joshuapare/memkit/mem/region"
	"github.com/joshuapare/memkit/mem/registry"
	"github.com/joshuapare/memkit/mem/tlsf"
	"github.com/joshuapare/memkit/mem/verify"
)

const (
	junkAlloc = 0xAA
	junkFree  = 0xBB
)

// Heap is a dynamic-memory context over one or more pools.
type Heap struct {
	cfg   Config
	log   *slog.Logger
	owned *region.Region // primary region acquired by New, if any
	mem   []byte         // primary region

	eng   *tlsf.Allocator
	pools registry.Registry[*tlsf.Pool]

	used    int
	maxUsed int
}

// New creates a heap and initializes it with its primary pool.
func New(cfg Config) (*Heap, error) {
	cfg = cfg.withDefaults()
	h := &Heap{cfg: cfg, log: cfg.Logger, mem: cfg.Region}

	if h.mem == nil {
		r, err := region.New(cfg.Source, cfg.Size)
		if err != nil {
			return nil, fmt.Errorf("mem: acquire primary region: %w", err)
		}
		h.owned, h.mem = r, r.Bytes()
	}
	if err := h.Init(); err != nil {
		if h.owned != nil {
			_ = h.owned.Close()
		}
		return nil, err
	}
	if cfg.Junk {
		h.log.Warn("junk fill is enabled, allocation is slower")
	}
	return h, nil
}

// Init builds a fresh engine over the primary region, forgets every added
// pool and zeroes the watermarks. Every outstanding pointer is invalidated.
func (h *Heap) Init() error {
	if h.mem == nil {
		return ErrClosed
	}
	eng, err := tlsf.New(h.mem, tlsf.Options{StrictRemove: h.cfg.StrictRemove})
	if err != nil {
		h.log.Warn("invalid primary region", "size", len(h.mem), "error", err)
		return err
	}
	h.eng = eng
	h.pools.Clear()
	if err := h.pools.Insert(eng.Pools()[0]); err != nil {
		return err
	}
	h.used, h.maxUsed = 0, 0
	h.log.Debug("heap initialized", "pool", h.primary(), "free", h.primary().Len())
	return nil
}

// Deinit discards all pools and re-initializes with the primary one.
func (h *Heap) Deinit() error {
	if h.eng == nil {
		return ErrClosed
	}
	h.log.Debug("heap reset", "pools", h.pools.Len())
	return h.Init()
}

// Close releases the primary region when the heap acquired it. Regions
// handed to AddPool remain owned by the caller.
func (h *Heap) Close() error {
	h.eng = nil
	h.pools.Clear()
	h.mem = nil
	if h.owned == nil {
		return nil
	}
	err := h.owned.Close()
	h.owned = nil
	return err
}

func (h *Heap) primary() *tlsf.Pool {
	p, _ := h.pools.Primary()
	return p
}

// Alloc returns a word-aligned block of at least size bytes. On success
// the current-used counter grows by size.
func (h *Heap) Alloc(size int) (unsafe.Pointer, error) {
	if h.eng == nil {
		return nil, ErrClosed
	}
	ptr, err := h.eng.Alloc(size)
	if err != nil {
		h.trace("alloc failed", "size", size, "error", err)
		return nil, err
	}
	h.used += size
	h.maxUsed = max(h.maxUsed, h.used)
	if h.cfg.Junk {
		fill(ptr, size, junkAlloc)
	}
	h.trace("alloc", "size", size, "ptr", ptr, "used", h.used)
	return ptr, nil
}

// Realloc resizes the block at ptr. A nil ptr allocates and size 0 frees.
//
// Realloc does not update the current-used counter or the watermark, so
// both drift from the true usage once callers resize. Monitor walks the
// real blocks and stays exact.
func (h *Heap) Realloc(ptr unsafe.Pointer, size int) (unsafe.Pointer, error) {
	if h.eng == nil {
		return nil, ErrClosed
	}
	out, err := h.eng.Realloc(ptr, size)
	if err != nil {
		h.trace("realloc failed", "ptr", ptr, "size", size, "error", err)
		return nil, err
	}
	h.trace("realloc", "ptr", ptr, "size", size, "new", out)
	return out, nil
}

// Free releases ptr. The current-used counter drops by the block payload
// size and never goes below zero. Free(nil) is a no-op.
func (h *Heap) Free(ptr unsafe.Pointer) error {
	if ptr == nil {
		return nil
	}
	if h.eng == nil {
		return ErrClosed
	}
	if h.cfg.Junk {
		fill(ptr, h.eng.BlockSize(ptr), junkFree)
	}
	size, err := h.eng.Free(ptr)
	if err != nil {
		h.log.Warn("free failed", "ptr", ptr, "error", err)
		return err
	}
	h.used = max(h.used-size, 0)
	h.trace("free", "ptr", ptr, "size", size, "used", h.used)
	return nil
}

// Bytes returns the payload of the live block at ptr as a slice, or nil.
func (h *Heap) Bytes(ptr unsafe.Pointer) []byte {
	if h.eng == nil {
		return nil
	}
	n := h.eng.BlockSize(ptr)
	if n == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(ptr), n)
}

// AddPool extends the heap with caller-owned memory. The region must stay
// reachable and untouched until the pool is removed or the heap reset.
func (h *Heap) AddPool(mem []byte) (*tlsf.Pool, error) {
	if h.eng == nil {
		return nil, ErrClosed
	}
	p, err := h.eng.AddPool(mem)
	if err != nil {
		h.log.Warn("failed to add memory pool", "size", len(mem), "error", err)
		return nil, err
	}
	if err := h.register(p); err != nil {
		return nil, err
	}
	h.log.Debug("pool added", "pool", p, "pools", h.pools.Len())
	return p, nil
}

// register records a pool the engine just accepted. On failure the engine
// drops the pool again so both sides list the same pools.
func (h *Heap) register(p *tlsf.Pool) error {
	if err := h.pools.Insert(p); err != nil {
		_ = h.eng.RemovePool(p)
		return err
	}
	return nil
}

// RemovePool detaches p. Unknown handles are logged and reported with
// ErrUnknownPool; nothing changes. The caller must have freed every block
// inside p unless the heap was configured with StrictRemove.
func (h *Heap) RemovePool(p *tlsf.Pool) error {
	if h.eng == nil {
		return ErrClosed
	}
	if !h.pools.Contains(p) {
		h.log.Warn("invalid pool", "pool", p)
		return fmt.Errorf("%w: %v", ErrUnknownPool, p)
	}
	if p == h.primary() {
		return ErrPrimaryPool
	}
	if err := h.eng.RemovePool(p); err != nil {
		h.log.Warn("failed to remove memory pool", "pool", p, "error", err)
		return err
	}
	h.pools.Remove(p)
	h.log.Debug("pool removed", "pool", p, "pools", h.pools.Len())
	return nil
}

// PoolOf returns the pool holding ptr, or nil.
func (h *Heap) PoolOf(ptr unsafe.Pointer) *tlsf.Pool {
	if h.eng == nil {
		return nil
	}
	return h.eng.PoolOf(ptr)
}

// Pools returns the registered pools, primary first, in insertion order.
func (h *Heap) Pools() []*tlsf.Pool { return h.pools.Items() }

// Monitor walks every pool and reports usage.
func (h *Heap) Monitor() monitor.Snapshot {
	if h.eng == nil {
		return monitor.Snapshot{}
	}
	s := monitor.Collect(h.eng, &h.pools)
	s.MaxUsed = h.maxUsed
	return s
}

// Check validates the engine and every pool. Failures are logged.
func (h *Heap) Check() error {
	if h.eng == nil {
		return ErrClosed
	}
	if err := verify.All(h.eng, &h.pools); err != nil {
		h.log.Warn("heap check failed", "error", err)
		return err
	}
	h.trace("heap check passed")
	return nil
}

// Used is the current-used counter.
func (h *Heap) Used() int { return h.used }

// MaxUsed is the highest value Used has reached since Init.
func (h *Heap) MaxUsed() int { return h.maxUsed }

// Stats returns the engine counters.
func (h *Heap) Stats() tlsf.Stats {
	if h.eng == nil {
		return tlsf.Stats{}
	}
	return h.eng.Stats()
}

func (h *Heap) trace(msg string, args ...any) {
	if h.cfg.Trace {
		h.log.Debug(msg, args...)
	}
}

func fill(ptr unsafe.Pointer, n int, b byte) {
	if ptr == nil || n <= 0 {
		return
	}
	s := unsafe.Slice((*byte)(ptr), n)
	for i := range s {
		s[i] = b
	}
}
