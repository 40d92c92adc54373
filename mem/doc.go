// Package mem is the allocation facade of memkit.
//
// A Heap serves every request from one or more caller-visible pools, backed
// by the TLSF engine in mem/tlsf. It tracks a current-used counter and a
// max-used watermark, keeps the pool registry that the monitor and the
// integrity checks iterate, and logs configuration problems through
// log/slog.
//
// Heaps are not safe for concurrent use. Guard a shared Heap with a mutex.
//
// Basic use:
//
//	h, err := mem.New(mem.Config{Size: 64 << 10})
//	if err != nil {
//		return err
//	}
//	defer h.Close()
//
//	p, err := h.Alloc(128)
//	if errors.Is(err, mem.ErrOutOfMemory) {
//		// shed load
//	}
//	defer h.Free(p)
package mem
