// Package monitor computes usage and fragmentation telemetry by walking the
// block chain of every registered pool. It never allocates from, or writes
// to, the heap it inspects.
package monitor

import (
	"fmt"
	"unsafe"

	"github.com/dustin/go-humanize"

	"github.com/joshuapare/memkit/mem/registry"
	"github.com/joshuapare/memkit/mem/tlsf"
)

// Walker visits the blocks of a pool. *tlsf.Allocator satisfies it.
type Walker interface {
	Walk(p *tlsf.Pool, visit tlsf.Visitor)
}

// Snapshot is a point-in-time view of heap usage. Sizes are payload bytes;
// block headers are not counted.
type Snapshot struct {
	TotalSize       int `json:"total_size"`
	UsedCount       int `json:"used_count"`
	FreeCount       int `json:"free_count"`
	FreeSize        int `json:"free_size"`
	FreeBiggestSize int `json:"free_biggest_size"`
	UsedPct         int `json:"used_pct"`
	FragPct         int `json:"frag_pct"`
	MaxUsed         int `json:"max_used"`
}

// Collect walks every pool in registry order and derives the percentages.
// MaxUsed is left zero; the facade that owns the watermark fills it in.
func Collect(w Walker, pools *registry.Registry[*tlsf.Pool]) Snapshot {
	var s Snapshot
	pools.ForEach(func(p *tlsf.Pool) {
		w.Walk(p, s.visit)
	})
	s.derive()
	return s
}

func (s *Snapshot) visit(_ unsafe.Pointer, size int, used bool) {
	s.TotalSize += size
	if used {
		s.UsedCount++
		return
	}
	s.FreeCount++
	s.FreeSize += size
	s.FreeBiggestSize = max(s.FreeBiggestSize, size)
}

func (s *Snapshot) derive() {
	if s.TotalSize > 0 {
		s.UsedPct = 100 - 100*s.FreeSize/s.TotalSize
	}
	if s.FreeSize > 0 {
		s.FragPct = 100 - 100*s.FreeBiggestSize/s.FreeSize
	}
}

// UsedSize is the payload byte count held by live blocks.
func (s Snapshot) UsedSize() int { return s.TotalSize - s.FreeSize }

func (s Snapshot) String() string {
	return fmt.Sprintf("total %s, used %s (%d%%) in %d blocks, free %s in %d blocks, biggest free %s, frag %d%%, max used %s",
		humanize.IBytes(uint64(s.TotalSize)),
		humanize.IBytes(uint64(s.UsedSize())), s.UsedPct, s.UsedCount,
		humanize.IBytes(uint64(s.FreeSize)), s.FreeCount,
		humanize.IBytes(uint64(s.FreeBiggestSize)),
		s.FragPct,
		humanize.IBytes(uint64(s.MaxUsed)),
	)
}
