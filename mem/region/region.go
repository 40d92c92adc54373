// Package region acquires the raw byte regions that back heap pools.
//
// A Region owns its memory: Go-allocated for Static, an anonymous mapping
// for Mapped, a private file mapping for FromFile. Pools built over a
// region must be removed from their heap before the region is closed.
package region

import (
	"fmt"
	"strings"
	"unsafe"

	"github.com/joshuapare/memkit/internal/format"
	"github.com/joshuapare/memkit/internal/mmfile"
)

// Source selects where region memory comes from.
type Source int

const (
	// Static regions are word-aligned Go heap memory.
	Static Source = iota
	// Mapped regions are anonymous private mappings outside the Go heap.
	// Platforms without mmap fall back to Static.
	Mapped
)

func (s Source) String() string {
	switch s {
	case Static:
		return "static"
	case Mapped:
		return "mapped"
	default:
		return fmt.Sprintf("Source(%d)", int(s))
	}
}

// ParseSource accepts the names printed by Source.String.
func ParseSource(name string) (Source, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "static", "":
		return Static, nil
	case "mapped", "mmap":
		return Mapped, nil
	}
	return 0, fmt.Errorf("region: unknown source %q", name)
}

// Region is a contiguous byte range usable as a pool.
type Region struct {
	data    []byte
	source  Source
	release func() error
}

// New acquires size bytes from src.
func New(src Source, size int) (*Region, error) {
	if size <= 0 {
		return nil, fmt.Errorf("region: invalid size %d", size)
	}
	switch src {
	case Static:
		return &Region{data: words(size), source: Static}, nil
	case Mapped:
		data, release, err := mmfile.Anonymous(size)
		if err != nil {
			return nil, err
		}
		return &Region{data: data, source: Mapped, release: release}, nil
	default:
		return nil, fmt.Errorf("region: unknown source %v", src)
	}
}

// FromFile maps the file at path copy-on-write. Writes by the heap stay in
// memory; the file is never modified.
func FromFile(path string) (*Region, error) {
	data, release, err := mmfile.Map(path)
	if err != nil {
		return nil, fmt.Errorf("region: map %s: %w", path, err)
	}
	return &Region{data: data, source: Mapped, release: release}, nil
}

// Wrap adopts caller-owned memory. Close only forgets it.
func Wrap(b []byte) *Region {
	return &Region{data: b, source: Static}
}

// Bytes returns the region memory, or nil once closed.
func (r *Region) Bytes() []byte { return r.data }

// Len returns the region length in bytes.
func (r *Region) Len() int { return len(r.data) }

// Source reports where the memory came from.
func (r *Region) Source() Source { return r.source }

// Aligned reports whether the region starts on a word boundary.
func (r *Region) Aligned() bool {
	return len(r.data) > 0 && format.AlignPad(uintptr(unsafe.Pointer(&r.data[0]))) == 0
}

// Close releases the region. Closing twice is a no-op.
func (r *Region) Close() error {
	if r.data == nil {
		return nil
	}
	r.data = nil
	if r.release == nil {
		return nil
	}
	release := r.release
	r.release = nil
	return release()
}

func words(size int) []byte {
	w := make([]uint64, format.Align8(size)/format.WordSize)
	return unsafe.Slice((*byte)(unsafe.Pointer(&w[0])), size)
}
