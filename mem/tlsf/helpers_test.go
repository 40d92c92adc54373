package tlsf

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/require"

	"github.com/joshuapare/memkit/internal/format"
)

// newRegion returns a word-aligned region of n bytes.
func newRegion(n int) []byte {
	words := make([]uint64, (n+7)/8)
	return unsafe.Slice((*byte)(unsafe.Pointer(&words[0])), n)
}

// newTestAllocator creates an allocator over a fresh aligned region.
func newTestAllocator(t testing.TB, n int, opts Options) *Allocator {
	t.Helper()
	a, err := New(newRegion(n), opts)
	require.NoError(t, err)
	return a
}

type walkedBlock struct {
	ptr  unsafe.Pointer
	size int
	used bool
}

func walkAll(a *Allocator, p *Pool) []walkedBlock {
	var out []walkedBlock
	a.Walk(p, func(ptr unsafe.Pointer, size int, used bool) {
		out = append(out, walkedBlock{ptr, size, used})
	})
	return out
}

// requireConsistent runs every integrity check and verifies that headers
// plus payloads tile each pool exactly.
func requireConsistent(t testing.TB, a *Allocator) {
	t.Helper()
	require.NoError(t, a.Check())
	for _, p := range a.Pools() {
		require.NoError(t, a.CheckPool(p), "pool %v", p)
		total := format.HeaderSize // sentinel
		for _, b := range walkAll(a, p) {
			total += format.HeaderSize + b.size
		}
		require.Equal(t, p.Len(), total, "blocks must tile %v", p)
	}
}

func fill(ptr unsafe.Pointer, n int, v byte) {
	b := unsafe.Slice((*byte)(ptr), n)
	for i := range b {
		b[i] = v
	}
}

func requireFilled(t testing.TB, ptr unsafe.Pointer, n int, v byte) {
	t.Helper()
	b := unsafe.Slice((*byte)(ptr), n)
	for i := range b {
		require.Equal(t, v, b[i], "byte %d", i)
	}
}
