package tlsf

import (
	"math/rand"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/require"
)

// Test_Fuzz_RandomAllocFree_GuardInvariants performs a seeded mix of
// alloc, realloc and free across three pools and validates every
// structural invariant after each step.
func Test_Fuzz_RandomAllocFree_GuardInvariants(t *testing.T) {
	a := newTestAllocator(t, 8192, Options{})
	_, err := a.AddPool(newRegion(4096))
	require.NoError(t, err)
	_, err = a.AddPool(newRegion(16384))
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(42)) // Fixed seed for reproducibility
	type live struct {
		ptr  unsafe.Pointer
		size int
		tag  byte
	}
	var allocations []live

	for i := 0; i < 2000; i++ {
		switch op := rng.Intn(4); {
		case op <= 1:
			size := 1 + rng.Intn(700)
			ptr, allocErr := a.Alloc(size)
			if allocErr != nil {
				require.ErrorIs(t, allocErr, ErrOutOfMemory, "step %d", i)
				break
			}
			tag := byte(i)
			fill(ptr, size, tag)
			allocations = append(allocations, live{ptr, size, tag})

		case op == 2 && len(allocations) > 0:
			j := rng.Intn(len(allocations))
			requireFilled(t, allocations[j].ptr, allocations[j].size, allocations[j].tag)
			_, freeErr := a.Free(allocations[j].ptr)
			require.NoError(t, freeErr, "step %d", i)
			allocations = append(allocations[:j], allocations[j+1:]...)

		case op == 3 && len(allocations) > 0:
			j := rng.Intn(len(allocations))
			old := allocations[j]
			size := 1 + rng.Intn(1500)
			ptr, reErr := a.Realloc(old.ptr, size)
			if reErr != nil {
				require.ErrorIs(t, reErr, ErrOutOfMemory, "step %d", i)
				requireFilled(t, old.ptr, old.size, old.tag)
				break
			}
			requireFilled(t, ptr, min(old.size, size), old.tag)
			fill(ptr, size, old.tag)
			allocations[j] = live{ptr, size, old.tag}
		}

		requireConsistent(t, a)
	}

	for _, l := range allocations {
		_, err := a.Free(l.ptr)
		require.NoError(t, err)
	}
	requireConsistent(t, a)
	for _, p := range a.Pools() {
		blocks := walkAll(a, p)
		require.Len(t, blocks, 1, "fully freed pool %v collapses to one block", p)
		require.False(t, blocks[0].used)
	}
}
