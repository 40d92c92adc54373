package tlsf

import (
	"errors"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/require"

	"github.com/joshuapare/memkit/internal/format"
)

func Test_New_RejectsUnusableRegions(t *testing.T) {
	_, err := New(nil, Options{})
	require.ErrorIs(t, err, ErrInvalidRegion)

	_, err = New(newRegion(format.MinPoolSize-8), Options{})
	require.ErrorIs(t, err, ErrInvalidRegion)

	a, err := New(newRegion(format.MinPoolSize), Options{})
	require.NoError(t, err)
	requireConsistent(t, a)
}

func Test_New_AlignsMisalignedRegion(t *testing.T) {
	region := newRegion(1024 + 8)
	a, err := New(region[3:3+1024], Options{})
	require.NoError(t, err)

	pools := a.Pools()
	require.Len(t, pools, 1)
	require.Zero(t, uintptr(pools[0].Base())%format.WordSize)
	// 5 bytes of leading pad, then trimmed down to the word grid.
	require.Equal(t, 1016, pools[0].Len())
	require.Equal(t, 1024, pools[0].RegionLen())
	requireConsistent(t, a)
}

func Test_Alloc_ReturnsAlignedPayload(t *testing.T) {
	a := newTestAllocator(t, 1024, Options{})

	for _, size := range []int{0, 1, 7, 8, 50, 100} {
		ptr, err := a.Alloc(size)
		require.NoError(t, err)
		require.Zero(t, uintptr(ptr)%format.WordSize, "size %d", size)
		require.GreaterOrEqual(t, a.BlockSize(ptr), size)
		require.GreaterOrEqual(t, a.BlockSize(ptr), format.MinBlockSize)
	}
	requireConsistent(t, a)
}

func Test_Alloc_RoundsToWord(t *testing.T) {
	a := newTestAllocator(t, 1024, Options{})

	p, err := a.Alloc(50)
	require.NoError(t, err)
	require.Equal(t, 56, a.BlockSize(p))

	p, err = a.Alloc(1)
	require.NoError(t, err)
	require.Equal(t, format.MinBlockSize, a.BlockSize(p))
}

func Test_Alloc_OutOfMemoryIsRecoverable(t *testing.T) {
	a := newTestAllocator(t, 1024, Options{})

	p, err := a.Alloc(100)
	require.NoError(t, err)

	_, err = a.Alloc(2000)
	require.ErrorIs(t, err, ErrOutOfMemory)
	require.Equal(t, 1, a.Stats().OutOfMemory)

	_, err = a.Alloc(-1)
	require.ErrorIs(t, err, ErrOutOfMemory)

	// The heap is still usable.
	_, err = a.Free(p)
	require.NoError(t, err)
	_, err = a.Alloc(500)
	require.NoError(t, err)
	requireConsistent(t, a)
}

func Test_Alloc_ExactFitInRoundedClass(t *testing.T) {
	// Each pool holds one free block of exactly the requested size, which
	// sits below the class the rounded search starts from.
	for _, tc := range []struct{ pool, request int }{
		{4096, 4080},
		{1016, 1000},
	} {
		a := newTestAllocator(t, tc.pool, Options{})
		p, err := a.Alloc(tc.request)
		require.NoError(t, err, "pool %d request %d", tc.pool, tc.request)
		require.Equal(t, tc.request, a.BlockSize(p))
		require.Zero(t, a.Stats().OutOfMemory)
		requireConsistent(t, a)
	}
}

func Test_Alloc_ClassHeadTooSmall(t *testing.T) {
	// 992 and 1000 share a class; the only block is smaller than the request.
	a := newTestAllocator(t, 992+format.PoolOverhead, Options{})
	_, err := a.Alloc(1000)
	require.ErrorIs(t, err, ErrOutOfMemory)
	require.Equal(t, 1, a.Stats().OutOfMemory)

	p, err := a.Alloc(992)
	require.NoError(t, err)
	require.Equal(t, 992, a.BlockSize(p))
}

func Test_Alloc_WholeBlockWhenRemainderTooSmall(t *testing.T) {
	a := newTestAllocator(t, 1024, Options{})
	whole := 1024 - format.PoolOverhead

	// 1008 free; a 1000-byte request leaves 8 bytes, not enough for a block.
	p, err := a.Alloc(1000)
	require.NoError(t, err)
	require.Equal(t, whole, a.BlockSize(p))
	require.Zero(t, a.Stats().Splits)

	_, err = a.Alloc(1)
	require.ErrorIs(t, err, ErrOutOfMemory)

	size, err := a.Free(p)
	require.NoError(t, err)
	require.Equal(t, whole, size)
	requireConsistent(t, a)
}

func Test_Alloc_SplitsLargeBlock(t *testing.T) {
	a := newTestAllocator(t, 1024, Options{})

	p, err := a.Alloc(100)
	require.NoError(t, err)
	require.Equal(t, 1, a.Stats().Splits)

	blocks := walkAll(a, a.Pools()[0])
	require.Len(t, blocks, 2)
	require.True(t, blocks[0].used)
	require.Equal(t, p, blocks[0].ptr)
	require.Equal(t, 104, blocks[0].size)
	require.False(t, blocks[1].used)
	require.Equal(t, 1024-format.PoolOverhead-104-format.HeaderSize, blocks[1].size)
	requireConsistent(t, a)
}

func Test_Free_CoalescesWithBothNeighbours(t *testing.T) {
	a := newTestAllocator(t, 1024, Options{})

	pa, err := a.Alloc(50)
	require.NoError(t, err)
	pb, err := a.Alloc(50)
	require.NoError(t, err)
	pc, err := a.Alloc(50)
	require.NoError(t, err)
	// Consume the tail so every merge below is observable.
	rest := 1024 - format.PoolOverhead - 3*(56+format.HeaderSize)
	pd, err := a.Alloc(rest)
	require.NoError(t, err)
	require.Equal(t, rest, a.BlockSize(pd))

	_, err = a.Free(pa)
	require.NoError(t, err)
	_, err = a.Free(pc)
	require.NoError(t, err)
	requireConsistent(t, a)
	require.Len(t, walkAll(a, a.Pools()[0]), 4)

	// Freeing B merges backward into A and forward into C.
	size, err := a.Free(pb)
	require.NoError(t, err)
	require.Equal(t, 56, size)

	blocks := walkAll(a, a.Pools()[0])
	require.Len(t, blocks, 2)
	require.False(t, blocks[0].used)
	require.Equal(t, 3*56+2*format.HeaderSize, blocks[0].size)
	require.GreaterOrEqual(t, a.Stats().MergeBackward, 1)
	require.GreaterOrEqual(t, a.Stats().MergeForward, 1)
	requireConsistent(t, a)

	_, err = a.Free(pd)
	require.NoError(t, err)
	blocks = walkAll(a, a.Pools()[0])
	require.Len(t, blocks, 1)
	require.Equal(t, 1024-format.PoolOverhead, blocks[0].size)
}

func Test_Free_ReusesReleasedBlock(t *testing.T) {
	a := newTestAllocator(t, 1024, Options{})

	p1, err := a.Alloc(64)
	require.NoError(t, err)
	_, err = a.Free(p1)
	require.NoError(t, err)

	p2, err := a.Alloc(64)
	require.NoError(t, err)
	require.Equal(t, p1, p2)
}

func Test_Free_Nil(t *testing.T) {
	a := newTestAllocator(t, 1024, Options{})
	size, err := a.Free(nil)
	require.NoError(t, err)
	require.Zero(t, size)
	require.Zero(t, a.Stats().FreeCalls)
}

func Test_Free_DoubleFreeIsCorruption(t *testing.T) {
	a := newTestAllocator(t, 1024, Options{})
	p, err := a.Alloc(32)
	require.NoError(t, err)
	_, err = a.Alloc(32) // keep p from merging into its neighbour
	require.NoError(t, err)

	_, err = a.Free(p)
	require.NoError(t, err)
	_, err = a.Free(p)
	require.ErrorIs(t, err, ErrCorrupted)

	var ce *CorruptionError
	require.True(t, errors.As(err, &ce))
	require.Equal(t, 0, ce.Offset)
	requireConsistent(t, a)
}

func Test_Free_ForeignPointer(t *testing.T) {
	a := newTestAllocator(t, 1024, Options{})
	foreign := newRegion(64)

	_, err := a.Free(unsafe.Pointer(&foreign[8]))
	require.ErrorIs(t, err, ErrBadPointer)
	require.Zero(t, a.BlockSize(unsafe.Pointer(&foreign[8])))
}

func Test_Free_MisalignedPointerIsCorruption(t *testing.T) {
	a := newTestAllocator(t, 1024, Options{})
	p, err := a.Alloc(32)
	require.NoError(t, err)

	_, err = a.Free(unsafe.Add(p, 3))
	require.ErrorIs(t, err, ErrCorrupted)
	require.Equal(t, 32, a.BlockSize(p))
}

func Test_BlockSize(t *testing.T) {
	a := newTestAllocator(t, 1024, Options{})
	require.Zero(t, a.BlockSize(nil))

	p, err := a.Alloc(20)
	require.NoError(t, err)
	require.Equal(t, 24, a.BlockSize(p))

	_, err = a.Alloc(20)
	require.NoError(t, err)
	_, err = a.Free(p)
	require.NoError(t, err)
	require.Zero(t, a.BlockSize(p), "freed block has no live size")
}
