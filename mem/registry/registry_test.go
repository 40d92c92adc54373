package registry

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInsertPreservesOrder(t *testing.T) {
	var r Registry[int]
	for _, h := range []int{3, 1, 2} {
		require.NoError(t, r.Insert(h))
	}

	var seen []int
	r.ForEach(func(h int) { seen = append(seen, h) })
	assert.Equal(t, []int{3, 1, 2}, seen)
	assert.Equal(t, 3, r.Len())

	primary, ok := r.Primary()
	require.True(t, ok)
	assert.Equal(t, 3, primary)
}

func TestInsertRejectsDuplicate(t *testing.T) {
	var r Registry[string]
	require.NoError(t, r.Insert("a"))
	require.ErrorIs(t, r.Insert("a"), ErrDuplicate)
	assert.Equal(t, 1, r.Len())
}

func TestRemove(t *testing.T) {
	var r Registry[int]
	for _, h := range []int{1, 2, 3, 4} {
		require.NoError(t, r.Insert(h))
	}

	assert.True(t, r.Remove(2))
	assert.False(t, r.Remove(2), "second removal is a no-op")
	assert.False(t, r.Remove(99))
	assert.Equal(t, []int{1, 3, 4}, r.Items())
	assert.False(t, r.Contains(2))
	assert.True(t, r.Contains(3))
}

func TestItemsIsACopy(t *testing.T) {
	var r Registry[int]
	require.NoError(t, r.Insert(1))
	items := r.Items()
	items[0] = 42

	primary, _ := r.Primary()
	assert.Equal(t, 1, primary)
}

func TestForEachErrShortCircuits(t *testing.T) {
	var r Registry[int]
	for _, h := range []int{1, 2, 3} {
		require.NoError(t, r.Insert(h))
	}

	boom := errors.New("boom")
	var visited []int
	err := r.ForEachErr(func(h int) error {
		visited = append(visited, h)
		if h == 2 {
			return boom
		}
		return nil
	})
	require.ErrorIs(t, err, boom)
	assert.Equal(t, []int{1, 2}, visited)
}

func TestClear(t *testing.T) {
	var r Registry[int]
	require.NoError(t, r.Insert(1))
	r.Clear()

	assert.Zero(t, r.Len())
	_, ok := r.Primary()
	assert.False(t, ok)
	require.NoError(t, r.Insert(1), "cleared registry accepts old handles again")
}
