package here

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAllocateSlice(t *testing.T) {
	allocator := readyAllocator(t, CreateOptions{})

	handle, err := AllocateSlice[float64](allocator, 16)
	require.NoError(t, err)
	require.Equal(t, 128, allocator.Size(handle))

	values := Slice[float64](allocator, handle)
	require.Len(t, values, 16)
	for i := range values {
		require.Zero(t, values[i])
		values[i] = float64(i) / 2
	}

	require.Equal(t, 7.5, Slice[float64](allocator, handle)[15])
	require.Len(t, Slice[uint32](allocator, handle), 32)
}

func TestSliceOfDeadHandle(t *testing.T) {
	allocator := readyAllocator(t, CreateOptions{})

	require.Nil(t, Slice[int32](allocator, NullHandle))

	handle, err := allocator.Allocate(3)
	require.NoError(t, err)
	require.Nil(t, Slice[int32](allocator, handle))
	require.Len(t, Slice[uint8](allocator, handle), 3)

	require.NoError(t, allocator.Release(handle))
	require.Nil(t, Slice[uint8](allocator, handle))
}
