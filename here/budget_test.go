package here

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tirific/memhere/memutils"
	"github.com/tirific/memhere/memutils/eviction"
)

func TestBudgetAccessors(t *testing.T) {
	allocator := readyAllocator(t, CreateOptions{MaxBytes: 1000})
	require.Equal(t, 1000, allocator.Budget())

	allocator.SetBudget(5)
	require.Equal(t, 5, allocator.Budget())

	allocator.SetBudget(-10)
	require.Equal(t, 0, allocator.Budget())

	allocator.ResetBudget()
	require.Equal(t, math.MaxInt, allocator.Budget())
}

func TestBudgetRejectsWithoutDispensableBlocks(t *testing.T) {
	allocator := readyAllocator(t, CreateOptions{MaxBytes: 1000})

	first, err := allocator.Allocate(600)
	require.NoError(t, err)
	require.Equal(t, 600, allocator.Used())

	second, err := allocator.Allocate(600)
	require.ErrorIs(t, err, memutils.ErrOutOfBudget)
	require.Equal(t, NullHandle, second)
	require.Equal(t, 600, allocator.Used())
	require.True(t, allocator.IsLive(first))
}

func TestBudgetEvictsForgottenBlock(t *testing.T) {
	allocator := readyAllocator(t, CreateOptions{MaxBytes: 1000})

	a, err := allocator.Allocate(600)
	require.NoError(t, err)
	_, err = allocator.Allocate(600)
	require.ErrorIs(t, err, memutils.ErrOutOfBudget)

	evicted := a
	allocator.Forget(&a)

	b, err := allocator.Allocate(600)
	require.NoError(t, err)
	require.Equal(t, NullHandle, a)
	require.False(t, allocator.IsLive(evicted))
	require.True(t, allocator.IsLive(b))
	require.Equal(t, 600, allocator.Used())
}

func TestBudgetRememberedBlockSurvives(t *testing.T) {
	allocator := readyAllocator(t, CreateOptions{MaxBytes: 1000})

	a, err := allocator.Allocate(400)
	require.NoError(t, err)
	allocator.Forget(&a)

	b, err := allocator.Allocate(400)
	require.NoError(t, err)
	allocator.Forget(&b)

	remembered := allocator.Remember(&a)
	require.Equal(t, a, remembered)

	c, err := allocator.Allocate(400)
	require.NoError(t, err)
	require.NotEqual(t, NullHandle, c)

	require.NotEqual(t, NullHandle, a)
	require.True(t, allocator.IsLive(a))
	require.Equal(t, NullHandle, b)
	require.Equal(t, 800, allocator.Used())

	// With nothing left to reclaim, the remembered block is never touched
	_, err = allocator.Allocate(400)
	require.ErrorIs(t, err, memutils.ErrOutOfBudget)
	require.True(t, allocator.IsLive(a))
}

func TestSetBudgetIsLazy(t *testing.T) {
	allocator := readyAllocator(t, CreateOptions{MaxBytes: 1000})

	a, err := allocator.Allocate(600)
	require.NoError(t, err)
	allocator.Forget(&a)
	b, err := allocator.Allocate(300)
	require.NoError(t, err)
	allocator.Forget(&b)

	allocator.SetBudget(500)
	require.Equal(t, 900, allocator.Used())
	require.True(t, allocator.IsLive(a))
	require.True(t, allocator.IsLive(b))

	c, err := allocator.Allocate(100)
	require.NoError(t, err)
	require.Equal(t, NullHandle, a)
	require.NotEqual(t, NullHandle, b)
	require.True(t, allocator.IsLive(c))
	require.Equal(t, 400, allocator.Used())
}

func TestEvictionIsFIFO(t *testing.T) {
	allocator := readyAllocator(t, CreateOptions{MaxBytes: 300})

	a, err := allocator.Allocate(100)
	require.NoError(t, err)
	b, err := allocator.Allocate(100)
	require.NoError(t, err)
	c, err := allocator.Allocate(100)
	require.NoError(t, err)

	allocator.Forget(&a)
	allocator.Forget(&b)
	allocator.Forget(&c)

	_, err = allocator.Allocate(100)
	require.NoError(t, err)
	require.Equal(t, NullHandle, a)
	require.NotEqual(t, NullHandle, b)
	require.NotEqual(t, NullHandle, c)

	_, err = allocator.Allocate(100)
	require.NoError(t, err)
	require.Equal(t, NullHandle, b)
	require.NotEqual(t, NullHandle, c)
}

func TestEvictionReclaimsOnlyWhatIsNeeded(t *testing.T) {
	allocator := readyAllocator(t, CreateOptions{MaxBytes: 400})

	handles := make([]Handle, 4)
	for i := range handles {
		var err error
		handles[i], err = allocator.Allocate(100)
		require.NoError(t, err)
		allocator.Forget(&handles[i])
	}

	_, err := allocator.Allocate(250)
	require.NoError(t, err)

	require.Equal(t, NullHandle, handles[0])
	require.Equal(t, NullHandle, handles[1])
	require.Equal(t, NullHandle, handles[2])
	require.NotEqual(t, NullHandle, handles[3])
	require.Equal(t, 350, allocator.Used())

	var stats memutils.DetailedStatistics
	allocator.CalculateStatistics(&stats)
	require.Equal(t, 3, stats.Calls.Evictions)
	require.Equal(t, 300, stats.Calls.EvictedBytes)
}

func TestAdmissionIsAllOrNothing(t *testing.T) {
	allocator := readyAllocator(t, CreateOptions{MaxBytes: 1000})

	a, err := allocator.Allocate(300)
	require.NoError(t, err)
	allocator.Forget(&a)
	_, err = allocator.Allocate(600)
	require.NoError(t, err)

	// Reclaiming a would leave the request 100 bytes short, so nothing is reclaimed
	_, err = allocator.Allocate(500)
	require.ErrorIs(t, err, memutils.ErrOutOfBudget)
	require.NotEqual(t, NullHandle, a)
	require.True(t, allocator.IsDispensable(a))
	require.Equal(t, 900, allocator.Used())

	// Larger than the whole budget
	_, err = allocator.Allocate(1001)
	require.ErrorIs(t, err, memutils.ErrOutOfBudget)
	require.NotEqual(t, NullHandle, a)

	var stats memutils.DetailedStatistics
	allocator.CalculateStatistics(&stats)
	require.Equal(t, 2, stats.Calls.AdmissionFailures)
	require.Equal(t, 0, stats.Calls.Evictions)
}

func TestZeroBudget(t *testing.T) {
	allocator := readyAllocator(t, CreateOptions{})
	allocator.SetBudget(0)

	_, err := allocator.Allocate(1)
	require.ErrorIs(t, err, memutils.ErrOutOfBudget)
}

func TestResizeSmallerNeverEvicts(t *testing.T) {
	allocator := readyAllocator(t, CreateOptions{MaxBytes: 1000})

	a, err := allocator.Allocate(600)
	require.NoError(t, err)
	b, err := allocator.Allocate(400)
	require.NoError(t, err)
	allocator.Forget(&b)

	allocator.SetBudget(100)

	resized, err := allocator.Resize(a, 300)
	require.NoError(t, err)
	require.Equal(t, a, resized)
	require.NotEqual(t, NullHandle, b)
	require.Equal(t, 700, allocator.Used())
}

func TestResizeLargerAdmitsTheDelta(t *testing.T) {
	allocator := readyAllocator(t, CreateOptions{MaxBytes: 1000})

	a, err := allocator.Allocate(600)
	require.NoError(t, err)
	b, err := allocator.Allocate(300)
	require.NoError(t, err)
	allocator.Forget(&b)

	_, err = allocator.Resize(a, 700)
	require.NoError(t, err)
	require.NotEqual(t, NullHandle, b)
	require.Equal(t, 1000, allocator.Used())

	_, err = allocator.Resize(a, 800)
	require.NoError(t, err)
	require.Equal(t, NullHandle, b)
	require.Equal(t, 800, allocator.Used())

	_, err = allocator.Resize(a, 1200)
	require.ErrorIs(t, err, memutils.ErrOutOfBudget)
	require.Equal(t, 800, allocator.Size(a))
}

func TestResizeNeverEvictsItself(t *testing.T) {
	allocator := readyAllocator(t, CreateOptions{MaxBytes: 1000})

	a, err := allocator.Allocate(600)
	require.NoError(t, err)
	allocator.Forget(&a)
	handle := a

	_, err = allocator.Resize(handle, 1100)
	require.ErrorIs(t, err, memutils.ErrOutOfBudget)
	require.Equal(t, handle, a)
	require.Equal(t, 600, allocator.Size(a))

	resized, err := allocator.Resize(handle, 900)
	require.NoError(t, err)
	require.Equal(t, handle, resized)
	require.True(t, allocator.IsDispensable(a))
	require.NoError(t, allocator.Validate())

	// The registry follows the new size
	b, err := allocator.Allocate(1000)
	require.NoError(t, err)
	require.Equal(t, NullHandle, a)
	require.Equal(t, 1000, allocator.Size(b))
}

func TestPeakUsage(t *testing.T) {
	allocator := readyAllocator(t, CreateOptions{})

	a, err := allocator.Allocate(500)
	require.NoError(t, err)
	b, err := allocator.Allocate(250)
	require.NoError(t, err)
	require.NoError(t, allocator.Release(a))
	require.NoError(t, allocator.Release(b))

	_, err = allocator.Allocate(100)
	require.NoError(t, err)

	require.Equal(t, 100, allocator.Used())
	require.Equal(t, 750, allocator.Peak())
}

func TestLargestFirstPolicy(t *testing.T) {
	allocator := readyAllocator(t, CreateOptions{MaxBytes: 600, EvictionPolicy: eviction.KindLargestFirst})

	a, err := allocator.Allocate(100)
	require.NoError(t, err)
	b, err := allocator.Allocate(300)
	require.NoError(t, err)
	c, err := allocator.Allocate(200)
	require.NoError(t, err)

	allocator.Forget(&a)
	allocator.Forget(&b)
	allocator.Forget(&c)

	_, err = allocator.Allocate(250)
	require.NoError(t, err)
	require.NotEqual(t, NullHandle, a)
	require.Equal(t, NullHandle, b)
	require.NotEqual(t, NullHandle, c)
}

func TestLeastRecentlyUsedPolicy(t *testing.T) {
	allocator := readyAllocator(t, CreateOptions{MaxBytes: 300, EvictionPolicy: eviction.KindLeastRecentlyUsed})

	a, err := allocator.Allocate(100)
	require.NoError(t, err)
	b, err := allocator.Allocate(100)
	require.NoError(t, err)
	c, err := allocator.Allocate(100)
	require.NoError(t, err)

	allocator.Forget(&a)
	allocator.Forget(&b)
	allocator.Forget(&c)

	// Reading a block counts as using it
	require.NotNil(t, allocator.Bytes(a))

	_, err = allocator.Allocate(100)
	require.NoError(t, err)
	require.NotEqual(t, NullHandle, a)
	require.Equal(t, NullHandle, b)
	require.NotEqual(t, NullHandle, c)
}
