package eviction_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tirific/memhere/memutils/eviction"
	"github.com/tirific/memhere/memutils/ledger"
)

type registered struct {
	Handle ledger.Handle
	Size   int
}

func order(p eviction.Policy) []registered {
	var out []registered
	p.Visit(func(handle ledger.Handle, size int) bool {
		out = append(out, registered{handle, size})
		return true
	})
	return out
}

func TestNewPolicyKinds(t *testing.T) {
	for _, kind := range []eviction.Kind{eviction.KindFIFO, eviction.KindLargestFirst, eviction.KindLeastRecentlyUsed} {
		t.Run(kind.String(), func(t *testing.T) {
			p, err := eviction.New(kind)
			require.NoError(t, err)
			require.Equal(t, 0, p.Len())

			p.Add(1, 100)
			p.Add(2, 200)
			require.Equal(t, 2, p.Len())
			require.True(t, p.Contains(1))

			require.True(t, p.Remove(1))
			require.False(t, p.Remove(1))
			require.False(t, p.Contains(1))
			require.Equal(t, 1, p.Len())
			require.Equal(t, []registered{{2, 200}}, order(p))
		})
	}

	_, err := eviction.New(eviction.Kind(42))
	require.Error(t, err)
}

func TestFIFOOrder(t *testing.T) {
	p := eviction.NewFIFO()
	p.Add(3, 100)
	p.Add(1, 300)
	p.Add(2, 200)

	require.Equal(t, []registered{{3, 100}, {1, 300}, {2, 200}}, order(p))
	require.NoError(t, p.Validate())

	// Access does not change FIFO order
	p.Touch(3)
	require.Equal(t, ledger.Handle(3), order(p)[0].Handle)

	require.True(t, p.Remove(1))
	require.NoError(t, p.Validate())
	require.Equal(t, []registered{{3, 100}, {2, 200}}, order(p))

	require.True(t, p.Remove(2))
	require.True(t, p.Remove(3))
	require.NoError(t, p.Validate())
	require.Empty(t, order(p))

	// Re-adding after removal goes to the back
	p.Add(4, 10)
	p.Add(3, 100)
	require.Equal(t, []registered{{4, 10}, {3, 100}}, order(p))
	require.NoError(t, p.Validate())
}

func TestFIFOResize(t *testing.T) {
	p := eviction.NewFIFO()
	p.Add(1, 100)
	p.Add(2, 100)

	p.Resize(1, 500)
	p.Resize(9, 500)
	require.Equal(t, []registered{{1, 500}, {2, 100}}, order(p))
}

func TestFIFOVisitStopsEarly(t *testing.T) {
	p := eviction.NewFIFO()
	for i := 1; i <= 10; i++ {
		p.Add(ledger.Handle(i), i)
	}

	visited := 0
	p.Visit(func(handle ledger.Handle, size int) bool {
		visited++
		return visited < 3
	})
	require.Equal(t, 3, visited)
}

func TestFIFOAddTwicePanics(t *testing.T) {
	p := eviction.NewFIFO()
	p.Add(1, 1)
	require.Panics(t, func() { p.Add(1, 1) })
}

func TestLargestFirstOrder(t *testing.T) {
	p := eviction.NewLargestFirst()
	p.Add(1, 100)
	p.Add(2, 400)
	p.Add(3, 400)
	p.Add(4, 250)

	require.Equal(t, []registered{{2, 400}, {3, 400}, {4, 250}, {1, 100}}, order(p))

	p.Resize(1, 1000)
	require.Equal(t, []registered{{1, 1000}, {2, 400}, {3, 400}, {4, 250}}, order(p))

	require.True(t, p.Remove(2))
	require.Equal(t, []registered{{1, 1000}, {3, 400}, {4, 250}}, order(p))
	require.Equal(t, 3, p.Len())
}

func TestLeastRecentlyUsedOrder(t *testing.T) {
	p := eviction.NewLeastRecentlyUsed()
	p.Add(1, 100)
	p.Add(2, 200)
	p.Add(3, 300)

	require.Equal(t, []registered{{1, 100}, {2, 200}, {3, 300}}, order(p))

	p.Touch(1)
	require.Equal(t, []registered{{2, 200}, {3, 300}, {1, 100}}, order(p))

	// Touching an unregistered handle does nothing
	p.Touch(42)
	require.Equal(t, 3, p.Len())

	p.Resize(2, 50)
	require.Equal(t, []registered{{3, 300}, {1, 100}, {2, 50}}, order(p))
}
