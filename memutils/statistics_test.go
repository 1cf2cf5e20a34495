package memutils_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tirific/memhere/memutils"
)

func TestDetailedStatisticsAddBlock(t *testing.T) {
	var stats memutils.DetailedStatistics
	stats.Clear()

	require.Equal(t, math.MaxInt, stats.BlockSizeMin)

	stats.AddBlock(400, true)
	stats.AddBlock(100, false)
	stats.AddBlock(250, true)

	require.Equal(t, memutils.Statistics{
		BlockCount:       3,
		BlockBytes:       750,
		DispensableCount: 2,
		DispensableBytes: 650,
	}, stats.Statistics)
	require.Equal(t, 100, stats.BlockSizeMin)
	require.Equal(t, 400, stats.BlockSizeMax)
}

func TestCallStatisticsOutstanding(t *testing.T) {
	calls := memutils.CallStatistics{
		Allocations:  5,
		Releases:     2,
		Evictions:    1,
		EvictedBytes: 500,
	}
	require.Equal(t, 2, calls.Outstanding())

	calls.Clear()
	require.Equal(t, memutils.CallStatistics{}, calls)
	require.Equal(t, 0, calls.Outstanding())
}
