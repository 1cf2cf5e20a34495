package memutils

import "math"

// Statistics describes the blocks that are currently live in an allocator's ledger
type Statistics struct {
	BlockCount       int
	BlockBytes       int
	DispensableCount int
	DispensableBytes int
}

func (s *Statistics) Clear() {
	s.BlockCount = 0
	s.BlockBytes = 0
	s.DispensableCount = 0
	s.DispensableBytes = 0
}

func (s *Statistics) AddBlock(size int, dispensable bool) {
	s.BlockCount++
	s.BlockBytes += size

	if dispensable {
		s.DispensableCount++
		s.DispensableBytes += size
	}
}

// CallStatistics counts the operations an allocator has performed since it was created. It is
// the leak-hunting counterpart to Statistics: Allocations - Releases - Evictions should always
// equal the live BlockCount.
type CallStatistics struct {
	Allocations       int
	Resizes           int
	Releases          int
	Forgets           int
	Remembers         int
	Evictions         int
	EvictedBytes      int
	AdmissionFailures int
	SystemFailures    int
}

func (s *CallStatistics) Clear() {
	*s = CallStatistics{}
}

// Outstanding is the number of blocks that were allocated and have neither been released nor evicted
func (s *CallStatistics) Outstanding() int {
	return s.Allocations - s.Releases - s.Evictions
}

type DetailedStatistics struct {
	Statistics
	Calls CallStatistics

	MaxBytes      int
	PeakBytes     int
	BlockSizeMin  int
	BlockSizeMax  int
	RegistryCount int
}

func (s *DetailedStatistics) Clear() {
	s.Statistics.Clear()
	s.Calls.Clear()
	s.MaxBytes = 0
	s.PeakBytes = 0
	s.BlockSizeMin = math.MaxInt
	s.BlockSizeMax = 0
	s.RegistryCount = 0
}

func (s *DetailedStatistics) AddBlock(size int, dispensable bool) {
	s.Statistics.AddBlock(size, dispensable)

	if size < s.BlockSizeMin {
		s.BlockSizeMin = size
	}

	if size > s.BlockSizeMax {
		s.BlockSizeMax = size
	}
}
