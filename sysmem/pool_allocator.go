package sysmem

import (
	"math/bits"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/tirific/memhere/memutils"
)

const (
	PoolAllocatorMinSize       = (1 << (PoolAllocatorSkipBuckets - 1)) + 1
	PoolAllocatorSkipBuckets   = 6
	PoolAllocatorLargestBucket = 33
)

// PoolAllocator recycles freed memory through power-of-two size classes, which suits callers
// that repeatedly evict and rebuild buffers of similar sizes. Requests that are too small or too
// large for the size classes fall through to the Go heap. The zero value is ready to use.
type PoolAllocator struct {
	Pools [PoolAllocatorLargestBucket - PoolAllocatorSkipBuckets]sync.Pool
}

func (a *PoolAllocator) Allocate(size int) ([]byte, error) {
	if size < 0 {
		return nil, errors.Wrapf(memutils.ErrInvalidSize, "size is %d", size)
	}
	if size < PoolAllocatorMinSize {
		// Too small for the overhead of using a pool.
		return make([]byte, size), nil
	}
	class := bucketForSize(size)
	if class >= PoolAllocatorLargestBucket {
		// Too big for the predeclared classes.
		return NewGoAllocator().Allocate(size)
	}
	if ret := a.Pools[class-PoolAllocatorSkipBuckets].Get(); ret != nil {
		return ret.([]byte)[:size], nil
	}
	return make([]byte, size, 1<<class), nil
}

func (a *PoolAllocator) Reallocate(b []byte, size int) ([]byte, error) {
	if size < 0 {
		return nil, errors.Wrapf(memutils.ErrInvalidSize, "size is %d", size)
	}
	if size <= cap(b) {
		return b[:size], nil
	}

	newBuf, err := a.Allocate(size)
	if err != nil {
		return nil, err
	}
	copy(newBuf, b)

	return newBuf, a.Free(b)
}

func (a *PoolAllocator) Free(b []byte) error {
	if cap(b) < PoolAllocatorMinSize {
		return nil
	}
	class := bucketForSize(cap(b))
	if class >= PoolAllocatorLargestBucket || cap(b) != 1<<class {
		// Too big for the predeclared classes, or not one of ours.
		return nil
	}
	a.Pools[class-PoolAllocatorSkipBuckets].Put(b[:0])
	return nil
}

func bucketForSize(n int) int {
	return 64 - bits.LeadingZeros64(uint64(n)-1)
}
