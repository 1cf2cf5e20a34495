//go:build unix

package sysmem

import (
	"github.com/cockroachdb/errors"
	"github.com/tirific/memhere/memutils"
	"golang.org/x/sys/unix"
)

// MmapAllocator maps anonymous, private pages for every allocation. Memory lives outside the Go
// heap, so it is returned to the operating system as soon as it is freed instead of waiting for a
// garbage collection. Every allocation is rounded up to whole pages.
type MmapAllocator struct {
	pageSize int
}

func NewMmapAllocator() *MmapAllocator {
	return &MmapAllocator{pageSize: unix.Getpagesize()}
}

func (a *MmapAllocator) mappingSize(size int) int {
	memutils.DebugCheckPow2(a.pageSize, "pageSize")
	return memutils.AlignUp(size, uint(a.pageSize))
}

func (a *MmapAllocator) Allocate(size int) ([]byte, error) {
	if size <= 0 {
		return nil, errors.Wrapf(memutils.ErrInvalidSize, "size is %d", size)
	}

	data, err := unix.Mmap(-1, 0, a.mappingSize(size), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil, errors.Mark(errors.Wrapf(err, "mmap of %d bytes", size), ErrOutOfMemory)
	}

	return data[:size], nil
}

func (a *MmapAllocator) Reallocate(b []byte, size int) ([]byte, error) {
	if size <= 0 {
		return nil, errors.Wrapf(memutils.ErrInvalidSize, "size is %d", size)
	}
	if a.mappingSize(size) == cap(b) {
		return b[:size], nil
	}

	newBuf, err := a.Allocate(size)
	if err != nil {
		return nil, err
	}
	copy(newBuf, b)

	return newBuf, a.Free(b)
}

func (a *MmapAllocator) Free(b []byte) error {
	if cap(b) == 0 {
		return nil
	}

	// The mapping is tracked by its full extent
	err := unix.Munmap(b[:cap(b)])
	if err != nil {
		return errors.Wrap(err, "munmap")
	}
	return nil
}
