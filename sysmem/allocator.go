// Package sysmem provides the system allocators that a budgeted allocator draws its memory from.
//
// A system allocator is the sole source of real memory for the allocators in this module. It knows
// nothing about budgets, handles or eviction: it hands out byte slices and takes them back.
package sysmem

//go:generate mockgen -destination=./mocks/allocator.go -package=mock_sysmem github.com/tirific/memhere/sysmem Allocator

import "github.com/pkg/errors"

// ErrOutOfMemory is returned when the system cannot satisfy a request
var ErrOutOfMemory error = errors.New("system allocator is out of memory")

// Allocator is an underlying allocator in the manner of malloc, realloc and free
type Allocator interface {
	// Allocate returns a slice of exactly size bytes. The contents are unspecified.
	Allocate(size int) ([]byte, error)
	// Reallocate returns a slice of exactly size bytes whose leading bytes match b, up to the
	// smaller of the two sizes. On success b must no longer be used; on failure b is untouched.
	Reallocate(b []byte, size int) ([]byte, error)
	// Free returns memory obtained from Allocate or Reallocate
	Free(b []byte) error
}

// DefaultAllocator is used by allocators that are not given a system allocator explicitly
var DefaultAllocator Allocator = NewGoAllocator()
