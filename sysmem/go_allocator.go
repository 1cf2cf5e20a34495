package sysmem

import (
	"unsafe"

	"github.com/cockroachdb/errors"
	"github.com/tirific/memhere/memutils"
)

// DefaultAlignment is the alignment of slices returned from NewGoAllocator
const DefaultAlignment = 64

// GoAllocator draws memory from the Go heap. Memory is zeroed on allocation and reclaimed by the
// garbage collector once nothing references it, so Free does nothing.
type GoAllocator struct {
	alignment int
}

func NewGoAllocator() *GoAllocator {
	return &GoAllocator{alignment: DefaultAlignment}
}

// NewAlignedGoAllocator creates a GoAllocator whose slices start at a multiple of alignment,
// which must be a power of two
func NewAlignedGoAllocator(alignment int) (*GoAllocator, error) {
	if alignment <= 0 {
		return nil, errors.Newf("alignment must be positive, but was %d", alignment)
	}
	if err := memutils.CheckPow2(alignment, "alignment"); err != nil {
		return nil, err
	}

	return &GoAllocator{alignment: alignment}, nil
}

func (a *GoAllocator) Alignment() int { return a.alignment }

func (a *GoAllocator) Allocate(size int) (b []byte, err error) {
	if size < 0 {
		return nil, errors.Wrapf(memutils.ErrInvalidSize, "size is %d", size)
	}

	memutils.DebugCheckPow2(a.alignment, "alignment")
	padded := memutils.SaturatingAdd(size, a.alignment)

	// makeslice panics rather than failing when the length is out of range
	defer func() {
		if r := recover(); r != nil {
			b = nil
			err = errors.Wrapf(ErrOutOfMemory, "go heap allocation of %d bytes: %v", size, r)
		}
	}()

	buf := make([]byte, padded)
	addr := uintptr(unsafe.Pointer(unsafe.SliceData(buf)))
	next := (addr + uintptr(a.alignment-1)) &^ uintptr(a.alignment-1)
	shift := int(next - addr)

	return buf[shift : size+shift : size+shift], nil
}

func (a *GoAllocator) Reallocate(b []byte, size int) ([]byte, error) {
	if size == len(b) {
		return b, nil
	}

	if size < len(b) {
		return b[:size:size], nil
	}

	newBuf, err := a.Allocate(size)
	if err != nil {
		return nil, err
	}
	copy(newBuf, b)
	return newBuf, nil
}

func (a *GoAllocator) Free(b []byte) error {
	return nil
}
