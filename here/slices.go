package here

import "unsafe"

// Element is the set of types a block can be viewed as. They hold no pointers, so it is safe to
// keep them in memory the garbage collector does not scan.
type Element interface {
	~int8 | ~int16 | ~int32 | ~int64 | ~int |
		~uint8 | ~uint16 | ~uint32 | ~uint64 | ~uint | ~uintptr |
		~float32 | ~float64 | ~complex64 | ~complex128
}

// AllocateSlice allocates a zeroed block large enough for count elements of T
func AllocateSlice[T Element](a *Allocator, count int) (Handle, error) {
	var zero T
	return a.AllocateZeroed(count, int(unsafe.Sizeof(zero)))
}

// Slice views a live block as a slice of T. It returns nil if the handle is not live, or if the
// block's memory is not suitably aligned for T. Trailing bytes that do not make up a whole element
// are not part of the slice.
func Slice[T Element](a *Allocator, h Handle) []T {
	data := a.Bytes(h)
	if data == nil {
		return nil
	}

	var zero T
	elemSize := int(unsafe.Sizeof(zero))
	ptr := unsafe.Pointer(unsafe.SliceData(data))
	if uintptr(ptr)%unsafe.Alignof(zero) != 0 {
		return nil
	}

	count := len(data) / elemSize
	if count == 0 {
		return nil
	}

	return unsafe.Slice((*T)(ptr), count)
}
