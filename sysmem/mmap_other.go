//go:build !unix

package sysmem

// MmapAllocator falls back to the Go heap on platforms without anonymous mappings
type MmapAllocator struct {
	GoAllocator
}

func NewMmapAllocator() *MmapAllocator {
	return &MmapAllocator{GoAllocator: *NewGoAllocator()}
}
