// Package global exposes a single process-wide budgeted allocator in the manner of malloc and
// free. Every function is serialized by one lock, so the package is safe to call from any
// goroutine. Programs that can thread an allocator through their code should use here.New instead.
package global

import (
	"io"
	"os"
	"sync"

	"github.com/Jille/easymutex"
	"github.com/cockroachdb/errors"
	"github.com/tirific/memhere/here"
	"github.com/tirific/memhere/memutils"
	"github.com/tirific/memhere/sysmem"
)

var (
	mtx       sync.Mutex
	allocator *here.Allocator
)

// current returns the installed allocator, creating the default one on first use. mtx must be held.
func current() *here.Allocator {
	if allocator == nil {
		var err error
		allocator, err = here.New(nil, here.CreateOptions{
			Flags: here.AllocatorCreateCollectStatistics,
		})
		if err != nil {
			panic(errors.Wrap(err, "failed to create the default allocator"))
		}
	}

	return allocator
}

// Install replaces the process-wide allocator and returns the previous one, or nil if none had
// been created yet. The previous allocator keeps its blocks. a must not be used other than through
// this package afterward.
func Install(a *here.Allocator) *here.Allocator {
	if a == nil {
		panic("attempted to install a nil allocator")
	}

	mtx.Lock()
	defer mtx.Unlock()

	previous := allocator
	allocator = a
	return previous
}

// Default returns the process-wide allocator. Calls made on it directly are not serialized with
// the rest of this package.
func Default() *here.Allocator {
	mtx.Lock()
	defer mtx.Unlock()

	return current()
}

func Malloc(size int) (here.Handle, error) {
	mtx.Lock()
	defer mtx.Unlock()

	return current().Allocate(size)
}

func Calloc(count, size int) (here.Handle, error) {
	mtx.Lock()
	defer mtx.Unlock()

	return current().AllocateZeroed(count, size)
}

// Realloc resizes a block. As with realloc, a NullHandle allocates a new block, and a size of 0
// releases h and returns NullHandle.
func Realloc(h here.Handle, size int) (here.Handle, error) {
	mtx.Lock()
	defer mtx.Unlock()

	if h == here.NullHandle {
		return current().Allocate(size)
	}
	if size == 0 {
		return here.NullHandle, current().Release(h)
	}
	return current().Resize(h, size)
}

func Free(h here.Handle) error {
	mtx.Lock()
	defer mtx.Unlock()

	return current().Release(h)
}

// Bytes returns the memory of a live block, or nil if it has been released or evicted
func Bytes(h here.Handle) []byte {
	mtx.Lock()
	defer mtx.Unlock()

	return current().Bytes(h)
}

func Forget(slot *here.Handle) {
	mtx.Lock()
	defer mtx.Unlock()

	current().Forget(slot)
}

func Remember(slot *here.Handle) here.Handle {
	mtx.Lock()
	defer mtx.Unlock()

	return current().Remember(slot)
}

// Tidy evicts dispensable blocks whose owners have dropped them and returns the bytes reclaimed
func Tidy() int {
	mtx.Lock()
	defer mtx.Unlock()

	return current().Tidy()
}

// MaxMem returns the process-wide budget
func MaxMem() int {
	mtx.Lock()
	defer mtx.Unlock()

	return current().Budget()
}

// SetMaxMem changes the process-wide budget, taking effect on the next request
func SetMaxMem(maxBytes int) {
	mtx.Lock()
	defer mtx.Unlock()

	current().SetBudget(maxBytes)
}

// MemAlloc returns the number of bytes currently allocated through this package
func MemAlloc() int {
	mtx.Lock()
	defer mtx.Unlock()

	return current().Used()
}

// MemStat writes the allocator's statistics to w, or to standard error if w is nil
func MemStat(w io.Writer) error {
	em := easymutex.LockMutex(&mtx)
	defer em.Unlock()

	stats, err := current().BuildStatsString(false)
	em.Unlock()
	if err != nil {
		return err
	}

	if w == nil {
		w = os.Stderr
	}
	_, err = io.WriteString(w, stats+"\n")
	return err
}

// MallocNormal obtains memory directly from the system allocator. It is not tracked, counted
// against the budget, or ever evicted.
func MallocNormal(size int) ([]byte, error) {
	if err := memutils.CheckSize(size, "size"); err != nil {
		return nil, err
	}

	return systemAllocator().Allocate(size)
}

// CallocNormal obtains zeroed memory directly from the system allocator
func CallocNormal(count, size int) ([]byte, error) {
	total, err := memutils.MulSize(count, size)
	if err != nil {
		return nil, err
	}

	b, err := systemAllocator().Allocate(total)
	if err != nil {
		return nil, err
	}

	clear(b)
	return b, nil
}

// ReallocNormal resizes memory obtained from MallocNormal or CallocNormal. A nil slice allocates.
func ReallocNormal(b []byte, size int) ([]byte, error) {
	if err := memutils.CheckSize(size, "size"); err != nil {
		return nil, err
	}

	if b == nil {
		return systemAllocator().Allocate(size)
	}
	return systemAllocator().Reallocate(b, size)
}

// FreeNormal returns memory obtained from MallocNormal, CallocNormal or ReallocNormal. A nil
// slice is ignored.
func FreeNormal(b []byte) error {
	if b == nil {
		return nil
	}

	return systemAllocator().Free(b)
}

func systemAllocator() sysmem.Allocator {
	mtx.Lock()
	defer mtx.Unlock()

	return current().SystemAllocator()
}
