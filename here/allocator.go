// Package here is a budget-constrained allocator. Memory is drawn from a system allocator, every
// live block is tracked in a ledger, and the total is held under a configurable ceiling. Callers
// can mark blocks as dispensable with Forget: when a later request would exceed the ceiling, the
// allocator evicts dispensable blocks and writes NullHandle through the caller's own handle
// variable so the loss is visible.
package here

import (
	"github.com/cockroachdb/errors"
	"github.com/tirific/memhere/here/internal/utils"
	"github.com/tirific/memhere/memutils"
	"github.com/tirific/memhere/memutils/eviction"
	"github.com/tirific/memhere/memutils/ledger"
	"github.com/tirific/memhere/sysmem"
	"golang.org/x/exp/slog"
)

// Handle is an opaque reference to a block owned by an Allocator
type Handle = ledger.Handle

// NullHandle is returned by failed operations and written through the owner slot of an evicted block
const NullHandle = ledger.NullHandle

const (
	createdFillPattern   uint8 = 0xDC
	destroyedFillPattern uint8 = 0xEF
)

type validateFunc func() error

func (f validateFunc) Validate() error { return f() }

// Allocator is a budgeted allocator context. Independent Allocators share nothing.
type Allocator struct {
	mutex       utils.OptionalMutex
	logger      *slog.Logger
	createFlags CreateFlags
	policyKind  eviction.Kind

	system    sysmem.Allocator
	ledger    *ledger.Ledger
	registry  eviction.Policy
	budget    budget
	calls     memutils.CallStatistics
	callbacks memoryCallbacks

	victims []Handle
}

// Allocate obtains a block of size bytes. If the request does not fit under the budget,
// dispensable blocks are evicted first; if even that cannot make room, nothing is evicted and
// an error wrapping memutils.ErrOutOfBudget is returned. The contents of the block are unspecified.
func (a *Allocator) Allocate(size int) (Handle, error) {
	a.logger.Debug("Allocator::Allocate", slog.Int("Size", size))

	a.mutex.Lock()
	defer a.mutex.Unlock()
	defer memutils.DebugValidate(validateFunc(a.validate))

	b, err := a.allocateBlock(size)
	if err != nil {
		return NullHandle, err
	}

	fillBlock(b, 0, createdFillPattern)
	return b.Handle(), nil
}

// AllocateZeroed obtains a zeroed block large enough for count elements of size bytes each
func (a *Allocator) AllocateZeroed(count, size int) (Handle, error) {
	a.logger.Debug("Allocator::AllocateZeroed", slog.Int("Count", count), slog.Int("Size", size))

	total, err := memutils.MulSize(count, size)
	if err != nil {
		return NullHandle, err
	}

	a.mutex.Lock()
	defer a.mutex.Unlock()
	defer memutils.DebugValidate(validateFunc(a.validate))

	b, err := a.allocateBlock(total)
	if err != nil {
		return NullHandle, err
	}

	clear(b.Data())
	return b.Handle(), nil
}

func (a *Allocator) allocateBlock(size int) (*ledger.Block, error) {
	if err := memutils.CheckSize(size, "size"); err != nil {
		return nil, err
	}

	err := a.admit(size, NullHandle)
	if err != nil {
		return nil, err
	}

	raw, err := a.system.Allocate(size + memutils.DebugMargin)
	if err != nil {
		a.calls.SystemFailures++
		a.logger.Debug("    Allocator::allocateBlock FAILED", slog.Int("Size", size), slog.Any("Error", err))
		return nil, errors.Wrapf(err, "failed to allocate %d bytes from the system allocator", size)
	}

	memutils.WriteMagicValue(raw, size)
	b := a.ledger.Insert(raw, size)
	a.budget.record(a.ledger.TotalBytes())
	a.calls.Allocations++
	a.callbacks.Allocate(b.Handle(), size)

	return b, nil
}

// Resize changes the size of a live block, keeping its handle. Shrinking always succeeds and never
// evicts. Growing is admitted like an allocation of the difference, but never evicts the block
// being resized. On failure the block is left as it was. A dispensable block stays dispensable.
func (a *Allocator) Resize(h Handle, newSize int) (Handle, error) {
	a.logger.Debug("Allocator::Resize", slog.Uint64("Handle", uint64(h)), slog.Int("Size", newSize))

	if err := memutils.CheckSize(newSize, "newSize"); err != nil {
		return NullHandle, err
	}

	a.mutex.Lock()
	defer a.mutex.Unlock()
	defer memutils.DebugValidate(validateFunc(a.validate))

	b, ok := a.ledger.Get(h)
	if !ok {
		return NullHandle, errors.Wrapf(memutils.ErrUnknownHandle, "failed to resize handle %d", uint64(h))
	}

	oldSize := b.Size()
	if newSize > oldSize {
		err := a.admit(newSize-oldSize, h)
		if err != nil {
			return NullHandle, err
		}
	}

	raw, err := a.system.Reallocate(b.Raw(), newSize+memutils.DebugMargin)
	if err != nil {
		a.calls.SystemFailures++
		a.logger.Debug("    Allocator::Resize FAILED", slog.Uint64("Handle", uint64(h)), slog.Any("Error", err))
		return NullHandle, errors.Wrapf(err, "failed to resize handle %d to %d bytes", uint64(h), newSize)
	}

	memutils.WriteMagicValue(raw, newSize)
	a.ledger.Replace(b, raw, newSize)
	if b.IsDispensable() {
		a.registry.Resize(h, newSize)
		a.registry.Touch(h)
	}
	a.budget.record(a.ledger.TotalBytes())
	a.calls.Resizes++

	fillBlock(b, oldSize, createdFillPattern)
	return h, nil
}

// Release returns a block to the system allocator. If the block was dispensable, its owner slot is
// cleared as though it had been evicted. Releasing NullHandle does nothing; releasing any other
// handle that is not live returns an error wrapping memutils.ErrUnknownHandle.
func (a *Allocator) Release(h Handle) error {
	a.logger.Debug("Allocator::Release", slog.Uint64("Handle", uint64(h)))

	if h == NullHandle {
		return nil
	}

	a.mutex.Lock()
	defer a.mutex.Unlock()
	defer memutils.DebugValidate(validateFunc(a.validate))

	b, ok := a.ledger.Get(h)
	if !ok {
		return errors.Wrapf(memutils.ErrUnknownHandle, "failed to release handle %d", uint64(h))
	}

	if b.IsDispensable() {
		a.registry.Remove(h)
		b.ClearOwner()
	}

	a.calls.Releases++
	return a.freeBlock(b)
}

// freeBlock removes a block from the ledger and returns its memory to the system allocator. The
// block must already be out of the eviction registry.
func (a *Allocator) freeBlock(b *ledger.Block) error {
	handle := b.Handle()
	size := b.Size()
	raw := b.Raw()

	fillBlock(b, 0, destroyedFillPattern)
	a.ledger.Remove(b)

	err := a.system.Free(raw)
	a.callbacks.Free(handle, size)
	if err != nil {
		a.logger.Error("system allocator failed to free memory", slog.Uint64("Handle", uint64(handle)), slog.Int("Size", size), slog.Any("Error", err))
		return errors.Wrapf(err, "failed to free handle %d", uint64(handle))
	}

	return nil
}

// SystemAllocator returns the allocator that blocks are drawn from
func (a *Allocator) SystemAllocator() sysmem.Allocator {
	return a.system
}

// Bytes returns the memory of a live block, or nil if the handle is not live. The slice is valid
// until the block is resized, released or evicted. Under the least-recently-used eviction policy
// this counts as a use of the block.
func (a *Allocator) Bytes(h Handle) []byte {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	b, ok := a.ledger.Get(h)
	if !ok {
		return nil
	}

	if b.IsDispensable() {
		a.registry.Touch(h)
	}

	return b.Data()
}

// Size returns the size of a live block, or 0 if the handle is not live
func (a *Allocator) Size(h Handle) int {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	b, ok := a.ledger.Get(h)
	if !ok {
		return 0
	}
	return b.Size()
}

// IsLive reports whether h names a block that has been neither released nor evicted
func (a *Allocator) IsLive(h Handle) bool {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	return a.ledger.Contains(h)
}

func (a *Allocator) IsDispensable(h Handle) bool {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	b, ok := a.ledger.Get(h)
	return ok && b.IsDispensable()
}

// Destroy releases every live block, clearing the owner slots of dispensable ones. Each block counts
// as a release. The allocator remains usable afterward. Every failure from the system allocator
// is reported.
func (a *Allocator) Destroy() error {
	a.logger.Debug("Allocator::Destroy")

	a.mutex.Lock()
	defer a.mutex.Unlock()

	var blocks []*ledger.Block
	a.ledger.Visit(func(b *ledger.Block) bool {
		blocks = append(blocks, b)
		return true
	})

	var err error
	for _, b := range blocks {
		if b.IsDispensable() {
			a.registry.Remove(b.Handle())
			b.ClearOwner()
		}

		a.calls.Releases++
		err = errors.CombineErrors(err, a.freeBlock(b))
	}

	return err
}

// Validate checks the internal consistency of the allocator: the ledger must agree with itself,
// and the eviction registry must hold exactly the dispensable blocks
func (a *Allocator) Validate() error {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	return a.validate()
}

func (a *Allocator) validate() error {
	err := a.ledger.Validate()
	if err != nil {
		return err
	}

	if validatable, ok := a.registry.(memutils.Validatable); ok {
		err = validatable.Validate()
		if err != nil {
			return err
		}
	}

	dispensableCount := 0
	a.ledger.Visit(func(b *ledger.Block) bool {
		if !b.IsDispensable() {
			if a.registry.Contains(b.Handle()) {
				err = errors.Newf("block %d is in the eviction registry but is not dispensable", uint64(b.Handle()))
			}
			return err == nil
		}

		dispensableCount++
		if !a.registry.Contains(b.Handle()) {
			err = errors.Newf("block %d is dispensable but is missing from the eviction registry", uint64(b.Handle()))
		}
		return err == nil
	})
	if err != nil {
		return err
	}

	if dispensableCount != a.registry.Len() {
		return errors.Newf("the eviction registry holds %d blocks but the ledger has %d dispensable blocks", a.registry.Len(), dispensableCount)
	}

	a.registry.Visit(func(handle ledger.Handle, size int) bool {
		b, ok := a.ledger.Get(handle)
		if !ok {
			err = errors.Newf("the eviction registry holds handle %d, which is not live", uint64(handle))
		} else if b.Size() != size {
			err = errors.Newf("the eviction registry lists block %d at %d bytes but it has %d", uint64(handle), size, b.Size())
		}
		return err == nil
	})
	if err != nil {
		return err
	}

	if a.budget.peakBytes < a.ledger.TotalBytes() {
		return errors.Newf("peak usage %d is below current usage %d", a.budget.peakBytes, a.ledger.TotalBytes())
	}

	return nil
}

// CheckCorruption verifies the debug margin after every live block. It returns an error if the
// allocator was built without the debug_mem_utils build tag, since there is nothing to check.
func (a *Allocator) CheckCorruption() error {
	a.logger.Debug("Allocator::CheckCorruption")

	if memutils.DebugMargin == 0 {
		return errors.New("corruption detection requires the debug_mem_utils build tag")
	}

	a.mutex.Lock()
	defer a.mutex.Unlock()

	var err error
	a.ledger.Visit(func(b *ledger.Block) bool {
		if !memutils.ValidateMagicValue(b.Raw(), b.Size()) {
			err = errors.Newf("memory corruption detected after block %d of size %d", uint64(b.Handle()), b.Size())
		}
		return err == nil
	})

	return err
}
