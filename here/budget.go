package here

import (
	"math"

	"github.com/cockroachdb/errors"
	"github.com/tirific/memhere/memutils"
	"github.com/tirific/memhere/memutils/ledger"
	"golang.org/x/exp/slog"
)

type budget struct {
	maxBytes  int
	peakBytes int
}

func (b *budget) record(usedBytes int) {
	if usedBytes > b.peakBytes {
		b.peakBytes = usedBytes
	}
}

// Budget returns the current ceiling in bytes. An allocator that was never given a budget
// reports math.MaxInt.
func (a *Allocator) Budget() int {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	return a.budget.maxBytes
}

// SetBudget changes the ceiling. It takes effect on the next request: lowering it below current
// usage does not evict anything by itself. Negative values are treated as 0.
func (a *Allocator) SetBudget(maxBytes int) {
	a.logger.Debug("Allocator::SetBudget", slog.Int("MaxBytes", maxBytes))

	a.mutex.Lock()
	defer a.mutex.Unlock()

	if maxBytes < 0 {
		maxBytes = 0
	}
	a.budget.maxBytes = maxBytes
}

// ResetBudget makes the allocator effectively unlimited again
func (a *Allocator) ResetBudget() {
	a.SetBudget(math.MaxInt)
}

// Used returns the sum of the sizes of all live blocks
func (a *Allocator) Used() int {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	return a.ledger.TotalBytes()
}

// Peak returns the highest value Used has reached
func (a *Allocator) Peak() int {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	return a.budget.peakBytes
}

// admit makes room for extra more bytes, evicting dispensable blocks in policy order if needed.
// The block named by exclude is never chosen. Either enough blocks are evicted to fit the
// request or nothing is evicted at all.
func (a *Allocator) admit(extra int, exclude Handle) error {
	usedBytes := a.ledger.TotalBytes()

	if extra > a.budget.maxBytes {
		a.calls.AdmissionFailures++
		return errors.Wrapf(memutils.ErrOutOfBudget, "%d bytes requested with a budget of %d", extra, a.budget.maxBytes)
	}

	shortfall := usedBytes - (a.budget.maxBytes - extra)
	if shortfall <= 0 {
		return nil
	}

	victims, reclaimable := a.selectVictims(shortfall, exclude)
	if reclaimable < shortfall {
		a.calls.AdmissionFailures++
		a.logger.Debug("    Allocator::admit FAILED", slog.Int("Shortfall", shortfall), slog.Int("Reclaimable", reclaimable))
		return errors.Wrapf(memutils.ErrOutOfBudget, "%d bytes requested with %d of %d in use, and only %d can be reclaimed",
			extra, usedBytes, a.budget.maxBytes, reclaimable)
	}

	for _, handle := range victims {
		a.evict(handle)
	}

	return nil
}

// selectVictims walks the eviction registry in policy order, collecting handles until their sizes
// add up to target or the registry runs out
func (a *Allocator) selectVictims(target int, exclude Handle) ([]Handle, int) {
	a.victims = a.victims[:0]
	reclaimable := 0

	a.registry.Visit(func(handle ledger.Handle, size int) bool {
		if handle == exclude {
			return true
		}

		a.victims = append(a.victims, handle)
		reclaimable += size
		return reclaimable < target
	})

	return a.victims, reclaimable
}

// evict frees a dispensable block on its owner's behalf, clearing the owner slot if it still
// names the block, and returns the number of bytes reclaimed
func (a *Allocator) evict(handle Handle) int {
	b, ok := a.ledger.Get(handle)
	if !ok || !b.IsDispensable() {
		panic("attempted to evict a block that is not dispensable")
	}

	size := b.Size()
	a.logger.Debug("Allocator::evict", slog.Uint64("Handle", uint64(handle)), slog.Int("Size", size))

	a.registry.Remove(handle)
	b.ClearOwner()

	a.calls.Evictions++
	a.calls.EvictedBytes += size

	// The block is out of the ledger whether or not the system allocator accepts the memory back,
	// and freeBlock has already logged the failure
	_ = a.freeBlock(b)
	a.callbacks.Evict(handle, size)

	return size
}
