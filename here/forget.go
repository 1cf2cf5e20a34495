package here

import (
	"github.com/tirific/memhere/memutils"
	"github.com/tirific/memhere/memutils/ledger"
	"golang.org/x/exp/slog"
)

// Forget marks the block named by *slot as dispensable. If a later request cannot otherwise fit
// under the budget, the block may be evicted, in which case NullHandle is written to *slot. slot
// must stay valid until the block is remembered, released or evicted.
//
// Forgetting a nil slot, a slot holding a handle that is not live, or a block that is already
// dispensable does nothing.
func (a *Allocator) Forget(slot *Handle) {
	if slot == nil {
		return
	}

	a.mutex.Lock()
	defer a.mutex.Unlock()
	defer memutils.DebugValidate(validateFunc(a.validate))

	a.logger.Debug("Allocator::Forget", slog.Uint64("Handle", uint64(*slot)))

	b, ok := a.ledger.Get(*slot)
	if !ok || b.IsDispensable() {
		return
	}

	b.MarkDispensable(slot)
	a.registry.Add(b.Handle(), b.Size())
	a.calls.Forgets++
}

// Remember takes the block named by *slot back out of eviction candidacy and returns its handle.
// If the block has already been evicted, *slot holds NullHandle and NullHandle is returned: this is
// how callers discover that the block must be rebuilt. Remembering a block that is not
// dispensable returns its handle and does nothing else.
func (a *Allocator) Remember(slot *Handle) Handle {
	if slot == nil {
		return NullHandle
	}

	a.mutex.Lock()
	defer a.mutex.Unlock()
	defer memutils.DebugValidate(validateFunc(a.validate))

	a.logger.Debug("Allocator::Remember", slog.Uint64("Handle", uint64(*slot)))

	b, ok := a.ledger.Get(*slot)
	if !ok {
		return NullHandle
	}

	if b.IsDispensable() {
		a.registry.Remove(b.Handle())
		b.MarkIndispensable()
		a.calls.Remembers++
	}

	return b.Handle()
}

// Tidy evicts every dispensable block whose owner slot no longer names it, which happens when the
// owner overwrote its handle variable without releasing the block. It returns the number of bytes
// reclaimed.
func (a *Allocator) Tidy() int {
	a.logger.Debug("Allocator::Tidy")

	a.mutex.Lock()
	defer a.mutex.Unlock()
	defer memutils.DebugValidate(validateFunc(a.validate))

	a.victims = a.victims[:0]
	a.registry.Visit(func(handle ledger.Handle, size int) bool {
		b, ok := a.ledger.Get(handle)
		if ok && !b.OwnerHoldsHandle() {
			a.victims = append(a.victims, handle)
		}
		return true
	})

	reclaimed := 0
	for _, handle := range a.victims {
		reclaimed += a.evict(handle)
	}

	return reclaimed
}
