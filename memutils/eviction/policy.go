package eviction

import (
	"github.com/cockroachdb/errors"
	"github.com/tirific/memhere/memutils/ledger"
)

// Policy is the eviction registry: the set of dispensable blocks, kept in the order in which they
// should be reclaimed. A handle is present at most once. Policies are not safe for concurrent use.
type Policy interface {
	// Add registers a block that has just been marked dispensable
	Add(handle ledger.Handle, size int)
	// Remove unregisters a block, returning false if it was not registered
	Remove(handle ledger.Handle) bool
	// Touch informs the policy that the block was accessed
	Touch(handle ledger.Handle)
	// Resize informs the policy that a registered block changed size
	Resize(handle ledger.Handle, size int)
	Contains(handle ledger.Handle) bool
	Len() int
	// Visit calls visitor for each registered block, next-to-be-evicted first, until visitor
	// returns false
	Visit(visitor func(handle ledger.Handle, size int) bool)
}

// Kind selects one of the built-in policies
type Kind int

const (
	// KindFIFO reclaims the block that was marked dispensable longest ago first
	KindFIFO Kind = iota
	// KindLargestFirst reclaims the largest dispensable block first, breaking ties by the
	// order in which the blocks were marked dispensable
	KindLargestFirst
	// KindLeastRecentlyUsed reclaims the dispensable block that was accessed longest ago first
	KindLeastRecentlyUsed
)

var kindMapping = make(map[Kind]string)

func (k Kind) String() string {
	return kindMapping[k]
}

func init() {
	kindMapping[KindFIFO] = "KindFIFO"
	kindMapping[KindLargestFirst] = "KindLargestFirst"
	kindMapping[KindLeastRecentlyUsed] = "KindLeastRecentlyUsed"
}

// New creates an empty policy of the requested kind
func New(kind Kind) (Policy, error) {
	switch kind {
	case KindFIFO:
		return NewFIFO(), nil
	case KindLargestFirst:
		return NewLargestFirst(), nil
	case KindLeastRecentlyUsed:
		return NewLeastRecentlyUsed(), nil
	}

	return nil, errors.Newf("unknown eviction policy kind %d", int(kind))
}
