package ledger

import "sync"

// Handle is an opaque reference to a block in a Ledger. Handles are never reused by a single
// Ledger, so a stale handle can be detected by looking it up.
type Handle uint64

// NullHandle is the invalid handle. It is what allocation failures return and what is written
// through an owner slot when the block it named is evicted.
const NullHandle Handle = 0

var blockAllocator = sync.Pool{
	New: func() any {
		return &Block{}
	},
}

// Block is the ledger record for one live allocation
type Block struct {
	handle Handle
	raw    []byte
	size   int

	dispensable bool
	owner       *Handle
}

func (b *Block) Handle() Handle { return b.handle }

// Size is the number of bytes the owner asked for, which is the amount charged against the budget
func (b *Block) Size() int { return b.size }

// Data is the caller-visible memory of the block
func (b *Block) Data() []byte { return b.raw[:b.size:b.size] }

// Raw is the memory exactly as it was returned from the system allocator, which may extend
// past Size to hold debug margins
func (b *Block) Raw() []byte { return b.raw }

func (b *Block) IsDispensable() bool { return b.dispensable }

// Owner is the slot registered with MarkDispensable, or nil if the block is not dispensable
func (b *Block) Owner() *Handle { return b.owner }

// OwnerHoldsHandle reports whether the registered owner slot still names this block
func (b *Block) OwnerHoldsHandle() bool {
	return b.owner != nil && *b.owner == b.handle
}

// MarkDispensable records the owner slot that will be cleared if the block is evicted
func (b *Block) MarkDispensable(owner *Handle) {
	if owner == nil {
		panic("attempted to mark a block dispensable without an owner slot")
	}
	b.dispensable = true
	b.owner = owner
}

func (b *Block) MarkIndispensable() {
	b.dispensable = false
	b.owner = nil
}

// ClearOwner writes NullHandle through the owner slot if it still names this block. It returns
// true if the slot was written.
func (b *Block) ClearOwner() bool {
	if !b.OwnerHoldsHandle() {
		return false
	}

	*b.owner = NullHandle
	return true
}
