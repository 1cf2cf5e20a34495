package ledger

import (
	"github.com/cockroachdb/errors"
	"github.com/dolthub/swiss"
)

// Ledger tracks every block an allocator currently has live. It is not safe for concurrent use.
type Ledger struct {
	nextHandle Handle
	blocks     *swiss.Map[Handle, *Block]
	totalBytes int
}

func New() *Ledger {
	return &Ledger{
		blocks: swiss.NewMap[Handle, *Block](42),
	}
}

// Insert registers a new, non-dispensable block and returns it. raw must be at least size bytes.
func (l *Ledger) Insert(raw []byte, size int) *Block {
	if len(raw) < size {
		panic("attempted to register a block whose memory is smaller than its size")
	}

	l.nextHandle++

	b := blockAllocator.Get().(*Block)
	b.handle = l.nextHandle
	b.raw = raw
	b.size = size
	b.dispensable = false
	b.owner = nil

	l.blocks.Put(b.handle, b)
	l.totalBytes += size

	return b
}

func (l *Ledger) Get(handle Handle) (*Block, bool) {
	if handle == NullHandle {
		return nil, false
	}
	return l.blocks.Get(handle)
}

// Contains reports whether handle names a live block
func (l *Ledger) Contains(handle Handle) bool {
	if handle == NullHandle {
		return false
	}
	return l.blocks.Has(handle)
}

// Replace swaps the memory behind a block after the system allocator resized it
func (l *Ledger) Replace(b *Block, raw []byte, size int) {
	if len(raw) < size {
		panic("attempted to resize a block to memory smaller than its size")
	}

	l.totalBytes += size - b.size
	b.raw = raw
	b.size = size
}

// Remove unregisters a block. The block must not be used after this call.
func (l *Ledger) Remove(b *Block) {
	if !l.blocks.Delete(b.handle) {
		panic("attempted to remove a block that is not in the ledger")
	}
	l.totalBytes -= b.size

	b.raw = nil
	b.owner = nil
	b.dispensable = false
	b.handle = NullHandle
	blockAllocator.Put(b)
}

func (l *Ledger) Count() int { return l.blocks.Count() }

// TotalBytes is the sum of Size over every live block
func (l *Ledger) TotalBytes() int { return l.totalBytes }

// Visit calls visitor for every live block in no particular order, stopping early if it
// returns false
func (l *Ledger) Visit(visitor func(b *Block) bool) {
	l.blocks.Iter(func(handle Handle, b *Block) bool {
		return !visitor(b)
	})
}

// Validate checks the internal consistency of the ledger
func (l *Ledger) Validate() error {
	var err error
	calculatedBytes := 0

	l.blocks.Iter(func(handle Handle, b *Block) bool {
		switch {
		case handle != b.handle:
			err = errors.Newf("block %d is registered under handle %d", b.handle, handle)
		case handle == NullHandle || handle > l.nextHandle:
			err = errors.Newf("block has handle %d, which was never issued", handle)
		case b.size <= 0:
			err = errors.Newf("block %d has non-positive size %d", handle, b.size)
		case len(b.raw) < b.size:
			err = errors.Newf("block %d has size %d but only %d bytes of memory", handle, b.size, len(b.raw))
		case b.dispensable && b.owner == nil:
			err = errors.Newf("block %d is dispensable but has no owner slot", handle)
		case !b.dispensable && b.owner != nil:
			err = errors.Newf("block %d has an owner slot but is not dispensable", handle)
		}

		calculatedBytes += b.size
		return err != nil
	})

	if err != nil {
		return err
	}

	if calculatedBytes != l.totalBytes {
		return errors.Newf("the ledger lists %d total bytes but its blocks add up to %d", l.totalBytes, calculatedBytes)
	}

	return nil
}
