package eviction

import (
	"github.com/dolthub/swiss"
	"github.com/google/btree"
	"github.com/tirific/memhere/memutils/ledger"
)

type sizedEntry struct {
	handle ledger.Handle
	size   int
	seq    uint64
}

func largestFirst(left, right sizedEntry) bool {
	if left.size != right.size {
		return left.size > right.size
	}
	return left.seq < right.seq
}

// LargestFirst evicts the largest dispensable block first, so that as few blocks as possible are
// lost to satisfy a request
type LargestFirst struct {
	tree    *btree.BTreeG[sizedEntry]
	index   *swiss.Map[ledger.Handle, sizedEntry]
	nextSeq uint64
}

var _ Policy = &LargestFirst{}

func NewLargestFirst() *LargestFirst {
	return &LargestFirst{
		tree:  btree.NewG[sizedEntry](8, largestFirst),
		index: swiss.NewMap[ledger.Handle, sizedEntry](16),
	}
}

func (p *LargestFirst) Add(handle ledger.Handle, size int) {
	if p.index.Has(handle) {
		panic("attempted to add a handle to the eviction registry twice")
	}

	p.nextSeq++
	entry := sizedEntry{handle: handle, size: size, seq: p.nextSeq}
	p.index.Put(handle, entry)
	p.tree.ReplaceOrInsert(entry)
}

func (p *LargestFirst) Remove(handle ledger.Handle) bool {
	entry, ok := p.index.Get(handle)
	if !ok {
		return false
	}

	p.index.Delete(handle)
	p.tree.Delete(entry)
	return true
}

func (p *LargestFirst) Touch(handle ledger.Handle) {}

func (p *LargestFirst) Resize(handle ledger.Handle, size int) {
	entry, ok := p.index.Get(handle)
	if !ok {
		return
	}

	p.tree.Delete(entry)
	entry.size = size
	p.index.Put(handle, entry)
	p.tree.ReplaceOrInsert(entry)
}

func (p *LargestFirst) Contains(handle ledger.Handle) bool {
	return p.index.Has(handle)
}

func (p *LargestFirst) Len() int {
	return p.tree.Len()
}

func (p *LargestFirst) Visit(visitor func(handle ledger.Handle, size int) bool) {
	p.tree.Ascend(func(entry sizedEntry) bool {
		return visitor(entry.handle, entry.size)
	})
}
