package eviction

import (
	"math"

	"github.com/hashicorp/golang-lru/v2/simplelru"
	"github.com/tirific/memhere/memutils/ledger"
)

// LeastRecentlyUsed evicts the dispensable block that was accessed longest ago first. Marking a
// block dispensable, resizing it, and reading it through the allocator all count as accesses.
type LeastRecentlyUsed struct {
	lru *simplelru.LRU[ledger.Handle, int]
}

var _ Policy = &LeastRecentlyUsed{}

func NewLeastRecentlyUsed() *LeastRecentlyUsed {
	// The registry is unbounded: blocks only leave it through the allocator, never because
	// the LRU itself filled up
	lru, err := simplelru.NewLRU[ledger.Handle, int](math.MaxInt, nil)
	if err != nil {
		panic(err)
	}

	return &LeastRecentlyUsed{lru: lru}
}

func (p *LeastRecentlyUsed) Add(handle ledger.Handle, size int) {
	if p.lru.Contains(handle) {
		panic("attempted to add a handle to the eviction registry twice")
	}
	p.lru.Add(handle, size)
}

func (p *LeastRecentlyUsed) Remove(handle ledger.Handle) bool {
	return p.lru.Remove(handle)
}

func (p *LeastRecentlyUsed) Touch(handle ledger.Handle) {
	p.lru.Get(handle)
}

func (p *LeastRecentlyUsed) Resize(handle ledger.Handle, size int) {
	if p.lru.Contains(handle) {
		p.lru.Add(handle, size)
	}
}

func (p *LeastRecentlyUsed) Contains(handle ledger.Handle) bool {
	return p.lru.Contains(handle)
}

func (p *LeastRecentlyUsed) Len() int {
	return p.lru.Len()
}

func (p *LeastRecentlyUsed) Visit(visitor func(handle ledger.Handle, size int) bool) {
	for _, handle := range p.lru.Keys() {
		size, _ := p.lru.Peek(handle)
		if !visitor(handle, size) {
			return
		}
	}
}
