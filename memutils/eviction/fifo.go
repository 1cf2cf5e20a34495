package eviction

import (
	"github.com/cockroachdb/errors"
	"github.com/dolthub/swiss"
	"github.com/tirific/memhere/memutils/ledger"
)

type fifoEntry struct {
	handle ledger.Handle
	size   int

	prev *fifoEntry
	next *fifoEntry
}

// FIFO evicts blocks in the order they were marked dispensable
type FIFO struct {
	count int
	head  *fifoEntry
	tail  *fifoEntry
	index *swiss.Map[ledger.Handle, *fifoEntry]
}

var _ Policy = &FIFO{}

func NewFIFO() *FIFO {
	return &FIFO{
		index: swiss.NewMap[ledger.Handle, *fifoEntry](16),
	}
}

func (l *FIFO) Add(handle ledger.Handle, size int) {
	if l.index.Has(handle) {
		panic("attempted to add a handle to the eviction registry twice")
	}

	entry := &fifoEntry{handle: handle, size: size}
	l.index.Put(handle, entry)

	if l.count == 0 {
		l.head = entry
		l.tail = entry
		l.count = 1
	} else {
		entry.prev = l.tail
		l.tail.next = entry

		l.tail = entry
		l.count++
	}
}

func (l *FIFO) Remove(handle ledger.Handle) bool {
	entry, ok := l.index.Get(handle)
	if !ok {
		return false
	}
	l.index.Delete(handle)

	prev := entry.prev
	next := entry.next

	if prev != nil {
		prev.next = next
	} else {
		l.head = next
	}

	if next != nil {
		next.prev = prev
	} else {
		l.tail = prev
	}

	entry.next = nil
	entry.prev = nil

	l.count--
	return true
}

func (l *FIFO) Touch(handle ledger.Handle) {}

func (l *FIFO) Resize(handle ledger.Handle, size int) {
	entry, ok := l.index.Get(handle)
	if ok {
		entry.size = size
	}
}

func (l *FIFO) Contains(handle ledger.Handle) bool {
	return l.index.Has(handle)
}

func (l *FIFO) Len() int {
	return l.count
}

func (l *FIFO) Visit(visitor func(handle ledger.Handle, size int) bool) {
	for entry := l.head; entry != nil; entry = entry.next {
		if !visitor(entry.handle, entry.size) {
			return
		}
	}
}

func (l *FIFO) Validate() error {
	declaredCount := l.count
	actualCount := 0

	var prev *fifoEntry
	for entry := l.head; entry != nil; entry = entry.next {
		if entry.prev != prev {
			return errors.Newf("the registry entry for handle %d has a broken reverse reference", entry.handle)
		}
		indexed, ok := l.index.Get(entry.handle)
		if !ok || indexed != entry {
			return errors.Newf("the registry entry for handle %d is not indexed", entry.handle)
		}
		prev = entry
		actualCount++
	}

	if prev != l.tail {
		return errors.New("the registry tail is not the last entry in the list")
	}

	if declaredCount != actualCount || l.index.Count() != actualCount {
		return errors.Errorf("the listed number of registry entries (%d) does not match the actual number of entries (%d) or indexed entries (%d)", declaredCount, actualCount, l.index.Count())
	}

	return nil
}
