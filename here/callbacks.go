package here

// AllocateMemoryCallback is called after the system allocator hands out the memory for a block
type AllocateMemoryCallback func(
	allocator *Allocator,
	handle Handle,
	size int,
	userData interface{},
)

// FreeMemoryCallback is called after a block's memory is returned to the system allocator,
// whether it was released or evicted
type FreeMemoryCallback func(
	allocator *Allocator,
	handle Handle,
	size int,
	userData interface{},
)

// EvictMemoryCallback is called after a dispensable block is evicted
type EvictMemoryCallback func(
	allocator *Allocator,
	handle Handle,
	size int,
	userData interface{},
)

// MemoryCallbackOptions holds callbacks that observe the allocator. The callbacks run while the
// allocator is in the middle of an operation and must not call back into it.
type MemoryCallbackOptions struct {
	Allocate AllocateMemoryCallback
	Free     FreeMemoryCallback
	Evict    EvictMemoryCallback
	UserData interface{}
}

type memoryCallbacks struct {
	Callbacks *MemoryCallbackOptions
	Allocator *Allocator
}

func (c *memoryCallbacks) Allocate(handle Handle, size int) {
	if c.Callbacks != nil && c.Callbacks.Allocate != nil {
		c.Callbacks.Allocate(c.Allocator, handle, size, c.Callbacks.UserData)
	}
}

func (c *memoryCallbacks) Free(handle Handle, size int) {
	if c.Callbacks != nil && c.Callbacks.Free != nil {
		c.Callbacks.Free(c.Allocator, handle, size, c.Callbacks.UserData)
	}
}

func (c *memoryCallbacks) Evict(handle Handle, size int) {
	if c.Callbacks != nil && c.Callbacks.Evict != nil {
		c.Callbacks.Evict(c.Allocator, handle, size, c.Callbacks.UserData)
	}
}
