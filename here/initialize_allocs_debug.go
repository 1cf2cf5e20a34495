//go:build debug_init_allocs

package here

import "github.com/tirific/memhere/memutils/ledger"

const (
	// InitializeAllocs causes all new allocations to be filled with deterministic data.
	// If you are concerned that nondeterministic initialization of memory is causing a bug,
	// you can activate this to help diagnose the issue. It impacts performance and should
	// generally be left deactivated.
	InitializeAllocs bool = true
)

// fillBlock writes pattern over the block's data starting at from
func fillBlock(b *ledger.Block, from int, pattern uint8) {
	data := b.Data()
	for i := from; i < len(data); i++ {
		data[i] = pattern
	}
}
