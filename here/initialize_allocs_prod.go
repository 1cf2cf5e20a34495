//go:build !debug_init_allocs

package here

import "github.com/tirific/memhere/memutils/ledger"

const (
	// InitializeAllocs causes all new allocations to be filled with deterministic data.
	// If you are concerned that nondeterministic initialization of memory is causing a bug,
	// you can activate this with the debug_init_allocs build tag to help diagnose the issue.
	InitializeAllocs bool = false
)

func fillBlock(b *ledger.Block, from int, pattern uint8) {}
