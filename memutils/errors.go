package memutils

import "github.com/pkg/errors"

// PowerOfTwoError is the error returned from CheckPow2 or other methods if the number being tested is not a power of two
var PowerOfTwoError error = errors.New("number must be a power of two")

var (
	// ErrInvalidSize is returned when an allocation or resize requests zero or a negative number of bytes
	ErrInvalidSize error = errors.New("allocation size must be positive")
	// ErrSizeOverflow is returned when count*size of a zeroed allocation does not fit in an int
	ErrSizeOverflow error = errors.New("allocation size overflows int")
	// ErrOutOfBudget is returned when a request cannot be admitted under the memory budget, even after
	// every dispensable block that could be reclaimed has been considered
	ErrOutOfBudget error = errors.New("allocation exceeds the memory budget")
	// ErrUnknownHandle is returned when a handle that is not live in the ledger is resized or released
	ErrUnknownHandle error = errors.New("handle is not tracked by this allocator")
	// ErrStatisticsDisabled is returned from reporting methods when the allocator was created without
	// statistics collection
	ErrStatisticsDisabled error = errors.New("statistics collection is not enabled")
)
