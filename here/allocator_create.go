package here

import (
	"math"

	"github.com/cockroachdb/errors"
	"github.com/tirific/memhere/here/internal/utils"
	"github.com/tirific/memhere/memutils/eviction"
	"github.com/tirific/memhere/memutils/ledger"
	"github.com/tirific/memhere/sysmem"
	"github.com/vkngwrapper/core/v2/common"
	"golang.org/x/exp/slog"
)

// CreateFlags indicate specific allocator behaviors to activate or deactivate
type CreateFlags int32

var allocatorCreateFlagsMapping = common.NewFlagStringMapping[CreateFlags]()

func (f CreateFlags) Register(str string) {
	allocatorCreateFlagsMapping.Register(f, str)
}
func (f CreateFlags) String() string {
	return allocatorCreateFlagsMapping.FlagsToString(f)
}

const (
	// AllocatorCreateSynchronized causes every method on the allocator to be guarded by an internal
	// mutex. Without it, the consumer must guarantee the allocator is used from only one goroutine
	// at a time or is synchronized by some other mechanism.
	AllocatorCreateSynchronized CreateFlags = 1 << iota
	// AllocatorCreateCollectStatistics enables Report and BuildStatsString. Call counters are
	// maintained either way.
	AllocatorCreateCollectStatistics
)

func init() {
	AllocatorCreateSynchronized.Register("AllocatorCreateSynchronized")
	AllocatorCreateCollectStatistics.Register("AllocatorCreateCollectStatistics")
}

// CreateOptions contains optional settings when creating an allocator
type CreateOptions struct {
	// Flags indicates specific allocator behaviors to activate or deactivate
	Flags CreateFlags
	// MaxBytes is the initial budget. Zero leaves the allocator effectively unlimited.
	MaxBytes int

	// SystemAllocator is the source of real memory. sysmem.DefaultAllocator is used if it is nil.
	SystemAllocator sysmem.Allocator
	// EvictionPolicy selects the order in which dispensable blocks are reclaimed. The zero value
	// is eviction.KindFIFO.
	EvictionPolicy eviction.Kind

	// MemoryCallbackOptions is an optional set of callbacks that will be executed when memory is
	// obtained from or returned to the system allocator, and when a block is evicted
	MemoryCallbackOptions *MemoryCallbackOptions
}

// New creates a new Allocator
//
// logger - The logger that debug output will be written to. slog.Default() is used if it is nil.
//
// options - Optional parameters: it is valid to leave all the fields blank
func New(logger *slog.Logger, options CreateOptions) (*Allocator, error) {
	if options.MaxBytes < 0 {
		return nil, errors.Newf("here.CreateOptions.MaxBytes must not be negative, but was %d", options.MaxBytes)
	}

	registry, err := eviction.New(options.EvictionPolicy)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create the eviction registry")
	}

	if logger == nil {
		logger = slog.Default()
	}

	allocator := &Allocator{
		mutex:       utils.OptionalMutex{UseMutex: options.Flags&AllocatorCreateSynchronized != 0},
		logger:      logger,
		createFlags: options.Flags,
		policyKind:  options.EvictionPolicy,

		system:   options.SystemAllocator,
		ledger:   ledger.New(),
		registry: registry,
	}
	allocator.callbacks = memoryCallbacks{
		Callbacks: options.MemoryCallbackOptions,
		Allocator: allocator,
	}

	if allocator.system == nil {
		allocator.system = sysmem.DefaultAllocator
	}

	if options.MaxBytes == 0 {
		allocator.budget.maxBytes = math.MaxInt
	} else {
		allocator.budget.maxBytes = options.MaxBytes
	}

	return allocator, nil
}
