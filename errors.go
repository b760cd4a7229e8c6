package fixedpool

import "github.com/pkg/errors"

var (
	// ErrBackingAllocation wraps a failure of the storage or metadata
	// backing allocator while growing the chain. The allocator stays
	// usable and later calls may succeed.
	ErrBackingAllocation = errors.New("fixedpool: backing allocation failed")

	// ErrUnknownPointer is returned when a pointer handed to Deallocate
	// does not address a slot of this allocator.
	ErrUnknownPointer = errors.New("fixedpool: pointer not owned by allocator")

	// ErrDoubleFree is returned when the slot addressed by a pointer is
	// already free.
	ErrDoubleFree = errors.New("fixedpool: slot already free")

	// ErrConsistency reports a broken internal invariant.
	ErrConsistency = errors.New("fixedpool: consistency violation")

	// ErrMisaligned is returned when a backing allocator hands out a
	// buffer not aligned for the element type.
	ErrMisaligned = errors.New("fixedpool: misaligned backing buffer")

	// ErrInvalidConfig is returned by New for an unusable configuration
	// or element type.
	ErrInvalidConfig = errors.New("fixedpool: invalid configuration")

	// ErrReleased is returned by operations on a released allocator.
	ErrReleased = errors.New("fixedpool: allocator released")

	// ErrNotInitialized is returned by Shared before InitShared.
	ErrNotInitialized = errors.New("fixedpool: shared allocators not initialized")
)

// ErrAlreadyInitialized is returned by a second InitShared without an
// intervening ReleaseShared.
var ErrAlreadyInitialized = errors.New("fixedpool: shared allocators already initialized")

// growthError carries the cause of a failed pool creation while matching
// ErrBackingAllocation.
type growthError struct {
	what string
	err  error
}

func (e *growthError) Error() string {
	return ErrBackingAllocation.Error() + ": " + e.what + ": " + e.err.Error()
}

func (e *growthError) Unwrap() error { return e.err }

func (e *growthError) Is(target error) bool { return target == ErrBackingAllocation }
