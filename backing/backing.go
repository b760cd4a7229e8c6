// Package backing supplies the raw memory that fixed-size pools carve into
// slots. A pool asks one Allocator for its slot storage and, possibly
// another, for its occupancy bitmap, so bulk data and bookkeeping can live
// under different memory policies.
package backing

import "github.com/pkg/errors"

var (
	// ErrExhausted is returned when an allocator cannot satisfy a request.
	// Callers may retry once capacity has been freed.
	ErrExhausted = errors.New("backing: allocator exhausted")

	// ErrUnsupported is returned by allocators that are not available on
	// the running platform.
	ErrUnsupported = errors.New("backing: not supported on this platform")

	// ErrInvalidSize is returned for non-positive allocation sizes.
	ErrInvalidSize = errors.New("backing: invalid allocation size")
)

// Allocator hands out raw byte buffers and takes them back.
//
// Allocate must return a buffer of exactly size bytes or an error. Free
// receives a buffer previously returned by Allocate on the same allocator,
// unmodified in length.
type Allocator interface {
	Allocate(size int) ([]byte, error)
	Free(b []byte) error
}
