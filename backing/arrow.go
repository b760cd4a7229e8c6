package backing

import (
	"fmt"

	"github.com/apache/arrow/go/v17/arrow/memory"
	"github.com/pkg/errors"
)

// arrowAllocator adapts an Arrow memory.Allocator, which signals failure by
// panicking, to the error-returning Allocator contract.
type arrowAllocator struct {
	mem memory.Allocator
}

// FromArrow wraps mem so it can back a pool. memory.NewCheckedAllocator is
// handy here for tracking leaks in tests.
func FromArrow(mem memory.Allocator) Allocator {
	return &arrowAllocator{mem: mem}
}

// Go returns an allocator on the Go heap. Buffers are 64-byte aligned.
func Go() Allocator {
	return FromArrow(memory.NewGoAllocator())
}

func (a *arrowAllocator) Allocate(size int) (b []byte, err error) {
	if size <= 0 {
		return nil, errors.Wrapf(ErrInvalidSize, "arrow: %d bytes", size)
	}

	defer func() {
		if r := recover(); r != nil {
			b = nil
			err = errors.Wrapf(ErrExhausted, "arrow: allocating %d bytes: %v", size, r)
		}
	}()

	b = a.mem.Allocate(size)
	if len(b) != size {
		panic(fmt.Sprintf("short buffer of %d bytes", len(b)))
	}
	return b, nil
}

func (a *arrowAllocator) Free(b []byte) error {
	a.mem.Free(b)
	return nil
}
