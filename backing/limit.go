package backing

import (
	"sync"

	"github.com/pkg/errors"
)

// Limited caps the number of bytes outstanding from an underlying
// allocator. Requests past the cap fail with ErrExhausted; freeing buffers
// makes room again.
type Limited struct {
	mu    sync.Mutex
	a     Allocator
	limit int
	used  int
}

// Limit returns an allocator that lets at most maxBytes be outstanding
// from a at any one time.
func Limit(a Allocator, maxBytes int) *Limited {
	return &Limited{a: a, limit: maxBytes}
}

func (l *Limited) Allocate(size int) ([]byte, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.used+size > l.limit {
		return nil, errors.Wrapf(ErrExhausted, "limit: %d bytes requested, %d of %d in use",
			size, l.used, l.limit)
	}
	b, err := l.a.Allocate(size)
	if err != nil {
		return nil, err
	}
	l.used += len(b)
	return b, nil
}

func (l *Limited) Free(b []byte) error {
	if err := l.a.Free(b); err != nil {
		return err
	}
	l.mu.Lock()
	l.used -= len(b)
	l.mu.Unlock()
	return nil
}

// SetLimit changes the cap. Lowering it below the bytes in use does not
// reclaim anything, it only blocks further allocations.
func (l *Limited) SetLimit(maxBytes int) {
	l.mu.Lock()
	l.limit = maxBytes
	l.mu.Unlock()
}

// Used returns the bytes currently outstanding.
func (l *Limited) Used() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.used
}
