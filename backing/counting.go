package backing

import "sync/atomic"

// Counting tracks how many buffers and bytes are outstanding from the
// allocator it wraps.
type Counting struct {
	a      Allocator
	allocs atomic.Int64
	bytes  atomic.Int64
}

// Count wraps a.
func Count(a Allocator) *Counting {
	return &Counting{a: a}
}

func (c *Counting) Allocate(size int) ([]byte, error) {
	b, err := c.a.Allocate(size)
	if err != nil {
		return nil, err
	}
	c.allocs.Add(1)
	c.bytes.Add(int64(len(b)))
	return b, nil
}

func (c *Counting) Free(b []byte) error {
	if err := c.a.Free(b); err != nil {
		return err
	}
	c.allocs.Add(-1)
	c.bytes.Add(-int64(len(b)))
	return nil
}

// Outstanding returns the buffers and bytes not yet freed.
func (c *Counting) Outstanding() (allocs, bytes int64) {
	return c.allocs.Load(), c.bytes.Load()
}
