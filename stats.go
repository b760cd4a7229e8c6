package fixedpool

import (
	"strings"
	"unsafe"

	"github.com/pkg/errors"
)

// Stats is a snapshot of an allocator's accounting.
type Stats struct {
	Pools        int
	SlotsPerPool uint
	SlotSize     uintptr
	PoolSize     uintptr
	Blocks       uint
	Available    uint
	Allocated    uintptr
	Total        uintptr
}

// AllocatedSize returns the bytes handed out to callers.
func (a *Allocator[T]) AllocatedSize() uintptr {
	a.mu.Lock()
	defer a.mu.Unlock()
	return uintptr(a.numBlocks) * a.slotSize
}

// TotalSize returns the bytes reserved by all pools, bookkeeping included.
func (a *Allocator[T]) TotalSize() uintptr {
	a.mu.Lock()
	defer a.mu.Unlock()
	return uintptr(a.poolCount()) * a.poolSize()
}

// PoolCount returns the number of pools in the chain.
func (a *Allocator[T]) PoolCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.poolCount()
}

// PoolSize returns the bytes one pool occupies: its slots, its bitmap and
// its header.
func (a *Allocator[T]) PoolSize() uintptr {
	return a.poolSize()
}

// SlotsPerPool returns the fixed number of slots in each pool.
func (a *Allocator[T]) SlotsPerPool() uint {
	return a.cfg.SlotsPerPool
}

// SlotSize returns the size of one slot, which is the size of T.
func (a *Allocator[T]) SlotSize() uintptr {
	return a.slotSize
}

// Stats returns all accounting figures taken under one lock.
func (a *Allocator[T]) Stats() Stats {
	a.mu.Lock()
	defer a.mu.Unlock()

	s := Stats{
		Pools:        a.poolCount(),
		SlotsPerPool: a.cfg.SlotsPerPool,
		SlotSize:     a.slotSize,
		PoolSize:     a.poolSize(),
		Blocks:       a.numBlocks,
	}
	for p := a.head; p != nil; p = p.next {
		s.Available += p.numAvailable
	}
	s.Allocated = uintptr(s.Blocks) * s.SlotSize
	s.Total = uintptr(s.Pools) * s.PoolSize
	return s
}

// Verify checks the bookkeeping against the bitmaps: every pool's free
// count must match its set bits and the handed-out total must match the
// sum over pools. A mismatch is reported as ErrConsistency and left as is.
func (a *Allocator[T]) Verify() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	var used uint
	for p := a.head; p != nil; p = p.next {
		if n := p.avail.Count(); n != p.numAvailable {
			return errors.Wrapf(ErrConsistency, "pool %#x counts %d free slots, bitmap has %d",
				p.base, p.numAvailable, n)
		}
		used += p.slots - p.numAvailable
	}
	if used != a.numBlocks {
		return errors.Wrapf(ErrConsistency, "%d blocks recorded, pools hold %d", a.numBlocks, used)
	}
	return nil
}

// String dumps every pool of the chain.
func (a *Allocator[T]) String() string {
	a.mu.Lock()
	defer a.mu.Unlock()

	var b strings.Builder
	for p := a.head; p != nil; p = p.next {
		b.WriteString(p.String())
	}
	return b.String()
}

func (a *Allocator[T]) poolCount() (n int) {
	for p := a.head; p != nil; p = p.next {
		n++
	}
	return n
}

func (a *Allocator[T]) poolSize() uintptr {
	slots := a.cfg.SlotsPerPool
	return uintptr(slots)*a.slotSize +
		uintptr(wordsFor(slots)*bytesPerWord) +
		unsafe.Sizeof(pool{})
}
