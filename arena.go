package fixedpool

import "github.com/pkg/errors"

// arena is the address range of one pool's slot storage: slots slots of
// size bytes each, starting at base.
type arena struct {
	base  uintptr
	size  uintptr
	slots uint
}

func (a arena) limit() uintptr {
	return a.base + a.size*uintptr(a.slots)
}

func (a arena) contains(addr uintptr) bool {
	return addr >= a.base && addr < a.limit()
}

// slot returns the index of the slot starting at addr. ok is false if addr
// lies outside the arena or inside a slot rather than at its start.
func (a arena) slot(addr uintptr) (idx uint, ok bool) {
	if !a.contains(addr) {
		return 0, false
	}
	off := addr - a.base
	if off%a.size != 0 {
		return 0, false
	}
	return uint(off / a.size), true
}

// locate walks the chain starting at head and returns the pool whose
// arena holds addr together with the slot index. It only looks at
// address ranges, never at memory.
func locate(head *pool, addr uintptr) (*pool, uint, error) {
	for p := head; p != nil; p = p.next {
		if !p.contains(addr) {
			continue
		}
		idx, ok := p.slot(addr)
		if !ok {
			return nil, 0, errors.Wrapf(ErrUnknownPointer, "%#x is inside slot %d of pool %#x",
				addr, (addr-p.base)/p.size, p.base)
		}
		return p, idx, nil
	}
	return nil, 0, errors.Wrapf(ErrUnknownPointer, "%#x", addr)
}
