package fixedpool

import (
	"fmt"
	"strings"
	"unsafe"

	"github.com/pkg/errors"
	"github.com/willf/bitset"
	"go.uber.org/multierr"

	"github.com/replay/go-fixed-pool/backing"
)

const (
	bitsPerWord  = 64
	bytesPerWord = bitsPerWord / 8
)

// pool is one arena of the chain. Its slot storage and its occupancy
// bitmap come from separate backing allocators. A set bit marks a free
// slot so that a find-first-set scan lands directly on one.
type pool struct {
	arena

	data  []byte
	meta  []byte
	avail *bitset.BitSet

	// numAvailable always equals avail.Count().
	numAvailable uint

	next *pool
}

// wordsFor returns how many bitmap words are needed to track n slots.
func wordsFor(n uint) int {
	return int((n + bitsPerWord - 1) / bitsPerWord)
}

// newPool creates a pool of n slots of size bytes each, with storage
// aligned to align. On failure nothing stays allocated.
func newPool(storage, metadata backing.Allocator, n uint, size, align uintptr) (*pool, error) {
	want := int(size * uintptr(n))
	data, err := storage.Allocate(want)
	if err != nil {
		return nil, &growthError{what: "slot storage", err: err}
	}
	if len(data) != want {
		err := errors.Errorf("got %d bytes, asked for %d", len(data), want)
		return nil, &growthError{what: "slot storage", err: multierr.Append(err, storage.Free(data))}
	}
	if uintptr(unsafe.Pointer(&data[0]))%align != 0 {
		err := errors.Wrapf(ErrMisaligned, "slot storage at %p, need %d-byte alignment", &data[0], align)
		return nil, &growthError{what: "slot storage", err: multierr.Append(err, storage.Free(data))}
	}

	words := wordsFor(n)
	meta, err := metadata.Allocate(words * bytesPerWord)
	if err != nil {
		return nil, &growthError{what: "bitmap", err: multierr.Append(err, storage.Free(data))}
	}
	if len(meta) != words*bytesPerWord {
		err := errors.Errorf("got %d bytes, asked for %d", len(meta), words*bytesPerWord)
		err = multierr.Combine(err, metadata.Free(meta), storage.Free(data))
		return nil, &growthError{what: "bitmap", err: err}
	}
	if uintptr(unsafe.Pointer(&meta[0]))%unsafe.Alignof(uint64(0)) != 0 {
		err := errors.Wrapf(ErrMisaligned, "bitmap at %p", &meta[0])
		err = multierr.Combine(err, metadata.Free(meta), storage.Free(data))
		return nil, &growthError{what: "bitmap", err: err}
	}

	// the bitmap words live in the metadata buffer itself
	bits := unsafe.Slice((*uint64)(unsafe.Pointer(&meta[0])), words)
	for i := range bits {
		bits[i] = ^uint64(0)
	}
	// bits past the last slot stay clear and are never handed out
	if r := n % bitsPerWord; r != 0 {
		bits[words-1] = 1<<r - 1
	}

	return &pool{
		arena: arena{
			base:  uintptr(unsafe.Pointer(&data[0])),
			size:  size,
			slots: n,
		},
		data:         data,
		meta:         meta,
		avail:        bitset.From(bits),
		numAvailable: n,
	}, nil
}

// alloc claims the lowest free slot. ok is false when the bitmap has no
// set bit.
func (p *pool) alloc() (idx uint, ok bool) {
	idx, ok = p.avail.NextSet(0)
	if !ok || idx >= p.slots {
		return 0, false
	}
	p.avail.Clear(idx)
	p.numAvailable--
	return idx, true
}

// free returns slot idx to the pool. A slot that is already free is left
// untouched.
func (p *pool) free(idx uint) error {
	if p.avail.Test(idx) {
		word, bit := idx/bitsPerWord, idx%bitsPerWord
		return errors.Wrapf(ErrDoubleFree, "slot %d (word %d, bit %d) of pool %#x", idx, word, bit, p.base)
	}
	p.avail.Set(idx)
	p.numAvailable++
	return nil
}

// slotBytes returns the storage of slot idx.
func (p *pool) slotBytes(idx uint) []byte {
	off := uintptr(idx) * p.size
	return p.data[off : off+p.size : off+p.size]
}

// release hands storage and bitmap back to their allocators.
func (p *pool) release(storage, metadata backing.Allocator) error {
	err := multierr.Append(
		errors.Wrapf(storage.Free(p.data), "freeing storage of pool %#x", p.base),
		errors.Wrapf(metadata.Free(p.meta), "freeing bitmap of pool %#x", p.base),
	)
	p.data, p.meta, p.avail = nil, nil, nil
	p.numAvailable = 0
	return err
}

// String creates a multi-line dump of the pool's occupancy.
func (p *pool) String() string {
	var b strings.Builder

	fmt.Fprintf(&b, "-------------------------------\n")
	fmt.Fprintf(&b, "Pool Addr: %#x\n", p.base)
	fmt.Fprintf(&b, "Slot Size: %d\n", p.size)
	fmt.Fprintf(&b, "Slots: %d\n", p.slots)
	fmt.Fprintf(&b, "Available: %d\n", p.numAvailable)
	for i, word := range p.avail.Bytes() {
		fmt.Fprintf(&b, "bitmap[%d]: %064b\n", i, word)
	}
	return b.String()
}
