package fixedpool

import (
	"math"
	"reflect"
	"sync"
	"unsafe"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Allocator hands out storage for values of type T from a chain of
// fixed-size pools. The chain only grows; pools are given back to the
// backing allocators when the Allocator is released.
//
// All methods are safe for concurrent use. A single mutex guards the whole
// chain for the duration of each call, pool growth included.
type Allocator[T any] struct {
	mu  sync.Mutex
	cfg PoolConfig
	log *zap.Logger

	slotSize uintptr
	align    uintptr

	head *pool
	tail *pool

	// numBlocks is the number of slots handed out across all pools.
	numBlocks uint
	released  bool
}

// New creates an allocator for T and reserves its first pool.
//
// T must have a non-zero size and must not contain Go pointers, since slot
// memory is invisible to the garbage collector.
func New[T any](cfg PoolConfig) (*Allocator[T], error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var zero T
	typ := reflect.TypeOf((*T)(nil)).Elem()
	if unsafe.Sizeof(zero) == 0 {
		return nil, errors.Wrapf(ErrInvalidConfig, "%v has zero size", typ)
	}
	if hasPointers(typ) {
		return nil, errors.Wrapf(ErrInvalidConfig, "%v contains pointers", typ)
	}
	if cfg.SlotsPerPool > uint(math.MaxInt)/uint(unsafe.Sizeof(zero)) {
		return nil, errors.Wrapf(ErrInvalidConfig, "%d slots of %v do not fit in one pool",
			cfg.SlotsPerPool, typ)
	}

	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	a := &Allocator[T]{
		cfg:      cfg,
		log:      log.With(zap.Stringer("type", typ)),
		slotSize: unsafe.Sizeof(zero),
		align:    unsafe.Alignof(zero),
	}

	p, err := a.newPool()
	if err != nil {
		return nil, err
	}
	a.head, a.tail = p, p
	return a, nil
}

func (a *Allocator[T]) newPool() (*pool, error) {
	return newPool(a.cfg.Storage, a.cfg.Metadata, a.cfg.SlotsPerPool, a.slotSize, a.align)
}

// Allocate returns zeroed storage for one T. The lowest free slot of the
// first pool with room is used; when every pool is full a new pool is
// appended. If the backing allocators cannot supply a new pool the error
// matches ErrBackingAllocation and the allocator is left as it was.
func (a *Allocator[T]) Allocate() (*T, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.released {
		return nil, ErrReleased
	}

	for p := a.head; p != nil; p = p.next {
		if idx, ok := a.claim(p); ok {
			return a.pointer(p, idx), nil
		}
	}

	// Every pool is full, so the new tail is the lowest-addressed pool
	// with room and a rescan from the head would land on it anyway.
	p, err := a.grow()
	if err != nil {
		return nil, err
	}
	idx, ok := a.claim(p)
	if !ok {
		panic(errors.Wrapf(ErrConsistency, "fresh pool %#x has no free slot", p.base))
	}
	return a.pointer(p, idx), nil
}

// claim takes a slot from p if it has one.
func (a *Allocator[T]) claim(p *pool) (uint, bool) {
	if p.numAvailable == 0 {
		return 0, false
	}
	idx, ok := p.alloc()
	if !ok {
		panic(errors.Wrapf(ErrConsistency, "pool %#x counts %d free slots but its bitmap has none",
			p.base, p.numAvailable))
	}
	a.numBlocks++
	return idx, true
}

func (a *Allocator[T]) pointer(p *pool, idx uint) *T {
	b := p.slotBytes(idx)
	clear(b)
	return (*T)(unsafe.Pointer(&b[0]))
}

// grow appends a pool to the chain.
func (a *Allocator[T]) grow() (*pool, error) {
	p, err := a.newPool()
	if err != nil {
		a.log.Warn("pool growth failed",
			zap.Int("pools", a.poolCount()),
			zap.Uint("blocks", a.numBlocks),
			zap.Error(err))
		return nil, err
	}
	a.tail.next = p
	a.tail = p
	a.log.Debug("pool added",
		zap.Int("pools", a.poolCount()),
		zap.Uintptr("base", p.base))
	return p, nil
}

// Deallocate returns the slot ptr points to. ptr must come from Allocate
// on this allocator. A pointer outside every pool, or not at the start of
// a slot, yields ErrUnknownPointer; a slot that is already free yields
// ErrDoubleFree. In both cases nothing changes.
func (a *Allocator[T]) Deallocate(ptr *T) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.released {
		return ErrReleased
	}

	addr := uintptr(unsafe.Pointer(ptr))
	p, idx, err := locate(a.head, addr)
	if err != nil {
		a.log.Error("deallocate of unknown pointer", zap.Uintptr("addr", addr), zap.Error(err))
		return err
	}
	if err := p.free(idx); err != nil {
		a.log.Error("double free", zap.Uintptr("addr", addr), zap.Uint("slot", idx), zap.Error(err))
		return err
	}
	a.numBlocks--
	return nil
}

// MustDeallocate is like Deallocate but panics on misuse.
func (a *Allocator[T]) MustDeallocate(ptr *T) {
	if err := a.Deallocate(ptr); err != nil {
		panic(err)
	}
}

// Release gives every pool back to the backing allocators, in chain order.
// Slots still handed out become invalid; nothing is run for them. Further
// calls to Allocate and Deallocate return ErrReleased. Releasing twice is
// a no-op.
func (a *Allocator[T]) Release() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.released {
		return nil
	}

	var err error
	pools := 0
	for p := a.head; p != nil; {
		next := p.next
		err = multierr.Append(err, p.release(a.cfg.Storage, a.cfg.Metadata))
		p.next = nil
		p = next
		pools++
	}
	a.log.Debug("allocator released",
		zap.Int("pools", pools),
		zap.Uint("blocks", a.numBlocks),
		zap.Error(err))

	a.head, a.tail = nil, nil
	a.numBlocks = 0
	a.released = true
	return err
}
