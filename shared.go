package fixedpool

import (
	"reflect"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

type releaser interface {
	Release() error
}

// shared holds the process-wide allocators, one per element type. It is
// populated between InitShared and ReleaseShared only.
var shared struct {
	sync.Mutex
	cfg   *PoolConfig
	order []reflect.Type
	pools map[reflect.Type]releaser
}

// InitShared enables Shared with cfg as the configuration of every shared
// allocator. It must be paired with ReleaseShared.
func InitShared(cfg PoolConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	shared.Lock()
	defer shared.Unlock()

	if shared.cfg != nil {
		return ErrAlreadyInitialized
	}
	shared.cfg = &cfg
	shared.pools = make(map[reflect.Type]releaser)
	return nil
}

// Shared returns the process-wide allocator for T, creating it on first
// use after InitShared.
func Shared[T any]() (*Allocator[T], error) {
	shared.Lock()
	defer shared.Unlock()

	if shared.cfg == nil {
		return nil, ErrNotInitialized
	}

	typ := reflect.TypeOf((*T)(nil)).Elem()
	if r, ok := shared.pools[typ]; ok {
		return r.(*Allocator[T]), nil
	}

	a, err := New[T](*shared.cfg)
	if err != nil {
		return nil, errors.Wrapf(err, "shared allocator for %v", typ)
	}
	shared.pools[typ] = a
	shared.order = append(shared.order, typ)
	return a, nil
}

// ReleaseShared releases the shared allocators in the order they were
// created and disables Shared until the next InitShared.
func ReleaseShared() error {
	shared.Lock()
	defer shared.Unlock()

	if shared.cfg == nil {
		return ErrNotInitialized
	}

	var err error
	for _, typ := range shared.order {
		err = multierr.Append(err, shared.pools[typ].Release())
	}
	shared.cfg = nil
	shared.order = nil
	shared.pools = nil
	return err
}
