//go:build linux || darwin || freebsd || netbsd || openbsd || dragonfly

package backing

import (
	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

type mmapAllocator struct{}

// Mmap returns an allocator that maps anonymous private memory for every
// request. Buffers are page aligned and live outside the Go heap.
func Mmap() Allocator {
	return mmapAllocator{}
}

func (mmapAllocator) Allocate(size int) ([]byte, error) {
	if size <= 0 {
		return nil, errors.Wrapf(ErrInvalidSize, "mmap: %d bytes", size)
	}
	b, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		if errors.Is(err, unix.ENOMEM) {
			return nil, errors.Wrapf(ErrExhausted, "mmap: %d bytes: %v", size, err)
		}
		return nil, errors.Wrapf(err, "mmap: %d bytes", size)
	}
	return b, nil
}

func (mmapAllocator) Free(b []byte) error {
	if err := unix.Munmap(b); err != nil {
		return errors.Wrap(err, "munmap")
	}
	return nil
}
