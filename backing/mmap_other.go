//go:build !(linux || darwin || freebsd || netbsd || openbsd || dragonfly)

package backing

import "github.com/pkg/errors"

type mmapAllocator struct{}

// Mmap is not available on this platform; every allocation fails with
// ErrUnsupported.
func Mmap() Allocator {
	return mmapAllocator{}
}

func (mmapAllocator) Allocate(size int) ([]byte, error) {
	return nil, errors.Wrap(ErrUnsupported, "mmap")
}

func (mmapAllocator) Free(b []byte) error {
	return errors.Wrap(ErrUnsupported, "munmap")
}
