package fixedpool

import (
	"testing"
	"unsafe"

	"github.com/pkg/errors"
	. "github.com/smartystreets/goconvey/convey"
)

func TestSizes(t *testing.T) {
	Convey("Given an allocator of 32 slots for 8-byte values", t, func() {
		a := newTestAllocator[uint64](t, 32)
		poolSize := uintptr(32*8+8) + unsafe.Sizeof(pool{})

		So(a.SlotSize(), ShouldEqual, uintptr(8))
		So(a.SlotsPerPool(), ShouldEqual, uint(32))
		So(a.PoolSize(), ShouldEqual, poolSize)
		So(a.TotalSize(), ShouldEqual, poolSize)
		So(a.AllocatedSize(), ShouldEqual, uintptr(0))

		Convey("totals follow the pool count", func() {
			for i := 0; i < 70; i++ {
				_, err := a.Allocate()
				So(err, ShouldBeNil)
			}
			So(a.PoolCount(), ShouldEqual, 3)
			So(a.TotalSize(), ShouldEqual, 3*poolSize)
			So(a.AllocatedSize(), ShouldEqual, uintptr(70*8))

			s := a.Stats()
			So(s, ShouldResemble, Stats{
				Pools:        3,
				SlotsPerPool: 32,
				SlotSize:     8,
				PoolSize:     poolSize,
				Blocks:       70,
				Available:    26,
				Allocated:    70 * 8,
				Total:        3 * poolSize,
			})
		})
	})
}

func TestVerify(t *testing.T) {
	Convey("Given an allocator with slots in use", t, func() {
		a := newTestAllocator[uint64](t, 64)
		for i := 0; i < 80; i++ {
			_, err := a.Allocate()
			So(err, ShouldBeNil)
		}
		So(a.Verify(), ShouldBeNil)

		Convey("a pool count out of step with its bitmap is reported", func() {
			a.head.next.numAvailable++
			So(errors.Is(a.Verify(), ErrConsistency), ShouldBeTrue)
		})

		Convey("a block total out of step with the pools is reported", func() {
			a.numBlocks--
			So(errors.Is(a.Verify(), ErrConsistency), ShouldBeTrue)
		})

		Convey("allocating from a pool whose bitmap disagrees panics", func() {
			a.head.numAvailable = 1
			So(func() { _, _ = a.Allocate() }, ShouldPanic)
		})
	})
}

func TestString(t *testing.T) {
	Convey("The dump lists every pool", t, func() {
		a := newTestAllocator[uint64](t, 64)
		for i := 0; i < 65; i++ {
			_, err := a.Allocate()
			So(err, ShouldBeNil)
		}

		s := a.String()
		So(s, ShouldContainSubstring, "Available: 0")
		So(s, ShouldContainSubstring, "Available: 63")
		So(s, ShouldContainSubstring, "bitmap[0]: "+
			"0000000000000000000000000000000000000000000000000000000000000000")
	})
}
