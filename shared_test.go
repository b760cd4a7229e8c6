package fixedpool

import (
	"testing"

	"github.com/pkg/errors"
	. "github.com/smartystreets/goconvey/convey"
)

func TestShared(t *testing.T) {
	Convey("Before InitShared", t, func() {
		_, err := Shared[uint64]()
		So(errors.Is(err, ErrNotInitialized), ShouldBeTrue)
		So(errors.Is(ReleaseShared(), ErrNotInitialized), ShouldBeTrue)
	})

	Convey("Between InitShared and ReleaseShared", t, func() {
		cfg := NewConfig()
		cfg.SlotsPerPool = 16
		So(InitShared(cfg), ShouldBeNil)
		Reset(func() { _ = ReleaseShared() })

		Convey("one allocator exists per element type", func() {
			a, err := Shared[uint64]()
			So(err, ShouldBeNil)
			b, err := Shared[uint64]()
			So(err, ShouldBeNil)
			So(b, ShouldEqual, a)
			So(a.SlotsPerPool(), ShouldEqual, uint(16))

			c, err := Shared[[4]int32]()
			So(err, ShouldBeNil)
			So(c.SlotSize(), ShouldEqual, uintptr(16))
		})

		Convey("unusable types are refused", func() {
			_, err := Shared[string]()
			So(errors.Is(err, ErrInvalidConfig), ShouldBeTrue)
		})

		Convey("a second InitShared is refused", func() {
			So(errors.Is(InitShared(cfg), ErrAlreadyInitialized), ShouldBeTrue)
		})

		Convey("ReleaseShared tears every allocator down", func() {
			a, err := Shared[uint64]()
			So(err, ShouldBeNil)
			_, err = a.Allocate()
			So(err, ShouldBeNil)

			So(ReleaseShared(), ShouldBeNil)
			_, err = a.Allocate()
			So(errors.Is(err, ErrReleased), ShouldBeTrue)

			_, err = Shared[uint64]()
			So(errors.Is(err, ErrNotInitialized), ShouldBeTrue)
		})
	})

	Convey("InitShared validates its configuration", t, func() {
		cfg := NewConfig()
		cfg.Storage = nil
		So(errors.Is(InitShared(cfg), ErrInvalidConfig), ShouldBeTrue)
	})
}
