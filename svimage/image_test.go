package svimage

import (
	"image"
	"testing"

	"go.viam.com/test"
)

func TestImageBasics(t *testing.T) {
	img := NewImage(4, 3)
	test.That(t, img.Width(), test.ShouldEqual, 4)
	test.That(t, img.Height(), test.ShouldEqual, 3)
	test.That(t, img.Bounds(), test.ShouldResemble, image.Rect(0, 0, 4, 3))

	img.SetRGB(2, 1, 10, 20, 30)
	r, g, b := img.GetRGB(2, 1)
	test.That(t, r, test.ShouldEqual, uint8(10))
	test.That(t, g, test.ShouldEqual, uint8(20))
	test.That(t, b, test.ShouldEqual, uint8(30))

	clone := img.Clone()
	clone.SetRGB(2, 1, 0, 0, 0)
	r, _, _ = img.GetRGB(2, 1)
	test.That(t, r, test.ShouldEqual, uint8(10))

	test.That(t, img.In(3, 2), test.ShouldBeTrue)
	test.That(t, img.In(4, 0), test.ShouldBeFalse)
	test.That(t, img.In(-1, 0), test.ShouldBeFalse)
}

func TestImage16Conversions(t *testing.T) {
	img := NewImage(2, 2)
	img.Fill(100, 150, 200)

	wide := img.ToImage16()
	r, g, b := wide.Get(1, 1)
	test.That(t, r, test.ShouldEqual, int16(100))
	test.That(t, g, test.ShouldEqual, int16(150))
	test.That(t, b, test.ShouldEqual, int16(200))

	// Values past the 8-bit range clamp on the way back down.
	wide.Set(0, 0, 300, -5, 255)
	narrow := wide.ToImage()
	r8, g8, b8 := narrow.GetRGB(0, 0)
	test.That(t, r8, test.ShouldEqual, uint8(255))
	test.That(t, g8, test.ShouldEqual, uint8(0))
	test.That(t, b8, test.ShouldEqual, uint8(255))
}

func TestClamps(t *testing.T) {
	test.That(t, ClampUint8(-1), test.ShouldEqual, uint8(0))
	test.That(t, ClampUint8(256), test.ShouldEqual, uint8(255))
	test.That(t, ClampUint8(77), test.ShouldEqual, uint8(77))
	test.That(t, ClampInt16(40000), test.ShouldEqual, int16(32767))
	test.That(t, ClampInt16(-40000), test.ShouldEqual, int16(-32768))
}

func TestResize(t *testing.T) {
	img := NewImage(8, 8)
	img.Fill(90, 90, 90)
	small := img.Resize(4, 4)
	test.That(t, small.Width(), test.ShouldEqual, 4)
	test.That(t, small.Height(), test.ShouldEqual, 4)
	r, _, _ := small.GetRGB(2, 2)
	test.That(t, r, test.ShouldEqual, uint8(90))
}
