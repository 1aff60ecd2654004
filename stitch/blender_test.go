package stitch

import (
	"image"
	"image/color"
	"testing"

	"go.viam.com/test"

	"github.com/GKT-github/Ethsimple-nostitch/svimage"
)

func uniformTile(w, h int, v int16) *svimage.Image16 {
	tile := svimage.NewImage16(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			tile.Set(x, y, v, v, v)
		}
	}
	return tile
}

func uniformMask(w, h int, v uint8) *image.Gray {
	mask := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			mask.SetGray(x, y, color.Gray{Y: v})
		}
	}
	return mask
}

func TestBlendTwoOverlappingTiles(t *testing.T) {
	b := NewBlender(image.Point{X: 15, Y: 10})
	b.Reset()

	test.That(t, b.Feed(uniformTile(10, 10, 100), uniformMask(10, 10, 255), image.Point{}), test.ShouldBeNil)
	test.That(t, b.Feed(uniformTile(10, 10, 50), uniformMask(10, 10, 255), image.Point{X: 5}), test.ShouldBeNil)

	out, coverage, err := b.Blend()
	test.That(t, err, test.ShouldBeNil)

	// Exclusive regions keep their camera's value; the overlap averages.
	r, g, bb := out.GetRGB(2, 5)
	test.That(t, []uint8{r, g, bb}, test.ShouldResemble, []uint8{100, 100, 100})
	r, _, _ = out.GetRGB(12, 5)
	test.That(t, r, test.ShouldEqual, uint8(50))
	r, _, _ = out.GetRGB(7, 5)
	test.That(t, r, test.ShouldEqual, uint8(75))

	test.That(t, coverage.GrayAt(7, 5).Y, test.ShouldEqual, uint8(255))
}

func TestBlendWeightedOverlap(t *testing.T) {
	b := NewBlender(image.Point{X: 10, Y: 10})
	b.Reset()

	// Same placement, different weights: 255 vs 85 gives a 3:1 mix.
	test.That(t, b.Feed(uniformTile(10, 10, 100), uniformMask(10, 10, 255), image.Point{}), test.ShouldBeNil)
	test.That(t, b.Feed(uniformTile(10, 10, 50), uniformMask(10, 10, 85), image.Point{}), test.ShouldBeNil)

	out, _, err := b.Blend()
	test.That(t, err, test.ShouldBeNil)
	r, _, _ := out.GetRGB(4, 4)
	test.That(t, r, test.ShouldEqual, uint8(88))
}

func TestBlendZeroWeightContributesNothing(t *testing.T) {
	b := NewBlender(image.Point{X: 10, Y: 10})
	b.Reset()

	test.That(t, b.Feed(uniformTile(10, 10, 200), uniformMask(10, 10, 0), image.Point{}), test.ShouldBeNil)

	out, coverage, err := b.Blend()
	test.That(t, err, test.ShouldBeNil)
	r, g, bb := out.GetRGB(5, 5)
	test.That(t, []uint8{r, g, bb}, test.ShouldResemble, []uint8{0, 0, 0})
	test.That(t, coverage.GrayAt(5, 5).Y, test.ShouldEqual, uint8(0))
}

func TestBlendBeforeFeedIsBackground(t *testing.T) {
	b := NewBlender(image.Point{X: 4, Y: 4})
	out, coverage, err := b.Blend()
	test.That(t, err, test.ShouldBeNil)
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			r, g, bb := out.GetRGB(x, y)
			test.That(t, r, test.ShouldEqual, uint8(0))
			test.That(t, g, test.ShouldEqual, uint8(0))
			test.That(t, bb, test.ShouldEqual, uint8(0))
			test.That(t, coverage.GrayAt(x, y).Y, test.ShouldEqual, uint8(0))
		}
	}
}

func TestBlendResetsBetweenCycles(t *testing.T) {
	b := NewBlender(image.Point{X: 6, Y: 6})
	b.Reset()
	test.That(t, b.Feed(uniformTile(6, 6, 120), uniformMask(6, 6, 255), image.Point{}), test.ShouldBeNil)

	out, _, err := b.Blend()
	test.That(t, err, test.ShouldBeNil)
	r, _, _ := out.GetRGB(3, 3)
	test.That(t, r, test.ShouldEqual, uint8(120))

	// A second Blend with no Feed in between must not see the first cycle.
	out, _, err = b.Blend()
	test.That(t, err, test.ShouldBeNil)
	r, _, _ = out.GetRGB(3, 3)
	test.That(t, r, test.ShouldEqual, uint8(0))
}

func TestBlendTileOutsideCanvasClipped(t *testing.T) {
	b := NewBlender(image.Point{X: 8, Y: 8})
	b.Reset()

	// Half the tile hangs off the right edge; only the in-canvas part lands.
	test.That(t, b.Feed(uniformTile(8, 8, 90), uniformMask(8, 8, 255), image.Point{X: 4}), test.ShouldBeNil)

	out, coverage, err := b.Blend()
	test.That(t, err, test.ShouldBeNil)
	r, _, _ := out.GetRGB(6, 3)
	test.That(t, r, test.ShouldEqual, uint8(90))
	test.That(t, coverage.GrayAt(2, 3).Y, test.ShouldEqual, uint8(0))
}

func TestBlendFeedValidation(t *testing.T) {
	b := NewBlender(image.Point{X: 8, Y: 8})
	err := b.Feed(nil, uniformMask(8, 8, 255), image.Point{})
	test.That(t, err, test.ShouldNotBeNil)
	err = b.Feed(uniformTile(8, 8, 10), nil, image.Point{})
	test.That(t, err, test.ShouldNotBeNil)
	err = b.Feed(uniformTile(8, 8, 10), uniformMask(4, 4, 255), image.Point{})
	test.That(t, err, test.ShouldNotBeNil)
}
