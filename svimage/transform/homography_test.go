package transform

import (
	"testing"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
	"go.viam.com/test"
)

func TestGetPerspectiveTransformRoundTrip(t *testing.T) {
	src := []r2.Point{{X: 1, Y: 1}, {X: 4, Y: 1}, {X: 1, Y: 4}, {X: 4, Y: 4}}
	dst := []r2.Point{{X: 0, Y: 0}, {X: 5, Y: 0}, {X: 0, Y: 5}, {X: 5, Y: 5}}

	h, err := GetPerspectiveTransform(src, dst)
	test.That(t, err, test.ShouldBeNil)

	for i := range src {
		got, ok := h.Apply(src[i])
		test.That(t, ok, test.ShouldBeTrue)
		test.That(t, got.X, test.ShouldAlmostEqual, dst[i].X, 1e-9)
		test.That(t, got.Y, test.ShouldAlmostEqual, dst[i].Y, 1e-9)
	}

	hinv, err := h.Inverse()
	test.That(t, err, test.ShouldBeNil)
	for i := range dst {
		got, ok := hinv.Apply(dst[i])
		test.That(t, ok, test.ShouldBeTrue)
		test.That(t, got.X, test.ShouldAlmostEqual, src[i].X, 1e-9)
		test.That(t, got.Y, test.ShouldAlmostEqual, src[i].Y, 1e-9)
	}
}

func TestGetPerspectiveTransformTrapezoid(t *testing.T) {
	// A proper perspective (not just affine) correspondence.
	src := []r2.Point{{X: 10, Y: 20}, {X: 90, Y: 15}, {X: 20, Y: 80}, {X: 85, Y: 90}}
	dst := []r2.Point{{X: 0, Y: 0}, {X: 64, Y: 0}, {X: 0, Y: 64}, {X: 64, Y: 64}}

	h, err := GetPerspectiveTransform(src, dst)
	test.That(t, err, test.ShouldBeNil)
	for i := range src {
		got, ok := h.Apply(src[i])
		test.That(t, ok, test.ShouldBeTrue)
		test.That(t, got.X, test.ShouldAlmostEqual, dst[i].X, 1e-6)
		test.That(t, got.Y, test.ShouldAlmostEqual, dst[i].Y, 1e-6)
	}
}

func TestGetPerspectiveTransformDegenerate(t *testing.T) {
	// Three collinear source points cannot define a homography.
	src := []r2.Point{{X: 0, Y: 0}, {X: 1, Y: 1}, {X: 2, Y: 2}, {X: 5, Y: 0}}
	dst := []r2.Point{{X: 0, Y: 0}, {X: 5, Y: 0}, {X: 0, Y: 5}, {X: 5, Y: 5}}

	_, err := GetPerspectiveTransform(src, dst)
	test.That(t, err, test.ShouldNotBeNil)
	var ge *GeometryError
	test.That(t, errors.As(err, &ge), test.ShouldBeTrue)

	_, err = GetPerspectiveTransform(dst, src)
	test.That(t, err, test.ShouldNotBeNil)

	_, err = GetPerspectiveTransform(src[:3], dst[:3])
	test.That(t, err, test.ShouldNotBeNil)
}

func TestHomographyApplyNearZeroW(t *testing.T) {
	// Bottom row chosen so w collapses at x = 1, y = 0.
	h, err := NewHomography([]float64{1, 0, 0, 0, 1, 0, -1, 0, 1})
	test.That(t, err, test.ShouldBeNil)

	_, ok := h.Apply(r2.Point{X: 1, Y: 0})
	test.That(t, ok, test.ShouldBeFalse)

	_, ok = h.Apply(r2.Point{X: 0.5, Y: 0})
	test.That(t, ok, test.ShouldBeTrue)
}

func TestNewHomographyLength(t *testing.T) {
	_, err := NewHomography([]float64{1, 2, 3})
	test.That(t, err, test.ShouldNotBeNil)
}
