// Package transform builds the projective geometry behind the surround-view
// warp maps: homographies from point correspondences and rotation-based
// camera projections.
package transform

import (
	"math"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// homographyEps is the smallest |w| a perspective divide accepts. Anything
// closer to zero marks the point invalid instead of producing garbage.
const homographyEps = 1e-9

// GeometryError indicates a degenerate or numerically unstable projective
// transform, e.g. collinear correspondence points.
type GeometryError struct {
	msg string
}

func (e *GeometryError) Error() string {
	return e.msg
}

// NewGeometryError returns a GeometryError with the given description.
func NewGeometryError(format string, args ...interface{}) *GeometryError {
	return &GeometryError{msg: errors.Errorf(format, args...).Error()}
}

// Homography is a 3x3 projective transform mapping one plane's coordinates to
// another's. Indices are [row][column].
type Homography [3][3]float64

// NewHomography creates a Homography from a row-major slice of 9 values.
func NewHomography(vals []float64) (*Homography, error) {
	if len(vals) != 9 {
		return nil, errors.Errorf("input to NewHomography must have length of 9. Has length of %d", len(vals))
	}
	h := Homography{
		{vals[0], vals[1], vals[2]},
		{vals[3], vals[4], vals[5]},
		{vals[6], vals[7], vals[8]},
	}
	return &h, nil
}

// At returns the value at (row, col).
func (h *Homography) At(row, col int) float64 {
	return h[row][col]
}

// Apply transforms pt and perspective-divides by the homogeneous coordinate.
// ok is false when |w| is too close to zero for the divide to be meaningful.
func (h *Homography) Apply(pt r2.Point) (out r2.Point, ok bool) {
	x := h.At(0, 0)*pt.X + h.At(0, 1)*pt.Y + h.At(0, 2)
	y := h.At(1, 0)*pt.X + h.At(1, 1)*pt.Y + h.At(1, 2)
	w := h.At(2, 0)*pt.X + h.At(2, 1)*pt.Y + h.At(2, 2)
	if math.Abs(w) <= homographyEps {
		return r2.Point{}, false
	}
	return r2.Point{X: x / w, Y: y / w}, true
}

// Inverse returns the inverse homography.
func (h *Homography) Inverse() (*Homography, error) {
	d := mat.NewDense(3, 3, []float64{
		h[0][0], h[0][1], h[0][2],
		h[1][0], h[1][1], h[1][2],
		h[2][0], h[2][1], h[2][2],
	})
	var inv mat.Dense
	if err := inv.Inverse(d); err != nil {
		return nil, NewGeometryError("homography is not invertible: %v", err)
	}
	out := Homography{}
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			out[r][c] = inv.At(r, c)
		}
	}
	return &out, nil
}

// GetPerspectiveTransform solves for the homography H that maps the 4 src
// points onto the 4 dst points, i.e. H(src[i]) = dst[i]. Either point set
// containing 3 collinear points is degenerate and rejected.
func GetPerspectiveTransform(src, dst []r2.Point) (*Homography, error) {
	if len(src) != 4 || len(dst) != 4 {
		return nil, NewGeometryError("need exactly 4 point correspondences, got %d src and %d dst", len(src), len(dst))
	}
	if err := checkNotCollinear(src, "source"); err != nil {
		return nil, err
	}
	if err := checkNotCollinear(dst, "destination"); err != nil {
		return nil, err
	}

	// 8 unknowns h00..h21 with h22 fixed at 1:
	//   x' = (h00 x + h01 y + h02) / (h20 x + h21 y + 1)
	//   y' = (h10 x + h11 y + h12) / (h20 x + h21 y + 1)
	a := mat.NewDense(8, 8, nil)
	b := mat.NewVecDense(8, nil)
	for i := 0; i < 4; i++ {
		sx, sy := src[i].X, src[i].Y
		dx, dy := dst[i].X, dst[i].Y
		r := 2 * i
		a.SetRow(r, []float64{sx, sy, 1, 0, 0, 0, -sx * dx, -sy * dx})
		b.SetVec(r, dx)
		a.SetRow(r+1, []float64{0, 0, 0, sx, sy, 1, -sx * dy, -sy * dy})
		b.SetVec(r+1, dy)
	}

	var h mat.VecDense
	if err := h.SolveVec(a, b); err != nil {
		return nil, NewGeometryError("perspective transform is singular: %v", err)
	}

	out := Homography{
		{h.AtVec(0), h.AtVec(1), h.AtVec(2)},
		{h.AtVec(3), h.AtVec(4), h.AtVec(5)},
		{h.AtVec(6), h.AtVec(7), 1},
	}
	return &out, nil
}

// checkNotCollinear rejects a 4-point set where any 3 points lie on one line.
func checkNotCollinear(pts []r2.Point, which string) error {
	for i := 0; i < len(pts); i++ {
		for j := i + 1; j < len(pts); j++ {
			for k := j + 1; k < len(pts); k++ {
				area := (pts[j].X-pts[i].X)*(pts[k].Y-pts[i].Y) -
					(pts[k].X-pts[i].X)*(pts[j].Y-pts[i].Y)
				if math.Abs(area) < 1e-8 {
					return NewGeometryError("%s points %d, %d, %d are collinear", which, i, j, k)
				}
			}
		}
	}
	return nil
}
