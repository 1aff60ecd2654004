package transform

import (
	"math"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/mat"
)

// CameraIntrinsics holds the pinhole parameters of one camera.
type CameraIntrinsics struct {
	Width  int     `yaml:"width_px" json:"width_px"`
	Height int     `yaml:"height_px" json:"height_px"`
	Fx     float64 `yaml:"fx" json:"fx"`
	Fy     float64 `yaml:"fy" json:"fy"`
	Ppx    float64 `yaml:"ppx" json:"ppx"`
	Ppy    float64 `yaml:"ppy" json:"ppy"`
}

// Scaled returns the intrinsics adjusted for a processing scale factor of s.
func (ci CameraIntrinsics) Scaled(s float64) CameraIntrinsics {
	return CameraIntrinsics{
		Width:  int(float64(ci.Width) * s),
		Height: int(float64(ci.Height) * s),
		Fx:     ci.Fx * s,
		Fy:     ci.Fy * s,
		Ppx:    ci.Ppx * s,
		Ppy:    ci.Ppy * s,
	}
}

func (ci CameraIntrinsics) matrix() *mat.Dense {
	return mat.NewDense(3, 3, []float64{
		ci.Fx, 0, ci.Ppx,
		0, ci.Fy, ci.Ppy,
		0, 0, 1,
	})
}

// Rotation is a 3x3 rotation matrix, row-major.
type Rotation [3][3]float64

func (r Rotation) matrix() *mat.Dense {
	return mat.NewDense(3, 3, []float64{
		r[0][0], r[0][1], r[0][2],
		r[1][0], r[1][1], r[1][2],
		r[2][0], r[2][1], r[2][2],
	})
}

// projector precomputes the R*K^-1 and K*R^-1 products used to move points
// between the source image plane and the warped surface.
type projector struct {
	rKinv [9]float64
	kRinv [9]float64
	scale float64
}

func newProjector(k CameraIntrinsics, r Rotation, scale float64) (*projector, error) {
	km := k.matrix()
	rm := r.matrix()

	var kinv, rinv mat.Dense
	if err := kinv.Inverse(km); err != nil {
		return nil, NewGeometryError("intrinsic matrix is singular: %v", err)
	}
	if err := rinv.Inverse(rm); err != nil {
		return nil, NewGeometryError("rotation matrix is singular: %v", err)
	}

	var rKinv, kRinv mat.Dense
	rKinv.Mul(rm, &kinv)
	kRinv.Mul(km, &rinv)

	p := &projector{scale: scale}
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			p.rKinv[i*3+j] = rKinv.At(i, j)
			p.kRinv[i*3+j] = kRinv.At(i, j)
		}
	}
	return p, nil
}

func (p *projector) toRay(x, y float64) r3.Vector {
	return r3.Vector{
		X: p.rKinv[0]*x + p.rKinv[1]*y + p.rKinv[2],
		Y: p.rKinv[3]*x + p.rKinv[4]*y + p.rKinv[5],
		Z: p.rKinv[6]*x + p.rKinv[7]*y + p.rKinv[8],
	}
}

func (p *projector) fromRay(v r3.Vector) (float64, float64, bool) {
	x := p.kRinv[0]*v.X + p.kRinv[1]*v.Y + p.kRinv[2]*v.Z
	y := p.kRinv[3]*v.X + p.kRinv[4]*v.Y + p.kRinv[5]*v.Z
	z := p.kRinv[6]*v.X + p.kRinv[7]*v.Y + p.kRinv[8]*v.Z
	if z <= 0 {
		return 0, 0, false
	}
	return x / z, y / z, true
}

// sphericalProjector maps the camera onto a sphere of radius scale. Suits
// wide-baseline panorama-style composition; ground lines curve.
type sphericalProjector struct {
	*projector
}

func (p sphericalProjector) mapForward(x, y float64) (float64, float64, bool) {
	v := p.toRay(x, y)
	n := v.Norm()
	if n == 0 {
		return 0, 0, false
	}
	u := p.scale * math.Atan2(v.X, v.Z)
	w := v.Y / n
	if w < -1 {
		w = -1
	} else if w > 1 {
		w = 1
	}
	return u, p.scale * (math.Pi - math.Acos(w)), true
}

func (p sphericalProjector) mapBackward(u, v float64) (float64, float64, bool) {
	u /= p.scale
	v /= p.scale
	sinv := math.Sin(math.Pi - v)
	ray := r3.Vector{
		X: sinv * math.Sin(u),
		Y: math.Cos(math.Pi - v),
		Z: sinv * math.Cos(u),
	}
	return p.fromRay(ray)
}

// planarProjector maps the camera onto a plane at distance scale. Suits
// ground-plane bird's-eye composition where straight lines must stay straight.
type planarProjector struct {
	*projector
}

func (p planarProjector) mapForward(x, y float64) (float64, float64, bool) {
	v := p.toRay(x, y)
	if v.Z <= 0 {
		return 0, 0, false
	}
	return p.scale * v.X / v.Z, p.scale * v.Y / v.Z, true
}

func (p planarProjector) mapBackward(u, v float64) (float64, float64, bool) {
	ray := r3.Vector{X: u / p.scale, Y: v / p.scale, Z: 1}
	return p.fromRay(ray)
}
