package transform

import (
	"image"
	"math"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"

	"github.com/GKT-github/Ethsimple-nostitch/svimage"
)

// WarpStrategy turns one camera's calibration into a warp map. Strategies are
// selected at configuration time so they can be swapped or tested without
// rebuilding anything.
type WarpStrategy interface {
	BuildWarpMap(srcSize image.Point) (*svimage.WarpMap, error)
}

// ProjectionKind selects the projection surface for intrinsic-mode warping.
type ProjectionKind string

const (
	// ProjectionSpherical projects onto a sphere, for panorama-style
	// wide-baseline composition.
	ProjectionSpherical = ProjectionKind("spherical")
	// ProjectionPlanar projects onto the ground plane, for bird's-eye
	// composition.
	ProjectionPlanar = ProjectionKind("planar")
)

// ParseProjectionKind validates a configuration string.
func ParseProjectionKind(s string) (ProjectionKind, error) {
	switch ProjectionKind(s) {
	case ProjectionSpherical:
		return ProjectionSpherical, nil
	case ProjectionPlanar:
		return ProjectionPlanar, nil
	}
	return "", errors.Errorf("unknown projection kind %q (want spherical or planar)", s)
}

type surfaceProjector interface {
	mapForward(x, y float64) (float64, float64, bool)
	mapBackward(u, v float64) (float64, float64, bool)
}

// IntrinsicProjection warps a camera through its intrinsic matrix and
// rotation onto a projection surface.
type IntrinsicProjection struct {
	Kind       ProjectionKind
	Intrinsics CameraIntrinsics
	Rotation   Rotation
	Focal      float64
	Scale      float64
}

// BuildWarpMap projects every output pixel of the camera's canvas tile back
// through the inverse projection to find the source pixel it samples from.
func (ip *IntrinsicProjection) BuildWarpMap(srcSize image.Point) (*svimage.WarpMap, error) {
	if ip.Scale <= 0 || ip.Scale > 1 {
		return nil, errors.Errorf("processing scale must be in (0, 1], got %f", ip.Scale)
	}
	if ip.Focal <= 0 {
		return nil, errors.Errorf("focal length must be positive, got %f", ip.Focal)
	}

	scaledSize := image.Point{
		X: int(float64(srcSize.X) * ip.Scale),
		Y: int(float64(srcSize.Y) * ip.Scale),
	}
	proj, err := ip.projector()
	if err != nil {
		return nil, err
	}

	corner, size, err := detectResultRegion(proj, scaledSize)
	if err != nil {
		return nil, err
	}

	wm := svimage.NewWarpMap(corner, size)
	for y := 0; y < size.Y; y++ {
		for x := 0; x < size.X; x++ {
			sx, sy, ok := proj.mapBackward(float64(corner.X+x), float64(corner.Y+y))
			if !ok {
				continue
			}
			if sx < 0 || sy < 0 || sx > float64(scaledSize.X-1) || sy > float64(scaledSize.Y-1) {
				continue
			}
			wm.X.Set(x, y, float32(sx))
			wm.Y.Set(x, y, float32(sy))
		}
	}
	return wm, nil
}

func (ip *IntrinsicProjection) projector() (surfaceProjector, error) {
	base, err := newProjector(ip.Intrinsics.Scaled(ip.Scale), ip.Rotation, ip.Focal*ip.Scale)
	if err != nil {
		return nil, err
	}
	switch ip.Kind {
	case ProjectionSpherical:
		return sphericalProjector{base}, nil
	case ProjectionPlanar:
		return planarProjector{base}, nil
	}
	return nil, errors.Errorf("unknown projection kind %q", ip.Kind)
}

// detectResultRegion forward-projects the scaled source border to find the
// bounding box the warped tile occupies on the shared canvas.
func detectResultRegion(proj surfaceProjector, srcSize image.Point) (image.Point, image.Point, error) {
	minU, minV := math.Inf(1), math.Inf(1)
	maxU, maxV := math.Inf(-1), math.Inf(-1)
	visit := func(x, y int) {
		u, v, ok := proj.mapForward(float64(x), float64(y))
		if !ok {
			return
		}
		minU = math.Min(minU, u)
		minV = math.Min(minV, v)
		maxU = math.Max(maxU, u)
		maxV = math.Max(maxV, v)
	}
	for x := 0; x < srcSize.X; x++ {
		visit(x, 0)
		visit(x, srcSize.Y-1)
	}
	for y := 0; y < srcSize.Y; y++ {
		visit(0, y)
		visit(srcSize.X-1, y)
	}
	if math.IsInf(minU, 1) {
		return image.Point{}, image.Point{}, NewGeometryError("no source border point projects onto the warp surface")
	}
	corner := image.Point{X: int(math.Floor(minU)), Y: int(math.Floor(minV))}
	size := image.Point{
		X: int(math.Ceil(maxU)) - corner.X + 1,
		Y: int(math.Ceil(maxV)) - corner.Y + 1,
	}
	if size.X <= 0 || size.Y <= 0 {
		return image.Point{}, image.Point{}, NewGeometryError("degenerate warp region %v", size)
	}
	return corner, size, nil
}

// ManualHomography warps a camera through a homography solved from 4 manually
// chosen source points and their 4 destination points on the canvas.
type ManualHomography struct {
	Src   [4]r2.Point
	Dst   [4]r2.Point
	Scale float64
}

// BuildWarpMap solves H mapping the scaled source points onto the destination
// points, then applies H inverse to every destination pixel to find its
// source pixel. Destination pixels whose homogeneous coordinate collapses are
// marked invalid.
func (mh *ManualHomography) BuildWarpMap(srcSize image.Point) (*svimage.WarpMap, error) {
	if mh.Scale <= 0 || mh.Scale > 1 {
		return nil, errors.Errorf("processing scale must be in (0, 1], got %f", mh.Scale)
	}

	src := make([]r2.Point, 4)
	dst := make([]r2.Point, 4)
	for i := 0; i < 4; i++ {
		src[i] = r2.Point{X: mh.Src[i].X * mh.Scale, Y: mh.Src[i].Y * mh.Scale}
		dst[i] = mh.Dst[i]
	}

	h, err := GetPerspectiveTransform(src, dst)
	if err != nil {
		return nil, err
	}
	hinv, err := h.Inverse()
	if err != nil {
		return nil, err
	}

	corner, size := pointBounds(dst)
	scaledW := float64(int(float64(srcSize.X)*mh.Scale) - 1)
	scaledH := float64(int(float64(srcSize.Y)*mh.Scale) - 1)

	wm := svimage.NewWarpMap(corner, size)
	for y := 0; y < size.Y; y++ {
		for x := 0; x < size.X; x++ {
			pt, ok := hinv.Apply(r2.Point{X: float64(corner.X + x), Y: float64(corner.Y + y)})
			if !ok {
				continue
			}
			if pt.X < 0 || pt.Y < 0 || pt.X > scaledW || pt.Y > scaledH {
				continue
			}
			wm.X.Set(x, y, float32(pt.X))
			wm.Y.Set(x, y, float32(pt.Y))
		}
	}
	return wm, nil
}

func pointBounds(pts []r2.Point) (image.Point, image.Point) {
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, p := range pts {
		minX = math.Min(minX, p.X)
		minY = math.Min(minY, p.Y)
		maxX = math.Max(maxX, p.X)
		maxY = math.Max(maxY, p.Y)
	}
	corner := image.Point{X: int(math.Floor(minX)), Y: int(math.Floor(minY))}
	size := image.Point{
		X: int(math.Ceil(maxX)) - corner.X,
		Y: int(math.Ceil(maxY)) - corner.Y,
	}
	return corner, size
}
