package svimage

import (
	"image"

	"github.com/GKT-github/Ethsimple-nostitch/utils"
)

// WarpSentinel marks a warp map entry with no valid source pixel.
const WarpSentinel = -1

// WarpMap is a per-camera pixel lookup table. Entry (x, y) holds the source
// frame coordinate the output pixel samples from, or WarpSentinel if the
// output pixel has no valid source. Corner is the top-left placement of this
// camera's warped tile on the shared canvas and Size is the tile extent.
// A WarpMap is immutable once built.
type WarpMap struct {
	X, Y   *FloatGrid
	Corner image.Point
	Size   image.Point
}

// NewWarpMap allocates a map of the given tile size with every entry invalid.
func NewWarpMap(corner, size image.Point) *WarpMap {
	wm := &WarpMap{
		X:      NewFloatGrid(size.X, size.Y),
		Y:      NewFloatGrid(size.X, size.Y),
		Corner: corner,
		Size:   size,
	}
	for y := 0; y < size.Y; y++ {
		for x := 0; x < size.X; x++ {
			wm.X.Set(x, y, WarpSentinel)
			wm.Y.Set(x, y, WarpSentinel)
		}
	}
	return wm
}

// Valid reports whether the map entry at (x, y) points at a real source pixel.
func (wm *WarpMap) Valid(x, y int) bool {
	return wm.X.Get(x, y) != WarpSentinel && wm.Y.Get(x, y) != WarpSentinel
}

// Remap resamples src through the warp map, producing the camera's warped
// tile. Sampling is bilinear; output pixels whose map entry is invalid or
// falls outside the source stay black. Runs as a parallel per-pixel kernel.
func Remap(src *Image, wm *WarpMap) *Image {
	out := NewImage(wm.Size.X, wm.Size.Y)
	utils.ParallelForEachPixel(wm.Size, func(x, y int) {
		if !wm.Valid(x, y) {
			return
		}
		sx := float64(wm.X.Get(x, y))
		sy := float64(wm.Y.Get(x, y))
		r, g, b, ok := bilinearSample(src, sx, sy)
		if !ok {
			return
		}
		out.SetRGB(x, y, r, g, b)
	})
	return out
}

// bilinearSample interpolates the four source pixels around (sx, sy).
func bilinearSample(src *Image, sx, sy float64) (uint8, uint8, uint8, bool) {
	x0 := int(sx)
	y0 := int(sy)
	if sx < 0 || sy < 0 || x0 >= src.width || y0 >= src.height {
		return 0, 0, 0, false
	}
	x1 := x0 + 1
	y1 := y0 + 1
	if x1 >= src.width {
		x1 = x0
	}
	if y1 >= src.height {
		y1 = y0
	}
	fx := sx - float64(x0)
	fy := sy - float64(y0)

	w00 := (1 - fx) * (1 - fy)
	w10 := fx * (1 - fy)
	w01 := (1 - fx) * fy
	w11 := fx * fy

	var acc [3]float64
	accumulate := func(x, y int, w float64) {
		r, g, b := src.GetRGB(x, y)
		acc[0] += float64(r) * w
		acc[1] += float64(g) * w
		acc[2] += float64(b) * w
	}
	accumulate(x0, y0, w00)
	accumulate(x1, y0, w10)
	accumulate(x0, y1, w01)
	accumulate(x1, y1, w11)

	return ClampUint8(int32(acc[0] + 0.5)),
		ClampUint8(int32(acc[1] + 0.5)),
		ClampUint8(int32(acc[2] + 0.5)),
		true
}
