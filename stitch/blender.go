package stitch

import (
	"image"
	"image/color"
	"sync"

	"github.com/GKT-github/Ethsimple-nostitch/svimage"
	"github.com/GKT-github/Ethsimple-nostitch/utils"
)

// weightEps is the smallest accumulated weight a canvas pixel needs before
// normalization divides by it. Anything below stays at the background value.
const weightEps = 1e-5

type blendState int

const (
	blendStateEmpty blendState = iota
	blendStateFed
)

// Blender accumulates gain-corrected warped tiles, weighted by their blend
// masks, into one shared canvas-sized accumulation buffer, then normalizes to
// an 8-bit composite. The buffers are pipeline-owned: Reset zeroes them at
// the start of every stitch cycle and Blend consumes and zeroes them again,
// so one frame's data can never leak into the next composite.
//
// Feed calls are serialized internally because tiles from different cameras
// may write overlapping canvas pixels; within one call the per-pixel kernel
// runs in parallel since each pixel is touched once.
type Blender struct {
	mu     sync.Mutex
	canvas image.Point
	sum    []int32 // weighted channel sums, 3 per pixel
	weight *svimage.FloatGrid
	state  blendState
	fed    int
}

// NewBlender returns a Blender for the given canvas size.
func NewBlender(canvas image.Point) *Blender {
	return &Blender{
		canvas: canvas,
		sum:    make([]int32, canvas.X*canvas.Y*3),
		weight: svimage.NewFloatGrid(canvas.X, canvas.Y),
		state:  blendStateEmpty,
	}
}

// Reset zeroes the accumulation buffers for a new stitch cycle.
func (b *Blender) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.zeroLocked()
}

func (b *Blender) zeroLocked() {
	for i := range b.sum {
		b.sum[i] = 0
	}
	b.weight.Zero()
	b.state = blendStateEmpty
	b.fed = 0
}

// Feed accumulates weight(x,y)*pixel(x,y) and weight(x,y) for every pixel of
// the incoming tile at its canvas placement offset. Tile pixels landing
// outside the canvas are dropped.
func (b *Blender) Feed(frame *svimage.Image16, mask *image.Gray, corner image.Point) error {
	if frame == nil || mask == nil {
		return NewOpError("feed", errNilInput)
	}
	mb := mask.Bounds()
	if frame.Width() != mb.Dx() || frame.Height() != mb.Dy() {
		return NewOpError("feed", sizeMismatch(frame.Width(), frame.Height(), mb.Dx(), mb.Dy()))
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	size := image.Point{X: frame.Width(), Y: frame.Height()}
	utils.ParallelForEachPixel(size, func(x, y int) {
		w := int32(mask.GrayAt(x, y).Y)
		if w == 0 {
			return
		}
		cx := corner.X + x
		cy := corner.Y + y
		if cx < 0 || cy < 0 || cx >= b.canvas.X || cy >= b.canvas.Y {
			return
		}
		r, g, bb := frame.Get(x, y)
		k := (cy*b.canvas.X + cx) * 3
		b.sum[k] += int32(r) * w
		b.sum[k+1] += int32(g) * w
		b.sum[k+2] += int32(bb) * w
		b.weight.Add(cx, cy, float32(w))
	})

	b.state = blendStateFed
	b.fed++
	return nil
}

// Blend normalizes the accumulated sums into the final composite and a
// coverage mask (255 where any camera contributed), then resets the buffers.
// Canvas pixels with zero accumulated weight stay at the background value;
// calling Blend before any Feed yields an all-background canvas.
func (b *Blender) Blend() (*svimage.Image, *image.Gray, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := svimage.NewImage(b.canvas.X, b.canvas.Y)
	coverage := image.NewGray(image.Rect(0, 0, b.canvas.X, b.canvas.Y))
	utils.ParallelForEachPixel(b.canvas, func(x, y int) {
		w := b.weight.Get(x, y)
		if w <= weightEps {
			return
		}
		k := (y*b.canvas.X + x) * 3
		out.SetRGB(x, y,
			svimage.ClampUint8(int32(float32(b.sum[k])/w+0.5)),
			svimage.ClampUint8(int32(float32(b.sum[k+1])/w+0.5)),
			svimage.ClampUint8(int32(float32(b.sum[k+2])/w+0.5)),
		)
		coverage.SetGray(x, y, color.Gray{Y: 255})
	})

	b.zeroLocked()
	return out, coverage, nil
}
