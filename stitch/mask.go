// Package stitch composites warped camera frames into one seamless
// surround-view canvas: blend masks, exposure gain compensation, weighted
// accumulation, and the per-frame pipeline that orchestrates them.
package stitch

import (
	"image"
	"image/color"
	"math"

	"github.com/pkg/errors"

	"github.com/GKT-github/Ethsimple-nostitch/svimage"
)

// DefaultFadeDistance is the perpendicular distance, in canvas pixels, over
// which a camera's weight fades toward a shared boundary.
const DefaultFadeDistance = 40.0

// MaskBuilder produces per-camera blend masks from canvas layout geometry.
// The canvas is partitioned by the two diagonals through its corners and
// center; a camera's weight falls off smoothly within FadeDistance of either
// diagonal so neighboring cameras cross-fade instead of butting at a hard
// seam. No camera imagery is consulted.
type MaskBuilder struct {
	FadeDistance float64
}

// Build returns one 8-bit weight mask per camera, each aligned with that
// camera's warped tile. Weight is zero wherever the warp map has no valid
// source pixel, and monotonically non-increasing toward the partition
// diagonals.
func (mb *MaskBuilder) Build(canvas image.Point, maps []*svimage.WarpMap) ([]*image.Gray, error) {
	if canvas.X <= 0 || canvas.Y <= 0 {
		return nil, errors.Errorf("invalid canvas size %v", canvas)
	}
	fade := mb.FadeDistance
	if fade <= 0 {
		fade = DefaultFadeDistance
	}

	// The two partition lines run corner to corner through the canvas
	// center: y = kx and y = -kx + H, with k = H/W.
	slope := float64(canvas.Y) / float64(canvas.X)
	normalizer := math.Sqrt(slope*slope + 1)

	masks := make([]*image.Gray, len(maps))
	for i, wm := range maps {
		mask := image.NewGray(image.Rect(0, 0, wm.Size.X, wm.Size.Y))
		for y := 0; y < wm.Size.Y; y++ {
			for x := 0; x < wm.Size.X; x++ {
				if !wm.Valid(x, y) {
					continue
				}
				cx := float64(wm.Corner.X + x)
				cy := float64(wm.Corner.Y + y)

				d1 := math.Abs(cy-slope*cx) / normalizer
				d2 := math.Abs(cy+slope*cx-float64(canvas.Y)) / normalizer
				d := math.Min(d1, d2)

				t := 1.0
				if d < fade {
					t = d / fade
				}
				mask.SetGray(x, y, color.Gray{Y: uint8(255*easeInOut(t) + 0.5)})
			}
		}
		masks[i] = mask
	}
	return masks, nil
}

// easeInOut is the smoothstep curve 3t^2 - 2t^3 on [0, 1].
func easeInOut(t float64) float64 {
	return t * t * (3 - 2*t)
}
