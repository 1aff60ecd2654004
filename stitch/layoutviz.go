package stitch

import (
	"image"

	"github.com/fogleman/gg"

	"github.com/GKT-github/Ethsimple-nostitch/svimage"
)

// cameraColors cycles per-camera tints for RenderLayout.
var cameraColors = [][3]float64{
	{0.90, 0.30, 0.24},
	{0.18, 0.55, 0.85},
	{0.20, 0.70, 0.35},
	{0.95, 0.70, 0.15},
}

// RenderLayout draws the canvas layout for calibration debugging: each
// camera's blend mask as a tinted overlay (opacity follows the mask weight),
// the tile outline, the partition diagonals, and the camera name at the tile
// center.
func RenderLayout(canvas image.Point, maps []*svimage.WarpMap, masks []*image.Gray, names []string) image.Image {
	dc := gg.NewContext(canvas.X, canvas.Y)
	dc.SetRGB(0.07, 0.07, 0.07)
	dc.Clear()

	for i, wm := range maps {
		tint := cameraColors[i%len(cameraColors)]
		mask := masks[i]
		for y := 0; y < wm.Size.Y; y++ {
			for x := 0; x < wm.Size.X; x++ {
				w := mask.GrayAt(x, y).Y
				if w == 0 {
					continue
				}
				a := float64(w) / 255 * 0.6
				dc.SetRGBA(tint[0], tint[1], tint[2], a)
				dc.SetPixel(wm.Corner.X+x, wm.Corner.Y+y)
			}
		}
	}

	for i, wm := range maps {
		tint := cameraColors[i%len(cameraColors)]
		dc.SetRGB(tint[0], tint[1], tint[2])
		dc.SetLineWidth(2)
		dc.DrawRectangle(float64(wm.Corner.X), float64(wm.Corner.Y), float64(wm.Size.X), float64(wm.Size.Y))
		dc.Stroke()
		if i < len(names) {
			dc.SetRGB(1, 1, 1)
			dc.DrawStringAnchored(names[i],
				float64(wm.Corner.X)+float64(wm.Size.X)/2,
				float64(wm.Corner.Y)+float64(wm.Size.Y)/2,
				0.5, 0.5)
		}
	}

	// Partition diagonals through the canvas corners and center.
	dc.SetRGBA(1, 1, 1, 0.8)
	dc.SetLineWidth(1)
	dc.DrawLine(0, 0, float64(canvas.X), float64(canvas.Y))
	dc.DrawLine(float64(canvas.X), 0, 0, float64(canvas.Y))
	dc.Stroke()

	return dc.Image()
}
