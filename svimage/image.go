// Package svimage defines the image containers the surround-view stitching
// core works with: an 8-bit 3-channel frame, a signed 16-bit intermediate,
// and float32 grids for warp maps and weight sums.
package svimage

import (
	"image"
	"image/color"
	"image/draw"
)

// Image is an 8-bit RGB image with interleaved channels, row-major.
// It is the frame format exchanged with the capture and render collaborators.
type Image struct {
	pix           []uint8
	width, height int
}

// NewImage returns a zeroed (black) image of the given dimensions.
func NewImage(width, height int) *Image {
	return &Image{
		pix:    make([]uint8, width*height*3),
		width:  width,
		height: height,
	}
}

// NewImageFromStdImage copies a stdlib image into an Image.
func NewImageFromStdImage(img image.Image) *Image {
	bounds := img.Bounds()
	out := NewImage(bounds.Dx(), bounds.Dy())
	rgba := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, bounds.Min, draw.Src)
	for y := 0; y < out.height; y++ {
		for x := 0; x < out.width; x++ {
			si := rgba.PixOffset(x, y)
			di := out.kxy(x, y)
			out.pix[di] = rgba.Pix[si]
			out.pix[di+1] = rgba.Pix[si+1]
			out.pix[di+2] = rgba.Pix[si+2]
		}
	}
	return out
}

func (i *Image) kxy(x, y int) int {
	return (y*i.width + x) * 3
}

// Width returns the horizontal dimension in pixels.
func (i *Image) Width() int {
	return i.width
}

// Height returns the vertical dimension in pixels.
func (i *Image) Height() int {
	return i.height
}

// In reports whether the point is inside the image bounds.
func (i *Image) In(x, y int) bool {
	return x >= 0 && y >= 0 && x < i.width && y < i.height
}

// Bounds implements image.Image.
func (i *Image) Bounds() image.Rectangle {
	return image.Rect(0, 0, i.width, i.height)
}

// ColorModel implements image.Image.
func (i *Image) ColorModel() color.Model {
	return color.RGBAModel
}

// At implements image.Image.
func (i *Image) At(x, y int) color.Color {
	r, g, b := i.GetRGB(x, y)
	return color.RGBA{r, g, b, 255}
}

// GetRGB returns the three channel values at (x, y).
func (i *Image) GetRGB(x, y int) (uint8, uint8, uint8) {
	k := i.kxy(x, y)
	return i.pix[k], i.pix[k+1], i.pix[k+2]
}

// SetRGB sets the three channel values at (x, y).
func (i *Image) SetRGB(x, y int, r, g, b uint8) {
	k := i.kxy(x, y)
	i.pix[k] = r
	i.pix[k+1] = g
	i.pix[k+2] = b
}

// Fill sets every pixel to the given value.
func (i *Image) Fill(r, g, b uint8) {
	for k := 0; k < len(i.pix); k += 3 {
		i.pix[k] = r
		i.pix[k+1] = g
		i.pix[k+2] = b
	}
}

// Clone returns a deep copy.
func (i *Image) Clone() *Image {
	out := NewImage(i.width, i.height)
	copy(out.pix, i.pix)
	return out
}
