package svimage

// Image16 is a signed 16-bit 3-channel image. Warped frames are converted to
// this before gain correction and blending so intermediate values cannot
// overflow an 8-bit channel.
type Image16 struct {
	pix           []int16
	width, height int
}

// NewImage16 returns a zeroed Image16.
func NewImage16(width, height int) *Image16 {
	return &Image16{
		pix:    make([]int16, width*height*3),
		width:  width,
		height: height,
	}
}

func (i *Image16) kxy(x, y int) int {
	return (y*i.width + x) * 3
}

// Width returns the horizontal dimension in pixels.
func (i *Image16) Width() int {
	return i.width
}

// Height returns the vertical dimension in pixels.
func (i *Image16) Height() int {
	return i.height
}

// Get returns the three channel values at (x, y).
func (i *Image16) Get(x, y int) (int16, int16, int16) {
	k := i.kxy(x, y)
	return i.pix[k], i.pix[k+1], i.pix[k+2]
}

// Set sets the three channel values at (x, y).
func (i *Image16) Set(x, y int, r, g, b int16) {
	k := i.kxy(x, y)
	i.pix[k] = r
	i.pix[k+1] = g
	i.pix[k+2] = b
}

// ToImage16 widens an 8-bit image into a signed 16-bit one.
func (i *Image) ToImage16() *Image16 {
	out := NewImage16(i.width, i.height)
	for k, v := range i.pix {
		out.pix[k] = int16(v)
	}
	return out
}

// ToImage narrows back to 8 bits, clamping each channel to [0, 255].
func (i *Image16) ToImage() *Image {
	out := NewImage(i.width, i.height)
	for k, v := range i.pix {
		out.pix[k] = ClampUint8(int32(v))
	}
	return out
}

// ClampUint8 clamps v to the valid 8-bit pixel range.
func ClampUint8(v int32) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}

// ClampInt16 clamps v to the valid signed 16-bit range.
func ClampInt16(v int32) int16 {
	if v < -32768 {
		return -32768
	}
	if v > 32767 {
		return 32767
	}
	return int16(v)
}
