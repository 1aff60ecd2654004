package svimage

// FloatGrid is a dense float32 grid. The warp map coordinate planes and the
// blender's weight-sum buffer are FloatGrids.
type FloatGrid struct {
	data          []float32
	width, height int
}

// NewFloatGrid returns a zeroed grid.
func NewFloatGrid(width, height int) *FloatGrid {
	return &FloatGrid{
		data:   make([]float32, width*height),
		width:  width,
		height: height,
	}
}

// Width returns the horizontal dimension.
func (g *FloatGrid) Width() int {
	return g.width
}

// Height returns the vertical dimension.
func (g *FloatGrid) Height() int {
	return g.height
}

// Get returns the value at (x, y).
func (g *FloatGrid) Get(x, y int) float32 {
	return g.data[y*g.width+x]
}

// Set sets the value at (x, y).
func (g *FloatGrid) Set(x, y int, v float32) {
	g.data[y*g.width+x] = v
}

// Add accumulates v at (x, y).
func (g *FloatGrid) Add(x, y int, v float32) {
	g.data[y*g.width+x] += v
}

// Zero resets every entry to 0.
func (g *FloatGrid) Zero() {
	for i := range g.data {
		g.data[i] = 0
	}
}
