package scene

import "math"

// Braille dot positions (col, row) → bit offset:
//
//	(0,0)=0  (1,0)=3
//	(0,1)=1  (1,1)=4
//	(0,2)=2  (1,2)=5
//	(0,3)=6  (1,3)=7
var brailleBits = [2][4]uint{
	{0, 1, 2, 6},
	{3, 4, 5, 7},
}

// canvas is a dot raster backed by braille cells; each cell holds a 2x4 dot
// grid and remembers the nearest depth drawn into it.
type canvas struct {
	cols, rows int
	bits       []uint8
	depth      []float64
}

func newCanvas(cols, rows int) *canvas {
	c := &canvas{}
	c.resize(cols, rows)
	return c
}

func (c *canvas) resize(cols, rows int) {
	c.cols = max(cols, 0)
	c.rows = max(rows, 0)
	c.bits = make([]uint8, c.cols*c.rows)
	c.depth = make([]float64, c.cols*c.rows)
	c.clear()
}

func (c *canvas) clear() {
	clear(c.bits)
	for i := range c.depth {
		c.depth[i] = math.Inf(1)
	}
}

// dots returns the raster size in dots.
func (c *canvas) dots() (w, h int) { return c.cols * 2, c.rows * 4 }

// set lights dot (x, y). Out-of-range dots are ignored.
func (c *canvas) set(x, y int, depth float64) {
	w, h := c.dots()
	if x < 0 || y < 0 || x >= w || y >= h {
		return
	}
	i := (y/4)*c.cols + x/2
	c.bits[i] |= 1 << brailleBits[x%2][y%4]
	if depth < c.depth[i] {
		c.depth[i] = depth
	}
}

func (c *canvas) cell(col, row int) (r rune, depth float64, lit bool) {
	i := row*c.cols + col
	b := c.bits[i]
	if b == 0 {
		return ' ', c.depth[i], false
	}
	return rune(0x2800 + int(b)), c.depth[i], true
}
