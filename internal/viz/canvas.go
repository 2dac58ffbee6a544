package viz

import (
	"math"
	"strings"
)

// Braille Patterns: 2x4 dots
// 1 4
// 2 5
// 3 6
// 7 8
//
// Unicode offset 0x2800
const brailleBlank = 0x2800

var pixelMap = [4][2]rune{
	{0x1, 0x8},
	{0x2, 0x10},
	{0x4, 0x20},
	{0x40, 0x80},
}

// Canvas is a grid of Braille cells addressed in dots. A canvas of Width x
// Height cells holds (Width*2) x (Height*4) dots.
type Canvas struct {
	Width, Height int
	Grid          [][]rune

	view Viewport
}

func NewCanvas(w, h int) *Canvas {
	c := &Canvas{
		Width:  w,
		Height: h,
		Grid:   make([][]rune, h),
	}
	for i := range c.Grid {
		c.Grid[i] = make([]rune, w)
	}
	c.Clear()
	dw, dh := c.Dots()
	c.view = Fit(-1, 1, -1, 1, dw, dh)
	return c
}

// Dots is the canvas size in dots.
func (c *Canvas) Dots() (w, h int) { return c.Width * 2, c.Height * 4 }

// SetView sets the world rectangle drawn by the world-space helpers.
func (c *Canvas) SetView(v Viewport) { c.view = v }

func (c *Canvas) View() Viewport { return c.view }

// Set turns on the dot at (x, y). Out-of-range dots are ignored.
func (c *Canvas) Set(x, y int) {
	if x < 0 || y < 0 {
		return
	}
	col, row := x/2, y/4
	if col >= c.Width || row >= c.Height {
		return
	}
	c.Grid[row][col] |= pixelMap[y%4][x%2]
}

// IsSet reports whether the dot at (x, y) is on.
func (c *Canvas) IsSet(x, y int) bool {
	if x < 0 || y < 0 || x/2 >= c.Width || y/4 >= c.Height {
		return false
	}
	return c.Grid[y/4][x/2]&pixelMap[y%4][x%2] != 0
}

func (c *Canvas) Clear() {
	for i := range c.Grid {
		for j := range c.Grid[i] {
			c.Grid[i][j] = brailleBlank
		}
	}
}

// DrawLine draws a line using Bresenham's algorithm. With dash > 0 only
// every other run of dash dots is drawn.
func (c *Canvas) DrawLine(x0, y0, x1, y1, dash int) {
	dx := absInt(x1 - x0)
	dy := absInt(y1 - y0)
	sx := -1
	if x0 < x1 {
		sx = 1
	}
	sy := -1
	if y0 < y1 {
		sy = 1
	}
	err := dx - dy

	for n := 0; ; n++ {
		if dash <= 0 || (n/dash)%2 == 0 {
			c.Set(x0, y0)
		}
		if x0 == x1 && y0 == y1 {
			break
		}
		e2 := 2 * err
		if e2 > -dy {
			err -= dy
			x0 += sx
		}
		if e2 < dx {
			err += dx
			y0 += sy
		}
	}
}

// Disc fills a circle of radius r dots around (cx, cy).
func (c *Canvas) Disc(cx, cy, r int) {
	for dy := -r; dy <= r; dy++ {
		for dx := -r; dx <= r; dx++ {
			if dx*dx+dy*dy <= r*r {
				c.Set(cx+dx, cy+dy)
			}
		}
	}
}

// Segment draws a world-space line.
func (c *Canvas) Segment(x0, y0, x1, y1 float64, dash int) {
	ax, ay := c.view.Dot(x0, y0)
	bx, by := c.view.Dot(x1, y1)
	c.DrawLine(ax, ay, bx, by, dash)
}

// Point draws a world-space disc.
func (c *Canvas) Point(x, y float64, r int) {
	px, py := c.view.Dot(x, y)
	c.Disc(px, py, r)
}

func (c *Canvas) String() string {
	var b strings.Builder
	for _, row := range c.Grid {
		b.WriteString(string(row))
		b.WriteByte('\n')
	}
	return b.String()
}

// Viewport maps world coordinates (y up) onto canvas dots (y down) with a
// uniform scale.
type Viewport struct {
	MinX, MaxY float64
	Scale      float64
}

// Fit returns the largest uniform viewport that shows the world rectangle
// centered on a canvas of the given size in dots.
func Fit(minX, maxX, minY, maxY float64, dotsW, dotsH int) Viewport {
	w, h := maxX-minX, maxY-minY
	scale := math.Min(float64(dotsW-1)/w, float64(dotsH-1)/h)
	padX := (float64(dotsW-1)/scale - w) / 2
	padY := (float64(dotsH-1)/scale - h) / 2
	return Viewport{MinX: minX - padX, MaxY: maxY + padY, Scale: scale}
}

func (v Viewport) Dot(x, y float64) (int, int) {
	return int(math.Round((x - v.MinX) * v.Scale)), int(math.Round((v.MaxY - y) * v.Scale))
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
