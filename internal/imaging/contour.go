package imaging

import (
	"image"
	"math"
)

// Point represents a 2D coordinate in pixel space.
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Component is one 8-connected foreground region of a binary image.
type Component struct {
	// Label is the 1-based component index in raster-scan order.
	Label int

	// Pixels is the number of foreground pixels in the region.
	Pixels int

	// Contour is the traced outer boundary, clockwise, starting at the
	// top-most, left-most pixel.
	Contour []Point

	// Area is the polygon area enclosed by Contour, measured through pixel
	// centres. A single pixel or a one-pixel-wide line has area 0.
	Area float64
}

// clockwise neighbor offsets starting west (image y axis points down).
var mooreDirs = [8]Point{
	{-1, 0}, {-1, -1}, {0, -1}, {1, -1}, {1, 0}, {1, 1}, {0, 1}, {-1, 1},
}

// FindComponents labels the 8-connected foreground regions of a mask and
// traces their outer contours.
//
// Returns the components in raster-scan order of their first pixel and a
// label image (0 = background) of size width*height.
func FindComponents(mask *image.Gray) ([]Component, []int) {
	src := compact(mask)
	w, h := src.Rect.Dx(), src.Rect.Dy()
	labels := make([]int, w*h)
	var comps []Component

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := y*w + x
			if src.Pix[i] == Background || labels[i] != 0 {
				continue
			}
			label := len(comps) + 1
			n := floodLabel(src, labels, x, y, label)
			contour := traceContour(labels, w, h, Point{x, y}, label)
			comps = append(comps, Component{
				Label:   label,
				Pixels:  n,
				Contour: contour,
				Area:    polygonArea(contour),
			})
		}
	}
	return comps, labels
}

// floodLabel assigns label to the 8-connected region containing (sx, sy).
//
// Uses an explicit stack rather than recursion so large regions cannot
// overflow the goroutine stack.
func floodLabel(src *image.Gray, labels []int, sx, sy, label int) int {
	w, h := src.Rect.Dx(), src.Rect.Dy()
	stack := []Point{{sx, sy}}
	labels[sy*w+sx] = label
	n := 0

	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		n++

		for _, d := range mooreDirs {
			nx, ny := p.X+d.X, p.Y+d.Y
			if nx < 0 || nx >= w || ny < 0 || ny >= h {
				continue
			}
			j := ny*w + nx
			if src.Pix[j] == Background || labels[j] != 0 {
				continue
			}
			labels[j] = label
			stack = append(stack, Point{nx, ny})
		}
	}
	return n
}

// traceContour follows the outer boundary of a labelled region with Moore
// neighbor tracing. start must be the region's first pixel in raster order,
// so its west neighbor is known to be outside the region.
func traceContour(labels []int, w, h int, start Point, label int) []Point {
	inside := func(p Point) bool {
		return p.X >= 0 && p.X < w && p.Y >= 0 && p.Y < h && labels[p.Y*w+p.X] == label
	}

	next := func(cur Point, back int) (Point, int, bool) {
		for k := 1; k <= 8; k++ {
			d := (back + k) % 8
			n := Point{cur.X + mooreDirs[d].X, cur.Y + mooreDirs[d].Y}
			if inside(n) {
				prev := mooreDirs[(d+7)%8]
				// direction from n back to the last background pixel examined
				rel := Point{cur.X + prev.X - n.X, cur.Y + prev.Y - n.Y}
				return n, dirIndex(rel), true
			}
		}
		return Point{}, 0, false
	}

	contour := []Point{start}
	first, back, ok := next(start, 0)
	if !ok {
		return contour
	}

	cur := first
	maxSteps := 4*w*h + 8
	for step := 0; step < maxSteps; step++ {
		if cur == start {
			n, b, _ := next(cur, back)
			if n == first {
				break
			}
			contour = append(contour, cur)
			cur, back = n, b
			continue
		}
		contour = append(contour, cur)
		cur, back, _ = next(cur, back)
	}
	return contour
}

func dirIndex(p Point) int {
	for i, d := range mooreDirs {
		if d == p {
			return i
		}
	}
	return 0
}

// polygonArea returns the absolute shoelace area of a closed polygon.
func polygonArea(pts []Point) float64 {
	if len(pts) < 3 {
		return 0
	}
	var sum int
	for i := range pts {
		j := (i + 1) % len(pts)
		sum += pts[i].X*pts[j].Y - pts[j].X*pts[i].Y
	}
	return math.Abs(float64(sum)) / 2
}

// ContourFill keeps the components whose contour area lies in the inclusive
// range [minArea, maxArea] and fills them, holes included.
//
// Returns the filled mask and the kept components in raster-scan order.
func ContourFill(mask *image.Gray, minArea, maxArea float64) (*image.Gray, []Component) {
	filled, kept := contourFill(compact(mask), minArea, maxArea)
	return FillHoles(filled), kept
}

// FillHoles sets every background pixel that is not 4-connected to the image
// border to Foreground.
func FillHoles(mask *image.Gray) *image.Gray {
	src := compact(mask)
	w, h := src.Rect.Dx(), src.Rect.Dy()
	outside := make([]bool, w*h)
	var stack []Point

	push := func(x, y int) {
		i := y*w + x
		if src.Pix[i] != Background || outside[i] {
			return
		}
		outside[i] = true
		stack = append(stack, Point{x, y})
	}

	for x := 0; x < w; x++ {
		push(x, 0)
		push(x, h-1)
	}
	for y := 0; y < h; y++ {
		push(0, y)
		push(w-1, y)
	}

	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if p.X > 0 {
			push(p.X-1, p.Y)
		}
		if p.X < w-1 {
			push(p.X+1, p.Y)
		}
		if p.Y > 0 {
			push(p.X, p.Y-1)
		}
		if p.Y < h-1 {
			push(p.X, p.Y+1)
		}
	}

	dst := image.NewGray(src.Rect)
	for i := range dst.Pix {
		if src.Pix[i] != Background || !outside[i] {
			dst.Pix[i] = Foreground
		}
	}
	return dst
}
