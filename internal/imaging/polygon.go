package imaging

import (
	"image"
	"math"
	"sort"
)

// FillPolygon rasterizes a closed polygon into mask with the Foreground value.
//
// Vertices are truncated toward zero before filling. The interior is
// scan-filled with the even-odd rule at pixel centres and the outline itself
// is drawn, so boundary pixels are always included. Polygons with one or two
// vertices degrade to a point or a line. Parts outside the mask bounds are
// clipped; the work done is bounded by the mask size, however far a finite
// vertex lies outside it. Non-finite vertices are ignored.
func FillPolygon(mask *image.Gray, xs, ys []float64) {
	n := min(len(xs), len(ys))
	pts := make([]fpoint, 0, n)
	for i := 0; i < n; i++ {
		x, y := math.Trunc(xs[i]), math.Trunc(ys[i])
		if math.IsNaN(x) || math.IsNaN(y) || math.IsInf(x, 0) || math.IsInf(y, 0) {
			continue
		}
		pts = append(pts, fpoint{x, y})
	}
	n = len(pts)
	if n == 0 {
		return
	}

	b := mask.Bounds()
	if n >= 3 {
		minY, maxY := pts[0].y, pts[0].y
		for _, p := range pts[1:] {
			minY = math.Min(minY, p.y)
			maxY = math.Max(maxY, p.y)
		}
		top, bottom := float64(b.Min.Y), float64(b.Max.Y-1)
		y0 := int(math.Min(math.Max(minY, top), bottom+1))
		y1 := int(math.Max(math.Min(maxY, bottom), top-1))

		xsAt := make([]float64, 0, n)
		for y := y0; y <= y1; y++ {
			xsAt = xsAt[:0]
			fy := float64(y)
			for i := 0; i < n; i++ {
				a, c := pts[i], pts[(i+1)%n]
				if a.y == c.y {
					continue
				}
				// half-open on the upper end so shared vertices count once
				lo, hi := a, c
				if lo.y > hi.y {
					lo, hi = hi, lo
				}
				if fy < lo.y || fy >= hi.y {
					continue
				}
				t := (fy - lo.y) / (hi.y - lo.y)
				xsAt = append(xsAt, lo.x+t*(hi.x-lo.x))
			}
			sort.Float64s(xsAt)
			for i := 0; i+1 < len(xsAt); i += 2 {
				setSpan(mask, y, clampX(b, math.Ceil(xsAt[i])), clampX(b, math.Floor(xsAt[i+1])))
			}
		}
	}

	for i := 0; i < n; i++ {
		a, c, ok := clipSegment(b, pts[i], pts[(i+1)%n])
		if ok {
			drawLine(mask, a, c)
		}
	}
}

type fpoint struct{ x, y float64 }

// clampX limits a span end to one pixel beyond the bounds on either side, so
// the conversion to int cannot overflow.
func clampX(b image.Rectangle, x float64) int {
	return int(math.Max(float64(b.Min.X-1), math.Min(x, float64(b.Max.X))))
}

// clipSegment clips the segment a-c to the pixel rectangle of b with the
// Liang-Barsky algorithm and rounds the result to pixel coordinates.
// Segments lying entirely inside are returned unchanged.
func clipSegment(b image.Rectangle, a, c fpoint) (Point, Point, bool) {
	if b.Empty() {
		return Point{}, Point{}, false
	}
	xmin, xmax := float64(b.Min.X), float64(b.Max.X-1)
	ymin, ymax := float64(b.Min.Y), float64(b.Max.Y-1)
	dx, dy := c.x-a.x, c.y-a.y
	t0, t1 := 0.0, 1.0

	for _, e := range [4][2]float64{
		{-dx, a.x - xmin},
		{dx, xmax - a.x},
		{-dy, a.y - ymin},
		{dy, ymax - a.y},
	} {
		p, q := e[0], e[1]
		if p == 0 {
			if q < 0 {
				return Point{}, Point{}, false
			}
			continue
		}
		r := q / p
		if p < 0 {
			if r > t1 {
				return Point{}, Point{}, false
			}
			t0 = math.Max(t0, r)
		} else {
			if r < t0 {
				return Point{}, Point{}, false
			}
			t1 = math.Min(t1, r)
		}
	}

	at := func(t float64) Point {
		return Point{int(math.Round(a.x + t*dx)), int(math.Round(a.y + t*dy))}
	}
	return at(t0), at(t1), true
}

// FillDisk sets every pixel whose centre lies within radius of (cx, cy).
func FillDisk(mask *image.Gray, cx, cy, radius int) {
	if radius < 0 {
		return
	}
	r2 := radius * radius
	for dy := -radius; dy <= radius; dy++ {
		span := int(math.Floor(math.Sqrt(float64(r2 - dy*dy))))
		setSpan(mask, cy+dy, cx-span, cx+span)
	}
}

func setSpan(mask *image.Gray, y, x0, x1 int) {
	b := mask.Bounds()
	if y < b.Min.Y || y >= b.Max.Y {
		return
	}
	x0 = max(x0, b.Min.X)
	x1 = min(x1, b.Max.X-1)
	for x := x0; x <= x1; x++ {
		mask.Pix[mask.PixOffset(x, y)] = Foreground
	}
}

// drawLine draws an 8-connected Bresenham segment. Pixels outside the mask
// are skipped.
func drawLine(mask *image.Gray, a, c Point) {
	b := mask.Bounds()
	dx := abs(c.X - a.X)
	dy := -abs(c.Y - a.Y)
	sx, sy := 1, 1
	if a.X > c.X {
		sx = -1
	}
	if a.Y > c.Y {
		sy = -1
	}
	err := dx + dy
	x, y := a.X, a.Y
	for {
		if (image.Point{x, y}).In(b) {
			mask.Pix[mask.PixOffset(x, y)] = Foreground
		}
		if x == c.X && y == c.Y {
			return
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x += sx
		}
		if e2 <= dx {
			err += dx
			y += sy
		}
	}
}
