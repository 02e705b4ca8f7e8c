//go:build !gocv

package detection

import (
	"image"
	"math"
	"sort"

	"github.com/ironsheep/tissue-mask-mcp/internal/imaging"
)

// houghCircles is the pure Go Hough gradient search.
func houghCircles(gray *image.Gray, p HoughParams) []Circle {
	blurred := smooth(gray)
	edges, grad := imaging.Canny(blurred, p.Param1/2, p.Param1)
	width, height := grad.Width, grad.Height
	if width == 0 || height == 0 {
		return nil
	}

	type edgePoint struct{ x, y int }
	var points []edgePoint
	acc := make([]int, width*height)

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			i := y*width + x
			if edges.Pix[i] == imaging.Background {
				continue
			}
			points = append(points, edgePoint{x, y})

			dx, dy := grad.DX[i], grad.DY[i]
			mag := math.Hypot(dx, dy)
			if mag == 0 {
				continue
			}
			ux, uy := dx/mag, dy/mag
			for _, sign := range [2]float64{1, -1} {
				for r := p.MinRadius; r <= p.MaxRadius; r++ {
					cx := int(math.Round(float64(x) + sign*float64(r)*ux))
					cy := int(math.Round(float64(y) + sign*float64(r)*uy))
					if cx < 0 || cx >= width || cy < 0 || cy >= height {
						continue
					}
					acc[cy*width+cx]++
				}
			}
		}
	}

	// centre candidates: above threshold and a local maximum, ties broken
	// toward the earlier raster position
	var centres []int
	for y := 1; y < height-1; y++ {
		for x := 1; x < width-1; x++ {
			i := y*width + x
			v := acc[i]
			if float64(v) <= p.Param2 {
				continue
			}
			if v > acc[i-1] && v >= acc[i+1] && v > acc[i-width] && v >= acc[i+width] {
				centres = append(centres, i)
			}
		}
	}
	sort.SliceStable(centres, func(a, b int) bool {
		va, vb := acc[centres[a]], acc[centres[b]]
		if va != vb {
			return va > vb
		}
		return centres[a] < centres[b]
	})

	minDist2 := p.MinDist * p.MinDist
	var circles []Circle
	support := make([]int, p.MaxRadius-p.MinRadius+1)

	for _, ci := range centres {
		cx, cy := ci%width, ci/width

		tooClose := false
		for _, c := range circles {
			dx, dy := float64(c.X-cx), float64(c.Y-cy)
			if dx*dx+dy*dy < minDist2 {
				tooClose = true
				break
			}
		}
		if tooClose {
			continue
		}

		for k := range support {
			support[k] = 0
		}
		for _, pt := range points {
			d := math.Hypot(float64(pt.x-cx), float64(pt.y-cy))
			r := int(math.Round(d))
			if r < p.MinRadius || r > p.MaxRadius {
				continue
			}
			support[r-p.MinRadius]++
		}

		best, bestCount := -1, 0
		for k, n := range support {
			if n > bestCount {
				best, bestCount = k, n
			}
		}
		if best < 0 {
			continue
		}
		circles = append(circles, Circle{
			X:      cx,
			Y:      cy,
			Radius: p.MinRadius + best,
			Votes:  acc[ci],
		})
	}
	return circles
}
