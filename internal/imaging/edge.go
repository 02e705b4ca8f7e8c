package imaging

import (
	"image"
	"math"
)

// Gradient holds the Sobel derivatives of a grayscale image.
//
// All slices are row-major with Width*Height entries. Mag is the L1 magnitude
// |dx| + |dy|.
type Gradient struct {
	Width  int
	Height int
	DX     []float64
	DY     []float64
	Mag    []float64
}

// Sobel computes 3x3 Sobel derivatives with replicated borders.
func Sobel(gray *image.Gray) *Gradient {
	src := compact(gray)
	width, height := src.Rect.Dx(), src.Rect.Dy()
	g := &Gradient{
		Width:  width,
		Height: height,
		DX:     make([]float64, width*height),
		DY:     make([]float64, width*height),
		Mag:    make([]float64, width*height),
	}

	sobelX := [3][3]float64{
		{-1, 0, 1},
		{-2, 0, 2},
		{-1, 0, 1},
	}
	sobelY := [3][3]float64{
		{-1, -2, -1},
		{0, 0, 0},
		{1, 2, 1},
	}

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			var gx, gy float64
			for ky := -1; ky <= 1; ky++ {
				for kx := -1; kx <= 1; kx++ {
					py := clamp(y+ky, 0, height-1)
					px := clamp(x+kx, 0, width-1)
					v := float64(src.Pix[py*width+px])
					gx += v * sobelX[ky+1][kx+1]
					gy += v * sobelY[ky+1][kx+1]
				}
			}
			i := y*width + x
			g.DX[i] = gx
			g.DY[i] = gy
			g.Mag[i] = math.Abs(gx) + math.Abs(gy)
		}
	}
	return g
}

// Canny detects edges in an 8-bit image.
//
// Parameters:
//   - gray: Source image, usually pre-smoothed by the caller.
//   - low: Gradient magnitude a pixel must exceed to continue an edge.
//   - high: Gradient magnitude a pixel must exceed to start an edge.
//
// Returns the edge map (Foreground on edges) and the gradient it was built
// from, so callers can reuse the derivatives for voting.
//
// # Algorithm
//
//  1. Sobel derivatives with L1 magnitude.
//  2. Non-maximum suppression along the gradient direction quantized to
//     0, 45, 90 or 135 degrees. Border pixels are never edges.
//  3. Hysteresis: pixels above high seed a breadth-first walk through
//     8-connected pixels above low.
func Canny(gray *image.Gray, low, high float64) (*image.Gray, *Gradient) {
	if low > high {
		low, high = high, low
	}
	g := Sobel(gray)
	width, height := g.Width, g.Height
	suppressed := make([]float64, width*height)

	for y := 1; y < height-1; y++ {
		for x := 1; x < width-1; x++ {
			i := y*width + x
			mag := g.Mag[i]
			if mag <= low {
				continue
			}

			angle := math.Atan2(g.DY[i], g.DX[i])
			var n1, n2 float64
			if (angle >= -math.Pi/8 && angle < math.Pi/8) || (angle >= 7*math.Pi/8 || angle < -7*math.Pi/8) {
				n1 = g.Mag[i-1]
				n2 = g.Mag[i+1]
			} else if (angle >= math.Pi/8 && angle < 3*math.Pi/8) || (angle >= -7*math.Pi/8 && angle < -5*math.Pi/8) {
				n1 = g.Mag[i-width-1]
				n2 = g.Mag[i+width+1]
			} else if (angle >= 3*math.Pi/8 && angle < 5*math.Pi/8) || (angle >= -5*math.Pi/8 && angle < -3*math.Pi/8) {
				n1 = g.Mag[i-width]
				n2 = g.Mag[i+width]
			} else {
				n1 = g.Mag[i-width+1]
				n2 = g.Mag[i+width-1]
			}

			// strict on one side so plateaus keep a single pixel
			if mag > n1 && mag >= n2 {
				suppressed[i] = mag
			}
		}
	}

	edges := image.NewGray(image.Rect(0, 0, width, height))
	var queue []int
	for i, v := range suppressed {
		if v > high {
			edges.Pix[i] = Foreground
			queue = append(queue, i)
		}
	}
	for len(queue) > 0 {
		i := queue[0]
		queue = queue[1:]
		x, y := i%width, i/width
		for dy := -1; dy <= 1; dy++ {
			for dx := -1; dx <= 1; dx++ {
				nx, ny := x+dx, y+dy
				if nx < 0 || nx >= width || ny < 0 || ny >= height {
					continue
				}
				j := ny*width + nx
				if edges.Pix[j] == Background && suppressed[j] > low {
					edges.Pix[j] = Foreground
					queue = append(queue, j)
				}
			}
		}
	}
	return edges, g
}

// clamp constrains an integer value to the range [lo, hi].
// Used for boundary handling in convolution operations.
func clamp(val, lo, hi int) int {
	if val < lo {
		return lo
	}
	if val > hi {
		return hi
	}
	return val
}
