//go:build !gocv

package imaging

import (
	"image"
	"math"
)

// Pure Go raster backends. Builds with the gocv tag replace them with the
// OpenCV calls in raster_gocv.go. Inputs are compact (origin-anchored,
// stride == width) and parameters are already normalized by the callers.

// thresholdGray marks pixels strictly greater than t, -1 <= t <= 255.
func thresholdGray(src *image.Gray, t int) *image.Gray {
	dst := image.NewGray(src.Rect)
	for i, v := range src.Pix {
		if int(v) > t {
			dst.Pix[i] = Foreground
		}
	}
	return dst
}

// otsuLevel scans levels 0..255 for the first maximum of the between-class
// variance. src is not empty.
func otsuLevel(src *image.Gray) int {
	var hist [256]int
	for _, v := range src.Pix {
		hist[v]++
	}

	scale := 1.0 / float64(len(src.Pix))
	mu := 0.0
	for i, n := range hist {
		mu += float64(i) * float64(n)
	}
	mu *= scale

	const eps = 1.1920928955078125e-07 // float32 epsilon
	var mu1, q1, maxSigma float64
	best := 0
	for i := 0; i < 256; i++ {
		p := float64(hist[i]) * scale
		mu1 *= q1
		q1 += p
		q2 := 1.0 - q1

		if math.Min(q1, q2) < eps || math.Max(q1, q2) > 1.0-eps {
			continue
		}

		mu1 = (mu1 + float64(i)*p) / q1
		mu2 := (mu - q1*mu1) / q2
		sigma := q1 * q2 * (mu1 - mu2) * (mu1 - mu2)
		if sigma > maxSigma {
			maxSigma = sigma
			best = i
		}
	}
	return best
}

// adaptiveGray compares each pixel with its Gaussian-weighted local mean.
// blockSize is odd and at least 3.
func adaptiveGray(src *image.Gray, blockSize int, c float64) *image.Gray {
	mean := gaussianSmooth(src, gaussianKernel(blockSize))
	delta := int(math.Ceil(c))

	dst := image.NewGray(src.Rect)
	for i, v := range src.Pix {
		if int(v)-int(mean.Pix[i]) > -delta {
			dst.Pix[i] = Foreground
		}
	}
	return dst
}

// gaussianKernel returns a normalized 1-D Gaussian kernel of the given odd
// size. Sigma is derived from the size as 0.3*((size-1)*0.5-1)+0.8; sizes up
// to 7 use the fixed binomial kernels.
func gaussianKernel(size int) []float64 {
	switch size {
	case 1:
		return []float64{1}
	case 3:
		return []float64{0.25, 0.5, 0.25}
	case 5:
		return []float64{0.0625, 0.25, 0.375, 0.25, 0.0625}
	case 7:
		return []float64{0.03125, 0.109375, 0.21875, 0.28125, 0.21875, 0.109375, 0.03125}
	}

	sigma := 0.3*(float64(size-1)*0.5-1) + 0.8
	k := make([]float64, size)
	center := float64(size-1) / 2
	sum := 0.0
	for i := range k {
		d := float64(i) - center
		k[i] = math.Exp(-(d * d) / (2 * sigma * sigma))
		sum += k[i]
	}
	for i := range k {
		k[i] /= sum
	}
	return k
}

// gaussianSmooth applies a separable kernel with replicated borders.
func gaussianSmooth(src *image.Gray, kernel []float64) *image.Gray {
	w, h := src.Rect.Dx(), src.Rect.Dy()
	r := len(kernel) / 2
	tmp := make([]float64, w*h)

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var sum float64
			for k := -r; k <= r; k++ {
				sum += float64(src.Pix[y*w+clamp(x+k, 0, w-1)]) * kernel[k+r]
			}
			tmp[y*w+x] = sum
		}
	}

	dst := image.NewGray(src.Rect)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var sum float64
			for k := -r; k <= r; k++ {
				sum += tmp[clamp(y+k, 0, h-1)*w+x] * kernel[k+r]
			}
			dst.Pix[y*w+x] = uint8(clamp(int(math.Round(sum)), 0, 255))
		}
	}
	return dst
}

// morphology runs a validated operation with an elliptical element.
func morphology(src *image.Gray, op MorphOp, kernelSize, iterations int) *image.Gray {
	kernel := EllipseKernel(kernelSize)
	switch op {
	case MorphDilate:
		return repeat(src, kernel, iterations, true)
	case MorphErode:
		return repeat(src, kernel, iterations, false)
	case MorphOpen:
		return repeat(repeat(src, kernel, iterations, false), kernel, iterations, true)
	case MorphClose:
		return repeat(repeat(src, kernel, iterations, true), kernel, iterations, false)
	default:
		d := repeat(src, kernel, iterations, true)
		e := repeat(src, kernel, iterations, false)
		out := image.NewGray(src.Rect)
		for i := range out.Pix {
			out.Pix[i] = d.Pix[i] - e.Pix[i]
		}
		return out
	}
}

func repeat(src *image.Gray, kernel [][]bool, n int, dilate bool) *image.Gray {
	out := src
	for i := 0; i < n; i++ {
		out = morph(out, kernel, dilate)
	}
	return out
}

// morph performs one dilation (max filter) or erosion (min filter) over the
// in-bounds pixels covered by the kernel.
func morph(src *image.Gray, kernel [][]bool, dilate bool) *image.Gray {
	w, h := src.Rect.Dx(), src.Rect.Dy()
	size := len(kernel)
	anchor := size / 2

	type offset struct{ dx, dy int }
	offsets := make([]offset, 0, size*size)
	for i, row := range kernel {
		for j, on := range row {
			if on {
				offsets = append(offsets, offset{j - anchor, i - anchor})
			}
		}
	}

	dst := image.NewGray(src.Rect)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var acc uint8
			if !dilate {
				acc = 255
			}
			for _, o := range offsets {
				px, py := x+o.dx, y+o.dy
				if px < 0 || px >= w || py < 0 || py >= h {
					continue
				}
				v := src.Pix[py*w+px]
				if dilate && v > acc {
					acc = v
				} else if !dilate && v < acc {
					acc = v
				}
			}
			dst.Pix[y*w+x] = acc
		}
	}
	return dst
}

// contourFill draws the components whose traced contour area lies in
// [minArea, maxArea]. Holes are filled by the caller.
func contourFill(src *image.Gray, minArea, maxArea float64) (*image.Gray, []Component) {
	comps, labels := FindComponents(src)

	keep := make(map[int]bool)
	var kept []Component
	for _, c := range comps {
		if c.Area >= minArea && c.Area <= maxArea {
			keep[c.Label] = true
			kept = append(kept, c)
		}
	}

	dst := image.NewGray(src.Rect)
	for i, l := range labels {
		if l != 0 && keep[l] {
			dst.Pix[i] = Foreground
		}
	}
	return dst, kept
}
