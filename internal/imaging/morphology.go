package imaging

import (
	"fmt"
	"image"
	"math"
)

// MorphOp names a morphological operation.
type MorphOp string

// Supported morphological operations.
const (
	MorphOpen     MorphOp = "open"
	MorphClose    MorphOp = "close"
	MorphDilate   MorphOp = "dilate"
	MorphErode    MorphOp = "erode"
	MorphGradient MorphOp = "gradient"
)

// DefaultKernelSize is the structuring element size used when none is given.
const DefaultKernelSize = 5

// EllipseKernel builds a size x size elliptical structuring element.
//
// Row i spans the columns [c-dx, c+dx] where dx = round(c*sqrt(1-(i-r)^2/r^2)),
// r = c = size/2, and rounding is half-to-even. For size 5 this yields a
// diamond-like disk whose top and bottom rows hold a single pixel.
func EllipseKernel(size int) [][]bool {
	if size < 1 {
		size = 1
	}
	r := size / 2
	c := size / 2
	invR2 := 0.0
	if r > 0 {
		invR2 = 1.0 / float64(r*r)
	}

	k := make([][]bool, size)
	for i := 0; i < size; i++ {
		k[i] = make([]bool, size)
		dy := i - r
		if abs(dy) > r {
			continue
		}
		dx := int(math.RoundToEven(float64(c) * math.Sqrt(float64(r*r-dy*dy)*invR2)))
		j1 := max(c-dx, 0)
		j2 := min(c+dx+1, size)
		for j := j1; j < j2; j++ {
			k[i][j] = true
		}
	}
	return k
}

// Morphology applies a morphological operation with an elliptical
// structuring element.
//
// Parameters:
//   - mask: 8-bit input (any values; binary masks are the common case).
//   - op: One of the MorphOp constants. Unknown operations return an error.
//   - kernelSize: Structuring element size in pixels (DefaultKernelSize if < 1).
//   - iterations: How many times each elementary dilation/erosion is applied.
//     Values below 1 are treated as 1.
//
// Pixels outside the image never take part in a dilation or an erosion, so
// foreground touching the border is not eroded away.
func Morphology(mask *image.Gray, op MorphOp, kernelSize, iterations int) (*image.Gray, error) {
	if kernelSize < 1 {
		kernelSize = DefaultKernelSize
	}
	if iterations < 1 {
		iterations = 1
	}
	switch op {
	case MorphDilate, MorphErode, MorphOpen, MorphClose, MorphGradient:
	default:
		return nil, fmt.Errorf("unknown morphological operation: %s", op)
	}
	return morphology(compact(mask), op, kernelSize, iterations), nil
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
