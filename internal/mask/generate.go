package mask

import (
	"fmt"
	"image"

	"github.com/ironsheep/tissue-mask-mcp/internal/detection"
	"github.com/ironsheep/tissue-mask-mcp/internal/imaging"
)

// Result is a generated mask plus how it was produced.
type Result struct {
	// Mask holds only imaging.Background and imaging.Foreground and has
	// the size of the source plane.
	Mask *image.Gray

	// Method is the strategy that actually ran. It differs from the
	// requested one when a fallback was taken.
	Method Method

	// Threshold is the binarization threshold that was applied, when one was.
	Threshold *int

	// Circles are the accepted circles of a circle mask.
	Circles []detection.Circle

	// Polygons is how many polygons were rasterized for a polygon mask.
	Polygons int

	// Fallback explains a degraded strategy, empty otherwise.
	Fallback string
}

// Generate builds a mask from a plane with one of the plane-only strategies
// (contour, intensity, adaptive, circle).
//
// MethodAuto and MethodPolygon need dataset context and return
// ErrUnsupportedMethod; unknown methods return ErrUnknownMethod. The
// optional post-processing step runs on every successful result.
func Generate(plane *imaging.Plane, opts Options) (*Result, error) {
	var (
		res *Result
		err error
	)
	switch opts.Method {
	case MethodContour:
		res, err = Contour(plane.Gray(), opts)
	case MethodIntensity:
		res = Intensity(plane, opts.Threshold)
	case MethodAdaptive:
		res = Adaptive(plane, opts.BlockSize, opts.C)
	case MethodCircle:
		res, err = Circle(plane.Gray(), opts)
	case MethodAuto, MethodPolygon:
		return nil, fmt.Errorf("%w: %s needs dataset context", ErrUnsupportedMethod, opts.Method)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMethod, opts.Method)
	}
	if err != nil {
		return nil, err
	}
	return PostProcess(res, opts)
}

// Contour binarizes gray at the contour threshold, closes gaps with the
// configured morphology and keeps the filled components whose contour area
// lies in [MinArea, MaxArea].
func Contour(gray *image.Gray, opts Options) (*Result, error) {
	t := opts.ContourThreshold()
	binary := imaging.Threshold(gray, t)

	op := opts.MorphOp
	if op == "" {
		op = imaging.MorphClose
	}
	closed, err := imaging.Morphology(binary, op, opts.KernelSize, opts.Iterations)
	if err != nil {
		return nil, fmt.Errorf("failed to apply morphology: %w", err)
	}

	filled, _ := imaging.ContourFill(closed, opts.MinArea, opts.MaxArea)
	return &Result{Mask: filled, Method: MethodContour, Threshold: &t}, nil
}

// Intensity normalizes the plane to 8 bits and thresholds it, with Otsu
// when threshold is nil.
func Intensity(plane *imaging.Plane, threshold *int) *Result {
	gray := plane.Gray()
	var (
		mask *image.Gray
		t    int
	)
	if threshold == nil {
		mask, t = imaging.ThresholdOtsuImage(gray)
	} else {
		t = *threshold
		mask = imaging.Threshold(gray, t)
	}
	return &Result{Mask: mask, Method: MethodIntensity, Threshold: &t}
}

// Adaptive normalizes the plane to 8 bits and applies a Gaussian-weighted
// local threshold.
func Adaptive(plane *imaging.Plane, blockSize int, c float64) *Result {
	if blockSize <= 0 {
		blockSize = imaging.DefaultAdaptiveBlockSize
	}
	mask := imaging.AdaptiveThreshold(plane.Gray(), blockSize, c)
	return &Result{Mask: mask, Method: MethodAdaptive}
}

// Circle detects fiducial circles and fills each one. When no circle is
// found it falls back to the contour method.
func Circle(gray *image.Gray, opts Options) (*Result, error) {
	circles := detection.DetectCircles(gray, opts.Hough())
	if len(circles) == 0 {
		res, err := Contour(gray, opts)
		if err != nil {
			return nil, err
		}
		res.Fallback = "no circles detected; used contour method"
		return res, nil
	}

	b := gray.Bounds()
	return &Result{
		Mask:    detection.CirclesMask(b.Dx(), b.Dy(), circles),
		Method:  MethodCircle,
		Circles: circles,
	}, nil
}

// Polygon is an ordered vertex list in pixel coordinates.
type Polygon struct {
	X []float64
	Y []float64
}

// Polygons rasterizes every polygon into a width x height mask.
func Polygons(width, height int, polys []Polygon) *Result {
	mask := image.NewGray(image.Rect(0, 0, width, height))
	for _, p := range polys {
		imaging.FillPolygon(mask, p.X, p.Y)
	}
	return &Result{Mask: mask, Method: MethodPolygon, Polygons: len(polys)}
}

// PostProcess applies opts.PostProcess to the mask, if set.
func PostProcess(res *Result, opts Options) (*Result, error) {
	if opts.PostProcess == "" {
		return res, nil
	}
	kernel := opts.PostKernelSize
	if kernel <= 0 {
		kernel = opts.KernelSize
	}
	out, err := imaging.Morphology(res.Mask, opts.PostProcess, kernel, opts.PostIterations)
	if err != nil {
		return nil, fmt.Errorf("failed to post-process mask: %w", err)
	}
	res.Mask = out
	return res, nil
}
