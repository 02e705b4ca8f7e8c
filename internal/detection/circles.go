package detection

import (
	"image"
	"math"

	"github.com/anthonynsimon/bild/blur"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/ironsheep/tissue-mask-mcp/internal/imaging"
)

// Circle is a detected circle in pixel coordinates.
type Circle struct {
	// X and Y locate the centre (0 = leftmost / topmost).
	X int `json:"x"`
	Y int `json:"y"`

	// Radius is the detected radius in pixels.
	Radius int `json:"radius"`

	// Votes is the accumulator score of the centre. Zero for circles that
	// did not come from a Hough search.
	Votes int `json:"votes,omitempty"`
}

// CirclesResult contains all circles detected in an image.
type CirclesResult struct {
	// Circles in detection order (strongest centre first).
	Circles []Circle `json:"circles"`

	// Count is the number of circles detected.
	Count int `json:"count"`

	// Statistics summarizes the radii.
	Statistics CircleStats `json:"statistics"`
}

// HoughParams configures the Hough gradient circle search.
type HoughParams struct {
	// MinRadius and MaxRadius bound the accepted radius, inclusive.
	MinRadius int `json:"min_radius" yaml:"min_radius"`
	MaxRadius int `json:"max_radius" yaml:"max_radius"`

	// Param1 is the upper Canny threshold; the lower one is half of it.
	Param1 float64 `json:"param1" yaml:"param1"`

	// Param2 is the accumulator threshold a centre must exceed.
	Param2 float64 `json:"param2" yaml:"param2"`

	// MinDist is the minimum distance between accepted centres.
	MinDist float64 `json:"min_dist" yaml:"min_dist"`
}

// DefaultHoughParams returns the fiducial defaults: radius 10..10,
// param1 100, param2 30, minimum distance 20.
func DefaultHoughParams() HoughParams {
	return HoughParams{
		MinRadius: 10,
		MaxRadius: 10,
		Param1:    100,
		Param2:    30,
		MinDist:   20,
	}
}

// presmoothSigma is the Gaussian sigma applied before the edge search.
const presmoothSigma = 2.0

// DetectCircles finds circles in an image with the Hough gradient method.
//
// Parameters:
//   - img: Source image (color images are converted to luminance).
//   - p: Search parameters. A MaxRadius below MinRadius is raised to
//     MinRadius; a negative MinRadius is treated as 0.
//
// Returns the circles ordered by centre votes (highest first). An image
// without circles yields an empty, non-nil slice.
//
// # Algorithm
//
//  1. Gaussian smoothing (sigma 2).
//  2. Canny edges with thresholds Param1/2 and Param1.
//  3. Each edge pixel votes along its gradient direction, both ways, at
//     every radius in [MinRadius, MaxRadius].
//  4. Accumulator cells above Param2 that are local maxima become centre
//     candidates, ordered by votes then raster index.
//  5. Candidates closer than MinDist to an accepted centre are dropped.
//  6. The radius is the one supported by the most edge pixels (the smaller
//     radius wins ties).
//
// Builds with the gocv tag delegate steps 1-6 to OpenCV.
func DetectCircles(img image.Image, p HoughParams) []Circle {
	if p.MinRadius < 0 {
		p.MinRadius = 0
	}
	if p.MaxRadius < p.MinRadius {
		p.MaxRadius = p.MinRadius
	}
	circles := houghCircles(imaging.GrayFromImage(img), p)
	if circles == nil {
		circles = []Circle{}
	}
	return circles
}

// Detect runs DetectCircles and wraps the result with its statistics.
func Detect(img image.Image, p HoughParams) *CirclesResult {
	circles := DetectCircles(img, p)
	return &CirclesResult{
		Circles:    circles,
		Count:      len(circles),
		Statistics: CircleStatistics(circles),
	}
}

// smooth applies the pre-detection Gaussian blur.
func smooth(gray *image.Gray) *image.Gray {
	return imaging.GrayFromImage(blur.Gaussian(gray, presmoothSigma))
}

// FilterCirclesBySize keeps the circles whose radius lies in the inclusive
// range [minRadius, maxRadius], preserving order.
func FilterCirclesBySize(circles []Circle, minRadius, maxRadius int) []Circle {
	filtered := make([]Circle, 0, len(circles))
	for _, c := range circles {
		if c.Radius >= minRadius && c.Radius <= maxRadius {
			filtered = append(filtered, c)
		}
	}
	return filtered
}

// FilterCirclesByDistance removes circles whose centre lies closer than
// minDistance to a circle kept earlier in the input.
//
// The first circle always survives and input order is preserved; there is
// no re-ranking by votes. With minDistance <= 0 every circle is kept. Inputs
// of zero or one circles are returned unchanged.
func FilterCirclesByDistance(circles []Circle, minDistance float64) []Circle {
	if len(circles) <= 1 {
		return circles
	}

	filtered := []Circle{circles[0]}
	for _, c := range circles[1:] {
		valid := true
		for _, f := range filtered {
			if centreDistance(c, f) < minDistance {
				valid = false
				break
			}
		}
		if valid {
			filtered = append(filtered, c)
		}
	}
	return filtered
}

func centreDistance(a, b Circle) float64 {
	dx := float64(a.X - b.X)
	dy := float64(a.Y - b.Y)
	return math.Sqrt(dx*dx + dy*dy)
}

// CircleStats summarizes the radii of a set of circles.
type CircleStats struct {
	Count      int     `json:"count"`
	MeanRadius float64 `json:"mean_radius"`
	MinRadius  float64 `json:"min_radius"`
	MaxRadius  float64 `json:"max_radius"`
	StdRadius  float64 `json:"std_radius"`
}

// CircleStatistics returns count, mean, min, max and population standard
// deviation of the radii. An empty or nil input yields the zero record.
func CircleStatistics(circles []Circle) CircleStats {
	if len(circles) == 0 {
		return CircleStats{}
	}
	radii := make([]float64, len(circles))
	for i, c := range circles {
		radii[i] = float64(c.Radius)
	}
	mean, variance := stat.PopMeanVariance(radii, nil)
	return CircleStats{
		Count:      len(circles),
		MeanRadius: mean,
		MinRadius:  floats.Min(radii),
		MaxRadius:  floats.Max(radii),
		StdRadius:  math.Sqrt(variance),
	}
}

// CirclesMask draws each circle as a filled disk on an empty canvas.
func CirclesMask(width, height int, circles []Circle) *image.Gray {
	mask := image.NewGray(image.Rect(0, 0, width, height))
	for _, c := range circles {
		imaging.FillDisk(mask, c.X, c.Y, c.Radius)
	}
	return mask
}
