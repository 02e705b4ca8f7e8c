package imaging

import (
	"image"
	"image/color"
	"math"

	"github.com/anthonynsimon/bild/transform"
	"github.com/disintegration/imaging"
)

// Scale resizes the content of gray by factor and places it on a black
// canvas of the original size, anchored at the top-left corner.
//
// Factors above 1 crop the enlarged content to the canvas; factors below 1
// leave a black margin on the right and bottom. Non-positive factors return
// an empty canvas.
func Scale(gray *image.Gray, factor float64) *image.Gray {
	b := gray.Bounds()
	w, h := b.Dx(), b.Dy()
	if factor <= 0 || w == 0 || h == 0 {
		return image.NewGray(image.Rect(0, 0, w, h))
	}
	if factor == 1 {
		return compact(gray)
	}

	nw := int(math.Round(float64(w) * factor))
	nh := int(math.Round(float64(h) * factor))
	if nw < 1 || nh < 1 {
		return image.NewGray(image.Rect(0, 0, w, h))
	}

	resized := imaging.Resize(gray, nw, nh, imaging.Linear)
	canvas := imaging.New(w, h, color.Black)
	return GrayFromImage(imaging.Paste(canvas, resized, image.Pt(0, 0)))
}

// Fit downsizes gray so that neither side exceeds maxSide, keeping the
// aspect ratio. Images already within bounds are returned as is.
func Fit(gray *image.Gray, maxSide int) *image.Gray {
	b := gray.Bounds()
	if maxSide <= 0 || (b.Dx() <= maxSide && b.Dy() <= maxSide) {
		return gray
	}
	return GrayFromImage(imaging.Fit(gray, maxSide, maxSide, imaging.Linear))
}

// FitMask is Fit for binary masks. Nearest-neighbor sampling keeps the
// result binary.
func FitMask(mask *image.Gray, maxSide int) *image.Gray {
	b := mask.Bounds()
	if maxSide <= 0 || (b.Dx() <= maxSide && b.Dy() <= maxSide) {
		return mask
	}
	return Threshold(GrayFromImage(imaging.Fit(mask, maxSide, maxSide, imaging.NearestNeighbor)), 127)
}

// Rotate turns gray by angle degrees counter-clockwise around pivot, or
// around the image centre (w/2, h/2) when pivot is nil. The output canvas
// keeps the input size; uncovered pixels are black.
func Rotate(gray *image.Gray, angle float64, pivot *image.Point) *image.Gray {
	src := compact(gray)
	w, h := src.Rect.Dx(), src.Rect.Dy()
	p := image.Pt(w/2, h/2)
	if pivot != nil {
		p = *pivot
	}
	// bild rotates clockwise for positive angles
	rotated := transform.Rotate(src, -angle, &transform.RotationOptions{
		ResizeBounds: false,
		Pivot:        &p,
	})
	return GrayFromImage(rotated)
}

// Shift translates gray by (dx, dy) whole pixels. Content moved past the
// edge is clipped and the vacated area is black.
func Shift(gray *image.Gray, dx, dy int) *image.Gray {
	src := compact(gray)
	w, h := src.Rect.Dx(), src.Rect.Dy()
	if dx == 0 && dy == 0 {
		return src
	}
	canvas := imaging.New(w, h, color.Black)
	return GrayFromImage(imaging.Paste(canvas, src, image.Pt(dx, dy)))
}
