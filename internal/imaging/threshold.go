package imaging

import (
	"fmt"
	"image"
)

// Mask pixel values. Every binary raster produced by this package only
// contains these two values.
const (
	Background uint8 = 0
	Foreground uint8 = 255
)

// ThresholdMethod selects a binarization algorithm.
type ThresholdMethod string

// Binarization methods accepted by Binarize.
const (
	ThresholdBinary   ThresholdMethod = "binary"
	ThresholdOtsu     ThresholdMethod = "otsu"
	ThresholdAdaptive ThresholdMethod = "adaptive"
)

// Defaults used when a caller does not supply a value.
const (
	DefaultBinaryThreshold   = 127
	DefaultAdaptiveBlockSize = 11
	DefaultAdaptiveC         = 2.0
)

// Binarize thresholds an 8-bit grayscale image.
//
// Parameters:
//   - gray: Source image.
//   - method: ThresholdBinary (fixed, strict v > threshold), ThresholdOtsu
//     (automatic, threshold ignored) or ThresholdAdaptive (local Gaussian mean
//     over an 11x11 neighborhood minus 2).
//   - threshold: Fixed threshold for ThresholdBinary. nil selects
//     DefaultBinaryThreshold.
//
// Returns a mask with the same bounds as gray, anchored at the origin.
func Binarize(gray *image.Gray, method ThresholdMethod, threshold *int) (*image.Gray, error) {
	switch method {
	case ThresholdOtsu:
		mask, _ := ThresholdOtsuImage(gray)
		return mask, nil
	case ThresholdAdaptive:
		return AdaptiveThreshold(gray, DefaultAdaptiveBlockSize, DefaultAdaptiveC), nil
	case ThresholdBinary, "":
		t := DefaultBinaryThreshold
		if threshold != nil {
			t = *threshold
		}
		return Threshold(gray, t), nil
	default:
		return nil, fmt.Errorf("unknown threshold method: %s", method)
	}
}

// Threshold returns a mask where every pixel strictly greater than t is
// Foreground. A threshold below zero marks everything; 255 or more marks
// nothing.
func Threshold(gray *image.Gray, t int) *image.Gray {
	src := compact(gray)
	switch {
	case t < 0:
		t = -1
	case t > 255:
		t = 255
	}
	return thresholdGray(src, t)
}

// OtsuThreshold computes the threshold that maximizes the between-class
// variance of the 8-bit histogram.
//
// Levels are scanned from 0 to 255 and the first maximum wins, so a uniform
// image yields 0.
func OtsuThreshold(gray *image.Gray) int {
	src := compact(gray)
	if len(src.Pix) == 0 {
		return 0
	}
	return otsuLevel(src)
}

// ThresholdOtsuImage binarizes with the Otsu threshold and returns it.
func ThresholdOtsuImage(gray *image.Gray) (*image.Gray, int) {
	t := OtsuThreshold(gray)
	return Threshold(gray, t), t
}

// AdaptiveThreshold marks pixels brighter than their Gaussian-weighted local
// mean minus c.
//
// The mean is taken over a blockSize x blockSize window with replicated
// borders and rounded to 8 bits; a pixel is Foreground when
// v - mean > -ceil(c). Even block sizes are bumped to the next odd size.
func AdaptiveThreshold(gray *image.Gray, blockSize int, c float64) *image.Gray {
	if blockSize < 3 {
		blockSize = 3
	}
	if blockSize%2 == 0 {
		blockSize++
	}
	return adaptiveGray(compact(gray), blockSize, c)
}

// compact returns gray as an origin-anchored image whose stride equals its
// width, copying only when necessary.
func compact(gray *image.Gray) *image.Gray {
	b := gray.Bounds()
	if b.Min == (image.Point{}) && gray.Stride == b.Dx() {
		return gray
	}
	dst := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		off := gray.PixOffset(b.Min.X, b.Min.Y+y)
		copy(dst.Pix[y*b.Dx():(y+1)*b.Dx()], gray.Pix[off:off+b.Dx()])
	}
	return dst
}

// CountForeground returns the number of non-zero pixels in a mask.
func CountForeground(mask *image.Gray) int {
	src := compact(mask)
	n := 0
	for _, v := range src.Pix {
		if v != Background {
			n++
		}
	}
	return n
}
