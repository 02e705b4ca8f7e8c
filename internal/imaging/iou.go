package imaging

import "image"

// IoU returns the intersection over union of two masks.
//
// Both masks are cropped to their shared top-left aligned size and
// binarized at > 127. When neither mask has any foreground in that region
// the result is exactly 0.
func IoU(a, b *image.Gray) float64 {
	ab, bb := a.Bounds(), b.Bounds()
	w := min(ab.Dx(), bb.Dx())
	h := min(ab.Dy(), bb.Dy())

	var inter, union int
	for y := 0; y < h; y++ {
		ra := a.Pix[a.PixOffset(ab.Min.X, ab.Min.Y+y):]
		rb := b.Pix[b.PixOffset(bb.Min.X, bb.Min.Y+y):]
		for x := 0; x < w; x++ {
			fa, fb := ra[x] > 127, rb[x] > 127
			if fa && fb {
				inter++
			}
			if fa || fb {
				union++
			}
		}
	}
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}
