//go:build gocv

package detection

import (
	"image"
	"math"

	"gocv.io/x/gocv"
)

// houghCircles delegates the search to OpenCV's HoughCircles.
func houghCircles(gray *image.Gray, p HoughParams) []Circle {
	b := gray.Bounds()
	src, err := gocv.NewMatFromBytes(b.Dy(), b.Dx(), gocv.MatTypeCV8U, compactPix(gray))
	if err != nil {
		return nil
	}
	defer src.Close()

	blurred := gocv.NewMat()
	defer blurred.Close()
	gocv.GaussianBlur(src, &blurred, image.Point{9, 9}, presmoothSigma, presmoothSigma, gocv.BorderDefault)

	found := gocv.NewMat()
	defer found.Close()
	gocv.HoughCirclesWithParams(blurred, &found, gocv.HoughGradient,
		1, p.MinDist, p.Param1, p.Param2, p.MinRadius, p.MaxRadius)

	if found.Empty() || found.Cols() == 0 {
		return nil
	}

	circles := make([]Circle, found.Cols())
	for i := range circles {
		circles[i] = Circle{
			X:      int(math.Round(float64(found.GetFloatAt(0, i*3)))),
			Y:      int(math.Round(float64(found.GetFloatAt(0, i*3+1)))),
			Radius: int(math.Round(float64(found.GetFloatAt(0, i*3+2)))),
		}
	}
	return circles
}

// compactPix returns the pixel rows of gray without stride padding.
func compactPix(gray *image.Gray) []byte {
	b := gray.Bounds()
	if gray.Stride == b.Dx() && b.Min == (image.Point{}) {
		return gray.Pix[:b.Dx()*b.Dy()]
	}
	pix := make([]byte, 0, b.Dx()*b.Dy())
	for y := b.Min.Y; y < b.Max.Y; y++ {
		off := gray.PixOffset(b.Min.X, y)
		pix = append(pix, gray.Pix[off:off+b.Dx()]...)
	}
	return pix
}
