//go:build gocv

package imaging

import (
	"image"
	"image/color"
	"sort"

	"gocv.io/x/gocv"
)

// OpenCV raster backends, selected with the gocv build tag. Inputs are
// compact (origin-anchored, stride == width).

var fillColor = color.RGBA{255, 255, 255, 255}

// toMat wraps a compact gray image in a single-channel Mat. The caller
// closes it.
func toMat(src *image.Gray) (gocv.Mat, bool) {
	if src.Rect.Empty() {
		return gocv.Mat{}, false
	}
	m, err := gocv.NewMatFromBytes(src.Rect.Dy(), src.Rect.Dx(), gocv.MatTypeCV8U, src.Pix)
	if err != nil {
		return gocv.Mat{}, false
	}
	return m, true
}

func fromMat(m gocv.Mat, rect image.Rectangle) *image.Gray {
	dst := image.NewGray(rect)
	copy(dst.Pix, m.ToBytes())
	return dst
}

func thresholdGray(src *image.Gray, t int) *image.Gray {
	if t < 0 {
		dst := image.NewGray(src.Rect)
		for i := range dst.Pix {
			dst.Pix[i] = Foreground
		}
		return dst
	}
	m, ok := toMat(src)
	if !ok {
		return image.NewGray(src.Rect)
	}
	defer m.Close()

	dst := gocv.NewMat()
	defer dst.Close()
	gocv.Threshold(m, &dst, float32(t), float32(Foreground), gocv.ThresholdBinary)
	return fromMat(dst, src.Rect)
}

func otsuLevel(src *image.Gray) int {
	m, ok := toMat(src)
	if !ok {
		return 0
	}
	defer m.Close()

	dst := gocv.NewMat()
	defer dst.Close()
	return int(gocv.Threshold(m, &dst, 0, float32(Foreground), gocv.ThresholdBinary|gocv.ThresholdOtsu))
}

func adaptiveGray(src *image.Gray, blockSize int, c float64) *image.Gray {
	m, ok := toMat(src)
	if !ok {
		return image.NewGray(src.Rect)
	}
	defer m.Close()

	dst := gocv.NewMat()
	defer dst.Close()
	gocv.AdaptiveThreshold(m, &dst, float32(Foreground), gocv.AdaptiveThresholdGaussian,
		gocv.ThresholdBinary, blockSize, float32(c))
	return fromMat(dst, src.Rect)
}

func morphology(src *image.Gray, op MorphOp, kernelSize, iterations int) *image.Gray {
	m, ok := toMat(src)
	if !ok {
		return image.NewGray(src.Rect)
	}
	defer m.Close()

	kernel := gocv.GetStructuringElement(gocv.MorphEllipse, image.Pt(kernelSize, kernelSize))
	defer kernel.Close()

	dst := gocv.NewMat()
	defer dst.Close()

	if iterations == 1 {
		gocv.MorphologyEx(m, &dst, morphType(op), kernel)
		return fromMat(dst, src.Rect)
	}

	switch op {
	case MorphDilate:
		repeatMat(m, &dst, kernel, iterations, true)
	case MorphErode:
		repeatMat(m, &dst, kernel, iterations, false)
	case MorphOpen:
		tmp := gocv.NewMat()
		defer tmp.Close()
		repeatMat(m, &tmp, kernel, iterations, false)
		repeatMat(tmp, &dst, kernel, iterations, true)
	case MorphClose:
		tmp := gocv.NewMat()
		defer tmp.Close()
		repeatMat(m, &tmp, kernel, iterations, true)
		repeatMat(tmp, &dst, kernel, iterations, false)
	default:
		d, e := gocv.NewMat(), gocv.NewMat()
		defer d.Close()
		defer e.Close()
		repeatMat(m, &d, kernel, iterations, true)
		repeatMat(m, &e, kernel, iterations, false)
		gocv.Subtract(d, e, &dst)
	}
	return fromMat(dst, src.Rect)
}

func morphType(op MorphOp) gocv.MorphType {
	switch op {
	case MorphDilate:
		return gocv.MorphDilate
	case MorphErode:
		return gocv.MorphErode
	case MorphOpen:
		return gocv.MorphOpen
	case MorphClose:
		return gocv.MorphClose
	default:
		return gocv.MorphGradient
	}
}

// repeatMat applies n dilations or erosions of src into dst.
func repeatMat(src gocv.Mat, dst *gocv.Mat, kernel gocv.Mat, n int, dilate bool) {
	cur := src.Clone()
	defer cur.Close()
	for i := 0; i < n; i++ {
		if dilate {
			gocv.Dilate(cur, dst, kernel)
		} else {
			gocv.Erode(cur, dst, kernel)
		}
		dst.CopyTo(&cur)
	}
}

// contourFill fills the external contours whose area lies in
// [minArea, maxArea]. Components are labelled in raster-scan order of their
// first contour point, which is the top-most, left-most pixel. Holes are
// filled by the caller.
func contourFill(src *image.Gray, minArea, maxArea float64) (*image.Gray, []Component) {
	m, ok := toMat(src)
	if !ok {
		return image.NewGray(src.Rect), nil
	}
	defer m.Close()

	contours := gocv.FindContours(m, gocv.RetrievalExternal, gocv.ChainApproxNone)
	defer contours.Close()

	order := make([]int, contours.Size())
	firsts := make([]image.Point, contours.Size())
	for i := range order {
		order[i] = i
		if pts := contours.At(i).ToPoints(); len(pts) > 0 {
			firsts[i] = pts[0]
		}
	}
	sort.SliceStable(order, func(a, b int) bool {
		pa, pb := firsts[order[a]], firsts[order[b]]
		if pa.Y != pb.Y {
			return pa.Y < pb.Y
		}
		return pa.X < pb.X
	})

	dst := gocv.Zeros(src.Rect.Dy(), src.Rect.Dx(), gocv.MatTypeCV8U)
	defer dst.Close()

	var kept []Component
	for label, i := range order {
		pv := contours.At(i)
		area := gocv.ContourArea(pv)
		if area < minArea || area > maxArea {
			continue
		}
		gocv.DrawContours(&dst, contours, i, fillColor, -1)

		pts := pv.ToPoints()
		contour := make([]Point, len(pts))
		for j, p := range pts {
			contour[j] = Point{p.X, p.Y}
		}
		kept = append(kept, Component{
			Label:   label + 1,
			Pixels:  contourPixels(m, contours, i),
			Contour: contour,
			Area:    area,
		})
	}
	return fromMat(dst, src.Rect), kept
}

// contourPixels counts the foreground pixels of src inside contour i.
func contourPixels(src gocv.Mat, contours gocv.PointsVector, i int) int {
	region := gocv.Zeros(src.Rows(), src.Cols(), gocv.MatTypeCV8U)
	defer region.Close()
	gocv.DrawContours(&region, contours, i, fillColor, -1)

	inside := gocv.NewMat()
	defer inside.Close()
	gocv.BitwiseAnd(src, region, &inside)
	return gocv.CountNonZero(inside)
}
