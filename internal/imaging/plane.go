package imaging

import (
	"fmt"
	"image"
	"image/color"
)

// Depth is the bit depth of a single sample in a Plane.
type Depth int

// Supported sample depths.
const (
	Depth8  Depth = 8
	Depth16 Depth = 16
	Depth32 Depth = 32
)

// Max returns the largest sample value representable at this depth.
func (d Depth) Max() uint32 {
	switch d {
	case Depth8:
		return 0xFF
	case Depth16:
		return 0xFFFF
	default:
		return 0xFFFFFFFF
	}
}

// DType returns the numpy-style name of the depth ("uint8", "uint16", "uint32").
func (d Depth) DType() string {
	return fmt.Sprintf("uint%d", int(d))
}

// Plane is a 2-D numeric raster keyed by channel index in a dataset.
//
// Samples are stored row-major and interleaved: the sample s of pixel (x, y)
// lives at Pix[(y*Width+x)*Samples+s]. A Plane with Samples == 1 is a single
// grayscale channel; Samples == 3 is a packed RGB plane as produced by bitmap
// decoders.
//
// Every value in Pix is within [0, Depth.Max()].
type Plane struct {
	Width   int
	Height  int
	Depth   Depth
	Samples int
	Pix     []uint32
}

// NewPlane allocates a zero-filled plane.
func NewPlane(width, height int, depth Depth, samples int) *Plane {
	if samples < 1 {
		samples = 1
	}
	return &Plane{
		Width:   width,
		Height:  height,
		Depth:   depth,
		Samples: samples,
		Pix:     make([]uint32, width*height*samples),
	}
}

// At returns sample s of pixel (x, y). No bounds checking is performed.
func (p *Plane) At(x, y, s int) uint32 {
	return p.Pix[(y*p.Width+x)*p.Samples+s]
}

// Set stores sample s of pixel (x, y), clamped to the plane's depth.
func (p *Plane) Set(x, y, s int, v uint32) {
	if m := p.Depth.Max(); v > m {
		v = m
	}
	p.Pix[(y*p.Width+x)*p.Samples+s] = v
}

// Bounds returns the plane rectangle anchored at the origin.
func (p *Plane) Bounds() image.Rectangle {
	return image.Rect(0, 0, p.Width, p.Height)
}

// Shape returns (height, width), the order used by dataset metadata.
func (p *Plane) Shape() (int, int) {
	return p.Height, p.Width
}

// Clone returns a deep copy of the plane.
func (p *Plane) Clone() *Plane {
	c := *p
	c.Pix = append([]uint32(nil), p.Pix...)
	return &c
}

// PlaneFromImage converts a decoded image into a Plane.
//
// Grayscale images keep their native depth (Gray -> 8-bit, Gray16 -> 16-bit).
// 16-bit color images become 16-bit RGB planes; everything else becomes an
// 8-bit RGB plane. Alpha is dropped.
func PlaneFromImage(img image.Image) *Plane {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()

	switch src := img.(type) {
	case *image.Gray:
		p := NewPlane(w, h, Depth8, 1)
		for y := 0; y < h; y++ {
			off := src.PixOffset(b.Min.X, b.Min.Y+y)
			row := src.Pix[off : off+w]
			for x, v := range row {
				p.Pix[y*w+x] = uint32(v)
			}
		}
		return p
	case *image.Gray16:
		p := NewPlane(w, h, Depth16, 1)
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				p.Pix[y*w+x] = uint32(src.Gray16At(x+b.Min.X, y+b.Min.Y).Y)
			}
		}
		return p
	case *image.RGBA64, *image.NRGBA64:
		p := NewPlane(w, h, Depth16, 3)
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				c := color.NRGBA64Model.Convert(img.At(x+b.Min.X, y+b.Min.Y)).(color.NRGBA64)
				i := (y*w + x) * 3
				p.Pix[i], p.Pix[i+1], p.Pix[i+2] = uint32(c.R), uint32(c.G), uint32(c.B)
			}
		}
		return p
	}

	p := NewPlane(w, h, Depth8, 3)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := color.NRGBAModel.Convert(img.At(x+b.Min.X, y+b.Min.Y)).(color.NRGBA)
			i := (y*w + x) * 3
			p.Pix[i], p.Pix[i+1], p.Pix[i+2] = uint32(c.R), uint32(c.G), uint32(c.B)
		}
	}
	return p
}

// Gray returns the plane as an 8-bit grayscale image.
//
// The plane is first normalized to 8 bits (see Normalize). RGB planes are
// converted to luminance using the ITU-R BT.601 weights in 14-bit fixed point
// (0.299*R + 0.587*G + 0.114*B, rounded), which matches common computer-vision
// toolkits bit for bit.
func (p *Plane) Gray() *image.Gray {
	n := Normalize(p, Depth8)
	dst := image.NewGray(image.Rect(0, 0, n.Width, n.Height))
	if n.Samples == 1 {
		for i, v := range n.Pix {
			dst.Pix[i] = uint8(v)
		}
		return dst
	}
	for i := 0; i < n.Width*n.Height; i++ {
		s := n.Pix[i*n.Samples : i*n.Samples+3]
		dst.Pix[i] = luminance(s[0], s[1], s[2])
	}
	return dst
}

// luminance converts 8-bit RGB to gray using BT.601 weights in Q14 fixed point.
func luminance(r, g, b uint32) uint8 {
	const (
		wr    = 4899 // 0.299 * 2^14
		wg    = 9617 // 0.587 * 2^14
		wb    = 1868 // 0.114 * 2^14
		shift = 14
	)
	return uint8((r*wr + g*wg + b*wb + (1 << (shift - 1))) >> shift)
}

// GrayFromImage converts any image to 8-bit grayscale with the same weights
// as Plane.Gray. *image.Gray inputs anchored at the origin are returned as-is.
func GrayFromImage(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok && g.Bounds().Min == (image.Point{}) {
		return g
	}
	return PlaneFromImage(img).Gray()
}
