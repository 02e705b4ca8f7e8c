// Package render draws mask previews: the mask tinted over its source
// channel, with component outlines and detected circles.
package render

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"sync"

	"github.com/fogleman/gg"
	"github.com/lucasb-eyer/go-colorful"

	"github.com/ironsheep/tissue-mask-mcp/internal/imaging"
	"github.com/ironsheep/tissue-mask-mcp/internal/mask"
)

// Options configures a preview.
type Options struct {
	// MaxSize bounds the longest side of the preview. 0 keeps full size.
	MaxSize int `json:"max_size"`

	// Overlay tints the mask over the source channel. Without it, or
	// without a source, foreground is drawn in Color on black.
	Overlay bool `json:"overlay"`

	// Outline strokes the contour of every mask component.
	Outline bool `json:"outline"`

	// Color is the tint as a hex string.
	Color string `json:"color"`

	// Alpha is the tint opacity in [0, 1].
	Alpha float64 `json:"alpha"`
}

// DefaultOptions returns the preview defaults.
func DefaultOptions() Options {
	return Options{
		MaxSize: 512,
		Overlay: true,
		Outline: true,
		Color:   "#00c853",
		Alpha:   0.4,
	}
}

var bufferPool = sync.Pool{
	New: func() any {
		return bytes.NewBuffer(make([]byte, 0, 64*1024))
	},
}

// Preview renders res. source is the 8-bit channel the mask was derived
// from and may be nil.
func Preview(source *image.Gray, res *mask.Result, opts Options) (*image.RGBA, error) {
	tint, err := colorful.Hex(opts.Color)
	if err != nil {
		return nil, fmt.Errorf("invalid preview color %q: %w", opts.Color, err)
	}
	alpha := min(max(opts.Alpha, 0), 1)

	m := imaging.FitMask(res.Mask, opts.MaxSize)
	w, h := m.Rect.Dx(), m.Rect.Dy()
	scale := float64(w) / float64(max(res.Mask.Bounds().Dx(), 1))

	var base *image.Gray
	if opts.Overlay && source != nil {
		base = imaging.Fit(source, opts.MaxSize)
		if base.Bounds().Size() != m.Bounds().Size() {
			return nil, fmt.Errorf("source %v and mask %v differ in size", source.Bounds().Size(), res.Mask.Bounds().Size())
		}
	}

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	blend := blendTable(tint, alpha)
	tr, tg, tb := tint.RGB255()
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			fg := m.Pix[y*m.Stride+x] != imaging.Background
			o := img.PixOffset(x, y)
			px := img.Pix[o : o+4 : o+4]
			switch {
			case base != nil && fg:
				c := blend[base.Pix[y*base.Stride+x]]
				px[0], px[1], px[2] = c[0], c[1], c[2]
			case base != nil:
				v := base.Pix[y*base.Stride+x]
				px[0], px[1], px[2] = v, v, v
			case fg:
				px[0], px[1], px[2] = tr, tg, tb
			}
			px[3] = 255
		}
	}

	dc := gg.NewContextForRGBA(img)
	if opts.Outline {
		drawOutlines(dc, m)
	}
	drawCircles(dc, res, scale, tint)
	return img, nil
}

// blendTable precomputes the tinted color of every gray level.
func blendTable(tint colorful.Color, alpha float64) [256][3]uint8 {
	var t [256][3]uint8
	for v := range t {
		g := float64(v) / 255
		r, gr, b := colorful.Color{R: g, G: g, B: g}.BlendRgb(tint, alpha).Clamped().RGB255()
		t[v] = [3]uint8{r, gr, b}
	}
	return t
}

// drawOutlines strokes each component contour in its own hue.
func drawOutlines(dc *gg.Context, m *image.Gray) {
	comps, _ := imaging.FindComponents(m)
	dc.SetLineWidth(1)
	for i, c := range comps {
		if len(c.Contour) < 2 {
			continue
		}
		dc.SetColor(colorful.Hsv(float64((i*47)%360), 0.9, 1))
		for j, p := range c.Contour {
			if j == 0 {
				dc.MoveTo(float64(p.X)+0.5, float64(p.Y)+0.5)
			} else {
				dc.LineTo(float64(p.X)+0.5, float64(p.Y)+0.5)
			}
		}
		dc.ClosePath()
		dc.Stroke()
	}
}

// drawCircles strokes the circles of a circle mask in the complementary
// hue of the tint.
func drawCircles(dc *gg.Context, res *mask.Result, scale float64, tint colorful.Color) {
	if len(res.Circles) == 0 {
		return
	}
	hue, s, v := tint.Hsv()
	dc.SetColor(colorful.Hsv(float64(int(hue+180)%360), s, v))
	dc.SetLineWidth(2)
	for _, c := range res.Circles {
		dc.DrawCircle(float64(c.X)*scale, float64(c.Y)*scale, float64(c.Radius)*scale)
		dc.Stroke()
	}
}

// EncodePNG encodes img with the fast PNG encoder.
func EncodePNG(img image.Image) ([]byte, error) {
	buf := bufferPool.Get().(*bytes.Buffer)
	defer func() {
		buf.Reset()
		bufferPool.Put(buf)
	}()

	encoder := png.Encoder{CompressionLevel: png.BestSpeed}
	if err := encoder.Encode(buf, img); err != nil {
		return nil, err
	}
	out := make([]byte, buf.Len())
	copy(out, buf.Bytes())
	return out, nil
}
