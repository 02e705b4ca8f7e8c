package mask

import (
	"errors"
	"image"
	"testing"

	"github.com/ironsheep/tissue-mask-mcp/internal/imaging"
)

// blockPlane returns a 100x100 8-bit plane with a 40x40 block of 200 at (30,30).
func blockPlane() *imaging.Plane {
	p := imaging.NewPlane(100, 100, imaging.Depth8, 1)
	for y := 30; y < 70; y++ {
		for x := 30; x < 70; x++ {
			p.Set(x, y, 0, 200)
		}
	}
	return p
}

func intPtr(v int) *int { return &v }

func TestContour_ReconstructsBlock(t *testing.T) {
	opts := DefaultOptions(nil)
	opts.Method = MethodContour
	opts.Threshold = intPtr(100)

	res, err := Generate(blockPlane(), opts)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if res.Method != MethodContour {
		t.Errorf("method: got %s, want contour", res.Method)
	}
	if got := imaging.CountForeground(res.Mask); got != 1600 {
		t.Errorf("foreground: got %d, want 1600", got)
	}
	for _, p := range []image.Point{{30, 30}, {69, 69}, {50, 50}} {
		if res.Mask.GrayAt(p.X, p.Y).Y != imaging.Foreground {
			t.Errorf("pixel %v should be foreground", p)
		}
	}
	for _, p := range []image.Point{{29, 30}, {70, 50}, {0, 0}} {
		if res.Mask.GrayAt(p.X, p.Y).Y != imaging.Background {
			t.Errorf("pixel %v should be background", p)
		}
	}
}

func TestContour_AreaFilter(t *testing.T) {
	opts := DefaultOptions(nil)
	opts.Method = MethodContour
	opts.MaxArea = 1000

	res, err := Generate(blockPlane(), opts)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if got := imaging.CountForeground(res.Mask); got != 0 {
		t.Errorf("block above max area should be dropped, got %d foreground", got)
	}
}

func TestGenerate_ShapeMatchesPlane(t *testing.T) {
	plane := imaging.NewPlane(64, 48, imaging.Depth16, 1)
	for i := range plane.Pix {
		plane.Pix[i] = uint32(i * 13 % 65536)
	}

	for _, m := range []Method{MethodContour, MethodIntensity, MethodAdaptive, MethodCircle} {
		t.Run(string(m), func(t *testing.T) {
			res, err := Generate(plane, DefaultOptions(nil).WithMethod(m))
			if err != nil {
				t.Fatalf("Generate failed: %v", err)
			}
			b := res.Mask.Bounds()
			if b.Dx() != 64 || b.Dy() != 48 {
				t.Errorf("mask size: got %dx%d, want 64x48", b.Dx(), b.Dy())
			}
			for _, v := range res.Mask.Pix {
				if v != imaging.Background && v != imaging.Foreground {
					t.Fatalf("mask holds non-binary value %d", v)
				}
			}
		})
	}
}

func TestIntensity_OtsuAndFixed(t *testing.T) {
	plane := imaging.NewPlane(10, 10, imaging.Depth16, 1)
	for i := 50; i < 100; i++ {
		plane.Pix[i] = 51200 // 200 after normalization
	}

	res := Intensity(plane, nil)
	if got := imaging.CountForeground(res.Mask); got != 50 {
		t.Errorf("otsu foreground: got %d, want 50", got)
	}
	if res.Threshold == nil || *res.Threshold != 0 {
		t.Errorf("otsu threshold: got %v, want 0", res.Threshold)
	}

	res = Intensity(plane, intPtr(200))
	if got := imaging.CountForeground(res.Mask); got != 0 {
		t.Errorf("strict threshold at 200: got %d, want 0", got)
	}
}

func TestCircle_FallsBackToContour(t *testing.T) {
	opts := DefaultOptions(nil).WithMethod(MethodCircle)
	opts.Threshold = intPtr(100)

	res, err := Generate(blockPlane(), opts)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if res.Method != MethodContour || res.Fallback == "" {
		t.Errorf("expected contour fallback, got method %s fallback %q", res.Method, res.Fallback)
	}
	if got := imaging.CountForeground(res.Mask); got != 1600 {
		t.Errorf("foreground: got %d, want 1600", got)
	}
}

func TestGenerate_Errors(t *testing.T) {
	plane := blockPlane()

	if _, err := Generate(plane, DefaultOptions(nil).WithMethod("watershed")); !errors.Is(err, ErrUnknownMethod) {
		t.Errorf("unknown method: got %v, want ErrUnknownMethod", err)
	}
	for _, m := range []Method{MethodAuto, MethodPolygon} {
		if _, err := Generate(plane, DefaultOptions(nil).WithMethod(m)); !errors.Is(err, ErrUnsupportedMethod) {
			t.Errorf("%s: got %v, want ErrUnsupportedMethod", m, err)
		}
	}
}

func TestPolygons(t *testing.T) {
	res := Polygons(50, 40, []Polygon{
		{X: []float64{10, 20, 20, 10}, Y: []float64{10, 10, 20, 20}},
		{X: []float64{30, 35, 35}, Y: []float64{5, 5, 9}},
	})
	if res.Mask.Bounds().Dx() != 50 || res.Mask.Bounds().Dy() != 40 {
		t.Errorf("bounds: got %v", res.Mask.Bounds())
	}
	if res.Polygons != 2 {
		t.Errorf("polygons: got %d, want 2", res.Polygons)
	}
	if res.Mask.GrayAt(15, 15).Y != imaging.Foreground {
		t.Error("square interior should be foreground")
	}
}

func TestPostProcess(t *testing.T) {
	opts := DefaultOptions(nil).WithMethod(MethodContour)
	opts.Threshold = intPtr(100)
	opts.PostProcess = imaging.MorphDilate
	opts.PostKernelSize = 3

	res, err := Generate(blockPlane(), opts)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	// a 3x3 plus grows each side by one pixel, corners stay
	if got := imaging.CountForeground(res.Mask); got != 1600+4*40 {
		t.Errorf("foreground: got %d, want %d", got, 1600+4*40)
	}

	opts.PostProcess = "smooth"
	if _, err := Generate(blockPlane(), opts); err == nil {
		t.Error("expected error for unknown post-process operation")
	}
}

func TestParseOptions(t *testing.T) {
	defaults := DefaultOptions(nil)

	opts, err := ParseOptions(map[string]any{
		"method":    "intensity",
		"threshold": 42.0,
		"channel":   2.0,
		"colour":    "ignored",
		"nested":    map[string]any{"x": 1},
	}, defaults)
	if err != nil {
		t.Fatalf("ParseOptions failed: %v", err)
	}
	if opts.Method != MethodIntensity || opts.Channel != 2 {
		t.Errorf("parsed: got method %s channel %d", opts.Method, opts.Channel)
	}
	if opts.Threshold == nil || *opts.Threshold != 42 {
		t.Errorf("threshold: got %v, want 42", opts.Threshold)
	}
	if opts.MinArea != defaults.MinArea || opts.KernelSize != defaults.KernelSize {
		t.Error("unspecified options should keep their defaults")
	}

	if _, err := ParseOptions(map[string]any{"method": "magic"}, defaults); !errors.Is(err, ErrUnknownMethod) {
		t.Errorf("unknown method: got %v", err)
	}
	if _, err := ParseOptions(map[string]any{"kernel_size": "five"}, defaults); err == nil {
		t.Error("expected error for wrongly typed value")
	}

	empty, err := ParseOptions(nil, defaults)
	if err != nil || empty.Key() != defaults.Key() {
		t.Errorf("nil options should return defaults, got %+v, %v", empty, err)
	}

	blank, err := ParseOptions(map[string]any{"method": ""}, defaults)
	if err != nil || blank.Method != MethodAuto {
		t.Errorf("empty method should mean auto, got %q, %v", blank.Method, err)
	}
}

func TestOptionsKey(t *testing.T) {
	a := DefaultOptions(nil).WithMethod(MethodContour)
	b := DefaultOptions(nil).WithMethod(MethodContour)
	if a.Key() != b.Key() {
		t.Error("equal options should share a key")
	}

	b.Threshold = intPtr(10)
	if a.Key() == b.Key() {
		t.Error("explicit threshold should change the key")
	}
	if a.Key() == a.WithMethod(MethodIntensity).Key() {
		t.Error("method should change the key")
	}
	if len(a.Key()) != 64 {
		t.Errorf("key length: got %d, want 64", len(a.Key()))
	}
}

func TestContourThreshold(t *testing.T) {
	opts := DefaultOptions(nil)
	if opts.ContourThreshold() != 10 {
		t.Errorf("default contour threshold: got %d, want 10", opts.ContourThreshold())
	}
	opts.Threshold = intPtr(77)
	if opts.ContourThreshold() != 77 {
		t.Errorf("explicit contour threshold: got %d, want 77", opts.ContourThreshold())
	}
}
