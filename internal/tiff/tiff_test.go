package tiff

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/ironsheep/tissue-mask-mcp/internal/imaging"
)

func rampPlane(w, h int, depth imaging.Depth, step uint32) *imaging.Plane {
	p := imaging.NewPlane(w, h, depth, 1)
	for i := range p.Pix {
		p.Pix[i] = min(uint32(i)*step, depth.Max())
	}
	return p
}

func writeTIFF(t *testing.T, pages ...WritePage) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.tif")
	if err := WriteFile(path, pages); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	return path
}

func TestRoundTrip_Depths(t *testing.T) {
	tests := []struct {
		name  string
		depth imaging.Depth
		step  uint32
	}{
		{"8-bit", imaging.Depth8, 3},
		{"16-bit", imaging.Depth16, 1000},
		{"32-bit", imaging.Depth32, 70000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			want := rampPlane(7, 5, tt.depth, tt.step)
			path := writeTIFF(t, WritePage{Plane: want})

			f, err := Open(path)
			if err != nil {
				t.Fatalf("Open failed: %v", err)
			}
			if len(f.Pages) != 1 {
				t.Fatalf("pages: got %d, want 1", len(f.Pages))
			}
			pg := f.Pages[0]
			if pg.Width != 7 || pg.Height != 5 || pg.BitsPerSample != int(tt.depth) {
				t.Errorf("page: got %dx%d %d-bit", pg.Width, pg.Height, pg.BitsPerSample)
			}
			if pg.DType() != tt.depth.DType() {
				t.Errorf("dtype: got %s, want %s", pg.DType(), tt.depth.DType())
			}

			got, err := f.ReadPage(0)
			if err != nil {
				t.Fatalf("ReadPage failed: %v", err)
			}
			if got.Depth != tt.depth || got.Samples != 1 {
				t.Fatalf("plane: got depth %d samples %d", got.Depth, got.Samples)
			}
			for i := range want.Pix {
				if got.Pix[i] != want.Pix[i] {
					t.Fatalf("pixel %d: got %d, want %d", i, got.Pix[i], want.Pix[i])
				}
			}
		})
	}
}

func TestMultiPage(t *testing.T) {
	path := writeTIFF(t,
		WritePage{Plane: rampPlane(4, 4, imaging.Depth8, 1), Description: "<first/>"},
		WritePage{Plane: rampPlane(4, 4, imaging.Depth8, 2), Description: "second"},
		WritePage{Plane: rampPlane(2, 2, imaging.Depth8, 4)},
	)

	f, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if len(f.Pages) != 3 {
		t.Fatalf("pages: got %d, want 3", len(f.Pages))
	}
	if f.Pages[0].Description != "<first/>" || f.Pages[1].Description != "second" {
		t.Errorf("descriptions: %q, %q", f.Pages[0].Description, f.Pages[1].Description)
	}
	if f.Pages[2].Description != "" {
		t.Errorf("page 2 should have no description, got %q", f.Pages[2].Description)
	}
	for i, pg := range f.Pages {
		if pg.Index != i {
			t.Errorf("page %d has index %d", i, pg.Index)
		}
	}

	p, err := f.ReadPage(1)
	if err != nil {
		t.Fatalf("ReadPage(1) failed: %v", err)
	}
	if p.At(3, 0, 0) != 6 {
		t.Errorf("page 1 pixel (3,0): got %d, want 6", p.At(3, 0, 0))
	}
	p, err = f.ReadPage(2)
	if err != nil {
		t.Fatalf("ReadPage(2) failed: %v", err)
	}
	if p.Width != 2 || p.At(1, 1, 0) != 12 {
		t.Errorf("page 2: width %d, pixel (1,1) %d", p.Width, p.At(1, 1, 0))
	}

	if _, err := f.ReadPage(3); err == nil {
		t.Error("expected error for out of range page")
	}
}

func TestMicronsPerPixel(t *testing.T) {
	path := writeTIFF(t, WritePage{Plane: rampPlane(2, 2, imaging.Depth8, 1), Resolution: 50800})
	f, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if got := f.Pages[0].MicronsPerPixel(); math.Abs(got-0.5) > 1e-9 {
		t.Errorf("MicronsPerPixel: got %v, want 0.5", got)
	}

	tests := []struct {
		name string
		page Page
		want float64
	}{
		{"no tags", Page{}, 0},
		{"x only", Page{XResolution: 25400}, 1},
		{"y preferred", Page{XResolution: 25400, YResolution: 12700}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.page.MicronsPerPixel(); got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLatin1Description(t *testing.T) {
	path := writeTIFF(t, WritePage{Plane: rampPlane(2, 2, imaging.Depth8, 1), Description: "caf\xe9"})
	f, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if f.Pages[0].Description != "café" {
		t.Errorf("description: got %q, want %q", f.Pages[0].Description, "café")
	}
}

func TestOpen_Errors(t *testing.T) {
	dir := t.TempDir()

	garbage := filepath.Join(dir, "garbage.tif")
	if err := os.WriteFile(garbage, []byte("this is not a tiff file"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Open(garbage); !errors.Is(err, ErrFormat) {
		t.Errorf("garbage: got %v, want ErrFormat", err)
	}

	big := filepath.Join(dir, "big.tif")
	if err := os.WriteFile(big, []byte{'I', 'I', 43, 0, 8, 0, 0, 0, 16, 0, 0, 0, 0, 0, 0, 0}, 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Open(big); !errors.Is(err, ErrUnsupported) {
		t.Errorf("bigtiff: got %v, want ErrUnsupported", err)
	}

	truncated := filepath.Join(dir, "truncated.tif")
	if err := os.WriteFile(truncated, []byte{'I', 'I', 42, 0, 0, 1, 0, 0}, 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Open(truncated); !errors.Is(err, ErrFormat) {
		t.Errorf("truncated: got %v, want ErrFormat", err)
	}

	if _, err := Open(filepath.Join(dir, "missing.tif")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("missing: got %v, want os.ErrNotExist", err)
	}
}

func TestReadPage_UnsupportedSampleFormat(t *testing.T) {
	f := &File{Path: "unused", Pages: []Page{{Width: 1, Height: 1, BitsPerSample: 32, SampleFormat: 3}}}
	if _, err := f.ReadPage(0); !errors.Is(err, ErrUnsupported) {
		t.Errorf("float page: got %v, want ErrUnsupported", err)
	}
}

func TestWrite_RejectsColorPlane(t *testing.T) {
	err := WriteFile(filepath.Join(t.TempDir(), "x.tif"), []WritePage{{Plane: imaging.NewPlane(2, 2, imaging.Depth8, 3)}})
	if err == nil {
		t.Error("expected error for 3-sample plane")
	}
}
