package dataset

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/ironsheep/tissue-mask-mcp/internal/imaging"
	"github.com/ironsheep/tissue-mask-mcp/internal/tiff"
)

// blockPlane returns a size x size plane that is zero except for a square
// block [lo, hi) set to v.
func blockPlane(size, lo, hi int, depth imaging.Depth, v uint32) *imaging.Plane {
	p := imaging.NewPlane(size, size, depth, 1)
	for y := lo; y < hi; y++ {
		for x := lo; x < hi; x++ {
			p.Set(x, y, 0, v)
		}
	}
	return p
}

// writeTIFF writes pages into dir/name and returns the path.
func writeTIFF(t *testing.T, dir, name string, pages ...tiff.WritePage) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := tiff.WriteFile(path, pages); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
	return path
}

// writeFile writes content into dir/name, creating parent directories.
func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
	return path
}

// writeBlockPNG writes a black RGB PNG with a white square [lo, hi).
func writeBlockPNG(t *testing.T, dir, name string, size, lo, hi int) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			c := color.RGBA{0, 0, 0, 255}
			if x >= lo && x < hi && y >= lo && y < hi {
				c = color.RGBA{220, 220, 220, 255}
			}
			img.SetRGBA(x, y, c)
		}
	}
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
	return path
}

func mkdir(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(path, 0o755); err != nil {
		t.Fatal(err)
	}
	return path
}

func intPtr(v int) *int { return &v }
