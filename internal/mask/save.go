package mask

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/ironsheep/tissue-mask-mcp/internal/imaging"
	"github.com/ironsheep/tissue-mask-mcp/internal/tiff"
)

// Save writes a mask as an 8-bit PNG or single-page TIFF, chosen by the
// extension of path.
func Save(path string, m *image.Gray) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("failed to create mask file: %w", err)
		}
		if err := png.Encode(f, m); err != nil {
			f.Close()
			return fmt.Errorf("failed to encode mask: %w", err)
		}
		return f.Close()
	case ".tif", ".tiff":
		return tiff.WriteFile(path, []tiff.WritePage{{Plane: imaging.PlaneFromImage(m)}})
	default:
		return fmt.Errorf("unsupported mask file type %q (want .png, .tif or .tiff)", filepath.Ext(path))
	}
}
