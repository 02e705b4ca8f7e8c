package dataset

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ironsheep/tissue-mask-mcp/internal/config"
)

// SpatialDir is the metadata directory that marks a Visium dataset.
const SpatialDir = "spatial"

var (
	qptiffExts = []string{".qptiff", ".qptif"}
	tiffExts   = []string{".ome.tiff", ".ome.tif", ".tiff", ".tif"}
	bitmapExts = []string{".png", ".jpg", ".jpeg"}
)

// FormatInfo describes one supported modality.
type FormatInfo struct {
	Modality    Modality `json:"modality"`
	Description string   `json:"description"`
	Extensions  []string `json:"file_types"`
	Layout      string   `json:"directory_structure"`
}

// SupportedFormats lists every modality with its file types and layout.
func SupportedFormats() []FormatInfo {
	return []FormatInfo{
		{Visium, "10x Genomics Visium spatial transcriptomics", []string{".png", ".jpg", ".jpeg"}, "Directory with a 'spatial' subdirectory and an H&E image"},
		{Xenium, "10x Genomics Xenium spatial omics", []string{".ome.tiff", ".ome.tif"}, "Output directory with morphology.ome.tif and optional cells, boundaries and transcripts tables (open with the xenium hint)"},
		{PhenoCycler, "Akoya Biosciences PhenoCycler multiplexed immunofluorescence", []string{".qptiff", ".qptif"}, "Single QPTIFF file"},
		{OMETiff, "Generic OME-TIFF format", []string{".tiff", ".tif", ".ome.tiff", ".ome.tif"}, "Single multi-page TIFF file"},
	}
}

// DetectModality decides which modality path holds.
//
// The path must exist. A non-empty hint must name a modality and is then
// returned as is. Otherwise files are matched by extension and directories
// by content: a spatial subdirectory means Visium, then the first QPTIFF
// (in name order) means PhenoCycler, then the first TIFF means OME-TIFF.
// Xenium is only selected by hint.
func DetectModality(path, hint string) (Modality, error) {
	m, _, err := resolve(path, hint)
	return m, err
}

// Open detects the modality of path and opens it with the matching
// adapter. A nil cfg uses the defaults.
func Open(path, hint string, cfg *config.Config) (Dataset, error) {
	m, target, err := resolve(path, hint)
	if err != nil {
		return nil, err
	}
	switch m {
	case Visium:
		return NewVisium(target, cfg)
	case Xenium:
		return NewXenium(target, cfg)
	case PhenoCycler:
		return NewPhenoCycler(target, cfg)
	default:
		return NewOMETiff(target, cfg)
	}
}

// resolve returns the modality and the path its adapter should open: the
// matching container file when a directory holds a PhenoCycler or
// OME-TIFF dataset.
func resolve(path, hint string) (Modality, string, error) {
	st, err := os.Stat(path)
	if err != nil {
		return "", "", fmt.Errorf("%w: data path does not exist: %s", ErrNotFound, path)
	}

	if strings.TrimSpace(hint) != "" {
		m, err := ParseModality(hint)
		if err != nil {
			return "", "", err
		}
		if st.IsDir() && (m == PhenoCycler || m == OMETiff) {
			exts := tiffExts
			if m == PhenoCycler {
				exts = append(append([]string(nil), qptiffExts...), tiffExts...)
			}
			file, err := firstWithExt(path, exts)
			if err != nil {
				return "", "", err
			}
			if file == "" {
				return "", "", fmt.Errorf("%w: no %s container in %s", ErrNotFound, m, path)
			}
			return m, file, nil
		}
		return m, path, nil
	}

	if !st.IsDir() {
		name := strings.ToLower(filepath.Base(path))
		switch {
		case hasExt(name, qptiffExts):
			return PhenoCycler, path, nil
		case hasExt(name, tiffExts):
			return OMETiff, path, nil
		case hasExt(name, bitmapExts):
			return Visium, path, nil
		}
		return "", "", fmt.Errorf("%w: unsupported file type: %s", ErrUnsupportedFormat, filepath.Ext(path))
	}

	if sd, err := os.Stat(filepath.Join(path, SpatialDir)); err == nil && sd.IsDir() {
		return Visium, path, nil
	}
	file, err := firstWithExt(path, qptiffExts)
	if err != nil {
		return "", "", err
	}
	if file != "" {
		return PhenoCycler, file, nil
	}
	file, err = firstWithExt(path, tiffExts)
	if err != nil {
		return "", "", err
	}
	if file != "" {
		return OMETiff, file, nil
	}
	return "", "", fmt.Errorf("%w: could not determine data format in directory: %s", ErrUnsupportedFormat, path)
}

func hasExt(name string, exts []string) bool {
	for _, e := range exts {
		if strings.HasSuffix(name, e) {
			return true
		}
	}
	return false
}

// firstWithExt returns the first regular file in dir, in name order, whose
// name ends in one of exts. It returns "" when nothing matches.
func firstWithExt(dir string, exts []string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if hasExt(strings.ToLower(e.Name()), exts) {
			return filepath.Join(dir, e.Name()), nil
		}
	}
	return "", nil
}
