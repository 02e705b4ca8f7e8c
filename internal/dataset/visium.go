package dataset

import (
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/ironsheep/tissue-mask-mcp/internal/config"
	"github.com/ironsheep/tissue-mask-mcp/internal/imaging"
	"github.com/ironsheep/tissue-mask-mcp/internal/mask"
)

// Visium file names inside the spatial metadata directory.
const (
	scaleFactorsFile  = "scalefactors_json.json"
	fiducialFile      = "fiducial_positions_list.txt"
	hiresScaleFactor  = "tissue_hires_scalef"
	visiumChannelName = "H&E"
)

// tissue position tables, newest layout last
var tissuePositionFiles = []string{"tissue_positions_list.csv", "tissue_positions.csv"}

// VisiumDataset is an H&E bitmap plus a spatial metadata directory.
type VisiumDataset struct {
	base
	dir         string
	imagePath   string
	metadataDir string
}

// NewVisium opens a Visium directory, or a bitmap file whose parent is
// the directory. Metadata problems are recorded as warnings; a missing
// image surfaces on LoadImage and Validate.
func NewVisium(path string, cfg *config.Config) (*VisiumDataset, error) {
	d := &VisiumDataset{base: newBase(Visium, path, cfg)}
	st, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	if st.IsDir() {
		d.dir = path
		d.imagePath = filepath.Join(path, d.cfg.Formats.VisiumImageFile)
	} else {
		d.dir = filepath.Dir(path)
		d.imagePath = path
	}
	d.metadataDir = filepath.Join(d.dir, d.cfg.Formats.VisiumMetadataDir)
	d.loadMetadata()
	return d, nil
}

func (d *VisiumDataset) loadMetadata() {
	sfPath := filepath.Join(d.metadataDir, scaleFactorsFile)
	if data, err := os.ReadFile(sfPath); err == nil {
		var sf map[string]any
		if err := json.Unmarshal(data, &sf); err != nil {
			d.metadataWarning(scaleFactorsFile, err)
		} else {
			d.meta.Set("scalefactors", sf)
			if v, ok := sf[hiresScaleFactor].(float64); ok && v > 0 {
				d.setResolution(1 / v)
			} else if _, present := sf[hiresScaleFactor]; present {
				d.metadataWarning(scaleFactorsFile, fmt.Errorf("invalid %s: %v", hiresScaleFactor, sf[hiresScaleFactor]))
			}
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		d.metadataWarning(scaleFactorsFile, err)
	}

	for _, name := range tissuePositionFiles {
		p := filepath.Join(d.metadataDir, name)
		if fileExists(p) {
			d.meta.Set("tissue_positions_file", p)
			break
		}
	}
	if p := filepath.Join(d.metadataDir, fiducialFile); fileExists(p) {
		d.meta.Set("fiducial_positions_file", p)
	}

	if f, err := os.Open(d.imagePath); err == nil {
		cfg, _, err := image.DecodeConfig(f)
		f.Close()
		if err != nil {
			d.metadataWarning(filepath.Base(d.imagePath), err)
		} else {
			d.meta.Set("height", cfg.Height)
			d.meta.Set("width", cfg.Width)
		}
	}
	d.meta.Set("dtype", imaging.Depth8.DType())
	d.setChannels([]string{visiumChannelName})
}

// ImagePath returns the H&E bitmap path.
func (d *VisiumDataset) ImagePath() string {
	return d.imagePath
}

// LoadImage decodes the H&E bitmap. Only channel 0 exists.
func (d *VisiumDataset) LoadImage(channel int) (*imaging.Plane, error) {
	return d.cachedPlane(channel, func(int) (*imaging.Plane, error) {
		if !fileExists(d.imagePath) {
			return nil, fmt.Errorf("%w: Visium image %s", ErrNotFound, d.imagePath)
		}
		p, err := imaging.LoadPlane(d.imagePath)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDecode, err)
		}
		return p, nil
	})
}

// GenerateMask offers circle, contour, intensity and adaptive masks; auto
// means circle.
func (d *VisiumDataset) GenerateMask(opts mask.Options) (*mask.Result, error) {
	return d.cachedMask(opts, func(o mask.Options) (*mask.Result, error) {
		return d.planeMask(o, mask.MethodCircle, d.LoadImage, mask.MethodPolygon)
	})
}

// Validate checks for the image and the metadata directory.
func (d *VisiumDataset) Validate() (bool, string) {
	if ok, msg := d.validatePath(); !ok {
		return ok, msg
	}
	if !fileExists(d.imagePath) {
		return false, fmt.Sprintf("H&E image not found: %s", d.imagePath)
	}
	if st, err := os.Stat(d.metadataDir); err != nil || !st.IsDir() {
		return false, fmt.Sprintf("Metadata directory not found: %s", d.metadataDir)
	}
	return true, ""
}

func fileExists(path string) bool {
	st, err := os.Stat(path)
	return err == nil && !st.IsDir()
}
