package dataset

import (
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"

	"github.com/ironsheep/tissue-mask-mcp/internal/config"
	"github.com/ironsheep/tissue-mask-mcp/internal/imaging"
	"github.com/ironsheep/tissue-mask-mcp/internal/mask"
	"github.com/ironsheep/tissue-mask-mcp/internal/tiff"
)

// qptiffPage is the part of a QPTIFF page description this package reads.
type qptiffPage struct {
	ImageType    string  `xml:"ImageType"`
	Biomarker    *string `xml:"Biomarker"`
	ResolutionNM string  `xml:"ScanProfile>ExperimentV4>Resolution_nm"`
}

// Page types that follow the channel pages in a QPTIFF.
var qptiffAuxiliaryTypes = map[string]bool{
	"thumbnail": true,
	"overview":  true,
	"label":     true,
	"macro":     true,
}

// PhenoCyclerDataset is a QPTIFF multiplex immunofluorescence scan. The
// leading full-resolution pages are the channels, one biomarker each.
type PhenoCyclerDataset struct {
	base
	resolutionNM float64
}

// NewPhenoCycler opens a QPTIFF container.
func NewPhenoCycler(path string, cfg *config.Config) (*PhenoCyclerDataset, error) {
	d := &PhenoCyclerDataset{base: newBase(PhenoCycler, path, cfg)}
	f, err := openContainer(path)
	if err != nil {
		return nil, err
	}
	d.loadMetadata(f)
	return d, nil
}

func (d *PhenoCyclerDataset) loadMetadata(f *tiff.File) {
	pages := channelPages(f)
	pageShapeMetadata(d.meta, f)

	names := make([]string, len(pages))
	for i, p := range pages {
		desc, err := parseQPTIFFPage(p.Description)
		if err != nil {
			d.metadataWarning(fmt.Sprintf("page %d", i), err)
			continue
		}
		if desc.Biomarker != nil {
			names[i] = strings.TrimSpace(*desc.Biomarker)
		}
		if i == 0 && desc.ResolutionNM != "" {
			nm, err := strconv.ParseFloat(strings.TrimSpace(desc.ResolutionNM), 64)
			if err != nil || nm <= 0 {
				d.metadataWarning("Resolution_nm", fmt.Errorf("invalid value %q", desc.ResolutionNM))
			} else {
				d.resolutionNM = nm
				d.setResolution(nm / 1000)
			}
		}
	}
	if d.resolutionNM == 0 {
		d.setResolution(f.Pages[0].MicronsPerPixel())
		d.resolutionNM = d.resolution * 1000
	}

	d.setChannels(names)
	d.meta.Set("resolution_nm", d.resolutionNM)
	d.meta.Set("biomarkers", d.Channels())
}

// channelPages returns the leading run of pages that share page 0's size
// and are not thumbnails, overviews, labels or macros.
func channelPages(f *tiff.File) []tiff.Page {
	first := f.Pages[0]
	n := 0
	for _, p := range f.Pages {
		if p.Width != first.Width || p.Height != first.Height {
			break
		}
		if desc, err := parseQPTIFFPage(p.Description); err == nil && qptiffAuxiliaryTypes[strings.ToLower(strings.TrimSpace(desc.ImageType))] {
			break
		}
		n++
	}
	if n == 0 {
		n = 1
	}
	return f.Pages[:n]
}

// parseQPTIFFPage decodes a page description. An empty description is
// not an error.
func parseQPTIFFPage(s string) (qptiffPage, error) {
	var p qptiffPage
	if strings.TrimSpace(s) == "" {
		return p, nil
	}
	if err := xml.Unmarshal([]byte(s), &p); err != nil {
		return qptiffPage{}, err
	}
	return p, nil
}

// ResolutionNM returns the scan resolution in nanometers per pixel.
func (d *PhenoCyclerDataset) ResolutionNM() float64 {
	return d.resolutionNM
}

// LoadImage decodes the page of channel.
func (d *PhenoCyclerDataset) LoadImage(channel int) (*imaging.Plane, error) {
	return d.cachedPlane(channel, func(ch int) (*imaging.Plane, error) {
		return readPage(d.path, ch)
	})
}

// GenerateMask offers contour, intensity and adaptive masks; auto means
// intensity.
func (d *PhenoCyclerDataset) GenerateMask(opts mask.Options) (*mask.Result, error) {
	return d.cachedMask(opts, func(o mask.Options) (*mask.Result, error) {
		return d.planeMask(o, mask.MethodIntensity, d.LoadImage, mask.MethodCircle, mask.MethodPolygon)
	})
}

// Validate checks that the QPTIFF exists.
func (d *PhenoCyclerDataset) Validate() (bool, string) {
	if ok, msg := d.validatePath(); !ok {
		return ok, msg
	}
	return true, ""
}
