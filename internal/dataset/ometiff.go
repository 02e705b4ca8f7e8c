package dataset

import (
	"fmt"

	"github.com/ironsheep/tissue-mask-mcp/internal/config"
	"github.com/ironsheep/tissue-mask-mcp/internal/imaging"
	"github.com/ironsheep/tissue-mask-mcp/internal/mask"
	"github.com/ironsheep/tissue-mask-mcp/internal/tiff"
)

// OMETiffDataset is a generic multi-page TIFF where every page is one
// channel.
type OMETiffDataset struct {
	base
}

// NewOMETiff opens a generic multi-page TIFF. A missing or unreadable
// container is fatal; bad page descriptions only produce warnings.
func NewOMETiff(path string, cfg *config.Config) (*OMETiffDataset, error) {
	d := &OMETiffDataset{base: newBase(OMETiff, path, cfg)}
	f, err := openContainer(path)
	if err != nil {
		return nil, err
	}
	d.loadPageMetadata(f)
	return d, nil
}

// loadPageMetadata fills the metadata shared by the OME layouts: ome_xml,
// page 0 shape, one channel per page and the resolution tags.
func (b *base) loadPageMetadata(f *tiff.File) {
	desc := f.Pages[0].Description
	var omeNames []string
	if looksLikeXML(desc) {
		b.meta.Set("ome_xml", desc)
		names, err := omeChannelNames(desc)
		if err != nil {
			b.metadataWarning("ome_xml", err)
		}
		omeNames = names
	}
	pageShapeMetadata(b.meta, f)
	b.setResolution(f.Pages[0].MicronsPerPixel())

	names := make([]string, len(f.Pages))
	for i, p := range f.Pages {
		names[i] = b.pageChannelName(i, p.Description, omeNames)
	}
	b.setChannels(names)
}

// pageChannelName picks a display name for page i: a Name element in the
// page's own description first, then the i-th OME Channel Name attribute.
// An empty result becomes a placeholder in setChannels.
func (b *base) pageChannelName(i int, desc string, omeNames []string) string {
	if desc != "" && looksLikeXML(desc) {
		text, found, err := xmlElementText(desc, "Name")
		if err != nil {
			if i > 0 {
				b.metadataWarning(fmt.Sprintf("page %d", i), err)
			}
			return ""
		}
		if found && text != "" {
			return text
		}
	}
	if i < len(omeNames) {
		return omeNames[i]
	}
	return ""
}

// LoadImage decodes page channel.
func (d *OMETiffDataset) LoadImage(channel int) (*imaging.Plane, error) {
	return d.cachedPlane(channel, func(ch int) (*imaging.Plane, error) {
		return readPage(d.path, ch)
	})
}

// GenerateMask offers contour, intensity and adaptive masks; auto means
// intensity.
func (d *OMETiffDataset) GenerateMask(opts mask.Options) (*mask.Result, error) {
	return d.cachedMask(opts, func(o mask.Options) (*mask.Result, error) {
		return d.planeMask(o, mask.MethodIntensity, d.LoadImage, mask.MethodCircle, mask.MethodPolygon)
	})
}

// Validate checks that the container exists.
func (d *OMETiffDataset) Validate() (bool, string) {
	if ok, msg := d.validatePath(); !ok {
		return ok, msg
	}
	return true, ""
}
