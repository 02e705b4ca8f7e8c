package dataset

import (
	"errors"
	"fmt"
	"log"
	"math"
	"os"
	"path/filepath"

	"github.com/ironsheep/tissue-mask-mcp/internal/config"
	"github.com/ironsheep/tissue-mask-mcp/internal/imaging"
	"github.com/ironsheep/tissue-mask-mcp/internal/mask"
	"github.com/ironsheep/tissue-mask-mcp/internal/tables"
)

// Tier is the availability level of a Xenium dataset.
type Tier int

// Tiers.
const (
	TierMinimal Tier = 1
	TierFull    Tier = 2
)

func (t Tier) String() string {
	if t == TierFull {
		return "full"
	}
	return "minimal"
}

// Companion file names.
const (
	cellsTable             = "cells"
	cellBoundariesTable    = "cell_boundaries"
	nucleusBoundariesTable = "nucleus_boundaries"
	transcriptsTable       = "transcripts"
	genePanelFile          = "gene_panel.json"
	metricsFile            = "metrics_summary.csv"
)

var tierDescriptions = map[Tier]string{
	TierMinimal: "Minimal Xenium data (image only)",
	TierFull:    "Full Xenium output with cells, boundaries, and transcripts",
}

// TierInfo reports the tier and which companion artifacts loaded.
type TierInfo struct {
	Tier                 Tier   `json:"tier"`
	Name                 string `json:"name"`
	Description          string `json:"description"`
	HasCells             bool   `json:"has_cells"`
	HasBoundaries        bool   `json:"has_boundaries"`
	HasTranscripts       bool   `json:"has_transcripts"`
	HasGenePanel         bool   `json:"has_gene_panel"`
	HasMetrics           bool   `json:"has_metrics"`
	HasNucleusBoundaries bool   `json:"has_nucleus_boundaries"`
}

// strategyKey indexes the Xenium mask strategy table.
type strategyKey struct {
	tier   Tier
	method mask.Method
}

// xeniumStrategies maps a requested method to the one that runs. Methods
// not listed run as requested.
var xeniumStrategies = map[strategyKey]mask.Method{
	{TierFull, mask.MethodAuto}:       mask.MethodPolygon,
	{TierMinimal, mask.MethodAuto}:    mask.MethodIntensity,
	{TierFull, mask.MethodPolygon}:    mask.MethodPolygon,
	{TierMinimal, mask.MethodPolygon}: mask.MethodIntensity,
}

// XeniumDataset is a morphology OME-TIFF with optional companion tables.
// The tier is decided once, when the dataset is opened.
type XeniumDataset struct {
	base
	dir       string
	imagePath string
	info      TierInfo

	cells       *tables.CellTable
	boundaries  *tables.BoundaryTable
	nuclei      *tables.BoundaryTable
	transcripts *tables.TranscriptTable
	genePanel   *tables.GenePanel
	metrics     *tables.Record
	imageWidth  int
	imageHeight int
}

// NewXenium opens a Xenium output directory or its morphology image.
// The image is required; every companion table is optional.
func NewXenium(path string, cfg *config.Config) (*XeniumDataset, error) {
	d := &XeniumDataset{base: newBase(Xenium, path, cfg)}
	st, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	if st.IsDir() {
		d.dir = path
		d.imagePath = filepath.Join(path, d.cfg.Formats.XeniumImageFile)
	} else {
		d.dir = filepath.Dir(path)
		d.imagePath = path
	}

	f, err := openContainer(d.imagePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open Xenium image: %w", err)
	}
	d.loadPageMetadata(f)
	d.imageWidth, d.imageHeight = f.Pages[0].Width, f.Pages[0].Height

	d.loadCompanions()
	d.resolveTier()
	return d, nil
}

// loadCompanions reads every companion artifact, recording failures as
// warnings.
func (d *XeniumDataset) loadCompanions() {
	if path, ok := d.findTable(cellsTable); ok {
		if t, err := tables.ReadCells(path); err != nil {
			d.metadataWarning(cellsTable, err)
		} else {
			d.cells = t
			d.info.HasCells = true
			d.meta.Set("num_cells", t.Len())
			d.meta.Set("cell_columns", append([]string(nil), t.Frame.Columns...))
		}
	}

	if path, ok := d.findTable(cellBoundariesTable); ok {
		if t, err := tables.ReadBoundaries(path); err != nil {
			d.metadataWarning(cellBoundariesTable, err)
		} else {
			d.boundaries = t
			d.info.HasBoundaries = true
			d.meta.Set("num_cell_boundaries", t.Len())
		}
	}
	if path, ok := d.findTable(nucleusBoundariesTable); ok {
		if t, err := tables.ReadBoundaries(path); err != nil {
			d.metadataWarning(nucleusBoundariesTable, err)
		} else {
			d.nuclei = t
			d.info.HasNucleusBoundaries = true
			d.meta.Set("num_nucleus_boundaries", t.Len())
		}
	}

	if path, ok := d.findTable(transcriptsTable); ok {
		if t, err := tables.ReadTranscripts(path); err != nil {
			d.metadataWarning(transcriptsTable, err)
		} else {
			d.transcripts = t
			d.info.HasTranscripts = true
			d.meta.Set("num_transcripts", t.Len())
			d.meta.Set("transcript_columns", append([]string(nil), t.Frame.Columns...))
		}
	}

	if path := filepath.Join(d.dir, genePanelFile); fileExists(path) {
		if gp, err := tables.ReadGenePanel(path); err != nil {
			d.metadataWarning(genePanelFile, err)
		} else {
			d.genePanel = gp
			d.info.HasGenePanel = true
			if gp.HasPanel {
				d.meta.Set("panel_name", gp.Name)
				d.meta.Set("num_genes", gp.NumTargets)
				d.meta.Set("panel_species", gp.Species)
				d.meta.Set("panel_tissue", gp.Tissue)
			}
			if gp.HasTargets {
				d.meta.Set("genes", append([]string(nil), gp.Genes...))
			}
		}
	}

	if path := filepath.Join(d.dir, metricsFile); fileExists(path) {
		if m, err := tables.ReadMetrics(path); err != nil {
			d.metadataWarning(metricsFile, err)
		} else {
			d.metrics = m
			d.info.HasMetrics = true
			if m.Len() > 0 {
				d.meta.Set("metrics", m.Clone())
			}
		}
	}
}

func (d *XeniumDataset) findTable(name string) (string, bool) {
	path, err := tables.Find(d.dir, name)
	if err != nil {
		if d.cfg.Debug() && errors.Is(err, tables.ErrNoTable) {
			log.Printf("DEBUG: %v", err)
		}
		return "", false
	}
	return path, true
}

func (d *XeniumDataset) resolveTier() {
	d.info.Tier = TierMinimal
	if d.info.HasCells && d.info.HasBoundaries && d.info.HasTranscripts {
		d.info.Tier = TierFull
	}
	d.info.Name = d.info.Tier.String()
	d.info.Description = tierDescriptions[d.info.Tier]
	d.meta.Set("tier", int(d.info.Tier))
	d.meta.Set("tier_description", d.info.Description)
}

// TierInfo returns the tier and the availability flags.
func (d *XeniumDataset) TierInfo() TierInfo {
	return d.info
}

// Tier returns the dataset tier.
func (d *XeniumDataset) Tier() Tier {
	return d.info.Tier
}

// Cells returns the cell table, or nil when it did not load.
func (d *XeniumDataset) Cells() *tables.CellTable { return d.cells }

// CellBoundaries returns the cell boundary table, or nil.
func (d *XeniumDataset) CellBoundaries() *tables.BoundaryTable { return d.boundaries }

// NucleusBoundaries returns the nucleus boundary table, or nil.
func (d *XeniumDataset) NucleusBoundaries() *tables.BoundaryTable { return d.nuclei }

// Transcripts returns the transcript table, or nil.
func (d *XeniumDataset) Transcripts() *tables.TranscriptTable { return d.transcripts }

// GenePanel returns the gene panel, or nil.
func (d *XeniumDataset) GenePanel() *tables.GenePanel { return d.genePanel }

// Genes returns the panel's gene names, or nil when the panel has no
// target list.
func (d *XeniumDataset) Genes() []string {
	if d.genePanel == nil || !d.genePanel.HasTargets {
		return nil
	}
	return append([]string(nil), d.genePanel.Genes...)
}

// Metrics returns a copy of the summary metrics row, or nil.
func (d *XeniumDataset) Metrics() *tables.Record {
	if d.metrics == nil {
		return nil
	}
	return d.metrics.Clone()
}

// LoadImage decodes morphology image page channel.
func (d *XeniumDataset) LoadImage(channel int) (*imaging.Plane, error) {
	return d.cachedPlane(channel, func(ch int) (*imaging.Plane, error) {
		return readPage(d.imagePath, ch)
	})
}

// GenerateMask resolves the requested method through the strategy table:
// auto is polygon on a Full dataset and intensity otherwise, and polygon
// falls back to intensity on a Minimal dataset or when no boundary polygon
// is usable. Circle masks are not offered.
func (d *XeniumDataset) GenerateMask(opts mask.Options) (*mask.Result, error) {
	return d.cachedMask(opts, func(o mask.Options) (*mask.Result, error) {
		requested := o.Method
		if m, ok := xeniumStrategies[strategyKey{d.info.Tier, requested}]; ok {
			o.Method = m
		}
		if o.Method == mask.MethodCircle {
			return nil, fmt.Errorf("%w: xenium datasets do not offer circle masks", mask.ErrUnsupportedMethod)
		}

		if o.Method != mask.MethodPolygon {
			res, err := d.planeMask(o, mask.MethodIntensity, d.LoadImage)
			if err != nil {
				return nil, err
			}
			if requested == mask.MethodPolygon {
				res.Fallback = "dataset tier is minimal; used intensity method"
				d.warn("mask", errors.New(res.Fallback))
			}
			return res, nil
		}

		polys := d.pixelPolygons()
		if len(polys) == 0 {
			res, err := d.planeMask(o.WithMethod(mask.MethodIntensity), mask.MethodIntensity, d.LoadImage)
			if err != nil {
				return nil, err
			}
			res.Fallback = "no valid boundary polygons; used intensity method"
			d.warn("mask", errors.New(res.Fallback))
			return res, nil
		}
		return mask.PostProcess(mask.Polygons(d.imageWidth, d.imageHeight, polys), o)
	})
}

// maxPixelCoord bounds converted vertices; polygons reaching beyond it are
// treated as malformed.
const maxPixelCoord = 1 << 31

// pixelPolygons converts the valid cell boundaries to pixels. Boundary
// vertices are in microns and are divided by the image resolution.
// Polygons whose converted vertices leave the pixel range are skipped with
// one warning.
func (d *XeniumDataset) pixelPolygons() []mask.Polygon {
	if d.boundaries == nil {
		return nil
	}
	var out []mask.Polygon
	skipped := 0
	for _, p := range d.boundaries.Polygons {
		if !p.Valid() {
			continue
		}
		xs := make([]float64, len(p.X))
		ys := make([]float64, len(p.Y))
		inRange := true
		for i := range p.X {
			xs[i] = p.X[i] / d.resolution
			ys[i] = p.Y[i] / d.resolution
			if math.Abs(xs[i]) > maxPixelCoord || math.Abs(ys[i]) > maxPixelCoord {
				inRange = false
				break
			}
		}
		if !inRange {
			skipped++
			continue
		}
		out = append(out, mask.Polygon{X: xs, Y: ys})
	}
	if skipped > 0 {
		d.warn("cell_boundaries", fmt.Errorf("%w: %d polygons lie outside the pixel range", tables.ErrMalformedPolygon, skipped))
	}
	return out
}

// Validate checks for the morphology image.
func (d *XeniumDataset) Validate() (bool, string) {
	if ok, msg := d.validatePath(); !ok {
		return ok, msg
	}
	if !fileExists(d.imagePath) {
		return false, fmt.Sprintf("Xenium TIFF not found: %s", d.imagePath)
	}
	return true, ""
}
