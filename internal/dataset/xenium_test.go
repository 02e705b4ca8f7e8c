package dataset

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/ironsheep/tissue-mask-mcp/internal/imaging"
	"github.com/ironsheep/tissue-mask-mcp/internal/mask"
	"github.com/ironsheep/tissue-mask-mcp/internal/tables"
	"github.com/ironsheep/tissue-mask-mcp/internal/tiff"
)

const (
	xeniumCells = "cell_id,x_centroid,y_centroid\n1,15.0,15.0\n2,5.0,5.0\n"

	// one 10x10 square outline, one vertex per row
	xeniumSquare = "cell_id,vertex_x,vertex_y\n1,10,10\n1,20,10\n1,20,20\n1,10,20\n"

	xeniumTranscripts = "x_location,y_location,z_location,feature_name,qv\n" +
		"12.0,12.0,1.0,EPCAM,30\n14.0,13.0,1.0,EPCAM,25\n3.0,3.0,2.0,CD3E,40\n"

	xeniumPanel = `{"payload":{"panel":{"identity":{"name":"Human Breast"},"num_gene_targets":2,"species":"Human"},
"targets":[{"type":{"descriptor":"gene","data":{"name":"EPCAM"}}},{"type":{"descriptor":"gene","data":{"name":"CD3E"}}},
{"type":{"descriptor":"control","data":{"name":"NegControlProbe_00001"}}}]}}`

	xeniumMetrics = "run_name,num_cells_detected,median_genes_per_cell\nrun1,2,1.5\n"
)

// newXeniumDir writes a morphology image with a bright 16x16 block and
// the given companion files.
func newXeniumDir(t *testing.T, files map[string]string) string {
	t.Helper()
	return newXeniumDirAt(t, 0, files)
}

// newXeniumDirAt is newXeniumDir with the image resolution tags set to ppi
// pixels per inch (none when ppi is 0).
func newXeniumDirAt(t *testing.T, ppi float64, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	writeTIFF(t, dir, "morphology.ome.tif",
		tiff.WritePage{
			Plane:       blockPlane(32, 8, 24, imaging.Depth16, 51200),
			Description: "<OME><Image><Pixels><Channel Name=\"DAPI\"/></Pixels></Image></OME>",
			Resolution:  ppi,
		},
	)
	for name, content := range files {
		writeFile(t, dir, name, content)
	}
	return dir
}

func fullXeniumFiles() map[string]string {
	return map[string]string{
		"cells.csv":           xeniumCells,
		"cell_boundaries.csv": xeniumSquare,
		"transcripts.csv":     xeniumTranscripts,
	}
}

func TestXenium_MinimalTier(t *testing.T) {
	ds, err := NewXenium(newXeniumDir(t, nil), nil)
	if err != nil {
		t.Fatalf("NewXenium failed: %v", err)
	}

	info := ds.TierInfo()
	if info.Tier != TierMinimal || info.Name != "minimal" {
		t.Errorf("tier: got %d (%s), want minimal", info.Tier, info.Name)
	}
	if info.HasCells || info.HasBoundaries || info.HasTranscripts || info.HasGenePanel || info.HasMetrics {
		t.Errorf("no companion should be flagged: %+v", info)
	}
	if len(ds.Warnings()) != 0 {
		t.Errorf("absent companions should not warn: %v", ds.Warnings())
	}
	if got := ds.Channels(); len(got) != 1 || got[0] != "DAPI" {
		t.Errorf("channels: got %v", got)
	}
	if ds.Cells() != nil || ds.Genes() != nil || ds.Metrics() != nil {
		t.Error("accessors should return nil for absent companions")
	}

	res, err := ds.GenerateMask(mask.DefaultOptions(nil))
	if err != nil {
		t.Fatalf("auto mask failed: %v", err)
	}
	if res.Method != mask.MethodIntensity || res.Fallback != "" {
		t.Errorf("auto: got method %s fallback %q", res.Method, res.Fallback)
	}
	if n := imaging.CountForeground(res.Mask); n != 256 {
		t.Errorf("auto foreground: got %d, want 256", n)
	}

	res, err = ds.GenerateMask(mask.DefaultOptions(nil).WithMethod(mask.MethodPolygon))
	if err != nil {
		t.Fatalf("polygon mask failed: %v", err)
	}
	if res.Method != mask.MethodIntensity || res.Fallback == "" {
		t.Errorf("polygon on minimal tier: got method %s fallback %q", res.Method, res.Fallback)
	}
	if len(ds.Warnings()) != 1 {
		t.Errorf("fallback should warn once: %v", ds.Warnings())
	}
}

func TestXenium_FullTierPolygonMask(t *testing.T) {
	files := fullXeniumFiles()
	files["gene_panel.json"] = xeniumPanel
	files["metrics_summary.csv"] = xeniumMetrics
	dir := newXeniumDir(t, files)

	ds, err := NewXenium(dir, nil)
	if err != nil {
		t.Fatalf("NewXenium failed: %v", err)
	}
	info := ds.TierInfo()
	if info.Tier != TierFull || info.Name != "full" {
		t.Fatalf("tier: got %d (%s), want full", info.Tier, info.Name)
	}
	if !info.HasCells || !info.HasBoundaries || !info.HasTranscripts || !info.HasGenePanel || !info.HasMetrics {
		t.Errorf("flags: %+v", info)
	}
	if info.HasNucleusBoundaries {
		t.Error("nucleus boundaries were not written")
	}

	if ds.Cells().Len() != 2 {
		t.Errorf("cells: got %d, want 2", ds.Cells().Len())
	}
	if counts := ds.Transcripts().GeneCounts(); counts["EPCAM"] != 2 || counts["CD3E"] != 1 {
		t.Errorf("gene counts: got %v", counts)
	}
	if genes := ds.Genes(); len(genes) != 2 || genes[0] != "EPCAM" || genes[1] != "CD3E" {
		t.Errorf("genes: got %v", genes)
	}

	meta := ds.Metadata()
	checks := map[string]any{
		"num_cells":           2,
		"num_cell_boundaries": 4,
		"num_transcripts":     3,
		"panel_name":          "Human Breast",
		"panel_species":       "Human",
		"panel_tissue":        "Unknown",
		"num_genes":           2,
		"tier":                2,
	}
	for key, want := range checks {
		if got, ok := meta.Get(key); !ok || got != want {
			t.Errorf("%s: got %v, want %v", key, got, want)
		}
	}
	m, ok := meta.Get("metrics")
	if !ok {
		t.Fatal("metrics missing from metadata")
	}
	if v, _ := m.(*tables.Record).Get("run_name"); v != "run1" {
		t.Errorf("metrics run_name: got %v", v)
	}

	res, err := ds.GenerateMask(mask.DefaultOptions(nil))
	if err != nil {
		t.Fatalf("GenerateMask failed: %v", err)
	}
	if res.Method != mask.MethodPolygon || res.Polygons != 1 {
		t.Errorf("auto on full tier: got method %s with %d polygons", res.Method, res.Polygons)
	}
	// 10 filled rows of 11 pixels plus the closing edge at y=20
	if n := imaging.CountForeground(res.Mask); n != 121 {
		t.Errorf("polygon foreground: got %d, want 121", n)
	}
	if b := res.Mask.Bounds(); b.Dx() != 32 || b.Dy() != 32 {
		t.Errorf("mask size: got %v", b)
	}

	if _, err := ds.GenerateMask(mask.DefaultOptions(nil).WithMethod(mask.MethodCircle)); !errors.Is(err, mask.ErrUnsupportedMethod) {
		t.Errorf("circle: got %v, want ErrUnsupportedMethod", err)
	}
}

func TestXenium_BadCompanionTable(t *testing.T) {
	files := fullXeniumFiles()
	files["cells.csv"] = "cell_id,x_centroid\n1,15.0\n"
	ds, err := NewXenium(newXeniumDir(t, files), nil)
	if err != nil {
		t.Fatalf("NewXenium failed: %v", err)
	}
	info := ds.TierInfo()
	if info.Tier != TierMinimal || info.HasCells {
		t.Errorf("a failed cells table should leave the dataset minimal: %+v", info)
	}
	if !info.HasBoundaries || !info.HasTranscripts {
		t.Errorf("other tables should still load: %+v", info)
	}
	warnings := ds.Warnings()
	if len(warnings) != 1 || !errors.Is(warnings[0], ErrMetadataParse) || warnings[0].Source != "cells" {
		t.Errorf("warnings: got %v", warnings)
	}
}

func TestXenium_MalformedBoundariesFallBack(t *testing.T) {
	files := fullXeniumFiles()
	files["cell_boundaries.csv"] = "cell_id,vertex_x,vertex_y\n1,,\n1,,\n2,NaN,4\n"
	ds, err := NewXenium(newXeniumDir(t, files), nil)
	if err != nil {
		t.Fatalf("NewXenium failed: %v", err)
	}
	if ds.Tier() != TierFull {
		t.Fatalf("tier: got %s, want full", ds.Tier())
	}
	if n := ds.CellBoundaries().ValidCount(); n != 0 {
		t.Fatalf("valid polygons: got %d, want 0", n)
	}

	res, err := ds.GenerateMask(mask.DefaultOptions(nil))
	if err != nil {
		t.Fatalf("GenerateMask failed: %v", err)
	}
	if res.Method != mask.MethodIntensity || res.Fallback == "" {
		t.Errorf("got method %s fallback %q, want intensity fallback", res.Method, res.Fallback)
	}
	if n := imaging.CountForeground(res.Mask); n != 256 {
		t.Errorf("fallback foreground: got %d, want 256", n)
	}
}

func TestXenium_OpenByImagePath(t *testing.T) {
	dir := newXeniumDir(t, fullXeniumFiles())
	ds, err := NewXenium(filepath.Join(dir, "morphology.ome.tif"), nil)
	if err != nil {
		t.Fatalf("NewXenium failed: %v", err)
	}
	if ds.Tier() != TierFull {
		t.Errorf("companions next to the image should load: tier %s", ds.Tier())
	}
	if ok, msg := ds.Validate(); !ok {
		t.Errorf("Validate failed: %s", msg)
	}
}

func TestXenium_MissingMorphologyImage(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "cells.csv", xeniumCells)
	if _, err := NewXenium(dir, nil); !errors.Is(err, ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound", err)
	}
	if _, err := NewXenium(filepath.Join(dir, "nope"), nil); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing path: got %v, want ErrNotFound", err)
	}
}

func TestXenium_PolygonMicronsToPixels(t *testing.T) {
	// 12700 ppi is 2 microns per pixel
	ds, err := NewXenium(newXeniumDirAt(t, 12700, fullXeniumFiles()), nil)
	if err != nil {
		t.Fatalf("NewXenium failed: %v", err)
	}
	if ds.Resolution() != 2.0 {
		t.Fatalf("resolution: got %v, want 2.0", ds.Resolution())
	}

	res, err := ds.GenerateMask(mask.DefaultOptions(nil).WithMethod(mask.MethodPolygon))
	if err != nil {
		t.Fatalf("GenerateMask failed: %v", err)
	}
	// the 10..20 micron square lands on pixels 5..10
	if n := imaging.CountForeground(res.Mask); n != 36 {
		t.Errorf("foreground: got %d, want 36", n)
	}
	if res.Mask.GrayAt(5, 5).Y != imaging.Foreground || res.Mask.GrayAt(10, 10).Y != imaging.Foreground {
		t.Error("corners (5,5) and (10,10) should be foreground")
	}
	if res.Mask.GrayAt(11, 11).Y != imaging.Background || res.Mask.GrayAt(15, 15).Y != imaging.Background {
		t.Error("pixels past (10,10) should be background")
	}
}

func TestXenium_FarOutBoundarySkipped(t *testing.T) {
	files := fullXeniumFiles()
	files["cell_boundaries.csv"] = xeniumSquare + "2,10,10\n2,4e12,10\n2,20,20\n"
	ds, err := NewXenium(newXeniumDir(t, files), nil)
	if err != nil {
		t.Fatalf("NewXenium failed: %v", err)
	}
	if n := ds.CellBoundaries().ValidCount(); n != 2 {
		t.Fatalf("valid polygons: got %d, want 2", n)
	}

	done := make(chan struct{})
	var res *mask.Result
	go func() {
		defer close(done)
		res, err = ds.GenerateMask(mask.DefaultOptions(nil))
	}()
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("GenerateMask did not finish with a far-out boundary vertex")
	}
	if err != nil {
		t.Fatalf("GenerateMask failed: %v", err)
	}

	if res.Method != mask.MethodPolygon || res.Polygons != 1 {
		t.Errorf("got method %s with %d polygons, want polygon with 1", res.Method, res.Polygons)
	}
	if n := imaging.CountForeground(res.Mask); n != 121 {
		t.Errorf("foreground: got %d, want 121", n)
	}
	warnings := ds.Warnings()
	if len(warnings) != 1 || !errors.Is(warnings[0], tables.ErrMalformedPolygon) {
		t.Errorf("warnings: got %v", warnings)
	}
}
