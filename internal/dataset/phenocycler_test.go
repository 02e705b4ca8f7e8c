package dataset

import (
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/ironsheep/tissue-mask-mcp/internal/imaging"
	"github.com/ironsheep/tissue-mask-mcp/internal/mask"
	"github.com/ironsheep/tissue-mask-mcp/internal/tiff"
)

func qptiffDesc(imageType, biomarker, extra string) string {
	bm := ""
	if biomarker != "" {
		bm = fmt.Sprintf("<Biomarker>%s</Biomarker>", biomarker)
	}
	return fmt.Sprintf("<?xml version=\"1.0\" encoding=\"utf-8\"?><PerkinElmer-QPI-ImageDescription><DescriptionVersion>2</DescriptionVersion><ImageType>%s</ImageType>%s%s</PerkinElmer-QPI-ImageDescription>",
		imageType, bm, extra)
}

const scanProfile = "<ScanProfile><ExperimentV4><Resolution_nm>497.7</Resolution_nm></ExperimentV4></ScanProfile>"

func TestPhenoCycler_ChannelPages(t *testing.T) {
	dir := t.TempDir()
	path := writeTIFF(t, dir, "scan.qptiff",
		tiff.WritePage{Plane: blockPlane(20, 5, 15, imaging.Depth16, 40000), Description: qptiffDesc("FullResolution", "DAPI", scanProfile)},
		tiff.WritePage{Plane: blockPlane(20, 0, 10, imaging.Depth16, 3000), Description: qptiffDesc("FullResolution", "CD8", "")},
		tiff.WritePage{Plane: blockPlane(20, 0, 0, imaging.Depth16, 0), Description: qptiffDesc("FullResolution", "", "")},
		tiff.WritePage{Plane: blockPlane(20, 0, 0, imaging.Depth8, 0), Description: qptiffDesc("Thumbnail", "", "")},
		tiff.WritePage{Plane: blockPlane(10, 0, 0, imaging.Depth16, 0), Description: qptiffDesc("FullResolution", "DAPI", "")},
	)

	ds, err := NewPhenoCycler(path, nil)
	if err != nil {
		t.Fatalf("NewPhenoCycler failed: %v", err)
	}

	want := []string{"DAPI", "CD8", "Channel_2"}
	got := ds.Channels()
	if len(got) != len(want) {
		t.Fatalf("channels: got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("channel %d: got %q, want %q", i, got[i], want[i])
		}
	}

	if math.Abs(ds.Resolution()-0.4977) > 1e-12 {
		t.Errorf("resolution: got %v, want 0.4977", ds.Resolution())
	}
	meta := ds.Metadata()
	if v, _ := meta.Get("resolution_nm"); v != 497.7 {
		t.Errorf("resolution_nm: got %v", v)
	}
	if v, _ := meta.Get("num_channels"); v != 3 {
		t.Errorf("num_channels: got %v", v)
	}
	bm, _ := meta.Get("biomarkers")
	if list, ok := bm.([]string); !ok || len(list) != 3 || list[1] != "CD8" {
		t.Errorf("biomarkers: got %#v", bm)
	}
	if _, err := ds.LoadImage(3); !errors.Is(err, ErrChannelOutOfRange) {
		t.Errorf("thumbnail page should not be a channel: %v", err)
	}

	res, err := ds.GenerateMask(mask.DefaultOptions(nil))
	if err != nil {
		t.Fatalf("GenerateMask failed: %v", err)
	}
	if res.Method != mask.MethodIntensity {
		t.Errorf("auto method: got %s, want intensity", res.Method)
	}
	if n := imaging.CountForeground(res.Mask); n != 100 {
		t.Errorf("foreground: got %d, want 100", n)
	}

	opts := mask.DefaultOptions(nil)
	opts.Channel = 1
	opts.Method = mask.MethodIntensity
	opts.Threshold = intPtr(5)
	res, err = ds.GenerateMask(opts)
	if err != nil {
		t.Fatalf("GenerateMask channel 1 failed: %v", err)
	}
	// 3000/256 = 11 > 5
	if n := imaging.CountForeground(res.Mask); n != 100 {
		t.Errorf("channel 1 foreground: got %d, want 100", n)
	}

	if _, err := ds.GenerateMask(opts.WithMethod(mask.MethodPolygon)); !errors.Is(err, mask.ErrUnsupportedMethod) {
		t.Errorf("polygon: got %v, want ErrUnsupportedMethod", err)
	}
}

func TestPhenoCycler_MalformedDescription(t *testing.T) {
	dir := t.TempDir()
	path := writeTIFF(t, dir, "scan.qptif",
		tiff.WritePage{Plane: blockPlane(8, 0, 0, imaging.Depth16, 0), Description: qptiffDesc("FullResolution", "DAPI", "")},
		tiff.WritePage{Plane: blockPlane(8, 0, 0, imaging.Depth16, 0), Description: "<PerkinElmer-QPI-ImageDescription><Biomarker>CD4"},
	)
	ds, err := NewPhenoCycler(path, nil)
	if err != nil {
		t.Fatalf("NewPhenoCycler failed: %v", err)
	}
	got := ds.Channels()
	if len(got) != 2 || got[0] != "DAPI" || got[1] != "Channel_1" {
		t.Errorf("channels: got %v", got)
	}
	warnings := ds.Warnings()
	if len(warnings) != 1 || !errors.Is(warnings[0], ErrMetadataParse) {
		t.Errorf("warnings: got %v", warnings)
	}
	if ds.Resolution() != 1.0 || ds.ResolutionNM() != 1000 {
		t.Errorf("default resolution: got %v um, %v nm", ds.Resolution(), ds.ResolutionNM())
	}
}

func TestPhenoCycler_ResolutionFromTags(t *testing.T) {
	dir := t.TempDir()
	path := writeTIFF(t, dir, "scan.qptiff",
		tiff.WritePage{Plane: blockPlane(8, 0, 0, imaging.Depth16, 0), Description: qptiffDesc("FullResolution", "DAPI", ""), Resolution: 25400},
	)
	ds, err := NewPhenoCycler(path, nil)
	if err != nil {
		t.Fatalf("NewPhenoCycler failed: %v", err)
	}
	if ds.Resolution() != 1.0 {
		t.Errorf("resolution: got %v, want 1.0", ds.Resolution())
	}
}
