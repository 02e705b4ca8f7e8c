package dataset

import (
	"errors"
	"reflect"
	"testing"

	"github.com/ironsheep/tissue-mask-mcp/internal/imaging"
	"github.com/ironsheep/tissue-mask-mcp/internal/tiff"
)

func TestParseModality(t *testing.T) {
	tests := []struct {
		in      string
		want    Modality
		wantErr bool
	}{
		{"visium", Visium, false},
		{"XENIUM", Xenium, false},
		{" PhenoCycler ", PhenoCycler, false},
		{"ometiff", OMETiff, false},
		{"cosmx", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		got, err := ParseModality(tt.in)
		if tt.wantErr {
			if !errors.Is(err, ErrUnsupportedFormat) {
				t.Errorf("ParseModality(%q): got %v, want ErrUnsupportedFormat", tt.in, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("ParseModality(%q) = %q, %v; want %q", tt.in, got, err, tt.want)
		}
	}
}

func TestUniqueChannels(t *testing.T) {
	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{"distinct", []string{"DAPI", "CD3"}, []string{"DAPI", "CD3"}},
		{"empty names", []string{"", " ", "CD3"}, []string{"Channel_0", "Channel_1", "CD3"}},
		{"duplicates", []string{"DAPI", "DAPI", "DAPI"}, []string{"DAPI", "Channel_1", "Channel_2"}},
		{"placeholder collision", []string{"Channel_1", ""}, []string{"Channel_1", "Channel_1_dup"}},
		{"none", []string{}, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := uniqueChannels(tt.in); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMetadataSnapshot(t *testing.T) {
	dir := t.TempDir()
	path := writeTIFF(t, dir, "image.ome.tif",
		tiff.WritePage{Plane: blockPlane(8, 0, 0, imaging.Depth8, 0), Description: "<Name>DAPI</Name>"},
	)
	ds, err := NewOMETiff(path, nil)
	if err != nil {
		t.Fatalf("NewOMETiff failed: %v", err)
	}

	snap := ds.Metadata()
	snap.Set("height", 999)
	snap.Set("extra", true)
	if v, _ := ds.Metadata().Get("height"); v != 8 {
		t.Errorf("mutating a snapshot changed the dataset: height %v", v)
	}
	if _, ok := ds.Metadata().Get("extra"); ok {
		t.Error("mutating a snapshot added a key to the dataset")
	}

	ch := ds.Channels()
	ch[0] = "changed"
	if ds.Channels()[0] != "DAPI" {
		t.Error("Channels should return a copy")
	}
}

func TestImageShape(t *testing.T) {
	dir := t.TempDir()
	p := imaging.NewPlane(12, 7, imaging.Depth16, 1)
	path := writeTIFF(t, dir, "image.tif", tiff.WritePage{Plane: p})
	ds, err := NewOMETiff(path, nil)
	if err != nil {
		t.Fatalf("NewOMETiff failed: %v", err)
	}
	h, w, dtype, err := ImageShape(ds)
	if err != nil {
		t.Fatalf("ImageShape failed: %v", err)
	}
	if h != 7 || w != 12 || dtype != "uint16" {
		t.Errorf("got %d x %d %s, want 7 x 12 uint16", h, w, dtype)
	}

	if _, err := ds.LoadImage(1); !errors.Is(err, ErrChannelOutOfRange) {
		t.Errorf("LoadImage(1): got %v, want ErrChannelOutOfRange", err)
	}
	if _, err := ds.LoadImage(-1); !errors.Is(err, ErrChannelOutOfRange) {
		t.Errorf("LoadImage(-1): got %v, want ErrChannelOutOfRange", err)
	}
}
