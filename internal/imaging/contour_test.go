package imaging

import (
	"image"
	"testing"
)

func TestFindComponents(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 100, 100))
	fillRect(img, image.Rect(30, 30, 70, 70), Foreground)
	fillRect(img, image.Rect(2, 2, 5, 5), Foreground)
	img.Pix[90*100+90] = Foreground

	comps, labels := FindComponents(img)
	if len(comps) != 3 {
		t.Fatalf("components: got %d, want 3", len(comps))
	}
	if len(labels) != 100*100 {
		t.Errorf("labels: got %d entries, want %d", len(labels), 100*100)
	}

	tests := []struct {
		pixels int
		area   float64
		start  Point
	}{
		{9, 4, Point{2, 2}},
		{1600, 1521, Point{30, 30}},
		{1, 0, Point{90, 90}},
	}
	for i, tt := range tests {
		c := comps[i]
		if c.Label != i+1 {
			t.Errorf("component %d label: got %d", i, c.Label)
		}
		if c.Pixels != tt.pixels {
			t.Errorf("component %d pixels: got %d, want %d", i, c.Pixels, tt.pixels)
		}
		if c.Area != tt.area {
			t.Errorf("component %d area: got %v, want %v", i, c.Area, tt.area)
		}
		if c.Contour[0] != tt.start {
			t.Errorf("component %d contour start: got %v, want %v", i, c.Contour[0], tt.start)
		}
	}

	if got := len(comps[1].Contour); got != 156 {
		t.Errorf("square contour length: got %d, want 156", got)
	}
}

func TestFindComponents_DiagonalConnectivity(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 5, 5))
	for i := 0; i < 5; i++ {
		img.Pix[i*5+i] = Foreground
	}
	comps, _ := FindComponents(img)
	if len(comps) != 1 {
		t.Errorf("components: got %d, want 1", len(comps))
	}
}

func TestContourFill_AreaRange(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 100, 100))
	fillRect(img, image.Rect(30, 30, 70, 70), Foreground)
	fillRect(img, image.Rect(2, 2, 5, 5), Foreground)

	filled, kept := ContourFill(img, 100, 1e6)
	if len(kept) != 1 {
		t.Fatalf("kept: got %d, want 1", len(kept))
	}
	if got := CountForeground(filled); got != 1600 {
		t.Errorf("foreground: got %d, want 1600", got)
	}

	// inclusive bounds
	_, kept = ContourFill(img, 4, 4)
	if len(kept) != 1 || kept[0].Area != 4 {
		t.Errorf("inclusive range: got %+v", kept)
	}
}

func TestFillHoles(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 20, 20))
	fillRect(img, image.Rect(5, 5, 15, 15), Foreground)
	fillRect(img, image.Rect(8, 8, 12, 12), Background)

	filled := FillHoles(img)
	if got := CountForeground(filled); got != 100 {
		t.Errorf("foreground: got %d, want 100", got)
	}

	// a notch open to the border is not a hole
	open := image.NewGray(image.Rect(0, 0, 10, 10))
	fillRect(open, image.Rect(0, 0, 10, 10), Foreground)
	fillRect(open, image.Rect(4, 0, 6, 5), Background)
	if got := CountForeground(FillHoles(open)); got != 90 {
		t.Errorf("notch foreground: got %d, want 90", got)
	}
}
