package imaging

import (
	"image"
	"testing"
)

func TestThreshold_Strict(t *testing.T) {
	img := newGray(4, 1, 0)
	img.Pix = []uint8{99, 100, 101, 255}

	mask := Threshold(img, 100)
	want := []uint8{0, 0, 255, 255}
	for i, v := range mask.Pix {
		if v != want[i] {
			t.Errorf("pixel %d: got %d, want %d", i, v, want[i])
		}
	}
}

func TestOtsuThreshold(t *testing.T) {
	tests := []struct {
		name string
		img  *image.Gray
		want int
	}{
		{"uniform", newGray(20, 20, 128), 0},
		{"empty", image.NewGray(image.Rect(0, 0, 0, 0)), 0},
		{"two levels", func() *image.Gray {
			img := newGray(20, 20, 50)
			fillRect(img, image.Rect(0, 10, 20, 20), 200)
			return img
		}(), 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := OtsuThreshold(tt.img); got != tt.want {
				t.Errorf("OtsuThreshold: got %d, want %d", got, tt.want)
			}
		})
	}
}

func TestBinarize_Methods(t *testing.T) {
	img := newGray(20, 20, 50)
	fillRect(img, image.Rect(0, 10, 20, 20), 200)

	t.Run("otsu", func(t *testing.T) {
		mask, err := Binarize(img, ThresholdOtsu, nil)
		if err != nil {
			t.Fatalf("Binarize failed: %v", err)
		}
		if got := CountForeground(mask); got != 200 {
			t.Errorf("foreground: got %d, want 200", got)
		}
	})

	t.Run("binary default", func(t *testing.T) {
		mask, err := Binarize(img, ThresholdBinary, nil)
		if err != nil {
			t.Fatalf("Binarize failed: %v", err)
		}
		if got := CountForeground(mask); got != 200 {
			t.Errorf("foreground: got %d, want 200", got)
		}
	})

	t.Run("binary explicit", func(t *testing.T) {
		th := 10
		mask, err := Binarize(img, ThresholdBinary, &th)
		if err != nil {
			t.Fatalf("Binarize failed: %v", err)
		}
		if got := CountForeground(mask); got != 400 {
			t.Errorf("foreground: got %d, want 400", got)
		}
	})

	t.Run("adaptive uniform", func(t *testing.T) {
		mask, err := Binarize(newGray(15, 15, 90), ThresholdAdaptive, nil)
		if err != nil {
			t.Fatalf("Binarize failed: %v", err)
		}
		if got := CountForeground(mask); got != 225 {
			t.Errorf("foreground: got %d, want 225", got)
		}
	})

	t.Run("unknown", func(t *testing.T) {
		if _, err := Binarize(img, "median", nil); err == nil {
			t.Error("expected error for unknown method")
		}
	})
}

func TestAdaptiveThreshold_DarkSpot(t *testing.T) {
	img := newGray(31, 31, 200)
	img.Pix[15*31+15] = 0

	mask := AdaptiveThreshold(img, DefaultAdaptiveBlockSize, DefaultAdaptiveC)
	if mask.Pix[15*31+15] != Background {
		t.Error("dark spot should be background")
	}
	if mask.Pix[0] != Foreground {
		t.Error("bright corner should be foreground")
	}
}
