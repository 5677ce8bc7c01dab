package display

import "testing"

func TestBlankImageIsAllZeroAndCorrectlySized(t *testing.T) {
	img := blankImage()
	bounds := img.Bounds()
	if bounds.Dx() != 128 || bounds.Dy() != 64 {
		t.Fatalf("blankImage size = %dx%d, want 128x64", bounds.Dx(), bounds.Dy())
	}
	for i, b := range img.Pix {
		if b != 0 {
			t.Fatalf("blankImage byte %d = 0x%02X, want 0 (all pixels off)", i, b)
		}
	}
}
