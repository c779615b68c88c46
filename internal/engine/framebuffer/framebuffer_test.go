package framebuffer

import (
	"image/color"
	"testing"
)

func TestFlipRows(t *testing.T) {
	// 1x3, bottom row first as glReadPixels returns it.
	pixels := []byte{
		1, 0, 0, 255,
		2, 0, 0, 255,
		3, 0, 0, 255,
	}
	img := FlipRows(pixels, 1, 3)

	for y, want := range []uint8{3, 2, 1} {
		if got := img.RGBAAt(0, y); got != (color.RGBA{want, 0, 0, 255}) {
			t.Errorf("row %d = %v, want red %d", y, got, want)
		}
	}
}

func TestClampSize(t *testing.T) {
	for in, want := range map[int]int32{-5: 1, 0: 1, 1: 1, 640: 640} {
		if got := clampSize(in); got != want {
			t.Errorf("clampSize(%d) = %d, want %d", in, got, want)
		}
	}
}
