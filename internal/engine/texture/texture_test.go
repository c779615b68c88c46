package texture

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/bmp"
)

// tgaHeader returns an 18-byte TGA header for a width x height image.
func tgaHeader(imageType byte, width, height int, bpp byte, descriptor byte) []byte {
	h := make([]byte, 18)
	h[2] = imageType
	h[12], h[13] = byte(width), byte(width>>8)
	h[14], h[15] = byte(height), byte(height>>8)
	h[16] = bpp
	h[17] = descriptor
	return h
}

func TestDecodeTGA_Uncompressed(t *testing.T) {
	// 2x1, bottom-up, BGR order.
	data := tgaHeader(TGATypeUncompressed, 2, 1, 24, 0)
	data = append(data, 0, 0, 255, 255, 0, 0)

	img, err := DecodeTGA(data)
	require.NoError(t, err)
	rgba := img.(*image.RGBA)
	assert.Equal(t, color.RGBA{255, 0, 0, 255}, rgba.RGBAAt(0, 0))
	assert.Equal(t, color.RGBA{0, 0, 255, 255}, rgba.RGBAAt(1, 0))
}

func TestDecodeTGA_Orientation(t *testing.T) {
	top := []byte{0, 255, 0, 255}   // green, 32 bpp BGRA
	bottom := []byte{255, 0, 0, 128} // blue, half alpha

	bottomUp := append(tgaHeader(TGATypeUncompressed, 1, 2, 32, 0), append(append([]byte{}, bottom...), top...)...)
	img, err := DecodeTGA(bottomUp)
	require.NoError(t, err)
	assert.Equal(t, color.RGBA{0, 255, 0, 255}, img.(*image.RGBA).RGBAAt(0, 0))
	assert.Equal(t, color.RGBA{0, 0, 255, 128}, img.(*image.RGBA).RGBAAt(0, 1))

	topDown := append(tgaHeader(TGATypeUncompressed, 1, 2, 32, 0x20), append(append([]byte{}, top...), bottom...)...)
	img, err = DecodeTGA(topDown)
	require.NoError(t, err)
	assert.Equal(t, color.RGBA{0, 255, 0, 255}, img.(*image.RGBA).RGBAAt(0, 0))
}

func TestDecodeTGA_RLE(t *testing.T) {
	// 4x1 top-down: a run of 3 red pixels, then one raw white pixel.
	data := tgaHeader(TGATypeRLE, 4, 1, 24, 0x20)
	data = append(data, 0x82, 0, 0, 255)
	data = append(data, 0x00, 255, 255, 255)

	img, err := DecodeTGA(data)
	require.NoError(t, err)
	rgba := img.(*image.RGBA)
	for x := 0; x < 3; x++ {
		assert.Equal(t, color.RGBA{255, 0, 0, 255}, rgba.RGBAAt(x, 0), "pixel %d", x)
	}
	assert.Equal(t, color.RGBA{255, 255, 255, 255}, rgba.RGBAAt(3, 0))
}

func TestDecodeTGA_Errors(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"short header", []byte{0, 0, 2}},
		{"color mapped", func() []byte { h := tgaHeader(1, 1, 1, 8, 0); h[1] = 1; return h }()},
		{"grayscale", tgaHeader(3, 1, 1, 8, 0)},
		{"16 bpp", tgaHeader(TGATypeUncompressed, 1, 1, 16, 0)},
		{"truncated pixels", append(tgaHeader(TGATypeUncompressed, 2, 2, 24, 0), 1, 2, 3)},
		{"truncated run", append(tgaHeader(TGATypeRLE, 2, 1, 24, 0), 0x81, 1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeTGA(tt.data)
			assert.Error(t, err)
		})
	}
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func encodeBMP(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, bmp.Encode(&buf, img))
	return buf.Bytes()
}

func solid(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

func TestDetectFormat(t *testing.T) {
	pngData := encodePNG(t, solid(1, 1, color.RGBA{A: 255}))
	bmpData := encodeBMP(t, solid(1, 1, color.RGBA{A: 255}))

	tests := []struct {
		name     string
		data     []byte
		file     string
		mimeType string
		want     string
	}{
		{"mime wins", bmpData, "x.png", "image/jpeg", FormatJPEG},
		{"extension", nil, "tex/WALL.TGA", "", FormatTGA},
		{"sniff bmp", bmpData, "*0", "", FormatBMP},
		{"sniff png", pngData, "", "", FormatPNG},
		{"unknown defaults to png", []byte("garbage"), "*1", "", FormatPNG},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectFormat(tt.data, tt.file, tt.mimeType))
		})
	}
}

func TestDecode(t *testing.T) {
	red := color.RGBA{255, 0, 0, 255}

	img, format, err := Decode(encodeBMP(t, solid(2, 3, red)), "*0", "")
	require.NoError(t, err)
	assert.Equal(t, FormatBMP, format)
	assert.Equal(t, image.Rect(0, 0, 2, 3), img.Bounds())

	img, format, err = Decode(encodePNG(t, solid(4, 4, red)), "diffuse.png", "image/png")
	require.NoError(t, err)
	assert.Equal(t, FormatPNG, format)
	r, g, b, a := img.At(1, 1).RGBA()
	assert.Equal(t, [4]uint32{0xffff, 0, 0, 0xffff}, [4]uint32{r, g, b, a})

	_, _, err = Decode([]byte("not an image"), "broken.png", "")
	assert.ErrorContains(t, err, "broken.png")
}

func TestToRGBA_ColorKey(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	img.Set(0, 0, color.NRGBA{255, 0, 255, 255})
	img.Set(1, 0, color.NRGBA{10, 20, 30, 255})

	keyed := ToRGBA(img, true)
	assert.Equal(t, color.RGBA{}, keyed.RGBAAt(0, 0))
	assert.Equal(t, color.RGBA{10, 20, 30, 255}, keyed.RGBAAt(1, 0))

	plain := ToRGBA(img, false)
	assert.Equal(t, color.RGBA{255, 0, 255, 255}, plain.RGBAAt(0, 0))
}

func TestToRGBA_SubImageOrigin(t *testing.T) {
	src := solid(4, 4, color.RGBA{1, 2, 3, 255})
	sub := src.SubImage(image.Rect(2, 2, 4, 4))

	out := ToRGBA(sub, false)
	assert.Equal(t, image.Rect(0, 0, 2, 2), out.Bounds())
	assert.Equal(t, color.RGBA{1, 2, 3, 255}, out.RGBAAt(0, 0))
}

func TestIsMagentaKey(t *testing.T) {
	assert.True(t, IsMagentaKey(255, 0, 255))
	assert.True(t, IsMagentaKey(252, 8, 251))
	assert.False(t, IsMagentaKey(255, 20, 255))
	assert.False(t, IsMagentaKey(200, 0, 255))
}

func TestFit(t *testing.T) {
	img := solid(64, 16, color.RGBA{A: 255})

	assert.Same(t, img, Fit(img, 0).(*image.RGBA))
	assert.Same(t, img, Fit(img, 64).(*image.RGBA))

	small := Fit(img, 32)
	assert.Equal(t, 32, small.Bounds().Dx())
	assert.Equal(t, 8, small.Bounds().Dy())
}
