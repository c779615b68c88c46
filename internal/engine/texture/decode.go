package texture

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"image/png"
	"path/filepath"
	"strings"

	"github.com/h2non/filetype"
	"github.com/nfnt/resize"
	"golang.org/x/image/bmp"
	"golang.org/x/image/webp"
)

// Format names returned by Decode.
const (
	FormatPNG  = "png"
	FormatJPEG = "jpeg"
	FormatBMP  = "bmp"
	FormatWebP = "webp"
	FormatTGA  = "tga"
)

var mimeFormats = map[string]string{
	"image/png":   FormatPNG,
	"image/jpeg":  FormatJPEG,
	"image/jpg":   FormatJPEG,
	"image/bmp":   FormatBMP,
	"image/x-bmp": FormatBMP,
	"image/webp":  FormatWebP,
	"image/tga":   FormatTGA,
	"image/x-tga": FormatTGA,
}

var extFormats = map[string]string{
	".png":  FormatPNG,
	".jpg":  FormatJPEG,
	".jpeg": FormatJPEG,
	".bmp":  FormatBMP,
	".webp": FormatWebP,
	".tga":  FormatTGA,
}

// DetectFormat picks a decoder for data. The MIME type reported by the
// container wins, then the file extension, then the content signature.
// Data nothing recognizes is assumed to be PNG.
func DetectFormat(data []byte, name, mimeType string) string {
	if f, ok := mimeFormats[strings.ToLower(mimeType)]; ok {
		return f
	}
	if f, ok := extFormats[strings.ToLower(filepath.Ext(name))]; ok {
		return f
	}
	if kind, err := filetype.Image(data); err == nil {
		if f, ok := mimeFormats[kind.MIME.Value]; ok {
			return f
		}
	}
	return FormatPNG
}

// Decode decodes an image and reports which format was used.
func Decode(data []byte, name, mimeType string) (image.Image, string, error) {
	format := DetectFormat(data, name, mimeType)

	var (
		img image.Image
		err error
	)
	r := bytes.NewReader(data)
	switch format {
	case FormatJPEG:
		img, err = jpeg.Decode(r)
	case FormatBMP:
		img, err = bmp.Decode(r)
	case FormatWebP:
		img, err = webp.Decode(r)
	case FormatTGA:
		img, err = DecodeTGA(data)
	default:
		img, err = png.Decode(r)
	}
	if err != nil {
		return nil, format, fmt.Errorf("decoding %s as %s: %w", name, format, err)
	}
	return img, format, nil
}

// IsMagentaKey reports whether a color is the legacy magenta transparency
// key. The tolerance absorbs lossy BMP exports.
func IsMagentaKey(r, g, b uint8) bool {
	return r >= 250 && g <= 10 && b >= 250
}

// ToRGBA converts img to RGBA. With colorKey set, magenta pixels become
// transparent black so filtering does not bleed pink into edges.
func ToRGBA(img image.Image, colorKey bool) *image.RGBA {
	rgba, ok := img.(*image.RGBA)
	if !ok || rgba.Bounds().Min != (image.Point{}) {
		b := img.Bounds()
		rgba = image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
		draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)
	}
	if !colorKey {
		return rgba
	}

	transparent := color.RGBA{}
	b := rgba.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			i := rgba.PixOffset(x, y)
			if IsMagentaKey(rgba.Pix[i], rgba.Pix[i+1], rgba.Pix[i+2]) {
				rgba.SetRGBA(x, y, transparent)
			}
		}
	}
	return rgba
}

// Fit scales img down so neither side exceeds maxSize, keeping the aspect
// ratio. Images that already fit, and a maxSize of 0, return img as-is.
func Fit(img image.Image, maxSize int) image.Image {
	b := img.Bounds()
	if maxSize <= 0 || (b.Dx() <= maxSize && b.Dy() <= maxSize) {
		return img
	}
	return resize.Thumbnail(uint(maxSize), uint(maxSize), img, resize.Lanczos3)
}
