// Package texture decodes raster images for upload as GPU textures.
package texture

import (
	"errors"
	"fmt"
	"image"
	"image/color"
)

// TGA image type constants.
const (
	TGATypeUncompressed = 2
	TGATypeRLE          = 10
)

// ErrTGATruncated means the pixel data ends before the image is complete.
var ErrTGATruncated = errors.New("TGA data truncated")

// DecodeTGA decodes uncompressed (type 2) and RLE (type 10) true-color TGA
// images with 24 or 32 bits per pixel.
func DecodeTGA(data []byte) (image.Image, error) {
	if len(data) < 18 {
		return nil, ErrTGATruncated
	}

	idLength := int(data[0])
	colorMapType := data[1]
	imageType := data[2]
	width := int(data[12]) | int(data[13])<<8
	height := int(data[14]) | int(data[15])<<8
	bpp := int(data[16])
	topToBottom := data[17]&0x20 != 0

	if colorMapType != 0 {
		return nil, fmt.Errorf("color-mapped TGA not supported")
	}
	if imageType != TGATypeUncompressed && imageType != TGATypeRLE {
		return nil, fmt.Errorf("unsupported TGA type %d", imageType)
	}
	if bpp != 24 && bpp != 32 {
		return nil, fmt.Errorf("unsupported TGA bit depth %d", bpp)
	}
	if 18+idLength > len(data) {
		return nil, ErrTGATruncated
	}

	src := data[18+idLength:]
	bytesPerPixel := bpp / 8
	img := image.NewRGBA(image.Rect(0, 0, width, height))

	pixel := func(p []byte) color.RGBA {
		c := color.RGBA{R: p[2], G: p[1], B: p[0], A: 255}
		if bytesPerPixel == 4 {
			c.A = p[3]
		}
		return c
	}
	// TGA rows run bottom-up unless the descriptor says otherwise.
	put := func(i int, c color.RGBA) {
		x, y := i%width, i/width
		if !topToBottom {
			y = height - 1 - y
		}
		img.SetRGBA(x, y, c)
	}

	total := width * height
	if imageType == TGATypeUncompressed {
		if len(src) < total*bytesPerPixel {
			return nil, ErrTGATruncated
		}
		for i := 0; i < total; i++ {
			put(i, pixel(src[i*bytesPerPixel:]))
		}
		return img, nil
	}

	i, pos := 0, 0
	for i < total {
		if pos >= len(src) {
			return nil, ErrTGATruncated
		}
		header := src[pos]
		pos++
		count := int(header&0x7F) + 1

		if header&0x80 != 0 {
			if pos+bytesPerPixel > len(src) {
				return nil, ErrTGATruncated
			}
			c := pixel(src[pos:])
			pos += bytesPerPixel
			for n := 0; n < count && i < total; n++ {
				put(i, c)
				i++
			}
			continue
		}

		for n := 0; n < count && i < total; n++ {
			if pos+bytesPerPixel > len(src) {
				return nil, ErrTGATruncated
			}
			put(i, pixel(src[pos:]))
			pos += bytesPerPixel
			i++
		}
	}
	return img, nil
}
