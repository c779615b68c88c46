package gpu

import (
	"errors"
	"image"

	"github.com/Faultbox/meshview/internal/scene"
)

// ErrEmptyImage is returned for a texture with no pixels.
var ErrEmptyImage = errors.New("image has no pixels")

// Uploader creates GL objects for scene.LoadWithOptions.
type Uploader struct{}

// UploadMesh implements scene.Uploader.
func (Uploader) UploadMesh(vertices []scene.Vertex, indices []uint32) (scene.MeshBuffers, error) {
	if len(indices) == 0 {
		return emptyMesh{}, nil
	}
	m, err := NewMesh(vertices, indices)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// UploadTexture implements scene.Uploader.
func (Uploader) UploadTexture(img *image.RGBA) (scene.TextureHandle, error) {
	if img == nil || len(img.Pix) == 0 {
		return nil, ErrEmptyImage
	}
	return NewTexture(img), nil
}

// emptyMesh stands in for a mesh without triangles, which has nothing to
// draw but must not fail the load.
type emptyMesh struct{}

func (emptyMesh) Draw()   {}
func (emptyMesh) Delete() {}
