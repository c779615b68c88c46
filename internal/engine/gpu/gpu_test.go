package gpu

import (
	"image"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"

	"github.com/Faultbox/meshview/internal/scene"
)

var (
	_ scene.Uploader      = Uploader{}
	_ scene.MeshBuffers   = (*Mesh)(nil)
	_ scene.TextureHandle = (*Texture)(nil)
)

func TestVertexLayout(t *testing.T) {
	var v scene.Vertex
	assert.Equal(t, uintptr(scene.VertexSize), unsafe.Sizeof(v))
	assert.Equal(t, uintptr(12), unsafe.Offsetof(v.Normal))
	assert.Equal(t, uintptr(24), unsafe.Offsetof(v.TexCoord))
}

// The paths below never reach GL.

func TestUploaderEmptyInputs(t *testing.T) {
	m, err := Uploader{}.UploadMesh(nil, nil)
	assert.NoError(t, err)
	m.Draw()
	m.Delete()

	_, err = Uploader{}.UploadTexture(nil)
	assert.ErrorIs(t, err, ErrEmptyImage)
	_, err = Uploader{}.UploadTexture(image.NewRGBA(image.Rect(0, 0, 0, 0)))
	assert.ErrorIs(t, err, ErrEmptyImage)

	_, err = NewMesh([]scene.Vertex{{}}, nil)
	assert.ErrorIs(t, err, ErrEmptyMesh)
}
