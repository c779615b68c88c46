package scene

import "image"

// Uploader moves mesh and texture data to the GPU.
type Uploader interface {
	UploadMesh(vertices []Vertex, indices []uint32) (MeshBuffers, error)
	UploadTexture(img *image.RGBA) (TextureHandle, error)
}

// MeshBuffers are the GPU buffers of one mesh.
type MeshBuffers interface {
	// Draw issues an indexed triangle draw over all indices.
	Draw()
	Delete()
}

// TextureHandle is an uploaded texture.
type TextureHandle interface {
	Bind(unit uint32)
	Delete()
}
