// Package scene flattens an imported node tree into draw-ready meshes and
// draws them.
//
// Loading walks the importer's node arena depth-first, composing
// world = parent * local, converts each referenced mesh into interleaved
// vertices and triangle indices, loads every distinct texture once, and
// grows a world-space bounding box used to fit the asset into a unit cube.
package scene

import (
	"fmt"
	"image"

	"github.com/go-gl/mathgl/mgl32"
)

// Vertex is the interleaved vertex layout uploaded to the GPU: position at
// byte 0, normal at 12 and texture coordinate at 24, 32 bytes in total.
type Vertex struct {
	Position mgl32.Vec3
	Normal   mgl32.Vec3
	TexCoord mgl32.Vec2
}

// VertexSize is the byte stride of Vertex.
const VertexSize = 32

// TextureKind is the semantic slot a texture fills in a material.
type TextureKind int

const (
	Diffuse TextureKind = iota
	Specular
)

// String returns the kind name.
func (k TextureKind) String() string {
	switch k {
	case Diffuse:
		return "diffuse"
	case Specular:
		return "specular"
	default:
		return fmt.Sprintf("TextureKind(%d)", int(k))
	}
}

// Uniform returns the sampler uniform for the n-th texture of this kind,
// e.g. textureDiffuse0.
func (k TextureKind) Uniform(n int) string {
	switch k {
	case Specular:
		return fmt.Sprintf("textureSpecular%d", n)
	default:
		return fmt.Sprintf("textureDiffuse%d", n)
	}
}

// Texture is one decoded image, shared by every mesh that references the
// same resolved path.
type Texture struct {
	Kind   TextureKind // kind of the first reference
	Path   string      // resolved path, or *N for an embedded image
	Width  int
	Height int

	// Image holds the pixels until they are uploaded. It stays set when
	// the asset was loaded without an Uploader.
	Image  *image.RGBA
	Handle TextureHandle
	// Err records why the texture could not be decoded or uploaded. A
	// failed texture stays registered so it is attempted only once.
	Err error
}

// TextureBinding attaches a texture to a mesh in a given slot.
type TextureBinding struct {
	Kind    TextureKind
	Texture *Texture
}

// Box is an axis-aligned bounding box.
type Box struct {
	Min, Max mgl32.Vec3
}

// Center returns the midpoint of the box.
func (b Box) Center() mgl32.Vec3 {
	return b.Min.Add(b.Max).Mul(0.5)
}

// Size returns the edge lengths of the box.
func (b Box) Size() mgl32.Vec3 {
	return b.Max.Sub(b.Min)
}

// Corners returns the eight corners of the box.
func (b Box) Corners() [8]mgl32.Vec3 {
	var c [8]mgl32.Vec3
	for i := range c {
		for axis := 0; axis < 3; axis++ {
			if i&(1<<axis) != 0 {
				c[i][axis] = b.Max[axis]
			} else {
				c[i][axis] = b.Min[axis]
			}
		}
	}
	return c
}

// extend grows the box to contain p.
func (b *Box) extend(p mgl32.Vec3) {
	for axis := 0; axis < 3; axis++ {
		b.Min[axis] = min(b.Min[axis], p[axis])
		b.Max[axis] = max(b.Max[axis], p[axis])
	}
}

// Mesh is a flattened, draw-ready mesh. Every index is below
// len(Vertices) and len(Indices) is a multiple of three.
type Mesh struct {
	Name     string
	Vertices []Vertex
	Indices  []uint32
	Textures []TextureBinding
	Bounds   Box // local space, before the world transform

	buffers MeshBuffers
}

// TriangleCount returns the number of triangles.
func (m *Mesh) TriangleCount() int {
	return len(m.Indices) / 3
}

// Stats summarizes an asset.
type Stats struct {
	Meshes         int
	Vertices       int
	Triangles      int
	Textures       int
	FailedTextures int
}

// Asset is one loaded model. Mesh and texture data do not change after
// loading; the user transform fields may be edited between draws.
type Asset struct {
	Path   string
	Dir    string // base directory for relative texture paths
	Format string

	Meshes []*Mesh
	// Transforms holds the world transform of Meshes[i] at index i.
	Transforms []mgl32.Mat4
	Textures   map[string]*Texture

	// Bounds is the world-space box over all meshes, or the zero box when
	// the asset has no geometry.
	Bounds Box
	// Normalization maps Bounds into a unit cube centered at the origin,
	// or is the identity when normalization is off.
	Normalization mgl32.Mat4

	Translation   mgl32.Vec3
	RotationAxis  mgl32.Vec3
	RotationAngle float32 // radians
	Scale         mgl32.Vec3
}

func newAsset(path, dir, format string) *Asset {
	return &Asset{
		Path:          path,
		Dir:           dir,
		Format:        format,
		Textures:      make(map[string]*Texture),
		Normalization: mgl32.Ident4(),
		RotationAxis:  mgl32.Vec3{0, 1, 0},
		Scale:         mgl32.Vec3{1, 1, 1},
	}
}

// UserTransform returns translate * rotate * scale from the user fields.
func (a *Asset) UserTransform() mgl32.Mat4 {
	m := mgl32.Translate3D(a.Translation.X(), a.Translation.Y(), a.Translation.Z())
	if a.RotationAngle != 0 && a.RotationAxis.Len() > 1e-6 {
		m = m.Mul4(mgl32.HomogRotate3D(a.RotationAngle, a.RotationAxis.Normalize()))
	}
	return m.Mul4(mgl32.Scale3D(a.Scale.X(), a.Scale.Y(), a.Scale.Z()))
}

// ModelMatrix returns userTransform * normalization * world for mesh i.
func (a *Asset) ModelMatrix(i int) mgl32.Mat4 {
	return a.UserTransform().Mul4(a.Normalization).Mul4(a.Transforms[i])
}

// Stats counts meshes, vertices, triangles and textures.
func (a *Asset) Stats() Stats {
	s := Stats{Meshes: len(a.Meshes), Textures: len(a.Textures)}
	for _, m := range a.Meshes {
		s.Vertices += len(m.Vertices)
		s.Triangles += m.TriangleCount()
	}
	for _, t := range a.Textures {
		if t.Err != nil {
			s.FailedTextures++
		}
	}
	return s
}

// Release deletes every GPU handle the asset owns. It is safe to call more
// than once. The asset must not be drawn afterwards.
func (a *Asset) Release() {
	if a == nil {
		return
	}
	for _, m := range a.Meshes {
		if m.buffers != nil {
			m.buffers.Delete()
			m.buffers = nil
		}
	}
	for _, t := range a.Textures {
		if t.Handle != nil {
			t.Handle.Delete()
			t.Handle = nil
		}
	}
}
