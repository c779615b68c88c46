// Package debug draws visual aids over the viewport.
package debug

import (
	"unsafe"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/meshview/internal/engine/shader"
	"github.com/Faultbox/meshview/internal/scene"
)

// BoxLineVertexCount is the number of line endpoints for a box (12 edges).
const BoxLineVertexCount = 24

// BoxLines returns the 12 edges of b as pairs of line endpoints, three
// floats per endpoint.
func BoxLines(b scene.Box) []float32 {
	lo, hi := b.Min, b.Max
	return []float32{
		// Bottom
		lo[0], lo[1], lo[2], hi[0], lo[1], lo[2],
		hi[0], lo[1], lo[2], hi[0], lo[1], hi[2],
		hi[0], lo[1], hi[2], lo[0], lo[1], hi[2],
		lo[0], lo[1], hi[2], lo[0], lo[1], lo[2],
		// Top
		lo[0], hi[1], lo[2], hi[0], hi[1], lo[2],
		hi[0], hi[1], lo[2], hi[0], hi[1], hi[2],
		hi[0], hi[1], hi[2], lo[0], hi[1], hi[2],
		lo[0], hi[1], hi[2], lo[0], hi[1], lo[2],
		// Verticals
		lo[0], lo[1], lo[2], lo[0], hi[1], lo[2],
		hi[0], lo[1], lo[2], hi[0], hi[1], lo[2],
		hi[0], lo[1], hi[2], hi[0], hi[1], hi[2],
		lo[0], lo[1], hi[2], lo[0], hi[1], hi[2],
	}
}

// BoundsRenderer draws an asset's bounding box as a wireframe.
type BoundsRenderer struct {
	program *shader.Program
	vao     uint32
	vbo     uint32
	Color   mgl32.Vec3
}

// NewBoundsRenderer compiles the line shader and allocates the buffer.
func NewBoundsRenderer() (*BoundsRenderer, error) {
	p, err := shader.NewBuiltin("bounds")
	if err != nil {
		return nil, err
	}
	r := &BoundsRenderer{program: p, Color: mgl32.Vec3{1, 1, 0}}

	gl.GenVertexArrays(1, &r.vao)
	gl.BindVertexArray(r.vao)
	gl.GenBuffers(1, &r.vbo)
	gl.BindBuffer(gl.ARRAY_BUFFER, r.vbo)
	gl.BufferData(gl.ARRAY_BUFFER, BoxLineVertexCount*3*4, nil, gl.DYNAMIC_DRAW)
	gl.VertexAttribPointerWithOffset(0, 3, gl.FLOAT, false, 3*4, 0)
	gl.EnableVertexAttribArray(0)
	gl.BindVertexArray(0)
	return r, nil
}

// Draw outlines a.Bounds with the same user and normalization transforms
// the meshes get.
func (r *BoundsRenderer) Draw(a *scene.Asset, view scene.View) {
	if a == nil || len(a.Meshes) == 0 {
		return
	}
	r.DrawBox(a.Bounds, a.UserTransform().Mul4(a.Normalization), r.Color, view)
}

// DrawBox outlines b transformed by model.
func (r *BoundsRenderer) DrawBox(b scene.Box, model mgl32.Mat4, color mgl32.Vec3, view scene.View) {
	lines := BoxLines(b)

	r.program.Activate()
	r.program.SetMat4("camera", view.ViewProjection())
	r.program.SetMat4("model", model)
	r.program.SetVec3("color", color)

	gl.BindVertexArray(r.vao)
	gl.BindBuffer(gl.ARRAY_BUFFER, r.vbo)
	gl.BufferSubData(gl.ARRAY_BUFFER, 0, len(lines)*4, unsafe.Pointer(&lines[0]))
	gl.DrawArrays(gl.LINES, 0, BoxLineVertexCount)
	gl.BindVertexArray(0)
}

// Destroy releases the GL objects.
func (r *BoundsRenderer) Destroy() {
	r.program.Delete()
	gl.DeleteBuffers(1, &r.vbo)
	gl.DeleteVertexArrays(1, &r.vao)
}
