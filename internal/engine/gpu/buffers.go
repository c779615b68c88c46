// Package gpu wraps OpenGL buffer and texture objects. Every call needs a
// current GL 4.1 core context on the calling thread.
package gpu

import (
	"errors"
	"unsafe"

	"github.com/go-gl/gl/v4.1-core/gl"

	"github.com/Faultbox/meshview/internal/scene"
)

// ErrEmptyMesh is returned when a mesh has no vertices or no indices.
var ErrEmptyMesh = errors.New("mesh has no geometry")

// VertexBuffer holds vertex data in an ARRAY_BUFFER.
type VertexBuffer struct {
	id uint32
}

// NewVertexBuffer uploads vertices with STATIC_DRAW usage.
func NewVertexBuffer(vertices []scene.Vertex) *VertexBuffer {
	b := &VertexBuffer{}
	gl.GenBuffers(1, &b.id)
	gl.BindBuffer(gl.ARRAY_BUFFER, b.id)
	gl.BufferData(gl.ARRAY_BUFFER, len(vertices)*scene.VertexSize, unsafe.Pointer(&vertices[0]), gl.STATIC_DRAW)
	return b
}

func (b *VertexBuffer) Bind()   { gl.BindBuffer(gl.ARRAY_BUFFER, b.id) }
func (b *VertexBuffer) Unbind() { gl.BindBuffer(gl.ARRAY_BUFFER, 0) }

// Delete releases the buffer. Further calls do nothing.
func (b *VertexBuffer) Delete() {
	if b.id != 0 {
		gl.DeleteBuffers(1, &b.id)
		b.id = 0
	}
}

// IndexBuffer holds uint32 indices in an ELEMENT_ARRAY_BUFFER.
type IndexBuffer struct {
	id    uint32
	count int32
}

// NewIndexBuffer uploads indices. The buffer binds into whichever vertex
// array is bound at the time.
func NewIndexBuffer(indices []uint32) *IndexBuffer {
	b := &IndexBuffer{count: int32(len(indices))}
	gl.GenBuffers(1, &b.id)
	gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, b.id)
	gl.BufferData(gl.ELEMENT_ARRAY_BUFFER, len(indices)*4, unsafe.Pointer(&indices[0]), gl.STATIC_DRAW)
	return b
}

// Count returns the number of indices.
func (b *IndexBuffer) Count() int32 { return b.count }

func (b *IndexBuffer) Bind()   { gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, b.id) }
func (b *IndexBuffer) Unbind() { gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, 0) }

// Delete releases the buffer. Further calls do nothing.
func (b *IndexBuffer) Delete() {
	if b.id != 0 {
		gl.DeleteBuffers(1, &b.id)
		b.id = 0
	}
}

// VertexArray records the attribute layout of a vertex buffer.
type VertexArray struct {
	id uint32
}

// NewVertexArray creates and binds a vertex array.
func NewVertexArray() *VertexArray {
	va := &VertexArray{}
	gl.GenVertexArrays(1, &va.id)
	gl.BindVertexArray(va.id)
	return va
}

func (va *VertexArray) Bind()   { gl.BindVertexArray(va.id) }
func (va *VertexArray) Unbind() { gl.BindVertexArray(0) }

// Attribute points slot at components floats starting at offset bytes into
// each stride-byte vertex of vb.
func (va *VertexArray) Attribute(vb *VertexBuffer, slot uint32, components int32, stride int32, offset uintptr) {
	va.Bind()
	vb.Bind()
	gl.VertexAttribPointerWithOffset(slot, components, gl.FLOAT, false, stride, offset)
	gl.EnableVertexAttribArray(slot)
}

// Delete releases the vertex array. Further calls do nothing.
func (va *VertexArray) Delete() {
	if va.id != 0 {
		gl.DeleteVertexArrays(1, &va.id)
		va.id = 0
	}
}

// Mesh is a vertex array with its vertex and index buffers. It implements
// scene.MeshBuffers.
type Mesh struct {
	vao *VertexArray
	vbo *VertexBuffer
	ebo *IndexBuffer
}

// NewMesh uploads vertices and indices using the scene.Vertex layout:
// slot 0 position, slot 1 normal, slot 2 texture coordinate.
func NewMesh(vertices []scene.Vertex, indices []uint32) (*Mesh, error) {
	if len(vertices) == 0 || len(indices) == 0 {
		return nil, ErrEmptyMesh
	}

	m := &Mesh{vao: NewVertexArray()}
	m.vbo = NewVertexBuffer(vertices)
	m.vao.Attribute(m.vbo, 0, 3, scene.VertexSize, 0)
	m.vao.Attribute(m.vbo, 1, 3, scene.VertexSize, 12)
	m.vao.Attribute(m.vbo, 2, 2, scene.VertexSize, 24)
	m.ebo = NewIndexBuffer(indices)
	m.vao.Unbind()
	return m, nil
}

// Draw issues an indexed triangle draw.
func (m *Mesh) Draw() {
	m.vao.Bind()
	gl.DrawElements(gl.TRIANGLES, m.ebo.Count(), gl.UNSIGNED_INT, nil)
	m.vao.Unbind()
}

// Delete releases all three objects.
func (m *Mesh) Delete() {
	m.ebo.Delete()
	m.vbo.Delete()
	m.vao.Delete()
}
