package scene

import (
	"github.com/go-gl/mathgl/mgl32"
)

// Program is the shader interface Draw needs.
type Program interface {
	Activate()
	SetBool(name string, v bool)
	SetInt(name string, v int32)
	SetVec3(name string, v mgl32.Vec3)
	SetMat3(name string, m mgl32.Mat3)
	SetMat4(name string, m mgl32.Mat4)
}

// View supplies the camera uniforms.
type View interface {
	Position() mgl32.Vec3
	ViewProjection() mgl32.Mat4
}

// Draw renders every mesh of a with p. Per mesh it sets model and
// normalMatrix, binds the mesh's textures to consecutive units named
// textureDiffuseN and textureSpecularN with N counted per kind, and issues
// the indexed draw. Textures that failed to load are left unbound.
func Draw(a *Asset, p Program, v View) {
	if a == nil || p == nil || v == nil {
		return
	}

	p.Activate()
	p.SetMat4("camera", v.ViewProjection())
	p.SetVec3("cameraPosition", v.Position())

	base := a.UserTransform().Mul4(a.Normalization)
	for i, m := range a.Meshes {
		model := base.Mul4(a.Transforms[i])
		p.SetMat4("model", model)
		p.SetMat3("normalMatrix", NormalMatrix(model))

		var unit uint32
		var counts [2]int
		for _, b := range m.Textures {
			if b.Texture == nil || b.Texture.Handle == nil {
				continue
			}
			b.Texture.Handle.Bind(unit)
			p.SetInt(b.Kind.Uniform(counts[b.Kind]), int32(unit))
			counts[b.Kind]++
			unit++
		}
		p.SetBool("hasDiffuse", counts[Diffuse] > 0)
		p.SetBool("hasSpecular", counts[Specular] > 0)

		if m.buffers != nil {
			m.buffers.Draw()
		}
	}
}

// NormalMatrix returns transpose(inverse(upper3x3(model))). A singular
// matrix yields its upper 3x3 unchanged.
func NormalMatrix(model mgl32.Mat4) mgl32.Mat3 {
	m := model.Mat3()
	if det := m.Det(); det > -1e-12 && det < 1e-12 {
		return m
	}
	return m.Inv().Transpose()
}
