// Package lighting holds the directional light fed to the default shader.
package lighting

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// Uniforms is the subset of a shader program the light writes to.
type Uniforms interface {
	SetBool(name string, v bool)
	SetFloat(name string, v float32)
	SetVec3(name string, v mgl32.Vec3)
}

// Directional is a light infinitely far away along Direction.
type Directional struct {
	Direction mgl32.Vec3 // toward the light
	Color     mgl32.Vec3
	Ambient   float32
	Diffuse   float32
	Specular  float32
	Shininess float32
	Enabled   bool
}

// Default returns a white light shining from the viewer's side.
func Default() Directional {
	return Directional{
		Direction: mgl32.Vec3{0, 0, 1},
		Color:     mgl32.Vec3{1, 1, 1},
		Ambient:   0.6,
		Diffuse:   1.0,
		Specular:  0.8,
		Shininess: 4,
		Enabled:   true,
	}
}

// Apply writes the light uniforms. A zero direction is sent as +Z.
func (d Directional) Apply(u Uniforms) {
	dir := d.Direction
	if dir.Len() < 1e-6 {
		dir = mgl32.Vec3{0, 0, 1}
	}
	u.SetBool("lighting", d.Enabled)
	u.SetVec3("light.direction", dir.Normalize())
	u.SetVec3("light.color", d.Color)
	u.SetFloat("light.ambient", d.Ambient)
	u.SetFloat("light.diffuse", d.Diffuse)
	u.SetFloat("light.specular", d.Specular)
	u.SetFloat("shininess", d.Shininess)
}

// SunDirection converts an azimuth around Y and an elevation above the
// horizon, both in degrees, to a unit vector toward the light.
func SunDirection(azimuth, elevation float32) mgl32.Vec3 {
	sa, ca := math32.Sincos(mgl32.DegToRad(azimuth))
	se, ce := math32.Sincos(mgl32.DegToRad(elevation))
	return mgl32.Vec3{ce * sa, se, ce * ca}
}

// Angles is the inverse of SunDirection.
func Angles(dir mgl32.Vec3) (azimuth, elevation float32) {
	if dir.Len() < 1e-6 {
		return 0, 0
	}
	dir = dir.Normalize()
	azimuth = mgl32.RadToDeg(math32.Atan2(dir.X(), dir.Z()))
	elevation = mgl32.RadToDeg(math32.Asin(mgl32.Clamp(dir.Y(), -1, 1)))
	return azimuth, elevation
}
