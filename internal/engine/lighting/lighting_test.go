package lighting

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
)

type uniforms map[string]any

func (u uniforms) SetBool(name string, v bool)       { u[name] = v }
func (u uniforms) SetFloat(name string, v float32)   { u[name] = v }
func (u uniforms) SetVec3(name string, v mgl32.Vec3) { u[name] = v }

func TestApply(t *testing.T) {
	u := uniforms{}
	d := Default()
	d.Direction = mgl32.Vec3{0, 0, 5}
	d.Apply(u)

	assert.Equal(t, true, u["lighting"])
	assert.Equal(t, mgl32.Vec3{0, 0, 1}, u["light.direction"])
	assert.Equal(t, float32(0.6), u["light.ambient"])
	assert.Equal(t, float32(0.8), u["light.specular"])
	assert.Equal(t, float32(4), u["shininess"])

	d.Direction = mgl32.Vec3{}
	d.Apply(u)
	assert.Equal(t, mgl32.Vec3{0, 0, 1}, u["light.direction"])
}

func TestSunDirection(t *testing.T) {
	tests := []struct {
		azimuth, elevation float32
		want               mgl32.Vec3
	}{
		{0, 0, mgl32.Vec3{0, 0, 1}},
		{90, 0, mgl32.Vec3{1, 0, 0}},
		{0, 90, mgl32.Vec3{0, 1, 0}},
	}
	for _, tt := range tests {
		got := SunDirection(tt.azimuth, tt.elevation)
		for i := range tt.want {
			assert.InDelta(t, tt.want[i], got[i], 1e-5, "SunDirection(%v, %v) = %v", tt.azimuth, tt.elevation, got)
		}
	}
}

func TestAnglesRoundTrip(t *testing.T) {
	az, el := Angles(SunDirection(30, 45))
	assert.InDelta(t, 30, az, 1e-3)
	assert.InDelta(t, 45, el, 1e-3)

	az, el = Angles(mgl32.Vec3{})
	assert.Zero(t, az)
	assert.Zero(t, el)
}
