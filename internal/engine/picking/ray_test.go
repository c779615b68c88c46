package picking

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/meshview/internal/scene"
)

var unitBox = scene.Box{Min: mgl32.Vec3{-0.5, -0.5, -0.5}, Max: mgl32.Vec3{0.5, 0.5, 0.5}}

func TestIntersectBox(t *testing.T) {
	tests := []struct {
		name    string
		ray     Ray
		wantHit bool
		wantT   float32
	}{
		{"straight on", Ray{mgl32.Vec3{0, 0, 5}, mgl32.Vec3{0, 0, -1}}, true, 4.5},
		{"miss", Ray{mgl32.Vec3{2, 0, 5}, mgl32.Vec3{0, 0, -1}}, false, 0},
		{"pointing away", Ray{mgl32.Vec3{0, 0, 5}, mgl32.Vec3{0, 0, 1}}, false, 0},
		{"from inside", Ray{mgl32.Vec3{0, 0, 0}, mgl32.Vec3{1, 0, 0}}, true, 0.5},
		{"parallel outside slab", Ray{mgl32.Vec3{0, 1, 5}, mgl32.Vec3{0, 0, -1}}, false, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, hit := tt.ray.IntersectBox(unitBox)
			assert.Equal(t, tt.wantHit, hit)
			if tt.wantHit {
				assert.InDelta(t, tt.wantT, got, 1e-5)
			}
		})
	}
}

func TestScreenToRayCenter(t *testing.T) {
	proj := mgl32.Perspective(mgl32.DegToRad(45), 1, 0.1, 100)
	view := mgl32.LookAtV(mgl32.Vec3{0, 0, 2}, mgl32.Vec3{}, mgl32.Vec3{0, 1, 0})

	r := ScreenToRay(50, 50, 100, 100, proj.Mul4(view))
	for i, want := range []float32{0, 0, -1} {
		assert.InDelta(t, want, r.Direction[i], 1e-4, "got %v", r.Direction)
	}
	assert.InDelta(t, 1.9, r.Origin.Z(), 1e-3)

	// The top-left corner looks up and to the left.
	r = ScreenToRay(0, 0, 100, 100, proj.Mul4(view))
	assert.Negative(t, r.Direction.X())
	assert.Positive(t, r.Direction.Y())
}

func TestWorldBox(t *testing.T) {
	m := mgl32.Translate3D(1, 0, 0).Mul4(mgl32.HomogRotate3DY(mgl32.DegToRad(45)))
	b := WorldBox(unitBox, m)
	half := float32(0.70710677)
	assert.InDelta(t, 1-half, b.Min.X(), 1e-5)
	assert.InDelta(t, 1+half, b.Max.X(), 1e-5)
	assert.InDelta(t, -0.5, b.Min.Y(), 1e-5)
}

func TestPickMesh(t *testing.T) {
	near := &scene.Mesh{Name: "near", Bounds: unitBox}
	far := &scene.Mesh{Name: "far", Bounds: unitBox}
	a := &scene.Asset{
		Meshes:        []*scene.Mesh{far, near},
		Transforms:    []mgl32.Mat4{mgl32.Translate3D(0, 0, -3), mgl32.Ident4()},
		Normalization: mgl32.Ident4(),
		Scale:         mgl32.Vec3{1, 1, 1},
	}

	i, d, ok := PickMesh(a, Ray{mgl32.Vec3{0, 0, 5}, mgl32.Vec3{0, 0, -1}})
	require.True(t, ok)
	assert.Equal(t, 1, i)
	assert.InDelta(t, 4.5, d, 1e-5)

	_, _, ok = PickMesh(a, Ray{mgl32.Vec3{3, 0, 5}, mgl32.Vec3{0, 0, -1}})
	assert.False(t, ok)

	_, _, ok = PickMesh(nil, Ray{})
	assert.False(t, ok)
}
