// Package picking casts rays from the viewport to find meshes under the
// cursor.
package picking

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/meshview/internal/scene"
)

// Ray is a half-line with a unit direction.
type Ray struct {
	Origin    mgl32.Vec3
	Direction mgl32.Vec3
}

// ScreenToRay converts pixel coordinates in a viewport of width by height
// to a world-space ray through the near and far planes of viewProj.
func ScreenToRay(x, y, width, height float32, viewProj mgl32.Mat4) Ray {
	ndcX := 2*x/width - 1
	ndcY := 1 - 2*y/height // screen Y grows downward

	inv := viewProj.Inv()
	near := inv.Mul4x1(mgl32.Vec4{ndcX, ndcY, -1, 1})
	far := inv.Mul4x1(mgl32.Vec4{ndcX, ndcY, 1, 1})
	if near.W() != 0 {
		near = near.Mul(1 / near.W())
	}
	if far.W() != 0 {
		far = far.Mul(1 / far.W())
	}

	origin := near.Vec3()
	dir := far.Vec3().Sub(origin)
	if dir.Len() > 0 {
		dir = dir.Normalize()
	}
	return Ray{Origin: origin, Direction: dir}
}

// IntersectBox returns the distance along r to b. A ray starting inside
// the box reports the exit distance.
func (r Ray) IntersectBox(b scene.Box) (t float32, hit bool) {
	var tmin, tmax float32 = -math32.MaxFloat32, math32.MaxFloat32

	for axis := 0; axis < 3; axis++ {
		o, d := r.Origin[axis], r.Direction[axis]
		if d == 0 {
			if o < b.Min[axis] || o > b.Max[axis] {
				return 0, false
			}
			continue
		}
		t1 := (b.Min[axis] - o) / d
		t2 := (b.Max[axis] - o) / d
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		tmin = math32.Max(tmin, t1)
		tmax = math32.Min(tmax, t2)
	}

	if tmax < tmin || tmax < 0 {
		return 0, false
	}
	if tmin < 0 {
		return tmax, true
	}
	return tmin, true
}

// WorldBox returns the axis-aligned box around b's corners under m.
func WorldBox(b scene.Box, m mgl32.Mat4) scene.Box {
	corners := b.Corners()
	out := scene.Box{}
	for i, c := range corners {
		p := mgl32.TransformCoordinate(c, m)
		if i == 0 {
			out.Min, out.Max = p, p
			continue
		}
		for axis := 0; axis < 3; axis++ {
			out.Min[axis] = math32.Min(out.Min[axis], p[axis])
			out.Max[axis] = math32.Max(out.Max[axis], p[axis])
		}
	}
	return out
}

// PickMesh returns the index of the nearest mesh of a whose box r hits.
func PickMesh(a *scene.Asset, r Ray) (index int, t float32, ok bool) {
	if a == nil {
		return -1, 0, false
	}
	index = -1
	for i, m := range a.Meshes {
		d, hit := r.IntersectBox(WorldBox(m.Bounds, a.ModelMatrix(i)))
		if hit && (index < 0 || d < t) {
			index, t = i, d
		}
	}
	return index, t, index >= 0
}
