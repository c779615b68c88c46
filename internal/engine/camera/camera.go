// Package camera provides the view and projection for the viewport.
package camera

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// FOV limits in degrees.
const (
	MinFOV = 1
	MaxFOV = 45
)

// Lens holds the projection parameters and viewport size. It is passed to
// whatever needs them instead of living in globals.
type Lens struct {
	FOV    float32 // vertical, degrees
	Near   float32
	Far    float32
	Width  int
	Height int
}

// Aspect returns width over height, or 1 for an empty viewport.
func (l Lens) Aspect() float32 {
	if l.Width <= 0 || l.Height <= 0 {
		return 1
	}
	return float32(l.Width) / float32(l.Height)
}

// Resize records a new viewport size.
func (l *Lens) Resize(width, height int) {
	l.Width, l.Height = width, height
}

// Zoom narrows the field of view by delta degrees, within [MinFOV, MaxFOV].
func (l *Lens) Zoom(delta float32) {
	l.FOV = mgl32.Clamp(l.FOV-delta, MinFOV, MaxFOV)
}

// Projection returns the perspective projection matrix.
func (l Lens) Projection() mgl32.Mat4 {
	return mgl32.Perspective(mgl32.DegToRad(l.FOV), l.Aspect(), l.Near, l.Far)
}

// Movement is one frame of held movement keys.
type Movement struct {
	Forward, Back bool
	Left, Right   bool
	Up, Down      bool
	Fast          bool
}

// maxPitch keeps the view direction this far from straight up or down.
const maxPitch = 85 * math32.Pi / 180

// Fly is a free camera steered by keys and mouse drag.
type Fly struct {
	Eye         mgl32.Vec3
	Orientation mgl32.Vec3 // unit forward vector
	Up          mgl32.Vec3

	Speed       float32 // units per second
	Sensitivity float32 // degrees per viewport-size of mouse travel
	FastFactor  float32

	matrix mgl32.Mat4
}

// NewFly returns a camera at position looking down -Z.
func NewFly(position mgl32.Vec3) *Fly {
	return &Fly{
		Eye:         position,
		Orientation: mgl32.Vec3{0, 0, -1},
		Up:          mgl32.Vec3{0, 1, 0},
		Speed:       2.5,
		Sensitivity: 100,
		FastFactor:  4,
		matrix:      mgl32.Ident4(),
	}
}

// Move advances the camera by dt seconds of the held keys.
func (f *Fly) Move(m Movement, dt float32) {
	step := f.Speed * dt
	if m.Fast {
		step *= f.FastFactor
	}
	right := f.Orientation.Cross(f.Up)
	if right.Len() > 1e-6 {
		right = right.Normalize()
	}

	var d mgl32.Vec3
	if m.Forward {
		d = d.Add(f.Orientation)
	}
	if m.Back {
		d = d.Sub(f.Orientation)
	}
	if m.Right {
		d = d.Add(right)
	}
	if m.Left {
		d = d.Sub(right)
	}
	if m.Up {
		d = d.Add(f.Up)
	}
	if m.Down {
		d = d.Sub(f.Up)
	}
	f.Eye = f.Eye.Add(d.Mul(step))
}

// Look turns the camera by a mouse drag of (dx, dy) pixels in a viewport
// of the lens's size. A pitch that would come within 5 degrees of the up
// axis is ignored; yaw always applies.
func (f *Fly) Look(dx, dy float32, l Lens) {
	if l.Width <= 0 || l.Height <= 0 {
		return
	}
	pitch := f.Sensitivity * dy / float32(l.Height)
	yaw := f.Sensitivity * dx / float32(l.Width)

	right := f.Orientation.Cross(f.Up)
	if right.Len() > 1e-6 {
		turned := rotate(f.Orientation, -mgl32.DegToRad(pitch), right.Normalize())
		if math32.Abs(angle(turned, f.Up)-math32.Pi/2) <= maxPitch {
			f.Orientation = turned
		}
	}
	f.Orientation = rotate(f.Orientation, -mgl32.DegToRad(yaw), f.Up).Normalize()
}

// Position returns the eye position.
func (f *Fly) Position() mgl32.Vec3 { return f.Eye }

// View returns the look-at view matrix.
func (f *Fly) View() mgl32.Mat4 {
	return mgl32.LookAtV(f.Eye, f.Eye.Add(f.Orientation), f.Up)
}

// Update recomputes the view-projection matrix. Call once per frame.
func (f *Fly) Update(l Lens) {
	f.matrix = l.Projection().Mul4(f.View())
}

// ViewProjection returns the matrix from the last Update.
func (f *Fly) ViewProjection() mgl32.Mat4 { return f.matrix }

// Orbit circles a target point at a distance.
type Orbit struct {
	Target   mgl32.Vec3
	Distance float32
	Pitch    float32 // radians above the horizon
	Yaw      float32 // radians around Y

	MinDistance float32
	MaxDistance float32
	// DragSensitivity is radians per pixel, ZoomSensitivity the fraction
	// of the distance covered per wheel step.
	DragSensitivity float32
	ZoomSensitivity float32

	matrix mgl32.Mat4
}

// NewOrbit returns an orbit camera around target, suited to an asset
// normalized into the unit cube.
func NewOrbit(target mgl32.Vec3, distance float32) *Orbit {
	return &Orbit{
		Target:          target,
		Distance:        distance,
		Pitch:           0.4,
		MinDistance:     0.1,
		MaxDistance:     100,
		DragSensitivity: 0.01,
		ZoomSensitivity: 0.1,
		matrix:          mgl32.Ident4(),
	}
}

// Position returns the eye position.
func (o *Orbit) Position() mgl32.Vec3 {
	sp, cp := math32.Sincos(o.Pitch)
	sy, cy := math32.Sincos(o.Yaw)
	return o.Target.Add(mgl32.Vec3{cp * sy, sp, cp * cy}.Mul(o.Distance))
}

// Drag rotates the eye around the target.
func (o *Orbit) Drag(dx, dy float32) {
	o.Yaw -= dx * o.DragSensitivity
	o.Pitch = mgl32.Clamp(o.Pitch+dy*o.DragSensitivity, -maxPitch, maxPitch)
}

// Zoom moves the eye toward the target for positive steps.
func (o *Orbit) Zoom(steps float32) {
	o.Distance = mgl32.Clamp(o.Distance-steps*o.Distance*o.ZoomSensitivity, o.MinDistance, o.MaxDistance)
}

// View returns the look-at view matrix.
func (o *Orbit) View() mgl32.Mat4 {
	return mgl32.LookAtV(o.Position(), o.Target, mgl32.Vec3{0, 1, 0})
}

// Update recomputes the view-projection matrix. Call once per frame.
func (o *Orbit) Update(l Lens) {
	o.matrix = l.Projection().Mul4(o.View())
}

// ViewProjection returns the matrix from the last Update.
func (o *Orbit) ViewProjection() mgl32.Mat4 { return o.matrix }

// rotate turns v by angle radians around the unit axis.
func rotate(v mgl32.Vec3, angle float32, axis mgl32.Vec3) mgl32.Vec3 {
	return mgl32.QuatRotate(angle, axis).Rotate(v)
}

// angle returns the angle between a and b in radians.
func angle(a, b mgl32.Vec3) float32 {
	d := a.Dot(b) / (a.Len() * b.Len())
	return math32.Acos(mgl32.Clamp(d, -1, 1))
}
