package viewer

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/meshview/internal/config"
	"github.com/Faultbox/meshview/internal/engine/camera"
	"github.com/Faultbox/meshview/internal/scene"
)

// Camera modes.
const (
	ModeFly   = "fly"
	ModeOrbit = "orbit"
)

// Input is one frame of viewport input.
type Input struct {
	DX, DY   float32 // mouse travel in pixels
	Dragging bool
	Wheel    float32
	Move     camera.Movement
	DT       float32 // seconds since the last frame
}

// Rig switches between a fly and an orbit camera sharing one lens.
type Rig struct {
	Mode  string
	Lens  camera.Lens
	Fly   *camera.Fly
	Orbit *camera.Orbit

	cfg config.CameraConfig
}

// NewRig builds both cameras from cfg with a viewport of width by height.
func NewRig(cfg config.CameraConfig, width, height int) *Rig {
	r := &Rig{cfg: cfg}
	r.Lens = camera.Lens{FOV: cfg.FOV, Near: cfg.Near, Far: cfg.Far, Width: width, Height: height}
	r.Reset()
	return r
}

// Reset puts both cameras back at their configured start.
func (r *Rig) Reset() {
	r.Mode = r.cfg.Mode
	if r.Mode != ModeOrbit {
		r.Mode = ModeFly
	}
	r.Lens.FOV = r.cfg.FOV

	pos := mgl32.Vec3(r.cfg.Position)
	r.Fly = camera.NewFly(pos)
	if r.cfg.Speed > 0 {
		r.Fly.Speed = r.cfg.Speed
	}
	if r.cfg.Sensitivity > 0 {
		r.Fly.Sensitivity = r.cfg.Sensitivity
	}
	if r.cfg.FastFactor > 0 {
		r.Fly.FastFactor = r.cfg.FastFactor
	}

	dist := pos.Len()
	if dist < 1e-3 {
		dist = 2
	}
	r.Orbit = camera.NewOrbit(mgl32.Vec3{}, dist)
	r.Orbit.Pitch = 0
}

// Apply feeds one frame of input to the active camera and recomputes its
// matrices.
func (r *Rig) Apply(in Input) {
	switch r.Mode {
	case ModeOrbit:
		if in.Dragging {
			r.Orbit.Drag(in.DX, in.DY)
		}
		if in.Wheel != 0 {
			r.Orbit.Zoom(in.Wheel)
		}
	default:
		if in.Dragging {
			r.Fly.Look(in.DX, in.DY, r.Lens)
		}
		if in.Wheel != 0 {
			r.Lens.Zoom(in.Wheel)
		}
		r.Fly.Move(in.Move, in.DT)
	}
	r.Update()
}

// Update recomputes the active camera's view-projection.
func (r *Rig) Update() {
	switch r.Mode {
	case ModeOrbit:
		r.Orbit.Update(r.Lens)
	default:
		r.Fly.Update(r.Lens)
	}
}

// View returns the active camera.
func (r *Rig) View() scene.View {
	if r.Mode == ModeOrbit {
		return r.Orbit
	}
	return r.Fly
}
