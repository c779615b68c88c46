package viewer

import (
	"fmt"
	"image"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"github.com/Faultbox/meshview/internal/config"
	"github.com/Faultbox/meshview/internal/engine/camera"
	"github.com/Faultbox/meshview/internal/engine/debug"
	"github.com/Faultbox/meshview/internal/engine/framebuffer"
	"github.com/Faultbox/meshview/internal/engine/lighting"
	"github.com/Faultbox/meshview/internal/engine/shader"
	"github.com/Faultbox/meshview/internal/logger"
	"github.com/Faultbox/meshview/internal/scene"
)

// Settings are the per-frame render switches exposed in the options panel.
type Settings struct {
	Shader     string // built-in program name
	ClearColor mgl32.Vec3
	CullFaces  bool
	ShowBounds bool
	Light      lighting.Directional
}

// SettingsFromConfig maps the render section of the config.
func SettingsFromConfig(r config.RenderConfig) Settings {
	light := lighting.Default()
	light.Direction = mgl32.Vec3(r.LightDirection)
	light.Color = mgl32.Vec3(r.LightColor)
	light.Shininess = r.Shininess
	light.Enabled = r.Lighting
	return Settings{
		Shader:     r.Shader,
		ClearColor: mgl32.Vec3(r.ClearColor),
		CullFaces:  r.CullFaces,
		ShowBounds: r.ShowBounds,
		Light:      light,
	}
}

// Store writes s back into r, keeping r's shader file paths.
func (s Settings) Store(r *config.RenderConfig) {
	r.Shader = s.Shader
	r.ClearColor = [3]float32(s.ClearColor)
	r.CullFaces = s.CullFaces
	r.ShowBounds = s.ShowBounds
	r.Lighting = s.Light.Enabled
	r.Shininess = s.Light.Shininess
	r.LightDirection = [3]float32(s.Light.Direction)
	r.LightColor = [3]float32(s.Light.Color)
}

var selectedColor = mgl32.Vec3{0.2, 0.9, 1}

// Renderer draws an asset into an offscreen framebuffer.
type Renderer struct {
	Settings
	// Selected is the index of a mesh to outline, or -1.
	Selected int

	fb       *framebuffer.Framebuffer
	programs map[string]*shader.Program
	bounds   *debug.BoundsRenderer
}

// NewRenderer compiles the built-in programs and allocates a framebuffer
// of width by height. It needs a current GL context.
func NewRenderer(width, height int, s Settings) (*Renderer, error) {
	r := &Renderer{Settings: s, Selected: -1, programs: make(map[string]*shader.Program)}

	for _, name := range shader.Names() {
		p, err := shader.NewBuiltin(name)
		if err != nil {
			r.Destroy()
			return nil, fmt.Errorf("building %s shader: %w", name, err)
		}
		r.programs[name] = p
	}

	bounds, err := debug.NewBoundsRenderer()
	if err != nil {
		r.Destroy()
		return nil, fmt.Errorf("building bounds shader: %w", err)
	}
	r.bounds = bounds

	fb, err := framebuffer.New(width, height)
	if err != nil {
		r.Destroy()
		return nil, err
	}
	r.fb = fb
	return r, nil
}

// Program returns the named built-in program.
func (r *Renderer) Program(name string) (*shader.Program, bool) {
	p, ok := r.programs[name]
	return p, ok
}

// ReloadShader recompiles the named program from source files. On
// failure the previous program stays active and the error is returned.
func (r *Renderer) ReloadShader(name, vertexPath, fragmentPath string) error {
	p, ok := r.programs[name]
	if !ok {
		return fmt.Errorf("unknown shader %q", name)
	}
	src, err := shader.ReadSource(vertexPath, fragmentPath)
	if err != nil {
		return err
	}
	return p.Reload(src)
}

// Render draws a from view into a framebuffer of the lens size and
// returns the color texture.
func (r *Renderer) Render(a *scene.Asset, view scene.View, lens camera.Lens) uint32 {
	r.fb.Resize(lens.Width, lens.Height)
	restore := r.fb.Bind()
	defer restore()

	gl.Enable(gl.DEPTH_TEST)
	gl.DepthFunc(gl.LESS)
	if r.CullFaces {
		gl.Enable(gl.CULL_FACE)
		gl.CullFace(gl.BACK)
	} else {
		gl.Disable(gl.CULL_FACE)
	}
	gl.Enable(gl.BLEND)
	gl.BlendFunc(gl.SRC_ALPHA, gl.ONE_MINUS_SRC_ALPHA)

	r.fb.Clear(r.ClearColor)
	if a == nil {
		return r.fb.ColorTexture()
	}

	p, ok := r.programs[r.Shader]
	if !ok {
		logger.Named("viewer").Warn("unknown shader, using default", zap.String("shader", r.Shader))
		r.Shader = "default"
		p = r.programs["default"]
	}
	p.Activate()
	switch r.Shader {
	case "depth":
		p.SetFloat("near", lens.Near)
		p.SetFloat("far", lens.Far)
	default:
		r.Light.Apply(p)
	}
	scene.Draw(a, p, view)

	if r.ShowBounds {
		r.bounds.Draw(a, view)
	}
	if r.Selected >= 0 && r.Selected < len(a.Meshes) {
		r.bounds.DrawBox(a.Meshes[r.Selected].Bounds, a.ModelMatrix(r.Selected), selectedColor, view)
	}
	gl.Disable(gl.CULL_FACE)
	return r.fb.ColorTexture()
}

// Image reads back the last rendered frame.
func (r *Renderer) Image() *image.RGBA {
	return r.fb.Image()
}

// Destroy releases every GL object the renderer created.
func (r *Renderer) Destroy() {
	for name, p := range r.programs {
		p.Delete()
		delete(r.programs, name)
	}
	if r.bounds != nil {
		r.bounds.Destroy()
		r.bounds = nil
	}
	if r.fb != nil {
		r.fb.Destroy()
		r.fb = nil
	}
}
