// Package shader compiles GLSL programs and sets their uniforms.
package shader

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"github.com/Faultbox/meshview/internal/engine/shader/shaders"
	"github.com/Faultbox/meshview/internal/logger"
)

// Compile stages reported by CompileError.
const (
	StageVertex   = "vertex"
	StageFragment = "fragment"
	StageLink     = "link"
)

// CompileError is a failed compile or link with the driver's info log.
type CompileError struct {
	Stage string
	Log   string
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("%s shader: %s", e.Stage, strings.TrimRight(e.Log, "\x00\n "))
}

// Source is a vertex and fragment shader pair.
type Source struct {
	Vertex   string
	Fragment string
}

var builtins = map[string]Source{
	"default": {shaders.DefaultVertexShader, shaders.DefaultFragmentShader},
	"depth":   {shaders.DefaultVertexShader, shaders.DepthFragmentShader},
	"bounds":  {shaders.BoundsVertexShader, shaders.BoundsFragmentShader},
}

// Builtin returns the embedded sources registered under name.
func Builtin(name string) (Source, bool) {
	s, ok := builtins[name]
	return s, ok
}

// Names lists the built-in programs meant for drawing meshes.
func Names() []string {
	names := make([]string, 0, len(builtins))
	for name := range builtins {
		if name != "bounds" {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// Program is a linked GL program with cached uniform locations.
type Program struct {
	id       uint32
	name     string
	uniforms map[string]int32
}

// New compiles and links src.
func New(name string, src Source) (*Program, error) {
	id, err := link(src)
	if err != nil {
		logger.Named("shader").Error("shader build failed", zap.String("program", name), zap.Error(err))
		return nil, err
	}
	return &Program{id: id, name: name, uniforms: make(map[string]int32)}, nil
}

// NewBuiltin compiles the embedded program registered under name.
func NewBuiltin(name string) (*Program, error) {
	src, ok := Builtin(name)
	if !ok {
		return nil, fmt.Errorf("unknown shader %q", name)
	}
	return New(name, src)
}

// Load reads both stages from disk and compiles them.
func Load(vertexPath, fragmentPath string) (*Program, error) {
	src, err := ReadSource(vertexPath, fragmentPath)
	if err != nil {
		return nil, err
	}
	return New(vertexPath+"+"+fragmentPath, src)
}

// ReadSource reads a vertex and fragment shader from disk.
func ReadSource(vertexPath, fragmentPath string) (Source, error) {
	vert, err := os.ReadFile(vertexPath)
	if err != nil {
		return Source{}, fmt.Errorf("reading vertex shader: %w", err)
	}
	frag, err := os.ReadFile(fragmentPath)
	if err != nil {
		return Source{}, fmt.Errorf("reading fragment shader: %w", err)
	}
	return Source{Vertex: string(vert), Fragment: string(frag)}, nil
}

// Reload replaces the program with one built from src. On failure the
// current program stays in use and the error is returned.
func (p *Program) Reload(src Source) error {
	id, err := link(src)
	if err != nil {
		logger.Named("shader").Error("shader reload failed, keeping previous program",
			zap.String("program", p.name), zap.Error(err))
		return err
	}
	gl.DeleteProgram(p.id)
	p.id = id
	clear(p.uniforms)
	return nil
}

// Name returns the name the program was built under.
func (p *Program) Name() string { return p.name }

// ID returns the GL program name.
func (p *Program) ID() uint32 { return p.id }

// Activate makes the program current.
func (p *Program) Activate() { gl.UseProgram(p.id) }

// Delete releases the program. Further calls do nothing.
func (p *Program) Delete() {
	if p.id != 0 {
		gl.DeleteProgram(p.id)
		p.id = 0
	}
}

// location returns the cached location of a uniform, -1 if the program
// has no active uniform by that name.
func (p *Program) location(name string) int32 {
	if loc, ok := p.uniforms[name]; ok {
		return loc
	}
	loc := gl.GetUniformLocation(p.id, gl.Str(name+"\x00"))
	p.uniforms[name] = loc
	return loc
}

func (p *Program) SetBool(name string, v bool) {
	var i int32
	if v {
		i = 1
	}
	gl.Uniform1i(p.location(name), i)
}

func (p *Program) SetInt(name string, v int32)     { gl.Uniform1i(p.location(name), v) }
func (p *Program) SetFloat(name string, v float32) { gl.Uniform1f(p.location(name), v) }

func (p *Program) SetVec3(name string, v mgl32.Vec3) {
	gl.Uniform3f(p.location(name), v[0], v[1], v[2])
}

func (p *Program) SetVec4(name string, v mgl32.Vec4) {
	gl.Uniform4f(p.location(name), v[0], v[1], v[2], v[3])
}

func (p *Program) SetMat3(name string, m mgl32.Mat3) {
	gl.UniformMatrix3fv(p.location(name), 1, false, &m[0])
}

func (p *Program) SetMat4(name string, m mgl32.Mat4) {
	gl.UniformMatrix4fv(p.location(name), 1, false, &m[0])
}

func link(src Source) (uint32, error) {
	vert, err := compile(src.Vertex, gl.VERTEX_SHADER, StageVertex)
	if err != nil {
		return 0, err
	}
	defer gl.DeleteShader(vert)

	frag, err := compile(src.Fragment, gl.FRAGMENT_SHADER, StageFragment)
	if err != nil {
		return 0, err
	}
	defer gl.DeleteShader(frag)

	program := gl.CreateProgram()
	gl.AttachShader(program, vert)
	gl.AttachShader(program, frag)
	gl.LinkProgram(program)

	var status int32
	gl.GetProgramiv(program, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		var logLen int32
		gl.GetProgramiv(program, gl.INFO_LOG_LENGTH, &logLen)
		log := make([]byte, logLen+1)
		gl.GetProgramInfoLog(program, logLen, nil, &log[0])
		gl.DeleteProgram(program)
		return 0, &CompileError{Stage: StageLink, Log: string(log)}
	}
	return program, nil
}

func compile(source string, shaderType uint32, stage string) (uint32, error) {
	shader := gl.CreateShader(shaderType)
	csource, free := gl.Strs(source + "\x00")
	gl.ShaderSource(shader, 1, csource, nil)
	free()
	gl.CompileShader(shader)

	var status int32
	gl.GetShaderiv(shader, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var logLen int32
		gl.GetShaderiv(shader, gl.INFO_LOG_LENGTH, &logLen)
		log := make([]byte, logLen+1)
		gl.GetShaderInfoLog(shader, logLen, nil, &log[0])
		gl.DeleteShader(shader)
		return 0, &CompileError{Stage: stage, Log: string(log)}
	}
	return shader, nil
}
