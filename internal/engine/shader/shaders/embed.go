// Package shaders provides embedded GLSL shader sources.
package shaders

import _ "embed"

// DefaultVertexShader transforms meshes drawn by scene.Draw.
//
//go:embed default.vert
var DefaultVertexShader string

// DefaultFragmentShader is Blinn-Phong with one directional light.
//
//go:embed default.frag
var DefaultFragmentShader string

// DepthFragmentShader shows linearized depth as gray.
//
//go:embed depth.frag
var DepthFragmentShader string

// BoundsVertexShader is the vertex shader for bounding box lines.
//
//go:embed bounds.vert
var BoundsVertexShader string

// BoundsFragmentShader is the fragment shader for bounding box lines.
//
//go:embed bounds.frag
var BoundsFragmentShader string
