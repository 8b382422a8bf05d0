// Package shaders provides embedded GLSL shader sources.
package shaders

import _ "embed"

// MeshVertexShader transforms welded OBJ vertices.
//
//go:embed mesh.vert
var MeshVertexShader string

// MeshFragmentShader shades welded OBJ vertices with a single directional light.
//
//go:embed mesh.frag
var MeshFragmentShader string
