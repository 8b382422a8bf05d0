// Package mesh uploads welded OBJ meshes to OpenGL buffers.
package mesh

import (
	"errors"
	"unsafe"

	"github.com/go-gl/gl/v4.1-core/gl"

	"github.com/Faultbox/korori/pkg/formats"
)

// Vertex attribute locations used by Upload.
const (
	AttribPosition = 0
	AttribTexCoord = 1
	AttribNormal   = 2
)

// ErrEmptyMesh is returned when a mesh has no triangles to upload.
var ErrEmptyMesh = errors.New("mesh has no triangles")

// GPUMesh is a mesh resident in GPU memory.
type GPUMesh struct {
	vao, vbo, ebo uint32
	indexCount    int32
}

// Upload creates a vertex array with a vertex buffer and an index buffer for m.
// The GL context must be current.
func Upload(m *formats.OBJMesh) (*GPUMesh, error) {
	if len(m.Indices) == 0 {
		return nil, ErrEmptyMesh
	}

	g := &GPUMesh{indexCount: int32(len(m.Indices))}

	gl.GenVertexArrays(1, &g.vao)
	gl.BindVertexArray(g.vao)

	gl.GenBuffers(1, &g.vbo)
	gl.BindBuffer(gl.ARRAY_BUFFER, g.vbo)
	vertexSize := int(unsafe.Sizeof(formats.OBJVertex{}))
	gl.BufferData(gl.ARRAY_BUFFER, len(m.Vertices)*vertexSize, unsafe.Pointer(&m.Vertices[0]), gl.STATIC_DRAW)

	gl.VertexAttribPointerWithOffset(AttribPosition, 3, gl.FLOAT, false, int32(vertexSize), unsafe.Offsetof(formats.OBJVertex{}.Position))
	gl.EnableVertexAttribArray(AttribPosition)
	gl.VertexAttribPointerWithOffset(AttribTexCoord, 2, gl.FLOAT, false, int32(vertexSize), unsafe.Offsetof(formats.OBJVertex{}.TexCoord))
	gl.EnableVertexAttribArray(AttribTexCoord)
	gl.VertexAttribPointerWithOffset(AttribNormal, 3, gl.FLOAT, false, int32(vertexSize), unsafe.Offsetof(formats.OBJVertex{}.Normal))
	gl.EnableVertexAttribArray(AttribNormal)

	gl.GenBuffers(1, &g.ebo)
	gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, g.ebo)
	gl.BufferData(gl.ELEMENT_ARRAY_BUFFER, len(m.Indices)*4, unsafe.Pointer(&m.Indices[0]), gl.STATIC_DRAW)

	gl.BindVertexArray(0)
	return g, nil
}

// Draw issues one indexed draw call for the whole mesh.
func (g *GPUMesh) Draw() {
	gl.BindVertexArray(g.vao)
	gl.DrawElements(gl.TRIANGLES, g.indexCount, gl.UNSIGNED_INT, nil)
	gl.BindVertexArray(0)
}

// IndexCount returns the number of indices uploaded.
func (g *GPUMesh) IndexCount() int32 {
	return g.indexCount
}

// Delete releases the GL buffers.
func (g *GPUMesh) Delete() {
	if g.ebo != 0 {
		gl.DeleteBuffers(1, &g.ebo)
	}
	if g.vbo != 0 {
		gl.DeleteBuffers(1, &g.vbo)
	}
	if g.vao != 0 {
		gl.DeleteVertexArrays(1, &g.vao)
	}
	g.vao, g.vbo, g.ebo = 0, 0, 0
}
