// Package formats provides parsers for the mesh file formats used by Korori.
//
// ParseOBJ reads Wavefront OBJ triangle meshes and welds face corners into a
// single indexed vertex buffer. KRRM is a compact binary dump of that buffer.
package formats
