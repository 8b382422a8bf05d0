package formats

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
)

// KRRM is a compact binary dump of a welded mesh:
//
//	magic "KRRM", uint8 major, uint8 minor,
//	uint32 vertex count, uint32 index count,
//	vertices (8 float32 each: position, texcoord, normal), indices (uint32 each).
//
// All values are little-endian.

// KRRM format errors.
var (
	ErrInvalidKRRMMagic       = errors.New("invalid KRRM magic: expected 'KRRM'")
	ErrUnsupportedKRRMVersion = errors.New("unsupported KRRM version")
	ErrTruncatedKRRMData      = errors.New("truncated KRRM data")
	ErrInvalidKRRMIndex       = errors.New("KRRM index out of range")
)

// KRRM version written by WriteKRRM.
const (
	KRRMVersionMajor = 1
	KRRMVersionMinor = 0
)

const (
	krrmHeaderSize = 14
	krrmVertexSize = 32
)

// WriteKRRM writes the vertices and indices of mesh to w.
func WriteKRRM(w io.Writer, mesh *OBJMesh) error {
	buf := bytes.NewBuffer(make([]byte, 0, krrmHeaderSize+len(mesh.Vertices)*krrmVertexSize+len(mesh.Indices)*4))

	buf.WriteString("KRRM")
	buf.WriteByte(KRRMVersionMajor)
	buf.WriteByte(KRRMVersionMinor)
	binary.Write(buf, binary.LittleEndian, uint32(len(mesh.Vertices)))
	binary.Write(buf, binary.LittleEndian, uint32(len(mesh.Indices)))

	// OBJVertex has no padding, so the slice encodes as 8 packed float32 per vertex.
	if err := binary.Write(buf, binary.LittleEndian, mesh.Vertices); err != nil {
		return fmt.Errorf("encoding vertices: %w", err)
	}
	if err := binary.Write(buf, binary.LittleEndian, mesh.Indices); err != nil {
		return fmt.Errorf("encoding indices: %w", err)
	}

	_, err := w.Write(buf.Bytes())
	return err
}

// WriteKRRMFile writes mesh to a KRRM file on disk.
func WriteKRRMFile(path string, mesh *OBJMesh) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating KRRM file: %w", err)
	}

	if err := WriteKRRM(f, mesh); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// ParseKRRM parses a KRRM mesh from raw bytes.
// Only Vertices and Indices of the returned mesh are populated.
func ParseKRRM(data []byte) (*OBJMesh, error) {
	if len(data) < krrmHeaderSize {
		return nil, ErrTruncatedKRRMData
	}

	if string(data[0:4]) != "KRRM" {
		return nil, ErrInvalidKRRMMagic
	}

	major, minor := data[4], data[5]
	if major != KRRMVersionMajor {
		return nil, fmt.Errorf("%w: %d.%d", ErrUnsupportedKRRMVersion, major, minor)
	}

	vertexCount := binary.LittleEndian.Uint32(data[6:10])
	indexCount := binary.LittleEndian.Uint32(data[10:14])

	want := uint64(krrmHeaderSize) + uint64(vertexCount)*krrmVertexSize + uint64(indexCount)*4
	if uint64(len(data)) < want {
		return nil, fmt.Errorf("%w: need %d bytes, have %d", ErrTruncatedKRRMData, want, len(data))
	}

	mesh := &OBJMesh{
		Vertices: make([]OBJVertex, vertexCount),
		Indices:  make([]uint32, indexCount),
	}

	r := bytes.NewReader(data[krrmHeaderSize:])
	if err := binary.Read(r, binary.LittleEndian, mesh.Vertices); err != nil {
		return nil, fmt.Errorf("%w: reading vertices", ErrTruncatedKRRMData)
	}
	if err := binary.Read(r, binary.LittleEndian, mesh.Indices); err != nil {
		return nil, fmt.Errorf("%w: reading indices", ErrTruncatedKRRMData)
	}

	for i, idx := range mesh.Indices {
		if idx >= vertexCount {
			return nil, fmt.Errorf("%w: index %d = %d, %d vertices", ErrInvalidKRRMIndex, i, idx, vertexCount)
		}
	}

	return mesh, nil
}

// ParseKRRMFile parses a KRRM file from disk.
func ParseKRRMFile(path string) (*OBJMesh, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading KRRM file: %w", err)
	}
	return ParseKRRM(data)
}
