package formats

import (
	"bytes"
	"encoding/binary"
	"errors"
	"path/filepath"
	"reflect"
	"testing"
)

func TestKRRM_RoundTrip(t *testing.T) {
	mesh, err := ParseOBJFile(filepath.Join("testdata", "cube.obj"), OBJOptions{})
	if err != nil {
		t.Fatalf("ParseOBJFile failed: %v", err)
	}

	path := filepath.Join(t.TempDir(), "cube.krrm")
	if err := WriteKRRMFile(path, mesh); err != nil {
		t.Fatalf("WriteKRRMFile failed: %v", err)
	}

	loaded, err := ParseKRRMFile(path)
	if err != nil {
		t.Fatalf("ParseKRRMFile failed: %v", err)
	}

	if !reflect.DeepEqual(loaded.Vertices, mesh.Vertices) {
		t.Error("vertices differ after round trip")
	}
	if !reflect.DeepEqual(loaded.Indices, mesh.Indices) {
		t.Error("indices differ after round trip")
	}
}

func TestWriteKRRM_Layout(t *testing.T) {
	mesh := &OBJMesh{
		Vertices: []OBJVertex{{}},
		Indices:  []uint32{0, 0, 0},
	}

	var buf bytes.Buffer
	if err := WriteKRRM(&buf, mesh); err != nil {
		t.Fatalf("WriteKRRM failed: %v", err)
	}

	data := buf.Bytes()
	if want := krrmHeaderSize + krrmVertexSize + 3*4; len(data) != want {
		t.Fatalf("expected %d bytes, got %d", want, len(data))
	}
	if string(data[:4]) != "KRRM" {
		t.Errorf("magic = %q", data[:4])
	}
	if data[4] != KRRMVersionMajor || data[5] != KRRMVersionMinor {
		t.Errorf("version = %d.%d", data[4], data[5])
	}
	if n := binary.LittleEndian.Uint32(data[6:10]); n != 1 {
		t.Errorf("vertex count = %d, want 1", n)
	}
	if n := binary.LittleEndian.Uint32(data[10:14]); n != 3 {
		t.Errorf("index count = %d, want 3", n)
	}
}

func TestParseKRRM_Errors(t *testing.T) {
	valid := func() []byte {
		var buf bytes.Buffer
		WriteKRRM(&buf, &OBJMesh{Vertices: []OBJVertex{{}}, Indices: []uint32{0, 0, 0}})
		return buf.Bytes()
	}

	badMagic := valid()
	copy(badMagic, "XXXX")

	badVersion := valid()
	badVersion[4] = 9

	badIndex := valid()
	binary.LittleEndian.PutUint32(badIndex[len(badIndex)-4:], 7)

	tests := []struct {
		name    string
		data    []byte
		wantErr error
	}{
		{"empty", nil, ErrTruncatedKRRMData},
		{"short header", []byte("KRRM\x01"), ErrTruncatedKRRMData},
		{"bad magic", badMagic, ErrInvalidKRRMMagic},
		{"bad version", badVersion, ErrUnsupportedKRRMVersion},
		{"truncated body", valid()[:20], ErrTruncatedKRRMData},
		{"index out of range", badIndex, ErrInvalidKRRMIndex},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseKRRM(tt.data)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}
