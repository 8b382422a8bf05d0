package formats

import (
	"errors"
	"io/fs"
	gomath "math"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"unsafe"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Faultbox/korori/pkg/math"
)

func parseOBJString(t *testing.T, src string) *OBJMesh {
	t.Helper()
	mesh, err := ParseOBJ(strings.NewReader(src), OBJOptions{})
	if err != nil {
		t.Fatalf("ParseOBJ failed: %v", err)
	}
	return mesh
}

func TestParseOBJFile_Triangle(t *testing.T) {
	mesh, err := ParseOBJFile(filepath.Join("testdata", "triangle.obj"), OBJOptions{})
	if err != nil {
		t.Fatalf("ParseOBJFile failed: %v", err)
	}

	want := []OBJVertex{
		{Position: math.Vec3{X: 0, Y: 0, Z: 0}, TexCoord: math.Vec2{X: 0, Y: 1}, Normal: math.Vec3{X: 0, Y: 0, Z: 1}},
		{Position: math.Vec3{X: 1, Y: 0, Z: 0}, TexCoord: math.Vec2{X: 1, Y: 1}, Normal: math.Vec3{X: 0, Y: 0, Z: 1}},
		{Position: math.Vec3{X: 0, Y: -1, Z: 0}, TexCoord: math.Vec2{X: 0, Y: 0}, Normal: math.Vec3{X: 0, Y: 0, Z: 1}},
	}
	if !reflect.DeepEqual(mesh.Vertices, want) {
		t.Errorf("vertices = %+v, want %+v", mesh.Vertices, want)
	}
	if !reflect.DeepEqual(mesh.Indices, []uint32{0, 1, 2}) {
		t.Errorf("indices = %v, want [0 1 2]", mesh.Indices)
	}
	if len(mesh.Warnings) != 0 {
		t.Errorf("expected no warnings, got %v", mesh.Warnings)
	}
	if mesh.TriangleCount() != 1 {
		t.Errorf("expected 1 triangle, got %d", mesh.TriangleCount())
	}
}

func TestParseOBJFile_Cube(t *testing.T) {
	mesh, err := ParseOBJFile(filepath.Join("testdata", "cube.obj"), OBJOptions{})
	if err != nil {
		t.Fatalf("ParseOBJFile failed: %v", err)
	}

	// 8 corners, each shared by 3 sides with different normals.
	if mesh.VertexCount() != 24 {
		t.Errorf("expected 24 vertices, got %d", mesh.VertexCount())
	}
	if mesh.IndexCount() != 36 {
		t.Errorf("expected 36 indices, got %d", mesh.IndexCount())
	}
	if mesh.Stats.Duplicates != 16 {
		t.Errorf("expected 16 duplicates, got %d", mesh.Stats.Duplicates)
	}
	if mesh.Stats.Positions != 8 || mesh.Stats.TexCoords != 4 || mesh.Stats.Normals != 6 {
		t.Errorf("unexpected attribute counts: %+v", mesh.Stats)
	}

	// Every triangle must be flat-shaded: one normal for all three corners.
	for tri := 0; tri < mesh.TriangleCount(); tri++ {
		n0 := mesh.Vertices[mesh.Indices[tri*3]].Normal
		for c := 1; c < 3; c++ {
			if n := mesh.Vertices[mesh.Indices[tri*3+c]].Normal; n != n0 {
				t.Errorf("triangle %d corner %d: normal %v, want %v", tri, c, n, n0)
			}
		}
	}
}

func TestParseOBJFile_NotFound(t *testing.T) {
	_, err := ParseOBJFile(filepath.Join(t.TempDir(), "missing.obj"), OBJOptions{})
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("expected fs.ErrNotExist, got %v", err)
	}
}

func TestParseOBJ_AxisFlip(t *testing.T) {
	mesh := parseOBJString(t, `
v 1.0 2.0 3.0
vt 0.25 0.25
vn 0.5 -0.5 1
f 1/1/1 1/1/1 1/1/1
`)

	if len(mesh.Vertices) != 1 {
		t.Fatalf("expected 1 vertex, got %d", len(mesh.Vertices))
	}
	v := mesh.Vertices[0]
	if v.Position != (math.Vec3{X: 1, Y: -2, Z: 3}) {
		t.Errorf("position = %v, want {1 -2 3}", v.Position)
	}
	if v.TexCoord != (math.Vec2{X: 0.25, Y: 0.75}) {
		t.Errorf("texcoord = %v, want {0.25 0.75}", v.TexCoord)
	}
	if v.Normal != (math.Vec3{X: 0.5, Y: -0.5, Z: 1}) {
		t.Errorf("normal = %v, want {0.5 -0.5 1}", v.Normal)
	}
}

func TestParseOBJ_NoDuplicationWhenConsistent(t *testing.T) {
	mesh := parseOBJString(t, `
v 0 0 0
v 1 0 0
v 0 1 0
v 1 1 0
vt 0 0
vt 1 0
vt 0 1
vt 1 1
vn 0 0 1
f 1/1/1 2/2/1 3/3/1
f 3/3/1 2/2/1 4/4/1
`)

	if len(mesh.Vertices) != 4 {
		t.Errorf("expected 4 vertices, got %d", len(mesh.Vertices))
	}
	if !reflect.DeepEqual(mesh.Indices, []uint32{0, 1, 2, 2, 1, 3}) {
		t.Errorf("indices = %v", mesh.Indices)
	}
	if mesh.Stats.Duplicates != 0 {
		t.Errorf("expected no duplicates, got %d", mesh.Stats.Duplicates)
	}
}

func TestParseOBJ_Welding(t *testing.T) {
	mesh := parseOBJString(t, `
v 0 0 0
v 1 0 0
v 0 1 0
v 1 1 0
vt 0 0
vt 1 0
vn 0 0 1
vn 0 0 -1
f 1/1/1 2/2/1 3/1/1
f 1/2/2 3/1/1 4/1/1
f 1/2/2 2/2/1 4/1/1
f 1/1/2 2/2/1 3/1/1
f 1/1/2 1/2/2 1/1/1
`)

	// Slots 0-3 are roots; position 1 grows a chain of two extra combinations.
	wantIndices := []uint32{
		0, 1, 2,
		4, 2, 3,
		4, 1, 3,
		5, 1, 2,
		5, 4, 0,
	}
	if !reflect.DeepEqual(mesh.Indices, wantIndices) {
		t.Errorf("indices = %v, want %v", mesh.Indices, wantIndices)
	}
	if len(mesh.Vertices) != 6 {
		t.Fatalf("expected 6 vertices, got %d", len(mesh.Vertices))
	}

	root := mesh.Vertices[0]
	for _, slot := range []int{4, 5} {
		dup := mesh.Vertices[slot]
		if dup.Position != root.Position {
			t.Errorf("slot %d: position %v, want %v", slot, dup.Position, root.Position)
		}
		if dup.TexCoord == root.TexCoord && dup.Normal == root.Normal {
			t.Errorf("slot %d: duplicate has the root's attributes", slot)
		}
	}
	if mesh.Vertices[4].TexCoord != (math.Vec2{X: 1, Y: 1}) || mesh.Vertices[4].Normal != (math.Vec3{X: 0, Y: 0, Z: -1}) {
		t.Errorf("slot 4 = %+v", mesh.Vertices[4])
	}
	if mesh.Vertices[5].TexCoord != (math.Vec2{X: 0, Y: 1}) || mesh.Vertices[5].Normal != (math.Vec3{X: 0, Y: 0, Z: -1}) {
		t.Errorf("slot 5 = %+v", mesh.Vertices[5])
	}
	if mesh.Stats.Duplicates != 2 {
		t.Errorf("expected 2 duplicates, got %d", mesh.Stats.Duplicates)
	}
}

func TestParseOBJ_ExactEquality(t *testing.T) {
	mesh := parseOBJString(t, `
v 0 0 0
v 1 0 0
v 0 1 0
vt 0.1 0.1
vt 0.1000001 0.1
vn 0 0 1
f 1/1/1 2/1/1 3/1/1
f 1/2/1 2/1/1 3/1/1
`)

	if len(mesh.Vertices) != 4 {
		t.Errorf("nearly equal texcoords must not weld: got %d vertices, want 4", len(mesh.Vertices))
	}
}

func TestParseOBJ_MalformedLines(t *testing.T) {
	src := `v 0 0 0
v 1 0 0
v 0 1 0
v 1 2
vt 0 0
vt a b
vn 0 0 1
f 1/1/1 2/1/1 3/1/1
f 1/1/1 2/1/1
f 1/1 2/1 3/1
f 1/1/ 2/1/1 3/1/1
f 1/1/1 2/1/1 3/1/1 1/1/1
f 9/1/1 2/1/1 3/1/1
f 0/1/1 2/1/1 3/1/1
f -1/1/1 2/1/1 3/1/1
f 1/1/1 3/1/1 2/1/1
`
	mesh := parseOBJString(t, src)

	// Only the first and the last face are valid.
	if mesh.IndexCount() != 6 {
		t.Errorf("expected 6 indices, got %d", mesh.IndexCount())
	}
	if mesh.Stats.Faces != 2 {
		t.Errorf("expected 2 faces, got %d", mesh.Stats.Faces)
	}
	if !reflect.DeepEqual(mesh.Indices, []uint32{0, 1, 2, 0, 2, 1}) {
		t.Errorf("indices = %v", mesh.Indices)
	}

	want := []struct {
		line int
		kind OBJWarningKind
	}{
		{4, OBJMalformedLine},
		{6, OBJMalformedLine},
		{9, OBJUnsupportedFace},
		{10, OBJUnsupportedFace},
		{11, OBJUnsupportedFace},
		{12, OBJUnsupportedFace},
		{13, OBJIndexOutOfRange},
		{14, OBJUnsupportedFace},
		{15, OBJUnsupportedFace},
	}
	if len(mesh.Warnings) != len(want) {
		t.Fatalf("expected %d warnings, got %d: %v", len(want), len(mesh.Warnings), mesh.Warnings)
	}
	for i, w := range want {
		got := mesh.Warnings[i]
		if got.Line != w.line || got.Kind != w.kind {
			t.Errorf("warning %d: got line %d %s, want line %d %s", i, got.Line, got.Kind, w.line, w.kind)
		}
	}
}

func TestParseOBJ_ExtraComponents(t *testing.T) {
	mesh := parseOBJString(t, `
v 0 0 0 1
v 1 0 0 1.0 0.5 0.25 1
v 0 1 0 0.9 0.1 0.1
vt 0.5 0.25 0
vn 0 0 1 extra
f 1/1/1 2/1/1 3/1/1
`)

	if len(mesh.Warnings) != 0 {
		t.Fatalf("expected no warnings, got %v", mesh.Warnings)
	}
	if mesh.VertexCount() != 3 || mesh.IndexCount() != 3 {
		t.Fatalf("expected 3 vertices and 3 indices, got %d and %d", mesh.VertexCount(), mesh.IndexCount())
	}
	if p := mesh.Vertices[1].Position; p != (math.Vec3{X: 1, Y: 0, Z: 0}) {
		t.Errorf("position = %v, want {1 0 0}", p)
	}
	if tc := mesh.Vertices[0].TexCoord; tc != (math.Vec2{X: 0.5, Y: 0.75}) {
		t.Errorf("texcoord = %v, want {0.5 0.75}", tc)
	}
}

func TestParseOBJ_OutOfRangeNumbers(t *testing.T) {
	mesh := parseOBJString(t, `
v 1e39 0 0
v 0 -1e39 0
v 0 0 0
vt 0 0
vn 0 0 1
f 1/1/1 2/1/1 3/1/1
`)

	if len(mesh.Warnings) != 0 {
		t.Fatalf("expected no warnings, got %v", mesh.Warnings)
	}
	if mesh.IndexCount() != 3 {
		t.Fatalf("expected 3 indices, got %d", mesh.IndexCount())
	}
	if x := mesh.Vertices[0].Position.X; !gomath.IsInf(float64(x), 1) {
		t.Errorf("x = %v, want +Inf", x)
	}
	// Y is negated on read.
	if y := mesh.Vertices[1].Position.Y; !gomath.IsInf(float64(y), 1) {
		t.Errorf("y = %v, want +Inf", y)
	}
}

func TestParseOBJ_LogsWarnings(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)

	_, err := ParseOBJ(strings.NewReader("v 0 0\nf 1/1/1\n"), OBJOptions{Logger: zap.New(core)})
	if err != nil {
		t.Fatalf("ParseOBJ failed: %v", err)
	}

	entries := logs.FilterMessage("skipping OBJ line").All()
	if len(entries) != 2 {
		t.Fatalf("expected 2 logged warnings, got %d", len(entries))
	}
	if line := entries[0].ContextMap()["line"]; line != int64(1) {
		t.Errorf("first warning line = %v, want 1", line)
	}
	if kind := entries[1].ContextMap()["kind"]; kind != "UnsupportedFace" {
		t.Errorf("second warning kind = %v, want UnsupportedFace", kind)
	}
}

func TestParseOBJ_Strict(t *testing.T) {
	src := "v 0 0 0\nv 1 0 0\nv 0 1 0\nvt 0 0\nvn 0 0 1\nf 1/1/1 2/1/1\n"

	_, err := ParseOBJ(strings.NewReader(src), OBJOptions{Strict: true})
	var lineErr *OBJLineError
	if !errors.As(err, &lineErr) {
		t.Fatalf("expected *OBJLineError, got %v", err)
	}
	if lineErr.Line != 6 || lineErr.Kind != OBJUnsupportedFace {
		t.Errorf("got line %d %s, want line 6 UnsupportedFace", lineErr.Line, lineErr.Kind)
	}
}

func TestParseOBJ_ElementLimit(t *testing.T) {
	src := "v 0 0 0\nv 1 0 0\nv 0 1 0\n"

	_, err := ParseOBJ(strings.NewReader(src), OBJOptions{MaxElements: 2})
	if !errors.Is(err, ErrOBJOutOfMemory) {
		t.Fatalf("expected ErrOBJOutOfMemory, got %v", err)
	}

	// Duplicates push the vertex array past the limit even when attributes fit.
	src = `v 0 0 0
v 1 0 0
v 0 1 0
vt 0 0
vt 1 1
vn 0 0 1
f 1/1/1 2/1/1 3/1/1
f 1/2/1 2/2/1 3/2/1
`
	_, err = ParseOBJ(strings.NewReader(src), OBJOptions{MaxElements: 4})
	if !errors.Is(err, ErrOBJOutOfMemory) {
		t.Fatalf("expected ErrOBJOutOfMemory for welded vertices, got %v", err)
	}
}

func TestParseOBJ_Empty(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"empty", ""},
		{"comments only", "# nothing here\n\n   \n"},
		{"attributes only", "v 0 0 0\nvt 0 0\nvn 0 0 1\n"},
		{"unsupported lines", "mtllib a.mtl\nusemtl b\no thing\ng group\ns 1\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mesh := parseOBJString(t, tt.src)
			if mesh.VertexCount() != 0 || mesh.IndexCount() != 0 {
				t.Errorf("expected empty mesh, got %d vertices, %d indices", mesh.VertexCount(), mesh.IndexCount())
			}
			if _, ok := mesh.Bounds(); ok {
				t.Error("expected no bounds for empty mesh")
			}
		})
	}
}

func TestParseOBJ_LongLinesAndCRLF(t *testing.T) {
	long := "1." + strings.Repeat("0", 400)
	src := "v " + long + " 0 0\r\n" +
		"v 0 1 0   # trailing comment\r\n" +
		"v\t0\t0\t1\r\n" +
		"vt 0 0\r\n" +
		"vn 0 0 1\r\n" +
		"f 1/1/1 2/1/1 3/1/1" // no final newline

	mesh := parseOBJString(t, src)
	if len(mesh.Warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", mesh.Warnings)
	}
	if mesh.IndexCount() != 3 {
		t.Fatalf("expected 3 indices, got %d", mesh.IndexCount())
	}
	if mesh.Vertices[0].Position.X != 1 {
		t.Errorf("long line parsed as %v, want 1", mesh.Vertices[0].Position.X)
	}
	if mesh.Vertices[1].Position.Y != -1 {
		t.Errorf("commented line parsed as %v, want -1", mesh.Vertices[1].Position.Y)
	}
}

func TestParseOBJ_PositionsAfterFirstFace(t *testing.T) {
	mesh := parseOBJString(t, `
v 0 0 0
v 1 0 0
v 0 1 0
vt 0 0
vn 0 0 1
f 1/1/1 2/1/1 3/1/1
v 5 5 5
f 4/1/1 1/1/1 2/1/1
f 4/1/1 3/1/1 1/1/1
`)

	if !reflect.DeepEqual(mesh.Indices, []uint32{0, 1, 2, 3, 0, 1, 3, 2, 0}) {
		t.Errorf("indices = %v", mesh.Indices)
	}
	if len(mesh.Vertices) != 4 {
		t.Fatalf("expected 4 vertices, got %d", len(mesh.Vertices))
	}
	if mesh.Vertices[3].Position != (math.Vec3{X: 5, Y: -5, Z: 5}) {
		t.Errorf("late position = %v", mesh.Vertices[3].Position)
	}
	if mesh.Stats.Duplicates != 0 {
		t.Errorf("late root must not count as duplicate, got %d", mesh.Stats.Duplicates)
	}
}

func TestParseOBJ_UnreferencedPositions(t *testing.T) {
	mesh := parseOBJString(t, `
v 9 9 9
v 0 0 0
v 1 0 0
v 0 1 0
vt 0 0
vn 0 0 1
f 2/1/1 3/1/1 4/1/1
`)

	if len(mesh.Vertices) != 4 {
		t.Fatalf("expected 4 vertices, got %d", len(mesh.Vertices))
	}
	if mesh.Vertices[0] != (OBJVertex{}) {
		t.Errorf("unreferenced slot = %+v, want zero vertex", mesh.Vertices[0])
	}

	b, ok := mesh.Bounds()
	if !ok {
		t.Fatal("expected bounds")
	}
	if b.Max.X != 1 || b.Min.Y != -1 {
		t.Errorf("bounds %+v include the unreferenced vertex", b)
	}
}

func TestParseOBJ_Deterministic(t *testing.T) {
	a, err := ParseOBJFile(filepath.Join("testdata", "cube.obj"), OBJOptions{})
	if err != nil {
		t.Fatalf("first parse failed: %v", err)
	}
	b, err := ParseOBJFile(filepath.Join("testdata", "cube.obj"), OBJOptions{})
	if err != nil {
		t.Fatalf("second parse failed: %v", err)
	}

	if !reflect.DeepEqual(a.Vertices, b.Vertices) {
		t.Error("vertices differ between runs")
	}
	if !reflect.DeepEqual(a.Indices, b.Indices) {
		t.Error("indices differ between runs")
	}
}

func TestOBJVertex_Layout(t *testing.T) {
	if size := unsafe.Sizeof(OBJVertex{}); size != 32 {
		t.Errorf("OBJVertex size = %d, want 32", size)
	}
	if off := unsafe.Offsetof(OBJVertex{}.TexCoord); off != 12 {
		t.Errorf("TexCoord offset = %d, want 12", off)
	}
	if off := unsafe.Offsetof(OBJVertex{}.Normal); off != 20 {
		t.Errorf("Normal offset = %d, want 20", off)
	}
}

func TestOBJBounds(t *testing.T) {
	b := OBJBounds{Min: math.Vec3{X: -1, Y: -2, Z: -2}, Max: math.Vec3{X: 1, Y: 2, Z: 2}}

	if c := b.Center(); c != (math.Vec3{}) {
		t.Errorf("Center() = %v, want origin", c)
	}
	if r := b.Radius(); r != 3 {
		t.Errorf("Radius() = %v, want 3", r)
	}
}

func TestOBJWarningKind_String(t *testing.T) {
	tests := []struct {
		kind OBJWarningKind
		want string
	}{
		{OBJMalformedLine, "MalformedLine"},
		{OBJUnsupportedFace, "UnsupportedFace"},
		{OBJIndexOutOfRange, "IndexOutOfRange"},
		{OBJWarningKind(42), "Unknown(42)"},
	}

	for _, tc := range tests {
		if got := tc.kind.String(); got != tc.want {
			t.Errorf("%d.String() = %q, want %q", int(tc.kind), got, tc.want)
		}
	}
}
