package formats

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	gomath "math"
	"os"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/Faultbox/korori/pkg/math"
)

// OBJ format errors.
var (
	ErrOBJOutOfMemory = errors.New("OBJ mesh exceeds element limit")
)

// DefaultOBJMaxElements caps every growable array of the loader.
// Output indices are uint32 and chain links are int32, so this is the largest usable limit.
const DefaultOBJMaxElements = gomath.MaxInt32

// objMinCapacity is the capacity of a growable array on its first growth.
const objMinCapacity = 16

// OBJWarningKind classifies a skipped OBJ line.
type OBJWarningKind int

// Warning kinds.
const (
	OBJMalformedLine   OBJWarningKind = iota // wrong token count or unparsable number
	OBJUnsupportedFace                       // not a triangle, or a corner not in i/j/k form
	OBJIndexOutOfRange                       // corner references an attribute that was never declared
)

// String returns a human-readable warning kind.
func (k OBJWarningKind) String() string {
	switch k {
	case OBJMalformedLine:
		return "MalformedLine"
	case OBJUnsupportedFace:
		return "UnsupportedFace"
	case OBJIndexOutOfRange:
		return "IndexOutOfRange"
	default:
		return fmt.Sprintf("Unknown(%d)", int(k))
	}
}

// OBJWarning describes a line that was skipped during parsing.
type OBJWarning struct {
	Line   int // 1-based line number
	Kind   OBJWarningKind
	Text   string // the offending line, trimmed
	Reason string
}

// String formats the warning as "line N: Kind: reason".
func (w OBJWarning) String() string {
	return fmt.Sprintf("line %d: %s: %s", w.Line, w.Kind, w.Reason)
}

// OBJLineError is returned instead of a warning when OBJOptions.Strict is set.
type OBJLineError struct {
	OBJWarning
}

func (e *OBJLineError) Error() string {
	return "OBJ " + e.OBJWarning.String()
}

// OBJOptions controls OBJ parsing.
type OBJOptions struct {
	// Logger receives one warn entry per skipped line. Nil disables logging.
	Logger *zap.Logger
	// MaxElements limits every growable array (attributes, vertices, indices, chain nodes).
	// Zero means DefaultOBJMaxElements.
	MaxElements int
	// Strict fails the parse on the first skipped line.
	Strict bool
}

// OBJVertex is a welded vertex in GPU-ready layout (32 bytes, tightly packed).
type OBJVertex struct {
	Position math.Vec3
	TexCoord math.Vec2
	Normal   math.Vec3
}

// OBJStats holds counters collected while parsing.
type OBJStats struct {
	Positions  int // v lines accepted
	TexCoords  int // vt lines accepted
	Normals    int // vn lines accepted
	Faces      int // f lines welded
	Duplicates int // vertices split off a root because of differing texcoord/normal
}

// OBJBounds is an axis-aligned bounding box.
type OBJBounds struct {
	Min math.Vec3
	Max math.Vec3
}

// Center returns the midpoint of the box.
func (b OBJBounds) Center() math.Vec3 {
	return b.Min.Add(b.Max).Scale(0.5)
}

// Radius returns half the diagonal length of the box.
func (b OBJBounds) Radius() float32 {
	return b.Max.Sub(b.Min).Length() / 2
}

// OBJMesh is a welded, indexed triangle mesh loaded from a Wavefront OBJ file.
type OBJMesh struct {
	Vertices []OBJVertex
	Indices  []uint32 // three per triangle
	Warnings []OBJWarning
	Stats    OBJStats
}

// VertexCount returns the number of welded vertices.
func (m *OBJMesh) VertexCount() int {
	return len(m.Vertices)
}

// IndexCount returns the number of indices.
func (m *OBJMesh) IndexCount() int {
	return len(m.Indices)
}

// TriangleCount returns the number of triangles.
func (m *OBJMesh) TriangleCount() int {
	return len(m.Indices) / 3
}

// Bounds returns the bounding box of all vertices referenced by Indices.
// Returns false if the mesh has no triangles.
func (m *OBJMesh) Bounds() (OBJBounds, bool) {
	if len(m.Indices) == 0 {
		return OBJBounds{}, false
	}

	first := m.Vertices[m.Indices[0]].Position
	b := OBJBounds{Min: first, Max: first}
	for _, idx := range m.Indices[1:] {
		p := m.Vertices[idx].Position
		b.Min = math.Vec3{X: min(b.Min.X, p.X), Y: min(b.Min.Y, p.Y), Z: min(b.Min.Z, p.Z)}
		b.Max = math.Vec3{X: max(b.Max.X, p.X), Y: max(b.Max.Y, p.Y), Z: max(b.Max.Z, p.Z)}
	}
	return b, true
}

// ParseOBJFile parses an OBJ file from disk.
func ParseOBJFile(path string, opts OBJOptions) (*OBJMesh, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening OBJ file: %w", err)
	}
	defer f.Close()

	mesh, err := ParseOBJ(f, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return mesh, nil
}

// ParseOBJ parses the triangle subset of the Wavefront OBJ format and welds
// identical (position, texcoord, normal) corners into shared vertices.
//
// Supported lines are "v x y z", "vt s t", "vn x y z" and triangular
// "f v/vt/vn v/vt/vn v/vt/vn". Position Y is negated and texcoord T is
// flipped to 1-t on read. Other lines are ignored; recognized lines with bad
// syntax are skipped and reported in OBJMesh.Warnings.
func ParseOBJ(r io.Reader, opts OBJOptions) (*OBJMesh, error) {
	p := newOBJParser(opts)

	br := bufio.NewReader(r)
	for {
		text, readErr := br.ReadString('\n')
		if len(text) > 0 {
			p.line++
			if err := p.parseLine(text); err != nil {
				return nil, err
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return nil, fmt.Errorf("reading OBJ line %d: %w", p.line+1, readErr)
		}
	}

	return p.finish(), nil
}

// objParser holds the state of a single ParseOBJ call.
type objParser struct {
	log    *zap.Logger
	limit  int
	strict bool
	line   int

	// Raw attributes in file order, 0-based.
	positions []math.Vec3
	texcoords []math.Vec2
	normals   []math.Vec3

	// Created by the first f line.
	welder *objWelder

	warnings []OBJWarning
	faces    int
}

func newOBJParser(opts OBJOptions) *objParser {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	limit := opts.MaxElements
	if limit <= 0 || limit > DefaultOBJMaxElements {
		limit = DefaultOBJMaxElements
	}

	return &objParser{
		log:    log,
		limit:  limit,
		strict: opts.Strict,
	}
}

// parseLine dispatches a raw line by its keyword.
// Only allocation limits and strict-mode rejections are returned as errors.
func (p *objParser) parseLine(raw string) error {
	text := strings.TrimSpace(raw)
	if i := strings.IndexByte(text, '#'); i >= 0 {
		text = strings.TrimSpace(text[:i])
	}

	fields := strings.Fields(text)
	if len(fields) == 0 {
		return nil
	}

	switch fields[0] {
	case "v":
		return p.parsePosition(text, fields[1:])
	case "vt":
		return p.parseTexCoord(text, fields[1:])
	case "vn":
		return p.parseNormal(text, fields[1:])
	case "f":
		return p.parseFace(text, fields[1:])
	}
	return nil
}

func (p *objParser) parsePosition(text string, fields []string) error {
	var v [3]float32
	if err := parseOBJFloats(fields, v[:]); err != nil {
		return p.warn(OBJMalformedLine, text, "v: "+err.Error())
	}

	var err error
	p.positions, err = appendGrow(p.positions, math.Vec3{X: v[0], Y: -v[1], Z: v[2]}, p.limit)
	if err != nil {
		return p.outOfMemory("positions", err)
	}
	return nil
}

func (p *objParser) parseTexCoord(text string, fields []string) error {
	var v [2]float32
	if err := parseOBJFloats(fields, v[:]); err != nil {
		return p.warn(OBJMalformedLine, text, "vt: "+err.Error())
	}

	var err error
	p.texcoords, err = appendGrow(p.texcoords, math.Vec2{X: v[0], Y: 1.0 - v[1]}, p.limit)
	if err != nil {
		return p.outOfMemory("texcoords", err)
	}
	return nil
}

func (p *objParser) parseNormal(text string, fields []string) error {
	var v [3]float32
	if err := parseOBJFloats(fields, v[:]); err != nil {
		return p.warn(OBJMalformedLine, text, "vn: "+err.Error())
	}

	var err error
	p.normals, err = appendGrow(p.normals, math.Vec3{X: v[0], Y: v[1], Z: v[2]}, p.limit)
	if err != nil {
		return p.outOfMemory("normals", err)
	}
	return nil
}

// objCorner is a 0-based face corner reference.
type objCorner struct {
	v, vt, vn int
}

func (p *objParser) parseFace(text string, fields []string) error {
	if p.welder == nil {
		if err := p.freeze(); err != nil {
			return err
		}
	}

	if len(fields) != 3 {
		return p.warn(OBJUnsupportedFace, text, fmt.Sprintf("f: expected 3 corners, got %d", len(fields)))
	}

	// Validate every corner before welding so a bad line contributes nothing.
	var corners [3]objCorner
	for i, field := range fields {
		c, err := parseOBJCorner(field)
		if err != nil {
			return p.warn(OBJUnsupportedFace, text, fmt.Sprintf("f: corner %d: %v", i+1, err))
		}
		if err := p.checkCorner(c); err != nil {
			return p.warn(OBJIndexOutOfRange, text, fmt.Sprintf("f: corner %d: %v", i+1, err))
		}
		corners[i] = c
	}

	for _, c := range corners {
		vert := OBJVertex{
			Position: p.positions[c.v],
			TexCoord: p.texcoords[c.vt],
			Normal:   p.normals[c.vn],
		}
		if err := p.welder.weld(c.v, vert); err != nil {
			return p.outOfMemory("welded mesh", err)
		}
	}
	p.faces++
	return nil
}

// freeze trims the raw arrays and sizes the welder to the positions seen so far.
func (p *objParser) freeze() error {
	p.positions = shrinkSlice(p.positions)
	p.texcoords = shrinkSlice(p.texcoords)
	p.normals = shrinkSlice(p.normals)

	w, err := newOBJWelder(len(p.positions), p.limit)
	if err != nil {
		return p.outOfMemory("root vertices", err)
	}
	p.welder = w

	p.log.Debug("OBJ faces start",
		zap.Int("line", p.line),
		zap.Int("positions", len(p.positions)),
		zap.Int("texcoords", len(p.texcoords)),
		zap.Int("normals", len(p.normals)),
	)
	return nil
}

func (p *objParser) checkCorner(c objCorner) error {
	if c.v >= len(p.positions) {
		return fmt.Errorf("position %d out of range (%d declared)", c.v+1, len(p.positions))
	}
	if c.vt >= len(p.texcoords) {
		return fmt.Errorf("texcoord %d out of range (%d declared)", c.vt+1, len(p.texcoords))
	}
	if c.vn >= len(p.normals) {
		return fmt.Errorf("normal %d out of range (%d declared)", c.vn+1, len(p.normals))
	}
	return nil
}

// warn records a skipped line. In strict mode the line is returned as an error.
func (p *objParser) warn(kind OBJWarningKind, text, reason string) error {
	w := OBJWarning{
		Line:   p.line,
		Kind:   kind,
		Text:   text,
		Reason: reason,
	}

	p.log.Warn("skipping OBJ line",
		zap.Int("line", w.Line),
		zap.Stringer("kind", w.Kind),
		zap.String("reason", w.Reason),
	)

	if p.strict {
		return &OBJLineError{OBJWarning: w}
	}
	p.warnings = append(p.warnings, w)
	return nil
}

func (p *objParser) outOfMemory(what string, err error) error {
	p.log.Error("OBJ element limit reached",
		zap.Int("line", p.line),
		zap.String("array", what),
		zap.Int("limit", p.limit),
	)
	return fmt.Errorf("line %d: %s: %w", p.line, what, err)
}

// finish packages the welded output, trimmed to its exact size.
func (p *objParser) finish() *OBJMesh {
	mesh := &OBJMesh{
		Vertices: []OBJVertex{},
		Indices:  []uint32{},
		Warnings: p.warnings,
		Stats: OBJStats{
			Positions: len(p.positions),
			TexCoords: len(p.texcoords),
			Normals:   len(p.normals),
			Faces:     p.faces,
		},
	}

	if p.welder != nil {
		mesh.Vertices = shrinkSlice(p.welder.vertices)
		mesh.Indices = shrinkSlice(p.welder.indices)
		mesh.Stats.Duplicates = p.welder.duplicates
	}

	p.positions, p.texcoords, p.normals = nil, nil, nil
	p.welder = nil

	p.log.Debug("OBJ parsed",
		zap.Int("vertices", len(mesh.Vertices)),
		zap.Int("indices", len(mesh.Indices)),
		zap.Int("duplicates", mesh.Stats.Duplicates),
		zap.Int("warnings", len(mesh.Warnings)),
	)
	return mesh
}

// parseOBJFloats parses the first len(dst) numbers. Trailing tokens such as a
// w component or vertex colors are ignored. Out-of-range values become ±Inf.
func parseOBJFloats(fields []string, dst []float32) error {
	if len(fields) < len(dst) {
		return fmt.Errorf("expected %d values, got %d", len(dst), len(fields))
	}
	for i := range dst {
		v, err := strconv.ParseFloat(fields[i], 32)
		if err != nil && !errors.Is(err, strconv.ErrRange) {
			return fmt.Errorf("invalid number %q", fields[i])
		}
		dst[i] = float32(v)
	}
	return nil
}

// parseOBJCorner parses "i/j/k" into 0-based indices.
func parseOBJCorner(s string) (objCorner, error) {
	parts := strings.Split(s, "/")
	if len(parts) != 3 {
		return objCorner{}, fmt.Errorf("%q is not in v/vt/vn form", s)
	}

	var idx [3]int
	for i, part := range parts {
		n, err := strconv.ParseInt(part, 10, 32)
		if err != nil {
			return objCorner{}, fmt.Errorf("%q is not in v/vt/vn form", s)
		}
		if n < 1 {
			return objCorner{}, fmt.Errorf("index %d in %q is not supported", n, s)
		}
		idx[i] = int(n - 1)
	}
	return objCorner{v: idx[0], vt: idx[1], vn: idx[2]}, nil
}
