// Package renderer draws uploaded meshes with OpenGL.
package renderer

import (
	"fmt"

	"github.com/go-gl/gl/v4.1-core/gl"
	"go.uber.org/zap"

	"github.com/Faultbox/korori/internal/engine/mesh"
	"github.com/Faultbox/korori/internal/engine/shader"
	"github.com/Faultbox/korori/internal/logger"
	"github.com/Faultbox/korori/pkg/math"
)

// Config holds renderer configuration.
type Config struct {
	Width          int
	Height         int
	Background     [3]float32
	Wireframe      bool
	VertexShader   string
	FragmentShader string
}

// Frame holds the per-frame transforms.
type Frame struct {
	View       math.Mat4
	Projection math.Mat4
	LightDir   math.Vec3
}

// Renderer draws meshes with a single shader program.
type Renderer struct {
	config  Config
	program *shader.Program
}

// New creates a new renderer.
// Must be called after the OpenGL context is created.
func New(cfg Config) (*Renderer, error) {
	if err := gl.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize OpenGL: %w", err)
	}

	logger.Info("OpenGL initialized",
		zap.String("version", gl.GoStr(gl.GetString(gl.VERSION))),
		zap.String("renderer", gl.GoStr(gl.GetString(gl.RENDERER))),
	)

	program, err := shader.Compile(cfg.VertexShader, cfg.FragmentShader)
	if err != nil {
		return nil, fmt.Errorf("failed to create shader program: %w", err)
	}

	gl.Enable(gl.DEPTH_TEST)
	gl.DepthFunc(gl.LESS)
	gl.Disable(gl.CULL_FACE)
	gl.ClearColor(cfg.Background[0], cfg.Background[1], cfg.Background[2], 1.0)

	r := &Renderer{config: cfg, program: program}
	r.SetWireframe(cfg.Wireframe)
	r.Resize(cfg.Width, cfg.Height)
	return r, nil
}

// Close releases renderer resources.
func (r *Renderer) Close() {
	logger.Debug("closing renderer")
	r.program.Delete()
}

// Resize updates the viewport.
func (r *Renderer) Resize(width, height int) {
	r.config.Width = width
	r.config.Height = height
	gl.Viewport(0, 0, int32(width), int32(height))
	logger.Debug("renderer resized",
		zap.Int("width", width),
		zap.Int("height", height),
	)
}

// Aspect returns the viewport width/height ratio.
func (r *Renderer) Aspect() float32 {
	if r.config.Height == 0 {
		return 1
	}
	return float32(r.config.Width) / float32(r.config.Height)
}

// SetWireframe toggles line rendering of triangles.
func (r *Renderer) SetWireframe(on bool) {
	r.config.Wireframe = on
	if on {
		gl.PolygonMode(gl.FRONT_AND_BACK, gl.LINE)
	} else {
		gl.PolygonMode(gl.FRONT_AND_BACK, gl.FILL)
	}
}

// Wireframe reports whether line rendering is on.
func (r *Renderer) Wireframe() bool {
	return r.config.Wireframe
}

// Begin clears the frame and binds the shader with the frame transforms.
func (r *Renderer) Begin(f Frame) {
	gl.Clear(gl.COLOR_BUFFER_BIT | gl.DEPTH_BUFFER_BIT)

	r.program.Use()
	r.program.SetMat4("uView", f.View)
	r.program.SetMat4("uProjection", f.Projection)
	r.program.SetVec3("uLightDir", f.LightDir)
}

// DrawMesh draws m with the given model transform and color.
func (r *Renderer) DrawMesh(m *mesh.GPUMesh, model math.Mat4, color math.Vec3) {
	r.program.SetMat4("uModel", model)
	r.program.SetVec3("uBaseColor", color)
	m.Draw()
}

// ReadPixels returns the current back buffer as bottom-up RGBA rows.
func (r *Renderer) ReadPixels() ([]byte, int, int) {
	width, height := r.config.Width, r.config.Height
	pixels := make([]byte, width*height*4)
	if len(pixels) == 0 {
		return pixels, width, height
	}

	gl.PixelStorei(gl.PACK_ALIGNMENT, 1)
	gl.ReadBuffer(gl.BACK)
	gl.ReadPixels(0, 0, int32(width), int32(height), gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(pixels))
	return pixels, width, height
}
