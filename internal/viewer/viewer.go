// Package viewer is an interactive window that displays a welded OBJ mesh.
package viewer

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/chewxy/math32"
	"github.com/veandco/go-sdl2/sdl"
	"go.uber.org/zap"

	"github.com/Faultbox/korori/internal/config"
	"github.com/Faultbox/korori/internal/engine/camera"
	"github.com/Faultbox/korori/internal/engine/debug"
	"github.com/Faultbox/korori/internal/engine/input"
	"github.com/Faultbox/korori/internal/engine/mesh"
	"github.com/Faultbox/korori/internal/engine/renderer"
	"github.com/Faultbox/korori/internal/engine/window"
	"github.com/Faultbox/korori/internal/logger"
	"github.com/Faultbox/korori/internal/viewer/shaders"
	"github.com/Faultbox/korori/pkg/formats"
	"github.com/Faultbox/korori/pkg/math"
)

var meshColor = math.Vec3{X: 0.75, Y: 0.72, Z: 0.65}

// turntableSpeed is the turntable rotation in radians per second.
const turntableSpeed = 0.6

// Viewer owns the window, the GPU mesh and the camera.
type Viewer struct {
	cfg       *config.Config
	name      string
	obj       *formats.OBJMesh
	normalize math.Mat4         // mesh space to unit space
	bounds    formats.OBJBounds // in unit space
	spin      float32
	turntable bool
	window    *window.Window
	renderer  *renderer.Renderer
	input     *input.Input
	camera    *camera.OrbitCamera
	gpuMesh   *mesh.GPUMesh
	shots     *debug.Screenshots
	running   bool
	capture   bool
}

// New loads the OBJ file at path and opens a window showing it.
func New(cfg *config.Config, path string) (*Viewer, error) {
	obj, err := formats.ParseOBJFile(path, cfg.Loader.OBJOptions(logger.Named("obj")))
	if err != nil {
		return nil, err
	}

	bounds, ok := obj.Bounds()
	if !ok {
		return nil, fmt.Errorf("%s: %w", path, mesh.ErrEmptyMesh)
	}

	logger.Info("mesh loaded",
		zap.String("path", path),
		zap.Int("vertices", obj.VertexCount()),
		zap.Int("triangles", obj.TriangleCount()),
		zap.Int("duplicates", obj.Stats.Duplicates),
		zap.Int("warnings", len(obj.Warnings)),
	)

	normalize := camera.UnitTransform(bounds)
	v := &Viewer{
		cfg:       cfg,
		name:      filepath.Base(path),
		obj:       obj,
		normalize: normalize,
		bounds:    camera.TransformBounds(bounds, normalize),
		input:     input.New(),
		camera:    camera.NewOrbitCamera(),
		shots:     debug.NewScreenshots(cfg.Viewer.ScreenshotDir, path),
	}

	v.window, err = window.New(window.Config{
		Title:      "Korori - " + v.name,
		Width:      cfg.Viewer.Width,
		Height:     cfg.Viewer.Height,
		Fullscreen: cfg.Viewer.Fullscreen,
		VSync:      cfg.Viewer.VSync,
	})
	if err != nil {
		return nil, fmt.Errorf("creating window: %w", err)
	}

	width, height := v.window.DrawableSize()
	v.renderer, err = renderer.New(renderer.Config{
		Width:          width,
		Height:         height,
		Background:     cfg.Viewer.Background,
		Wireframe:      cfg.Viewer.Wireframe,
		VertexShader:   shaders.MeshVertexShader,
		FragmentShader: shaders.MeshFragmentShader,
	})
	if err != nil {
		v.window.Close()
		return nil, fmt.Errorf("creating renderer: %w", err)
	}

	v.gpuMesh, err = mesh.Upload(obj)
	if err != nil {
		v.renderer.Close()
		v.window.Close()
		return nil, fmt.Errorf("uploading mesh: %w", err)
	}

	logger.Debug("mesh uploaded", zap.Int32("indices", v.gpuMesh.IndexCount()))

	v.resetCamera()
	return v, nil
}

func (v *Viewer) fovY() float32 {
	return v.cfg.Viewer.FOVDegrees * math32.Pi / 180
}

func (v *Viewer) resetCamera() {
	v.camera = camera.NewOrbitCamera()
	v.camera.FitToBounds(v.bounds, v.fovY())
	v.spin = 0
}

// Run shows the mesh until the window is closed or ESC is pressed.
//
// Controls: left-drag orbits, the wheel zooms, F toggles wireframe, T
// toggles the turntable, R resets the camera and F12 saves a screenshot.
func (v *Viewer) Run() error {
	v.running = true

	frameCount := 0
	fpsTimer := time.Now()
	lastFrame := fpsTimer

	for v.running {
		if v.input.Update() {
			v.running = false
			break
		}

		for _, event := range v.input.Events() {
			v.handle(event)
		}

		now := time.Now()
		if v.turntable {
			v.spin = math32.Mod(v.spin+float32(now.Sub(lastFrame).Seconds())*turntableSpeed, 2*math32.Pi)
		}
		lastFrame = now

		v.render()
		if v.capture {
			v.capture = false
			v.screenshot()
		}
		v.window.SwapBuffers()

		frameCount++
		if elapsed := time.Since(fpsTimer); elapsed >= time.Second {
			fps := float64(frameCount) / elapsed.Seconds()
			v.window.SetTitle(fmt.Sprintf("Korori - %s - %d tris - %.0f fps", v.name, v.obj.TriangleCount(), fps))
			frameCount = 0
			fpsTimer = time.Now()
		}
	}

	return nil
}

func (v *Viewer) handle(event input.Event) {
	switch event.Type {
	case input.EventWindowResize:
		width, height := v.window.DrawableSize()
		v.renderer.Resize(width, height)
	case input.EventDrag:
		v.camera.HandleDrag(event.DX, event.DY)
	case input.EventScroll:
		v.camera.HandleZoom(event.DY)
	case input.EventKeyDown:
		switch event.Key {
		case sdl.SCANCODE_ESCAPE:
			v.running = false
		case sdl.SCANCODE_F:
			v.renderer.SetWireframe(!v.renderer.Wireframe())
		case sdl.SCANCODE_R:
			v.resetCamera()
		case sdl.SCANCODE_T:
			v.turntable = !v.turntable
		case sdl.SCANCODE_F12:
			v.capture = true
		}
	}
}

func (v *Viewer) render() {
	nearPlane, farPlane := v.camera.ClipPlanes(v.bounds.Radius())

	v.renderer.Begin(renderer.Frame{
		View:       v.camera.ViewMatrix(),
		Projection: math.Perspective(v.fovY(), v.renderer.Aspect(), nearPlane, farPlane),
		LightDir:   v.camera.Position().Sub(v.camera.Center),
	})
	v.renderer.DrawMesh(v.gpuMesh, math.RotateY(v.spin).Mul(v.normalize), meshColor)
}

func (v *Viewer) screenshot() {
	pixels, width, height := v.renderer.ReadPixels()
	path, err := v.shots.Save(pixels, width, height)
	if err != nil {
		logger.Warn("screenshot failed", zap.Error(err))
		return
	}
	logger.Info("screenshot saved", zap.String("path", path))
}

// Close releases GPU resources and the window.
func (v *Viewer) Close() {
	logger.Debug("closing viewer")
	if v.gpuMesh != nil {
		v.gpuMesh.Delete()
	}
	if v.renderer != nil {
		v.renderer.Close()
	}
	if v.window != nil {
		v.window.Close()
	}
}
