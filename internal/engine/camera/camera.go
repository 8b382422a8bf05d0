// Package camera provides the orbit camera used by the mesh viewer.
package camera

import (
	"github.com/chewxy/math32"

	"github.com/Faultbox/korori/pkg/formats"
	"github.com/Faultbox/korori/pkg/math"
)

// OrbitCamera orbits around a center point.
type OrbitCamera struct {
	Center math.Vec3
	Up     math.Vec3

	// Spherical coordinates
	Distance float32 // Distance from center
	Pitch    float32 // Elevation above the horizontal plane (radians)
	Yaw      float32 // Rotation around Up (radians)

	// Constraints
	MinDistance float32
	MaxDistance float32
	MinPitch    float32
	MaxPitch    float32

	// Sensitivity
	DragSensitivity float32
	ZoomSensitivity float32
}

// NewOrbitCamera creates a new orbit camera with default settings.
// Imported OBJ meshes have their Y axis negated, so Up points down -Y.
func NewOrbitCamera() *OrbitCamera {
	return &OrbitCamera{
		Up:              math.Vec3{X: 0, Y: -1, Z: 0},
		Distance:        5.0,
		Pitch:           0.4,
		Yaw:             0.6,
		MinDistance:     0.01,
		MaxDistance:     1000.0,
		MinPitch:        -1.5,
		MaxPitch:        1.5,
		DragSensitivity: 0.005,
		ZoomSensitivity: 0.1,
	}
}

// Position returns the camera position in world space.
func (c *OrbitCamera) Position() math.Vec3 {
	sinPitch, cosPitch := math32.Sincos(c.Pitch)
	sinYaw, cosYaw := math32.Sincos(c.Yaw)

	offset := math.Vec3{
		X: c.Distance * cosPitch * sinYaw,
		Z: c.Distance * cosPitch * cosYaw,
	}
	return c.Center.Add(offset).Add(c.Up.Scale(c.Distance * sinPitch))
}

// ViewMatrix returns the view matrix for this camera.
func (c *OrbitCamera) ViewMatrix() math.Mat4 {
	return math.LookAt(c.Position(), c.Center, c.Up)
}

// HandleDrag updates rotation based on mouse drag delta.
func (c *OrbitCamera) HandleDrag(deltaX, deltaY float32) {
	c.Yaw -= deltaX * c.DragSensitivity
	c.Pitch += deltaY * c.DragSensitivity
	c.Pitch = clamp(c.Pitch, c.MinPitch, c.MaxPitch)
}

// HandleZoom updates distance based on scroll wheel delta.
func (c *OrbitCamera) HandleZoom(delta float32) {
	c.Distance -= delta * c.Distance * c.ZoomSensitivity
	c.Distance = clamp(c.Distance, c.MinDistance, c.MaxDistance)
}

// FitToBounds centers the camera on b and backs off far enough that the
// bounding sphere fits a vertical field of view of fovY radians.
func (c *OrbitCamera) FitToBounds(b formats.OBJBounds, fovY float32) {
	c.Center = b.Center()

	radius := b.Radius()
	if radius <= 0 {
		radius = 1
	}

	c.Distance = radius / math32.Sin(fovY/2) * 1.1
	c.MinDistance = radius * 0.05
	c.MaxDistance = c.Distance * 20
}

// UnitTransform returns the model matrix that moves the center of b to the
// origin and scales its bounding sphere to radius 1.
func UnitTransform(b formats.OBJBounds) math.Mat4 {
	scale := float32(1)
	if r := b.Radius(); r > 0 {
		scale = 1 / r
	}
	c := b.Center()
	return math.Scale(scale).Mul(math.Translate(-c.X, -c.Y, -c.Z))
}

// TransformBounds applies m to both corners of b.
// Only valid for translations and positive uniform scales.
func TransformBounds(b formats.OBJBounds, m math.Mat4) formats.OBJBounds {
	return formats.OBJBounds{Min: m.TransformPoint(b.Min), Max: m.TransformPoint(b.Max)}
}

// ClipPlanes returns near and far planes that enclose a sphere of the given radius around Center.
func (c *OrbitCamera) ClipPlanes(radius float32) (near, far float32) {
	far = c.Distance + radius*2
	near = far / 10000
	if d := c.Distance - radius; d > near {
		near = d
	}
	return near, far
}

func clamp(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
