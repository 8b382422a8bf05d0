// Package math provides float32 vector and matrix types for mesh processing and rendering.
package math

// Vec2 is a 2D vector, used for texture coordinates.
type Vec2 struct {
	X, Y float32
}
