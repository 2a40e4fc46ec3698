// Package spatialmath defines the camera pose shared by the perspective model, the renderer and
// the viewer session.
package spatialmath

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/golang/geo/r3"
)

// DefaultUp is the world up direction used when building view matrices.
var DefaultUp = r3.Vector{X: 0, Y: 1, Z: 0}

// CameraPose is a camera vantage point and the point it looks at.
type CameraPose struct {
	Position r3.Vector
	LookAt   r3.Vector
}

// NewCameraPose returns a pose from raw components.
func NewCameraPose(position, lookAt r3.Vector) CameraPose {
	return CameraPose{Position: position, LookAt: lookAt}
}

// Forward returns the unit gaze direction, or the zero vector when the position and look-at
// coincide.
func (p CameraPose) Forward() r3.Vector {
	dir := p.LookAt.Sub(p.Position)
	if dir.Norm() == 0 {
		return r3.Vector{}
	}
	return dir.Normalize()
}

// Distance is the length between the position and the look-at point.
func (p CameraPose) Distance() float64 {
	return p.LookAt.Sub(p.Position).Norm()
}

// Translate moves both the position and the look-at by delta.
func (p CameraPose) Translate(delta r3.Vector) CameraPose {
	return CameraPose{Position: p.Position.Add(delta), LookAt: p.LookAt.Add(delta)}
}

// ViewMatrix returns the right handed look-at matrix for the pose.
func (p CameraPose) ViewMatrix() mgl64.Mat4 {
	return mgl64.LookAtV(toVec3(p.Position), toVec3(p.LookAt), toVec3(DefaultUp))
}

// ProjectionMatrix returns a perspective projection for a vertical field of view in degrees.
func ProjectionMatrix(fovDegrees, aspect, near, far float64) mgl64.Mat4 {
	return mgl64.Perspective(mgl64.DegToRad(fovDegrees), aspect, near, far)
}

// AlmostEqual compares two poses component-wise within epsilon.
func (p CameraPose) AlmostEqual(other CameraPose, epsilon float64) bool {
	return vectorAlmostEqual(p.Position, other.Position, epsilon) &&
		vectorAlmostEqual(p.LookAt, other.LookAt, epsilon)
}

func (p CameraPose) String() string {
	return fmt.Sprintf("position=(%.4g, %.4g, %.4g) look_at=(%.4g, %.4g, %.4g)",
		p.Position.X, p.Position.Y, p.Position.Z, p.LookAt.X, p.LookAt.Y, p.LookAt.Z)
}

// VectorFromSlice converts a 3 element slice, as found in JSON configs, to a vector.
func VectorFromSlice(values []float64) (r3.Vector, error) {
	if len(values) != 3 {
		return r3.Vector{}, fmt.Errorf("expected 3 components but got %d", len(values))
	}
	return r3.Vector{X: values[0], Y: values[1], Z: values[2]}, nil
}

func toVec3(v r3.Vector) mgl64.Vec3 {
	return mgl64.Vec3{v.X, v.Y, v.Z}
}

func vectorAlmostEqual(a, b r3.Vector, epsilon float64) bool {
	return math.Abs(a.X-b.X) <= epsilon && math.Abs(a.Y-b.Y) <= epsilon && math.Abs(a.Z-b.Z) <= epsilon
}
