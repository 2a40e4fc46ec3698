// Package perspective maps a small viewpoint offset onto either a 3-D camera pose or a 2-D
// parallax transform for flat images. Both projections are pure functions of their inputs.
package perspective

import (
	"fmt"
	"math"

	"github.com/golang/geo/r3"

	"go.viam.com/splatview/spatialmath"
)

const (
	// depthFactor damps the z component of an offset in the 3-D branch.
	depthFactor = 0.5
	// flatIntensityFactor rescales intensity for 2-D transforms, whose useful range is larger
	// than the world units used by the 3-D branch.
	flatIntensityFactor = 10.0
	// rotationFactor converts an intensity-scaled offset to degrees of rotation.
	rotationFactor = 0.5
	// overscanFactor enlarges the image so rotated edges stay hidden.
	overscanFactor = 0.02
)

// Offset is a simulated viewpoint shift. Z is optional and only used by the 3-D branch.
type Offset struct {
	X float64
	Y float64
	Z float64
}

// IsZero reports whether the offset is the origin.
func (o Offset) IsZero() bool {
	return o == Offset{}
}

func (o Offset) String() string {
	return fmt.Sprintf("(%.4g, %.4g, %.4g)", o.X, o.Y, o.Z)
}

// VisualTransform is a CSS-style transform for a flat image surface. Translations are in pixels,
// rotations in degrees.
type VisualTransform struct {
	TranslateX float64
	TranslateY float64
	RotateX    float64
	RotateY    float64
	Scale      float64
}

// Identity returns the transform that leaves a surface untouched.
func Identity() VisualTransform {
	return VisualTransform{Scale: 1}
}

// IsIdentity reports whether the transform is a no-op.
func (t VisualTransform) IsIdentity() bool {
	return t == Identity()
}

// CSS renders the transform in CSS transform syntax.
func (t VisualTransform) CSS() string {
	return fmt.Sprintf("translate(%.3fpx, %.3fpx) rotateY(%.3fdeg) rotateX(%.3fdeg) scale(%.4f)",
		t.TranslateX, t.TranslateY, t.RotateY, t.RotateX, t.Scale)
}

// Project3D shifts the base pose's vantage point by the offset. The look-at target is always the
// base look-at, so the gaze never turns.
func Project3D(offset Offset, intensity float64, base spatialmath.CameraPose) spatialmath.CameraPose {
	delta := r3.Vector{
		X: offset.X * intensity,
		Y: offset.Y * intensity,
		Z: offset.Z * intensity * depthFactor,
	}
	return spatialmath.CameraPose{
		Position: base.Position.Add(delta),
		LookAt:   base.LookAt,
	}
}

// Project2D approximates the same shift for a flat image. Vertical rotation is inverted so that
// moving up tilts the image away, like raising one's head.
func Project2D(offset Offset, intensity float64) VisualTransform {
	scaled := intensity * flatIntensityFactor
	rotateX := offset.Y * scaled * rotationFactor
	if rotateX != 0 {
		rotateX = -rotateX
	}
	return VisualTransform{
		TranslateX: offset.X * scaled,
		TranslateY: offset.Y * scaled,
		RotateY:    offset.X * scaled * rotationFactor,
		RotateX:    rotateX,
		Scale:      1 + overscanFactor*(math.Abs(offset.X)+math.Abs(offset.Y)),
	}
}

// Target selects the output of Project.
type Target int

const (
	// Target3D produces a camera pose.
	Target3D Target = iota
	// Target2D produces a visual transform.
	Target2D
)

func (t Target) String() string {
	switch t {
	case Target3D:
		return "3d"
	case Target2D:
		return "2d"
	default:
		return fmt.Sprintf("Target(%d)", int(t))
	}
}

// Projection is the result of Project. Only the field matching Target is meaningful.
type Projection struct {
	Target    Target
	Pose      spatialmath.CameraPose
	Transform VisualTransform
}

// Project dispatches to Project3D or Project2D. Offsets are not clamped here; callers that
// produce offsets from sensors clamp at the source.
func Project(offset Offset, intensity float64, base spatialmath.CameraPose, target Target) Projection {
	if target == Target3D {
		return Projection{Target: target, Pose: Project3D(offset, intensity, base)}
	}
	return Projection{Target: target, Transform: Project2D(offset, intensity)}
}
