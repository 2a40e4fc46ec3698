// Package renderer defines the contract of the 3-D point cloud renderer a viewer session drives.
// Implementations own the scene memory; disposing a handle releases it.
package renderer

import (
	"context"

	"github.com/pkg/errors"

	"go.viam.com/splatview/spatialmath"
)

// ErrDisposed is returned by handle operations after Dispose.
var ErrDisposed = errors.New("renderer disposed")

// DefaultFieldOfView is the vertical field of view, in degrees, used when none is configured.
const DefaultFieldOfView = 50.0

// Speeds scale the interactive camera controls.
type Speeds struct {
	Orbit float64
	Pan   float64
	Zoom  float64
}

// DefaultSpeeds returns unit speeds.
func DefaultSpeeds() Speeds {
	return Speeds{Orbit: 1, Pan: 1, Zoom: 1}
}

// Config describes a renderer instance.
type Config struct {
	// Pose is the requested initial camera. Renderers may re-center it on the loaded scene.
	Pose        spatialmath.CameraPose
	FieldOfView float64
	Speeds      Speeds
}

// ProgressFunc receives scene load progress in percent.
type ProgressFunc func(percent float64)

// Service creates renderer handles.
type Service interface {
	Create(ctx context.Context, cfg Config) (Handle, error)
}

// Handle is one renderer instance.
type Handle interface {
	// LoadScene loads scene geometry and returns the camera pose the renderer settled on.
	LoadScene(ctx context.Context, location string, onProgress ProgressFunc) (spatialmath.CameraPose, error)
	SetFieldOfView(degrees float64)
	SetCameraPose(pose spatialmath.CameraPose)
	Start()
	Dispose() error
}

// Controls are interactive camera manipulations. Angles are in degrees.
type Controls interface {
	Rotate(yawDelta, pitchDelta float64)
	Pan(dx, dy float64)
	Dolly(delta float64)
	SetSpeed(speeds Speeds)
}

// ControlsProvider is implemented by handles that expose interactive controls.
type ControlsProvider interface {
	Controls() Controls
}

// ControlsOf returns the handle's controls, if it has any.
func ControlsOf(h Handle) (Controls, bool) {
	provider, ok := h.(ControlsProvider)
	if !ok {
		return nil, false
	}
	controls := provider.Controls()
	return controls, controls != nil
}
