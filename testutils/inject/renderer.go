package inject

import (
	"context"

	"go.viam.com/splatview/renderer"
	"go.viam.com/splatview/spatialmath"
)

// RendererService is an injected renderer service.
type RendererService struct {
	renderer.Service
	CreateFunc func(ctx context.Context, cfg renderer.Config) (renderer.Handle, error)
}

// Create calls the injected Create or the real version.
func (s *RendererService) Create(ctx context.Context, cfg renderer.Config) (renderer.Handle, error) {
	if s.CreateFunc == nil {
		return s.Service.Create(ctx, cfg)
	}
	return s.CreateFunc(ctx, cfg)
}

// RendererHandle is an injected renderer handle. Methods with neither an injected function nor a
// real handle do nothing.
type RendererHandle struct {
	renderer.Handle
	LoadSceneFunc func(
		ctx context.Context,
		location string,
		onProgress renderer.ProgressFunc,
	) (spatialmath.CameraPose, error)
	SetFieldOfViewFunc func(degrees float64)
	SetCameraPoseFunc  func(pose spatialmath.CameraPose)
	StartFunc          func()
	DisposeFunc        func() error
	ControlsFunc       func() renderer.Controls
}

// LoadScene calls the injected LoadScene or the real version.
func (h *RendererHandle) LoadScene(
	ctx context.Context,
	location string,
	onProgress renderer.ProgressFunc,
) (spatialmath.CameraPose, error) {
	if h.LoadSceneFunc == nil {
		if h.Handle == nil {
			return spatialmath.CameraPose{}, nil
		}
		return h.Handle.LoadScene(ctx, location, onProgress)
	}
	return h.LoadSceneFunc(ctx, location, onProgress)
}

// SetFieldOfView calls the injected SetFieldOfView or the real version.
func (h *RendererHandle) SetFieldOfView(degrees float64) {
	if h.SetFieldOfViewFunc == nil {
		if h.Handle != nil {
			h.Handle.SetFieldOfView(degrees)
		}
		return
	}
	h.SetFieldOfViewFunc(degrees)
}

// SetCameraPose calls the injected SetCameraPose or the real version.
func (h *RendererHandle) SetCameraPose(pose spatialmath.CameraPose) {
	if h.SetCameraPoseFunc == nil {
		if h.Handle != nil {
			h.Handle.SetCameraPose(pose)
		}
		return
	}
	h.SetCameraPoseFunc(pose)
}

// Start calls the injected Start or the real version.
func (h *RendererHandle) Start() {
	if h.StartFunc == nil {
		if h.Handle != nil {
			h.Handle.Start()
		}
		return
	}
	h.StartFunc()
}

// Dispose calls the injected Dispose or the real version.
func (h *RendererHandle) Dispose() error {
	if h.DisposeFunc == nil {
		if h.Handle == nil {
			return nil
		}
		return h.Handle.Dispose()
	}
	return h.DisposeFunc()
}

// Controls calls the injected Controls or the real handle's controls.
func (h *RendererHandle) Controls() renderer.Controls {
	if h.ControlsFunc == nil {
		if h.Handle == nil {
			return nil
		}
		controls, _ := renderer.ControlsOf(h.Handle)
		return controls
	}
	return h.ControlsFunc()
}

// Controls are injected camera controls. Unset functions do nothing.
type Controls struct {
	RotateFunc   func(yawDelta, pitchDelta float64)
	PanFunc      func(dx, dy float64)
	DollyFunc    func(delta float64)
	SetSpeedFunc func(speeds renderer.Speeds)
}

// Rotate calls the injected Rotate.
func (c *Controls) Rotate(yawDelta, pitchDelta float64) {
	if c.RotateFunc != nil {
		c.RotateFunc(yawDelta, pitchDelta)
	}
}

// Pan calls the injected Pan.
func (c *Controls) Pan(dx, dy float64) {
	if c.PanFunc != nil {
		c.PanFunc(dx, dy)
	}
}

// Dolly calls the injected Dolly.
func (c *Controls) Dolly(delta float64) {
	if c.DollyFunc != nil {
		c.DollyFunc(delta)
	}
}

// SetSpeed calls the injected SetSpeed.
func (c *Controls) SetSpeed(speeds renderer.Speeds) {
	if c.SetSpeedFunc != nil {
		c.SetSpeedFunc(speeds)
	}
}
