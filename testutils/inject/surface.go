package inject

import (
	"context"

	"go.viam.com/splatview/perspective"
	"go.viam.com/splatview/surface"
)

// SurfaceService is an injected surface service.
type SurfaceService struct {
	surface.Service
	CreateFunc func(ctx context.Context, imageLocation string, role surface.Role) (surface.Surface, error)
}

// Create calls the injected Create or the real version.
func (s *SurfaceService) Create(ctx context.Context, imageLocation string, role surface.Role) (surface.Surface, error) {
	if s.CreateFunc == nil {
		return s.Service.Create(ctx, imageLocation, role)
	}
	return s.CreateFunc(ctx, imageLocation, role)
}

// Surface is an injected surface. Methods with neither an injected function nor a real surface
// do nothing.
type Surface struct {
	surface.Surface
	ApplyFunc      func(transform perspective.VisualTransform)
	SetOpacityFunc func(opacity float64)
	SetVisibleFunc func(visible bool)
	RemoveFunc     func() error
}

// Apply calls the injected Apply or the real version.
func (s *Surface) Apply(transform perspective.VisualTransform) {
	if s.ApplyFunc == nil {
		if s.Surface != nil {
			s.Surface.Apply(transform)
		}
		return
	}
	s.ApplyFunc(transform)
}

// SetOpacity calls the injected SetOpacity or the real version.
func (s *Surface) SetOpacity(opacity float64) {
	if s.SetOpacityFunc == nil {
		if s.Surface != nil {
			s.Surface.SetOpacity(opacity)
		}
		return
	}
	s.SetOpacityFunc(opacity)
}

// SetVisible calls the injected SetVisible or the real version.
func (s *Surface) SetVisible(visible bool) {
	if s.SetVisibleFunc == nil {
		if s.Surface != nil {
			s.Surface.SetVisible(visible)
		}
		return
	}
	s.SetVisibleFunc(visible)
}

// Remove calls the injected Remove or the real version.
func (s *Surface) Remove() error {
	if s.RemoveFunc == nil {
		if s.Surface == nil {
			return nil
		}
		return s.Surface.Remove()
	}
	return s.RemoveFunc()
}
