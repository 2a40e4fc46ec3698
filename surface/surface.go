// Package surface defines the flat image overlays shown while a scene loads and after the viewer
// falls back to 2-D.
package surface

import (
	"context"
	"fmt"

	"go.viam.com/splatview/perspective"
)

// Role identifies what an overlay is for.
type Role int

const (
	// RolePlaceholder is shown while the scene loads and faded out once it is live.
	RolePlaceholder Role = iota
	// RoleFallback replaces the 3-D view after a downgrade.
	RoleFallback
)

func (r Role) String() string {
	switch r {
	case RolePlaceholder:
		return "placeholder"
	case RoleFallback:
		return "fallback"
	default:
		return fmt.Sprintf("Role(%d)", int(r))
	}
}

// Service creates overlays inside the viewer's container.
type Service interface {
	Create(ctx context.Context, imageLocation string, role Role) (Surface, error)
}

// Surface is one overlay bound to an image.
type Surface interface {
	Apply(transform perspective.VisualTransform)
	SetOpacity(opacity float64)
	SetVisible(visible bool)
	// Remove detaches the overlay. Further calls on the surface have no effect.
	Remove() error
}
