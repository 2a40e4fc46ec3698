// Package raster implements image overlays composited into an in-memory frame the size of the
// viewer container. Rotations are approximated by foreshortening, which is what a CSS
// rotateX/rotateY looks like from straight ahead without perspective.
package raster

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"math"
	"sync"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"

	"go.viam.com/splatview/assets"
	"go.viam.com/splatview/logging"
	"go.viam.com/splatview/perspective"
	"go.viam.com/splatview/surface"
)

// Background fills the frame where no overlay covers it.
var Background = color.NRGBA{0, 0, 0, 255}

// Service owns every overlay created in one container.
type Service struct {
	width  int
	height int
	opener assets.Opener
	logger logging.Logger

	mu       sync.Mutex
	surfaces []*Surface
}

// NewService returns a container of the given size in pixels.
func NewService(width, height int, opener assets.Opener, logger logging.Logger) (*Service, error) {
	if width <= 0 || height <= 0 {
		return nil, errors.Errorf("invalid container size %dx%d", width, height)
	}
	if opener == nil {
		opener = assets.NewDefaultOpener()
	}
	return &Service{width: width, height: height, opener: opener, logger: logger}, nil
}

// Create decodes the image and adds a hidden-by-default fallback or a visible placeholder.
func (s *Service) Create(ctx context.Context, imageLocation string, role surface.Role) (surface.Surface, error) {
	data, err := assets.ReadAll(ctx, s.opener, imageLocation)
	if err != nil {
		return nil, err
	}
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrapf(err, "decoding image %q", imageLocation)
	}
	// Cover the container once up front; transforms then work on a container sized image.
	covered := imaging.Fill(img, s.width, s.height, imaging.Center, imaging.Lanczos)

	surf := &Surface{
		service:   s,
		role:      role,
		image:     covered,
		transform: perspective.Identity(),
		opacity:   1,
		visible:   role == surface.RolePlaceholder,
	}
	s.mu.Lock()
	s.surfaces = append(s.surfaces, surf)
	s.mu.Unlock()
	s.logger.Debugw("surface created", "role", role.String(), "image", imageLocation)
	return surf, nil
}

// Surfaces returns the overlays that have not been removed, oldest first.
func (s *Service) Surfaces() []*Surface {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*Surface(nil), s.surfaces...)
}

// Visible returns the roles of overlays currently drawn.
func (s *Service) Visible() []surface.Role {
	var roles []surface.Role
	for _, surf := range s.Surfaces() {
		if surf.drawn() {
			roles = append(roles, surf.Role())
		}
	}
	return roles
}

// Frame composites the visible overlays, oldest at the bottom.
func (s *Service) Frame() *image.NRGBA {
	frame := imaging.New(s.width, s.height, Background)
	for _, surf := range s.Surfaces() {
		frame = surf.drawOnto(frame)
	}
	return frame
}

// WritePNG saves the current frame. The format follows the file extension.
func (s *Service) WritePNG(path string) error {
	return imaging.Save(s.Frame(), path)
}

func (s *Service) remove(target *Surface) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, surf := range s.surfaces {
		if surf == target {
			s.surfaces = append(s.surfaces[:i], s.surfaces[i+1:]...)
			return
		}
	}
}

// Surface is one image overlay.
type Surface struct {
	service *Service
	role    surface.Role
	image   *image.NRGBA

	mu        sync.Mutex
	transform perspective.VisualTransform
	opacity   float64
	visible   bool
	removed   bool
}

// Role returns what the overlay is for.
func (surf *Surface) Role() surface.Role {
	return surf.role
}

// Apply sets the parallax transform.
func (surf *Surface) Apply(transform perspective.VisualTransform) {
	surf.mu.Lock()
	defer surf.mu.Unlock()
	if !surf.removed {
		surf.transform = transform
	}
}

// Transform returns the last applied transform.
func (surf *Surface) Transform() perspective.VisualTransform {
	surf.mu.Lock()
	defer surf.mu.Unlock()
	return surf.transform
}

// SetOpacity sets the opacity, clamped to [0, 1].
func (surf *Surface) SetOpacity(opacity float64) {
	surf.mu.Lock()
	defer surf.mu.Unlock()
	if !surf.removed {
		surf.opacity = math.Max(0, math.Min(1, opacity))
	}
}

// Opacity returns the current opacity.
func (surf *Surface) Opacity() float64 {
	surf.mu.Lock()
	defer surf.mu.Unlock()
	return surf.opacity
}

// SetVisible shows or hides the overlay.
func (surf *Surface) SetVisible(visible bool) {
	surf.mu.Lock()
	defer surf.mu.Unlock()
	if !surf.removed {
		surf.visible = visible
	}
}

// Remove detaches the overlay from its container. It is idempotent.
func (surf *Surface) Remove() error {
	surf.mu.Lock()
	already := surf.removed
	surf.removed = true
	surf.visible = false
	surf.mu.Unlock()
	if !already {
		surf.service.remove(surf)
	}
	return nil
}

// Removed reports whether Remove was called.
func (surf *Surface) Removed() bool {
	surf.mu.Lock()
	defer surf.mu.Unlock()
	return surf.removed
}

func (surf *Surface) drawn() bool {
	surf.mu.Lock()
	defer surf.mu.Unlock()
	return surf.visible && !surf.removed && surf.opacity > 0
}

func (surf *Surface) drawOnto(frame *image.NRGBA) *image.NRGBA {
	surf.mu.Lock()
	transform, opacity, drawn := surf.transform, surf.opacity, surf.visible && !surf.removed && surf.opacity > 0
	surf.mu.Unlock()
	if !drawn {
		return frame
	}

	bounds := frame.Bounds()
	width := scaledLength(bounds.Dx(), transform.Scale, transform.RotateY)
	height := scaledLength(bounds.Dy(), transform.Scale, transform.RotateX)
	scaled := imaging.Resize(surf.image, width, height, imaging.Linear)

	topLeft := image.Pt(
		int(math.Round(float64(bounds.Dx()-width)/2+transform.TranslateX)),
		int(math.Round(float64(bounds.Dy()-height)/2+transform.TranslateY)),
	)
	return imaging.Overlay(frame, scaled, topLeft, opacity)
}

// maxScale bounds how far a surface is blown up relative to the container; anything past it is
// off-frame anyway.
const maxScale = 4

func scaledLength(length int, scale, rotationDegrees float64) int {
	foreshortened := float64(length) * scale * math.Abs(math.Cos(rotationDegrees*math.Pi/180))
	if math.IsNaN(foreshortened) {
		foreshortened = float64(length)
	}
	foreshortened = math.Min(foreshortened, float64(length*maxScale))
	return int(math.Max(1, math.Round(foreshortened)))
}
