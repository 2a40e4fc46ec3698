package viewer

import (
	"fmt"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"

	"go.viam.com/splatview/config"
	"go.viam.com/splatview/descriptor"
	"go.viam.com/splatview/renderer"
	"go.viam.com/splatview/resourcemonitor"
	"go.viam.com/splatview/sensor/orientation"
	"go.viam.com/splatview/spatialmath"
	"go.viam.com/splatview/surface"
)

// AssetRef names the scene to load. URL takes precedence over ID; ID is resolved through the
// descriptor lookup. PreviewURL overrides the descriptor's image.
type AssetRef struct {
	URL        string
	ID         string
	PreviewURL string
}

// IsZero reports whether the reference names nothing.
func (r AssetRef) IsZero() bool {
	return r == AssetRef{}
}

func (r AssetRef) String() string {
	switch {
	case r.URL != "":
		return fmt.Sprintf("url=%q", r.URL)
	case r.ID != "":
		return fmt.Sprintf("id=%q", r.ID)
	default:
		return "<empty>"
	}
}

// Options wire a session to its collaborators.
type Options struct {
	// Renderer is required.
	Renderer renderer.Service
	// Surfaces creates the placeholder and fallback overlays. Without it no preview is shown.
	Surfaces surface.Service
	// Descriptors resolves AssetRef.ID.
	Descriptors descriptor.Lookup
	// Orientation feeds device motion.
	Orientation orientation.Source
	// Probe samples memory usage. Without it the memory monitor never fires.
	Probe resourcemonitor.Probe

	Monitor        resourcemonitor.Config
	DisableMonitor bool

	// Camera is the configured initial pose, restored by Reset.
	Camera      spatialmath.CameraPose
	FieldOfView float64
	Speeds      renderer.Speeds
	// PerspectiveIntensity scales offsets; zero turns parallax off.
	PerspectiveIntensity float64
	// RevealDuration is the placeholder fade after going live; zero removes it at once.
	RevealDuration time.Duration
	// DefaultAsset is loaded when Load is given an empty reference.
	DefaultAsset AssetRef

	Clock clock.Clock
}

// DefaultOptions returns options with everything but the collaborators filled in.
func DefaultOptions() Options {
	return Options{
		Monitor:              resourcemonitor.DefaultConfig(),
		Camera:               config.DefaultCameraPose(),
		FieldOfView:          renderer.DefaultFieldOfView,
		Speeds:               renderer.DefaultSpeeds(),
		PerspectiveIntensity: config.DefaultPerspectiveIntensity,
		RevealDuration:       config.DefaultRevealDuration,
	}
}

// OptionsFromConfig returns DefaultOptions overridden by cfg.
func OptionsFromConfig(cfg *config.Config) Options {
	opts := DefaultOptions()
	if cfg == nil {
		return opts
	}
	opts.Camera = cfg.Pose()
	opts.FieldOfView = cfg.FieldOfView()
	opts.Speeds = cfg.Speeds()
	opts.PerspectiveIntensity = cfg.Intensity()
	opts.RevealDuration = cfg.Reveal()
	monitorCfg, enabled := cfg.Monitor()
	opts.Monitor = monitorCfg
	opts.DisableMonitor = !enabled
	if cfg.DescriptorURL != "" {
		opts.Descriptors = descriptor.NewHTTPLookup(cfg.DescriptorURL)
	}
	return opts
}

func (opts Options) validate() error {
	if opts.Renderer == nil {
		return errors.New("viewer needs a renderer service")
	}
	if opts.PerspectiveIntensity < 0 {
		return errors.New("perspective intensity must not be negative")
	}
	if opts.RevealDuration < 0 {
		return errors.New("reveal duration must not be negative")
	}
	return nil
}
