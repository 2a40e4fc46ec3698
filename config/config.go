// Package config reads the viewer configuration file.
package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/a8m/envsubst"
	units "github.com/docker/go-units"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.viam.com/utils"

	"go.viam.com/splatview/logging"
	"go.viam.com/splatview/renderer"
	"go.viam.com/splatview/resourcemonitor"
	"go.viam.com/splatview/spatialmath"
)

const (
	// DefaultPerspectiveIntensity scales perspective offsets when none is configured.
	DefaultPerspectiveIntensity = 1.0
	// DefaultRevealDuration is how long the placeholder takes to fade out.
	DefaultRevealDuration = 600 * time.Millisecond
	// DefaultContainerWidth and DefaultContainerHeight size raster surfaces.
	DefaultContainerWidth  = 1280
	DefaultContainerHeight = 720
)

// DefaultCameraPose is used when the config names no camera.
func DefaultCameraPose() spatialmath.CameraPose {
	return spatialmath.NewCameraPose(r3.Vector{Z: 5}, r3.Vector{})
}

// Config is the top level viewer configuration.
type Config struct {
	Camera               *Camera        `json:"camera,omitempty"`
	PerspectiveIntensity *float64       `json:"perspective_intensity,omitempty"`
	Controls             *Controls      `json:"controls,omitempty"`
	MemoryMonitor        *MemoryMonitor `json:"memory_monitor,omitempty"`
	RevealDuration       string         `json:"reveal_duration,omitempty"`
	DescriptorURL        string         `json:"descriptor_url,omitempty"`
	Container            *Container     `json:"container,omitempty"`
	LogLevel             *logging.Level `json:"log_level,omitempty"`
}

// Camera is the requested initial camera.
type Camera struct {
	Position    []float64 `json:"position,omitempty"`
	LookAt      []float64 `json:"look_at,omitempty"`
	FieldOfView float64   `json:"fov_degrees,omitempty"`
}

// Controls scale the interactive camera controls.
type Controls struct {
	OrbitSpeed float64 `json:"orbit_speed,omitempty"`
	PanSpeed   float64 `json:"pan_speed,omitempty"`
	ZoomSpeed  float64 `json:"zoom_speed,omitempty"`
}

// MemoryMonitor configures the resource monitor.
type MemoryMonitor struct {
	// Threshold is a human readable size such as "1.5GiB".
	Threshold string `json:"threshold,omitempty"`
	Interval  string `json:"interval,omitempty"`
	Disabled  bool   `json:"disabled,omitempty"`
}

// Container is the size of the viewer container in pixels.
type Container struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Read reads a config from the given file, expanding environment variables first.
func Read(filePath string, logger logging.Logger) (*Config, error) {
	buf, err := envsubst.ReadFile(filePath)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot read config %q", filePath)
	}
	return FromReader(filePath, bytes.NewReader(buf), logger)
}

// FromReader decodes and validates a config. originalPath is only used in messages.
func FromReader(originalPath string, r io.Reader, logger logging.Logger) (*Config, error) {
	var cfg Config
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return nil, errors.Wrapf(err, "cannot parse config %q", originalPath)
	}
	if err := cfg.Validate(""); err != nil {
		return nil, err
	}
	logger.Debugw("config read", "path", originalPath)
	return &cfg, nil
}

// Validate checks every section.
func (c *Config) Validate(path string) error {
	if c.Camera != nil {
		if err := c.Camera.Validate(joinPath(path, "camera")); err != nil {
			return err
		}
	}
	if c.PerspectiveIntensity != nil && *c.PerspectiveIntensity < 0 {
		return utils.NewConfigValidationError(path, errors.New("perspective_intensity must not be negative"))
	}
	if c.Controls != nil {
		if err := c.Controls.Validate(joinPath(path, "controls")); err != nil {
			return err
		}
	}
	if c.MemoryMonitor != nil {
		if err := c.MemoryMonitor.Validate(joinPath(path, "memory_monitor")); err != nil {
			return err
		}
	}
	if c.RevealDuration != "" {
		if _, err := parseDuration(c.RevealDuration); err != nil {
			return utils.NewConfigValidationError(path, errors.Wrap(err, "error validating reveal_duration"))
		}
	}
	if c.Container != nil {
		if err := c.Container.Validate(joinPath(path, "container")); err != nil {
			return err
		}
	}
	return nil
}

// Intensity returns the configured perspective intensity or the default.
func (c *Config) Intensity() float64 {
	if c.PerspectiveIntensity == nil {
		return DefaultPerspectiveIntensity
	}
	return *c.PerspectiveIntensity
}

// Reveal returns the placeholder fade duration.
func (c *Config) Reveal() time.Duration {
	if c.RevealDuration == "" {
		return DefaultRevealDuration
	}
	d, err := parseDuration(c.RevealDuration)
	if err != nil {
		return DefaultRevealDuration
	}
	return d
}

// Pose returns the requested camera pose.
func (c *Config) Pose() spatialmath.CameraPose {
	if c.Camera == nil {
		return DefaultCameraPose()
	}
	return c.Camera.Pose()
}

// FieldOfView returns the vertical field of view in degrees.
func (c *Config) FieldOfView() float64 {
	if c.Camera == nil || c.Camera.FieldOfView == 0 {
		return renderer.DefaultFieldOfView
	}
	return c.Camera.FieldOfView
}

// Speeds returns the control speeds, defaulting unset ones to 1.
func (c *Config) Speeds() renderer.Speeds {
	if c.Controls == nil {
		return renderer.DefaultSpeeds()
	}
	return c.Controls.Speeds()
}

// Monitor returns the resource monitor config and whether monitoring is enabled.
func (c *Config) Monitor() (resourcemonitor.Config, bool) {
	if c.MemoryMonitor == nil {
		return resourcemonitor.DefaultConfig(), true
	}
	return c.MemoryMonitor.MonitorConfig(), !c.MemoryMonitor.Disabled
}

// ContainerSize returns the container size in pixels.
func (c *Config) ContainerSize() (width, height int) {
	if c.Container == nil {
		return DefaultContainerWidth, DefaultContainerHeight
	}
	return c.Container.Width, c.Container.Height
}

// Validate checks the camera section.
func (c *Camera) Validate(path string) error {
	if c.Position != nil {
		if _, err := spatialmath.VectorFromSlice(c.Position); err != nil {
			return utils.NewConfigValidationError(path, errors.Wrap(err, "error validating position"))
		}
	}
	if c.LookAt != nil {
		if _, err := spatialmath.VectorFromSlice(c.LookAt); err != nil {
			return utils.NewConfigValidationError(path, errors.Wrap(err, "error validating look_at"))
		}
	}
	if c.FieldOfView < 0 || c.FieldOfView >= 180 {
		return utils.NewConfigValidationError(path, errors.Errorf("fov_degrees must be in (0, 180), got %v", c.FieldOfView))
	}
	pose := c.Pose()
	if pose.Distance() == 0 {
		return utils.NewConfigValidationError(path, errors.New("position and look_at must differ"))
	}
	return nil
}

// Pose returns the configured pose, filling unset points from the default pose.
func (c *Camera) Pose() spatialmath.CameraPose {
	pose := DefaultCameraPose()
	if v, err := spatialmath.VectorFromSlice(c.Position); err == nil && c.Position != nil {
		pose.Position = v
	}
	if v, err := spatialmath.VectorFromSlice(c.LookAt); err == nil && c.LookAt != nil {
		pose.LookAt = v
	}
	return pose
}

// Validate checks the controls section.
func (c *Controls) Validate(path string) error {
	for name, speed := range map[string]float64{
		"orbit_speed": c.OrbitSpeed,
		"pan_speed":   c.PanSpeed,
		"zoom_speed":  c.ZoomSpeed,
	} {
		if speed < 0 {
			return utils.NewConfigValidationError(path, errors.Errorf("%s must not be negative", name))
		}
	}
	return nil
}

// Speeds returns the control speeds, defaulting unset ones to 1.
func (c *Controls) Speeds() renderer.Speeds {
	speeds := renderer.DefaultSpeeds()
	if c.OrbitSpeed > 0 {
		speeds.Orbit = c.OrbitSpeed
	}
	if c.PanSpeed > 0 {
		speeds.Pan = c.PanSpeed
	}
	if c.ZoomSpeed > 0 {
		speeds.Zoom = c.ZoomSpeed
	}
	return speeds
}

// Validate checks the memory monitor section.
func (m *MemoryMonitor) Validate(path string) error {
	if m.Threshold != "" {
		threshold, err := units.RAMInBytes(m.Threshold)
		if err != nil {
			return utils.NewConfigValidationError(path, errors.Wrap(err, "error validating threshold"))
		}
		if threshold <= 0 {
			return utils.NewConfigValidationError(path, errors.New("threshold must be positive"))
		}
	}
	if m.Interval != "" {
		interval, err := parseDuration(m.Interval)
		if err != nil {
			return utils.NewConfigValidationError(path, errors.Wrap(err, "error validating interval"))
		}
		if interval <= 0 {
			return utils.NewConfigValidationFieldRequiredError(path, "interval")
		}
	}
	return nil
}

// MonitorConfig converts the section, defaulting unset fields.
func (m *MemoryMonitor) MonitorConfig() resourcemonitor.Config {
	cfg := resourcemonitor.DefaultConfig()
	if threshold, err := units.RAMInBytes(m.Threshold); err == nil && threshold > 0 {
		cfg.ThresholdBytes = uint64(threshold)
	}
	if interval, err := parseDuration(m.Interval); err == nil && interval > 0 {
		cfg.Interval = interval
	}
	return cfg
}

// Validate checks the container section.
func (c *Container) Validate(path string) error {
	if c.Width <= 0 {
		return utils.NewConfigValidationFieldRequiredError(path, "width")
	}
	if c.Height <= 0 {
		return utils.NewConfigValidationFieldRequiredError(path, "height")
	}
	return nil
}

func parseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, errors.New("empty duration")
	}
	return time.ParseDuration(s)
}

func joinPath(path, field string) string {
	if path == "" {
		return field
	}
	return fmt.Sprintf("%s.%s", path, field)
}
