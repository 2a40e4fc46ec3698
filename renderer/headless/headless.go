// Package headless implements a renderer that loads PLY point clouds into memory and keeps a
// camera, without drawing. It backs the CLI and exercises the session against a renderer that
// really holds scene memory.
package headless

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/chenzhekl/goply"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/golang/geo/r3"
	"github.com/montanaflynn/stats"
	"github.com/pkg/errors"

	"go.viam.com/splatview/assets"
	"go.viam.com/splatview/logging"
	"go.viam.com/splatview/renderer"
	"go.viam.com/splatview/spatialmath"
)

const (
	progressFetched  = 50.0
	progressParsed   = 90.0
	progressComplete = 100.0

	minDollyDistance = 0.01
	// maxPolar keeps orbiting just shy of the poles.
	maxPolar = math.Pi - 1e-3
	minPolar = 1e-3
)

// Service creates headless renderer handles.
type Service struct {
	opener assets.Opener
	logger logging.Logger
}

// NewService returns a service reading scenes through opener.
func NewService(opener assets.Opener, logger logging.Logger) *Service {
	if opener == nil {
		opener = assets.NewDefaultOpener()
	}
	return &Service{opener: opener, logger: logger}
}

// Create returns a new, empty handle.
func (s *Service) Create(ctx context.Context, cfg renderer.Config) (renderer.Handle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if cfg.FieldOfView <= 0 {
		cfg.FieldOfView = renderer.DefaultFieldOfView
	}
	if cfg.Speeds == (renderer.Speeds{}) {
		cfg.Speeds = renderer.DefaultSpeeds()
	}
	return &Handle{
		opener: s.opener,
		logger: s.logger,
		cfg:    cfg,
		pose:   cfg.Pose,
		fov:    cfg.FieldOfView,
		speeds: cfg.Speeds,
	}, nil
}

// Handle holds one loaded point cloud and its camera.
type Handle struct {
	opener assets.Opener
	logger logging.Logger
	cfg    renderer.Config

	mu       sync.Mutex
	points   []r3.Vector
	pose     spatialmath.CameraPose
	fov      float64
	speeds   renderer.Speeds
	started  bool
	disposed bool
}

// LoadScene fetches and parses a PLY file, then centers the requested camera on the cloud.
func (h *Handle) LoadScene(
	ctx context.Context,
	location string,
	onProgress renderer.ProgressFunc,
) (spatialmath.CameraPose, error) {
	if onProgress == nil {
		onProgress = func(float64) {}
	}
	if h.isDisposed() {
		return spatialmath.CameraPose{}, renderer.ErrDisposed
	}
	onProgress(0)

	data, err := assets.ReadAll(ctx, h.opener, location)
	if err != nil {
		return spatialmath.CameraPose{}, err
	}
	onProgress(progressFetched)

	points, err := parsePLY(data)
	if err != nil {
		return spatialmath.CameraPose{}, errors.Wrapf(err, "parsing scene %q", location)
	}
	if len(points) == 0 {
		return spatialmath.CameraPose{}, errors.Errorf("scene %q has no vertices", location)
	}
	if err := ctx.Err(); err != nil {
		return spatialmath.CameraPose{}, err
	}
	onProgress(progressParsed)

	center, err := medianCenter(points)
	if err != nil {
		return spatialmath.CameraPose{}, err
	}
	resolved := recenter(h.cfg.Pose, center)

	h.mu.Lock()
	if h.disposed {
		h.mu.Unlock()
		return spatialmath.CameraPose{}, renderer.ErrDisposed
	}
	h.points = points
	h.pose = resolved
	h.mu.Unlock()

	h.logger.Debugw("scene loaded", "location", location, "points", len(points), "pose", resolved.String())
	onProgress(progressComplete)
	return resolved, nil
}

// SetFieldOfView sets the vertical field of view in degrees.
func (h *Handle) SetFieldOfView(degrees float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if degrees > 0 {
		h.fov = degrees
	}
}

// FieldOfView returns the vertical field of view in degrees.
func (h *Handle) FieldOfView() float64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.fov
}

// SetCameraPose moves the camera.
func (h *Handle) SetCameraPose(pose spatialmath.CameraPose) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.pose = pose
}

// CameraPose returns the current camera.
func (h *Handle) CameraPose() spatialmath.CameraPose {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.pose
}

// Start marks the render loop as running.
func (h *Handle) Start() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.disposed {
		h.started = true
	}
}

// Started reports whether Start was called on a live handle.
func (h *Handle) Started() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.started
}

// Dispose drops the scene. It is idempotent.
func (h *Handle) Dispose() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.disposed = true
	h.started = false
	h.points = nil
	return nil
}

// PointCount returns the number of loaded vertices.
func (h *Handle) PointCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.points)
}

// SceneBytes estimates the memory held by the loaded scene.
func (h *Handle) SceneBytes() uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	const vectorBytes = 3 * 8
	return uint64(len(h.points) * vectorBytes)
}

// ViewProjection returns projection × view for the given aspect ratio.
func (h *Handle) ViewProjection(aspect float64) mgl64.Mat4 {
	h.mu.Lock()
	defer h.mu.Unlock()
	near, far := 0.01, 1000.0
	return spatialmath.ProjectionMatrix(h.fov, aspect, near, far).Mul4(h.pose.ViewMatrix())
}

// Controls returns orbit style controls bound to this handle.
func (h *Handle) Controls() renderer.Controls {
	return &orbitControls{h: h}
}

func (h *Handle) isDisposed() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.disposed
}

type orbitControls struct {
	h *Handle
}

func (c *orbitControls) Rotate(yawDelta, pitchDelta float64) {
	c.h.mu.Lock()
	defer c.h.mu.Unlock()
	if c.h.disposed {
		return
	}
	c.h.pose = orbit(c.h.pose, yawDelta*c.h.speeds.Orbit, pitchDelta*c.h.speeds.Orbit)
}

func (c *orbitControls) Pan(dx, dy float64) {
	c.h.mu.Lock()
	defer c.h.mu.Unlock()
	if c.h.disposed {
		return
	}
	right, up := cameraAxes(c.h.pose)
	delta := right.Mul(dx * c.h.speeds.Pan).Add(up.Mul(dy * c.h.speeds.Pan))
	c.h.pose = c.h.pose.Translate(delta)
}

// Dolly moves the camera towards the look-at point for positive deltas.
func (c *orbitControls) Dolly(delta float64) {
	c.h.mu.Lock()
	defer c.h.mu.Unlock()
	if c.h.disposed {
		return
	}
	pose := c.h.pose
	distance := math.Max(pose.Distance()*math.Pow(0.95, delta*c.h.speeds.Zoom), minDollyDistance)
	pose.Position = pose.LookAt.Sub(pose.Forward().Mul(distance))
	c.h.pose = pose
}

func (c *orbitControls) SetSpeed(speeds renderer.Speeds) {
	c.h.mu.Lock()
	defer c.h.mu.Unlock()
	c.h.speeds = speeds
}

func orbit(pose spatialmath.CameraPose, yawDegrees, pitchDegrees float64) spatialmath.CameraPose {
	offset := pose.Position.Sub(pose.LookAt)
	radius := offset.Norm()
	if radius == 0 {
		return pose
	}
	azimuth := math.Atan2(offset.X, offset.Z) - mgl64.DegToRad(yawDegrees)
	polar := math.Acos(clamp(offset.Y/radius, -1, 1)) - mgl64.DegToRad(pitchDegrees)
	polar = clamp(polar, minPolar, maxPolar)

	pose.Position = pose.LookAt.Add(r3.Vector{
		X: radius * math.Sin(polar) * math.Sin(azimuth),
		Y: radius * math.Cos(polar),
		Z: radius * math.Sin(polar) * math.Cos(azimuth),
	})
	return pose
}

func cameraAxes(pose spatialmath.CameraPose) (right, up r3.Vector) {
	forward := pose.Forward()
	right = forward.Cross(spatialmath.DefaultUp)
	if right.Norm() == 0 {
		right = r3.Vector{X: 1}
	}
	right = right.Normalize()
	up = right.Cross(forward).Normalize()
	return right, up
}

// recenter keeps the requested viewing vector but moves it onto the scene center.
func recenter(requested spatialmath.CameraPose, center r3.Vector) spatialmath.CameraPose {
	view := requested.Position.Sub(requested.LookAt)
	return spatialmath.CameraPose{Position: center.Add(view), LookAt: center}
}

// medianCenter is robust to the stray floaters common in captured splat scenes.
func medianCenter(points []r3.Vector) (r3.Vector, error) {
	xs := make(stats.Float64Data, len(points))
	ys := make(stats.Float64Data, len(points))
	zs := make(stats.Float64Data, len(points))
	for i, p := range points {
		xs[i], ys[i], zs[i] = p.X, p.Y, p.Z
	}
	x, err := stats.Median(xs)
	if err != nil {
		return r3.Vector{}, err
	}
	y, err := stats.Median(ys)
	if err != nil {
		return r3.Vector{}, err
	}
	z, err := stats.Median(zs)
	if err != nil {
		return r3.Vector{}, err
	}
	return r3.Vector{X: x, Y: y, Z: z}, nil
}

func parsePLY(data []byte) (points []r3.Vector, err error) {
	// goply panics on malformed input.
	defer func() {
		if r := recover(); r != nil {
			points = nil
			err = fmt.Errorf("malformed ply: %v", r)
		}
	}()

	ply := goply.New(bytes.NewReader(data))
	vertices := ply.Elements("vertex")
	points = make([]r3.Vector, 0, len(vertices))
	for i, vertex := range vertices {
		x, okX := toFloat(vertex["x"])
		y, okY := toFloat(vertex["y"])
		z, okZ := toFloat(vertex["z"])
		if !okX || !okY || !okZ {
			return nil, errors.Errorf("vertex %d is missing a coordinate", i)
		}
		points = append(points, r3.Vector{X: x, Y: y, Z: z})
	}
	return points, nil
}

func toFloat(value interface{}) (float64, bool) {
	switch v := value.(type) {
	case float32:
		return float64(v), true
	case float64:
		return v, true
	case int8:
		return float64(v), true
	case uint8:
		return float64(v), true
	case int16:
		return float64(v), true
	case uint16:
		return float64(v), true
	case int32:
		return float64(v), true
	case uint32:
		return float64(v), true
	case int:
		return float64(v), true
	default:
		return 0, false
	}
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
