// Package viewer coordinates one 3-D scene viewer: it loads a scene through a renderer, shows
// flat placeholder and fallback images around it, maps perspective offsets onto whichever of
// those is visible, and downgrades to the flat image when memory runs short.
//
// A Session is safe for concurrent use. Every operation runs as one turn under the session lock;
// the only blocking calls (descriptor lookup, surface creation, renderer creation and scene load)
// are made without the lock and their results are discarded if the session moved on meanwhile.
package viewer

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	goutils "go.viam.com/utils"

	"go.viam.com/splatview/logging"
	"go.viam.com/splatview/perspective"
	"go.viam.com/splatview/renderer"
	"go.viam.com/splatview/resourcemonitor"
	"go.viam.com/splatview/sensor/orientation"
	"go.viam.com/splatview/spatialmath"
	"go.viam.com/splatview/surface"
	"go.viam.com/splatview/utils"
)

// revealFrame is the placeholder fade step.
const revealFrame = 16 * time.Millisecond

// Session is the state of one viewer container.
type Session struct {
	opts    Options
	logger  logging.Logger
	clock   clock.Clock
	workers utils.StoppableWorkers

	mu        sync.Mutex
	listeners []Listener
	pending   []Event

	mode           Mode
	basePose       spatialmath.CameraPose
	offset         perspective.Offset
	intensity      float64
	speeds         renderer.Speeds
	fallbackReason FallbackReason
	disposed       bool

	// epoch changes on every Load and on Dispose; continuations of older loads see a mismatch.
	epoch        uint64
	loadCancel   context.CancelFunc
	handle       renderer.Handle
	controls     renderer.Controls
	placeholder  surface.Surface
	fallback     surface.Surface
	monitor      *resourcemonitor.Monitor
	revealCancel context.CancelFunc

	calibrator *orientation.Calibrator
	motion     orientation.Subscription
	motionGen  uint64
}

// NewSession returns an idle session.
func NewSession(opts Options, logger logging.Logger) (*Session, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}
	if opts.FieldOfView <= 0 {
		opts.FieldOfView = renderer.DefaultFieldOfView
	}
	if opts.Speeds == (renderer.Speeds{}) {
		opts.Speeds = renderer.DefaultSpeeds()
	}
	s := &Session{
		opts:       opts,
		logger:     logger.Sublogger("viewer." + uuid.NewString()),
		clock:      opts.Clock,
		workers:    utils.NewStoppableWorkers(),
		mode:       ModeIdle,
		basePose:   opts.Camera,
		intensity:  opts.PerspectiveIntensity,
		speeds:     opts.Speeds,
		calibrator: orientation.NewCalibrator(),
	}
	return s, nil
}

// AddListener registers a listener for session events.
func (s *Session) AddListener(l Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, l)
}

// Mode returns the current mode.
func (s *Session) Mode() Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

// BasePose returns the pose perspective offsets are applied to. After a load it is the pose the
// renderer settled on; after Reset it is the configured pose.
func (s *Session) BasePose() spatialmath.CameraPose {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.basePose
}

// CurrentOffset returns the last perspective offset applied.
func (s *Session) CurrentOffset() perspective.Offset {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.offset
}

// PerspectiveIntensity returns the offset multiplier.
func (s *Session) PerspectiveIntensity() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.intensity
}

// Disposed reports whether Dispose was called.
func (s *Session) Disposed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.disposed
}

// Snapshot is a point in time view of a session.
type Snapshot struct {
	Mode                 Mode
	BasePose             spatialmath.CameraPose
	ConfiguredPose       spatialmath.CameraPose
	Offset               perspective.Offset
	PerspectiveIntensity float64
	Speeds               renderer.Speeds
	FallbackReason       FallbackReason
	DeviceMotion         bool
	Calibrated           bool
	Disposed             bool
}

// Snapshot returns the current state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		Mode:                 s.mode,
		BasePose:             s.basePose,
		ConfiguredPose:       s.opts.Camera,
		Offset:               s.offset,
		PerspectiveIntensity: s.intensity,
		Speeds:               s.speeds,
		FallbackReason:       s.fallbackReason,
		DeviceMotion:         s.motion != nil,
		Calibrated:           s.calibrator.Calibrated(),
		Disposed:             s.disposed,
	}
}

// Perspective sets the viewpoint offset and applies it to whatever is visible: the placeholder
// while loading, the camera while live, the fallback image after a downgrade. While idle the
// offset is only stored.
func (s *Session) Perspective(x, y, z float64) {
	s.mu.Lock()
	defer s.unlock()
	if s.disposed {
		return
	}
	s.offset = perspective.Offset{X: x, Y: y, Z: z}
	s.applyOffsetLocked()
}

// SetPerspectiveIntensity changes the offset multiplier and re-applies the current offset.
// Negative values are ignored.
func (s *Session) SetPerspectiveIntensity(intensity float64) {
	s.mu.Lock()
	defer s.unlock()
	if s.disposed || intensity < 0 {
		return
	}
	s.intensity = intensity
	s.applyOffsetLocked()
}

// Pan moves the live camera sideways. It does nothing outside live mode.
func (s *Session) Pan(dx, dy float64) {
	s.mu.Lock()
	defer s.unlock()
	if controls := s.liveControlsLocked(); controls != nil {
		controls.Pan(dx, dy)
	}
}

// Rotate orbits the live camera. It does nothing outside live mode.
func (s *Session) Rotate(yawDelta, pitchDelta float64) {
	s.mu.Lock()
	defer s.unlock()
	if controls := s.liveControlsLocked(); controls != nil {
		controls.Rotate(yawDelta, pitchDelta)
	}
}

// Zoom dollies the live camera. It does nothing outside live mode.
func (s *Session) Zoom(delta float64) {
	s.mu.Lock()
	defer s.unlock()
	if controls := s.liveControlsLocked(); controls != nil {
		controls.Dolly(delta)
	}
}

// SetSpeed changes the control speeds. They are kept across loads.
func (s *Session) SetSpeed(orbit, pan, zoom float64) {
	s.mu.Lock()
	defer s.unlock()
	if s.disposed {
		return
	}
	s.speeds = renderer.Speeds{Orbit: orbit, Pan: pan, Zoom: zoom}
	if s.controls != nil {
		s.controls.SetSpeed(s.speeds)
	}
}

// Reset restores the configured pose, clears the offset and forgets the device motion baseline.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.unlock()
	if s.disposed {
		return
	}
	s.basePose = s.opts.Camera
	s.offset = perspective.Offset{}
	s.calibrator.Recalibrate()
	s.applyOffsetLocked()
}

// ForceFallback downgrades a loading or live session to the flat image. It does nothing when
// idle or already in fallback.
func (s *Session) ForceFallback() {
	s.mu.Lock()
	defer s.unlock()
	if s.disposed {
		return
	}
	s.enterFallbackLocked(ReasonRequested, 0)
}

// Dispose releases the renderer, surfaces, monitor and sensor subscription. It is safe to call
// at any time, including during Load, and more than once. Resources are always released; ctx
// only bounds the wait for session goroutines to exit, which then finish in the background.
func (s *Session) Dispose(ctx context.Context) error {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return nil
	}
	s.disposed = true
	s.epoch++
	err := s.releaseCycleLocked()
	sub := s.motion
	s.motion = nil
	s.motionGen++
	s.setModeLocked(ModeIdle)
	s.emitLocked(Event{Kind: EventDisposed, Mode: ModeIdle})
	s.unlock()

	if sub != nil {
		err = multierr.Combine(err, sub.Close())
	}
	stopped := make(chan struct{})
	goutils.PanicCapturingGo(func() {
		defer close(stopped)
		s.workers.Stop()
	})
	select {
	case <-stopped:
	case <-ctx.Done():
		err = multierr.Combine(err, errors.Wrap(ctx.Err(), "session workers still stopping"))
	}
	s.logger.Debugw("session disposed", "error", err)
	return err
}

func (s *Session) liveControlsLocked() renderer.Controls {
	if s.disposed || s.mode != ModeLive {
		return nil
	}
	return s.controls
}

// applyOffsetLocked pushes the current offset to the visible presentation.
func (s *Session) applyOffsetLocked() {
	switch s.mode {
	case ModeLoading:
		if s.placeholder != nil {
			s.placeholder.Apply(perspective.Project2D(s.offset, s.intensity))
		}
	case ModeLive:
		if s.handle != nil {
			s.handle.SetCameraPose(perspective.Project3D(s.offset, s.intensity, s.basePose))
		}
	case ModeFallback:
		if s.fallback != nil {
			s.fallback.Apply(perspective.Project2D(s.offset, s.intensity))
		}
	case ModeIdle:
	}
}

// enterFallbackLocked tears down the renderer and shows the fallback image with the current
// offset. Only loading and live sessions can fall back.
func (s *Session) enterFallbackLocked(reason FallbackReason, usage uint64) {
	if s.mode != ModeLoading && s.mode != ModeLive {
		return
	}
	if s.handle != nil && s.loadCancel != nil {
		// Abort a scene load in flight. Earlier stages keep running so the fallback image can
		// still be built.
		s.loadCancel()
		s.loadCancel = nil
	}
	s.stopMonitorLocked()
	s.cancelRevealLocked()
	if err := s.disposeHandleLocked(); err != nil {
		s.logger.Warnw("error releasing renderer for fallback", "error", err)
	}
	if s.placeholder != nil {
		if err := s.placeholder.Remove(); err != nil {
			s.logger.Warnw("error removing placeholder", "error", err)
		}
		s.placeholder = nil
	}
	s.fallbackReason = reason
	s.setModeLocked(ModeFallback)
	s.showFallbackLocked()

	s.logger.Infow("entered fallback", "reason", reason.String())
	s.emitLocked(Event{Kind: EventFallback, Mode: ModeFallback, Reason: reason, UsageBytes: usage})
}

func (s *Session) showFallbackLocked() {
	if s.fallback == nil {
		return
	}
	s.fallback.Apply(perspective.Project2D(s.offset, s.intensity))
	s.fallback.SetOpacity(1)
	s.fallback.SetVisible(true)
}

// releaseCycleLocked drops everything owned by the current load and returns release errors.
func (s *Session) releaseCycleLocked() error {
	if s.loadCancel != nil {
		s.loadCancel()
		s.loadCancel = nil
	}
	s.stopMonitorLocked()
	s.cancelRevealLocked()
	err := s.disposeHandleLocked()
	if s.placeholder != nil {
		err = multierr.Combine(err, s.placeholder.Remove())
		s.placeholder = nil
	}
	if s.fallback != nil {
		err = multierr.Combine(err, s.fallback.Remove())
		s.fallback = nil
	}
	s.fallbackReason = ReasonNone
	return err
}

func (s *Session) disposeHandleLocked() error {
	handle := s.handle
	s.handle = nil
	s.controls = nil
	if handle == nil {
		return nil
	}
	return handle.Dispose()
}

// stopMonitorLocked is safe under the lock because the monitor finishes its goroutine before it
// invokes the threshold callback.
func (s *Session) stopMonitorLocked() {
	if s.monitor != nil {
		s.monitor.Stop()
		s.monitor = nil
	}
}

func (s *Session) cancelRevealLocked() {
	if s.revealCancel != nil {
		s.revealCancel()
		s.revealCancel = nil
	}
}

func (s *Session) setModeLocked(mode Mode) {
	previous := s.mode
	if previous == mode {
		return
	}
	s.mode = mode
	s.logger.Debugw("mode changed", "from", previous.String(), "to", mode.String())
	s.emitLocked(Event{Kind: EventModeChanged, Mode: mode, Previous: previous})
}

func (s *Session) emitLocked(ev Event) {
	s.pending = append(s.pending, ev)
}

// unlock releases the session lock and then delivers the events queued during the turn.
func (s *Session) unlock() {
	events := s.pending
	s.pending = nil
	listeners := s.listeners
	s.mu.Unlock()

	for _, ev := range events {
		for _, l := range listeners {
			l.HandleEvent(ev)
		}
	}
}
