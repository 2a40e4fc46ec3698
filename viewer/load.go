package viewer

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"

	"go.viam.com/splatview/perspective"
	"go.viam.com/splatview/renderer"
	"go.viam.com/splatview/resourcemonitor"
	"go.viam.com/splatview/spatialmath"
	"go.viam.com/splatview/surface"
	"go.viam.com/splatview/utils"
)

// resolvedAsset is where a load gets its geometry and preview image from.
type resolvedAsset struct {
	sceneLocation string
	imageLocation string
}

// Load shows the referenced scene. It returns once the scene is live, or the session fell back
// while loading. A Load while another cycle is active releases that cycle first.
//
// Errors are a *ResolutionError or *LoadFailure, after which the session is idle again;
// ErrDisposed if Dispose interrupted it; ErrLoadSuperseded if a later Load took over.
func (s *Session) Load(ctx context.Context, ref AssetRef) error {
	if ref.IsZero() {
		ref = s.opts.DefaultAsset
	}

	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return ErrDisposed
	}
	if s.mode != ModeIdle {
		s.logger.Debugw("restarting with a new load", "mode", s.mode.String(), "ref", ref.String())
	}
	if err := s.releaseCycleLocked(); err != nil {
		s.logger.Warnw("error releasing previous load", "error", err)
	}
	s.epoch++
	epoch := s.epoch
	loadCtx, cancel := context.WithCancel(ctx)
	s.loadCancel = cancel
	s.setModeLocked(ModeLoading)
	s.unlock()
	defer cancel()

	asset, err := s.resolve(loadCtx, ref)

	s.mu.Lock()
	if stale := s.staleLocked(epoch); stale != nil {
		s.unlock()
		return stale
	}
	if err != nil {
		s.abortLoadLocked()
		s.unlock()
		s.logger.Warnw("cannot resolve scene", "ref", ref.String(), "error", err)
		return err
	}
	s.unlock()

	placeholder, fallback := s.createSurfaces(loadCtx, asset.imageLocation)
	guard := utils.NewGuard(func() {
		removeSurface(placeholder)
		removeSurface(fallback)
	})
	defer guard.OnFail()

	s.mu.Lock()
	if stale := s.staleLocked(epoch); stale != nil {
		s.unlock()
		return stale
	}
	s.placeholder, s.fallback = placeholder, fallback
	guard.Success()
	if s.mode == ModeFallback {
		// Forced down before the surfaces existed.
		removeSurface(s.placeholder)
		s.placeholder = nil
		s.showFallbackLocked()
		s.unlock()
		return nil
	}
	if s.placeholder != nil {
		s.placeholder.Apply(perspective.Project2D(s.offset, s.intensity))
		s.placeholder.SetOpacity(1)
		s.placeholder.SetVisible(true)
	}
	if s.fallback != nil {
		s.fallback.SetVisible(false)
	}
	rendererCfg := renderer.Config{Pose: s.opts.Camera, FieldOfView: s.opts.FieldOfView, Speeds: s.speeds}
	s.unlock()

	handle, err := s.opts.Renderer.Create(loadCtx, rendererCfg)

	s.mu.Lock()
	if stale := s.staleLocked(epoch); stale != nil || s.mode == ModeFallback {
		s.unlock()
		if handle != nil {
			s.disposeQuietly(handle)
		}
		return stale
	}
	if err != nil {
		s.abortLoadLocked()
		s.unlock()
		s.logger.Warnw("cannot create renderer", "error", err)
		return &LoadFailure{Location: asset.sceneLocation, Err: err}
	}
	s.handle = handle
	handle.SetFieldOfView(s.opts.FieldOfView)
	s.unlock()

	pose, err := handle.LoadScene(loadCtx, asset.sceneLocation, func(percent float64) {
		s.mu.Lock()
		if s.staleLocked(epoch) == nil && s.mode == ModeLoading {
			s.emitLocked(Event{Kind: EventProgress, Mode: ModeLoading, Progress: percent})
		}
		s.unlock()
	})

	s.mu.Lock()
	if stale := s.staleLocked(epoch); stale != nil {
		s.unlock()
		return stale
	}
	if s.mode == ModeFallback {
		// The fallback transition already released the renderer.
		s.unlock()
		return nil
	}
	if err != nil {
		s.abortLoadLocked()
		s.unlock()
		s.logger.Warnw("scene load failed", "location", asset.sceneLocation, "error", err)
		return &LoadFailure{Location: asset.sceneLocation, Err: err}
	}
	s.goLiveLocked(epoch, pose)
	s.unlock()
	return nil
}

func (s *Session) resolve(ctx context.Context, ref AssetRef) (resolvedAsset, error) {
	if ref.URL != "" {
		return resolvedAsset{sceneLocation: ref.URL, imageLocation: ref.PreviewURL}, nil
	}
	if ref.ID == "" {
		return resolvedAsset{}, &ResolutionError{Ref: ref, Reason: "no scene url or id given"}
	}
	if s.opts.Descriptors == nil {
		return resolvedAsset{}, &ResolutionError{Ref: ref, Reason: "no descriptor lookup configured"}
	}
	desc, err := s.opts.Descriptors.Resolve(ctx, ref.ID)
	if err != nil {
		return resolvedAsset{}, &ResolutionError{Ref: ref, Reason: "descriptor lookup failed", Err: err}
	}
	if !desc.Ready() {
		return resolvedAsset{}, &ResolutionError{
			Ref:    ref,
			Reason: "scene is not renderable (status " + desc.Status + ")",
		}
	}
	image := ref.PreviewURL
	if image == "" {
		image = desc.ImageAssetLocation
	}
	return resolvedAsset{sceneLocation: desc.PLYAssetLocation, imageLocation: image}, nil
}

// createSurfaces builds the placeholder and fallback overlays. A preview that cannot be shown is
// not fatal to the load; it only means there is nothing flat to display.
func (s *Session) createSurfaces(ctx context.Context, imageLocation string) (placeholder, fallback surface.Surface) {
	if imageLocation == "" || s.opts.Surfaces == nil {
		return nil, nil
	}
	placeholder, err := s.opts.Surfaces.Create(ctx, imageLocation, surface.RolePlaceholder)
	if err != nil {
		s.logger.Warnw("cannot create placeholder", "image", imageLocation, "error", err)
		return nil, nil
	}
	fallback, err = s.opts.Surfaces.Create(ctx, imageLocation, surface.RoleFallback)
	if err != nil {
		s.logger.Warnw("cannot create fallback surface", "image", imageLocation, "error", err)
		removeSurface(placeholder)
		return nil, nil
	}
	return placeholder, fallback
}

// staleLocked returns the error a continuation of load epoch should end with, or nil if the load
// is still current.
func (s *Session) staleLocked(epoch uint64) error {
	if s.disposed {
		return ErrDisposed
	}
	if s.epoch != epoch {
		return ErrLoadSuperseded
	}
	return nil
}

// abortLoadLocked undoes a failed load and returns to idle.
func (s *Session) abortLoadLocked() {
	if err := s.releaseCycleLocked(); err != nil {
		s.logger.Warnw("error cleaning up failed load", "error", err)
	}
	s.setModeLocked(ModeIdle)
}

func (s *Session) goLiveLocked(epoch uint64, pose spatialmath.CameraPose) {
	s.basePose = pose
	s.handle.Start()
	if !s.offset.IsZero() {
		s.handle.SetCameraPose(perspective.Project3D(s.offset, s.intensity, s.basePose))
	}
	if controls, ok := renderer.ControlsOf(s.handle); ok {
		s.controls = controls
		s.controls.SetSpeed(s.speeds)
	}
	s.setModeLocked(ModeLive)
	s.startMonitorLocked(epoch)
	s.startRevealLocked()

	s.logger.Infow("scene live", "pose", pose.String())
	s.emitLocked(Event{Kind: EventLive, Mode: ModeLive, Pose: pose})
}

// startMonitorLocked begins a fresh monitoring epoch for this load.
func (s *Session) startMonitorLocked(epoch uint64) {
	if s.opts.DisableMonitor {
		return
	}
	s.monitor = resourcemonitor.New(s.opts.Monitor, s.opts.Probe, s.clock, s.logger.Sublogger("monitor"))
	s.monitor.Start(func(usage uint64) {
		s.mu.Lock()
		defer s.unlock()
		if s.staleLocked(epoch) != nil || s.mode != ModeLive {
			return
		}
		s.enterFallbackLocked(ReasonMemoryPressure, usage)
	})
}

// startRevealLocked fades the placeholder out over the reveal duration and then removes it.
func (s *Session) startRevealLocked() {
	placeholder := s.placeholder
	if placeholder == nil {
		return
	}
	duration := s.opts.RevealDuration
	if duration <= 0 {
		removeSurface(placeholder)
		s.placeholder = nil
		return
	}

	revealCtx, cancel := context.WithCancel(s.workers.Context())
	s.revealCancel = cancel
	ticker := s.clock.Ticker(revealFrame)
	start := s.clock.Now()
	s.workers.AddWorkers(func(context.Context) {
		defer cancel()
		if !fade(revealCtx, s.clock, ticker, start, duration, placeholder) {
			return
		}
		s.mu.Lock()
		defer s.unlock()
		if revealCtx.Err() != nil || s.placeholder != placeholder {
			return
		}
		removeSurface(placeholder)
		s.placeholder = nil
		s.revealCancel = nil
	})
}

// fade lowers the surface opacity to zero. It returns false if cancelled first.
func fade(
	ctx context.Context,
	clk clock.Clock,
	ticker *clock.Ticker,
	start time.Time,
	duration time.Duration,
	target surface.Surface,
) bool {
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return false
		case <-ticker.C:
		}
		progress := float64(clk.Since(start)) / float64(duration)
		if progress > 1 {
			progress = 1
		}
		if ctx.Err() != nil {
			return false
		}
		target.SetOpacity(1 - progress)
		if progress >= 1 {
			return true
		}
	}
}

func removeSurface(surf surface.Surface) {
	if surf == nil {
		return
	}
	//nolint:errcheck
	surf.Remove()
}

func (s *Session) disposeQuietly(handle renderer.Handle) {
	if err := handle.Dispose(); err != nil {
		s.logger.Warnw("error disposing renderer", "error", err)
	}
}
