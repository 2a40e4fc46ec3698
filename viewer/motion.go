package viewer

import (
	"context"

	"github.com/pkg/errors"

	"go.viam.com/splatview/sensor/orientation"
	"go.viam.com/splatview/utils"
)

// EnableDeviceMotion subscribes to the orientation source so device tilt drives the perspective
// offset. The first sample after enabling becomes the baseline. It returns false, without error,
// when the sensor is missing or permission is refused; the session then simply has no device
// motion.
func (s *Session) EnableDeviceMotion(ctx context.Context) bool {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return false
	}
	if s.motion != nil {
		s.mu.Unlock()
		return true
	}
	source := s.opts.Orientation
	s.mu.Unlock()

	if err := s.subscribeMotion(ctx, source); err != nil {
		if errors.Is(err, orientation.ErrSensorUnavailable) {
			s.logger.Debugw("device motion unavailable", "error", err)
		} else {
			s.logger.Warnw("cannot enable device motion", "error", err)
		}
		return false
	}
	return true
}

func (s *Session) subscribeMotion(ctx context.Context, source orientation.Source) error {
	if source == nil {
		return errors.Wrap(orientation.ErrSensorUnavailable, "no orientation source")
	}
	if requester, ok := source.(orientation.PermissionRequester); ok {
		if err := requester.RequestPermission(ctx); err != nil {
			return err
		}
	}

	s.mu.Lock()
	s.motionGen++
	gen := s.motionGen
	s.mu.Unlock()

	sub, err := source.Subscribe(ctx, func(sample orientation.Sample) {
		s.handleSample(gen, sample)
	})
	if err != nil {
		return err
	}
	guard := utils.NewGuard(func() {
		if err := sub.Close(); err != nil {
			s.logger.Debugw("error closing orientation subscription", "error", err)
		}
	})
	defer guard.OnFail()

	s.mu.Lock()
	defer s.unlock()
	if s.disposed {
		return errors.New("session disposed while enabling device motion")
	}
	if s.motionGen != gen {
		return errors.New("device motion toggled while enabling")
	}
	s.calibrator.Recalibrate()
	s.motion = sub
	guard.Success()
	return nil
}

func (s *Session) handleSample(gen uint64, sample orientation.Sample) {
	s.mu.Lock()
	defer s.unlock()
	if s.disposed || s.motionGen != gen {
		return
	}
	offset, ok := s.calibrator.Update(sample)
	if !ok {
		return
	}
	s.offset = offset
	s.applyOffsetLocked()
}

// DisableDeviceMotion unsubscribes from the orientation source. The current offset stays.
func (s *Session) DisableDeviceMotion() {
	s.mu.Lock()
	sub := s.motion
	s.motion = nil
	s.motionGen++
	s.mu.Unlock()

	if sub == nil {
		return
	}
	if err := sub.Close(); err != nil {
		s.logger.Debugw("error closing orientation subscription", "error", err)
	}
}

// CalibrateDeviceMotion makes the next sample the new baseline.
func (s *Session) CalibrateDeviceMotion() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calibrator.Recalibrate()
}
