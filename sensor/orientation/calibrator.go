// Package orientation turns absolute device orientation readings into clamped perspective offsets
// relative to a captured baseline.
package orientation

import (
	"fmt"

	"go.viam.com/splatview/perspective"
)

const (
	// MaxTiltDegrees bounds the per-axis delta from the baseline.
	MaxTiltDegrees = 30.0
	// MaxOffset is the offset produced by a delta of MaxTiltDegrees.
	MaxOffset = 0.3
)

// Sample is one orientation reading in degrees. A nil axis means the sensor did not report it.
type Sample struct {
	Pitch *float64 `json:"pitch"`
	Roll  *float64 `json:"roll"`
}

// NewSample returns a sample with both axes present.
func NewSample(pitch, roll float64) Sample {
	return Sample{Pitch: &pitch, Roll: &roll}
}

// Complete reports whether both axes are present.
func (s Sample) Complete() bool {
	return s.Pitch != nil && s.Roll != nil
}

func (s Sample) String() string {
	if !s.Complete() {
		return "incomplete"
	}
	return fmt.Sprintf("pitch=%.2f roll=%.2f", *s.Pitch, *s.Roll)
}

type reading struct {
	pitch float64
	roll  float64
}

// Calibrator is Uncalibrated until it sees its first complete sample, which becomes the baseline.
// It is not safe for concurrent use; the owning session serializes access.
type Calibrator struct {
	baseline *reading
}

// NewCalibrator returns an uncalibrated Calibrator.
func NewCalibrator() *Calibrator {
	return &Calibrator{}
}

// Update consumes a sample. It returns false when the sample produced no offset: either an axis
// was missing (state unchanged) or the sample was captured as the new baseline.
func (c *Calibrator) Update(sample Sample) (perspective.Offset, bool) {
	if !sample.Complete() {
		return perspective.Offset{}, false
	}
	current := reading{pitch: *sample.Pitch, roll: *sample.Roll}
	if c.baseline == nil {
		c.baseline = &current
		return perspective.Offset{}, false
	}
	return perspective.Offset{
		X: normalize(current.roll - c.baseline.roll),
		Y: normalize(current.pitch - c.baseline.pitch),
	}, true
}

// Recalibrate discards the baseline; the next complete sample becomes the new one.
func (c *Calibrator) Recalibrate() {
	c.baseline = nil
}

// Calibrated reports whether a baseline is held.
func (c *Calibrator) Calibrated() bool {
	return c.baseline != nil
}

// Baseline returns the captured baseline, if any.
func (c *Calibrator) Baseline() (Sample, bool) {
	if c.baseline == nil {
		return Sample{}, false
	}
	return NewSample(c.baseline.pitch, c.baseline.roll), true
}

func normalize(deltaDegrees float64) float64 {
	clamped := deltaDegrees
	if clamped > MaxTiltDegrees {
		clamped = MaxTiltDegrees
	} else if clamped < -MaxTiltDegrees {
		clamped = -MaxTiltDegrees
	}
	return clamped / MaxTiltDegrees * MaxOffset
}
