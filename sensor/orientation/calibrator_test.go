package orientation

import (
	"testing"

	"go.viam.com/test"
)

func TestFirstSampleIsBaseline(t *testing.T) {
	c := NewCalibrator()
	test.That(t, c.Calibrated(), test.ShouldBeFalse)

	offset, ok := c.Update(NewSample(40, -12))
	test.That(t, ok, test.ShouldBeFalse)
	test.That(t, offset.IsZero(), test.ShouldBeTrue)
	test.That(t, c.Calibrated(), test.ShouldBeTrue)

	baseline, ok := c.Baseline()
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, *baseline.Pitch, test.ShouldEqual, 40.0)
	test.That(t, *baseline.Roll, test.ShouldEqual, -12.0)
}

func TestRelativeOffset(t *testing.T) {
	c := NewCalibrator()
	c.Update(NewSample(40, -12))

	offset, ok := c.Update(NewSample(40, -2))
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, offset.X, test.ShouldAlmostEqual, 0.1)
	test.That(t, offset.Y, test.ShouldAlmostEqual, 0.0)

	offset, _ = c.Update(NewSample(25, -12))
	test.That(t, offset.X, test.ShouldAlmostEqual, 0.0)
	test.That(t, offset.Y, test.ShouldAlmostEqual, -0.15)
}

func TestClamping(t *testing.T) {
	c := NewCalibrator()
	c.Update(NewSample(0, 0))

	offset, ok := c.Update(NewSample(-50, 50))
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, offset.X, test.ShouldAlmostEqual, MaxOffset)
	test.That(t, offset.Y, test.ShouldAlmostEqual, -MaxOffset)

	offset, _ = c.Update(NewSample(30, -30))
	test.That(t, offset.X, test.ShouldAlmostEqual, -MaxOffset)
	test.That(t, offset.Y, test.ShouldAlmostEqual, MaxOffset)
}

func TestIncompleteSamplesIgnored(t *testing.T) {
	c := NewCalibrator()
	roll := 5.0

	_, ok := c.Update(Sample{Roll: &roll})
	test.That(t, ok, test.ShouldBeFalse)
	test.That(t, c.Calibrated(), test.ShouldBeFalse)

	c.Update(NewSample(0, 0))
	_, ok = c.Update(Sample{})
	test.That(t, ok, test.ShouldBeFalse)
	test.That(t, c.Calibrated(), test.ShouldBeTrue)

	baseline, _ := c.Baseline()
	test.That(t, *baseline.Roll, test.ShouldEqual, 0.0)
	test.That(t, Sample{}.String(), test.ShouldEqual, "incomplete")
}

func TestRecalibrate(t *testing.T) {
	c := NewCalibrator()
	c.Update(NewSample(0, 0))
	c.Update(NewSample(10, 10))

	c.Recalibrate()
	test.That(t, c.Calibrated(), test.ShouldBeFalse)
	_, ok := c.Baseline()
	test.That(t, ok, test.ShouldBeFalse)

	offset, ok := c.Update(NewSample(10, 10))
	test.That(t, ok, test.ShouldBeFalse)
	test.That(t, offset.IsZero(), test.ShouldBeTrue)

	offset, ok = c.Update(NewSample(10, 20))
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, offset.X, test.ShouldAlmostEqual, 0.1)
}
