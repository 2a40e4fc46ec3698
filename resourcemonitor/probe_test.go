package resourcemonitor

import (
	"os"
	"testing"

	"go.viam.com/test"
)

func TestProcessProbes(t *testing.T) {
	if _, err := os.Stat("/proc/self/stat"); err != nil {
		t.Skip("no procfs on this platform")
	}
	procProbe, err := NewSelfProcessProbe()
	test.That(t, err, test.ShouldBeNil)
	usage, ok := procProbe.SampleUsageBytes()
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, usage, test.ShouldBeGreaterThan, 0)

	portable, err := NewPortableProbe(os.Getpid())
	test.That(t, err, test.ShouldBeNil)
	usage, ok = portable.SampleUsageBytes()
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, usage, test.ShouldBeGreaterThan, 0)

	test.That(t, DefaultProbe(), test.ShouldHaveSameTypeAs, procProbe)
}

func TestProcessProbeMissingPid(t *testing.T) {
	_, err := NewPidProcessProbe(-1)
	test.That(t, err, test.ShouldNotBeNil)
}
