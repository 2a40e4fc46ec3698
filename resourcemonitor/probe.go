package resourcemonitor

import (
	"os"

	"github.com/pkg/errors"
	"github.com/prometheus/procfs"
	"github.com/shirou/gopsutil/v3/process"
)

// ProcessProbe samples the resident set size of a process from /proc.
type ProcessProbe struct {
	proc procfs.Proc
}

// NewSelfProcessProbe returns a probe for the current process. It fails on platforms without
// procfs, in which case callers run without a probe.
func NewSelfProcessProbe() (*ProcessProbe, error) {
	proc, err := procfs.Self()
	if err != nil {
		return nil, errors.Wrap(err, "memory probe unavailable")
	}
	return &ProcessProbe{proc: proc}, nil
}

// NewPidProcessProbe returns a probe for the given process id.
func NewPidProcessProbe(pid int) (*ProcessProbe, error) {
	proc, err := procfs.NewProc(pid)
	if err != nil {
		return nil, errors.Wrapf(err, "memory probe unavailable for pid %d", pid)
	}
	return &ProcessProbe{proc: proc}, nil
}

// SampleUsageBytes returns the resident memory of the process.
func (p *ProcessProbe) SampleUsageBytes() (uint64, bool) {
	stat, err := p.proc.Stat()
	if err != nil {
		return 0, false
	}
	rss := stat.ResidentMemory()
	if rss < 0 {
		return 0, false
	}
	return uint64(rss), true
}

// PortableProbe samples resident memory through gopsutil on platforms without /proc.
type PortableProbe struct {
	proc *process.Process
}

// NewPortableProbe returns a gopsutil backed probe for the given process id.
func NewPortableProbe(pid int) (*PortableProbe, error) {
	proc, err := process.NewProcess(int32(pid))
	if err != nil {
		return nil, errors.Wrapf(err, "memory probe unavailable for pid %d", pid)
	}
	return &PortableProbe{proc: proc}, nil
}

// SampleUsageBytes returns the resident memory of the process.
func (p *PortableProbe) SampleUsageBytes() (uint64, bool) {
	info, err := p.proc.MemoryInfo()
	if err != nil || info == nil {
		return 0, false
	}
	return info.RSS, true
}

// DefaultProbe returns the procfs probe where /proc exists, the gopsutil probe otherwise, and
// nil when neither can read this process.
func DefaultProbe() Probe {
	if probe, err := NewSelfProcessProbe(); err == nil {
		return probe
	}
	if probe, err := NewPortableProbe(os.Getpid()); err == nil {
		return probe
	}
	return nil
}
