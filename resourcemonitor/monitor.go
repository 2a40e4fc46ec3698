// Package resourcemonitor periodically samples memory usage and fires a one-shot signal when it
// crosses a threshold.
package resourcemonitor

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	units "github.com/docker/go-units"
	goutils "go.viam.com/utils"

	"go.viam.com/splatview/logging"
)

const (
	// DefaultThresholdBytes is the usage above which the monitor fires.
	DefaultThresholdBytes = 1536 * units.MiB
	// DefaultInterval is the sampling period.
	DefaultInterval = 5 * time.Second
)

// Probe samples current memory usage. ok is false when a sample could not be taken.
type Probe interface {
	SampleUsageBytes() (usage uint64, ok bool)
}

// ProbeFunc adapts a function to Probe.
type ProbeFunc func() (uint64, bool)

// SampleUsageBytes calls f.
func (f ProbeFunc) SampleUsageBytes() (uint64, bool) {
	return f()
}

// Config holds monitor settings.
type Config struct {
	ThresholdBytes uint64
	Interval       time.Duration
}

// DefaultConfig returns the default thresholds.
func DefaultConfig() Config {
	return Config{ThresholdBytes: DefaultThresholdBytes, Interval: DefaultInterval}
}

// Monitor samples a Probe on a fixed interval. It fires at most once per Start; after firing it
// stops and does not re-arm.
type Monitor struct {
	cfg    Config
	probe  Probe
	clock  clock.Clock
	logger logging.Logger

	mu      sync.Mutex
	started bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// New returns a stopped monitor. A nil probe yields a monitor that never fires, which is how
// platforms without a usage source behave.
func New(cfg Config, probe Probe, clk clock.Clock, logger logging.Logger) *Monitor {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.ThresholdBytes == 0 {
		cfg.ThresholdBytes = DefaultThresholdBytes
	}
	if clk == nil {
		clk = clock.New()
	}
	return &Monitor{cfg: cfg, probe: probe, clock: clk, logger: logger}
}

// Available reports whether the monitor has a probe to sample.
func (m *Monitor) Available() bool {
	return m.probe != nil
}

// Config returns the effective settings.
func (m *Monitor) Config() Config {
	return m.cfg
}

// Start begins sampling. onExceeded runs on the monitor goroutine with the usage that crossed the
// threshold; the monitor has already stopped by then, so calling Stop from it is safe. Starting a
// running or inert monitor does nothing.
func (m *Monitor) Start(onExceeded func(usage uint64)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.started {
		return
	}
	if m.probe == nil {
		m.logger.Debug("no memory probe on this platform; memory monitor disabled")
		return
	}
	m.started = true

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	m.cancel = cancel
	m.done = done
	ticker := m.clock.Ticker(m.cfg.Interval)
	goutils.PanicCapturingGo(func() {
		usage, exceeded := m.watch(ctx, ticker)
		close(done)
		if exceeded {
			onExceeded(usage)
		}
	})
}

func (m *Monitor) watch(ctx context.Context, ticker *clock.Ticker) (uint64, bool) {
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return 0, false
		case <-ticker.C:
		}
		if ctx.Err() != nil {
			return 0, false
		}

		usage, ok := m.probe.SampleUsageBytes()
		if !ok {
			continue
		}
		if usage > m.cfg.ThresholdBytes {
			m.logger.Warnw("memory usage over threshold",
				"usage", units.BytesSize(float64(usage)),
				"threshold", units.BytesSize(float64(m.cfg.ThresholdBytes)))
			return usage, true
		}
		m.logger.Debugw("memory sample", "usage", units.BytesSize(float64(usage)))
	}
}

// Stop cancels sampling and waits for the monitor goroutine to finish its current tick. It is
// idempotent.
func (m *Monitor) Stop() {
	m.mu.Lock()
	cancel, done := m.cancel, m.done
	m.cancel = nil
	m.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Running reports whether the sampling goroutine is still active.
func (m *Monitor) Running() bool {
	m.mu.Lock()
	done := m.done
	m.mu.Unlock()
	if done == nil {
		return false
	}
	select {
	case <-done:
		return false
	default:
		return true
	}
}
