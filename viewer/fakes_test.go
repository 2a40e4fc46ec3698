package viewer

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/golang/geo/r3"
	"go.viam.com/test"

	"go.viam.com/splatview/logging"
	"go.viam.com/splatview/perspective"
	"go.viam.com/splatview/renderer"
	"go.viam.com/splatview/resourcemonitor"
	"go.viam.com/splatview/spatialmath"
	"go.viam.com/splatview/surface"
	"go.viam.com/splatview/testutils/inject"
)

var (
	configuredPose = spatialmath.NewCameraPose(r3.Vector{Z: 5}, r3.Vector{})
	resolvedPose   = spatialmath.NewCameraPose(r3.Vector{X: 1, Y: 2, Z: 8}, r3.Vector{X: 1, Y: 2, Z: 3})
)

// fakeRenderer records what a session does with its renderer handles.
type fakeRenderer struct {
	mu        sync.Mutex
	created   int
	disposed  int
	started   int
	fovs      []float64
	poses     []spatialmath.CameraPose
	locations []string
	speeds    []renderer.Speeds
	rotations [][2]float64
	pans      [][2]float64
	dollies   []float64

	createErr error
	loadErr   error
	resolved  spatialmath.CameraPose
	// gate, when set at Create time, blocks LoadScene until closed or cancelled.
	gate        chan struct{}
	loadStarted chan struct{}
}

func newFakeRenderer() *fakeRenderer {
	return &fakeRenderer{resolved: resolvedPose, loadStarted: make(chan struct{}, 10)}
}

func (r *fakeRenderer) service() *inject.RendererService {
	return &inject.RendererService{
		CreateFunc: func(ctx context.Context, cfg renderer.Config) (renderer.Handle, error) {
			r.mu.Lock()
			defer r.mu.Unlock()
			if r.createErr != nil {
				return nil, r.createErr
			}
			r.created++
			return r.newHandle(r.gate), nil
		},
	}
}

func (r *fakeRenderer) newHandle(gate chan struct{}) *inject.RendererHandle {
	controls := &inject.Controls{
		RotateFunc: func(yawDelta, pitchDelta float64) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.rotations = append(r.rotations, [2]float64{yawDelta, pitchDelta})
		},
		PanFunc: func(dx, dy float64) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.pans = append(r.pans, [2]float64{dx, dy})
		},
		DollyFunc: func(delta float64) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.dollies = append(r.dollies, delta)
		},
		SetSpeedFunc: func(speeds renderer.Speeds) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.speeds = append(r.speeds, speeds)
		},
	}
	return &inject.RendererHandle{
		LoadSceneFunc: func(
			ctx context.Context,
			location string,
			onProgress renderer.ProgressFunc,
		) (spatialmath.CameraPose, error) {
			r.mu.Lock()
			r.locations = append(r.locations, location)
			loadErr, resolved := r.loadErr, r.resolved
			r.mu.Unlock()
			r.loadStarted <- struct{}{}

			onProgress(50)
			if gate != nil {
				select {
				case <-gate:
				case <-ctx.Done():
					return spatialmath.CameraPose{}, ctx.Err()
				}
			}
			if loadErr != nil {
				return spatialmath.CameraPose{}, loadErr
			}
			onProgress(100)
			return resolved, nil
		},
		SetFieldOfViewFunc: func(degrees float64) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.fovs = append(r.fovs, degrees)
		},
		SetCameraPoseFunc: func(pose spatialmath.CameraPose) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.poses = append(r.poses, pose)
		},
		StartFunc: func() {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.started++
		},
		DisposeFunc: func() error {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.disposed++
			return nil
		},
		ControlsFunc: func() renderer.Controls {
			return controls
		},
	}
}

func (r *fakeRenderer) counts() (created, started, disposed int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.created, r.started, r.disposed
}

func (r *fakeRenderer) lastPose() (spatialmath.CameraPose, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.poses) == 0 {
		return spatialmath.CameraPose{}, 0
	}
	return r.poses[len(r.poses)-1], len(r.poses)
}

type fakeSurface struct {
	role       surface.Role
	location   string
	transforms []perspective.VisualTransform
	opacities  []float64
	visible    bool
	removed    int
}

// fakeSurfaces records overlays created through it.
type fakeSurfaces struct {
	mu        sync.Mutex
	created   []*fakeSurface
	createErr error
	gate      chan struct{}
}

func (fs *fakeSurfaces) service() *inject.SurfaceService {
	return &inject.SurfaceService{
		CreateFunc: func(ctx context.Context, imageLocation string, role surface.Role) (surface.Surface, error) {
			fs.mu.Lock()
			gate, createErr := fs.gate, fs.createErr
			fs.mu.Unlock()
			if gate != nil {
				select {
				case <-gate:
				case <-ctx.Done():
					return nil, ctx.Err()
				}
			}
			if createErr != nil {
				return nil, createErr
			}

			fs.mu.Lock()
			defer fs.mu.Unlock()
			rec := &fakeSurface{role: role, location: imageLocation, visible: role == surface.RolePlaceholder}
			fs.created = append(fs.created, rec)
			return &inject.Surface{
				ApplyFunc: func(transform perspective.VisualTransform) {
					fs.mu.Lock()
					defer fs.mu.Unlock()
					rec.transforms = append(rec.transforms, transform)
				},
				SetOpacityFunc: func(opacity float64) {
					fs.mu.Lock()
					defer fs.mu.Unlock()
					rec.opacities = append(rec.opacities, opacity)
				},
				SetVisibleFunc: func(visible bool) {
					fs.mu.Lock()
					defer fs.mu.Unlock()
					rec.visible = visible
				},
				RemoveFunc: func() error {
					fs.mu.Lock()
					defer fs.mu.Unlock()
					rec.removed++
					rec.visible = false
					return nil
				},
			}, nil
		},
	}
}

// byRole returns a copy of the most recent surface with the role.
func (fs *fakeSurfaces) byRole(role surface.Role) (fakeSurface, bool) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	for i := len(fs.created) - 1; i >= 0; i-- {
		if fs.created[i].role == role {
			rec := *fs.created[i]
			rec.transforms = append([]perspective.VisualTransform(nil), rec.transforms...)
			rec.opacities = append([]float64(nil), rec.opacities...)
			return rec, true
		}
	}
	return fakeSurface{}, false
}

// present returns the roles of surfaces that are visible and not removed.
func (fs *fakeSurfaces) present() []surface.Role {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	var roles []surface.Role
	for _, rec := range fs.created {
		if rec.visible && rec.removed == 0 {
			roles = append(roles, rec.role)
		}
	}
	return roles
}

func (fs *fakeSurfaces) count() int {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return len(fs.created)
}

// recorder collects session events.
type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (rec *recorder) HandleEvent(ev Event) {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	rec.events = append(rec.events, ev)
}

func (rec *recorder) kinds() []EventKind {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	kinds := make([]EventKind, 0, len(rec.events))
	for _, ev := range rec.events {
		kinds = append(kinds, ev.Kind)
	}
	return kinds
}

func (rec *recorder) count(kind EventKind) int {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	n := 0
	for _, ev := range rec.events {
		if ev.Kind == kind {
			n++
		}
	}
	return n
}

func (rec *recorder) last(kind EventKind) (Event, bool) {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	for i := len(rec.events) - 1; i >= 0; i-- {
		if rec.events[i].Kind == kind {
			return rec.events[i], true
		}
	}
	return Event{}, false
}

type harness struct {
	clock    *clock.Mock
	renderer *fakeRenderer
	surfaces *fakeSurfaces
	events   *recorder
	usage    *usageProbe
	session  *Session
}

// usageProbe reports a settable usage.
type usageProbe struct {
	mu      sync.Mutex
	usage   uint64
	samples int
}

func (p *usageProbe) set(usage uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.usage = usage
}

func (p *usageProbe) SampleUsageBytes() (uint64, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.samples++
	return p.usage, true
}

func (p *usageProbe) sampleCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.samples
}

const (
	testThreshold = 1000
	testInterval  = time.Second
)

func newHarness(t *testing.T, modify func(*Options)) *harness {
	t.Helper()
	h := &harness{
		clock:    clock.NewMock(),
		renderer: newFakeRenderer(),
		surfaces: &fakeSurfaces{},
		events:   &recorder{},
		usage:    &usageProbe{},
	}
	opts := DefaultOptions()
	opts.Renderer = h.renderer.service()
	opts.Surfaces = h.surfaces.service()
	opts.Probe = h.usage
	opts.Monitor = resourcemonitor.Config{ThresholdBytes: testThreshold, Interval: testInterval}
	opts.Camera = configuredPose
	opts.RevealDuration = 0
	opts.Clock = h.clock
	if modify != nil {
		modify(&opts)
	}

	session, err := NewSession(opts, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	session.AddListener(h.events)
	h.session = session
	t.Cleanup(func() {
		test.That(t, session.Dispose(context.Background()), test.ShouldBeNil)
	})
	return h
}

// loadAsync starts a Load and returns its result channel.
func (h *harness) loadAsync(ref AssetRef) <-chan error {
	result := make(chan error, 1)
	go func() {
		result <- h.session.Load(context.Background(), ref)
	}()
	return result
}
