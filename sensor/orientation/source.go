package orientation

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"sync"

	"github.com/pkg/errors"
	goutils "go.viam.com/utils"

	"go.viam.com/splatview/logging"
)

// ErrSensorUnavailable is returned when orientation events cannot be delivered, e.g. because the
// host has no sensor or the user declined permission.
var ErrSensorUnavailable = errors.New("orientation sensor unavailable")

// Handler receives samples. Calls for one subscription never overlap.
type Handler func(Sample)

// Subscription is a registered Handler. Close unregisters it and is idempotent.
type Subscription interface {
	Close() error
}

// Source delivers orientation samples to a registered handler.
type Source interface {
	Subscribe(ctx context.Context, handler Handler) (Subscription, error)
}

// PermissionRequester is implemented by sources that must be granted access before they deliver
// samples.
type PermissionRequester interface {
	RequestPermission(ctx context.Context) error
}

// wireSample accepts both our own field names and the browser DeviceOrientationEvent names
// (beta is front-to-back tilt, gamma is left-to-right tilt).
type wireSample struct {
	Pitch *float64 `json:"pitch"`
	Roll  *float64 `json:"roll"`
	Beta  *float64 `json:"beta"`
	Gamma *float64 `json:"gamma"`
}

func (w wireSample) sample() Sample {
	s := Sample{Pitch: w.Pitch, Roll: w.Roll}
	if s.Pitch == nil {
		s.Pitch = w.Beta
	}
	if s.Roll == nil {
		s.Roll = w.Gamma
	}
	return s
}

// StreamSource reads newline delimited JSON samples, e.g. from a phone streaming its motion
// sensors over TCP. Malformed lines are logged and skipped.
type StreamSource struct {
	mu         sync.Mutex
	reader     io.Reader
	permission func(ctx context.Context) error
	handler    Handler
	nextID     int
	started    bool
	done       chan struct{}
	err        error
	logger     logging.Logger
}

// StreamOption configures a StreamSource.
type StreamOption func(*StreamSource)

// WithPermission gates the source behind a permission prompt.
func WithPermission(request func(ctx context.Context) error) StreamOption {
	return func(ss *StreamSource) {
		ss.permission = request
	}
}

// NewStreamSource returns a source reading from r. Reading starts with the first subscription and
// continues until r is exhausted.
func NewStreamSource(r io.Reader, logger logging.Logger, opts ...StreamOption) *StreamSource {
	ss := &StreamSource{reader: r, done: make(chan struct{}), logger: logger}
	for _, opt := range opts {
		opt(ss)
	}
	return ss
}

// RequestPermission asks for access when the source was built WithPermission.
func (ss *StreamSource) RequestPermission(ctx context.Context) error {
	if ss.permission == nil {
		return nil
	}
	if err := ss.permission(ctx); err != nil {
		return errors.Wrap(ErrSensorUnavailable, err.Error())
	}
	return nil
}

// Subscribe registers the handler. Only one subscription may be active at a time.
func (ss *StreamSource) Subscribe(ctx context.Context, handler Handler) (Subscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ss.mu.Lock()
	defer ss.mu.Unlock()
	if ss.handler != nil {
		return nil, errors.New("orientation stream already has a subscriber")
	}
	select {
	case <-ss.done:
		return nil, errors.Wrap(ErrSensorUnavailable, "stream ended")
	default:
	}

	ss.nextID++
	ss.handler = handler
	if !ss.started {
		ss.started = true
		goutils.PanicCapturingGo(ss.readLoop)
	}
	return &streamSubscription{source: ss, id: ss.nextID}, nil
}

// Done is closed once the underlying reader is exhausted.
func (ss *StreamSource) Done() <-chan struct{} {
	return ss.done
}

// Err returns the read error that ended the stream, if any.
func (ss *StreamSource) Err() error {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	return ss.err
}

func (ss *StreamSource) readLoop() {
	defer close(ss.done)
	scanner := bufio.NewScanner(ss.reader)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var wire wireSample
		if err := json.Unmarshal(line, &wire); err != nil {
			ss.logger.Debugw("skipping malformed orientation sample", "error", err)
			continue
		}
		ss.mu.Lock()
		handler := ss.handler
		ss.mu.Unlock()
		if handler != nil {
			handler(wire.sample())
		}
	}
	if err := scanner.Err(); err != nil {
		ss.mu.Lock()
		ss.err = err
		ss.mu.Unlock()
		ss.logger.Warnw("orientation stream ended", "error", err)
	}
}

type streamSubscription struct {
	source *StreamSource
	id     int
	once   sync.Once
}

func (sub *streamSubscription) Close() error {
	sub.once.Do(func() {
		sub.source.mu.Lock()
		defer sub.source.mu.Unlock()
		if sub.source.nextID == sub.id {
			sub.source.handler = nil
		}
	})
	return nil
}
