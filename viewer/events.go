package viewer

import (
	"fmt"

	"go.viam.com/splatview/spatialmath"
)

// EventKind identifies a session notification.
type EventKind int

const (
	// EventModeChanged fires on every mode transition.
	EventModeChanged EventKind = iota
	// EventProgress forwards renderer load progress.
	EventProgress
	// EventLive fires once per load when the scene is shown.
	EventLive
	// EventFallback fires once per load when the session downgrades to 2-D.
	EventFallback
	// EventDisposed fires once, on the first Dispose.
	EventDisposed
)

func (k EventKind) String() string {
	switch k {
	case EventModeChanged:
		return "mode_changed"
	case EventProgress:
		return "progress"
	case EventLive:
		return "live"
	case EventFallback:
		return "fallback"
	case EventDisposed:
		return "disposed"
	default:
		return fmt.Sprintf("EventKind(%d)", int(k))
	}
}

// Event is a session notification. Fields not relevant to Kind are zero.
type Event struct {
	Kind EventKind
	Mode Mode
	// Previous is the mode before an EventModeChanged.
	Previous Mode
	// Progress is in percent.
	Progress float64
	// Pose is the resolved base pose on EventLive.
	Pose   spatialmath.CameraPose
	Reason FallbackReason
	// UsageBytes is the sample that triggered a memory pressure fallback.
	UsageBytes uint64
}

// Listener receives session events. Events are delivered on the goroutine that caused them,
// after the session has released its lock, so listeners may call back into the session.
type Listener interface {
	HandleEvent(Event)
}

// ListenerFunc adapts a function to Listener.
type ListenerFunc func(Event)

// HandleEvent calls f.
func (f ListenerFunc) HandleEvent(ev Event) {
	f(ev)
}
