package viewer

import "fmt"

// Mode is the presentation state of a session.
type Mode int

const (
	// ModeIdle has nothing loaded.
	ModeIdle Mode = iota
	// ModeLoading shows the placeholder while the scene loads.
	ModeLoading
	// ModeLive drives the 3-D renderer.
	ModeLive
	// ModeFallback shows the flat fallback image; the renderer has been released.
	ModeFallback
)

func (m Mode) String() string {
	switch m {
	case ModeIdle:
		return "idle"
	case ModeLoading:
		return "loading"
	case ModeLive:
		return "live"
	case ModeFallback:
		return "fallback"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// FallbackReason says why a session left 3-D.
type FallbackReason int

const (
	// ReasonNone is reported outside fallback.
	ReasonNone FallbackReason = iota
	// ReasonMemoryPressure means the resource monitor crossed its threshold.
	ReasonMemoryPressure
	// ReasonRequested means ForceFallback was called.
	ReasonRequested
)

func (r FallbackReason) String() string {
	switch r {
	case ReasonNone:
		return "none"
	case ReasonMemoryPressure:
		return "memory_pressure"
	case ReasonRequested:
		return "requested"
	default:
		return fmt.Sprintf("FallbackReason(%d)", int(r))
	}
}
