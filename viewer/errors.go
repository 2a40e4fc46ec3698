package viewer

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrDisposed is returned by Load once the session has been disposed, including when disposal
	// interrupts a load in flight.
	ErrDisposed = errors.New("viewer session disposed")
	// ErrLoadSuperseded is returned by a Load that was overtaken by a later Load.
	ErrLoadSuperseded = errors.New("load superseded by a newer load")
)

// ResolutionError means no renderable scene location could be determined. The session is left
// idle.
type ResolutionError struct {
	Ref    AssetRef
	Reason string
	Err    error
}

func (e *ResolutionError) Error() string {
	msg := fmt.Sprintf("cannot resolve scene %s: %s", e.Ref, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the lookup error, if any.
func (e *ResolutionError) Unwrap() error {
	return e.Err
}

// LoadFailure means the renderer could not be created or rejected the scene. The session is left
// idle with no renderer or surfaces.
type LoadFailure struct {
	Location string
	Err      error
}

func (e *LoadFailure) Error() string {
	return fmt.Sprintf("cannot load scene %q: %v", e.Location, e.Err)
}

// Unwrap returns the renderer error.
func (e *LoadFailure) Unwrap() error {
	return e.Err
}
