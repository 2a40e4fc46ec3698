package utils

// Guard runs cleanup only when a multi-step acquisition fails part way. Typical usage:
//
//	guard := NewGuard(func() { handle.Dispose() })
//	defer guard.OnFail()
//	if err := step(); err != nil {
//		return err
//	}
//	guard.Success()
//
// Additional cleanups registered with Add run in reverse order, like defers.
type Guard struct {
	cleanups []func()
	success  bool
}

// NewGuard returns a Guard with an initial failure cleanup.
func NewGuard(onFailCleanup func()) *Guard {
	guard := &Guard{}
	guard.Add(onFailCleanup)
	return guard
}

// Add registers another cleanup to run on failure.
func (guard *Guard) Add(onFailCleanup func()) {
	if onFailCleanup != nil {
		guard.cleanups = append(guard.cleanups, onFailCleanup)
	}
}

// OnFail runs the cleanups unless Success was called. It is meant to be deferred.
func (guard *Guard) OnFail() {
	if guard.success {
		return
	}
	for i := len(guard.cleanups) - 1; i >= 0; i-- {
		guard.cleanups[i]()
	}
	guard.cleanups = nil
}

// Success declares the acquisition complete; deferred OnFail calls become no-ops.
func (guard *Guard) Success() {
	guard.success = true
}
