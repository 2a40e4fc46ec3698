package utils

import (
	"testing"

	"go.viam.com/test"
)

func TestGuard(t *testing.T) {
	var order []string
	acquire := func(fail bool) {
		guard := NewGuard(func() { order = append(order, "renderer") })
		defer guard.OnFail()
		guard.Add(func() { order = append(order, "surface") })
		if fail {
			return
		}
		guard.Success()
	}

	acquire(false)
	test.That(t, order, test.ShouldBeEmpty)

	acquire(true)
	test.That(t, order, test.ShouldResemble, []string{"surface", "renderer"})

	guard := NewGuard(nil)
	guard.OnFail()
	guard.OnFail()
}
