package utils

import (
	"context"
	"sync/atomic"
	"testing"

	"go.viam.com/test"
)

func TestStoppableWorkers(t *testing.T) {
	var stopped atomic.Int32
	worker := func(ctx context.Context) {
		<-ctx.Done()
		stopped.Add(1)
	}
	workers := NewStoppableWorkers(worker, worker)
	workers.AddWorkers(worker)
	test.That(t, workers.Context().Err(), test.ShouldBeNil)

	workers.Stop()
	test.That(t, stopped.Load(), test.ShouldEqual, int32(3))
	test.That(t, workers.Context().Err(), test.ShouldNotBeNil)

	// Adding after Stop starts nothing.
	workers.AddWorkers(worker)
	workers.Stop()
	test.That(t, stopped.Load(), test.ShouldEqual, int32(3))
}

func TestStoppableWorkersWithContext(t *testing.T) {
	parent, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	workers := NewStoppableWorkersWithContext(parent, func(ctx context.Context) {
		<-ctx.Done()
		close(done)
	})
	cancel()
	<-done
	workers.Stop()

	var stopped atomic.Int32
	child := NewStoppableWorkersWithContext(context.Background(), func(ctx context.Context) {
		<-ctx.Done()
		stopped.Add(1)
	})
	child.Stop()
	child.Stop()
	test.That(t, stopped.Load(), test.ShouldEqual, int32(1))
}
