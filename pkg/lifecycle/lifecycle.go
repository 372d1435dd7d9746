// Package lifecycle coordinates process startup and phased shutdown.
package lifecycle

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// ReadinessChecker reports whether a subsystem is ready to serve traffic.
type ReadinessChecker interface {
	Ready() bool
}

// Coordinator runs startup hooks concurrently and shutdown hooks in two
// phases. Drain hooks finish in-flight work first; shutdown hooks then
// release the resources that work depended on.
type Coordinator struct {
	ctx       context.Context
	cancel    context.CancelFunc
	startupWg sync.WaitGroup
	ready     atomic.Bool

	mu       sync.Mutex
	drain    []func()
	shutdown []func()
}

// New creates a Coordinator with a cancellable context.
func New() *Coordinator {
	ctx, cancel := context.WithCancel(context.Background())
	return &Coordinator{
		ctx:    ctx,
		cancel: cancel,
	}
}

// Context returns the coordinator's context, cancelled when shutdown begins.
func (c *Coordinator) Context() context.Context {
	return c.ctx
}

// OnStartup runs fn concurrently with the other startup hooks.
func (c *Coordinator) OnStartup(fn func()) {
	c.startupWg.Go(fn)
}

// OnDrain registers fn for the first shutdown phase.
func (c *Coordinator) OnDrain(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.drain = append(c.drain, fn)
}

// OnShutdown registers fn for the second shutdown phase, after every drain
// hook has returned.
func (c *Coordinator) OnShutdown(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.shutdown = append(c.shutdown, fn)
}

// Ready returns true after all startup hooks have completed.
func (c *Coordinator) Ready() bool {
	return c.ready.Load()
}

// WaitForStartup blocks until all startup hooks have completed and sets the ready flag.
func (c *Coordinator) WaitForStartup() {
	c.startupWg.Wait()
	c.ready.Store(true)
}

// Shutdown cancels the context, then runs the drain and shutdown phases in
// order. The timeout covers both phases.
func (c *Coordinator) Shutdown(timeout time.Duration) error {
	c.ready.Store(false)
	c.cancel()

	c.mu.Lock()
	phases := [][]func(){c.drain, c.shutdown}
	c.mu.Unlock()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for _, hooks := range phases {
			var wg sync.WaitGroup
			for _, fn := range hooks {
				wg.Go(fn)
			}
			wg.Wait()
		}
	}()

	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("shutdown timeout after %v", timeout)
	}
}
