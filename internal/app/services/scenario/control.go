package scenario

import (
	"context"
	"sync"
)

// controlPlane is the small per-execution control block: a pause flag, a
// single-shot resume signal the driver blocks on while paused, and a
// cancellation token plumbed into the Requester and checked at every
// scheduler checkpoint. Exactly one driver reads paused/cancelled state;
// external callers only ever write to it.
type controlPlane struct {
	mu     sync.Mutex
	paused bool

	resumeCh chan struct{}

	cancel context.CancelFunc
	ctx    context.Context
}

func newControlPlane() *controlPlane {
	ctx, cancel := context.WithCancel(context.Background())
	return &controlPlane{
		resumeCh: make(chan struct{}),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// isCancelled reports whether the cancellation token has fired.
func (c *controlPlane) isCancelled() bool {
	select {
	case <-c.ctx.Done():
		return true
	default:
		return false
	}
}

// context returns the cancellation-carrying context passed to the
// Requester and checked at scheduler checkpoints.
func (c *controlPlane) context() context.Context {
	return c.ctx
}

// pause sets the paused flag. Returns false if already paused.
func (c *controlPlane) pause() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.paused {
		return false
	}
	c.paused = true
	return true
}

// resume clears the paused flag and wakes the driver's wait on the
// resume signal. Returns false if not currently paused.
func (c *controlPlane) resume() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.paused {
		return false
	}
	c.paused = false
	close(c.resumeCh)
	c.resumeCh = make(chan struct{})
	return true
}

// isPaused reports the current value of the paused flag, published such
// that the driver's pause checkpoint always observes the most recent
// write (guarded by the same mutex every writer uses).
func (c *controlPlane) isPaused() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.paused
}

// waitResumeOrCancel blocks until either resume() is called or the
// cancellation token fires, returning true if woken by cancellation.
func (c *controlPlane) waitResumeOrCancel() (cancelled bool) {
	c.mu.Lock()
	resumeCh := c.resumeCh
	c.mu.Unlock()

	select {
	case <-resumeCh:
		return c.isCancelled()
	case <-c.ctx.Done():
		return true
	}
}

// cancel fires the cancellation token. If the execution is currently
// paused, it is first unpaused and the resume signal fired so the driver
// advances to observe the cancellation at its next checkpoint.
func (c *controlPlane) fireCancel() {
	c.mu.Lock()
	if c.paused {
		c.paused = false
		close(c.resumeCh)
		c.resumeCh = make(chan struct{})
	}
	c.mu.Unlock()
	c.cancel()
}
