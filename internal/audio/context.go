package audio

import "sync"

// captureContext owns one activated client and the synchronization
// primitives of one capture session. The two signal channels have capacity
// one and auto-reset semantics: a send marks them signaled, a receive
// consumes the signal.
type captureContext struct {
	client      Client
	format      Format
	bufferReady chan struct{}
	shouldExit  chan struct{}

	releaseOnce sync.Once
}

func newSignal() chan struct{} {
	return make(chan struct{}, 1)
}

// signal sets ch without blocking; a signal already pending is left alone.
func signal(ch chan<- struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}

// drain resets ch to unsignaled.
func drain(ch <-chan struct{}) {
	select {
	case <-ch:
	default:
	}
}

// signalExit requests capture-loop termination. The loop observes it only
// between packet-drain passes.
func (c *captureContext) signalExit() {
	signal(c.shouldExit)
}

// release frees the native client. Callers must guarantee no capture
// goroutine still references it; the session enforces join-before-release.
func (c *captureContext) release() {
	c.releaseOnce.Do(func() {
		if c.client != nil {
			c.client.Release()
		}
	})
}
