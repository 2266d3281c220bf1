package board

import (
	"sync"
	"sync/atomic"
)

// Connectivity tracks whether the orders backend is reachable, as observed
// from persistence and refresh outcomes. Regaining connectivity fires the
// registered callbacks, which is what drives queue replay.
type Connectivity struct {
	offline atomic.Bool

	mu       sync.Mutex
	onOnline []func()
}

// NewConnectivity starts in the online state.
func NewConnectivity() *Connectivity {
	return &Connectivity{}
}

// Online reports the current reachability belief.
func (c *Connectivity) Online() bool {
	return !c.offline.Load()
}

// OnOnline registers a callback invoked each time connectivity returns.
func (c *Connectivity) OnOnline(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onOnline = append(c.onOnline, fn)
}

// MarkSuccess records a successful backend call. The offline→online edge
// triggers the callbacks exactly once per outage.
func (c *Connectivity) MarkSuccess() {
	if c.offline.CompareAndSwap(true, false) {
		c.mu.Lock()
		fns := append([]func(){}, c.onOnline...)
		c.mu.Unlock()
		for _, fn := range fns {
			fn()
		}
	}
}

// MarkFailure records a failed backend call. Only connectivity-shaped
// errors flip the tracker offline; rejections while reachable do not.
func (c *Connectivity) MarkFailure(err error) {
	if isConnectivityError(err) {
		c.offline.Store(true)
	}
}
