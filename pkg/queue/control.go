package queue

import "sync"

// Control is the shared queue state consulted by workers on every poll:
// the pause flag and the drain request. It is passed explicitly to the
// worker pool rather than living in package-level state, and a single mutex
// guards both fields.
type Control struct {
	mu     sync.Mutex
	paused bool
	drain  bool
}

// NewControl returns a running (unpaused) queue control.
func NewControl() *Control {
	return &Control{}
}

// Pause stops workers from claiming tasks. Enqueues are unaffected.
func (c *Control) Pause() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.paused = true
}

// Resume re-enables claiming.
func (c *Control) Resume() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.paused = false
}

// Paused reports whether the queue is paused.
func (c *Control) Paused() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.paused
}

// DrainNow requests immediate visibility of all scheduled tasks. The flag
// stays set until a drain poll finds the queue empty, so a single admin
// trigger processes the whole backlog. Retry backoff is not bypassed.
func (c *Control) DrainNow() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.drain = true
}

// Draining reports whether a drain is in progress.
func (c *Control) Draining() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.drain
}

// drainSettled clears the drain flag once a drain poll came back empty.
func (c *Control) drainSettled() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.drain = false
}
