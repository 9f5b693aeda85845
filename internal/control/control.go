// Package control holds the in-memory pause and cancel switches shared
// between API handlers and running import loops.
package control

import (
	"sync"
	"sync/atomic"
)

// Control is the cooperative flag pair for one running task. Loops poll
// it between rows; handlers flip it from another goroutine.
type Control struct {
	paused    atomic.Bool
	cancelled atomic.Bool
}

func New() *Control { return &Control{} }

func (c *Control) Pause()  { c.paused.Store(true) }
func (c *Control) Resume() { c.paused.Store(false) }

// Cancel also clears paused so a paused loop can observe the cancel.
func (c *Control) Cancel() {
	c.cancelled.Store(true)
	c.paused.Store(false)
}

func (c *Control) Paused() bool    { return c.paused.Load() }
func (c *Control) Cancelled() bool { return c.cancelled.Load() }

// Registry maps live task ids to their controls. Entries exist only
// while the task goroutine runs.
type Registry struct {
	mu    sync.RWMutex
	tasks map[string]*Control
}

func NewRegistry() *Registry {
	return &Registry{tasks: make(map[string]*Control)}
}

func (r *Registry) Register(taskID string) *Control {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := New()
	r.tasks[taskID] = c
	return c
}

func (r *Registry) Lookup(taskID string) (*Control, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.tasks[taskID]
	return c, ok
}

func (r *Registry) Remove(taskID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tasks, taskID)
}
