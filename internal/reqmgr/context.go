package reqmgr

import (
	"sync"
	"time"
)

// Status is the lifecycle state of a tracked request.
type Status string

const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
	StatusFailed    Status = "failed"
)

// Context follows a request through its whole lifecycle: it identifies the
// request, tracks its state transitions, and carries the cancellation flag
// that the automation worker checks between steps. Cancellation is
// cooperative: setting the flag does not interrupt anything by itself.
type Context struct {
	mu sync.Mutex

	id           string
	status       Status
	createdAt    time.Time
	startedAt    time.Time
	finishedAt   time.Time
	cancelled    bool
	cancelReason string
}

func newContext(id string) *Context {
	return &Context{id: id, status: StatusQueued, createdAt: time.Now()}
}

func (c *Context) ID() string { return c.id }

func (c *Context) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// ShouldStop reports whether cancellation was requested. Workers poll this at
// their checkpoints.
func (c *Context) ShouldStop() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cancelled
}

// RequestCancel sets the cancellation flag. The actual stop happens at the
// worker's next checkpoint. Repeated calls keep the first reason.
func (c *Context) RequestCancel(reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancelled {
		return
	}
	c.cancelled = true
	c.cancelReason = reason
	if c.status == StatusRunning {
		c.status = StatusCancelled
	}
}

func (c *Context) CancelReason() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cancelReason
}

func (c *Context) markRunning() {
	c.mu.Lock()
	c.status = StatusRunning
	c.startedAt = time.Now()
	c.mu.Unlock()
}

func (c *Context) markCompleted() {
	c.mu.Lock()
	if c.status == StatusRunning {
		c.status = StatusCompleted
	}
	c.finishedAt = time.Now()
	c.mu.Unlock()
}

func (c *Context) markFailed(reason string) {
	c.mu.Lock()
	c.status = StatusFailed
	c.finishedAt = time.Now()
	if reason != "" {
		c.cancelReason = reason
	}
	c.mu.Unlock()
}

// Duration is the execution time so far, or total when finished.
func (c *Context) Duration() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	end := c.finishedAt
	if end.IsZero() {
		end = time.Now()
	}
	start := c.startedAt
	if start.IsZero() {
		start = c.createdAt
	}
	return end.Sub(start)
}

// Terminal reports whether the request reached a final state.
func (c *Context) Terminal() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return terminal(c.status)
}

func terminal(s Status) bool {
	return s == StatusCompleted || s == StatusCancelled || s == StatusFailed
}

// Info is a point-in-time snapshot safe to serialize.
type Info struct {
	ID           string        `json:"id"`
	Status       Status        `json:"status"`
	CreatedAt    time.Time     `json:"created_at"`
	StartedAt    time.Time     `json:"started_at,omitzero"`
	FinishedAt   time.Time     `json:"finished_at,omitzero"`
	CancelReason string        `json:"cancel_reason,omitempty"`
	Duration     time.Duration `json:"duration"`
}

func (c *Context) Snapshot() Info {
	c.mu.Lock()
	defer c.mu.Unlock()
	end := c.finishedAt
	if end.IsZero() {
		end = time.Now()
	}
	start := c.startedAt
	if start.IsZero() {
		start = c.createdAt
	}
	return Info{
		ID:           c.id,
		Status:       c.status,
		CreatedAt:    c.createdAt,
		StartedAt:    c.startedAt,
		FinishedAt:   c.finishedAt,
		CancelReason: c.cancelReason,
		Duration:     end.Sub(start),
	}
}
