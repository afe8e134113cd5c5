// Package reqmgr serializes automation requests against the single browser
// backend: FIFO tracking, one global execution slot, cooperative cancellation.
package reqmgr

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/loykin/browserboot/internal/metrics"
)

const (
	DefaultMaxQueue    = 20
	DefaultMaxHistory  = 100
	DefaultLockTimeout = 5 * time.Minute
)

var (
	ErrQueueFull      = errors.New("request queue is full")
	ErrAcquireTimeout = errors.New("timed out waiting for execution slot")
)

// Manager hands out the single execution slot. The browser profile cannot
// serve two automation flows at once, so requests run strictly one at a time
// in arrival order.
type Manager struct {
	MaxQueue    int
	MaxHistory  int
	LockTimeout time.Duration

	mu       sync.Mutex
	order    []string // insertion order for history eviction
	requests map[string]*Context
	current  *Context

	slot chan struct{} // capacity 1: the global execution slot
}

func NewManager() *Manager {
	return &Manager{
		MaxQueue:    DefaultMaxQueue,
		MaxHistory:  DefaultMaxHistory,
		LockTimeout: DefaultLockTimeout,
		requests:    make(map[string]*Context),
		slot:        make(chan struct{}, 1),
	}
}

// Create registers a new request in queued state.
func (m *Manager) Create() *Context {
	id := generateID()
	rc := newContext(id)
	m.mu.Lock()
	m.requests[id] = rc
	m.order = append(m.order, id)
	m.evictLocked()
	m.mu.Unlock()
	slog.Info("request created", "id", id)
	return rc
}

// generateID mirrors the wire format consumers already parse:
// a 5-digit millisecond suffix plus 4 hex characters.
func generateID() string {
	ms := time.Now().UnixMilli() % 100000
	u := strings.ReplaceAll(uuid.NewString(), "-", "")[:4]
	return fmt.Sprintf("%05d-%s", ms, u)
}

// evictLocked drops the oldest terminal requests beyond MaxHistory. Live
// requests are never evicted.
func (m *Manager) evictLocked() {
	for len(m.order) > m.MaxHistory {
		oldest := m.order[0]
		rc := m.requests[oldest]
		if rc != nil && !rc.Terminal() {
			break
		}
		delete(m.requests, oldest)
		m.order = m.order[1:]
	}
}

// Acquire blocks until the request owns the execution slot, the timeout
// expires, or ctx is cancelled. A full queue rejects immediately.
func (m *Manager) Acquire(ctx context.Context, rc *Context) error {
	if qs := m.queueSize(); qs >= m.MaxQueue {
		slog.Warn("request rejected, queue full", "id", rc.ID(), "queued", qs)
		rc.markFailed("queue_full")
		metrics.IncRequest(string(StatusFailed))
		return ErrQueueFull
	}
	metrics.SetQueueDepth(m.queueSize())

	timeout := m.LockTimeout
	if timeout <= 0 {
		timeout = DefaultLockTimeout
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case m.slot <- struct{}{}:
		m.mu.Lock()
		m.current = rc
		m.mu.Unlock()
		rc.markRunning()
		metrics.SetQueueDepth(m.queueSize())
		slog.Info("request started", "id", rc.ID())
		return nil
	case <-timer.C:
		rc.markFailed("lock_timeout")
		metrics.IncRequest(string(StatusFailed))
		slog.Warn("request timed out waiting for slot", "id", rc.ID())
		return ErrAcquireTimeout
	case <-ctx.Done():
		rc.RequestCancel("cancelled_while_waiting")
		rc.markFailed("cancelled_while_waiting")
		metrics.IncRequest(string(StatusCancelled))
		return ctx.Err()
	}
}

// Release returns the execution slot and settles the final state when the
// worker has not already done so.
func (m *Manager) Release(rc *Context, success bool) {
	m.mu.Lock()
	if m.current != nil && m.current.ID() == rc.ID() {
		m.current = nil
		select {
		case <-m.slot:
		default:
		}
	}
	m.mu.Unlock()

	if rc.Status() == StatusRunning {
		if success {
			rc.markCompleted()
		} else {
			rc.markFailed("")
		}
	}
	metrics.IncRequest(string(rc.Status()))
	metrics.SetQueueDepth(m.queueSize())
	slog.Info("request finished", "id", rc.ID(),
		"status", rc.Status(), "duration", rc.Duration())
}

// Cancel flags the identified request for cancellation. Returns false when the
// request is unknown or already terminal.
func (m *Manager) Cancel(id, reason string) bool {
	m.mu.Lock()
	rc := m.requests[id]
	m.mu.Unlock()
	if rc == nil || rc.Terminal() {
		return false
	}
	rc.RequestCancel(reason)
	slog.Info("request cancellation requested", "id", id, "reason", reason)
	return true
}

// CancelCurrent cancels whatever request holds the slot right now.
func (m *Manager) CancelCurrent(reason string) bool {
	m.mu.Lock()
	cur := m.current
	m.mu.Unlock()
	if cur == nil {
		return false
	}
	return m.Cancel(cur.ID(), reason)
}

// Get returns the context for id, or nil.
func (m *Manager) Get(id string) *Context {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.requests[id]
}

// Locked reports whether the execution slot is held.
func (m *Manager) Locked() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current != nil
}

// CurrentID returns the id of the running request, or "".
func (m *Manager) CurrentID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return ""
	}
	return m.current.ID()
}

func (m *Manager) queueSize() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, rc := range m.requests {
		if rc.Status() == StatusQueued {
			n++
		}
	}
	return n
}

// Summary aggregates manager state for the status endpoint.
type Summary struct {
	Locked       bool           `json:"is_locked"`
	Current      string         `json:"current_request,omitempty"`
	QueueSize    int            `json:"queue_size"`
	TotalTracked int            `json:"total_tracked"`
	StatusCounts map[Status]int `json:"status_counts"`
}

func (m *Manager) Summary() Summary {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := make(map[Status]int)
	for _, rc := range m.requests {
		counts[rc.Status()]++
	}
	s := Summary{
		Locked:       m.current != nil,
		QueueSize:    counts[StatusQueued],
		TotalTracked: len(m.requests),
		StatusCounts: counts,
	}
	if m.current != nil {
		s.Current = m.current.ID()
	}
	return s
}

// ForceRelease frees the slot regardless of who holds it. Emergency use only:
// a wedged worker would otherwise starve the queue forever.
func (m *Manager) ForceRelease() bool {
	slog.Warn("force-releasing execution slot")
	m.mu.Lock()
	cur := m.current
	m.current = nil
	m.mu.Unlock()
	if cur != nil {
		cur.RequestCancel("force_release")
	}
	select {
	case <-m.slot:
		return true
	default:
		return cur != nil
	}
}

// WatchDisconnect flags the request for cancellation when the client goes
// away. done is the request-scoped context's Done channel.
func (m *Manager) WatchDisconnect(done <-chan struct{}, rc *Context) {
	go func() {
		<-done
		if !rc.Terminal() {
			rc.RequestCancel("client_disconnected")
			slog.Info("client disconnected", "id", rc.ID())
		}
	}()
}
