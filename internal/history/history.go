// Package history records orchestration runs for later inspection.
package history

import (
	"context"
	"time"
)

// EventType defines the kind of lifecycle event.
type EventType string

const (
	EventStart EventType = "start"
	EventStop  EventType = "stop"
)

// Run describes one orchestration run of the bootstrapper.
type Run struct {
	Mode         string        `json:"mode"`
	BrowserPID   int           `json:"browser_pid"`
	LaunchedByUs bool          `json:"launched_by_us"`
	GateResult   string        `json:"gate_result"`
	GateAttempts int           `json:"gate_attempts"`
	StartedAt    time.Time     `json:"started_at"`
	StoppedAt    time.Time     `json:"stopped_at,omitzero"`
	Duration     time.Duration `json:"duration"`
}

// Event pairs a run snapshot with the lifecycle moment it was taken at.
type Event struct {
	Type       EventType `json:"type"`
	OccurredAt time.Time `json:"occurred_at"`
	Run        Run       `json:"run"`
}

// Sink is a destination for run events. Implementations must be safe for
// concurrent use.
type Sink interface {
	Send(ctx context.Context, e Event) error
	Close() error
}
