package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func newTestSink(t *testing.T) *SQLiteSink {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("NewSQLite: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSQLiteSendAndRecent(t *testing.T) {
	s := newTestSink(t)
	ctx := context.Background()

	started := time.Now().Add(-2 * time.Second)
	for i, typ := range []EventType{EventStart, EventStop} {
		e := Event{
			Type:       typ,
			OccurredAt: time.Now(),
			Run: Run{
				Mode:         "container",
				BrowserPID:   4242,
				LaunchedByUs: true,
				GateResult:   "ready",
				GateAttempts: i + 1,
				StartedAt:    started,
				Duration:     1500 * time.Millisecond,
			},
		}
		if typ == EventStop {
			e.Run.StoppedAt = time.Now()
		}
		if err := s.Send(ctx, e); err != nil {
			t.Fatalf("Send %s: %v", typ, err)
		}
	}

	rows, err := s.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("want 2 rows, got %d", len(rows))
	}
	// Newest first.
	if rows[0].Event != string(EventStop) || rows[1].Event != string(EventStart) {
		t.Fatalf("row order wrong: %q then %q", rows[0].Event, rows[1].Event)
	}
	got := rows[0]
	if got.Mode != "container" || got.BrowserPID != 4242 || !got.LaunchedByUs {
		t.Fatalf("row content wrong: %+v", got)
	}
	if got.GateResult != "ready" || got.DurationMS != 1500 {
		t.Fatalf("row content wrong: %+v", got)
	}
}

func TestSQLiteRecentRespectsLimit(t *testing.T) {
	s := newTestSink(t)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		e := Event{Type: EventStart, OccurredAt: time.Now(),
			Run: Run{Mode: "desktop", GateResult: "ready", StartedAt: time.Now()}}
		if err := s.Send(ctx, e); err != nil {
			t.Fatalf("Send: %v", err)
		}
	}
	rows, err := s.Recent(ctx, 3)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("limit not honored: got %d rows", len(rows))
	}
}

func TestSQLiteDSNPrefix(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefixed.db")
	s, err := NewSQLite("sqlite://" + path)
	if err != nil {
		t.Fatalf("NewSQLite with scheme prefix: %v", err)
	}
	defer func() { _ = s.Close() }()
	if err := s.Send(context.Background(), Event{
		Type: EventStart, OccurredAt: time.Now(),
		Run: Run{Mode: "desktop", GateResult: "ready", StartedAt: time.Now()},
	}); err != nil {
		t.Fatalf("Send: %v", err)
	}
}

func TestSQLiteEmptyDSN(t *testing.T) {
	if _, err := NewSQLite("  "); err == nil {
		t.Fatalf("empty DSN must be rejected")
	}
}

func TestSQLiteReopenKeepsRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "persist.db")
	s, err := NewSQLite(path)
	if err != nil {
		t.Fatalf("NewSQLite: %v", err)
	}
	if err := s.Send(context.Background(), Event{
		Type: EventStop, OccurredAt: time.Now(),
		Run: Run{Mode: "container", GateResult: "timed_out_hard", StartedAt: time.Now()},
	}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	s2, err := NewSQLite(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer func() { _ = s2.Close() }()
	rows, err := s2.Recent(context.Background(), 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(rows) != 1 || rows[0].GateResult != "timed_out_hard" {
		t.Fatalf("persisted row missing: %+v", rows)
	}
}
