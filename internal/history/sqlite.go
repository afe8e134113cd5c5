package history

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteSink appends run events to a SQLite table and serves recent rows for
// the history endpoint. The schema is created if missing.
// DSN forms:
//   - "sqlite:///path/to/file.db"
//   - "/path/to/file.db"
//   - ":memory:"
type SQLiteSink struct {
	db *sql.DB
}

// NewSQLite opens (or creates) the database behind dsn.
func NewSQLite(dsn string) (*SQLiteSink, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, errors.New("empty SQLite DSN")
	}
	if strings.HasPrefix(strings.ToLower(dsn), "sqlite://") {
		dsn = strings.TrimPrefix(dsn, "sqlite://")
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	s := &SQLiteSink{db: db}
	if err := s.ensureSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteSink) ensureSchema(ctx context.Context) error {
	stmt := `CREATE TABLE IF NOT EXISTS run_history(
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		occurred_at TIMESTAMP NOT NULL,
		event TEXT NOT NULL,
		mode TEXT NOT NULL,
		browser_pid INTEGER NOT NULL,
		launched_by_us BOOLEAN NOT NULL,
		gate_result TEXT NOT NULL,
		gate_attempts INTEGER NOT NULL,
		started_at TIMESTAMP NOT NULL,
		stopped_at TIMESTAMP NULL,
		duration_ms INTEGER NOT NULL
	);`
	_, err := s.db.ExecContext(ctx, stmt)
	return err
}

// Send appends one event row.
func (s *SQLiteSink) Send(ctx context.Context, e Event) error {
	var stopped any
	if !e.Run.StoppedAt.IsZero() {
		stopped = e.Run.StoppedAt.UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO run_history(occurred_at, event, mode, browser_pid, launched_by_us,
			gate_result, gate_attempts, started_at, stopped_at, duration_ms)
		 VALUES(?,?,?,?,?,?,?,?,?,?)`,
		e.OccurredAt.UTC(), string(e.Type), e.Run.Mode, e.Run.BrowserPID, e.Run.LaunchedByUs,
		e.Run.GateResult, e.Run.GateAttempts, e.Run.StartedAt.UTC(), stopped,
		e.Run.Duration.Milliseconds())
	return err
}

// RunRow is a stored event as served by the history endpoint.
type RunRow struct {
	ID           int64     `json:"id"`
	OccurredAt   time.Time `json:"occurred_at"`
	Event        string    `json:"event"`
	Mode         string    `json:"mode"`
	BrowserPID   int       `json:"browser_pid"`
	LaunchedByUs bool      `json:"launched_by_us"`
	GateResult   string    `json:"gate_result"`
	GateAttempts int       `json:"gate_attempts"`
	DurationMS   int64     `json:"duration_ms"`
}

// Recent returns up to limit newest rows.
func (s *SQLiteSink) Recent(ctx context.Context, limit int) ([]RunRow, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, occurred_at, event, mode, browser_pid, launched_by_us,
			gate_result, gate_attempts, duration_ms
		 FROM run_history ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []RunRow
	for rows.Next() {
		var r RunRow
		if err := rows.Scan(&r.ID, &r.OccurredAt, &r.Event, &r.Mode, &r.BrowserPID,
			&r.LaunchedByUs, &r.GateResult, &r.GateAttempts, &r.DurationMS); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLiteSink) Close() error { return s.db.Close() }
