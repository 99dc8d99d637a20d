package recording

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	// Register the pure-Go SQLite driver (no CGO required).
	_ "modernc.org/sqlite"
)

// Transition kinds stored in the trace.
const (
	KindReset = "reset"
	KindStep  = "step"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS sessions (
		id          TEXT PRIMARY KEY,
		instance_id TEXT NOT NULL,
		env_kind    TEXT NOT NULL,
		resumed     INTEGER NOT NULL,
		started_at  INTEGER NOT NULL,
		closed_at   INTEGER
	)`,
	`CREATE TABLE IF NOT EXISTS transitions (
		seq         INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id  TEXT NOT NULL REFERENCES sessions(id),
		episode     INTEGER NOT NULL,
		step        INTEGER NOT NULL,
		kind        TEXT NOT NULL,
		action      TEXT,
		observation TEXT NOT NULL,
		reward      REAL NOT NULL,
		done        INTEGER NOT NULL,
		info        TEXT,
		at          INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS transitions_session ON transitions(session_id, seq)`,
}

// Session is one monitor_start..monitor_close span.
type Session struct {
	ID         string
	InstanceID string
	EnvKind    string
	Resumed    bool
	StartedAt  time.Time
	ClosedAt   time.Time // zero while open
}

// Transition is one recorded reset or step. Action, Observation and Info are
// JSON documents; Action is empty for resets.
type Transition struct {
	SessionID   string
	Episode     int
	Step        int
	Kind        string
	Action      string
	Observation string
	Reward      float64
	Done        bool
	Info        string
	At          time.Time
}

// SessionStats counts what a session recorded.
type SessionStats struct {
	Episodes int
	Steps    int
}

// Store is the SQLite trace database of one recording directory.
type Store struct {
	db *sql.DB
}

// OpenStore opens or creates the trace database at path and applies the
// schema.
func OpenStore(ctx context.Context, path string) (*Store, error) {
	dsn := fmt.Sprintf(
		"file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)",
		path,
	)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// One writer per directory; the recording lock already excludes others.
	db.SetMaxOpenConns(1)

	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply schema to %s: %w", path, err)
		}
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// BeginSession inserts a new open session row.
func (s *Store) BeginSession(ctx context.Context, sess Session) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, instance_id, env_kind, resumed, started_at) VALUES (?, ?, ?, ?, ?)`,
		sess.ID, sess.InstanceID, sess.EnvKind, boolToInt(sess.Resumed), sess.StartedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("insert session %s: %w", sess.ID, err)
	}
	return nil
}

// EndSession stamps the close time of a session.
func (s *Store) EndSession(ctx context.Context, id string, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `UPDATE sessions SET closed_at = ? WHERE id = ?`, at.UnixNano(), id)
	if err != nil {
		return fmt.Errorf("close session %s: %w", id, err)
	}
	return nil
}

// Append adds one transition.
func (s *Store) Append(ctx context.Context, tr Transition) error {
	var action sql.NullString
	if tr.Action != "" {
		action = sql.NullString{String: tr.Action, Valid: true}
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO transitions (session_id, episode, step, kind, action, observation, reward, done, info, at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		tr.SessionID, tr.Episode, tr.Step, tr.Kind, action, tr.Observation,
		tr.Reward, boolToInt(tr.Done), tr.Info, tr.At.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("append %s transition: %w", tr.Kind, err)
	}
	return nil
}

// LastEpisode returns the highest episode number recorded in any session, or
// 0 if the trace is empty.
func (s *Store) LastEpisode(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(episode), 0) FROM transitions`).Scan(&n); err != nil {
		return 0, fmt.Errorf("query last episode: %w", err)
	}
	return n, nil
}

// Sessions returns all sessions in start order.
func (s *Store) Sessions(ctx context.Context) ([]Session, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, instance_id, env_kind, resumed, started_at, closed_at FROM sessions ORDER BY started_at, id`)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close() //nolint:errcheck // rows.Err() below catches read errors

	var out []Session
	for rows.Next() {
		var (
			sess    Session
			resumed int
			started int64
			closed  sql.NullInt64
		)
		if err := rows.Scan(&sess.ID, &sess.InstanceID, &sess.EnvKind, &resumed, &started, &closed); err != nil {
			return nil, fmt.Errorf("scan session row: %w", err)
		}
		sess.Resumed = resumed != 0
		sess.StartedAt = time.Unix(0, started)
		if closed.Valid {
			sess.ClosedAt = time.Unix(0, closed.Int64)
		}
		out = append(out, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate session rows: %w", err)
	}
	return out, nil
}

// Stats counts the distinct episodes and the steps recorded by a session.
func (s *Store) Stats(ctx context.Context, sessionID string) (SessionStats, error) {
	var st SessionStats
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(DISTINCT CASE WHEN kind = ? THEN episode END),
		        COUNT(CASE WHEN kind = ? THEN 1 END)
		 FROM transitions WHERE session_id = ?`,
		KindReset, KindStep, sessionID,
	).Scan(&st.Episodes, &st.Steps)
	if err != nil {
		return SessionStats{}, fmt.Errorf("query stats for %s: %w", sessionID, err)
	}
	return st, nil
}

// Transitions returns the transitions of a session in recording order.
func (s *Store) Transitions(ctx context.Context, sessionID string) ([]Transition, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT session_id, episode, step, kind, action, observation, reward, done, info, at
		 FROM transitions WHERE session_id = ? ORDER BY seq`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query transitions: %w", err)
	}
	defer rows.Close() //nolint:errcheck // rows.Err() below catches read errors

	var out []Transition
	for rows.Next() {
		var (
			tr     Transition
			action sql.NullString
			info   sql.NullString
			done   int
			at     int64
		)
		if err := rows.Scan(&tr.SessionID, &tr.Episode, &tr.Step, &tr.Kind, &action,
			&tr.Observation, &tr.Reward, &done, &info, &at); err != nil {
			return nil, fmt.Errorf("scan transition row: %w", err)
		}
		tr.Action = action.String
		tr.Info = info.String
		tr.Done = done != 0
		tr.At = time.Unix(0, at)
		out = append(out, tr)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transition rows: %w", err)
	}
	return out, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
