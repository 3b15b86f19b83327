// Package journal appends resolved choices to a SQLite file for later
// analysis. Nothing in play reads it back.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/nathoo/quantumroom/engine/events"
	"github.com/nathoo/quantumroom/types"
)

const schema = `
CREATE TABLE IF NOT EXISTS resolutions (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id   TEXT    NOT NULL,
	level        INTEGER NOT NULL,
	round        INTEGER NOT NULL,
	choice_id    TEXT    NOT NULL,
	outcome      INTEGER NOT NULL,
	result       TEXT    NOT NULL,
	next_action  TEXT    NOT NULL,
	forced       INTEGER NOT NULL,
	remaining    INTEGER NOT NULL,
	score_delta  INTEGER NOT NULL,
	score        INTEGER NOT NULL,
	recorded_at  INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS resolutions_session ON resolutions (session_id, id);
`

// Entry is one journaled resolution.
type Entry struct {
	SessionID  string
	Level      int // level number
	Round      int
	ChoiceID   string
	Outcome    int
	Result     string
	NextAction string
	Forced     bool
	Remaining  int
	ScoreDelta int
	Score      int
	RecordedAt time.Time
}

// Store is an open journal bound to one play session.
type Store struct {
	sqlDB     *sql.DB
	sessionID string
	now       func() time.Time
}

// Open opens (creating if needed) the journal at path and starts a new
// session id.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("journal path is required")
	}

	dsn := filepath.Clean(path) + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := sqlDB.Exec(schema); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("create journal schema: %w", err)
	}

	return &Store{
		sqlDB:     sqlDB,
		sessionID: uuid.NewString(),
		now:       time.Now,
	}, nil
}

// SessionID identifies the rows written through this Store.
func (s *Store) SessionID() string {
	return s.sessionID
}

// Close releases the underlying connection.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// Record appends e under this store's session.
func (s *Store) Record(ctx context.Context, e Entry) error {
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("journal is not open")
	}
	if e.RecordedAt.IsZero() {
		e.RecordedAt = s.now()
	}
	forced := 0
	if e.Forced {
		forced = 1
	}
	_, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO resolutions
		 (session_id, level, round, choice_id, outcome, result, next_action, forced, remaining, score_delta, score, recorded_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.sessionID, e.Level, e.Round, e.ChoiceID, e.Outcome, e.Result, e.NextAction,
		forced, e.Remaining, e.ScoreDelta, e.Score, e.RecordedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("record resolution: %w", err)
	}
	return nil
}

// Entries returns this session's rows in insertion order.
func (s *Store) Entries(ctx context.Context) ([]Entry, error) {
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("journal is not open")
	}
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT session_id, level, round, choice_id, outcome, result, next_action, forced, remaining, score_delta, score, recorded_at
		 FROM resolutions
		 WHERE session_id = ?
		 ORDER BY id`,
		s.sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("query resolutions: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var forced, at int64
		if err := rows.Scan(&e.SessionID, &e.Level, &e.Round, &e.ChoiceID, &e.Outcome, &e.Result,
			&e.NextAction, &forced, &e.Remaining, &e.ScoreDelta, &e.Score, &at); err != nil {
			return nil, fmt.Errorf("scan resolution: %w", err)
		}
		e.Forced = forced != 0
		e.RecordedAt = time.UnixMilli(at)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate resolutions: %w", err)
	}
	return out, nil
}

// Handler returns an event handler that journals choice_resolved events.
// Write failures are logged and never interrupt play.
func (s *Store) Handler(log *slog.Logger) events.Handler {
	return func(ev types.Event) {
		if ev.Type != events.ChoiceResolved {
			return
		}
		e := FromEvent(ev)
		if err := s.Record(context.Background(), e); err != nil && log != nil {
			log.Warn("journal write failed", "choice", e.ChoiceID, "error", err)
		}
	}
}

// FromEvent extracts an Entry from a choice_resolved event payload.
func FromEvent(ev types.Event) Entry {
	return Entry{
		Level:      intField(ev.Data, "number"),
		Round:      intField(ev.Data, "round"),
		ChoiceID:   stringField(ev.Data, "choice_id"),
		Outcome:    intField(ev.Data, "outcome"),
		Result:     stringField(ev.Data, "result"),
		NextAction: stringField(ev.Data, "next_action"),
		Forced:     ev.Data["forced"] == true,
		Remaining:  intField(ev.Data, "remaining"),
		ScoreDelta: intField(ev.Data, "score_delta"),
		Score:      intField(ev.Data, "score"),
	}
}

func intField(m map[string]any, key string) int {
	switch v := m[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}

func stringField(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}
