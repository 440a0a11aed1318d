// Package transcript records a session's output as an asciicast-v2-shaped
// event log (§4.15): each event is [elapsed_seconds, "o"|"i", data], the
// same three-field shape asciinema's player understands, but persisted to
// a modernc.org/sqlite table instead of a single JSON file so that a long
// recording can be queried by time range without loading the whole thing
// into memory. The header row (command, dimensions, start time) lives
// alongside it in a sessions table, playing the role the teacher's
// Store.Save/Load gives a single sessions.json file.
package transcript

import (
	"database/sql"
	"embed"
	"fmt"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Kind distinguishes an asciicast event's second field.
type Kind string

const (
	Output Kind = "o"
	Input  Kind = "i"
)

// Header is a recorded session's asciicast-v2 metadata row.
type Header struct {
	SessionID string
	Command   string
	Cols      uint16
	Rows      uint16
	StartedAt time.Time
	EndedAt   *time.Time
}

// Event is one recorded asciicast-v2 frame.
type Event struct {
	Seq            int
	ElapsedSeconds float64
	Kind           Kind
	Data           string
}

// Store is a SQLite-backed transcript journal, grounded on wingthing's
// internal/store.Store (embedded migrations, WAL mode, foreign keys on).
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) the SQLite database at dsn and
// applies any pending migrations.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("transcript: open db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("transcript: set WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("transcript: enable foreign keys: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("transcript: migrate: %w", err)
	}
	return s, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (
		version TEXT PRIMARY KEY,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return fmt.Errorf("create migrations table: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)

	for _, f := range files {
		var applied int
		if err := s.db.QueryRow("SELECT COUNT(*) FROM schema_migrations WHERE version = ?", f).Scan(&applied); err != nil {
			return fmt.Errorf("check migration %s: %w", f, err)
		}
		if applied > 0 {
			continue
		}
		content, err := migrationsFS.ReadFile("migrations/" + f)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", f, err)
		}
		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("begin tx for %s: %w", f, err)
		}
		if _, err := tx.Exec(string(content)); err != nil {
			tx.Rollback()
			return fmt.Errorf("exec migration %s: %w", f, err)
		}
		if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES (?)", f); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration %s: %w", f, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %s: %w", f, err)
		}
	}
	return nil
}

// CreateSession inserts the header row for a new recording.
func (s *Store) CreateSession(h Header) error {
	_, err := s.db.Exec(
		`INSERT INTO sessions (id, command, cols, rows, started_at) VALUES (?, ?, ?, ?, ?)`,
		h.SessionID, h.Command, h.Cols, h.Rows, h.StartedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("transcript: create session: %w", err)
	}
	return nil
}

// EndSession stamps a recording's end time.
func (s *Store) EndSession(sessionID string, at time.Time) error {
	_, err := s.db.Exec(`UPDATE sessions SET ended_at = ? WHERE id = ?`, at.UTC().Format(time.RFC3339Nano), sessionID)
	if err != nil {
		return fmt.Errorf("transcript: end session: %w", err)
	}
	return nil
}

// AppendEvents inserts a batch of events for sessionID in a single
// transaction, the batching the Recorder relies on to keep writes cheap
// under steady output.
func (s *Store) AppendEvents(sessionID string, events []Event) error {
	if len(events) == 0 {
		return nil
	}
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("transcript: begin append: %w", err)
	}
	stmt, err := tx.Prepare(`INSERT INTO events (session_id, seq, elapsed_seconds, kind, data) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("transcript: prepare append: %w", err)
	}
	defer stmt.Close()
	for _, e := range events {
		if _, err := stmt.Exec(sessionID, e.Seq, e.ElapsedSeconds, string(e.Kind), e.Data); err != nil {
			tx.Rollback()
			return fmt.Errorf("transcript: append event %d: %w", e.Seq, err)
		}
	}
	return tx.Commit()
}

// Header loads a recording's metadata row.
func (s *Store) Header(sessionID string) (Header, error) {
	var h Header
	var started string
	var ended *string
	err := s.db.QueryRow(
		`SELECT id, command, cols, rows, started_at, ended_at FROM sessions WHERE id = ?`, sessionID,
	).Scan(&h.SessionID, &h.Command, &h.Cols, &h.Rows, &started, &ended)
	if err != nil {
		return Header{}, fmt.Errorf("transcript: header: %w", err)
	}
	h.StartedAt, _ = time.Parse(time.RFC3339Nano, started)
	if ended != nil {
		t, err := time.Parse(time.RFC3339Nano, *ended)
		if err == nil {
			h.EndedAt = &t
		}
	}
	return h, nil
}

// Events returns every event for sessionID in sequence order, optionally
// restricted to [from, to] elapsed seconds (to <= 0 means unbounded).
func (s *Store) Events(sessionID string, from, to float64) ([]Event, error) {
	query := `SELECT seq, elapsed_seconds, kind, data FROM events WHERE session_id = ? AND elapsed_seconds >= ?`
	args := []any{sessionID, from}
	if to > 0 {
		query += ` AND elapsed_seconds <= ?`
		args = append(args, to)
	}
	query += ` ORDER BY seq`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("transcript: events: %w", err)
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var e Event
		var kind string
		if err := rows.Scan(&e.Seq, &e.ElapsedSeconds, &kind, &e.Data); err != nil {
			return nil, fmt.Errorf("transcript: scan event: %w", err)
		}
		e.Kind = Kind(kind)
		out = append(out, e)
	}
	return out, rows.Err()
}
