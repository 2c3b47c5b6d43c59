package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"pixelsync/internal/store"
)

// SQLiteStore implements store.Store for SQLite.
type SQLiteStore struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS session_journal (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	has_password INTEGER NOT NULL DEFAULT 0,
	peak_members INTEGER NOT NULL DEFAULT 1,
	started_at TIMESTAMP NOT NULL,
	ended_at TIMESTAMP,
	end_reason TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_session_journal_started_at
	ON session_journal (started_at DESC);
`

// New opens (and if needed creates) the journal database at dbPath.
func New(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// SQLite works best with a single connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// RecordSessionStarted inserts a new journal row for a freshly created
// session.
func (s *SQLiteStore) RecordSessionStarted(ctx context.Context, id, name string, hasPassword bool, at time.Time) error {
	query := `
		INSERT INTO session_journal (id, name, has_password, started_at)
		VALUES (?, ?, ?, ?)
	`
	pw := 0
	if hasPassword {
		pw = 1
	}
	if _, err := s.db.ExecContext(ctx, query, id, name, pw, at.UTC()); err != nil {
		return fmt.Errorf("insert journal row: %w", err)
	}
	return nil
}

// RecordSessionEnded closes out a journal row. Unknown ids are ignored;
// the journal must never make session teardown fail.
func (s *SQLiteStore) RecordSessionEnded(ctx context.Context, id, reason string, peakMembers int, at time.Time) error {
	query := `
		UPDATE session_journal
		SET ended_at = ?, end_reason = ?, peak_members = ?
		WHERE id = ?
	`
	if _, err := s.db.ExecContext(ctx, query, at.UTC(), reason, peakMembers, id); err != nil {
		return fmt.Errorf("update journal row: %w", err)
	}
	return nil
}

// ListRecentSessions returns the newest journal rows, most recent
// first.
func (s *SQLiteStore) ListRecentSessions(ctx context.Context, limit int) ([]store.SessionRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
		SELECT id, name, has_password, peak_members, started_at, ended_at, end_reason
		FROM session_journal
		ORDER BY started_at DESC
		LIMIT ?
	`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query journal: %w", err)
	}
	defer rows.Close()

	var out []store.SessionRecord
	for rows.Next() {
		var (
			rec     store.SessionRecord
			pw      int
			endedAt sql.NullTime
		)
		if err := rows.Scan(&rec.ID, &rec.Name, &pw, &rec.PeakMembers, &rec.StartedAt, &endedAt, &rec.EndReason); err != nil {
			return nil, fmt.Errorf("scan journal row: %w", err)
		}
		rec.HasPassword = pw != 0
		if endedAt.Valid {
			t := endedAt.Time
			rec.EndedAt = &t
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate journal rows: %w", err)
	}
	return out, nil
}
