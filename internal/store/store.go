package store

import (
	"context"
	"time"
)

// SessionRecord is one row of the session journal: when a session
// existed, why it ended and how many members it peaked at. The journal
// is append-only operator history; live sessions are never rebuilt
// from it.
type SessionRecord struct {
	ID          string
	Name        string
	HasPassword bool
	PeakMembers int
	StartedAt   time.Time
	EndedAt     *time.Time
	EndReason   string
}

// Store persists the session journal.
type Store interface {
	RecordSessionStarted(ctx context.Context, id, name string, hasPassword bool, at time.Time) error
	RecordSessionEnded(ctx context.Context, id, reason string, peakMembers int, at time.Time) error
	ListRecentSessions(ctx context.Context, limit int) ([]SessionRecord, error)
	Close() error
}
