package client

import (
	"sync"
	"time"
)

// RemoteCursor is one peer's last known pointer position.
type RemoteCursor struct {
	MemberID  string
	X         int
	Y         int
	Active    bool
	UpdatedAt time.Time
}

// CursorTracker mirrors remote members' cursors. A cursor that has not
// been updated within the staleness window is treated as hidden; this
// is a liveness heuristic for rendering, not a disconnect signal.
type CursorTracker struct {
	mu         sync.Mutex
	cursors    map[string]RemoteCursor
	staleAfter time.Duration
	now        func() time.Time
}

// NewCursorTracker builds a tracker with the given staleness window.
func NewCursorTracker(staleAfter time.Duration) *CursorTracker {
	return &CursorTracker{
		cursors:    make(map[string]RemoteCursor),
		staleAfter: staleAfter,
		now:        time.Now,
	}
}

// Observe records one cursor_update for a member.
func (t *CursorTracker) Observe(memberID string, x, y int, active bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cursors[memberID] = RemoteCursor{
		MemberID:  memberID,
		X:         x,
		Y:         y,
		Active:    active,
		UpdatedAt: t.now(),
	}
}

// Forget drops a member's cursor, used when they leave the session.
func (t *CursorTracker) Forget(memberID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.cursors, memberID)
}

// Visible returns the cursors that should currently render: active and
// fresher than the staleness window.
func (t *CursorTracker) Visible() []RemoteCursor {
	t.mu.Lock()
	defer t.mu.Unlock()

	cutoff := t.now().Add(-t.staleAfter)
	out := make([]RemoteCursor, 0, len(t.cursors))
	for _, c := range t.cursors {
		if c.Active && c.UpdatedAt.After(cutoff) {
			out = append(out, c)
		}
	}
	return out
}

// Reset clears every tracked cursor.
func (t *CursorTracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cursors = make(map[string]RemoteCursor)
}
