package client

import (
	"testing"
	"time"
)

func TestCursorTrackerVisibility(t *testing.T) {
	now := time.Unix(1000, 0)
	tr := NewCursorTracker(2 * time.Second)
	tr.now = func() time.Time { return now }

	tr.Observe("a", 3, 4, true)
	tr.Observe("b", 5, 6, false)

	vis := tr.Visible()
	if len(vis) != 1 || vis[0].MemberID != "a" {
		t.Fatalf("expected only member a visible, got %+v", vis)
	}
	if vis[0].X != 3 || vis[0].Y != 4 {
		t.Fatalf("wrong position: %+v", vis[0])
	}
}

func TestCursorTrackerStaleness(t *testing.T) {
	now := time.Unix(1000, 0)
	tr := NewCursorTracker(2 * time.Second)
	tr.now = func() time.Time { return now }

	tr.Observe("a", 1, 1, true)

	now = now.Add(1900 * time.Millisecond)
	if len(tr.Visible()) != 1 {
		t.Fatal("cursor should still be fresh")
	}

	now = now.Add(200 * time.Millisecond)
	if len(tr.Visible()) != 0 {
		t.Fatal("cursor should have gone stale")
	}

	// A fresh update revives it.
	tr.Observe("a", 2, 2, true)
	if len(tr.Visible()) != 1 {
		t.Fatal("updated cursor should be visible again")
	}
}

func TestCursorTrackerForgetAndReset(t *testing.T) {
	tr := NewCursorTracker(2 * time.Second)
	tr.Observe("a", 1, 1, true)
	tr.Observe("b", 2, 2, true)

	tr.Forget("a")
	if vis := tr.Visible(); len(vis) != 1 || vis[0].MemberID != "b" {
		t.Fatalf("forget failed: %+v", vis)
	}

	tr.Reset()
	if len(tr.Visible()) != 0 {
		t.Fatal("reset should clear everything")
	}
}
