package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"pixelsync/internal/config"
	"pixelsync/internal/core"
	"pixelsync/internal/proto"
	"pixelsync/internal/store/sqlite"
)

func newAPITestServer(t *testing.T) (*httptest.Server, *core.Registry, *sqlite.SQLiteStore) {
	t.Helper()

	st, err := sqlite.New(filepath.Join(t.TempDir(), "journal.db"))
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	registry := core.NewRegistry(testLogger(), nil)
	cfg := config.Default()
	router := NewRouter(registry, cfg.KickGrace, cfg.MaxMessageBytes, testLogger())
	server := NewServer(router, registry, st, &cfg, testLogger())

	srv := httptest.NewServer(server.Handler)
	t.Cleanup(srv.Close)
	return srv, registry, st
}

func getJSON(t *testing.T, url string, wantStatus int, v any) {
	t.Helper()

	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("get %s: %v", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != wantStatus {
		t.Fatalf("get %s: status %d, want %d", url, resp.StatusCode, wantStatus)
	}
	if v != nil {
		if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
			t.Fatalf("decode %s: %v", url, err)
		}
	}
}

func TestHealthEndpoint(t *testing.T) {
	srv, _, _ := newAPITestServer(t)

	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d", resp.StatusCode)
	}
}

func TestListSessionsShowsOnlyPublic(t *testing.T) {
	srv, registry, _ := newAPITestServer(t)

	pub, err := registry.CreateSession("open house", "", core.OpenPolicy(), "alice", "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := registry.CreateSession("members only", "shh", core.OpenPolicy(), "bob", ""); err != nil {
		t.Fatalf("create: %v", err)
	}

	var list []proto.SessionSummary
	getJSON(t, srv.URL+"/api/sessions", http.StatusOK, &list)
	if len(list) != 1 {
		t.Fatalf("expected 1 public session, got %d", len(list))
	}
	if list[0].ID != pub.SessionID || list[0].Name != "open house" || list[0].HasPassword {
		t.Fatalf("unexpected summary: %+v", list[0])
	}
}

func TestGetSessionByID(t *testing.T) {
	srv, registry, _ := newAPITestServer(t)

	// A password-protected session is still addressable by id; only the
	// listing hides it.
	created, err := registry.CreateSession("locked", "shh", core.OpenPolicy(), "alice", "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	var summary proto.SessionSummary
	getJSON(t, srv.URL+"/api/sessions/"+created.SessionID, http.StatusOK, &summary)
	if summary.ID != created.SessionID || !summary.HasPassword || summary.MemberCount != 1 {
		t.Fatalf("unexpected summary: %+v", summary)
	}

	var errResp ErrorResponse
	getJSON(t, srv.URL+"/api/sessions/nope", http.StatusNotFound, &errResp)
	if errResp.Error != "session not found" {
		t.Fatalf("unexpected error %q", errResp.Error)
	}
}

func TestHistoryEndpoint(t *testing.T) {
	srv, _, st := newAPITestServer(t)

	started := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	ctx := t.Context()
	if err := st.RecordSessionStarted(ctx, "s-1", "finished", false, started); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := st.RecordSessionEnded(ctx, "s-1", "host left", 3, started.Add(time.Hour)); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := st.RecordSessionStarted(ctx, "s-2", "live", true, started.Add(2*time.Hour)); err != nil {
		t.Fatalf("record: %v", err)
	}

	var history []SessionHistoryEntry
	getJSON(t, srv.URL+"/api/history", http.StatusOK, &history)
	if len(history) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(history))
	}
	// Newest first.
	if history[0].ID != "s-2" || history[0].EndedAt != "" {
		t.Fatalf("live row wrong: %+v", history[0])
	}
	if history[1].ID != "s-1" || history[1].EndReason != "host left" || history[1].PeakMembers != 3 {
		t.Fatalf("finished row wrong: %+v", history[1])
	}
}
