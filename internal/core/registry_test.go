package core

import (
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func testLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

type recordingJournal struct {
	started []string
	ended   []string
	reasons []string
	peaks   []int
}

func (j *recordingJournal) SessionStarted(id, name string, hasPassword bool, at time.Time) error {
	j.started = append(j.started, id)
	return nil
}

func (j *recordingJournal) SessionEnded(id, reason string, peakMembers int, at time.Time) error {
	j.ended = append(j.ended, id)
	j.reasons = append(j.reasons, reason)
	j.peaks = append(j.peaks, peakMembers)
	return nil
}

func TestCreateAndJoinSession(t *testing.T) {
	r := NewRegistry(testLogger(), nil)

	host, err := r.CreateSession("pixel party", "", OpenPolicy(), "alice", "#e74c3c")
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	if host.SessionID == "" || host.Member.ID == "" {
		t.Fatalf("missing ids in join info: %+v", host)
	}
	if !host.Member.IsHost {
		t.Fatal("creator should be host")
	}
	if !host.IsPublic {
		t.Fatal("passwordless session should be public")
	}

	guest, err := r.JoinSession(host.SessionID, "", "bob", "#3498db")
	if err != nil {
		t.Fatalf("join session: %v", err)
	}
	if guest.Member.IsHost {
		t.Fatal("guest must not be host")
	}
	if len(guest.Members) != 2 {
		t.Fatalf("expected 2 members, got %d", len(guest.Members))
	}
	// Roster must come back ordered by join time.
	if !guest.Members[0].IsHost {
		t.Fatalf("host should sort first: %+v", guest.Members)
	}
}

func TestJoinUnknownSession(t *testing.T) {
	r := NewRegistry(testLogger(), nil)

	_, err := r.JoinSession("nope", "", "bob", "")
	var ce *CoreError
	if !errors.As(err, &ce) || ce.Code != ErrCodeSessionNotFound {
		t.Fatalf("expected session_not_found, got %v", err)
	}
}

func TestPasswordProtectedJoin(t *testing.T) {
	r := NewRegistry(testLogger(), nil)

	host, err := r.CreateSession("secret club", "hunter2", OpenPolicy(), "alice", "")
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	if host.IsPublic {
		t.Fatal("password session must not be public")
	}

	_, err = r.JoinSession(host.SessionID, "wrong", "bob", "")
	var ce *CoreError
	if !errors.As(err, &ce) || ce.Code != ErrCodeInvalidPassword {
		t.Fatalf("expected invalid_password, got %v", err)
	}
	if ce.Message != "Invalid password" {
		t.Fatalf("unexpected message %q", ce.Message)
	}

	if _, err := r.JoinSession(host.SessionID, "hunter2", "bob", ""); err != nil {
		t.Fatalf("correct password rejected: %v", err)
	}
}

func TestCreateSessionRequiresName(t *testing.T) {
	r := NewRegistry(testLogger(), nil)

	_, err := r.CreateSession("   ", "", OpenPolicy(), "alice", "")
	var ce *CoreError
	if !errors.As(err, &ce) || ce.Code != ErrCodeBadRequest {
		t.Fatalf("expected bad_request, got %v", err)
	}
}

func TestHostLeaveDestroysSession(t *testing.T) {
	j := &recordingJournal{}
	r := NewRegistry(testLogger(), j)

	host, _ := r.CreateSession("doomed", "", OpenPolicy(), "alice", "")
	guest, _ := r.JoinSession(host.SessionID, "", "bob", "")

	res, ok := r.LeaveSession(host.SessionID, host.Member.ID)
	if !ok {
		t.Fatal("leave should succeed")
	}
	if !res.HostLeft || !res.SessionDeleted {
		t.Fatalf("host leave should destroy session: %+v", res)
	}
	if len(res.RemainingIDs) != 1 || res.RemainingIDs[0] != guest.Member.ID {
		t.Fatalf("remaining ids wrong: %v", res.RemainingIDs)
	}
	if r.SessionCount() != 0 {
		t.Fatal("session should be gone")
	}
	if len(j.ended) != 1 || j.reasons[0] != "host left" {
		t.Fatalf("journal end missing: %+v", j)
	}
	if j.peaks[0] != 2 {
		t.Fatalf("peak members should be 2, got %d", j.peaks[0])
	}
}

func TestLastGuestLeaveDestroysSession(t *testing.T) {
	j := &recordingJournal{}
	r := NewRegistry(testLogger(), j)

	host, _ := r.CreateSession("draining", "", OpenPolicy(), "alice", "")
	guest, _ := r.JoinSession(host.SessionID, "", "bob", "")

	// Host drops first without the session emptying entirely... except a
	// host departure destroys the session, so drain guest first instead.
	res, _ := r.LeaveSession(host.SessionID, guest.Member.ID)
	if res.SessionDeleted {
		t.Fatal("session should survive a guest leaving")
	}

	res, _ = r.LeaveSession(host.SessionID, host.Member.ID)
	if !res.SessionDeleted {
		t.Fatal("empty session should be destroyed")
	}
	if j.reasons[len(j.reasons)-1] != "host left" {
		t.Fatalf("unexpected end reason %v", j.reasons)
	}
}

func TestLeaveUnknownMemberIsNoOp(t *testing.T) {
	r := NewRegistry(testLogger(), nil)
	host, _ := r.CreateSession("calm", "", OpenPolicy(), "alice", "")

	if _, ok := r.LeaveSession(host.SessionID, "ghost"); ok {
		t.Fatal("unknown member should be a silent no-op")
	}
	if _, ok := r.LeaveSession("ghost", host.Member.ID); ok {
		t.Fatal("unknown session should be a silent no-op")
	}
	if r.SessionCount() != 1 {
		t.Fatal("session should be untouched")
	}
}

func TestKickMemberRules(t *testing.T) {
	r := NewRegistry(testLogger(), nil)
	host, _ := r.CreateSession("strict", "", OpenPolicy(), "alice", "")
	guest, _ := r.JoinSession(host.SessionID, "", "bob", "")

	// Only the host may kick.
	if _, err := r.KickMember(host.SessionID, guest.Member.ID, host.Member.ID); err == nil {
		t.Fatal("guest kick should fail")
	}
	// The host may not kick itself.
	if _, err := r.KickMember(host.SessionID, host.Member.ID, host.Member.ID); err == nil {
		t.Fatal("self kick should fail")
	}

	kicked, err := r.KickMember(host.SessionID, host.Member.ID, guest.Member.ID)
	if err != nil {
		t.Fatalf("kick: %v", err)
	}
	if kicked.ID != guest.Member.ID {
		t.Fatalf("wrong member kicked: %+v", kicked)
	}
	if _, ok := r.MemberByID(host.SessionID, guest.Member.ID); ok {
		t.Fatal("kicked member should be removed")
	}
	// A second kick of the same member is an error, not a crash.
	if _, err := r.KickMember(host.SessionID, host.Member.ID, guest.Member.ID); err == nil {
		t.Fatal("double kick should fail")
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	r := NewRegistry(testLogger(), nil)
	host, _ := r.CreateSession("drawn", "", OpenPolicy(), "alice", "")

	blob := []byte(`{"width":4,"height":4}`)
	r.SetSnapshot(host.SessionID, blob)

	guest, err := r.JoinSession(host.SessionID, "", "bob", "")
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	if string(guest.Snapshot) != string(blob) {
		t.Fatalf("snapshot not delivered on join: %q", guest.Snapshot)
	}
}

func TestRenameAndRecolor(t *testing.T) {
	r := NewRegistry(testLogger(), nil)
	host, _ := r.CreateSession("names", "", OpenPolicy(), "alice", "#e74c3c")

	old, ok := r.RenameMember(host.SessionID, host.Member.ID, "alicia")
	if !ok || old != "alice" {
		t.Fatalf("rename: old=%q ok=%v", old, ok)
	}
	if _, ok := r.RenameMember(host.SessionID, host.Member.ID, "   "); ok {
		t.Fatal("blank rename should be rejected")
	}

	old, ok = r.RecolorMember(host.SessionID, host.Member.ID, "#3498db")
	if !ok || old != "#e74c3c" {
		t.Fatalf("recolor: old=%q ok=%v", old, ok)
	}
	if _, ok := r.RecolorMember(host.SessionID, host.Member.ID, "#123456"); ok {
		t.Fatal("off-palette color should be rejected")
	}
}

func TestAnonymousDefaultsAndPaletteFallback(t *testing.T) {
	r := NewRegistry(testLogger(), nil)
	host, _ := r.CreateSession("defaults", "", OpenPolicy(), "", "not-a-color")

	if host.Member.Name != "Anonymous" {
		t.Fatalf("expected Anonymous, got %q", host.Member.Name)
	}
	if host.Member.Color == "not-a-color" || host.Member.Color == "" {
		t.Fatalf("expected palette fallback, got %q", host.Member.Color)
	}
}

func TestPublicSessionsListing(t *testing.T) {
	r := NewRegistry(testLogger(), nil)

	pub, _ := r.CreateSession("open house", "", OpenPolicy(), "alice", "")
	r.CreateSession("members only", "shh", OpenPolicy(), "bob", "")

	list := r.PublicSessions()
	if len(list) != 1 {
		t.Fatalf("expected 1 public session, got %d", len(list))
	}
	if list[0].ID != pub.SessionID || list[0].HasPassword {
		t.Fatalf("unexpected summary: %+v", list[0])
	}
	if list[0].MemberCount != 1 {
		t.Fatalf("member count wrong: %+v", list[0])
	}
}

func TestEndAll(t *testing.T) {
	j := &recordingJournal{}
	r := NewRegistry(testLogger(), j)

	r.CreateSession("one", "", OpenPolicy(), "a", "")
	r.CreateSession("two", "", OpenPolicy(), "b", "")

	ids := r.EndAll("server shutting down")
	if len(ids) != 2 {
		t.Fatalf("expected 2 ids, got %v", ids)
	}
	if r.SessionCount() != 0 {
		t.Fatal("registry should be empty")
	}
	if len(j.ended) != 2 || j.reasons[0] != "server shutting down" {
		t.Fatalf("journal ends wrong: %+v", j)
	}
}

func TestPolicyNormalize(t *testing.T) {
	p := Policy{UndoRedo: "host", Draw: "banana"}
	n := p.Normalize()
	if n.UndoRedo != AudienceHost {
		t.Fatalf("host audience lost: %+v", n)
	}
	if n.Draw != AudienceEveryone || n.Chat != AudienceEveryone {
		t.Fatalf("unknown or empty audience should coerce to everyone: %+v", n)
	}
}
