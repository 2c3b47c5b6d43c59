package core

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"pixelsync/internal/canvas"
)

// bcryptCost 10 balances hashing cost against join latency.
const bcryptCost = 10

// Journal receives best-effort session lifecycle records. Failures are
// logged and never affect the live session.
type Journal interface {
	SessionStarted(id, name string, hasPassword bool, at time.Time) error
	SessionEnded(id, reason string, peakMembers int, at time.Time) error
}

// Registry is the authoritative in-memory table of active sessions.
// It is constructed once at process start and injected into the
// connection router; all mutation is serialized by its lock.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Session

	journal Journal
	log     *zerolog.Logger
}

// NewRegistry builds an empty registry. journal may be nil.
func NewRegistry(logger *zerolog.Logger, journal Journal) *Registry {
	return &Registry{
		sessions: make(map[string]*Session),
		journal:  journal,
		log:      logger,
	}
}

// JoinInfo is the snapshot of session state a caller needs to answer a
// create or join, captured under the registry lock.
type JoinInfo struct {
	SessionID   string
	SessionName string
	Member      Member
	Members     []Member
	Permissions Policy
	Snapshot    []byte
	IsPublic    bool
}

// CreateSession allocates a session with the creator as host.
func (r *Registry) CreateSession(name, password string, policy Policy, hostName, hostColor string) (JoinInfo, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return JoinInfo{}, coreError(ErrCodeBadRequest, "Session name is required")
	}

	var hash string
	if password != "" {
		h, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
		if err != nil {
			return JoinInfo{}, fmt.Errorf("hash session password: %w", err)
		}
		hash = string(h)
	}

	host := newMember(hostName, hostColor, true, 0)
	s := &Session{
		ID:           uuid.NewString(),
		Name:         name,
		HostID:       host.ID,
		passwordHash: hash,
		permissions:  policy.Normalize(),
		members:      map[string]*Member{host.ID: host},
		peakMembers:  1,
		createdAt:    time.Now(),
	}

	r.mu.Lock()
	r.sessions[s.ID] = s
	info := r.joinInfo(s, host)
	r.mu.Unlock()

	if r.journal != nil {
		if err := r.journal.SessionStarted(s.ID, s.Name, s.HasPassword(), s.createdAt); err != nil {
			r.log.Warn().Err(err).Str("session_id", s.ID).Msg("journal session start")
		}
	}
	r.log.Info().Str("session_id", s.ID).Str("session_name", name).Bool("public", !s.HasPassword()).Msg("session created")

	return info, nil
}

// JoinSession appends a member to an existing session. Password checks
// fail closed; sessions created without a password accept any.
func (r *Registry) JoinSession(id, password, name, color string) (JoinInfo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if !ok {
		return JoinInfo{}, coreError(ErrCodeSessionNotFound, "Session not found")
	}
	if s.passwordHash != "" {
		if err := bcrypt.CompareHashAndPassword([]byte(s.passwordHash), []byte(password)); err != nil {
			return JoinInfo{}, coreError(ErrCodeInvalidPassword, "Invalid password")
		}
	}

	m := newMember(name, color, false, len(s.members))
	s.members[m.ID] = m
	if len(s.members) > s.peakMembers {
		s.peakMembers = len(s.members)
	}

	r.log.Info().Str("session_id", s.ID).Str("member_id", m.ID).Str("member_name", m.Name).Msg("member joined")
	return r.joinInfo(s, m), nil
}

// LeaveResult reports what a departure did to the session, so the
// router knows what to broadcast afterwards.
type LeaveResult struct {
	Removed        Member
	SessionDeleted bool
	HostLeft       bool
	// RemainingIDs lists the members still in the session at the time
	// of the leave; on host departure they must all be evicted.
	RemainingIDs []string
}

// LeaveSession removes a member. A departing host tears the session
// down; a session drained to zero members is deleted as well. Unknown
// session or member ids are silent no-ops: a late leave for an
// already-removed member must not be an error.
func (r *Registry) LeaveSession(sessionID, memberID string) (LeaveResult, bool) {
	r.mu.Lock()

	s, ok := r.sessions[sessionID]
	if !ok {
		r.mu.Unlock()
		return LeaveResult{}, false
	}
	m, ok := s.members[memberID]
	if !ok {
		r.mu.Unlock()
		return LeaveResult{}, false
	}

	delete(s.members, memberID)
	res := LeaveResult{
		Removed:  *m,
		HostLeft: m.IsHost,
	}
	for id := range s.members {
		res.RemainingIDs = append(res.RemainingIDs, id)
	}

	reason := ""
	if m.IsHost {
		res.SessionDeleted = true
		reason = "host left"
	} else if len(s.members) == 0 {
		res.SessionDeleted = true
		reason = "empty"
	}
	peak := s.peakMembers
	if res.SessionDeleted {
		delete(r.sessions, sessionID)
	}
	r.mu.Unlock()

	if res.SessionDeleted {
		r.recordEnd(sessionID, reason, peak)
		r.log.Info().Str("session_id", sessionID).Str("reason", reason).Msg("session destroyed")
	} else {
		r.log.Info().Str("session_id", sessionID).Str("member_id", memberID).Msg("member left")
	}
	return res, true
}

// KickMember evicts target from the session. Only the host may kick,
// and never itself.
func (r *Registry) KickMember(sessionID, requesterID, targetID string) (Member, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[sessionID]
	if !ok {
		return Member{}, coreError(ErrCodeSessionNotFound, "Session not found")
	}
	if s.HostID != requesterID {
		return Member{}, coreError(ErrCodeNotHost, "Only the host can kick members")
	}
	if targetID == requesterID {
		return Member{}, coreError(ErrCodeBadRequest, "Cannot kick yourself")
	}
	m, ok := s.members[targetID]
	if !ok {
		return Member{}, coreError(ErrCodeBadRequest, "Member not found")
	}

	delete(s.members, targetID)
	r.log.Info().Str("session_id", sessionID).Str("member_id", targetID).Msg("member kicked")
	return *m, nil
}

// SetSnapshot stores the host's latest full-state blob for guest
// catch-up. Unknown sessions are ignored.
func (r *Registry) SetSnapshot(sessionID string, blob []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[sessionID]
	if !ok {
		return
	}
	s.snapshot = blob
}

// RenameMember updates a member's display name and returns the old one.
func (r *Registry) RenameMember(sessionID, memberID, newName string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[sessionID]
	if !ok {
		return "", false
	}
	m, ok := s.members[memberID]
	if !ok {
		return "", false
	}
	old := m.Name
	m.Name = strings.TrimSpace(newName)
	if m.Name == "" {
		m.Name = old
		return "", false
	}
	return old, true
}

// RecolorMember updates a member's display color, rejecting values
// outside the fixed palette, and returns the old color.
func (r *Registry) RecolorMember(sessionID, memberID, newColor string) (string, bool) {
	if !canvas.IsPaletteColor(newColor) {
		return "", false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[sessionID]
	if !ok {
		return "", false
	}
	m, ok := s.members[memberID]
	if !ok {
		return "", false
	}
	old := m.Color
	m.Color = newColor
	return old, true
}

// MemberByID returns a copy of one member record.
func (r *Registry) MemberByID(sessionID, memberID string) (Member, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[sessionID]
	if !ok {
		return Member{}, false
	}
	m, ok := s.members[memberID]
	if !ok {
		return Member{}, false
	}
	return *m, true
}

// HostID returns the host member id of a session.
func (r *Registry) HostID(sessionID string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[sessionID]
	if !ok {
		return "", false
	}
	return s.HostID, true
}

// PublicSessions lists every passwordless session for the discovery
// endpoint.
func (r *Registry) PublicSessions() []Summary {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Summary, 0)
	for _, s := range r.sessions {
		if !s.HasPassword() {
			out = append(out, s.summary())
		}
	}
	return out
}

// SessionSummary returns the discovery shape for one session id.
func (r *Registry) SessionSummary(id string) (Summary, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if !ok {
		return Summary{}, false
	}
	return s.summary(), true
}

// SessionCount returns the number of active sessions.
func (r *Registry) SessionCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// EndAll tears down every session, recording the given reason. Used at
// shutdown and returns the ids that were destroyed.
func (r *Registry) EndAll(reason string) []string {
	r.mu.Lock()
	ids := make([]string, 0, len(r.sessions))
	peaks := make(map[string]int, len(r.sessions))
	for id, s := range r.sessions {
		ids = append(ids, id)
		peaks[id] = s.peakMembers
	}
	r.sessions = make(map[string]*Session)
	r.mu.Unlock()

	for _, id := range ids {
		r.recordEnd(id, reason, peaks[id])
	}
	return ids
}

func (r *Registry) joinInfo(s *Session, m *Member) JoinInfo {
	var snap []byte
	if len(s.snapshot) > 0 {
		snap = append([]byte(nil), s.snapshot...)
	}
	return JoinInfo{
		SessionID:   s.ID,
		SessionName: s.Name,
		Member:      *m,
		Members:     s.memberList(),
		Permissions: s.permissions,
		Snapshot:    snap,
		IsPublic:    !s.HasPassword(),
	}
}

func (r *Registry) recordEnd(sessionID, reason string, peak int) {
	if r.journal == nil {
		return
	}
	if err := r.journal.SessionEnded(sessionID, reason, peak, time.Now()); err != nil {
		r.log.Warn().Err(err).Str("session_id", sessionID).Msg("journal session end")
	}
}

func newMember(name, color string, isHost bool, index int) *Member {
	name = strings.TrimSpace(name)
	if name == "" {
		name = "Anonymous"
	}
	if !canvas.IsPaletteColor(color) {
		color = canvas.PaletteColorAt(index).Hex
	}
	return &Member{
		ID:       uuid.NewString(),
		Name:     name,
		Color:    color,
		IsHost:   isHost,
		JoinedAt: time.Now(),
	}
}
