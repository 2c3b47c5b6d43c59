package core

import "time"

// Session is one shared collaborative document plus its member roster.
// All fields are guarded by the owning Registry's lock.
type Session struct {
	ID     string
	Name   string
	HostID string

	passwordHash string
	permissions  Policy

	members map[string]*Member

	// snapshot is the host's last full-state push, kept verbatim as the
	// marshaled wire payload. The server never decodes pixel data; it
	// only replays the blob to newly joined guests.
	snapshot []byte

	peakMembers int
	createdAt   time.Time
}

// HasPassword reports whether joining requires a password.
func (s *Session) HasPassword() bool {
	return s.passwordHash != ""
}

// Permissions returns the policy chosen at creation.
func (s *Session) Permissions() Policy {
	return s.permissions
}

// MemberCount returns the current roster size.
func (s *Session) MemberCount() int {
	return len(s.members)
}

// member list sorted by join time so rosters render in a stable order.
func (s *Session) memberList() []Member {
	out := make([]Member, 0, len(s.members))
	for _, m := range s.members {
		out = append(out, *m)
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].JoinedAt.Before(out[j-1].JoinedAt); j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}

// Summary is the discovery shape for one session.
type Summary struct {
	ID          string
	Name        string
	MemberCount int
	HasPassword bool
}

func (s *Session) summary() Summary {
	return Summary{
		ID:          s.ID,
		Name:        s.Name,
		MemberCount: len(s.members),
		HasPassword: s.HasPassword(),
	}
}
