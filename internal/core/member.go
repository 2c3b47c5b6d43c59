package core

import "time"

// Member is one participant's identity inside a session. A member is
// owned exclusively by its session and is discarded on leave or kick.
type Member struct {
	ID       string
	Name     string
	Color    string
	IsHost   bool
	JoinedAt time.Time
}

// PolicyAudience values for each permission slot.
const (
	AudienceHost     = "host"
	AudienceEveryone = "everyone"
)

// Policy is the per-action host-only vs everyone gate, fixed for a
// session's lifetime. The server stores it only to echo it to joining
// members; enforcement happens client-side (documented trust boundary).
type Policy struct {
	UndoRedo        string
	AddRemoveFrames string
	AddRemoveLayers string
	Draw            string
	Chat            string
}

// OpenPolicy returns the policy that allows everyone everything, used
// when a create request carries no recognizable policy.
func OpenPolicy() Policy {
	return Policy{
		UndoRedo:        AudienceEveryone,
		AddRemoveFrames: AudienceEveryone,
		AddRemoveLayers: AudienceEveryone,
		Draw:            AudienceEveryone,
		Chat:            AudienceEveryone,
	}
}

func normalizeAudience(v string) string {
	if v == AudienceHost {
		return AudienceHost
	}
	return AudienceEveryone
}

// Normalize coerces unknown audience strings to "everyone" so a typo in
// a client payload widens rather than bricks a session slot.
func (p Policy) Normalize() Policy {
	return Policy{
		UndoRedo:        normalizeAudience(p.UndoRedo),
		AddRemoveFrames: normalizeAudience(p.AddRemoveFrames),
		AddRemoveLayers: normalizeAudience(p.AddRemoveLayers),
		Draw:            normalizeAudience(p.Draw),
		Chat:            normalizeAudience(p.Chat),
	}
}
