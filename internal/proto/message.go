package proto

import "encoding/json"

// Envelope is the wire frame used in both directions. Type selects the
// payload shape carried in Data.
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Encode wraps a payload into an envelope of the given type.
func Encode(msgType string, payload any) (Envelope, error) {
	if payload == nil {
		return Envelope{Type: msgType}, nil
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{Type: msgType, Data: raw}, nil
}

// Client to server message types.
const (
	TypeCreateSession = "create_session"
	TypeJoinSession   = "join_session"
	TypeLeaveSession  = "leave_session"
	TypeKickMember    = "kick_member"
	TypePing          = "ping"
)

// Server to client message types.
const (
	TypeSessionCreated = "session_created"
	TypeSessionJoined  = "session_joined"
	TypeMemberJoined   = "member_joined"
	TypeMemberLeft     = "member_left"
	TypeMemberKicked   = "member_kicked"
	TypeYouWereKicked  = "you_were_kicked"
	TypeSessionEnded   = "session_ended"
	TypePong           = "pong"
	TypeError          = "error"
)

// Types relayed between members; the server stamps the sender's member
// id before fanning out.
const (
	TypeTraceComplete = "trace_complete"
	TypeCursorUpdate  = "cursor_update"
	TypeNameUpdate    = "name_update"
	TypeColorUpdate   = "color_update"
	TypeChatMessage   = "chat_message"
	TypeFullState     = "full_state"
)

// PolicyData carries a session's permission policy on the wire. Each
// field is either "host" or "everyone".
type PolicyData struct {
	UndoRedo        string `json:"undoRedo"`
	AddRemoveFrames string `json:"addRemoveFrames"`
	AddRemoveLayers string `json:"addRemoveLayers"`
	Draw            string `json:"draw"`
	Chat            string `json:"chat"`
}

// MemberInfo describes one participant in roster payloads.
type MemberInfo struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Color    string `json:"color"`
	IsHost   bool   `json:"isHost"`
	JoinedAt int64  `json:"joinedAt"`
}

// SessionSummary is the discovery listing shape for one session.
type SessionSummary struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	MemberCount int    `json:"memberCount"`
	HasPassword bool   `json:"hasPassword"`
}

// CreateSessionData asks the server to open a new session with the
// sender as host.
type CreateSessionData struct {
	SessionName string     `json:"sessionName"`
	Password    string     `json:"password,omitempty"`
	UserName    string     `json:"userName"`
	UserColor   string     `json:"userColor"`
	Permissions PolicyData `json:"permissions"`
}

// JoinSessionData asks the server to add the sender to a session.
type JoinSessionData struct {
	SessionID string `json:"sessionId"`
	Password  string `json:"password,omitempty"`
	UserName  string `json:"userName"`
	UserColor string `json:"userColor"`
}

// KickMemberData is a host request to evict a member.
type KickMemberData struct {
	MemberID string `json:"memberId"`
}

// PingData and PongData carry a client-chosen timestamp; the server
// echoes it untouched so the client can measure round-trip time.
type PingData struct {
	Timestamp int64 `json:"timestamp"`
}

// PongData mirrors PingData.
type PongData struct {
	Timestamp int64 `json:"timestamp"`
}

// SessionCreatedData confirms session creation to the host.
type SessionCreatedData struct {
	SessionID   string       `json:"sessionId"`
	SessionName string       `json:"sessionName"`
	MemberID    string       `json:"memberId"`
	Members     []MemberInfo `json:"members"`
	Permissions PolicyData   `json:"permissions"`
	IsPublic    bool         `json:"isPublic"`
}

// SessionJoinedData confirms a join to the new member. ProjectData
// carries the host's last FullState snapshot verbatim when one exists,
// so the guest never draws on stale content. The server treats it as an
// opaque blob.
type SessionJoinedData struct {
	SessionID   string          `json:"sessionId"`
	SessionName string          `json:"sessionName"`
	MemberID    string          `json:"memberId"`
	IsHost      bool            `json:"isHost"`
	Members     []MemberInfo    `json:"members"`
	Permissions PolicyData      `json:"permissions"`
	ProjectData json.RawMessage `json:"projectData,omitempty"`
}

// MemberJoinedData announces a new member to the rest of the session.
type MemberJoinedData struct {
	Member MemberInfo `json:"member"`
}

// MemberLeftData announces a voluntary departure.
type MemberLeftData struct {
	MemberID   string `json:"memberId"`
	MemberName string `json:"memberName"`
}

// MemberKickedData announces an eviction to the remaining members.
type MemberKickedData struct {
	MemberID   string `json:"memberId"`
	MemberName string `json:"memberName"`
}

// SessionEndedData tells remaining members the session is gone.
type SessionEndedData struct {
	Reason string `json:"reason"`
}

// ErrorData is sent only to the connection whose request failed.
type ErrorData struct {
	Error string `json:"error"`
}

// TraceCompleteData carries one completed gesture. MemberID is empty
// client to server and stamped by the server on fan-out.
type TraceCompleteData struct {
	MemberID string `json:"memberId,omitempty"`
	Trace    Trace  `json:"data"`
}

// CursorUpdateData reports a member's pointer position. Active false
// marks the cursor as lifted (end of a gesture).
type CursorUpdateData struct {
	MemberID string `json:"memberId,omitempty"`
	X        int    `json:"x"`
	Y        int    `json:"y"`
	Active   bool   `json:"active"`
}

// NameUpdateData reports a display-name change.
type NameUpdateData struct {
	MemberID string `json:"memberId,omitempty"`
	OldName  string `json:"oldName"`
	NewName  string `json:"newName"`
}

// ColorUpdateData reports a display-color change.
type ColorUpdateData struct {
	MemberID string `json:"memberId,omitempty"`
	OldColor string `json:"oldColor"`
	NewColor string `json:"newColor"`
}

// ChatMessageData is the client to server chat shape.
type ChatMessageData struct {
	Message string `json:"message"`
}

// ChatBroadcastData is the server to client chat shape.
type ChatBroadcastData struct {
	MemberName  string `json:"memberName"`
	MemberColor string `json:"memberColor"`
	Message     string `json:"message"`
	Timestamp   int64  `json:"timestamp"`
}

// FullStateData carries a complete project snapshot. State is kept as
// raw JSON so the server can store and relay it without decoding pixel
// buffers; clients marshal a FullState into it. ToMemberID limits
// delivery to a single member (host catching up one guest); empty
// means broadcast to everyone else in the session.
type FullStateData struct {
	MemberID   string          `json:"memberId,omitempty"`
	State      json.RawMessage `json:"state"`
	ToMemberID string          `json:"toMemberId,omitempty"`
}
