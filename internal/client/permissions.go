package client

import "pixelsync/internal/proto"

// Action is one permission-gated operation kind. A closed enum instead
// of string keys, so a typo cannot silently deny everything.
type Action int

const (
	ActionUndoRedo Action = iota
	ActionAddRemoveFrames
	ActionAddRemoveLayers
	ActionDraw
	ActionChat

	numActions
)

// Audience is who may perform an action.
type Audience int

const (
	// AudienceEveryone allows any member.
	AudienceEveryone Audience = iota
	// AudienceHost restricts the action to the session host.
	AudienceHost
)

// Policy maps every action to its audience. Chosen once at session
// creation and fixed for the session's lifetime.
type Policy [numActions]Audience

// PresetStrict locks every mutating action to the host; guests can
// only chat.
func PresetStrict() Policy {
	var p Policy
	p[ActionUndoRedo] = AudienceHost
	p[ActionAddRemoveFrames] = AudienceHost
	p[ActionAddRemoveLayers] = AudienceHost
	p[ActionDraw] = AudienceHost
	p[ActionChat] = AudienceEveryone
	return p
}

// PresetBalanced lets everyone draw and chat but keeps the document
// structure (frames, layers, history) in the host's hands.
func PresetBalanced() Policy {
	p := PresetStrict()
	p[ActionDraw] = AudienceEveryone
	return p
}

// PresetOpen allows every member everything.
func PresetOpen() Policy {
	return Policy{}
}

// Allows reports whether a member with the given host flag may perform
// the action.
func (p Policy) Allows(action Action, isHost bool) bool {
	if action < 0 || action >= numActions {
		return false
	}
	return isHost || p[action] == AudienceEveryone
}

func audienceToWire(a Audience) string {
	if a == AudienceHost {
		return "host"
	}
	return "everyone"
}

func audienceFromWire(s string) Audience {
	if s == "host" {
		return AudienceHost
	}
	return AudienceEveryone
}

// ToProto converts the policy to its wire shape.
func (p Policy) ToProto() proto.PolicyData {
	return proto.PolicyData{
		UndoRedo:        audienceToWire(p[ActionUndoRedo]),
		AddRemoveFrames: audienceToWire(p[ActionAddRemoveFrames]),
		AddRemoveLayers: audienceToWire(p[ActionAddRemoveLayers]),
		Draw:            audienceToWire(p[ActionDraw]),
		Chat:            audienceToWire(p[ActionChat]),
	}
}

// PolicyFromProto converts a wire policy into the local enum form.
func PolicyFromProto(d proto.PolicyData) Policy {
	var p Policy
	p[ActionUndoRedo] = audienceFromWire(d.UndoRedo)
	p[ActionAddRemoveFrames] = audienceFromWire(d.AddRemoveFrames)
	p[ActionAddRemoveLayers] = audienceFromWire(d.AddRemoveLayers)
	p[ActionDraw] = audienceFromWire(d.Draw)
	p[ActionChat] = audienceFromWire(d.Chat)
	return p
}
