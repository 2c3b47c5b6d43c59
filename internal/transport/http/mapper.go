package http

import (
	"pixelsync/internal/core"
	"pixelsync/internal/proto"
)

func policyToProto(p core.Policy) proto.PolicyData {
	return proto.PolicyData{
		UndoRedo:        p.UndoRedo,
		AddRemoveFrames: p.AddRemoveFrames,
		AddRemoveLayers: p.AddRemoveLayers,
		Draw:            p.Draw,
		Chat:            p.Chat,
	}
}

func policyFromProto(p proto.PolicyData) core.Policy {
	return core.Policy{
		UndoRedo:        p.UndoRedo,
		AddRemoveFrames: p.AddRemoveFrames,
		AddRemoveLayers: p.AddRemoveLayers,
		Draw:            p.Draw,
		Chat:            p.Chat,
	}
}

func memberToProto(m core.Member) proto.MemberInfo {
	return proto.MemberInfo{
		ID:       m.ID,
		Name:     m.Name,
		Color:    m.Color,
		IsHost:   m.IsHost,
		JoinedAt: m.JoinedAt.Unix(),
	}
}

func membersToProto(members []core.Member) []proto.MemberInfo {
	out := make([]proto.MemberInfo, 0, len(members))
	for _, m := range members {
		out = append(out, memberToProto(m))
	}
	return out
}

func summaryToProto(s core.Summary) proto.SessionSummary {
	return proto.SessionSummary{
		ID:          s.ID,
		Name:        s.Name,
		MemberCount: s.MemberCount,
		HasPassword: s.HasPassword,
	}
}

func sessionCreatedFromJoinInfo(info core.JoinInfo) proto.SessionCreatedData {
	return proto.SessionCreatedData{
		SessionID:   info.SessionID,
		SessionName: info.SessionName,
		MemberID:    info.Member.ID,
		Members:     membersToProto(info.Members),
		Permissions: policyToProto(info.Permissions),
		IsPublic:    info.IsPublic,
	}
}

func sessionJoinedFromJoinInfo(info core.JoinInfo) proto.SessionJoinedData {
	return proto.SessionJoinedData{
		SessionID:   info.SessionID,
		SessionName: info.SessionName,
		MemberID:    info.Member.ID,
		IsHost:      info.Member.IsHost,
		Members:     membersToProto(info.Members),
		Permissions: policyToProto(info.Permissions),
		ProjectData: info.Snapshot,
	}
}
