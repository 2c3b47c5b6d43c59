package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	stdhttp "net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"pixelsync/internal/proto"
	"pixelsync/internal/utils"
)

// maxMessageBytes is set per server from config before serving.
type wsOptions struct {
	maxMessageBytes int64
}

// ServeHTTP upgrades the connection and runs the read/write loop pair
// until either side fails or the context is canceled.
func (rt *Router) ServeHTTP(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	ctx := r.Context()

	sock, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		rt.log.Error().Err(err).Msg("ws accept error")
		return
	}
	defer sock.Close(websocket.StatusInternalError, "internal error")

	if rt.opts.maxMessageBytes > 0 {
		sock.SetReadLimit(rt.opts.maxMessageBytes)
	}

	c := &wsConn{
		id:   utils.NewConnID(),
		sock: sock,
		send: make(chan proto.Envelope, sendBuffer),
	}
	rt.register(c)
	rt.log.Debug().Str("conn_id", c.id).Msg("connection accepted")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, 2)
	go func() {
		errCh <- rt.readLoop(ctx, c)
	}()
	go func() {
		errCh <- rt.writeLoop(ctx, c)
	}()

	err = <-errCh
	cancel() // stop the other goroutine
	<-errCh

	// A dropped socket is indistinguishable from an explicit leave for
	// the bound member; no orphaned membership may survive it.
	rt.handleLeave(c)
	rt.unregister(c)

	status := websocket.StatusNormalClosure
	reason := "closing"
	if err != nil && !errors.Is(err, context.Canceled) {
		if errors.Is(err, io.EOF) {
			err = nil
		}
		if s := websocket.CloseStatus(err); s != 0 {
			status = s
		}
		if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
			err = nil
		}
		if err != nil {
			if status == websocket.StatusNormalClosure {
				status = websocket.StatusInternalError
			}
			reason = err.Error()
			rt.log.Debug().Err(err).Str("conn_id", c.id).Msg("ws connection closed with error")
		}
	}

	sock.Close(status, reason)
}

func (rt *Router) readLoop(ctx context.Context, c *wsConn) error {
	for {
		var env proto.Envelope
		if err := wsjson.Read(ctx, c.sock, &env); err != nil {
			return err
		}
		rt.route(c, env)
	}
}

func (rt *Router) writeLoop(ctx context.Context, c *wsConn) error {
	for {
		select {
		case env, ok := <-c.send:
			if !ok {
				return nil
			}
			if err := wsjson.Write(ctx, c.sock, env); err != nil {
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// route dispatches one inbound envelope to exactly one handler. Unknown
// types and malformed payloads are logged and dropped; they never close
// the connection or reach other members.
func (rt *Router) route(c *wsConn, env proto.Envelope) {
	switch env.Type {
	case proto.TypeCreateSession:
		rt.handleCreateSession(c, env)
	case proto.TypeJoinSession:
		rt.handleJoinSession(c, env)
	case proto.TypeLeaveSession:
		rt.handleLeave(c)
	case proto.TypeKickMember:
		rt.handleKickMember(c, env)
	case proto.TypeTraceComplete:
		rt.handleTraceComplete(c, env)
	case proto.TypeCursorUpdate:
		rt.handleCursorUpdate(c, env)
	case proto.TypeNameUpdate:
		rt.handleNameUpdate(c, env)
	case proto.TypeColorUpdate:
		rt.handleColorUpdate(c, env)
	case proto.TypeChatMessage:
		rt.handleChatMessage(c, env)
	case proto.TypeFullState:
		rt.handleFullState(c, env)
	case proto.TypePing:
		rt.handlePing(c, env)
	default:
		rt.log.Warn().Str("conn_id", c.id).Str("type", env.Type).Msg("unknown envelope type dropped")
	}
}

// decodeData unmarshals an envelope payload, reporting success. A
// malformed payload is the sender's problem, not the session's.
func (rt *Router) decodeData(c *wsConn, env proto.Envelope, v any) bool {
	if len(env.Data) == 0 {
		rt.log.Warn().Str("conn_id", c.id).Str("type", env.Type).Msg("envelope without payload dropped")
		return false
	}
	if err := json.Unmarshal(env.Data, v); err != nil {
		rt.log.Warn().Err(err).Str("conn_id", c.id).Str("type", env.Type).Msg("malformed payload dropped")
		return false
	}
	return true
}

func (rt *Router) sendError(c *wsConn, msg string) {
	env, err := proto.Encode(proto.TypeError, proto.ErrorData{Error: msg})
	if err != nil {
		return
	}
	rt.deliver(c, env)
}

func (rt *Router) sendEvent(c *wsConn, msgType string, payload any) {
	env, err := proto.Encode(msgType, payload)
	if err != nil {
		rt.log.Error().Err(err).Str("type", msgType).Msg("encode envelope")
		return
	}
	rt.deliver(c, env)
}

func (rt *Router) handleCreateSession(c *wsConn, env proto.Envelope) {
	if sessionID, _ := rt.binding(c); sessionID != "" {
		rt.sendError(c, "Already in a session")
		return
	}

	var data proto.CreateSessionData
	if !rt.decodeData(c, env, &data) {
		return
	}

	info, err := rt.registry.CreateSession(
		data.SessionName,
		data.Password,
		policyFromProto(data.Permissions),
		data.UserName,
		data.UserColor,
	)
	if err != nil {
		rt.sendError(c, err.Error())
		return
	}

	rt.bind(c, info.SessionID, info.Member.ID)
	rt.sendEvent(c, proto.TypeSessionCreated, sessionCreatedFromJoinInfo(info))
}

func (rt *Router) handleJoinSession(c *wsConn, env proto.Envelope) {
	if sessionID, _ := rt.binding(c); sessionID != "" {
		rt.sendError(c, "Already in a session")
		return
	}

	var data proto.JoinSessionData
	if !rt.decodeData(c, env, &data) {
		return
	}

	info, err := rt.registry.JoinSession(data.SessionID, data.Password, data.UserName, data.UserColor)
	if err != nil {
		rt.sendError(c, err.Error())
		return
	}

	rt.bind(c, info.SessionID, info.Member.ID)
	rt.sendEvent(c, proto.TypeSessionJoined, sessionJoinedFromJoinInfo(info))

	joined, encErr := proto.Encode(proto.TypeMemberJoined, proto.MemberJoinedData{
		Member: memberToProto(info.Member),
	})
	if encErr == nil {
		rt.broadcastToSession(info.SessionID, joined, info.Member.ID)
	}
}

// handleLeave serves both an explicit leave_session and a transport
// close. Calling it for an unbound or already-left connection is a
// no-op.
func (rt *Router) handleLeave(c *wsConn) {
	sessionID, memberID := rt.binding(c)
	if sessionID == "" {
		return
	}
	rt.unbind(c)

	res, ok := rt.registry.LeaveSession(sessionID, memberID)
	if !ok {
		return
	}

	if res.HostLeft {
		ended, err := proto.Encode(proto.TypeSessionEnded, proto.SessionEndedData{Reason: "Host ended the session"})
		if err != nil {
			return
		}
		n := rt.broadcastToSession(sessionID, ended)
		rt.log.Debug().Str("session_id", sessionID).Int("recipients", n).Msg("session ended broadcast")
		rt.evictSession(sessionID)
		return
	}

	left, err := proto.Encode(proto.TypeMemberLeft, proto.MemberLeftData{
		MemberID:   res.Removed.ID,
		MemberName: res.Removed.Name,
	})
	if err == nil {
		rt.broadcastToSession(sessionID, left)
	}
}

// evictSession unbinds every remaining connection of a destroyed
// session and closes their sockets after the grace delay.
func (rt *Router) evictSession(sessionID string) {
	rt.mu.Lock()
	conns := make([]*wsConn, 0, len(rt.bySession[sessionID]))
	for _, c := range rt.bySession[sessionID] {
		conns = append(conns, c)
	}
	rt.mu.Unlock()

	for _, c := range conns {
		rt.unbind(c)
		sock := c.sock
		time.AfterFunc(rt.kickGrace, func() {
			sock.Close(websocket.StatusNormalClosure, "session ended")
		})
	}
}

func (rt *Router) handleKickMember(c *wsConn, env proto.Envelope) {
	sessionID, memberID := rt.binding(c)
	if sessionID == "" {
		return
	}

	var data proto.KickMemberData
	if !rt.decodeData(c, env, &data) {
		return
	}

	target, err := rt.registry.KickMember(sessionID, memberID, data.MemberID)
	if err != nil {
		rt.sendError(c, err.Error())
		return
	}

	// Tell the target first, then close its socket after the grace
	// delay so the notice arrives before the close frame.
	rt.mu.Lock()
	tc := rt.bySession[sessionID][target.ID]
	rt.mu.Unlock()
	if tc != nil {
		rt.sendEvent(tc, proto.TypeYouWereKicked, nil)
		rt.unbind(tc)
		sock := tc.sock
		time.AfterFunc(rt.kickGrace, func() {
			sock.Close(websocket.StatusNormalClosure, "kicked")
		})
	}

	kicked, encErr := proto.Encode(proto.TypeMemberKicked, proto.MemberKickedData{
		MemberID:   target.ID,
		MemberName: target.Name,
	})
	if encErr == nil {
		rt.broadcastToSession(sessionID, kicked)
	}
}

func (rt *Router) handleTraceComplete(c *wsConn, env proto.Envelope) {
	sessionID, memberID := rt.binding(c)
	if sessionID == "" {
		return
	}

	var data proto.TraceCompleteData
	if !rt.decodeData(c, env, &data) {
		return
	}
	data.MemberID = memberID

	out, err := proto.Encode(proto.TypeTraceComplete, data)
	if err != nil {
		return
	}
	n := rt.broadcastToSession(sessionID, out, memberID)
	rt.log.Debug().Str("session_id", sessionID).Int("recipients", n).Int("points", len(data.Trace.Points)).Msg("trace relayed")
}

func (rt *Router) handleCursorUpdate(c *wsConn, env proto.Envelope) {
	sessionID, memberID := rt.binding(c)
	if sessionID == "" {
		return
	}

	var data proto.CursorUpdateData
	if !rt.decodeData(c, env, &data) {
		return
	}
	data.MemberID = memberID

	out, err := proto.Encode(proto.TypeCursorUpdate, data)
	if err != nil {
		return
	}
	rt.broadcastToSession(sessionID, out, memberID)
}

func (rt *Router) handleNameUpdate(c *wsConn, env proto.Envelope) {
	sessionID, memberID := rt.binding(c)
	if sessionID == "" {
		return
	}

	var data proto.NameUpdateData
	if !rt.decodeData(c, env, &data) {
		return
	}

	// The registry's previous value is authoritative, not the one the
	// client claims.
	old, ok := rt.registry.RenameMember(sessionID, memberID, data.NewName)
	if !ok {
		return
	}

	out, err := proto.Encode(proto.TypeNameUpdate, proto.NameUpdateData{
		MemberID: memberID,
		OldName:  old,
		NewName:  data.NewName,
	})
	if err == nil {
		rt.broadcastToSession(sessionID, out, memberID)
	}
}

func (rt *Router) handleColorUpdate(c *wsConn, env proto.Envelope) {
	sessionID, memberID := rt.binding(c)
	if sessionID == "" {
		return
	}

	var data proto.ColorUpdateData
	if !rt.decodeData(c, env, &data) {
		return
	}

	old, ok := rt.registry.RecolorMember(sessionID, memberID, data.NewColor)
	if !ok {
		return
	}

	out, err := proto.Encode(proto.TypeColorUpdate, proto.ColorUpdateData{
		MemberID: memberID,
		OldColor: old,
		NewColor: data.NewColor,
	})
	if err == nil {
		rt.broadcastToSession(sessionID, out, memberID)
	}
}

func (rt *Router) handleChatMessage(c *wsConn, env proto.Envelope) {
	sessionID, memberID := rt.binding(c)
	if sessionID == "" {
		return
	}

	var data proto.ChatMessageData
	if !rt.decodeData(c, env, &data) {
		return
	}
	if data.Message == "" {
		return
	}

	m, ok := rt.registry.MemberByID(sessionID, memberID)
	if !ok {
		return
	}

	out, err := proto.Encode(proto.TypeChatMessage, proto.ChatBroadcastData{
		MemberName:  m.Name,
		MemberColor: m.Color,
		Message:     data.Message,
		Timestamp:   time.Now().UnixMilli(),
	})
	if err == nil {
		rt.broadcastToSession(sessionID, out, memberID)
	}
}

func (rt *Router) handleFullState(c *wsConn, env proto.Envelope) {
	sessionID, memberID := rt.binding(c)
	if sessionID == "" {
		return
	}

	var data proto.FullStateData
	if !rt.decodeData(c, env, &data) {
		return
	}

	// Keep the latest snapshot verbatim for guest catch-up.
	rt.registry.SetSnapshot(sessionID, data.State)

	out, err := proto.Encode(proto.TypeFullState, proto.FullStateData{
		MemberID: memberID,
		State:    data.State,
	})
	if err != nil {
		return
	}

	if data.ToMemberID != "" {
		rt.sendToMember(sessionID, data.ToMemberID, out)
		return
	}
	rt.broadcastToSession(sessionID, out, memberID)
}

// handlePing echoes the client's timestamp straight back; the server
// never inspects timing.
func (rt *Router) handlePing(c *wsConn, env proto.Envelope) {
	var data proto.PingData
	if !rt.decodeData(c, env, &data) {
		return
	}
	rt.sendEvent(c, proto.TypePong, proto.PongData{Timestamp: data.Timestamp})
}
