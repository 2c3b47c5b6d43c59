package http

import (
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/rs/zerolog"

	"pixelsync/internal/core"
	"pixelsync/internal/proto"
)

// sendBuffer bounds each connection's outbound queue; envelopes beyond
// it are dropped rather than queued behind a slow consumer.
const sendBuffer = 256

// wsConn is one accepted transport connection. It is unbound until a
// create_session or join_session resolves it to (sessionID, memberID);
// binding fields are guarded by the Router lock.
type wsConn struct {
	id   string
	sock *websocket.Conn
	send chan proto.Envelope

	sessionID string
	memberID  string
}

// Router binds transport connections to session members and fans
// envelopes out to the right subset of connections.
type Router struct {
	registry  *core.Registry
	log       *zerolog.Logger
	kickGrace time.Duration
	opts      wsOptions

	mu        sync.Mutex
	conns     map[string]*wsConn
	bySession map[string]map[string]*wsConn
}

// NewRouter builds a router over the given registry.
func NewRouter(registry *core.Registry, kickGrace time.Duration, maxMessageBytes int64, logger *zerolog.Logger) *Router {
	return &Router{
		registry:  registry,
		log:       logger,
		kickGrace: kickGrace,
		opts:      wsOptions{maxMessageBytes: maxMessageBytes},
		conns:     make(map[string]*wsConn),
		bySession: make(map[string]map[string]*wsConn),
	}
}

func (rt *Router) register(c *wsConn) {
	rt.mu.Lock()
	rt.conns[c.id] = c
	rt.mu.Unlock()
}

func (rt *Router) unregister(c *wsConn) {
	rt.mu.Lock()
	delete(rt.conns, c.id)
	rt.unbindLocked(c)
	rt.mu.Unlock()
}

// bind associates a connection with a session member.
func (rt *Router) bind(c *wsConn, sessionID, memberID string) {
	rt.mu.Lock()
	c.sessionID = sessionID
	c.memberID = memberID
	members, ok := rt.bySession[sessionID]
	if !ok {
		members = make(map[string]*wsConn)
		rt.bySession[sessionID] = members
	}
	members[memberID] = c
	rt.mu.Unlock()
}

// unbind detaches a connection from its session, if any.
func (rt *Router) unbind(c *wsConn) {
	rt.mu.Lock()
	rt.unbindLocked(c)
	rt.mu.Unlock()
}

func (rt *Router) unbindLocked(c *wsConn) {
	if c.sessionID == "" {
		return
	}
	if members, ok := rt.bySession[c.sessionID]; ok {
		if members[c.memberID] == c {
			delete(members, c.memberID)
		}
		if len(members) == 0 {
			delete(rt.bySession, c.sessionID)
		}
	}
	c.sessionID = ""
	c.memberID = ""
}

// binding returns the connection's current (sessionID, memberID).
func (rt *Router) binding(c *wsConn) (string, string) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return c.sessionID, c.memberID
}

// broadcastToSession delivers env to every open connection bound to the
// session, skipping excluded member ids. Returns the recipient count,
// used for diagnostics only.
func (rt *Router) broadcastToSession(sessionID string, env proto.Envelope, exclude ...string) int {
	rt.mu.Lock()
	targets := make([]*wsConn, 0, len(rt.bySession[sessionID]))
	for memberID, c := range rt.bySession[sessionID] {
		if contains(exclude, memberID) {
			continue
		}
		targets = append(targets, c)
	}
	rt.mu.Unlock()

	for _, c := range targets {
		rt.deliver(c, env)
	}
	return len(targets)
}

// sendToMember delivers env to a single bound member, reporting whether
// a connection was found.
func (rt *Router) sendToMember(sessionID, memberID string, env proto.Envelope) bool {
	rt.mu.Lock()
	c := rt.bySession[sessionID][memberID]
	rt.mu.Unlock()

	if c == nil {
		return false
	}
	rt.deliver(c, env)
	return true
}

// deliver enqueues without blocking; a full queue drops the envelope.
func (rt *Router) deliver(c *wsConn, env proto.Envelope) {
	select {
	case c.send <- env:
	default:
		rt.log.Warn().Str("conn_id", c.id).Str("type", env.Type).Msg("send queue full, dropping envelope")
	}
}

// Shutdown ends every active session, notifies the remaining members
// and closes their sockets.
func (rt *Router) Shutdown(reason string) {
	ended, err := proto.Encode(proto.TypeSessionEnded, proto.SessionEndedData{Reason: reason})
	if err != nil {
		return
	}
	for _, sessionID := range rt.registry.EndAll(reason) {
		rt.broadcastToSession(sessionID, ended)
	}

	rt.mu.Lock()
	conns := make([]*wsConn, 0, len(rt.conns))
	for _, c := range rt.conns {
		conns = append(conns, c)
	}
	rt.mu.Unlock()

	for _, c := range conns {
		c.sock.Close(websocket.StatusGoingAway, "server shutting down")
	}
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
