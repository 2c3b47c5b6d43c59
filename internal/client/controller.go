package client

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"pixelsync/internal/canvas"
	"pixelsync/internal/proto"
)

// State is the controller's connection lifecycle state.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnectedAsHost
	StateConnectedAsGuest
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnectedAsHost:
		return "connected_as_host"
	case StateConnectedAsGuest:
		return "connected_as_guest"
	default:
		return "disconnected"
	}
}

// Default timing knobs.
const (
	DefaultPingInterval     = 5 * time.Second
	DefaultCursorThrottle   = 50 * time.Millisecond
	DefaultCursorStaleAfter = 2 * time.Second
)

const writeTimeout = 10 * time.Second

// ErrNotDisconnected is returned when a connect is attempted while a
// session is already active or being established.
var ErrNotDisconnected = errors.New("client: not disconnected")

// Options configures a Controller.
type Options struct {
	// URL is the server's WebSocket endpoint, e.g. ws://host:8080/ws.
	URL string

	PingInterval     time.Duration
	CursorThrottle   time.Duration
	CursorStaleAfter time.Duration

	Notifier Notifier
	Logger   *zerolog.Logger

	// dial is a test seam; nil means the real WebSocket dialer.
	dial dialFunc
}

// SessionConfig describes a create_session request.
type SessionConfig struct {
	Name      string
	Password  string
	Policy    Policy
	UserName  string
	UserColor string
}

// JoinConfig describes a join_session request.
type JoinConfig struct {
	SessionID string
	Password  string
	UserName  string
	UserColor string
}

// Controller owns the transport lifecycle and the local mirror of room
// state. It is the single source of truth the rest of the client
// consults for "am I host", "who is here" and "what is the round-trip
// time".
type Controller struct {
	opts     Options
	editor   canvas.Editor
	notifier Notifier
	log      *zerolog.Logger
	dial     dialFunc

	interceptor *Interceptor
	sync        *Synchronizer
	cursors     *CursorTracker

	mu          sync.Mutex
	state       State
	tr          transport
	cancelRead  context.CancelFunc
	pingStop    chan struct{}
	sessionID   string
	sessionName string
	memberID    string
	isHost      bool
	policy      Policy
	members     map[string]proto.MemberInfo
	rtt         time.Duration
}

// NewController builds a controller around the editor. The controller
// installs the interception layer on connect and restores the editor's
// original entry points on every disconnect path.
func NewController(editor canvas.Editor, opts Options) *Controller {
	if opts.PingInterval <= 0 {
		opts.PingInterval = DefaultPingInterval
	}
	if opts.CursorThrottle <= 0 {
		opts.CursorThrottle = DefaultCursorThrottle
	}
	if opts.CursorStaleAfter <= 0 {
		opts.CursorStaleAfter = DefaultCursorStaleAfter
	}
	if opts.Notifier == nil {
		opts.Notifier = NopNotifier{}
	}
	if opts.Logger == nil {
		nop := zerolog.Nop()
		opts.Logger = &nop
	}
	if opts.dial == nil {
		opts.dial = dialWebSocket
	}

	c := &Controller{
		opts:     opts,
		editor:   editor,
		notifier: opts.Notifier,
		log:      opts.Logger,
		dial:     opts.dial,
		state:    StateDisconnected,
		members:  make(map[string]proto.MemberInfo),
	}
	c.interceptor = NewInterceptor(editor, c, opts.CursorThrottle)
	c.sync = NewSynchronizer(editor, c.interceptor.OriginalTool)
	c.cursors = NewCursorTracker(opts.CursorStaleAfter)
	return c
}

// CreateSession opens a connection and asks the server for a new
// session with the local user as host. Completion is asynchronous: the
// controller transitions to ConnectedAsHost when session_created
// arrives, or back to Disconnected on error. There is deliberately no
// connect timeout beyond ctx; the caller's context is the escape hatch.
func (c *Controller) CreateSession(ctx context.Context, cfg SessionConfig) error {
	env, err := proto.Encode(proto.TypeCreateSession, proto.CreateSessionData{
		SessionName: cfg.Name,
		Password:    cfg.Password,
		UserName:    cfg.UserName,
		UserColor:   cfg.UserColor,
		Permissions: cfg.Policy.ToProto(),
	})
	if err != nil {
		return err
	}
	return c.connect(ctx, env)
}

// JoinSession opens a connection and asks to join an existing session.
func (c *Controller) JoinSession(ctx context.Context, cfg JoinConfig) error {
	env, err := proto.Encode(proto.TypeJoinSession, proto.JoinSessionData{
		SessionID: cfg.SessionID,
		Password:  cfg.Password,
		UserName:  cfg.UserName,
		UserColor: cfg.UserColor,
	})
	if err != nil {
		return err
	}
	return c.connect(ctx, env)
}

func (c *Controller) connect(ctx context.Context, open proto.Envelope) error {
	c.mu.Lock()
	if c.state != StateDisconnected {
		c.mu.Unlock()
		return ErrNotDisconnected
	}
	c.state = StateConnecting
	c.mu.Unlock()

	c.notifier.ConnectingStarted()

	tr, err := c.dial(ctx, c.opts.URL)
	if err != nil {
		c.mu.Lock()
		c.state = StateDisconnected
		c.mu.Unlock()
		c.notifier.ConnectingFinished()
		c.notifier.Notice("Could not connect to the server")
		return err
	}

	readCtx, cancel := context.WithCancel(context.Background())
	c.mu.Lock()
	c.tr = tr
	c.cancelRead = cancel
	c.mu.Unlock()

	if err := tr.Write(ctx, open); err != nil {
		c.teardown()
		c.notifier.Notice("Could not connect to the server")
		return err
	}

	go c.readLoop(readCtx, tr)
	return nil
}

// Disconnect leaves the current session and closes the transport. Safe
// to call in any state.
func (c *Controller) Disconnect() {
	c.sendEnvelope(proto.TypeLeaveSession, nil)
	c.teardown()
}

// State returns the current lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// SessionID returns the active session id, empty when disconnected.
func (c *Controller) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

// SessionName returns the active session's display name.
func (c *Controller) SessionName() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionName
}

// MemberID returns the local member's id within the session.
func (c *Controller) MemberID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.memberID
}

// IsHost reports whether the local member created the session.
func (c *Controller) IsHost() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.isHost
}

// Latency returns the last measured round-trip time.
func (c *Controller) Latency() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rtt
}

// Members returns the roster mirror sorted by join time.
func (c *Controller) Members() []proto.MemberInfo {
	c.mu.Lock()
	out := make([]proto.MemberInfo, 0, len(c.members))
	for _, m := range c.members {
		out = append(out, m)
	}
	c.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].JoinedAt != out[j].JoinedAt {
			return out[i].JoinedAt < out[j].JoinedAt
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Cursors returns the remote cursors that should render right now.
func (c *Controller) Cursors() []RemoteCursor {
	return c.cursors.Visible()
}

// Allows reports whether the local member may perform the action under
// the session policy. Outside a session everything is allowed.
func (c *Controller) Allows(action Action) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateConnectedAsHost && c.state != StateConnectedAsGuest {
		return true
	}
	return c.policy.Allows(action, c.isHost)
}

// SendChat transmits a chat line, refusing locally when the policy
// restricts chat to the host.
func (c *Controller) SendChat(message string) {
	if message == "" {
		return
	}
	if !c.allows(ActionChat) {
		c.refuse("Chat is limited to the host in this session")
		return
	}
	c.sendEnvelope(proto.TypeChatMessage, proto.ChatMessageData{Message: message})
}

// SetName announces a display-name change.
func (c *Controller) SetName(newName string) {
	if newName == "" {
		return
	}
	c.mu.Lock()
	self, ok := c.members[c.memberID]
	if ok {
		old := self.Name
		self.Name = newName
		c.members[c.memberID] = self
		c.mu.Unlock()
		c.sendEnvelope(proto.TypeNameUpdate, proto.NameUpdateData{OldName: old, NewName: newName})
		c.notifier.RosterChanged()
		return
	}
	c.mu.Unlock()
}

// SetColor announces a display-color change; values outside the fixed
// palette are refused locally.
func (c *Controller) SetColor(newColor string) {
	if !canvas.IsPaletteColor(newColor) {
		c.refuse("Pick a color from the palette")
		return
	}
	c.mu.Lock()
	self, ok := c.members[c.memberID]
	if ok {
		old := self.Color
		self.Color = newColor
		c.members[c.memberID] = self
		c.mu.Unlock()
		c.sendEnvelope(proto.TypeColorUpdate, proto.ColorUpdateData{OldColor: old, NewColor: newColor})
		c.notifier.RosterChanged()
		return
	}
	c.mu.Unlock()
}

// ---- sessionHooks ----

func (c *Controller) connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == StateConnectedAsHost || c.state == StateConnectedAsGuest
}

func (c *Controller) allows(action Action) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.policy.Allows(action, c.isHost)
}

func (c *Controller) isHostMember() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.isHost
}

func (c *Controller) refuse(message string) {
	c.notifier.Notice(message)
}

func (c *Controller) sendEnvelope(msgType string, payload any) {
	c.mu.Lock()
	tr := c.tr
	c.mu.Unlock()
	if tr == nil {
		return
	}

	env, err := proto.Encode(msgType, payload)
	if err != nil {
		c.log.Error().Err(err).Str("type", msgType).Msg("encode envelope")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	if err := tr.Write(ctx, env); err != nil {
		c.log.Warn().Err(err).Str("type", msgType).Msg("write envelope")
	}
}

// pushFullState serializes the whole document and transmits it, marked
// for one member or the whole session.
func (c *Controller) pushFullState(toMemberID string) {
	st := c.sync.GetFullState()
	raw, err := json.Marshal(st)
	if err != nil {
		c.log.Error().Err(err).Msg("marshal full state")
		return
	}
	c.sendEnvelope(proto.TypeFullState, proto.FullStateData{State: raw, ToMemberID: toMemberID})
}

// ---- inbound handling ----

func (c *Controller) readLoop(ctx context.Context, tr transport) {
	for {
		env, err := tr.Read(ctx)
		if err != nil {
			c.handleTransportClosed(err)
			return
		}
		c.handle(env)
	}
}

func (c *Controller) handleTransportClosed(err error) {
	c.mu.Lock()
	state := c.state
	c.mu.Unlock()
	if state == StateDisconnected {
		return
	}

	c.log.Debug().Err(err).Msg("transport closed")
	wasConnecting := state == StateConnecting
	c.teardown()
	if wasConnecting {
		c.notifier.Notice("Could not connect to the server")
	} else {
		c.notifier.Notice("Connection to the session was lost")
	}
}

// handle dispatches one server envelope. A payload that fails to parse
// is logged and dropped; it never closes the connection.
func (c *Controller) handle(env proto.Envelope) {
	switch env.Type {
	case proto.TypeSessionCreated:
		var data proto.SessionCreatedData
		if c.decode(env, &data) {
			c.handleSessionCreated(data)
		}
	case proto.TypeSessionJoined:
		var data proto.SessionJoinedData
		if c.decode(env, &data) {
			c.handleSessionJoined(data)
		}
	case proto.TypeMemberJoined:
		var data proto.MemberJoinedData
		if c.decode(env, &data) {
			c.handleMemberJoined(data)
		}
	case proto.TypeMemberLeft:
		var data proto.MemberLeftData
		if c.decode(env, &data) {
			c.removeMember(data.MemberID)
		}
	case proto.TypeMemberKicked:
		var data proto.MemberKickedData
		if c.decode(env, &data) {
			c.removeMember(data.MemberID)
		}
	case proto.TypeYouWereKicked:
		c.notifier.Kicked()
		c.teardown()
	case proto.TypeSessionEnded:
		var data proto.SessionEndedData
		// A missing payload still ends the session.
		_ = c.decode(env, &data)
		if data.Reason == "" {
			data.Reason = "The session has ended"
		}
		c.notifier.SessionEnded(data.Reason)
		c.teardown()
	case proto.TypeTraceComplete:
		var data proto.TraceCompleteData
		if c.decode(env, &data) && data.MemberID != c.MemberID() {
			c.sync.ApplyTrace(data.Trace)
		}
	case proto.TypeCursorUpdate:
		var data proto.CursorUpdateData
		if c.decode(env, &data) && data.MemberID != c.MemberID() {
			c.cursors.Observe(data.MemberID, data.X, data.Y, data.Active)
		}
	case proto.TypeNameUpdate:
		var data proto.NameUpdateData
		if c.decode(env, &data) {
			c.renameMember(data.MemberID, data.NewName)
		}
	case proto.TypeColorUpdate:
		var data proto.ColorUpdateData
		if c.decode(env, &data) {
			c.recolorMember(data.MemberID, data.NewColor)
		}
	case proto.TypeChatMessage:
		var data proto.ChatBroadcastData
		if c.decode(env, &data) {
			c.notifier.ChatReceived(data.MemberName, data.MemberColor, data.Message, time.UnixMilli(data.Timestamp))
		}
	case proto.TypeFullState:
		var data proto.FullStateData
		if c.decode(env, &data) && data.MemberID != c.MemberID() {
			c.applyFullStateRaw(data.State)
		}
	case proto.TypePong:
		var data proto.PongData
		if c.decode(env, &data) {
			c.mu.Lock()
			c.rtt = time.Duration(time.Now().UnixMilli()-data.Timestamp) * time.Millisecond
			c.mu.Unlock()
		}
	case proto.TypeError:
		var data proto.ErrorData
		if !c.decode(env, &data) {
			return
		}
		c.handleServerError(data.Error)
	default:
		c.log.Warn().Str("type", env.Type).Msg("unknown envelope type dropped")
	}
}

func (c *Controller) decode(env proto.Envelope, v any) bool {
	if len(env.Data) == 0 {
		return false
	}
	if err := json.Unmarshal(env.Data, v); err != nil {
		c.log.Warn().Err(err).Str("type", env.Type).Msg("malformed payload dropped")
		return false
	}
	return true
}

func (c *Controller) handleSessionCreated(data proto.SessionCreatedData) {
	c.mu.Lock()
	c.sessionID = data.SessionID
	c.sessionName = data.SessionName
	c.memberID = data.MemberID
	c.isHost = true
	c.policy = PolicyFromProto(data.Permissions)
	c.members = make(map[string]proto.MemberInfo, len(data.Members))
	for _, m := range data.Members {
		c.members[m.ID] = m
	}
	c.state = StateConnectedAsHost
	c.mu.Unlock()

	c.enterSession()
	c.log.Info().Str("session_id", data.SessionID).Msg("session created")
}

func (c *Controller) handleSessionJoined(data proto.SessionJoinedData) {
	c.mu.Lock()
	c.sessionID = data.SessionID
	c.sessionName = data.SessionName
	c.memberID = data.MemberID
	c.isHost = data.IsHost
	c.policy = PolicyFromProto(data.Permissions)
	c.members = make(map[string]proto.MemberInfo, len(data.Members))
	for _, m := range data.Members {
		c.members[m.ID] = m
	}
	c.state = StateConnectedAsGuest
	c.mu.Unlock()

	// Catch up on the host's document before the UI is unblocked, so a
	// joining guest never draws on stale content.
	if len(data.ProjectData) > 0 {
		c.applyFullStateRaw(data.ProjectData)
	}

	c.enterSession()
	c.log.Info().Str("session_id", data.SessionID).Bool("is_host", data.IsHost).Msg("session joined")
}

// enterSession installs the interception layer, starts the ping timer
// and unblocks the UI.
func (c *Controller) enterSession() {
	c.interceptor.Install()

	stop := make(chan struct{})
	c.mu.Lock()
	c.pingStop = stop
	c.mu.Unlock()
	go c.pingLoop(stop)

	c.notifier.ConnectingFinished()
	c.notifier.RosterChanged()
}

func (c *Controller) handleMemberJoined(data proto.MemberJoinedData) {
	c.mu.Lock()
	// Never mutate our own entry from an echo of our own join.
	if data.Member.ID == c.memberID {
		c.mu.Unlock()
		return
	}
	c.members[data.Member.ID] = data.Member
	c.mu.Unlock()
	c.notifier.RosterChanged()
}

func (c *Controller) removeMember(memberID string) {
	c.mu.Lock()
	// The server notifies the subject of a kick separately; a removal
	// naming ourselves is an echo and must not clear our own entry.
	if memberID == c.memberID {
		c.mu.Unlock()
		return
	}
	_, ok := c.members[memberID]
	delete(c.members, memberID)
	c.mu.Unlock()

	if ok {
		c.cursors.Forget(memberID)
		c.notifier.RosterChanged()
	}
}

func (c *Controller) renameMember(memberID, newName string) {
	c.mu.Lock()
	if memberID == c.memberID {
		c.mu.Unlock()
		return
	}
	m, ok := c.members[memberID]
	if ok {
		m.Name = newName
		c.members[memberID] = m
	}
	c.mu.Unlock()
	if ok {
		c.notifier.RosterChanged()
	}
}

func (c *Controller) recolorMember(memberID, newColor string) {
	c.mu.Lock()
	if memberID == c.memberID {
		c.mu.Unlock()
		return
	}
	m, ok := c.members[memberID]
	if ok {
		m.Color = newColor
		c.members[memberID] = m
	}
	c.mu.Unlock()
	if ok {
		c.notifier.RosterChanged()
	}
}

func (c *Controller) applyFullStateRaw(raw json.RawMessage) {
	var st proto.FullState
	if err := json.Unmarshal(raw, &st); err != nil {
		c.log.Warn().Err(err).Msg("malformed full state dropped")
		return
	}
	if err := c.sync.ApplyFullState(st); err != nil {
		c.log.Warn().Err(err).Msg("apply full state")
	}
}

func (c *Controller) handleServerError(msg string) {
	if msg == "" {
		msg = "The server rejected the request"
	}
	c.notifier.Notice(msg)

	c.mu.Lock()
	failedConnect := c.state == StateConnecting
	c.mu.Unlock()
	if failedConnect {
		// create/join was refused; the socket is still healthy but the
		// attempt is over.
		c.teardown()
	}
}

func (c *Controller) pingLoop(stop chan struct{}) {
	ticker := time.NewTicker(c.opts.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.sendEnvelope(proto.TypePing, proto.PingData{Timestamp: time.Now().UnixMilli()})
		case <-stop:
			return
		}
	}
}

// teardown returns the controller to Disconnected: restores the
// editor's original methods (unconditionally and idempotently), stops
// the ping timer, clears the roster mirror and closes the transport.
func (c *Controller) teardown() {
	c.mu.Lock()
	if c.state == StateDisconnected {
		c.mu.Unlock()
		return
	}
	wasConnecting := c.state == StateConnecting
	tr := c.tr
	cancel := c.cancelRead
	ping := c.pingStop
	c.state = StateDisconnected
	c.tr = nil
	c.cancelRead = nil
	c.pingStop = nil
	c.sessionID = ""
	c.sessionName = ""
	c.memberID = ""
	c.isHost = false
	c.policy = Policy{}
	c.members = make(map[string]proto.MemberInfo)
	c.rtt = 0
	c.mu.Unlock()

	c.interceptor.Restore()
	c.cursors.Reset()

	if ping != nil {
		close(ping)
	}
	if cancel != nil {
		cancel()
	}
	if tr != nil {
		_ = tr.Close("leaving")
	}
	if wasConnecting {
		c.notifier.ConnectingFinished()
	}
	c.notifier.RosterChanged()
}
