package client

import (
	"sync"
	"time"

	"pixelsync/internal/canvas"
	"pixelsync/internal/proto"
)

// sessionHooks is what the interception layer needs from the session
// controller. Split out as an interface so the wrapping logic is
// testable without a live connection.
type sessionHooks interface {
	connected() bool
	allows(action Action) bool
	isHostMember() bool
	sendEnvelope(msgType string, payload any)
	pushFullState(toMemberID string)
	refuse(message string)
}

// Interceptor wraps the editor's mutating entry points while a session
// is active. Wrapping is composition, not method replacement: the
// editor's Mutator and Tools are swapped for decorators that call the
// captured originals, and Restore puts those exact originals back.
type Interceptor struct {
	hooks  sessionHooks
	editor canvas.Editor

	cursorLimiter *rateLimiter

	// mu guards the install state and the in-flight trace. Restore runs
	// on the disconnecting caller's goroutine while trace replay and the
	// wrappers run on the read loop.
	mu           sync.Mutex
	installed    bool
	innerMutator canvas.Mutator
	innerTools   map[string]canvas.Tool
	trace        *proto.Trace
}

// NewInterceptor builds an (uninstalled) interception layer.
func NewInterceptor(editor canvas.Editor, hooks sessionHooks, cursorThrottle time.Duration) *Interceptor {
	return &Interceptor{
		hooks:         hooks,
		editor:        editor,
		cursorLimiter: newRateLimiter(cursorThrottle),
		innerTools:    make(map[string]canvas.Tool),
	}
}

// Install swaps the editor's mutator and tools for session decorators.
// Installing twice is a no-op, so repeated connect cycles can never
// stack wrappers.
func (ic *Interceptor) Install() {
	ic.mu.Lock()
	defer ic.mu.Unlock()

	if ic.installed {
		return
	}
	ic.installed = true

	ic.innerMutator = ic.editor.Mutator()
	ic.editor.SetMutator(&sessionMutator{ic: ic, inner: ic.innerMutator})

	for _, name := range ic.editor.ToolNames() {
		inner := ic.editor.Tool(name)
		if inner == nil {
			continue
		}
		ic.innerTools[name] = inner
		ic.editor.SetTool(name, &sessionTool{ic: ic, inner: inner})
	}
}

// Restore puts back the exact originals captured at install time.
// Unconditional and idempotent: calling it while not installed does
// nothing.
func (ic *Interceptor) Restore() {
	ic.mu.Lock()
	defer ic.mu.Unlock()

	if !ic.installed {
		return
	}
	ic.installed = false

	ic.editor.SetMutator(ic.innerMutator)
	ic.innerMutator = nil

	for name, inner := range ic.innerTools {
		ic.editor.SetTool(name, inner)
		delete(ic.innerTools, name)
	}

	ic.trace = nil
}

// Installed reports whether the decorators are currently in place.
func (ic *Interceptor) Installed() bool {
	ic.mu.Lock()
	defer ic.mu.Unlock()
	return ic.installed
}

// OriginalTool returns the un-wrapped handler for a tool, falling back
// to the editor's current tool when not installed. Remote trace replay
// must drive originals, or replayed strokes would be re-broadcast.
func (ic *Interceptor) OriginalTool(name string) canvas.Tool {
	ic.mu.Lock()
	defer ic.mu.Unlock()

	if ic.installed {
		return ic.innerTools[name]
	}
	return ic.editor.Tool(name)
}

func (ic *Interceptor) beginTrace(tool string, x, y int) {
	if !ic.hooks.connected() || !ic.hooks.allows(ActionDraw) {
		return
	}
	doc := ic.editor.Document()

	ic.mu.Lock()
	ic.trace = &proto.Trace{
		Tool:       tool,
		BrushSize:  ic.editor.BrushSize(),
		Color:      ic.editor.Color(),
		Points:     []proto.Point{{X: x, Y: y}},
		FrameIndex: doc.CurrentFrame,
		LayerIndex: doc.CurrentLayer,
	}
	ic.mu.Unlock()
}

func (ic *Interceptor) extendTrace(x, y int) {
	ic.mu.Lock()
	open := ic.trace != nil
	if open {
		ic.trace.Points = append(ic.trace.Points, proto.Point{X: x, Y: y})
	}
	ic.mu.Unlock()

	if open && ic.cursorLimiter.Allow() {
		ic.hooks.sendEnvelope(proto.TypeCursorUpdate, proto.CursorUpdateData{X: x, Y: y, Active: true})
	}
}

func (ic *Interceptor) finishTrace(x, y int) {
	ic.mu.Lock()
	tr := ic.trace
	ic.trace = nil
	if tr != nil {
		last := tr.Points[len(tr.Points)-1]
		if last.X != x || last.Y != y {
			tr.Points = append(tr.Points, proto.Point{X: x, Y: y})
		}
	}
	ic.mu.Unlock()

	if tr == nil {
		return
	}
	ic.hooks.sendEnvelope(proto.TypeTraceComplete, proto.TraceCompleteData{Trace: *tr})
	ic.hooks.sendEnvelope(proto.TypeCursorUpdate, proto.CursorUpdateData{X: x, Y: y, Active: false})
}

// afterStructural runs after a frame or layer mutation was applied
// locally; a permitted member pushes the resulting full state.
func (ic *Interceptor) afterStructural(action Action) {
	if ic.hooks.connected() && ic.hooks.allows(action) {
		ic.hooks.pushFullState("")
	}
}

// sessionMutator decorates the editor's mutator: originals run first so
// the local UI never waits on the network, then the change is
// replicated by a full-state push when the policy allows it.
type sessionMutator struct {
	ic    *Interceptor
	inner canvas.Mutator
}

func (m *sessionMutator) AddFrame() {
	m.inner.AddFrame()
	m.ic.afterStructural(ActionAddRemoveFrames)
}

func (m *sessionMutator) RemoveFrame(index int) {
	m.inner.RemoveFrame(index)
	m.ic.afterStructural(ActionAddRemoveFrames)
}

func (m *sessionMutator) MoveFrame(from, to int) {
	m.inner.MoveFrame(from, to)
	m.ic.afterStructural(ActionAddRemoveFrames)
}

func (m *sessionMutator) AddLayer() {
	m.inner.AddLayer()
	m.ic.afterStructural(ActionAddRemoveLayers)
}

func (m *sessionMutator) RemoveLayer(index int) {
	m.inner.RemoveLayer(index)
	m.ic.afterStructural(ActionAddRemoveLayers)
}

func (m *sessionMutator) MoveLayer(from, to int) {
	m.inner.MoveLayer(from, to)
	m.ic.afterStructural(ActionAddRemoveLayers)
}

func (m *sessionMutator) SetLayerVisible(index int, visible bool) {
	m.inner.SetLayerVisible(index, visible)
	m.ic.afterStructural(ActionAddRemoveLayers)
}

// Undo short-circuits before the original when the member lacks the
// permission: a disallowed history step must not execute at all. Only
// the host's undo pushes state; a guest's allowed undo applies locally
// and is reconciled by the host's next full-state push.
func (m *sessionMutator) Undo() {
	if !m.ic.hooks.allows(ActionUndoRedo) {
		m.ic.hooks.refuse("Undo is limited to the host in this session")
		return
	}
	m.inner.Undo()
	if m.ic.hooks.connected() && m.ic.hooks.isHostMember() {
		m.ic.hooks.pushFullState("")
	}
}

func (m *sessionMutator) Redo() {
	if !m.ic.hooks.allows(ActionUndoRedo) {
		m.ic.hooks.refuse("Redo is limited to the host in this session")
		return
	}
	m.inner.Redo()
	if m.ic.hooks.connected() && m.ic.hooks.isHostMember() {
		m.ic.hooks.pushFullState("")
	}
}

// sessionTool decorates one drawing tool's pointer lifecycle, capturing
// the gesture into a Trace that is transmitted atomically at pointer
// up. The original handler always runs, so local drawing never depends
// on the network.
type sessionTool struct {
	ic    *Interceptor
	inner canvas.Tool
}

func (t *sessionTool) Name() string { return t.inner.Name() }

func (t *sessionTool) Down(x, y int) {
	t.ic.beginTrace(t.inner.Name(), x, y)
	t.inner.Down(x, y)
}

func (t *sessionTool) Move(x, y int) {
	t.ic.extendTrace(x, y)
	t.inner.Move(x, y)
}

func (t *sessionTool) Up(x, y int) {
	t.ic.finishTrace(x, y)
	t.inner.Up(x, y)
}

// rateLimiter admits at most one event per interval; excess events are
// dropped, never queued.
type rateLimiter struct {
	mu       sync.Mutex
	interval time.Duration
	last     time.Time
	now      func() time.Time
}

func newRateLimiter(interval time.Duration) *rateLimiter {
	return &rateLimiter{interval: interval, now: time.Now}
}

func (r *rateLimiter) Allow() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	t := r.now()
	if !r.last.IsZero() && t.Sub(r.last) < r.interval {
		return false
	}
	r.last = t
	return true
}
