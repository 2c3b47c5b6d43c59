package canvas

// Mutator is the set of document operations the editor UI can trigger
// outside of a pointer gesture. The collaborative layer decorates a
// concrete Mutator instead of rewriting it; out-of-range indices are
// no-ops.
type Mutator interface {
	AddFrame()
	RemoveFrame(index int)
	MoveFrame(from, to int)
	AddLayer()
	RemoveLayer(index int)
	MoveLayer(from, to int)
	SetLayerVisible(index int, visible bool)
	Undo()
	Redo()
}

// Tool is one drawing tool's pointer lifecycle. Coordinates are canvas
// pixels. A gesture is Down, zero or more Moves, then Up.
type Tool interface {
	Name() string
	Down(x, y int)
	Move(x, y int)
	Up(x, y int)
}

// Editor is the surface the collaborative layer needs from the host
// application: the live document, the swappable mutator and tools, and
// the active brush state. The GUI editor implements this; BasicEditor
// is the in-memory reference implementation.
type Editor interface {
	Document() *Document

	Mutator() Mutator
	SetMutator(m Mutator)

	ToolNames() []string
	Tool(name string) Tool
	SetTool(name string, t Tool)

	BrushSize() int
	SetBrushSize(size int)
	Color() string
	SetColor(color string)
}
