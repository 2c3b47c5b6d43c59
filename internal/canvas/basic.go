package canvas

// BasicEditor is a headless editor implementation backed purely by the
// in-memory Document. The GUI wraps a real rasterizer behind the same
// Editor interface; this one is used by the state synchronizer tests
// and the smoke client.
type BasicEditor struct {
	doc     *Document
	mutator Mutator
	tools   map[string]Tool
	order   []string

	brushSize int
	color     string

	undo []*Document
	redo []*Document
}

// NewBasicEditor builds an editor around a fresh document with pencil
// and eraser tools registered.
func NewBasicEditor(width, height int) *BasicEditor {
	e := &BasicEditor{
		doc:       NewDocument(width, height),
		tools:     make(map[string]Tool),
		brushSize: 1,
		color:     "#000000",
	}
	e.mutator = &basicMutator{editor: e}
	e.registerTool(&pencilTool{editor: e})
	e.registerTool(&eraserTool{editor: e})
	return e
}

func (e *BasicEditor) registerTool(t Tool) {
	e.tools[t.Name()] = t
	e.order = append(e.order, t.Name())
}

// Document returns the live document.
func (e *BasicEditor) Document() *Document { return e.doc }

// Mutator returns the currently installed mutator.
func (e *BasicEditor) Mutator() Mutator { return e.mutator }

// SetMutator swaps the installed mutator.
func (e *BasicEditor) SetMutator(m Mutator) { e.mutator = m }

// ToolNames lists registered tools in registration order.
func (e *BasicEditor) ToolNames() []string {
	out := make([]string, len(e.order))
	copy(out, e.order)
	return out
}

// Tool returns a registered tool by name, or nil.
func (e *BasicEditor) Tool(name string) Tool { return e.tools[name] }

// SetTool swaps a registered tool.
func (e *BasicEditor) SetTool(name string, t Tool) { e.tools[name] = t }

// BrushSize returns the active brush size in pixels.
func (e *BasicEditor) BrushSize() int { return e.brushSize }

// SetBrushSize sets the active brush size.
func (e *BasicEditor) SetBrushSize(size int) {
	if size < 1 {
		size = 1
	}
	e.brushSize = size
}

// Color returns the active draw color as "#rrggbb".
func (e *BasicEditor) Color() string { return e.color }

// SetColor sets the active draw color.
func (e *BasicEditor) SetColor(color string) { e.color = color }

// checkpoint records the document for undo and clears the redo stack.
func (e *BasicEditor) checkpoint() {
	e.undo = append(e.undo, e.doc.Clone())
	e.redo = nil
}

// basicMutator applies document operations with a snapshot-stack
// history.
type basicMutator struct {
	editor *BasicEditor
}

func (m *basicMutator) AddFrame() {
	m.editor.checkpoint()
	m.editor.doc.AddFrame()
}

func (m *basicMutator) RemoveFrame(index int) {
	m.editor.checkpoint()
	m.editor.doc.RemoveFrame(index)
}

func (m *basicMutator) MoveFrame(from, to int) {
	m.editor.checkpoint()
	m.editor.doc.MoveFrame(from, to)
}

func (m *basicMutator) AddLayer() {
	m.editor.checkpoint()
	m.editor.doc.AddLayer()
}

func (m *basicMutator) RemoveLayer(index int) {
	m.editor.checkpoint()
	m.editor.doc.RemoveLayer(index)
}

func (m *basicMutator) MoveLayer(from, to int) {
	m.editor.checkpoint()
	m.editor.doc.MoveLayer(from, to)
}

func (m *basicMutator) SetLayerVisible(index int, visible bool) {
	m.editor.checkpoint()
	m.editor.doc.SetLayerVisible(index, visible)
}

func (m *basicMutator) Undo() {
	e := m.editor
	if len(e.undo) == 0 {
		return
	}
	e.redo = append(e.redo, e.doc)
	e.doc = e.undo[len(e.undo)-1]
	e.undo = e.undo[:len(e.undo)-1]
}

func (m *basicMutator) Redo() {
	e := m.editor
	if len(e.redo) == 0 {
		return
	}
	e.undo = append(e.undo, e.doc)
	e.doc = e.redo[len(e.redo)-1]
	e.redo = e.redo[:len(e.redo)-1]
}

// pencilTool paints the active color along the pointer path.
type pencilTool struct {
	editor *BasicEditor
	lastX  int
	lastY  int
	active bool
}

func (t *pencilTool) Name() string { return "pencil" }

func (t *pencilTool) Down(x, y int) {
	t.editor.checkpoint()
	t.active = true
	t.lastX, t.lastY = x, y
	t.stamp(x, y)
}

func (t *pencilTool) Move(x, y int) {
	if !t.active {
		return
	}
	t.line(t.lastX, t.lastY, x, y)
	t.lastX, t.lastY = x, y
}

func (t *pencilTool) Up(x, y int) {
	if !t.active {
		return
	}
	t.line(t.lastX, t.lastY, x, y)
	t.active = false
}

func (t *pencilTool) color() RGBA {
	c, err := ParseHexColor(t.editor.Color())
	if err != nil {
		return RGBA{0, 0, 0, 0xff}
	}
	return c
}

func (t *pencilTool) stamp(x, y int) {
	stampBrush(t.editor, x, y, t.color())
}

func (t *pencilTool) line(x0, y0, x1, y1 int) {
	drawLine(t.editor, x0, y0, x1, y1, t.color())
}

// eraserTool clears pixels along the pointer path.
type eraserTool struct {
	editor *BasicEditor
	lastX  int
	lastY  int
	active bool
}

func (t *eraserTool) Name() string { return "eraser" }

func (t *eraserTool) Down(x, y int) {
	t.editor.checkpoint()
	t.active = true
	t.lastX, t.lastY = x, y
	stampBrush(t.editor, x, y, Transparent)
}

func (t *eraserTool) Move(x, y int) {
	if !t.active {
		return
	}
	drawLine(t.editor, t.lastX, t.lastY, x, y, Transparent)
	t.lastX, t.lastY = x, y
}

func (t *eraserTool) Up(x, y int) {
	if !t.active {
		return
	}
	drawLine(t.editor, t.lastX, t.lastY, x, y, Transparent)
	t.active = false
}

// stampBrush fills a brush-sized square centered on (x, y) in the
// current frame and layer.
func stampBrush(e *BasicEditor, x, y int, c RGBA) {
	doc := e.Document()
	layer := doc.Layer(doc.CurrentFrame, doc.CurrentLayer)
	if layer == nil {
		return
	}
	size := e.BrushSize()
	half := size / 2
	for dy := 0; dy < size; dy++ {
		for dx := 0; dx < size; dx++ {
			layer.SetPixel(x-half+dx, y-half+dy, c)
		}
	}
}

// drawLine rasterizes a Bresenham line of brush stamps between two
// pointer samples.
func drawLine(e *BasicEditor, x0, y0, x1, y1 int, c RGBA) {
	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	sx := 1
	if x0 > x1 {
		sx = -1
	}
	sy := 1
	if y0 > y1 {
		sy = -1
	}
	err := dx + dy
	for {
		stampBrush(e, x0, y0, c)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			err += dx
			y0 += sy
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
