package canvas

import "fmt"

// Layer is one drawable plane of pixels. Pixels are stored as a flat
// row-major RGBA byte sequence, four bytes per pixel.
type Layer struct {
	Name    string
	Visible bool

	width  int
	height int
	pixels []byte
}

// NewLayer allocates a transparent layer of the given size.
func NewLayer(name string, width, height int) *Layer {
	return &Layer{
		Name:    name,
		Visible: true,
		width:   width,
		height:  height,
		pixels:  make([]byte, width*height*4),
	}
}

// SetPixel writes one pixel. Out-of-bounds writes are ignored so brush
// strokes may overhang the canvas edge.
func (l *Layer) SetPixel(x, y int, c RGBA) {
	if x < 0 || y < 0 || x >= l.width || y >= l.height {
		return
	}
	off := (y*l.width + x) * 4
	copy(l.pixels[off:off+4], c[:])
}

// Pixel reads one pixel; out-of-bounds reads return Transparent.
func (l *Layer) Pixel(x, y int) RGBA {
	if x < 0 || y < 0 || x >= l.width || y >= l.height {
		return Transparent
	}
	var c RGBA
	off := (y*l.width + x) * 4
	copy(c[:], l.pixels[off:off+4])
	return c
}

// RawPixels returns a copy of the layer's pixel buffer.
func (l *Layer) RawPixels() []byte {
	out := make([]byte, len(l.pixels))
	copy(out, l.pixels)
	return out
}

// SetRawPixels replaces the pixel buffer wholesale.
func (l *Layer) SetRawPixels(raw []byte) error {
	if len(raw) != len(l.pixels) {
		return fmt.Errorf("set raw pixels: got %d bytes, want %d", len(raw), len(l.pixels))
	}
	copy(l.pixels, raw)
	return nil
}

// Clone returns a deep copy of the layer.
func (l *Layer) Clone() *Layer {
	out := NewLayer(l.Name, l.width, l.height)
	out.Visible = l.Visible
	copy(out.pixels, l.pixels)
	return out
}

// Frame is one animation frame's layer stack, bottom first.
type Frame struct {
	Layers []*Layer
}

// Document is the live in-memory project. Every frame carries the same
// number of layers; layer operations apply across all frames to keep
// the stacks congruent.
type Document struct {
	Width  int
	Height int
	Frames []*Frame

	CurrentFrame int
	CurrentLayer int
}

// NewDocument builds a document with a single frame holding a single
// transparent layer.
func NewDocument(width, height int) *Document {
	return &Document{
		Width:  width,
		Height: height,
		Frames: []*Frame{
			{Layers: []*Layer{NewLayer("Layer 1", width, height)}},
		},
	}
}

// Layer returns the addressed layer, or nil when either index is out of
// range. Remote traces race against concurrent frame deletion, so nil
// is an expected answer, not an error.
func (d *Document) Layer(frame, layer int) *Layer {
	if frame < 0 || frame >= len(d.Frames) {
		return nil
	}
	f := d.Frames[frame]
	if layer < 0 || layer >= len(f.Layers) {
		return nil
	}
	return f.Layers[layer]
}

// LayerCount returns the number of layers per frame.
func (d *Document) LayerCount() int {
	if len(d.Frames) == 0 {
		return 0
	}
	return len(d.Frames[0].Layers)
}

// AddFrame appends a new frame with blank layers matching the current
// layer stack and selects it.
func (d *Document) AddFrame() {
	layers := make([]*Layer, 0, d.LayerCount())
	for _, l := range d.Frames[d.CurrentFrame].Layers {
		blank := NewLayer(l.Name, d.Width, d.Height)
		blank.Visible = l.Visible
		layers = append(layers, blank)
	}
	d.Frames = append(d.Frames, &Frame{Layers: layers})
	d.CurrentFrame = len(d.Frames) - 1
}

// RemoveFrame deletes the frame at index. The last remaining frame
// cannot be removed.
func (d *Document) RemoveFrame(index int) {
	if index < 0 || index >= len(d.Frames) || len(d.Frames) == 1 {
		return
	}
	d.Frames = append(d.Frames[:index], d.Frames[index+1:]...)
	if d.CurrentFrame >= len(d.Frames) {
		d.CurrentFrame = len(d.Frames) - 1
	}
}

// MoveFrame reorders a frame from one index to another.
func (d *Document) MoveFrame(from, to int) {
	if from < 0 || from >= len(d.Frames) || to < 0 || to >= len(d.Frames) || from == to {
		return
	}
	f := d.Frames[from]
	d.Frames = append(d.Frames[:from], d.Frames[from+1:]...)
	rest := append([]*Frame{}, d.Frames[to:]...)
	d.Frames = append(d.Frames[:to], f)
	d.Frames = append(d.Frames, rest...)
	d.CurrentFrame = to
}

// AddLayer appends a blank layer to every frame and selects it.
func (d *Document) AddLayer() {
	name := fmt.Sprintf("Layer %d", d.LayerCount()+1)
	for _, f := range d.Frames {
		f.Layers = append(f.Layers, NewLayer(name, d.Width, d.Height))
	}
	d.CurrentLayer = d.LayerCount() - 1
}

// RemoveLayer deletes the layer at index from every frame. The last
// remaining layer cannot be removed.
func (d *Document) RemoveLayer(index int) {
	if index < 0 || index >= d.LayerCount() || d.LayerCount() == 1 {
		return
	}
	for _, f := range d.Frames {
		f.Layers = append(f.Layers[:index], f.Layers[index+1:]...)
	}
	if d.CurrentLayer >= d.LayerCount() {
		d.CurrentLayer = d.LayerCount() - 1
	}
}

// MoveLayer reorders a layer within every frame's stack.
func (d *Document) MoveLayer(from, to int) {
	n := d.LayerCount()
	if from < 0 || from >= n || to < 0 || to >= n || from == to {
		return
	}
	for _, f := range d.Frames {
		l := f.Layers[from]
		f.Layers = append(f.Layers[:from], f.Layers[from+1:]...)
		rest := append([]*Layer{}, f.Layers[to:]...)
		f.Layers = append(f.Layers[:to], l)
		f.Layers = append(f.Layers, rest...)
	}
	d.CurrentLayer = to
}

// SetLayerVisible toggles the layer's visibility across all frames.
func (d *Document) SetLayerVisible(index int, visible bool) {
	if index < 0 || index >= d.LayerCount() {
		return
	}
	for _, f := range d.Frames {
		f.Layers[index].Visible = visible
	}
}

// Clone returns a deep copy of the document.
func (d *Document) Clone() *Document {
	out := &Document{
		Width:        d.Width,
		Height:       d.Height,
		CurrentFrame: d.CurrentFrame,
		CurrentLayer: d.CurrentLayer,
	}
	for _, f := range d.Frames {
		frame := &Frame{}
		for _, l := range f.Layers {
			frame.Layers = append(frame.Layers, l.Clone())
		}
		out.Frames = append(out.Frames, frame)
	}
	return out
}
