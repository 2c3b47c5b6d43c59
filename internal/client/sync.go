package client

import (
	"fmt"

	"pixelsync/internal/canvas"
	"pixelsync/internal/proto"
)

// Synchronizer produces and consumes full-state snapshots and replays
// remote traces onto the live document.
type Synchronizer struct {
	editor canvas.Editor

	// originalTool resolves a tool name to its un-wrapped handler, so a
	// replayed stroke is never re-captured and re-broadcast.
	originalTool func(name string) canvas.Tool
}

// NewSynchronizer builds a synchronizer over the editor. originalTool
// may be nil, in which case the editor's current tools are used.
func NewSynchronizer(editor canvas.Editor, originalTool func(name string) canvas.Tool) *Synchronizer {
	if originalTool == nil {
		originalTool = editor.Tool
	}
	return &Synchronizer{editor: editor, originalTool: originalTool}
}

// GetFullState walks every frame and layer of the live document and
// serializes it. This is O(frames x layers x pixels); callers gate it
// behind permissioned operations, never pointer moves.
func (s *Synchronizer) GetFullState() proto.FullState {
	doc := s.editor.Document()

	st := proto.FullState{
		Width:        doc.Width,
		Height:       doc.Height,
		CurrentFrame: doc.CurrentFrame,
		CurrentLayer: doc.CurrentLayer,
	}
	for _, f := range doc.Frames {
		frame := proto.FrameState{}
		for _, l := range f.Layers {
			frame.Layers = append(frame.Layers, proto.LayerState{
				Name:      l.Name,
				Visible:   l.Visible,
				RawPixels: l.RawPixels(),
			})
		}
		st.Frames = append(st.Frames, frame)
	}
	return st
}

// maxDimension caps snapshot width and height. Snapshots arrive from
// peers and the server relays them without decoding, so the buffer
// size is attacker-controlled until checked here.
const maxDimension = 4096

// ApplyFullState discards the local document and rebuilds it from the
// snapshot, unconditionally. No diffing: correctness is "what the host
// says is current", not "smallest patch". The rebuild happens off to
// the side and is swapped in only once the whole snapshot checked out,
// so a rejected snapshot leaves the document untouched.
func (s *Synchronizer) ApplyFullState(st proto.FullState) error {
	if st.Width <= 0 || st.Height <= 0 || len(st.Frames) == 0 {
		return fmt.Errorf("apply full state: invalid dimensions %dx%d with %d frames", st.Width, st.Height, len(st.Frames))
	}
	if st.Width > maxDimension || st.Height > maxDimension {
		return fmt.Errorf("apply full state: dimensions %dx%d exceed the %d limit", st.Width, st.Height, maxDimension)
	}

	want := st.Width * st.Height * 4
	layerCount := len(st.Frames[0].Layers)
	if layerCount == 0 {
		return fmt.Errorf("apply full state: frame 0 has no layers")
	}

	frames := make([]*canvas.Frame, 0, len(st.Frames))
	for i, f := range st.Frames {
		if len(f.Layers) != layerCount {
			return fmt.Errorf("apply full state: frame %d has %d layers, want %d", i, len(f.Layers), layerCount)
		}
		frame := &canvas.Frame{}
		for j, l := range f.Layers {
			if len(l.RawPixels) != want {
				return fmt.Errorf("apply full state: frame %d layer %d has %d pixel bytes, want %d", i, j, len(l.RawPixels), want)
			}
			layer := canvas.NewLayer(l.Name, st.Width, st.Height)
			layer.Visible = l.Visible
			if err := layer.SetRawPixels(l.RawPixels); err != nil {
				return fmt.Errorf("apply full state: %w", err)
			}
			frame.Layers = append(frame.Layers, layer)
		}
		frames = append(frames, frame)
	}

	doc := s.editor.Document()
	doc.Width = st.Width
	doc.Height = st.Height
	doc.Frames = frames
	doc.CurrentFrame = clamp(st.CurrentFrame, len(frames))
	doc.CurrentLayer = clamp(st.CurrentLayer, doc.LayerCount())
	return nil
}

// ApplyTrace replays one remote gesture through the original tool
// handlers. The trace addresses a frame and layer by index; if either
// no longer exists (a race against concurrent deletion) the trace is
// dropped silently. The local user's brush state and frame selection
// are restored afterwards, so a peer's stroke never disturbs an
// in-progress local gesture's settings.
func (s *Synchronizer) ApplyTrace(tr proto.Trace) {
	if len(tr.Points) == 0 {
		return
	}

	doc := s.editor.Document()
	if doc.Layer(tr.FrameIndex, tr.LayerIndex) == nil {
		return
	}

	tool := s.originalTool(tr.Tool)
	if tool == nil {
		return
	}

	prevFrame := doc.CurrentFrame
	prevLayer := doc.CurrentLayer
	prevBrush := s.editor.BrushSize()
	prevColor := s.editor.Color()

	doc.CurrentFrame = tr.FrameIndex
	doc.CurrentLayer = tr.LayerIndex
	s.editor.SetBrushSize(tr.BrushSize)
	s.editor.SetColor(tr.Color)

	points := tr.Points
	tool.Down(points[0].X, points[0].Y)
	if len(points) == 1 {
		// A single point replays as a down+up click.
		tool.Up(points[0].X, points[0].Y)
	} else {
		for _, p := range points[1 : len(points)-1] {
			tool.Move(p.X, p.Y)
		}
		last := points[len(points)-1]
		tool.Up(last.X, last.Y)
	}

	s.editor.SetBrushSize(prevBrush)
	s.editor.SetColor(prevColor)
	// The replay may have happened on a frame that still exists, but
	// the user's selection might have been clamped meanwhile.
	doc.CurrentFrame = clamp(prevFrame, len(doc.Frames))
	doc.CurrentLayer = clamp(prevLayer, doc.LayerCount())
}

func clamp(v, n int) int {
	if n <= 0 {
		return 0
	}
	if v < 0 {
		return 0
	}
	if v >= n {
		return n - 1
	}
	return v
}
