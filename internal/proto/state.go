package proto

// Point is one pointer sample in canvas pixel coordinates.
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Trace is one continuous pointer gesture, transmitted atomically after
// the gesture completes. Partial gestures are never sent.
type Trace struct {
	Tool       string  `json:"tool"`
	BrushSize  int     `json:"brushSize"`
	Color      string  `json:"color"`
	Points     []Point `json:"points"`
	FrameIndex int     `json:"frameIndex"`
	LayerIndex int     `json:"layerIndex"`
}

// LayerState is one layer's serialized pixels. RawPixels is a flat
// row-major RGBA byte sequence, four bytes per pixel; encoding/json
// transports it as base64.
type LayerState struct {
	Name      string `json:"name"`
	Visible   bool   `json:"visible"`
	RawPixels []byte `json:"rawPixels"`
}

// FrameState is one animation frame's layer stack.
type FrameState struct {
	Layers []LayerState `json:"layers"`
}

// FullState is a complete snapshot of the shared document. It is the
// only artifact that can fully resynchronize a guest; traces are a
// lossy incremental optimization layered on top of it.
type FullState struct {
	Width        int          `json:"width"`
	Height       int          `json:"height"`
	Frames       []FrameState `json:"frames"`
	CurrentFrame int          `json:"currentFrame"`
	CurrentLayer int          `json:"currentLayer"`
}
