package client

import (
	"testing"

	"pixelsync/internal/canvas"
	"pixelsync/internal/proto"
)

func TestFullStateRoundTrip(t *testing.T) {
	src := canvas.NewBasicEditor(8, 8)
	src.SetColor("#e43b44")
	pencil := src.Tool("pencil")
	pencil.Down(1, 1)
	pencil.Move(4, 4)
	pencil.Up(6, 6)
	src.Mutator().AddFrame()
	src.Mutator().AddLayer()

	snap := NewSynchronizer(src, nil).GetFullState()

	dst := canvas.NewBasicEditor(2, 2)
	if err := NewSynchronizer(dst, nil).ApplyFullState(snap); err != nil {
		t.Fatalf("apply: %v", err)
	}

	d := dst.Document()
	if d.Width != 8 || d.Height != 8 {
		t.Fatalf("dimensions not applied: %dx%d", d.Width, d.Height)
	}
	if len(d.Frames) != 2 || d.LayerCount() != 2 {
		t.Fatalf("structure not applied: %d frames, %d layers", len(d.Frames), d.LayerCount())
	}

	want := src.Document().Layer(0, 0)
	got := d.Layer(0, 0)
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			if got.Pixel(x, y) != want.Pixel(x, y) {
				t.Fatalf("pixel (%d,%d) differs after round trip", x, y)
			}
		}
	}
}

func TestApplyFullStateIsIdempotent(t *testing.T) {
	ed := canvas.NewBasicEditor(4, 4)
	ed.Tool("pencil").Down(2, 2)
	ed.Tool("pencil").Up(2, 2)

	s := NewSynchronizer(ed, nil)
	snap := s.GetFullState()
	if err := s.ApplyFullState(snap); err != nil {
		t.Fatalf("apply: %v", err)
	}

	again := s.GetFullState()
	if again.Width != snap.Width || len(again.Frames) != len(snap.Frames) {
		t.Fatalf("snapshot changed after self-apply: %+v vs %+v", again, snap)
	}
	if string(again.Frames[0].Layers[0].RawPixels) != string(snap.Frames[0].Layers[0].RawPixels) {
		t.Fatal("pixels changed after self-apply")
	}
}

func TestApplyFullStateRejectsInvalid(t *testing.T) {
	ed := canvas.NewBasicEditor(4, 4)
	s := NewSynchronizer(ed, nil)

	bad := []proto.FullState{
		{Width: 0, Height: 4, Frames: []proto.FrameState{{}}},
		{Width: 4, Height: -1, Frames: []proto.FrameState{{}}},
		{Width: 4, Height: 4},
	}
	for i, st := range bad {
		if err := s.ApplyFullState(st); err == nil {
			t.Fatalf("case %d: expected error", i)
		}
	}
	// The local document must be untouched after a rejected apply.
	if len(ed.Document().Frames) != 1 {
		t.Fatal("document structure changed by rejected snapshot")
	}
}

func TestApplyFullStateRejectedSnapshotLeavesDocumentUsable(t *testing.T) {
	ed := canvas.NewBasicEditor(4, 4)
	ed.SetColor("#e43b44")
	ed.Tool("pencil").Down(1, 1)
	ed.Tool("pencil").Up(1, 1)
	s := NewSynchronizer(ed, nil)
	before := s.GetFullState()

	bad := []proto.FullState{
		// Plausible dimensions over a truncated pixel buffer.
		{Width: 4, Height: 4, Frames: []proto.FrameState{
			{Layers: []proto.LayerState{{Name: "Layer 1", Visible: true, RawPixels: []byte{1, 2, 3}}}},
		}},
		// Second frame's buffer is the wrong length.
		{Width: 2, Height: 2, Frames: []proto.FrameState{
			{Layers: []proto.LayerState{{RawPixels: make([]byte, 16)}}},
			{Layers: []proto.LayerState{{RawPixels: make([]byte, 15)}}},
		}},
		// Frames with incongruent layer stacks.
		{Width: 2, Height: 2, Frames: []proto.FrameState{
			{Layers: []proto.LayerState{{RawPixels: make([]byte, 16)}, {RawPixels: make([]byte, 16)}}},
			{Layers: []proto.LayerState{{RawPixels: make([]byte, 16)}}},
		}},
		// A frame with no layers at all.
		{Width: 2, Height: 2, Frames: []proto.FrameState{{}}},
		// Dimensions large enough to exhaust memory on allocation.
		{Width: 1 << 30, Height: 1 << 30, Frames: []proto.FrameState{
			{Layers: []proto.LayerState{{RawPixels: []byte{}}}},
		}},
	}
	for i, st := range bad {
		if err := s.ApplyFullState(st); err == nil {
			t.Fatalf("case %d: expected error", i)
		}
	}

	after := s.GetFullState()
	if after.Width != before.Width || len(after.Frames) != len(before.Frames) {
		t.Fatalf("document structure changed by rejected snapshots: %dx%d with %d frames",
			after.Width, after.Height, len(after.Frames))
	}
	if string(after.Frames[0].Layers[0].RawPixels) != string(before.Frames[0].Layers[0].RawPixels) {
		t.Fatal("pixels changed by rejected snapshots")
	}

	// The document must still take local mutations afterwards.
	ed.Mutator().AddFrame()
	if len(ed.Document().Frames) != 2 {
		t.Fatalf("document unusable after rejected snapshots: %d frames", len(ed.Document().Frames))
	}
}

func TestApplyFullStateClampsSelection(t *testing.T) {
	ed := canvas.NewBasicEditor(4, 4)
	s := NewSynchronizer(ed, nil)

	snap := s.GetFullState()
	snap.CurrentFrame = 99
	snap.CurrentLayer = -3
	if err := s.ApplyFullState(snap); err != nil {
		t.Fatalf("apply: %v", err)
	}
	d := ed.Document()
	if d.CurrentFrame != 0 || d.CurrentLayer != 0 {
		t.Fatalf("selection not clamped: frame=%d layer=%d", d.CurrentFrame, d.CurrentLayer)
	}
}

func TestApplyTraceReplaysStroke(t *testing.T) {
	ed := canvas.NewBasicEditor(8, 8)
	s := NewSynchronizer(ed, nil)

	s.ApplyTrace(proto.Trace{
		Tool:      "pencil",
		BrushSize: 1,
		Color:     "#0095e9",
		Points:    []proto.Point{{X: 0, Y: 0}, {X: 7, Y: 7}},
	})

	layer := ed.Document().Layer(0, 0)
	blue, _ := canvas.ParseHexColor("#0095e9")
	if layer.Pixel(0, 0) != blue || layer.Pixel(7, 7) != blue {
		t.Fatal("trace endpoints not drawn")
	}
	// The diagonal in between is drawn too.
	if layer.Pixel(3, 3) != blue {
		t.Fatal("trace interior not drawn")
	}
}

func TestApplyTraceSinglePointClick(t *testing.T) {
	ed := canvas.NewBasicEditor(8, 8)
	s := NewSynchronizer(ed, nil)

	s.ApplyTrace(proto.Trace{
		Tool:      "pencil",
		BrushSize: 1,
		Color:     "#e43b44",
		Points:    []proto.Point{{X: 5, Y: 5}},
	})

	red, _ := canvas.ParseHexColor("#e43b44")
	if ed.Document().Layer(0, 0).Pixel(5, 5) != red {
		t.Fatal("single-point trace should stamp one pixel")
	}
}

func TestApplyTraceRestoresLocalSettings(t *testing.T) {
	ed := canvas.NewBasicEditor(8, 8)
	ed.SetBrushSize(3)
	ed.SetColor("#193c3e")
	s := NewSynchronizer(ed, nil)

	s.ApplyTrace(proto.Trace{
		Tool:      "pencil",
		BrushSize: 1,
		Color:     "#0095e9",
		Points:    []proto.Point{{X: 1, Y: 1}},
	})

	if ed.BrushSize() != 3 || ed.Color() != "#193c3e" {
		t.Fatalf("local brush settings not restored: size=%d color=%s", ed.BrushSize(), ed.Color())
	}
	if ed.Document().CurrentFrame != 0 || ed.Document().CurrentLayer != 0 {
		t.Fatal("selection not restored")
	}
}

func TestApplyTraceDropsInvalid(t *testing.T) {
	ed := canvas.NewBasicEditor(8, 8)
	s := NewSynchronizer(ed, nil)
	before := s.GetFullState()

	// Empty gesture.
	s.ApplyTrace(proto.Trace{Tool: "pencil", Color: "#e43b44"})
	// Frame that does not exist.
	s.ApplyTrace(proto.Trace{
		Tool: "pencil", Color: "#e43b44", FrameIndex: 5,
		Points: []proto.Point{{X: 1, Y: 1}},
	})
	// Layer that does not exist.
	s.ApplyTrace(proto.Trace{
		Tool: "pencil", Color: "#e43b44", LayerIndex: 5,
		Points: []proto.Point{{X: 1, Y: 1}},
	})
	// Tool this client does not have.
	s.ApplyTrace(proto.Trace{
		Tool: "sparkle", Color: "#e43b44",
		Points: []proto.Point{{X: 1, Y: 1}},
	})

	after := s.GetFullState()
	if string(after.Frames[0].Layers[0].RawPixels) != string(before.Frames[0].Layers[0].RawPixels) {
		t.Fatal("invalid traces must not modify the document")
	}
}

func TestApplyTraceTargetsAddressedLayer(t *testing.T) {
	ed := canvas.NewBasicEditor(8, 8)
	ed.Mutator().AddLayer()
	ed.Document().CurrentLayer = 0
	s := NewSynchronizer(ed, nil)

	s.ApplyTrace(proto.Trace{
		Tool: "pencil", BrushSize: 1, Color: "#e43b44", LayerIndex: 1,
		Points: []proto.Point{{X: 2, Y: 2}},
	})

	red, _ := canvas.ParseHexColor("#e43b44")
	if ed.Document().Layer(0, 1).Pixel(2, 2) != red {
		t.Fatal("trace should land on its addressed layer")
	}
	if ed.Document().Layer(0, 0).Pixel(2, 2) == red {
		t.Fatal("trace must not touch the locally selected layer")
	}
	if ed.Document().CurrentLayer != 0 {
		t.Fatal("local layer selection should be restored")
	}
}
