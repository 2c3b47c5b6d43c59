package canvas

import "testing"

func TestPencilDrawsLine(t *testing.T) {
	e := NewBasicEditor(8, 8)
	e.SetColor("#e74c3c")

	pencil := e.Tool("pencil")
	pencil.Down(0, 0)
	pencil.Move(7, 7)
	pencil.Up(7, 7)

	red, _ := ParseHexColor("#e74c3c")
	layer := e.Document().Layer(0, 0)
	for i := 0; i < 8; i++ {
		if layer.Pixel(i, i) != red {
			t.Fatalf("diagonal pixel (%d,%d) not drawn", i, i)
		}
	}
}

func TestEraserClearsPixels(t *testing.T) {
	e := NewBasicEditor(8, 8)
	e.SetColor("#e74c3c")
	e.Tool("pencil").Down(3, 3)
	e.Tool("pencil").Up(3, 3)

	e.Tool("eraser").Down(3, 3)
	e.Tool("eraser").Up(3, 3)

	if e.Document().Layer(0, 0).Pixel(3, 3) != Transparent {
		t.Fatal("eraser should clear the pixel")
	}
}

func TestBrushSizeStampsSquare(t *testing.T) {
	e := NewBasicEditor(8, 8)
	e.SetColor("#e74c3c")
	e.SetBrushSize(3)

	e.Tool("pencil").Down(4, 4)
	e.Tool("pencil").Up(4, 4)

	red, _ := ParseHexColor("#e74c3c")
	layer := e.Document().Layer(0, 0)
	if layer.Pixel(3, 3) != red || layer.Pixel(5, 5) != red {
		t.Fatal("size-3 brush should cover neighbors")
	}
	if layer.Pixel(6, 4) == red {
		t.Fatal("brush overreached")
	}
}

func TestUndoRedoStructural(t *testing.T) {
	e := NewBasicEditor(4, 4)

	e.Mutator().AddFrame()
	if len(e.Document().Frames) != 2 {
		t.Fatal("add frame failed")
	}

	e.Mutator().Undo()
	if len(e.Document().Frames) != 1 {
		t.Fatal("undo should remove the frame")
	}

	e.Mutator().Redo()
	if len(e.Document().Frames) != 2 {
		t.Fatal("redo should restore the frame")
	}

	// A no-op on empty history.
	e.Mutator().Redo()
	e.Mutator().Undo()
	e.Mutator().Undo()
	if len(e.Document().Frames) != 1 {
		t.Fatalf("history walked wrong: %d frames", len(e.Document().Frames))
	}
}

func TestUndoRestoresPixels(t *testing.T) {
	e := NewBasicEditor(4, 4)
	e.SetColor("#e74c3c")
	e.Tool("pencil").Down(1, 1)
	e.Tool("pencil").Up(1, 1)

	e.Mutator().Undo()
	if e.Document().Layer(0, 0).Pixel(1, 1) != Transparent {
		t.Fatal("undo should erase the stroke")
	}
}

func TestParseHexColor(t *testing.T) {
	c, err := ParseHexColor("#e74c3c")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if c != (RGBA{0xe7, 0x4c, 0x3c, 0xff}) {
		t.Fatalf("wrong pixel: %v", c)
	}
	if c.HexString() != "#e74c3c" {
		t.Fatalf("round trip: %s", c.HexString())
	}

	for _, bad := range []string{"", "e74c3c", "#fff", "#zzzzzz"} {
		if _, err := ParseHexColor(bad); err == nil {
			t.Fatalf("%q should not parse", bad)
		}
	}
}

func TestPaletteLookup(t *testing.T) {
	if !IsPaletteColor("#e74c3c") || IsPaletteColor("#123456") {
		t.Fatal("palette membership wrong")
	}
	if PaletteColorAt(0) != PaletteColorAt(len(Palette)) {
		t.Fatal("index should wrap")
	}
}
