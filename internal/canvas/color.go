package canvas

import "fmt"

// RGBA is one pixel, four bytes, alpha last.
type RGBA [4]byte

// Transparent is the zero pixel value.
var Transparent = RGBA{}

// ParseHexColor converts "#rrggbb" into an opaque RGBA pixel.
func ParseHexColor(s string) (RGBA, error) {
	if len(s) != 7 || s[0] != '#' {
		return RGBA{}, fmt.Errorf("parse color %q: want #rrggbb", s)
	}
	var r, g, b byte
	if _, err := fmt.Sscanf(s[1:], "%02x%02x%02x", &r, &g, &b); err != nil {
		return RGBA{}, fmt.Errorf("parse color %q: %w", s, err)
	}
	return RGBA{r, g, b, 0xff}, nil
}

// HexString renders the pixel back as "#rrggbb", dropping alpha.
func (c RGBA) HexString() string {
	return fmt.Sprintf("#%02x%02x%02x", c[0], c[1], c[2])
}
