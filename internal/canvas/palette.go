package canvas

// PaletteColor is one entry of the fixed member palette.
type PaletteColor struct {
	Name string
	Hex  string
}

// Palette is the fixed set of display colors a member may pick from.
var Palette = []PaletteColor{
	{Name: "red", Hex: "#e74c3c"},
	{Name: "orange", Hex: "#e67e22"},
	{Name: "yellow", Hex: "#f1c40f"},
	{Name: "green", Hex: "#2ecc71"},
	{Name: "teal", Hex: "#1abc9c"},
	{Name: "cyan", Hex: "#00bcd4"},
	{Name: "blue", Hex: "#3498db"},
	{Name: "indigo", Hex: "#5c6bc0"},
	{Name: "purple", Hex: "#9b59b6"},
	{Name: "pink", Hex: "#e91e63"},
	{Name: "brown", Hex: "#8d6e63"},
	{Name: "slate", Hex: "#34495e"},
}

// IsPaletteColor reports whether hex is one of the fixed palette values.
func IsPaletteColor(hex string) bool {
	for _, c := range Palette {
		if c.Hex == hex {
			return true
		}
	}
	return false
}

// PaletteColorAt returns a palette entry by index, wrapping around, so
// callers can hand out distinct colors in join order.
func PaletteColorAt(i int) PaletteColor {
	if i < 0 {
		i = -i
	}
	return Palette[i%len(Palette)]
}
