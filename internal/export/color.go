package export

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

// Paint is a parsed CSS color.
type Paint struct {
	colorful.Color
	Alpha float64
}

var namedColors = map[string]string{
	"black":  "#000000",
	"white":  "#ffffff",
	"red":    "#ff0000",
	"green":  "#008000",
	"blue":   "#0000ff",
	"gray":   "#808080",
	"grey":   "#808080",
	"orange": "#ffa500",
	"yellow": "#ffff00",
	"purple": "#800080",
}

// ParseColor reads the color notations the editor produces: #rgb, #rrggbb,
// #rrggbbaa, rgb(), rgba() and a few names. ok is false for "transparent",
// "none", the empty string and anything unparseable, which all mean "do not
// paint".
func ParseColor(s string) (p Paint, ok bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if hex, named := namedColors[s]; named {
		s = hex
	}
	switch {
	case s == "" || s == "transparent" || s == "none":
		return Paint{}, false
	case strings.HasPrefix(s, "#"):
		return parseHex(s)
	case strings.HasPrefix(s, "rgb"):
		return parseRGB(s)
	}
	return Paint{}, false
}

func parseHex(s string) (Paint, bool) {
	alpha := 1.0
	switch len(s) {
	case 4:
		s = "#" + strings.Repeat(s[1:2], 2) + strings.Repeat(s[2:3], 2) + strings.Repeat(s[3:4], 2)
	case 9:
		a, err := strconv.ParseUint(s[7:], 16, 8)
		if err != nil {
			return Paint{}, false
		}
		alpha = float64(a) / 255
		s = s[:7]
	}
	c, err := colorful.Hex(s)
	if err != nil {
		return Paint{}, false
	}
	return Paint{Color: c, Alpha: alpha}, true
}

func parseRGB(s string) (Paint, bool) {
	open, end := strings.IndexByte(s, '('), strings.LastIndexByte(s, ')')
	if open < 0 || end < open {
		return Paint{}, false
	}
	parts := strings.Split(s[open+1:end], ",")
	if len(parts) != 3 && len(parts) != 4 {
		return Paint{}, false
	}
	var v [4]float64
	v[3] = 1
	for i, part := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return Paint{}, false
		}
		v[i] = f
	}
	c := colorful.Color{R: clamp01(v[0] / 255), G: clamp01(v[1] / 255), B: clamp01(v[2] / 255)}
	return Paint{Color: c, Alpha: clamp01(v[3])}, true
}

func clamp01(f float64) float64 { return min(1, max(0, f)) }

// RGBA255 is the paint as 8-bit channels.
func (p Paint) RGBA255() (r, g, b, a uint8) {
	r, g, b = p.RGB255()
	return r, g, b, uint8(p.Alpha*255 + 0.5)
}

// CSS renders the paint for an SVG style attribute.
func (p Paint) CSS() string {
	if p.Alpha >= 1 {
		return p.Hex()
	}
	r, g, b := p.RGB255()
	return fmt.Sprintf("rgba(%d,%d,%d,%.3g)", r, g, b, p.Alpha)
}
