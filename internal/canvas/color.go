package canvas

import (
	"fmt"
	"math/rand"
	"strconv"
	"strings"
)

// RandomColorHex returns a #rrggbb color with each component kept away
// from the extremes so strokes stay visible on white and black canvases.
func RandomColorHex() string {
	r := rand.Intn(248) + 4
	g := rand.Intn(248) + 4
	b := rand.Intn(248) + 4
	return fmt.Sprintf("#%02x%02x%02x", r, g, b)
}

// ParseHexColor reads #rgb or #rrggbb. Anything else reports ok=false;
// colors are otherwise treated as opaque strings and never validated.
func ParseHexColor(color string) (r, g, b int, ok bool) {
	s := strings.TrimPrefix(strings.TrimSpace(color), "#")
	switch len(s) {
	case 3:
		s = string([]byte{s[0], s[0], s[1], s[1], s[2], s[2]})
	case 6:
	default:
		return 0, 0, 0, false
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return 0, 0, 0, false
	}
	return int(v >> 16 & 0xff), int(v >> 8 & 0xff), int(v & 0xff), true
}

// Luminance is the perceptual brightness of a hex color. Unparseable
// colors read as 0 (dark).
func Luminance(color string) float64 {
	r, g, b, ok := ParseHexColor(color)
	if !ok {
		return 0
	}
	return 0.299*float64(r) + 0.587*float64(g) + 0.114*float64(b)
}

// IsLight reports whether a color needs a dark overlay to stay readable.
func IsLight(color string) bool {
	return Luminance(color) > 128
}
