package identity

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
)

// RGB is an opaque colour.
type RGB struct {
	R, G, B uint8
}

// String renders the colour as rgba(r, g, b, 1.0).
func (c RGB) String() string {
	return fmt.Sprintf("rgba(%d, %d, %d, 1.0)", c.R, c.G, c.B)
}

// RGBA returns the colour with full opacity.
func (c RGB) RGBA() RGBA {
	return RGBA{R: c.R, G: c.G, B: c.B, A: 1}
}

// MarshalText writes the rgba() form.
func (c RGB) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText parses rgb() or rgba(); alpha is discarded.
func (c *RGB) UnmarshalText(text []byte) error {
	parsed, err := ParseRGBA(string(text))
	if err != nil {
		return err
	}
	*c = parsed.RGB()
	return nil
}

// RGBA is a colour with a 0-1 alpha.
type RGBA struct {
	R, G, B uint8
	A       float64
}

// RGB drops the alpha.
func (c RGBA) RGB() RGB {
	return RGB{R: c.R, G: c.G, B: c.B}
}

func (c RGBA) String() string {
	return fmt.Sprintf("rgba(%d, %d, %d, %s)", c.R, c.G, c.B, strconv.FormatFloat(c.A, 'f', -1, 64))
}

var rgbaPattern = regexp.MustCompile(`(?i)^\s*rgba?\((\d+),\s*(\d+),\s*(\d+)(?:,\s*([\d.]+))?\)\s*$`)

// ParseRGBA parses "rgb(r, g, b)" or "rgba(r, g, b, a)".
func ParseRGBA(s string) (RGBA, error) {
	m := rgbaPattern.FindStringSubmatch(s)
	if m == nil {
		return RGBA{}, fmt.Errorf("invalid colour %q", s)
	}
	var out RGBA
	for i, dst := range []*uint8{&out.R, &out.G, &out.B} {
		v, err := strconv.Atoi(m[i+1])
		if err != nil || v > 255 {
			return RGBA{}, fmt.Errorf("invalid colour %q: channel %d out of range", s, i)
		}
		*dst = uint8(v)
	}
	out.A = 1
	if m[4] != "" {
		a, err := strconv.ParseFloat(m[4], 64)
		if err != nil {
			return RGBA{}, fmt.Errorf("invalid colour %q: %w", s, err)
		}
		out.A = math.Min(1, math.Max(0, a))
	}
	return out, nil
}

// BlendColors averages colours weighted by alpha; alpha itself is a plain
// mean. An empty or fully transparent list blends to opaque black.
func BlendColors(colors []RGBA) RGBA {
	if len(colors) == 0 {
		return RGBA{A: 1}
	}
	var r, g, b, a, weight float64
	for _, c := range colors {
		r += float64(c.R) * c.A
		g += float64(c.G) * c.A
		b += float64(c.B) * c.A
		a += c.A
		weight += c.A
	}
	if weight == 0 {
		return RGBA{A: 1}
	}
	channel := func(v float64) uint8 {
		return uint8(math.Max(0, math.Min(255, math.Round(v/weight))))
	}
	return RGBA{
		R: channel(r),
		G: channel(g),
		B: channel(b),
		A: math.Max(0, math.Min(1, a/float64(len(colors)))),
	}
}
