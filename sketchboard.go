package sketchboard

import (
	"fmt"
	"image/color"
	"math"
	"strconv"
	"strings"

	"github.com/hajimehoshi/ebiten/v2"
)

// Color is a straight-alpha RGBA color with components in [0, 1]. It is
// stored in documents as hex text and premultiplied only when submitted.
type Color struct {
	R, G, B, A float64
}

var (
	// ColorWhite is the default node fill.
	ColorWhite = Color{1, 1, 1, 1}
	// ColorBlack is the default stroke and text color.
	ColorBlack = Color{0, 0, 0, 1}
	// ColorInk is the default outline color for diagram shapes.
	ColorInk = Color{0.16, 0.18, 0.22, 1}
	// ColorSelection highlights selected entities.
	ColorSelection = Color{0.15, 0.45, 0.95, 1}
)

func (c Color) toRGBA() color.RGBA {
	return color.RGBA{
		R: uint8(clamp01(c.R*c.A) * 255),
		G: uint8(clamp01(c.G*c.A) * 255),
		B: uint8(clamp01(c.B*c.A) * 255),
		A: uint8(clamp01(c.A) * 255),
	}
}

// WithAlpha returns c with its alpha multiplied by a.
func (c Color) WithAlpha(a float64) Color {
	c.A *= a
	return c
}

// Hex formats the color as #rrggbb, or #rrggbbaa when not fully opaque.
func (c Color) Hex() string {
	r := uint8(math.Round(clamp01(c.R) * 255))
	g := uint8(math.Round(clamp01(c.G) * 255))
	b := uint8(math.Round(clamp01(c.B) * 255))
	a := uint8(math.Round(clamp01(c.A) * 255))
	if a == 255 {
		return fmt.Sprintf("#%02x%02x%02x", r, g, b)
	}
	return fmt.Sprintf("#%02x%02x%02x%02x", r, g, b, a)
}

// ParseColor parses #rgb, #rrggbb or #rrggbbaa.
func ParseColor(s string) (Color, error) {
	h := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(h) == 3 {
		h = string([]byte{h[0], h[0], h[1], h[1], h[2], h[2]})
	}
	if len(h) == 6 {
		h += "ff"
	}
	if len(h) != 8 {
		return Color{}, fmt.Errorf("parse color %q: want #rrggbb or #rrggbbaa", s)
	}
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return Color{}, fmt.Errorf("parse color %q: %w", s, err)
	}
	return Color{
		R: float64(v>>24&0xff) / 255,
		G: float64(v>>16&0xff) / 255,
		B: float64(v>>8&0xff) / 255,
		A: float64(v&0xff) / 255,
	}, nil
}

// MarshalText encodes the color as a hex string.
func (c Color) MarshalText() ([]byte, error) {
	return []byte(c.Hex()), nil
}

// UnmarshalText decodes a hex string.
func (c *Color) UnmarshalText(b []byte) error {
	v, err := ParseColor(string(b))
	if err != nil {
		return err
	}
	*c = v
	return nil
}

// Vec2 is a 2D vector used for positions, offsets and directions.
type Vec2 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (v Vec2) add(o Vec2) Vec2 { return Vec2{v.X + o.X, v.Y + o.Y} }
func (v Vec2) sub(o Vec2) Vec2 { return Vec2{v.X - o.X, v.Y - o.Y} }
func (v Vec2) scale(s float64) Vec2 { return Vec2{v.X * s, v.Y * s} }
func (v Vec2) length() float64 { return math.Hypot(v.X, v.Y) }
func (v Vec2) dist(o Vec2) float64 { return math.Hypot(v.X-o.X, v.Y-o.Y) }
func (v Vec2) perp() Vec2 { return Vec2{-v.Y, v.X} }
func (v Vec2) normalized() Vec2 {
	l := v.length()
	if l < 1e-12 {
		return Vec2{}
	}
	return Vec2{v.X / l, v.Y / l}
}

// Rect is an axis-aligned box in document or screen units, Y down.
type Rect struct {
	X, Y, Width, Height float64
}

// Contains reports whether (x, y) is inside r, edges included.
func (r Rect) Contains(x, y float64) bool {
	return x >= r.X && y >= r.Y && x <= r.Right() && y <= r.Bottom()
}

// Intersects reports whether r and o overlap. Touching edges count, so a
// zero-area selection box on an edge still selects.
func (r Rect) Intersects(o Rect) bool {
	return r.X <= o.Right() && o.X <= r.Right() && r.Y <= o.Bottom() && o.Y <= r.Bottom()
}

func (r Rect) Right() float64  { return r.X + r.Width }
func (r Rect) Bottom() float64 { return r.Y + r.Height }

// Center returns the midpoint of r.
func (r Rect) Center() Vec2 {
	return Vec2{r.X + r.Width/2, r.Y + r.Height/2}
}

// Inset shrinks r by d on every side. Negative d grows it.
func (r Rect) Inset(d float64) Rect {
	return Rect{X: r.X + d, Y: r.Y + d, Width: r.Width - 2*d, Height: r.Height - 2*d}
}

// rectFromPoints returns the normalized rectangle spanned by two corners.
func rectFromPoints(a, b Vec2) Rect {
	x0, x1 := math.Min(a.X, b.X), math.Max(a.X, b.X)
	y0, y1 := math.Min(a.Y, b.Y), math.Max(a.Y, b.Y)
	return Rect{X: x0, Y: y0, Width: x1 - x0, Height: y1 - y0}
}

// rectUnion returns the bounding box of a and b.
func rectUnion(a, b Rect) Rect {
	return rectFromPoints(
		Vec2{math.Min(a.X, b.X), math.Min(a.Y, b.Y)},
		Vec2{math.Max(a.Right(), b.Right()), math.Max(a.Bottom(), b.Bottom())},
	)
}

// BlendMode is how a render command combines with its target.
type BlendMode uint8

const (
	// BlendNormal is source-over.
	BlendNormal BlendMode = iota
	// BlendErase is destination-out: it clears paint where the eraser runs.
	BlendErase
)

// EbitenBlend maps b onto ebiten's blend presets.
func (b BlendMode) EbitenBlend() ebiten.Blend {
	if b == BlendErase {
		return ebiten.BlendDestinationOut
	}
	return ebiten.BlendSourceOver
}

// MouseButton is a pointer button as reported by the host.
type MouseButton uint8

const (
	MouseButtonLeft MouseButton = iota
	MouseButtonRight
	MouseButtonMiddle
)

// KeyModifiers is the set of modifier keys held during a press.
type KeyModifiers uint8

const (
	ModShift KeyModifiers = 1 << iota
	ModCtrl
	ModAlt
	ModMeta
)

// extendsSelection reports whether the modifier set toggles selection
// membership instead of replacing it.
func (m KeyModifiers) extendsSelection() bool {
	return m&(ModShift|ModCtrl|ModMeta) != 0
}

func clamp01(v float64) float64 {
	return clamp(v, 0, 1)
}

// finite returns v, or fallback when v is NaN or infinite.
func finite(v, fallback float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fallback
	}
	return v
}

// positive returns v when it is finite and above zero, else fallback.
func positive(v, fallback float64) float64 {
	if !(v > 0) || math.IsInf(v, 0) {
		return fallback
	}
	return v
}

func finiteVec(v, fallback Vec2) Vec2 {
	return Vec2{finite(v.X, fallback.X), finite(v.Y, fallback.Y)}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
