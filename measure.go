package sketchboard

import (
	"bytes"
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/hajimehoshi/ebiten/v2/text/v2"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
)

// Measurer reports the rendered extent of a label at a font size.
type Measurer interface {
	MeasureString(s string, size float64, bold bool) (width, height float64)
}

// --- TTFMeasurer ---

type faceKey struct {
	size float64
	bold bool
}

// TTFMeasurer measures and draws text with Ebitengine's text/v2 using a
// regular and a bold TrueType source. Faces are cached per size.
type TTFMeasurer struct {
	regular *text.GoTextFaceSource
	bold    *text.GoTextFaceSource
	faces   map[faceKey]*text.GoTextFace
}

// NewTTFMeasurer loads the bundled Go fonts.
func NewTTFMeasurer() (*TTFMeasurer, error) {
	return LoadTTFMeasurer(goregular.TTF, gobold.TTF)
}

// LoadTTFMeasurer builds a measurer from raw TTF/OTF data. boldData may be
// nil, in which case bold text uses the regular face.
func LoadTTFMeasurer(regularData, boldData []byte) (*TTFMeasurer, error) {
	regular, err := text.NewGoTextFaceSource(bytes.NewReader(regularData))
	if err != nil {
		return nil, fmt.Errorf("sketchboard: failed to parse TTF data: %w", err)
	}
	bold := regular
	if boldData != nil {
		bold, err = text.NewGoTextFaceSource(bytes.NewReader(boldData))
		if err != nil {
			return nil, fmt.Errorf("sketchboard: failed to parse bold TTF data: %w", err)
		}
	}
	return &TTFMeasurer{
		regular: regular,
		bold:    bold,
		faces:   make(map[faceKey]*text.GoTextFace),
	}, nil
}

// Face returns the cached face for a size and weight.
func (m *TTFMeasurer) Face(size float64, bold bool) *text.GoTextFace {
	key := faceKey{size: math.Round(size*4) / 4, bold: bold}
	if f, ok := m.faces[key]; ok {
		return f
	}
	src := m.regular
	if bold {
		src = m.bold
	}
	f := &text.GoTextFace{Source: src, Size: key.size}
	m.faces[key] = f
	return f
}

// LineHeight returns the vertical distance between baselines at size.
func (m *TTFMeasurer) LineHeight(size float64, bold bool) float64 {
	metrics := m.Face(size, bold).Metrics()
	return metrics.HAscent + metrics.HDescent + metrics.HLineGap
}

// MeasureString returns the width and height of the rendered text.
func (m *TTFMeasurer) MeasureString(s string, size float64, bold bool) (width, height float64) {
	if s == "" {
		return 0, 0
	}
	return text.Measure(s, m.Face(size, bold), m.LineHeight(size, bold))
}

// --- EstimateMeasurer ---

// EstimateMeasurer approximates text extent from rune counts. It needs no
// font data, which makes layout deterministic in headless use and tests.
type EstimateMeasurer struct {
	// Advance is the glyph width as a fraction of the font size (default 0.6).
	Advance float64
	// Leading is the line height as a fraction of the font size (default 1.2).
	Leading float64
}

// MeasureString implements Measurer.
func (m EstimateMeasurer) MeasureString(s string, size float64, bold bool) (width, height float64) {
	if s == "" {
		return 0, 0
	}
	adv, lead := m.Advance, m.Leading
	if adv <= 0 {
		adv = 0.6
	}
	if lead <= 0 {
		lead = 1.2
	}
	if bold {
		adv *= 1.1
	}
	lines := strings.Split(s, "\n")
	for _, l := range lines {
		width = math.Max(width, float64(utf8.RuneCountInString(l))*adv*size)
	}
	return width, float64(len(lines)) * lead * size
}

// --- Auto-dimensioning ---

// Table compartment metrics. Header and row heights grow linearly with the
// font size: header = size + tableHeaderExtra, row = size + tableRowExtra.
const (
	tableHeaderExtra = 16.0
	tableRowExtra    = 10.0
	tablePadding     = 10.0
)

// tableHeaderHeight returns the title compartment height.
func tableHeaderHeight(fontSize float64) float64 { return fontSize + tableHeaderExtra }

// tableRowHeight returns the height of one field or method row.
func tableRowHeight(fontSize float64) float64 { return fontSize + tableRowExtra }

// FieldText formats a field row as displayed inside a table or class.
func FieldText(f Field) string {
	var b strings.Builder
	if f.Visibility != VisibilityNone {
		b.WriteString(f.Visibility.Symbol())
		b.WriteByte(' ')
	}
	if badge := f.Key.Badge(); badge != "" {
		b.WriteString(badge)
		b.WriteByte(' ')
	}
	b.WriteString(f.Name)
	if f.Type != "" {
		b.WriteString(" : ")
		b.WriteString(f.Type)
	}
	return b.String()
}

// MethodText formats a method row.
func MethodText(m Method) string {
	var b strings.Builder
	if m.Visibility != VisibilityNone {
		b.WriteString(m.Visibility.Symbol())
		b.WriteByte(' ')
	}
	b.WriteString(m.Name)
	if !strings.HasSuffix(m.Name, ")") {
		b.WriteString("()")
	}
	if m.Returns != "" {
		b.WriteString(" : ")
		b.WriteString(m.Returns)
	}
	return b.String()
}

// displayLabel applies label decorations that change the measured text.
func displayLabel(n *Node) string {
	if n.Parenthesized {
		return "(" + n.Label + ")"
	}
	return n.Label
}

// AutoDimension computes the minimum size of a node from its kind, label,
// rows and font size. It has no side effects.
func AutoDimension(m Measurer, n *Node) (w, h float64) {
	st := strategyFor(n.Kind)
	fs := n.FontSize
	if fs <= 0 {
		fs = DefaultFontSize
	}

	if st.table {
		tw, _ := m.MeasureString(displayLabel(n), fs, true)
		w = tw + 2*st.padX
		rows := len(n.Fields)
		for _, f := range n.Fields {
			rw, _ := m.MeasureString(FieldText(f), fs, false)
			w = math.Max(w, rw+2*st.padX)
		}
		if st.methods {
			rows += len(n.Methods)
			for _, mt := range n.Methods {
				rw, _ := m.MeasureString(MethodText(mt), fs, false)
				w = math.Max(w, rw+2*st.padX)
			}
		}
		w = math.Max(w, st.minW)
		h = tableHeaderHeight(fs) + float64(rows)*tableRowHeight(fs) + tablePadding
		return w, h
	}

	tw, th := m.MeasureString(displayLabel(n), fs, n.Bold)
	w = tw*st.growW + 2*st.padX
	h = th*st.growH + 2*st.padY
	if n.Kind == ShapeActor {
		// Label sits below the figure, which needs its own height.
		h += st.minH
	}
	return math.Max(w, st.minW), math.Max(h, st.minH)
}

// FitNodeSize grows n to at least its computed minimum. Table-like kinds
// take the computed height exactly since it is fully determined by rows.
func FitNodeSize(m Measurer, n *Node) {
	mw, mh := AutoDimension(m, n)
	n.W = math.Max(n.W, mw)
	if n.Kind.IsTable() {
		n.H = mh
	} else {
		n.H = math.Max(n.H, mh)
	}
}

// FitFontSize returns the font size at which the node's label fits inside
// the kind's usable interior. The result never exceeds the stored size and
// never drops below floor. The node is not modified.
func FitFontSize(m Measurer, n *Node, floor float64) float64 {
	fs := n.FontSize
	if fs <= 0 {
		fs = DefaultFontSize
	}
	label := displayLabel(n)
	if label == "" {
		return fs
	}
	st := strategyFor(n.Kind)
	bold := n.Bold || st.table

	tw, th := m.MeasureString(label, fs, bold)
	availW := n.W * st.usableW
	availH := n.H * st.usableH
	if st.table {
		availH = tableHeaderHeight(fs)
	}
	ratio := 1.0
	if tw > 0 && availW > 0 {
		ratio = math.Min(ratio, availW/tw)
	}
	if th > 0 && availH > 0 {
		ratio = math.Min(ratio, availH/th)
	}
	return math.Max(fs*ratio, math.Min(floor, fs))
}
