package sketchboard

import (
	"math"

	"github.com/hajimehoshi/ebiten/v2/vector"
)

// kappa is the cubic control distance that approximates a quarter ellipse.
const kappa = 0.5522847498

// outlineBuilder appends the closed outline of a kind to p, given the node
// box r in screen space. Returning false means the kind has no filled body.
type outlineBuilder func(p *vector.Path, r Rect) bool

// decorator appends extra stroked detail (dividers, bars, folds) for a node
// whose box in screen space is r. s is the current zoom scale.
type decorator func(p *vector.Path, n *Node, r Rect, s float64)

var outlineBuilders = [shapeKindCount]outlineBuilder{
	ShapeText:         func(*vector.Path, Rect) bool { return false },
	ShapeTerminator:   func(p *vector.Path, r Rect) bool { roundRectPath(p, r, r.Height/2); return true },
	ShapeProcess:      rectOutline,
	ShapeDecision:     diamondOutline,
	ShapeDataIO:       parallelogramOutline,
	ShapeSubprocess:   rectOutline,
	ShapeDocument:     documentOutline,
	ShapeManualInput:  manualInputOutline,
	ShapeDisplay:      displayOutline,
	ShapeOffPage:      offPageOutline,
	ShapeDelay:        delayOutline,
	ShapeTable:        rectOutline,
	ShapeKeyTable:     rectOutline,
	ShapeClass:        rectOutline,
	ShapeEntity:       rectOutline,
	ShapeRelationship: diamondOutline,
	ShapeAttribute:    ellipseOutline,
	ShapeInheritance:  triangleDownOutline,
	ShapeActor:        func(*vector.Path, Rect) bool { return false },
	ShapeNote:         noteOutline,
}

var decorators = [shapeKindCount]decorator{
	ShapeSubprocess:   subprocessBars,
	ShapeTable:        tableDividers,
	ShapeKeyTable:     tableDividers,
	ShapeClass:        tableDividers,
	ShapeEntity:       doubleBorder,
	ShapeRelationship: doubleBorder,
	ShapeAttribute:    doubleBorder,
	ShapeActor:        actorFigure,
	ShapeNote:         noteFold,
}

// nodeOutline appends n's outline in screen space and reports whether the
// body is fillable.
func nodeOutline(p *vector.Path, n *Node, r Rect) bool {
	k := n.Kind
	if k >= shapeKindCount {
		k = ShapeProcess
	}
	return outlineBuilders[k](p, r)
}

// nodeDecoration appends n's interior detail strokes, if its kind has any.
func nodeDecoration(p *vector.Path, n *Node, r Rect, s float64) bool {
	k := n.Kind
	if k >= shapeKindCount || decorators[k] == nil {
		return false
	}
	decorators[k](p, n, r, s)
	return true
}

// --- Primitive builders ---

func rectPath(p *vector.Path, r Rect) {
	p.MoveTo(float32(r.X), float32(r.Y))
	p.LineTo(float32(r.X+r.Width), float32(r.Y))
	p.LineTo(float32(r.X+r.Width), float32(r.Y+r.Height))
	p.LineTo(float32(r.X), float32(r.Y+r.Height))
	p.Close()
}

func polygonPath(p *vector.Path, pts ...Vec2) {
	if len(pts) == 0 {
		return
	}
	p.MoveTo(float32(pts[0].X), float32(pts[0].Y))
	for _, q := range pts[1:] {
		p.LineTo(float32(q.X), float32(q.Y))
	}
	p.Close()
}

func ellipsePath(p *vector.Path, cx, cy, rx, ry float64) {
	ox, oy := rx*kappa, ry*kappa
	p.MoveTo(float32(cx+rx), float32(cy))
	p.CubicTo(float32(cx+rx), float32(cy+oy), float32(cx+ox), float32(cy+ry), float32(cx), float32(cy+ry))
	p.CubicTo(float32(cx-ox), float32(cy+ry), float32(cx-rx), float32(cy+oy), float32(cx-rx), float32(cy))
	p.CubicTo(float32(cx-rx), float32(cy-oy), float32(cx-ox), float32(cy-ry), float32(cx), float32(cy-ry))
	p.CubicTo(float32(cx+ox), float32(cy-ry), float32(cx+rx), float32(cy-oy), float32(cx+rx), float32(cy))
	p.Close()
}

// roundRectPath traces a rectangle with corner radius rad, clamped to half
// the shorter side.
func roundRectPath(p *vector.Path, r Rect, rad float64) {
	rad = math.Min(rad, math.Min(r.Width, r.Height)/2)
	if rad <= 0 {
		rectPath(p, r)
		return
	}
	x0, y0 := r.X, r.Y
	x1, y1 := r.X+r.Width, r.Y+r.Height
	k := rad * (1 - kappa)
	p.MoveTo(float32(x0+rad), float32(y0))
	p.LineTo(float32(x1-rad), float32(y0))
	p.CubicTo(float32(x1-k), float32(y0), float32(x1), float32(y0+k), float32(x1), float32(y0+rad))
	p.LineTo(float32(x1), float32(y1-rad))
	p.CubicTo(float32(x1), float32(y1-k), float32(x1-k), float32(y1), float32(x1-rad), float32(y1))
	p.LineTo(float32(x0+rad), float32(y1))
	p.CubicTo(float32(x0+k), float32(y1), float32(x0), float32(y1-k), float32(x0), float32(y1-rad))
	p.LineTo(float32(x0), float32(y0+rad))
	p.CubicTo(float32(x0), float32(y0+k), float32(x0+k), float32(y0), float32(x0+rad), float32(y0))
	p.Close()
}

func linePath(p *vector.Path, a, b Vec2) {
	p.MoveTo(float32(a.X), float32(a.Y))
	p.LineTo(float32(b.X), float32(b.Y))
}

// --- Node outlines ---

func rectOutline(p *vector.Path, r Rect) bool {
	rectPath(p, r)
	return true
}

func ellipseOutline(p *vector.Path, r Rect) bool {
	c := r.Center()
	ellipsePath(p, c.X, c.Y, r.Width/2, r.Height/2)
	return true
}

func diamondOutline(p *vector.Path, r Rect) bool {
	c := r.Center()
	polygonPath(p,
		Vec2{c.X, r.Y},
		Vec2{r.X + r.Width, c.Y},
		Vec2{c.X, r.Y + r.Height},
		Vec2{r.X, c.Y},
	)
	return true
}

func parallelogramOutline(p *vector.Path, r Rect) bool {
	skew := r.Width * 0.15
	polygonPath(p,
		Vec2{r.X + skew, r.Y},
		Vec2{r.X + r.Width, r.Y},
		Vec2{r.X + r.Width - skew, r.Y + r.Height},
		Vec2{r.X, r.Y + r.Height},
	)
	return true
}

func documentOutline(p *vector.Path, r Rect) bool {
	wave := r.Height * 0.12
	x0, y0 := r.X, r.Y
	x1, y1 := r.X+r.Width, r.Y+r.Height-wave
	p.MoveTo(float32(x0), float32(y0))
	p.LineTo(float32(x1), float32(y0))
	p.LineTo(float32(x1), float32(y1))
	p.CubicTo(
		float32(x1-r.Width*0.25), float32(y1-2*wave),
		float32(x0+r.Width*0.25), float32(y1+2*wave),
		float32(x0), float32(y1),
	)
	p.Close()
	return true
}

func manualInputOutline(p *vector.Path, r Rect) bool {
	polygonPath(p,
		Vec2{r.X, r.Y + r.Height*0.3},
		Vec2{r.X + r.Width, r.Y},
		Vec2{r.X + r.Width, r.Y + r.Height},
		Vec2{r.X, r.Y + r.Height},
	)
	return true
}

func displayOutline(p *vector.Path, r Rect) bool {
	tip := r.Width * 0.15
	bulge := r.Width * 0.12
	x0, x1 := r.X, r.X+r.Width
	y0, y1 := r.Y, r.Y+r.Height
	cy := r.Center().Y
	p.MoveTo(float32(x0), float32(cy))
	p.LineTo(float32(x0+tip), float32(y0))
	p.LineTo(float32(x1-bulge), float32(y0))
	p.CubicTo(float32(x1), float32(y0), float32(x1), float32(y1), float32(x1-bulge), float32(y1))
	p.LineTo(float32(x0+tip), float32(y1))
	p.Close()
	return true
}

func offPageOutline(p *vector.Path, r Rect) bool {
	polygonPath(p,
		Vec2{r.X, r.Y},
		Vec2{r.X + r.Width, r.Y},
		Vec2{r.X + r.Width, r.Y + r.Height*0.65},
		Vec2{r.X + r.Width/2, r.Y + r.Height},
		Vec2{r.X, r.Y + r.Height*0.65},
	)
	return true
}

func delayOutline(p *vector.Path, r Rect) bool {
	rad := math.Min(r.Height/2, r.Width/2)
	x0, y0 := r.X, r.Y
	x1, y1 := r.X+r.Width, r.Y+r.Height
	k := rad * kappa
	cy := r.Center().Y
	p.MoveTo(float32(x0), float32(y0))
	p.LineTo(float32(x1-rad), float32(y0))
	p.CubicTo(float32(x1-rad+k), float32(y0), float32(x1), float32(cy-k), float32(x1), float32(cy))
	p.CubicTo(float32(x1), float32(cy+k), float32(x1-rad+k), float32(y1), float32(x1-rad), float32(y1))
	p.LineTo(float32(x0), float32(y1))
	p.Close()
	return true
}

func triangleDownOutline(p *vector.Path, r Rect) bool {
	polygonPath(p,
		Vec2{r.X, r.Y},
		Vec2{r.X + r.Width, r.Y},
		Vec2{r.X + r.Width/2, r.Y + r.Height},
	)
	return true
}

// noteFoldSize returns the side of the folded corner for a note box.
func noteFoldSize(r Rect) float64 {
	return math.Min(18*r.Width/160, math.Min(r.Width, r.Height)/3)
}

func noteOutline(p *vector.Path, r Rect) bool {
	f := noteFoldSize(r)
	polygonPath(p,
		Vec2{r.X, r.Y},
		Vec2{r.X + r.Width - f, r.Y},
		Vec2{r.X + r.Width, r.Y + f},
		Vec2{r.X + r.Width, r.Y + r.Height},
		Vec2{r.X, r.Y + r.Height},
	)
	return true
}

// --- Decorations ---

func subprocessBars(p *vector.Path, _ *Node, r Rect, _ float64) {
	inset := r.Width * 0.1
	linePath(p, Vec2{r.X + inset, r.Y}, Vec2{r.X + inset, r.Y + r.Height})
	linePath(p, Vec2{r.X + r.Width - inset, r.Y}, Vec2{r.X + r.Width - inset, r.Y + r.Height})
}

// tableDividers draws the line under the title and, for classes, the line
// between the field and method compartments.
func tableDividers(p *vector.Path, n *Node, r Rect, s float64) {
	fs := n.FontSize
	if fs <= 0 {
		fs = DefaultFontSize
	}
	hy := r.Y + tableHeaderHeight(fs)*s
	linePath(p, Vec2{r.X, hy}, Vec2{r.X + r.Width, hy})
	if strategyFor(n.Kind).methods {
		my := hy + float64(len(n.Fields))*tableRowHeight(fs)*s + tablePadding*s/2
		linePath(p, Vec2{r.X, my}, Vec2{r.X + r.Width, my})
	}
}

// doubleBorder traces a second outline inset from the first when the node
// asks for it (weak entity, identifying relationship, multivalued
// attribute).
func doubleBorder(p *vector.Path, n *Node, r Rect, s float64) {
	if !n.DoubleBorder {
		return
	}
	inner := r.Inset(4 * s)
	if inner.Width <= 0 || inner.Height <= 0 {
		return
	}
	nodeOutline(p, n, inner)
}

// actorFigure draws a stick figure in the top part of the box; the label
// sits underneath.
func actorFigure(p *vector.Path, _ *Node, r Rect, _ float64) {
	fig := r.Height * 0.72
	cx := r.X + r.Width/2
	head := math.Min(r.Width*0.2, fig*0.15)
	neck := r.Y + 2*head
	hip := r.Y + fig*0.62
	ellipsePath(p, cx, r.Y+head, head, head)
	linePath(p, Vec2{cx, neck}, Vec2{cx, hip})
	arm := r.Y + fig*0.35
	linePath(p, Vec2{r.X + r.Width*0.15, arm}, Vec2{r.X + r.Width*0.85, arm})
	linePath(p, Vec2{cx, hip}, Vec2{r.X + r.Width*0.2, r.Y + fig})
	linePath(p, Vec2{cx, hip}, Vec2{r.X + r.Width*0.8, r.Y + fig})
}

func noteFold(p *vector.Path, _ *Node, r Rect, _ float64) {
	f := noteFoldSize(r)
	p.MoveTo(float32(r.X+r.Width-f), float32(r.Y))
	p.LineTo(float32(r.X+r.Width-f), float32(r.Y+f))
	p.LineTo(float32(r.X+r.Width), float32(r.Y+f))
}

// --- Paint primitives ---

// primitivePath appends the outline of a primitive paint shape spanning the
// screen rectangle r.
func primitivePath(p *vector.Path, t PaintTool, r Rect) {
	c := r.Center()
	switch t {
	case PaintEllipse:
		ellipsePath(p, c.X, c.Y, r.Width/2, r.Height/2)
	case PaintTriangle:
		polygonPath(p,
			Vec2{c.X, r.Y},
			Vec2{r.X + r.Width, r.Y + r.Height},
			Vec2{r.X, r.Y + r.Height},
		)
	case PaintStar:
		polygonPath(p, starPoints(c, r.Width/2, r.Height/2)...)
	case PaintHexagon:
		polygonPath(p, regularPoints(c, r.Width/2, r.Height/2, 6, 0)...)
	case PaintCloud:
		cloudPath(p, c, r.Width/2, r.Height/2)
	default:
		rectPath(p, r)
	}
}

// regularPoints returns n points on the ellipse (rx, ry) around c, starting
// at angle start (radians, 0 = right).
func regularPoints(c Vec2, rx, ry float64, n int, start float64) []Vec2 {
	pts := make([]Vec2, n)
	for i := range pts {
		a := start + 2*math.Pi*float64(i)/float64(n)
		pts[i] = Vec2{c.X + rx*math.Cos(a), c.Y + ry*math.Sin(a)}
	}
	return pts
}

func starPoints(c Vec2, rx, ry float64) []Vec2 {
	pts := make([]Vec2, 10)
	for i := range pts {
		a := -math.Pi/2 + math.Pi*float64(i)/5
		f := 1.0
		if i%2 == 1 {
			f = 0.4
		}
		pts[i] = Vec2{c.X + rx*f*math.Cos(a), c.Y + ry*f*math.Sin(a)}
	}
	return pts
}

// cloudPath traces scalloped bumps around an ellipse.
func cloudPath(p *vector.Path, c Vec2, rx, ry float64) {
	const bumps = 8
	pts := regularPoints(c, rx*0.8, ry*0.8, bumps, 0)
	p.MoveTo(float32(pts[0].X), float32(pts[0].Y))
	for i := range pts {
		a, b := pts[i], pts[(i+1)%bumps]
		mid := a.add(b).scale(0.5)
		out := mid.sub(c).scale(0.45)
		c1 := a.add(out)
		c2 := b.add(out)
		p.CubicTo(float32(c1.X), float32(c1.Y), float32(c2.X), float32(c2.Y), float32(b.X), float32(b.Y))
	}
	p.Close()
}

// polylinePath appends an open polyline.
func polylinePath(p *vector.Path, pts []Vec2) {
	if len(pts) == 0 {
		return
	}
	p.MoveTo(float32(pts[0].X), float32(pts[0].Y))
	for _, q := range pts[1:] {
		p.LineTo(float32(q.X), float32(q.Y))
	}
}

// --- Connection markers ---

// markerPath appends the marker at tip, where dir is the unit direction the
// line travels into the tip. size is in screen pixels. Returns whether the
// marker body should be filled with the line color (true) or with the
// background (false), and whether it is a closed shape at all.
func markerPath(p *vector.Path, m MarkerKind, tip, dir Vec2, size float64) (filled, closed bool) {
	back := dir.scale(-1)
	side := dir.perp()
	switch m {
	case MarkerArrow:
		polygonPath(p,
			tip,
			tip.add(back.scale(size)).add(side.scale(size*0.5)),
			tip.add(back.scale(size)).add(side.scale(-size*0.5)),
		)
		return true, true
	case MarkerTriangle:
		polygonPath(p,
			tip,
			tip.add(back.scale(size*1.2)).add(side.scale(size*0.6)),
			tip.add(back.scale(size*1.2)).add(side.scale(-size*0.6)),
		)
		return false, true
	case MarkerFilledDiamond, MarkerHollowDiamond:
		mid := tip.add(back.scale(size * 0.8))
		polygonPath(p,
			tip,
			mid.add(side.scale(size*0.45)),
			tip.add(back.scale(size*1.6)),
			mid.add(side.scale(-size*0.45)),
		)
		return m == MarkerFilledDiamond, true
	case MarkerOne:
		bar := tip.add(back.scale(size * 0.8))
		linePath(p, bar.add(side.scale(size*0.5)), bar.add(side.scale(-size*0.5)))
		return false, false
	case MarkerMany:
		root := tip.add(back.scale(size))
		linePath(p, root, tip.add(side.scale(size*0.6)))
		linePath(p, root, tip)
		linePath(p, root, tip.add(side.scale(-size*0.6)))
		bar := tip.add(back.scale(size * 1.3))
		linePath(p, bar.add(side.scale(size*0.5)), bar.add(side.scale(-size*0.5)))
		return false, false
	}
	return false, false
}
