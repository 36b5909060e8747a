package sketchboard

import (
	"math"

	"github.com/hajimehoshi/ebiten/v2/vector"
)

// CommandType identifies the kind of render command.
type CommandType uint8

const (
	CommandPath      CommandType = iota // vector.FillPath, non-zero rule
	CommandText                         // text/v2 draw
	CommandImage                        // decoded node image
	CommandComposite                    // draw one offscreen target onto another
	CommandClear                        // clear a target
)

// RenderLayer is the compositing stage a command belongs to. Commands are
// emitted in non-decreasing layer order.
type RenderLayer uint8

const (
	LayerGrid RenderLayer = iota
	LayerDiagram
	LayerPaint
	LayerOverlay
)

// TargetID selects the image a command draws into.
type TargetID uint8

const (
	TargetScreen  TargetID = iota
	TargetPaint            // offscreen paint buffer
	TargetScratch          // per-stroke buffer for translucent marker strokes
)

// TextAlign is the horizontal anchoring of a text command.
type TextAlign uint8

const (
	AlignCenter TextAlign = iota
	AlignStart
)

var (
	colorGrid      = Color{0.88, 0.89, 0.92, 1}
	colorSelectBox = ColorSelection.WithAlpha(0.12)
	colorEraserBox = Color{0.45, 0.45, 0.5, 1}
)

// RenderCommand is a single draw instruction. Geometry is already in screen
// space, so a command list can be inspected without a GPU.
type RenderCommand struct {
	Type      CommandType
	Layer     RenderLayer
	Target    TargetID
	BlendMode BlendMode
	Color     Color
	// Ref is the id of the entity the command draws, if any.
	Ref string

	// Path holds fill geometry. Strokes are expanded with Path.AddStroke
	// at emit time and record their screen width.
	path   *vector.Path
	stroke float64

	// Text
	Text  string
	Pos   Vec2
	Size  float64
	Bold  bool
	Align TextAlign

	// Image
	Image string
	Dst   Rect

	// Composite
	Src   TargetID
	Alpha float64
}

// Commands builds and returns the display list for the current state. The
// returned slice is reused by the next call.
func (e *Engine) Commands() []RenderCommand {
	e.buildCommands()
	return e.commands
}

// buildCommands rebuilds the display list from the document, viewport and
// controller. It reads state only.
func (e *Engine) buildCommands() {
	e.commands = e.commands[:0]
	e.pathUsed = 0
	s := e.Sheet()
	m := e.view.matrix()

	e.emitGrid()
	e.emitConnections(s, m)
	e.emitNodes(s, m)
	e.emitPaint(s, m)
	e.emitOverlays(s, m)
}

// --- Emit helpers ---

// nextPath hands out a cleared path from the per-frame pool. Paths are held
// by pointer so commands stay valid while the pool grows.
func (e *Engine) nextPath() *vector.Path {
	if e.pathUsed == len(e.paths) {
		e.paths = append(e.paths, &vector.Path{})
	}
	p := e.paths[e.pathUsed]
	e.pathUsed++
	p.Reset()
	return p
}

// finishPath appends a path command for p unless it is empty.
func (e *Engine) finishPath(p *vector.Path, cmd RenderCommand) {
	if p.Bounds().Empty() {
		return
	}
	cmd.Type = CommandPath
	cmd.path = p
	e.commands = append(e.commands, cmd)
}

// fillPath emits the interior of p.
func (e *Engine) fillPath(p *vector.Path, cmd RenderCommand) {
	dst := e.nextPath()
	dst.AddPath(p, nil)
	e.finishPath(dst, cmd)
}

// strokePath emits the outline of p at the given screen width.
func (e *Engine) strokePath(p *vector.Path, width float64, cmd RenderCommand) {
	dst := e.nextPath()
	op := &vector.AddStrokeOptions{}
	op.Width = float32(width)
	op.LineJoin = vector.LineJoinRound
	op.LineCap = vector.LineCapRound
	dst.AddStroke(p, op)
	cmd.stroke = width
	e.finishPath(dst, cmd)
}

// rectPathXYWH adds an axis-aligned rectangle to p as a closed sub-path.
func rectPathXYWH(p *vector.Path, x, y, w, h float64) {
	x0, y0, x1, y1 := float32(x), float32(y), float32(x+w), float32(y+h)
	p.MoveTo(x0, y0)
	p.LineTo(x1, y0)
	p.LineTo(x1, y1)
	p.LineTo(x0, y1)
	p.Close()
}

func (e *Engine) emitText(layer RenderLayer, ref, s string, pos Vec2, size float64, bold bool, align TextAlign, col Color) {
	if s == "" || size < 1 {
		return
	}
	e.commands = append(e.commands, RenderCommand{
		Type:  CommandText,
		Layer: layer,
		Color: col,
		Ref:   ref,
		Text:  s,
		Pos:   pos,
		Size:  size,
		Bold:  bold,
		Align: align,
	})
}

// strokeWidthPx converts a document stroke width to screen pixels, never
// thinner than one pixel.
func strokeWidthPx(w, scale float64) float64 {
	return math.Max(1, w*scale)
}

// --- Grid ---

// emitGrid draws the background grid, skipped once lines would be closer
// than MinGridSpacingPx on screen.
func (e *Engine) emitGrid() {
	spacing := e.cfg.GridPitch * e.view.Scale
	if e.cfg.GridPitch <= 0 || spacing < e.cfg.MinGridSpacingPx {
		return
	}
	p := e.nextPath()
	x := math.Mod(e.view.PanX, spacing)
	if x < 0 {
		x += spacing
	}
	for ; x <= e.width; x += spacing {
		rectPathXYWH(p, math.Floor(x), 0, 1, e.height)
	}
	y := math.Mod(e.view.PanY, spacing)
	if y < 0 {
		y += spacing
	}
	for ; y <= e.height; y += spacing {
		rectPathXYWH(p, 0, math.Floor(y), e.width, 1)
	}
	e.finishPath(p, RenderCommand{Layer: LayerGrid, Color: colorGrid})
}

// --- Diagram ---

func (e *Engine) emitConnections(s *Sheet, m [6]float64) {
	scale := e.view.Scale
	for _, c := range s.Connections {
		b, ok := s.ConnectorPath(c)
		if !ok {
			continue
		}
		bs := b.Transform(m)
		col := ColorInk
		if c.Color != nil {
			col = *c.Color
		}
		if e.isSelected(e.ctl.sel.Connections, c.ID) {
			col = ColorSelection
		}
		w := c.Width
		if w <= 0 {
			w = e.cfg.DefaultStrokeWidth
		}
		width := strokeWidthPx(w, scale)
		cmd := RenderCommand{Layer: LayerDiagram, Color: col, Ref: c.ID}

		var p vector.Path
		if c.Style == LineDashed {
			e.sampleBuf = bs.Sample(e.cfg.CurveSamples*2, e.sampleBuf[:0])
			dashPath(&p, e.sampleBuf, 4*width+4, 3*width+3)
		} else {
			p.MoveTo(float32(bs.P0.X), float32(bs.P0.Y))
			p.CubicTo(float32(bs.C1.X), float32(bs.C1.Y), float32(bs.C2.X), float32(bs.C2.Y), float32(bs.P1.X), float32(bs.P1.Y))
		}
		e.strokePath(&p, width, cmd)

		start, end := c.Markers()
		size := clamp(12*scale, 5, 40)
		e.emitMarker(end, bs.P1, curveDirection(bs, 1), size, width, cmd)
		e.emitMarker(start, bs.P0, curveDirection(bs, 0).scale(-1), size, width, cmd)

		if c.Label != "" {
			mid := bs.Point(0.5)
			e.emitText(LayerDiagram, c.ID, c.Label, Vec2{mid.X, mid.Y - 10*scale}, 12*scale, false, AlignCenter, col)
		}
	}
}

// curveDirection returns the unit direction of travel along b at t,
// falling back to the chord for degenerate curves.
func curveDirection(b Bezier, t float64) Vec2 {
	d := b.Tangent(t).normalized()
	if d == (Vec2{}) {
		d = b.P1.sub(b.P0).normalized()
	}
	if d == (Vec2{}) {
		d = Vec2{1, 0}
	}
	return d
}

func (e *Engine) emitMarker(kind MarkerKind, tip, dir Vec2, size, width float64, cmd RenderCommand) {
	if kind == MarkerNone {
		return
	}
	var p vector.Path
	filled, closed := markerPath(&p, kind, tip, dir, size)
	if closed {
		fill := cmd
		if !filled {
			fill.Color = ColorWhite
		}
		e.fillPath(&p, fill)
		if filled {
			return
		}
	}
	e.strokePath(&p, width, cmd)
}

// dashPath appends dash segments of length dash separated by gap along the
// polyline pts.
func dashPath(p *vector.Path, pts []Vec2, dash, gap float64) {
	on := true
	left := dash
	for i := 1; i < len(pts); i++ {
		a, b := pts[i-1], pts[i]
		seg := a.dist(b)
		dir := b.sub(a).normalized()
		pos := 0.0
		for pos < seg {
			step := math.Min(left, seg-pos)
			if on {
				q0 := a.add(dir.scale(pos))
				q1 := a.add(dir.scale(pos + step))
				linePath(p, q0, q1)
			}
			pos += step
			left -= step
			if left <= 1e-9 {
				on = !on
				if on {
					left = dash
				} else {
					left = gap
				}
			}
		}
	}
}

func (e *Engine) isSelected(list []string, id string) bool {
	for _, s := range list {
		if s == id {
			return true
		}
	}
	return false
}

// emitNodes draws unselected nodes in document order, then selected ones
// so their highlight is on top.
func (e *Engine) emitNodes(s *Sheet, m [6]float64) {
	for _, n := range s.Nodes {
		if !e.ctl.sel.hasNode(n.ID) {
			e.emitNode(n, m, false)
		}
	}
	for _, n := range s.Nodes {
		if e.ctl.sel.hasNode(n.ID) {
			e.emitNode(n, m, true)
		}
	}
}

func (e *Engine) emitNode(n *Node, m [6]float64, selected bool) {
	scale := e.view.Scale
	r := transformRect(m, n.Bounds())
	fill := ColorWhite
	if n.Accent != nil {
		fill = *n.Accent
	}
	ink := ColorInk
	width := strokeWidthPx(1.5, scale)
	cmd := RenderCommand{Layer: LayerDiagram, Ref: n.ID}

	var outline vector.Path
	if nodeOutline(&outline, n, r) {
		cmd.Color = fill
		e.fillPath(&outline, cmd)
		cmd.Color = ink
		e.strokePath(&outline, width, cmd)
	}
	var deco vector.Path
	if nodeDecoration(&deco, n, r, scale) {
		cmd.Color = ink
		e.strokePath(&deco, width, cmd)
	}

	if n.Image != "" {
		e.commands = append(e.commands, RenderCommand{
			Type:  CommandImage,
			Layer: LayerDiagram,
			Ref:   n.ID,
			Image: n.Image,
			Dst:   r.Inset(4 * scale),
			Color: ColorWhite,
		})
	}

	if n.Kind.IsTable() {
		e.emitTableText(n, r, scale)
	} else {
		e.emitLabel(n, r, scale)
	}

	if selected {
		var hl vector.Path
		rectPath(&hl, r.Inset(-4))
		e.strokePath(&hl, 1.5, RenderCommand{Layer: LayerDiagram, Color: ColorSelection, Ref: n.ID})
	}
}

// emitLabel draws the fitted label of a simple shape. Actors place the
// label below the figure.
func (e *Engine) emitLabel(n *Node, r Rect, scale float64) {
	label := displayLabel(n)
	if label == "" {
		return
	}
	fs := FitFontSize(e.measurer, n, e.cfg.TextFitFloor)
	center := r.Center()
	if n.Kind == ShapeActor {
		center.Y = r.Y + r.Height*0.86
	}
	size := fs * scale
	e.emitText(LayerDiagram, n.ID, label, center, size, n.Bold, AlignCenter, ColorBlack)
	if n.Underline {
		tw, th := e.measurer.MeasureString(label, fs, n.Bold)
		tw, th = tw*scale, th*scale
		p := e.nextPath()
		rectPathXYWH(p, center.X-tw/2, center.Y+th/2-1, tw, math.Max(1, scale))
		e.finishPath(p, RenderCommand{Layer: LayerDiagram, Color: ColorBlack, Ref: n.ID})
	}
}

// emitTableText draws the title centered in the header band and one line
// per field and method row.
func (e *Engine) emitTableText(n *Node, r Rect, scale float64) {
	fs := n.FontSize
	if fs <= 0 {
		fs = e.cfg.DefaultFontSize
	}
	st := strategyFor(n.Kind)
	header := tableHeaderHeight(fs) * scale
	row := tableRowHeight(fs) * scale
	title := FitFontSize(e.measurer, n, e.cfg.TextFitFloor)
	e.emitText(LayerDiagram, n.ID, displayLabel(n), Vec2{r.X + r.Width/2, r.Y + header/2}, title*scale, true, AlignCenter, ColorBlack)

	x := r.X + st.padX*scale
	y := r.Y + header + row/2
	for _, f := range n.Fields {
		e.emitText(LayerDiagram, n.ID, FieldText(f), Vec2{x, y}, fs*scale, f.Key == KeyPrimary || f.Key == KeyPrimaryForeign, AlignStart, ColorBlack)
		y += row
	}
	if st.methods {
		y += tablePadding * scale / 2
		for _, mt := range n.Methods {
			e.emitText(LayerDiagram, n.ID, MethodText(mt), Vec2{x, y}, fs*scale, false, AlignStart, ColorBlack)
			y += row
		}
	}
}

// --- Paint ---

// emitPaint draws committed paint actions and the stroke in progress into
// the paint buffer, then composites the buffer over the diagram.
func (e *Engine) emitPaint(s *Sheet, m [6]float64) {
	e.commands = append(e.commands, RenderCommand{Type: CommandClear, Layer: LayerPaint, Target: TargetPaint})
	for _, a := range s.PaintActions {
		e.emitPaintAction(a, m)
	}
	switch e.ctl.state {
	case StateDrawingFreehand:
		if e.ctl.stroke != nil {
			e.emitPaintAction(e.ctl.stroke, m)
		}
	case StateDrawingPrimitiveShape:
		if pt, ok := e.ctl.tool.paintTool(); ok {
			e.emitPaintAction(&PaintAction{
				Tool:  pt,
				Start: e.ctl.pressDoc,
				End:   e.ctl.curDoc,
				Color: e.ctl.strokeColor,
				Width: e.ctl.strokeWidth,
			}, m)
		}
	}
	e.commands = append(e.commands, RenderCommand{
		Type:   CommandComposite,
		Layer:  LayerPaint,
		Target: TargetScreen,
		Src:    TargetPaint,
		Alpha:  1,
	})
}

// emitPaintAction draws one action. Eraser strokes cut the paint buffer;
// marker strokes are drawn opaque into the scratch buffer and composited at
// MarkerAlpha so overlapping segments do not darken.
func (e *Engine) emitPaintAction(a *PaintAction, m [6]float64) {
	cmd := RenderCommand{Layer: LayerPaint, Target: TargetPaint, Color: a.Color, Ref: a.ID}
	switch a.Tool {
	case PaintEraser:
		cmd.BlendMode = BlendErase
		cmd.Color = ColorBlack
	case PaintMarker:
		e.commands = append(e.commands, RenderCommand{Type: CommandClear, Layer: LayerPaint, Target: TargetScratch})
		cmd.Target = TargetScratch
		cmd.Color.A = 1
	}
	width := strokeWidthPx(a.Width, e.view.Scale)

	var p vector.Path
	if a.Tool.Freehand() {
		pts := make([]Vec2, len(a.Points))
		for i, q := range a.Points {
			pts[i] = transformVec(m, q)
		}
		if b := boundsOfPoints(pts); len(pts) > 0 && b.Width == 0 && b.Height == 0 {
			ellipsePath(&p, pts[0].X, pts[0].Y, width/2, width/2)
			e.fillPath(&p, cmd)
		} else {
			polylinePath(&p, pts)
			e.strokePath(&p, width, cmd)
		}
	} else {
		r := rectFromPoints(transformVec(m, a.Start), transformVec(m, a.End))
		primitivePath(&p, a.Tool, r)
		e.strokePath(&p, width, cmd)
	}

	if a.Tool == PaintMarker {
		e.commands = append(e.commands, RenderCommand{
			Type:   CommandComposite,
			Layer:  LayerPaint,
			Target: TargetPaint,
			Src:    TargetScratch,
			Alpha:  e.cfg.MarkerAlpha * a.Color.A,
			Ref:    a.ID,
		})
	}
}

// --- Overlays ---

// emitOverlays draws screen-space affordances: paint-action selection
// boxes, the connection preview, the eraser extent and the selection box.
func (e *Engine) emitOverlays(s *Sheet, m [6]float64) {
	c := &e.ctl
	for _, id := range c.sel.PaintActions {
		a := s.PaintAction(id)
		if a == nil {
			continue
		}
		var p vector.Path
		rectPath(&p, transformRect(m, a.Bounds()).Inset(-4))
		e.strokePath(&p, 1, RenderCommand{Layer: LayerOverlay, Color: ColorSelection, Ref: id})
	}

	switch c.state {
	case StateDrawingConnection:
		if src := s.Node(c.source); src != nil {
			from := transformVec(m, BoundaryPoint(src, c.curDoc))
			var p vector.Path
			linePath(&p, from, transformVec(m, c.curDoc))
			e.strokePath(&p, 2, RenderCommand{Layer: LayerOverlay, Color: ColorSelection, Ref: src.ID})
		}
	case StateBoxSelecting:
		if c.moved {
			r := rectFromPoints(transformVec(m, c.pressDoc), transformVec(m, c.curDoc))
			var p vector.Path
			rectPath(&p, r)
			e.fillPath(&p, RenderCommand{Layer: LayerOverlay, Color: colorSelectBox})
			e.strokePath(&p, 1, RenderCommand{Layer: LayerOverlay, Color: ColorSelection})
		}
	}

	if c.tool == ToolEraser && c.hovering {
		side := strokeWidthPx(c.strokeWidth, e.view.Scale)
		var p vector.Path
		rectPath(&p, Rect{X: c.hover.X - side/2, Y: c.hover.Y - side/2, Width: side, Height: side})
		e.strokePath(&p, 1, RenderCommand{Layer: LayerOverlay, Color: colorEraserBox})
	}
}
