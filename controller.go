package sketchboard

import (
	"math"
	"slices"

	"go.uber.org/zap"
)

// Tool is the active editing tool.
type Tool uint8

const (
	ToolSelect Tool = iota
	ToolPan
	ToolConnect
	ToolPencil
	ToolMarker
	ToolEraser
	ToolRect
	ToolEllipse
	ToolTriangle
	ToolStar
	ToolHexagon
	ToolCloud

	// toolShapeBase is the first shape-creation tool. ShapeTool(k) is
	// toolShapeBase + k.
	toolShapeBase
)

var toolNames = [toolShapeBase]string{
	"select", "pan", "connect", "pencil", "marker", "eraser",
	"rect", "ellipse", "triangle", "star", "hexagon", "cloud",
}

// ShapeTool returns the creation tool for a shape kind.
func ShapeTool(k ShapeKind) Tool {
	if k >= shapeKindCount {
		k = ShapeProcess
	}
	return toolShapeBase + Tool(k)
}

// Shape returns the kind created by a shape tool.
func (t Tool) Shape() (ShapeKind, bool) {
	if t < toolShapeBase || t >= toolShapeBase+Tool(shapeKindCount) {
		return 0, false
	}
	return ShapeKind(t - toolShapeBase), true
}

// paintTool maps a paint tool to the PaintTool it records.
func (t Tool) paintTool() (PaintTool, bool) {
	if t < ToolPencil || t > ToolCloud {
		return 0, false
	}
	return PaintTool(t - ToolPencil), true
}

func (t Tool) String() string {
	if t < toolShapeBase {
		return toolNames[t]
	}
	if k, ok := t.Shape(); ok {
		return "shape:" + k.String()
	}
	return "unknown"
}

// ParseTool looks up a tool by name. Shape tools are written "shape:<kind>".
func ParseTool(s string) (Tool, bool) {
	for i, name := range toolNames {
		if name == s {
			return Tool(i), true
		}
	}
	if len(s) > 6 && s[:6] == "shape:" {
		if k, ok := ParseShapeKind(s[6:]); ok {
			return ShapeTool(k), true
		}
	}
	return ToolSelect, false
}

// GestureState is the state of the pointer state machine.
type GestureState uint8

const (
	StateIdle GestureState = iota
	StateDragging
	StateDrawingFreehand
	StateDrawingPrimitiveShape
	StateDrawingConnection
	StateBoxSelecting
	StatePanning
)

var gestureStateNames = [...]string{
	"idle", "dragging", "drawing_freehand", "drawing_primitive_shape",
	"drawing_connection", "box_selecting", "panning",
}

func (s GestureState) String() string {
	if int(s) < len(gestureStateNames) {
		return gestureStateNames[s]
	}
	return "unknown"
}

// Selection lists the selected entity identifiers of the active sheet.
type Selection struct {
	Nodes        []string
	Connections  []string
	PaintActions []string
}

// Empty reports whether nothing is selected.
func (s Selection) Empty() bool {
	return len(s.Nodes) == 0 && len(s.Connections) == 0 && len(s.PaintActions) == 0
}

// Len returns the number of selected entities.
func (s Selection) Len() int {
	return len(s.Nodes) + len(s.Connections) + len(s.PaintActions)
}

func (s Selection) clone() Selection {
	return Selection{
		Nodes:        slices.Clone(s.Nodes),
		Connections:  slices.Clone(s.Connections),
		PaintActions: slices.Clone(s.PaintActions),
	}
}

func (s Selection) hasNode(id string) bool { return slices.Contains(s.Nodes, id) }

// toggle adds id to list, or removes it when already present.
func toggle(list []string, id string) []string {
	if i := slices.Index(list, id); i >= 0 {
		return slices.Delete(list, i, i+1)
	}
	return append(list, id)
}

func addUnique(list []string, id string) []string {
	if slices.Contains(list, id) {
		return list
	}
	return append(list, id)
}

// dragOrigin is a node position captured at the start of a drag.
type dragOrigin struct {
	id   string
	x, y float64
}

// Controller is the interaction context: active tool, selection and the
// transient state of the gesture in progress. It holds no document data.
type Controller struct {
	tool        Tool
	relation    RelationKind
	lineStyle   LineStyle
	strokeColor Color
	strokeWidth float64

	state GestureState
	sel   Selection

	button      MouseButton
	pressScreen Vec2
	lastScreen  Vec2
	pressDoc    Vec2
	curDoc      Vec2
	moved       bool

	origins  []dragOrigin
	stroke   *PaintAction
	source   string
	boxBase  Selection
	prevSel  Selection
	panStart Vec2

	hover    Vec2
	hovering bool
}

func newController(strokeWidth float64) Controller {
	return Controller{
		tool:        ToolSelect,
		relation:    RelationFlow,
		lineStyle:   DefaultLineStyle(RelationFlow),
		strokeColor: ColorBlack,
		strokeWidth: strokeWidth,
	}
}

// resetGesture returns to Idle and drops all transient state.
func (c *Controller) resetGesture() {
	c.state = StateIdle
	c.moved = false
	c.origins = c.origins[:0]
	c.stroke = nil
	c.source = ""
	c.boxBase = Selection{}
	c.prevSel = Selection{}
}

// --- Tool accessors ---

// Tool returns the active tool.
func (e *Engine) Tool() Tool { return e.ctl.tool }

// SetTool changes the active tool. Ignored mid-gesture.
func (e *Engine) SetTool(t Tool) {
	if e.ctl.state != StateIdle {
		return
	}
	if t >= toolShapeBase+Tool(shapeKindCount) {
		t = ToolSelect
	}
	e.ctl.tool = t
}

// Relation returns the relation kind new connections get.
func (e *Engine) Relation() RelationKind { return e.ctl.relation }

// SetRelation sets the relation kind for new connections and resets the
// line style to that kind's default.
func (e *Engine) SetRelation(k RelationKind) {
	if k >= relationKindCount {
		k = RelationFlow
	}
	e.ctl.relation = k
	e.ctl.lineStyle = DefaultLineStyle(k)
}

// SetLineStyle overrides the line style for new connections.
func (e *Engine) SetLineStyle(s LineStyle) { e.ctl.lineStyle = s }

// Stroke returns the color and width new paint actions get.
func (e *Engine) Stroke() (Color, float64) { return e.ctl.strokeColor, e.ctl.strokeWidth }

// SetStroke sets the paint color and width. A non-positive or non-finite
// width is replaced with the configured default.
func (e *Engine) SetStroke(c Color, width float64) {
	e.ctl.strokeColor = c
	e.ctl.strokeWidth = positive(width, e.cfg.DefaultStrokeWidth)
}

// screenPoint replaces a non-finite pointer coordinate with the last known
// pointer position.
func (c *Controller) screenPoint(sx, sy float64) (float64, float64) {
	return finite(sx, c.lastScreen.X), finite(sy, c.lastScreen.Y)
}

// State returns the gesture state.
func (e *Engine) State() GestureState { return e.ctl.state }

// Selection returns a copy of the current selection.
func (e *Engine) Selection() Selection { return e.ctl.sel.clone() }

// Select replaces the selection. Unknown identifiers are dropped.
func (e *Engine) Select(sel Selection) {
	s := e.Sheet()
	var out Selection
	for _, id := range sel.Nodes {
		if s.Node(id) != nil {
			out.Nodes = addUnique(out.Nodes, id)
		}
	}
	for _, id := range sel.Connections {
		if s.Connection(id) != nil {
			out.Connections = addUnique(out.Connections, id)
		}
	}
	for _, id := range sel.PaintActions {
		if s.PaintAction(id) != nil {
			out.PaintActions = addUnique(out.PaintActions, id)
		}
	}
	e.ctl.sel = out
}

// SelectAll selects every node, connection and paint action on the sheet.
func (e *Engine) SelectAll() {
	if e.ctl.state != StateIdle {
		return
	}
	s := e.Sheet()
	var sel Selection
	for _, n := range s.Nodes {
		sel.Nodes = append(sel.Nodes, n.ID)
	}
	for _, c := range s.Connections {
		sel.Connections = append(sel.Connections, c.ID)
	}
	for _, a := range s.PaintActions {
		sel.PaintActions = append(sel.PaintActions, a.ID)
	}
	e.ctl.sel = sel
}

// ClearSelection deselects everything.
func (e *Engine) ClearSelection() { e.ctl.sel = Selection{} }

// pruneSelection drops identifiers that no longer exist on the sheet.
func (e *Engine) pruneSelection() {
	e.Select(e.ctl.sel)
}

// --- Hit testing ---

// hitPaintAction returns the topmost paint action under p.
func (e *Engine) hitPaintAction(p Vec2) *PaintAction {
	s := e.Sheet()
	slop := e.cfg.FreehandHitPx / e.view.Scale
	for i := len(s.PaintActions) - 1; i >= 0; i-- {
		a := s.PaintActions[i]
		if a.Tool.Freehand() {
			if DistanceToPolyline(a.Points, p) <= math.Max(a.Width/2, slop) {
				return a
			}
			continue
		}
		if a.Bounds().Contains(p.X, p.Y) {
			return a
		}
	}
	return nil
}

// hitNode returns the topmost node whose box contains p.
func (e *Engine) hitNode(p Vec2) *Node {
	s := e.Sheet()
	for i := len(s.Nodes) - 1; i >= 0; i-- {
		if n := s.Nodes[i]; n.Bounds().Contains(p.X, p.Y) {
			return n
		}
	}
	return nil
}

// hitConnection returns the topmost connection whose curve passes within
// CurveHitPx screen pixels of p.
func (e *Engine) hitConnection(p Vec2) *Connection {
	s := e.Sheet()
	threshold := e.cfg.CurveHitPx / e.view.Scale
	for i := len(s.Connections) - 1; i >= 0; i-- {
		c := s.Connections[i]
		b, ok := s.ConnectorPath(c)
		if !ok {
			continue
		}
		if HitCurve(b, p, threshold, e.cfg.CurveSamples) {
			return c
		}
	}
	return nil
}

// --- Pointer events ---

// PointerDown handles a press at screen position (sx, sy).
func (e *Engine) PointerDown(sx, sy float64, button MouseButton, mods KeyModifiers) {
	c := &e.ctl
	if c.state != StateIdle {
		// A press without a matching release: close the old gesture first.
		e.PointerUp(c.lastScreen.X, c.lastScreen.Y)
	}
	sx, sy = c.screenPoint(sx, sy)
	dx, dy := e.view.ScreenToDocument(sx, sy)
	p := Vec2{dx, dy}
	c.button = button
	c.pressScreen, c.lastScreen = Vec2{sx, sy}, Vec2{sx, sy}
	c.pressDoc, c.curDoc = p, p
	c.moved = false

	if button == MouseButtonMiddle || (button == MouseButtonLeft && c.tool == ToolPan) {
		e.view.stopAnimation()
		c.panStart = Vec2{e.view.PanX, e.view.PanY}
		c.state = StatePanning
		return
	}
	if button != MouseButtonLeft {
		return
	}

	if kind, ok := c.tool.Shape(); ok {
		e.createShape(kind, p)
		return
	}
	if pt, ok := c.tool.paintTool(); ok {
		if pt.Freehand() {
			e.beginFreehand(pt, p)
		} else {
			c.state = StateDrawingPrimitiveShape
		}
		return
	}
	switch c.tool {
	case ToolSelect:
		e.pressSelect(p, mods)
	case ToolConnect:
		if n := e.hitNode(p); n != nil {
			c.source = n.ID
			c.state = StateDrawingConnection
		}
	}
}

func (e *Engine) pressSelect(p Vec2, mods KeyModifiers) {
	c := &e.ctl
	extend := mods.extendsSelection()

	if a := e.hitPaintAction(p); a != nil {
		if extend {
			c.sel.PaintActions = toggle(c.sel.PaintActions, a.ID)
		} else {
			c.sel = Selection{PaintActions: []string{a.ID}}
		}
		return
	}

	if n := e.hitNode(p); n != nil {
		switch {
		case extend:
			c.sel.Nodes = toggle(c.sel.Nodes, n.ID)
			if !c.sel.hasNode(n.ID) {
				// Deselected; the rest of the selection stays put.
				return
			}
		case !c.sel.hasNode(n.ID):
			c.sel = Selection{Nodes: []string{n.ID}}
		}
		s := e.Sheet()
		c.origins = c.origins[:0]
		for _, id := range c.sel.Nodes {
			if sn := s.Node(id); sn != nil {
				c.origins = append(c.origins, dragOrigin{id: id, x: sn.X, y: sn.Y})
			}
		}
		c.state = StateDragging
		return
	}

	if conn := e.hitConnection(p); conn != nil {
		if extend {
			c.sel.Connections = toggle(c.sel.Connections, conn.ID)
		} else {
			c.sel = Selection{Connections: []string{conn.ID}}
		}
		return
	}

	c.prevSel = c.sel.clone()
	if extend {
		c.boxBase = c.sel.clone()
	} else {
		c.boxBase = Selection{}
		c.sel = Selection{}
	}
	c.state = StateBoxSelecting
}

// createShape places a node of the given kind at the snapped press point
// and returns to the select tool with the new node selected.
func (e *Engine) createShape(kind ShapeKind, p Vec2) {
	x, y := p.X, p.Y
	if e.cfg.SnapToGrid {
		x, y = snap(x, e.cfg.GridPitch), snap(y, e.cfg.GridPitch)
	}
	var created *Node
	e.mutate(ChangeNodeAdd, func(s *Sheet) bool {
		created = s.NewNode(kind, x, y)
		return s.AddNode(created)
	})
	e.ctl.tool = ToolSelect
	e.ctl.state = StateIdle
	if created != nil {
		e.ctl.sel = Selection{Nodes: []string{created.ID}}
		e.log.Debug("node created",
			zap.String("kind", kind.String()),
			zap.String("id", created.ID),
		)
	}
}

func (e *Engine) beginFreehand(pt PaintTool, p Vec2) {
	c := &e.ctl
	e.commit(e.snapshot(e.Sheet()))
	c.stroke = &PaintAction{
		Tool:   pt,
		Points: []Vec2{p},
		Color:  c.strokeColor,
		Width:  c.strokeWidth,
	}
	c.state = StateDrawingFreehand
}

// PointerMove handles pointer motion to screen position (sx, sy).
func (e *Engine) PointerMove(sx, sy float64) {
	c := &e.ctl
	sx, sy = c.screenPoint(sx, sy)
	c.hover, c.hovering = Vec2{sx, sy}, true
	dx, dy := e.view.ScreenToDocument(sx, sy)
	p := Vec2{dx, dy}

	switch c.state {
	case StateIdle:
		return

	case StateDragging:
		delta := p.sub(c.pressDoc)
		s := e.Sheet()
		for _, o := range c.origins {
			n := s.Node(o.id)
			if n == nil {
				continue
			}
			x, y := o.x+delta.X, o.y+delta.Y
			if e.cfg.SnapToGrid {
				x, y = snap(x, e.cfg.GridPitch), snap(y, e.cfg.GridPitch)
			}
			if x != n.X || y != n.Y {
				n.X, n.Y = x, y
				c.moved = true
			}
		}

	case StateDrawingFreehand:
		pts := c.stroke.Points
		if last := pts[len(pts)-1]; last != p {
			c.stroke.Points = append(pts, p)
		}

	case StateBoxSelecting:
		if p == c.pressDoc && !c.moved {
			break
		}
		c.moved = true
		e.updateBoxSelection(rectFromPoints(c.pressDoc, p))

	case StatePanning:
		if d := (Vec2{sx, sy}).sub(c.lastScreen); d != (Vec2{}) {
			e.view.PanBy(d.X, d.Y)
			c.moved = true
		}
		// Pan changes the mapping, so the document point is recomputed.
		dx, dy = e.view.ScreenToDocument(sx, sy)
		p = Vec2{dx, dy}
	}
	c.curDoc = p
	c.lastScreen = Vec2{sx, sy}
}

// updateBoxSelection selects every node and paint action whose AABB
// overlaps box, on top of the selection held when the box started.
func (e *Engine) updateBoxSelection(box Rect) {
	c := &e.ctl
	s := e.Sheet()
	sel := c.boxBase.clone()
	for _, n := range s.Nodes {
		if n.Bounds().Intersects(box) {
			sel.Nodes = addUnique(sel.Nodes, n.ID)
		}
	}
	for _, a := range s.PaintActions {
		if a.Bounds().Intersects(box) {
			sel.PaintActions = addUnique(sel.PaintActions, a.ID)
		}
	}
	c.sel = sel
}

// PointerUp handles a release at screen position (sx, sy). A release
// outside the surface is handled the same way.
func (e *Engine) PointerUp(sx, sy float64) {
	c := &e.ctl
	if c.state == StateIdle {
		return
	}
	sx, sy = c.screenPoint(sx, sy)
	if c.state == StateDrawingFreehand {
		c.lastScreen = Vec2{sx, sy}
	} else {
		e.PointerMove(sx, sy)
	}

	switch c.state {
	case StateDragging:
		if c.moved {
			e.notify(ChangeNodeMove)
		}

	case StateDrawingFreehand:
		stroke := c.stroke
		c.stroke = nil
		e.Sheet().AddPaintAction(stroke)
		e.notify(ChangePaintAdd)

	case StateDrawingPrimitiveShape:
		// A primitive needs extent on both axes; a plain click draws nothing.
		if r := rectFromPoints(c.pressDoc, c.curDoc); !(r.Width > 0 && r.Height > 0) {
			break
		}
		pt, _ := c.tool.paintTool()
		e.mutate(ChangePaintAdd, func(s *Sheet) bool {
			return s.AddPaintAction(&PaintAction{
				Tool:  pt,
				Start: c.pressDoc,
				End:   c.curDoc,
				Color: c.strokeColor,
				Width: c.strokeWidth,
			})
		})

	case StateDrawingConnection:
		e.finishConnection()

	case StatePanning:
		if c.moved {
			e.notify(ChangeViewport)
		}
	}
	c.resetGesture()
}

func (e *Engine) finishConnection() {
	c := &e.ctl
	target := e.hitNode(c.curDoc)
	if target == nil || target.ID == c.source {
		return
	}
	s := e.Sheet()
	if s.ConnectionBetween(c.source, target.ID) != nil {
		e.emitNotice(Notice{
			Kind:    NoticeDuplicateConnection,
			Message: "these shapes are already connected",
		})
		e.log.Debug("connection refused",
			zap.String("from", c.source),
			zap.String("to", target.ID),
			zap.Error(ErrDuplicateConnection),
		)
		return
	}
	e.mutate(ChangeConnectionAdd, func(s *Sheet) bool {
		return s.AddConnection(&Connection{
			From:  c.source,
			To:    target.ID,
			Kind:  c.relation,
			Style: c.lineStyle,
		}) == nil
	})
}

// Cancel aborts the gesture in progress without mutating the document.
// A drag is rolled back to where it started.
func (e *Engine) Cancel() {
	c := &e.ctl
	switch c.state {
	case StateIdle:
		return
	case StateDragging:
		s := e.Sheet()
		for _, o := range c.origins {
			if n := s.Node(o.id); n != nil {
				n.X, n.Y = o.x, o.y
			}
		}
	case StateDrawingFreehand:
		e.Sheet().History.dropLast()
	case StateBoxSelecting:
		c.sel = c.prevSel
	case StatePanning:
		e.view.PanX, e.view.PanY = c.panStart.X, c.panStart.Y
	}
	c.resetGesture()
}

// Hover records the pointer position without a button held.
func (e *Engine) Hover(sx, sy float64) {
	if e.ctl.state != StateIdle {
		e.PointerMove(sx, sy)
		return
	}
	sx, sy = e.ctl.screenPoint(sx, sy)
	e.ctl.hover, e.ctl.hovering = Vec2{sx, sy}, true
}

// PointerLeave hides pointer-following overlays.
func (e *Engine) PointerLeave() { e.ctl.hovering = false }

// Wheel zooms by factor around the screen point (sx, sy).
func (e *Engine) Wheel(sx, sy, factor float64) {
	e.view.stopAnimation()
	if e.view.ZoomAt(sx, sy, factor) {
		e.notify(ChangeViewport)
	}
}
