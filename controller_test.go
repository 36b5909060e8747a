package sketchboard

import (
	"math"
	"slices"
	"testing"
)

// twoNodes returns an engine with two process nodes side by side at
// (0,0) and (300,0), each 140x60.
func twoNodes(t *testing.T) (e *Engine, a, b string) {
	t.Helper()
	e = New(nil)
	a = e.CreateNode(ShapeProcess, 0, 0)
	b = e.CreateNode(ShapeProcess, 300, 0)
	if a == "" || b == "" {
		t.Fatal("CreateNode failed")
	}
	return e, a, b
}

func click(e *Engine, x, y float64, mods KeyModifiers) {
	e.PointerDown(x, y, MouseButtonLeft, mods)
	e.PointerUp(x, y)
}

// --- Tools ---

func TestParseTool(t *testing.T) {
	tests := []struct {
		in   string
		want Tool
		ok   bool
	}{
		{"select", ToolSelect, true},
		{"eraser", ToolEraser, true},
		{"cloud", ToolCloud, true},
		{"shape:table", ShapeTool(ShapeTable), true},
		{"shape:nope", ToolSelect, false},
		{"bogus", ToolSelect, false},
	}
	for _, tt := range tests {
		got, ok := ParseTool(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ParseTool(%q) = %v, %v; want %v, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
	if s := ShapeTool(ShapeDecision).String(); s != "shape:decision" {
		t.Errorf("String = %q", s)
	}
	if k, ok := ShapeTool(ShapeNote).Shape(); !ok || k != ShapeNote {
		t.Errorf("Shape() = %v, %v", k, ok)
	}
	if _, ok := ToolPencil.Shape(); ok {
		t.Error("pencil reported a shape kind")
	}
}

func TestSetToolIgnoredMidGesture(t *testing.T) {
	e := New(nil)
	e.SetTool(ToolPencil)
	e.PointerDown(10, 10, MouseButtonLeft, 0)
	e.SetTool(ToolEraser)
	if e.Tool() != ToolPencil {
		t.Errorf("tool = %v, want pencil", e.Tool())
	}
	e.PointerUp(10, 10)
}

// --- Shape creation ---

func TestCreateShapeSnapsAndSelects(t *testing.T) {
	e := New(nil)
	e.SetTool(ShapeTool(ShapeProcess))
	e.PointerDown(113, 47, MouseButtonLeft, 0)
	e.PointerUp(113, 47)

	s := e.Sheet()
	if len(s.Nodes) != 1 {
		t.Fatalf("nodes = %d, want 1", len(s.Nodes))
	}
	n := s.Nodes[0]
	if n.X != 120 || n.Y != 40 {
		t.Errorf("position = (%v, %v), want snapped (120, 40)", n.X, n.Y)
	}
	if e.Tool() != ToolSelect {
		t.Errorf("tool = %v, want select", e.Tool())
	}
	if sel := e.Selection(); len(sel.Nodes) != 1 || sel.Nodes[0] != n.ID {
		t.Errorf("selection = %+v", sel)
	}
	if s.History.Len() != 1 {
		t.Errorf("history = %d, want 1", s.History.Len())
	}
}

func TestCreateShapeWithoutSnap(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SnapToGrid = false
	e := New(nil, WithConfig(cfg))
	e.SetTool(ShapeTool(ShapeNote))
	e.PointerDown(113, 47, MouseButtonLeft, 0)
	if n := e.Sheet().Nodes[0]; n.X != 113 || n.Y != 47 {
		t.Errorf("position = (%v, %v), want (113, 47)", n.X, n.Y)
	}
}

// --- Freehand and primitives ---

func TestPencilStroke(t *testing.T) {
	e := New(nil)
	e.SetTool(ToolPencil)

	e.PointerDown(10, 10, MouseButtonLeft, 0)
	if e.State() != StateDrawingFreehand {
		t.Fatalf("state = %v, want drawing_freehand", e.State())
	}
	e.PointerMove(20, 10)
	e.PointerMove(20, 10) // duplicate point dropped
	e.PointerMove(30, 10)
	e.PointerUp(30, 10)

	s := e.Sheet()
	if len(s.PaintActions) != 1 {
		t.Fatalf("paint actions = %d, want 1", len(s.PaintActions))
	}
	a := s.PaintActions[0]
	want := []Vec2{{10, 10}, {20, 10}, {30, 10}}
	if !slices.Equal(a.Points, want) {
		t.Errorf("points = %v, want %v", a.Points, want)
	}
	if a.Tool != PaintPencil {
		t.Errorf("tool = %v, want pencil", a.Tool)
	}
	if s.History.Len() != 1 {
		t.Errorf("history = %d, want exactly 1", s.History.Len())
	}
	if e.State() != StateIdle {
		t.Errorf("state = %v, want idle", e.State())
	}

	if !e.Undo() || len(e.Sheet().PaintActions) != 0 {
		t.Error("undo did not remove the stroke")
	}
}

func TestFreehandUsesStroke(t *testing.T) {
	e := New(nil)
	e.SetStroke(ColorSelection, 6)
	e.SetTool(ToolMarker)
	e.PointerDown(0, 0, MouseButtonLeft, 0)
	e.PointerUp(0, 0)
	a := e.Sheet().PaintActions[0]
	if a.Tool != PaintMarker || a.Width != 6 || a.Color != ColorSelection {
		t.Errorf("action = %+v", a)
	}
	if len(a.Points) != 1 {
		t.Errorf("single press points = %d, want 1", len(a.Points))
	}
}

func TestCancelFreehandLeavesNoTrace(t *testing.T) {
	e := New(nil)
	e.SetTool(ToolPencil)
	e.PointerDown(10, 10, MouseButtonLeft, 0)
	e.PointerMove(40, 40)
	e.Cancel()

	s := e.Sheet()
	if len(s.PaintActions) != 0 || s.History.Len() != 0 {
		t.Errorf("paint = %d, history = %d; want 0, 0", len(s.PaintActions), s.History.Len())
	}
	if e.State() != StateIdle {
		t.Errorf("state = %v", e.State())
	}
}

func TestPrimitiveShape(t *testing.T) {
	e := New(nil)
	e.SetTool(ToolRect)
	e.PointerDown(10, 10, MouseButtonLeft, 0)
	if e.State() != StateDrawingPrimitiveShape {
		t.Fatalf("state = %v", e.State())
	}
	e.PointerMove(40, 30)
	e.PointerUp(60, 40)

	s := e.Sheet()
	if len(s.PaintActions) != 1 {
		t.Fatalf("paint actions = %d", len(s.PaintActions))
	}
	a := s.PaintActions[0]
	if a.Tool != PaintRect || a.Start != (Vec2{10, 10}) || a.End != (Vec2{60, 40}) {
		t.Errorf("action = %+v", a)
	}
	if len(a.Points) != 0 {
		t.Error("primitive carries points")
	}
	if s.History.Len() != 1 {
		t.Errorf("history = %d, want 1", s.History.Len())
	}
}

func TestPrimitiveClickWithoutDragIsRefused(t *testing.T) {
	e := New(nil)
	var reasons []ChangeReason
	e.OnChange(func(c Change) { reasons = append(reasons, c.Reason) })
	e.SetTool(ToolRect)

	click(e, 40, 40, 0)
	// A drag along one axis only has no area either.
	e.PointerDown(40, 40, MouseButtonLeft, 0)
	e.PointerUp(120, 40)

	s := e.Sheet()
	if len(s.PaintActions) != 0 {
		t.Errorf("paint actions = %d, want 0", len(s.PaintActions))
	}
	if s.History.Len() != 0 {
		t.Errorf("history = %d, want 0", s.History.Len())
	}
	if len(reasons) != 0 || e.State() != StateIdle {
		t.Errorf("reasons = %v, state = %v", reasons, e.State())
	}
}

// --- Selection and drag ---

func TestClickSelectAndToggle(t *testing.T) {
	e, a, b := twoNodes(t)
	click(e, 50, 30, 0)
	if sel := e.Selection(); !slices.Equal(sel.Nodes, []string{a}) {
		t.Errorf("selection = %v, want [a]", sel.Nodes)
	}
	click(e, 350, 30, ModShift)
	if sel := e.Selection(); !slices.Equal(sel.Nodes, []string{a, b}) {
		t.Errorf("selection = %v, want [a b]", sel.Nodes)
	}
	click(e, 50, 30, ModCtrl)
	if sel := e.Selection(); !slices.Equal(sel.Nodes, []string{b}) {
		t.Errorf("selection = %v, want [b]", sel.Nodes)
	}
}

func TestShiftClickDeselectDoesNotDrag(t *testing.T) {
	e, a, b := twoNodes(t)
	e.Select(Selection{Nodes: []string{a, b}})
	e.PointerDown(50, 30, MouseButtonLeft, ModShift)
	if e.State() != StateIdle {
		t.Fatalf("state = %v, want idle", e.State())
	}
	e.PointerMove(90, 70)
	e.PointerUp(90, 70)

	if sel := e.Selection(); !slices.Equal(sel.Nodes, []string{b}) {
		t.Errorf("selection = %v, want [b]", sel.Nodes)
	}
	s := e.Sheet()
	if n := s.Node(a); n.X != 0 || n.Y != 0 {
		t.Errorf("a moved to (%v, %v)", n.X, n.Y)
	}
	if n := s.Node(b); n.X != 300 || n.Y != 0 {
		t.Errorf("b moved to (%v, %v)", n.X, n.Y)
	}
}

func TestPointerIgnoresNonFiniteCoordinates(t *testing.T) {
	e, a, _ := twoNodes(t)
	nan, inf := math.NaN(), math.Inf(1)
	e.PointerDown(50, 30, MouseButtonLeft, 0)
	e.PointerMove(nan, inf)
	e.PointerMove(90, 30)
	e.PointerUp(nan, nan)

	if n := e.Sheet().Node(a); n.X != 40 || n.Y != 0 {
		t.Errorf("a = (%v, %v), want (40, 0)", n.X, n.Y)
	}
	e.Hover(inf, -inf)
	if _, err := e.Sheet().Snapshot(); err != nil {
		t.Errorf("Snapshot after non-finite input: %v", err)
	}
}

func TestDragSnapsAndSkipsHistory(t *testing.T) {
	e, a, _ := twoNodes(t)
	var reasons []ChangeReason
	e.OnChange(func(c Change) { reasons = append(reasons, c.Reason) })
	before := e.Sheet().History.Len()

	e.PointerDown(50, 30, MouseButtonLeft, 0)
	if e.State() != StateDragging {
		t.Fatalf("state = %v, want dragging", e.State())
	}
	e.PointerMove(63, 38)
	e.PointerUp(63, 38)

	n := e.Sheet().Node(a)
	if n.X != 20 || n.Y != 0 {
		t.Errorf("position = (%v, %v), want (20, 0)", n.X, n.Y)
	}
	if got := e.Sheet().History.Len(); got != before {
		t.Errorf("history grew from %d to %d", before, got)
	}
	if len(reasons) != 1 || reasons[0] != ChangeNodeMove {
		t.Errorf("reasons = %v, want [node_move]", reasons)
	}
}

func TestDragMovesWholeSelection(t *testing.T) {
	e, a, b := twoNodes(t)
	e.Select(Selection{Nodes: []string{a, b}})
	e.PointerDown(350, 30, MouseButtonLeft, 0)
	e.PointerMove(390, 70)
	e.PointerUp(390, 70)

	s := e.Sheet()
	if n := s.Node(a); n.X != 40 || n.Y != 40 {
		t.Errorf("a = (%v, %v), want (40, 40)", n.X, n.Y)
	}
	if n := s.Node(b); n.X != 340 || n.Y != 40 {
		t.Errorf("b = (%v, %v), want (340, 40)", n.X, n.Y)
	}
}

func TestCancelDragRestoresPosition(t *testing.T) {
	e, a, _ := twoNodes(t)
	e.PointerDown(50, 30, MouseButtonLeft, 0)
	e.PointerMove(250, 230)
	e.Cancel()
	if n := e.Sheet().Node(a); n.X != 0 || n.Y != 0 {
		t.Errorf("position = (%v, %v), want (0, 0)", n.X, n.Y)
	}
}

func TestBoxSelect(t *testing.T) {
	e, a, b := twoNodes(t)
	e.PointerDown(-50, -50, MouseButtonLeft, 0)
	if e.State() != StateBoxSelecting {
		t.Fatalf("state = %v, want box_selecting", e.State())
	}
	e.PointerMove(200, 100)
	e.PointerUp(200, 100)
	if sel := e.Selection(); !slices.Equal(sel.Nodes, []string{a}) {
		t.Errorf("selection = %v, want [a]", sel.Nodes)
	}

	// A second box that is cancelled restores the previous selection.
	e.PointerDown(500, 500, MouseButtonLeft, 0)
	e.PointerMove(250, -10)
	if sel := e.Selection(); !slices.Equal(sel.Nodes, []string{b}) {
		t.Errorf("live selection = %v, want [b]", sel.Nodes)
	}
	e.Cancel()
	if sel := e.Selection(); !slices.Equal(sel.Nodes, []string{a}) {
		t.Errorf("after cancel = %v, want [a]", sel.Nodes)
	}
}

func TestBoxSelectPartialOverlap(t *testing.T) {
	e, a, _ := twoNodes(t)
	e.AddPaintAction(&PaintAction{Tool: PaintPencil, Points: []Vec2{{0, 200}, {100, 200}, {100, 260}}, Width: 2})
	stroke := e.Sheet().PaintActions[0].ID

	// The box spans x 50..160 and y 40..220: it clips the lower right corner
	// of a and the top of the stroke without containing either.
	e.PointerDown(160, 220, MouseButtonLeft, 0)
	e.PointerMove(50, 40)
	e.PointerUp(50, 40)

	sel := e.Selection()
	if !slices.Equal(sel.Nodes, []string{a}) {
		t.Errorf("nodes = %v, want [a]", sel.Nodes)
	}
	if !slices.Equal(sel.PaintActions, []string{stroke}) {
		t.Errorf("paint actions = %v, want the stroke", sel.PaintActions)
	}
}

func TestBoxSelectExtends(t *testing.T) {
	e, a, b := twoNodes(t)
	e.Select(Selection{Nodes: []string{a}})
	e.PointerDown(500, 500, MouseButtonLeft, ModShift)
	e.PointerUp(250, -10)
	if sel := e.Selection(); !slices.Equal(sel.Nodes, []string{a, b}) {
		t.Errorf("selection = %v, want [a b]", sel.Nodes)
	}
}

func TestClickEmptyClearsSelection(t *testing.T) {
	e, a, _ := twoNodes(t)
	e.Select(Selection{Nodes: []string{a}})
	click(e, 900, 500, 0)
	if !e.Selection().Empty() {
		t.Errorf("selection = %+v, want empty", e.Selection())
	}
}

func TestPaintHitBeforeNode(t *testing.T) {
	e, _, _ := twoNodes(t)
	e.AddPaintAction(&PaintAction{Tool: PaintPencil, Points: []Vec2{{0, 30}, {140, 30}}, Width: 2})
	id := e.Sheet().PaintActions[0].ID
	click(e, 70, 31, 0)
	sel := e.Selection()
	if !slices.Equal(sel.PaintActions, []string{id}) || len(sel.Nodes) != 0 {
		t.Errorf("selection = %+v, want the stroke", sel)
	}
}

func TestClickSelectsConnection(t *testing.T) {
	e, a, b := twoNodes(t)
	id, err := e.AddConnection(a, b, RelationFlow)
	if err != nil {
		t.Fatal(err)
	}
	click(e, 220, 33, 0)
	if sel := e.Selection(); !slices.Equal(sel.Connections, []string{id}) {
		t.Errorf("selection = %+v, want the connection", sel)
	}
}

// --- Connections ---

func TestConnectGesture(t *testing.T) {
	e, a, b := twoNodes(t)
	var notices []Notice
	e.OnNotice(func(n Notice) { notices = append(notices, n) })
	e.SetTool(ToolConnect)
	e.SetRelation(RelationRealization)

	e.PointerDown(70, 30, MouseButtonLeft, 0)
	if e.State() != StateDrawingConnection {
		t.Fatalf("state = %v, want drawing_connection", e.State())
	}
	e.PointerMove(200, 30)
	e.PointerUp(370, 30)

	s := e.Sheet()
	if len(s.Connections) != 1 {
		t.Fatalf("connections = %d, want 1", len(s.Connections))
	}
	c := s.Connections[0]
	if c.From != a || c.To != b || c.Kind != RelationRealization || c.Style != LineDashed {
		t.Errorf("connection = %+v", c)
	}

	// Same pair again, from either end, is refused with a notice.
	hist := s.History.Len()
	e.PointerDown(370, 30, MouseButtonLeft, 0)
	e.PointerUp(70, 30)
	if len(s.Connections) != 1 {
		t.Errorf("duplicate connection added")
	}
	if len(notices) != 1 || notices[0].Kind != NoticeDuplicateConnection {
		t.Errorf("notices = %+v, want one duplicate notice", notices)
	}
	if s.History.Len() != hist {
		t.Error("refused connection was recorded in history")
	}
}

func TestConnectGestureNoTarget(t *testing.T) {
	e, _, _ := twoNodes(t)
	e.SetTool(ToolConnect)

	e.PointerDown(70, 30, MouseButtonLeft, 0)
	e.PointerUp(700, 400)
	e.PointerDown(70, 30, MouseButtonLeft, 0)
	e.PointerUp(80, 40)
	e.PointerDown(700, 400, MouseButtonLeft, 0)
	if e.State() != StateIdle {
		t.Errorf("press on empty space started %v", e.State())
	}
	if n := len(e.Sheet().Connections); n != 0 {
		t.Errorf("connections = %d, want 0", n)
	}
}

func TestAddConnectionNotice(t *testing.T) {
	e, a, b := twoNodes(t)
	var got []NoticeKind
	e.OnNotice(func(n Notice) { got = append(got, n.Kind) })
	if _, err := e.AddConnection(a, b, RelationFlow); err != nil {
		t.Fatal(err)
	}
	if _, err := e.AddConnection(b, a, RelationBidirectional); err != ErrDuplicateConnection {
		t.Errorf("err = %v, want ErrDuplicateConnection", err)
	}
	if !slices.Equal(got, []NoticeKind{NoticeDuplicateConnection}) {
		t.Errorf("notices = %v", got)
	}
}

// --- Panning ---

func TestMiddleButtonPans(t *testing.T) {
	e, _, _ := twoNodes(t)
	e.SetTool(ToolPencil)
	var reasons []ChangeReason
	e.OnChange(func(c Change) { reasons = append(reasons, c.Reason) })

	e.PointerDown(100, 100, MouseButtonMiddle, 0)
	if e.State() != StatePanning {
		t.Fatalf("state = %v, want panning", e.State())
	}
	e.PointerMove(130, 110)
	e.PointerUp(150, 120)

	v := e.Viewport()
	if v.PanX != 50 || v.PanY != 20 {
		t.Errorf("pan = (%v, %v), want (50, 20)", v.PanX, v.PanY)
	}
	if len(e.Sheet().PaintActions) != 0 {
		t.Error("pan drew paint")
	}
	if !slices.Equal(reasons, []ChangeReason{ChangeViewport}) {
		t.Errorf("reasons = %v", reasons)
	}
}

func TestCancelPanRestoresView(t *testing.T) {
	e := New(nil)
	e.SetTool(ToolPan)
	e.PointerDown(0, 0, MouseButtonLeft, 0)
	e.PointerMove(80, 80)
	e.Cancel()
	if v := e.Viewport(); v.PanX != 0 || v.PanY != 0 {
		t.Errorf("pan = (%v, %v), want (0, 0)", v.PanX, v.PanY)
	}
}

func TestPressWhileGestureActiveClosesIt(t *testing.T) {
	e := New(nil)
	e.SetTool(ToolPencil)
	e.PointerDown(0, 0, MouseButtonLeft, 0)
	e.PointerMove(10, 0)
	e.PointerDown(50, 50, MouseButtonLeft, 0)
	e.PointerUp(60, 50)
	if n := len(e.Sheet().PaintActions); n != 2 {
		t.Errorf("paint actions = %d, want 2", n)
	}
}

// --- Editing ---

func TestDeleteSelectionIsOneStep(t *testing.T) {
	e, a, b := twoNodes(t)
	if _, err := e.AddConnection(a, b, RelationFlow); err != nil {
		t.Fatal(err)
	}
	e.AddPaintAction(&PaintAction{Tool: PaintPencil, Points: []Vec2{{500, 500}}})
	e.SelectAll()
	hist := e.Sheet().History.Len()

	if !e.DeleteSelection() {
		t.Fatal("DeleteSelection refused")
	}
	s := e.Sheet()
	if len(s.Nodes)+len(s.Connections)+len(s.PaintActions) != 0 {
		t.Errorf("left over: %d nodes, %d connections, %d paint", len(s.Nodes), len(s.Connections), len(s.PaintActions))
	}
	if s.History.Len() != hist+1 {
		t.Errorf("history = %d, want %d", s.History.Len(), hist+1)
	}
	if !e.Selection().Empty() {
		t.Error("selection not cleared")
	}

	e.Undo()
	if len(s.Nodes) != 2 || len(s.Connections) != 1 || len(s.PaintActions) != 1 {
		t.Errorf("undo restored %d/%d/%d", len(s.Nodes), len(s.Connections), len(s.PaintActions))
	}
	if e.DeleteSelection() {
		t.Error("delete with empty selection succeeded")
	}
}

func TestRemoveNodePrunesSelection(t *testing.T) {
	e, a, b := twoNodes(t)
	e.Select(Selection{Nodes: []string{a, b, "ghost"}})
	if got := e.Selection().Nodes; len(got) != 2 {
		t.Errorf("Select kept unknown ids: %v", got)
	}
	e.RemoveNode(a)
	if got := e.Selection().Nodes; !slices.Equal(got, []string{b}) {
		t.Errorf("selection = %v, want [b]", got)
	}
}

func TestFieldCapNotice(t *testing.T) {
	e := New(nil)
	id := e.CreateNode(ShapeTable, 0, 0)
	var notices []Notice
	e.OnNotice(func(n Notice) { notices = append(notices, n) })

	added := 0
	for i := 0; i < 12; i++ {
		if e.AddField(id, Field{Name: "option"}) {
			added++
		}
	}
	n := e.Sheet().Node(id)
	if len(n.Fields) != DefaultMaxFieldRows {
		t.Errorf("fields = %d, want %d", len(n.Fields), DefaultMaxFieldRows)
	}
	if added != DefaultMaxFieldRows-3 {
		t.Errorf("added = %d, want %d", added, DefaultMaxFieldRows-3)
	}
	if len(notices) != 12-added || notices[0].Kind != NoticeCapacity {
		t.Errorf("notices = %+v", notices)
	}
}
