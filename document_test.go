package sketchboard

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"testing"
)

func addProcess(t *testing.T, s *Sheet, x, y float64) *Node {
	t.Helper()
	n := s.NewNode(ShapeProcess, x, y)
	if !s.AddNode(n) {
		t.Fatalf("AddNode(%v, %v) refused", x, y)
	}
	return n
}

func snapshotOf(t *testing.T, s *Sheet) Snapshot {
	t.Helper()
	snap, err := s.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	return snap
}

// --- Nodes ---

func TestNewNodeDefaults(t *testing.T) {
	s := NewSheet("s")
	n := s.NewNode(ShapeDecision, 20, 40)
	if n.ID == "" {
		t.Error("ID should be assigned")
	}
	if n.Label != "Decision?" {
		t.Errorf("Label = %q, want Decision?", n.Label)
	}
	if n.W != 150 || n.H != 90 {
		t.Errorf("size = %vx%v, want 150x90", n.W, n.H)
	}
	if n.FontSize != DefaultFontSize {
		t.Errorf("FontSize = %v, want %v", n.FontSize, DefaultFontSize)
	}
	if len(s.Nodes) != 0 {
		t.Error("NewNode must not add to the sheet")
	}

	class := s.NewNode(ShapeClass, 0, 0)
	if len(class.Methods) != 1 {
		t.Errorf("class methods = %d, want 1", len(class.Methods))
	}
}

func TestAddNodeClampsInvalidNumbers(t *testing.T) {
	s := NewSheet("s")
	n := &Node{Kind: ShapeProcess, X: math.NaN(), Y: math.Inf(1), W: -5, H: math.NaN(), FontSize: 0, Label: "x"}
	if !s.AddNode(n) {
		t.Fatal("AddNode refused")
	}
	if n.X != 0 || n.Y != 0 {
		t.Errorf("position = (%v, %v), want (0, 0)", n.X, n.Y)
	}
	if n.W != 140 || n.H != 60 {
		t.Errorf("size = %vx%v, want defaults 140x60", n.W, n.H)
	}
	if n.FontSize != DefaultFontSize {
		t.Errorf("FontSize = %v, want %v", n.FontSize, DefaultFontSize)
	}
	if n.ID == "" {
		t.Error("empty ID should be replaced")
	}
}

func TestAddNodeGrowsToFitLabel(t *testing.T) {
	s := NewSheet("s")
	n := &Node{Kind: ShapeProcess, W: 40, H: 30, Label: "A label much wider than forty pixels"}
	s.AddNode(n)
	mw, _ := AutoDimension(EstimateMeasurer{}, n)
	if n.W < mw {
		t.Errorf("W = %v, want >= %v", n.W, mw)
	}
}

func TestAddNodeDuplicateID(t *testing.T) {
	s := NewSheet("s")
	a := addProcess(t, s, 0, 0)
	if s.AddNode(&Node{ID: a.ID, Kind: ShapeNote}) {
		t.Error("duplicate ID accepted")
	}
	if s.AddNode(nil) {
		t.Error("nil node accepted")
	}
}

func TestUpdateNodePatch(t *testing.T) {
	s := NewSheet("s")
	n := addProcess(t, s, 0, 0)
	label := "Renamed"
	bold := true
	accent := Color{R: 1, A: 1}
	if !s.UpdateNode(n.ID, NodePatch{Label: &label, Bold: &bold, Accent: &accent}) {
		t.Fatal("UpdateNode refused")
	}
	if n.Label != label || !n.Bold || n.Accent == nil || *n.Accent != accent {
		t.Errorf("patch not applied: %+v", n)
	}
	// The stored accent is a copy.
	accent.G = 1
	if n.Accent.G != 0 {
		t.Error("accent aliases the patch value")
	}
	if !s.UpdateNode(n.ID, NodePatch{ClearAccent: true}) || n.Accent != nil {
		t.Error("ClearAccent did not reset the accent")
	}
	if s.UpdateNode("missing", NodePatch{Label: &label}) {
		t.Error("update of missing node accepted")
	}
}

func TestRemoveNodeCascadesConnections(t *testing.T) {
	s := NewSheet("s")
	a := addProcess(t, s, 0, 0)
	b := addProcess(t, s, 300, 0)
	c := addProcess(t, s, 600, 0)
	if err := s.AddConnection(&Connection{From: a.ID, To: b.ID}); err != nil {
		t.Fatal(err)
	}
	if err := s.AddConnection(&Connection{From: b.ID, To: c.ID}); err != nil {
		t.Fatal(err)
	}
	if err := s.AddConnection(&Connection{From: a.ID, To: c.ID}); err != nil {
		t.Fatal(err)
	}

	if !s.RemoveNode(b.ID) {
		t.Fatal("RemoveNode refused")
	}
	if len(s.Nodes) != 2 {
		t.Errorf("nodes = %d, want 2", len(s.Nodes))
	}
	if len(s.Connections) != 1 || !s.Connections[0].joins(a.ID, c.ID) {
		t.Errorf("connections after cascade = %+v, want only a-c", s.Connections)
	}
	if s.RemoveNode(b.ID) {
		t.Error("second remove should report false")
	}
}

// --- Fields ---

func TestAddFieldCap(t *testing.T) {
	s := NewSheet("s")
	n := s.NewNode(ShapeTable, 0, 0)
	n.Fields = nil
	s.AddNode(n)
	for i := 0; i < DefaultMaxFieldRows; i++ {
		if !s.AddField(n.ID, Field{Name: "f"}) {
			t.Fatalf("AddField %d refused", i)
		}
	}
	if s.AddField(n.ID, Field{Name: "overflow"}) {
		t.Error("field beyond the cap accepted")
	}
	if len(n.Fields) != DefaultMaxFieldRows {
		t.Errorf("fields = %d, want %d", len(n.Fields), DefaultMaxFieldRows)
	}
	// Height tracks the rows exactly.
	assertNear(t, "height", n.H, 30+float64(DefaultMaxFieldRows)*24+10)
}

func TestAddFieldRefusedOnPlainShape(t *testing.T) {
	s := NewSheet("s")
	n := addProcess(t, s, 0, 0)
	if s.AddField(n.ID, Field{Name: "x"}) {
		t.Error("field added to a process node")
	}
}

func TestFieldRowsEditing(t *testing.T) {
	s := NewSheet("s")
	n := s.NewNode(ShapeTable, 0, 0)
	s.AddNode(n)
	if !s.UpdateField(n.ID, 0, Field{Name: "uid", Key: KeyPrimary}) {
		t.Fatal("UpdateField refused")
	}
	if n.Fields[0].Name != "uid" {
		t.Errorf("field 0 = %+v", n.Fields[0])
	}
	if !s.RemoveField(n.ID, 1) || len(n.Fields) != 2 {
		t.Errorf("RemoveField: fields = %d, want 2", len(n.Fields))
	}
	assertNear(t, "height", n.H, 30+2*24+10)
	if s.RemoveField(n.ID, 5) || s.UpdateField(n.ID, -1, Field{}) {
		t.Error("out of range row edit accepted")
	}
}

func TestMethodsOnlyOnClass(t *testing.T) {
	s := NewSheet("s")
	table := s.NewNode(ShapeTable, 0, 0)
	class := s.NewNode(ShapeClass, 200, 0)
	s.AddNode(table)
	s.AddNode(class)
	if s.AddMethod(table.ID, Method{Name: "x"}) {
		t.Error("method added to a table")
	}
	h := class.H
	if !s.AddMethod(class.ID, Method{Name: "save"}) {
		t.Fatal("AddMethod refused on class")
	}
	if class.H <= h {
		t.Errorf("class height %v did not grow from %v", class.H, h)
	}
}

// --- Connections ---

func TestAddConnectionRules(t *testing.T) {
	s := NewSheet("s")
	a := addProcess(t, s, 0, 0)
	b := addProcess(t, s, 300, 0)

	if err := s.AddConnection(&Connection{From: a.ID, To: a.ID}); !errors.Is(err, ErrSelfConnection) {
		t.Errorf("self connection err = %v", err)
	}
	if err := s.AddConnection(&Connection{From: a.ID, To: "nope"}); !errors.Is(err, ErrUnknownNode) {
		t.Errorf("unknown endpoint err = %v", err)
	}
	if err := s.AddConnection(&Connection{From: a.ID, To: b.ID}); err != nil {
		t.Fatalf("first connection: %v", err)
	}
	if err := s.AddConnection(&Connection{From: a.ID, To: b.ID}); !errors.Is(err, ErrDuplicateConnection) {
		t.Errorf("duplicate err = %v", err)
	}
	if err := s.AddConnection(&Connection{From: b.ID, To: a.ID}); !errors.Is(err, ErrDuplicateConnection) {
		t.Errorf("reverse duplicate err = %v", err)
	}
	if len(s.Connections) != 1 {
		t.Errorf("connections = %d, want 1", len(s.Connections))
	}
}

func TestConnectionMarkersOverride(t *testing.T) {
	c := &Connection{Kind: RelationFlow}
	ds, de := DefaultMarkers(RelationFlow)
	if s, e := c.Markers(); s != ds || e != de {
		t.Errorf("defaults = (%v, %v), want (%v, %v)", s, e, ds, de)
	}
	override := MarkerNone
	c.EndMarker = &override
	if _, e := c.Markers(); e != MarkerNone {
		t.Errorf("end marker = %v, want none", e)
	}
}

func TestSheetConnectorPathReverse(t *testing.T) {
	s := NewSheet("s")
	a := addProcess(t, s, 0, 0)
	b := addProcess(t, s, 300, 0)
	fwd := &Connection{ID: "f", From: a.ID, To: b.ID}
	back := &Connection{ID: "b", From: b.ID, To: a.ID}
	s.Connections = append(s.Connections, fwd, back)

	pf, ok := s.ConnectorPath(fwd)
	if !ok {
		t.Fatal("ConnectorPath failed")
	}
	pb, _ := s.ConnectorPath(back)
	if approxEqual(pf.Point(0.5).Y, pb.Point(0.5).Y, 1) {
		t.Errorf("reverse curves overlap at %v", pf.Point(0.5))
	}

	if _, ok := s.ConnectorPath(&Connection{From: a.ID, To: "gone"}); ok {
		t.Error("path for missing endpoint")
	}
}

// --- Paint ---

func TestAddPaintActionDefaultsWidth(t *testing.T) {
	s := NewSheet("s")
	a := &PaintAction{Tool: PaintPencil, Points: []Vec2{{0, 0}}, Width: -1}
	if !s.AddPaintAction(a) {
		t.Fatal("AddPaintAction refused")
	}
	if a.Width != DefaultStrokeWidth || a.ID == "" {
		t.Errorf("action = %+v", a)
	}
	w := 0.0
	s.UpdatePaintAction(a.ID, PaintPatch{Width: &w})
	if a.Width != DefaultStrokeWidth {
		t.Errorf("patched width = %v, want default", a.Width)
	}
}

func TestPaintActionBounds(t *testing.T) {
	free := &PaintAction{Tool: PaintPencil, Points: []Vec2{{10, 10}, {30, 5}}}
	if free.Bounds() != (Rect{X: 10, Y: 5, Width: 20, Height: 5}) {
		t.Errorf("freehand bounds = %+v", free.Bounds())
	}
	prim := &PaintAction{Tool: PaintRect, Start: Vec2{50, 50}, End: Vec2{10, 20}}
	if prim.Bounds() != (Rect{X: 10, Y: 20, Width: 40, Height: 30}) {
		t.Errorf("primitive bounds = %+v", prim.Bounds())
	}
}

func TestContentBounds(t *testing.T) {
	s := NewSheet("s")
	if _, ok := s.ContentBounds(); ok {
		t.Error("empty sheet reported bounds")
	}
	addProcess(t, s, 0, 0)
	s.AddPaintAction(&PaintAction{Tool: PaintPencil, Points: []Vec2{{500, 300}, {520, 310}}})
	r, ok := s.ContentBounds()
	if !ok || r != (Rect{X: 0, Y: 0, Width: 520, Height: 310}) {
		t.Errorf("bounds = %+v (%v)", r, ok)
	}
}

// --- Snapshots ---

func TestSnapshotRestore(t *testing.T) {
	s := NewSheet("s")
	a := addProcess(t, s, 0, 0)
	b := addProcess(t, s, 300, 0)
	s.AddConnection(&Connection{From: a.ID, To: b.ID, Kind: RelationOneToMany})
	s.AddPaintAction(&PaintAction{Tool: PaintMarker, Points: []Vec2{{1, 2}, {3, 4}}, Color: ColorInk})

	snap := snapshotOf(t, s)
	s.RemoveNode(a.ID)
	s.PaintActions = s.PaintActions[:0]

	if err := s.Restore(snap); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if got := snapshotOf(t, s); !bytes.Equal(got, snap) {
		t.Errorf("restored content differs:\n got %s\nwant %s", got, snap)
	}
	if err := s.Restore(Snapshot("{")); err == nil {
		t.Error("Restore accepted malformed JSON")
	}
}

func TestSnapshotReportsNonFinite(t *testing.T) {
	s := NewSheet("s")
	n := addProcess(t, s, 0, 0)
	n.Y = math.Inf(-1)
	s.AddPaintAction(&PaintAction{Tool: PaintMarker, Points: []Vec2{{1, 2}}})
	s.PaintActions[0].Width = math.NaN()

	if _, err := s.Snapshot(); err == nil {
		t.Fatal("Snapshot encoded an infinite coordinate")
	}
	s.repairNumbers()
	snapshotOf(t, s)
	if n.Y != 0 || s.PaintActions[0].Width != DefaultStrokeWidth {
		t.Errorf("repaired y = %v, width = %v", n.Y, s.PaintActions[0].Width)
	}
}

func TestSnapshotEmbedsAsJSON(t *testing.T) {
	s := NewSheet("s")
	addProcess(t, s, 0, 0)
	s.History.Commit(snapshotOf(t, s), 10)

	data, err := json.Marshal(s)
	if err != nil {
		t.Fatal(err)
	}
	var back Sheet
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatal(err)
	}
	if len(back.History.Entries) != 1 || !bytes.Equal(back.History.Entries[0], s.History.Entries[0]) {
		t.Errorf("history entry lost in round trip")
	}
}
