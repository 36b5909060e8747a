package sketchboard

import (
	"bytes"
	"math"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func rawSnap(s string) Snapshot { return Snapshot(s) }

func TestHistoryUndoRedoWalk(t *testing.T) {
	var h History
	h.Commit(rawSnap(`"a"`), 10)
	h.Commit(rawSnap(`"b"`), 10)
	if !h.CanUndo() || h.CanRedo() {
		t.Fatalf("after commits: CanUndo=%v CanRedo=%v", h.CanUndo(), h.CanRedo())
	}

	got, ok := h.Undo(rawSnap(`"c"`))
	if !ok || string(got) != `"b"` {
		t.Fatalf("Undo = %s, %v; want \"b\"", got, ok)
	}
	if h.Len() != 3 {
		t.Errorf("live state not stored at the tail: len = %d", h.Len())
	}
	got, _ = h.Undo(rawSnap(`"ignored"`))
	if string(got) != `"a"` {
		t.Errorf("second Undo = %s, want \"a\"", got)
	}
	if _, ok := h.Undo(nil); ok {
		t.Error("Undo at head should report false")
	}

	got, _ = h.Redo()
	if string(got) != `"b"` {
		t.Errorf("Redo = %s, want \"b\"", got)
	}
	got, _ = h.Redo()
	if string(got) != `"c"` {
		t.Errorf("Redo = %s, want \"c\"", got)
	}
	if _, ok := h.Redo(); ok {
		t.Error("Redo at tail should report false")
	}
}

func TestHistoryCommitDiscardsRedo(t *testing.T) {
	var h History
	h.Commit(rawSnap(`1`), 10)
	h.Commit(rawSnap(`2`), 10)
	h.Undo(rawSnap(`3`))
	h.Commit(rawSnap(`x`), 10)
	if h.CanRedo() {
		t.Error("redo branch survived a new commit")
	}
	if h.Len() != 2 || string(h.Entries[1]) != "x" {
		t.Errorf("entries = %q", h.Entries)
	}
}

func TestHistoryCap(t *testing.T) {
	var h History
	for _, s := range []string{"1", "2", "3", "4", "5"} {
		h.Commit(rawSnap(s), 3)
	}
	if h.Len() != 3 || h.Index != 3 {
		t.Fatalf("len = %d, index = %d; want 3, 3", h.Len(), h.Index)
	}
	if string(h.Entries[0]) != "3" {
		t.Errorf("oldest = %s, want 3", h.Entries[0])
	}
}

func TestHistoryDropLast(t *testing.T) {
	var h History
	h.Commit(rawSnap(`1`), 10)
	h.dropLast()
	if h.Len() != 0 || h.Index != 0 {
		t.Errorf("len = %d, index = %d after dropLast", h.Len(), h.Index)
	}
	h.dropLast()
	if h.Index != 0 {
		t.Error("dropLast on empty history moved the index")
	}
}

func TestHistorySanitize(t *testing.T) {
	h := History{Entries: []Snapshot{rawSnap("1"), rawSnap("2")}, Index: 9}
	h.sanitize(10)
	if h.Index != 2 {
		t.Errorf("index = %d, want 2", h.Index)
	}
	h = History{Index: -3}
	h.sanitize(10)
	if h.Index != 0 || h.Entries == nil {
		t.Errorf("sanitize empty: %+v", h)
	}
}

func TestEngineUndoRedoRestoresExactState(t *testing.T) {
	e := New(nil)
	before := snapshotOf(t, e.Sheet())

	a := e.CreateNode(ShapeProcess, 0, 0)
	b := e.CreateNode(ShapeProcess, 300, 0)
	if _, err := e.AddConnection(a, b, RelationFlow); err != nil {
		t.Fatal(err)
	}
	after := snapshotOf(t, e.Sheet())

	for i := 0; i < 3; i++ {
		if !e.Undo() {
			t.Fatalf("Undo %d refused", i)
		}
	}
	if got := snapshotOf(t, e.Sheet()); !bytes.Equal(got, before) {
		t.Errorf("undo to start:\n got %s\nwant %s", got, before)
	}
	if e.Undo() {
		t.Error("Undo past the first commit succeeded")
	}

	for i := 0; i < 3; i++ {
		if !e.Redo() {
			t.Fatalf("Redo %d refused", i)
		}
	}
	if got := snapshotOf(t, e.Sheet()); !bytes.Equal(got, after) {
		t.Errorf("redo to end:\n got %s\nwant %s", got, after)
	}
	if e.Redo() {
		t.Error("Redo past the last commit succeeded")
	}
}

func TestEngineHistoryPerSheet(t *testing.T) {
	e := New(nil)
	e.CreateNode(ShapeProcess, 0, 0)
	if _, err := e.AddSheet(""); err != nil {
		t.Fatal(err)
	}
	if e.Undo() {
		t.Error("new sheet inherited the first sheet's history")
	}
	if err := e.SwitchSheet(0); err != nil {
		t.Fatal(err)
	}
	if !e.Undo() || len(e.Sheet().Nodes) != 0 {
		t.Error("first sheet's history lost across a switch")
	}
}

func TestEngineHistoryCapFromConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxHistory = 2
	e := New(nil, WithConfig(cfg))
	for i := 0; i < 5; i++ {
		e.CreateNode(ShapeNote, float64(i)*200, 0)
	}
	undos := 0
	for e.Undo() {
		undos++
	}
	if undos != 2 {
		t.Errorf("undos = %d, want 2", undos)
	}
	if len(e.Sheet().Nodes) != 3 {
		t.Errorf("nodes after undoing all = %d, want 3", len(e.Sheet().Nodes))
	}
}

func TestEngineMoveNodeIsUndoable(t *testing.T) {
	e := New(nil)
	id := e.CreateNode(ShapeProcess, 0, 0)
	if !e.MoveNode(id, 55, 70) {
		t.Fatal("MoveNode refused")
	}
	if n := e.Sheet().Node(id); n.X != 55 || n.Y != 70 {
		t.Errorf("node at (%v, %v)", n.X, n.Y)
	}
	e.Undo()
	if n := e.Sheet().Node(id); n.X != 0 || n.Y != 0 {
		t.Errorf("undo left node at (%v, %v)", n.X, n.Y)
	}
	if e.MoveNode("missing", 1, 1) {
		t.Error("moved an unknown node")
	}
}

func TestNonFiniteInputsAreClamped(t *testing.T) {
	nan, inf := math.NaN(), math.Inf(1)
	e, a, b := twoNodes(t)
	conn, err := e.AddConnection(a, b, RelationFlow)
	if err != nil {
		t.Fatal(err)
	}

	e.MoveNode(a, nan, inf)
	e.SetStroke(ColorInk, inf)
	e.UpdateConnection(conn, ConnectionPatch{Width: &inf})
	e.AddPaintAction(&PaintAction{Tool: PaintPencil, Points: []Vec2{{0, 0}, {nan, 1}, {10, inf}, {20, 20}}, Width: nan})
	e.AddPaintAction(&PaintAction{Tool: PaintRect, Start: Vec2{nan, 5}, End: Vec2{30, inf}})
	rect := e.Sheet().PaintActions[1].ID
	e.UpdatePaintAction(rect, PaintPatch{Width: &inf})
	e.Viewport().PanBy(nan, -inf)
	e.Wheel(nan, 0, inf)

	s := e.Sheet()
	if n := s.Node(a); n.X != 0 || n.Y != 0 {
		t.Errorf("a = (%v, %v), want (0, 0)", n.X, n.Y)
	}
	if _, w := e.Stroke(); w != DefaultStrokeWidth {
		t.Errorf("stroke width = %v, want %v", w, DefaultStrokeWidth)
	}
	if w := s.Connection(conn).Width; w != 0 {
		t.Errorf("connection width = %v, want 0", w)
	}
	pencil := s.PaintActions[0]
	if len(pencil.Points) != 2 || pencil.Width != DefaultStrokeWidth {
		t.Errorf("pencil = %+v", pencil)
	}
	r := s.PaintAction(rect)
	if r.Start != (Vec2{0, 5}) || r.End != (Vec2{30, 5}) || r.Width != DefaultStrokeWidth {
		t.Errorf("rect = %+v", r)
	}
	if v := e.Viewport().State(); v != (ViewState{Scale: 1}) {
		t.Errorf("view = %+v", v)
	}

	// Every step was committed; walking history back and forth still works.
	snap := snapshotOf(t, s)
	commits := s.History.Len()
	undos := 0
	for e.Undo() {
		undos++
	}
	if undos != commits || len(s.Nodes) != 0 {
		t.Errorf("undos = %d of %d commits, nodes left = %d", undos, commits, len(s.Nodes))
	}
	for e.Redo() {
	}
	if got := snapshotOf(t, s); !bytes.Equal(got, snap) {
		t.Errorf("redo to end:\n got %s\nwant %s", got, snap)
	}
}

func TestDirectNonFiniteWriteIsRepaired(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	e := New(nil, WithLogger(zap.New(core)))
	a := e.CreateNode(ShapeProcess, 40, 40)
	e.Sheet().Node(a).X = math.NaN()
	e.Sheet().Node(a).W = math.Inf(1)

	b := e.CreateNode(ShapeProcess, 300, 0)
	if b == "" {
		t.Fatal("CreateNode refused after a bad write")
	}
	if n := logs.FilterMessage("sheet holds non-finite values, repairing").Len(); n != 1 {
		t.Errorf("repair logged %d times, want 1", n)
	}
	n := e.Sheet().Node(a)
	if n.X != 0 || n.Y != 40 || math.IsInf(n.W, 0) {
		t.Errorf("repaired node = (%v, %v) w %v", n.X, n.Y, n.W)
	}
	if !e.Undo() || len(e.Sheet().Nodes) != 1 {
		t.Errorf("undo after repair: nodes = %d, want 1", len(e.Sheet().Nodes))
	}
}
