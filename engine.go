package sketchboard

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/vector"
	"github.com/tanema/gween/ease"
	"go.uber.org/zap"
)

const (
	defaultCommandCap = 1024
	fitMargin         = 40.0
	fitDuration       = 0.35
)

// Engine owns a document, the live viewport of its active sheet, the
// interaction controller and the render buffers. It is single-threaded:
// every call must come from the same goroutine, normally the ebiten game
// loop.
type Engine struct {
	cfg      Config
	log      *zap.Logger
	measurer Measurer
	env      *layoutEnv
	debug    bool

	doc  *Document
	view *Viewport
	ctl  Controller

	handlers handlerRegistry
	sink     ChangeSink

	width, height float64

	// Render state
	commands  []RenderCommand
	rtPool    targetPool
	images    map[string]*ebiten.Image
	faces     *TTFMeasurer
	stats     debugStats
	paths     []*vector.Path
	pathUsed  int
	sampleBuf []Vec2

	// Host tooling
	injectQueue     []syntheticPointerEvent
	runner          *ScriptRunner
	screenshotQueue []string
	// ScreenshotDir is where Screenshot writes PNG files.
	ScreenshotDir string
}

// Option configures an Engine.
type Option func(*Engine)

// WithConfig replaces the default configuration. An invalid configuration
// is logged and the defaults are used instead.
func WithConfig(cfg Config) Option {
	return func(e *Engine) { e.cfg = cfg }
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(log *zap.Logger) Option {
	return func(e *Engine) {
		if log != nil {
			e.log = log
		}
	}
}

// WithMeasurer sets the text measurer used for auto-dimensioning and
// text-fit. A *TTFMeasurer is also used to draw labels.
func WithMeasurer(m Measurer) Option {
	return func(e *Engine) { e.measurer = m }
}

// WithChangeSink installs a sink at construction time.
func WithChangeSink(s ChangeSink) Option {
	return func(e *Engine) { e.sink = s }
}

// WithSurfaceSize sets the initial size of the rendering surface.
func WithSurfaceSize(w, h float64) Option {
	return func(e *Engine) { e.width, e.height = w, h }
}

// New creates an engine for doc. A nil doc starts with one empty sheet.
func New(doc *Document, opts ...Option) *Engine {
	e := &Engine{
		cfg:           DefaultConfig(),
		log:           zap.NewNop(),
		width:         1280,
		height:        720,
		commands:      make([]RenderCommand, 0, defaultCommandCap),
		images:        make(map[string]*ebiten.Image),
		ScreenshotDir: "screenshots",
	}
	for _, opt := range opts {
		opt(e)
	}
	if err := e.cfg.Validate(); err != nil {
		e.log.Warn("invalid config, using defaults", zap.Error(err))
		e.cfg = DefaultConfig()
	}
	e.debug = e.cfg.Debug
	if e.measurer == nil {
		e.measurer = EstimateMeasurer{}
	}
	if m, ok := e.measurer.(*TTFMeasurer); ok {
		e.faces = m
	}
	e.env = &layoutEnv{measurer: e.measurer, cfg: &e.cfg}
	e.view = newViewport(e.cfg.MinScale, e.cfg.MaxScale)
	e.ctl = newController(e.cfg.DefaultStrokeWidth)

	if doc == nil {
		doc = NewDocument()
	}
	e.setDocument(doc)
	return e
}

func (e *Engine) setDocument(doc *Document) {
	doc.sanitize(e.env, e.log)
	e.doc = doc
	e.view.SetState(e.Sheet().View)
	e.ctl.sel = Selection{}
	e.ctl.resetGesture()
	e.log.Debug("document loaded",
		zap.Int("sheets", len(doc.Sheets)),
		zap.Int("active", doc.Active),
	)
}

// Load replaces the document with a serialized one. On a parse error the
// engine falls back to an empty document and the error is returned.
func (e *Engine) Load(data []byte) error {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		e.log.Warn("malformed document, starting empty", zap.Error(err))
		e.setDocument(NewDocument())
		return fmt.Errorf("load document: %w", err)
	}
	e.setDocument(&doc)
	e.notify(ChangeLoad)
	return nil
}

// Serialize returns the JSON encoding of the whole document, including the
// live viewport of the active sheet.
func (e *Engine) Serialize() ([]byte, error) {
	e.syncView()
	data, err := json.Marshal(e.doc)
	if err != nil {
		return nil, fmt.Errorf("serialize document: %w", err)
	}
	return data, nil
}

// Config returns the engine's configuration.
func (e *Engine) Config() Config { return e.cfg }

// Viewport returns the live viewport of the active sheet.
func (e *Engine) Viewport() *Viewport { return e.view }

// Measurer returns the text measurer.
func (e *Engine) Measurer() Measurer { return e.measurer }

// SetSurfaceSize records the size of the rendering surface.
func (e *Engine) SetSurfaceSize(w, h float64) {
	if w > 0 && h > 0 {
		e.width, e.height = w, h
	}
}

// SetDebugMode enables per-frame render stats in the log.
func (e *Engine) SetDebugMode(enabled bool) { e.debug = enabled }

// --- Commit points ---

// mutate captures the active sheet, runs fn, and when fn reports a change
// commits the captured snapshot to history and notifies the host.
func (e *Engine) mutate(reason ChangeReason, fn func(s *Sheet) bool) bool {
	s := e.Sheet()
	pre := e.snapshot(s)
	if !fn(s) {
		return false
	}
	e.commit(pre)
	e.pruneSelection()
	e.notify(reason)
	return true
}

// commit pushes a pre-mutation snapshot onto the active sheet's history.
// A nil snapshot is not recorded.
func (e *Engine) commit(pre Snapshot) {
	if pre == nil {
		return
	}
	e.Sheet().History.Commit(pre, e.cfg.MaxHistory)
}

// snapshot encodes s. Values that cannot be encoded are logged, repaired in
// place and the encoding retried; nil means the sheet is still unencodable.
func (e *Engine) snapshot(s *Sheet) Snapshot {
	snap, err := s.Snapshot()
	if err == nil {
		return snap
	}
	e.log.Error("sheet holds non-finite values, repairing", zap.String("sheet", s.ID), zap.Error(err))
	s.repairNumbers()
	snap, err = s.Snapshot()
	if err != nil {
		e.log.Error("sheet snapshot", zap.String("sheet", s.ID), zap.Error(err))
		return nil
	}
	return snap
}

// Undo restores the state before the last committed mutation.
func (e *Engine) Undo() bool {
	if e.ctl.state != StateIdle {
		return false
	}
	s := e.Sheet()
	cur := e.snapshot(s)
	if cur == nil {
		return false
	}
	snap, ok := s.History.Undo(cur)
	if !ok {
		return false
	}
	return e.restore(snap, ChangeUndo)
}

// Redo re-applies the mutation undone last.
func (e *Engine) Redo() bool {
	if e.ctl.state != StateIdle {
		return false
	}
	snap, ok := e.Sheet().History.Redo()
	if !ok {
		return false
	}
	return e.restore(snap, ChangeRedo)
}

func (e *Engine) restore(snap Snapshot, reason ChangeReason) bool {
	if err := e.Sheet().Restore(snap); err != nil {
		e.log.Error("history snapshot unreadable", zap.Error(err))
		return false
	}
	e.pruneSelection()
	e.notify(reason)
	return true
}

// --- Property panel ---

// CreateNode places a node of the given kind at document point (x, y) and
// returns its identifier.
func (e *Engine) CreateNode(kind ShapeKind, x, y float64) string {
	var id string
	e.mutate(ChangeNodeAdd, func(s *Sheet) bool {
		n := s.NewNode(kind, x, y)
		id = n.ID
		return s.AddNode(n)
	})
	return id
}

// AddNode adds a fully specified node.
func (e *Engine) AddNode(n *Node) bool {
	return e.mutate(ChangeNodeAdd, func(s *Sheet) bool { return s.AddNode(n) })
}

// MoveNode sets a node's position. Unlike a pointer drag it is recorded in
// history.
func (e *Engine) MoveNode(id string, x, y float64) bool {
	return e.mutate(ChangeNodeMove, func(s *Sheet) bool { return s.MoveNode(id, x, y) })
}

// UpdateNode applies a property edit.
func (e *Engine) UpdateNode(id string, p NodePatch) bool {
	return e.mutate(ChangeNodeUpdate, func(s *Sheet) bool { return s.UpdateNode(id, p) })
}

// RemoveNode deletes a node and its connections.
func (e *Engine) RemoveNode(id string) bool {
	return e.mutate(ChangeNodeRemove, func(s *Sheet) bool { return s.RemoveNode(id) })
}

// AddField appends a row to a table-like node. At the row cap the add is
// refused with a Capacity notice.
func (e *Engine) AddField(id string, f Field) bool {
	if n := e.Sheet().Node(id); n != nil && len(n.Fields) >= e.cfg.MaxFieldRows {
		e.capacityNotice("fields", e.cfg.MaxFieldRows)
		return false
	}
	return e.mutate(ChangeNodeUpdate, func(s *Sheet) bool { return s.AddField(id, f) })
}

// UpdateField replaces row i of a node.
func (e *Engine) UpdateField(id string, i int, f Field) bool {
	return e.mutate(ChangeNodeUpdate, func(s *Sheet) bool { return s.UpdateField(id, i, f) })
}

// RemoveField deletes row i of a node.
func (e *Engine) RemoveField(id string, i int) bool {
	return e.mutate(ChangeNodeUpdate, func(s *Sheet) bool { return s.RemoveField(id, i) })
}

// AddMethod appends a method row to a class node.
func (e *Engine) AddMethod(id string, m Method) bool {
	if n := e.Sheet().Node(id); n != nil && len(n.Methods) >= e.cfg.MaxMethodRows {
		e.capacityNotice("methods", e.cfg.MaxMethodRows)
		return false
	}
	return e.mutate(ChangeNodeUpdate, func(s *Sheet) bool { return s.AddMethod(id, m) })
}

// UpdateMethod replaces method row i of a class node.
func (e *Engine) UpdateMethod(id string, i int, m Method) bool {
	return e.mutate(ChangeNodeUpdate, func(s *Sheet) bool { return s.UpdateMethod(id, i, m) })
}

// RemoveMethod deletes method row i of a class node.
func (e *Engine) RemoveMethod(id string, i int) bool {
	return e.mutate(ChangeNodeUpdate, func(s *Sheet) bool { return s.RemoveMethod(id, i) })
}

func (e *Engine) capacityNotice(what string, max int) {
	e.emitNotice(Notice{
		Kind:    NoticeCapacity,
		Message: fmt.Sprintf("at most %d %s allowed", max, what),
	})
}

// AddConnection connects two nodes with the given relation kind and its
// default line style. A second connection between the same pair is refused
// with ErrDuplicateConnection and a notice.
func (e *Engine) AddConnection(from, to string, kind RelationKind) (string, error) {
	c := &Connection{From: from, To: to, Kind: kind, Style: DefaultLineStyle(kind)}
	var err error
	e.mutate(ChangeConnectionAdd, func(s *Sheet) bool {
		err = s.AddConnection(c)
		return err == nil
	})
	if err != nil {
		if err == ErrDuplicateConnection {
			e.emitNotice(Notice{Kind: NoticeDuplicateConnection, Message: "these shapes are already connected"})
		}
		return "", err
	}
	return c.ID, nil
}

// UpdateConnection applies a property edit to a connection.
func (e *Engine) UpdateConnection(id string, p ConnectionPatch) bool {
	return e.mutate(ChangeConnectionUpdate, func(s *Sheet) bool { return s.UpdateConnection(id, p) })
}

// RemoveConnection deletes a connection.
func (e *Engine) RemoveConnection(id string) bool {
	return e.mutate(ChangeConnectionRemove, func(s *Sheet) bool { return s.RemoveConnection(id) })
}

// AddPaintAction appends a paint action.
func (e *Engine) AddPaintAction(a *PaintAction) bool {
	return e.mutate(ChangePaintAdd, func(s *Sheet) bool { return s.AddPaintAction(a) })
}

// UpdatePaintAction applies a stroke edit to a paint action.
func (e *Engine) UpdatePaintAction(id string, p PaintPatch) bool {
	return e.mutate(ChangePaintUpdate, func(s *Sheet) bool { return s.UpdatePaintAction(id, p) })
}

// RemovePaintAction deletes a paint action.
func (e *Engine) RemovePaintAction(id string) bool {
	return e.mutate(ChangePaintRemove, func(s *Sheet) bool { return s.RemovePaintAction(id) })
}

// DeleteSelection removes every selected entity as one undoable step.
func (e *Engine) DeleteSelection() bool {
	if e.ctl.state != StateIdle || e.ctl.sel.Empty() {
		return false
	}
	sel := e.ctl.sel
	ok := e.mutate(ChangeDelete, func(s *Sheet) bool {
		changed := false
		for _, id := range sel.Connections {
			changed = s.RemoveConnection(id) || changed
		}
		for _, id := range sel.Nodes {
			changed = s.RemoveNode(id) || changed
		}
		for _, id := range sel.PaintActions {
			changed = s.RemovePaintAction(id) || changed
		}
		return changed
	})
	e.ctl.sel = Selection{}
	return ok
}

// --- Viewport ---

// Zoom multiplies the scale by factor around the surface center.
func (e *Engine) Zoom(factor float64) {
	e.Wheel(e.width/2, e.height/2, factor)
}

// ZoomTo animates to an absolute scale around the surface center.
func (e *Engine) ZoomTo(scale float64, duration float32) {
	e.view.ZoomTo(scale, e.width/2, e.height/2, duration, ease.OutQuad)
	if duration <= 0 {
		e.notify(ChangeViewport)
	}
}

// FitContent frames every node and paint action of the sheet.
func (e *Engine) FitContent(animate bool) {
	bounds, ok := e.Sheet().ContentBounds()
	if !ok {
		return
	}
	var d float32
	if animate {
		d = fitDuration
	}
	e.view.Fit(bounds, e.width, e.height, fitMargin, d, ease.InOutQuad)
	if d == 0 {
		e.notify(ChangeViewport)
	}
}

// --- Frame loop ---

// Update advances the script runner, the inject queue and viewport
// animations by one tick.
func (e *Engine) Update() {
	e.advance(float32(1.0 / float64(ebiten.TPS())))
}

func (e *Engine) advance(dt float32) {
	if e.runner != nil {
		e.runner.step(e)
	}
	e.processInjectedInput()
	if e.view.update(dt) {
		e.notify(ChangeViewport)
	}
}

// Draw renders the active sheet to screen.
func (e *Engine) Draw(screen *ebiten.Image) {
	var t0 time.Time
	if e.debug {
		t0 = time.Now()
	}
	e.buildCommands()
	if e.debug {
		e.stats.buildTime = time.Since(t0)
		e.stats.commandCount = len(e.commands)
		t0 = time.Now()
	}
	e.submit(screen)
	if e.debug {
		e.stats.submitTime = time.Since(t0)
		e.debugLog()
	}
	e.flushScreenshots(screen)
}
