package sketchboard

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	// ErrSheetLimit is returned by AddSheet once MaxSheets sheets exist.
	ErrSheetLimit = errors.New("sketchboard: sheet limit reached")
	// ErrSheetIndex is returned for an out-of-range sheet index.
	ErrSheetIndex = errors.New("sketchboard: sheet index out of range")
	// ErrGestureActive is returned when an operation must wait for the
	// pointer gesture in progress to end.
	ErrGestureActive = errors.New("sketchboard: gesture in progress")
)

// Document is the ordered list of sheets plus the index of the active one.
type Document struct {
	Sheets []*Sheet `json:"sheets"`
	Active int      `json:"activeSheet"`
}

// NewDocument returns a document with one empty sheet.
func NewDocument() *Document {
	return &Document{Sheets: []*Sheet{NewSheet(sheetName(0))}}
}

func sheetName(i int) string {
	return fmt.Sprintf("Sheet %d", i+1)
}

// ParseDocument decodes a serialized document and repairs anything that
// would break the engine's invariants.
func ParseDocument(data []byte) (*Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}
	cfg := DefaultConfig()
	doc.sanitize(&layoutEnv{measurer: EstimateMeasurer{}, cfg: &cfg}, zap.NewNop())
	return &doc, nil
}

// sanitize binds env to every sheet and repairs decoded data: missing
// sheets, duplicate or empty identifiers, dangling or self connections,
// invalid numbers and out-of-range indexes.
func (d *Document) sanitize(env *layoutEnv, log *zap.Logger) {
	kept := d.Sheets[:0]
	for _, s := range d.Sheets {
		if s != nil {
			kept = append(kept, s)
		}
	}
	d.Sheets = kept
	if max := env.cfg.MaxSheets; len(d.Sheets) > max {
		log.Warn("document has too many sheets, extra sheets dropped",
			zap.Int("sheets", len(d.Sheets)),
			zap.Int("max", max),
		)
		d.Sheets = d.Sheets[:max]
	}
	if len(d.Sheets) == 0 {
		d.Sheets = append(d.Sheets, NewSheet(sheetName(0)))
	}
	if d.Active < 0 || d.Active >= len(d.Sheets) {
		d.Active = 0
	}
	for i, s := range d.Sheets {
		if s.ID == "" {
			s.ID = uuid.NewString()
		}
		if s.Name == "" {
			s.Name = sheetName(i)
		}
		s.env = env
		s.sanitize(log)
		s.History.sanitize(env.cfg.MaxHistory)
		if !(s.View.Scale > 0) || math.IsInf(s.View.Scale, 0) {
			s.View.Scale = 1
		}
		s.View.Scale = clamp(s.View.Scale, env.cfg.MinScale, env.cfg.MaxScale)
	}
}

// sanitize repairs the sheet's content in place.
func (s *Sheet) sanitize(log *zap.Logger) {
	nodes := s.Nodes
	s.Nodes = make([]*Node, 0, len(nodes))
	for _, n := range nodes {
		if n == nil {
			continue
		}
		if !s.AddNode(n) {
			log.Debug("duplicate node dropped", zap.String("sheet", s.ID), zap.String("node", n.ID))
		}
	}

	conns := s.Connections
	s.Connections = make([]*Connection, 0, len(conns))
	for _, c := range conns {
		if c == nil {
			continue
		}
		if c.From == c.To || s.Node(c.From) == nil || s.Node(c.To) == nil {
			log.Debug("dangling connection dropped", zap.String("sheet", s.ID), zap.String("connection", c.ID))
			continue
		}
		// A pair connected twice is kept as imported; the renderer offsets
		// the reverse curve.
		if c.ID == "" {
			c.ID = uuid.NewString()
		}
		c.Width = positive(c.Width, 0)
		s.Connections = append(s.Connections, c)
	}

	actions := s.PaintActions
	s.PaintActions = make([]*PaintAction, 0, len(actions))
	for _, a := range actions {
		if a != nil {
			s.AddPaintAction(a)
		}
	}
}

// --- Sheet manager ---

// Document returns the engine's document with the live viewport written
// back into the active sheet.
func (e *Engine) Document() *Document {
	e.syncView()
	return e.doc
}

// Sheets returns the ordered sheet list.
func (e *Engine) Sheets() []*Sheet { return e.doc.Sheets }

// ActiveSheet returns the index of the active sheet.
func (e *Engine) ActiveSheet() int { return e.doc.Active }

// Sheet returns the active sheet.
func (e *Engine) Sheet() *Sheet { return e.doc.Sheets[e.doc.Active] }

// syncView stores the live viewport in the active sheet.
func (e *Engine) syncView() {
	e.Sheet().View = e.view.State()
}

// AddSheet appends an empty sheet and makes it active. An empty name gets
// a numbered default. Refused with ErrSheetLimit (and a notice) once
// MaxSheets sheets exist.
func (e *Engine) AddSheet(name string) (int, error) {
	if e.ctl.state != StateIdle {
		return e.doc.Active, ErrGestureActive
	}
	if len(e.doc.Sheets) >= e.cfg.MaxSheets {
		e.emitNotice(Notice{
			Kind:    NoticeSheetLimit,
			Message: fmt.Sprintf("a document can have at most %d sheets", e.cfg.MaxSheets),
		})
		return e.doc.Active, ErrSheetLimit
	}
	if name == "" {
		name = sheetName(len(e.doc.Sheets))
	}
	s := NewSheet(name)
	s.env = e.env
	e.syncView()
	e.doc.Sheets = append(e.doc.Sheets, s)
	e.activate(len(e.doc.Sheets) - 1)
	e.log.Debug("sheet added", zap.String("sheet", s.ID), zap.Int("index", e.doc.Active))
	e.notify(ChangeSheetAdd)
	return e.doc.Active, nil
}

// SwitchSheet makes sheet i active. The outgoing sheet keeps its content,
// history and viewport. Refused while a gesture is in progress.
func (e *Engine) SwitchSheet(i int) error {
	if e.ctl.state != StateIdle {
		return ErrGestureActive
	}
	if i < 0 || i >= len(e.doc.Sheets) {
		return ErrSheetIndex
	}
	if i == e.doc.Active {
		return nil
	}
	e.syncView()
	e.activate(i)
	e.notify(ChangeSheetSwitch)
	return nil
}

// activate swaps in sheet i without saving the outgoing viewport.
func (e *Engine) activate(i int) {
	e.doc.Active = i
	e.view.SetState(e.doc.Sheets[i].View)
	e.ctl.sel = Selection{}
	e.ctl.resetGesture()
}

// RenameSheet sets the display name of sheet i.
func (e *Engine) RenameSheet(i int, name string) error {
	if i < 0 || i >= len(e.doc.Sheets) {
		return ErrSheetIndex
	}
	if e.doc.Sheets[i].Name == name {
		return nil
	}
	e.doc.Sheets[i].Name = name
	e.notify(ChangeSheetRename)
	return nil
}
