package sketchboard

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	// ErrDuplicateConnection is returned when two nodes are already connected
	// in either direction.
	ErrDuplicateConnection = errors.New("sketchboard: nodes are already connected")
	// ErrSelfConnection is returned when a connection would start and end on
	// the same node.
	ErrSelfConnection = errors.New("sketchboard: cannot connect a node to itself")
	// ErrUnknownNode is returned when a connection references a node that is
	// not on the sheet.
	ErrUnknownNode = errors.New("sketchboard: unknown node")
)

// KeyRole marks a table field as a primary and/or foreign key.
type KeyRole uint8

const (
	KeyNone KeyRole = iota
	KeyPrimary
	KeyForeign
	KeyPrimaryForeign
)

var keyRoleNames = [...]string{"", "pk", "fk", "pk_fk"}

// Badge is the short prefix drawn before the field name.
func (k KeyRole) Badge() string {
	switch k {
	case KeyPrimary:
		return "PK"
	case KeyForeign:
		return "FK"
	case KeyPrimaryForeign:
		return "PK FK"
	}
	return ""
}

func (k KeyRole) MarshalText() ([]byte, error) {
	if int(k) < len(keyRoleNames) {
		return []byte(keyRoleNames[k]), nil
	}
	return nil, nil
}

func (k *KeyRole) UnmarshalText(b []byte) error {
	*k = KeyNone
	for i, name := range keyRoleNames {
		if name == string(b) {
			*k = KeyRole(i)
		}
	}
	return nil
}

// Visibility is the UML member visibility marker.
type Visibility uint8

const (
	VisibilityNone Visibility = iota
	VisibilityPublic
	VisibilityPrivate
	VisibilityProtected
	VisibilityPackage
)

var visibilitySymbols = [...]string{"", "+", "-", "#", "~"}

// Symbol returns the UML prefix character.
func (v Visibility) Symbol() string {
	if int(v) < len(visibilitySymbols) {
		return visibilitySymbols[v]
	}
	return ""
}

func (v Visibility) MarshalText() ([]byte, error) { return []byte(v.Symbol()), nil }

func (v *Visibility) UnmarshalText(b []byte) error {
	*v = VisibilityNone
	for i, sym := range visibilitySymbols {
		if sym == string(b) {
			*v = Visibility(i)
		}
	}
	return nil
}

// Field is one row of a table, class or entity.
type Field struct {
	Name       string     `json:"name"`
	Type       string     `json:"type,omitempty"`
	Key        KeyRole    `json:"key,omitempty"`
	Visibility Visibility `json:"visibility,omitempty"`
}

// Method is one operation row of a class.
type Method struct {
	Name       string     `json:"name"`
	Returns    string     `json:"returns,omitempty"`
	Visibility Visibility `json:"visibility,omitempty"`
}

// Node is a placed shape.
type Node struct {
	ID    string    `json:"id"`
	Kind  ShapeKind `json:"kind"`
	X     float64   `json:"x"`
	Y     float64   `json:"y"`
	W     float64   `json:"w"`
	H     float64   `json:"h"`
	Label string    `json:"label"`
	// Image is an optional data URL (image/png or image/jpeg).
	Image   string   `json:"image,omitempty"`
	Fields  []Field  `json:"fields,omitempty"`
	Methods []Method `json:"methods,omitempty"`

	Accent        *Color  `json:"accent,omitempty"`
	FontSize      float64 `json:"fontSize"`
	Bold          bool    `json:"bold,omitempty"`
	Underline     bool    `json:"underline,omitempty"`
	DoubleBorder  bool    `json:"doubleBorder,omitempty"`
	Parenthesized bool    `json:"parenthesized,omitempty"`
}

// Bounds returns the node's AABB in document space.
func (n *Node) Bounds() Rect {
	return Rect{X: n.X, Y: n.Y, Width: n.W, Height: n.H}
}

// Center returns the center of the node's box.
func (n *Node) Center() Vec2 {
	return Vec2{n.X + n.W/2, n.Y + n.H/2}
}

// Connection links two nodes by identifier.
type Connection struct {
	ID          string       `json:"id"`
	From        string       `json:"from"`
	To          string       `json:"to"`
	Kind        RelationKind `json:"kind"`
	Style       LineStyle    `json:"style"`
	Color       *Color       `json:"color,omitempty"`
	Width       float64      `json:"width,omitempty"`
	Label       string       `json:"label,omitempty"`
	StartMarker *MarkerKind  `json:"startMarker,omitempty"`
	EndMarker   *MarkerKind  `json:"endMarker,omitempty"`
}

// Markers resolves the effective endpoint markers, honoring overrides.
func (c *Connection) Markers() (start, end MarkerKind) {
	start, end = DefaultMarkers(c.Kind)
	if c.StartMarker != nil {
		start = *c.StartMarker
	}
	if c.EndMarker != nil {
		end = *c.EndMarker
	}
	return start, end
}

// joins reports whether c connects a and b in either direction.
func (c *Connection) joins(a, b string) bool {
	return (c.From == a && c.To == b) || (c.From == b && c.To == a)
}

// PaintTool identifies how a paint action was drawn.
type PaintTool uint8

const (
	PaintPencil PaintTool = iota
	PaintMarker
	PaintEraser
	PaintRect
	PaintEllipse
	PaintTriangle
	PaintStar
	PaintHexagon
	PaintCloud

	paintToolCount
)

var paintToolNames = [paintToolCount]string{
	"pencil", "marker", "eraser", "rect", "ellipse", "triangle", "star", "hexagon", "cloud",
}

func (t PaintTool) String() string {
	if t < paintToolCount {
		return paintToolNames[t]
	}
	return "pencil"
}

// Freehand reports whether the tool records a point list rather than a
// start/end pair.
func (t PaintTool) Freehand() bool {
	return t <= PaintEraser
}

func (t PaintTool) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

func (t *PaintTool) UnmarshalText(b []byte) error {
	*t = PaintPencil
	for i, name := range paintToolNames {
		if name == string(b) {
			*t = PaintTool(i)
		}
	}
	return nil
}

// PaintAction is a freehand stroke or a primitive shape drawn on the paint
// layer. It has no connectivity with nodes.
type PaintAction struct {
	ID     string    `json:"id"`
	Tool   PaintTool `json:"tool"`
	Points []Vec2    `json:"points,omitempty"`
	Start  Vec2      `json:"start"`
	End    Vec2      `json:"end"`
	Color  Color     `json:"color"`
	Width  float64   `json:"width"`
}

// Bounds returns the AABB of the action's geometry.
func (a *PaintAction) Bounds() Rect {
	if a.Tool.Freehand() {
		return boundsOfPoints(a.Points)
	}
	return rectFromPoints(a.Start, a.End)
}

// --- Patches ---

// NodePatch carries optional property edits for UpdateNode.
type NodePatch struct {
	Label         *string
	X, Y          *float64
	W, H          *float64
	Image         *string
	Accent        *Color
	ClearAccent   bool
	FontSize      *float64
	Bold          *bool
	Underline     *bool
	DoubleBorder  *bool
	Parenthesized *bool
}

// ConnectionPatch carries optional property edits for UpdateConnection.
type ConnectionPatch struct {
	Kind        *RelationKind
	Style       *LineStyle
	Color       *Color
	ClearColor  bool
	Width       *float64
	Label       *string
	StartMarker *MarkerKind
	EndMarker   *MarkerKind
	// ResetMarkers drops both overrides so the kind's defaults apply.
	ResetMarkers bool
}

// PaintPatch carries optional property edits for UpdatePaintAction.
type PaintPatch struct {
	Color *Color
	Width *float64
}

// --- Sheet ---

// ViewState is the persisted pan/zoom of a sheet.
type ViewState struct {
	PanX  float64 `json:"panX"`
	PanY  float64 `json:"panY"`
	Scale float64 `json:"scale"`
}

// layoutEnv is the measurement and limit context a sheet uses when it
// resizes nodes or enforces capacity.
type layoutEnv struct {
	measurer Measurer
	cfg      *Config
}

var defaultEnvConfig = DefaultConfig()

var defaultEnv = &layoutEnv{measurer: EstimateMeasurer{}, cfg: &defaultEnvConfig}

// Sheet is an independent canvas.
type Sheet struct {
	ID           string         `json:"id"`
	Name         string         `json:"name"`
	Nodes        []*Node        `json:"nodes"`
	Connections  []*Connection  `json:"connections"`
	PaintActions []*PaintAction `json:"paintActions"`
	History      History        `json:"history"`
	View         ViewState      `json:"view"`

	env *layoutEnv
}

// NewSheet creates an empty sheet with a fresh identifier.
func NewSheet(name string) *Sheet {
	return &Sheet{
		ID:           uuid.NewString(),
		Name:         name,
		Nodes:        make([]*Node, 0),
		Connections:  make([]*Connection, 0),
		PaintActions: make([]*PaintAction, 0),
		View:         ViewState{Scale: 1},
	}
}

func (s *Sheet) layout() *layoutEnv {
	if s.env == nil {
		return defaultEnv
	}
	return s.env
}

// Node returns the node with the given id, or nil.
func (s *Sheet) Node(id string) *Node {
	for _, n := range s.Nodes {
		if n.ID == id {
			return n
		}
	}
	return nil
}

// Connection returns the connection with the given id, or nil.
func (s *Sheet) Connection(id string) *Connection {
	for _, c := range s.Connections {
		if c.ID == id {
			return c
		}
	}
	return nil
}

// PaintAction returns the paint action with the given id, or nil.
func (s *Sheet) PaintAction(id string) *PaintAction {
	for _, a := range s.PaintActions {
		if a.ID == id {
			return a
		}
	}
	return nil
}

// ConnectionBetween returns the connection joining a and b in either
// direction, or nil.
func (s *Sheet) ConnectionBetween(a, b string) *Connection {
	for _, c := range s.Connections {
		if c.joins(a, b) {
			return c
		}
	}
	return nil
}

// hasReverse reports whether another connection runs from c.To to c.From.
func (s *Sheet) hasReverse(c *Connection) bool {
	for _, o := range s.Connections {
		if o != c && o.From == c.To && o.To == c.From {
			return true
		}
	}
	return false
}

// ConnectorPath returns the curve of c, or false if an endpoint is missing.
func (s *Sheet) ConnectorPath(c *Connection) (Bezier, bool) {
	a, b := s.Node(c.From), s.Node(c.To)
	if a == nil || b == nil {
		return Bezier{}, false
	}
	reverse := c.Kind != RelationBidirectional && s.hasReverse(c)
	return ConnectorPath(a, b, reverse, s.layout().cfg.ReverseCurveOffset), true
}

// NewNode builds a node of the given kind at (x, y) with the kind's default
// label, size and rows. The node is not added to the sheet.
func (s *Sheet) NewNode(kind ShapeKind, x, y float64) *Node {
	st := strategyFor(kind)
	n := &Node{
		ID:       uuid.NewString(),
		Kind:     kind,
		X:        x,
		Y:        y,
		W:        st.defaultW,
		H:        st.defaultH,
		Label:    st.defaultLabel,
		FontSize: s.layout().cfg.DefaultFontSize,
	}
	if st.defaultFields != nil {
		n.Fields = st.defaultFields()
	}
	if st.methods {
		n.Methods = []Method{{Name: "toString", Returns: "String", Visibility: VisibilityPublic}}
	}
	return n
}

// normalizeNode clamps invalid numbers and grows the node to its minimum.
func (s *Sheet) normalizeNode(n *Node) {
	env := s.layout()
	st := strategyFor(n.Kind)
	n.W = positive(n.W, st.defaultW)
	n.H = positive(n.H, st.defaultH)
	n.FontSize = positive(n.FontSize, env.cfg.DefaultFontSize)
	n.X = finite(n.X, 0)
	n.Y = finite(n.Y, 0)
	if max := env.cfg.MaxFieldRows; len(n.Fields) > max {
		n.Fields = n.Fields[:max]
	}
	if max := env.cfg.MaxMethodRows; len(n.Methods) > max {
		n.Methods = n.Methods[:max]
	}
	FitNodeSize(env.measurer, n)
}

// AddNode appends n after clamping and sizing it. An empty ID is replaced
// with a fresh one; a duplicate ID is refused.
func (s *Sheet) AddNode(n *Node) bool {
	if n == nil {
		return false
	}
	if n.ID == "" {
		n.ID = uuid.NewString()
	} else if s.Node(n.ID) != nil {
		return false
	}
	s.normalizeNode(n)
	s.Nodes = append(s.Nodes, n)
	return true
}

// RemoveNode deletes the node and every connection that references it.
func (s *Sheet) RemoveNode(id string) bool {
	idx := -1
	for i, n := range s.Nodes {
		if n.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return false
	}
	s.Nodes = append(s.Nodes[:idx], s.Nodes[idx+1:]...)

	kept := s.Connections[:0]
	for _, c := range s.Connections {
		if c.From != id && c.To != id {
			kept = append(kept, c)
		}
	}
	for i := len(kept); i < len(s.Connections); i++ {
		s.Connections[i] = nil
	}
	s.Connections = kept
	return true
}

// UpdateNode applies a patch and re-fits the node's size.
func (s *Sheet) UpdateNode(id string, p NodePatch) bool {
	n := s.Node(id)
	if n == nil {
		return false
	}
	if p.Label != nil {
		n.Label = *p.Label
	}
	if p.X != nil {
		n.X = *p.X
	}
	if p.Y != nil {
		n.Y = *p.Y
	}
	if p.W != nil {
		n.W = *p.W
	}
	if p.H != nil {
		n.H = *p.H
	}
	if p.Image != nil {
		n.Image = *p.Image
	}
	if p.ClearAccent {
		n.Accent = nil
	} else if p.Accent != nil {
		c := *p.Accent
		n.Accent = &c
	}
	if p.FontSize != nil {
		n.FontSize = *p.FontSize
	}
	if p.Bold != nil {
		n.Bold = *p.Bold
	}
	if p.Underline != nil {
		n.Underline = *p.Underline
	}
	if p.DoubleBorder != nil {
		n.DoubleBorder = *p.DoubleBorder
	}
	if p.Parenthesized != nil {
		n.Parenthesized = *p.Parenthesized
	}
	s.normalizeNode(n)
	return true
}

// MoveNode sets the node's position. A non-finite coordinate keeps its
// current value.
func (s *Sheet) MoveNode(id string, x, y float64) bool {
	n := s.Node(id)
	if n == nil {
		return false
	}
	n.X, n.Y = finite(x, n.X), finite(y, n.Y)
	return true
}

// AddField appends a row. Refused when the node has no rows (not a table
// kind) or when the row cap is reached.
func (s *Sheet) AddField(id string, f Field) bool {
	n := s.Node(id)
	if n == nil || !s.acceptsFields(n) || len(n.Fields) >= s.layout().cfg.MaxFieldRows {
		return false
	}
	n.Fields = append(n.Fields, f)
	FitNodeSize(s.layout().measurer, n)
	return true
}

// acceptsFields reports whether the node kind displays field rows.
func (s *Sheet) acceptsFields(n *Node) bool {
	return n.Kind.IsTable() || n.Kind == ShapeEntity
}

// UpdateField replaces the row at index i.
func (s *Sheet) UpdateField(id string, i int, f Field) bool {
	n := s.Node(id)
	if n == nil || i < 0 || i >= len(n.Fields) {
		return false
	}
	n.Fields[i] = f
	FitNodeSize(s.layout().measurer, n)
	return true
}

// RemoveField deletes the row at index i.
func (s *Sheet) RemoveField(id string, i int) bool {
	n := s.Node(id)
	if n == nil || i < 0 || i >= len(n.Fields) {
		return false
	}
	n.Fields = append(n.Fields[:i], n.Fields[i+1:]...)
	FitNodeSize(s.layout().measurer, n)
	return true
}

// AddMethod appends a method row to a class node.
func (s *Sheet) AddMethod(id string, m Method) bool {
	n := s.Node(id)
	if n == nil || !strategyFor(n.Kind).methods || len(n.Methods) >= s.layout().cfg.MaxMethodRows {
		return false
	}
	n.Methods = append(n.Methods, m)
	FitNodeSize(s.layout().measurer, n)
	return true
}

// UpdateMethod replaces the method row at index i.
func (s *Sheet) UpdateMethod(id string, i int, m Method) bool {
	n := s.Node(id)
	if n == nil || i < 0 || i >= len(n.Methods) {
		return false
	}
	n.Methods[i] = m
	FitNodeSize(s.layout().measurer, n)
	return true
}

// RemoveMethod deletes the method row at index i.
func (s *Sheet) RemoveMethod(id string, i int) bool {
	n := s.Node(id)
	if n == nil || i < 0 || i >= len(n.Methods) {
		return false
	}
	n.Methods = append(n.Methods[:i], n.Methods[i+1:]...)
	FitNodeSize(s.layout().measurer, n)
	return true
}

// AddConnection appends c after checking its endpoints and the one
// connection per pair rule.
func (s *Sheet) AddConnection(c *Connection) error {
	if c.From == c.To {
		return ErrSelfConnection
	}
	if s.Node(c.From) == nil || s.Node(c.To) == nil {
		return ErrUnknownNode
	}
	if s.ConnectionBetween(c.From, c.To) != nil {
		return ErrDuplicateConnection
	}
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	c.Width = positive(c.Width, 0)
	s.Connections = append(s.Connections, c)
	return nil
}

// RemoveConnection deletes a connection by id.
func (s *Sheet) RemoveConnection(id string) bool {
	for i, c := range s.Connections {
		if c.ID == id {
			s.Connections = append(s.Connections[:i], s.Connections[i+1:]...)
			return true
		}
	}
	return false
}

// UpdateConnection applies a patch to a connection.
func (s *Sheet) UpdateConnection(id string, p ConnectionPatch) bool {
	c := s.Connection(id)
	if c == nil {
		return false
	}
	if p.Kind != nil {
		c.Kind = *p.Kind
	}
	if p.Style != nil {
		c.Style = *p.Style
	}
	if p.ClearColor {
		c.Color = nil
	} else if p.Color != nil {
		col := *p.Color
		c.Color = &col
	}
	if p.Width != nil {
		c.Width = positive(*p.Width, 0)
	}
	if p.Label != nil {
		c.Label = *p.Label
	}
	if p.ResetMarkers {
		c.StartMarker, c.EndMarker = nil, nil
	}
	if p.StartMarker != nil {
		m := *p.StartMarker
		c.StartMarker = &m
	}
	if p.EndMarker != nil {
		m := *p.EndMarker
		c.EndMarker = &m
	}
	return true
}

// AddPaintAction appends a paint action after repairing its numbers: a
// non-positive width gets the default and non-finite points are dropped.
func (s *Sheet) AddPaintAction(a *PaintAction) bool {
	if a == nil {
		return false
	}
	if a.ID == "" {
		a.ID = uuid.NewString()
	} else if s.PaintAction(a.ID) != nil {
		return false
	}
	s.repairPaintAction(a)
	s.PaintActions = append(s.PaintActions, a)
	return true
}

func (s *Sheet) repairPaintAction(a *PaintAction) {
	a.Width = positive(a.Width, s.layout().cfg.DefaultStrokeWidth)
	a.Start = finiteVec(a.Start, Vec2{})
	a.End = finiteVec(a.End, a.Start)
	pts := a.Points[:0]
	for _, p := range a.Points {
		if finiteVec(p, Vec2{}) == p {
			pts = append(pts, p)
		}
	}
	a.Points = pts
}

// RemovePaintAction deletes a paint action by id.
func (s *Sheet) RemovePaintAction(id string) bool {
	for i, a := range s.PaintActions {
		if a.ID == id {
			s.PaintActions = append(s.PaintActions[:i], s.PaintActions[i+1:]...)
			return true
		}
	}
	return false
}

// UpdatePaintAction applies a patch to a paint action.
func (s *Sheet) UpdatePaintAction(id string, p PaintPatch) bool {
	a := s.PaintAction(id)
	if a == nil {
		return false
	}
	if p.Color != nil {
		a.Color = *p.Color
	}
	if p.Width != nil {
		a.Width = positive(*p.Width, s.layout().cfg.DefaultStrokeWidth)
	}
	return true
}

// ContentBounds returns the union of every node and paint action AABB.
func (s *Sheet) ContentBounds() (Rect, bool) {
	var r Rect
	first := true
	add := func(b Rect) {
		if first {
			r, first = b, false
			return
		}
		r = rectUnion(r, b)
	}
	for _, n := range s.Nodes {
		add(n.Bounds())
	}
	for _, a := range s.PaintActions {
		add(a.Bounds())
	}
	return r, !first
}

// --- Snapshots ---

// Snapshot is the immutable JSON encoding of a sheet's nodes, connections
// and paint actions.
type Snapshot []byte

// MarshalJSON emits the snapshot verbatim.
func (s Snapshot) MarshalJSON() ([]byte, error) {
	if s == nil {
		return []byte("null"), nil
	}
	return s, nil
}

// UnmarshalJSON stores a copy of the raw JSON.
func (s *Snapshot) UnmarshalJSON(b []byte) error {
	*s = append((*s)[0:0], b...)
	return nil
}

type sheetContent struct {
	Nodes        []*Node        `json:"nodes"`
	Connections  []*Connection  `json:"connections"`
	PaintActions []*PaintAction `json:"paintActions"`
}

// Snapshot captures the sheet's content. Encoding fails only on a NaN or
// infinite value written directly into a node, connection or paint action.
func (s *Sheet) Snapshot() (Snapshot, error) {
	b, err := json.Marshal(sheetContent{
		Nodes:        s.Nodes,
		Connections:  s.Connections,
		PaintActions: s.PaintActions,
	})
	if err != nil {
		return nil, fmt.Errorf("snapshot sheet %s: %w", s.ID, err)
	}
	return b, nil
}

// repairNumbers clamps every non-finite value in the sheet's content.
func (s *Sheet) repairNumbers() {
	for _, n := range s.Nodes {
		s.normalizeNode(n)
	}
	for _, c := range s.Connections {
		c.Width = positive(c.Width, 0)
	}
	for _, a := range s.PaintActions {
		s.repairPaintAction(a)
	}
}

// Restore replaces the sheet's content with a snapshot.
func (s *Sheet) Restore(snap Snapshot) error {
	var c sheetContent
	if err := json.Unmarshal(snap, &c); err != nil {
		return fmt.Errorf("restore snapshot: %w", err)
	}
	if c.Nodes == nil {
		c.Nodes = make([]*Node, 0)
	}
	if c.Connections == nil {
		c.Connections = make([]*Connection, 0)
	}
	if c.PaintActions == nil {
		c.PaintActions = make([]*PaintAction, 0)
	}
	s.Nodes, s.Connections, s.PaintActions = c.Nodes, c.Connections, c.PaintActions
	return nil
}
