package sketchboard

// ShapeKind is the closed set of node categories.
type ShapeKind uint8

const (
	ShapeText ShapeKind = iota // free-standing text label

	// Flowchart shapes.
	ShapeTerminator
	ShapeProcess
	ShapeDecision
	ShapeDataIO
	ShapeSubprocess
	ShapeDocument
	ShapeManualInput
	ShapeDisplay
	ShapeOffPage
	ShapeDelay

	// Table variants.
	ShapeTable
	ShapeKeyTable
	ShapeClass

	// Entity-relationship shapes.
	ShapeEntity
	ShapeRelationship
	ShapeAttribute
	ShapeInheritance

	ShapeActor
	ShapeNote

	shapeKindCount
)

var shapeNames = [shapeKindCount]string{
	ShapeText:         "text",
	ShapeTerminator:   "terminator",
	ShapeProcess:      "process",
	ShapeDecision:     "decision",
	ShapeDataIO:       "data_io",
	ShapeSubprocess:   "subprocess",
	ShapeDocument:     "document",
	ShapeManualInput:  "manual_input",
	ShapeDisplay:      "display",
	ShapeOffPage:      "off_page",
	ShapeDelay:        "delay",
	ShapeTable:        "table",
	ShapeKeyTable:     "key_table",
	ShapeClass:        "class",
	ShapeEntity:       "entity",
	ShapeRelationship: "relationship",
	ShapeAttribute:    "attribute",
	ShapeInheritance:  "inheritance",
	ShapeActor:        "actor",
	ShapeNote:         "note",
}

// String returns the serialized name of the kind.
func (k ShapeKind) String() string {
	if k < shapeKindCount {
		return shapeNames[k]
	}
	return "unknown"
}

// ParseShapeKind looks up a kind by its serialized name.
func ParseShapeKind(s string) (ShapeKind, bool) {
	for i, name := range shapeNames {
		if name == s {
			return ShapeKind(i), true
		}
	}
	return ShapeProcess, false
}

// MarshalText implements encoding.TextMarshaler.
func (k ShapeKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. Unknown names decode
// to ShapeProcess so that documents written by newer versions still load.
func (k *ShapeKind) UnmarshalText(b []byte) error {
	*k, _ = ParseShapeKind(string(b))
	return nil
}

// IsTable reports whether the kind lays out a title plus field rows.
func (k ShapeKind) IsTable() bool {
	return strategyFor(k).table
}

// outlineFamily selects the boundary intersection routine for a kind.
type outlineFamily uint8

const (
	outlineRect outlineFamily = iota
	outlineEllipse
	outlineDiamond
	outlineTriangleDown
)

// shapeStrategy is the per-kind table consulted by geometry, layout and
// rendering. Adding a kind means adding one row here plus an outline builder.
type shapeStrategy struct {
	family outlineFamily

	defaultW, defaultH float64
	minW, minH         float64

	// Label box = measured text scaled by grow, plus pad on each side.
	padX, padY   float64
	growW, growH float64

	// Fraction of the node box usable by the label before text-fit shrinks it.
	usableW, usableH float64

	table   bool // title + field rows
	methods bool // method compartment below the fields

	defaultLabel  string
	defaultFields func() []Field
}

var shapeStrategies = [shapeKindCount]shapeStrategy{
	ShapeText: {
		family: outlineRect, defaultW: 120, defaultH: 40, minW: 20, minH: 20,
		padX: 6, padY: 4, growW: 1, growH: 1, usableW: 1, usableH: 1,
		defaultLabel: "Text",
	},
	ShapeTerminator: {
		family: outlineRect, defaultW: 140, defaultH: 50, minW: 60, minH: 30,
		padX: 18, padY: 10, growW: 1.2, growH: 1, usableW: 0.8, usableH: 0.8,
		defaultLabel: "Start",
	},
	ShapeProcess: {
		family: outlineRect, defaultW: 140, defaultH: 60, minW: 40, minH: 30,
		padX: 12, padY: 10, growW: 1, growH: 1, usableW: 0.9, usableH: 0.85,
		defaultLabel: "Process",
	},
	ShapeDecision: {
		family: outlineDiamond, defaultW: 150, defaultH: 90, minW: 60, minH: 40,
		padX: 12, padY: 10, growW: 1.8, growH: 1.9, usableW: 0.55, usableH: 0.5,
		defaultLabel: "Decision?",
	},
	ShapeDataIO: {
		family: outlineRect, defaultW: 150, defaultH: 60, minW: 60, minH: 30,
		padX: 14, padY: 10, growW: 1.3, growH: 1, usableW: 0.7, usableH: 0.85,
		defaultLabel: "Data",
	},
	ShapeSubprocess: {
		family: outlineRect, defaultW: 150, defaultH: 60, minW: 60, minH: 30,
		padX: 14, padY: 10, growW: 1.2, growH: 1, usableW: 0.75, usableH: 0.85,
		defaultLabel: "Subprocess",
	},
	ShapeDocument: {
		family: outlineRect, defaultW: 140, defaultH: 70, minW: 50, minH: 40,
		padX: 12, padY: 10, growW: 1, growH: 1.3, usableW: 0.9, usableH: 0.7,
		defaultLabel: "Document",
	},
	ShapeManualInput: {
		family: outlineRect, defaultW: 140, defaultH: 60, minW: 50, minH: 40,
		padX: 12, padY: 10, growW: 1, growH: 1.3, usableW: 0.9, usableH: 0.7,
		defaultLabel: "Input",
	},
	ShapeDisplay: {
		family: outlineRect, defaultW: 150, defaultH: 60, minW: 60, minH: 30,
		padX: 14, padY: 10, growW: 1.3, growH: 1, usableW: 0.7, usableH: 0.85,
		defaultLabel: "Display",
	},
	ShapeOffPage: {
		family: outlineRect, defaultW: 70, defaultH: 80, minW: 40, minH: 40,
		padX: 10, padY: 8, growW: 1.1, growH: 1.5, usableW: 0.8, usableH: 0.6,
		defaultLabel: "A",
	},
	ShapeDelay: {
		family: outlineRect, defaultW: 130, defaultH: 60, minW: 50, minH: 30,
		padX: 12, padY: 10, growW: 1.25, growH: 1, usableW: 0.75, usableH: 0.85,
		defaultLabel: "Delay",
	},
	ShapeTable: {
		family: outlineRect, defaultW: 160, defaultH: 112, minW: 120, minH: 40,
		padX: 10, padY: 0, growW: 1, growH: 1, usableW: 0.9, usableH: 1,
		table: true, defaultLabel: "Table",
		defaultFields: func() []Field {
			return []Field{
				{Name: "id", Type: "INT"},
				{Name: "name", Type: "VARCHAR"},
				{Name: "created_at", Type: "DATE"},
			}
		},
	},
	ShapeKeyTable: {
		family: outlineRect, defaultW: 180, defaultH: 112, minW: 120, minH: 40,
		padX: 10, padY: 0, growW: 1, growH: 1, usableW: 0.9, usableH: 1,
		table: true, defaultLabel: "Table",
		defaultFields: func() []Field {
			return []Field{
				{Name: "id", Type: "INT", Key: KeyPrimary},
				{Name: "owner_id", Type: "INT", Key: KeyForeign},
				{Name: "name", Type: "VARCHAR"},
			}
		},
	},
	ShapeClass: {
		family: outlineRect, defaultW: 180, defaultH: 136, minW: 120, minH: 40,
		padX: 10, padY: 0, growW: 1, growH: 1, usableW: 0.9, usableH: 1,
		table: true, methods: true, defaultLabel: "Class",
		defaultFields: func() []Field {
			return []Field{
				{Name: "id", Type: "int", Visibility: VisibilityPrivate},
				{Name: "name", Type: "String", Visibility: VisibilityPrivate},
			}
		},
	},
	ShapeEntity: {
		family: outlineRect, defaultW: 140, defaultH: 60, minW: 60, minH: 30,
		padX: 14, padY: 10, growW: 1, growH: 1, usableW: 0.85, usableH: 0.8,
		defaultLabel: "Entity",
	},
	ShapeRelationship: {
		family: outlineDiamond, defaultW: 140, defaultH: 80, minW: 60, minH: 40,
		padX: 12, padY: 10, growW: 1.8, growH: 1.9, usableW: 0.55, usableH: 0.5,
		defaultLabel: "has",
	},
	ShapeAttribute: {
		family: outlineEllipse, defaultW: 120, defaultH: 50, minW: 50, minH: 30,
		padX: 10, padY: 8, growW: 1.45, growH: 1.5, usableW: 0.7, usableH: 0.7,
		defaultLabel: "attribute",
	},
	ShapeInheritance: {
		family: outlineTriangleDown, defaultW: 80, defaultH: 60, minW: 40, minH: 30,
		padX: 8, padY: 6, growW: 1.6, growH: 1.8, usableW: 0.5, usableH: 0.4,
		defaultLabel: "ISA",
	},
	ShapeActor: {
		family: outlineEllipse, defaultW: 60, defaultH: 100, minW: 30, minH: 60,
		padX: 4, padY: 4, growW: 1, growH: 1, usableW: 1, usableH: 0.25,
		defaultLabel: "Actor",
	},
	ShapeNote: {
		family: outlineRect, defaultW: 160, defaultH: 80, minW: 60, minH: 40,
		padX: 14, padY: 12, growW: 1.1, growH: 1.1, usableW: 0.85, usableH: 0.8,
		defaultLabel: "Note",
	},
}

// strategyFor returns the strategy row for k, falling back to Process.
func strategyFor(k ShapeKind) *shapeStrategy {
	if k >= shapeKindCount {
		k = ShapeProcess
	}
	return &shapeStrategies[k]
}
