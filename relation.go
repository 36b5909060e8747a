package sketchboard

// RelationKind is the semantic type of a connection.
type RelationKind uint8

const (
	RelationFlow RelationKind = iota
	RelationBidirectional
	RelationOneToOne
	RelationOneToMany
	RelationManyToMany
	RelationInheritance
	RelationRealization
	RelationComposition
	RelationAggregation
	RelationDependency

	relationKindCount
)

var relationNames = [relationKindCount]string{
	RelationFlow:          "flow",
	RelationBidirectional: "bidirectional",
	RelationOneToOne:      "one_to_one",
	RelationOneToMany:     "one_to_many",
	RelationManyToMany:    "many_to_many",
	RelationInheritance:   "inheritance",
	RelationRealization:   "realization",
	RelationComposition:   "composition",
	RelationAggregation:   "aggregation",
	RelationDependency:    "dependency",
}

func (k RelationKind) String() string {
	if k < relationKindCount {
		return relationNames[k]
	}
	return "unknown"
}

// ParseRelationKind looks up a relation kind by its serialized name.
func ParseRelationKind(s string) (RelationKind, bool) {
	for i, name := range relationNames {
		if name == s {
			return RelationKind(i), true
		}
	}
	return RelationFlow, false
}

func (k RelationKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// UnmarshalText decodes unknown names as RelationFlow.
func (k *RelationKind) UnmarshalText(b []byte) error {
	*k, _ = ParseRelationKind(string(b))
	return nil
}

// LineStyle is the dash pattern of a connection.
type LineStyle uint8

const (
	LineSolid LineStyle = iota
	LineDashed
)

func (s LineStyle) String() string {
	if s == LineDashed {
		return "dashed"
	}
	return "solid"
}

func (s LineStyle) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *LineStyle) UnmarshalText(b []byte) error {
	if string(b) == "dashed" {
		*s = LineDashed
	} else {
		*s = LineSolid
	}
	return nil
}

// MarkerKind is the decoration drawn at a connection endpoint.
type MarkerKind uint8

const (
	MarkerNone MarkerKind = iota
	MarkerArrow
	MarkerTriangle      // hollow triangle (generalization)
	MarkerFilledDiamond // composition
	MarkerHollowDiamond // aggregation
	MarkerOne           // single bar
	MarkerMany          // crow's foot

	markerKindCount
)

var markerNames = [markerKindCount]string{
	MarkerNone:          "none",
	MarkerArrow:         "arrow",
	MarkerTriangle:      "triangle",
	MarkerFilledDiamond: "filled_diamond",
	MarkerHollowDiamond: "hollow_diamond",
	MarkerOne:           "one",
	MarkerMany:          "many",
}

func (m MarkerKind) String() string {
	if m < markerKindCount {
		return markerNames[m]
	}
	return "none"
}

func (m MarkerKind) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

func (m *MarkerKind) UnmarshalText(b []byte) error {
	*m = MarkerNone
	for i, name := range markerNames {
		if name == string(b) {
			*m = MarkerKind(i)
		}
	}
	return nil
}

type relationDefaults struct {
	start, end MarkerKind
	style      LineStyle
}

var relationTable = [relationKindCount]relationDefaults{
	RelationFlow:          {MarkerNone, MarkerArrow, LineSolid},
	RelationBidirectional: {MarkerArrow, MarkerArrow, LineSolid},
	RelationOneToOne:      {MarkerOne, MarkerOne, LineSolid},
	RelationOneToMany:     {MarkerOne, MarkerMany, LineSolid},
	RelationManyToMany:    {MarkerMany, MarkerMany, LineSolid},
	RelationInheritance:   {MarkerNone, MarkerTriangle, LineSolid},
	RelationRealization:   {MarkerNone, MarkerTriangle, LineDashed},
	RelationComposition:   {MarkerFilledDiamond, MarkerNone, LineSolid},
	RelationAggregation:   {MarkerHollowDiamond, MarkerNone, LineSolid},
	RelationDependency:    {MarkerNone, MarkerArrow, LineDashed},
}

// DefaultMarkers returns the start and end markers a kind uses when the
// connection carries no override.
func DefaultMarkers(k RelationKind) (start, end MarkerKind) {
	if k >= relationKindCount {
		k = RelationFlow
	}
	d := relationTable[k]
	return d.start, d.end
}

// DefaultLineStyle returns the line style a new connection of kind k gets.
func DefaultLineStyle(k RelationKind) LineStyle {
	if k >= relationKindCount {
		return LineSolid
	}
	return relationTable[k].style
}
