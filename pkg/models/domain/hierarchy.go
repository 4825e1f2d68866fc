package domain

type MapUnit struct {
	ID         string // mukey
	AreaSymbol string // survey area, e.g. "IA001"
	Symbol     string // musym
	Name       string // muname
}

type Component struct {
	ID        string   // cokey
	MapUnitID string   // mukey
	Name      string   // compname
	Percent   *float64 // comppct_r, may be null
	Major     bool     // majcompflag
	Kind      string   // compkind, e.g. "Series", "Miscellaneous area"
}

// Pct returns the component percent, counting null as zero.
func (c Component) Pct() float64 {
	if c.Percent == nil {
		return 0
	}
	return *c.Percent
}

// LeafKind identifies the record type below a component.
type LeafKind uint8

const (
	LeafNone LeafKind = iota
	LeafHorizon
	LeafMonth
	LeafInterpretation
)

// LeafFor maps an attribute level to the leaf kind it reads.
func LeafFor(l Level) LeafKind {
	switch l {
	case LevelHorizon:
		return LeafHorizon
	case LevelMonth:
		return LeafMonth
	case LevelInterpretation:
		return LeafInterpretation
	default:
		return LeafNone
	}
}

// Leaf is one horizon, month slice or interpretation result.
type Leaf struct {
	Kind      LeafKind
	ID        string
	Top       float64 // horizon top depth, cm
	Bottom    float64 // horizon bottom depth, cm
	Month     int     // 1..12
	RuleDepth int
}

// FlatRow is one (map unit, component, leaf) triple with its rating value and
// the usable weight produced by the range slicer.
type FlatRow struct {
	Component Component
	Leaf      Leaf
	Value     RatingValue
	Weight    float64
}

// MapUnitRows buffers the flattened rows of a single map unit. Value holds the
// rating of map-unit-level attributes, which carry no components.
type MapUnitRows struct {
	MapUnit MapUnit
	Rows    []FlatRow
	Value   RatingValue
}
