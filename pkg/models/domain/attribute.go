package domain

import (
	"fmt"
	"strings"
)

type DataType string

const (
	DataTypeNumeric DataType = "numeric"
	DataTypeClass   DataType = "class"
)

// ParseLogicalDataType maps survey metadata type names (Float, Integer,
// Choice, String, ...) onto the engine's two data types.
func ParseLogicalDataType(s string) (DataType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "float", "integer", "int", "double", "numeric", "number":
		return DataTypeNumeric, nil
	case "choice", "string", "vtext", "narrative text", "text", "class", "boolean":
		return DataTypeClass, nil
	default:
		return "", fmt.Errorf("unsupported logical data type %q", s)
	}
}

// Level says which table of the hierarchy carries an attribute value.
type Level string

const (
	LevelMapUnit        Level = "mapunit"
	LevelComponent      Level = "component"
	LevelHorizon        Level = "horizon"
	LevelMonth          Level = "month"
	LevelInterpretation Level = "interpretation"
)

func ParseLevel(s string) (Level, error) {
	switch l := Level(strings.ToLower(strings.TrimSpace(s))); l {
	case LevelMapUnit, LevelComponent, LevelHorizon, LevelMonth, LevelInterpretation:
		return l, nil
	default:
		return "", fmt.Errorf("unsupported attribute level %q", s)
	}
}

// Keyed reports whether the level has leaf records below the component.
func (l Level) Keyed() bool {
	return l == LevelHorizon || l == LevelMonth || l == LevelInterpretation
}

type TieBreak string

const (
	TieBreakLower  TieBreak = "lower"
	TieBreakHigher TieBreak = "higher"
)

func ParseTieBreak(s string) (TieBreak, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "lower", "low", "min", "minimum":
		return TieBreakLower, nil
	case "higher", "high", "max", "maximum":
		return TieBreakHigher, nil
	default:
		return "", fmt.Errorf("unsupported tie-break rule %q", s)
	}
}

// Condition is an equality filter applied to the attribute table.
type Condition struct {
	Column string
	Value  interface{}
}

// DisplayRange is the fixed legend range used by fuzzy ratings.
type DisplayRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// AttributeDescriptor is the resolved, request-scoped description of an attribute.
type AttributeDescriptor struct {
	Name        string   // "Available Water Storage"
	Table       string   // chorizon
	Column      string   // awc_r
	DataType    DataType // numeric
	Level       Level    // horizon
	Method      Method   // weighted_sum
	TieBreak    TieBreak // default direction
	LowerLabel  string   // "Lower"
	HigherLabel string   // "Higher"
	Precision   int      // decimal places
	Unit        string   // cm
	// NullReplacement substitutes null values (e.g. "deeper than observed" depth).
	NullReplacement *float64
	NotRated        string // "Not rated"
	DomainName      string
	// Constraint columns that the caller must supply values for.
	PrimaryColumn   string
	SecondaryColumn string
	PrimaryValue    string
	SecondaryValue  string
	// Fixed filters every leaf row must satisfy (e.g. ruledepth = 0).
	Filters []Condition
	Display *DisplayRange
	Fuzzy   bool
}

// Constraints returns the equality filters the flattener pushes to the row source.
func (d *AttributeDescriptor) Constraints() []Condition {
	conds := make([]Condition, 0, len(d.Filters)+2)
	conds = append(conds, d.Filters...)
	if d.PrimaryColumn != "" {
		conds = append(conds, Condition{Column: d.PrimaryColumn, Value: d.PrimaryValue})
	}
	if d.SecondaryColumn != "" {
		conds = append(conds, Condition{Column: d.SecondaryColumn, Value: d.SecondaryValue})
	}
	return conds
}

// Round applies the declared precision to a numeric value.
func (d *AttributeDescriptor) Round(v RatingValue) RatingValue {
	if !v.IsNumeric() {
		return v
	}
	return Numeric(RoundTo(v.Float(), d.Precision))
}
