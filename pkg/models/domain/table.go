package domain

import (
	"math"
	"sort"
	"strconv"
)

// RatingRow is the final rating of one map unit.
type RatingRow struct {
	MapUnitID        string      `json:"mukey"`
	AreaSymbol       string      `json:"areasymbol"`
	ComponentPercent *float64    `json:"comppct,omitempty"`
	Rating           RatingValue `json:"rating"`
}

// Warning records a row that was excluded from a reduction.
type Warning struct {
	MapUnitID   string `json:"mukey,omitempty"`
	ComponentID string `json:"cokey,omitempty"`
	LeafID      string `json:"leaf,omitempty"`
	Reason      string `json:"reason"`
}

// DefaultWarningLimit is how many warning details a table keeps.
const DefaultWarningLimit = 100

// WarningLog counts every warning and keeps the Limit lowest of them in
// (map unit, component, leaf, reason) order, so the kept details do not
// depend on the order rows were rated in.
type WarningLog struct {
	Limit int
	Count int
	Items []Warning
}

func NewWarningLog(limit int) *WarningLog {
	if limit <= 0 {
		limit = DefaultWarningLimit
	}
	return &WarningLog{Limit: limit}
}

func (l *WarningLog) Add(w Warning) {
	l.Count++
	l.keep(w)
}

// Merge folds another log in, keeping the combined count.
func (l *WarningLog) Merge(o *WarningLog) {
	if o == nil {
		return
	}
	l.Count += o.Count
	for _, w := range o.Items {
		l.keep(w)
	}
}

func (l *WarningLog) keep(w Warning) {
	at := sort.Search(len(l.Items), func(i int) bool { return lessWarning(w, l.Items[i]) })
	if at >= l.Limit {
		return
	}
	if len(l.Items) < l.Limit {
		l.Items = append(l.Items, Warning{})
	}
	copy(l.Items[at+1:], l.Items[at:])
	l.Items[at] = w
}

func lessWarning(a, b Warning) bool {
	switch {
	case a.MapUnitID != b.MapUnitID:
		return LessKey(a.MapUnitID, b.MapUnitID)
	case a.ComponentID != b.ComponentID:
		return LessKey(a.ComponentID, b.ComponentID)
	case a.LeafID != b.LeafID:
		return LessKey(a.LeafID, b.LeafID)
	default:
		return a.Reason < b.Reason
	}
}

// LessKey orders integer survey keys numerically, ahead of any other keys,
// which sort as strings.
func LessKey(a, b string) bool {
	ai, aerr := strconv.ParseUint(a, 10, 64)
	bi, berr := strconv.ParseUint(b, 10, 64)
	switch {
	case aerr == nil && berr == nil:
		return ai < bi
	case aerr == nil:
		return true
	case berr == nil:
		return false
	default:
		return a < b
	}
}

// Summary is what symbology consumers need from a rating table: the numeric
// range, or the distinct class values in legend order.
type Summary struct {
	DataType DataType `json:"data_type"`
	Min      *float64 `json:"min,omitempty"`
	Max      *float64 `json:"max,omitempty"`
	Classes  []string `json:"classes,omitempty"`
	Missing  int      `json:"missing"`
}

// Observe folds one emitted rating into the summary.
func (s *Summary) Observe(v RatingValue) {
	switch v.Kind() {
	case KindNumeric:
		f := v.Float()
		if s.Min == nil || f < *s.Min {
			s.Min = &f
		}
		if s.Max == nil || f > *s.Max {
			g := f
			s.Max = &g
		}
	case KindClass:
		for _, c := range s.Classes {
			if c == v.ClassName() {
				return
			}
		}
		s.Classes = append(s.Classes, v.ClassName())
	default:
		s.Missing++
	}
}

// Merge combines two partial summaries. The combine is commutative and
// associative for Min, Max and Missing; class order is fixed afterwards by
// the emitter against the rating domain.
func (s Summary) Merge(o Summary) Summary {
	out := Summary{DataType: s.DataType, Missing: s.Missing + o.Missing}
	if out.DataType == "" {
		out.DataType = o.DataType
	}
	out.Min = minPtr(s.Min, o.Min)
	out.Max = maxPtr(s.Max, o.Max)
	seen := make(map[string]struct{}, len(s.Classes)+len(o.Classes))
	for _, list := range [][]string{s.Classes, o.Classes} {
		for _, c := range list {
			if _, ok := seen[c]; ok {
				continue
			}
			seen[c] = struct{}{}
			out.Classes = append(out.Classes, c)
		}
	}
	return out
}

func minPtr(a, b *float64) *float64 {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	case *b < *a:
		return b
	default:
		return a
	}
}

func maxPtr(a, b *float64) *float64 {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	case *b > *a:
		return b
	default:
		return a
	}
}

// RatingTable is the result of one aggregation request.
type RatingTable struct {
	Attribute string      `json:"attribute"`
	Method    Method      `json:"method"`
	TieBreak  TieBreak    `json:"tie_break"`
	Unit      string      `json:"unit,omitempty"`
	Rows      []RatingRow `json:"rows"`
	Summary   Summary     `json:"summary"`
	// Domain is the ordered legal value list, without the no-data slot.
	Domain []string `json:"domain,omitempty"`
	// Display is the fixed legend range of fuzzy ratings.
	Display *DisplayRange `json:"display,omitempty"`
	// WarningCount counts every excluded row; Warnings keeps the first few.
	WarningCount int       `json:"warning_count"`
	Warnings     []Warning `json:"warnings,omitempty"`
	// NoQualifyingData is set when every map unit ended up without data.
	NoQualifyingData bool `json:"no_qualifying_data"`
}

// RoundTo rounds half away from zero to the given number of decimal places.
func RoundTo(v float64, places int) float64 {
	if places < 0 {
		places = 0
	}
	p := math.Pow(10, float64(places))
	r := math.Round(v*p) / p
	if r == 0 {
		return 0
	}
	return r
}

// Float64 returns a pointer to v.
func Float64(v float64) *float64 { return &v }
