// Package ratingdomain builds the ordered set of legal rating values for an
// attribute and decides where the no-data slot sits in that order.
package ratingdomain

import (
	"fmt"
	"math"
	"strings"

	"github.com/de-tools/soil-atlas/pkg/models/domain"
	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

type Input struct {
	DataType domain.DataType
	// Legal is the externally supplied value order, lowest first. May be empty.
	Legal    []string
	NotRated string
	TieBreak domain.TieBreak
	// Observed holds distinct class values in first-seen order.
	Observed []string
}

// RatingDomain is immutable once built and safe for concurrent readers.
type RatingDomain struct {
	dataType    domain.DataType
	tieBreak    domain.TieBreak
	values      []domain.RatingValue
	index       map[string]int
	noData      int
	notRated    int
	synthesized bool
}

// Key folds a class value into its case-insensitive lookup key.
func Key(s string) string {
	return cases.Fold().String(norm.NFKC.String(strings.TrimSpace(s)))
}

func Build(in Input) (*RatingDomain, error) {
	tb := in.TieBreak
	if tb == "" {
		tb = domain.TieBreakHigher
	}
	d := &RatingDomain{
		dataType: in.DataType,
		tieBreak: tb,
		index:    make(map[string]int),
		notRated: -1,
	}

	var classes []string
	if in.DataType == domain.DataTypeClass {
		switch {
		case len(in.Legal) > 0:
			classes = dedupe(in.Legal)
			classes = recase(classes, in.Observed)
		case len(in.Observed) > 0:
			classes = dedupe(in.Observed)
			d.synthesized = true
		case in.NotRated == "":
			return nil, domain.ErrEmptyDomain
		}
		if in.NotRated != "" {
			classes = placeNotRated(classes, in.NotRated, tb)
		}
	}

	// the no-data slot always loses a tie: first when higher wins, last when lower wins
	if tb == domain.TieBreakHigher {
		d.values = append(d.values, domain.Missing())
	}
	for _, c := range classes {
		d.index[Key(c)] = len(d.values)
		d.values = append(d.values, domain.Class(c))
	}
	if tb == domain.TieBreakLower {
		d.values = append(d.values, domain.Missing())
	}
	for i, v := range d.values {
		if v.IsMissing() {
			d.noData = i
		}
	}
	if in.NotRated != "" {
		d.notRated = d.index[Key(in.NotRated)]
	}
	return d, nil
}

func dedupe(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		k := Key(v)
		if k == "" {
			continue
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, v)
	}
	return out
}

// recase keeps the casing of the first observed occurrence of each legal value.
func recase(legal, observed []string) []string {
	pos := make(map[string]int, len(legal))
	for i, v := range legal {
		pos[Key(v)] = i
	}
	claimed := make(map[int]bool)
	out := append([]string(nil), legal...)
	for _, o := range observed {
		i, ok := pos[Key(o)]
		if !ok || claimed[i] {
			continue
		}
		claimed[i] = true
		out[i] = o
	}
	return out
}

// placeNotRated puts the not-rated phrase next to the no-data slot unless it
// is already one of the legal values.
func placeNotRated(classes []string, notRated string, tb domain.TieBreak) []string {
	k := Key(notRated)
	for _, c := range classes {
		if Key(c) == k {
			return classes
		}
	}
	if tb == domain.TieBreakHigher {
		return append([]string{notRated}, classes...)
	}
	return append(classes, notRated)
}

func (d *RatingDomain) DataType() domain.DataType { return d.dataType }
func (d *RatingDomain) TieBreak() domain.TieBreak { return d.tieBreak }

// Synthesized reports whether the order came from observed data rather than
// a supplied domain; such an order carries no meaning.
func (d *RatingDomain) Synthesized() bool { return d.synthesized }

// Values returns the full order including the no-data slot.
func (d *RatingDomain) Values() []domain.RatingValue {
	return append([]domain.RatingValue(nil), d.values...)
}

// Legal returns the class values in order, without the no-data slot.
func (d *RatingDomain) Legal() []string {
	out := make([]string, 0, len(d.values))
	for _, v := range d.values {
		if v.IsClass() {
			out = append(out, v.ClassName())
		}
	}
	return out
}

func (d *RatingDomain) Len() int         { return len(d.values) }
func (d *RatingDomain) NoDataIndex() int { return d.noData }

// NotRatedIndex returns -1 when the attribute has no not-rated phrase.
func (d *RatingDomain) NotRatedIndex() int { return d.notRated }

// IsFallback reports whether idx is the no-data or the not-rated slot.
func (d *RatingDomain) IsFallback(idx int) bool {
	return idx == d.noData || (d.notRated >= 0 && idx == d.notRated)
}

func (d *RatingDomain) At(idx int) domain.RatingValue { return d.values[idx] }

// Index locates a value in the domain. Missing maps to the no-data slot;
// numeric values have no index.
func (d *RatingDomain) Index(v domain.RatingValue) (int, bool) {
	switch v.Kind() {
	case domain.KindMissing:
		return d.noData, true
	case domain.KindClass:
		i, ok := d.index[Key(v.ClassName())]
		return i, ok
	default:
		return 0, false
	}
}

// Canonical replaces a class value with its stored casing.
func (d *RatingDomain) Canonical(v domain.RatingValue) (domain.RatingValue, error) {
	if !v.IsClass() {
		return v, nil
	}
	i, ok := d.index[Key(v.ClassName())]
	if !ok {
		return v, fmt.Errorf("value %q is not in the rating domain", v.ClassName())
	}
	return d.values[i], nil
}

// Rank places any value on a single axis: domain index for classes, the
// number itself for numerics. Missing ranks below everything when higher
// wins and above everything when lower wins, so it never wins a tie.
func (d *RatingDomain) Rank(v domain.RatingValue) float64 {
	switch v.Kind() {
	case domain.KindNumeric:
		return v.Float()
	case domain.KindClass:
		if i, ok := d.index[Key(v.ClassName())]; ok {
			return float64(i)
		}
	}
	if d.dataType == domain.DataTypeClass {
		return float64(d.noData)
	}
	if d.tieBreak == domain.TieBreakHigher {
		return math.Inf(-1)
	}
	return math.Inf(1)
}

// Prefer reports whether a beats b under the tie-break direction.
func (d *RatingDomain) Prefer(a, b domain.RatingValue) bool {
	ra, rb := d.Rank(a), d.Rank(b)
	if d.tieBreak == domain.TieBreakHigher {
		return ra > rb
	}
	return ra < rb
}

// SameRating compares two values the way the domain sees them: classes
// case-insensitively, numbers exactly.
func (d *RatingDomain) SameRating(a, b domain.RatingValue) bool {
	if a.Kind() != b.Kind() {
		return false
	}
	if a.IsClass() {
		return Key(a.ClassName()) == Key(b.ClassName())
	}
	return a.Equal(b)
}
