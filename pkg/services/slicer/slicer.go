// Package slicer clips horizon and month leaf records to a requested interval
// and computes the weight each record carries into the reduction.
package slicer

import (
	"fmt"

	"github.com/de-tools/soil-atlas/pkg/models/domain"
)

// MonthWeight is the duration one month slice contributes.
const MonthWeight = 1.0

// Thickness returns the usable thickness of a horizon inside the requested
// depth range: min(bottom, rangeBottom) - max(top, rangeTop). Values <= 0
// mean the horizon does not contribute.
func Thickness(top, bottom float64, r domain.DepthRange) float64 {
	return min(bottom, r.Bottom) - max(top, r.Top)
}

// InMonths reports whether month falls inside the inclusive range. Ranges
// never wrap around the end of the year.
func InMonths(month int, r domain.MonthRange) bool {
	return month >= r.First && month <= r.Last
}

// Slicer turns a leaf record into a usable weight for one request.
type Slicer struct {
	depth  *domain.DepthRange
	months *domain.MonthRange
}

func New(depth *domain.DepthRange, months *domain.MonthRange) *Slicer {
	return &Slicer{depth: depth, months: months}
}

// Weight returns the weight of a leaf, false when the leaf falls outside the
// requested range, or an error when the leaf itself is malformed.
func (s *Slicer) Weight(leaf domain.Leaf) (float64, bool, error) {
	switch leaf.Kind {
	case domain.LeafHorizon:
		if leaf.Bottom <= leaf.Top {
			return 0, false, fmt.Errorf("horizon %s has top %g at or below bottom %g", leaf.ID, leaf.Top, leaf.Bottom)
		}
		if s.depth == nil {
			return leaf.Bottom - leaf.Top, true, nil
		}
		w := Thickness(leaf.Top, leaf.Bottom, *s.depth)
		if w <= 0 {
			return 0, false, nil
		}
		return w, true, nil
	case domain.LeafMonth:
		if leaf.Month < 1 || leaf.Month > 12 {
			return 0, false, fmt.Errorf("month slice %s has month %d outside 1..12", leaf.ID, leaf.Month)
		}
		if s.months != nil && !InMonths(leaf.Month, *s.months) {
			return 0, false, nil
		}
		return MonthWeight, true, nil
	default:
		return 1, true, nil
	}
}
