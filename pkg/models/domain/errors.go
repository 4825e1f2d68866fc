package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownAttribute indicates that an attribute name did not resolve.
var ErrUnknownAttribute = errors.New("unknown attribute")

// ErrAmbiguousConstraint indicates that a required primary or secondary
// constraint value was not supplied.
var ErrAmbiguousConstraint = errors.New("ambiguous constraint")

// ErrInvalidRequest indicates an aggregation request that fails validation
// or does not fit the resolved attribute.
var ErrInvalidRequest = errors.New("invalid aggregation request")

// ErrEmptyDomain indicates a class attribute without legal or observed values.
var ErrEmptyDomain = errors.New("empty rating domain")

// ErrNoQualifyingData indicates that every map unit was filtered out.
var ErrNoQualifyingData = errors.New("no qualifying data")

// ErrInconsistentHierarchy indicates a record whose parent key does not exist.
var ErrInconsistentHierarchy = errors.New("inconsistent hierarchy")

// RatingError carries the attribute and, where known, the map unit or
// component key involved in a failure.
type RatingError struct {
	Kind      error
	Attribute string
	MapUnit   string
	Component string
	Detail    string
}

func (e *RatingError) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.Error())
	if e.Attribute != "" {
		fmt.Fprintf(&b, ": attribute %q", e.Attribute)
	}
	if e.MapUnit != "" {
		fmt.Fprintf(&b, ", map unit %s", e.MapUnit)
	}
	if e.Component != "" {
		fmt.Fprintf(&b, ", component %s", e.Component)
	}
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	return b.String()
}

func (e *RatingError) Unwrap() error { return e.Kind }

func NewRatingError(kind error, attribute, detail string) *RatingError {
	return &RatingError{Kind: kind, Attribute: attribute, Detail: detail}
}
