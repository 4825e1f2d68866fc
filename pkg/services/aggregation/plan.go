// Package aggregation reduces flattened component rows to one rating per map
// unit with the seven survey aggregation methods.
package aggregation

import (
	"fmt"

	"github.com/de-tools/soil-atlas/pkg/models/domain"
	"github.com/de-tools/soil-atlas/pkg/services/ratingdomain"
)

// Plan is the per-request state shared by every shard. It is built once,
// after the rating domain, and never mutated afterwards.
type Plan struct {
	Attribute *domain.AttributeDescriptor
	Request   domain.AggregationRequest
	Domain    *ratingdomain.RatingDomain
	// Target is the rating counted by percent present.
	Target       domain.RatingValue
	WarningLimit int
}

// NewPlan checks that the method fits the attribute's data type. req must
// already carry resolved defaults.
func NewPlan(desc *domain.AttributeDescriptor, req domain.AggregationRequest, dom *ratingdomain.RatingDomain, warningLimit int) (*Plan, error) {
	if desc == nil || dom == nil {
		return nil, fmt.Errorf("attribute and rating domain are required")
	}
	if err := CheckMethod(desc, req.Method); err != nil {
		return nil, err
	}
	p := &Plan{Attribute: desc, Request: req, Domain: dom, WarningLimit: warningLimit}

	if req.Method == domain.MethodPercentPresent {
		target, err := domain.ParseRating(req.Target, desc.DataType)
		if err != nil {
			return nil, fmt.Errorf("percent present target %q: %w", req.Target, err)
		}
		if target.IsMissing() {
			return nil, fmt.Errorf("percent present needs a target value")
		}
		if c, err := dom.Canonical(target); err == nil {
			target = c
		}
		p.Target = target
	}
	return p, nil
}

// CheckMethod reports whether method can reduce values of the attribute's
// data type. It needs no survey data.
func CheckMethod(desc *domain.AttributeDescriptor, method domain.Method) error {
	switch method {
	case domain.MethodWeightedAverage, domain.MethodWeightedSum:
		if desc.DataType != domain.DataTypeNumeric {
			return fmt.Errorf("%s needs a numeric attribute, %q is a class attribute", method, desc.Name)
		}
	case domain.MethodLimiting:
		if desc.DataType != domain.DataTypeClass {
			return fmt.Errorf("%s needs a class attribute, %q is numeric", method, desc.Name)
		}
	case domain.MethodPercentPresent, domain.MethodDominantComponent, domain.MethodDominantCondition, domain.MethodMinMax:
	default:
		return fmt.Errorf("unsupported aggregation method %q", method)
	}
	return nil
}

// Higher reports whether higher ratings win ties.
func (p *Plan) Higher() bool { return p.Domain.TieBreak() == domain.TieBreakHigher }
