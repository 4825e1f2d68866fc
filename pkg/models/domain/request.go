package domain

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// validate is the package-level validator instance used for struct validation.
var validate = validator.New(validator.WithRequiredStructEnabled())

// Method is one of the seven map unit reduction algorithms.
type Method string

const (
	MethodDominantComponent Method = "dominant_component"
	MethodDominantCondition Method = "dominant_condition"
	MethodWeightedAverage   Method = "weighted_average"
	MethodWeightedSum       Method = "weighted_sum"
	MethodMinMax            Method = "min_max"
	MethodPercentPresent    Method = "percent_present"
	MethodLimiting          Method = "limiting"
)

// Methods lists every supported method in display order.
var Methods = []Method{
	MethodDominantComponent,
	MethodDominantCondition,
	MethodWeightedAverage,
	MethodWeightedSum,
	MethodMinMax,
	MethodPercentPresent,
	MethodLimiting,
}

func (m Method) String() string { return string(m) }

// ParseMethod accepts the canonical names as well as the survey metadata
// algorithm names ("Dominant Component", "Weighted Average", ...).
func ParseMethod(s string) (Method, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	key = strings.NewReplacer(" ", "_", "-", "_", "/", "_").Replace(key)
	switch key {
	case "dominant_component", "dcp":
		return MethodDominantComponent, nil
	case "dominant_condition", "dcd":
		return MethodDominantCondition, nil
	case "weighted_average", "wta":
		return MethodWeightedAverage, nil
	case "weighted_sum", "sum":
		return MethodWeightedSum, nil
	case "min_max", "minimum_or_maximum", "minmax":
		return MethodMinMax, nil
	case "percent_present", "pp":
		return MethodPercentPresent, nil
	case "limiting", "least_limiting", "most_limiting":
		return MethodLimiting, nil
	default:
		return "", fmt.Errorf("unsupported aggregation method %q", s)
	}
}

// NullPolicy says what happens to components whose rating is null.
type NullPolicy string

const (
	// NullsInclude counts null ratings as zero (weighted methods) or as the
	// no-data class (selection methods).
	NullsInclude NullPolicy = "include"
	// NullsExclude drops null-rated components from the reduction.
	NullsExclude NullPolicy = "exclude"
)

type Limiting string

const (
	LimitingLeast Limiting = "least"
	LimitingMost  Limiting = "most"
)

// DepthRange is a requested horizon interval in centimeters.
type DepthRange struct {
	Top    float64 `json:"top" validate:"min=0"`
	Bottom float64 `json:"bottom" validate:"gtfield=Top"`
}

// MonthRange is an inclusive, non-wrapping month interval (1 = January).
type MonthRange struct {
	First int `json:"first" validate:"min=1,max=12"`
	Last  int `json:"last" validate:"min=1,max=12,gtefield=First"`
}

// AggregationRequest describes one rating run over every map unit.
type AggregationRequest struct {
	Attribute string `json:"attribute" validate:"required"`
	// Method defaults to the attribute's declared algorithm when empty.
	Method     Method      `json:"method,omitempty" validate:"omitempty,oneof=dominant_component dominant_condition weighted_average weighted_sum min_max percent_present limiting"`
	TieBreak   TieBreak    `json:"tie_break,omitempty" validate:"omitempty,oneof=lower higher"`
	Cutoff     float64     `json:"cutoff" validate:"min=0,max=100"`
	NullPolicy NullPolicy  `json:"null_policy,omitempty" validate:"omitempty,oneof=include exclude"`
	Depth      *DepthRange `json:"depth,omitempty"`
	Months     *MonthRange `json:"months,omitempty"`
	Primary    string      `json:"primary,omitempty"`
	Secondary  string      `json:"secondary,omitempty"`
	// Target is the rating counted by percent present.
	Target    string   `json:"target,omitempty" validate:"required_if=Method percent_present"`
	Limiting  Limiting `json:"limiting,omitempty" validate:"omitempty,oneof=least most"`
	Fuzzy     bool     `json:"fuzzy,omitempty"`
	MajorOnly bool     `json:"major_only,omitempty"`
	Workers   int      `json:"workers,omitempty" validate:"min=0,max=256"`
}

// Validate checks the request against its declared constraints.
func (r *AggregationRequest) Validate() error { return validate.Struct(r) }

// Resolve fills unset options from the attribute descriptor. The descriptor
// is expected to be the one returned by the resolver for this request.
func (r AggregationRequest) Resolve(desc *AttributeDescriptor) AggregationRequest {
	if desc.Fuzzy {
		r.Method = MethodWeightedAverage
	}
	if r.Method == "" {
		r.Method = desc.Method
	}
	if r.Method == "" {
		r.Method = MethodDominantComponent
	}
	if r.TieBreak == "" {
		r.TieBreak = desc.TieBreak
	}
	if r.TieBreak == "" {
		r.TieBreak = TieBreakHigher
	}
	if r.NullPolicy == "" {
		r.NullPolicy = NullsExclude
	}
	if r.Method == MethodLimiting && r.Limiting == "" {
		r.Limiting = LimitingMost
	}
	return r
}
