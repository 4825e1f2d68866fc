package domain

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// ValueKind tags the variant held by a RatingValue.
type ValueKind uint8

const (
	KindMissing ValueKind = iota
	KindNumeric
	KindClass
)

func (k ValueKind) String() string {
	switch k {
	case KindNumeric:
		return "numeric"
	case KindClass:
		return "class"
	default:
		return "missing"
	}
}

// RatingValue is a rating that is either missing, a number or a class label.
// The zero value is Missing.
type RatingValue struct {
	kind  ValueKind
	num   float64
	class string
}

func Missing() RatingValue { return RatingValue{} }

func Numeric(v float64) RatingValue {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return RatingValue{}
	}
	return RatingValue{kind: KindNumeric, num: v}
}

func Class(s string) RatingValue { return RatingValue{kind: KindClass, class: s} }

func (v RatingValue) Kind() ValueKind { return v.kind }
func (v RatingValue) IsMissing() bool { return v.kind == KindMissing }
func (v RatingValue) IsNumeric() bool { return v.kind == KindNumeric }
func (v RatingValue) IsClass() bool { return v.kind == KindClass }
func (v RatingValue) Float() float64 { return v.num }
func (v RatingValue) ClassName() string { return v.class }

// Equal compares kind and payload exactly. Class comparison is case sensitive;
// domain-aware comparison goes through RatingDomain.
func (v RatingValue) Equal(o RatingValue) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNumeric:
		return v.num == o.num
	case KindClass:
		return v.class == o.class
	default:
		return true
	}
}

func (v RatingValue) String() string {
	switch v.kind {
	case KindNumeric:
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	case KindClass:
		return v.class
	default:
		return ""
	}
}

// MarshalJSON renders numbers as JSON numbers, classes as strings and missing as null.
func (v RatingValue) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindNumeric:
		return json.Marshal(v.num)
	case KindClass:
		return json.Marshal(v.class)
	default:
		return []byte("null"), nil
	}
}

func (v *RatingValue) UnmarshalJSON(data []byte) error {
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch t := raw.(type) {
	case nil:
		*v = Missing()
	case float64:
		*v = Numeric(t)
	case string:
		*v = Class(t)
	default:
		return fmt.Errorf("unsupported rating value %s", string(data))
	}
	return nil
}

// ParseRating converts a raw column value coming out of a row source into a
// RatingValue of the requested data type. Empty strings are treated as missing.
func ParseRating(raw interface{}, dt DataType) (RatingValue, error) {
	if raw == nil {
		return Missing(), nil
	}
	switch dt {
	case DataTypeNumeric:
		f, ok, err := toFloat(raw)
		if err != nil {
			return Missing(), err
		}
		if !ok {
			return Missing(), nil
		}
		return Numeric(f), nil
	case DataTypeClass:
		s := toString(raw)
		if s == "" {
			return Missing(), nil
		}
		return Class(s), nil
	default:
		return Missing(), fmt.Errorf("unknown data type %q", dt)
	}
}

// ParseFloat reads an optional float out of a raw column value.
func ParseFloat(raw interface{}) (*float64, error) {
	f, ok, err := toFloat(raw)
	if err != nil || !ok {
		return nil, err
	}
	return &f, nil
}

func toFloat(raw interface{}) (float64, bool, error) {
	switch t := raw.(type) {
	case nil:
		return 0, false, nil
	case float64:
		return t, !math.IsNaN(t), nil
	case float32:
		return float64(t), true, nil
	case int:
		return float64(t), true, nil
	case int8:
		return float64(t), true, nil
	case int16:
		return float64(t), true, nil
	case int32:
		return float64(t), true, nil
	case int64:
		return float64(t), true, nil
	case uint8:
		return float64(t), true, nil
	case uint16:
		return float64(t), true, nil
	case uint32:
		return float64(t), true, nil
	case uint64:
		return float64(t), true, nil
	case bool:
		if t {
			return 1, true, nil
		}
		return 0, true, nil
	case []byte:
		return parseFloatString(string(t))
	case string:
		return parseFloatString(t)
	default:
		return 0, false, fmt.Errorf("cannot convert %T to a number", raw)
	}
}

func parseFloatString(s string) (float64, bool, error) {
	if s == "" {
		return 0, false, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false, fmt.Errorf("parse %q: %w", s, err)
	}
	return f, true, nil
}

func toString(raw interface{}) string {
	switch t := raw.(type) {
	case string:
		return t
	case []byte:
		return string(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(t, 10)
	case int:
		return strconv.Itoa(t)
	case bool:
		if t {
			return "Yes"
		}
		return "No"
	default:
		return fmt.Sprint(t)
	}
}

// ToString exposes the raw-to-string conversion used for key and label columns.
func ToString(raw interface{}) string {
	if raw == nil {
		return ""
	}
	return toString(raw)
}
