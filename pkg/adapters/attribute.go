package adapters

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/de-tools/soil-atlas/pkg/models/domain"
	"github.com/de-tools/soil-atlas/pkg/models/store"
)

func MapAttributeRecordToDomain(rec store.AttributeRecord) (*domain.AttributeDescriptor, error) {
	dt, err := domain.ParseLogicalDataType(rec.LogicalType)
	if err != nil {
		return nil, fmt.Errorf("attribute %s: %w", rec.Name, err)
	}
	level, err := domain.ParseLevel(rec.Level)
	if err != nil {
		return nil, fmt.Errorf("attribute %s: %w", rec.Name, err)
	}

	desc := &domain.AttributeDescriptor{
		Name:            rec.Name,
		Table:           rec.Table,
		Column:          rec.Column,
		DataType:        dt,
		Level:           level,
		LowerLabel:      rec.LowerLabel,
		HigherLabel:     rec.HigherLabel,
		Precision:       rec.Precision,
		Unit:            rec.Unit,
		NotRated:        rec.NotRated,
		DomainName:      rec.DomainName,
		PrimaryColumn:   rec.PrimaryColumn,
		SecondaryColumn: rec.SecondaryColumn,
	}
	if rec.NullReplacement != nil {
		v := *rec.NullReplacement
		desc.NullReplacement = &v
	}
	if rec.Algorithm != "" {
		if desc.Method, err = domain.ParseMethod(rec.Algorithm); err != nil {
			return nil, fmt.Errorf("attribute %s: %w", rec.Name, err)
		}
	}
	if rec.TieBreak != "" {
		if desc.TieBreak, err = domain.ParseTieBreak(rec.TieBreak); err != nil {
			return nil, fmt.Errorf("attribute %s: %w", rec.Name, err)
		}
	}
	if desc.LowerLabel == "" {
		desc.LowerLabel = "Lower"
	}
	if desc.HigherLabel == "" {
		desc.HigherLabel = "Higher"
	}

	cols := make([]string, 0, len(rec.Filters))
	for col := range rec.Filters {
		cols = append(cols, col)
	}
	sort.Strings(cols)
	for _, col := range cols {
		desc.Filters = append(desc.Filters, domain.Condition{Column: col, Value: filterValue(rec.Filters[col])})
	}
	return desc, nil
}

// filterValue binds integer-looking filter values as numbers so that typed
// columns such as ruledepth compare without casts.
func filterValue(s string) interface{} {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	return s
}
