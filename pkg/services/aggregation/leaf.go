package aggregation

import "github.com/de-tools/soil-atlas/pkg/models/domain"

// rated is one component after its leaf rows were reduced to a single value.
type rated struct {
	comp  domain.Component
	value domain.RatingValue
}

func (r rated) pct() float64 { return r.comp.Pct() }

// reduceLeaves groups a map unit's rows by component, keeping the order in
// which components first appear, and reduces each group to one value.
func (s *shard) reduceLeaves(rows []domain.FlatRow) []rated {
	var order []string
	groups := make(map[string][]domain.FlatRow)
	for _, row := range rows {
		id := row.Component.ID
		if _, ok := groups[id]; !ok {
			order = append(order, id)
		}
		groups[id] = append(groups[id], row)
	}

	out := make([]rated, 0, len(order))
	for _, id := range order {
		group := s.admit(groups[id])
		value := domain.Missing()
		if len(group) > 0 {
			value = s.reduceComponent(group)
		}
		out = append(out, rated{comp: groups[id][0].Component, value: value})
	}
	return out
}

// admit drops rows whose class value is not part of the rating domain and
// replaces the rest with their canonical casing.
func (s *shard) admit(rows []domain.FlatRow) []domain.FlatRow {
	if s.plan.Attribute.DataType != domain.DataTypeClass {
		return rows
	}
	kept := rows[:0:0]
	for _, row := range rows {
		v, err := s.plan.Domain.Canonical(row.Value)
		if err != nil {
			s.warnings.Add(domain.Warning{
				MapUnitID:   row.Component.MapUnitID,
				ComponentID: row.Component.ID,
				LeafID:      row.Leaf.ID,
				Reason:      err.Error(),
			})
			continue
		}
		row.Value = v
		kept = append(kept, row)
	}
	return kept
}

func (s *shard) reduceComponent(rows []domain.FlatRow) domain.RatingValue {
	if len(rows) == 1 && rows[0].Leaf.Kind == domain.LeafNone {
		return rows[0].Value
	}
	if s.plan.Attribute.DataType == domain.DataTypeNumeric {
		return s.reduceNumericLeaves(rows)
	}
	if rows[0].Leaf.Kind == domain.LeafMonth {
		return s.extremeLeaf(rows)
	}
	return s.thickestLeaf(rows)
}

// reduceNumericLeaves is the thickness or duration weighted mean of the
// component's leaves, or their weighted total for weighted sum. Null leaves
// do not take part.
func (s *shard) reduceNumericLeaves(rows []domain.FlatRow) domain.RatingValue {
	var sum, weights float64
	for _, row := range rows {
		if !row.Value.IsNumeric() || row.Weight <= 0 {
			continue
		}
		sum += row.Value.Float() * row.Weight
		weights += row.Weight
	}
	if weights == 0 {
		return domain.Missing()
	}
	if s.plan.Request.Method == domain.MethodWeightedSum {
		return domain.Numeric(sum)
	}
	return domain.Numeric(sum / weights)
}

// thickestLeaf picks the class holding the most usable weight.
func (s *shard) thickestLeaf(rows []domain.FlatRow) domain.RatingValue {
	dom := s.plan.Domain
	weight := make(map[int]float64)
	for _, row := range rows {
		if row.Value.IsMissing() {
			continue
		}
		i, _ := dom.Index(row.Value)
		weight[i] += row.Weight
	}
	best, found := -1, false
	for i, w := range weight {
		if !found || w > weight[best] || (w == weight[best] && dom.Prefer(dom.At(i), dom.At(best))) {
			best, found = i, true
		}
	}
	if !found {
		return domain.Missing()
	}
	return dom.At(best)
}

// extremeLeaf picks the worst month in the tie-break direction.
func (s *shard) extremeLeaf(rows []domain.FlatRow) domain.RatingValue {
	best := domain.Missing()
	for _, row := range rows {
		if s.plan.Domain.Prefer(row.Value, best) {
			best = row.Value
		}
	}
	return best
}
