package adapters

import (
	"github.com/de-tools/soil-atlas/pkg/models/domain"
	"github.com/de-tools/soil-atlas/pkg/models/store"
)

func MapStoreRunToDomain(r *store.Run) *domain.Run {
	if r == nil {
		return nil
	}

	return &domain.Run{
		ID:         r.ID,
		Attributes: r.Attributes,
		Status:     domain.RunStatus(r.Status),
		Processed:  r.Processed,
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
		Error:      r.Error,
	}
}

func MapDomainRunToStore(r *domain.Run) *store.Run {
	return &store.Run{
		ID:         r.ID,
		Attributes: r.Attributes,
		Status:     string(r.Status),
		Processed:  r.Processed,
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
		Error:      r.Error,
	}
}

// MapRatingTableToStoreResults flattens a rating table into one persisted
// result per map unit.
func MapRatingTableToStoreResults(runID string, table *domain.RatingTable) []store.RatingResult {
	out := make([]store.RatingResult, 0, len(table.Rows))
	for _, row := range table.Rows {
		res := store.RatingResult{
			RunID:            runID,
			Attribute:        table.Attribute,
			MapUnitID:        row.MapUnitID,
			AreaSymbol:       row.AreaSymbol,
			Kind:             row.Rating.Kind().String(),
			ComponentPercent: row.ComponentPercent,
		}
		switch {
		case row.Rating.IsNumeric():
			res.NumericValue = domain.Float64(row.Rating.Float())
		case row.Rating.IsClass():
			c := row.Rating.ClassName()
			res.ClassValue = &c
		}
		out = append(out, res)
	}
	return out
}

func MapStoreResultToRatingRow(r store.RatingResult) domain.RatingRow {
	row := domain.RatingRow{
		MapUnitID:        r.MapUnitID,
		AreaSymbol:       r.AreaSymbol,
		ComponentPercent: r.ComponentPercent,
	}
	switch {
	case r.NumericValue != nil:
		row.Rating = domain.Numeric(*r.NumericValue)
	case r.ClassValue != nil:
		row.Rating = domain.Class(*r.ClassValue)
	}
	return row
}
