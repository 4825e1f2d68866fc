// Package emitter turns aggregation shards into the final rating table.
package emitter

import (
	"sort"

	"github.com/de-tools/soil-atlas/pkg/models/domain"
	"github.com/de-tools/soil-atlas/pkg/services/aggregation"
)

// PercentPrecision is the number of decimals kept on reported component percents.
const PercentPrecision = 2

// Emit rounds every rating once, to the attribute precision, and writes one
// row per map unit in ascending map unit key order. Each shard is summarized
// on its own and the partial summaries are merged. warnings collects the
// shard warnings and may already hold flattening warnings; shards may come
// in any order.
func Emit(plan *aggregation.Plan, shards []aggregation.Shard, warnings *domain.WarningLog) *domain.RatingTable {
	if warnings == nil {
		warnings = domain.NewWarningLog(plan.WarningLimit)
	}
	desc := plan.Attribute
	summary := domain.Summary{DataType: desc.DataType}
	var rows []domain.RatingRow

	for _, s := range shards {
		partial := domain.Summary{DataType: desc.DataType}
		for _, o := range s.Outcomes {
			row := domain.RatingRow{
				MapUnitID:  o.MapUnit.ID,
				AreaSymbol: o.MapUnit.AreaSymbol,
				Rating:     desc.Round(o.Rating),
			}
			if o.Percent != nil {
				row.ComponentPercent = domain.Float64(domain.RoundTo(*o.Percent, PercentPrecision))
			}
			partial.Observe(row.Rating)
			rows = append(rows, row)
		}
		summary = summary.Merge(partial)
		warnings.Merge(s.Warnings)
	}

	sort.SliceStable(rows, func(i, j int) bool { return domain.LessKey(rows[i].MapUnitID, rows[j].MapUnitID) })
	summary.Classes = domainOrder(plan, summary.Classes)

	table := &domain.RatingTable{
		Attribute:    desc.Name,
		Method:       plan.Request.Method,
		TieBreak:     plan.Request.TieBreak,
		Unit:         desc.Unit,
		Rows:         rows,
		Summary:      summary,
		Display:      desc.Display,
		WarningCount: warnings.Count,
		Warnings:     warnings.Items,
	}
	if rows == nil {
		table.Rows = []domain.RatingRow{}
	}
	if desc.DataType == domain.DataTypeClass {
		table.Domain = plan.Domain.Legal()
	}
	return table
}

// domainOrder sorts emitted classes by their rating domain index.
func domainOrder(plan *aggregation.Plan, classes []string) []string {
	if len(classes) == 0 {
		return nil
	}
	out := append([]string(nil), classes...)
	sort.SliceStable(out, func(i, j int) bool {
		return plan.Domain.Rank(domain.Class(out[i])) < plan.Domain.Rank(domain.Class(out[j]))
	})
	return out
}
