// Package export writes rating tables as CSV, locally or to S3.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/de-tools/soil-atlas/pkg/models/domain"
)

var header = []string{"mukey", "areasymbol", "rating", "comppct"}

// WriteCSV writes one line per map unit in table order. Missing ratings and
// percents are left empty.
func WriteCSV(w io.Writer, table *domain.RatingTable) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, row := range table.Rows {
		record := []string{row.MapUnitID, row.AreaSymbol, "", ""}
		if !row.Rating.IsMissing() {
			record[2] = row.Rating.String()
		}
		if row.ComponentPercent != nil {
			record[3] = strconv.FormatFloat(*row.ComponentPercent, 'f', -1, 64)
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write map unit %s: %w", row.MapUnitID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
