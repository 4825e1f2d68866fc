package catalog

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/de-tools/soil-atlas/pkg/models/domain"
	"github.com/de-tools/soil-atlas/pkg/models/store"
	"github.com/de-tools/soil-atlas/pkg/store/source"
)

const (
	AttributeTable = store.AttributeCatalogName
	DomainTable    = store.DomainCatalogName
)

var attributeColumns = []string{
	"attributename",
	"attributetablename",
	"attributecolumnname",
	"fuzzycolumnname",
	"attributelogicaldatatype",
	"attributelevel",
	"algorithmname",
	"tiebreakrule",
	"tiebreaklowlabel",
	"tiebreakhighlabel",
	"attributeprecision",
	"attributeuom",
	"nullratingreplacementvalue",
	"notratedphrase",
	"domainname",
	"primaryconcolname",
	"secondaryconcolname",
	"fixedfilters",
}

var domainColumns = []string{"choicesequence", "choice", "choicedescription"}

type sourceCatalog struct {
	src source.RowSource
}

// NewSourceCatalog reads the catalog tables through a row source, so the
// metadata always comes from the same database as the survey data.
func NewSourceCatalog(src source.RowSource) (Catalog, error) {
	if src == nil {
		return nil, fmt.Errorf("row source is nil")
	}
	return &sourceCatalog{src: src}, nil
}

func (c *sourceCatalog) Attribute(ctx context.Context, name string) (*store.AttributeRecord, error) {
	all, err := c.List(ctx)
	if err != nil {
		return nil, err
	}
	want := strings.ToLower(strings.TrimSpace(name))
	for i := range all {
		if strings.ToLower(all[i].Name) == want {
			return &all[i], nil
		}
	}
	return nil, ErrNotFound
}

func (c *sourceCatalog) List(ctx context.Context) ([]store.AttributeRecord, error) {
	rows, err := source.Collect(ctx, c.src, source.Query{
		Table:   AttributeTable,
		Columns: attributeColumns,
		OrderBy: []string{"attributename"},
	})
	if err != nil {
		return nil, fmt.Errorf("read attribute catalog: %w", err)
	}
	out := make([]store.AttributeRecord, 0, len(rows))
	for _, r := range rows {
		rec, err := scanAttribute(r)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func scanAttribute(r []interface{}) (store.AttributeRecord, error) {
	str := func(i int) string { return strings.TrimSpace(domain.ToString(r[i])) }
	rec := store.AttributeRecord{
		Name:            str(0),
		Table:           str(1),
		Column:          str(2),
		FuzzyColumn:     str(3),
		LogicalType:     str(4),
		Level:           str(5),
		Algorithm:       str(6),
		TieBreak:        str(7),
		LowerLabel:      str(8),
		HigherLabel:     str(9),
		Unit:            str(11),
		NotRated:        str(13),
		DomainName:      str(14),
		PrimaryColumn:   str(15),
		SecondaryColumn: str(16),
	}
	precision, err := domain.ParseFloat(r[10])
	if err != nil {
		return rec, fmt.Errorf("attribute %s precision: %w", rec.Name, err)
	}
	if precision != nil {
		rec.Precision = int(*precision)
	}
	rec.NullReplacement, err = domain.ParseFloat(r[12])
	if err != nil {
		return rec, fmt.Errorf("attribute %s null replacement: %w", rec.Name, err)
	}
	rec.Filters, err = ParseFilters(str(17))
	if err != nil {
		return rec, fmt.Errorf("attribute %s filters: %w", rec.Name, err)
	}
	return rec, nil
}

// ParseFilters reads "column=value;column=value" into a map.
func ParseFilters(s string) (map[string]string, error) {
	if s == "" {
		return nil, nil
	}
	out := make(map[string]string)
	for _, part := range strings.Split(s, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		col, val, ok := strings.Cut(part, "=")
		if !ok || strings.TrimSpace(col) == "" {
			return nil, fmt.Errorf("malformed filter %q", part)
		}
		out[strings.TrimSpace(col)] = strings.TrimSpace(val)
	}
	return out, nil
}

func (c *sourceCatalog) Domain(ctx context.Context, name string) ([]store.DomainEntry, error) {
	if name == "" {
		return nil, nil
	}
	rows, err := source.Collect(ctx, c.src, source.Query{
		Table:   DomainTable,
		Columns: domainColumns,
		Where:   []source.Condition{{Column: "domainname", Value: name}},
		OrderBy: []string{"choicesequence"},
	})
	if err != nil {
		return nil, fmt.Errorf("read domain %s: %w", name, err)
	}
	out := make([]store.DomainEntry, 0, len(rows))
	for _, r := range rows {
		seq, err := domain.ParseFloat(r[0])
		if err != nil {
			return nil, fmt.Errorf("domain %s sequence: %w", name, err)
		}
		e := store.DomainEntry{Value: domain.ToString(r[1]), Description: domain.ToString(r[2])}
		if seq != nil {
			e.Sequence = int(*seq)
		}
		out = append(out, e)
	}
	return out, nil
}

// FormatFilters is the inverse of ParseFilters, with columns in sorted order.
func FormatFilters(filters map[string]string) string {
	if len(filters) == 0 {
		return ""
	}
	cols := make([]string, 0, len(filters))
	for col := range filters {
		cols = append(cols, col)
	}
	sort.Strings(cols)
	parts := make([]string, len(cols))
	for i, col := range cols {
		parts[i] = col + "=" + filters[col]
	}
	return strings.Join(parts, ";")
}
