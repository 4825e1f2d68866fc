// Package catalog provides the attribute metadata and class domains the
// resolver and the domain builder read, from a YAML file or from the
// sdvattribute / sdvdomain tables of the survey database.
package catalog

import (
	"context"
	_ "embed"
	"errors"
	"sort"

	"github.com/de-tools/soil-atlas/pkg/models/store"
)

// ErrNotFound is returned when an attribute is not in the catalog.
var ErrNotFound = errors.New("not found in catalog")

//go:embed default.yaml
var defaultCatalog []byte

// Default returns the built-in catalog of commonly rated survey attributes.
func Default() (*FileCatalog, error) { return Parse(defaultCatalog) }

type Attributes interface {
	// Attribute looks a name up case-insensitively.
	Attribute(ctx context.Context, name string) (*store.AttributeRecord, error)
	List(ctx context.Context) ([]store.AttributeRecord, error)
}

// DomainLookup returns the ordered legal values of a class domain, or an
// empty list for free-form and numeric attributes.
type DomainLookup interface {
	Domain(ctx context.Context, name string) ([]store.DomainEntry, error)
}

type Catalog interface {
	Attributes
	DomainLookup
}

// Values returns the entry values in sequence order.
func Values(entries []store.DomainEntry) []string {
	sorted := append([]store.DomainEntry(nil), entries...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Sequence < sorted[j].Sequence })
	out := make([]string, len(sorted))
	for i, e := range sorted {
		out[i] = e.Value
	}
	return out
}
