package catalog

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/de-tools/soil-atlas/pkg/models/store"
	"gopkg.in/yaml.v3"
)

type fileLayout struct {
	Attributes []store.AttributeRecord        `yaml:"attributes"`
	Domains    map[string][]store.DomainEntry `yaml:"domains"`
}

// FileCatalog is a catalog loaded from a YAML document.
type FileCatalog struct {
	attributes  map[string]store.AttributeRecord
	domains     map[string][]store.DomainEntry
	domainNames map[string]string
}

// LoadFile reads a YAML catalog from disk.
func LoadFile(path string) (*FileCatalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes a YAML catalog document.
func Parse(data []byte) (*FileCatalog, error) {
	var layout fileLayout
	if err := yaml.Unmarshal(data, &layout); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}

	c := &FileCatalog{
		attributes:  make(map[string]store.AttributeRecord, len(layout.Attributes)),
		domains:     make(map[string][]store.DomainEntry, len(layout.Domains)),
		domainNames: make(map[string]string, len(layout.Domains)),
	}
	for i, a := range layout.Attributes {
		if a.Name == "" || a.Table == "" || a.Column == "" {
			return nil, fmt.Errorf("catalog attribute %d: name, table and column are required", i)
		}
		key := strings.ToLower(a.Name)
		if _, exists := c.attributes[key]; exists {
			return nil, fmt.Errorf("catalog attribute %q is defined twice", a.Name)
		}
		c.attributes[key] = a
	}
	for name, entries := range layout.Domains {
		c.domains[strings.ToLower(name)] = entries
		c.domainNames[strings.ToLower(name)] = name
	}
	return c, nil
}

func (c *FileCatalog) Attribute(_ context.Context, name string) (*store.AttributeRecord, error) {
	a, ok := c.attributes[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, ErrNotFound
	}
	return &a, nil
}

func (c *FileCatalog) List(_ context.Context) ([]store.AttributeRecord, error) {
	out := make([]store.AttributeRecord, 0, len(c.attributes))
	for _, a := range c.attributes {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (c *FileCatalog) Domain(_ context.Context, name string) ([]store.DomainEntry, error) {
	return append([]store.DomainEntry(nil), c.domains[strings.ToLower(name)]...), nil
}

// Domains returns every domain keyed by the name it was declared with.
func (c *FileCatalog) Domains() map[string][]store.DomainEntry {
	out := make(map[string][]store.DomainEntry, len(c.domains))
	for key, entries := range c.domains {
		out[c.domainNames[key]] = append([]store.DomainEntry(nil), entries...)
	}
	return out
}
