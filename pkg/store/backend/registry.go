// Package backend opens the database/sql connection the survey tables are
// read from, for each supported driver.
package backend

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"

	"github.com/de-tools/soil-atlas/pkg/services/config"
)

// Opener connects to one kind of survey database.
type Opener func(ctx context.Context, cfg config.Source) (*sql.DB, error)

// Registry manages the openers by driver name
type Registry interface {
	// Register adds a new driver opener
	Register(driver string, opener Opener) error
	// Open connects with the opener registered for cfg.Driver
	Open(ctx context.Context, cfg config.Source) (*sql.DB, error)
	// ListDrivers returns the registered driver names in sorted order
	ListDrivers() []string
}

type registry struct {
	mu      sync.RWMutex
	openers map[string]Opener
}

func NewRegistry() Registry {
	return &registry{
		openers: make(map[string]Opener),
	}
}

// NewDefaultRegistry knows every driver the config accepts.
func NewDefaultRegistry() Registry {
	r := NewRegistry()
	for driver, opener := range map[string]Opener{
		config.DriverDuckDB:     OpenDuckDB,
		config.DriverSQLite:     OpenSQLite,
		config.DriverSnowflake:  OpenSnowflake,
		config.DriverDatabricks: OpenDatabricks,
	} {
		// names are distinct and openers non-nil
		_ = r.Register(driver, opener)
	}
	return r
}

func (r *registry) Register(driver string, opener Opener) error {
	if driver == "" {
		return fmt.Errorf("driver name cannot be empty")
	}
	if opener == nil {
		return fmt.Errorf("opener cannot be nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.openers[driver]; exists {
		return fmt.Errorf("driver %q is already registered", driver)
	}

	r.openers[driver] = opener
	return nil
}

func (r *registry) Open(ctx context.Context, cfg config.Source) (*sql.DB, error) {
	r.mu.RLock()
	opener, exists := r.openers[cfg.Driver]
	r.mu.RUnlock()

	if !exists {
		return nil, fmt.Errorf("driver %q is not registered", cfg.Driver)
	}

	return opener(ctx, cfg)
}

func (r *registry) ListDrivers() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	drivers := make([]string, 0, len(r.openers))
	for driver := range r.openers {
		drivers = append(drivers, driver)
	}
	sort.Strings(drivers)
	return drivers
}
