package store

import "time"

// Run is one persisted batch of rating requests (rating_runs).
type Run struct {
	ID         string
	Attributes []string
	Status     string
	Processed  int
	Error      *string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// RatingResult is one persisted map unit rating (rating_results). Exactly one
// of NumericValue and ClassValue is set unless Kind is "missing".
type RatingResult struct {
	RunID            string
	Attribute        string
	MapUnitID        string
	AreaSymbol       string
	Kind             string
	NumericValue     *float64
	ClassValue       *string
	ComponentPercent *float64
}
