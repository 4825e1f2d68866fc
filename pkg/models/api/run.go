package api

import (
	"time"

	"github.com/de-tools/soil-atlas/pkg/models/domain"
)

type RunRequest struct {
	Requests []domain.AggregationRequest `json:"requests"`
}

type Run struct {
	ID         string    `json:"id"`
	Attributes []string  `json:"attributes"`
	Status     string    `json:"status"`
	Processed  int       `json:"processed"`
	Total      int       `json:"total"`
	Error      string    `json:"error,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type RunRatings struct {
	RunID     string             `json:"run_id"`
	Attribute string             `json:"attribute"`
	Rows      []domain.RatingRow `json:"rows"`
}
