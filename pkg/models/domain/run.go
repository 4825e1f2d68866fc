package domain

import "time"

type RunStatus string

const (
	RunStatusPending   RunStatus = "pending"
	RunStatusRunning   RunStatus = "running"
	RunStatusFinished  RunStatus = "finished"
	RunStatusFailed    RunStatus = "failed"
	RunStatusCancelled RunStatus = "cancelled"
)

// Run tracks a batch of aggregation requests rated one after another.
type Run struct {
	ID         string    `json:"id"`
	Attributes []string  `json:"attributes"`
	Status     RunStatus `json:"status"`
	Processed  int       `json:"processed"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
	Error      *string   `json:"error,omitempty"`
}

func (r Run) Done() bool {
	switch r.Status {
	case RunStatusFinished, RunStatusFailed, RunStatusCancelled:
		return true
	}
	return false
}
