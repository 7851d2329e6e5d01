package store

import (
	"context"
	"time"
)

// Run is a persisted record of one watchdog run.
type Run struct {
	ID          string     `json:"id"`
	Outcome     string     `json:"outcome"`
	Action      string     `json:"action"`
	ProbeCalls  int        `json:"probe_calls"`
	StatusCalls int        `json:"status_calls"`
	FinalState  string     `json:"final_state,omitempty"`
	Detail      string     `json:"detail,omitempty"`
	StartedAt   time.Time  `json:"started_at"`
	FinishedAt  *time.Time `json:"finished_at,omitempty"`
	DurationMs  int64      `json:"duration_ms"`
	CreatedAt   time.Time  `json:"created_at"`
}

// ListOpts controls pagination for run queries.
type ListOpts struct {
	Limit  int
	Offset int
}

// RunStore is the interface for persisting and querying watchdog runs.
type RunStore interface {
	RecordRun(ctx context.Context, run *Run) error
	GetRun(ctx context.Context, id string) (*Run, error)
	ListRuns(ctx context.Context, opts ListOpts) ([]*Run, error)
}
