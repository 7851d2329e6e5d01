package models

import "time"

// ProbeResult captures the outcome of a single reachability probe.
type ProbeResult struct {
	URL        string    `json:"url"`
	OK         bool      `json:"ok"`
	StatusCode int       `json:"status_code,omitempty"`
	LatencyMs  int64     `json:"latency_ms,omitempty"`
	Error      string    `json:"error,omitempty"`
	CheckedAt  time.Time `json:"checked_at"`
}

// ServiceState is the inferred state of the proxy service. The control API
// schema is not owned by this program, so "unknown" covers responsive but
// ambiguous answers.
type ServiceState string

const (
	StateRunning ServiceState = "running"
	StateStopped ServiceState = "stopped"
	StateUnknown ServiceState = "unknown"
)

// Outcomes of a watchdog run.
const (
	OutcomeReachable   = "reachable"
	OutcomeRecovered   = "recovered"
	OutcomeUnreachable = "unreachable"
)

// Remediation actions a run may take.
const (
	ActionNone    = "none"
	ActionStart   = "start"
	ActionRestart = "restart"
)

// RunReport summarises a single watchdog run.
type RunReport struct {
	Outcome     string       `json:"outcome"`
	Action      string       `json:"action"`
	ProbeCalls  int          `json:"probe_calls"`
	StatusCalls int          `json:"status_calls"`
	FinalState  ServiceState `json:"final_state,omitempty"`
	Detail      string       `json:"detail,omitempty"`
	StartedAt   time.Time    `json:"started_at"`
	FinishedAt  time.Time    `json:"finished_at"`
}

// Succeeded reports whether the run ended with a working network.
func (r RunReport) Succeeded() bool {
	return r.Outcome == OutcomeReachable || r.Outcome == OutcomeRecovered
}
