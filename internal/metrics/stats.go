package metrics

import (
	"math"
	"time"

	"netwatch/internal/models"
	"netwatch/internal/store"
)

// RunSummary summarises watchdog run history for the status API.
type RunSummary struct {
	TotalRuns      int     `json:"total_runs"`
	Reachable      int     `json:"reachable"`
	Recovered      int     `json:"recovered"`
	Unreachable    int     `json:"unreachable"`
	Starts         int     `json:"starts"`
	Restarts       int     `json:"restarts"`
	SuccessPercent float64 `json:"success_percent"`
	AvgDurationMs  float64 `json:"avg_duration_ms"`
	LastOutcome    string  `json:"last_outcome,omitempty"`
	LastFinished   string  `json:"last_finished,omitempty"`
}

// ComputeRunSummary aggregates statistics from run records. Runs are expected
// newest-first, as returned by the store.
func ComputeRunSummary(runs []*store.Run) RunSummary {
	var summary RunSummary
	var durationTotal int64
	var lastFinished time.Time

	for i, run := range runs {
		summary.TotalRuns++
		switch run.Outcome {
		case models.OutcomeReachable:
			summary.Reachable++
		case models.OutcomeRecovered:
			summary.Recovered++
		default:
			summary.Unreachable++
		}
		switch run.Action {
		case models.ActionStart:
			summary.Starts++
		case models.ActionRestart:
			summary.Restarts++
		}
		durationTotal += run.DurationMs

		if i == 0 {
			summary.LastOutcome = run.Outcome
			if run.FinishedAt != nil {
				lastFinished = *run.FinishedAt
			}
		}
	}

	if summary.TotalRuns > 0 {
		succeeded := summary.Reachable + summary.Recovered
		summary.SuccessPercent = round2(float64(succeeded) / float64(summary.TotalRuns) * 100)
		summary.AvgDurationMs = round2(float64(durationTotal) / float64(summary.TotalRuns))
	}
	if !lastFinished.IsZero() {
		summary.LastFinished = lastFinished.UTC().Format(time.RFC3339)
	}
	return summary
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
