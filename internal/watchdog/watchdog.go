package watchdog

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"netwatch/internal/config"
	"netwatch/internal/models"
)

// Prober verifies outbound reachability.
type Prober interface {
	Check(ctx context.Context) models.ProbeResult
}

// Controller drives the proxy service control API.
type Controller interface {
	Status(ctx context.Context) models.ServiceState
	Start(ctx context.Context) bool
	Restart(ctx context.Context) bool
}

// Watchdog runs the diagnose-and-repair decision procedure: probe the
// network, and if it is down, start or restart the proxy service depending on
// its reported state, then re-probe.
type Watchdog struct {
	prober  Prober
	control Controller

	attempts        int
	retryInterval   time.Duration
	postRestartWait time.Duration

	log *logrus.Logger

	// sleep is swapped out in tests.
	sleep func(time.Duration)
}

// New creates a watchdog over the given prober and controller.
func New(cfg *config.Config, prober Prober, control Controller, log *logrus.Logger) *Watchdog {
	attempts := cfg.Probe.Attempts
	if attempts <= 0 {
		attempts = 3
	}
	return &Watchdog{
		prober:          prober,
		control:         control,
		attempts:        attempts,
		retryInterval:   time.Duration(cfg.Probe.RetryIntervalSeconds) * time.Second,
		postRestartWait: time.Duration(cfg.Control.PostRestartWaitSeconds) * time.Second,
		log:             log,
		sleep:           time.Sleep,
	}
}

// Run executes one watchdog pass. All failures along the way are absorbed
// into the report; the run terminates on the first confirmed-reachable probe.
func (w *Watchdog) Run(ctx context.Context) models.RunReport {
	report := models.RunReport{
		Outcome:   models.OutcomeUnreachable,
		Action:    models.ActionNone,
		StartedAt: time.Now().UTC(),
	}

	w.log.Info("starting network health check")

	for attempt := 1; attempt <= w.attempts; attempt++ {
		w.log.Infof("reachability probe %d/%d", attempt, w.attempts)
		report.ProbeCalls++
		if w.prober.Check(ctx).OK {
			report.Outcome = models.OutcomeReachable
			w.log.Info("network is reachable, nothing to do")
			return w.finish(report)
		}
		if attempt < w.attempts {
			w.log.Infof("retrying in %s", w.retryInterval)
			w.sleep(w.retryInterval)
		}
	}

	w.log.Warn("all reachability probes failed, diagnosing proxy service")
	report.StatusCalls++
	state := w.control.Status(ctx)
	report.FinalState = state

	if state != models.StateRunning {
		return w.finish(w.repairByStart(ctx, report))
	}
	return w.finish(w.repairByRestart(ctx, report))
}

// repairByStart handles the service-not-running branch: start, then re-probe
// once.
func (w *Watchdog) repairByStart(ctx context.Context, report models.RunReport) models.RunReport {
	w.log.Info("proxy service is not running, attempting start")
	report.Action = models.ActionStart

	if !w.control.Start(ctx) {
		report.Detail = "proxy service start failed"
		w.log.Error("proxy service start failed, manual intervention required")
		return report
	}

	report.ProbeCalls++
	if w.prober.Check(ctx).OK {
		report.Outcome = models.OutcomeRecovered
		w.log.Info("network recovered after starting the proxy service")
		return report
	}

	report.Detail = "network still unreachable after start"
	w.log.Error("network still unreachable after start, check the proxy configuration")
	return report
}

// repairByRestart handles the running-but-broken branch: restart, wait for
// the proxy to recover, re-probe once, and on continued failure run one final
// status check purely for the operator's benefit.
func (w *Watchdog) repairByRestart(ctx context.Context, report models.RunReport) models.RunReport {
	w.log.Info("proxy service is running but the network is unreachable, attempting restart")
	report.Action = models.ActionRestart

	if !w.control.Restart(ctx) {
		report.Detail = "proxy service restart failed"
		w.log.Error("proxy service restart failed, manual intervention required")
		return report
	}

	w.log.Infof("restart complete, waiting %s before re-probing", w.postRestartWait)
	w.sleep(w.postRestartWait)

	report.ProbeCalls++
	if w.prober.Check(ctx).OK {
		report.Outcome = models.OutcomeRecovered
		w.log.Info("network recovered after restarting the proxy service")
		return report
	}

	w.log.Error("network still unreachable after restart")
	report.Detail = "network still unreachable after restart"

	// Final status check does not change the outcome.
	report.StatusCalls++
	state := w.control.Status(ctx)
	report.FinalState = state
	if state == models.StateRunning {
		w.log.Warn("proxy service reports healthy; likely a proxy configuration issue, an upstream outage, or the target being blocked")
	} else {
		w.log.Error("proxy service is unhealthy after restart, manual intervention required")
	}
	return report
}

func (w *Watchdog) finish(report models.RunReport) models.RunReport {
	report.FinishedAt = time.Now().UTC()
	w.log.Infof("watchdog run finished: outcome=%s action=%s probes=%d", report.Outcome, report.Action, report.ProbeCalls)
	return report
}
