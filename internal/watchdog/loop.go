package watchdog

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"netwatch/internal/realtime"
	"netwatch/internal/store"
)

// Loop fires a watchdog run at each activation of a cron schedule, records
// the run and publishes realtime events. Used in daemon mode.
type Loop struct {
	wd       *Watchdog
	schedule cron.Schedule
	store    store.RunStore
	events   *realtime.Broker
	log      *logrus.Logger

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewLoop creates a daemon loop around the watchdog.
func NewLoop(wd *Watchdog, schedule cron.Schedule, st store.RunStore, events *realtime.Broker, log *logrus.Logger) *Loop {
	return &Loop{
		wd:       wd,
		schedule: schedule,
		store:    st,
		events:   events,
		log:      log,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start launches the loop in a goroutine.
func (l *Loop) Start() {
	go l.run()
}

// Stop requests graceful loop termination and waits until it is done.
func (l *Loop) Stop() {
	select {
	case <-l.doneCh:
		return
	default:
	}
	close(l.stopCh)
	<-l.doneCh
}

func (l *Loop) run() {
	defer close(l.doneCh)

	for {
		next := l.schedule.Next(time.Now())
		l.log.Infof("next watchdog run at %s", next.Format(time.RFC3339))

		timer := time.NewTimer(time.Until(next))
		select {
		case <-timer.C:
			l.runOnce()
		case <-l.stopCh:
			timer.Stop()
			return
		}
	}
}

// RunOnce executes a single watchdog run, records it and returns the stored
// record.
func (l *Loop) RunOnce(ctx context.Context) *store.Run {
	id := store.NewRunID()
	l.events.Publish(realtime.Event{Type: realtime.EventRunStarted, RunID: id})

	report := l.wd.Run(ctx)

	finished := report.FinishedAt
	record := &store.Run{
		ID:          id,
		Outcome:     report.Outcome,
		Action:      report.Action,
		ProbeCalls:  report.ProbeCalls,
		StatusCalls: report.StatusCalls,
		FinalState:  string(report.FinalState),
		Detail:      report.Detail,
		StartedAt:   report.StartedAt,
		FinishedAt:  &finished,
		DurationMs:  report.FinishedAt.Sub(report.StartedAt).Milliseconds(),
	}
	if err := l.store.RecordRun(ctx, record); err != nil {
		l.log.Errorf("record run: %v", err)
	}

	l.events.Publish(realtime.Event{
		Type:    realtime.EventRunCompleted,
		RunID:   id,
		Outcome: report.Outcome,
		Action:  report.Action,
	})
	return record
}

func (l *Loop) runOnce() {
	l.RunOnce(context.Background())
}
