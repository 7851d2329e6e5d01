package watchdog

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"netwatch/internal/config"
	"netwatch/internal/models"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// fakeProber returns scripted results; once the script runs out the last
// result repeats.
type fakeProber struct {
	results []bool
	calls   int
}

func (f *fakeProber) Check(context.Context) models.ProbeResult {
	i := f.calls
	f.calls++
	if i >= len(f.results) {
		i = len(f.results) - 1
	}
	ok := false
	if i >= 0 && len(f.results) > 0 {
		ok = f.results[i]
	}
	return models.ProbeResult{OK: ok, CheckedAt: time.Now().UTC()}
}

type fakeController struct {
	state     models.ServiceState
	startOK   bool
	restartOK bool

	statusCalls  int
	startCalls   int
	restartCalls int
}

func (f *fakeController) Status(context.Context) models.ServiceState {
	f.statusCalls++
	return f.state
}

func (f *fakeController) Start(context.Context) bool {
	f.startCalls++
	return f.startOK
}

func (f *fakeController) Restart(context.Context) bool {
	f.restartCalls++
	return f.restartOK
}

func newTestWatchdog(prober Prober, control Controller) (*Watchdog, *[]time.Duration) {
	cfg := config.DefaultConfig()
	wd := New(&cfg, prober, control, testLogger())

	var sleeps []time.Duration
	wd.sleep = func(d time.Duration) { sleeps = append(sleeps, d) }
	return wd, &sleeps
}

func TestRunReachableFirstTry(t *testing.T) {
	t.Parallel()

	prober := &fakeProber{results: []bool{true}}
	control := &fakeController{}
	wd, sleeps := newTestWatchdog(prober, control)

	report := wd.Run(context.Background())

	if report.Outcome != models.OutcomeReachable {
		t.Fatalf("expected reachable, got %q", report.Outcome)
	}
	if prober.calls != 1 {
		t.Fatalf("expected exactly one probe call, got %d", prober.calls)
	}
	if control.statusCalls+control.startCalls+control.restartCalls != 0 {
		t.Fatal("expected no control calls on a healthy network")
	}
	if report.Action != models.ActionNone {
		t.Fatalf("expected no action, got %q", report.Action)
	}
	if len(*sleeps) != 0 {
		t.Fatalf("expected no waits, got %v", *sleeps)
	}
	if !report.Succeeded() {
		t.Fatal("expected a successful report")
	}
}

func TestRunStartPathRecovers(t *testing.T) {
	t.Parallel()

	// Three failing probes, then success after the start.
	prober := &fakeProber{results: []bool{false, false, false, true}}
	control := &fakeController{state: models.StateStopped, startOK: true}
	wd, sleeps := newTestWatchdog(prober, control)

	report := wd.Run(context.Background())

	if report.Outcome != models.OutcomeRecovered {
		t.Fatalf("expected recovered, got %q", report.Outcome)
	}
	if report.Action != models.ActionStart {
		t.Fatalf("expected start action, got %q", report.Action)
	}
	if prober.calls != 4 {
		t.Fatalf("expected 4 probe calls (3 retries + post-start), got %d", prober.calls)
	}
	if control.statusCalls != 1 {
		t.Fatalf("expected one status call, got %d", control.statusCalls)
	}
	if control.startCalls != 1 {
		t.Fatalf("expected one start call, got %d", control.startCalls)
	}
	if control.restartCalls != 0 {
		t.Fatalf("expected no restart calls, got %d", control.restartCalls)
	}
	// Two 30s waits between the three failed probes; no post-restart wait.
	want := []time.Duration{30 * time.Second, 30 * time.Second}
	if len(*sleeps) != len(want) || (*sleeps)[0] != want[0] || (*sleeps)[1] != want[1] {
		t.Fatalf("expected sleeps %v, got %v", want, *sleeps)
	}
}

func TestRunStartFailureSkipsReprobe(t *testing.T) {
	t.Parallel()

	prober := &fakeProber{results: []bool{false}}
	control := &fakeController{state: models.StateStopped, startOK: false}
	wd, _ := newTestWatchdog(prober, control)

	report := wd.Run(context.Background())

	if report.Outcome != models.OutcomeUnreachable {
		t.Fatalf("expected unreachable, got %q", report.Outcome)
	}
	if prober.calls != 3 {
		t.Fatalf("expected only the 3 initial probes, got %d", prober.calls)
	}
	if control.startCalls != 1 {
		t.Fatalf("expected one start call, got %d", control.startCalls)
	}
}

func TestRunRestartPathRecovers(t *testing.T) {
	t.Parallel()

	prober := &fakeProber{results: []bool{false, false, false, true}}
	control := &fakeController{state: models.StateRunning, restartOK: true}
	wd, sleeps := newTestWatchdog(prober, control)

	report := wd.Run(context.Background())

	if report.Outcome != models.OutcomeRecovered {
		t.Fatalf("expected recovered, got %q", report.Outcome)
	}
	if report.Action != models.ActionRestart {
		t.Fatalf("expected restart action, got %q", report.Action)
	}
	if control.restartCalls != 1 {
		t.Fatalf("expected one restart call, got %d", control.restartCalls)
	}
	if control.startCalls != 0 {
		t.Fatalf("expected no direct start calls, got %d", control.startCalls)
	}
	// No diagnostic status check when the re-probe succeeds.
	if control.statusCalls != 1 {
		t.Fatalf("expected one status call, got %d", control.statusCalls)
	}
	// Two probe retries plus the 60s post-restart wait.
	want := []time.Duration{30 * time.Second, 30 * time.Second, 60 * time.Second}
	if len(*sleeps) != 3 || (*sleeps)[2] != want[2] {
		t.Fatalf("expected sleeps %v, got %v", want, *sleeps)
	}
}

func TestRunRestartStillDownRunsDiagnosticStatus(t *testing.T) {
	t.Parallel()

	prober := &fakeProber{results: []bool{false}}
	control := &fakeController{state: models.StateRunning, restartOK: true}
	wd, _ := newTestWatchdog(prober, control)

	report := wd.Run(context.Background())

	if report.Outcome != models.OutcomeUnreachable {
		t.Fatalf("expected unreachable, got %q", report.Outcome)
	}
	if prober.calls != 4 {
		t.Fatalf("expected 4 probe calls, got %d", prober.calls)
	}
	// One diagnostic status check on top of the initial one.
	if control.statusCalls != 2 {
		t.Fatalf("expected 2 status calls, got %d", control.statusCalls)
	}
	if report.Detail == "" {
		t.Fatal("expected a diagnostic detail on continued failure")
	}
}

func TestRunRestartFailureSkipsReprobe(t *testing.T) {
	t.Parallel()

	prober := &fakeProber{results: []bool{false}}
	control := &fakeController{state: models.StateRunning, restartOK: false}
	wd, sleeps := newTestWatchdog(prober, control)

	report := wd.Run(context.Background())

	if report.Outcome != models.OutcomeUnreachable {
		t.Fatalf("expected unreachable, got %q", report.Outcome)
	}
	if prober.calls != 3 {
		t.Fatalf("expected only the 3 initial probes, got %d", prober.calls)
	}
	if control.statusCalls != 1 {
		t.Fatalf("expected no diagnostic status check after failed restart, got %d", control.statusCalls)
	}
	// No post-restart wait when the restart itself failed.
	for _, d := range *sleeps {
		if d == 60*time.Second {
			t.Fatal("unexpected post-restart wait after failed restart")
		}
	}
}
