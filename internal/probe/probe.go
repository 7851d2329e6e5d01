package probe

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"netwatch/internal/config"
	"netwatch/internal/models"
)

// Doer issues a single HTTP request. *http.Client satisfies it; tests
// substitute scripted responses.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Prober verifies outbound reachability against a fixed external URL.
type Prober struct {
	url     string
	timeout time.Duration
	client  Doer
	log     *logrus.Logger
}

// New creates a prober for the configured endpoint.
func New(cfg config.Probe, client Doer, log *logrus.Logger) *Prober {
	if client == nil {
		client = &http.Client{}
	}
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Prober{
		url:     cfg.URL,
		timeout: timeout,
		client:  client,
		log:     log,
	}
}

// Check issues one GET and reports reachable iff the response is exactly 200
// within the timeout window. Transport errors, timeouts and non-200 responses
// all collapse into the same failed result; no error escapes to the caller.
func (p *Prober) Check(ctx context.Context) models.ProbeResult {
	start := time.Now()
	res := models.ProbeResult{
		URL:       p.url,
		CheckedAt: start.UTC(),
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		res.Error = err.Error()
		p.log.Errorf("reachability probe failed: %v", err)
		return res
	}

	response, err := p.client.Do(req)
	if err != nil {
		msg := err.Error()
		if errors.Is(err, context.DeadlineExceeded) {
			msg = "request timed out"
		}
		res.Error = msg
		p.log.Errorf("cannot reach %s: %s", p.url, msg)
		return res
	}
	defer response.Body.Close()
	_, _ = io.Copy(io.Discard, response.Body)

	res.StatusCode = response.StatusCode
	res.LatencyMs = time.Since(start).Milliseconds()
	if response.StatusCode == http.StatusOK {
		res.OK = true
		p.log.Infof("reachability probe ok (%d ms)", res.LatencyMs)
	} else {
		res.Error = http.StatusText(response.StatusCode)
		p.log.Errorf("reachability probe returned status %d", response.StatusCode)
	}
	return res
}
