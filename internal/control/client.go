package control

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"netwatch/internal/config"
	"netwatch/internal/models"
)

// fallbackStartAttempts bounds the extra start round after a failed start
// during a restart sequence.
const fallbackStartAttempts = 2

const maxStatusBody = 1 << 20

// Doer issues a single HTTP request.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client drives the proxy service through its HTTP control API: one endpoint
// each for status, up and down.
type Client struct {
	statusURL string
	upURL     string
	downURL   string

	timeout  time.Duration
	attempts int

	timeoutWait time.Duration
	connectWait time.Duration
	failureWait time.Duration

	startSettle   time.Duration
	stopDrain     time.Duration
	restartSettle time.Duration

	client Doer
	log    *logrus.Logger

	// sleep is swapped out in tests.
	sleep func(time.Duration)
}

// New creates a control client from configuration.
func New(cfg config.Control, client Doer, log *logrus.Logger) *Client {
	if client == nil {
		client = &http.Client{}
	}
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	attempts := cfg.Attempts
	if attempts <= 0 {
		attempts = 3
	}
	return &Client{
		statusURL:     cfg.StatusURL,
		upURL:         cfg.UpURL,
		downURL:       cfg.DownURL,
		timeout:       timeout,
		attempts:      attempts,
		timeoutWait:   time.Duration(cfg.TimeoutWaitSeconds) * time.Second,
		connectWait:   time.Duration(cfg.ConnectWaitSeconds) * time.Second,
		failureWait:   time.Duration(cfg.FailureWaitSeconds) * time.Second,
		startSettle:   time.Duration(cfg.StartSettleSeconds) * time.Second,
		stopDrain:     time.Duration(cfg.StopDrainSeconds) * time.Second,
		restartSettle: time.Duration(cfg.RestartSettleSeconds) * time.Second,
		client:        client,
		log:           log,
		sleep:         time.Sleep,
	}
}

func (c *Client) get(ctx context.Context, url string) (*http.Response, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	return c.client.Do(req)
}

// Status queries the control API once and infers whether the proxy service is
// active. A responsive but ambiguous answer (200 with no recognised status
// field, or a non-JSON body) is optimistically treated as running; anything
// that prevents a confirmed answer is treated as not running.
func (c *Client) Status(ctx context.Context) models.ServiceState {
	response, err := c.get(ctx, c.statusURL)
	if err != nil {
		switch classify(err) {
		case kindTimeout:
			c.log.Error("service status check timed out")
		case kindConnection:
			c.log.Error("cannot reach the control API (service may not be started)")
		default:
			c.log.Errorf("service status check failed: %v", err)
		}
		return models.StateStopped
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		c.log.Errorf("service status check returned status %d", response.StatusCode)
		return models.StateStopped
	}

	body, _ := io.ReadAll(io.LimitReader(response.Body, maxStatusBody))
	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		c.log.Info("control API responded 200 with a non-JSON body, assuming the service is running")
		return models.StateRunning
	}

	state, field := InferState(payload)
	switch state {
	case models.StateRunning:
		c.log.Infof("proxy service is running (%s=%v)", field, payload[field])
	case models.StateStopped:
		c.log.Infof("proxy service is not running (%s=%v)", field, payload[field])
	default:
		c.log.Info("control API exposed no recognised status field, assuming the service is running")
		return models.StateRunning
	}
	return state
}

// Start asks the control API to bring the proxy service up and waits for it
// to settle. There is no retry at this level.
func (c *Client) Start(ctx context.Context) bool {
	c.log.Info("starting proxy service")
	response, err := c.get(ctx, c.upURL)
	if err != nil {
		c.log.Errorf("start request failed: %v", err)
		return false
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		c.log.Errorf("start request returned status %d", response.StatusCode)
		return false
	}

	c.log.Infof("start accepted, waiting %s for the service to come up", c.startSettle)
	c.sleep(c.startSettle)
	return true
}

// Restart stops and then starts the proxy service. Both requests are retried
// independently; a failed stop aborts the restart outright, a failed start
// gets one bounded fallback round. Anything unexpected thrown mid-sequence is
// converted into a reported failure.
func (c *Client) Restart(ctx context.Context) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			c.log.Errorf("restart aborted by unexpected error: %v", r)
			ok = false
		}
	}()

	c.log.Info("restarting proxy service")
	if !c.execute(ctx, c.downURL, "stop service", c.attempts) {
		c.log.Error("stop failed, aborting restart")
		return false
	}

	c.log.Infof("waiting %s for the service to drain", c.stopDrain)
	c.sleep(c.stopDrain)

	if !c.execute(ctx, c.upURL, "start service", c.attempts) {
		c.log.Info("start failed, trying once more")
		c.sleep(c.failureWait)
		if !c.execute(ctx, c.upURL, "start service (fallback)", fallbackStartAttempts) {
			c.log.Error("fallback start failed, manual intervention required")
			return false
		}
	}

	c.log.Infof("start accepted, waiting %s for the service to settle", c.restartSettle)
	c.sleep(c.restartSettle)
	c.log.Info("proxy service restart complete")
	return true
}

// execute issues a GET with bounded retries. Timeouts, connection errors and
// other failures (including non-200 responses) each wait their configured
// interval before the next attempt.
func (c *Client) execute(ctx context.Context, url, operation string, attempts int) bool {
	for attempt := 1; attempt <= attempts; attempt++ {
		c.log.Infof("%s (attempt %d/%d)", operation, attempt, attempts)

		var wait time.Duration
		response, err := c.get(ctx, url)
		if err == nil {
			_, _ = io.Copy(io.Discard, response.Body)
			response.Body.Close()
			if response.StatusCode == http.StatusOK {
				c.log.Infof("%s succeeded", operation)
				return true
			}
			c.log.Errorf("%s returned status %d", operation, response.StatusCode)
			wait = c.failureWait
		} else {
			switch classify(err) {
			case kindTimeout:
				c.log.Errorf("%s timed out", operation)
				wait = c.timeoutWait
			case kindConnection:
				c.log.Errorf("%s connection error: %v", operation, err)
				wait = c.connectWait
			default:
				c.log.Errorf("%s failed: %v", operation, err)
				wait = c.failureWait
			}
		}

		if attempt < attempts {
			c.log.Infof("retrying in %s", wait)
			c.sleep(wait)
		}
	}

	c.log.Errorf("%s failed after %d attempts", operation, attempts)
	return false
}

type errKind int

const (
	kindOther errKind = iota
	kindTimeout
	kindConnection
)

// classify buckets a request error into the classes that drive distinct
// retry waits.
func classify(err error) errKind {
	if errors.Is(err, context.DeadlineExceeded) {
		return kindTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return kindTimeout
	}
	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.EHOSTUNREACH) {
		return kindConnection
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return kindConnection
	}
	return kindOther
}
