package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Probe.URL != "https://www.google.com" {
		t.Fatalf("unexpected default probe url %q", cfg.Probe.URL)
	}
	if cfg.Probe.Attempts != 3 {
		t.Fatalf("expected 3 probe attempts, got %d", cfg.Probe.Attempts)
	}
	if cfg.Probe.RetryIntervalSeconds != 30 {
		t.Fatalf("expected 30s retry interval, got %d", cfg.Probe.RetryIntervalSeconds)
	}
	if cfg.Control.StartSettleSeconds != 15 {
		t.Fatalf("expected 15s start settle, got %d", cfg.Control.StartSettleSeconds)
	}
	if cfg.Control.PostRestartWaitSeconds != 60 {
		t.Fatalf("expected 60s post-restart wait, got %d", cfg.Control.PostRestartWaitSeconds)
	}
	if cfg.Daemon.Listen != ":8080" {
		t.Fatalf("unexpected default listen %q", cfg.Daemon.Listen)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Parallel()

	body := `
probe:
  url: "https://example.com/generate_204"
  attempts: 5
control:
  status_url: "http://router:3789/api/v1.0/clash/status"
  up_url: "http://router:3789/api/v1.0/clash/up"
  down_url: "http://router:3789/api/v1.0/clash/down"
  connect_wait_seconds: 7
daemon:
  schedule: "@hourly"
log:
  level: debug
`
	path := filepath.Join(t.TempDir(), "netwatch.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Probe.URL != "https://example.com/generate_204" {
		t.Fatalf("probe url not overridden: %q", cfg.Probe.URL)
	}
	if cfg.Probe.Attempts != 5 {
		t.Fatalf("probe attempts not overridden: %d", cfg.Probe.Attempts)
	}
	if cfg.Control.ConnectWaitSeconds != 7 {
		t.Fatalf("connect wait not overridden: %d", cfg.Control.ConnectWaitSeconds)
	}
	if cfg.Daemon.Schedule != "@hourly" {
		t.Fatalf("schedule not overridden: %q", cfg.Daemon.Schedule)
	}
	// Unset fields still get defaults.
	if cfg.Control.TimeoutSeconds != 10 {
		t.Fatalf("expected default control timeout, got %d", cfg.Control.TimeoutSeconds)
	}
	if cfg.Log.Level != "debug" {
		t.Fatalf("log level not overridden: %q", cfg.Log.Level)
	}
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		body string
	}{
		{"empty probe url", "probe:\n  url: \"\"\n"},
		{"bad schedule", "daemon:\n  schedule: \"not a schedule\"\n"},
		{"file output without path", "log:\n  output: file\n"},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			path := filepath.Join(t.TempDir(), "netwatch.yaml")
			if err := os.WriteFile(path, []byte(tc.body), 0o644); err != nil {
				t.Fatalf("write config: %v", err)
			}
			if _, err := Load(path); err == nil {
				t.Fatal("expected validation error, got nil")
			}
		})
	}
}

func TestParseSchedule(t *testing.T) {
	t.Parallel()

	if _, err := ParseSchedule("*/10 * * * *"); err != nil {
		t.Fatalf("ParseSchedule standard: %v", err)
	}
	if _, err := ParseSchedule("@every 5m"); err != nil {
		t.Fatalf("ParseSchedule descriptor: %v", err)
	}
	if _, err := ParseSchedule("nope"); err == nil {
		t.Fatal("expected error for invalid expression")
	}
}
