package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

// scheduleParser accepts standard 5-field cron expressions and descriptors like @hourly.
var scheduleParser = cron.NewParser(
	cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// ParseSchedule parses a daemon schedule expression.
func ParseSchedule(expr string) (cron.Schedule, error) {
	return scheduleParser.Parse(expr)
}

// Probe configures the outbound reachability check.
type Probe struct {
	URL                  string `yaml:"url"`
	TimeoutSeconds       int    `yaml:"timeout_seconds"`
	Attempts             int    `yaml:"attempts"`
	RetryIntervalSeconds int    `yaml:"retry_interval_seconds"`
}

// Control configures the proxy service control API endpoints and the
// remediation timing knobs.
type Control struct {
	StatusURL string `yaml:"status_url"`
	UpURL     string `yaml:"up_url"`
	DownURL   string `yaml:"down_url"`

	TimeoutSeconds int `yaml:"timeout_seconds"`
	Attempts       int `yaml:"attempts"`

	// Waits between retried stop/start requests, by failure class.
	TimeoutWaitSeconds int `yaml:"timeout_wait_seconds"`
	ConnectWaitSeconds int `yaml:"connect_wait_seconds"`
	FailureWaitSeconds int `yaml:"failure_wait_seconds"`

	// Settle durations after state-changing actions.
	StartSettleSeconds     int `yaml:"start_settle_seconds"`
	StopDrainSeconds       int `yaml:"stop_drain_seconds"`
	RestartSettleSeconds   int `yaml:"restart_settle_seconds"`
	PostRestartWaitSeconds int `yaml:"post_restart_wait_seconds"`
}

// Daemon configures the continuous mode: schedule, status API and history.
type Daemon struct {
	Schedule      string `yaml:"schedule"`
	Listen        string `yaml:"listen"`
	DataDirectory string `yaml:"data_directory"`
	HistoryLimit  int    `yaml:"history_limit"`
}

// Log configures log level, format and destination.
type Log struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"`
	Output     string `yaml:"output"`
	FilePath   string `yaml:"file_path"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

// Config represents configuration data for the watchdog.
type Config struct {
	Probe   Probe   `yaml:"probe"`
	Control Control `yaml:"control"`
	Daemon  Daemon  `yaml:"daemon"`
	Log     Log     `yaml:"log"`
}

// DefaultConfig returns sensible defaults in case no configuration file is provided.
// The endpoint defaults match a stock OpenClash control API on the local gateway.
func DefaultConfig() Config {
	return Config{
		Probe: Probe{
			URL:                  "https://www.google.com",
			TimeoutSeconds:       10,
			Attempts:             3,
			RetryIntervalSeconds: 30,
		},
		Control: Control{
			StatusURL:              "http://192.168.100.2:3789/api/v1.0/clash/status",
			UpURL:                  "http://192.168.100.2:3789/api/v1.0/clash/up",
			DownURL:                "http://192.168.100.2:3789/api/v1.0/clash/down",
			TimeoutSeconds:         10,
			Attempts:               3,
			TimeoutWaitSeconds:     3,
			ConnectWaitSeconds:     5,
			FailureWaitSeconds:     3,
			StartSettleSeconds:     15,
			StopDrainSeconds:       5,
			RestartSettleSeconds:   10,
			PostRestartWaitSeconds: 60,
		},
		Daemon: Daemon{
			Schedule:      "*/10 * * * *",
			Listen:        ":8080",
			DataDirectory: filepath.Join(".dist", "data"),
			HistoryLimit:  200,
		},
		Log: Log{
			Level:      "info",
			Format:     "text",
			Output:     "stdout",
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 14,
		},
	}
}

// Load reads configuration from a yaml file. Missing files fall back to defaults.
func Load(path string) (Config, error) {
	if path == "" {
		return DefaultConfig(), nil
	}

	content, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return DefaultConfig(), nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(content, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	applyDefaults(&cfg)
	if err := validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	def := DefaultConfig()

	if cfg.Probe.TimeoutSeconds <= 0 {
		cfg.Probe.TimeoutSeconds = def.Probe.TimeoutSeconds
	}
	if cfg.Probe.Attempts <= 0 {
		cfg.Probe.Attempts = def.Probe.Attempts
	}
	if cfg.Probe.RetryIntervalSeconds < 0 {
		cfg.Probe.RetryIntervalSeconds = def.Probe.RetryIntervalSeconds
	}

	if cfg.Control.TimeoutSeconds <= 0 {
		cfg.Control.TimeoutSeconds = def.Control.TimeoutSeconds
	}
	if cfg.Control.Attempts <= 0 {
		cfg.Control.Attempts = def.Control.Attempts
	}
	if cfg.Control.TimeoutWaitSeconds < 0 {
		cfg.Control.TimeoutWaitSeconds = def.Control.TimeoutWaitSeconds
	}
	if cfg.Control.ConnectWaitSeconds < 0 {
		cfg.Control.ConnectWaitSeconds = def.Control.ConnectWaitSeconds
	}
	if cfg.Control.FailureWaitSeconds < 0 {
		cfg.Control.FailureWaitSeconds = def.Control.FailureWaitSeconds
	}
	if cfg.Control.StartSettleSeconds < 0 {
		cfg.Control.StartSettleSeconds = def.Control.StartSettleSeconds
	}
	if cfg.Control.StopDrainSeconds < 0 {
		cfg.Control.StopDrainSeconds = def.Control.StopDrainSeconds
	}
	if cfg.Control.RestartSettleSeconds < 0 {
		cfg.Control.RestartSettleSeconds = def.Control.RestartSettleSeconds
	}
	if cfg.Control.PostRestartWaitSeconds < 0 {
		cfg.Control.PostRestartWaitSeconds = def.Control.PostRestartWaitSeconds
	}

	if cfg.Daemon.Schedule == "" {
		cfg.Daemon.Schedule = def.Daemon.Schedule
	}
	if cfg.Daemon.Listen == "" {
		cfg.Daemon.Listen = def.Daemon.Listen
	}
	if cfg.Daemon.DataDirectory == "" {
		cfg.Daemon.DataDirectory = def.Daemon.DataDirectory
	}
	if cfg.Daemon.HistoryLimit <= 0 {
		cfg.Daemon.HistoryLimit = def.Daemon.HistoryLimit
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = def.Log.Level
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = def.Log.Format
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = def.Log.Output
	}
	if cfg.Log.MaxSizeMB <= 0 {
		cfg.Log.MaxSizeMB = def.Log.MaxSizeMB
	}
	if cfg.Log.MaxBackups <= 0 {
		cfg.Log.MaxBackups = def.Log.MaxBackups
	}
	if cfg.Log.MaxAgeDays <= 0 {
		cfg.Log.MaxAgeDays = def.Log.MaxAgeDays
	}
}

func validate(cfg Config) error {
	if cfg.Probe.URL == "" {
		return errors.New("probe url is required")
	}
	if cfg.Control.StatusURL == "" {
		return errors.New("control status_url is required")
	}
	if cfg.Control.UpURL == "" {
		return errors.New("control up_url is required")
	}
	if cfg.Control.DownURL == "" {
		return errors.New("control down_url is required")
	}
	if _, err := ParseSchedule(cfg.Daemon.Schedule); err != nil {
		return fmt.Errorf("daemon schedule %q: %w", cfg.Daemon.Schedule, err)
	}
	if cfg.Log.Output == "file" && cfg.Log.FilePath == "" {
		return errors.New("log file_path is required when output is file")
	}
	return nil
}
