package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"netwatch/internal/config"
	"netwatch/internal/control"
	"netwatch/internal/logging"
	"netwatch/internal/probe"
	"netwatch/internal/realtime"
	"netwatch/internal/server"
	"netwatch/internal/store"
	"netwatch/internal/watchdog"
)

func main() {
	var (
		configPath = flag.String("config", "netwatch.yaml", "path to configuration file (YAML)")
		daemon     = flag.Bool("daemon", false, "run continuously on the configured schedule and serve the status API")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(2)
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "initialise logging: %v\n", err)
		os.Exit(2)
	}

	prober := probe.New(cfg.Probe, nil, logger)
	controller := control.New(cfg.Control, nil, logger)
	wd := watchdog.New(&cfg, prober, controller, logger)

	if !*daemon {
		report := wd.Run(context.Background())
		if report.Succeeded() {
			os.Exit(0)
		}
		os.Exit(1)
	}

	os.Exit(runDaemon(cfg, wd, logger))
}

func runDaemon(cfg config.Config, wd *watchdog.Watchdog, logger *logrus.Logger) int {
	schedule, err := config.ParseSchedule(cfg.Daemon.Schedule)
	if err != nil {
		logger.Errorf("parse schedule: %v", err)
		return 2
	}

	if err := os.MkdirAll(cfg.Daemon.DataDirectory, 0o755); err != nil {
		logger.Errorf("create data directory %s: %v", cfg.Daemon.DataDirectory, err)
		return 2
	}

	dbPath := filepath.Join(cfg.Daemon.DataDirectory, "netwatch.db")
	st, err := store.NewSQLiteStore(dbPath)
	if err != nil {
		logger.Errorf("open store: %v", err)
		return 2
	}
	defer st.Close()
	logger.Infof("store opened at %s", dbPath)

	events := realtime.NewBroker()

	loop := watchdog.NewLoop(wd, schedule, st, events, logger)
	loop.Start()
	defer loop.Stop()

	srv := server.New(cfg.Daemon.Listen, st, events, cfg.Daemon.HistoryLimit, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Errorf("server shutdown: %v", err)
		}
	}()

	logger.Infof("netwatch daemon listening on %s (schedule %q)", cfg.Daemon.Listen, cfg.Daemon.Schedule)
	if err := srv.Run(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Errorf("server error: %v", err)
		return 1
	}
	return 0
}
