package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/rozadev/roza/cmd/common"
	"github.com/rozadev/roza/internal/config"
	rdaemon "github.com/rozadev/roza/internal/daemon"
	"github.com/rozadev/roza/internal/scheduler"
	"github.com/rozadev/roza/pkg/logger"
	"github.com/urfave/cli"
)

const (
	tickJob    = "tick"
	refreshJob = "location-refresh"
)

// loadConfig reads the config named by --config, ROZA_CONFIG or the default
// path, applying the --log-format override.
var loadConfig = func() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if logFormat != "" {
		cfg.Daemon.LogFormat = logFormat
	}
	return cfg, nil
}

// newDaemonLogger logs to stderr, and also to the configured log file.
func newDaemonLogger(cfg *config.Config, stderr io.Writer) (logger.Logger, error) {
	console := logger.New(stderr, cfg.Daemon.LogFormat)
	if cfg.Daemon.LogFile == "" {
		return console, nil
	}
	f, err := os.OpenFile(cfg.Daemon.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("error: cannot open log file: %w", err)
	}
	return logger.NewMultiLogger(console, logger.New(f, cfg.Daemon.LogFormat)), nil
}

func daemon(ctx *cli.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		common.PrintRuntimeErr(ctx, "daemon", "load_config", err)
		return nil
	}
	if err := cfg.EnsureDir(); err != nil {
		common.PrintRuntimeErr(ctx, "daemon", "config_dir", err)
		return nil
	}
	log, err := newDaemonLogger(cfg, os.Stderr)
	if err != nil {
		common.PrintRuntimeErr(ctx, "daemon", "logger", err)
		return nil
	}
	defer log.Close()

	if pid, err := ReadPidFile(cfg); err == nil && pid != os.Getpid() && isProcessRunning(pid) {
		common.PrintRuntimeErr(ctx, "daemon", "pidfile", fmt.Errorf("daemon already running (PID %d)", pid))
		return nil
	}
	if err := WritePidFile(cfg); err != nil {
		common.PrintRuntimeErr(ctx, "daemon", "pidfile", err)
		return nil
	}
	defer RemovePidFile(cfg)

	comps, err := initDaemonComponents(cfg, log)
	if err != nil {
		common.PrintRuntimeErr(ctx, "daemon", "init", err)
		return nil
	}
	defer comps.Close()

	sigCtx, cancel := setupShutdownHandler()
	defer cancel()
	if err := runDaemon(sigCtx, comps, log); err != nil {
		common.PrintRuntimeErr(ctx, "daemon", "run", err)
	}
	return nil
}

// runDaemon schedules the jobs and serves until ctx is canceled.
func runDaemon(ctx context.Context, comps *DaemonComponents, log logger.Logger) error {
	cfg := comps.Config
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	sched := scheduler.New(ctx, log)
	if err := sched.Add(scheduler.Job{
		Name:       tickJob,
		Interval:   cfg.Tracking.Tick,
		RunAtStart: true,
		Run:        comps.Service.Tick,
	}); err != nil {
		return err
	}
	if cfg.Location.Refresh != "" {
		if err := sched.Add(scheduler.Job{
			Name:       refreshJob,
			CronExpr:   cfg.Location.Refresh,
			RunAtStart: true,
			Run:        comps.Service.RefreshLocation,
		}); err != nil {
			return err
		}
	}

	runner := rdaemon.New(&rdaemon.Config{
		Listen:   cfg.Daemon.Listen,
		MaxConns: cfg.Daemon.MaxConns,
	}, &rdaemon.Dependencies{
		Serve:        comps.Web.Serve,
		ShutdownFunc: comps.Web.Shutdown,
	})
	// Start outlives ctx until the graceful Shutdown has run.
	startCtx, stopStart := context.WithCancel(context.Background())
	defer stopStart()
	go func() {
		<-ctx.Done()
		if err := runner.Shutdown(); err != nil && !errors.Is(err, rdaemon.ErrNotRunning) {
			log.Warning("shutdown: %v", err)
		}
		stopStart()
	}()

	log.Info("Daemon starting on %s", cfg.Daemon.Listen)
	err := runner.Start(startCtx)
	cancel()
	<-sched.Done()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
