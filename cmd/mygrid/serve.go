package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/gostonefire/mygrid-scheduler/internal/daemon"
	"github.com/gostonefire/mygrid-scheduler/internal/logger"
	"github.com/spf13/cobra"
)

var (
	serveConfigPath string
	serveLogLevel   string
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run as a long-running daemon (systemd mode)",
	Long: `Run mygrid as a long-running daemon. An in-process cron fires the
planning run on the configured schedule (default 23:00), a monitor loop
tracks the active block against the live inverter state of charge, and
Prometheus metrics are served on the configured address.

This is the mode to run under systemd; logs go to stdout for journald.`,
	Run: serveHandler,
}

func serveHandler(cmd *cobra.Command, args []string) {
	cfg := loadConfig(serveConfigPath)

	if serveLogLevel != "" {
		cfg.General.LogLevel = serveLogLevel
	}

	log := newLogger(cfg)

	log.Info("🔋 Starting mygrid daemon",
		logger.Field{Key: "version", Value: Version},
		logger.Field{Key: "git_commit", Value: GitCommit},
		logger.Field{Key: "cron", Value: cfg.Daemon.CronSpec},
		logger.Field{Key: "metrics", Value: cfg.Daemon.MetricsListenAddr},
	)

	managers, err := buildManagers(cfg, log)
	if err != nil {
		log.Error("Initialization failed", err)
		os.Exit(1)
	}

	sender := newMailSender(cfg, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		log.Info("signal received", logger.Field{Key: "signal", Value: sig.String()})
		cancel()
	}()

	d := daemon.New(cfg, managers, sender, log)
	if err := d.Run(ctx); err != nil {
		log.Error("Daemon failed", err)
		os.Exit(1)
	}

	log.Info("👋 mygrid daemon stopped")
}

func init() {
	serveCmd.Flags().StringVar(&serveConfigPath, "config", "", "Path to configuration file (default: config.toml)")
	serveCmd.Flags().StringVar(&serveLogLevel, "log-level", "", "Override configured log level")
}
