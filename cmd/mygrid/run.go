package main

import (
	"context"
	"fmt"
	"os"

	"github.com/gostonefire/mygrid-scheduler/internal/logger"
	"github.com/gostonefire/mygrid-scheduler/internal/worker"
	"github.com/spf13/cobra"
)

var (
	runConfigPath string
	runDebug      bool
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Execute one planning run (cron mode)",
	Long: `Execute one planning run and exit. This is the mode to invoke from
cron, typically nightly once the next day's Nord Pool prices are out:

    0 23 * * * mygrid run --config=/etc/mygrid/config.toml

The run polls the inverter, fetches forecast and day-ahead prices, plans
the battery blocks and persists schedule and base data. A report mail is
sent on both success and failure, and the exit code reflects the outcome
so failures land in the journal.`,
	Run: runHandler,
}

func runHandler(cmd *cobra.Command, args []string) {
	cfg := loadConfig(runConfigPath)

	if runDebug {
		cfg.General.LogLevel = "debug"
	}

	log := newLogger(cfg)

	log.Info("🔋 Starting mygrid planning run",
		logger.Field{Key: "version", Value: Version},
		logger.Field{Key: "git_commit", Value: GitCommit},
	)

	managers, err := buildManagers(cfg, log)
	if err != nil {
		log.Error("Initialization failed", err)
		os.Exit(1)
	}

	sender := newMailSender(cfg, log)
	ctx := context.Background()

	if _, err := worker.Run(ctx, managers, cfg.Files); err != nil {
		log.Error("Run failed", err)
		if sender != nil {
			if mailErr := sender.Send(ctx, "Error in scheduler", fmt.Sprintf("Run failed: %v", err)); mailErr != nil {
				log.Warn("failed to send report mail", logger.Field{Key: "error", Value: mailErr.Error()})
			}
		}
		os.Exit(1)
	}

	if sender != nil {
		if err := sender.Send(ctx, "Report", "Successfully created new schedule"); err != nil {
			log.Warn("failed to send report mail", logger.Field{Key: "error", Value: err.Error()})
		}
	}

	log.Info("✅ Planning run finished")
}

func init() {
	runCmd.Flags().StringVar(&runConfigPath, "config", "", "Path to configuration file (default: config.toml)")
	runCmd.Flags().BoolVar(&runDebug, "debug", false, "Enable debug logging")
}
