package main

import (
	"fmt"
	"os"

	"github.com/gostonefire/mygrid-scheduler/internal/config"
	"github.com/gostonefire/mygrid-scheduler/internal/consumption"
	"github.com/gostonefire/mygrid-scheduler/internal/forecast"
	"github.com/gostonefire/mygrid-scheduler/internal/foxcloud"
	"github.com/gostonefire/mygrid-scheduler/internal/logger"
	"github.com/gostonefire/mygrid-scheduler/internal/mail"
	"github.com/gostonefire/mygrid-scheduler/internal/nordpool"
	"github.com/gostonefire/mygrid-scheduler/internal/production"
	"github.com/gostonefire/mygrid-scheduler/internal/scheduler"
	"github.com/gostonefire/mygrid-scheduler/internal/worker"
)

// loadConfig loads and validates the configuration, printing problems to
// stderr and exiting on failure.
func loadConfig(configPath string) *config.Config {
	if configPath == "" {
		configPath = "config.toml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Printf("❌ Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if errors := cfg.Validate(); len(errors) > 0 {
		fmt.Printf("❌ Configuration validation failed:\n")
		for _, e := range errors {
			fmt.Printf("  - %v\n", e)
		}
		os.Exit(1)
	}

	return cfg
}

// newLogger builds the logger from the general config section and makes
// it the default.
func newLogger(cfg *config.Config) *logger.Logger {
	log, err := logger.New(logger.Config{
		Level:  cfg.General.LogLevel,
		Format: cfg.General.LogFormat,
		Output: cfg.General.LogOutput,
	})
	if err != nil {
		fmt.Printf("❌ Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	logger.SetDefault(log)

	return log
}

// buildManagers wires all clients and estimators for a planning run.
func buildManagers(cfg *config.Config, log *logger.Logger) (*worker.Managers, error) {
	cons, err := consumption.New(cfg.Consumption)
	if err != nil {
		return nil, fmt.Errorf("failed to build consumption estimator: %w", err)
	}

	return &worker.Managers{
		Forecast:    forecast.New(cfg.Forecast, cfg.Production),
		NordPool:    nordpool.New(cfg.TariffFees),
		Fox:         foxcloud.New(cfg.FoxESS),
		Production:  production.New(cfg.Production, cfg.GeoRef),
		Consumption: cons,
		Schedule:    scheduler.New(cfg.Charge),
		Log:         log,
	}, nil
}

// newMailSender builds the report mail sender; a nil sender disables
// reporting.
func newMailSender(cfg *config.Config, log *logger.Logger) *mail.Sender {
	sender, err := mail.New(cfg.Mail)
	if err != nil {
		log.Warn("report mail disabled", logger.Field{Key: "error", Value: err.Error()})
		return nil
	}
	return sender
}
