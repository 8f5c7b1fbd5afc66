// Package daemon is the long-running serve mode: an in-process cron fires
// the nightly planning run, a monitor loop walks the active schedule
// against the live inverter state, and Prometheus metrics are served over
// HTTP.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"

	"github.com/gostonefire/mygrid-scheduler/internal/backup"
	"github.com/gostonefire/mygrid-scheduler/internal/config"
	"github.com/gostonefire/mygrid-scheduler/internal/logger"
	"github.com/gostonefire/mygrid-scheduler/internal/mail"
	"github.com/gostonefire/mygrid-scheduler/internal/scheduler"
	"github.com/gostonefire/mygrid-scheduler/internal/worker"
)

// maxPollFailures is how many consecutive SoC poll failures the monitor
// tolerates before marking the active block as failed.
const maxPollFailures = 3

// Daemon wires cron, block monitor and metrics around the planning worker.
type Daemon struct {
	cfg      *config.Config
	managers *worker.Managers
	mail     *mail.Sender
	log      *logger.Logger
	metrics  *metrics

	// mu guards the schedule shared between the cron planning run and
	// the monitor loop.
	mu            sync.Mutex
	activeBlockID int64
	pollFailures  int
}

// New returns a daemon ready to run.
func New(cfg *config.Config, managers *worker.Managers, sender *mail.Sender, log *logger.Logger) *Daemon {
	return &Daemon{
		cfg:      cfg,
		managers: managers,
		mail:     sender,
		log:      log,
		metrics:  newMetrics(),
	}
}

// Run starts cron, monitor and metrics server and blocks until the
// context is cancelled.
func (d *Daemon) Run(ctx context.Context) error {
	d.loadPersistedSchedule()

	loc, err := time.LoadLocation(d.cfg.Daemon.Timezone)
	if err != nil {
		return fmt.Errorf("invalid daemon timezone %q: %w", d.cfg.Daemon.Timezone, err)
	}

	c := cron.New(cron.WithLocation(loc))
	if _, err := c.AddFunc(d.cfg.Daemon.CronSpec, func() { d.planningRun(ctx) }); err != nil {
		return fmt.Errorf("invalid cron spec %q: %w", d.cfg.Daemon.CronSpec, err)
	}
	c.Start()
	d.log.Info("⏰ planning cron started",
		logger.Field{Key: "spec", Value: d.cfg.Daemon.CronSpec},
		logger.Field{Key: "timezone", Value: d.cfg.Daemon.Timezone},
	)

	srv := d.startMetricsServer()

	ticker := time.NewTicker(time.Duration(d.cfg.Daemon.MonitorIntervalMinutes) * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			d.monitorTick(ctx, time.Now())
		case <-ctx.Done():
			d.log.Info("🛑 shutting down")

			cronCtx := c.Stop()
			<-cronCtx.Done()

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				d.log.Error("metrics server shutdown failed", err)
			}

			return nil
		}
	}
}

// loadPersistedSchedule picks up the schedule from the last planning run
// so a restart does not lose the active blocks.
func (d *Daemon) loadPersistedSchedule() {
	blocks, err := backup.LoadLatestSchedule(d.cfg.Files.ScheduleDir)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			d.log.Warn("failed to load persisted schedule", logger.Field{Key: "error", Value: err.Error()})
		}
		return
	}

	d.managers.Schedule.AdoptBlocks(blocks)
	d.log.Info("📋 persisted schedule loaded", logger.Field{Key: "blocks", Value: len(blocks)})
}

// planningRun executes one worker run and reports the outcome by mail.
func (d *Daemon) planningRun(ctx context.Context) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.metrics.runsTotal.Inc()

	if _, err := worker.Run(ctx, d.managers, d.cfg.Files); err != nil {
		d.metrics.runFailures.Inc()
		d.log.Error("planning run failed", err)
		d.sendReport(ctx, "Error in scheduler", fmt.Sprintf("Run failed: %v", err))
		return
	}

	d.metrics.scheduleCost.Set(d.managers.Schedule.TotalCost)
	d.metrics.baseCost.Set(d.managers.Schedule.BaseCost)
	d.activeBlockID = 0
	d.pollFailures = 0

	d.sendReport(ctx, "Report", "Successfully created new schedule")
}

// monitorTick advances the active block and tracks charge progress
// against the live inverter SoC.
func (d *Daemon) monitorTick(ctx context.Context, now time.Time) {
	d.mu.Lock()
	defer d.mu.Unlock()

	schedule := d.managers.Schedule

	if schedule.IsUpdateTime(d.activeBlockID, now) {
		id, ok := schedule.BlockByTime(now)
		if !ok {
			return
		}
		if id != d.activeBlockID || schedule.BlockByID(id).Status == scheduler.StatusWaiting {
			block := schedule.BlockByID(id)
			block.UpdateStatus(scheduler.StatusStarted, 0)
			d.activeBlockID = id
			d.pollFailures = 0
			d.log.Info("▶️ block started", logger.Field{Key: "block", Value: block.String()})
		}
	}

	if !schedule.IsActiveCharging(d.activeBlockID, now) {
		return
	}

	block := schedule.BlockByID(d.activeBlockID)

	soc, _, err := d.managers.Fox.CurrentSocSoh(ctx)
	if err != nil {
		d.pollFailures++
		d.metrics.socPollFailures.Inc()
		d.log.Warn("SoC poll failed",
			logger.Field{Key: "error", Value: err.Error()},
			logger.Field{Key: "failures", Value: d.pollFailures},
		)
		if d.pollFailures >= maxPollFailures {
			block.UpdateStatus(scheduler.StatusError, 0)
			d.log.Error("charge block monitoring failed", err, logger.Field{Key: "block", Value: block.String()})
		}
		return
	}

	d.pollFailures = 0
	d.metrics.batterySoc.Set(float64(soc))

	if soc >= block.SocOut {
		block.UpdateStatus(scheduler.StatusFull, soc)
		d.log.Info("🔋 charge target reached",
			logger.Field{Key: "soc", Value: soc},
			logger.Field{Key: "block", Value: block.String()},
		)
	}
}

// startMetricsServer serves the Prometheus registry on the configured
// address.
func (d *Daemon) startMetricsServer() *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(d.metrics.registry, promhttp.HandlerOpts{}))

	srv := &http.Server{
		Addr:    d.cfg.Daemon.MetricsListenAddr,
		Handler: mux,
	}

	go func() {
		d.log.Info("📈 metrics server listening", logger.Field{Key: "addr", Value: srv.Addr})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			d.log.Error("metrics server failed", err)
		}
	}()

	return srv
}

// sendReport mails the run outcome; delivery failures are logged only.
func (d *Daemon) sendReport(ctx context.Context, subject, body string) {
	if d.mail == nil {
		return
	}
	if err := d.mail.Send(ctx, subject, body); err != nil {
		d.log.Warn("failed to send report mail", logger.Field{Key: "error", Value: err.Error()})
	}
}
