// Package worker runs one complete planning pass: estimate the battery
// state at the schedule start, build the new block schedule and persist
// it.
package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/gostonefire/mygrid-scheduler/internal/backup"
	"github.com/gostonefire/mygrid-scheduler/internal/config"
	"github.com/gostonefire/mygrid-scheduler/internal/consumption"
	"github.com/gostonefire/mygrid-scheduler/internal/forecast"
	"github.com/gostonefire/mygrid-scheduler/internal/foxcloud"
	"github.com/gostonefire/mygrid-scheduler/internal/logger"
	"github.com/gostonefire/mygrid-scheduler/internal/nordpool"
	"github.com/gostonefire/mygrid-scheduler/internal/production"
	"github.com/gostonefire/mygrid-scheduler/internal/retry"
	"github.com/gostonefire/mygrid-scheduler/internal/scheduler"
	"github.com/gostonefire/mygrid-scheduler/internal/timeseries"
)

// Managers bundles the configured clients and estimators one planning run
// needs.
type Managers struct {
	Forecast    *forecast.Client
	NordPool    *nordpool.Client
	Fox         *foxcloud.Client
	Production  *production.Estimator
	Consumption *consumption.Estimator
	Schedule    *scheduler.Schedule
	Log         *logger.Logger
}

// Run executes one planning run starting now: polls the inverter, fetches
// forecast and tariffs, searches for the cheapest block schedule and
// persists schedule and base data.
func Run(ctx context.Context, m *Managers, files config.FilesConfig) (*backup.BaseData, error) {
	runStart := time.Now()
	schema := newRunSchema(runStart)

	m.Log.Info("planning run started",
		logger.Field{Key: "run_start", Value: schema.runStart.Format(time.RFC3339)},
		logger.Field{Key: "schedule_start", Value: schema.scheduleStart.Format(time.RFC3339)},
	)

	soc, err := estimateSocIn(ctx, m, schema)
	if err != nil {
		return nil, fmt.Errorf("failed to estimate schedule start SoC: %w", err)
	}

	baseData, err := buildSchedule(ctx, m, schema, soc)
	if err != nil {
		return nil, fmt.Errorf("failed to build schedule: %w", err)
	}

	m.Log.Info("schedule ready",
		logger.Field{Key: "run_id", Value: baseData.RunID.String()},
		logger.Field{Key: "base_cost", Value: m.Schedule.BaseCost},
		logger.Field{Key: "schedule_cost", Value: m.Schedule.TotalCost},
	)
	for i := range m.Schedule.Blocks {
		m.Log.Info("block " + m.Schedule.Blocks[i].String())
	}

	scheduleFile, err := backup.SaveSchedule(files.ScheduleDir, m.Schedule.StartTime, m.Schedule.EndTime, m.Schedule.Blocks)
	if err != nil {
		return nil, fmt.Errorf("failed to save schedule: %w", err)
	}
	m.Log.Info("schedule saved", logger.Field{Key: "file", Value: scheduleFile})

	baseDataFile, err := backup.SaveBaseData(files.BaseDataDir, baseData)
	if err != nil {
		return nil, fmt.Errorf("failed to save base data: %w", err)
	}
	m.Log.Info("base data saved", logger.Field{Key: "file", Value: baseDataFile})

	return baseData, nil
}

// estimateSocIn estimates the battery SoC at the schedule start: the live
// SoC from the inverter adjusted by the expected net energy between the
// run start and the schedule start.
func estimateSocIn(ctx context.Context, m *Managers, schema runSchema) (int, error) {
	socNow, err := retry.Do(ctx, func() (int, error) {
		soc, _, err := m.Fox.CurrentSocSoh(ctx)
		return soc, err
	}, retry.Config{})
	if err != nil {
		return 0, fmt.Errorf("failed to read inverter SoC: %w", err)
	}

	powerUsed := 0.0
	minutes := 0

	{
		prod, cons, err := estimateDay(ctx, m, schema.runDayStart, schema.runDayEnd)
		if err != nil {
			return 0, err
		}
		for i := schema.runDate1.startMinute; i < schema.runDate1.endMinute; i++ {
			powerUsed += (prod[i] - cons[i]) / 60.0 / 1000.0
		}
		minutes += schema.runDate1.endMinute - schema.runDate1.startMinute
	}

	if schema.runDate2 != nil {
		prod, cons, err := estimateDay(ctx, m, schema.scheduleDayStart, schema.scheduleDayEnd)
		if err != nil {
			return 0, err
		}
		for i := schema.runDate2.startMinute; i < schema.runDate2.endMinute; i++ {
			powerUsed += (prod[i] - cons[i]) / 60.0 / 1000.0
		}
		minutes += schema.runDate2.endMinute - schema.runDate2.startMinute
	}

	soc := startSoc(socNow, powerUsed, m.Schedule.SocKwh())

	m.Log.Info("schedule start SoC estimated",
		logger.Field{Key: "soc_now", Value: socNow},
		logger.Field{Key: "start_soc", Value: soc},
		logger.Field{Key: "power_used_kwh", Value: powerUsed},
		logger.Field{Key: "minutes", Value: minutes},
	)

	return soc, nil
}

// estimateDay fetches the forecast for one day window and estimates
// production and consumption per minute.
func estimateDay(ctx context.Context, m *Managers, dayStart, dayEnd time.Time) (prod, cons [timeseries.MinutesPerDay]float64, err error) {
	fc, err := retry.Do(ctx, func() ([]forecast.Value, error) {
		return m.Forecast.Fetch(ctx, dayStart, dayEnd)
	}, retry.Config{})
	if err != nil {
		return prod, cons, fmt.Errorf("failed to fetch forecast: %w", err)
	}

	prod, err = m.Production.Estimate(fc, dayStart)
	if err != nil {
		return prod, cons, fmt.Errorf("failed to estimate production: %w", err)
	}

	cons, err = m.Consumption.Estimate(fc, dayStart)
	if err != nil {
		return prod, cons, fmt.Errorf("failed to estimate consumption: %w", err)
	}

	return prod, cons, nil
}

// buildSchedule runs the optimizer over the schedule day and assembles the
// base data record.
func buildSchedule(ctx context.Context, m *Managers, schema runSchema, socIn int) (*backup.BaseData, error) {
	fc, err := retry.Do(ctx, func() ([]forecast.Value, error) {
		return m.Forecast.Fetch(ctx, schema.scheduleDayStart, schema.scheduleDayEnd)
	}, retry.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch forecast: %w", err)
	}

	pvEstimate, err := m.Production.Estimate(fc, schema.scheduleDayStart)
	if err != nil {
		return nil, fmt.Errorf("failed to estimate production: %w", err)
	}
	consEstimate, err := m.Consumption.Estimate(fc, schema.scheduleDayStart)
	if err != nil {
		return nil, fmt.Errorf("failed to estimate consumption: %w", err)
	}

	tariffs, err := retry.Do(ctx, func() ([]nordpool.TariffValue, error) {
		return m.NordPool.Tariffs(ctx, schema.scheduleDayStart, schema.scheduleDayEnd, schema.scheduleStart)
	}, retry.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch tariffs: %w", err)
	}

	prodSlots := timeseries.NewMinuteValues(pvEstimate, schema.scheduleDayStart).Group(scheduler.SlotMinutes, true)
	consSlots := timeseries.NewMinuteValues(consEstimate, schema.scheduleDayStart).Group(scheduler.SlotMinutes, true)

	m.Schedule.UpdateScheduling(tariffs, prodSlots, consSlots, socIn, schema.scheduleStart, schema.scheduleLength)

	return &backup.BaseData{
		RunID:        uuid.New(),
		DateTime:     schema.scheduleStart,
		BaseCost:     m.Schedule.BaseCost,
		ScheduleCost: m.Schedule.TotalCost,
		Production:   timeseries.NewMinuteValues(pvEstimate, schema.scheduleDayStart).Group(5, false),
		Consumption:  timeseries.NewMinuteValues(consEstimate, schema.scheduleDayStart).Group(5, false),
		Forecast:     fc,
		Tariffs:      tariffs,
	}, nil
}

// startSoc adjusts the live SoC by the expected net energy in kWh and
// floors it at the 10% the battery never goes below.
func startSoc(socIn int, powerUsed, socKwh float64) int {
	soc := socIn + int(powerUsed/socKwh)
	if soc < 10 {
		soc = 10
	}
	return soc
}
