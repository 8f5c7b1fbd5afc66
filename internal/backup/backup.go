// Package backup persists schedules and planning base data as JSON files
// and prunes old copies. The files feed external dashboards and let the
// daemon pick up an active schedule after a restart.
package backup

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/gostonefire/mygrid-scheduler/internal/forecast"
	"github.com/gostonefire/mygrid-scheduler/internal/nordpool"
	"github.com/gostonefire/mygrid-scheduler/internal/scheduler"
	"github.com/gostonefire/mygrid-scheduler/internal/timeseries"
)

// timestampLayout is the leading filename timestamp, always in UTC.
const timestampLayout = "200601021504"

// retention is how long old schedule and base data files are kept.
const retention = 48 * time.Hour

// BaseData is everything a planning run was based on, kept for inspection
// and dashboards.
type BaseData struct {
	RunID        uuid.UUID               `json:"run_id"`
	DateTime     time.Time               `json:"date_time"`
	BaseCost     float64                 `json:"base_cost"`
	ScheduleCost float64                 `json:"schedule_cost"`
	Production   []timeseries.PowerValue `json:"production"`
	Consumption  []timeseries.PowerValue `json:"consumption"`
	Forecast     []forecast.Value        `json:"forecast"`
	Tariffs      []nordpool.TariffValue  `json:"tariffs"`
}

// SaveSchedule writes the schedule blocks to
// <dir>/<start>_<end>_schedule.json and prunes older schedule files.
func SaveSchedule(dir string, start, end time.Time, blocks []scheduler.Block) (string, error) {
	filename := filepath.Join(dir, fmt.Sprintf("%s_%s_schedule.json",
		start.UTC().Format(timestampLayout), end.UTC().Format(timestampLayout)))

	if err := writeJSON(filename, blocks); err != nil {
		return "", err
	}

	if err := cleanUpFiles(filepath.Join(dir, "*_schedule.json"), start); err != nil {
		return "", err
	}

	return filename, nil
}

// SaveBaseData writes the base data to <dir>/<ts>_base_data.json and
// prunes older base data files.
func SaveBaseData(dir string, data *BaseData) (string, error) {
	filename := filepath.Join(dir, fmt.Sprintf("%s_base_data.json",
		data.DateTime.UTC().Format(timestampLayout)))

	if err := writeJSON(filename, data); err != nil {
		return "", err
	}

	if err := cleanUpFiles(filepath.Join(dir, "*_base_data.json"), data.DateTime); err != nil {
		return "", err
	}

	return filename, nil
}

// LoadLatestSchedule reads the most recent schedule file in dir. It
// returns os.ErrNotExist when no schedule file is present.
func LoadLatestSchedule(dir string) ([]scheduler.Block, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*_schedule.json"))
	if err != nil {
		return nil, fmt.Errorf("failed to list schedule files: %w", err)
	}
	if len(matches) == 0 {
		return nil, os.ErrNotExist
	}

	// The leading timestamp sorts lexically in time order.
	sort.Strings(matches)
	latest := matches[len(matches)-1]

	raw, err := os.ReadFile(latest)
	if err != nil {
		return nil, fmt.Errorf("failed to read schedule file: %w", err)
	}

	var blocks []scheduler.Block
	if err := json.Unmarshal(raw, &blocks); err != nil {
		return nil, fmt.Errorf("failed to parse schedule file %s: %w", latest, err)
	}

	return blocks, nil
}

// writeJSON writes pretty-printed JSON to the given file.
func writeJSON(filename string, v any) error {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize %s: %w", filename, err)
	}

	if err := os.WriteFile(filename, raw, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", filename, err)
	}

	return nil
}

// cleanUpFiles removes files matching the pattern whose leading filename
// timestamp is older than the retention relative to the gate time.
func cleanUpFiles(pattern string, gate time.Time) error {
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return fmt.Errorf("failed to glob %s: %w", pattern, err)
	}

	for _, path := range matches {
		name := filepath.Base(path)
		if len(name) < len(timestampLayout) {
			continue
		}

		ts, err := time.ParseInLocation(timestampLayout, name[:len(timestampLayout)], time.UTC)
		if err != nil {
			continue
		}

		if gate.Sub(ts) > retention {
			if err := os.Remove(path); err != nil {
				return fmt.Errorf("failed to remove %s: %w", path, err)
			}
		}
	}

	return nil
}
