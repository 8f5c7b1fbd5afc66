package worker

import (
	"time"

	"github.com/gostonefire/mygrid-scheduler/internal/timeseries"
)

// runMinutes is a minute span within one day, end non-inclusive.
type runMinutes struct {
	startMinute int
	endMinute   int
}

// runSchema lays out one planning run: when the run starts, when the new
// schedule takes over, and which minute spans between the two the SoC
// estimate must cover. The span covers one or two partial days.
type runSchema struct {
	runStart         time.Time
	runDayStart      time.Time
	runDayEnd        time.Time
	scheduleStart    time.Time
	scheduleDayStart time.Time
	scheduleDayEnd   time.Time
	scheduleLength   int
	runDate1         runMinutes
	runDate2         *runMinutes
}

// newRunSchema derives the schedule start from the run start.
//
// The schedule start is pushed into the future since the search takes a
// while. The rules:
//   - a run before 21:00 schedules the rest of the current day, starting
//     one hour ahead truncated to a quarter hour
//   - a run at or after 23:15 also starts one hour ahead, cannibalizing
//     from the next day
//   - anything else (the normal nightly run) schedules the entire next day
func newRunSchema(runStart time.Time) runSchema {
	var scheduleStart time.Time
	if runStart.Hour() < 21 || minuteOfDay(runStart) >= 23*60+15 {
		scheduleStart = runStart.Add(time.Hour).Truncate(15 * time.Minute)
	} else {
		scheduleStart = dayStart(runStart).AddDate(0, 0, 1)
	}

	runDayStart := dayStart(runStart)
	runDayEnd := runDayStart.AddDate(0, 0, 1)
	scheduleDayStart := dayStart(scheduleStart)
	scheduleDayEnd := scheduleDayStart.AddDate(0, 0, 1)

	schema := runSchema{
		runStart:         runStart,
		runDayStart:      runDayStart,
		runDayEnd:        runDayEnd,
		scheduleStart:    scheduleStart,
		scheduleDayStart: scheduleDayStart,
		scheduleDayEnd:   scheduleDayEnd,
		scheduleLength:   timeseries.MinutesPerDay - minuteOfDay(scheduleStart),
		runDate1: runMinutes{
			startMinute: minuteOfDay(runStart),
			endMinute:   timeseries.MinutesPerDay,
		},
	}

	if scheduleStart.Before(runDayEnd) {
		schema.runDate1.endMinute = minuteOfDay(scheduleStart)
	} else if scheduleStart.After(runDayEnd) {
		schema.runDate2 = &runMinutes{
			startMinute: 0,
			endMinute:   minuteOfDay(scheduleStart),
		}
	}

	return schema
}

func dayStart(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, t.Location())
}

func minuteOfDay(t time.Time) int {
	return t.Hour()*60 + t.Minute()
}
