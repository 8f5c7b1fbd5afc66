package daemon

import (
	"github.com/prometheus/client_golang/prometheus"
)

// metrics holds the Prometheus instruments exported by the daemon.
type metrics struct {
	registry *prometheus.Registry

	runsTotal       prometheus.Counter
	runFailures     prometheus.Counter
	scheduleCost    prometheus.Gauge
	baseCost        prometheus.Gauge
	batterySoc      prometheus.Gauge
	socPollFailures prometheus.Counter
}

func newMetrics() *metrics {
	m := &metrics{
		registry: prometheus.NewRegistry(),
		runsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mygrid_planning_runs_total",
			Help: "Number of planning runs executed.",
		}),
		runFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mygrid_planning_run_failures_total",
			Help: "Number of planning runs that failed.",
		}),
		scheduleCost: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "mygrid_schedule_cost_sek",
			Help: "Cost of the active schedule in SEK.",
		}),
		baseCost: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "mygrid_base_cost_sek",
			Help: "Cost of the all-use baseline the schedule was compared against, in SEK.",
		}),
		batterySoc: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "mygrid_battery_soc_percent",
			Help: "Last polled battery state of charge.",
		}),
		socPollFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mygrid_soc_poll_failures_total",
			Help: "Number of failed inverter SoC polls.",
		}),
	}

	m.registry.MustRegister(m.runsTotal, m.runFailures, m.scheduleCost, m.baseCost, m.batterySoc, m.socPollFailures)

	return m
}
