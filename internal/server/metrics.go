package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// metrics holds the Prometheus instruments for the placement job surface.
type metrics struct {
	runsStarted     prometheus.Counter
	runsFinished    *prometheus.CounterVec
	runsRunning     prometheus.Gauge
	iterationsTotal prometheus.Counter
	lastBestCost    prometheus.Gauge
}

func newMetrics(reg prometheus.Registerer) *metrics {
	factory := promauto.With(reg)
	return &metrics{
		runsStarted: factory.NewCounter(prometheus.CounterOpts{
			Name: "taiga_placement_runs_started_total",
			Help: "Number of placement runs accepted.",
		}),
		runsFinished: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "taiga_placement_runs_finished_total",
			Help: "Number of placement runs finished, by terminal status.",
		}, []string{"status"}),
		runsRunning: factory.NewGauge(prometheus.GaugeOpts{
			Name: "taiga_placement_runs_running",
			Help: "Number of placement runs currently executing.",
		}),
		iterationsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "taiga_placement_iterations_total",
			Help: "Total annealing iterations executed across completed runs.",
		}),
		lastBestCost: factory.NewGauge(prometheus.GaugeOpts{
			Name: "taiga_placement_last_best_cost",
			Help: "Best cost of the most recently completed run.",
		}),
	}
}
