package scenario

import "github.com/prometheus/client_golang/prometheus"

// stepRunnerMetrics holds the Step Runner's prometheus collectors,
// grounded on the host's metrics.Metrics construction idiom
// (CounterVec/HistogramVec registered against a Registerer).
type stepRunnerMetrics struct {
	stepDuration    prometheus.Histogram
	requesterErrors prometheus.Counter
}

func newStepRunnerMetrics(registerer prometheus.Registerer) *stepRunnerMetrics {
	m := &stepRunnerMetrics{
		stepDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "scenario_engine_step_duration_seconds",
			Help:    "Duration of one step attempt sequence, in seconds",
			Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		}),
		requesterErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "scenario_engine_requester_errors_total",
			Help: "Total number of non-cancellation Requester errors",
		}),
	}
	if registerer != nil {
		registerer.MustRegister(m.stepDuration, m.requesterErrors)
	}
	return m
}
