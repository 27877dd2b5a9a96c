package poller

import (
	"github.com/prometheus/client_golang/prometheus"
)

const metricPrefix = "eforsyning_"

type metrics struct {
	cycles      *prometheus.CounterVec
	duration    prometheus.Histogram
	lastSuccess prometheus.Gauge
	values      *prometheus.GaugeVec
}

func newMetrics(reg prometheus.Registerer) *metrics {
	m := &metrics{
		cycles: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "poll_cycles_total",
				Help: "Poll cycles by outcome",
			},
			[]string{"outcome"},
		),
		duration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "poll_duration_seconds",
				Help:    "Duration of poll cycles that reached the portal",
				Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30, 60},
			},
		),
		lastSuccess: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: metricPrefix + "last_success_timestamp_seconds",
				Help: "Unix time of the last successful poll",
			},
		),
		values: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: metricPrefix + "value",
				Help: "Latest flat metering values by key",
			},
			[]string{"key"},
		),
	}
	if reg != nil {
		reg.MustRegister(m.cycles, m.duration, m.lastSuccess, m.values)
	}
	return m
}
