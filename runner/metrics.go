package runner

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics are the loop's Prometheus collectors. A nil *Metrics records
// nothing.
type Metrics struct {
	ticks         prometheus.Counter
	drawErrors    *prometheus.CounterVec
	faults        prometheus.Counter
	modeLoads     *prometheus.CounterVec
	consecutive   prometheus.Gauge
	frameDuration prometheus.Histogram
}

// NewMetrics creates the loop collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ticks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "eyesy_ticks_total",
			Help: "Total number of executed draw ticks",
		}),
		drawErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "eyesy_draw_errors_total",
			Help: "Draw failures by severity",
		}, []string{"severity"}),
		faults: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "eyesy_faults_total",
			Help: "Number of times a mode was stopped by a critical draw error",
		}),
		modeLoads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "eyesy_mode_loads_total",
			Help: "Mode loads by result",
		}, []string{"result"}),
		consecutive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "eyesy_consecutive_draw_errors",
			Help: "Current consecutive draw error count",
		}),
		frameDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "eyesy_frame_duration_seconds",
			Help:    "Duration of draw ticks",
			Buckets: []float64{.0005, .001, .0025, .005, .01, .016, .025, .05, .1, .25},
		}),
	}
	reg.MustRegister(m.ticks, m.drawErrors, m.faults, m.modeLoads, m.consecutive, m.frameDuration)
	return m
}

func (m *Metrics) observeTick(d time.Duration, consecutive int) {
	if m == nil {
		return
	}
	m.ticks.Inc()
	m.frameDuration.Observe(d.Seconds())
	m.consecutive.Set(float64(consecutive))
}

func (m *Metrics) observeDrawError(sev Severity) {
	if m == nil {
		return
	}
	m.drawErrors.WithLabelValues(sev.String()).Inc()
	if sev == Critical {
		m.faults.Inc()
	}
}

func (m *Metrics) observeLoad(err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = ErrorKind(err)
	}
	m.modeLoads.WithLabelValues(result).Inc()
	if err == nil {
		m.consecutive.Set(0)
	}
}
