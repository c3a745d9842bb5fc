package session

import "github.com/prometheus/client_golang/prometheus"

// Metrics instruments live sessions. A nil *Metrics records nothing.
type Metrics struct {
	active    prometheus.Gauge
	events    *prometheus.CounterVec
	autosaves *prometheus.CounterVec
	saveTime  prometheus.Histogram
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		active: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "sketchcode",
			Subsystem: "session",
			Name:      "active",
			Help:      "Open editing sessions.",
		}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sketchcode",
			Subsystem: "session",
			Name:      "events_total",
			Help:      "Client events applied, by type and outcome.",
		}, []string{"type", "result"}),
		autosaves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sketchcode",
			Subsystem: "session",
			Name:      "saves_total",
			Help:      "Scene saves, by reason and outcome.",
		}, []string{"reason", "result"}),
		saveTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "sketchcode",
			Subsystem: "session",
			Name:      "save_duration_seconds",
			Help:      "Time spent persisting a scene.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	reg.MustRegister(m.active, m.events, m.autosaves, m.saveTime)
	return m
}

func (m *Metrics) opened() {
	if m != nil {
		m.active.Inc()
	}
}

func (m *Metrics) closed() {
	if m != nil {
		m.active.Dec()
	}
}

func (m *Metrics) event(typ string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.events.WithLabelValues(typ, result).Inc()
}

func (m *Metrics) saved(reason string, seconds float64, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.autosaves.WithLabelValues(reason, result).Inc()
	m.saveTime.Observe(seconds)
}
