package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics records engine activity as Prometheus series. It implements app.Recorder.
type Metrics struct {
	started        prometheus.Counter
	ended          prometheus.Counter
	active         prometheus.Gauge
	answers        *prometheus.CounterVec
	persistFailure prometheus.Counter
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		started: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "quiz_sessions_started_total",
			Help: "Quiz sessions started.",
		}),
		ended: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "quiz_sessions_ended_total",
			Help: "Quiz sessions ended.",
		}),
		active: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "quiz_sessions_active",
			Help: "Quiz sessions currently ongoing.",
		}),
		answers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "quiz_answers_total",
			Help: "Answer submissions by outcome.",
		}, []string{"outcome"}),
		persistFailure: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "quiz_persist_failures_total",
			Help: "Final results that could not be persisted.",
		}),
	}
	reg.MustRegister(m.started, m.ended, m.active, m.answers, m.persistFailure)
	return m
}

func (m *Metrics) SessionStarted() {
	m.started.Inc()
	m.active.Inc()
}

func (m *Metrics) SessionEnded() {
	m.ended.Inc()
	m.active.Dec()
}

func (m *Metrics) AnswerSubmitted(outcome string) {
	m.answers.WithLabelValues(outcome).Inc()
}

func (m *Metrics) PersistFailed() {
	m.persistFailure.Inc()
}
