package observability

import (
	"context"

	"github.com/aretw0/formflow/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "formflow"

// Metrics holds the Prometheus collectors fed by lifecycle hooks.
type Metrics struct {
	sessions *prometheus.CounterVec
	answers  *prometheus.CounterVec
	duration prometheus.Histogram
	reloads  *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		sessions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_total",
			Help:      "Session lifecycle events by kind and variant.",
		}, []string{"event", "variant"}),
		answers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "answers_total",
			Help:      "Submitted answers by question and result.",
		}, []string{"question_id", "result", "kind"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "session_completion_seconds",
			Help:      "Time from session start to completion.",
			Buckets:   []float64{30, 60, 120, 300, 600, 1800, 3600, 86400},
		}),
		reloads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "schema_reloads_total",
			Help:      "Schema reload attempts by result.",
		}, []string{"result"}),
	}

	for _, c := range []prometheus.Collector{m.sessions, m.answers, m.duration, m.reloads} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Hooks returns lifecycle hooks that record into m.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	session := func(event string) func(context.Context, *domain.SessionEvent) {
		return func(_ context.Context, e *domain.SessionEvent) {
			m.sessions.WithLabelValues(event, string(e.Variant)).Inc()
		}
	}
	return domain.LifecycleHooks{
		OnSessionStart: session("started"),
		OnSessionComplete: func(ctx context.Context, e *domain.SessionEvent) {
			session("completed")(ctx, e)
			if !e.StartedAt.IsZero() {
				m.duration.Observe(e.Timestamp.Sub(e.StartedAt).Seconds())
			}
		},
		OnSessionCancel: session("cancelled"),
		OnAnswerAccepted: func(_ context.Context, e *domain.AnswerEvent) {
			m.answers.WithLabelValues(e.QuestionID, "accepted", "").Inc()
		},
		OnAnswerRejected: func(_ context.Context, e *domain.AnswerEvent) {
			m.answers.WithLabelValues(e.QuestionID, "rejected", string(e.Rejection)).Inc()
		},
	}
}

// ObserveReload records a schema reload attempt.
func (m *Metrics) ObserveReload(err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.reloads.WithLabelValues(result).Inc()
}
