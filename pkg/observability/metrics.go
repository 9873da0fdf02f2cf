package observability

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/aretw0/libris/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the engine collectors.
type Metrics struct {
	transitions *prometheus.CounterVec
	commits     *prometheus.CounterVec
	failures    *prometheus.CounterVec
	duration    *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them on reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "libris_transitions_total",
				Help: "Handled chat events by source and target state",
			},
			[]string{"from", "to"},
		),
		commits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "libris_commits_total",
				Help: "Entity store writes performed by workflows",
			},
			[]string{"entity", "op"},
		),
		failures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "libris_failures_total",
				Help: "Failed operations by kind",
			},
			[]string{"op", "kind"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "libris_event_duration_seconds",
				Help:    "Time spent handling one chat event",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"input"},
		),
	}
	for _, c := range []prometheus.Collector{m.transitions, m.commits, m.failures, m.duration} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("register metrics: %w", err)
		}
	}
	return m, nil
}

// Hooks returns lifecycle hooks that record into m.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnTransition: func(_ context.Context, e *domain.TransitionEvent) {
			m.transitions.WithLabelValues(e.From.String(), e.To.String()).Inc()
			m.duration.WithLabelValues(string(e.Input)).Observe(e.Duration.Seconds())
		},
		OnCommit: func(_ context.Context, e *domain.CommitEvent) {
			m.commits.WithLabelValues(e.Entity, e.Op).Inc()
		},
		OnFailure: func(_ context.Context, e *domain.FailureEvent) {
			m.failures.WithLabelValues(e.Op, e.Kind.String()).Inc()
		},
	}
}

// Handler serves the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

// LogHooks writes every handled event to logger at debug level.
func LogHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnTransition: func(ctx context.Context, e *domain.TransitionEvent) {
			logger.DebugContext(ctx, "transition",
				"chat_id", e.ChatID,
				"from", e.From.String(),
				"to", e.To.String(),
				"input", e.Input,
				"duration", e.Duration,
			)
		},
	}
}
