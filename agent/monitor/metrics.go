package monitor

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	contractx "github.com/tanpawarit/hotel-whatsapp-concierge/agent/contract"
)

const namespace = "hotel_concierge"

// Metrics holds the Prometheus collectors for turns and tools.
type Metrics struct {
	toolCalls    *prometheus.CounterVec
	toolFailures *prometheus.CounterVec
	turns        *prometheus.CounterVec
	turnDuration prometheus.Histogram
	toolRounds   prometheus.Histogram
}

func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		toolCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tool_calls_total",
			Help:      "Tool invocations requested by the model.",
		}, []string{"tool"}),
		toolFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tool_failures_total",
			Help:      "Tool failures by tool and failure kind.",
		}, []string{"tool", "kind"}),
		turns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turns_total",
			Help:      "Conversation turns by outcome.",
		}, []string{"outcome"}),
		turnDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "turn_duration_seconds",
			Help:      "Wall time of a full conversation turn.",
			Buckets:   []float64{0.5, 1, 2, 4, 8, 15, 30, 60},
		}),
		toolRounds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "turn_tool_rounds",
			Help:      "Model round trips that requested tools within one turn.",
			Buckets:   []float64{0, 1, 2, 3, 4, 6, 8},
		}),
	}

	for _, c := range []prometheus.Collector{m.toolCalls, m.toolFailures, m.turns, m.turnDuration, m.toolRounds} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) ReportToolFailure(ctx context.Context, f contractx.ToolFailure) {
	m.toolFailures.WithLabelValues(f.Tool, string(f.Kind)).Inc()
}

func (m *Metrics) ObserveToolCall(tool string) {
	m.toolCalls.WithLabelValues(tool).Inc()
}

// ObserveTurn records a finished turn; outcome is "ok" or "error".
func (m *Metrics) ObserveTurn(outcome string, rounds int, elapsed time.Duration) {
	m.turns.WithLabelValues(outcome).Inc()
	m.toolRounds.Observe(float64(rounds))
	m.turnDuration.Observe(elapsed.Seconds())
}
