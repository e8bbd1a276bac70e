package monitor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	contractx "github.com/tanpawarit/hotel-whatsapp-concierge/agent/contract"
	qstashx "github.com/tanpawarit/hotel-whatsapp-concierge/pkg/qstash"
)

type fakePublisher struct {
	destination string
	body        any
	err         error
	hadDeadline bool
}

func (f *fakePublisher) PublishJSON(ctx context.Context, destination string, body any) (*qstashx.PublishResponse, error) {
	f.destination = destination
	f.body = body
	_, f.hadDeadline = ctx.Deadline()
	if f.err != nil {
		return nil, f.err
	}
	return &qstashx.PublishResponse{MessageID: "msg_1"}, nil
}

type countingReporter struct{ n int }

func (c *countingReporter) ReportToolFailure(ctx context.Context, f contractx.ToolFailure) { c.n++ }

var sampleFailure = contractx.ToolFailure{
	Tool:       "get_menu",
	Kind:       contractx.FailureStoreUnavailable,
	Detail:     "sheet offline",
	UserID:     "whatsapp:+911234567890",
	OccurredAt: time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC),
}

func TestMetricsCountsFailuresByToolAndKind(t *testing.T) {
	t.Parallel()

	m, err := NewMetrics(prometheus.NewRegistry())
	if err != nil {
		t.Fatalf("NewMetrics() error = %v", err)
	}

	m.ReportToolFailure(context.Background(), sampleFailure)
	m.ReportToolFailure(context.Background(), sampleFailure)

	got := testutil.ToFloat64(m.toolFailures.WithLabelValues("get_menu", "store_unavailable"))
	if got != 2 {
		t.Fatalf("tool_failures_total = %v, want 2", got)
	}
}

func TestMetricsObserveTurn(t *testing.T) {
	t.Parallel()

	m, err := NewMetrics(prometheus.NewRegistry())
	if err != nil {
		t.Fatalf("NewMetrics() error = %v", err)
	}
	m.ObserveTurn("ok", 2, 1500*time.Millisecond)
	m.ObserveTurn("error", 0, time.Second)
	m.ObserveToolCall("place_order")

	if got := testutil.ToFloat64(m.turns.WithLabelValues("ok")); got != 1 {
		t.Fatalf("turns_total{ok} = %v", got)
	}
	if got := testutil.ToFloat64(m.toolCalls.WithLabelValues("place_order")); got != 1 {
		t.Fatalf("tool_calls_total{place_order} = %v", got)
	}
}

func TestNewMetricsRejectsDoubleRegistration(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	if _, err := NewMetrics(reg); err != nil {
		t.Fatalf("NewMetrics() error = %v", err)
	}
	if _, err := NewMetrics(reg); err == nil {
		t.Fatal("expected duplicate registration error")
	}
}

func TestQStashReporterPublishesEvent(t *testing.T) {
	t.Parallel()

	pub := &fakePublisher{}
	r := NewQStashReporter(pub, QStashConfig{Destination: "tool-failures"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r.ReportToolFailure(ctx, sampleFailure)

	if pub.destination != "tool-failures" {
		t.Fatalf("destination = %q", pub.destination)
	}
	ev, ok := pub.body.(failureEvent)
	if !ok {
		t.Fatalf("body type = %T", pub.body)
	}
	if ev.Kind != "store_unavailable" || ev.UserID != sampleFailure.UserID {
		t.Fatalf("unexpected event: %#v", ev)
	}
	if !pub.hadDeadline {
		t.Fatal("publish must run under a timeout")
	}
}

func TestQStashReporterSwallowsErrors(t *testing.T) {
	t.Parallel()

	r := NewQStashReporter(&fakePublisher{err: errors.New("boom")}, QStashConfig{Destination: "d"})
	r.ReportToolFailure(context.Background(), sampleFailure)
}

func TestMultiFansOut(t *testing.T) {
	t.Parallel()

	a, b := &countingReporter{}, &countingReporter{}
	Multi{a, nil, b, NewLogReporter()}.ReportToolFailure(context.Background(), sampleFailure)
	if a.n != 1 || b.n != 1 {
		t.Fatalf("fan-out counts = %d, %d", a.n, b.n)
	}
}
