package monitor

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	contractx "github.com/tanpawarit/hotel-whatsapp-concierge/agent/contract"
	logx "github.com/tanpawarit/hotel-whatsapp-concierge/pkg/logger"
	qstashx "github.com/tanpawarit/hotel-whatsapp-concierge/pkg/qstash"
)

// LogReporter writes tool failures to the zerolog global logger.
type LogReporter struct {
	logger zerolog.Logger
}

func NewLogReporter() *LogReporter {
	return &LogReporter{logger: logx.Component("tool_failures")}
}

func (r *LogReporter) ReportToolFailure(ctx context.Context, f contractx.ToolFailure) {
	r.logger.Warn().
		Str("tool", f.Tool).
		Str("kind", string(f.Kind)).
		Str("user_id", f.UserID).
		Time("occurred_at", f.OccurredAt).
		Msg(f.Detail)
}

type publisher interface {
	PublishJSON(ctx context.Context, destination string, body any) (*qstashx.PublishResponse, error)
}

// QStashReporter forwards tool failures to a QStash destination.
type QStashReporter struct {
	client      publisher
	destination string
	timeout     time.Duration
}

type QStashConfig struct {
	Destination string        `split_words:"true"`
	Timeout     time.Duration `split_words:"true" default:"3s"`
}

func NewQStashReporter(client publisher, cfg QStashConfig) *QStashReporter {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &QStashReporter{client: client, destination: cfg.Destination, timeout: timeout}
}

type failureEvent struct {
	Tool       string    `json:"tool"`
	Kind       string    `json:"kind"`
	Detail     string    `json:"detail"`
	UserID     string    `json:"user_id,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// ReportToolFailure publishes synchronously under its own timeout, detached
// from the request's cancellation.
func (r *QStashReporter) ReportToolFailure(ctx context.Context, f contractx.ToolFailure) {
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
	defer cancel()

	_, err := r.client.PublishJSON(pubCtx, r.destination, failureEvent{
		Tool:       f.Tool,
		Kind:       string(f.Kind),
		Detail:     f.Detail,
		UserID:     f.UserID,
		OccurredAt: f.OccurredAt,
	})
	if err != nil {
		log.Warn().Err(err).Str("tool", f.Tool).Msg("publish tool failure to qstash failed")
	}
}

// Multi fans a failure out to every reporter in order.
type Multi []contractx.FailureReporter

func (m Multi) ReportToolFailure(ctx context.Context, f contractx.ToolFailure) {
	for _, r := range m {
		if r != nil {
			r.ReportToolFailure(ctx, f)
		}
	}
}
