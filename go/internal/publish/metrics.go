package publish

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/mcdev12/songquiz/go/internal/events"
)

// MetricsCollector records publish attempts.
type MetricsCollector interface {
	RecordPublishAttempt(eventType string, success bool)
}

// MetricPublisher wraps a Publisher with metrics collection.
type MetricPublisher struct {
	publisher Publisher
	metrics   MetricsCollector
}

func NewMetricPublisher(publisher Publisher, metrics MetricsCollector) *MetricPublisher {
	return &MetricPublisher{
		publisher: publisher,
		metrics:   metrics,
	}
}

func (p *MetricPublisher) Publish(ctx context.Context, ev events.Event) error {
	err := p.publisher.Publish(ctx, ev)
	if p.metrics != nil {
		p.metrics.RecordPublishAttempt(string(ev.Type), err == nil)
	}
	return err
}

// Sink adapts a Publisher to events.Sink. Publish failures are logged and
// never reach the session.
func Sink(p Publisher) events.Sink {
	return events.SinkFunc(func(ev events.Event) {
		if err := p.Publish(context.Background(), ev); err != nil {
			log.Warn().Err(err).Str("event_type", string(ev.Type)).Str("game_id", ev.GameID).Msg("failed to publish event")
		}
	})
}

// OutcomeSink publishes only round outcomes and game summaries.
func OutcomeSink(p Publisher) events.Sink {
	return events.Filter(Sink(p), events.TypeRoundResolved, events.TypeGameSummary)
}
