package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/songquiz/go/internal/events"
)

const (
	DefaultSubjectPrefix = "songquiz.events"

	natsMaxReconnects = 10
	natsReconnectWait = 2 * time.Second
)

// Publisher ships session events to other services.
type Publisher interface {
	Publish(ctx context.Context, ev events.Event) error
}

// Conn is the subset of *nats.Conn the publisher uses.
type Conn interface {
	Publish(subject string, data []byte) error
}

// Connect opens a NATS connection that logs disconnects and reconnects.
func Connect(natsURL string) (*nats.Conn, error) {
	opts := []nats.Option{
		nats.Name("songquiz-gateway"),
		nats.MaxReconnects(natsMaxReconnects),
		nats.ReconnectWait(natsReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			if err != nil {
				log.Error().Err(err).Msg("NATS disconnected")
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			log.Error().Err(err).Msg("NATS error")
		}),
	}

	nc, err := nats.Connect(natsURL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	return nc, nil
}

// NATSPublisher publishes each event on <prefix>.<event type>.
type NATSPublisher struct {
	conn   Conn
	prefix string
}

// NewNATSPublisher publishes under prefix. An empty prefix uses DefaultSubjectPrefix.
func NewNATSPublisher(conn Conn, prefix string) *NATSPublisher {
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}
	return &NATSPublisher{conn: conn, prefix: prefix}
}

// Subject returns the subject an event of type t is published on.
func (p *NATSPublisher) Subject(t events.Type) string {
	return fmt.Sprintf("%s.%s", p.prefix, t)
}

func (p *NATSPublisher) Publish(ctx context.Context, ev events.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	subject := p.Subject(ev.Type)
	if err := p.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	log.Debug().Str("subject", subject).Str("game_id", ev.GameID).Int("size", len(data)).Msg("published event")
	return nil
}

// LogPublisher only logs events. It stands in when no NATS server is configured.
type LogPublisher struct{}

func (LogPublisher) Publish(_ context.Context, ev events.Event) error {
	log.Info().
		Str("event_id", ev.ID).
		Str("event_type", string(ev.Type)).
		Str("game_id", ev.GameID).
		Msg("publishing event")
	return nil
}
