package publish

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/mcdev12/songquiz/go/internal/events"
)

type message struct {
	subject string
	data    []byte
}

type fakeConn struct {
	published []message
	err       error
}

func (c *fakeConn) Publish(subject string, data []byte) error {
	if c.err != nil {
		return c.err
	}
	c.published = append(c.published, message{subject, data})
	return nil
}

type fakeMetrics struct {
	attempts map[string][]bool
}

func (m *fakeMetrics) RecordPublishAttempt(eventType string, success bool) {
	m.attempts[eventType] = append(m.attempts[eventType], success)
}

func mustEvent(t *testing.T, typ events.Type, payload any) events.Event {
	t.Helper()
	ev, err := events.New(typ, "g1", time.Unix(100, 0).UTC(), payload)
	if err != nil {
		t.Fatalf("events.New: %v", err)
	}
	return ev
}

func TestNATSPublisherSubjectAndEnvelope(t *testing.T) {
	t.Parallel()

	conn := &fakeConn{}
	p := NewNATSPublisher(conn, "")
	ev := mustEvent(t, events.TypeGameSummary, events.GameSummaryPayload{})

	if err := p.Publish(context.Background(), ev); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if len(conn.published) != 1 {
		t.Fatalf("expected one message, got %d", len(conn.published))
	}
	msg := conn.published[0]
	if msg.subject != "songquiz.events.GameSummary" {
		t.Fatalf("unexpected subject %q", msg.subject)
	}
	var got events.Event
	if err := json.Unmarshal(msg.data, &got); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	if got.ID != ev.ID || got.GameID != "g1" || got.Type != events.TypeGameSummary {
		t.Fatalf("unexpected envelope: %+v", got)
	}
}

func TestPublishRespectsCancelledContext(t *testing.T) {
	t.Parallel()

	conn := &fakeConn{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := NewNATSPublisher(conn, "x").Publish(ctx, mustEvent(t, events.TypeError, events.ErrorPayload{}))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(conn.published) != 0 {
		t.Fatalf("expected nothing published")
	}
}

func TestOutcomeSinkFiltersAndRecords(t *testing.T) {
	t.Parallel()

	conn := &fakeConn{}
	metrics := &fakeMetrics{attempts: map[string][]bool{}}
	sink := OutcomeSink(NewMetricPublisher(NewNATSPublisher(conn, ""), metrics))

	sink.Emit(mustEvent(t, events.TypePlaybackTick, events.PlaybackTickPayload{}))
	sink.Emit(mustEvent(t, events.TypeRoundResolved, events.RoundResolvedPayload{Outcome: "success"}))
	sink.Emit(mustEvent(t, events.TypeGameSummary, events.GameSummaryPayload{}))

	if len(conn.published) != 2 {
		t.Fatalf("expected only outcome events published, got %d", len(conn.published))
	}
	if got := metrics.attempts[string(events.TypeRoundResolved)]; len(got) != 1 || !got[0] {
		t.Fatalf("unexpected publish attempts: %v", metrics.attempts)
	}
}

func TestSinkSwallowsPublishErrors(t *testing.T) {
	t.Parallel()

	conn := &fakeConn{err: errors.New("nats: connection closed")}
	metrics := &fakeMetrics{attempts: map[string][]bool{}}
	sink := Sink(NewMetricPublisher(NewNATSPublisher(conn, ""), metrics))

	sink.Emit(mustEvent(t, events.TypeGameSummary, events.GameSummaryPayload{}))

	if got := metrics.attempts[string(events.TypeGameSummary)]; len(got) != 1 || got[0] {
		t.Fatalf("expected one failed attempt, got %v", metrics.attempts)
	}
}
