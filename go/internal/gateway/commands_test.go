package gateway

import (
	"context"
	"testing"

	"github.com/jonboulle/clockwork"

	"github.com/mcdev12/songquiz/go/internal/events"
	"github.com/mcdev12/songquiz/go/internal/models"
	"github.com/mcdev12/songquiz/go/internal/playback"
	"github.com/mcdev12/songquiz/go/internal/session"
	"github.com/mcdev12/songquiz/go/internal/timer"
)

// idleBackend fails every call; Dispatch tests never reach the BFF.
type idleBackend struct{}

func (idleBackend) StartGame(context.Context) (models.RoundState, error) {
	return models.RoundState{}, context.Canceled
}

func (idleBackend) SubmitGuess(context.Context, string, string, float64) (models.RoundState, error) {
	return models.RoundState{}, context.Canceled
}

func (idleBackend) NextRound(context.Context, string) (models.RoundState, error) {
	return models.RoundState{}, context.Canceled
}

func (idleBackend) Surrender(context.Context, string) (models.GameSummary, error) {
	return models.GameSummary{}, context.Canceled
}

func (idleBackend) Summary(context.Context, string) (models.GameSummary, error) {
	return models.GameSummary{}, context.Canceled
}

func (idleBackend) Search(context.Context, string) ([]models.Suggestion, error) {
	return nil, nil
}

func TestDispatch(t *testing.T) {
	t.Parallel()

	clock := clockwork.NewFakeClock()
	loop := timer.NewLoop(clock)
	m := session.NewMachine(loop, idleBackend{}, playback.ClockSource{Clock: clock}, nil, session.Config{})
	defer m.Close()

	if _, ok := Dispatch(m, clock.Now(), Command{Type: CommandGuess, Text: "x"}); ok {
		t.Fatalf("expected no reply for a refused guess")
	}

	if _, ok := Dispatch(m, clock.Now(), Command{Type: CommandStart}); ok {
		t.Fatalf("expected no reply for start")
	}
	if got := m.Snapshot().State; got != session.StateCountdown {
		t.Fatalf("expected countdown after start, got %s", got)
	}

	ev, ok := Dispatch(m, clock.Now(), Command{Type: CommandState})
	if !ok || ev.Type != TypeSnapshot {
		t.Fatalf("expected snapshot reply, got %+v", ev)
	}

	ev, ok = Dispatch(m, clock.Now(), Command{Type: "jump"})
	if !ok || ev.Type != events.TypeError {
		t.Fatalf("expected error reply, got %+v", ev)
	}
}
