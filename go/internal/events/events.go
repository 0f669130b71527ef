package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Event is the envelope for everything a session reports to its front end.
type Event struct {
	ID        string          `json:"id"`        // Event UUID
	GameID    string          `json:"game_id"`   // Empty before the BFF assigned one
	Type      Type            `json:"type"`      // Event type
	Timestamp time.Time       `json:"timestamp"` // Event creation time
	Data      json.RawMessage `json:"data"`      // Event-specific payload
}

// Type represents the type of session event
type Type string

const (
	TypeStateChanged  Type = "StateChanged"
	TypeCountdownTick Type = "CountdownTick"
	TypeRoundStarted  Type = "RoundStarted"
	TypePlaybackTick  Type = "PlaybackTick"
	TypeTimerTick     Type = "TimerTick"
	TypeGuessJudged   Type = "GuessJudged"
	TypeSuggestions   Type = "Suggestions"
	TypeRoundResolved Type = "RoundResolved"
	TypeGameSummary   Type = "GameSummary"
	TypeError         Type = "Error"
)

// New builds an event with a fresh ID.
func New(t Type, gameID string, at time.Time, payload any) (Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("marshal %s payload: %w", t, err)
	}
	return Event{
		ID:        uuid.New().String(),
		GameID:    gameID,
		Type:      t,
		Timestamp: at,
		Data:      data,
	}, nil
}

// Sink receives session events.
type Sink interface {
	Emit(ev Event)
}

// SinkFunc adapts a plain function to the Sink interface.
type SinkFunc func(ev Event)

func (f SinkFunc) Emit(ev Event) { f(ev) }

// Multi fans an event out to every sink in order.
type Multi []Sink

func (m Multi) Emit(ev Event) {
	for _, s := range m {
		if s != nil {
			s.Emit(ev)
		}
	}
}

// Discard drops every event.
var Discard Sink = SinkFunc(func(Event) {})

// Filter forwards only the listed event types to next.
func Filter(next Sink, types ...Type) Sink {
	allowed := make(map[Type]bool, len(types))
	for _, t := range types {
		allowed[t] = true
	}
	return SinkFunc(func(ev Event) {
		if allowed[ev.Type] {
			next.Emit(ev)
		}
	})
}
