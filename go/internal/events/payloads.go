package events

import (
	"encoding/json"

	"github.com/mcdev12/songquiz/go/internal/models"
)

// Event payload types shared between the session and its transports

// StateChangedPayload is the payload for a StateChanged event
type StateChangedPayload struct {
	State    string `json:"state"`
	Previous string `json:"previous"`
	Reason   string `json:"reason"`
}

// CountdownTickPayload is the payload for a CountdownTick event
type CountdownTickPayload struct {
	Remaining int `json:"remaining"`
}

// RoundStartedPayload is the payload for a RoundStarted event. The song is
// not revealed until the round resolves.
type RoundStartedPayload struct {
	Round           int     `json:"round"`
	Score           int     `json:"score"`
	MaxPlaySec      float64 `json:"max_play_sec"`
	RoundTimeoutSec float64 `json:"round_timeout_sec"`
}

// PlaybackTickPayload is the payload for a PlaybackTick event
type PlaybackTickPayload struct {
	ElapsedSec float64 `json:"elapsed_sec"`
	MaxSec     float64 `json:"max_sec"`
	Playing    bool    `json:"playing"`
	HasPlayed  bool    `json:"has_played"`
}

// TimerTickPayload contains periodic round timer updates
type TimerTickPayload struct {
	TimeRemainingSec int `json:"time_remaining_sec"`
}

// GuessJudgedPayload is the payload for a GuessJudged event
type GuessJudgedPayload struct {
	Guess   string  `json:"guess"`
	Correct bool    `json:"correct"`
	Score   int     `json:"score"`
	TimeSec float64 `json:"time_sec"`
}

// SuggestionsPayload is the payload for a Suggestions event
type SuggestionsPayload struct {
	Results []models.Suggestion `json:"results"`
	Show    bool                `json:"show"`
}

// RoundResolvedPayload is the payload for a RoundResolved event
type RoundResolvedPayload struct {
	Outcome     models.OutcomeKind `json:"outcome"`
	Round       int                `json:"round"`
	Song        models.Song        `json:"song"`
	Score       int                `json:"score"`
	CanContinue bool               `json:"can_continue"`
}

// GameSummaryPayload is the payload for a GameSummary event
type GameSummaryPayload struct {
	Summary models.GameSummary `json:"summary"`
}

// ErrorPayload is the payload for an Error event
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ParsePayload parses event data into the matching payload struct
func ParsePayload(ev Event) (interface{}, error) {
	var target interface{}
	switch ev.Type {
	case TypeStateChanged:
		target = &StateChangedPayload{}
	case TypeCountdownTick:
		target = &CountdownTickPayload{}
	case TypeRoundStarted:
		target = &RoundStartedPayload{}
	case TypePlaybackTick:
		target = &PlaybackTickPayload{}
	case TypeTimerTick:
		target = &TimerTickPayload{}
	case TypeGuessJudged:
		target = &GuessJudgedPayload{}
	case TypeSuggestions:
		target = &SuggestionsPayload{}
	case TypeRoundResolved:
		target = &RoundResolvedPayload{}
	case TypeGameSummary:
		target = &GameSummaryPayload{}
	case TypeError:
		target = &ErrorPayload{}
	default:
		return nil, nil // Unknown event type
	}
	if err := json.Unmarshal(ev.Data, target); err != nil {
		return nil, err
	}
	return target, nil
}
