package gateway

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/mcdev12/songquiz/go/internal/events"
	"github.com/mcdev12/songquiz/go/internal/session"
)

// CommandType names a client command
type CommandType string

const (
	CommandStart     CommandType = "start"
	CommandRestart   CommandType = "restart"
	CommandPlay      CommandType = "play"
	CommandInput     CommandType = "input"
	CommandSelect    CommandType = "select"
	CommandDismiss   CommandType = "dismiss"
	CommandGuess     CommandType = "guess"
	CommandSurrender CommandType = "surrender"
	CommandNext      CommandType = "next"
	CommandEnd       CommandType = "end"
	CommandState     CommandType = "state"
)

// TypeSnapshot is the reply to a state command.
const TypeSnapshot events.Type = "Snapshot"

// CodeBadCommand is the error code for commands the gateway cannot decode.
const CodeBadCommand = "bad_command"

// Command is a message from the client
type Command struct {
	Type    CommandType `json:"type"`
	Text    string      `json:"text,omitempty"`
	TrackID int64       `json:"track_id,omitempty"`
}

// Dispatch runs cmd against m. It must be called on m's loop. The returned
// event, if any, is a direct reply to the sender; everything else reaches the
// client through the session's own events.
func Dispatch(m *session.Machine, now time.Time, cmd Command) (events.Event, bool) {
	var accepted bool
	switch cmd.Type {
	case CommandStart:
		accepted = m.Start()
	case CommandRestart:
		accepted = m.Restart()
	case CommandPlay:
		accepted = m.Play()
	case CommandInput:
		accepted = m.Input(cmd.Text)
	case CommandSelect:
		accepted = m.SelectSuggestion(cmd.TrackID)
	case CommandDismiss:
		m.DismissSuggestions()
		accepted = true
	case CommandGuess:
		accepted = m.SubmitGuess(cmd.Text)
	case CommandSurrender:
		accepted = m.Surrender()
	case CommandNext:
		accepted = m.NextRound()
	case CommandEnd:
		accepted = m.EndGame()
	case CommandState:
		snap := m.Snapshot()
		ev, err := events.New(TypeSnapshot, snap.GameID, now, snap)
		if err != nil {
			log.Error().Err(err).Msg("failed to build snapshot")
			return events.Event{}, false
		}
		return ev, true
	default:
		return errorEvent(m.Snapshot().GameID, now, CodeBadCommand, fmt.Sprintf("unknown command %q", cmd.Type)), true
	}

	if !accepted {
		log.Debug().Str("command", string(cmd.Type)).Str("state", string(m.Snapshot().State)).Msg("command ignored in current state")
	}
	return events.Event{}, false
}

func errorEvent(gameID string, now time.Time, code, message string) events.Event {
	ev, err := events.New(events.TypeError, gameID, now, events.ErrorPayload{Code: code, Message: message})
	if err != nil {
		log.Error().Err(err).Msg("failed to build error event")
	}
	return ev
}
