package session

import (
	"time"

	"github.com/mcdev12/songquiz/go/internal/models"
	"github.com/mcdev12/songquiz/go/internal/round"
	"github.com/mcdev12/songquiz/go/internal/suggest"
)

// Snapshot is a read-only view of a session for rendering.
type Snapshot struct {
	State         State                 `json:"state"`
	GameID        string                `json:"game_id,omitempty"`
	Round         int                   `json:"round"`
	Score         int                   `json:"score"`
	Countdown     int                   `json:"countdown,omitempty"`
	Guess         string                `json:"guess"`
	Verdict       models.Verdict        `json:"verdict"`
	Playback      models.PlaybackWindow `json:"playback"`
	Playing       bool                  `json:"playing"`
	TimeRemaining time.Duration         `json:"time_remaining"`
	Race          round.Result          `json:"race,omitempty"`
	Suggestions   suggest.Results       `json:"suggestions"`
	Outcome       *models.Outcome       `json:"outcome,omitempty"`
	CanContinue   bool                  `json:"can_continue"`
	// Song is revealed only once the round is resolved.
	Song    *models.Song        `json:"song,omitempty"`
	Summary *models.GameSummary `json:"summary,omitempty"`
}

func (m *Machine) Snapshot() Snapshot {
	s := Snapshot{
		State:       m.state,
		GameID:      m.gameID,
		Round:       m.roundIndex,
		Score:       m.score,
		Guess:       m.guessText,
		Verdict:     m.current.IsCorrect,
		Playback:    m.player.Window(),
		Playing:     m.player.Playing(),
		Suggestions: m.search.Results(),
		Outcome:     m.outcome,
		Summary:     m.summary,
	}
	if s.Verdict == "" {
		s.Verdict = models.VerdictUnknown
	}
	if m.state == StateCountdown {
		s.Countdown = m.countdown
	}
	if m.race != nil {
		s.Race = m.race.Result()
		s.TimeRemaining = m.race.Remaining()
	}
	if m.resolution != nil {
		s.CanContinue = m.resolution.CanContinue
	}
	if m.state == StateRoundResolved || m.state == StateSummaryShown {
		song := m.current.Song
		s.Song = &song
	}
	return s
}
