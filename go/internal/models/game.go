package models

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidPayload is returned when a BFF payload does not match the canonical schema.
var ErrInvalidPayload = errors.New("invalid payload")

// Verdict is the tri-state correctness of a round as judged by the BFF.
type Verdict string

const (
	VerdictUnknown   Verdict = "unknown"
	VerdictCorrect   Verdict = "correct"
	VerdictIncorrect Verdict = "incorrect"
)

// VerdictFrom maps the BFF's nullable boolean onto a Verdict.
func VerdictFrom(b *bool) Verdict {
	switch {
	case b == nil:
		return VerdictUnknown
	case *b:
		return VerdictCorrect
	default:
		return VerdictIncorrect
	}
}

// RoundState is the BFF's view of a round. It is replaced wholesale on every response.
type RoundState struct {
	GameID     string  `json:"game_id"`
	Song       Song    `json:"song"`
	Round      int     `json:"round"`
	Score      int     `json:"score"`
	IsCorrect  Verdict `json:"is_correct"`
	IsFinished bool    `json:"is_finished"`
}

// ValidateRound checks a round-start or next-round response.
func (r RoundState) ValidateRound() error {
	if r.GameID == "" {
		return fmt.Errorf("round state without gameId: %w", ErrInvalidPayload)
	}
	if !r.Song.Playable() {
		return fmt.Errorf("round state for game %s without a playable song: %w", r.GameID, ErrInvalidPayload)
	}
	return nil
}

// ValidateVerdict checks a guess response.
func (r RoundState) ValidateVerdict() error {
	if r.GameID == "" {
		return fmt.Errorf("guess verdict without gameId: %w", ErrInvalidPayload)
	}
	return nil
}

// GameSummary is the terminal artifact of a session.
type GameSummary struct {
	GameID        string `json:"game_id"`
	TotalScore    int    `json:"total_score"`
	TotalRounds   int    `json:"total_rounds"`
	CorrectRounds int    `json:"correct_rounds"`
}

// Validate checks a summary response.
func (s GameSummary) Validate() error {
	if s.GameID == "" {
		return fmt.Errorf("summary without gameId: %w", ErrInvalidPayload)
	}
	return nil
}

// OutcomeKind is the terminal reason a round ended.
type OutcomeKind string

const (
	OutcomeSuccess   OutcomeKind = "success"
	OutcomeTimeout   OutcomeKind = "timeout"
	OutcomeSurrender OutcomeKind = "surrender"
)

// Outcome is consumed exactly once by the outcome resolver.
type Outcome struct {
	Kind  OutcomeKind `json:"kind"`
	Round *RoundState `json:"round,omitempty"` // set for OutcomeSuccess
}

func SuccessOutcome(rs RoundState) Outcome {
	return Outcome{Kind: OutcomeSuccess, Round: &rs}
}

func TimeoutOutcome() Outcome {
	return Outcome{Kind: OutcomeTimeout}
}

func SurrenderOutcome() Outcome {
	return Outcome{Kind: OutcomeSurrender}
}

// PlaybackWindow is the per-round playback budget.
type PlaybackWindow struct {
	Elapsed            time.Duration `json:"elapsed"`
	Max                time.Duration `json:"max"`
	HasPlayedThisRound bool          `json:"has_played_this_round"`
}
