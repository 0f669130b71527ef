package bff

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mcdev12/songquiz/go/internal/models"
)

// Wire shapes of the BFF responses. They are adapted into the canonical
// models and never leave this package.

type songWire struct {
	TrackID    int64  `json:"trackId"`
	TrackName  string `json:"trackName"`
	ArtistName string `json:"artistName"`
	ArtworkURL string `json:"artworkUrl100"`
	PreviewURL string `json:"previewUrl"`
}

func (w songWire) toModel() models.Song {
	return models.Song{
		TrackID:    w.TrackID,
		Title:      strings.TrimSpace(w.TrackName),
		Artist:     strings.TrimSpace(w.ArtistName),
		ArtworkURL: w.ArtworkURL,
		PreviewURL: w.PreviewURL,
	}
}

type roundStateWire struct {
	GameID     string   `json:"gameId"`
	Song       songWire `json:"song"`
	Round      int      `json:"round"`
	Score      int      `json:"score"`
	IsCorrect  *bool    `json:"isCorrect"`
	IsFinished bool     `json:"isFinished"`
}

func (w roundStateWire) toModel() models.RoundState {
	return models.RoundState{
		GameID:     w.GameID,
		Song:       w.Song.toModel(),
		Round:      w.Round,
		Score:      w.Score,
		IsCorrect:  models.VerdictFrom(w.IsCorrect),
		IsFinished: w.IsFinished,
	}
}

type summaryWire struct {
	GameID        string `json:"gameId"`
	TotalScore    int    `json:"totalScore"`
	TotalRounds   int    `json:"totalRounds"`
	CorrectRounds *int   `json:"correctRounds"`
	SongsGuessed  *int   `json:"songsGuessed"` // legacy name for correctRounds
}

func (w summaryWire) toModel() models.GameSummary {
	s := models.GameSummary{
		GameID:      w.GameID,
		TotalScore:  w.TotalScore,
		TotalRounds: w.TotalRounds,
	}
	switch {
	case w.CorrectRounds != nil:
		s.CorrectRounds = *w.CorrectRounds
	case w.SongsGuessed != nil:
		s.CorrectRounds = *w.SongsGuessed
	}
	return s
}

type suggestionWire struct {
	TrackID    int64  `json:"trackId"`
	ArtistName string `json:"artistName"`
	TrackName  string `json:"trackName"`
	ArtworkURL string `json:"artworkUrl100"`
}

type searchWire struct {
	ResultCount int              `json:"resultCount"`
	Results     []suggestionWire `json:"results"`
}

// toModel drops entries that cannot be offered as a guess.
func (w searchWire) toModel() []models.Suggestion {
	out := make([]models.Suggestion, 0, len(w.Results))
	for _, r := range w.Results {
		name := strings.TrimSpace(r.TrackName)
		if r.TrackID == 0 || name == "" {
			continue
		}
		out = append(out, models.Suggestion{
			TrackID:    r.TrackID,
			Artist:     strings.TrimSpace(r.ArtistName),
			Title:      name,
			ArtworkURL: r.ArtworkURL,
		})
	}
	return out
}

func decode[T any](body []byte) (T, error) {
	var v T
	if err := json.Unmarshal(body, &v); err != nil {
		return v, fmt.Errorf("decode %T: %v: %w", v, err, models.ErrInvalidPayload)
	}
	return v, nil
}
