package session

import (
	"context"
	"fmt"

	"github.com/mcdev12/songquiz/go/internal/models"
)

// SummaryBackend is the part of the BFF the resolver needs.
type SummaryBackend interface {
	Surrender(ctx context.Context, gameID string) (models.GameSummary, error)
	Summary(ctx context.Context, gameID string) (models.GameSummary, error)
}

// Resolution is what the UI shows once a round has ended.
type Resolution struct {
	Summary     *models.GameSummary
	CanContinue bool
}

// Resolver turns the terminal outcome of a round into either a "next round"
// affordance or the game summary.
type Resolver struct {
	backend SummaryBackend
}

// NewResolver creates a resolver over the summary endpoints.
func NewResolver(backend SummaryBackend) *Resolver {
	return &Resolver{backend: backend}
}

// Resolve may block on the BFF. A surrender is answered by the surrender
// endpoint itself; a timeout, or a success that finished the game, fetches the
// summary.
func (r *Resolver) Resolve(ctx context.Context, gameID string, outcome models.Outcome) (Resolution, error) {
	switch outcome.Kind {
	case models.OutcomeSuccess:
		if outcome.Round == nil || !outcome.Round.IsFinished {
			return Resolution{CanContinue: true}, nil
		}
		return r.summary(ctx, gameID, r.backend.Summary)
	case models.OutcomeSurrender:
		return r.summary(ctx, gameID, r.backend.Surrender)
	case models.OutcomeTimeout:
		return r.summary(ctx, gameID, r.backend.Summary)
	default:
		return Resolution{}, fmt.Errorf("unknown outcome %q", outcome.Kind)
	}
}

func (r *Resolver) summary(ctx context.Context, gameID string, fetch func(context.Context, string) (models.GameSummary, error)) (Resolution, error) {
	s, err := fetch(ctx, gameID)
	if err != nil {
		return Resolution{}, fmt.Errorf("resolve game %s: %w", gameID, err)
	}
	return Resolution{Summary: &s}, nil
}
