package app

import (
	"context"

	"github.com/ChristianAlexanderDiaz/WeeklyTimeTrials/internal/services/challenge/domain"
)

// Snapshot is everything a renderer needs to draw one leaderboard.
type Snapshot struct {
	Challenge domain.Challenge
	Entries   []domain.RankedEntry

	// Duel outcome fields, set once a duel is completed.
	Outcome  domain.DuelOutcome
	WinnerID string
}

// RenderSink publishes a leaderboard snapshot somewhere external. It
// receives the challenge's prior opaque handle and returns the handle to
// persist for the next update. Render failures are never fatal to the
// data mutation that triggered them.
type RenderSink interface {
	Render(ctx context.Context, snapshot Snapshot, priorRef string) (string, error)
}

// RenderFunc adapts a function to the RenderSink interface.
type RenderFunc func(ctx context.Context, snapshot Snapshot, priorRef string) (string, error)

// Render implements RenderSink.
func (f RenderFunc) Render(ctx context.Context, snapshot Snapshot, priorRef string) (string, error) {
	return f(ctx, snapshot, priorRef)
}
