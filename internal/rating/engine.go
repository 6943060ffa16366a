package rating

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/TaqdeesHigh/RBW-Bot-sub000/internal/constants"
	"github.com/TaqdeesHigh/RBW-Bot-sub000/internal/domain"
	"github.com/TaqdeesHigh/RBW-Bot-sub000/internal/rank"
)

// ErrNoStats marks a player whose stats row could not be found. Store
// implementations return it (wrapped or bare) so the engine can skip the
// player instead of aborting the batch.
var ErrNoStats = errors.New("player stats not found")

// StatsStore is the slice of persistence the engine needs. Reads and
// writes are not isolated from each other; interleaving between them is an
// accepted race window.
type StatsStore interface {
	GetStats(ctx context.Context, playerID string) (*domain.PlayerStats, error)
	UpdateStats(ctx context.Context, stats *domain.PlayerStats) error
}

// Change records one player's elo movement.
type Change struct {
	PlayerID string
	OldElo   int
	NewElo   int
	OldRank  string
	NewRank  string
}

// Outcome is the result of applying a finished match. Skipped lists
// players whose stats rows were missing or failed to persist.
type Outcome struct {
	Winners []Change
	Losers  []Change
	Skipped []string
}

type Engine struct {
	store  StatsStore
	logger zerolog.Logger
}

func NewEngine(store StatsStore, logger zerolog.Logger) *Engine {
	return &Engine{store: store, logger: logger}
}

// Apply computes and persists the rating outcome of a match. Each player is
// processed independently: a missing or failing row is logged and skipped,
// never fatal to the rest. The MVP bonus lands exactly once, inside the
// winner or loser pass the MVP already belongs to.
func (e *Engine) Apply(ctx context.Context, winners, losers []string, mvp, bedBreaker string) (*Outcome, error) {
	if len(winners) == 0 || len(losers) == 0 {
		return nil, fmt.Errorf("both teams must be non-empty")
	}

	out := &Outcome{}

	for _, id := range winners {
		change, err := e.applyOne(ctx, id, mvp, bedBreaker, true)
		if err != nil {
			e.logger.Warn().Err(err).Str("player_id", id).Msg("skipping winner update")
			out.Skipped = append(out.Skipped, id)
			continue
		}
		out.Winners = append(out.Winners, *change)
	}

	for _, id := range losers {
		change, err := e.applyOne(ctx, id, mvp, bedBreaker, false)
		if err != nil {
			e.logger.Warn().Err(err).Str("player_id", id).Msg("skipping loser update")
			out.Skipped = append(out.Skipped, id)
			continue
		}
		out.Losers = append(out.Losers, *change)
	}

	e.logger.Info().
		Int("winners", len(out.Winners)).
		Int("losers", len(out.Losers)).
		Int("skipped", len(out.Skipped)).
		Msg("rating applied")

	return out, nil
}

func (e *Engine) applyOne(ctx context.Context, id, mvp, bedBreaker string, won bool) (*Change, error) {
	stats, err := e.store.GetStats(ctx, id)
	if err != nil {
		return nil, err
	}

	change := &Change{
		PlayerID: id,
		OldElo:   stats.Elo,
		OldRank:  rank.ForElo(stats.Elo),
	}

	deltas := rank.DeltasForElo(stats.Elo)

	newElo := stats.Elo
	if won {
		newElo += deltas.Win
		stats.Wins++
	} else {
		// Clamp at zero; the effective delta shrinks so elo lands exactly
		// on the floor.
		newElo -= deltas.Loss
		if newElo < 0 {
			newElo = 0
		}
		stats.Losses++
	}

	if id == mvp {
		if won {
			newElo += constants.MVPBonusWinner
		} else {
			newElo += constants.MVPBonusLoser
		}
		stats.MVPCount++
	}
	if id == bedBreaker {
		stats.BedBreakerCount++
	}

	stats.Elo = newElo
	stats.Rank = rank.ForElo(newElo)
	stats.Games = stats.Wins + stats.Losses
	stats.RecomputeWLR()

	if err := e.store.UpdateStats(ctx, stats); err != nil {
		return nil, err
	}

	change.NewElo = newElo
	change.NewRank = stats.Rank
	return change, nil
}
