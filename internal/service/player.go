package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/TaqdeesHigh/RBW-Bot-sub000/internal/constants"
	"github.com/TaqdeesHigh/RBW-Bot-sub000/internal/domain"
	"github.com/TaqdeesHigh/RBW-Bot-sub000/internal/rank"
	"github.com/TaqdeesHigh/RBW-Bot-sub000/internal/repository"
)

var (
	ErrAlreadyRegistered = errors.New("user already registered")
	ErrNameTaken         = errors.New("in-game name already registered")
	ErrNotRegistered     = errors.New("player not registered")
	ErrUnknownRank       = errors.New("unknown rank name")
)

// PlayerStore is the registration slice of the player repository.
type PlayerStore interface {
	Create(ctx context.Context, player *domain.Player, stats *domain.PlayerStats) error
	GetByID(ctx context.Context, id string) (*domain.Player, error)
	GetByIGN(ctx context.Context, ign string) (*domain.Player, error)
	Delete(ctx context.Context, id string) error
	Transfer(ctx context.Context, fromID, toID string) error
	GetStats(ctx context.Context, playerID string) (*domain.PlayerStats, error)
	SetRank(ctx context.Context, playerID, rank string) error
	Leaderboard(ctx context.Context, limit int) ([]repository.LeaderboardRow, error)
}

type PlayerService struct {
	store  PlayerStore
	logger zerolog.Logger
}

func NewPlayerService(store PlayerStore, logger zerolog.Logger) *PlayerService {
	return &PlayerService{store: store, logger: logger}
}

// Register creates a player and their stats row. Both the platform id and
// the in-game name must be unused.
func (s *PlayerService) Register(ctx context.Context, id, ign string) (*domain.Player, error) {
	if _, err := s.store.GetByID(ctx, id); err == nil {
		return nil, ErrAlreadyRegistered
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}
	if _, err := s.store.GetByIGN(ctx, ign); err == nil {
		return nil, ErrNameTaken
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	now := time.Now()
	player := &domain.Player{ID: id, IGN: ign, CreatedAt: now, UpdatedAt: now}
	stats := &domain.PlayerStats{
		PlayerID:  id,
		Elo:       constants.StartingElo,
		Rank:      rank.ForElo(constants.StartingElo),
		UpdatedAt: now,
	}

	if err := s.store.Create(ctx, player, stats); err != nil {
		return nil, fmt.Errorf("failed to register player: %w", err)
	}

	s.logger.Info().Str("player_id", id).Str("ign", ign).Msg("player registered")
	return player, nil
}

// Unregister removes the player entirely: registration, stats and
// punishments. A later lookup returns not-found.
func (s *PlayerService) Unregister(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotRegistered
		}
		return fmt.Errorf("failed to unregister player: %w", err)
	}
	s.logger.Info().Str("player_id", id).Msg("player unregistered")
	return nil
}

// Transfer moves a registration to a new platform id, keeping the stats
// history attached.
func (s *PlayerService) Transfer(ctx context.Context, fromID, toID string) error {
	if _, err := s.store.GetByID(ctx, toID); err == nil {
		return ErrAlreadyRegistered
	} else if !errors.Is(err, repository.ErrNotFound) {
		return err
	}

	if err := s.store.Transfer(ctx, fromID, toID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotRegistered
		}
		return fmt.Errorf("failed to transfer registration: %w", err)
	}
	s.logger.Info().Str("from", fromID).Str("to", toID).Msg("registration transferred")
	return nil
}

func (s *PlayerService) GetByID(ctx context.Context, id string) (*domain.Player, error) {
	p, err := s.store.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotRegistered
	}
	return p, err
}

func (s *PlayerService) GetByIGN(ctx context.Context, ign string) (*domain.Player, error) {
	p, err := s.store.GetByIGN(ctx, ign)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotRegistered
	}
	return p, err
}

func (s *PlayerService) GetStats(ctx context.Context, id string) (*domain.PlayerStats, error) {
	stats, err := s.store.GetStats(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotRegistered
	}
	return stats, err
}

// AdminSetRank is the explicit rank-only override. It bypasses the elo
// derivation on purpose and exists solely for manual fixes.
func (s *PlayerService) AdminSetRank(ctx context.Context, id, rankName string) error {
	if !rank.Valid(rankName) {
		return fmt.Errorf("%w: %q", ErrUnknownRank, rankName)
	}
	if err := s.store.SetRank(ctx, id, rankName); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotRegistered
		}
		return err
	}
	s.logger.Warn().Str("player_id", id).Str("rank", rankName).Msg("rank manually overridden")
	return nil
}

func (s *PlayerService) Leaderboard(ctx context.Context, limit int) ([]repository.LeaderboardRow, error) {
	if limit <= 0 {
		limit = constants.LeaderboardLimit
	}
	return s.store.Leaderboard(ctx, limit)
}
