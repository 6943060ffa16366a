package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/TaqdeesHigh/RBW-Bot-sub000/internal/domain"
)

type PlayerRepository struct {
	db     *sql.DB
	logger zerolog.Logger
}

func NewPlayerRepository(db *sql.DB, logger zerolog.Logger) *PlayerRepository {
	return &PlayerRepository{db: db, logger: logger}
}

// Create inserts the player and its stats row in one transaction.
func (r *PlayerRepository) Create(ctx context.Context, player *domain.Player, stats *domain.PlayerStats) error {
	return withRetry(ctx, func(ctx context.Context) error {
		tx, err := r.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}
		defer tx.Rollback()

		_, err = tx.ExecContext(ctx,
			`INSERT INTO players (id, ign, created_at, updated_at) VALUES (?, ?, ?, ?)`,
			player.ID, player.IGN, player.CreatedAt, player.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to insert player: %w", err)
		}

		_, err = tx.ExecContext(ctx,
			`INSERT INTO player_stats (player_id, elo, rank, wins, losses, wlr, games, mvp_count, bed_breaker_count, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			stats.PlayerID, stats.Elo, stats.Rank, stats.Wins, stats.Losses, stats.WLR,
			stats.Games, stats.MVPCount, stats.BedBreakerCount, stats.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to insert player stats: %w", err)
		}

		return tx.Commit()
	})
}

func (r *PlayerRepository) GetByID(ctx context.Context, id string) (*domain.Player, error) {
	return r.getPlayer(ctx, `SELECT id, ign, created_at, updated_at FROM players WHERE id = ?`, id)
}

func (r *PlayerRepository) GetByIGN(ctx context.Context, ign string) (*domain.Player, error) {
	return r.getPlayer(ctx, `SELECT id, ign, created_at, updated_at FROM players WHERE ign = ?`, ign)
}

func (r *PlayerRepository) getPlayer(ctx context.Context, query string, arg any) (*domain.Player, error) {
	var p domain.Player
	err := withRetry(ctx, func(ctx context.Context) error {
		return r.db.QueryRowContext(ctx, query, arg).
			Scan(&p.ID, &p.IGN, &p.CreatedAt, &p.UpdatedAt)
	})
	if notFound(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Delete removes the player, their stats row and any punishments. Returns
// ErrNotFound when no registration exists.
func (r *PlayerRepository) Delete(ctx context.Context, id string) error {
	return withRetry(ctx, func(ctx context.Context) error {
		tx, err := r.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}
		defer tx.Rollback()

		if _, err := tx.ExecContext(ctx, `DELETE FROM punishments WHERE player_id = ?`, id); err != nil {
			return fmt.Errorf("failed to delete punishments: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM player_stats WHERE player_id = ?`, id); err != nil {
			return fmt.Errorf("failed to delete player stats: %w", err)
		}

		res, err := tx.ExecContext(ctx, `DELETE FROM players WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("failed to delete player: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrNotFound
		}

		return tx.Commit()
	})
}

// Transfer moves a registration to a new platform id, keeping stats and
// punishments attached.
func (r *PlayerRepository) Transfer(ctx context.Context, fromID, toID string) error {
	return withRetry(ctx, func(ctx context.Context) error {
		tx, err := r.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}
		defer tx.Rollback()

		now := time.Now()
		res, err := tx.ExecContext(ctx,
			`UPDATE players SET id = ?, updated_at = ? WHERE id = ?`, toID, now, fromID)
		if err != nil {
			return fmt.Errorf("failed to transfer player: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrNotFound
		}

		// player_stats follows the parent key via ON UPDATE CASCADE;
		// punishments carry no foreign key and move explicitly.
		if _, err := tx.ExecContext(ctx,
			`UPDATE punishments SET player_id = ? WHERE player_id = ?`, toID, fromID); err != nil {
			return fmt.Errorf("failed to transfer punishments: %w", err)
		}

		return tx.Commit()
	})
}

func (r *PlayerRepository) GetStats(ctx context.Context, playerID string) (*domain.PlayerStats, error) {
	var s domain.PlayerStats
	err := withRetry(ctx, func(ctx context.Context) error {
		return r.db.QueryRowContext(ctx,
			`SELECT player_id, elo, rank, wins, losses, wlr, games, mvp_count, bed_breaker_count, updated_at
			 FROM player_stats WHERE player_id = ?`, playerID).
			Scan(&s.PlayerID, &s.Elo, &s.Rank, &s.Wins, &s.Losses, &s.WLR,
				&s.Games, &s.MVPCount, &s.BedBreakerCount, &s.UpdatedAt)
	})
	if notFound(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// UpdateStats writes the full stats row back. Elo and rank always travel
// together through here.
func (r *PlayerRepository) UpdateStats(ctx context.Context, stats *domain.PlayerStats) error {
	return withRetry(ctx, func(ctx context.Context) error {
		res, err := r.db.ExecContext(ctx,
			`UPDATE player_stats
			 SET elo = ?, rank = ?, wins = ?, losses = ?, wlr = ?, games = ?, mvp_count = ?, bed_breaker_count = ?, updated_at = ?
			 WHERE player_id = ?`,
			stats.Elo, stats.Rank, stats.Wins, stats.Losses, stats.WLR, stats.Games,
			stats.MVPCount, stats.BedBreakerCount, time.Now(), stats.PlayerID)
		if err != nil {
			return fmt.Errorf("failed to update player stats: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// SetRank is the admin rank-only override. Normal paths never call it.
func (r *PlayerRepository) SetRank(ctx context.Context, playerID, rank string) error {
	return withRetry(ctx, func(ctx context.Context) error {
		res, err := r.db.ExecContext(ctx,
			`UPDATE player_stats SET rank = ?, updated_at = ? WHERE player_id = ?`,
			rank, time.Now(), playerID)
		if err != nil {
			return fmt.Errorf("failed to set rank: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// LeaderboardRow pairs a stats row with the player's display name.
type LeaderboardRow struct {
	IGN   string
	Stats domain.PlayerStats
}

func (r *PlayerRepository) Leaderboard(ctx context.Context, limit int) ([]LeaderboardRow, error) {
	var rows []LeaderboardRow
	err := withRetry(ctx, func(ctx context.Context) error {
		rows = rows[:0]
		result, err := r.db.QueryContext(ctx,
			`SELECT p.ign, s.player_id, s.elo, s.rank, s.wins, s.losses, s.wlr, s.games, s.mvp_count, s.bed_breaker_count, s.updated_at
			 FROM player_stats s JOIN players p ON p.id = s.player_id
			 ORDER BY s.elo DESC LIMIT ?`, limit)
		if err != nil {
			return err
		}
		defer result.Close()

		for result.Next() {
			var row LeaderboardRow
			s := &row.Stats
			if err := result.Scan(&row.IGN, &s.PlayerID, &s.Elo, &s.Rank, &s.Wins, &s.Losses,
				&s.WLR, &s.Games, &s.MVPCount, &s.BedBreakerCount, &s.UpdatedAt); err != nil {
				return err
			}
			rows = append(rows, row)
		}
		return result.Err()
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}
