package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/TaqdeesHigh/RBW-Bot-sub000/internal/domain"
)

type GameRepository struct {
	db     *sql.DB
	logger zerolog.Logger
}

func NewGameRepository(db *sql.DB, logger zerolog.Logger) *GameRepository {
	return &GameRepository{db: db, logger: logger}
}

// Create inserts the record and returns the store-assigned game number.
// AUTOINCREMENT keeps numbers monotonic across process restarts.
func (r *GameRepository) Create(ctx context.Context, g *domain.Game) (int64, error) {
	team1, team2, err := encodeTeams(g)
	if err != nil {
		return 0, err
	}

	var number int64
	err = withRetry(ctx, func(ctx context.Context) error {
		res, err := r.db.ExecContext(ctx,
			`INSERT INTO games (guild_id, gamemode, status, team1_members, team2_members, mvp, bed_breaker,
			                    winning_team, proof_ref, category_id, text_channel_id, team1_voice_id, team2_voice_id,
			                    created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			g.GuildID, g.Gamemode, g.Status, team1, team2, g.MVP, g.BedBreaker,
			g.WinningTeam, g.ProofRef, g.CategoryID, g.TextChannelID, g.Team1VoiceID, g.Team2VoiceID,
			g.CreatedAt, g.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to insert game: %w", err)
		}
		number, err = res.LastInsertId()
		return err
	})
	if err != nil {
		return 0, err
	}

	g.Number = number
	r.logger.Debug().Int64("game", number).Str("gamemode", string(g.Gamemode)).Msg("game record created")
	return number, nil
}

func (r *GameRepository) Get(ctx context.Context, number int64) (*domain.Game, error) {
	var (
		g            domain.Game
		team1, team2 string
	)
	err := withRetry(ctx, func(ctx context.Context) error {
		return r.db.QueryRowContext(ctx,
			`SELECT number, guild_id, gamemode, status, team1_members, team2_members, mvp, bed_breaker,
			        winning_team, proof_ref, category_id, text_channel_id, team1_voice_id, team2_voice_id,
			        created_at, updated_at
			 FROM games WHERE number = ?`, number).
			Scan(&g.Number, &g.GuildID, &g.Gamemode, &g.Status, &team1, &team2, &g.MVP, &g.BedBreaker,
				&g.WinningTeam, &g.ProofRef, &g.CategoryID, &g.TextChannelID, &g.Team1VoiceID, &g.Team2VoiceID,
				&g.CreatedAt, &g.UpdatedAt)
	})
	if notFound(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(team1), &g.Team1Members); err != nil {
		return nil, fmt.Errorf("failed to decode team1 members: %w", err)
	}
	if err := json.Unmarshal([]byte(team2), &g.Team2Members); err != nil {
		return nil, fmt.Errorf("failed to decode team2 members: %w", err)
	}
	return &g, nil
}

// Update writes the full record back (replacement semantics; the store
// offers no compare-and-swap).
func (r *GameRepository) Update(ctx context.Context, g *domain.Game) error {
	team1, team2, err := encodeTeams(g)
	if err != nil {
		return err
	}

	return withRetry(ctx, func(ctx context.Context) error {
		res, err := r.db.ExecContext(ctx,
			`UPDATE games
			 SET status = ?, team1_members = ?, team2_members = ?, mvp = ?, bed_breaker = ?,
			     winning_team = ?, proof_ref = ?, category_id = ?, text_channel_id = ?,
			     team1_voice_id = ?, team2_voice_id = ?, updated_at = ?
			 WHERE number = ?`,
			g.Status, team1, team2, g.MVP, g.BedBreaker,
			g.WinningTeam, g.ProofRef, g.CategoryID, g.TextChannelID,
			g.Team1VoiceID, g.Team2VoiceID, time.Now(), g.Number)
		if err != nil {
			return fmt.Errorf("failed to update game: %w", err)
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

// ListStale returns numbers of non-terminal games created before cutoff.
func (r *GameRepository) ListStale(ctx context.Context, cutoff time.Time) ([]int64, error) {
	var numbers []int64
	err := withRetry(ctx, func(ctx context.Context) error {
		numbers = numbers[:0]
		rows, err := r.db.QueryContext(ctx,
			`SELECT number FROM games
			 WHERE status IN (?, ?, ?) AND created_at < ?
			 ORDER BY number`,
			domain.StatusQueued, domain.StatusInProgress, domain.StatusSubmitted, cutoff)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var n int64
			if err := rows.Scan(&n); err != nil {
				return err
			}
			numbers = append(numbers, n)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return numbers, nil
}

func encodeTeams(g *domain.Game) (string, string, error) {
	team1, err := json.Marshal(emptyIfNil(g.Team1Members))
	if err != nil {
		return "", "", fmt.Errorf("failed to encode team1 members: %w", err)
	}
	team2, err := json.Marshal(emptyIfNil(g.Team2Members))
	if err != nil {
		return "", "", fmt.Errorf("failed to encode team2 members: %w", err)
	}
	return string(team1), string(team2), nil
}

func emptyIfNil(members []string) []string {
	if members == nil {
		return []string{}
	}
	return members
}
