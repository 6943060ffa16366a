package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"

	"github.com/TaqdeesHigh/RBW-Bot-sub000/internal/domain"
)

type PunishmentRepository struct {
	db     *sql.DB
	logger zerolog.Logger
}

func NewPunishmentRepository(db *sql.DB, logger zerolog.Logger) *PunishmentRepository {
	return &PunishmentRepository{db: db, logger: logger}
}

func (r *PunishmentRepository) Get(ctx context.Context, playerID string, kind domain.PunishmentKind) (*domain.Punishment, error) {
	var p domain.Punishment
	err := withRetry(ctx, func(ctx context.Context) error {
		return r.db.QueryRowContext(ctx,
			`SELECT id, player_id, kind, reason, issuer, strikes, expires_at, created_at, updated_at
			 FROM punishments WHERE player_id = ? AND kind = ?`, playerID, kind).
			Scan(&p.ID, &p.PlayerID, &p.Kind, &p.Reason, &p.Issuer, &p.Strikes, &p.ExpiresAt, &p.CreatedAt, &p.UpdatedAt)
	})
	if notFound(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Upsert keeps at most one row per player per kind. An existing row is
// replaced in place, preserving its id and created_at.
func (r *PunishmentRepository) Upsert(ctx context.Context, p *domain.Punishment) error {
	if p.ID == "" {
		id, err := gonanoid.New()
		if err != nil {
			return fmt.Errorf("failed to generate nanoid: %w", err)
		}
		p.ID = id
	}
	now := time.Now()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now

	return withRetry(ctx, func(ctx context.Context) error {
		_, err := r.db.ExecContext(ctx,
			`INSERT INTO punishments (id, player_id, kind, reason, issuer, strikes, expires_at, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			 ON CONFLICT (id) DO UPDATE SET
			     reason = excluded.reason,
			     issuer = excluded.issuer,
			     strikes = excluded.strikes,
			     expires_at = excluded.expires_at,
			     updated_at = excluded.updated_at
			 ON CONFLICT (player_id, kind) DO UPDATE SET
			     reason = excluded.reason,
			     issuer = excluded.issuer,
			     strikes = excluded.strikes,
			     expires_at = excluded.expires_at,
			     updated_at = excluded.updated_at`,
			p.ID, p.PlayerID, p.Kind, p.Reason, p.Issuer, p.Strikes, p.ExpiresAt, p.CreatedAt, p.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to upsert punishment: %w", err)
		}
		return nil
	})
}

// Delete removes the row for (player, kind); reports whether one existed.
func (r *PunishmentRepository) Delete(ctx context.Context, playerID string, kind domain.PunishmentKind) (bool, error) {
	var deleted bool
	err := withRetry(ctx, func(ctx context.Context) error {
		res, err := r.db.ExecContext(ctx,
			`DELETE FROM punishments WHERE player_id = ? AND kind = ?`, playerID, kind)
		if err != nil {
			return fmt.Errorf("failed to delete punishment: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		deleted = n > 0
		return nil
	})
	return deleted, err
}

// ListExpiredBans returns duration-based bans whose expiry has passed.
// Permanent bans (NULL expiry) never appear here.
func (r *PunishmentRepository) ListExpiredBans(ctx context.Context, now time.Time) ([]domain.Punishment, error) {
	var bans []domain.Punishment
	err := withRetry(ctx, func(ctx context.Context) error {
		bans = bans[:0]
		rows, err := r.db.QueryContext(ctx,
			`SELECT id, player_id, kind, reason, issuer, strikes, expires_at, created_at, updated_at
			 FROM punishments
			 WHERE kind = ? AND expires_at IS NOT NULL AND expires_at < ?`,
			domain.KindBan, now)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var p domain.Punishment
			if err := rows.Scan(&p.ID, &p.PlayerID, &p.Kind, &p.Reason, &p.Issuer, &p.Strikes,
				&p.ExpiresAt, &p.CreatedAt, &p.UpdatedAt); err != nil {
				return err
			}
			bans = append(bans, p)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return bans, nil
}
