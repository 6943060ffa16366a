package moderation

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/TaqdeesHigh/RBW-Bot-sub000/internal/constants"
	"github.com/TaqdeesHigh/RBW-Bot-sub000/internal/domain"
	"github.com/TaqdeesHigh/RBW-Bot-sub000/internal/platform"
	"github.com/TaqdeesHigh/RBW-Bot-sub000/internal/repository"
)

type Mode string

const (
	ModeGive   Mode = "give"
	ModeRemove Mode = "remove"
	ModeSet    Mode = "set"
)

var (
	ErrInvalidMode     = errors.New("mode must be give, remove or set")
	ErrInvalidAmount   = errors.New("strike amount must be non-negative")
	ErrInvalidDuration = errors.New("duration must look like 30m, 12h, 7d or perm")
	ErrOnCooldown      = errors.New("moderation action on cooldown for this player")
)

// PunishmentStore is the persistence contract for the ledger: one row per
// player per kind, upsert semantics.
type PunishmentStore interface {
	Get(ctx context.Context, playerID string, kind domain.PunishmentKind) (*domain.Punishment, error)
	Upsert(ctx context.Context, p *domain.Punishment) error
	Delete(ctx context.Context, playerID string, kind domain.PunishmentKind) (bool, error)
	ListExpiredBans(ctx context.Context, now time.Time) ([]domain.Punishment, error)
}

// Ledger accrues strikes and escalates them into bans. The per-player
// cooldown map is in-memory only and resets on restart.
type Ledger struct {
	store    PunishmentStore
	notifier platform.Notifier
	logger   zerolog.Logger
	now      func() time.Time

	cooldownMu sync.Mutex
	cooldowns  map[string]time.Time
}

func NewLedger(store PunishmentStore, notifier platform.Notifier, logger zerolog.Logger) *Ledger {
	return &Ledger{
		store:     store,
		notifier:  notifier,
		logger:    logger,
		now:       time.Now,
		cooldowns: make(map[string]time.Time),
	}
}

// StrikeResult reports the strike total after an adjustment and the ban it
// escalated into, if any.
type StrikeResult struct {
	Total int
	Ban   *domain.Punishment
}

// ApplyStrikes adjusts a player's strike total and escalates when the
// total crosses the auto-ban threshold: a ban of min(total, 25) hours, or
// a permanent one at the maximum. The strike row and any ban are upserted,
// never appended.
func (l *Ledger) ApplyStrikes(ctx context.Context, playerID string, amount int, mode Mode, issuer, reason string) (*StrikeResult, error) {
	if amount < 0 {
		return nil, ErrInvalidAmount
	}

	current := 0
	row, err := l.store.Get(ctx, playerID, domain.KindStrike)
	switch {
	case err == nil:
		current = row.Strikes
	case errors.Is(err, repository.ErrNotFound):
		row = &domain.Punishment{PlayerID: playerID, Kind: domain.KindStrike}
	default:
		return nil, err
	}

	var total int
	switch mode {
	case ModeGive:
		total = current + amount
	case ModeRemove:
		total = current - amount
	case ModeSet:
		total = amount
	default:
		return nil, ErrInvalidMode
	}
	total = clamp(total, constants.MinStrikes, constants.MaxStrikes)

	row.Strikes = total
	row.Issuer = issuer
	row.Reason = reason
	if err := l.store.Upsert(ctx, row); err != nil {
		return nil, fmt.Errorf("failed to persist strikes: %w", err)
	}

	l.touchCooldown(playerID)

	result := &StrikeResult{Total: total}
	if total >= constants.AutoBanThreshold {
		ban, err := l.escalate(ctx, playerID, total, issuer)
		if err != nil {
			return nil, err
		}
		result.Ban = ban
	}

	l.logger.Info().
		Str("player_id", playerID).
		Str("mode", string(mode)).
		Int("amount", amount).
		Int("total", total).
		Bool("banned", result.Ban != nil).
		Msg("strikes adjusted")
	return result, nil
}

func (l *Ledger) escalate(ctx context.Context, playerID string, total int, issuer string) (*domain.Punishment, error) {
	ban := &domain.Punishment{
		PlayerID: playerID,
		Kind:     domain.KindBan,
		Reason:   fmt.Sprintf("automatic: %d strikes", total),
		Issuer:   issuer,
	}
	if total < constants.MaxStrikes {
		hours := total
		expires := l.now().Add(time.Duration(hours) * time.Hour)
		ban.ExpiresAt = &expires
	}
	// total == MaxStrikes leaves ExpiresAt nil: permanent.

	// Preserve the existing row's identity so escalation replaces rather
	// than stacks.
	if existing, err := l.store.Get(ctx, playerID, domain.KindBan); err == nil {
		ban.ID = existing.ID
		ban.CreatedAt = existing.CreatedAt
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	if err := l.store.Upsert(ctx, ban); err != nil {
		return nil, fmt.Errorf("failed to persist automatic ban: %w", err)
	}

	l.notify(ctx, platform.Notification{
		Title:       "Automatic ban",
		Description: fmt.Sprintf("<@%s> reached %d strikes", playerID, total),
		Color:       0xe67e22,
		Fields: []platform.NotificationField{
			{Name: "Duration", Value: banDurationLabel(ban), Inline: true},
		},
	})
	return ban, nil
}

// Ban upserts a manual ban; a nil duration means permanent.
func (l *Ledger) Ban(ctx context.Context, playerID string, duration *time.Duration, issuer, reason string) (*domain.Punishment, error) {
	ban := &domain.Punishment{
		PlayerID: playerID,
		Kind:     domain.KindBan,
		Reason:   reason,
		Issuer:   issuer,
	}
	if duration != nil {
		expires := l.now().Add(*duration)
		ban.ExpiresAt = &expires
	}

	if existing, err := l.store.Get(ctx, playerID, domain.KindBan); err == nil {
		ban.ID = existing.ID
		ban.CreatedAt = existing.CreatedAt
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	if err := l.store.Upsert(ctx, ban); err != nil {
		return nil, fmt.Errorf("failed to persist ban: %w", err)
	}
	l.touchCooldown(playerID)
	l.logger.Info().Str("player_id", playerID).Str("duration", banDurationLabel(ban)).Msg("player banned")
	return ban, nil
}

// Unban removes an active ban; reports whether one existed.
func (l *Ledger) Unban(ctx context.Context, playerID string) (bool, error) {
	removed, err := l.store.Delete(ctx, playerID, domain.KindBan)
	if err != nil {
		return false, fmt.Errorf("failed to remove ban: %w", err)
	}
	if removed {
		l.logger.Info().Str("player_id", playerID).Msg("player unbanned")
	}
	return removed, nil
}

// ActiveBan returns the player's ban if one is in force right now. A
// lapsed duration ban reads as no ban even before the sweeper removes it.
func (l *Ledger) ActiveBan(ctx context.Context, playerID string) (*domain.Punishment, error) {
	ban, err := l.store.Get(ctx, playerID, domain.KindBan)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if ban.Expired(l.now()) {
		return nil, nil
	}
	return ban, nil
}

// CheckAndRemoveBans is the polling reconciliation sweep: every ban whose
// expiry has passed is deleted, with one notification per removal. Run on
// a schedule, independent of mutations.
func (l *Ledger) CheckAndRemoveBans(ctx context.Context) (int, error) {
	expired, err := l.store.ListExpiredBans(ctx, l.now())
	if err != nil {
		return 0, fmt.Errorf("failed to list expired bans: %w", err)
	}

	removed := 0
	for _, ban := range expired {
		if _, err := l.store.Delete(ctx, ban.PlayerID, domain.KindBan); err != nil {
			l.logger.Warn().Err(err).Str("player_id", ban.PlayerID).Msg("failed to remove expired ban")
			continue
		}
		removed++
		l.notify(ctx, platform.Notification{
			Title:       "Ban expired",
			Description: fmt.Sprintf("<@%s> may queue again", ban.PlayerID),
			Color:       0x3498db,
		})
	}

	if removed > 0 {
		l.logger.Info().Int("removed", removed).Msg("expired bans swept")
	}
	return removed, nil
}

// CooldownRemaining tells command surfaces how long to reject repeat
// moderation actions for a player. Advisory only.
func (l *Ledger) CooldownRemaining(playerID string) time.Duration {
	l.cooldownMu.Lock()
	defer l.cooldownMu.Unlock()
	last, ok := l.cooldowns[playerID]
	if !ok {
		return 0
	}
	remaining := constants.StrikeCooldown - l.now().Sub(last)
	if remaining < 0 {
		return 0
	}
	return remaining
}

func (l *Ledger) touchCooldown(playerID string) {
	l.cooldownMu.Lock()
	defer l.cooldownMu.Unlock()
	l.cooldowns[playerID] = l.now()
}

func (l *Ledger) notify(ctx context.Context, n platform.Notification) {
	if err := l.notifier.Post(ctx, n); err != nil {
		l.logger.Warn().Err(err).Str("title", n.Title).Msg("failed to post notification")
	}
}

var durationPattern = regexp.MustCompile(`^(\d+)([mhd])$`)

// ParseBanDuration reads moderation duration strings: "<n>m", "<n>h",
// "<n>d" or "perm". A nil result means permanent.
func ParseBanDuration(s string) (*time.Duration, error) {
	if s == "perm" {
		return nil, nil
	}
	m := durationPattern.FindStringSubmatch(s)
	if m == nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidDuration, s)
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n <= 0 {
		return nil, fmt.Errorf("%w: %q", ErrInvalidDuration, s)
	}

	var unit time.Duration
	switch m[2] {
	case "m":
		unit = time.Minute
	case "h":
		unit = time.Hour
	case "d":
		unit = 24 * time.Hour
	}
	d := time.Duration(n) * unit
	return &d, nil
}

func banDurationLabel(ban *domain.Punishment) string {
	if ban.ExpiresAt == nil {
		return "permanent"
	}
	return fmt.Sprintf("until %s", ban.ExpiresAt.UTC().Format(time.RFC3339))
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
