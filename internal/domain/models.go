package domain

import (
	"fmt"
	"time"
)

// Player maps a platform user id to an in-game name. Both sides of the
// mapping are unique: one id owns at most one IGN and vice versa.
type Player struct {
	ID        string
	IGN       string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// PlayerStats is the single stats row kept per registered player. Elo and
// Rank move together: every elo write recomputes the rank in the same update.
type PlayerStats struct {
	PlayerID        string
	Elo             int
	Rank            string
	Wins            int
	Losses          int
	WLR             float64
	Games           int
	MVPCount        int
	BedBreakerCount int
	UpdatedAt       time.Time
}

// RecomputeWLR refreshes the derived win/loss ratio. A player with no
// losses carries a ratio equal to their win count.
func (s *PlayerStats) RecomputeWLR() {
	if s.Losses == 0 {
		s.WLR = float64(s.Wins)
		return
	}
	s.WLR = float64(s.Wins) / float64(s.Losses)
}

type Gamemode string

const (
	GamemodeDuos   Gamemode = "2v2"
	GamemodeTrios  Gamemode = "3v3"
	GamemodeSquads Gamemode = "4v4"
)

// TeamSize returns the per-team player count for the mode.
func (g Gamemode) TeamSize() (int, error) {
	switch g {
	case GamemodeDuos:
		return 2, nil
	case GamemodeTrios:
		return 3, nil
	case GamemodeSquads:
		return 4, nil
	}
	return 0, fmt.Errorf("unknown gamemode %q", string(g))
}

type GameStatus string

const (
	StatusQueued     GameStatus = "queued"
	StatusInProgress GameStatus = "in_progress"
	StatusSubmitted  GameStatus = "submitted"
	StatusValidated  GameStatus = "validated"
	StatusVoided     GameStatus = "voided"
)

// Terminal reports whether no further status transition is allowed.
func (s GameStatus) Terminal() bool {
	return s == StatusValidated || s == StatusVoided
}

type TeamName string

const (
	Team1 TeamName = "team1"
	Team2 TeamName = "team2"
)

// Game is one match record. The number is store-assigned and survives
// restarts; the record itself is retained after channel teardown.
type Game struct {
	Number       int64
	GuildID      string
	Gamemode     Gamemode
	Status       GameStatus
	Team1Members []string
	Team2Members []string
	MVP          string
	BedBreaker   string
	WinningTeam  TeamName
	ProofRef     string

	CategoryID    string
	TextChannelID string
	Team1VoiceID  string
	Team2VoiceID  string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// HasMember reports whether id plays on either team.
func (g *Game) HasMember(id string) bool {
	for _, m := range g.Team1Members {
		if m == id {
			return true
		}
	}
	for _, m := range g.Team2Members {
		if m == id {
			return true
		}
	}
	return false
}

// Winners returns the members of the winning team, Losers the rest.
func (g *Game) Winners() []string {
	if g.WinningTeam == Team2 {
		return g.Team2Members
	}
	return g.Team1Members
}

func (g *Game) Losers() []string {
	if g.WinningTeam == Team2 {
		return g.Team1Members
	}
	return g.Team2Members
}

type PunishmentKind string

const (
	KindBan    PunishmentKind = "ban"
	KindStrike PunishmentKind = "strike"
)

// Punishment is one moderation row, at most one per player per kind.
// A ban with a nil ExpiresAt is permanent.
type Punishment struct {
	ID        string
	PlayerID  string
	Kind      PunishmentKind
	Reason    string
	Issuer    string
	Strikes   int
	ExpiresAt *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Expired reports whether a duration-based ban has lapsed at now.
func (p *Punishment) Expired(now time.Time) bool {
	return p.ExpiresAt != nil && p.ExpiresAt.Before(now)
}
