package game

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/TaqdeesHigh/RBW-Bot-sub000/internal/constants"
	"github.com/TaqdeesHigh/RBW-Bot-sub000/internal/domain"
	"github.com/TaqdeesHigh/RBW-Bot-sub000/internal/events"
	"github.com/TaqdeesHigh/RBW-Bot-sub000/internal/platform"
	"github.com/TaqdeesHigh/RBW-Bot-sub000/internal/rating"
)

var (
	ErrMemberCount     = errors.New("member count does not match gamemode")
	ErrNotInProgress   = errors.New("game is not in progress")
	ErrNotSubmitted    = errors.New("game is not in submitted status")
	ErrAlreadyTerminal = errors.New("game already finalized")
	ErrGameBusy        = errors.New("game operation already in progress")
	ErrWrongChannel    = errors.New("command must be issued from the game's text channel")
	ErrNotParticipant  = errors.New("player is not part of this game")
	ErrBadWinningTeam  = errors.New("winning team must be team1 or team2")
	ErrBadDecision     = errors.New("decision must be validated or voided")
	ErrVoteInProgress  = errors.New("a void vote is already running for this game")
)

// GameStore is the persistence slice the lifecycle needs. Reads and writes
// are independent operations with no transactional isolation between them.
type GameStore interface {
	Create(ctx context.Context, g *domain.Game) (int64, error)
	Get(ctx context.Context, number int64) (*domain.Game, error)
	Update(ctx context.Context, g *domain.Game) error
	ListStale(ctx context.Context, cutoff time.Time) ([]int64, error)
}

// Rater applies a finished match to player stats.
type Rater interface {
	Apply(ctx context.Context, winners, losers []string, mvp, bedBreaker string) (*rating.Outcome, error)
}

// PlayerLookup resolves a platform id to a registration.
type PlayerLookup interface {
	GetByID(ctx context.Context, id string) (*domain.Player, error)
}

// ServiceParams wires a lifecycle Service. Zero durations fall back to the
// package defaults.
type ServiceParams struct {
	Games       GameStore
	Rater       Rater
	Players     PlayerLookup
	Provisioner platform.ChannelProvisioner
	Notifier    platform.Notifier
	RoleSync    platform.RoleSync
	Publisher   events.Publisher
	Logger      zerolog.Logger

	TeardownDelay time.Duration
	VoteWindow    time.Duration
}

// Service drives one match from channel creation to teardown. All mutable
// coordination state (per-game locks, pending teardown timers, running
// votes) is owned by the instance and lost on restart; a restart inside a
// teardown window can orphan channels, which is an accepted limitation.
type Service struct {
	games       GameStore
	rater       Rater
	players     PlayerLookup
	provisioner platform.ChannelProvisioner
	notifier    platform.Notifier
	rolesync    platform.RoleSync
	publisher   events.Publisher
	logger      zerolog.Logger

	teardownDelay time.Duration
	voteWindow    time.Duration

	locks *lockSet

	timerMu sync.Mutex
	timers  map[int64]*time.Timer

	voteMu sync.Mutex
	votes  map[int64]*VoidVote
}

func NewService(p ServiceParams) *Service {
	if p.TeardownDelay <= 0 {
		p.TeardownDelay = constants.TeardownDelay
	}
	if p.VoteWindow <= 0 {
		p.VoteWindow = constants.VoidVoteWindow
	}
	return &Service{
		games:         p.Games,
		rater:         p.Rater,
		players:       p.Players,
		provisioner:   p.Provisioner,
		notifier:      p.Notifier,
		rolesync:      p.RoleSync,
		publisher:     p.Publisher,
		logger:        p.Logger,
		teardownDelay: p.TeardownDelay,
		voteWindow:    p.VoteWindow,
		locks:         newLockSet(),
		timers:        make(map[int64]*time.Timer),
		votes:         make(map[int64]*VoidVote),
	}
}

// Start allocates a game number, provisions its channels, runs team
// selection and persists the record in progress.
func (s *Service) Start(ctx context.Context, guildID string, members []string, mode domain.Gamemode, selector TeamSelector) (*domain.Game, error) {
	size, err := mode.TeamSize()
	if err != nil {
		return nil, err
	}
	if len(members) != 2*size {
		return nil, fmt.Errorf("%w: have %d, need %d for %s", ErrMemberCount, len(members), 2*size, mode)
	}

	now := time.Now()
	g := &domain.Game{
		GuildID:   guildID,
		Gamemode:  mode,
		Status:    domain.StatusQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := s.games.Create(ctx, g); err != nil {
		return nil, fmt.Errorf("failed to create game record: %w", err)
	}

	log := s.logger.With().Int64("game", g.Number).Logger()

	if err := s.provision(ctx, g); err != nil {
		s.cleanupChannels(context.Background(), g)
		s.voidAfterFailure(g)
		return nil, err
	}

	team1, team2, err := selector.Select(ctx, members)
	if err != nil {
		log.Error().Err(err).Msg("team selection failed")
		s.cleanupChannels(context.Background(), g)
		s.voidAfterFailure(g)
		return nil, fmt.Errorf("team selection failed: %w", err)
	}
	g.Team1Members = team1
	g.Team2Members = team2

	// Moving members is cosmetic; a member who left voice must not block
	// the game.
	for _, m := range team1 {
		if err := s.provisioner.MoveMember(ctx, guildID, m, g.Team1VoiceID); err != nil {
			log.Warn().Err(err).Str("player_id", m).Msg("failed to move member to team voice")
		}
	}
	for _, m := range team2 {
		if err := s.provisioner.MoveMember(ctx, guildID, m, g.Team2VoiceID); err != nil {
			log.Warn().Err(err).Str("player_id", m).Msg("failed to move member to team voice")
		}
	}

	// Selection can take a while (captain picks). A force-void or stale
	// sweep may have finalized the game meanwhile, so the transition to
	// in_progress happens under the per-game lock against the stored
	// status; a blind write here could resurrect a voided game.
	if !s.locks.tryAcquire(g.Number) {
		s.cleanupChannels(context.Background(), g)
		return nil, fmt.Errorf("%w: game %d", ErrGameBusy, g.Number)
	}
	defer s.locks.release(g.Number)

	current, err := s.games.Get(ctx, g.Number)
	if err != nil {
		s.cleanupChannels(context.Background(), g)
		return nil, err
	}
	if current.Status.Terminal() {
		s.cleanupChannels(context.Background(), g)
		return nil, fmt.Errorf("%w: game %d was %s before selection finished", ErrAlreadyTerminal, g.Number, current.Status)
	}

	g.Status = domain.StatusInProgress
	if err := s.games.Update(ctx, g); err != nil {
		s.cleanupChannels(context.Background(), g)
		return nil, fmt.Errorf("failed to persist game start: %w", err)
	}

	log.Info().Str("gamemode", string(mode)).Strs("team1", team1).Strs("team2", team2).Msg("game started")
	s.publish(ctx, "game.started", g)
	return g, nil
}

func (s *Service) provision(ctx context.Context, g *domain.Game) error {
	category, err := s.provisioner.CreateCategory(ctx, g.GuildID, fmt.Sprintf("Game #%d", g.Number))
	if err != nil {
		return fmt.Errorf("failed to provision category: %w", err)
	}
	g.CategoryID = category

	text, err := s.provisioner.CreateTextChannel(ctx, g.GuildID, category, fmt.Sprintf("game-%d", g.Number))
	if err != nil {
		return fmt.Errorf("failed to provision text channel: %w", err)
	}
	g.TextChannelID = text

	voice1, err := s.provisioner.CreateVoiceChannel(ctx, g.GuildID, category, "Team 1")
	if err != nil {
		return fmt.Errorf("failed to provision team 1 voice: %w", err)
	}
	g.Team1VoiceID = voice1

	voice2, err := s.provisioner.CreateVoiceChannel(ctx, g.GuildID, category, "Team 2")
	if err != nil {
		return fmt.Errorf("failed to provision team 2 voice: %w", err)
	}
	g.Team2VoiceID = voice2

	return nil
}

func (s *Service) voidAfterFailure(g *domain.Game) {
	g.Status = domain.StatusVoided
	if err := s.games.Update(context.Background(), g); err != nil {
		s.logger.Error().Err(err).Int64("game", g.Number).Msg("failed to void game after start failure")
	}
}

// Submit records the match result. No rating change happens yet.
func (s *Service) Submit(ctx context.Context, number int64, channelID, mvp, bedBreaker string, winningTeam domain.TeamName, proofRef string) (*domain.Game, error) {
	g, err := s.games.Get(ctx, number)
	if err != nil {
		return nil, err
	}

	if g.Status != domain.StatusInProgress {
		return nil, fmt.Errorf("%w: game %d is %s", ErrNotInProgress, number, g.Status)
	}
	if channelID != g.TextChannelID {
		return nil, ErrWrongChannel
	}
	if winningTeam != domain.Team1 && winningTeam != domain.Team2 {
		return nil, ErrBadWinningTeam
	}
	if !g.HasMember(mvp) {
		return nil, fmt.Errorf("%w: mvp %s", ErrNotParticipant, mvp)
	}
	if !g.HasMember(bedBreaker) {
		return nil, fmt.Errorf("%w: bed breaker %s", ErrNotParticipant, bedBreaker)
	}

	g.MVP = mvp
	g.BedBreaker = bedBreaker
	g.WinningTeam = winningTeam
	g.ProofRef = proofRef
	g.Status = domain.StatusSubmitted

	if err := s.games.Update(ctx, g); err != nil {
		return nil, fmt.Errorf("failed to persist submission: %w", err)
	}

	s.logger.Info().Int64("game", number).Str("winning_team", string(winningTeam)).Msg("game submitted")
	s.publish(ctx, "game.submitted", g)
	return g, nil
}

// Score finalizes a submitted game. The terminal status is persisted
// before teardown is scheduled, so a crash in between leaves a
// recoverable record rather than one stuck in submitted.
func (s *Service) Score(ctx context.Context, number int64, decision domain.GameStatus) error {
	if decision != domain.StatusValidated && decision != domain.StatusVoided {
		return ErrBadDecision
	}

	if !s.locks.tryAcquire(number) {
		return ErrGameBusy
	}
	defer s.locks.release(number)

	g, err := s.games.Get(ctx, number)
	if err != nil {
		return err
	}
	if g.Status != domain.StatusSubmitted {
		return fmt.Errorf("%w: game %d is %s", ErrNotSubmitted, number, g.Status)
	}

	g.Status = decision
	if err := s.games.Update(ctx, g); err != nil {
		return fmt.Errorf("failed to persist decision: %w", err)
	}

	if decision == domain.StatusValidated {
		outcome, err := s.rater.Apply(ctx, g.Winners(), g.Losers(), g.MVP, g.BedBreaker)
		if err != nil {
			// The status is already durable; rating failure must not
			// un-finalize the game.
			s.logger.Error().Err(err).Int64("game", number).Msg("rating application failed")
		} else {
			s.syncRoles(ctx, g.GuildID, outcome)
			s.notifyScored(ctx, g, outcome)
		}
	}

	s.logger.Info().Int64("game", number).Str("decision", string(decision)).Msg("game scored")
	s.publish(ctx, "game.scored", g)
	s.scheduleTeardown(g)
	return nil
}

// ForceVoid jumps from any non-terminal status straight to voided. A
// concurrent caller for the same number observes ErrGameBusy and performs
// no teardown.
func (s *Service) ForceVoid(ctx context.Context, number int64) error {
	if !s.locks.tryAcquire(number) {
		return ErrGameBusy
	}
	defer s.locks.release(number)

	g, err := s.games.Get(ctx, number)
	if err != nil {
		return err
	}
	if g.Status.Terminal() {
		return fmt.Errorf("%w: game %d is %s", ErrAlreadyTerminal, number, g.Status)
	}

	g.Status = domain.StatusVoided
	if err := s.games.Update(ctx, g); err != nil {
		return fmt.Errorf("failed to persist void: %w", err)
	}

	s.logger.Info().Int64("game", number).Msg("game force voided")
	s.notify(ctx, platform.Notification{
		Title:       fmt.Sprintf("Game #%d voided", number),
		Description: "The game was voided; no ratings were changed.",
		Color:       0xe74c3c,
	})
	s.publish(ctx, "game.voided", g)
	s.scheduleTeardown(g)
	return nil
}

// StartVoidVote opens the time-boxed user void flow for a game. At most
// one vote runs per game at a time; a passing vote (ties included, via
// coin flip) funnels into the same locked void path as ForceVoid.
func (s *Service) StartVoidVote(ctx context.Context, number int64) (*VoidVote, error) {
	g, err := s.games.Get(ctx, number)
	if err != nil {
		return nil, err
	}
	if g.Status.Terminal() {
		return nil, fmt.Errorf("%w: game %d is %s", ErrAlreadyTerminal, number, g.Status)
	}

	s.voteMu.Lock()
	defer s.voteMu.Unlock()
	if _, running := s.votes[number]; running {
		return nil, ErrVoteInProgress
	}

	vote := NewVoidVote(number, s.voteWindow, nil, s.logger, func(passed bool) {
		s.voteMu.Lock()
		delete(s.votes, number)
		s.voteMu.Unlock()

		if !passed {
			return
		}
		if err := s.ForceVoid(context.Background(), number); err != nil {
			// Losing the race to an admin force-void is fine.
			if errors.Is(err, ErrGameBusy) || errors.Is(err, ErrAlreadyTerminal) {
				s.logger.Info().Err(err).Int64("game", number).Msg("void vote passed but game was already being finalized")
				return
			}
			s.logger.Error().Err(err).Int64("game", number).Msg("failed to void game after passing vote")
		}
	})
	s.votes[number] = vote
	return vote, nil
}

// SweepStale force-voids games stuck non-terminal past the cutoff.
// Each game fails independently.
func (s *Service) SweepStale(ctx context.Context, cutoff time.Time) (int, error) {
	numbers, err := s.games.ListStale(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to list stale games: %w", err)
	}

	voided := 0
	for _, n := range numbers {
		if err := s.ForceVoid(ctx, n); err != nil {
			s.logger.Warn().Err(err).Int64("game", n).Msg("failed to void stale game")
			continue
		}
		voided++
	}
	if voided > 0 {
		s.logger.Info().Int("voided", voided).Int("candidates", len(numbers)).Msg("stale game sweep completed")
	}
	return voided, nil
}

// scheduleTeardown arms the deferred channel deletion for a finalized
// game. The timer is cancellable until it fires.
func (s *Service) scheduleTeardown(g *domain.Game) {
	channels := []string{g.TextChannelID, g.Team1VoiceID, g.Team2VoiceID, g.CategoryID}
	number := g.Number

	s.timerMu.Lock()
	defer s.timerMu.Unlock()
	if _, pending := s.timers[number]; pending {
		return
	}
	s.timers[number] = time.AfterFunc(s.teardownDelay, func() {
		s.timerMu.Lock()
		delete(s.timers, number)
		s.timerMu.Unlock()

		ctx, cancel := context.WithTimeout(context.Background(), constants.TeardownTimeout)
		defer cancel()
		s.deleteChannels(ctx, number, channels)
	})
}

// CancelTeardown aborts a pending deletion, e.g. when an admin re-opens a
// mistakenly voided game. Reports whether a timer was still pending.
func (s *Service) CancelTeardown(number int64) bool {
	s.timerMu.Lock()
	defer s.timerMu.Unlock()
	timer, ok := s.timers[number]
	if !ok {
		return false
	}
	timer.Stop()
	delete(s.timers, number)
	s.logger.Info().Int64("game", number).Msg("pending teardown cancelled")
	return true
}

func (s *Service) cleanupChannels(ctx context.Context, g *domain.Game) {
	s.deleteChannels(ctx, g.Number, []string{g.TextChannelID, g.Team1VoiceID, g.Team2VoiceID, g.CategoryID})
}

// deleteChannels is best-effort: one failed deletion never stops the rest.
func (s *Service) deleteChannels(ctx context.Context, number int64, channels []string) {
	for _, id := range channels {
		if id == "" {
			continue
		}
		if err := s.provisioner.DeleteChannel(ctx, id); err != nil {
			s.logger.Warn().Err(err).Int64("game", number).Str("channel_id", id).Msg("failed to delete channel")
		}
	}
	s.logger.Info().Int64("game", number).Msg("game channels torn down")
}

// syncRoles fans role/nickname updates out per player. Failures are
// counted and logged; they never touch the already-persisted ratings.
func (s *Service) syncRoles(ctx context.Context, guildID string, outcome *rating.Outcome) {
	changes := append(append([]rating.Change(nil), outcome.Winners...), outcome.Losers...)

	grp, ctx := errgroup.WithContext(ctx)
	grp.SetLimit(4)
	for _, c := range changes {
		grp.Go(func() error {
			player, err := s.players.GetByID(ctx, c.PlayerID)
			if err != nil {
				s.logger.Warn().Err(err).Str("player_id", c.PlayerID).Msg("failed to resolve player for role sync")
				return nil
			}
			if err := s.rolesync.Sync(ctx, guildID, c.PlayerID, c.NewRank, player.IGN, c.NewElo); err != nil {
				s.logger.Warn().Err(err).Str("player_id", c.PlayerID).Msg("role sync failed")
			}
			return nil
		})
	}
	_ = grp.Wait()
}

func (s *Service) notifyScored(ctx context.Context, g *domain.Game, outcome *rating.Outcome) {
	fields := make([]platform.NotificationField, 0, 3)
	fields = append(fields, platform.NotificationField{
		Name:   "Updated",
		Value:  fmt.Sprintf("%d players", len(outcome.Winners)+len(outcome.Losers)),
		Inline: true,
	})
	if len(outcome.Skipped) > 0 {
		fields = append(fields, platform.NotificationField{
			Name:   "Skipped",
			Value:  strings.Join(outcome.Skipped, ", "),
			Inline: true,
		})
	}
	s.notify(ctx, platform.Notification{
		Title:       fmt.Sprintf("Game #%d validated", g.Number),
		Description: fmt.Sprintf("%s won, MVP %s", g.WinningTeam, g.MVP),
		Color:       0x2ecc71,
		Fields:      fields,
	})
}

func (s *Service) notify(ctx context.Context, n platform.Notification) {
	if err := s.notifier.Post(ctx, n); err != nil {
		s.logger.Warn().Err(err).Str("title", n.Title).Msg("failed to post notification")
	}
}

func (s *Service) publish(ctx context.Context, eventType string, g *domain.Game) {
	event := events.GameEvent{
		Type:       eventType,
		GameNumber: g.Number,
		Gamemode:   g.Gamemode,
		Status:     g.Status,
		Team1:      g.Team1Members,
		Team2:      g.Team2Members,
		At:         time.Now(),
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Warn().Err(err).Int64("game", g.Number).Str("type", eventType).Msg("failed to publish event")
	}
}
