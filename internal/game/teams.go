package game

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/rs/zerolog"

	"github.com/TaqdeesHigh/RBW-Bot-sub000/internal/constants"
)

var ErrOddMemberCount = errors.New("member count must be even")

// TeamSelector partitions the queue members into two teams. The result is
// exhaustive and disjoint: every member lands on exactly one team.
type TeamSelector interface {
	Select(ctx context.Context, members []string) (team1, team2 []string, err error)
}

// RandomSelector shuffles the members and bisects the list.
type RandomSelector struct {
	rng *rand.Rand
}

func NewRandomSelector(rng *rand.Rand) *RandomSelector {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &RandomSelector{rng: rng}
}

func (s *RandomSelector) Select(_ context.Context, members []string) ([]string, []string, error) {
	if len(members)%2 != 0 {
		return nil, nil, ErrOddMemberCount
	}

	shuffled := append([]string(nil), members...)
	s.rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })

	half := len(shuffled) / 2
	return shuffled[:half], shuffled[half:], nil
}

// CaptainPrompter asks a captain for their next pick. Implementations
// block until the captain answers or ctx expires.
type CaptainPrompter interface {
	PromptPick(ctx context.Context, captain string, remaining []string) (string, error)
}

// CaptainSelector picks two captains at random, then alternates turn-based
// picks. A captain who does not answer within the pick timeout (or answers
// with someone outside the pool) gets a uniformly random remaining player.
type CaptainSelector struct {
	prompter    CaptainPrompter
	pickTimeout time.Duration
	rng         *rand.Rand
	logger      zerolog.Logger
}

func NewCaptainSelector(prompter CaptainPrompter, pickTimeout time.Duration, rng *rand.Rand, logger zerolog.Logger) *CaptainSelector {
	if pickTimeout <= 0 {
		pickTimeout = constants.CaptainPickTimeout
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &CaptainSelector{prompter: prompter, pickTimeout: pickTimeout, rng: rng, logger: logger}
}

func (s *CaptainSelector) Select(ctx context.Context, members []string) ([]string, []string, error) {
	if len(members)%2 != 0 {
		return nil, nil, ErrOddMemberCount
	}

	pool := append([]string(nil), members...)
	s.rng.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })

	team1 := []string{pool[0]}
	team2 := []string{pool[1]}
	remaining := pool[2:]

	turn := 0
	for len(remaining) > 0 {
		captain := team1[0]
		if turn%2 == 1 {
			captain = team2[0]
		}

		pick := s.promptOne(ctx, captain, remaining)

		if turn%2 == 0 {
			team1 = append(team1, pick)
		} else {
			team2 = append(team2, pick)
		}
		remaining = remove(remaining, pick)
		turn++
	}

	return team1, team2, nil
}

func (s *CaptainSelector) promptOne(ctx context.Context, captain string, remaining []string) string {
	// Last player has no choice left.
	if len(remaining) == 1 {
		return remaining[0]
	}

	pickCtx, cancel := context.WithTimeout(ctx, s.pickTimeout)
	defer cancel()

	pick, err := s.prompter.PromptPick(pickCtx, captain, remaining)
	if err == nil && contains(remaining, pick) {
		return pick
	}

	if err != nil {
		s.logger.Debug().Err(err).Str("captain", captain).Msg("captain pick timed out, choosing at random")
	} else {
		s.logger.Debug().Str("captain", captain).Str("pick", pick).Msg("captain picked a non-remaining player, choosing at random")
	}
	return remaining[s.rng.Intn(len(remaining))]
}

func contains(list []string, v string) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}

func remove(list []string, v string) []string {
	out := list[:0]
	for _, x := range list {
		if x != v {
			out = append(out, x)
		}
	}
	return out
}
