package game

import (
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

type BallotChoice string

const (
	ChoiceProceed BallotChoice = "proceed"
	ChoiceCancel  BallotChoice = "cancel"
)

var (
	ErrVoteClosed    = errors.New("void vote already closed")
	ErrInvalidChoice = errors.New("ballot must be proceed or cancel")
)

// VoidVote collects proceed/cancel ballots for a fixed window. One ballot
// per voter; a later ballot replaces the earlier one, so the final tally
// reflects each voter's last choice. The window elapsing closes the vote
// exactly as an explicit Close would.
type VoidVote struct {
	mu         sync.Mutex
	gameNumber int64
	ballots    map[string]BallotChoice
	closed     bool
	timer      *time.Timer
	rng        *rand.Rand
	onResult   func(passed bool)
	logger     zerolog.Logger
}

func NewVoidVote(gameNumber int64, window time.Duration, rng *rand.Rand, logger zerolog.Logger, onResult func(passed bool)) *VoidVote {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	v := &VoidVote{
		gameNumber: gameNumber,
		ballots:    make(map[string]BallotChoice),
		rng:        rng,
		onResult:   onResult,
		logger:     logger,
	}
	// Armed under the mutex: a near-zero window can fire the callback
	// before the constructor returns, and Close reads v.timer.
	v.mu.Lock()
	v.timer = time.AfterFunc(window, func() { v.Close() })
	v.mu.Unlock()
	return v
}

// Cast records or replaces voter's ballot.
func (v *VoidVote) Cast(voter string, choice BallotChoice) error {
	if choice != ChoiceProceed && choice != ChoiceCancel {
		return ErrInvalidChoice
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return ErrVoteClosed
	}
	v.ballots[voter] = choice
	return nil
}

// Counts returns the current tally.
func (v *VoidVote) Counts() (proceed, cancel int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.tally()
}

func (v *VoidVote) tally() (proceed, cancel int) {
	for _, c := range v.ballots {
		if c == ChoiceProceed {
			proceed++
		} else {
			cancel++
		}
	}
	return proceed, cancel
}

// Close finalizes the vote and reports whether it passed. Ties resolve by
// an unweighted coin flip. Idempotent; only the first call decides.
func (v *VoidVote) Close() bool {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return false
	}
	v.closed = true
	v.timer.Stop()

	proceed, cancel := v.tally()
	var passed bool
	switch {
	case proceed > cancel:
		passed = true
	case cancel > proceed:
		passed = false
	default:
		passed = v.rng.Intn(2) == 0
		v.logger.Info().Int64("game", v.gameNumber).Bool("passed", passed).Msg("void vote tied, coin flip decided")
	}
	onResult := v.onResult
	v.mu.Unlock()

	v.logger.Info().
		Int64("game", v.gameNumber).
		Int("proceed", proceed).
		Int("cancel", cancel).
		Bool("passed", passed).
		Msg("void vote closed")

	// The callback voids the game and takes the per-game lock; run it
	// outside our own mutex.
	if onResult != nil {
		onResult(passed)
	}
	return passed
}
