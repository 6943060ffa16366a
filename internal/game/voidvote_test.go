package game

import (
	"math/rand"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestVote(t *testing.T, window time.Duration, onResult func(bool)) *VoidVote {
	t.Helper()
	rng := rand.New(rand.NewSource(42))
	return NewVoidVote(1, window, rng, zerolog.Nop(), onResult)
}

func TestVoidVoteMajorityProceed(t *testing.T) {
	var got *bool
	vote := newTestVote(t, time.Minute, func(passed bool) { got = &passed })

	require.NoError(t, vote.Cast("a", ChoiceProceed))
	require.NoError(t, vote.Cast("b", ChoiceProceed))
	require.NoError(t, vote.Cast("c", ChoiceProceed))
	require.NoError(t, vote.Cast("d", ChoiceCancel))

	assert.True(t, vote.Close())
	require.NotNil(t, got)
	assert.True(t, *got)
}

func TestVoidVoteMajorityCancel(t *testing.T) {
	vote := newTestVote(t, time.Minute, nil)

	require.NoError(t, vote.Cast("a", ChoiceProceed))
	require.NoError(t, vote.Cast("b", ChoiceCancel))
	require.NoError(t, vote.Cast("c", ChoiceCancel))

	assert.False(t, vote.Close())
}

func TestVoidVoteLatestBallotWins(t *testing.T) {
	vote := newTestVote(t, time.Minute, nil)

	require.NoError(t, vote.Cast("a", ChoiceCancel))
	require.NoError(t, vote.Cast("a", ChoiceProceed))

	proceed, cancel := vote.Counts()
	assert.Equal(t, 1, proceed)
	assert.Zero(t, cancel)
	assert.True(t, vote.Close())
}

func TestVoidVoteRejectsUnknownChoice(t *testing.T) {
	vote := newTestVote(t, time.Minute, nil)
	assert.ErrorIs(t, vote.Cast("a", "abstain"), ErrInvalidChoice)
}

func TestVoidVoteClosedRejectsBallots(t *testing.T) {
	vote := newTestVote(t, time.Minute, nil)
	vote.Close()
	assert.ErrorIs(t, vote.Cast("a", ChoiceProceed), ErrVoteClosed)
}

func TestVoidVoteCloseIsIdempotent(t *testing.T) {
	calls := 0
	vote := newTestVote(t, time.Minute, func(bool) { calls++ })

	require.NoError(t, vote.Cast("a", ChoiceProceed))
	vote.Close()
	vote.Close()
	assert.Equal(t, 1, calls)
}

func TestVoidVoteWindowElapsedClosesVote(t *testing.T) {
	done := make(chan bool, 1)
	vote := newTestVote(t, 20*time.Millisecond, func(passed bool) { done <- passed })

	require.NoError(t, vote.Cast("a", ChoiceProceed))

	select {
	case passed := <-done:
		assert.True(t, passed)
	case <-time.After(time.Second):
		t.Fatal("void vote window never fired")
	}
	assert.ErrorIs(t, vote.Cast("b", ChoiceCancel), ErrVoteClosed)
}

func TestVoidVoteImmediateExpiry(t *testing.T) {
	// A window that elapses before the constructor returns must still
	// close cleanly rather than race the timer assignment.
	for i := 0; i < 50; i++ {
		done := make(chan struct{})
		v := NewVoidVote(int64(i), time.Nanosecond, nil, zerolog.Nop(), func(bool) { close(done) })
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("expiry never closed the vote")
		}
		assert.ErrorIs(t, v.Cast("a", ChoiceProceed), ErrVoteClosed)
	}
}

func TestVoidVoteTieCoinFlipIsUnweighted(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	passes := 0
	const trials = 1000
	for i := 0; i < trials; i++ {
		vote := NewVoidVote(int64(i), time.Minute, rng, zerolog.Nop(), nil)
		require.NoError(t, vote.Cast("a", ChoiceProceed))
		require.NoError(t, vote.Cast("b", ChoiceCancel))
		if vote.Close() {
			passes++
		}
	}
	// A fair coin over 1000 trials stays well inside this band.
	assert.Greater(t, passes, 400)
	assert.Less(t, passes, 600)
}
