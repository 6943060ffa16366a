package service

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TaqdeesHigh/RBW-Bot-sub000/internal/domain"
	"github.com/TaqdeesHigh/RBW-Bot-sub000/internal/repository"
)

type memoryPlayerStore struct {
	players map[string]*domain.Player
	stats   map[string]*domain.PlayerStats
}

func newMemoryPlayerStore() *memoryPlayerStore {
	return &memoryPlayerStore{
		players: make(map[string]*domain.Player),
		stats:   make(map[string]*domain.PlayerStats),
	}
}

func (s *memoryPlayerStore) Create(_ context.Context, player *domain.Player, stats *domain.PlayerStats) error {
	s.players[player.ID] = player
	s.stats[player.ID] = stats
	return nil
}

func (s *memoryPlayerStore) GetByID(_ context.Context, id string) (*domain.Player, error) {
	p, ok := s.players[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return p, nil
}

func (s *memoryPlayerStore) GetByIGN(_ context.Context, ign string) (*domain.Player, error) {
	for _, p := range s.players {
		if p.IGN == ign {
			return p, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *memoryPlayerStore) Delete(_ context.Context, id string) error {
	if _, ok := s.players[id]; !ok {
		return repository.ErrNotFound
	}
	delete(s.players, id)
	delete(s.stats, id)
	return nil
}

func (s *memoryPlayerStore) Transfer(_ context.Context, fromID, toID string) error {
	p, ok := s.players[fromID]
	if !ok {
		return repository.ErrNotFound
	}
	delete(s.players, fromID)
	p.ID = toID
	s.players[toID] = p

	if st, ok := s.stats[fromID]; ok {
		delete(s.stats, fromID)
		st.PlayerID = toID
		s.stats[toID] = st
	}
	return nil
}

func (s *memoryPlayerStore) GetStats(_ context.Context, playerID string) (*domain.PlayerStats, error) {
	st, ok := s.stats[playerID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return st, nil
}

func (s *memoryPlayerStore) SetRank(_ context.Context, playerID, rank string) error {
	st, ok := s.stats[playerID]
	if !ok {
		return repository.ErrNotFound
	}
	st.Rank = rank
	return nil
}

func (s *memoryPlayerStore) Leaderboard(_ context.Context, limit int) ([]repository.LeaderboardRow, error) {
	rows := make([]repository.LeaderboardRow, 0, limit)
	for id, st := range s.stats {
		if len(rows) == limit {
			break
		}
		rows = append(rows, repository.LeaderboardRow{IGN: s.players[id].IGN, Stats: *st})
	}
	return rows, nil
}

func newTestPlayerService() (*PlayerService, *memoryPlayerStore) {
	store := newMemoryPlayerStore()
	return NewPlayerService(store, zerolog.Nop()), store
}

func TestRegisterStartsAtLowestRank(t *testing.T) {
	svc, store := newTestPlayerService()

	player, err := svc.Register(context.Background(), "u1", "Zed")
	require.NoError(t, err)
	assert.Equal(t, "Zed", player.IGN)

	stats := store.stats["u1"]
	require.NotNil(t, stats)
	assert.Equal(t, 0, stats.Elo)
	assert.Equal(t, "Stone I", stats.Rank)
}

func TestRegisterEnforcesUniqueness(t *testing.T) {
	svc, _ := newTestPlayerService()

	_, err := svc.Register(context.Background(), "u1", "Zed")
	require.NoError(t, err)

	_, err = svc.Register(context.Background(), "u1", "Other")
	assert.ErrorIs(t, err, ErrAlreadyRegistered)

	_, err = svc.Register(context.Background(), "u2", "Zed")
	assert.ErrorIs(t, err, ErrNameTaken)
}

func TestUnregister(t *testing.T) {
	svc, _ := newTestPlayerService()

	_, err := svc.Register(context.Background(), "u1", "Zed")
	require.NoError(t, err)

	require.NoError(t, svc.Unregister(context.Background(), "u1"))
	assert.ErrorIs(t, svc.Unregister(context.Background(), "u1"), ErrNotRegistered)

	_, err = svc.GetByID(context.Background(), "u1")
	assert.ErrorIs(t, err, ErrNotRegistered)
}

func TestTransferGuardsOccupiedTarget(t *testing.T) {
	svc, store := newTestPlayerService()

	_, err := svc.Register(context.Background(), "u1", "Zed")
	require.NoError(t, err)
	_, err = svc.Register(context.Background(), "u2", "Ada")
	require.NoError(t, err)

	assert.ErrorIs(t, svc.Transfer(context.Background(), "u1", "u2"), ErrAlreadyRegistered)
	assert.ErrorIs(t, svc.Transfer(context.Background(), "ghost", "u3"), ErrNotRegistered)

	require.NoError(t, svc.Transfer(context.Background(), "u1", "u3"))
	assert.Equal(t, "Zed", store.players["u3"].IGN)
}

func TestAdminSetRankValidatesName(t *testing.T) {
	svc, store := newTestPlayerService()

	_, err := svc.Register(context.Background(), "u1", "Zed")
	require.NoError(t, err)

	assert.ErrorIs(t, svc.AdminSetRank(context.Background(), "u1", "Wood IV"), ErrUnknownRank)
	assert.ErrorIs(t, svc.AdminSetRank(context.Background(), "ghost", "Opal III"), ErrNotRegistered)

	require.NoError(t, svc.AdminSetRank(context.Background(), "u1", "Opal III"))
	assert.Equal(t, "Opal III", store.stats["u1"].Rank)
	// Elo is untouched by the override.
	assert.Equal(t, 0, store.stats["u1"].Elo)
}

func TestLeaderboardDefaultsLimit(t *testing.T) {
	svc, _ := newTestPlayerService()

	for _, reg := range []struct{ id, ign string }{
		{"u1", "A"}, {"u2", "B"}, {"u3", "C"},
	} {
		_, err := svc.Register(context.Background(), reg.id, reg.ign)
		require.NoError(t, err)
	}

	rows, err := svc.Leaderboard(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, rows, 3)

	rows, err = svc.Leaderboard(context.Background(), 2)
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}
