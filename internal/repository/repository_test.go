package repository

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TaqdeesHigh/RBW-Bot-sub000/internal/database"
	"github.com/TaqdeesHigh/RBW-Bot-sub000/internal/domain"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func seedPlayer(t *testing.T, repo *PlayerRepository, id, ign string, elo int) {
	t.Helper()
	now := time.Now()
	err := repo.Create(context.Background(),
		&domain.Player{ID: id, IGN: ign, CreatedAt: now, UpdatedAt: now},
		&domain.PlayerStats{PlayerID: id, Elo: elo, Rank: "Stone I", UpdatedAt: now})
	require.NoError(t, err)
}

func TestForeignKeysEnforcedOnEveryConnection(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	// Pin several pooled connections at once so each assertion runs on a
	// distinct connection, not just the first one opened.
	var conns []*sql.Conn
	for i := 0; i < 5; i++ {
		conn, err := db.Conn(ctx)
		require.NoError(t, err)
		conns = append(conns, conn)
	}
	for _, conn := range conns {
		_, err := conn.ExecContext(ctx,
			`INSERT INTO player_stats (player_id, rank, updated_at) VALUES (?, 'Stone I', ?)`,
			"ghost", time.Now())
		assert.Error(t, err)
		require.NoError(t, conn.Close())
	}
}

func TestPlayerCreateAndLookup(t *testing.T) {
	db := openTestDB(t)
	repo := NewPlayerRepository(db, zerolog.Nop())

	seedPlayer(t, repo, "p1", "Zed", 0)

	byID, err := repo.GetByID(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, "Zed", byID.IGN)

	byIGN, err := repo.GetByIGN(context.Background(), "Zed")
	require.NoError(t, err)
	assert.Equal(t, "p1", byIGN.ID)

	stats, err := repo.GetStats(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Elo)
	assert.Equal(t, "Stone I", stats.Rank)

	_, err = repo.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = repo.GetByIGN(context.Background(), "Nobody")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPlayerCreateRejectsDuplicates(t *testing.T) {
	db := openTestDB(t)
	repo := NewPlayerRepository(db, zerolog.Nop())

	seedPlayer(t, repo, "p1", "Zed", 0)

	now := time.Now()
	err := repo.Create(context.Background(),
		&domain.Player{ID: "p1", IGN: "Other", CreatedAt: now, UpdatedAt: now},
		&domain.PlayerStats{PlayerID: "p1", UpdatedAt: now})
	assert.Error(t, err)

	err = repo.Create(context.Background(),
		&domain.Player{ID: "p2", IGN: "Zed", CreatedAt: now, UpdatedAt: now},
		&domain.PlayerStats{PlayerID: "p2", UpdatedAt: now})
	assert.Error(t, err)
}

func TestPlayerDeleteCascades(t *testing.T) {
	db := openTestDB(t)
	players := NewPlayerRepository(db, zerolog.Nop())
	punishments := NewPunishmentRepository(db, zerolog.Nop())

	seedPlayer(t, players, "p1", "Zed", 100)
	require.NoError(t, punishments.Upsert(context.Background(),
		&domain.Punishment{PlayerID: "p1", Kind: domain.KindStrike, Strikes: 3}))

	require.NoError(t, players.Delete(context.Background(), "p1"))

	_, err := players.GetByID(context.Background(), "p1")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = players.GetStats(context.Background(), "p1")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = punishments.Get(context.Background(), "p1", domain.KindStrike)
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, players.Delete(context.Background(), "p1"), ErrNotFound)
}

func TestPlayerTransferKeepsStatsAndPunishments(t *testing.T) {
	db := openTestDB(t)
	players := NewPlayerRepository(db, zerolog.Nop())
	punishments := NewPunishmentRepository(db, zerolog.Nop())

	seedPlayer(t, players, "old", "Zed", 250)
	require.NoError(t, punishments.Upsert(context.Background(),
		&domain.Punishment{PlayerID: "old", Kind: domain.KindStrike, Strikes: 2}))

	require.NoError(t, players.Transfer(context.Background(), "old", "new"))

	_, err := players.GetByID(context.Background(), "old")
	assert.ErrorIs(t, err, ErrNotFound)

	stats, err := players.GetStats(context.Background(), "new")
	require.NoError(t, err)
	assert.Equal(t, 250, stats.Elo)

	row, err := punishments.Get(context.Background(), "new", domain.KindStrike)
	require.NoError(t, err)
	assert.Equal(t, 2, row.Strikes)

	assert.ErrorIs(t, players.Transfer(context.Background(), "ghost", "other"), ErrNotFound)
}

func TestUpdateStatsRoundTrip(t *testing.T) {
	db := openTestDB(t)
	repo := NewPlayerRepository(db, zerolog.Nop())
	seedPlayer(t, repo, "p1", "Zed", 0)

	stats, err := repo.GetStats(context.Background(), "p1")
	require.NoError(t, err)

	stats.Elo = 135
	stats.Rank = "Iron I"
	stats.Wins = 3
	stats.Losses = 1
	stats.Games = 4
	stats.MVPCount = 2
	stats.BedBreakerCount = 1
	stats.RecomputeWLR()
	require.NoError(t, repo.UpdateStats(context.Background(), stats))

	got, err := repo.GetStats(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, 135, got.Elo)
	assert.Equal(t, "Iron I", got.Rank)
	assert.Equal(t, 3.0, got.WLR)
	assert.Equal(t, 2, got.MVPCount)

	assert.ErrorIs(t, repo.UpdateStats(context.Background(),
		&domain.PlayerStats{PlayerID: "missing"}), ErrNotFound)
}

func TestSetRank(t *testing.T) {
	db := openTestDB(t)
	repo := NewPlayerRepository(db, zerolog.Nop())
	seedPlayer(t, repo, "p1", "Zed", 0)

	require.NoError(t, repo.SetRank(context.Background(), "p1", "Opal III"))

	stats, err := repo.GetStats(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, "Opal III", stats.Rank)
	assert.Equal(t, 0, stats.Elo)

	assert.ErrorIs(t, repo.SetRank(context.Background(), "ghost", "Opal III"), ErrNotFound)
}

func TestLeaderboardOrdersByEloDesc(t *testing.T) {
	db := openTestDB(t)
	repo := NewPlayerRepository(db, zerolog.Nop())

	seedPlayer(t, repo, "p1", "Low", 50)
	seedPlayer(t, repo, "p2", "High", 900)
	seedPlayer(t, repo, "p3", "Mid", 400)

	rows, err := repo.Leaderboard(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "High", rows[0].IGN)
	assert.Equal(t, "Mid", rows[1].IGN)
}

func TestGameCreateAssignsIncreasingNumbers(t *testing.T) {
	db := openTestDB(t)
	repo := NewGameRepository(db, zerolog.Nop())

	now := time.Now()
	g1 := &domain.Game{GuildID: "guild", Gamemode: domain.GamemodeDuos, Status: domain.StatusQueued, CreatedAt: now, UpdatedAt: now}
	g2 := &domain.Game{GuildID: "guild", Gamemode: domain.GamemodeTrios, Status: domain.StatusQueued, CreatedAt: now, UpdatedAt: now}

	n1, err := repo.Create(context.Background(), g1)
	require.NoError(t, err)
	n2, err := repo.Create(context.Background(), g2)
	require.NoError(t, err)

	assert.Equal(t, n1+1, n2)
	assert.Equal(t, n1, g1.Number)
}

func TestGameRoundTripWithTeams(t *testing.T) {
	db := openTestDB(t)
	repo := NewGameRepository(db, zerolog.Nop())

	now := time.Now()
	g := &domain.Game{
		GuildID:   "guild",
		Gamemode:  domain.GamemodeDuos,
		Status:    domain.StatusQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}
	_, err := repo.Create(context.Background(), g)
	require.NoError(t, err)

	g.Status = domain.StatusInProgress
	g.Team1Members = []string{"a", "b"}
	g.Team2Members = []string{"c", "d"}
	g.CategoryID = "cat"
	g.TextChannelID = "txt"
	g.Team1VoiceID = "vc1"
	g.Team2VoiceID = "vc2"
	require.NoError(t, repo.Update(context.Background(), g))

	got, err := repo.Get(context.Background(), g.Number)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusInProgress, got.Status)
	assert.Equal(t, []string{"a", "b"}, got.Team1Members)
	assert.Equal(t, []string{"c", "d"}, got.Team2Members)
	assert.Equal(t, "txt", got.TextChannelID)

	got.Status = domain.StatusSubmitted
	got.MVP = "a"
	got.BedBreaker = "c"
	got.WinningTeam = domain.Team1
	got.ProofRef = "https://example.com/proof.png"
	require.NoError(t, repo.Update(context.Background(), got))

	final, err := repo.Get(context.Background(), g.Number)
	require.NoError(t, err)
	assert.Equal(t, domain.Team1, final.WinningTeam)
	assert.Equal(t, "a", final.MVP)

	_, err = repo.Get(context.Background(), 9999)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, repo.Update(context.Background(), &domain.Game{Number: 9999}), ErrNotFound)
}

func TestListStaleSkipsTerminalAndRecent(t *testing.T) {
	db := openTestDB(t)
	repo := NewGameRepository(db, zerolog.Nop())

	old := time.Now().Add(-48 * time.Hour)
	recent := time.Now()

	stale := &domain.Game{GuildID: "g", Gamemode: domain.GamemodeDuos, Status: domain.StatusInProgress, CreatedAt: old, UpdatedAt: old}
	terminal := &domain.Game{GuildID: "g", Gamemode: domain.GamemodeDuos, Status: domain.StatusValidated, CreatedAt: old, UpdatedAt: old}
	fresh := &domain.Game{GuildID: "g", Gamemode: domain.GamemodeDuos, Status: domain.StatusInProgress, CreatedAt: recent, UpdatedAt: recent}

	for _, g := range []*domain.Game{stale, terminal, fresh} {
		_, err := repo.Create(context.Background(), g)
		require.NoError(t, err)
	}

	numbers, err := repo.ListStale(context.Background(), time.Now().Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, []int64{stale.Number}, numbers)
}

func TestPunishmentUpsertReplacesPerKind(t *testing.T) {
	db := openTestDB(t)
	repo := NewPunishmentRepository(db, zerolog.Nop())

	strike := &domain.Punishment{PlayerID: "p1", Kind: domain.KindStrike, Strikes: 1, Issuer: "mod"}
	require.NoError(t, repo.Upsert(context.Background(), strike))
	firstID := strike.ID
	require.NotEmpty(t, firstID)

	strike.Strikes = 4
	strike.Reason = "again"
	require.NoError(t, repo.Upsert(context.Background(), strike))

	got, err := repo.Get(context.Background(), "p1", domain.KindStrike)
	require.NoError(t, err)
	assert.Equal(t, firstID, got.ID)
	assert.Equal(t, 4, got.Strikes)
	assert.Equal(t, "again", got.Reason)

	// A ban for the same player is a separate row.
	expires := time.Now().Add(time.Hour)
	ban := &domain.Punishment{PlayerID: "p1", Kind: domain.KindBan, ExpiresAt: &expires}
	require.NoError(t, repo.Upsert(context.Background(), ban))
	assert.NotEqual(t, firstID, ban.ID)

	gotBan, err := repo.Get(context.Background(), "p1", domain.KindBan)
	require.NoError(t, err)
	require.NotNil(t, gotBan.ExpiresAt)
}

func TestPunishmentDeleteReportsExistence(t *testing.T) {
	db := openTestDB(t)
	repo := NewPunishmentRepository(db, zerolog.Nop())

	require.NoError(t, repo.Upsert(context.Background(),
		&domain.Punishment{PlayerID: "p1", Kind: domain.KindBan}))

	removed, err := repo.Delete(context.Background(), "p1", domain.KindBan)
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = repo.Delete(context.Background(), "p1", domain.KindBan)
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestListExpiredBansExcludesPermanentAndRunning(t *testing.T) {
	db := openTestDB(t)
	repo := NewPunishmentRepository(db, zerolog.Nop())

	lapsed := time.Now().Add(-time.Hour)
	running := time.Now().Add(time.Hour)

	require.NoError(t, repo.Upsert(context.Background(),
		&domain.Punishment{PlayerID: "lapsed", Kind: domain.KindBan, ExpiresAt: &lapsed}))
	require.NoError(t, repo.Upsert(context.Background(),
		&domain.Punishment{PlayerID: "running", Kind: domain.KindBan, ExpiresAt: &running}))
	require.NoError(t, repo.Upsert(context.Background(),
		&domain.Punishment{PlayerID: "forever", Kind: domain.KindBan}))

	bans, err := repo.ListExpiredBans(context.Background(), time.Now())
	require.NoError(t, err)
	require.Len(t, bans, 1)
	assert.Equal(t, "lapsed", bans[0].PlayerID)
}
