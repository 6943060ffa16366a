// Package server exposes the read-only HTTP surface: health, leaderboard
// and record lookups. All mutation goes through the bot commands, never
// through HTTP.
package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/TaqdeesHigh/RBW-Bot-sub000/internal/domain"
	"github.com/TaqdeesHigh/RBW-Bot-sub000/internal/game"
	"github.com/TaqdeesHigh/RBW-Bot-sub000/internal/repository"
	"github.com/TaqdeesHigh/RBW-Bot-sub000/internal/service"
)

type Server struct {
	players *service.PlayerService
	games   game.GameStore
	logger  zerolog.Logger
}

func New(players *service.PlayerService, games *repository.GameRepository, logger zerolog.Logger) *Server {
	return &Server{players: players, games: games, logger: logger}
}

func (s *Server) Routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /v1/leaderboard", s.handleLeaderboard)
	mux.HandleFunc("GET /v1/players/{ign}", s.handlePlayer)
	mux.HandleFunc("GET /v1/games/{number}", s.handleGame)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type leaderboardEntry struct {
	IGN   string  `json:"ign"`
	Elo   int     `json:"elo"`
	Rank  string  `json:"rank"`
	Wins  int     `json:"wins"`
	Loss  int     `json:"losses"`
	WLR   float64 `json:"wlr"`
	Games int     `json:"games"`
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 100 {
			writeError(w, http.StatusBadRequest, "limit must be 1-100")
			return
		}
		limit = n
	}

	rows, err := s.players.Leaderboard(r.Context(), limit)
	if err != nil {
		s.logger.Error().Err(err).Msg("leaderboard query failed")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	entries := make([]leaderboardEntry, len(rows))
	for i, row := range rows {
		entries[i] = leaderboardEntry{
			IGN:   row.IGN,
			Elo:   row.Stats.Elo,
			Rank:  row.Stats.Rank,
			Wins:  row.Stats.Wins,
			Loss:  row.Stats.Losses,
			WLR:   row.Stats.WLR,
			Games: row.Stats.Games,
		}
	}
	writeJSON(w, http.StatusOK, entries)
}

type playerResponse struct {
	ID              string  `json:"id"`
	IGN             string  `json:"ign"`
	Elo             int     `json:"elo"`
	Rank            string  `json:"rank"`
	Wins            int     `json:"wins"`
	Losses          int     `json:"losses"`
	WLR             float64 `json:"wlr"`
	Games           int     `json:"games"`
	MVPCount        int     `json:"mvp_count"`
	BedBreakerCount int     `json:"bed_breaker_count"`
}

func (s *Server) handlePlayer(w http.ResponseWriter, r *http.Request) {
	ign := r.PathValue("ign")

	player, err := s.players.GetByIGN(r.Context(), ign)
	if err != nil {
		if errors.Is(err, service.ErrNotRegistered) {
			writeError(w, http.StatusNotFound, "player not found")
			return
		}
		s.logger.Error().Err(err).Str("ign", ign).Msg("player lookup failed")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	stats, err := s.players.GetStats(r.Context(), player.ID)
	if err != nil {
		s.logger.Error().Err(err).Str("ign", ign).Msg("stats lookup failed")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, playerResponse{
		ID:              player.ID,
		IGN:             player.IGN,
		Elo:             stats.Elo,
		Rank:            stats.Rank,
		Wins:            stats.Wins,
		Losses:          stats.Losses,
		WLR:             stats.WLR,
		Games:           stats.Games,
		MVPCount:        stats.MVPCount,
		BedBreakerCount: stats.BedBreakerCount,
	})
}

type gameResponse struct {
	Number      int64             `json:"number"`
	Gamemode    domain.Gamemode   `json:"gamemode"`
	Status      domain.GameStatus `json:"status"`
	Team1       []string          `json:"team1"`
	Team2       []string          `json:"team2"`
	MVP         string            `json:"mvp,omitempty"`
	BedBreaker  string            `json:"bed_breaker,omitempty"`
	WinningTeam domain.TeamName   `json:"winning_team,omitempty"`
}

func (s *Server) handleGame(w http.ResponseWriter, r *http.Request) {
	number, err := strconv.ParseInt(r.PathValue("number"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "game number must be an integer")
		return
	}

	g, err := s.games.Get(r.Context(), number)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "game not found")
			return
		}
		s.logger.Error().Err(err).Int64("game", number).Msg("game lookup failed")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, gameResponse{
		Number:      g.Number,
		Gamemode:    g.Gamemode,
		Status:      g.Status,
		Team1:       g.Team1Members,
		Team2:       g.Team2Members,
		MVP:         g.MVP,
		BedBreaker:  g.BedBreaker,
		WinningTeam: g.WinningTeam,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
