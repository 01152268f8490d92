package server

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"
)

type createGameRequest struct {
	MaxPlayers int `json:"max_players"`
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func (s *Server) handleCreateGame(w http.ResponseWriter, r *http.Request) {
	req := createGameRequest{MaxPlayers: s.cfg.MaxPlayers}
	if err := readJSON(r.Body, &req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if req.MaxPlayers <= 0 || req.MaxPlayers > s.cfg.MaxPlayers {
		req.MaxPlayers = s.cfg.MaxPlayers
	}
	game := s.store.CreateGame(req.MaxPlayers)
	if err := s.persistGame(game); err != nil {
		log.Error().Str("game_code", game.Code).Err(err).Msg("game create persist failed")
		writeError(w, http.StatusInternalServerError, "failed to create game")
		return
	}
	log.Info().Str("game_code", game.Code).Msg("game created")
	writeJSON(w, http.StatusCreated, map[string]any{
		"game_code":   game.Code,
		"max_players": game.MaxPlayers,
	})
}

// handleGameState serves the same snapshot the websocket channel unicasts on
// join, for clients fetching fresh state outside the real-time channel.
func (s *Server) handleGameState(w http.ResponseWriter, r *http.Request) {
	code, ok := parseGamePath(r.URL.Path)
	if !ok {
		http.NotFound(w, r)
		return
	}
	var payload map[string]any
	err := s.store.Update(normalizeGameCode(code), func(game *Game) error {
		payload = s.snapshot(game)
		return nil
	})
	if err != nil {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, payload)
}

func parseGamePath(path string) (string, bool) {
	const prefix = "/api/games/"
	if !strings.HasPrefix(path, prefix) {
		return "", false
	}
	rest := strings.Trim(strings.TrimPrefix(path, prefix), "/")
	if rest == "" || strings.Contains(rest, "/") {
		return "", false
	}
	return rest, true
}
