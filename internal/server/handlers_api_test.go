package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
)

func TestCreateGameEndpoint(t *testing.T) {
	ts, srv := newWSTestServer(t)

	resp, err := http.Post(ts.URL+"/api/games", "application/json", strings.NewReader(`{}`))
	if err != nil {
		t.Fatalf("create game: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	var created struct {
		GameCode   string `json:"game_code"`
		MaxPlayers int    `json:"max_players"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		t.Fatalf("decode create response: %v", err)
	}
	if len(created.GameCode) != 6 {
		t.Fatalf("expected a 6-character game code, got %q", created.GameCode)
	}
	if !srv.store.HasGame(created.GameCode) {
		t.Fatalf("created game %s not registered", created.GameCode)
	}
}

func TestCreateGameClampsMaxPlayers(t *testing.T) {
	ts, srv := newWSTestServer(t)

	resp, err := http.Post(ts.URL+"/api/games", "application/json", strings.NewReader(`{"max_players": 5000}`))
	if err != nil {
		t.Fatalf("create game: %v", err)
	}
	defer resp.Body.Close()
	var created struct {
		MaxPlayers int `json:"max_players"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		t.Fatalf("decode create response: %v", err)
	}
	if created.MaxPlayers != srv.cfg.MaxPlayers {
		t.Fatalf("expected max players clamped to %d, got %d", srv.cfg.MaxPlayers, created.MaxPlayers)
	}
}

func TestCreateGameZeroMaxPlayersUsesDefault(t *testing.T) {
	ts, srv := newWSTestServer(t)

	resp, err := http.Post(ts.URL+"/api/games", "application/json", strings.NewReader(`{"max_players": 0}`))
	if err != nil {
		t.Fatalf("create game: %v", err)
	}
	defer resp.Body.Close()
	var created struct {
		GameCode   string `json:"game_code"`
		MaxPlayers int    `json:"max_players"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		t.Fatalf("decode create response: %v", err)
	}
	if created.MaxPlayers != srv.cfg.MaxPlayers {
		t.Fatalf("explicit zero must fall back to the configured cap %d, got %d", srv.cfg.MaxPlayers, created.MaxPlayers)
	}
	for i := 0; i < srv.cfg.MaxPlayers; i++ {
		joinTestPlayer(t, srv, created.GameCode, fmt.Sprintf("Player%d", i))
	}
	err = srv.joinGame(newTestClient(), created.GameCode, "Straggler")
	if !errors.Is(err, ErrLobbyFull) {
		t.Fatalf("join beyond the cap must fail with ErrLobbyFull, got %v", err)
	}
}

func TestGameStateEndpoint(t *testing.T) {
	ts, srv := newWSTestServer(t)
	code := newTestGame(t, srv)
	joinTestPlayer(t, srv, code, "Ada")

	resp, err := http.Get(ts.URL + "/api/games/" + code)
	if err != nil {
		t.Fatalf("get game state: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var state map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&state); err != nil {
		t.Fatalf("decode state: %v", err)
	}
	if state["type"] != msgGameStateSynced {
		t.Fatalf("expected a full sync payload, got type %v", state["type"])
	}
	players, _ := state["players"].([]any)
	if len(players) != 1 {
		t.Fatalf("expected one player, got %v", state["players"])
	}
}

func TestGameStateEndpointLowercaseCode(t *testing.T) {
	ts, srv := newWSTestServer(t)
	code := newTestGame(t, srv)

	resp, err := http.Get(ts.URL + "/api/games/" + strings.ToLower(code))
	if err != nil {
		t.Fatalf("get game state: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("game codes are case-insensitive; expected 200, got %d", resp.StatusCode)
	}
}

func TestGameStateEndpointUnknownGame(t *testing.T) {
	ts, _ := newWSTestServer(t)

	resp, err := http.Get(ts.URL + "/api/games/ZZZZZZ")
	if err != nil {
		t.Fatalf("get game state: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for an unknown game, got %d", resp.StatusCode)
	}
}

func TestParseGamePath(t *testing.T) {
	cases := []struct {
		path string
		code string
		ok   bool
	}{
		{"/api/games/ABC234", "ABC234", true},
		{"/api/games/ABC234/", "ABC234", true},
		{"/api/games/", "", false},
		{"/api/games/ABC234/rounds", "", false},
		{"/other", "", false},
	}
	for _, tc := range cases {
		code, ok := parseGamePath(tc.path)
		if code != tc.code || ok != tc.ok {
			t.Errorf("parseGamePath(%q) = %q, %v; want %q, %v", tc.path, code, ok, tc.code, tc.ok)
		}
	}
}
