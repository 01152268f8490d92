package server

import (
	"testing"
	"time"

	"sketch-relay/internal/config"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

func newTestCoordinator(t *testing.T) (*Server, *clockwork.FakeClock) {
	t.Helper()
	clock := clockwork.NewFakeClock()
	srv := NewWithClock(nil, config.Default(), clock)
	return srv, clock
}

func newTestGame(t *testing.T, srv *Server) string {
	t.Helper()
	game := srv.store.CreateGame(0)
	return game.Code
}

// newTestClient fabricates a connection without a socket; client.send is a
// no-op on a nil conn, which keeps coordinator logic testable in isolation.
func newTestClient() *client {
	return &client{id: uuid.NewString()}
}

func joinTestPlayer(t *testing.T, srv *Server, code, name string) *client {
	t.Helper()
	cl := newTestClient()
	if err := srv.joinGame(cl, code, name); err != nil {
		t.Fatalf("join %s: %v", name, err)
	}
	return cl
}

func inspectGame(t *testing.T, srv *Server, code string, fn func(game *Game)) {
	t.Helper()
	err := srv.store.Update(code, func(game *Game) error {
		fn(game)
		return nil
	})
	if err != nil {
		t.Fatalf("inspect game %s: %v", code, err)
	}
}

// waitFor polls for a condition that a timer callback establishes
// asynchronously after the fake clock advances.
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func rosterNames(game *Game) []string {
	names := make([]string, 0, len(game.Players))
	for _, player := range game.Players {
		names = append(names, player.Name)
	}
	return names
}
