package server

import (
	"encoding/json"
	"net"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"sketch-relay/internal/config"

	"github.com/gorilla/websocket"
)

func newWSTestServer(t *testing.T) (*httptest.Server, *Server) {
	t.Helper()
	srv := New(nil, config.Default())
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts, srv
}

func dialWS(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Skipf("skipping test; websocket dial unavailable: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func sendWS(t *testing.T, conn *websocket.Conn, msg inboundMessage) {
	t.Helper()
	if err := conn.WriteJSON(msg); err != nil {
		t.Fatalf("write websocket message: %v", err)
	}
}

func readWSMessage(t *testing.T, conn *websocket.Conn, timeout time.Duration) map[string]any {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(timeout))
	_, payload, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read websocket message: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(payload, &decoded); err != nil {
		t.Fatalf("decode websocket message %q: %v", payload, err)
	}
	return decoded
}

func readWSType(t *testing.T, conn *websocket.Conn, timeout time.Duration) string {
	t.Helper()
	msg := readWSMessage(t, conn, timeout)
	messageType, _ := msg["type"].(string)
	return messageType
}

func expectNoWSMessage(t *testing.T, conn *websocket.Conn, timeout time.Duration) {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(timeout))
	if _, payload, err := conn.ReadMessage(); err == nil {
		t.Fatalf("expected no websocket message within %s, got %s", timeout, payload)
	} else {
		netErr, ok := err.(net.Error)
		if !ok || !netErr.Timeout() {
			t.Fatalf("expected websocket timeout, got %v", err)
		}
	}
}

func TestWebsocketJoinReceivesFullSync(t *testing.T) {
	ts, srv := newWSTestServer(t)
	code := newTestGame(t, srv)

	conn := dialWS(t, ts)
	sendWS(t, conn, inboundMessage{Action: "join", GameCode: code, Name: "Ada"})

	msg := readWSMessage(t, conn, 5*time.Second)
	if msg["type"] != msgGameStateSynced {
		t.Fatalf("expected first message %s, got %v", msgGameStateSynced, msg["type"])
	}
	if msg["game_code"] != code {
		t.Fatalf("sync carries game code %v, want %s", msg["game_code"], code)
	}
	players, ok := msg["players"].([]any)
	if !ok || len(players) != 1 {
		t.Fatalf("expected a one-player roster in the sync, got %v", msg["players"])
	}
}

func TestWebsocketJoinNotifiesOthersNotSelf(t *testing.T) {
	ts, srv := newWSTestServer(t)
	code := newTestGame(t, srv)

	hostConn := dialWS(t, ts)
	sendWS(t, hostConn, inboundMessage{Action: "join", GameCode: code, Name: "Ada"})
	if messageType := readWSType(t, hostConn, 5*time.Second); messageType != msgGameStateSynced {
		t.Fatalf("expected host sync, got %s", messageType)
	}

	playerConn := dialWS(t, ts)
	sendWS(t, playerConn, inboundMessage{Action: "join", GameCode: code, Name: "Bob"})
	if messageType := readWSType(t, playerConn, 5*time.Second); messageType != msgGameStateSynced {
		t.Fatalf("expected joiner sync, got %s", messageType)
	}

	roster := readWSMessage(t, hostConn, 5*time.Second)
	if roster["type"] != msgPlayerListUpdated {
		t.Fatalf("expected roster update on the host connection, got %v", roster["type"])
	}
	players, _ := roster["players"].([]any)
	if len(players) != 2 {
		t.Fatalf("roster update should list 2 players, got %v", roster["players"])
	}
	// The joiner already holds the authoritative sync; it must not receive an
	// echo of its own join.
	expectNoWSMessage(t, playerConn, 350*time.Millisecond)
}

func TestWebsocketKickNotifiesThenCloses(t *testing.T) {
	ts, srv := newWSTestServer(t)
	code := newTestGame(t, srv)

	hostConn := dialWS(t, ts)
	sendWS(t, hostConn, inboundMessage{Action: "join", GameCode: code, Name: "Ada"})
	if messageType := readWSType(t, hostConn, 5*time.Second); messageType != msgGameStateSynced {
		t.Fatalf("expected host sync, got %s", messageType)
	}

	targetConn := dialWS(t, ts)
	sendWS(t, targetConn, inboundMessage{Action: "join", GameCode: code, Name: "Bob"})
	if messageType := readWSType(t, targetConn, 5*time.Second); messageType != msgGameStateSynced {
		t.Fatalf("expected target sync, got %s", messageType)
	}
	roster := readWSMessage(t, hostConn, 5*time.Second)
	if roster["type"] != msgPlayerListUpdated {
		t.Fatalf("expected roster update, got %v", roster["type"])
	}
	bobID := playerIDFromRoster(t, roster, "Bob")

	sendWS(t, hostConn, inboundMessage{Action: "kick", GameCode: code, TargetID: bobID})

	kicked := readWSMessage(t, targetConn, 5*time.Second)
	if kicked["type"] != msgPlayerKicked {
		t.Fatalf("target must see the kick notice before the close, got %v", kicked["type"])
	}
	_ = targetConn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if _, _, err := targetConn.ReadMessage(); err == nil {
		t.Fatal("expected the target connection to be closed after the kick")
	}

	if messageType := readWSType(t, hostConn, 5*time.Second); messageType != msgPlayerKicked {
		t.Fatalf("expected kick broadcast on the host connection, got %s", messageType)
	}
	finalRoster := readWSMessage(t, hostConn, 5*time.Second)
	if finalRoster["type"] != msgPlayerListUpdated {
		t.Fatalf("expected roster update after the kick, got %v", finalRoster["type"])
	}
	if players, _ := finalRoster["players"].([]any); len(players) != 1 {
		t.Fatalf("kicked player must leave the roster, got %v", finalRoster["players"])
	}
}

func TestWebsocketHostLeaveCascade(t *testing.T) {
	ts, srv := newWSTestServer(t)
	code := newTestGame(t, srv)

	hostConn := dialWS(t, ts)
	sendWS(t, hostConn, inboundMessage{Action: "join", GameCode: code, Name: "Ada"})
	if messageType := readWSType(t, hostConn, 5*time.Second); messageType != msgGameStateSynced {
		t.Fatalf("expected host sync, got %s", messageType)
	}

	playerConn := dialWS(t, ts)
	sendWS(t, playerConn, inboundMessage{Action: "join", GameCode: code, Name: "Bob"})
	if messageType := readWSType(t, playerConn, 5*time.Second); messageType != msgGameStateSynced {
		t.Fatalf("expected player sync, got %s", messageType)
	}
	if messageType := readWSType(t, hostConn, 5*time.Second); messageType != msgPlayerListUpdated {
		t.Fatalf("expected roster update on the host connection, got %s", messageType)
	}

	sendWS(t, hostConn, inboundMessage{Action: "leave", GameCode: code})

	// Each remaining player hears exactly one kicked notice, then the empty
	// roster, then the channel closes.
	notice := readWSMessage(t, playerConn, 5*time.Second)
	if notice["type"] != msgPlayerKicked {
		t.Fatalf("expected a kicked notice first, got %v", notice["type"])
	}
	if notice["reason"] != removeReasonHostEnd {
		t.Fatalf("expected reason %s, got %v", removeReasonHostEnd, notice["reason"])
	}
	roster := readWSMessage(t, playerConn, 5*time.Second)
	if roster["type"] != msgPlayerListUpdated {
		t.Fatalf("expected the empty roster after the notice, got %v", roster["type"])
	}
	if players, _ := roster["players"].([]any); len(players) != 0 {
		t.Fatalf("expected an empty roster, got %v", roster["players"])
	}
	_ = playerConn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if _, payload, err := playerConn.ReadMessage(); err == nil {
		t.Fatalf("expected the channel to close after the cascade, got %s", payload)
	}
}

func TestWebsocketDuplicateAnswerRejected(t *testing.T) {
	ts, srv := newWSTestServer(t)
	code := newTestGame(t, srv)

	hostConn := dialWS(t, ts)
	sendWS(t, hostConn, inboundMessage{Action: "join", GameCode: code, Name: "Ada"})
	if messageType := readWSType(t, hostConn, 5*time.Second); messageType != msgGameStateSynced {
		t.Fatalf("expected host sync, got %s", messageType)
	}

	playerConn := dialWS(t, ts)
	sendWS(t, playerConn, inboundMessage{Action: "join", GameCode: code, Name: "Bob"})
	if messageType := readWSType(t, playerConn, 5*time.Second); messageType != msgGameStateSynced {
		t.Fatalf("expected player sync, got %s", messageType)
	}

	sendWS(t, hostConn, inboundMessage{Action: "start_round", GameCode: code, Prompt: "A cat baking a cake"})
	if messageType := readWSType(t, playerConn, 5*time.Second); messageType != msgRoundStarted {
		t.Fatalf("expected round start on the player connection, got %s", messageType)
	}
	if messageType := readWSType(t, hostConn, 5*time.Second); messageType != msgRoundStarted {
		t.Fatalf("expected round start on the host connection, got %s", messageType)
	}

	sendWS(t, playerConn, inboundMessage{Action: "submit_answer", GameCode: code, Content: "drawing"})
	if messageType := readWSType(t, playerConn, 5*time.Second); messageType != msgAnswerReceived {
		t.Fatalf("expected answer broadcast, got %s", messageType)
	}
	if messageType := readWSType(t, hostConn, 5*time.Second); messageType != msgAnswerReceived {
		t.Fatalf("expected answer broadcast on the host connection, got %s", messageType)
	}

	sendWS(t, playerConn, inboundMessage{Action: "submit_answer", GameCode: code, Content: "drawing-again"})
	rejection := readWSMessage(t, playerConn, 5*time.Second)
	if rejection["type"] != msgError {
		t.Fatalf("expected an error message for a duplicate submission, got %v", rejection["type"])
	}
	if rejection["reason"] != reasonAlreadySubmitted {
		t.Fatalf("expected reason %s, got %v", reasonAlreadySubmitted, rejection["reason"])
	}
	// Rejections are unicast to the offender only.
	expectNoWSMessage(t, hostConn, 350*time.Millisecond)
}

func TestWebsocketUnknownActionRejected(t *testing.T) {
	ts, _ := newWSTestServer(t)

	conn := dialWS(t, ts)
	sendWS(t, conn, inboundMessage{Action: "dance"})
	msg := readWSMessage(t, conn, 5*time.Second)
	if msg["type"] != msgError || msg["reason"] != reasonInvalid {
		t.Fatalf("expected an Invalid error for an unknown action, got %v", msg)
	}
}

func playerIDFromRoster(t *testing.T, roster map[string]any, name string) int {
	t.Helper()
	players, _ := roster["players"].([]any)
	for _, entry := range players {
		player, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		if player["name"] == name {
			id, ok := player["player_id"].(float64)
			if !ok {
				t.Fatalf("roster entry for %s has no numeric player_id: %v", name, player)
			}
			return int(id)
		}
	}
	t.Fatalf("player %s not in roster %v", name, roster["players"])
	return 0
}
