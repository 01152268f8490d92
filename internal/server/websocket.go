package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

type client struct {
	id   string
	conn *websocket.Conn
	mu   sync.Mutex
}

func newClient(conn *websocket.Conn) *client {
	return &client{id: uuid.NewString(), conn: conn}
}

func (c *client) send(payload any) {
	if c == nil || c.conn == nil {
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.WriteMessage(websocket.TextMessage, data)
}

func (c *client) close() {
	if c == nil || c.conn == nil {
		return
	}
	_ = c.conn.Close()
}

// wsHub is the broadcast fanout: one group of connections per game channel.
type wsHub struct {
	mu     sync.Mutex
	groups map[string]map[*client]struct{}
	byID   map[string]*client
	game   map[string]string
}

func newWSHub() *wsHub {
	return &wsHub{
		groups: make(map[string]map[*client]struct{}),
		byID:   make(map[string]*client),
		game:   make(map[string]string),
	}
}

func (h *wsHub) Add(gameCode string, cl *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if previous, ok := h.game[cl.id]; ok && previous != gameCode {
		h.removeLocked(previous, cl)
	}
	group := h.groups[gameCode]
	if group == nil {
		group = make(map[*client]struct{})
		h.groups[gameCode] = group
	}
	group[cl] = struct{}{}
	h.byID[cl.id] = cl
	h.game[cl.id] = gameCode
}

func (h *wsHub) Remove(cl *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if gameCode, ok := h.game[cl.id]; ok {
		h.removeLocked(gameCode, cl)
	}
	delete(h.byID, cl.id)
	delete(h.game, cl.id)
}

func (h *wsHub) removeLocked(gameCode string, cl *client) {
	group := h.groups[gameCode]
	if group == nil {
		return
	}
	delete(group, cl)
	if len(group) == 0 {
		delete(h.groups, gameCode)
	}
}

// Evict removes the connection from its channel and closes it. Used when a
// new connection for the same identity supersedes it, and on kicks.
func (h *wsHub) Evict(connID string) {
	h.mu.Lock()
	cl := h.byID[connID]
	if cl != nil {
		if gameCode, ok := h.game[connID]; ok {
			h.removeLocked(gameCode, cl)
		}
		delete(h.byID, connID)
		delete(h.game, connID)
	}
	h.mu.Unlock()
	cl.close()
}

// EvictGame closes every connection on a game channel. Broadcast any final
// notifications before calling this.
func (h *wsHub) EvictGame(gameCode string) {
	h.mu.Lock()
	group := h.groups[gameCode]
	clients := make([]*client, 0, len(group))
	for cl := range group {
		clients = append(clients, cl)
		delete(h.byID, cl.id)
		delete(h.game, cl.id)
	}
	delete(h.groups, gameCode)
	h.mu.Unlock()
	for _, cl := range clients {
		cl.close()
	}
}

func (h *wsHub) SendTo(connID string, payload any) {
	h.mu.Lock()
	cl := h.byID[connID]
	h.mu.Unlock()
	cl.send(payload)
}

func (h *wsHub) Broadcast(gameCode string, payload any) {
	h.broadcast(gameCode, nil, payload)
}

// BroadcastExcept skips the originating connection, e.g. roster deltas on
// join, so a client never overwrites its freshly-applied local state with a
// slightly stale echo of its own action.
func (h *wsHub) BroadcastExcept(gameCode string, except *client, payload any) {
	h.broadcast(gameCode, except, payload)
}

func (h *wsHub) broadcast(gameCode string, except *client, payload any) {
	h.mu.Lock()
	group := h.groups[gameCode]
	clients := make([]*client, 0, len(group))
	for cl := range group {
		if cl == except {
			continue
		}
		clients = append(clients, cl)
	}
	h.mu.Unlock()
	for _, cl := range clients {
		cl.send(payload)
	}
}

// inboundMessage is the wire shape of all client operations.
type inboundMessage struct {
	Action        string `json:"action"`
	GameCode      string `json:"game_code"`
	Name          string `json:"name"`
	Prompt        string `json:"prompt"`
	TimerMinutes  int    `json:"timer_minutes"`
	VotingEnabled bool   `json:"voting_enabled"`
	Content       string `json:"content"`
	TargetID      int    `json:"target_id"`
	AnswerID      int    `json:"answer_id"`
}

func (s *Server) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	cl := newClient(conn)
	log.Info().Str("conn_id", cl.id).Str("remote", r.RemoteAddr).Msg("ws connected")
	go s.readWS(cl)
}

func (s *Server) readWS(cl *client) {
	defer s.handleDisconnect(cl)
	for {
		_, data, err := cl.conn.ReadMessage()
		if err != nil {
			log.Debug().Str("conn_id", cl.id).Err(err).Msg("ws disconnected")
			return
		}
		var msg inboundMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			cl.send(errorEvent(reasonInvalid, "malformed message"))
			continue
		}
		s.dispatch(cl, msg)
	}
}

func (s *Server) dispatch(cl *client, msg inboundMessage) {
	var err error
	switch msg.Action {
	case "join":
		err = s.joinGame(cl, msg.GameCode, msg.Name)
	case "start_round":
		err = s.startRound(cl, msg.GameCode, msg.Prompt, msg.TimerMinutes, msg.VotingEnabled)
	case "submit_answer":
		err = s.submitAnswer(cl, msg.GameCode, msg.Content)
	case "vote":
		err = s.vote(cl, msg.GameCode, msg.AnswerID)
	case "kick":
		err = s.kickPlayer(cl, msg.GameCode, msg.TargetID)
	case "leave":
		err = s.leaveGame(cl, msg.GameCode)
	default:
		cl.send(errorEvent(reasonInvalid, "unknown action"))
		return
	}
	if err != nil {
		log.Debug().Str("conn_id", cl.id).Str("action", msg.Action).Err(err).Msg("op rejected")
		cl.send(errorEvent(failureReason(err), err.Error()))
	}
}

// boundIdentity resolves the connection's identity and checks the operation
// targets the game the connection is joined to.
func (s *Server) boundIdentity(cl *client, gameCode string) (identity, error) {
	id, ok := s.registry.Resolve(cl.id)
	if !ok {
		return identity{}, fmt.Errorf("%w: connection not joined to a game", ErrNotFound)
	}
	if id.GameCode != normalizeGameCode(gameCode) {
		return identity{}, fmt.Errorf("%w: connection belongs to another game", ErrForbidden)
	}
	return id, nil
}
