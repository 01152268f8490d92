package server

import (
	"net/http"
	"sync"

	"sketch-relay/internal/config"

	"github.com/jonboulle/clockwork"
	"gorm.io/gorm"
)

type Server struct {
	store    *Store
	db       *gorm.DB
	cfg      config.Config
	clock    clockwork.Clock
	ws       *wsHub
	registry *connRegistry

	disconnectsMu sync.Mutex
	disconnects   map[identity]*disconnectEntry
	disconnectGen uint64

	timersMu    sync.Mutex
	roundTimers map[string]*roundTimer
	timerEpoch  uint64
}

func New(conn *gorm.DB, cfg config.Config) *Server {
	return NewWithClock(conn, cfg, clockwork.NewRealClock())
}

// NewWithClock lets tests drive the grace-period reapers and round timers
// with a fake clock.
func NewWithClock(conn *gorm.DB, cfg config.Config, clock clockwork.Clock) *Server {
	return &Server{
		store:       NewStore(),
		db:          conn,
		cfg:         cfg,
		clock:       clock,
		ws:          newWSHub(),
		registry:    newConnRegistry(),
		disconnects: make(map[identity]*disconnectEntry),
		roundTimers: make(map[string]*roundTimer),
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/games", s.handleCreateGame)
	mux.HandleFunc("GET /api/games/", s.handleGameState)
	mux.HandleFunc("GET /ws", s.handleWebsocket)
	return mux
}
