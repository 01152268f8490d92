package server

import (
	"fmt"
	"sync"
	"time"
)

// Store is the authoritative in-memory session state. Games are keyed by join
// code; every mutation of one game runs under that game's own mutex so
// concurrent requests touching the same game are linearized while different
// games proceed in parallel.
type Store struct {
	mu           sync.Mutex
	games        map[string]*gameEntry
	nextPlayerID int
	nextRoundID  int
	nextAnswerID int
}

type gameEntry struct {
	mu   sync.Mutex
	game *Game
}

func NewStore() *Store {
	return &Store{
		games:        make(map[string]*gameEntry),
		nextPlayerID: 1,
		nextRoundID:  1,
		nextAnswerID: 1,
	}
}

func (s *Store) CreateGame(maxPlayers int) *Game {
	s.mu.Lock()
	defer s.mu.Unlock()
	code := newJoinCode()
	for {
		if _, taken := s.games[code]; !taken {
			break
		}
		code = newJoinCode()
	}
	game := &Game{
		Code:        code,
		CreatedAt:   time.Now().UTC(),
		MaxPlayers:  maxPlayers,
		KickedNames: make(map[string]struct{}),
	}
	s.games[code] = &gameEntry{game: game}
	return game
}

// Update runs fn with exclusive access to the named game. Persistence writes
// and channel broadcasts belong inside fn so that per-game mutation order and
// delivery order stay aligned.
func (s *Store) Update(code string, fn func(game *Game) error) error {
	s.mu.Lock()
	entry, ok := s.games[code]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: game %s", ErrNotFound, code)
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	return fn(entry.game)
}

func (s *Store) HasGame(code string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.games[code]
	return ok
}

func (s *Store) AllocPlayerID() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextPlayerID
	s.nextPlayerID++
	return id
}

func (s *Store) AllocRoundID() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextRoundID
	s.nextRoundID++
	return id
}

func (s *Store) AllocAnswerID() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextAnswerID
	s.nextAnswerID++
	return id
}
