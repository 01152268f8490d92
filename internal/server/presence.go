package server

import (
	"fmt"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// disconnectEntry tracks one disconnected identity. The generation token
// makes a superseded reaper's late firing a provable no-op.
type disconnectEntry struct {
	gen      uint64
	deadline time.Time
	timer    clockwork.Timer
}

// joinGame binds the connection to the player identity, creating the player
// record on first join. Rejoining with the same name resumes the existing
// record; a second connection for an already-active identity supersedes the
// old connection instead of producing a duplicate player.
func (s *Server) joinGame(cl *client, gameCode, name string) error {
	displayName, err := validateName(name)
	if err != nil {
		return err
	}
	id := newIdentity(gameCode, displayName)
	return s.store.Update(id.GameCode, func(game *Game) error {
		if game.Terminated {
			return fmt.Errorf("%w: game %s has ended", ErrNotFound, game.Code)
		}
		if _, kicked := game.KickedNames[id.NameKey]; kicked {
			return fmt.Errorf("%w: player was removed from this game", ErrForbidden)
		}
		player := findPlayerByNameKey(game, id.NameKey)
		created := false
		rejoined := false
		if player != nil {
			rejoined = s.cancelReaper(id) || !player.Connected
			player.Connected = true
		} else {
			if game.MaxPlayers > 0 && len(game.Players) >= game.MaxPlayers {
				return fmt.Errorf("%w: game %s", ErrLobbyFull, game.Code)
			}
			game.Players = append(game.Players, Player{
				ID:        s.store.AllocPlayerID(),
				Name:      displayName,
				IsHost:    len(game.Players) == 0,
				Connected: true,
				JoinedAt:  s.clock.Now().UTC(),
			})
			player = &game.Players[len(game.Players)-1]
			if player.IsHost {
				game.HostID = player.ID
			}
			if currentRound(game) != nil {
				// Joined mid-round: never saw the prompt, so the round
				// timer must not auto-submit a blank for them.
				player.ExcludedFromRound = true
			}
			if err := s.persistPlayer(game, player); err != nil {
				if player.IsHost {
					game.HostID = 0
				}
				game.Players = game.Players[:len(game.Players)-1]
				return fmt.Errorf("join game %s: %w", game.Code, err)
			}
			created = true
		}
		if superseded, ok := s.registry.Bind(id, cl.id); ok {
			s.ws.Evict(superseded)
		}
		s.ws.Add(game.Code, cl)
		cl.send(s.snapshot(game))
		if rejoined {
			s.ws.BroadcastExcept(game.Code, cl, playerRejoinedEvent(player))
		} else if created {
			s.ws.BroadcastExcept(game.Code, cl, playerListEvent(game))
		}
		log.Info().
			Str("game_code", game.Code).
			Str("player", player.Name).
			Bool("is_host", player.IsHost).
			Bool("rejoined", rejoined).
			Msg("player joined")
		return nil
	})
}

// handleDisconnect runs when a connection's read loop ends. If the identity
// has already been superseded by a newer connection, only the channel
// membership is cleaned up; otherwise the player enters the grace period.
func (s *Server) handleDisconnect(cl *client) {
	defer cl.close()
	id, ok := s.registry.Resolve(cl.id)
	if !ok || !s.registry.Unbind(id, cl.id) {
		s.ws.Remove(cl)
		return
	}
	s.ws.Remove(cl)
	_ = s.store.Update(id.GameCode, func(game *Game) error {
		if game.Terminated {
			return nil
		}
		player := findPlayerByNameKey(game, id.NameKey)
		if player == nil {
			return nil
		}
		player.Connected = false
		s.scheduleReaper(id, player.IsHost)
		return nil
	})
}

func (s *Server) graceFor(isHost bool) time.Duration {
	if isHost {
		return time.Duration(s.cfg.HostGraceSeconds) * time.Second
	}
	return time.Duration(s.cfg.PlayerGraceSeconds) * time.Second
}

func (s *Server) scheduleReaper(id identity, isHost bool) {
	grace := s.graceFor(isHost)
	s.disconnectsMu.Lock()
	defer s.disconnectsMu.Unlock()
	if existing, ok := s.disconnects[id]; ok {
		existing.timer.Stop()
	}
	s.disconnectGen++
	gen := s.disconnectGen
	entry := &disconnectEntry{
		gen:      gen,
		deadline: s.clock.Now().Add(grace),
	}
	entry.timer = s.clock.AfterFunc(grace, func() {
		s.reapDisconnect(id, gen)
	})
	s.disconnects[id] = entry
	log.Info().
		Str("game_code", id.GameCode).
		Str("player", id.NameKey).
		Dur("grace", grace).
		Msg("player disconnected")
}

func (s *Server) cancelReaper(id identity) bool {
	s.disconnectsMu.Lock()
	defer s.disconnectsMu.Unlock()
	entry, ok := s.disconnects[id]
	if !ok {
		return false
	}
	entry.timer.Stop()
	delete(s.disconnects, id)
	return true
}

func (s *Server) reapDisconnect(id identity, gen uint64) {
	s.disconnectsMu.Lock()
	entry, ok := s.disconnects[id]
	if !ok || entry.gen != gen {
		s.disconnectsMu.Unlock()
		return
	}
	delete(s.disconnects, id)
	s.disconnectsMu.Unlock()
	if err := s.removePlayer(id, removeReasonTimeout); err != nil {
		log.Error().
			Str("game_code", id.GameCode).
			Str("player", id.NameKey).
			Err(err).
			Msg("grace expiry removal failed")
	}
}

const (
	removeReasonTimeout = "timeout"
	removeReasonLeft    = "left"
	removeReasonKicked  = "kicked"
	removeReasonHostEnd = "host_left"
)

// leaveGame removes the player immediately, skipping the grace period.
func (s *Server) leaveGame(cl *client, gameCode string) error {
	id, err := s.boundIdentity(cl, gameCode)
	if err != nil {
		return err
	}
	return s.removePlayer(id, removeReasonLeft)
}

// removePlayer transitions an identity to Removed: out of the roster, durable
// record deleted, remainder notified. Host removal cascades into full-session
// teardown.
func (s *Server) removePlayer(id identity, reason string) error {
	return s.store.Update(id.GameCode, func(game *Game) error {
		if game.Terminated {
			return nil
		}
		player := findPlayerByNameKey(game, id.NameKey)
		if player == nil {
			return fmt.Errorf("%w: player %s", ErrNotFound, id.NameKey)
		}
		if reason == removeReasonTimeout && player.Connected {
			// A reconnect won the race against the reaper.
			return nil
		}
		if player.IsHost {
			return s.endGame(game, reason)
		}
		removed := *player
		removeFromRoster(game, removed.ID)
		connID, bound := s.registry.Current(id)
		s.registry.Drop(id)
		s.cancelReaper(id)
		if err := s.deletePlayer(game, &removed); err != nil {
			log.Warn().
				Str("game_code", game.Code).
				Str("player", removed.Name).
				Err(err).
				Msg("player record delete failed")
		}
		_ = s.persistEvent(game, "player_removed", EventPayload{
			PlayerName: removed.Name,
			PlayerID:   removed.ID,
			Reason:     reason,
		})
		s.ws.Broadcast(game.Code, playerListEvent(game))
		if bound {
			s.ws.Evict(connID)
		}
		log.Info().
			Str("game_code", game.Code).
			Str("player", removed.Name).
			Str("reason", reason).
			Msg("player removed")
		return nil
	})
}

// kickPlayer is host-only. The kicked notice is broadcast while the target is
// still subscribed, then the target's connection is evicted, then the
// remainder gets the roster update. Prior answers and votes stay.
func (s *Server) kickPlayer(cl *client, gameCode string, targetID int) error {
	id, err := s.boundIdentity(cl, gameCode)
	if err != nil {
		return err
	}
	return s.store.Update(id.GameCode, func(game *Game) error {
		requester := findPlayerByNameKey(game, id.NameKey)
		if requester == nil {
			return fmt.Errorf("%w: player %s", ErrNotFound, id.NameKey)
		}
		if !requester.IsHost {
			return fmt.Errorf("%w: only the host can kick players", ErrForbidden)
		}
		target := findPlayer(game, targetID)
		if target == nil {
			return fmt.Errorf("%w: player %d", ErrNotFound, targetID)
		}
		if target.ID == requester.ID {
			return fmt.Errorf("%w: the host cannot kick themselves", ErrForbidden)
		}
		removed := *target
		targetIdentity := identity{GameCode: game.Code, NameKey: strings.ToLower(removed.Name)}
		game.KickedNames[targetIdentity.NameKey] = struct{}{}
		removeFromRoster(game, removed.ID)
		s.cancelReaper(targetIdentity)
		if err := s.deletePlayer(game, &removed); err != nil {
			log.Warn().
				Str("game_code", game.Code).
				Str("player", removed.Name).
				Err(err).
				Msg("player record delete failed")
		}
		_ = s.persistEvent(game, "player_kicked", EventPayload{
			PlayerName: removed.Name,
			PlayerID:   removed.ID,
			Reason:     removeReasonKicked,
		})
		s.ws.Broadcast(game.Code, playerKickedEvent(&removed, removeReasonKicked))
		if connID, bound := s.registry.Current(targetIdentity); bound {
			s.registry.Drop(targetIdentity)
			s.ws.Evict(connID)
		}
		s.ws.Broadcast(game.Code, playerListEvent(game))
		log.Info().
			Str("game_code", game.Code).
			Str("player", removed.Name).
			Str("kicked_by", requester.Name).
			Msg("player kicked")
		return nil
	})
}

// endGame is the host-departure cascade: every other player is removed, the
// active round and its answers are deleted, each remaining identity is told
// exactly once before the empty roster broadcast, and the channel is torn
// down. Runs under the game lock.
func (s *Server) endGame(game *Game, reason string) error {
	if round := currentRound(game); round != nil {
		if err := s.deleteRound(game, round); err != nil {
			log.Warn().
				Str("game_code", game.Code).
				Int("round_id", round.ID).
				Err(err).
				Msg("round delete failed")
		}
		round.Completed = true
	}
	s.cancelRoundTimer(game.Code)
	for i := range game.Players {
		player := game.Players[i]
		id := identity{GameCode: game.Code, NameKey: strings.ToLower(player.Name)}
		s.cancelReaper(id)
		if !player.IsHost {
			if connID, bound := s.registry.Current(id); bound {
				s.ws.SendTo(connID, playerKickedEvent(&player, removeReasonHostEnd))
			}
		}
		s.registry.Drop(id)
		if err := s.deletePlayer(game, &player); err != nil {
			log.Warn().
				Str("game_code", game.Code).
				Str("player", player.Name).
				Err(err).
				Msg("player record delete failed")
		}
	}
	game.Players = nil
	game.HostID = 0
	game.Terminated = true
	if err := s.persistGameStatus(game, gameStatusTerminated); err != nil {
		log.Warn().Str("game_code", game.Code).Err(err).Msg("game status update failed")
	}
	_ = s.persistEvent(game, "game_ended", EventPayload{Reason: reason})
	s.ws.Broadcast(game.Code, playerListEvent(game))
	s.ws.EvictGame(game.Code)
	log.Info().
		Str("game_code", game.Code).
		Str("reason", reason).
		Msg("game ended")
	return nil
}

func removeFromRoster(game *Game, playerID int) {
	for i := range game.Players {
		if game.Players[i].ID == playerID {
			game.Players = append(game.Players[:i], game.Players[i+1:]...)
			return
		}
	}
}
