package server

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
)

// startRound is host-only. It supersedes any prior round, clears per-round
// caches, persists, broadcasts the new round to the whole channel, and
// schedules the countdown when a timer is requested.
func (s *Server) startRound(cl *client, gameCode, prompt string, timerMinutes int, votingEnabled bool) error {
	id, err := s.boundIdentity(cl, gameCode)
	if err != nil {
		return err
	}
	cleanPrompt, err := validatePrompt(prompt)
	if err != nil {
		return err
	}
	if err := validateTimerMinutes(timerMinutes, s.cfg.MaxTimerMinutes); err != nil {
		return err
	}
	return s.store.Update(id.GameCode, func(game *Game) error {
		requester := findPlayerByNameKey(game, id.NameKey)
		if requester == nil {
			return fmt.Errorf("%w: player %s", ErrNotFound, id.NameKey)
		}
		if !requester.IsHost {
			return fmt.Errorf("%w: only the host can start a round", ErrForbidden)
		}
		if previous := currentRound(game); previous != nil {
			previous.Completed = true
			s.cancelRoundTimer(game.Code)
			if err := s.completeRound(game, previous); err != nil {
				log.Warn().
					Str("game_code", game.Code).
					Int("round_id", previous.ID).
					Err(err).
					Msg("round completion persist failed")
			}
		}
		now := s.clock.Now().UTC()
		round := RoundState{
			ID:            s.store.AllocRoundID(),
			Number:        len(game.Rounds) + 1,
			Prompt:        cleanPrompt,
			StartedAt:     now,
			TimerMinutes:  timerMinutes,
			VotingEnabled: votingEnabled,
		}
		if timerMinutes > 0 {
			round.Deadline = now.Add(time.Duration(timerMinutes) * time.Minute)
		}
		for i := range game.Players {
			game.Players[i].ExcludedFromRound = false
		}
		if err := s.persistRound(game, &round); err != nil {
			return fmt.Errorf("start round in game %s: %w", game.Code, err)
		}
		game.Rounds = append(game.Rounds, round)
		stored := &game.Rounds[len(game.Rounds)-1]
		_ = s.persistEvent(game, "round_started", EventPayload{
			RoundID:      stored.ID,
			Prompt:       stored.Prompt,
			TimerMinutes: stored.TimerMinutes,
		})
		s.ws.Broadcast(game.Code, roundStartedEvent(stored))
		if timerMinutes > 0 {
			s.scheduleRoundTimer(game.Code, stored.ID, stored.Deadline.Sub(now))
		}
		log.Info().
			Str("game_code", game.Code).
			Int("round_id", stored.ID).
			Str("prompt", stored.Prompt).
			Int("timer_minutes", timerMinutes).
			Bool("voting_enabled", votingEnabled).
			Msg("round started")
		return nil
	})
}
