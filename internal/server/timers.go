package server

import (
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// roundTimer is the single live countdown for one game. The epoch token makes
// a superseded timer's late firing a no-op: the callback compares its epoch
// against the current one before acting.
type roundTimer struct {
	epoch   uint64
	roundID int
	timer   clockwork.Timer
}

func (s *Server) scheduleRoundTimer(gameCode string, roundID int, duration time.Duration) {
	s.timersMu.Lock()
	defer s.timersMu.Unlock()
	if existing, ok := s.roundTimers[gameCode]; ok {
		existing.timer.Stop()
	}
	s.timerEpoch++
	epoch := s.timerEpoch
	entry := &roundTimer{epoch: epoch, roundID: roundID}
	entry.timer = s.clock.AfterFunc(duration, func() {
		s.roundTimerFired(gameCode, roundID, epoch)
	})
	s.roundTimers[gameCode] = entry
	log.Info().
		Str("game_code", gameCode).
		Int("round_id", roundID).
		Dur("duration", duration).
		Msg("round timer scheduled")
}

func (s *Server) cancelRoundTimer(gameCode string) {
	s.timersMu.Lock()
	defer s.timersMu.Unlock()
	if entry, ok := s.roundTimers[gameCode]; ok {
		entry.timer.Stop()
		delete(s.roundTimers, gameCode)
	}
}

// roundTimerFired auto-submits the blank placeholder for every non-host
// player who has not answered. A persistence failure for one player is logged
// and that player skipped so one storage hiccup cannot keep the round from
// completing for everyone else. Fires at most once per round.
func (s *Server) roundTimerFired(gameCode string, roundID int, epoch uint64) {
	s.timersMu.Lock()
	entry, ok := s.roundTimers[gameCode]
	if !ok || entry.epoch != epoch {
		s.timersMu.Unlock()
		return
	}
	delete(s.roundTimers, gameCode)
	s.timersMu.Unlock()

	err := s.store.Update(gameCode, func(game *Game) error {
		round := currentRound(game)
		if round == nil || round.ID != roundID {
			return nil
		}
		for i := range game.Players {
			player := &game.Players[i]
			if player.IsHost || player.ExcludedFromRound {
				continue
			}
			if findAnswerByPlayer(round, player.ID) != nil {
				continue
			}
			answer := AnswerEntry{
				ID:          s.store.AllocAnswerID(),
				PlayerID:    player.ID,
				PlayerName:  player.Name,
				ImageData:   blankDrawingPNG,
				Auto:        true,
				SubmittedAt: s.clock.Now().UTC(),
			}
			if err := s.persistAnswer(game, round, &answer); err != nil {
				log.Warn().
					Str("game_code", game.Code).
					Str("player", player.Name).
					Err(err).
					Msg("auto-submit persist failed, skipping player")
				continue
			}
			round.Answers = append(round.Answers, answer)
			s.ws.Broadcast(game.Code, answerReceivedEvent(&answer))
		}
		log.Info().
			Str("game_code", game.Code).
			Int("round_id", round.ID).
			Msg("round timer elapsed")
		return nil
	})
	if err != nil {
		log.Error().Str("game_code", gameCode).Err(err).Msg("round timer handling failed")
	}
}
