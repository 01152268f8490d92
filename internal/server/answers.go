package server

import (
	"fmt"

	"github.com/rs/zerolog/log"
)

// submitAnswer enforces one answer per player per round. A duplicate fails
// with AlreadySubmitted rather than overwriting, so an answer cannot be
// tampered with after reveal.
func (s *Server) submitAnswer(cl *client, gameCode, content string) error {
	id, err := s.boundIdentity(cl, gameCode)
	if err != nil {
		return err
	}
	drawing, err := validateDrawing(content)
	if err != nil {
		return err
	}
	return s.store.Update(id.GameCode, func(game *Game) error {
		player := findPlayerByNameKey(game, id.NameKey)
		if player == nil {
			return fmt.Errorf("%w: player %s", ErrNotFound, id.NameKey)
		}
		round := currentRound(game)
		if round == nil {
			return fmt.Errorf("%w: no active round in game %s", ErrNotFound, game.Code)
		}
		if findAnswerByPlayer(round, player.ID) != nil {
			return fmt.Errorf("%w: player %s already answered round %d", ErrAlreadySubmitted, player.Name, round.ID)
		}
		answer := AnswerEntry{
			ID:          s.store.AllocAnswerID(),
			PlayerID:    player.ID,
			PlayerName:  player.Name,
			ImageData:   drawing,
			SubmittedAt: s.clock.Now().UTC(),
		}
		if err := s.persistAnswer(game, round, &answer); err != nil {
			return fmt.Errorf("submit answer in game %s: %w", game.Code, err)
		}
		round.Answers = append(round.Answers, answer)
		_ = s.persistEvent(game, "answer_received", EventPayload{
			PlayerName: player.Name,
			PlayerID:   player.ID,
			RoundID:    round.ID,
			AnswerID:   answer.ID,
		})
		s.ws.Broadcast(game.Code, answerReceivedEvent(&round.Answers[len(round.Answers)-1]))
		log.Info().
			Str("game_code", game.Code).
			Str("player", player.Name).
			Int("round_id", round.ID).
			Msg("answer received")
		return nil
	})
}
