package server

import (
	"fmt"
	"sort"

	"github.com/rs/zerolog/log"
)

// vote records the voter's favorite answer for the active round. Unlike
// answers, a second call overwrites the earlier choice: voting is a
// preference, not a one-shot fact. The full tally is rebroadcast after every
// accepted vote.
func (s *Server) vote(cl *client, gameCode string, answerID int) error {
	id, err := s.boundIdentity(cl, gameCode)
	if err != nil {
		return err
	}
	return s.store.Update(id.GameCode, func(game *Game) error {
		voter := findPlayerByNameKey(game, id.NameKey)
		if voter == nil {
			return fmt.Errorf("%w: player %s", ErrNotFound, id.NameKey)
		}
		round := currentRound(game)
		if round == nil {
			return fmt.Errorf("%w: no active round in game %s", ErrNotFound, game.Code)
		}
		if !round.VotingEnabled {
			return fmt.Errorf("%w: voting is not enabled for round %d", ErrForbidden, round.ID)
		}
		answer := findAnswer(round, answerID)
		if answer == nil {
			return fmt.Errorf("%w: answer %d in round %d", ErrNotFound, answerID, round.ID)
		}
		entry := findVoteByVoter(round, voter.ID)
		created := entry == nil
		var previous int
		if created {
			round.Votes = append(round.Votes, VoteEntry{VoterID: voter.ID, AnswerID: answerID})
			entry = &round.Votes[len(round.Votes)-1]
		} else {
			previous = entry.AnswerID
			entry.AnswerID = answerID
		}
		if err := s.persistVote(game, round, voter, answer, entry); err != nil {
			if created {
				round.Votes = round.Votes[:len(round.Votes)-1]
			} else {
				entry.AnswerID = previous
			}
			return fmt.Errorf("vote in game %s: %w", game.Code, err)
		}
		_ = s.persistEvent(game, "vote_recorded", EventPayload{
			PlayerName: voter.Name,
			PlayerID:   voter.ID,
			RoundID:    round.ID,
			AnswerID:   answerID,
		})
		s.ws.Broadcast(game.Code, voteTallyEvent(computeTally(round)))
		log.Info().
			Str("game_code", game.Code).
			Str("voter", voter.Name).
			Int("answer_id", answerID).
			Msg("vote recorded")
		return nil
	})
}

// computeTally counts votes per answer, ordered by descending count. Equal
// counts fall back to the earliest-submitted answer first, which keeps the
// order stable across repeated calls with unchanged input.
func computeTally(round *RoundState) []TallyEntry {
	counts := make(map[int]int, len(round.Votes))
	for _, vote := range round.Votes {
		counts[vote.AnswerID]++
	}
	tally := make([]TallyEntry, 0, len(counts))
	for i := range round.Answers {
		answer := &round.Answers[i]
		count, voted := counts[answer.ID]
		if !voted {
			continue
		}
		tally = append(tally, TallyEntry{
			AnswerID:   answer.ID,
			PlayerID:   answer.PlayerID,
			PlayerName: answer.PlayerName,
			Votes:      count,
		})
	}
	sort.SliceStable(tally, func(i, j int) bool {
		return tally[i].Votes > tally[j].Votes
	})
	return tally
}
