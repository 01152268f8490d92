package server

import "time"

// snapshot builds the full-state sync sent to a connection that just joined
// or reconnected. It is the single source of truth the client adopts
// wholesale; the timer countdown is derived from the authoritative deadline,
// never from client wall clocks.
func (s *Server) snapshot(game *Game) map[string]any {
	payload := map[string]any{
		"type":      msgGameStateSynced,
		"game_code": game.Code,
		"host_id":   game.HostID,
		"players":   rosterPayload(game),
		"round":     nil,
	}
	round := currentRound(game)
	if round == nil {
		return payload
	}
	answers := make([]map[string]any, 0, len(round.Answers))
	for i := range round.Answers {
		answer := &round.Answers[i]
		answers = append(answers, map[string]any{
			"answer_id": answer.ID,
			"player_id": answer.PlayerID,
			"name":      answer.PlayerName,
			"content":   answer.ImageData,
			"auto":      answer.Auto,
		})
	}
	roundPayload := map[string]any{
		"round_id":       round.ID,
		"prompt":         round.Prompt,
		"started_at":     round.StartedAt.UTC().Format(time.RFC3339),
		"timer_minutes":  round.TimerMinutes,
		"voting_enabled": round.VotingEnabled,
		"answers":        answers,
	}
	if round.VotingEnabled {
		roundPayload["tally"] = computeTally(round)
	}
	if !round.Deadline.IsZero() {
		remaining := round.Deadline.Sub(s.clock.Now())
		if remaining <= 0 {
			roundPayload["timer_remaining"] = 0
			roundPayload["timer_elapsed"] = true
		} else {
			roundPayload["timer_remaining"] = int(remaining.Seconds())
			roundPayload["timer_elapsed"] = false
		}
	}
	payload["round"] = roundPayload
	return payload
}
