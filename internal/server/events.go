package server

// Outbound message types on the game channel.
const (
	msgGameStateSynced   = "game_state_synced"
	msgPlayerListUpdated = "player_list_updated"
	msgPlayerRejoined    = "player_rejoined"
	msgRoundStarted      = "round_started"
	msgAnswerReceived    = "answer_received"
	msgVoteTallyUpdated  = "vote_tally_updated"
	msgPlayerKicked      = "player_kicked"
	msgError             = "error"
)

// EventPayload is the jsonb body stored in the durable event journal.
type EventPayload struct {
	GameCode     string `json:"game_code,omitempty"`
	PlayerName   string `json:"player,omitempty"`
	PlayerID     int    `json:"player_id,omitempty"`
	RoundID      int    `json:"round_id,omitempty"`
	AnswerID     int    `json:"answer_id,omitempty"`
	Prompt       string `json:"prompt,omitempty"`
	TimerMinutes int    `json:"timer_minutes,omitempty"`
	Reason       string `json:"reason,omitempty"`
	Auto         bool   `json:"auto,omitempty"`
	Count        int    `json:"count,omitempty"`
}

func rosterPayload(game *Game) []map[string]any {
	roster := make([]map[string]any, 0, len(game.Players))
	for _, player := range game.Players {
		roster = append(roster, map[string]any{
			"player_id": player.ID,
			"name":      player.Name,
			"is_host":   player.IsHost,
			"connected": player.Connected,
		})
	}
	return roster
}

func playerListEvent(game *Game) map[string]any {
	return map[string]any{
		"type":    msgPlayerListUpdated,
		"players": rosterPayload(game),
	}
}

func playerRejoinedEvent(player *Player) map[string]any {
	return map[string]any{
		"type":      msgPlayerRejoined,
		"player_id": player.ID,
		"name":      player.Name,
	}
}

func roundStartedEvent(round *RoundState) map[string]any {
	return map[string]any{
		"type":           msgRoundStarted,
		"round_id":       round.ID,
		"prompt":         round.Prompt,
		"timer_minutes":  round.TimerMinutes,
		"voting_enabled": round.VotingEnabled,
	}
}

func answerReceivedEvent(answer *AnswerEntry) map[string]any {
	return map[string]any{
		"type":      msgAnswerReceived,
		"answer_id": answer.ID,
		"player_id": answer.PlayerID,
		"name":      answer.PlayerName,
		"content":   answer.ImageData,
		"auto":      answer.Auto,
	}
}

func voteTallyEvent(tally []TallyEntry) map[string]any {
	return map[string]any{
		"type":  msgVoteTallyUpdated,
		"tally": tally,
	}
}

func playerKickedEvent(player *Player, reason string) map[string]any {
	return map[string]any{
		"type":      msgPlayerKicked,
		"player_id": player.ID,
		"name":      player.Name,
		"reason":    reason,
	}
}

func errorEvent(reason, message string) map[string]any {
	return map[string]any{
		"type":    msgError,
		"reason":  reason,
		"message": message,
	}
}
