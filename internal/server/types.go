package server

import (
	"strings"
	"time"
)

const (
	gameStatusOpen       = "open"
	gameStatusTerminated = "terminated"
)

// identity is the stable player key used across reconnects: game code plus
// case-folded display name.
type identity struct {
	GameCode string
	NameKey  string
}

func newIdentity(gameCode, displayName string) identity {
	return identity{
		GameCode: normalizeGameCode(gameCode),
		NameKey:  strings.ToLower(normalizeText(displayName)),
	}
}

func normalizeGameCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

type Game struct {
	Code        string
	DBID        uint
	CreatedAt   time.Time
	Terminated  bool
	MaxPlayers  int
	HostID      int
	KickedNames map[string]struct{}
	Players     []Player
	Rounds      []RoundState
}

type Player struct {
	ID                int
	DBID              uint
	Name              string
	IsHost            bool
	Connected         bool
	ExcludedFromRound bool
	JoinedAt          time.Time
}

type RoundState struct {
	ID            int
	DBID          uint
	Number        int
	Prompt        string
	StartedAt     time.Time
	Deadline      time.Time
	TimerMinutes  int
	VotingEnabled bool
	Completed     bool
	Answers       []AnswerEntry
	Votes         []VoteEntry
}

type AnswerEntry struct {
	ID          int
	DBID        uint
	PlayerID    int
	PlayerName  string
	ImageData   string
	Auto        bool
	SubmittedAt time.Time
}

type VoteEntry struct {
	VoterID  int
	AnswerID int
	DBID     uint
}

type TallyEntry struct {
	AnswerID   int    `json:"answer_id"`
	PlayerID   int    `json:"player_id"`
	PlayerName string `json:"player_name"`
	Votes      int    `json:"votes"`
}

// currentRound returns the latest round that has not completed, or nil.
func currentRound(game *Game) *RoundState {
	if len(game.Rounds) == 0 {
		return nil
	}
	round := &game.Rounds[len(game.Rounds)-1]
	if round.Completed {
		return nil
	}
	return round
}

func findPlayer(game *Game, playerID int) *Player {
	for i := range game.Players {
		if game.Players[i].ID == playerID {
			return &game.Players[i]
		}
	}
	return nil
}

func findPlayerByNameKey(game *Game, nameKey string) *Player {
	for i := range game.Players {
		if strings.ToLower(game.Players[i].Name) == nameKey {
			return &game.Players[i]
		}
	}
	return nil
}

func findAnswerByPlayer(round *RoundState, playerID int) *AnswerEntry {
	for i := range round.Answers {
		if round.Answers[i].PlayerID == playerID {
			return &round.Answers[i]
		}
	}
	return nil
}

func findAnswer(round *RoundState, answerID int) *AnswerEntry {
	for i := range round.Answers {
		if round.Answers[i].ID == answerID {
			return &round.Answers[i]
		}
	}
	return nil
}

func findVoteByVoter(round *RoundState, voterID int) *VoteEntry {
	for i := range round.Votes {
		if round.Votes[i].VoterID == voterID {
			return &round.Votes[i]
		}
	}
	return nil
}
