package db

import (
	"time"

	"gorm.io/datatypes"
)

type Game struct {
	ID        uint      `gorm:"primaryKey"`
	JoinCode  string    `gorm:"size:12;uniqueIndex;not null"`
	Status    string    `gorm:"size:32;not null"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
	Players   []Player
	Rounds    []Round
	Events    []Event
}

type Player struct {
	ID                uint      `gorm:"primaryKey"`
	GameID            uint      `gorm:"index;not null;uniqueIndex:idx_players_game_name"`
	Name              string    `gorm:"size:64;not null;uniqueIndex:idx_players_game_name"`
	IsHost            bool      `gorm:"not null;default:false"`
	ExcludedFromRound bool      `gorm:"not null;default:false"`
	JoinedAt          time.Time `gorm:"not null"`
	CreatedAt         time.Time `gorm:"not null"`
	UpdatedAt         time.Time `gorm:"not null"`
}

type Round struct {
	ID            uint      `gorm:"primaryKey"`
	GameID        uint      `gorm:"index;not null;uniqueIndex:idx_rounds_game_number"`
	Number        int       `gorm:"not null;uniqueIndex:idx_rounds_game_number"`
	Prompt        string    `gorm:"size:280;not null"`
	TimerMinutes  int       `gorm:"not null;default:0"`
	VotingEnabled bool      `gorm:"not null;default:false"`
	Completed     bool      `gorm:"not null;default:false"`
	StartedAt     time.Time `gorm:"not null"`
	CreatedAt     time.Time `gorm:"not null"`
	UpdatedAt     time.Time `gorm:"not null"`
	Answers       []Answer
	Votes         []Vote
	Events        []Event
}

type Answer struct {
	ID        uint      `gorm:"primaryKey"`
	RoundID   uint      `gorm:"index;not null;uniqueIndex:idx_answers_round_player"`
	PlayerID  uint      `gorm:"index;not null;uniqueIndex:idx_answers_round_player"`
	ImageData []byte    `gorm:"type:bytea;not null"`
	Auto      bool      `gorm:"not null;default:false"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

type Vote struct {
	ID        uint      `gorm:"primaryKey"`
	RoundID   uint      `gorm:"index;not null;uniqueIndex:idx_votes_round_voter"`
	VoterID   uint      `gorm:"index;not null;uniqueIndex:idx_votes_round_voter"`
	AnswerID  uint      `gorm:"index;not null"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

type Event struct {
	ID        uint           `gorm:"primaryKey"`
	GameID    uint           `gorm:"index;not null"`
	RoundID   *uint          `gorm:"index"`
	PlayerID  *uint          `gorm:"index"`
	Type      string         `gorm:"size:64;not null"`
	Payload   datatypes.JSON `gorm:"type:jsonb;not null"`
	CreatedAt time.Time      `gorm:"not null"`
}
