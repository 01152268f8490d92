package server

import (
	"encoding/json"
	"errors"
	"time"

	"sketch-relay/internal/db"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/datatypes"
	"gorm.io/gorm/clause"
)

// The persistence gateway is the durable system of record. Every write here
// happens before the corresponding broadcast, so a client fetching state over
// the REST surface never observes an event ahead of storage. A nil DB means
// the coordinator runs storeless (tests), and every write is a no-op.

func (s *Server) persistGame(game *Game) error {
	if s.db == nil {
		return nil
	}
	record := db.Game{
		JoinCode: game.Code,
		Status:   gameStatusOpen,
	}
	if err := s.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&record).Error; err != nil {
		return err
	}
	game.DBID = record.ID
	return s.persistEvent(game, "game_created", EventPayload{GameCode: game.Code})
}

func (s *Server) persistGameStatus(game *Game, status string) error {
	if s.db == nil {
		return nil
	}
	if err := s.ensureGameDBID(game); err != nil {
		return err
	}
	return s.db.Model(&db.Game{}).
		Where("id = ?", game.DBID).
		Update("status", status).Error
}

func (s *Server) persistPlayer(game *Game, player *Player) error {
	if s.db == nil {
		return nil
	}
	if player.DBID != 0 {
		return nil
	}
	if err := s.ensureGameDBID(game); err != nil {
		return err
	}
	record := db.Player{
		GameID:            game.DBID,
		Name:              player.Name,
		IsHost:            player.IsHost,
		ExcludedFromRound: player.ExcludedFromRound,
		JoinedAt:          player.JoinedAt,
	}
	if err := s.db.Create(&record).Error; err != nil {
		if isUniqueViolation(err) {
			existing, lookupErr := s.findPlayerDBID(game.DBID, player.Name)
			if lookupErr == nil && existing != 0 {
				player.DBID = existing
				return nil
			}
		}
		return err
	}
	player.DBID = record.ID
	return s.persistEvent(game, "player_joined", EventPayload{
		PlayerName: player.Name,
		PlayerID:   player.ID,
	})
}

func (s *Server) deletePlayer(game *Game, player *Player) error {
	if s.db == nil {
		return nil
	}
	if player.DBID == 0 {
		if existing, err := s.findPlayerDBID(game.DBID, player.Name); err == nil {
			player.DBID = existing
		}
	}
	if player.DBID == 0 {
		return nil
	}
	return s.db.Delete(&db.Player{}, player.DBID).Error
}

func (s *Server) persistRound(game *Game, round *RoundState) error {
	if s.db == nil {
		return nil
	}
	if err := s.ensureGameDBID(game); err != nil {
		return err
	}
	record := db.Round{
		GameID:        game.DBID,
		Number:        round.Number,
		Prompt:        round.Prompt,
		TimerMinutes:  round.TimerMinutes,
		VotingEnabled: round.VotingEnabled,
		StartedAt:     round.StartedAt,
	}
	if err := s.db.Create(&record).Error; err != nil {
		return err
	}
	round.DBID = record.ID
	return nil
}

func (s *Server) completeRound(game *Game, round *RoundState) error {
	if s.db == nil {
		return nil
	}
	if round.DBID == 0 {
		return nil
	}
	return s.db.Model(&db.Round{}).
		Where("id = ?", round.DBID).
		Update("completed", true).Error
}

func (s *Server) deleteRound(game *Game, round *RoundState) error {
	if s.db == nil {
		return nil
	}
	if round.DBID == 0 {
		return nil
	}
	if err := s.db.Where("round_id = ?", round.DBID).Delete(&db.Vote{}).Error; err != nil {
		return err
	}
	if err := s.db.Where("round_id = ?", round.DBID).Delete(&db.Answer{}).Error; err != nil {
		return err
	}
	return s.db.Delete(&db.Round{}, round.DBID).Error
}

func (s *Server) persistAnswer(game *Game, round *RoundState, answer *AnswerEntry) error {
	if s.db == nil {
		return nil
	}
	if round.DBID == 0 {
		return nil
	}
	player := findPlayer(game, answer.PlayerID)
	if player == nil || player.DBID == 0 {
		return errors.New("player has no durable record")
	}
	record := db.Answer{
		RoundID:   round.DBID,
		PlayerID:  player.DBID,
		ImageData: []byte(answer.ImageData),
		Auto:      answer.Auto,
	}
	if err := s.db.Create(&record).Error; err != nil {
		return err
	}
	answer.DBID = record.ID
	return nil
}

func (s *Server) persistVote(game *Game, round *RoundState, voter *Player, answer *AnswerEntry, entry *VoteEntry) error {
	if s.db == nil {
		return nil
	}
	if round.DBID == 0 || voter.DBID == 0 || answer.DBID == 0 {
		return nil
	}
	record := db.Vote{
		RoundID:  round.DBID,
		VoterID:  voter.DBID,
		AnswerID: answer.DBID,
	}
	err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "round_id"}, {Name: "voter_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"answer_id", "updated_at"}),
	}).Create(&record).Error
	if err != nil {
		return err
	}
	entry.DBID = record.ID
	return nil
}

func (s *Server) persistEvent(game *Game, eventType string, payload EventPayload) error {
	if s.db == nil {
		return nil
	}
	if game.DBID == 0 {
		return nil
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	record := db.Event{
		GameID:    game.DBID,
		Type:      eventType,
		Payload:   datatypes.JSON(body),
		CreatedAt: time.Now().UTC(),
	}
	return s.db.Create(&record).Error
}

func (s *Server) ensureGameDBID(game *Game) error {
	if game.DBID != 0 {
		return nil
	}
	var record db.Game
	if err := s.db.Where("join_code = ?", game.Code).First(&record).Error; err != nil {
		return err
	}
	game.DBID = record.ID
	return nil
}

func (s *Server) findPlayerDBID(gameDBID uint, name string) (uint, error) {
	var record db.Player
	err := s.db.Where("game_id = ? AND name = ?", gameDBID, name).First(&record).Error
	if err != nil {
		return 0, err
	}
	return record.ID, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
