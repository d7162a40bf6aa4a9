package database

import (
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"

	"github.com/DeploymentBot3000/DeploymentBot/internal/model"
)

type DatabaseManager struct {
	db     *gorm.DB
	logger *slog.Logger
}

func New(db *gorm.DB) *DatabaseManager {
	m := &DatabaseManager{
		db:     db,
		logger: slog.With("logger", "dbm"),
	}

	return m
}

func (mm *DatabaseManager) Migrate() error {
	if mm == nil || mm.db == nil {
		return fmt.Errorf("no database")
	}

	if err := mm.db.AutoMigrate(
		&model.Deployment{},
		&model.RosterEntry{},
		&model.QueueEntry{},
		&model.VoiceRoom{},
		&model.QueueStatusMessage{},
		&model.GuildSetting{},
		&model.LatestInput{},
	); err != nil {
		return err
	}

	return nil
}

func (mm *DatabaseManager) DB() *gorm.DB {
	return mm.db
}

func (mm *DatabaseManager) Create(s any) error {
	if mm == nil || mm.db == nil {
		return nil
	}

	err := mm.db.Create(s).Error

	if err != nil {
		mm.logger.Error("error create object", slog.Any("error", err))
	}

	return err
}

func (mm *DatabaseManager) Save(s any) error {
	if mm == nil || mm.db == nil {
		return nil
	}

	err := mm.db.Save(s).Error

	if err != nil {
		mm.logger.Error("error saving object", slog.Any("error", err))
	}

	return err
}

func (mm *DatabaseManager) DeploymentQuery() *DeploymentQuery {
	return NewDeploymentQuery(mm.db)
}

func (mm *DatabaseManager) RosterQuery() *RosterQuery {
	return NewRosterQuery(mm.db)
}

func (mm *DatabaseManager) QueueQuery() *QueueQuery {
	return NewQueueQuery(mm.db)
}

func (mm *DatabaseManager) VoiceRoomQuery() *VoiceRoomQuery {
	return NewVoiceRoomQuery(mm.db)
}

// QueueStatus returns the singleton panel pointer, nil if none is set.
func (mm *DatabaseManager) QueueStatus() *model.QueueStatusMessage {
	if mm == nil || mm.db == nil {
		return nil
	}

	var res []*model.QueueStatusMessage

	if err := mm.db.Limit(1).Find(&res).Error; err != nil || len(res) == 0 {
		return nil
	}

	return res[0]
}

// SetQueueStatus replaces the singleton panel pointer.
func (mm *DatabaseManager) SetQueueStatus(channel, message string) error {
	if mm == nil || mm.db == nil {
		return fmt.Errorf("no database")
	}

	return mm.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&model.QueueStatusMessage{}).Error; err != nil {
			return err
		}

		return tx.Create(&model.QueueStatusMessage{Channel: channel, Message: message}).Error
	})
}

func (mm *DatabaseManager) GetDeploymentInterval(guildID string, def time.Duration) time.Duration {
	if mm == nil || mm.db == nil {
		return def
	}

	var res []*model.GuildSetting

	if err := mm.db.Where("guild_id = ?", guildID).Limit(1).Find(&res).Error; err != nil || len(res) == 0 {
		return def
	}

	return res[0].Interval()
}

func (mm *DatabaseManager) SetDeploymentInterval(guildID string, d time.Duration) error {
	if mm == nil || mm.db == nil {
		return fmt.Errorf("no database")
	}

	return mm.db.Transaction(func(tx *gorm.DB) error {
		var res []*model.GuildSetting

		if err := tx.Where("guild_id = ?", guildID).Limit(1).Find(&res).Error; err != nil {
			return err
		}

		if len(res) > 0 {
			res[0].IntervalSeconds = int64(d / time.Second)

			return tx.Save(res[0]).Error
		}

		return tx.Create(&model.GuildSetting{GuildID: guildID, IntervalSeconds: int64(d / time.Second)}).Error
	})
}

func (mm *DatabaseManager) SaveLatestInput(in *model.LatestInput) error {
	if mm == nil || mm.db == nil {
		return fmt.Errorf("no database")
	}

	return mm.db.Transaction(func(tx *gorm.DB) error {
		var res []*model.LatestInput

		if err := tx.Where("user_id = ?", in.UserID).Limit(1).Find(&res).Error; err != nil {
			return err
		}

		if len(res) > 0 {
			in.ID = res[0].ID

			return tx.Save(in).Error
		}

		return tx.Create(in).Error
	})
}

func (mm *DatabaseManager) LatestInputFor(userID string) *model.LatestInput {
	if mm == nil || mm.db == nil {
		return nil
	}

	var res []*model.LatestInput

	if err := mm.db.Where("user_id = ?", userID).Limit(1).Find(&res).Error; err != nil || len(res) == 0 {
		return nil
	}

	return res[0]
}

func (mm *DatabaseManager) ClearLatestInput() error {
	if mm == nil || mm.db == nil {
		return fmt.Errorf("no database")
	}

	return mm.db.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&model.LatestInput{}).Error
}
