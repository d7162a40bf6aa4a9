package database

import (
	"time"

	"gorm.io/gorm"

	"github.com/DeploymentBot3000/DeploymentBot/internal/model"
)

type VoiceRoomQuery struct {
	Query[model.VoiceRoom]
	channel       string
	expiresBefore time.Time
}

func NewVoiceRoomQuery(db *gorm.DB) *VoiceRoomQuery {
	return &VoiceRoomQuery{
		Query: Query[model.VoiceRoom]{
			db:     db,
			limit:  100,
			offset: 0,
			order:  "expires ASC",
		},
	}
}

func (q *VoiceRoomQuery) Channel(id string) *VoiceRoomQuery {
	if q == nil {
		return nil
	}

	q.channel = id
	return q
}

func (q *VoiceRoomQuery) ExpiresBefore(t time.Time) *VoiceRoomQuery {
	if q == nil {
		return nil
	}

	q.expiresBefore = t
	return q
}

func (q *VoiceRoomQuery) where() *gorm.DB {
	tx := q.db

	if q.channel != "" {
		tx = tx.Where("channel = ?", q.channel)
	}

	if !q.expiresBefore.IsZero() {
		tx = tx.Where("expires < ?", q.expiresBefore)
	}

	return tx
}

func (q *VoiceRoomQuery) Get() []*model.VoiceRoom {
	return q.get(q.where().Model(&model.VoiceRoom{}))
}

func (q *VoiceRoomQuery) One() *model.VoiceRoom {
	return q.one(q.where().Model(&model.VoiceRoom{}))
}

func (q *VoiceRoomQuery) Count() int64 {
	return q.count(q.where().Model(&model.VoiceRoom{}))
}

func (q *VoiceRoomQuery) Delete() error {
	return q.where().Delete(&model.VoiceRoom{}).Error
}
