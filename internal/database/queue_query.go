package database

import (
	"gorm.io/gorm"

	"github.com/DeploymentBot3000/DeploymentBot/internal/model"
)

type QueueQuery struct {
	Query[model.QueueEntry]
	userID  string
	hosts   bool
	players bool
	users   []string
}

func NewQueueQuery(db *gorm.DB) *QueueQuery {
	return &QueueQuery{
		Query: Query[model.QueueEntry]{
			db:     db,
			limit:  0,
			offset: 0,
			order:  "join_time ASC",
		},
	}
}

func (q *QueueQuery) User(id string) *QueueQuery {
	if q == nil {
		return nil
	}

	q.userID = id
	return q
}

func (q *QueueQuery) Hosts() *QueueQuery {
	if q == nil {
		return nil
	}

	q.hosts = true
	return q
}

func (q *QueueQuery) Players() *QueueQuery {
	if q == nil {
		return nil
	}

	q.players = true
	return q
}

func (q *QueueQuery) Users(ids []string) *QueueQuery {
	if q == nil {
		return nil
	}

	q.users = ids
	return q
}

func (q *QueueQuery) where() *gorm.DB {
	tx := q.db

	if q.userID != "" {
		tx = tx.Where("user_id = ?", q.userID)
	}

	if len(q.users) > 0 {
		tx = tx.Where("user_id IN (?)", q.users)
	}

	if q.hosts {
		tx = tx.Where("is_host = ?", true)
	}

	if q.players {
		tx = tx.Where("is_host = ?", false)
	}

	return tx
}

func (q *QueueQuery) Get() []*model.QueueEntry {
	return q.get(q.where().Model(&model.QueueEntry{}))
}

func (q *QueueQuery) One() *model.QueueEntry {
	return q.one(q.where().Model(&model.QueueEntry{}))
}

func (q *QueueQuery) Count() int64 {
	return q.count(q.where().Model(&model.QueueEntry{}))
}

func (q *QueueQuery) Update(updates map[string]any) error {
	return q.updateOrError(q.where().Model(&model.QueueEntry{}), updates)
}

func (q *QueueQuery) Delete() error {
	return q.where().Delete(&model.QueueEntry{}).Error
}
