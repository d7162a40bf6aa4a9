package database

import (
	"gorm.io/gorm"

	"github.com/DeploymentBot3000/DeploymentBot/internal/model"
)

type RosterQuery struct {
	Query[model.RosterEntry]
	deploymentID uint
	userID       string
	kind         model.RosterKind
	orphanedOnly bool
}

func NewRosterQuery(db *gorm.DB) *RosterQuery {
	return &RosterQuery{
		Query: Query[model.RosterEntry]{
			db:     db,
			limit:  200,
			offset: 0,
			order:  "created_at ASC",
		},
	}
}

func (q *RosterQuery) Deployment(id uint) *RosterQuery {
	if q == nil {
		return nil
	}

	q.deploymentID = id
	return q
}

func (q *RosterQuery) User(id string) *RosterQuery {
	if q == nil {
		return nil
	}

	q.userID = id
	return q
}

func (q *RosterQuery) Kind(k model.RosterKind) *RosterQuery {
	if q == nil {
		return nil
	}

	q.kind = k
	return q
}

// Orphaned keeps only rows whose parent deployment no longer exists.
func (q *RosterQuery) Orphaned() *RosterQuery {
	if q == nil {
		return nil
	}

	q.orphanedOnly = true
	return q
}

func (q *RosterQuery) where() *gorm.DB {
	tx := q.db

	if q.deploymentID != 0 {
		tx = tx.Where("deployment_id = ?", q.deploymentID)
	}

	if q.userID != "" {
		tx = tx.Where("user_id = ?", q.userID)
	}

	if q.kind != "" {
		tx = tx.Where("kind = ?", q.kind)
	}

	if q.orphanedOnly {
		tx = tx.Where("deployment_id NOT IN (?)", q.db.Model(&model.Deployment{}).Select("id"))
	}

	return tx
}

func (q *RosterQuery) Get() []*model.RosterEntry {
	return q.get(q.where().Model(&model.RosterEntry{}))
}

func (q *RosterQuery) One() *model.RosterEntry {
	return q.one(q.where().Model(&model.RosterEntry{}))
}

func (q *RosterQuery) Count() int64 {
	return q.count(q.where().Model(&model.RosterEntry{}))
}

func (q *RosterQuery) Delete() error {
	return q.where().Delete(&model.RosterEntry{}).Error
}
