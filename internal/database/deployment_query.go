package database

import (
	"time"

	"gorm.io/gorm"

	"github.com/DeploymentBot3000/DeploymentBot/internal/model"
)

type DeploymentQuery struct {
	Query[model.Deployment]
	id            uint
	message       string
	title         string
	live          bool
	deleted       bool
	notStarted    bool
	noNotice      bool
	startsBefore  time.Time
	endsBefore    time.Time
}

func NewDeploymentQuery(db *gorm.DB) *DeploymentQuery {
	return &DeploymentQuery{
		Query: Query[model.Deployment]{
			db:     db,
			limit:  100,
			offset: 0,
			order:  "start_time ASC",
		},
	}
}

func (q *DeploymentQuery) Order(s string) *DeploymentQuery {
	if q == nil {
		return nil
	}

	q.order = s
	return q
}

func (q *DeploymentQuery) Limit(n int) *DeploymentQuery {
	if q == nil {
		return nil
	}

	q.limit = n
	return q
}

func (q *DeploymentQuery) Id(id uint) *DeploymentQuery {
	if q == nil {
		return nil
	}

	q.id = id
	return q
}

func (q *DeploymentQuery) Message(id string) *DeploymentQuery {
	if q == nil {
		return nil
	}

	q.message = id
	return q
}

func (q *DeploymentQuery) Title(s string) *DeploymentQuery {
	if q == nil {
		return nil
	}

	q.title = s
	return q
}

// Live keeps only rows that have not been logically deleted.
func (q *DeploymentQuery) Live() *DeploymentQuery {
	if q == nil {
		return nil
	}

	q.live = true
	return q
}

func (q *DeploymentQuery) Deleted() *DeploymentQuery {
	if q == nil {
		return nil
	}

	q.deleted = true
	return q
}

func (q *DeploymentQuery) NotStarted() *DeploymentQuery {
	if q == nil {
		return nil
	}

	q.notStarted = true
	return q
}

func (q *DeploymentQuery) NoNoticeSent() *DeploymentQuery {
	if q == nil {
		return nil
	}

	q.noNotice = true
	return q
}

func (q *DeploymentQuery) StartsBefore(t time.Time) *DeploymentQuery {
	if q == nil {
		return nil
	}

	q.startsBefore = t
	return q
}

func (q *DeploymentQuery) EndsBefore(t time.Time) *DeploymentQuery {
	if q == nil {
		return nil
	}

	q.endsBefore = t
	return q
}

func (q *DeploymentQuery) where() *gorm.DB {
	tx := q.db

	if q.id != 0 {
		tx = tx.Where("id = ?", q.id)
	}

	if q.message != "" {
		tx = tx.Where("message = ?", q.message)
	}

	if q.title != "" {
		tx = tx.Where("title = ?", q.title)
	}

	if q.live {
		tx = tx.Where("deleted = ?", false)
	}

	if q.deleted {
		tx = tx.Where("deleted = ?", true)
	}

	if q.notStarted {
		tx = tx.Where("started = ?", false)
	}

	if q.noNotice {
		tx = tx.Where("notice_sent = ?", false)
	}

	if !q.startsBefore.IsZero() {
		tx = tx.Where("start_time <= ?", q.startsBefore)
	}

	if !q.endsBefore.IsZero() {
		tx = tx.Where("end_time <= ?", q.endsBefore)
	}

	return tx
}

func (q *DeploymentQuery) Get() []*model.Deployment {
	return q.get(q.where().Model(&model.Deployment{}))
}

func (q *DeploymentQuery) One() *model.Deployment {
	return q.one(q.where().Model(&model.Deployment{}))
}

func (q *DeploymentQuery) Count() int64 {
	return q.count(q.where().Model(&model.Deployment{}))
}

func (q *DeploymentQuery) Update(updates map[string]any) error {
	return q.updateOrError(q.where().Model(&model.Deployment{}), updates)
}

func (q *DeploymentQuery) Delete() error {
	return q.where().Delete(&model.Deployment{}).Error
}
