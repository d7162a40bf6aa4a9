package deployment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"gorm.io/gorm"

	"github.com/DeploymentBot3000/DeploymentBot/internal/database"
	"github.com/DeploymentBot3000/DeploymentBot/internal/model"
	"github.com/DeploymentBot3000/DeploymentBot/internal/platform"
)

// Permissions answers whether a user may act administratively.
type Permissions interface {
	IsAdmin(userID string) bool
}

type Config struct {
	MaxRosterSize   int
	MinLeadTime     time.Duration
	EditGraceWindow time.Duration
	Duration        time.Duration
	NoticeLeadTime  time.Duration
	DeleteLeadTime  time.Duration

	SignupChannel    string
	DepartureChannel string

	SweepInterval  time.Duration
	PurgeInterval  time.Duration
	OrphanInterval time.Duration
}

// Manager owns the deployment lifecycle: user-triggered mutations and
// the timed sweep that moves rows through notice, start and delete.
type Manager struct {
	db     *gorm.DB
	config *Config
	msgr   platform.Messenger
	dir    platform.Directory
	perms  Permissions
	logger *slog.Logger
}

var managerConstructed atomic.Bool

// New constructs the single process-wide manager. A second call is a
// programming error and fails loudly.
func New(db *gorm.DB, config *Config, msgr platform.Messenger, dir platform.Directory, perms Permissions) (*Manager, error) {
	if !managerConstructed.CompareAndSwap(false, true) {
		return nil, errors.New("deployment manager is already initialized")
	}

	return newManager(db, config, msgr, dir, perms), nil
}

func newManager(db *gorm.DB, config *Config, msgr platform.Messenger, dir platform.Directory, perms Permissions) *Manager {
	return &Manager{
		db:     db,
		config: config,
		msgr:   msgr,
		dir:    dir,
		perms:  perms,
		logger: slog.With("logger", "deployment"),
	}
}

type CreateRequest struct {
	Title       string
	Difficulty  string
	Description string
	Host        string
	StartTime   time.Time
}

// Create inserts the deployment with its host roster entry and sends the
// signup message inside the same transaction so the message location is
// persisted atomically. If the transaction fails after the message went
// out, the message is deleted as compensation.
func (m *Manager) Create(ctx context.Context, req CreateRequest) (*Details, error) {
	now := time.Now()

	if req.Title == "" {
		return nil, fmt.Errorf("title is required")
	}

	if req.Host == "" {
		return nil, fmt.Errorf("host is required")
	}

	if req.StartTime.Before(now.Add(m.config.MinLeadTime)) {
		m.saveLatestInput(req)

		return nil, fmt.Errorf("deployments must start at least %d minutes in the future", int(m.config.MinLeadTime.Minutes()))
	}

	var details *Details

	var sent platform.MessageRef

	err := m.db.Transaction(func(tx *gorm.DB) error {
		d := &model.Deployment{
			Title:       req.Title,
			Difficulty:  req.Difficulty,
			Description: req.Description,
			Host:        req.Host,
			StartTime:   req.StartTime,
			EndTime:     req.StartTime.Add(m.config.Duration),
		}

		if err := tx.Create(d).Error; err != nil {
			return err
		}

		entry := &model.RosterEntry{
			DeploymentID: d.ID,
			UserID:       req.Host,
			Kind:         model.KindFireteam,
			Role:         model.RoleFireteam,
		}

		if err := tx.Create(entry).Error; err != nil {
			return err
		}

		details = m.buildDetails(ctx, tx, d)

		ref, err := m.msgr.SendMessage(ctx, m.config.SignupChannel, signupContent(details, false))
		if err != nil {
			return err
		}

		sent = ref
		d.Channel = ref.Channel
		d.Message = ref.ID
		details.Channel = ref.Channel
		details.Message = ref.ID

		return tx.Save(d).Error
	})

	if err != nil {
		if sent.ID != "" {
			m.logger.Warn("deleting signup message for partially created deployment", slog.String("message", sent.ID))

			if delErr := m.msgr.DeleteMessage(ctx, sent); delErr != nil {
				m.logger.Error("compensation delete failed", slog.Any("error", delErr))
			}
		}

		return nil, err
	}

	m.clearLatestInput(req.Host)

	createdMetric.Inc()
	m.logger.Info("deployment created",
		slog.Uint64("id", uint64(details.ID)),
		slog.String("title", details.Title),
		slog.String("host", details.Host.UserID),
		slog.Time("start", details.StartTime))

	return details, nil
}

// saveLatestInput keeps a rejected form so the next one can be
// pre-filled. Best effort, a failure only costs the pre-fill.
func (m *Manager) saveLatestInput(req CreateRequest) {
	in := &model.LatestInput{
		UserID:      req.Host,
		Title:       req.Title,
		Difficulty:  req.Difficulty,
		Description: req.Description,
		StartTime:   req.StartTime.UTC().Format("2006-01-02 15:04"),
	}

	if err := database.New(m.db).SaveLatestInput(in); err != nil {
		m.logger.Warn("saving form input failed", slog.Any("error", err))
	}
}

func (m *Manager) clearLatestInput(userID string) {
	if err := m.db.Where("user_id = ?", userID).Delete(&model.LatestInput{}).Error; err != nil {
		m.logger.Warn("clearing form input failed", slog.Any("error", err))
	}
}

// LatestInputFor returns the last rejected form for the user, nil if
// there is none.
func (m *Manager) LatestInputFor(userID string) *model.LatestInput {
	return database.New(m.db).LatestInputFor(userID)
}

type UpdateRequest struct {
	Title       *string
	Difficulty  *string
	Description *string
	StartTime   *time.Time
}

// Update applies only the provided fields. A start time change
// recomputes the end time and notifies every participant.
func (m *Manager) Update(ctx context.Context, requester string, id uint, req UpdateRequest) (*Details, *Details, error) {
	now := time.Now()

	var oldDetails, newDetails *Details

	err := m.db.Transaction(func(tx *gorm.DB) error {
		d := database.NewDeploymentQuery(tx).Id(id).Live().One()
		if d == nil {
			return ErrNotFound
		}

		if d.Host != requester && !m.perms.IsAdmin(requester) {
			return ErrPermission
		}

		if d.Started {
			return ErrAlreadyStarted
		}

		if d.NoticeSent {
			return ErrEditAfterNotice
		}

		oldDetails = m.buildDetails(ctx, tx, d)

		if req.Title != nil {
			d.Title = *req.Title
		}

		if req.Difficulty != nil {
			d.Difficulty = *req.Difficulty
		}

		if req.Description != nil {
			d.Description = *req.Description
		}

		if req.StartTime != nil {
			if req.StartTime.Before(now) {
				return fmt.Errorf("new start time is in the past")
			}

			// the schedule may only move backward by one grace window
			// from the announced start
			if req.StartTime.Before(d.StartTime.Add(-m.config.EditGraceWindow)) {
				return fmt.Errorf("new start time can be at most %d minutes earlier than the current one", int(m.config.EditGraceWindow.Minutes()))
			}

			d.StartTime = *req.StartTime
			d.EndTime = req.StartTime.Add(m.config.Duration)
		}

		if err := tx.Save(d).Error; err != nil {
			return err
		}

		newDetails = m.buildDetails(ctx, tx, d)

		return nil
	})

	if err != nil {
		return nil, nil, err
	}

	m.renderSignup(ctx, newDetails, false)

	if !newDetails.StartTime.Equal(oldDetails.StartTime) {
		m.notifyStartTimeChange(ctx, oldDetails, newDetails)
	}

	m.logger.Info("deployment updated",
		slog.Uint64("id", uint64(id)),
		slog.String("by", requester))

	return oldDetails, newDetails, nil
}

// Signup places the user on the roster behind the rendered message.
// Re-selecting the held role is an error, selecting another role or
// kind replaces the old entry atomically.
func (m *Manager) Signup(ctx context.Context, userID, messageID string, role model.Role) (*Details, error) {
	if role == model.RoleUnspecified {
		return nil, ErrUnknownRole
	}

	kind := model.KindFireteam
	if role == model.RoleBackup {
		kind = model.KindBackup
	}

	var details *Details

	err := m.db.Transaction(func(tx *gorm.DB) error {
		d := database.NewDeploymentQuery(tx).Message(messageID).Live().One()
		if d == nil {
			return ErrNotFound
		}

		if d.Started || d.NoticeSent {
			return ErrSignupsClosed
		}

		if kind == model.KindBackup && d.Host == userID {
			return ErrHostCannotBackup
		}

		existing := database.NewRosterQuery(tx).Deployment(d.ID).User(userID).One()

		if existing != nil && existing.EffectiveRole() == role {
			return &AlreadySignedUpError{Role: role}
		}

		// Switching role within the same kind does not change the count.
		if existing == nil || existing.Kind != kind {
			if database.NewRosterQuery(tx).Deployment(d.ID).Kind(kind).Count() >= int64(m.config.MaxRosterSize) {
				return ErrRosterFull
			}
		}

		if existing != nil {
			if err := tx.Delete(existing).Error; err != nil {
				return err
			}
		}

		entry := &model.RosterEntry{
			DeploymentID: d.ID,
			UserID:       userID,
			Kind:         kind,
			Role:         role,
		}

		if err := tx.Create(entry).Error; err != nil {
			return err
		}

		details = m.buildDetails(ctx, tx, d)

		return nil
	})

	if err != nil {
		return nil, err
	}

	signupsMetric.WithLabelValues(string(kind)).Inc()
	m.renderSignup(ctx, details, false)
	m.logger.Info("signup",
		slog.Uint64("id", uint64(details.ID)),
		slog.String("user", userID),
		slog.String("role", string(role)))

	return details, nil
}

// Remove is the administrative path, keyed by title because it has no
// message context. Self-removal is always rejected, whoever asks.
func (m *Manager) Remove(ctx context.Context, actorID, targetID, title string) (*Details, error) {
	var details *Details

	err := m.db.Transaction(func(tx *gorm.DB) error {
		d := database.NewDeploymentQuery(tx).Title(title).Live().NotStarted().One()
		if d == nil {
			return ErrNotFound
		}

		if actorID == targetID {
			return ErrCannotRemoveSelf
		}

		if d.Host != actorID && !m.perms.IsAdmin(actorID) {
			return ErrPermission
		}

		if targetID == d.Host {
			return ErrCannotRemoveHost
		}

		entry := database.NewRosterQuery(tx).Deployment(d.ID).User(targetID).One()
		if entry == nil {
			return ErrTargetNotSignedUp
		}

		if err := tx.Delete(entry).Error; err != nil {
			return err
		}

		details = m.buildDetails(ctx, tx, d)

		return nil
	})

	if err != nil {
		return nil, err
	}

	m.renderSignup(ctx, details, false)
	m.logger.Info("participant removed",
		slog.Uint64("id", uint64(details.ID)),
		slog.String("by", actorID),
		slog.String("target", targetID))

	return details, nil
}

// Leave is the self-service path. The host can never abandon their own
// deployment, and the roster is frozen once the departure notice went
// out.
func (m *Manager) Leave(ctx context.Context, userID, messageID string) (*Details, error) {
	var details *Details

	err := m.db.Transaction(func(tx *gorm.DB) error {
		d := database.NewDeploymentQuery(tx).Message(messageID).Live().One()
		if d == nil {
			return ErrNotFound
		}

		if d.Host == userID {
			return ErrHostCannotLeave
		}

		if d.Started {
			return ErrAlreadyStarted
		}

		if d.NoticeSent {
			return ErrSignupsClosed
		}

		entry := database.NewRosterQuery(tx).Deployment(d.ID).User(userID).One()
		if entry == nil {
			return ErrNotSignedUp
		}

		if err := tx.Delete(entry).Error; err != nil {
			return err
		}

		details = m.buildDetails(ctx, tx, d)

		return nil
	})

	if err != nil {
		return nil, err
	}

	m.renderSignup(ctx, details, false)
	m.logger.Info("participant left",
		slog.Uint64("id", uint64(details.ID)),
		slog.String("user", userID))

	return details, nil
}

// Delete physically removes the deployment row. Roster children are
// swept by the periodic orphan pass. Returns the pre-delete snapshot.
func (m *Manager) Delete(ctx context.Context, actorID, messageID string) (*Details, error) {
	now := time.Now()

	var details *Details

	err := m.db.Transaction(func(tx *gorm.DB) error {
		d := database.NewDeploymentQuery(tx).Message(messageID).Live().One()
		if d == nil {
			return ErrNotFound
		}

		if d.Host != actorID && !m.perms.IsAdmin(actorID) {
			return ErrPermission
		}

		details = m.buildDetails(ctx, tx, d)

		return tx.Delete(d).Error
	})

	if err != nil {
		return nil, err
	}

	for _, p := range details.Participants() {
		if dmErr := m.dir.SendDirectMessage(ctx, p.UserID, deletedNoticeContent(details, now)); dmErr != nil {
			m.logger.Warn("delete notice not delivered", slog.String("user", p.UserID), slog.Any("error", dmErr))
		}
	}

	if delErr := m.msgr.DeleteMessage(ctx, platform.MessageRef{Channel: details.Channel, ID: details.Message}); delErr != nil {
		m.logger.Warn("error deleting signup message", slog.Any("error", delErr))
	}

	m.logger.Info("deployment deleted",
		slog.Uint64("id", uint64(details.ID)),
		slog.String("title", details.Title),
		slog.String("by", actorID))

	return details, nil
}

func (m *Manager) renderSignup(ctx context.Context, d *Details, locked bool) {
	if d == nil || d.Message == "" {
		return
	}

	ref := platform.MessageRef{Channel: d.Channel, ID: d.Message}

	if err := m.msgr.EditMessage(ctx, ref, signupContent(d, locked)); err != nil {
		m.logger.Warn("error updating signup message",
			slog.Uint64("id", uint64(d.ID)),
			slog.Any("error", err))
	}
}

func (m *Manager) notifyStartTimeChange(ctx context.Context, oldDetails, newDetails *Details) {
	content := startTimeChangeContent(oldDetails, newDetails)

	for _, p := range oldDetails.Participants() {
		if err := m.dir.SendDirectMessage(ctx, p.UserID, content); err != nil {
			m.logger.Warn("start time change notice not delivered", slog.String("user", p.UserID), slog.Any("error", err))
		}
	}
}
