package deployment

import (
	"context"
	"log/slog"
	"time"

	"gorm.io/gorm"

	"github.com/DeploymentBot3000/DeploymentBot/internal/database"
	"github.com/DeploymentBot3000/DeploymentBot/internal/model"
	"github.com/DeploymentBot3000/DeploymentBot/internal/platform"
)

// Start launches the background sweeper. The fast cadence drives the
// notice, start and delete passes, the slower ones purge logically
// deleted rows and clean up orphans. Each pass runs once on startup.
func (m *Manager) Start(ctx context.Context) {
	go m.sweeper(ctx)
}

func (m *Manager) sweeper(ctx context.Context) {
	m.checkDeployments(ctx, time.Now())
	m.purgeDeleted()
	m.cleanupOrphans()

	sweep := time.NewTicker(m.config.SweepInterval)
	purge := time.NewTicker(m.config.PurgeInterval)
	orphans := time.NewTicker(m.config.OrphanInterval)

	defer sweep.Stop()
	defer purge.Stop()
	defer orphans.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-sweep.C:
			m.checkDeployments(ctx, time.Now())
		case <-purge.C:
			m.purgeDeleted()
		case <-orphans.C:
			m.cleanupOrphans()
		}
	}
}

func (m *Manager) checkDeployments(ctx context.Context, now time.Time) {
	m.sendDepartureNotices(ctx, now)
	m.startDeployments(ctx, now)
	m.deleteOldDeployments(ctx, now)
}

// One bad row must not block its siblings, so every per-row failure is
// logged and skipped.
func (m *Manager) sendDepartureNotices(ctx context.Context, now time.Time) {
	due := database.NewDeploymentQuery(m.db).Live().NoNoticeSent().
		StartsBefore(now.Add(m.config.NoticeLeadTime)).Get()

	for _, d := range due {
		details := m.buildDetails(ctx, m.db, d)

		if _, err := m.msgr.SendMessage(ctx, m.config.DepartureChannel, departureNoticeContent(details, m.config.NoticeLeadTime)); err != nil {
			m.logger.Error("error sending departure notice", slog.Uint64("id", uint64(d.ID)), slog.Any("error", err))
			continue
		}

		if err := database.NewDeploymentQuery(m.db).Id(d.ID).Update(map[string]any{"notice_sent": true}); err != nil {
			m.logger.Error("error marking notice sent", slog.Uint64("id", uint64(d.ID)), slog.Any("error", err))
			continue
		}

		transitionsMetric.WithLabelValues("notice").Inc()
		m.logger.Info("departure notice sent", slog.Uint64("id", uint64(d.ID)), slog.String("title", d.Title))
	}
}

func (m *Manager) startDeployments(ctx context.Context, now time.Time) {
	due := database.NewDeploymentQuery(m.db).Live().NotStarted().StartsBefore(now).Get()

	for _, d := range due {
		details := m.buildDetails(ctx, m.db, d)

		// The render failure does not stop the transition, the flag is
		// monotonic either way.
		m.renderSignup(ctx, details, true)

		if err := database.NewDeploymentQuery(m.db).Id(d.ID).Update(map[string]any{"started": true}); err != nil {
			m.logger.Error("error marking started", slog.Uint64("id", uint64(d.ID)), slog.Any("error", err))
			continue
		}

		transitionsMetric.WithLabelValues("start").Inc()
		m.logger.Info("deployment started",
			slog.Uint64("id", uint64(d.ID)),
			slog.String("title", d.Title),
			slog.String("host", details.Host.DisplayName),
			slog.Int("fireteam", len(details.Fireteam)),
			slog.Int("backups", len(details.Backups)),
			slog.Time("start", d.StartTime))
	}
}

func (m *Manager) deleteOldDeployments(ctx context.Context, now time.Time) {
	due := database.NewDeploymentQuery(m.db).Live().
		EndsBefore(now.Add(-m.config.DeleteLeadTime)).Get()

	for _, d := range due {
		if d.Message != "" {
			ref := platform.MessageRef{Channel: d.Channel, ID: d.Message}

			if err := m.msgr.DeleteMessage(ctx, ref); err != nil {
				m.logger.Warn("error deleting signup message", slog.Uint64("id", uint64(d.ID)), slog.Any("error", err))
			}
		}

		if err := database.NewDeploymentQuery(m.db).Id(d.ID).Update(map[string]any{"deleted": true}); err != nil {
			m.logger.Error("error marking deleted", slog.Uint64("id", uint64(d.ID)), slog.Any("error", err))
			continue
		}

		transitionsMetric.WithLabelValues("delete").Inc()
		m.logger.Info("old deployment deleted", slog.Uint64("id", uint64(d.ID)), slog.String("title", d.Title))
	}
}

// purgeDeleted physically removes logically deleted deployments with
// their roster children.
func (m *Manager) purgeDeleted() {
	for _, d := range database.NewDeploymentQuery(m.db).Deleted().Get() {
		if err := database.NewRosterQuery(m.db).Deployment(d.ID).Delete(); err != nil {
			m.logger.Error("error purging roster", slog.Uint64("id", uint64(d.ID)), slog.Any("error", err))
			continue
		}

		if err := database.NewDeploymentQuery(m.db).Id(d.ID).Delete(); err != nil {
			m.logger.Error("error purging deployment", slog.Uint64("id", uint64(d.ID)), slog.Any("error", err))
			continue
		}

		m.logger.Info("purged deployment with its roster", slog.Uint64("id", uint64(d.ID)))
	}
}

// cleanupOrphans drops roster rows whose parent deployment is gone and
// clears the cached form inputs. Defends against partial failures
// elsewhere.
func (m *Manager) cleanupOrphans() {
	orphans := database.NewRosterQuery(m.db).Orphaned().Get()

	if len(orphans) > 0 {
		if err := database.NewRosterQuery(m.db).Orphaned().Delete(); err != nil {
			m.logger.Error("error deleting orphaned roster rows", slog.Any("error", err))
		} else {
			m.logger.Info("cleared orphaned roster rows", slog.Int("count", len(orphans)))
		}
	}

	if err := m.db.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&model.LatestInput{}).Error; err != nil {
		m.logger.Error("error clearing latest inputs", slog.Any("error", err))
	}
}
