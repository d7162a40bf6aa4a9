package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"gorm.io/gorm"

	"github.com/DeploymentBot3000/DeploymentBot/internal/database"
	"github.com/DeploymentBot3000/DeploymentBot/internal/model"
	"github.com/DeploymentBot3000/DeploymentBot/internal/platform"
)

type Config struct {
	GuildID string

	// MinPlayers counts the host. MaxGroupSize counts the host too.
	MinPlayers   int
	MaxGroupSize int

	MaxHosts   int
	MaxPlayers int

	DefaultInterval time.Duration
	RefreshCooldown time.Duration

	VoiceRoomTTL      time.Duration
	RoomSweepInterval time.Duration

	DepartureChannel string
	VoiceCategories  []string
}

// HotDropQueue runs the pick-up matchmaking loop: users wait in a
// persistent queue, a one-shot timer fires the matchmaker, and every
// mutation refreshes the single status panel through a debouncer.
type HotDropQueue struct {
	dbm    *database.DatabaseManager
	config *Config
	msgr   platform.Messenger
	dir    platform.Directory
	voice  platform.VoiceProvisioner
	logger *slog.Logger

	refresher *refresher
	rnd       *rand.Rand

	mx         sync.Mutex
	strikeMode bool
	interval   time.Duration
	nextDrop   time.Time
	timer      *time.Timer
	catIdx     int
	ctx        context.Context
}

var queueConstructed atomic.Bool

// New constructs the single process-wide queue engine. A second call is
// a programming error and fails loudly.
func New(dbm *database.DatabaseManager, config *Config, msgr platform.Messenger, dir platform.Directory, voice platform.VoiceProvisioner) (*HotDropQueue, error) {
	if !queueConstructed.CompareAndSwap(false, true) {
		return nil, errors.New("hot drop queue is already initialized")
	}

	return newHotDropQueue(dbm, config, msgr, dir, voice), nil
}

func newHotDropQueue(dbm *database.DatabaseManager, config *Config, msgr platform.Messenger, dir platform.Directory, voice platform.VoiceProvisioner) *HotDropQueue {
	q := &HotDropQueue{
		dbm:    dbm,
		config: config,
		msgr:   msgr,
		dir:    dir,
		voice:  voice,
		logger: slog.With("logger", "hotdrop"),
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		ctx:    context.Background(),
	}

	q.interval = config.DefaultInterval

	q.refresher = newRefresher(config.RefreshCooldown, q.updatePanel)

	return q
}

// Start loads the persisted interval and arms the matchmaking timer.
// The timer is stopped when ctx is cancelled.
func (q *HotDropQueue) Start(ctx context.Context) {
	interval := q.dbm.GetDeploymentInterval(q.config.GuildID, q.config.DefaultInterval)

	q.mx.Lock()
	q.ctx = ctx
	q.interval = interval
	q.rearmLocked(interval)
	q.mx.Unlock()

	q.logger.Info("queue started", slog.Duration("interval", interval))

	go q.roomSweeper(ctx)

	go func() {
		<-ctx.Done()

		q.mx.Lock()
		if q.timer != nil {
			q.timer.Stop()
			q.timer = nil
		}
		q.mx.Unlock()

		q.refresher.Stop()
	}()
}

func (q *HotDropQueue) Join(ctx context.Context, userID string) error {
	return q.join(ctx, userID, false)
}

func (q *HotDropQueue) JoinAsHost(ctx context.Context, userID string) error {
	return q.join(ctx, userID, true)
}

func (q *HotDropQueue) join(ctx context.Context, userID string, asHost bool) error {
	q.mx.Lock()
	strike := q.strikeMode
	q.mx.Unlock()

	err := q.dbm.DB().Transaction(func(tx *gorm.DB) error {
		existing := database.NewQueueQuery(tx).User(userID).One()

		if existing != nil && existing.IsHost == asHost {
			return ErrAlreadyQueued
		}

		if !strike {
			if asHost {
				if database.NewQueueQuery(tx).Hosts().Count() >= int64(q.config.MaxHosts) {
					return ErrHostQueueFull
				}
			} else {
				if database.NewQueueQuery(tx).Players().Count() >= int64(q.config.MaxPlayers) {
					return ErrPlayerQueueFull
				}
			}
		}

		now := time.Now()

		if existing != nil {
			// role flip keeps the single row per user
			existing.IsHost = asHost
			existing.JoinTime = now

			return tx.Save(existing).Error
		}

		return tx.Create(&model.QueueEntry{UserID: userID, IsHost: asHost, JoinTime: now}).Error
	})

	if err != nil {
		return err
	}

	role := "player"
	if asHost {
		role = "host"
	}

	joinsMetric.WithLabelValues(role).Inc()
	q.logQueueEvent("join", userID, asHost)
	q.refresher.Request()

	return nil
}

func (q *HotDropQueue) Leave(ctx context.Context, userID string) error {
	var wasHost bool

	var joined time.Time

	var before int64

	err := q.dbm.DB().Transaction(func(tx *gorm.DB) error {
		existing := database.NewQueueQuery(tx).User(userID).One()

		if existing == nil {
			return ErrNotInQueue
		}

		wasHost = existing.IsHost
		joined = existing.JoinTime
		before = database.NewQueueQuery(tx).Count()

		return database.NewQueueQuery(tx).User(userID).Delete()
	})

	if err != nil {
		return err
	}

	leavesMetric.Inc()
	q.logQueueEvent("leave", userID, wasHost,
		slog.Duration("waited", time.Since(joined)),
		slog.Int64("queued-before", before))
	q.refresher.Request()

	return nil
}

// Clear empties the whole queue and reports how many entries it held.
func (q *HotDropQueue) Clear(ctx context.Context) (int64, error) {
	var removed int64

	err := q.dbm.DB().Transaction(func(tx *gorm.DB) error {
		removed = database.NewQueueQuery(tx).Count()

		return tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&model.QueueEntry{}).Error
	})

	if err != nil {
		return 0, err
	}

	q.logger.Info("queue cleared", slog.Int64("removed", removed))
	q.refresher.Request()

	return removed, nil
}

// ToggleStrikeMode flips strike mode and returns the new state. While
// enabled, queue-size caps are bypassed and the next round assigns
// players randomly instead of first come first served.
func (q *HotDropQueue) ToggleStrikeMode(ctx context.Context) bool {
	q.mx.Lock()
	q.strikeMode = !q.strikeMode
	enabled := q.strikeMode
	q.mx.Unlock()

	q.logger.Info("strike mode toggled", slog.Bool("enabled", enabled))
	q.refresher.Request()

	return enabled
}

func (q *HotDropQueue) StrikeMode() bool {
	q.mx.Lock()
	defer q.mx.Unlock()

	return q.strikeMode
}

func (q *HotDropQueue) NextDrop() time.Time {
	q.mx.Lock()
	defer q.mx.Unlock()

	return q.nextDrop
}

func (q *HotDropQueue) Interval() time.Duration {
	q.mx.Lock()
	defer q.mx.Unlock()

	return q.interval
}

// SetDeploymentTime persists the new matchmaking interval and re-arms
// the timer so the next round fires that far from now.
func (q *HotDropQueue) SetDeploymentTime(ctx context.Context, d time.Duration) (time.Time, error) {
	if d <= 0 {
		return time.Time{}, fmt.Errorf("interval must be positive")
	}

	if err := q.dbm.SetDeploymentInterval(q.config.GuildID, d); err != nil {
		return time.Time{}, err
	}

	q.mx.Lock()
	q.interval = d
	q.rearmLocked(d)
	next := q.nextDrop
	q.mx.Unlock()

	q.logger.Info("interval changed", slog.Duration("interval", d))
	q.refresher.Request()

	return next, nil
}

func (q *HotDropQueue) rearmLocked(d time.Duration) {
	if q.timer != nil {
		q.timer.Stop()
	}

	q.nextDrop = time.Now().Add(d)
	q.timer = time.AfterFunc(d, q.onTimer)
}

func (q *HotDropQueue) onTimer() {
	q.mx.Lock()
	ctx := q.ctx
	q.mx.Unlock()

	q.runMatchmaking(ctx)
}

func (q *HotDropQueue) logQueueEvent(event, userID string, host bool, extra ...any) {
	attrs := []any{
		slog.String("event", event),
		slog.String("user", userID),
		slog.Bool("host", host),
		slog.Int64("hosts", q.dbm.QueueQuery().Hosts().Count()),
		slog.Int64("players", q.dbm.QueueQuery().Players().Count()),
	}

	q.logger.Info("queue event", append(attrs, extra...)...)
}

func (q *HotDropQueue) updatePanel() {
	status := q.dbm.QueueStatus()

	if status == nil {
		return
	}

	hosts := q.dbm.QueueQuery().Hosts().Get()
	players := q.dbm.QueueQuery().Players().Get()

	q.mx.Lock()
	ctx := q.ctx
	next := q.nextDrop
	q.mx.Unlock()

	content := panelContent(next, hosts, players)
	ref := platform.MessageRef{Channel: status.Channel, ID: status.Message}

	if err := q.msgr.EditMessage(ctx, ref, content); err != nil {
		q.logger.Error("panel refresh failed", slog.Any("error", err))
	}
}

func (q *HotDropQueue) nextCategory() string {
	if len(q.config.VoiceCategories) == 0 {
		return ""
	}

	q.mx.Lock()
	defer q.mx.Unlock()

	c := q.config.VoiceCategories[q.catIdx%len(q.config.VoiceCategories)]
	q.catIdx++

	return c
}
