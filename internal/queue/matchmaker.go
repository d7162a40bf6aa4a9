package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/DeploymentBot3000/DeploymentBot/internal/database"
	"github.com/DeploymentBot3000/DeploymentBot/internal/model"
	"github.com/DeploymentBot3000/DeploymentBot/internal/platform"
)

type group struct {
	host    *model.QueueEntry
	players []*model.QueueEntry
}

// formGroups partitions the waiting players among the waiting hosts.
// Normally assignment is first come first served by join time; in
// strike mode each slot is drawn uniformly at random from the
// remaining pool. A host that cannot reach minTotal members this round
// is skipped, its candidates are not returned to the pool.
func formGroups(hosts, players []*model.QueueEntry, perHost, minTotal int, random bool, rnd *rand.Rand) []group {
	pool := make([]*model.QueueEntry, len(players))
	copy(pool, players)

	var res []group

	for _, h := range hosts {
		take := perHost
		if take > len(pool) {
			take = len(pool)
		}

		assigned := make([]*model.QueueEntry, 0, take)

		if random {
			for i := 0; i < take; i++ {
				j := rnd.Intn(len(pool))
				assigned = append(assigned, pool[j])
				pool = append(pool[:j], pool[j+1:]...)
			}
		} else {
			assigned = append(assigned, pool[:take]...)
			pool = pool[take:]
		}

		if 1+len(assigned) < minTotal {
			continue
		}

		res = append(res, group{host: h, players: assigned})
	}

	return res
}

// runMatchmaking executes one round. Whatever happens, strike mode is
// reset and the timer re-armed so a failed round never stalls the loop.
func (q *HotDropQueue) runMatchmaking(ctx context.Context) {
	defer func() {
		q.mx.Lock()
		q.strikeMode = false
		q.rearmLocked(q.interval)
		q.mx.Unlock()

		q.refresher.Request()
	}()

	roundsMetric.Inc()

	q.mx.Lock()
	strike := q.strikeMode
	q.mx.Unlock()

	hosts := q.dbm.QueueQuery().Hosts().Get()
	players := q.dbm.QueueQuery().Players().Get()

	groups := formGroups(hosts, players, q.config.MaxGroupSize-1, q.config.MinPlayers, strike, q.rnd)

	q.logger.Info("matchmaking round",
		slog.Int("hosts", len(hosts)),
		slog.Int("players", len(players)),
		slog.Int("groups", len(groups)),
		slog.Bool("strike", strike))

	for _, g := range groups {
		if err := q.launchGroup(ctx, g); err != nil {
			q.logger.Error("hot drop launch failed",
				slog.String("host", g.host.UserID),
				slog.Any("error", err))
		}
	}
}

// launchGroup provisions the voice room, announces the drop and removes
// the members from the queue. If the room cannot be created the members
// stay queued for the next round.
func (q *HotDropQueue) launchGroup(ctx context.Context, g group) error {
	hostName, err := q.dir.ResolveMember(ctx, g.host.UserID)

	if err != nil {
		hostName = "Unknown Host"
	}

	code := dropCode(q.rnd)
	name := fmt.Sprintf("HOTDROP %s %s", code, hostName)

	ids := make([]string, 0, len(g.players)+1)
	ids = append(ids, g.host.UserID)
	for _, p := range g.players {
		ids = append(ids, p.UserID)
	}

	room, err := q.voice.CreateVoiceRoom(ctx, q.nextCategory(), name, q.config.MaxGroupSize, ids)

	if err != nil {
		return fmt.Errorf("create voice room: %w", err)
	}

	if err := q.dbm.Create(&model.VoiceRoom{
		Channel:  room.ID,
		Category: room.Category,
		Name:     room.Name,
		Expires:  time.Now().Add(q.config.VoiceRoomTTL),
	}); err != nil {
		q.logger.Error("error tracking voice room", slog.Any("error", err))
	}

	announcement := dropAnnouncementContent(code, g.host.UserID, g.players, room)

	if _, err := q.msgr.SendMessage(ctx, q.config.DepartureChannel, announcement); err != nil {
		q.logger.Error("drop announcement failed", slog.Any("error", err))
	}

	direct := dropDirectContent(code, room)

	for _, id := range ids {
		if err := q.dir.SendDirectMessage(ctx, id, direct); err != nil {
			q.logger.Warn("drop dm failed", slog.String("user", id), slog.Any("error", err))
		}
	}

	if err := database.NewQueueQuery(q.dbm.DB()).Users(ids).Delete(); err != nil {
		return fmt.Errorf("dequeue members: %w", err)
	}

	hotDropsMetric.Inc()

	q.logger.Info("hot drop started",
		slog.String("code", code),
		slog.String("host", g.host.UserID),
		slog.Int("players", len(g.players)),
		slog.String("room", room.ID))

	return nil
}

func (q *HotDropQueue) roomSweeper(ctx context.Context) {
	ticker := time.NewTicker(q.config.RoomSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			q.cleanupRooms(ctx, time.Now())
		}
	}
}

// cleanupRooms tears down drop channels whose lifetime elapsed. A room
// that cannot be deleted keeps its record so the next pass retries.
func (q *HotDropQueue) cleanupRooms(ctx context.Context, now time.Time) {
	for _, room := range q.dbm.VoiceRoomQuery().ExpiresBefore(now).Get() {
		ref := platform.RoomRef{Category: room.Category, ID: room.Channel, Name: room.Name}

		if err := q.voice.DeleteVoiceRoom(ctx, ref); err != nil && !errors.Is(err, platform.ErrNotFound) {
			q.logger.Warn("error deleting voice room", slog.String("room", room.Channel), slog.Any("error", err))

			continue
		}

		if err := q.dbm.VoiceRoomQuery().Channel(room.Channel).Delete(); err != nil {
			q.logger.Error("error removing voice room record", slog.String("room", room.Channel), slog.Any("error", err))

			continue
		}

		q.logger.Info("voice room expired", slog.String("room", room.Channel), slog.String("name", room.Name))
	}
}

func dropCode(rnd *rand.Rand) string {
	return fmt.Sprintf("%04d-%04d", rnd.Intn(10000), rnd.Intn(10000))
}
