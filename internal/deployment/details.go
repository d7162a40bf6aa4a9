package deployment

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/DeploymentBot3000/DeploymentBot/internal/database"
	"github.com/DeploymentBot3000/DeploymentBot/internal/model"
)

const unknownMember = "Unknown User"

// Member is a resolved roster participant.
type Member struct {
	UserID      string
	DisplayName string
	Role        model.Role
}

// Details is a point-in-time snapshot of a deployment with its roster
// resolved to display names. Operations return it so callers can render
// and notify without re-reading the store.
type Details struct {
	ID          uint
	Title       string
	Difficulty  string
	Description string
	Channel     string
	Message     string
	Host        Member
	Fireteam    []Member
	Backups     []Member
	StartTime   time.Time
	EndTime     time.Time
}

func (m *Manager) buildDetails(ctx context.Context, tx *gorm.DB, d *model.Deployment) *Details {
	res := &Details{
		ID:          d.ID,
		Title:       d.Title,
		Difficulty:  d.Difficulty,
		Description: d.Description,
		Channel:     d.Channel,
		Message:     d.Message,
		StartTime:   d.StartTime,
		EndTime:     d.EndTime,
	}

	for _, e := range database.NewRosterQuery(tx).Deployment(d.ID).Get() {
		member := Member{
			UserID:      e.UserID,
			DisplayName: m.resolveName(ctx, e.UserID),
			Role:        e.EffectiveRole(),
		}

		if e.Kind == model.KindBackup {
			res.Backups = append(res.Backups, member)
			continue
		}

		res.Fireteam = append(res.Fireteam, member)

		if e.UserID == d.Host {
			res.Host = member
		}
	}

	return res
}

func (m *Manager) resolveName(ctx context.Context, userID string) string {
	name, err := m.dir.ResolveMember(ctx, userID)
	if err != nil || name == "" {
		return unknownMember
	}

	return name
}

// Participants lists every member except the host, fireteam first.
func (d *Details) Participants() []Member {
	res := make([]Member, 0, len(d.Fireteam)+len(d.Backups))

	for _, m := range d.Fireteam {
		if m.UserID != d.Host.UserID {
			res = append(res, m)
		}
	}

	return append(res, d.Backups...)
}
