package model

import (
	"time"
)

// Deployment is a scheduled group event with a capacity-limited roster.
// The three lifecycle flags are one-way: once set they are never reset.
type Deployment struct {
	ID          uint      `gorm:"primaryKey"`
	CreatedAt   time.Time `gorm:"type:timestamp"`
	UpdatedAt   time.Time `gorm:"type:timestamp"`
	Title       string    `gorm:"index;not null;size:255"`
	Difficulty  string    `gorm:"size:255"`
	Description string
	Channel     string `gorm:"size:255"`
	Message     string `gorm:"index;size:255"`
	Host        string `gorm:"index;not null;size:255"`
	StartTime   time.Time
	EndTime     time.Time
	Started     bool
	NoticeSent  bool
	Deleted     bool `gorm:"index"`
}

type RosterKind string

const (
	KindFireteam RosterKind = "fireteam"
	KindBackup   RosterKind = "backup"
)

// RosterEntry is a single participant slot on a deployment. A user holds
// at most one entry per deployment, whatever the kind - switching from
// fireteam to backup is a remove plus insert, never a second row.
type RosterEntry struct {
	ID           uint      `gorm:"primaryKey"`
	CreatedAt    time.Time `gorm:"type:timestamp"`
	DeploymentID uint      `gorm:"uniqueIndex:idx_roster_member;not null"`
	UserID       string    `gorm:"uniqueIndex:idx_roster_member;not null;size:255"`
	Kind         RosterKind `gorm:"index;not null;size:16"`
	Role         Role       `gorm:"size:32"`
}

// EffectiveRole is what the entry shows up as on a roster. Backup rows
// carry no role of their own.
func (r *RosterEntry) EffectiveRole() Role {
	if r == nil {
		return RoleUnspecified
	}

	if r.Kind == KindBackup {
		return RoleBackup
	}

	return ParseRole(string(r.Role))
}
