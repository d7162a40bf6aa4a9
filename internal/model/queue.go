package model

import (
	"time"
)

// QueueEntry is one user waiting in the hot drop queue. UserID is unique
// across the whole table - a user asking for the opposite role is
// updated in place, never duplicated.
type QueueEntry struct {
	ID       uint      `gorm:"primaryKey"`
	UserID   string    `gorm:"uniqueIndex;not null;size:255"`
	IsHost   bool      `gorm:"index"`
	JoinTime time.Time `gorm:"index"`
}

// QueueStatusMessage points at the single rendered queue panel. At most
// one row exists.
type QueueStatusMessage struct {
	ID      uint   `gorm:"primaryKey"`
	Channel string `gorm:"size:255"`
	Message string `gorm:"size:255"`
}

// VoiceRoom tracks a provisioned drop channel so it can be torn down
// once it expires.
type VoiceRoom struct {
	ID       uint      `gorm:"primaryKey"`
	Channel  string    `gorm:"uniqueIndex;not null;size:255"`
	Category string    `gorm:"size:255"`
	Name     string    `gorm:"size:255"`
	Expires  time.Time `gorm:"index"`
}

// GuildSetting holds the per-guild matchmaking interval.
type GuildSetting struct {
	ID              uint   `gorm:"primaryKey"`
	GuildID         string `gorm:"uniqueIndex;not null;size:255"`
	IntervalSeconds int64
}

func (s *GuildSetting) Interval() time.Duration {
	return time.Duration(s.IntervalSeconds) * time.Second
}

// LatestInput keeps the last rejected deployment form per user so the
// next form can be pre-filled. Purged by the daily cleanup pass.
type LatestInput struct {
	ID          uint   `gorm:"primaryKey"`
	UserID      string `gorm:"uniqueIndex;not null;size:255"`
	Title       string `gorm:"size:255"`
	Difficulty  string `gorm:"size:255"`
	Description string
	StartTime   string `gorm:"size:255"`
}
