package platform

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("not found")

// MessageRef locates a rendered message on the chat platform.
type MessageRef struct {
	Channel string
	ID      string
}

// RoomRef locates a provisioned voice room.
type RoomRef struct {
	Category string
	ID       string
	Name     string
}

// Messenger is the send/edit/delete surface of the chat platform. The
// core depends only on these capabilities, not on any concrete SDK.
type Messenger interface {
	SendMessage(ctx context.Context, channel string, content string) (MessageRef, error)
	EditMessage(ctx context.Context, ref MessageRef, content string) error
	DeleteMessage(ctx context.Context, ref MessageRef) error
}

// Directory resolves users and delivers direct notifications.
type Directory interface {
	ResolveMember(ctx context.Context, userID string) (string, error)
	SendDirectMessage(ctx context.Context, userID string, content string) error
}

// VoiceProvisioner allocates ephemeral communication rooms.
type VoiceProvisioner interface {
	CreateVoiceRoom(ctx context.Context, category, name string, capacity int, users []string) (RoomRef, error)
	DeleteVoiceRoom(ctx context.Context, ref RoomRef) error
}
