package platform

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// Console is a stand-in adapter that logs every outbound call instead of
// talking to a real gateway. It keeps sent messages in memory so edits
// and deletes against refs it produced behave consistently.
type Console struct {
	logger *slog.Logger

	mx       sync.Mutex
	messages map[string]string
	rooms    map[string]RoomRef
}

func NewConsole() *Console {
	return &Console{
		logger:   slog.With("logger", "platform"),
		messages: make(map[string]string),
		rooms:    make(map[string]RoomRef),
	}
}

var _ Messenger = &Console{}
var _ Directory = &Console{}
var _ VoiceProvisioner = &Console{}

func (c *Console) SendMessage(_ context.Context, channel string, content string) (MessageRef, error) {
	ref := MessageRef{Channel: channel, ID: uuid.NewString()}

	c.mx.Lock()
	c.messages[ref.ID] = content
	c.mx.Unlock()

	c.logger.Info("send message", slog.String("channel", channel), slog.String("id", ref.ID), slog.Int("size", len(content)))

	return ref, nil
}

func (c *Console) EditMessage(_ context.Context, ref MessageRef, content string) error {
	c.mx.Lock()
	_, ok := c.messages[ref.ID]
	if ok {
		c.messages[ref.ID] = content
	}
	c.mx.Unlock()

	if !ok {
		return ErrNotFound
	}

	c.logger.Info("edit message", slog.String("channel", ref.Channel), slog.String("id", ref.ID))

	return nil
}

func (c *Console) DeleteMessage(_ context.Context, ref MessageRef) error {
	c.mx.Lock()
	_, ok := c.messages[ref.ID]
	delete(c.messages, ref.ID)
	c.mx.Unlock()

	if !ok {
		return ErrNotFound
	}

	c.logger.Info("delete message", slog.String("channel", ref.Channel), slog.String("id", ref.ID))

	return nil
}

func (c *Console) ResolveMember(_ context.Context, userID string) (string, error) {
	return userID, nil
}

func (c *Console) SendDirectMessage(_ context.Context, userID string, content string) error {
	c.logger.Info("direct message", slog.String("user", userID), slog.Int("size", len(content)))

	return nil
}

func (c *Console) CreateVoiceRoom(_ context.Context, category, name string, capacity int, users []string) (RoomRef, error) {
	ref := RoomRef{Category: category, ID: uuid.NewString(), Name: name}

	c.mx.Lock()
	c.rooms[ref.ID] = ref
	c.mx.Unlock()

	c.logger.Info("create voice room",
		slog.String("category", category),
		slog.String("name", name),
		slog.Int("capacity", capacity),
		slog.Int("users", len(users)))

	return ref, nil
}

func (c *Console) DeleteVoiceRoom(_ context.Context, ref RoomRef) error {
	c.mx.Lock()
	_, ok := c.rooms[ref.ID]
	delete(c.rooms, ref.ID)
	c.mx.Unlock()

	if !ok {
		return ErrNotFound
	}

	c.logger.Info("delete voice room", slog.String("id", ref.ID))

	return nil
}
