// Package mq carries change notices and user lifecycle events between the
// HTTP handlers and background workers. Redis pub/sub is used when configured;
// otherwise messages fan out in process.
package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"potluck/models"
)

const (
	TopicEventChanges = "event-changes"
	TopicUserDeleted  = "user-deleted"
)

// Handler processes one payload. Errors are logged by the worker loop.
type Handler func(ctx context.Context, payload []byte) error

type Bus interface {
	Publish(ctx context.Context, topic string, payload []byte) error
	// Subscribe delivers every later message on topic to h until ctx ends.
	// It returns once the subscription is live.
	Subscribe(ctx context.Context, topic string, h Handler) error
	Close() error
}

// UserDeleted is emitted after an identity record has been removed.
type UserDeleted struct {
	UserID string `json:"userId"`
}

// Emit JSON-encodes content and publishes it on topic.
func Emit(ctx context.Context, bus Bus, topic string, content any) error {
	data, err := json.Marshal(content)
	if err != nil {
		return fmt.Errorf("marshal %s message: %w", topic, err)
	}
	if err := bus.Publish(ctx, topic, data); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	slog.Debug("Message published", "topic", topic)
	return nil
}

// Changes adapts a Bus to store.ChangePublisher.
type Changes struct {
	Bus Bus
}

func (c Changes) PublishChange(ctx context.Context, change models.Change) error {
	return Emit(ctx, c.Bus, TopicEventChanges, change)
}

// StartWorker subscribes h to topic, wrapping it with decode-error logging.
func StartWorker(ctx context.Context, bus Bus, topic, name string, h Handler) error {
	err := bus.Subscribe(ctx, topic, func(ctx context.Context, payload []byte) error {
		if err := h(ctx, payload); err != nil {
			slog.Error("Worker failed to process message", "worker", name, "topic", topic, "error", err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("start %s worker: %w", name, err)
	}
	slog.Info("Worker listening", "worker", name, "topic", topic)
	return nil
}
