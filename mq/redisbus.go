package mq

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

type RedisBus struct {
	conn *redis.Client
}

func NewRedisBus(conn *redis.Client) *RedisBus {
	return &RedisBus{conn: conn}
}

func (b *RedisBus) Publish(ctx context.Context, topic string, payload []byte) error {
	return b.conn.Publish(ctx, topic, payload).Err()
}

func (b *RedisBus) Subscribe(ctx context.Context, topic string, h Handler) error {
	sub := b.conn.Subscribe(ctx, topic)
	// wait for the subscription confirmation so nothing published after
	// Subscribe returns is missed
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("subscribe %s: %w", topic, err)
	}

	go func() {
		defer sub.Close()
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					slog.Warn("Redis subscription closed", "topic", topic)
					return
				}
				if err := h(ctx, []byte(msg.Payload)); err != nil {
					slog.Error("Handler error", "topic", topic, "error", err)
				}
			}
		}
	}()
	return nil
}

func (b *RedisBus) Close() error {
	return b.conn.Close()
}
