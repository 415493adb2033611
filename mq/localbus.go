package mq

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

const localBuffer = 256

var ErrBusClosed = errors.New("bus closed")

// LocalBus fans messages out to in-process subscribers. Each subscriber gets
// its own ordered queue.
type LocalBus struct {
	mu     sync.RWMutex
	subs   map[string]map[*localSub]struct{}
	closed bool
}

type localSub struct {
	ch   chan []byte
	done chan struct{}
	once sync.Once
}

func (s *localSub) stop() {
	s.once.Do(func() { close(s.done) })
}

func NewLocalBus() *LocalBus {
	return &LocalBus{subs: make(map[string]map[*localSub]struct{})}
}

func (b *LocalBus) Publish(ctx context.Context, topic string, payload []byte) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return ErrBusClosed
	}
	for s := range b.subs[topic] {
		msg := append([]byte(nil), payload...)
		select {
		case s.ch <- msg:
		case <-s.done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (b *LocalBus) Subscribe(ctx context.Context, topic string, h Handler) error {
	s := &localSub{ch: make(chan []byte, localBuffer), done: make(chan struct{})}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return ErrBusClosed
	}
	if b.subs[topic] == nil {
		b.subs[topic] = make(map[*localSub]struct{})
	}
	b.subs[topic][s] = struct{}{}
	b.mu.Unlock()

	go func() {
		defer func() {
			s.stop()
			b.remove(topic, s)
		}()
		for {
			select {
			case <-ctx.Done():
				return
			case <-s.done:
				return
			case msg := <-s.ch:
				if err := h(ctx, msg); err != nil {
					slog.Error("Handler error", "topic", topic, "error", err)
				}
			}
		}
	}()
	return nil
}

func (b *LocalBus) remove(topic string, s *localSub) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.subs[topic], s)
}

func (b *LocalBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	for _, subs := range b.subs {
		for s := range subs {
			s.stop()
		}
	}
	b.subs = map[string]map[*localSub]struct{}{}
	return nil
}
