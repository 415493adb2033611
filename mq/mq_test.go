package mq

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"potluck/models"
)

func TestLocalBusDeliversInOrder(t *testing.T) {
	bus := NewLocalBus()
	defer bus.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan string, 10)
	err := bus.Subscribe(ctx, "t", func(_ context.Context, p []byte) error {
		got <- string(p)
		return nil
	})
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	for _, m := range []string{"a", "b", "c"} {
		if err := bus.Publish(ctx, "t", []byte(m)); err != nil {
			t.Fatalf("publish: %v", err)
		}
	}

	for _, want := range []string{"a", "b", "c"} {
		select {
		case m := <-got:
			if m != want {
				t.Fatalf("expected %q, got %q", want, m)
			}
		case <-time.After(time.Second):
			t.Fatalf("timeout waiting for %q", want)
		}
	}
}

func TestLocalBusTopicsAreIsolated(t *testing.T) {
	bus := NewLocalBus()
	defer bus.Close()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan string, 1)
	_ = bus.Subscribe(ctx, "a", func(_ context.Context, p []byte) error {
		got <- string(p)
		return nil
	})
	_ = bus.Publish(ctx, "b", []byte("x"))

	select {
	case m := <-got:
		t.Fatalf("unexpected delivery %q", m)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestLocalBusUnsubscribesOnCancel(t *testing.T) {
	bus := NewLocalBus()
	defer bus.Close()
	ctx, cancel := context.WithCancel(context.Background())

	_ = bus.Subscribe(ctx, "t", func(context.Context, []byte) error { return nil })
	cancel()

	deadline := time.After(time.Second)
	for {
		bus.mu.RLock()
		n := len(bus.subs["t"])
		bus.mu.RUnlock()
		if n == 0 {
			return
		}
		select {
		case <-deadline:
			t.Fatal("subscriber was not removed")
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestChangesPublishesJSON(t *testing.T) {
	bus := NewLocalBus()
	defer bus.Close()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan models.Change, 1)
	_ = bus.Subscribe(ctx, TopicEventChanges, func(_ context.Context, p []byte) error {
		var c models.Change
		if err := json.Unmarshal(p, &c); err != nil {
			return err
		}
		got <- c
		return nil
	})

	pub := Changes{Bus: bus}
	if err := pub.PublishChange(ctx, models.Change{EventID: "e1", Slices: []models.Slice{models.SliceMenuItems}}); err != nil {
		t.Fatalf("publish change: %v", err)
	}

	select {
	case c := <-got:
		if c.EventID != "e1" || !c.Touches(models.SliceMenuItems) || c.Touches(models.SliceDetails) {
			t.Fatalf("unexpected change %+v", c)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for change")
	}
}

func TestPublishAfterClose(t *testing.T) {
	bus := NewLocalBus()
	_ = bus.Close()
	if err := bus.Publish(context.Background(), "t", nil); err != ErrBusClosed {
		t.Fatalf("expected ErrBusClosed, got %v", err)
	}
}
