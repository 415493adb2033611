// Package realtime pushes event slices to listeners whenever the event changes.
// Writers announce changes on the bus; the feed re-reads the event once per
// notice and hands each interested subscriber the current slice value.
package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"potluck/models"
	"potluck/mq"
)

// EventReader is the part of the store the feed needs.
type EventReader interface {
	GetEvent(ctx context.Context, eventID string) (*models.Event, error)
}

type Feed struct {
	events EventReader

	mu   sync.RWMutex
	subs map[string]map[*subscription]struct{}
}

type subscription struct {
	slice models.Slice
	push  func(ev *models.Event)

	mu     sync.Mutex
	seen   int64
	primed bool
	closed bool
}

// deliver calls push unless this version of ev was already delivered.
// A nil ev means the event is gone.
func (s *subscription) deliver(ev *models.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if ev != nil {
		if s.primed && ev.Version <= s.seen {
			return
		}
		s.seen = ev.Version
		s.primed = true
	}
	s.push(ev)
}

func NewFeed(events EventReader) *Feed {
	return &Feed{
		events: events,
		subs:   make(map[string]map[*subscription]struct{}),
	}
}

// Run listens for change notices until ctx is done.
func (f *Feed) Run(ctx context.Context, bus mq.Bus) error {
	return mq.StartWorker(ctx, bus, mq.TopicEventChanges, "realtime-feed", func(ctx context.Context, payload []byte) error {
		var c models.Change
		if err := json.Unmarshal(payload, &c); err != nil {
			return fmt.Errorf("decode change: %w", err)
		}
		f.Dispatch(ctx, c)
		return nil
	})
}

// Dispatch pushes fresh values to every subscriber of a touched slice.
func (f *Feed) Dispatch(ctx context.Context, c models.Change) {
	f.mu.RLock()
	var targets []*subscription
	for s := range f.subs[c.EventID] {
		if c.Touches(s.slice) {
			targets = append(targets, s)
		}
	}
	f.mu.RUnlock()
	if len(targets) == 0 {
		return
	}

	var ev *models.Event
	if !c.Deleted {
		var err error
		ev, err = f.events.GetEvent(ctx, c.EventID)
		if err != nil && !errors.Is(err, models.ErrEventNotFound) {
			slog.Error("Feed failed to reload event", "event_id", c.EventID, "error", err)
			return
		}
	}
	for _, s := range targets {
		s.deliver(ev)
	}
}

func (f *Feed) watch(ctx context.Context, eventID string, slice models.Slice, push func(*models.Event)) (func(), error) {
	s := &subscription{slice: slice, push: push}

	// register before the first read so no change between the two is lost
	f.mu.Lock()
	if f.subs[eventID] == nil {
		f.subs[eventID] = make(map[*subscription]struct{})
	}
	f.subs[eventID][s] = struct{}{}
	f.mu.Unlock()

	unsubscribe := func() {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()

		f.mu.Lock()
		delete(f.subs[eventID], s)
		if len(f.subs[eventID]) == 0 {
			delete(f.subs, eventID)
		}
		f.mu.Unlock()
	}

	ev, err := f.events.GetEvent(ctx, eventID)
	switch {
	case errors.Is(err, models.ErrEventNotFound):
		s.deliver(nil)
	case err != nil:
		unsubscribe()
		return nil, err
	default:
		s.deliver(ev)
	}
	return unsubscribe, nil
}

// Subscribe delivers SliceValue for the slice now and after every change.
func (f *Feed) Subscribe(ctx context.Context, eventID string, slice models.Slice, cb func(value any)) (func(), error) {
	return f.watch(ctx, eventID, slice, func(ev *models.Event) {
		cb(SliceValue(ev, slice))
	})
}

// SubscribeToDetails receives nil once the event is deleted.
func (f *Feed) SubscribeToDetails(ctx context.Context, eventID string, cb func(*models.EventDetails)) (func(), error) {
	return f.watch(ctx, eventID, models.SliceDetails, func(ev *models.Event) {
		if ev == nil {
			cb(nil)
			return
		}
		details := ev.Details
		cb(&details)
	})
}

func (f *Feed) SubscribeToMenuItems(ctx context.Context, eventID string, cb func(map[string]models.MenuItem)) (func(), error) {
	return f.watch(ctx, eventID, models.SliceMenuItems, func(ev *models.Event) {
		if ev == nil {
			cb(nil)
			return
		}
		cb(ev.MenuItems)
	})
}

func (f *Feed) SubscribeToAssignments(ctx context.Context, eventID string, cb func(map[string]models.Assignment)) (func(), error) {
	return f.watch(ctx, eventID, models.SliceAssignments, func(ev *models.Event) {
		if ev == nil {
			cb(nil)
			return
		}
		cb(ev.Assignments)
	})
}

func (f *Feed) SubscribeToParticipants(ctx context.Context, eventID string, cb func(map[string]models.Participant)) (func(), error) {
	return f.watch(ctx, eventID, models.SliceParticipants, func(ev *models.Event) {
		if ev == nil {
			cb(nil)
			return
		}
		cb(ev.Participants)
	})
}

// SliceValue extracts one slice of ev, or nil for a deleted event.
func SliceValue(ev *models.Event, slice models.Slice) any {
	if ev == nil {
		return nil
	}
	switch slice {
	case models.SliceDetails:
		return ev.Details
	case models.SliceMenuItems:
		return ev.MenuItems
	case models.SliceAssignments:
		return ev.Assignments
	case models.SliceParticipants:
		return ev.Participants
	}
	return nil
}
