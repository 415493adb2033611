// Package memstore provides an in-memory implementation of store.Store used
// for tests and ephemeral environments. Events are kept as BSON documents so
// dotted-path updates behave like they do against MongoDB.
package memstore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"go.mongodb.org/mongo-driver/bson"

	"potluck/models"
	"potluck/store"
)

var _ store.Store = (*Store)(nil)

type Store struct {
	mu      sync.RWMutex
	events  map[string]bson.M
	presets map[string]models.PresetList
	users   map[string]models.UserProfile
}

func New() *Store {
	return &Store{
		events:  make(map[string]bson.M),
		presets: make(map[string]models.PresetList),
		users:   make(map[string]models.UserProfile),
	}
}

func (s *Store) Close(context.Context) error { return nil }

// --- events ---------------------------------------------------------------

func (s *Store) CreateEvent(_ context.Context, ev *models.Event) error {
	ev.Normalize()
	doc, err := encodeEvent(ev)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.events[ev.ID]; exists {
		return fmt.Errorf("event %s already exists", ev.ID)
	}
	s.events[ev.ID] = doc
	return nil
}

func (s *Store) GetEvent(_ context.Context, eventID string) (*models.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.events[eventID]
	if !ok {
		return nil, models.ErrEventNotFound
	}
	ev, err := decodeEvent(doc)
	if err != nil {
		return nil, err
	}
	// persist structural repair the way the mongo store does
	if repaired := ev.Normalize(); len(repaired) > 0 {
		for _, field := range repaired {
			doc[field] = bson.M{}
		}
	}
	return ev, nil
}

func (s *Store) EventsByOrganizer(ctx context.Context, organizerID string) ([]models.Event, error) {
	all, err := s.AllEvents(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]models.Event, 0)
	for _, ev := range all {
		if ev.OrganizerID == organizerID {
			out = append(out, ev)
		}
	}
	return out, nil
}

func (s *Store) AllEvents(_ context.Context) ([]models.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Event, 0, len(s.events))
	for _, doc := range s.events {
		ev, err := decodeEvent(doc)
		if err != nil {
			return nil, err
		}
		ev.Normalize()
		out = append(out, *ev)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt == out[j].CreatedAt {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt > out[j].CreatedAt
	})
	return out, nil
}

func (s *Store) DeleteEvent(_ context.Context, eventID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.events[eventID]; !ok {
		return models.ErrEventNotFound
	}
	delete(s.events, eventID)
	return nil
}

func (s *Store) UpdatePaths(_ context.Context, eventID string, p store.Patch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.events[eventID]
	if !ok {
		return models.ErrEventNotFound
	}
	if err := applyPatch(doc, p); err != nil {
		return err
	}
	doc["version"] = version(doc) + 1
	return nil
}

func (s *Store) Transact(ctx context.Context, eventID string, fn store.TxFunc) (*models.Event, error) {
	for attempt := 0; attempt < store.MaxTxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		s.mu.RLock()
		doc, ok := s.events[eventID]
		var ev *models.Event
		var err error
		if ok {
			ev, err = decodeEvent(doc)
		}
		s.mu.RUnlock()
		if !ok {
			return nil, models.ErrEventNotFound
		}
		if err != nil {
			return nil, err
		}
		ev.Normalize()
		read := ev.Version

		// fn runs without the lock so concurrent writers can interleave,
		// exactly like a remote optimistic transaction.
		if err := fn(ev); err != nil {
			return nil, err
		}
		ev.Version = read + 1
		next, err := encodeEvent(ev)
		if err != nil {
			return nil, err
		}

		s.mu.Lock()
		current, ok := s.events[eventID]
		if !ok {
			s.mu.Unlock()
			return nil, models.ErrEventNotFound
		}
		if version(current) != read {
			s.mu.Unlock()
			continue
		}
		s.events[eventID] = next
		s.mu.Unlock()
		return ev, nil
	}
	return nil, models.ErrTxConflict
}

func (s *Store) BulkUpdate(ctx context.Context, patches []store.EventPatch) error {
	var errs []error
	for _, p := range patches {
		var err error
		if p.Delete {
			err = s.DeleteEvent(ctx, p.EventID)
		} else {
			err = s.UpdatePaths(ctx, p.EventID, p.Patch)
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("event %s: %w", p.EventID, err))
		}
	}
	return errors.Join(errs...)
}

// --- presets --------------------------------------------------------------

func (s *Store) PresetListsByOwner(_ context.Context, ownerID string) ([]models.PresetList, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.PresetList, 0)
	for _, l := range s.presets {
		if l.CreatedBy == ownerID {
			out = append(out, clonePreset(l))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt == out[j].CreatedAt {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt < out[j].CreatedAt
	})
	return out, nil
}

func (s *Store) GetPresetList(_ context.Context, id string) (*models.PresetList, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	l, ok := s.presets[id]
	if !ok {
		return nil, models.ErrPresetNotFound
	}
	c := clonePreset(l)
	return &c, nil
}

func (s *Store) SavePresetList(_ context.Context, list *models.PresetList) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.presets[list.ID] = clonePreset(*list)
	return nil
}

func (s *Store) DeletePresetList(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.presets[id]; !ok {
		return models.ErrPresetNotFound
	}
	delete(s.presets, id)
	return nil
}

func clonePreset(l models.PresetList) models.PresetList {
	l.Items = append([]models.PresetItem(nil), l.Items...)
	return l
}

// --- users ----------------------------------------------------------------

func (s *Store) CreateUser(_ context.Context, u *models.UserProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[u.ID]; ok {
		return models.ErrUserExists
	}
	if u.Email != "" {
		for _, existing := range s.users {
			if strings.EqualFold(existing.Email, u.Email) {
				return models.ErrUserExists
			}
		}
	}
	s.users[u.ID] = *u
	return nil
}

func (s *Store) GetUser(_ context.Context, id string) (*models.UserProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, models.ErrUserNotFound
	}
	return &u, nil
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (*models.UserProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.Email != "" && strings.EqualFold(u.Email, email) {
			return &u, nil
		}
	}
	return nil, models.ErrUserNotFound
}

func (s *Store) DeleteUser(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[id]; !ok {
		return models.ErrUserNotFound
	}
	delete(s.users, id)
	return nil
}
