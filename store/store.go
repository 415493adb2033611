// Package store defines the document-store contract the services are written
// against. An event is one document; sub-records are addressed by dotted paths
// such as "menuItems.<id>.assignedTo".
package store

import (
	"context"
	"strings"

	"potluck/models"
)

// MaxTxAttempts bounds optimistic transaction retries.
const MaxTxAttempts = 5

// Patch is a multi-path update applied atomically to one event document.
// A path must not appear in both Set and Unset.
type Patch struct {
	Set   map[string]any
	Unset []string
}

func (p Patch) Empty() bool {
	return len(p.Set) == 0 && len(p.Unset) == 0
}

// Merge folds other into p. Later values win.
func (p *Patch) Merge(other Patch) {
	if p.Set == nil {
		p.Set = map[string]any{}
	}
	for k, v := range other.Set {
		p.Set[k] = v
	}
	p.Unset = append(p.Unset, other.Unset...)
}

// Slices reports which subscribable parts of an event the patch touches.
func (p Patch) Slices() []models.Slice {
	seen := map[models.Slice]bool{}
	var out []models.Slice
	add := func(path string) {
		head, _, _ := strings.Cut(path, ".")
		s, ok := models.ParseSlice(head)
		if !ok {
			return
		}
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	for k := range p.Set {
		add(k)
	}
	for _, k := range p.Unset {
		add(k)
	}
	return out
}

// EventPatch targets a Patch at one event (or deletes it).
type EventPatch struct {
	EventID string
	Patch   Patch
	Delete  bool
}

// TxFunc mutates the event in place. Returning an error aborts the
// transaction without writing anything.
type TxFunc func(ev *models.Event) error

// EventStore holds Event aggregates.
type EventStore interface {
	CreateEvent(ctx context.Context, ev *models.Event) error
	// GetEvent returns a fully shaped event or models.ErrEventNotFound.
	GetEvent(ctx context.Context, eventID string) (*models.Event, error)
	EventsByOrganizer(ctx context.Context, organizerID string) ([]models.Event, error)
	AllEvents(ctx context.Context) ([]models.Event, error)
	DeleteEvent(ctx context.Context, eventID string) error

	// UpdatePaths applies p atomically, last write wins.
	UpdatePaths(ctx context.Context, eventID string, p Patch) error
	// Transact runs fn against the current event and commits only if nobody
	// wrote the event in between, retrying up to MaxTxAttempts times.
	Transact(ctx context.Context, eventID string, fn TxFunc) (*models.Event, error)
	// BulkUpdate applies independent patches; it is not atomic across events.
	BulkUpdate(ctx context.Context, patches []EventPatch) error
}

type PresetStore interface {
	PresetListsByOwner(ctx context.Context, ownerID string) ([]models.PresetList, error)
	GetPresetList(ctx context.Context, id string) (*models.PresetList, error)
	SavePresetList(ctx context.Context, list *models.PresetList) error
	DeletePresetList(ctx context.Context, id string) error
}

type UserStore interface {
	CreateUser(ctx context.Context, u *models.UserProfile) error
	GetUser(ctx context.Context, id string) (*models.UserProfile, error)
	GetUserByEmail(ctx context.Context, email string) (*models.UserProfile, error)
	DeleteUser(ctx context.Context, id string) error
}

// Store is everything the service needs from persistence.
type Store interface {
	EventStore
	PresetStore
	UserStore
	Close(ctx context.Context) error
}
