package store

import (
	"context"
	"log/slog"

	"potluck/models"
)

// ChangePublisher receives a notice after each successful event write.
type ChangePublisher interface {
	PublishChange(ctx context.Context, c models.Change) error
}

type notifying struct {
	Store
	pub ChangePublisher
}

// WithChanges wraps s so every successful event write is announced on pub.
// Publish failures are logged; the write itself already happened.
func WithChanges(s Store, pub ChangePublisher) Store {
	return &notifying{Store: s, pub: pub}
}

func (n *notifying) publish(ctx context.Context, c models.Change) {
	if len(c.Slices) == 0 && !c.Deleted {
		return
	}
	if err := n.pub.PublishChange(ctx, c); err != nil {
		slog.Error("Failed to publish change", "event_id", c.EventID, "error", err)
	}
}

func (n *notifying) CreateEvent(ctx context.Context, ev *models.Event) error {
	if err := n.Store.CreateEvent(ctx, ev); err != nil {
		return err
	}
	n.publish(ctx, models.Change{EventID: ev.ID, Slices: models.AllSlices})
	return nil
}

func (n *notifying) DeleteEvent(ctx context.Context, eventID string) error {
	if err := n.Store.DeleteEvent(ctx, eventID); err != nil {
		return err
	}
	n.publish(ctx, models.Change{EventID: eventID, Deleted: true})
	return nil
}

func (n *notifying) UpdatePaths(ctx context.Context, eventID string, p Patch) error {
	if err := n.Store.UpdatePaths(ctx, eventID, p); err != nil {
		return err
	}
	n.publish(ctx, models.Change{EventID: eventID, Slices: p.Slices()})
	return nil
}

func (n *notifying) Transact(ctx context.Context, eventID string, fn TxFunc) (*models.Event, error) {
	ev, err := n.Store.Transact(ctx, eventID, fn)
	if err != nil {
		return nil, err
	}
	n.publish(ctx, models.Change{EventID: eventID, Slices: models.AllSlices})
	return ev, nil
}

func (n *notifying) BulkUpdate(ctx context.Context, patches []EventPatch) error {
	err := n.Store.BulkUpdate(ctx, patches)
	// Some patches may have landed even when err != nil.
	for _, p := range patches {
		if p.Delete {
			n.publish(ctx, models.Change{EventID: p.EventID, Deleted: true})
			continue
		}
		n.publish(ctx, models.Change{EventID: p.EventID, Slices: p.Patch.Slices()})
	}
	return err
}
