// Package menu manages an event's item catalog: adding items (optionally with
// an immediate self-claim), editing, deleting with cascade and bulk actions.
package menu

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"potluck/clock"
	"potluck/models"
	"potluck/reconcile"
	"potluck/store"
	"potluck/utils"
)

const minNameLength = 2

type Service struct {
	store store.Store
	clock clock.Clock
}

func NewService(st store.Store, clk clock.Clock) *Service {
	return &Service{store: st, clock: clk}
}

// ItemInput describes a new item. Ride fields are only meaningful for ride
// categories.
type ItemInput struct {
	Name           string               `json:"name"`
	Category       string               `json:"category"`
	Quantity       int                  `json:"quantity"`
	IsRequired     bool                 `json:"isRequired"`
	Notes          string               `json:"notes,omitempty"`
	Direction      models.RideDirection `json:"direction,omitempty"`
	DepartureTime  string               `json:"departureTime,omitempty"`
	IsFlexibleTime bool                 `json:"isFlexibleTime,omitempty"`
	PickupLocation string               `json:"pickupLocation,omitempty"`
	PhoneNumber    string               `json:"phoneNumber,omitempty"`
}

func validateName(name string) error {
	if len([]rune(strings.TrimSpace(name))) < minNameLength {
		return fmt.Errorf("%w: name must be at least %d characters", models.ErrInvalidName, minNameLength)
	}
	return nil
}

func validateDirection(d models.RideDirection) error {
	switch d {
	case "", models.RideToEvent, models.RideFromEvent:
		return nil
	}
	return fmt.Errorf("%w: unknown ride direction %q", models.ErrMissingField, d)
}

func (in *ItemInput) normalize() error {
	in.Name = strings.TrimSpace(in.Name)
	in.Category = strings.TrimSpace(in.Category)
	if err := validateName(in.Name); err != nil {
		return err
	}
	if in.Quantity == 0 {
		in.Quantity = 1
	}
	if in.Quantity < 1 {
		return fmt.Errorf("%w: quantity must be at least 1", models.ErrInvalidQuantity)
	}
	if in.Category == "" {
		in.Category = models.CategoryOther
	}
	return validateDirection(in.Direction)
}

// displayName prefers the name the caller supplied, then the roster.
func displayName(ev *models.Event, actor utils.Identity) string {
	if name := strings.TrimSpace(actor.Name); name != "" {
		return name
	}
	if p, ok := ev.Participants[actor.UserID]; ok && p.Name != "" {
		return p.Name
	}
	return "Guest"
}

func (s *Service) newItem(ev *models.Event, actor utils.Identity, in ItemInput) models.MenuItem {
	return models.MenuItem{
		ID:             utils.NewID(),
		EventID:        ev.ID,
		Name:           in.Name,
		Category:       in.Category,
		Quantity:       in.Quantity,
		IsRequired:     in.IsRequired,
		IsSplittable:   models.Splittable(in.Quantity),
		CreatorID:      actor.UserID,
		CreatorName:    displayName(ev, actor),
		CreatedAt:      clock.Millis(s.clock),
		Notes:          strings.TrimSpace(in.Notes),
		Direction:      in.Direction,
		DepartureTime:  in.DepartureTime,
		IsFlexibleTime: in.IsFlexibleTime,
		PickupLocation: in.PickupLocation,
		PhoneNumber:    in.PhoneNumber,
	}
}

// checkParticipantAdd enforces the per-event switches and the per-user limit
// against the snapshot the transaction is running on.
func checkParticipantAdd(ev *models.Event, userID, category string) error {
	allowed := ev.Details.AllowUserItems
	for _, c := range ev.Details.Categories {
		if c.ID != category {
			continue
		}
		switch c.RowType {
		case models.RowTypeOffers:
			allowed = ev.Details.AllowRideOffers
		case models.RowTypeNeeds:
			allowed = ev.Details.AllowRideRequests
		}
	}
	if !allowed {
		return models.ErrUserItemsDisabled
	}
	limit := ev.Details.UserItemLimit
	if limit <= 0 {
		limit = models.DefaultUserItemLimit
	}
	if ev.UserItemCounts[userID] >= limit {
		return fmt.Errorf("%w: you can add up to %d items", models.ErrUserItemLimit, limit)
	}
	return nil
}

func joinIfMissing(ev *models.Event, userID, name string, at int64) {
	if _, ok := ev.Participants[userID]; ok {
		return
	}
	ev.Participants[userID] = models.Participant{ID: userID, Name: name, JoinedAt: at}
}

// AddMenuItem adds one item. Organizers write directly; participants go
// through a transaction that re-checks the switches and their item count.
func (s *Service) AddMenuItem(ctx context.Context, eventID string, actor utils.Identity, in ItemInput) (*models.MenuItem, error) {
	if err := in.normalize(); err != nil {
		return nil, err
	}
	ev, err := s.store.GetEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}

	if ev.IsOrganizer(actor.UserID) {
		item := s.newItem(ev, actor, in)
		err := s.store.UpdatePaths(ctx, eventID, store.Patch{Set: map[string]any{
			store.ItemPath(item.ID): item,
		}})
		if err != nil {
			return nil, err
		}
		slog.Info("Menu item added", "event_id", eventID, "item_id", item.ID, "user_id", actor.UserID)
		return &item, nil
	}

	var item models.MenuItem
	_, err = s.store.Transact(ctx, eventID, func(ev *models.Event) error {
		if err := checkParticipantAdd(ev, actor.UserID, in.Category); err != nil {
			return err
		}
		item = s.newItem(ev, actor, in)
		ev.MenuItems[item.ID] = item
		ev.UserItemCounts[actor.UserID]++
		joinIfMissing(ev, actor.UserID, item.CreatorName, item.CreatedAt)
		return nil
	})
	if err != nil {
		slog.Warn("Menu item rejected", "event_id", eventID, "user_id", actor.UserID, "error", err)
		return nil, err
	}
	slog.Info("Menu item added", "event_id", eventID, "item_id", item.ID, "user_id", actor.UserID)
	return &item, nil
}

// AddMenuItemAndAssign creates an item and claims all of it for the caller in
// one transaction. Nothing is written when a check fails.
func (s *Service) AddMenuItemAndAssign(ctx context.Context, eventID string, actor utils.Identity, in ItemInput) (*models.MenuItem, *models.Assignment, error) {
	if err := in.normalize(); err != nil {
		return nil, nil, err
	}

	var (
		item       models.MenuItem
		assignment models.Assignment
	)
	_, err := s.store.Transact(ctx, eventID, func(ev *models.Event) error {
		organizer := ev.IsOrganizer(actor.UserID)
		if !organizer {
			if err := checkParticipantAdd(ev, actor.UserID, in.Category); err != nil {
				return err
			}
		}

		item = s.newItem(ev, actor, in)
		assignment = models.Assignment{
			ID:         utils.NewID(),
			EventID:    eventID,
			MenuItemID: item.ID,
			UserID:     actor.UserID,
			UserName:   item.CreatorName,
			Quantity:   item.Quantity,
			Status:     models.StatusConfirmed,
			AssignedAt: item.CreatedAt,
		}
		ev.Assignments[assignment.ID] = assignment
		reconcile.SyncAssignee(ev, &item)
		ev.MenuItems[item.ID] = item
		if !organizer {
			ev.UserItemCounts[actor.UserID]++
		}
		joinIfMissing(ev, actor.UserID, item.CreatorName, item.CreatedAt)
		return nil
	})
	if err != nil {
		slog.Warn("Add and assign rejected", "event_id", eventID, "user_id", actor.UserID, "error", err)
		return nil, nil, err
	}
	slog.Info("Menu item added and assigned", "event_id", eventID, "item_id", item.ID, "assignment_id", assignment.ID)
	return &item, &assignment, nil
}

// ItemPatch carries the fields to change; nil means unchanged.
type ItemPatch struct {
	Name           *string               `json:"name,omitempty"`
	Category       *string               `json:"category,omitempty"`
	Quantity       *int                  `json:"quantity,omitempty"`
	IsRequired     *bool                 `json:"isRequired,omitempty"`
	Notes          *string               `json:"notes,omitempty"`
	Direction      *models.RideDirection `json:"direction,omitempty"`
	DepartureTime  *string               `json:"departureTime,omitempty"`
	IsFlexibleTime *bool                 `json:"isFlexibleTime,omitempty"`
	PickupLocation *string               `json:"pickupLocation,omitempty"`
	PhoneNumber    *string               `json:"phoneNumber,omitempty"`
}

func (p ItemPatch) apply(item *models.MenuItem) error {
	if p.Name != nil {
		name := strings.TrimSpace(*p.Name)
		if err := validateName(name); err != nil {
			return err
		}
		item.Name = name
	}
	if p.Category != nil && strings.TrimSpace(*p.Category) != "" {
		item.Category = strings.TrimSpace(*p.Category)
	}
	if p.Quantity != nil {
		if *p.Quantity < 1 {
			return fmt.Errorf("%w: quantity must be at least 1", models.ErrInvalidQuantity)
		}
		item.Quantity = *p.Quantity
	}
	if p.IsRequired != nil {
		item.IsRequired = *p.IsRequired
	}
	if p.Notes != nil {
		item.Notes = strings.TrimSpace(*p.Notes)
	}
	if p.Direction != nil {
		if err := validateDirection(*p.Direction); err != nil {
			return err
		}
		item.Direction = *p.Direction
	}
	if p.DepartureTime != nil {
		item.DepartureTime = *p.DepartureTime
	}
	if p.IsFlexibleTime != nil {
		item.IsFlexibleTime = *p.IsFlexibleTime
	}
	if p.PickupLocation != nil {
		item.PickupLocation = *p.PickupLocation
	}
	if p.PhoneNumber != nil {
		item.PhoneNumber = *p.PhoneNumber
	}
	item.IsSplittable = models.Splittable(item.Quantity)
	return nil
}

// UpdateMenuItem edits an item on an active event. Only the creator or the
// organizer may edit. The assignee cache is rebuilt from the ledger because a
// quantity change can flip the item between splittable and exclusive.
func (s *Service) UpdateMenuItem(ctx context.Context, eventID string, actor utils.Identity, itemID string, patch ItemPatch) (*models.MenuItem, error) {
	var updated models.MenuItem
	_, err := s.store.Transact(ctx, eventID, func(ev *models.Event) error {
		item, ok := ev.MenuItems[itemID]
		if !ok {
			return models.ErrItemNotFound
		}
		if !ev.IsOrganizer(actor.UserID) && item.CreatorID != actor.UserID {
			return models.ErrForbidden
		}
		if !ev.Details.IsActive {
			return models.ErrEventInactive
		}
		if err := patch.apply(&item); err != nil {
			return err
		}
		if held := len(reconcile.AssignmentsFor(ev, itemID)); !item.IsSplittable && held > 1 {
			return fmt.Errorf("%w: %d people already claimed part of this item", models.ErrInvalidQuantity, held)
		}
		reconcile.SyncAssignee(ev, &item)
		ev.MenuItems[itemID] = item
		updated = item
		return nil
	})
	if err != nil {
		return nil, err
	}
	slog.Info("Menu item updated", "event_id", eventID, "item_id", itemID, "user_id", actor.UserID)
	return &updated, nil
}

// DeleteMenuItem removes an item, every assignment on it and one unit of the
// creator's item count, all in one transaction. A creator who is not the
// organizer may only delete while nobody else holds a claim.
func (s *Service) DeleteMenuItem(ctx context.Context, eventID string, actor utils.Identity, itemID string) error {
	removed := 0
	_, err := s.store.Transact(ctx, eventID, func(ev *models.Event) error {
		removed = 0
		item, ok := ev.MenuItems[itemID]
		if !ok {
			return models.ErrItemNotFound
		}
		if !ev.IsOrganizer(actor.UserID) {
			if item.CreatorID != actor.UserID {
				return models.ErrForbidden
			}
			if reconcile.OthersHoldClaims(ev, itemID, actor.UserID) {
				return models.ErrItemHasClaims
			}
		}

		if n, ok := ev.UserItemCounts[item.CreatorID]; ok {
			if n <= 1 {
				delete(ev.UserItemCounts, item.CreatorID)
			} else {
				ev.UserItemCounts[item.CreatorID] = n - 1
			}
		}
		delete(ev.MenuItems, itemID)
		for id, a := range ev.Assignments {
			if a.MenuItemID == itemID {
				delete(ev.Assignments, id)
				removed++
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	slog.Info("Menu item deleted", "event_id", eventID, "item_id", itemID, "assignments_removed", removed)
	return nil
}
