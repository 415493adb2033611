// Package assignments implements the claim lifecycle: claiming an item,
// editing a claim (with name propagation), cancelling and self-cancelling.
package assignments

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"potluck/clock"
	"potluck/menu"
	"potluck/metrics"
	"potluck/models"
	"potluck/reconcile"
	"potluck/store"
	"potluck/utils"
)

type Service struct {
	store store.Store
	items *menu.Service
	clock clock.Clock
}

func NewService(st store.Store, items *menu.Service, clk clock.Clock) *Service {
	return &Service{store: st, items: items, clock: clk}
}

type CreateInput struct {
	MenuItemID string `json:"menuItemId"`
	UserID     string `json:"userId"`
	UserName   string `json:"userName"`
	Quantity   int    `json:"quantity"`
	Notes      string `json:"notes,omitempty"`
}

func countClaim(err error) {
	switch {
	case err == nil:
		metrics.Claims.WithLabelValues(metrics.ResultOK).Inc()
	case errors.Is(err, models.ErrAlreadyAssigned), errors.Is(err, models.ErrInvalidQuantity),
		errors.Is(err, models.ErrEventInactive):
		metrics.Claims.WithLabelValues(metrics.ResultRejected).Inc()
	default:
		metrics.Claims.WithLabelValues(metrics.ResultFailed).Inc()
	}
}

// CreateAssignment records a claim. Exclusive items are claimed inside a
// transaction so two claimants cannot both pass the availability check.
// Splittable items are validated against the current snapshot and written
// unconditionally; concurrent claims can therefore overshoot the requested
// quantity.
func (s *Service) CreateAssignment(ctx context.Context, eventID string, in CreateInput) (a *models.Assignment, err error) {
	defer func() { countClaim(err) }()

	in.UserName = strings.TrimSpace(in.UserName)
	if in.UserID == "" || in.MenuItemID == "" {
		return nil, fmt.Errorf("%w: userId and menuItemId", models.ErrMissingField)
	}
	if in.UserName == "" {
		return nil, fmt.Errorf("%w: a display name is required to claim", models.ErrInvalidName)
	}

	ev, err := s.store.GetEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	item, ok := ev.MenuItems[in.MenuItemID]
	if !ok {
		return nil, models.ErrItemNotFound
	}
	if !item.IsSplittable {
		return s.claimExclusive(ctx, eventID, in)
	}

	if !ev.Details.IsActive {
		return nil, models.ErrEventInactive
	}
	qty, err := reconcile.ValidateClaimQuantity(ev, item, in.Quantity, "")
	if err != nil {
		return nil, err
	}
	assignment := s.newAssignment(eventID, in, qty)
	patch := store.Patch{Set: map[string]any{
		store.AssignmentPath(assignment.ID): assignment,
	}}
	if _, joined := ev.Participants[in.UserID]; !joined {
		patch.Set[store.ParticipantPath(in.UserID)] = models.Participant{
			ID: in.UserID, Name: in.UserName, JoinedAt: assignment.AssignedAt,
		}
	}
	if err := s.store.UpdatePaths(ctx, eventID, patch); err != nil {
		return nil, err
	}
	slog.Info("Assignment created", "event_id", eventID, "item_id", item.ID, "assignment_id", assignment.ID, "quantity", qty)
	return &assignment, nil
}

func (s *Service) claimExclusive(ctx context.Context, eventID string, in CreateInput) (*models.Assignment, error) {
	var assignment models.Assignment
	_, err := s.store.Transact(ctx, eventID, func(ev *models.Event) error {
		item, ok := ev.MenuItems[in.MenuItemID]
		if !ok {
			return models.ErrItemNotFound
		}
		if !ev.Details.IsActive {
			return models.ErrEventInactive
		}
		if err := reconcile.CheckExclusive(ev, item); err != nil {
			return err
		}
		qty, err := reconcile.ValidateClaimQuantity(ev, item, in.Quantity, "")
		if err != nil {
			return err
		}

		assignment = s.newAssignment(eventID, in, qty)
		ev.Assignments[assignment.ID] = assignment
		item.AssignedTo = in.UserID
		item.AssignedToName = in.UserName
		item.AssignedAt = assignment.AssignedAt
		ev.MenuItems[item.ID] = item
		if _, joined := ev.Participants[in.UserID]; !joined {
			ev.Participants[in.UserID] = models.Participant{ID: in.UserID, Name: in.UserName, JoinedAt: assignment.AssignedAt}
		}
		return nil
	})
	if err != nil {
		slog.Warn("Exclusive claim rejected", "event_id", eventID, "item_id", in.MenuItemID, "user_id", in.UserID, "error", err)
		return nil, err
	}
	slog.Info("Assignment created", "event_id", eventID, "item_id", in.MenuItemID, "assignment_id", assignment.ID, "exclusive", true)
	return &assignment, nil
}

func (s *Service) newAssignment(eventID string, in CreateInput, qty int) models.Assignment {
	return models.Assignment{
		ID:         utils.NewID(),
		EventID:    eventID,
		MenuItemID: in.MenuItemID,
		UserID:     in.UserID,
		UserName:   in.UserName,
		Quantity:   qty,
		Status:     models.StatusConfirmed,
		Notes:      strings.TrimSpace(in.Notes),
		AssignedAt: clock.Millis(s.clock),
	}
}

type UpdateInput struct {
	Quantity int     `json:"quantity"`
	Notes    string  `json:"notes"`
	UserName *string `json:"userName,omitempty"`
}

// UpdateAssignment changes a claim's quantity and notes. A new display name
// is written to every record of that user in the event in the same write.
func (s *Service) UpdateAssignment(ctx context.Context, eventID string, actor utils.Identity, assignmentID string, in UpdateInput) (*models.Assignment, error) {
	ev, err := s.store.GetEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	a, ok := ev.Assignments[assignmentID]
	if !ok {
		return nil, models.ErrAssignmentNotFound
	}
	if a.UserID != actor.UserID && !ev.IsOrganizer(actor.UserID) {
		return nil, models.ErrForbidden
	}
	item, ok := ev.MenuItems[a.MenuItemID]
	if !ok {
		return nil, models.ErrItemNotFound
	}

	qty, err := reconcile.ValidateClaimQuantity(ev, item, in.Quantity, a.ID)
	if err != nil {
		return nil, err
	}

	now := clock.Millis(s.clock)
	a.Quantity = qty
	a.Notes = strings.TrimSpace(in.Notes)
	a.UpdatedAt = now

	patch := store.Patch{Set: map[string]any{
		store.AssignmentFieldPath(a.ID, "quantity"):  a.Quantity,
		store.AssignmentFieldPath(a.ID, "notes"):     a.Notes,
		store.AssignmentFieldPath(a.ID, "updatedAt"): a.UpdatedAt,
	}}
	if in.UserName != nil {
		name := strings.TrimSpace(*in.UserName)
		if name != "" && name != a.UserName {
			patch.Merge(reconcile.RenamePatch(ev, a.UserID, name))
			a.UserName = name
			slog.Info("Propagating display name", "event_id", eventID, "user_id", a.UserID)
		}
	}

	if err := s.store.UpdatePaths(ctx, eventID, patch); err != nil {
		return nil, err
	}
	slog.Info("Assignment updated", "event_id", eventID, "assignment_id", a.ID, "quantity", qty)
	return &a, nil
}

// CancelAssignment deletes a claim and clears the item's assignee cache. The
// clear is unconditional; splittable items never carry the cache.
func (s *Service) CancelAssignment(ctx context.Context, eventID string, actor utils.Identity, assignmentID, menuItemID string) error {
	ev, err := s.store.GetEvent(ctx, eventID)
	if err != nil {
		return err
	}
	a, ok := ev.Assignments[assignmentID]
	if !ok {
		return models.ErrAssignmentNotFound
	}
	if a.UserID != actor.UserID && !ev.IsOrganizer(actor.UserID) {
		return models.ErrForbidden
	}
	if menuItemID != "" && menuItemID != a.MenuItemID {
		return fmt.Errorf("%w: assignment %s is not for item %s", models.ErrMissingField, assignmentID, menuItemID)
	}
	return s.cancel(ctx, eventID, assignmentID, a.MenuItemID)
}

func (s *Service) cancel(ctx context.Context, eventID, assignmentID, menuItemID string) error {
	patch := store.Patch{Unset: append([]string{store.AssignmentPath(assignmentID)}, store.ClearAssignee(menuItemID)...)}
	if err := s.store.UpdatePaths(ctx, eventID, patch); err != nil {
		return err
	}
	slog.Info("Assignment cancelled", "event_id", eventID, "assignment_id", assignmentID, "item_id", menuItemID)
	return nil
}

// CancelOptions are the caller's answers to the self-cancel prompts.
type CancelOptions struct {
	Decided    bool `json:"decided"`
	DeleteItem bool `json:"deleteItem"`
	CancelTwin bool `json:"cancelTwin"`
}

type CancelResult struct {
	Plan          reconcile.SelfCancelPlan `json:"plan"`
	Cancelled     bool                     `json:"cancelled"`
	ItemDeleted   bool                     `json:"itemDeleted"`
	TwinCancelled bool                     `json:"twinCancelled"`
}

// CancelOwn cancels the caller's own claim. When the plan has choices to make
// and the caller has not decided, nothing is written and the plan is returned.
// The twin ride is cancelled by a second, separate write.
func (s *Service) CancelOwn(ctx context.Context, eventID string, actor utils.Identity, assignmentID string, opts CancelOptions) (*CancelResult, error) {
	ev, err := s.store.GetEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	a, ok := ev.Assignments[assignmentID]
	if !ok {
		return nil, models.ErrAssignmentNotFound
	}
	if a.UserID != actor.UserID {
		return nil, models.ErrForbidden
	}

	res := &CancelResult{Plan: reconcile.PlanSelfCancel(ev, a, actor.UserID)}
	if res.Plan.NeedsDecision() && !opts.Decided {
		return res, nil
	}

	if err := s.cancel(ctx, eventID, a.ID, a.MenuItemID); err != nil {
		return nil, err
	}
	res.Cancelled = true

	if opts.CancelTwin && res.Plan.TwinAssignmentID != "" {
		if err := s.cancel(ctx, eventID, res.Plan.TwinAssignmentID, res.Plan.TwinItemID); err != nil {
			return res, fmt.Errorf("cancel twin ride: %w", err)
		}
		res.TwinCancelled = true
	}

	if opts.DeleteItem && res.Plan.OfferDeleteItem {
		if err := s.items.DeleteMenuItem(ctx, eventID, actor, a.MenuItemID); err != nil {
			return res, fmt.Errorf("delete item: %w", err)
		}
		res.ItemDeleted = true
	}
	return res, nil
}
