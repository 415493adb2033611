// Package accounts handles account deletion and the cleanup that follows it.
package accounts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"potluck/callable"
	"potluck/models"
	"potluck/mq"
	"potluck/store"
	"potluck/utils"
)

const (
	CallableName = "deleteAccount"
	workerName   = "account-cleanup"
)

type Service struct {
	store      store.Store
	bus        mq.Bus
	superAdmin string
}

func NewService(st store.Store, bus mq.Bus, superAdminUID string) *Service {
	return &Service{store: st, bus: bus, superAdmin: superAdminUID}
}

func (s *Service) Register(reg *callable.Registry) {
	reg.Register(CallableName, true, s.handleDelete)
}

func (s *Service) handleDelete(ctx context.Context, caller utils.Identity, _ json.RawMessage) (any, error) {
	if err := s.DeleteAccount(ctx, caller.UserID); err != nil {
		return nil, err
	}
	return map[string]bool{"success": true}, nil
}

// DeleteAccount removes the caller's identity record and announces it. The
// data cleanup runs asynchronously in the worker.
func (s *Service) DeleteAccount(ctx context.Context, userID string) error {
	if userID == "" {
		return callable.Errorf(callable.Unauthenticated, "sign in required")
	}
	if s.superAdmin != "" && userID == s.superAdmin {
		return callable.Errorf(callable.PermissionDenied, "this account cannot be deleted")
	}
	if err := s.store.DeleteUser(ctx, userID); err != nil && !errors.Is(err, models.ErrUserNotFound) {
		return fmt.Errorf("delete identity: %w", err)
	}
	if err := mq.Emit(ctx, s.bus, mq.TopicUserDeleted, mq.UserDeleted{UserID: userID}); err != nil {
		return err
	}
	slog.Info("Account deleted", "user_id", userID)
	return nil
}

// StartCleanupWorker runs Cleanup for every user-deleted message until ctx
// ends.
func (s *Service) StartCleanupWorker(ctx context.Context) error {
	return mq.StartWorker(ctx, s.bus, mq.TopicUserDeleted, workerName, func(ctx context.Context, payload []byte) error {
		var msg mq.UserDeleted
		if err := json.Unmarshal(payload, &msg); err != nil {
			return fmt.Errorf("decode message: %w", err)
		}
		if msg.UserID == "" {
			return errors.New("message without userId")
		}
		_, err := s.Cleanup(ctx, msg.UserID)
		return err
	})
}

type CleanupResult struct {
	EventsDeleted      int
	AssignmentsRemoved int
}

// CleanupPatches plans the cleanup for one user: events they organize are
// deleted, and in every other event their assignments are removed and the
// assignee cache of those items cleared.
func CleanupPatches(events []models.Event, userID string) ([]store.EventPatch, CleanupResult) {
	var (
		patches []store.EventPatch
		res     CleanupResult
	)
	for i := range events {
		ev := &events[i]
		if ev.OrganizerID == userID {
			patches = append(patches, store.EventPatch{EventID: ev.ID, Delete: true})
			res.EventsDeleted++
			continue
		}
		var p store.Patch
		cleared := map[string]bool{}
		for id, a := range ev.Assignments {
			if a.UserID != userID {
				continue
			}
			p.Unset = append(p.Unset, store.AssignmentPath(id))
			res.AssignmentsRemoved++
			if _, ok := ev.MenuItems[a.MenuItemID]; ok && !cleared[a.MenuItemID] {
				p.Unset = append(p.Unset, store.ClearAssignee(a.MenuItemID)...)
				cleared[a.MenuItemID] = true
			}
		}
		if !p.Empty() {
			patches = append(patches, store.EventPatch{EventID: ev.ID, Patch: p})
		}
	}
	return patches, res
}

// Cleanup applies the plan in one best-effort batch, then removes the
// profile. Nothing is retried.
func (s *Service) Cleanup(ctx context.Context, userID string) (CleanupResult, error) {
	events, err := s.store.AllEvents(ctx)
	if err != nil {
		return CleanupResult{}, fmt.Errorf("scan events: %w", err)
	}
	patches, res := CleanupPatches(events, userID)
	if err := s.store.BulkUpdate(ctx, patches); err != nil {
		slog.Error("User cleanup batch failed", "user_id", userID, "error", err)
		return res, err
	}
	if err := s.store.DeleteUser(ctx, userID); err != nil && !errors.Is(err, models.ErrUserNotFound) {
		slog.Error("Profile removal failed", "user_id", userID, "error", err)
		return res, err
	}
	slog.Info("User data cleaned up", "user_id", userID,
		"events_deleted", res.EventsDeleted, "assignments_removed", res.AssignmentsRemoved)
	return res, nil
}
