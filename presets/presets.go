// Package presets manages an organizer's reusable item lists.
package presets

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"potluck/clock"
	"potluck/menu"
	"potluck/models"
	"potluck/store"
	"potluck/utils"
)

const maxItemQuantity = 100

type Service struct {
	store store.Store
	items *menu.Service
	clock clock.Clock
}

func NewService(st store.Store, items *menu.Service, clk clock.Clock) *Service {
	return &Service{store: st, items: items, clock: clk}
}

// defaultID is stable per owner so concurrent first reads upsert the same
// records.
func defaultID(ownerID string, i int) string {
	return fmt.Sprintf("%s-default-%d", ownerID, i)
}

// List returns the owner's lists, creating the default lists the first time.
func (s *Service) List(ctx context.Context, ownerID string) ([]models.PresetList, error) {
	lists, err := s.store.PresetListsByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if len(lists) > 0 {
		return lists, nil
	}

	now := clock.Millis(s.clock)
	lists = make([]models.PresetList, 0, len(defaultLists))
	for i, d := range defaultLists {
		l := models.PresetList{
			ID:        defaultID(ownerID, i),
			Name:      d.name,
			Type:      d.kind,
			CreatedBy: ownerID,
			Items:     append([]models.PresetItem(nil), d.items...),
			IsDefault: true,
			// keep the defaults in a stable order
			CreatedAt: now + int64(i),
			UpdatedAt: now + int64(i),
		}
		if err := s.store.SavePresetList(ctx, &l); err != nil {
			return nil, fmt.Errorf("save default list: %w", err)
		}
		lists = append(lists, l)
	}
	slog.Info("Default preset lists created", "user_id", ownerID, "lists", len(lists))
	return lists, nil
}

type Input struct {
	Name  string              `json:"name"`
	Type  models.PresetType   `json:"type"`
	Items []models.PresetItem `json:"items"`
}

func (in *Input) normalize() error {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return fmt.Errorf("%w: name", models.ErrMissingField)
	}
	switch in.Type {
	case "":
		in.Type = models.PresetParticipants
	case models.PresetParticipants, models.PresetSalon:
	default:
		return fmt.Errorf("%w: unknown list type %q", models.ErrMissingField, in.Type)
	}
	items := make([]models.PresetItem, 0, len(in.Items))
	for _, it := range in.Items {
		it.Name = strings.TrimSpace(it.Name)
		if len([]rune(it.Name)) < 2 {
			return fmt.Errorf("%w: item names need at least 2 characters", models.ErrInvalidName)
		}
		if it.Quantity == 0 {
			it.Quantity = 1
		}
		if it.Quantity < 1 || it.Quantity > maxItemQuantity {
			return fmt.Errorf("%w: %q must be between 1 and %d", models.ErrInvalidQuantity, it.Name, maxItemQuantity)
		}
		if it.Category == "" {
			it.Category = models.CategoryOther
		}
		items = append(items, it)
	}
	in.Items = items
	return nil
}

func (s *Service) Create(ctx context.Context, ownerID string, in Input) (*models.PresetList, error) {
	if err := in.normalize(); err != nil {
		return nil, err
	}
	now := clock.Millis(s.clock)
	l := &models.PresetList{
		ID:        utils.NewID(),
		Name:      in.Name,
		Type:      in.Type,
		CreatedBy: ownerID,
		Items:     in.Items,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.SavePresetList(ctx, l); err != nil {
		return nil, err
	}
	slog.Info("Preset list created", "preset_id", l.ID, "user_id", ownerID)
	return l, nil
}

func (s *Service) owned(ctx context.Context, ownerID, id string) (*models.PresetList, error) {
	l, err := s.store.GetPresetList(ctx, id)
	if err != nil {
		return nil, err
	}
	if l.CreatedBy != ownerID {
		return nil, models.ErrForbidden
	}
	return l, nil
}

func (s *Service) Update(ctx context.Context, ownerID, id string, in Input) (*models.PresetList, error) {
	l, err := s.owned(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	if err := in.normalize(); err != nil {
		return nil, err
	}
	l.Name, l.Type, l.Items = in.Name, in.Type, in.Items
	l.UpdatedAt = clock.Millis(s.clock)
	if err := s.store.SavePresetList(ctx, l); err != nil {
		return nil, err
	}
	slog.Info("Preset list updated", "preset_id", id, "user_id", ownerID)
	return l, nil
}

func (s *Service) Delete(ctx context.Context, ownerID, id string) error {
	if _, err := s.owned(ctx, ownerID, id); err != nil {
		return err
	}
	if err := s.store.DeletePresetList(ctx, id); err != nil {
		return err
	}
	slog.Info("Preset list deleted", "preset_id", id, "user_id", ownerID)
	return nil
}

// Apply adds every item of a list to an event, one write per item.
func (s *Service) Apply(ctx context.Context, eventID string, actor utils.Identity, presetID string) (menu.BulkResult, error) {
	var res menu.BulkResult
	ev, err := s.store.GetEvent(ctx, eventID)
	if err != nil {
		return res, err
	}
	if !ev.IsOrganizer(actor.UserID) {
		return res, models.ErrForbidden
	}
	l, err := s.owned(ctx, actor.UserID, presetID)
	if err != nil {
		return res, err
	}

	for _, it := range l.Items {
		_, err := s.items.AddMenuItem(ctx, eventID, actor, menu.ItemInput{
			Name:       it.Name,
			Category:   it.Category,
			Quantity:   it.Quantity,
			IsRequired: it.IsRequired,
			Notes:      it.Notes,
		})
		if err != nil {
			res.Failed++
			if res.Errors == nil {
				res.Errors = map[string]string{}
			}
			res.Errors[it.Name] = err.Error()
			continue
		}
		res.Succeeded++
	}
	slog.Info("Preset list applied", "event_id", eventID, "preset_id", presetID,
		"succeeded", res.Succeeded, "failed", res.Failed)
	return res, nil
}
