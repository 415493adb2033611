package menu

import (
	"context"
	"fmt"
	"log/slog"

	"potluck/models"
	"potluck/utils"
)

type BulkKind string

const (
	BulkDelete      BulkKind = "delete"
	BulkSetRequired BulkKind = "setRequired"
	BulkSetCategory BulkKind = "setCategory"
)

type BulkRequest struct {
	ItemIDs  []string `json:"itemIds"`
	Action   BulkKind `json:"action"`
	Required bool     `json:"required,omitempty"`
	Category string   `json:"category,omitempty"`
}

// BulkResult counts per-item outcomes. Errors is keyed by item id.
type BulkResult struct {
	Succeeded int               `json:"succeeded"`
	Failed    int               `json:"failed"`
	Errors    map[string]string `json:"errors,omitempty"`
}

func (r *BulkResult) record(id string, err error) {
	if err == nil {
		r.Succeeded++
		return
	}
	r.Failed++
	if r.Errors == nil {
		r.Errors = map[string]string{}
	}
	r.Errors[id] = err.Error()
}

// BulkAction applies one action to each selected item in turn. A failing item
// is counted and the loop moves on; earlier writes stay committed.
func (s *Service) BulkAction(ctx context.Context, eventID string, actor utils.Identity, req BulkRequest) (BulkResult, error) {
	var result BulkResult
	switch req.Action {
	case BulkDelete, BulkSetRequired:
	case BulkSetCategory:
		if req.Category == "" {
			return result, fmt.Errorf("%w: category", models.ErrMissingField)
		}
	default:
		return result, fmt.Errorf("%w: unknown bulk action %q", models.ErrMissingField, req.Action)
	}

	for _, id := range req.ItemIDs {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		var err error
		switch req.Action {
		case BulkDelete:
			err = s.DeleteMenuItem(ctx, eventID, actor, id)
		case BulkSetRequired:
			required := req.Required
			_, err = s.UpdateMenuItem(ctx, eventID, actor, id, ItemPatch{IsRequired: &required})
		case BulkSetCategory:
			category := req.Category
			_, err = s.UpdateMenuItem(ctx, eventID, actor, id, ItemPatch{Category: &category})
		}
		result.record(id, err)
	}
	slog.Info("Bulk action finished", "event_id", eventID, "action", req.Action,
		"succeeded", result.Succeeded, "failed", result.Failed)
	return result, nil
}
