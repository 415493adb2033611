package importer

import (
	"context"
	"fmt"
	"log/slog"

	"potluck/clock"
	"potluck/menu"
	"potluck/metrics"
	"potluck/models"
	"potluck/reconcile"
	"potluck/store"
	"potluck/utils"
)

// Mode is the organizer's answer when duplicates were found.
type Mode string

const (
	ModeNewOnly Mode = "new-only"
	ModeAll     Mode = "all"
	ModeCancel  Mode = "cancel"
)

func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeNewOnly, ModeAll, ModeCancel:
		return Mode(s), nil
	case "":
		return ModeAll, nil
	}
	return "", fmt.Errorf("%w: unknown import mode %q", models.ErrMissingField, s)
}

type Service struct {
	store store.Store
	items *menu.Service
	clock clock.Clock
}

func NewService(st store.Store, items *menu.Service, clk clock.Clock) *Service {
	return &Service{store: st, items: items, clock: clk}
}

// Preview is what the organizer reviews before committing.
type Preview struct {
	Candidates []Candidate `json:"candidates"`
	New        []Candidate `json:"new"`
	Duplicates []Candidate `json:"duplicates"`
}

// Preview normalizes rows against the event's categories and flags names
// already on the menu.
func (s *Service) Preview(ctx context.Context, eventID string, rows []Row, fallback string) (*Preview, error) {
	ev, err := s.store.GetEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	cands := Normalize(rows, ev.Details.Categories, fallback)
	fresh, dups := PartitionDuplicates(cands, menuItems(ev))
	return &Preview{Candidates: cands, New: fresh, Duplicates: dups}, nil
}

type Result struct {
	Succeeded int      `json:"succeeded"`
	Failed    int      `json:"failed"`
	Skipped   int      `json:"skipped"`
	Errors    []string `json:"errors,omitempty"`
}

// Commit adds each committable candidate with its own write. Failures are
// counted and the loop continues; earlier items stay committed.
func (s *Service) Commit(ctx context.Context, eventID string, actor utils.Identity, candidates []Candidate, mode Mode) (Result, error) {
	var res Result
	if mode == ModeCancel {
		slog.Info("Import cancelled", "event_id", eventID, "rows", len(candidates))
		return res, nil
	}

	batch := candidates
	if mode == ModeNewOnly {
		ev, err := s.store.GetEvent(ctx, eventID)
		if err != nil {
			return res, err
		}
		var dups []Candidate
		batch, dups = PartitionDuplicates(candidates, menuItems(ev))
		res.Skipped += len(dups)
		metrics.ImportRows.WithLabelValues(metrics.ResultSkipped).Add(float64(len(dups)))
	}

	for _, c := range batch {
		c = Revalidate(c)
		if !c.Committable() {
			res.Skipped++
			metrics.ImportRows.WithLabelValues(metrics.ResultSkipped).Inc()
			continue
		}
		_, err := s.items.AddMenuItem(ctx, eventID, actor, menu.ItemInput{
			Name:       c.Name,
			Category:   c.Category,
			Quantity:   c.Quantity,
			IsRequired: c.IsRequired,
			Notes:      c.Notes,
		})
		if err != nil {
			res.Failed++
			res.Errors = append(res.Errors, fmt.Sprintf("%s: %v", c.Name, err))
			metrics.ImportRows.WithLabelValues(metrics.ResultFailed).Inc()
			continue
		}
		res.Succeeded++
		metrics.ImportRows.WithLabelValues(metrics.ResultOK).Inc()
	}
	slog.Info("Import committed", "event_id", eventID, "user_id", actor.UserID, "mode", mode,
		"succeeded", res.Succeeded, "failed", res.Failed, "skipped", res.Skipped)
	return res, nil
}

// CandidatesFromEvent seeds a migration with the current catalog, keeping ids
// so existing claims stay attached.
func CandidatesFromEvent(ev *models.Event) []Candidate {
	out := make([]Candidate, 0, len(ev.MenuItems))
	for _, item := range ev.MenuItems {
		out = append(out, Candidate{
			ID:         item.ID,
			Name:       item.Name,
			Quantity:   item.Quantity,
			Category:   item.Category,
			IsRequired: item.IsRequired,
			Notes:      item.Notes,
			Selected:   true,
		})
	}
	return out
}

type MigrateResult struct {
	Created    int `json:"created"`
	Updated    int `json:"updated"`
	Kept       int `json:"kept"`
	Rebucketed int `json:"rebucketed"`
}

// Migrate replaces the menu in one transaction. Candidates with a known id
// update that item in place; the rest are created. Live items missing from
// the candidate set are kept, and moved to the general category when their
// category is no longer configured.
func (s *Service) Migrate(ctx context.Context, eventID string, actor utils.Identity, candidates []Candidate) (MigrateResult, error) {
	var res MigrateResult
	now := clock.Millis(s.clock)

	_, err := s.store.Transact(ctx, eventID, func(ev *models.Event) error {
		res = MigrateResult{}
		if !ev.IsOrganizer(actor.UserID) {
			return models.ErrForbidden
		}

		next := make(map[string]models.MenuItem, len(ev.MenuItems)+len(candidates))
		for _, c := range candidates {
			c = Revalidate(c)
			if !c.Committable() {
				continue
			}
			item, exists := ev.MenuItems[c.ID]
			if exists {
				res.Updated++
			} else {
				item = models.MenuItem{
					ID:          utils.NewID(),
					EventID:     eventID,
					CreatorID:   actor.UserID,
					CreatorName: ev.OrganizerName,
					CreatedAt:   now,
				}
				res.Created++
			}
			item.Name = c.Name
			item.Quantity = c.Quantity
			item.IsSplittable = models.Splittable(c.Quantity)
			item.Category = c.Category
			item.IsRequired = c.IsRequired
			item.Notes = c.Notes
			if held := len(reconcile.AssignmentsFor(ev, item.ID)); !item.IsSplittable && held > 1 {
				return fmt.Errorf("%w: %q is claimed by %d people", models.ErrInvalidQuantity, item.Name, held)
			}
			reconcile.SyncAssignee(ev, &item)
			next[item.ID] = item
		}

		for id, item := range ev.MenuItems {
			if _, ok := next[id]; ok {
				continue
			}
			if len(ev.Details.Categories) > 0 && !ev.HasCategory(item.Category) {
				item.Category = models.CategoryGeneral
				res.Rebucketed++
			}
			next[id] = item
			res.Kept++
		}
		ev.MenuItems = next
		return nil
	})
	if err != nil {
		slog.Warn("Menu migration failed", "event_id", eventID, "user_id", actor.UserID, "error", err)
		return MigrateResult{}, err
	}
	slog.Info("Menu migrated", "event_id", eventID, "created", res.Created, "updated", res.Updated,
		"kept", res.Kept, "rebucketed", res.Rebucketed)
	return res, nil
}
