package events

import (
	"context"
	"sort"

	"potluck/models"
	"potluck/reconcile"
)

type ItemSummary struct {
	models.MenuItem
	Availability reconcile.Availability `json:"availability"`
}

// Summary is the organizer dashboard view of one event.
type Summary struct {
	EventID      string                   `json:"eventId"`
	Title        string                   `json:"title"`
	Participants int                      `json:"participants"`
	Categories   []reconcile.CategoryStat `json:"categories"`
	Items        []ItemSummary            `json:"items"`
	OpenRequired int                      `json:"openRequired"`
}

func Summarize(ev *models.Event) Summary {
	s := Summary{
		EventID:      ev.ID,
		Title:        ev.Details.Title,
		Participants: len(ev.Participants),
		Categories:   reconcile.CategoryProgress(ev),
		Items:        make([]ItemSummary, 0, len(ev.MenuItems)),
	}
	for _, item := range ev.MenuItems {
		av := reconcile.ItemAvailability(ev, item)
		if item.IsRequired && !av.Full {
			s.OpenRequired++
		}
		s.Items = append(s.Items, ItemSummary{MenuItem: item, Availability: av})
	}
	sort.Slice(s.Items, func(i, j int) bool {
		a, b := s.Items[i], s.Items[j]
		if a.Category != b.Category {
			return a.Category < b.Category
		}
		if a.CreatedAt != b.CreatedAt {
			return a.CreatedAt < b.CreatedAt
		}
		return a.ID < b.ID
	})
	return s
}

func (s *Service) Summary(ctx context.Context, eventID string) (*Summary, error) {
	ev, err := s.store.GetEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	sum := Summarize(ev)
	return &sum, nil
}
