// Package events owns the event aggregate: creation, detail edits, deletion
// and joining. Catalog and claim writes live in menu and assignments.
package events

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"potluck/clock"
	"potluck/models"
	"potluck/store"
	"potluck/utils"
)

type Service struct {
	store store.Store
	clock clock.Clock
}

func NewService(st store.Store, clk clock.Clock) *Service {
	return &Service{store: st, clock: clk}
}

// organizerName prefers the stored profile name over the token's.
func (s *Service) organizerName(ctx context.Context, actor utils.Identity) string {
	profile, err := s.store.GetUser(ctx, actor.UserID)
	if err == nil && strings.TrimSpace(profile.DisplayName) != "" {
		return strings.TrimSpace(profile.DisplayName)
	}
	if err != nil && !errors.Is(err, models.ErrUserNotFound) {
		slog.Warn("Profile lookup failed", "user_id", actor.UserID, "error", err)
	}
	if name := strings.TrimSpace(actor.Name); name != "" {
		return name
	}
	return "Organizer"
}

func (s *Service) CreateEvent(ctx context.Context, actor utils.Identity, details models.EventDetails) (string, error) {
	if actor.UserID == "" {
		return "", models.ErrForbidden
	}
	details.Title = strings.TrimSpace(details.Title)
	if details.Title == "" {
		return "", fmt.Errorf("%w: title", models.ErrMissingField)
	}
	if details.UserItemLimit < 0 {
		return "", fmt.Errorf("%w: userItemLimit must be positive", models.ErrInvalidQuantity)
	}

	ev := models.NewEvent(utils.NewID(), actor.UserID, s.organizerName(ctx, actor), details, clock.Millis(s.clock))
	if err := s.store.CreateEvent(ctx, ev); err != nil {
		slog.Error("Create event failed", "user_id", actor.UserID, "error", err)
		return "", err
	}
	slog.Info("Event created", "event_id", ev.ID, "user_id", actor.UserID)
	return ev.ID, nil
}

func (s *Service) GetEvent(ctx context.Context, eventID string) (*models.Event, error) {
	return s.store.GetEvent(ctx, eventID)
}

func (s *Service) GetEventsByOrganizer(ctx context.Context, organizerID string) ([]models.Event, error) {
	evs, err := s.store.EventsByOrganizer(ctx, organizerID)
	if err != nil {
		return nil, err
	}
	if evs == nil {
		evs = []models.Event{}
	}
	return evs, nil
}

// DetailsPatch is a shallow partial of EventDetails; nil fields are left alone.
type DetailsPatch struct {
	Title             *string                  `json:"title,omitempty"`
	Date              *string                  `json:"date,omitempty"`
	Time              *string                  `json:"time,omitempty"`
	Location          *string                  `json:"location,omitempty"`
	Description       *string                  `json:"description,omitempty"`
	EndDate           *string                  `json:"endDate,omitempty"`
	EndTime           *string                  `json:"endTime,omitempty"`
	IsActive          *bool                    `json:"isActive,omitempty"`
	AllowUserItems    *bool                    `json:"allowUserItems,omitempty"`
	AllowRideOffers   *bool                    `json:"allowRideOffers,omitempty"`
	AllowRideRequests *bool                    `json:"allowRideRequests,omitempty"`
	UserItemLimit     *int                     `json:"userItemLimit,omitempty"`
	Categories        *[]models.CategoryConfig `json:"categories,omitempty"`
}

func (p DetailsPatch) patch() (store.Patch, error) {
	out := store.Patch{Set: map[string]any{}}
	str := func(field string, v *string) {
		if v != nil {
			out.Set[store.DetailsPath(field)] = strings.TrimSpace(*v)
		}
	}
	flag := func(field string, v *bool) {
		if v != nil {
			out.Set[store.DetailsPath(field)] = *v
		}
	}

	if p.Title != nil && strings.TrimSpace(*p.Title) == "" {
		return out, fmt.Errorf("%w: title", models.ErrMissingField)
	}
	str("title", p.Title)
	str("date", p.Date)
	str("time", p.Time)
	str("location", p.Location)
	str("description", p.Description)
	str("endDate", p.EndDate)
	str("endTime", p.EndTime)
	flag("isActive", p.IsActive)
	flag("allowUserItems", p.AllowUserItems)
	flag("allowRideOffers", p.AllowRideOffers)
	flag("allowRideRequests", p.AllowRideRequests)
	if p.UserItemLimit != nil {
		if *p.UserItemLimit < 1 {
			return out, fmt.Errorf("%w: userItemLimit must be at least 1", models.ErrInvalidQuantity)
		}
		out.Set[store.DetailsPath("userItemLimit")] = *p.UserItemLimit
	}
	if p.Categories != nil {
		cats := *p.Categories
		if cats == nil {
			cats = []models.CategoryConfig{}
		}
		seen := make(map[string]bool, len(cats))
		for _, c := range cats {
			if c.ID == "" || seen[c.ID] {
				return out, fmt.Errorf("%w: category ids must be unique and non-empty", models.ErrMissingField)
			}
			seen[c.ID] = true
		}
		out.Set[store.DetailsPath("categories")] = cats
	}
	return out, nil
}

// UpdateEventDetails merges the supplied fields into details with one
// multi-path write. Only the organizer may edit.
func (s *Service) UpdateEventDetails(ctx context.Context, actor utils.Identity, eventID string, partial DetailsPatch) error {
	ev, err := s.store.GetEvent(ctx, eventID)
	if err != nil {
		return err
	}
	if !ev.IsOrganizer(actor.UserID) {
		return models.ErrForbidden
	}
	p, err := partial.patch()
	if err != nil {
		return err
	}
	if p.Empty() {
		return nil
	}
	if err := s.store.UpdatePaths(ctx, eventID, p); err != nil {
		slog.Error("Update event details failed", "event_id", eventID, "error", err)
		return err
	}
	slog.Info("Event details updated", "event_id", eventID, "fields", len(p.Set))
	return nil
}

func (s *Service) DeleteEvent(ctx context.Context, actor utils.Identity, eventID string) error {
	ev, err := s.store.GetEvent(ctx, eventID)
	if err != nil {
		return err
	}
	if !ev.IsOrganizer(actor.UserID) {
		return models.ErrForbidden
	}
	if err := s.store.DeleteEvent(ctx, eventID); err != nil {
		return err
	}
	slog.Info("Event deleted", "event_id", eventID, "user_id", actor.UserID)
	return nil
}

// JoinEvent registers the caller as a participant without claiming anything.
// Joining again only refreshes the display name.
func (s *Service) JoinEvent(ctx context.Context, eventID, userID, name string) (*models.Participant, error) {
	name = strings.TrimSpace(name)
	if userID == "" {
		return nil, models.ErrForbidden
	}
	if name == "" {
		return nil, fmt.Errorf("%w: a display name is required to join", models.ErrInvalidName)
	}
	ev, err := s.store.GetEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}

	p, joined := ev.Participants[userID]
	var patch store.Patch
	if joined {
		if p.Name == name {
			return &p, nil
		}
		p.Name = name
		patch = store.Patch{Set: map[string]any{store.ParticipantPath(userID) + ".name": name}}
	} else {
		p = models.Participant{ID: userID, Name: name, JoinedAt: clock.Millis(s.clock)}
		patch = store.Patch{Set: map[string]any{store.ParticipantPath(userID): p}}
	}
	if err := s.store.UpdatePaths(ctx, eventID, patch); err != nil {
		return nil, err
	}
	slog.Info("Participant joined", "event_id", eventID, "user_id", userID, "rejoin", joined)
	return &p, nil
}
