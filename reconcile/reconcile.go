// Package reconcile holds the quantity and assignment rules shared by the
// claim, item and import flows. Nothing here touches storage; functions read
// an event snapshot and return decisions or patches.
package reconcile

import (
	"fmt"
	"sort"

	"potluck/models"
	"potluck/store"
)

// AssignmentsFor returns the ledger entries for one item, oldest first.
func AssignmentsFor(ev *models.Event, itemID string) []models.Assignment {
	var out []models.Assignment
	for _, a := range ev.Assignments {
		if a.MenuItemID == itemID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].AssignedAt != out[j].AssignedAt {
			return out[i].AssignedAt < out[j].AssignedAt
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// FilledQuantity is the claimed total for an item. It can exceed the
// requested quantity after concurrent claims.
func FilledQuantity(ev *models.Event, itemID string) int {
	total := 0
	for _, a := range ev.Assignments {
		if a.MenuItemID == itemID {
			total += a.Quantity
		}
	}
	return total
}

// RemainingFor is the quantity still open on item, ignoring excludeID so an
// editor sees their own claim as available.
func RemainingFor(ev *models.Event, item models.MenuItem, excludeID string) int {
	taken := 0
	for _, a := range ev.Assignments {
		if a.MenuItemID == item.ID && a.ID != excludeID {
			taken += a.Quantity
		}
	}
	return item.Quantity - taken
}

// ValidateClaimQuantity checks a requested claim and returns the quantity to
// store. Exclusive items are always claimed whole.
func ValidateClaimQuantity(ev *models.Event, item models.MenuItem, requested int, excludeID string) (int, error) {
	if !item.IsSplittable {
		return item.Quantity, nil
	}
	if requested <= 0 {
		return 0, fmt.Errorf("%w: must be greater than zero", models.ErrInvalidQuantity)
	}
	remaining := RemainingFor(ev, item, excludeID)
	if requested > remaining {
		if remaining < 0 {
			remaining = 0
		}
		return 0, fmt.Errorf("%w: only %d of %q remaining", models.ErrInvalidQuantity, remaining, item.Name)
	}
	return requested, nil
}

// CheckExclusive fails when an exclusive item is already held. The ledger is
// consulted as well as the cached assignee so a stale cache cannot admit a
// second claim.
func CheckExclusive(ev *models.Event, item models.MenuItem) error {
	if item.IsSplittable {
		return nil
	}
	if item.AssignedTo != "" {
		return fmt.Errorf("%w: %q is taken by %s", models.ErrAlreadyAssigned, item.Name, item.AssignedToName)
	}
	if held := AssignmentsFor(ev, item.ID); len(held) > 0 {
		return fmt.Errorf("%w: %q is taken by %s", models.ErrAlreadyAssigned, item.Name, held[0].UserName)
	}
	return nil
}

// SyncAssignee rebuilds item's assignee cache from the ledger. Exclusive
// items with exactly one holder carry that holder; everything else is cleared.
func SyncAssignee(ev *models.Event, item *models.MenuItem) {
	held := AssignmentsFor(ev, item.ID)
	if item.IsSplittable || len(held) != 1 {
		item.AssignedTo, item.AssignedToName, item.AssignedAt = "", "", 0
		return
	}
	item.AssignedTo = held[0].UserID
	item.AssignedToName = held[0].UserName
	item.AssignedAt = held[0].AssignedAt
}

// RenamePatch fans a display name change out across one event: the user's
// assignments, the assignee cache of items they hold, items they created and
// their participant record.
func RenamePatch(ev *models.Event, userID, newName string) store.Patch {
	p := store.Patch{Set: map[string]any{}}
	for id, a := range ev.Assignments {
		if a.UserID == userID {
			p.Set[store.AssignmentFieldPath(id, "userName")] = newName
		}
	}
	for id, item := range ev.MenuItems {
		if item.AssignedTo == userID {
			p.Set[store.ItemFieldPath(id, "assignedToName")] = newName
		}
		if item.CreatorID == userID {
			p.Set[store.ItemFieldPath(id, "creatorName")] = newName
		}
	}
	if _, ok := ev.Participants[userID]; ok {
		p.Set[store.ParticipantPath(userID)+".name"] = newName
	}
	return p
}

// TwinRide finds the return leg of a ride item: same creator and opposite
// direction. The earliest created match wins.
func TwinRide(ev *models.Event, item models.MenuItem) (models.MenuItem, bool) {
	want := item.Direction.Opposite()
	if want == "" {
		return models.MenuItem{}, false
	}
	var best models.MenuItem
	found := false
	for _, other := range ev.MenuItems {
		if other.ID == item.ID || other.Direction != want {
			continue
		}
		if other.CreatorID != item.CreatorID {
			continue
		}
		if !found || other.CreatedAt < best.CreatedAt || (other.CreatedAt == best.CreatedAt && other.ID < best.ID) {
			best = other
			found = true
		}
	}
	return best, found
}

// SelfCancelPlan is what the caller should be offered before a participant
// cancels their own assignment.
type SelfCancelPlan struct {
	// OfferDeleteItem is set when the user created the item and nobody else
	// holds a claim on it.
	OfferDeleteItem bool `json:"offerDeleteItem"`
	// TwinAssignmentID is the user's claim on the twin ride, if any.
	TwinAssignmentID string `json:"twinAssignmentId,omitempty"`
	TwinItemID       string `json:"twinItemId,omitempty"`
}

func (p SelfCancelPlan) NeedsDecision() bool {
	return p.OfferDeleteItem || p.TwinAssignmentID != ""
}

func PlanSelfCancel(ev *models.Event, a models.Assignment, userID string) SelfCancelPlan {
	var plan SelfCancelPlan
	item, ok := ev.MenuItems[a.MenuItemID]
	if !ok {
		return plan
	}

	if item.CreatorID == userID {
		others := false
		for _, held := range AssignmentsFor(ev, item.ID) {
			if held.ID != a.ID {
				others = true
				break
			}
		}
		plan.OfferDeleteItem = !others
	}

	if twin, ok := TwinRide(ev, item); ok {
		for _, held := range AssignmentsFor(ev, twin.ID) {
			if held.UserID == userID {
				plan.TwinAssignmentID = held.ID
				plan.TwinItemID = twin.ID
				break
			}
		}
	}
	return plan
}

// OthersHoldClaims reports whether anyone but userID holds an assignment on
// the item.
func OthersHoldClaims(ev *models.Event, itemID, userID string) bool {
	for _, a := range AssignmentsFor(ev, itemID) {
		if a.UserID != userID {
			return true
		}
	}
	return false
}

// Availability is the derived view of one item.
type Availability struct {
	Filled     int    `json:"filled"`
	Remaining  int    `json:"remaining"`
	Percent    int    `json:"percent"`
	Full       bool   `json:"full"`
	Overshoot  bool   `json:"overshoot"`
	AssignedTo string `json:"assignedTo,omitempty"`
}

func ItemAvailability(ev *models.Event, item models.MenuItem) Availability {
	filled := FilledQuantity(ev, item.ID)
	av := Availability{
		Filled:    filled,
		Remaining: item.Quantity - filled,
		Percent:   percent(filled, item.Quantity),
	}
	if av.Remaining < 0 {
		av.Remaining = 0
	}
	av.Full = filled >= item.Quantity
	av.Overshoot = filled > item.Quantity
	if !item.IsSplittable {
		av.AssignedTo = item.AssignedTo
		if av.AssignedTo == "" {
			if held := AssignmentsFor(ev, item.ID); len(held) > 0 {
				av.AssignedTo = held[0].UserID
			}
		}
		av.Full = av.Full || av.AssignedTo != ""
	}
	return av
}

// CategoryStat summarizes one category of the catalog.
type CategoryStat struct {
	CategoryID    string `json:"categoryId"`
	Name          string `json:"name"`
	Items         int    `json:"items"`
	RequiredItems int    `json:"requiredItems"`
	Requested     int    `json:"requested"`
	Filled        int    `json:"filled"`
	Percent       int    `json:"percent"`
}

// CategoryProgress returns one entry per configured category in display
// order, followed by an entry with an empty id for items whose category is
// not configured.
// Percent is not capped so an overshoot stays visible.
func CategoryProgress(ev *models.Event) []CategoryStat {
	cats := append([]models.CategoryConfig(nil), ev.Details.Categories...)
	sort.SliceStable(cats, func(i, j int) bool { return cats[i].Order < cats[j].Order })

	index := map[string]int{}
	stats := make([]CategoryStat, 0, len(cats)+1)
	for _, c := range cats {
		index[c.ID] = len(stats)
		stats = append(stats, CategoryStat{CategoryID: c.ID, Name: c.Name})
	}

	other := -1
	for _, item := range ev.MenuItems {
		i, ok := index[item.Category]
		if !ok {
			if other < 0 {
				other = len(stats)
				stats = append(stats, CategoryStat{Name: "Uncategorized"})
			}
			i = other
		}
		stats[i].Items++
		if item.IsRequired {
			stats[i].RequiredItems++
		}
		stats[i].Requested += item.Quantity
		stats[i].Filled += FilledQuantity(ev, item.ID)
	}
	for i := range stats {
		stats[i].Percent = percent(stats[i].Filled, stats[i].Requested)
	}
	return stats
}

func percent(part, whole int) int {
	if whole <= 0 {
		return 0
	}
	return part * 100 / whole
}

// CreatedBy counts items created by userID. It is the quantity the
// userItemCounts entry mirrors for non-organizers.
func CreatedBy(ev *models.Event, userID string) int {
	n := 0
	for _, item := range ev.MenuItems {
		if item.CreatorID == userID {
			n++
		}
	}
	return n
}
