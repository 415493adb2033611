package reconcile

import (
	"errors"
	"testing"

	"potluck/models"
	"potluck/store"
)

func item(id, creator string, qty int) models.MenuItem {
	return models.MenuItem{
		ID:           id,
		EventID:      "e1",
		Name:         "Item " + id,
		Category:     "main",
		Quantity:     qty,
		IsSplittable: models.Splittable(qty),
		CreatorID:    creator,
		CreatorName:  creator,
	}
}

func assignment(id, itemID, user string, qty int, at int64) models.Assignment {
	return models.Assignment{
		ID:         id,
		EventID:    "e1",
		MenuItemID: itemID,
		UserID:     user,
		UserName:   user,
		Quantity:   qty,
		Status:     models.StatusConfirmed,
		AssignedAt: at,
	}
}

func event(items []models.MenuItem, assignments []models.Assignment) *models.Event {
	ev := models.NewEvent("e1", "org", "Org", models.EventDetails{
		Title: "Potluck",
		Categories: []models.CategoryConfig{
			{ID: "drinks", Name: "Drinks", Order: 2},
			{ID: "main", Name: "Main", Order: 1},
		},
	}, 1)
	for _, it := range items {
		ev.MenuItems[it.ID] = it
	}
	for _, a := range assignments {
		ev.Assignments[a.ID] = a
	}
	return ev
}

func TestRemainingFor(t *testing.T) {
	ev := event(
		[]models.MenuItem{item("i1", "org", 10)},
		[]models.Assignment{
			assignment("a1", "i1", "u1", 3, 1),
			assignment("a2", "i1", "u2", 4, 2),
		},
	)
	it := ev.MenuItems["i1"]

	if got := RemainingFor(ev, it, ""); got != 3 {
		t.Fatalf("expected 3 remaining, got %d", got)
	}
	if got := RemainingFor(ev, it, "a1"); got != 6 {
		t.Fatalf("expected own claim excluded (6), got %d", got)
	}
	if got := FilledQuantity(ev, "i1"); got != 7 {
		t.Fatalf("expected 7 filled, got %d", got)
	}
}

func TestValidateClaimQuantity(t *testing.T) {
	ev := event(
		[]models.MenuItem{item("split", "org", 5), item("solo", "org", 1)},
		[]models.Assignment{assignment("a1", "split", "u1", 2, 1)},
	)

	tests := []struct {
		name      string
		itemID    string
		requested int
		exclude   string
		want      int
		wantErr   bool
	}{
		{"within remaining", "split", 3, "", 3, false},
		{"over remaining", "split", 4, "", 0, true},
		{"editing own claim", "split", 5, "a1", 5, false},
		{"zero", "split", 0, "", 0, true},
		{"negative", "split", -1, "", 0, true},
		{"exclusive pinned", "solo", 7, "", 1, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ValidateClaimQuantity(ev, ev.MenuItems[tt.itemID], tt.requested, tt.exclude)
			if tt.wantErr {
				if !errors.Is(err, models.ErrInvalidQuantity) {
					t.Fatalf("expected ErrInvalidQuantity, got %v", err)
				}
				return
			}
			if err != nil || got != tt.want {
				t.Fatalf("expected %d, got %d (%v)", tt.want, got, err)
			}
		})
	}
}

func TestSequentialClaimsNeverExceedQuantity(t *testing.T) {
	ev := event([]models.MenuItem{item("i1", "org", 7)}, nil)
	requests := []int{3, 3, 3, 1, 2, 1}

	for n, q := range requests {
		it := ev.MenuItems["i1"]
		got, err := ValidateClaimQuantity(ev, it, q, "")
		if err != nil {
			continue
		}
		a := assignment(string(rune('a'+n)), "i1", "u", got, int64(n))
		ev.Assignments[a.ID] = a
	}
	if filled := FilledQuantity(ev, "i1"); filled > 7 {
		t.Fatalf("sequential claims overshot: %d > 7", filled)
	}
	if filled := FilledQuantity(ev, "i1"); filled != 7 {
		t.Fatalf("expected item to fill exactly, got %d", filled)
	}
}

func TestCheckExclusive(t *testing.T) {
	solo := item("solo", "org", 1)
	ev := event([]models.MenuItem{solo}, nil)
	if err := CheckExclusive(ev, solo); err != nil {
		t.Fatalf("free item rejected: %v", err)
	}

	cached := solo
	cached.AssignedTo = "u1"
	if err := CheckExclusive(ev, cached); !errors.Is(err, models.ErrAlreadyAssigned) {
		t.Fatalf("expected ErrAlreadyAssigned from cache, got %v", err)
	}

	ev.Assignments["a1"] = assignment("a1", "solo", "u1", 1, 1)
	if err := CheckExclusive(ev, solo); !errors.Is(err, models.ErrAlreadyAssigned) {
		t.Fatalf("expected ErrAlreadyAssigned from ledger, got %v", err)
	}

	if err := CheckExclusive(ev, item("split", "org", 4)); err != nil {
		t.Fatalf("splittable items are never exclusive: %v", err)
	}
}

func TestRenamePatchTouchesOnlyThatUser(t *testing.T) {
	mine := item("i1", "u1", 1)
	mine.AssignedTo = "u2"
	mine.AssignedToName = "Bob"
	held := item("i2", "org", 1)
	held.AssignedTo = "u1"
	held.AssignedToName = "Ann"

	ev := event(
		[]models.MenuItem{mine, held, item("i3", "u2", 4)},
		[]models.Assignment{
			assignment("a1", "i2", "u1", 1, 1),
			assignment("a2", "i1", "u2", 1, 2),
			assignment("a3", "i3", "u1", 2, 3),
		},
	)
	ev.Participants["u1"] = models.Participant{ID: "u1", Name: "Ann"}
	ev.Participants["u2"] = models.Participant{ID: "u2", Name: "Bob"}

	p := RenamePatch(ev, "u1", "Annie")
	want := map[string]any{
		store.AssignmentFieldPath("a1", "userName"): "Annie",
		store.AssignmentFieldPath("a3", "userName"): "Annie",
		store.ItemFieldPath("i2", "assignedToName"): "Annie",
		store.ItemFieldPath("i1", "creatorName"):    "Annie",
		store.ParticipantPath("u1") + ".name":       "Annie",
	}
	if len(p.Set) != len(want) {
		t.Fatalf("expected %d paths, got %d: %v", len(want), len(p.Set), p.Set)
	}
	for k, v := range want {
		if p.Set[k] != v {
			t.Fatalf("path %s: expected %v, got %v", k, v, p.Set[k])
		}
	}
}

func ride(id, creator string, dir models.RideDirection, created int64) models.MenuItem {
	it := item(id, creator, 3)
	it.Category = models.CategoryRides
	it.Direction = dir
	it.CreatedAt = created
	return it
}

func TestTwinRide(t *testing.T) {
	out := ride("out", "driver", models.RideToEvent, 1)
	back := ride("back", "driver", models.RideFromEvent, 2)
	otherDriver := ride("x", "someone", models.RideFromEvent, 0)
	ev := event([]models.MenuItem{out, back, otherDriver}, nil)

	// the return leg may sit in another row
	moved := back
	moved.Category = "rides-home"
	ev.MenuItems[moved.ID] = moved
	if twin, ok := TwinRide(ev, out); !ok || twin.ID != "back" {
		t.Fatalf("twin in another category should match, got %v %v", twin.ID, ok)
	}
	ev.MenuItems[back.ID] = back

	twin, ok := TwinRide(ev, out)
	if !ok || twin.ID != "back" {
		t.Fatalf("expected twin back, got %v %v", twin.ID, ok)
	}
	if _, ok := TwinRide(ev, item("plain", "driver", 1)); ok {
		t.Fatal("non-ride items have no twin")
	}
}

func TestPlanSelfCancel(t *testing.T) {
	out := ride("out", "u1", models.RideToEvent, 1)
	back := ride("back", "u1", models.RideFromEvent, 2)
	shared := item("shared", "u1", 5)

	ev := event(
		[]models.MenuItem{out, back, shared},
		[]models.Assignment{
			assignment("a-out", "out", "u1", 1, 1),
			assignment("a-back", "back", "u1", 1, 2),
			assignment("a-s1", "shared", "u1", 2, 3),
			assignment("a-s2", "shared", "u2", 2, 4),
		},
	)

	plan := PlanSelfCancel(ev, ev.Assignments["a-out"], "u1")
	if !plan.OfferDeleteItem {
		t.Fatal("creator with no other claims should be offered deletion")
	}
	if plan.TwinAssignmentID != "a-back" || plan.TwinItemID != "back" {
		t.Fatalf("expected twin a-back, got %+v", plan)
	}

	plan = PlanSelfCancel(ev, ev.Assignments["a-s1"], "u1")
	if plan.OfferDeleteItem || plan.NeedsDecision() {
		t.Fatalf("others still hold claims, expected no prompt, got %+v", plan)
	}

	plan = PlanSelfCancel(ev, ev.Assignments["a-s2"], "u2")
	if plan.NeedsDecision() {
		t.Fatalf("non-creator should not be prompted, got %+v", plan)
	}
}

func TestItemAvailability(t *testing.T) {
	ev := event(
		[]models.MenuItem{item("split", "org", 4), item("solo", "org", 1)},
		[]models.Assignment{
			assignment("a1", "split", "u1", 3, 1),
			assignment("a2", "split", "u2", 3, 2),
			assignment("a3", "solo", "u3", 1, 3),
		},
	)

	av := ItemAvailability(ev, ev.MenuItems["split"])
	if av.Filled != 6 || av.Remaining != 0 || !av.Overshoot || av.Percent != 150 {
		t.Fatalf("unexpected splittable availability %+v", av)
	}

	av = ItemAvailability(ev, ev.MenuItems["solo"])
	if !av.Full || av.AssignedTo != "u3" {
		t.Fatalf("expected solo item held by u3, got %+v", av)
	}
}

func TestCategoryProgress(t *testing.T) {
	drinks := item("d1", "org", 2)
	drinks.Category = "drinks"
	drinks.IsRequired = true
	stray := item("x1", "org", 1)
	stray.Category = "desserts"

	ev := event(
		[]models.MenuItem{item("m1", "org", 4), drinks, stray},
		[]models.Assignment{
			assignment("a1", "m1", "u1", 2, 1),
			assignment("a2", "d1", "u1", 3, 2),
		},
	)

	stats := CategoryProgress(ev)
	if len(stats) != 3 {
		t.Fatalf("expected 3 buckets, got %d: %+v", len(stats), stats)
	}
	if stats[0].CategoryID != "main" || stats[0].Percent != 50 {
		t.Fatalf("unexpected main bucket %+v", stats[0])
	}
	if stats[1].CategoryID != "drinks" || stats[1].Percent != 150 || stats[1].RequiredItems != 1 {
		t.Fatalf("unexpected drinks bucket %+v", stats[1])
	}
	if stats[2].CategoryID != "" || stats[2].Items != 1 {
		t.Fatalf("unexpected uncategorized bucket %+v", stats[2])
	}
}

func TestSyncAssignee(t *testing.T) {
	ev := event(
		[]models.MenuItem{item("solo", "org", 1)},
		[]models.Assignment{assignment("a1", "solo", "u1", 1, 42)},
	)

	it := ev.MenuItems["solo"]
	SyncAssignee(ev, &it)
	if it.AssignedTo != "u1" || it.AssignedToName != "u1" || it.AssignedAt != 42 {
		t.Fatalf("expected cache set to holder, got %+v", it)
	}

	it.IsSplittable = true
	SyncAssignee(ev, &it)
	if it.AssignedTo != "" || it.AssignedAt != 0 {
		t.Fatalf("splittable items should clear the cache, got %+v", it)
	}
}
