package menu

import (
	"context"
	"errors"
	"testing"
	"time"

	"potluck/clock"
	"potluck/models"
	"potluck/store/memstore"
	"potluck/utils"
)

var (
	organizer = utils.Identity{UserID: "org", Name: "Olga"}
	ann       = utils.Identity{UserID: "ann", Name: "Ann"}
	bob       = utils.Identity{UserID: "bob", Name: "Bob"}
)

func newService(t *testing.T, details models.EventDetails) (*Service, *memstore.Store) {
	t.Helper()
	st := memstore.New()
	ev := models.NewEvent("e1", organizer.UserID, organizer.Name, details, 1)
	if err := st.CreateEvent(context.Background(), ev); err != nil {
		t.Fatalf("create event: %v", err)
	}
	return NewService(st, clock.NewFixed(time.Unix(1700000000, 0))), st
}

func openDetails() models.EventDetails {
	return models.EventDetails{Title: "Potluck", IsActive: true, AllowUserItems: true, UserItemLimit: 3}
}

func load(t *testing.T, st *memstore.Store) *models.Event {
	t.Helper()
	ev, err := st.GetEvent(context.Background(), "e1")
	if err != nil {
		t.Fatalf("get event: %v", err)
	}
	return ev
}

func TestAddMenuItemOrganizerSkipsCounter(t *testing.T) {
	svc, st := newService(t, models.EventDetails{Title: "Potluck", IsActive: true})
	item, err := svc.AddMenuItem(context.Background(), "e1", organizer, ItemInput{Name: "Lasagna", Quantity: 2})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if !item.IsSplittable || item.Category != models.CategoryOther {
		t.Fatalf("unexpected item %+v", item)
	}
	ev := load(t, st)
	if _, ok := ev.MenuItems[item.ID]; !ok {
		t.Fatal("item not stored")
	}
	if len(ev.UserItemCounts) != 0 {
		t.Fatalf("organizer items are not counted, got %v", ev.UserItemCounts)
	}
}

func TestAddMenuItemParticipantRules(t *testing.T) {
	ctx := context.Background()

	t.Run("disabled", func(t *testing.T) {
		svc, _ := newService(t, models.EventDetails{Title: "Closed", IsActive: true})
		_, err := svc.AddMenuItem(ctx, "e1", ann, ItemInput{Name: "Chips"})
		if !errors.Is(err, models.ErrUserItemsDisabled) {
			t.Fatalf("expected ErrUserItemsDisabled, got %v", err)
		}
	})

	t.Run("counts and joins", func(t *testing.T) {
		svc, st := newService(t, openDetails())
		if _, err := svc.AddMenuItem(ctx, "e1", ann, ItemInput{Name: "Chips"}); err != nil {
			t.Fatalf("add: %v", err)
		}
		ev := load(t, st)
		if ev.UserItemCounts["ann"] != 1 {
			t.Fatalf("expected count 1, got %d", ev.UserItemCounts["ann"])
		}
		if ev.Participants["ann"].Name != "Ann" {
			t.Fatalf("expected ann on the roster, got %+v", ev.Participants)
		}
	})

	t.Run("validation", func(t *testing.T) {
		svc, _ := newService(t, openDetails())
		if _, err := svc.AddMenuItem(ctx, "e1", ann, ItemInput{Name: " x "}); !errors.Is(err, models.ErrInvalidName) {
			t.Fatalf("expected ErrInvalidName, got %v", err)
		}
		if _, err := svc.AddMenuItem(ctx, "e1", ann, ItemInput{Name: "Soda", Quantity: -2}); !errors.Is(err, models.ErrInvalidQuantity) {
			t.Fatalf("expected ErrInvalidQuantity, got %v", err)
		}
	})

	t.Run("ride offers use their own switch", func(t *testing.T) {
		d := openDetails()
		d.AllowUserItems = false
		d.AllowRideOffers = true
		d.Categories = []models.CategoryConfig{{ID: models.CategoryRides, Name: "Rides", RowType: models.RowTypeOffers}}
		svc, _ := newService(t, d)
		_, err := svc.AddMenuItem(ctx, "e1", ann, ItemInput{
			Name: "Seats from downtown", Category: models.CategoryRides, Quantity: 3, Direction: models.RideToEvent,
		})
		if err != nil {
			t.Fatalf("ride offer should be allowed: %v", err)
		}
	})
}

func TestAddMenuItemAndAssignLimit(t *testing.T) {
	svc, st := newService(t, openDetails())
	ctx := context.Background()

	for _, name := range []string{"Bread", "Cheese", "Olives"} {
		if _, _, err := svc.AddMenuItemAndAssign(ctx, "e1", ann, ItemInput{Name: name}); err != nil {
			t.Fatalf("add %s: %v", name, err)
		}
	}

	before := load(t, st)
	_, _, err := svc.AddMenuItemAndAssign(ctx, "e1", ann, ItemInput{Name: "Grapes"})
	if !errors.Is(err, models.ErrUserItemLimit) {
		t.Fatalf("expected ErrUserItemLimit, got %v", err)
	}

	after := load(t, st)
	if after.UserItemCounts["ann"] != 3 {
		t.Fatalf("expected count to stay at 3, got %d", after.UserItemCounts["ann"])
	}
	if len(after.MenuItems) != len(before.MenuItems) || len(after.Assignments) != len(before.Assignments) {
		t.Fatalf("rejected add left a partial write: items %d->%d, assignments %d->%d",
			len(before.MenuItems), len(after.MenuItems), len(before.Assignments), len(after.Assignments))
	}
}

func TestAddMenuItemAndAssignExclusiveCache(t *testing.T) {
	svc, st := newService(t, openDetails())
	item, a, err := svc.AddMenuItemAndAssign(context.Background(), "e1", ann, ItemInput{Name: "Cake"})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	stored := load(t, st).MenuItems[item.ID]
	if stored.AssignedTo != "ann" || stored.AssignedToName != "Ann" || a.Quantity != 1 {
		t.Fatalf("expected cached assignee, got %+v / %+v", stored, a)
	}
}

func TestDeleteMenuItemCascade(t *testing.T) {
	svc, st := newService(t, openDetails())
	ctx := context.Background()

	item, err := svc.AddMenuItem(ctx, "e1", ann, ItemInput{Name: "Salad", Quantity: 4})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, err := svc.AddMenuItem(ctx, "e1", ann, ItemInput{Name: "Dip"}); err != nil {
		t.Fatalf("add: %v", err)
	}
	ev := load(t, st)
	for i, u := range []string{"ann", "bob", "cy"} {
		a := models.Assignment{ID: "a" + u, EventID: "e1", MenuItemID: item.ID, UserID: u, UserName: u, Quantity: 1, AssignedAt: int64(i)}
		ev.Assignments[a.ID] = a
	}
	if _, err := st.Transact(ctx, "e1", func(cur *models.Event) error {
		cur.Assignments = ev.Assignments
		return nil
	}); err != nil {
		t.Fatalf("seed assignments: %v", err)
	}

	if err := svc.DeleteMenuItem(ctx, "e1", ann, item.ID); !errors.Is(err, models.ErrItemHasClaims) {
		t.Fatalf("creator with foreign claims should be refused, got %v", err)
	}
	if err := svc.DeleteMenuItem(ctx, "e1", bob, item.ID); !errors.Is(err, models.ErrForbidden) {
		t.Fatalf("non-creator should be refused, got %v", err)
	}

	if err := svc.DeleteMenuItem(ctx, "e1", organizer, item.ID); err != nil {
		t.Fatalf("organizer delete: %v", err)
	}
	after := load(t, st)
	if _, ok := after.MenuItems[item.ID]; ok {
		t.Fatal("item still present")
	}
	for _, a := range after.Assignments {
		if a.MenuItemID == item.ID {
			t.Fatalf("assignment %s still references deleted item", a.ID)
		}
	}
	if after.UserItemCounts["ann"] != 1 {
		t.Fatalf("expected creator count decremented to 1, got %d", after.UserItemCounts["ann"])
	}
}

func TestDeleteLastItemRemovesCounter(t *testing.T) {
	svc, st := newService(t, openDetails())
	ctx := context.Background()
	item, err := svc.AddMenuItem(ctx, "e1", ann, ItemInput{Name: "Dip"})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := svc.DeleteMenuItem(ctx, "e1", ann, item.ID); err != nil {
		t.Fatalf("delete own item: %v", err)
	}
	if _, ok := load(t, st).UserItemCounts["ann"]; ok {
		t.Fatal("counter entry should be removed at zero")
	}
}

func TestUpdateMenuItem(t *testing.T) {
	svc, st := newService(t, openDetails())
	ctx := context.Background()
	item, err := svc.AddMenuItem(ctx, "e1", ann, ItemInput{Name: "Punch", Quantity: 3})
	if err != nil {
		t.Fatalf("add: %v", err)
	}

	one := 1
	updated, err := svc.UpdateMenuItem(ctx, "e1", organizer, item.ID, ItemPatch{Quantity: &one})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.IsSplittable {
		t.Fatal("quantity 1 must make the item exclusive")
	}

	name := "Fruit punch"
	if _, err := svc.UpdateMenuItem(ctx, "e1", bob, item.ID, ItemPatch{Name: &name}); !errors.Is(err, models.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}

	if _, err := st.Transact(ctx, "e1", func(ev *models.Event) error {
		ev.Details.IsActive = false
		return nil
	}); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	if _, err := svc.UpdateMenuItem(ctx, "e1", ann, item.ID, ItemPatch{Name: &name}); !errors.Is(err, models.ErrEventInactive) {
		t.Fatalf("expected ErrEventInactive, got %v", err)
	}
}

func TestBulkActionCountsFailures(t *testing.T) {
	svc, st := newService(t, openDetails())
	ctx := context.Background()
	a, _ := svc.AddMenuItem(ctx, "e1", organizer, ItemInput{Name: "Plates"})
	b, _ := svc.AddMenuItem(ctx, "e1", organizer, ItemInput{Name: "Cups"})

	res, err := svc.BulkAction(ctx, "e1", organizer, BulkRequest{
		ItemIDs:  []string{a.ID, "missing", b.ID},
		Action:   BulkSetRequired,
		Required: true,
	})
	if err != nil {
		t.Fatalf("bulk: %v", err)
	}
	if res.Succeeded != 2 || res.Failed != 1 || res.Errors["missing"] == "" {
		t.Fatalf("unexpected result %+v", res)
	}
	ev := load(t, st)
	if !ev.MenuItems[a.ID].IsRequired || !ev.MenuItems[b.ID].IsRequired {
		t.Fatal("items not marked required")
	}

	if _, err := svc.BulkAction(ctx, "e1", organizer, BulkRequest{Action: "explode"}); !errors.Is(err, models.ErrMissingField) {
		t.Fatalf("expected unknown action error, got %v", err)
	}
}
