package presets

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"potluck/clock"
	"potluck/menu"
	"potluck/models"
	"potluck/store/memstore"
	"potluck/utils"
)

var (
	olga = utils.Identity{UserID: "org", Name: "Olga"}
	ann  = utils.Identity{UserID: "ann", Name: "Ann"}
)

func newService(t *testing.T) (*Service, *memstore.Store) {
	t.Helper()
	st := memstore.New()
	clk := clock.NewFixed(time.Unix(1700000000, 0))
	return NewService(st, menu.NewService(st, clk), clk), st
}

func TestListMaterializesDefaultsOnce(t *testing.T) {
	svc, st := newService(t)
	ctx := context.Background()

	lists, err := svc.List(ctx, "org")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(lists) != 2 || lists[0].Type != models.PresetParticipants || lists[1].Type != models.PresetSalon {
		t.Fatalf("unexpected defaults %+v", lists)
	}
	for _, l := range lists {
		if !l.IsDefault || l.CreatedBy != "org" || len(l.Items) == 0 {
			t.Fatalf("bad default list %+v", l)
		}
	}

	again, err := svc.List(ctx, "org")
	if err != nil {
		t.Fatalf("list again: %v", err)
	}
	if len(again) != 2 || again[0].ID != lists[0].ID {
		t.Fatalf("defaults must not be created twice, got %+v", again)
	}
	stored, _ := st.PresetListsByOwner(ctx, "org")
	if len(stored) != 2 {
		t.Fatalf("expected 2 stored lists, got %d", len(stored))
	}
}

func TestListConcurrentFirstReads(t *testing.T) {
	svc, st := newService(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.List(ctx, "org"); err != nil {
				t.Errorf("list: %v", err)
			}
		}()
	}
	wg.Wait()

	stored, _ := st.PresetListsByOwner(ctx, "org")
	if len(stored) != 2 {
		t.Fatalf("expected the 2 defaults once, got %d", len(stored))
	}
}

func TestCreateUpdateDelete(t *testing.T) {
	svc, st := newService(t)
	ctx := context.Background()

	l, err := svc.Create(ctx, "org", Input{Name: " BBQ ", Items: []models.PresetItem{{Name: "Burgers", Quantity: 10}, {Name: "Buns"}}})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if l.Name != "BBQ" || l.Type != models.PresetParticipants || l.Items[1].Quantity != 1 || l.Items[1].Category != models.CategoryOther {
		t.Fatalf("input not normalized: %+v", l)
	}

	if _, err := svc.Update(ctx, "ann", l.ID, Input{Name: "Mine"}); !errors.Is(err, models.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	updated, err := svc.Update(ctx, "org", l.ID, Input{Name: "BBQ night", Type: models.PresetSalon})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Name != "BBQ night" || len(updated.Items) != 0 || updated.CreatedAt != l.CreatedAt {
		t.Fatalf("unexpected update %+v", updated)
	}

	if err := svc.Delete(ctx, "ann", l.ID); !errors.Is(err, models.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if err := svc.Delete(ctx, "org", l.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := st.GetPresetList(ctx, l.ID); !errors.Is(err, models.ErrPresetNotFound) {
		t.Fatalf("expected ErrPresetNotFound, got %v", err)
	}
}

func TestCreateValidation(t *testing.T) {
	svc, _ := newService(t)
	tests := []struct {
		name string
		in   Input
		want error
	}{
		{"no name", Input{}, models.ErrMissingField},
		{"bad type", Input{Name: "x", Type: "party"}, models.ErrMissingField},
		{"short item", Input{Name: "x", Items: []models.PresetItem{{Name: "a"}}}, models.ErrInvalidName},
		{"huge quantity", Input{Name: "x", Items: []models.PresetItem{{Name: "Ice", Quantity: 101}}}, models.ErrInvalidQuantity},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.Create(context.Background(), "org", tc.in); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestApply(t *testing.T) {
	svc, st := newService(t)
	ctx := context.Background()
	if err := st.CreateEvent(ctx, models.NewEvent("e1", "org", "Olga", models.EventDetails{Title: "Picnic", IsActive: true}, 1)); err != nil {
		t.Fatalf("create event: %v", err)
	}
	lists, err := svc.List(ctx, "org")
	if err != nil {
		t.Fatalf("list: %v", err)
	}

	if _, err := svc.Apply(ctx, "e1", ann, lists[0].ID); !errors.Is(err, models.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	res, err := svc.Apply(ctx, "e1", olga, lists[0].ID)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if res.Succeeded != len(lists[0].Items) || res.Failed != 0 {
		t.Fatalf("unexpected result %+v", res)
	}
	ev, _ := st.GetEvent(ctx, "e1")
	if len(ev.MenuItems) != len(lists[0].Items) {
		t.Fatalf("expected %d items, got %d", len(lists[0].Items), len(ev.MenuItems))
	}
}
