package realtime

import (
	"context"
	"testing"
	"time"

	"potluck/models"
	"potluck/mq"
	"potluck/store"
	"potluck/store/memstore"
)

func setup(t *testing.T) (store.Store, *Feed) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	bus := mq.NewLocalBus()
	t.Cleanup(func() { bus.Close() })

	inner := memstore.New()
	feed := NewFeed(inner)
	if err := feed.Run(ctx, bus); err != nil {
		t.Fatalf("run feed: %v", err)
	}
	st := store.WithChanges(inner, mq.Changes{Bus: bus})

	ev := models.NewEvent("e1", "org", "Org", models.EventDetails{Title: "Picnic", IsActive: true}, 1)
	if err := st.CreateEvent(ctx, ev); err != nil {
		t.Fatalf("create event: %v", err)
	}
	return st, feed
}

func TestSubscribeToMenuItemsPushesOnChange(t *testing.T) {
	st, feed := setup(t)
	ctx := context.Background()

	got := make(chan map[string]models.MenuItem, 10)
	unsubscribe, err := feed.SubscribeToMenuItems(ctx, "e1", func(items map[string]models.MenuItem) {
		got <- items
	})
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer unsubscribe()

	select {
	case items := <-got:
		if len(items) != 0 {
			t.Fatalf("expected empty initial catalog, got %v", items)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for initial value")
	}

	item := models.MenuItem{ID: "i1", EventID: "e1", Name: "Bread", Quantity: 1}
	if err := st.UpdatePaths(ctx, "e1", store.Patch{Set: map[string]any{store.ItemPath("i1"): item}}); err != nil {
		t.Fatalf("update: %v", err)
	}

	deadline := time.After(time.Second)
	for {
		select {
		case items := <-got:
			if items["i1"].Name == "Bread" {
				return
			}
		case <-deadline:
			t.Fatal("timeout waiting for pushed item")
		}
	}
}

func TestDetailsSubscriberIgnoresOtherSlices(t *testing.T) {
	st, feed := setup(t)
	ctx := context.Background()

	got := make(chan *models.EventDetails, 10)
	unsubscribe, err := feed.SubscribeToDetails(ctx, "e1", func(d *models.EventDetails) { got <- d })
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer unsubscribe()
	<-got

	err = st.UpdatePaths(ctx, "e1", store.Patch{Set: map[string]any{
		store.ParticipantPath("u1"): models.Participant{ID: "u1", Name: "Ann"},
	}})
	if err != nil {
		t.Fatalf("update: %v", err)
	}

	select {
	case d := <-got:
		t.Fatalf("unexpected push %+v", d)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestDeletionPushesNil(t *testing.T) {
	st, feed := setup(t)
	ctx := context.Background()

	got := make(chan map[string]models.Participant, 10)
	unsubscribe, err := feed.SubscribeToParticipants(ctx, "e1", func(p map[string]models.Participant) { got <- p })
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer unsubscribe()

	if p := <-got; p == nil {
		t.Fatal("initial value should be an empty map, not nil")
	}

	if err := st.DeleteEvent(ctx, "e1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	select {
	case p := <-got:
		if p != nil {
			t.Fatalf("expected nil after deletion, got %v", p)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for deletion push")
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	st, feed := setup(t)
	ctx := context.Background()

	got := make(chan any, 10)
	unsubscribe, err := feed.Subscribe(ctx, "e1", models.SliceDetails, func(v any) { got <- v })
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	<-got
	unsubscribe()

	_ = st.UpdatePaths(ctx, "e1", store.Patch{Set: map[string]any{store.DetailsPath("title"): "Renamed"}})
	select {
	case v := <-got:
		t.Fatalf("unexpected push after unsubscribe: %v", v)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestSubscribeUnknownEvent(t *testing.T) {
	_, feed := setup(t)

	got := make(chan *models.EventDetails, 1)
	unsubscribe, err := feed.SubscribeToDetails(context.Background(), "missing", func(d *models.EventDetails) { got <- d })
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer unsubscribe()
	if d := <-got; d != nil {
		t.Fatalf("expected nil details, got %+v", d)
	}
}
