package realtime

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"potluck/models"
	"potluck/store"
)

func readPayload(t *testing.T, c *Client) outboundPayload {
	t.Helper()
	select {
	case data := <-c.Send:
		var out outboundPayload
		if err := json.Unmarshal(data, &out); err != nil {
			t.Fatalf("decode payload: %v", err)
		}
		return out
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for message")
	}
	return outboundPayload{}
}

func TestHubRegisterBroadcastUnregister(t *testing.T) {
	st, feed := setup(t)
	hub := NewHub(feed)
	go hub.Run()
	defer hub.Stop()

	client := &Client{
		Send:    make(chan []byte, 10),
		EventID: "e1",
		Slice:   models.SliceDetails,
	}
	hub.register <- client

	first := readPayload(t, client)
	if first.EventID != "e1" || first.Slice != models.SliceDetails || first.Deleted {
		t.Fatalf("unexpected initial payload %+v", first)
	}

	err := st.UpdatePaths(context.Background(), "e1", store.Patch{Set: map[string]any{store.DetailsPath("title"): "Potluck"}})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	next := readPayload(t, client)
	value, _ := next.Value.(map[string]any)
	if value["title"] != "Potluck" {
		t.Fatalf("expected pushed title, got %+v", next.Value)
	}

	hub.unregister <- client
	if _, ok := <-client.Send; ok {
		t.Fatal("expected send channel to be closed")
	}
	if n := hub.Clients(); n != 0 {
		t.Fatalf("expected no clients, got %d", n)
	}
}

func TestHubLateJoinerGetsLastValue(t *testing.T) {
	_, feed := setup(t)
	hub := NewHub(feed)
	go hub.Run()
	defer hub.Stop()

	a := &Client{Send: make(chan []byte, 10), EventID: "e1", Slice: models.SliceMenuItems}
	hub.register <- a
	readPayload(t, a)

	b := &Client{Send: make(chan []byte, 10), EventID: "e1", Slice: models.SliceMenuItems}
	hub.register <- b
	got := readPayload(t, b)
	if got.Slice != models.SliceMenuItems {
		t.Fatalf("unexpected payload %+v", got)
	}
}

func TestHubDropsSlowClientAndEmptyRoom(t *testing.T) {
	_, feed := setup(t)
	hub := NewHub(feed)
	go hub.Run()
	defer hub.Stop()

	// unbuffered and never read, so the first push finds it full
	slow := &Client{Send: make(chan []byte), EventID: "e1", Slice: models.SliceDetails}
	hub.register <- slow

	deadline := time.After(time.Second)
	for {
		hub.mu.Lock()
		rooms := len(hub.rooms)
		hub.mu.Unlock()
		if rooms == 0 {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("room of a dropped client should be removed, %d left", rooms)
		case <-time.After(10 * time.Millisecond):
		}
	}
	if _, ok := <-slow.Send; ok {
		t.Fatal("expected send channel to be closed")
	}
}
