package printout

import (
	"bytes"
	"context"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/julienschmidt/httprouter"

	"potluck/models"
	"potluck/store/memstore"
)

func sampleEvent() *models.Event {
	ev := models.NewEvent("e1", "org", "Olga", models.EventDetails{
		Title: "Fête d'été", Date: "2026-07-04", Time: "18:00", Location: "Garden",
		Categories: []models.CategoryConfig{{ID: "main", Name: "Mains", Order: 1}},
	}, 1)
	ev.MenuItems["stew"] = models.MenuItem{ID: "stew", Name: "Stew", Category: "main", Quantity: 1, IsRequired: true}
	ev.MenuItems["rolls"] = models.MenuItem{ID: "rolls", Name: "Rolls", Category: "main", Quantity: 6, IsSplittable: true}
	ev.MenuItems["cups"] = models.MenuItem{ID: "cups", Name: "Cups", Category: "stuff", Quantity: 1}
	ev.Assignments["a1"] = models.Assignment{ID: "a1", MenuItemID: "rolls", UserName: "Ann", Quantity: 2, AssignedAt: 1}
	ev.Assignments["a2"] = models.Assignment{ID: "a2", MenuItemID: "rolls", UserName: "Bob", Quantity: 3, AssignedAt: 2}
	return ev
}

func TestJoinURL(t *testing.T) {
	if got := JoinURL("https://potluck.example/", "e1"); got != "https://potluck.example/event/e1" {
		t.Fatalf("unexpected url %q", got)
	}
}

func TestJoinQRIsPNG(t *testing.T) {
	data, err := JoinQR("https://potluck.example/event/e1", 128)
	if err != nil {
		t.Fatalf("qr: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if img.Bounds().Dx() != 128 {
		t.Fatalf("expected 128px, got %d", img.Bounds().Dx())
	}
}

func TestItemsByCategory(t *testing.T) {
	groups := itemsByCategory(sampleEvent())
	if len(groups) != 2 || groups[0].title != "Mains" || groups[1].title != "Uncategorized" {
		t.Fatalf("unexpected groups %+v", groups)
	}
	if groups[0].items[0].ID != "stew" {
		t.Fatalf("required items come first, got %+v", groups[0].items)
	}
	if got := claimants(sampleEvent(), "rolls"); got != "Ann (2), Bob (3)" {
		t.Fatalf("unexpected claimants %q", got)
	}
}

func TestEventSheet(t *testing.T) {
	var buf bytes.Buffer
	if err := EventSheet(&buf, sampleEvent(), "https://potluck.example/event/e1"); err != nil {
		t.Fatalf("render: %v", err)
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")) {
		t.Fatalf("output is not a PDF: %q", buf.Bytes()[:8])
	}
}

func TestHandlers(t *testing.T) {
	st := memstore.New()
	if err := st.CreateEvent(context.Background(), sampleEvent()); err != nil {
		t.Fatalf("create: %v", err)
	}
	h := NewHandlers(st, "https://potluck.example")
	router := httprouter.New()
	router.GET("/api/events/:eventid/sheet.pdf", h.Sheet)
	router.GET("/api/events/:eventid/qr.png", h.QR)

	tests := []struct {
		path        string
		code        int
		contentType string
	}{
		{"/api/events/e1/sheet.pdf", http.StatusOK, "application/pdf"},
		{"/api/events/e1/qr.png", http.StatusOK, "image/png"},
		{"/api/events/nope/qr.png", http.StatusNotFound, "application/json"},
	}
	for _, tc := range tests {
		t.Run(tc.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tc.path, nil))
			if rec.Code != tc.code || rec.Header().Get("Content-Type") != tc.contentType {
				t.Fatalf("got %d %q", rec.Code, rec.Header().Get("Content-Type"))
			}
		})
	}
}
