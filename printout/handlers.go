package printout

import (
	"bytes"
	"log/slog"
	"net/http"

	"github.com/julienschmidt/httprouter"

	"potluck/store"
	"potluck/utils"
)

type Handlers struct {
	events  store.EventStore
	baseURL string
}

func NewHandlers(events store.EventStore, publicBaseURL string) *Handlers {
	return &Handlers{events: events, baseURL: publicBaseURL}
}

// Sheet handles GET /api/events/:eventid/sheet.pdf.
func (h *Handlers) Sheet(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ev, err := h.events.GetEvent(r.Context(), ps.ByName("eventid"))
	if err != nil {
		utils.RespondWithDomainError(w, err)
		return
	}
	var buf bytes.Buffer
	if err := EventSheet(&buf, ev, JoinURL(h.baseURL, ev.ID)); err != nil {
		slog.Error("Render event sheet", "event_id", ev.ID, "error", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to generate PDF")
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", "inline; filename=event-"+ev.ID+".pdf")
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

// QR handles GET /api/events/:eventid/qr.png.
func (h *Handlers) QR(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ev, err := h.events.GetEvent(r.Context(), ps.ByName("eventid"))
	if err != nil {
		utils.RespondWithDomainError(w, err)
		return
	}
	png, err := JoinQR(JoinURL(h.baseURL, ev.ID), 512)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to generate QR code")
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.WriteHeader(http.StatusOK)
	w.Write(png)
}
