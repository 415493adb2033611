package events

import (
	"net/http"

	"github.com/julienschmidt/httprouter"

	"potluck/models"
	"potluck/utils"
)

type Handlers struct {
	svc *Service
}

func NewHandlers(svc *Service) *Handlers {
	return &Handlers{svc: svc}
}

func (h *Handlers) CreateEvent(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var details models.EventDetails
	if err := utils.DecodeJSON(r, &details); err != nil {
		utils.RespondWithDomainError(w, err)
		return
	}
	id, err := h.svc.CreateEvent(r.Context(), utils.IdentityFromContext(r.Context()), details)
	if err != nil {
		utils.RespondWithDomainError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusCreated, utils.M{"eventId": id})
}

// GetMyEvents lists events organized by the caller, newest first.
func (h *Handlers) GetMyEvents(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	evs, err := h.svc.GetEventsByOrganizer(r.Context(), utils.GetUserIDFromRequest(r))
	if err != nil {
		utils.RespondWithDomainError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"events": evs})
}

func (h *Handlers) GetEvent(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ev, err := h.svc.GetEvent(r.Context(), ps.ByName("eventid"))
	if err != nil {
		utils.RespondWithDomainError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, ev)
}

func (h *Handlers) GetSummary(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	sum, err := h.svc.Summary(r.Context(), ps.ByName("eventid"))
	if err != nil {
		utils.RespondWithDomainError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, sum)
}

func (h *Handlers) UpdateEventDetails(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var patch DetailsPatch
	if err := utils.DecodeJSON(r, &patch); err != nil {
		utils.RespondWithDomainError(w, err)
		return
	}
	eventID := ps.ByName("eventid")
	if err := h.svc.UpdateEventDetails(r.Context(), utils.IdentityFromContext(r.Context()), eventID, patch); err != nil {
		utils.RespondWithDomainError(w, err)
		return
	}
	ev, err := h.svc.GetEvent(r.Context(), eventID)
	if err != nil {
		utils.RespondWithDomainError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, ev.Details)
}

func (h *Handlers) DeleteEvent(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	if err := h.svc.DeleteEvent(r.Context(), utils.IdentityFromContext(r.Context()), ps.ByName("eventid")); err != nil {
		utils.RespondWithDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) JoinEvent(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var body struct {
		Name string `json:"name"`
	}
	if r.ContentLength != 0 {
		if err := utils.DecodeJSON(r, &body); err != nil {
			utils.RespondWithDomainError(w, err)
			return
		}
	}
	actor := utils.IdentityFromContext(r.Context())
	if body.Name == "" {
		body.Name = actor.Name
	}
	p, err := h.svc.JoinEvent(r.Context(), ps.ByName("eventid"), actor.UserID, body.Name)
	if err != nil {
		utils.RespondWithDomainError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, p)
}
