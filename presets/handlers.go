package presets

import (
	"net/http"

	"github.com/julienschmidt/httprouter"

	"potluck/utils"
)

type Handlers struct {
	svc *Service
}

func NewHandlers(svc *Service) *Handlers {
	return &Handlers{svc: svc}
}

func (h *Handlers) List(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	lists, err := h.svc.List(r.Context(), utils.GetUserIDFromRequest(r))
	if err != nil {
		utils.RespondWithDomainError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"lists": lists})
}

func (h *Handlers) Create(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var in Input
	if err := utils.DecodeJSON(r, &in); err != nil {
		utils.RespondWithDomainError(w, err)
		return
	}
	l, err := h.svc.Create(r.Context(), utils.GetUserIDFromRequest(r), in)
	if err != nil {
		utils.RespondWithDomainError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusCreated, l)
}

func (h *Handlers) Update(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var in Input
	if err := utils.DecodeJSON(r, &in); err != nil {
		utils.RespondWithDomainError(w, err)
		return
	}
	l, err := h.svc.Update(r.Context(), utils.GetUserIDFromRequest(r), ps.ByName("presetid"), in)
	if err != nil {
		utils.RespondWithDomainError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, l)
}

func (h *Handlers) Delete(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	if err := h.svc.Delete(r.Context(), utils.GetUserIDFromRequest(r), ps.ByName("presetid")); err != nil {
		utils.RespondWithDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) Apply(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	res, err := h.svc.Apply(r.Context(), ps.ByName("eventid"), utils.IdentityFromContext(r.Context()), ps.ByName("presetid"))
	if err != nil {
		utils.RespondWithDomainError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, res)
}
