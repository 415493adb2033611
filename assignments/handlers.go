package assignments

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

// CreateAssignment handles POST /api/events/:eventid/assignments. The caller
// always claims for themselves.
func (h *Handlers) CreateAssignment(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var in CreateInput
	if err := utils.DecodeJSON(r, &in); err != nil {
		utils.RespondWithDomainError(w, err)
		return
	}
	actor := utils.IdentityFromContext(r.Context())
	in.UserID = actor.UserID
	if in.UserName == "" {
		in.UserName = actor.Name
	}

	a, err := h.svc.CreateAssignment(r.Context(), ps.ByName("eventid"), in)
	if err != nil {
		utils.RespondWithDomainError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusCreated, utils.M{"assignment": a})
}

func (h *Handlers) UpdateAssignment(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var in UpdateInput
	if err := utils.DecodeJSON(r, &in); err != nil {
		utils.RespondWithDomainError(w, err)
		return
	}
	a, err := h.svc.UpdateAssignment(r.Context(), ps.ByName("eventid"),
		utils.IdentityFromContext(r.Context()), ps.ByName("assignmentid"), in)
	if err != nil {
		utils.RespondWithDomainError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"assignment": a})
}

// CancelAssignment handles DELETE /api/events/:eventid/assignments/:assignmentid.
// The optional menuItemId query parameter names the item whose cache is cleared.
func (h *Handlers) CancelAssignment(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	err := h.svc.CancelAssignment(r.Context(), ps.ByName("eventid"),
		utils.IdentityFromContext(r.Context()), ps.ByName("assignmentid"), r.URL.Query().Get("menuItemId"))
	if err != nil {
		utils.RespondWithDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) CancelOwn(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var opts CancelOptions
	if r.ContentLength != 0 {
		if err := utils.DecodeJSON(r, &opts); err != nil {
			utils.RespondWithDomainError(w, err)
			return
		}
	}
	res, err := h.svc.CancelOwn(r.Context(), ps.ByName("eventid"),
		utils.IdentityFromContext(r.Context()), ps.ByName("assignmentid"), opts)
	if err != nil {
		utils.RespondWithDomainError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, res)
}
