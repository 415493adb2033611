package menu

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

type createItemRequest struct {
	ItemInput
	AssignToSelf bool `json:"assignToSelf"`
}

// CreateMenuItem handles POST /api/events/:eventid/items.
func (h *Handlers) CreateMenuItem(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var body createItemRequest
	if err := utils.DecodeJSON(r, &body); err != nil {
		utils.RespondWithDomainError(w, err)
		return
	}
	actor := utils.IdentityFromContext(r.Context())
	eventID := ps.ByName("eventid")

	if body.AssignToSelf {
		item, assignment, err := h.svc.AddMenuItemAndAssign(r.Context(), eventID, actor, body.ItemInput)
		if err != nil {
			utils.RespondWithDomainError(w, err)
			return
		}
		utils.RespondWithJSON(w, http.StatusCreated, struct {
			Item       *models.MenuItem   `json:"item"`
			Assignment *models.Assignment `json:"assignment"`
		}{item, assignment})
		return
	}

	item, err := h.svc.AddMenuItem(r.Context(), eventID, actor, body.ItemInput)
	if err != nil {
		utils.RespondWithDomainError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusCreated, utils.M{"item": item})
}

func (h *Handlers) UpdateMenuItem(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var patch ItemPatch
	if err := utils.DecodeJSON(r, &patch); err != nil {
		utils.RespondWithDomainError(w, err)
		return
	}
	item, err := h.svc.UpdateMenuItem(r.Context(), ps.ByName("eventid"),
		utils.IdentityFromContext(r.Context()), ps.ByName("itemid"), patch)
	if err != nil {
		utils.RespondWithDomainError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"item": item})
}

func (h *Handlers) DeleteMenuItem(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	err := h.svc.DeleteMenuItem(r.Context(), ps.ByName("eventid"),
		utils.IdentityFromContext(r.Context()), ps.ByName("itemid"))
	if err != nil {
		utils.RespondWithDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) BulkAction(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var req BulkRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.RespondWithDomainError(w, err)
		return
	}
	result, err := h.svc.BulkAction(r.Context(), ps.ByName("eventid"), utils.IdentityFromContext(r.Context()), req)
	if err != nil {
		utils.RespondWithDomainError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, result)
}
