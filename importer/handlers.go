package importer

import (
	"net/http"

	"github.com/julienschmidt/httprouter"

	"potluck/models"
	"potluck/utils"
)

const maxUploadSize = 5 << 20

type Handlers struct {
	svc *Service
}

func NewHandlers(svc *Service) *Handlers {
	return &Handlers{svc: svc}
}

type previewRequest struct {
	Text   string `json:"text,omitempty"`
	Rows   []Row  `json:"rows,omitempty"`
	Source string `json:"source,omitempty"`
}

// PreviewText handles POST /api/events/:eventid/import/preview. Rows coming
// from the parser are passed through with source "ai".
func (h *Handlers) PreviewText(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var req previewRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.RespondWithDomainError(w, err)
		return
	}
	rows := req.Rows
	fallback := FallbackAI
	if req.Text != "" {
		rows = append(ParseText(req.Text), rows...)
	}
	if req.Source == "file" {
		fallback = FallbackFile
	}
	if len(rows) == 0 {
		utils.RespondWithError(w, http.StatusBadRequest, "Nothing to import")
		return
	}
	h.respondPreview(w, r, ps.ByName("eventid"), rows, fallback)
}

// PreviewCSV handles a multipart upload with the file in the "file" field.
func (h *Handlers) PreviewCSV(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Unable to parse form")
		return
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Missing file")
		return
	}
	defer file.Close()

	rows, err := ParseCSV(file)
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.respondPreview(w, r, ps.ByName("eventid"), rows, FallbackFile)
}

func (h *Handlers) respondPreview(w http.ResponseWriter, r *http.Request, eventID string, rows []Row, fallback string) {
	preview, err := h.svc.Preview(r.Context(), eventID, rows, fallback)
	if err != nil {
		utils.RespondWithDomainError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, preview)
}

type commitRequest struct {
	Candidates []Candidate `json:"candidates"`
	Mode       string      `json:"mode"`
}

func (h *Handlers) Commit(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var req commitRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.RespondWithDomainError(w, err)
		return
	}
	mode, err := ParseMode(req.Mode)
	if err != nil {
		utils.RespondWithDomainError(w, err)
		return
	}
	res, err := h.svc.Commit(r.Context(), ps.ByName("eventid"), utils.IdentityFromContext(r.Context()), req.Candidates, mode)
	if err != nil {
		utils.RespondWithDomainError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, res)
}

// MigrationSeed returns the current catalog as candidates for re-bucketing.
func (h *Handlers) MigrationSeed(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ev, err := h.svc.store.GetEvent(r.Context(), ps.ByName("eventid"))
	if err != nil {
		utils.RespondWithDomainError(w, err)
		return
	}
	if !ev.IsOrganizer(utils.GetUserIDFromRequest(r)) {
		utils.RespondWithDomainError(w, models.ErrForbidden)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"candidates": CandidatesFromEvent(ev)})
}

func (h *Handlers) Migrate(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var req commitRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.RespondWithDomainError(w, err)
		return
	}
	res, err := h.svc.Migrate(r.Context(), ps.ByName("eventid"), utils.IdentityFromContext(r.Context()), req.Candidates)
	if err != nil {
		utils.RespondWithDomainError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, res)
}
