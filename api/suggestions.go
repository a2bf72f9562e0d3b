package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/opshq/backoffice/internal/models"
	"github.com/opshq/backoffice/pkg/repository"
)

type SuggestionsHandler struct {
	repo  repository.SuggestionRepo
	audit repository.AuditRepo
}

func NewSuggestionsHandler(sr repository.SuggestionRepo, ar repository.AuditRepo) *SuggestionsHandler {
	return &SuggestionsHandler{repo: sr, audit: ar}
}

type suggestionRequest struct {
	Title  string `json:"title"`
	Body   string `json:"body"`
	Status string `json:"status"`
}

var suggestionStatuses = []string{
	models.SuggestionOpen, models.SuggestionPlanned, models.SuggestionInProgress,
	models.SuggestionDone, models.SuggestionDeclined,
}

func (h *SuggestionsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req suggestionRequest
	if !decode(w, r, &req) {
		return
	}

	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" || req.Body == "" {
		writeError(w, "title and body are required", http.StatusBadRequest)
		return
	}

	s := &models.Suggestion{
		OrgID:     orgID(r),
		Title:     req.Title,
		Body:      req.Body,
		Status:    models.SuggestionOpen,
		CreatedBy: userID(r),
	}
	id, err := h.repo.CreateSuggestion(r.Context(), s)
	if err != nil {
		logHandlerError("create suggestion", err)
		writeError(w, "failed to create suggestion", http.StatusInternalServerError)
		return
	}
	s.ID = id

	recordAudit(r, h.audit, "create", "suggestion", strconv.FormatInt(id, 10))
	writeData(w, s, http.StatusCreated)
}

func (h *SuggestionsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := pathID(r, "id")
	if id == 0 {
		writeError(w, "invalid id", http.StatusBadRequest)
		return
	}

	s, err := h.repo.GetSuggestion(r.Context(), orgID(r), id)
	if err != nil {
		logHandlerError("get suggestion", err)
		writeError(w, "failed to get suggestion", http.StatusInternalServerError)
		return
	}
	if s == nil {
		writeError(w, "suggestion not found", http.StatusNotFound)
		return
	}

	writeData(w, s, http.StatusOK)
}

func (h *SuggestionsHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, offset := pageParams(q)

	items, total, err := h.repo.ListSuggestions(r.Context(), repository.ListFilter{
		OrgID:  orgID(r),
		Status: q.Get("status"),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		logHandlerError("list suggestions", err)
		writeError(w, "failed to list suggestions", http.StatusInternalServerError)
		return
	}
	if items == nil {
		items = []models.Suggestion{}
	}

	writeData(w, listEnvelope{Total: total, Limit: limit, Offset: offset, Items: items}, http.StatusOK)
}

func (h *SuggestionsHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := pathID(r, "id")
	if id == 0 {
		writeError(w, "invalid id", http.StatusBadRequest)
		return
	}

	var req suggestionRequest
	if !decode(w, r, &req) {
		return
	}
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" || req.Body == "" {
		writeError(w, "title and body are required", http.StatusBadRequest)
		return
	}
	if req.Status != "" && !models.ValidStatus(req.Status, suggestionStatuses...) {
		writeError(w, "invalid status", http.StatusBadRequest)
		return
	}

	existing, err := h.repo.GetSuggestion(r.Context(), orgID(r), id)
	if err != nil {
		logHandlerError("get suggestion", err)
		writeError(w, "failed to update suggestion", http.StatusInternalServerError)
		return
	}
	if existing == nil {
		writeError(w, "suggestion not found", http.StatusNotFound)
		return
	}

	existing.Title = req.Title
	existing.Body = req.Body
	if req.Status != "" {
		existing.Status = req.Status
	}

	if err := h.repo.UpdateSuggestion(r.Context(), existing); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, "suggestion not found", http.StatusNotFound)
			return
		}
		logHandlerError("update suggestion", err)
		writeError(w, "failed to update suggestion", http.StatusInternalServerError)
		return
	}

	recordAudit(r, h.audit, "update", "suggestion", strconv.FormatInt(id, 10))
	writeData(w, existing, http.StatusOK)
}

type voteRequest struct {
	Direction string `json:"direction"`
}

// Vote records one up or down vote per user. Repeating the same direction is
// rejected; the opposite direction flips the earlier vote.
func (h *SuggestionsHandler) Vote(w http.ResponseWriter, r *http.Request) {
	id := pathID(r, "id")
	if id == 0 {
		writeError(w, "invalid id", http.StatusBadRequest)
		return
	}

	var req voteRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Direction != models.VoteUp && req.Direction != models.VoteDown {
		writeError(w, "direction must be up or down", http.StatusBadRequest)
		return
	}

	s, err := h.repo.Vote(r.Context(), orgID(r), id, userID(r), req.Direction)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			writeError(w, "suggestion not found", http.StatusNotFound)
		case errors.Is(err, repository.ErrDuplicateVote):
			writeError(w, "vote already recorded", http.StatusConflict)
		default:
			logHandlerError("vote suggestion", err)
			writeError(w, "failed to vote", http.StatusInternalServerError)
		}
		return
	}

	writeData(w, s, http.StatusOK)
}

func (h *SuggestionsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := pathID(r, "id")
	if id == 0 {
		writeError(w, "invalid id", http.StatusBadRequest)
		return
	}

	if err := h.repo.DeleteSuggestion(r.Context(), orgID(r), id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, "suggestion not found", http.StatusNotFound)
			return
		}
		logHandlerError("delete suggestion", err)
		writeError(w, "failed to delete suggestion", http.StatusInternalServerError)
		return
	}

	recordAudit(r, h.audit, "delete", "suggestion", strconv.FormatInt(id, 10))
	writeData(w, map[string]string{"message": "deleted"}, http.StatusOK)
}
