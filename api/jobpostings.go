package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/opshq/backoffice/internal/models"
	"github.com/opshq/backoffice/pkg/repository"
)

type JobPostingsHandler struct {
	repo  repository.JobPostingRepo
	audit repository.AuditRepo
}

func NewJobPostingsHandler(jr repository.JobPostingRepo, ar repository.AuditRepo) *JobPostingsHandler {
	return &JobPostingsHandler{repo: jr, audit: ar}
}

type postingRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Department  string `json:"department"`
	Location    string `json:"location"`
}

func (h *JobPostingsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req postingRequest
	if !decode(w, r, &req) {
		return
	}

	req.Title = strings.TrimSpace(req.Title)
	req.Department = strings.TrimSpace(req.Department)
	if req.Title == "" || req.Description == "" || req.Department == "" {
		writeError(w, "title, description and department are required", http.StatusBadRequest)
		return
	}

	p := &models.JobPosting{
		OrgID:       orgID(r),
		Title:       req.Title,
		Description: req.Description,
		Department:  req.Department,
		Location:    req.Location,
		Status:      models.PostingDraft,
		CreatedBy:   userID(r),
		UpdatedBy:   userID(r),
	}
	id, err := h.repo.CreatePosting(r.Context(), p)
	if err != nil {
		logHandlerError("create posting", err)
		writeError(w, "failed to create posting", http.StatusInternalServerError)
		return
	}
	p.ID = id

	recordAudit(r, h.audit, "create", "job_posting", strconv.FormatInt(id, 10))
	writeData(w, p, http.StatusCreated)
}

func (h *JobPostingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := pathID(r, "id")
	if id == 0 {
		writeError(w, "invalid id", http.StatusBadRequest)
		return
	}

	p, err := h.repo.GetPosting(r.Context(), orgID(r), id)
	if err != nil {
		logHandlerError("get posting", err)
		writeError(w, "failed to get posting", http.StatusInternalServerError)
		return
	}
	if p == nil {
		writeError(w, "posting not found", http.StatusNotFound)
		return
	}

	writeData(w, p, http.StatusOK)
}

func (h *JobPostingsHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, offset := pageParams(q)

	items, total, err := h.repo.ListPostings(r.Context(), repository.ListFilter{
		OrgID:  orgID(r),
		Status: q.Get("status"),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		logHandlerError("list postings", err)
		writeError(w, "failed to list postings", http.StatusInternalServerError)
		return
	}
	if items == nil {
		items = []models.JobPosting{}
	}

	writeData(w, listEnvelope{Total: total, Limit: limit, Offset: offset, Items: items}, http.StatusOK)
}

func (h *JobPostingsHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := pathID(r, "id")
	if id == 0 {
		writeError(w, "invalid id", http.StatusBadRequest)
		return
	}

	var req postingRequest
	if !decode(w, r, &req) {
		return
	}
	req.Title = strings.TrimSpace(req.Title)
	req.Department = strings.TrimSpace(req.Department)
	if req.Title == "" || req.Description == "" || req.Department == "" {
		writeError(w, "title, description and department are required", http.StatusBadRequest)
		return
	}

	existing, err := h.repo.GetPosting(r.Context(), orgID(r), id)
	if err != nil {
		logHandlerError("get posting", err)
		writeError(w, "failed to update posting", http.StatusInternalServerError)
		return
	}
	if existing == nil {
		writeError(w, "posting not found", http.StatusNotFound)
		return
	}
	if existing.Status == models.PostingClosed {
		writeError(w, "posting is closed", http.StatusConflict)
		return
	}

	existing.Title = req.Title
	existing.Description = req.Description
	existing.Department = req.Department
	existing.Location = req.Location
	existing.UpdatedBy = userID(r)

	if err := h.repo.UpdatePosting(r.Context(), existing); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, "posting not found", http.StatusNotFound)
			return
		}
		logHandlerError("update posting", err)
		writeError(w, "failed to update posting", http.StatusInternalServerError)
		return
	}

	recordAudit(r, h.audit, "update", "job_posting", strconv.FormatInt(id, 10))
	writeData(w, existing, http.StatusOK)
}

// Publish makes a draft posting public and stamps published_at.
func (h *JobPostingsHandler) Publish(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, models.PostingPublished, models.PostingDraft)
}

// Close retires a published posting and stamps closed_at.
func (h *JobPostingsHandler) Close(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, models.PostingClosed, models.PostingPublished)
}

func (h *JobPostingsHandler) transition(w http.ResponseWriter, r *http.Request, to string, from ...string) {
	id := pathID(r, "id")
	if id == 0 {
		writeError(w, "invalid id", http.StatusBadRequest)
		return
	}

	existing, err := h.repo.GetPosting(r.Context(), orgID(r), id)
	if err != nil {
		logHandlerError("get posting", err)
		writeError(w, "failed to update posting", http.StatusInternalServerError)
		return
	}
	if existing == nil {
		writeError(w, "posting not found", http.StatusNotFound)
		return
	}
	if !models.ValidStatus(existing.Status, from...) {
		writeError(w, "posting is "+existing.Status, http.StatusConflict)
		return
	}

	stamp := time.Now().UTC().UnixMilli()
	if err := h.repo.SetPostingStatus(r.Context(), orgID(r), id, to, stamp); err != nil {
		logHandlerError("set posting status", err)
		writeError(w, "failed to update posting", http.StatusInternalServerError)
		return
	}

	recordAudit(r, h.audit, "status:"+to, "job_posting", strconv.FormatInt(id, 10))
	writeData(w, map[string]string{"status": to}, http.StatusOK)
}

func (h *JobPostingsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := pathID(r, "id")
	if id == 0 {
		writeError(w, "invalid id", http.StatusBadRequest)
		return
	}

	if err := h.repo.DeletePosting(r.Context(), orgID(r), id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, "posting not found", http.StatusNotFound)
			return
		}
		logHandlerError("delete posting", err)
		writeError(w, "failed to delete posting", http.StatusInternalServerError)
		return
	}

	recordAudit(r, h.audit, "delete", "job_posting", strconv.FormatInt(id, 10))
	writeData(w, map[string]string{"message": "deleted"}, http.StatusOK)
}
