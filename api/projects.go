package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/opshq/backoffice/internal/models"
	"github.com/opshq/backoffice/pkg/repository"
)

type ProjectsHandler struct {
	repo  repository.ProjectRepo
	audit repository.AuditRepo
}

func NewProjectsHandler(pr repository.ProjectRepo, ar repository.AuditRepo) *ProjectsHandler {
	return &ProjectsHandler{repo: pr, audit: ar}
}

type projectRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Status      string `json:"status"`
}

var projectStatuses = []string{
	models.ProjectPlanning, models.ProjectActive, models.ProjectOnHold,
	models.ProjectCompleted, models.ProjectArchived,
}

func (h *ProjectsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req projectRequest
	if !decode(w, r, &req) {
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeError(w, "name is required", http.StatusBadRequest)
		return
	}
	if req.Status == "" {
		req.Status = models.ProjectPlanning
	}
	if !models.ValidStatus(req.Status, projectStatuses...) {
		writeError(w, "invalid status", http.StatusBadRequest)
		return
	}

	p := &models.Project{
		OrgID:       orgID(r),
		Name:        req.Name,
		Description: req.Description,
		Status:      req.Status,
		CreatedBy:   userID(r),
		UpdatedBy:   userID(r),
	}
	id, err := h.repo.CreateProject(r.Context(), p)
	if err != nil {
		logHandlerError("create project", err)
		writeError(w, "failed to create project", http.StatusInternalServerError)
		return
	}
	p.ID = id

	recordAudit(r, h.audit, "create", "project", strconv.FormatInt(id, 10))
	writeData(w, p, http.StatusCreated)
}

func (h *ProjectsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := pathID(r, "id")
	if id == 0 {
		writeError(w, "invalid id", http.StatusBadRequest)
		return
	}

	p, err := h.repo.GetProject(r.Context(), orgID(r), id)
	if err != nil {
		logHandlerError("get project", err)
		writeError(w, "failed to get project", http.StatusInternalServerError)
		return
	}
	if p == nil {
		writeError(w, "project not found", http.StatusNotFound)
		return
	}

	writeData(w, p, http.StatusOK)
}

func (h *ProjectsHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, offset := pageParams(q)

	items, total, err := h.repo.ListProjects(r.Context(), repository.ListFilter{
		OrgID:  orgID(r),
		Status: q.Get("status"),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		logHandlerError("list projects", err)
		writeError(w, "failed to list projects", http.StatusInternalServerError)
		return
	}
	if items == nil {
		items = []models.Project{}
	}

	writeData(w, listEnvelope{Total: total, Limit: limit, Offset: offset, Items: items}, http.StatusOK)
}

func (h *ProjectsHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := pathID(r, "id")
	if id == 0 {
		writeError(w, "invalid id", http.StatusBadRequest)
		return
	}

	var req projectRequest
	if !decode(w, r, &req) {
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeError(w, "name is required", http.StatusBadRequest)
		return
	}
	if req.Status != "" && !models.ValidStatus(req.Status, projectStatuses...) {
		writeError(w, "invalid status", http.StatusBadRequest)
		return
	}

	existing, err := h.repo.GetProject(r.Context(), orgID(r), id)
	if err != nil {
		logHandlerError("get project", err)
		writeError(w, "failed to update project", http.StatusInternalServerError)
		return
	}
	if existing == nil {
		writeError(w, "project not found", http.StatusNotFound)
		return
	}

	existing.Name = req.Name
	existing.Description = req.Description
	if req.Status != "" {
		existing.Status = req.Status
	}
	existing.UpdatedBy = userID(r)

	if err := h.repo.UpdateProject(r.Context(), existing); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, "project not found", http.StatusNotFound)
			return
		}
		logHandlerError("update project", err)
		writeError(w, "failed to update project", http.StatusInternalServerError)
		return
	}

	recordAudit(r, h.audit, "update", "project", strconv.FormatInt(id, 10))
	writeData(w, existing, http.StatusOK)
}

func (h *ProjectsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := pathID(r, "id")
	if id == 0 {
		writeError(w, "invalid id", http.StatusBadRequest)
		return
	}

	if err := h.repo.DeleteProject(r.Context(), orgID(r), id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, "project not found", http.StatusNotFound)
			return
		}
		logHandlerError("delete project", err)
		writeError(w, "failed to delete project", http.StatusInternalServerError)
		return
	}

	recordAudit(r, h.audit, "delete", "project", strconv.FormatInt(id, 10))
	writeData(w, map[string]string{"message": "deleted"}, http.StatusOK)
}
