package api

import (
	"bytes"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"text/template"

	"github.com/opshq/backoffice/internal/models"
	"github.com/opshq/backoffice/pkg/repository"
)

type TemplatesHandler struct {
	repo  repository.TemplateRepo
	audit repository.AuditRepo
}

func NewTemplatesHandler(tr repository.TemplateRepo, ar repository.AuditRepo) *TemplatesHandler {
	return &TemplatesHandler{repo: tr, audit: ar}
}

type templateRequest struct {
	Kind string `json:"kind"`
	Name string `json:"name"`
	Body string `json:"body"`
}

func (req *templateRequest) validate() string {
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" || req.Body == "" {
		return "name and body are required"
	}
	if !models.ValidStatus(req.Kind, models.TemplateInvoice, models.TemplateReceipt) {
		return "kind must be invoice or receipt"
	}
	if _, err := template.New("t").Parse(req.Body); err != nil {
		return "body does not parse: " + err.Error()
	}
	return ""
}

func (h *TemplatesHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req templateRequest
	if !decode(w, r, &req) {
		return
	}
	if msg := req.validate(); msg != "" {
		writeError(w, msg, http.StatusBadRequest)
		return
	}

	t := &models.BillingTemplate{
		OrgID:     orgID(r),
		Kind:      req.Kind,
		Name:      req.Name,
		Body:      req.Body,
		CreatedBy: userID(r),
		UpdatedBy: userID(r),
	}
	id, err := h.repo.CreateTemplate(r.Context(), t)
	if err != nil {
		logHandlerError("create template", err)
		writeError(w, "failed to create template", http.StatusInternalServerError)
		return
	}
	t.ID = id

	recordAudit(r, h.audit, "create", "billing_template", strconv.FormatInt(id, 10))
	writeData(w, t, http.StatusCreated)
}

func (h *TemplatesHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := pathID(r, "id")
	if id == 0 {
		writeError(w, "invalid id", http.StatusBadRequest)
		return
	}

	t, err := h.repo.GetTemplate(r.Context(), orgID(r), id)
	if err != nil {
		logHandlerError("get template", err)
		writeError(w, "failed to get template", http.StatusInternalServerError)
		return
	}
	if t == nil {
		writeError(w, "template not found", http.StatusNotFound)
		return
	}

	writeData(w, t, http.StatusOK)
}

func (h *TemplatesHandler) List(w http.ResponseWriter, r *http.Request) {
	kind := r.URL.Query().Get("kind")
	if kind != "" && !models.ValidStatus(kind, models.TemplateInvoice, models.TemplateReceipt) {
		writeError(w, "kind must be invoice or receipt", http.StatusBadRequest)
		return
	}

	items, err := h.repo.ListTemplates(r.Context(), orgID(r), kind)
	if err != nil {
		logHandlerError("list templates", err)
		writeError(w, "failed to list templates", http.StatusInternalServerError)
		return
	}
	if items == nil {
		items = []models.BillingTemplate{}
	}

	writeData(w, items, http.StatusOK)
}

func (h *TemplatesHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := pathID(r, "id")
	if id == 0 {
		writeError(w, "invalid id", http.StatusBadRequest)
		return
	}

	var req templateRequest
	if !decode(w, r, &req) {
		return
	}
	if msg := req.validate(); msg != "" {
		writeError(w, msg, http.StatusBadRequest)
		return
	}

	existing, err := h.repo.GetTemplate(r.Context(), orgID(r), id)
	if err != nil {
		logHandlerError("get template", err)
		writeError(w, "failed to update template", http.StatusInternalServerError)
		return
	}
	if existing == nil {
		writeError(w, "template not found", http.StatusNotFound)
		return
	}

	existing.Kind = req.Kind
	existing.Name = req.Name
	existing.Body = req.Body
	existing.UpdatedBy = userID(r)

	if err := h.repo.UpdateTemplate(r.Context(), existing); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, "template not found", http.StatusNotFound)
			return
		}
		logHandlerError("update template", err)
		writeError(w, "failed to update template", http.StatusInternalServerError)
		return
	}

	recordAudit(r, h.audit, "update", "billing_template", strconv.FormatInt(id, 10))
	writeData(w, existing, http.StatusOK)
}

// SetDefault marks one template as the default for its org and kind,
// clearing the flag on its siblings.
func (h *TemplatesHandler) SetDefault(w http.ResponseWriter, r *http.Request) {
	id := pathID(r, "id")
	if id == 0 {
		writeError(w, "invalid id", http.StatusBadRequest)
		return
	}

	if err := h.repo.SetDefaultTemplate(r.Context(), orgID(r), id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, "template not found", http.StatusNotFound)
			return
		}
		logHandlerError("set default template", err)
		writeError(w, "failed to set default", http.StatusInternalServerError)
		return
	}

	recordAudit(r, h.audit, "set-default", "billing_template", strconv.FormatInt(id, 10))
	writeData(w, map[string]string{"message": "default set"}, http.StatusOK)
}

type previewRequest struct {
	Data map[string]any `json:"data"`
}

type previewResponse struct {
	Rendered string `json:"rendered"`
}

// Preview renders the template body against caller-supplied data.
func (h *TemplatesHandler) Preview(w http.ResponseWriter, r *http.Request) {
	id := pathID(r, "id")
	if id == 0 {
		writeError(w, "invalid id", http.StatusBadRequest)
		return
	}

	var req previewRequest
	if !decode(w, r, &req) {
		return
	}

	t, err := h.repo.GetTemplate(r.Context(), orgID(r), id)
	if err != nil {
		logHandlerError("get template", err)
		writeError(w, "failed to preview", http.StatusInternalServerError)
		return
	}
	if t == nil {
		writeError(w, "template not found", http.StatusNotFound)
		return
	}

	tmpl, err := template.New(t.Name).Parse(t.Body)
	if err != nil {
		writeError(w, "template body does not parse: "+err.Error(), http.StatusUnprocessableEntity)
		return
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, req.Data); err != nil {
		writeError(w, "template render failed: "+err.Error(), http.StatusUnprocessableEntity)
		return
	}

	writeData(w, previewResponse{Rendered: buf.String()}, http.StatusOK)
}

func (h *TemplatesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := pathID(r, "id")
	if id == 0 {
		writeError(w, "invalid id", http.StatusBadRequest)
		return
	}

	if err := h.repo.DeleteTemplate(r.Context(), orgID(r), id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, "template not found", http.StatusNotFound)
			return
		}
		logHandlerError("delete template", err)
		writeError(w, "failed to delete template", http.StatusInternalServerError)
		return
	}

	recordAudit(r, h.audit, "delete", "billing_template", strconv.FormatInt(id, 10))
	writeData(w, map[string]string{"message": "deleted"}, http.StatusOK)
}
