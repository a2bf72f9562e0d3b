package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/opshq/backoffice/internal/models"
	"github.com/opshq/backoffice/internal/workflow"
	"github.com/opshq/backoffice/pkg/repository"
)

type WorkflowsHandler struct {
	repo   repository.WorkflowRepo
	audit  repository.AuditRepo
	engine Triggerer
}

func NewWorkflowsHandler(wr repository.WorkflowRepo, ar repository.AuditRepo, engine Triggerer) *WorkflowsHandler {
	return &WorkflowsHandler{repo: wr, audit: ar, engine: engine}
}

type ruleRequest struct {
	Name       string          `json:"name"`
	Event      string          `json:"event"`
	Conditions json.RawMessage `json:"conditions"`
	Actions    json.RawMessage `json:"actions"`
	Enabled    *bool           `json:"enabled,omitempty"`
}

func (h *WorkflowsHandler) validateRule(w http.ResponseWriter, r *http.Request, req *ruleRequest) bool {
	req.Name = strings.TrimSpace(req.Name)
	req.Event = strings.TrimSpace(req.Event)
	if req.Name == "" || req.Event == "" {
		writeError(w, "name and event are required", http.StatusBadRequest)
		return false
	}
	if len(req.Conditions) == 0 {
		req.Conditions = json.RawMessage(`{}`)
	}
	if err := workflow.ValidateRule(r.Context(), req.Conditions, req.Actions); err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}

func (h *WorkflowsHandler) CreateRule(w http.ResponseWriter, r *http.Request) {
	var req ruleRequest
	if !decode(w, r, &req) {
		return
	}
	if !h.validateRule(w, r, &req) {
		return
	}

	enabled := true
	if req.Enabled != nil {
		enabled = *req.Enabled
	}

	rule := &models.WorkflowRule{
		OrgID:      orgID(r),
		Name:       req.Name,
		Event:      req.Event,
		Conditions: req.Conditions,
		Actions:    req.Actions,
		Enabled:    enabled,
		CreatedBy:  userID(r),
	}
	id, err := h.repo.CreateRule(r.Context(), rule)
	if err != nil {
		logHandlerError("create rule", err)
		writeError(w, "failed to create rule", http.StatusInternalServerError)
		return
	}
	rule.ID = id

	recordAudit(r, h.audit, "create", "workflow_rule", strconv.FormatInt(id, 10))
	writeData(w, rule, http.StatusCreated)
}

func (h *WorkflowsHandler) GetRule(w http.ResponseWriter, r *http.Request) {
	id := pathID(r, "id")
	if id == 0 {
		writeError(w, "invalid id", http.StatusBadRequest)
		return
	}

	rule, err := h.repo.GetRule(r.Context(), orgID(r), id)
	if err != nil {
		logHandlerError("get rule", err)
		writeError(w, "failed to get rule", http.StatusInternalServerError)
		return
	}
	if rule == nil {
		writeError(w, "rule not found", http.StatusNotFound)
		return
	}

	writeData(w, rule, http.StatusOK)
}

func (h *WorkflowsHandler) ListRules(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	enabledOnly := q.Get("enabled") == "true"

	rules, err := h.repo.ListRules(r.Context(), orgID(r), q.Get("event"), enabledOnly)
	if err != nil {
		logHandlerError("list rules", err)
		writeError(w, "failed to list rules", http.StatusInternalServerError)
		return
	}
	if rules == nil {
		rules = []models.WorkflowRule{}
	}

	writeData(w, rules, http.StatusOK)
}

func (h *WorkflowsHandler) UpdateRule(w http.ResponseWriter, r *http.Request) {
	id := pathID(r, "id")
	if id == 0 {
		writeError(w, "invalid id", http.StatusBadRequest)
		return
	}

	var req ruleRequest
	if !decode(w, r, &req) {
		return
	}
	if !h.validateRule(w, r, &req) {
		return
	}

	existing, err := h.repo.GetRule(r.Context(), orgID(r), id)
	if err != nil {
		logHandlerError("get rule", err)
		writeError(w, "failed to update rule", http.StatusInternalServerError)
		return
	}
	if existing == nil {
		writeError(w, "rule not found", http.StatusNotFound)
		return
	}

	existing.Name = req.Name
	existing.Event = req.Event
	existing.Conditions = req.Conditions
	existing.Actions = req.Actions
	if req.Enabled != nil {
		existing.Enabled = *req.Enabled
	}

	if err := h.repo.UpdateRule(r.Context(), existing); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, "rule not found", http.StatusNotFound)
			return
		}
		logHandlerError("update rule", err)
		writeError(w, "failed to update rule", http.StatusInternalServerError)
		return
	}

	recordAudit(r, h.audit, "update", "workflow_rule", strconv.FormatInt(id, 10))
	writeData(w, existing, http.StatusOK)
}

func (h *WorkflowsHandler) DeleteRule(w http.ResponseWriter, r *http.Request) {
	id := pathID(r, "id")
	if id == 0 {
		writeError(w, "invalid id", http.StatusBadRequest)
		return
	}

	if err := h.repo.DeleteRule(r.Context(), orgID(r), id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, "rule not found", http.StatusNotFound)
			return
		}
		logHandlerError("delete rule", err)
		writeError(w, "failed to delete rule", http.StatusInternalServerError)
		return
	}

	recordAudit(r, h.audit, "delete", "workflow_rule", strconv.FormatInt(id, 10))
	writeData(w, map[string]string{"message": "deleted"}, http.StatusOK)
}

type triggerRequest struct {
	Event   string         `json:"event"`
	Data    map[string]any `json:"data"`
	Context map[string]any `json:"context"`
}

// Trigger feeds a hand-built event to the engine. Instances created by the
// matching rules are returned.
func (h *WorkflowsHandler) Trigger(w http.ResponseWriter, r *http.Request) {
	var req triggerRequest
	if !decode(w, r, &req) {
		return
	}
	req.Event = strings.TrimSpace(req.Event)
	if req.Event == "" {
		writeError(w, "event is required", http.StatusBadRequest)
		return
	}

	instances, err := h.engine.Trigger(r.Context(), orgID(r), workflow.Event{
		Name:    req.Event,
		Data:    req.Data,
		Context: req.Context,
	})
	if err != nil {
		logHandlerError("trigger workflow", err)
		writeError(w, "failed to trigger workflows", http.StatusInternalServerError)
		return
	}
	if instances == nil {
		instances = []models.WorkflowInstance{}
	}

	writeData(w, instances, http.StatusOK)
}

func (h *WorkflowsHandler) ListInstances(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, offset := pageParams(q)

	items, total, err := h.repo.ListInstances(r.Context(), orgID(r), q.Get("status"), q.Get("event"), limit, offset)
	if err != nil {
		logHandlerError("list instances", err)
		writeError(w, "failed to list instances", http.StatusInternalServerError)
		return
	}
	if items == nil {
		items = []models.WorkflowInstance{}
	}

	writeData(w, listEnvelope{Total: total, Limit: limit, Offset: offset, Items: items}, http.StatusOK)
}

func (h *WorkflowsHandler) GetInstance(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if id == "" {
		writeError(w, "invalid id", http.StatusBadRequest)
		return
	}

	inst, err := h.repo.GetInstance(r.Context(), orgID(r), id)
	if err != nil {
		logHandlerError("get instance", err)
		writeError(w, "failed to get instance", http.StatusInternalServerError)
		return
	}
	if inst == nil {
		writeError(w, "instance not found", http.StatusNotFound)
		return
	}

	writeData(w, inst, http.StatusOK)
}

// ApproveInstance resolves a pending-approval instance. A later escalation
// job for it becomes a no-op.
func (h *WorkflowsHandler) ApproveInstance(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if id == "" {
		writeError(w, "invalid id", http.StatusBadRequest)
		return
	}

	inst, err := h.repo.GetInstance(r.Context(), orgID(r), id)
	if err != nil {
		logHandlerError("get instance", err)
		writeError(w, "failed to approve instance", http.StatusInternalServerError)
		return
	}
	if inst == nil {
		writeError(w, "instance not found", http.StatusNotFound)
		return
	}
	if inst.Status != models.InstancePendingApproval {
		writeError(w, "instance is "+inst.Status, http.StatusConflict)
		return
	}

	if err := h.repo.SetInstanceStatus(r.Context(), orgID(r), id, models.InstanceCompleted); err != nil {
		logHandlerError("approve instance", err)
		writeError(w, "failed to approve instance", http.StatusInternalServerError)
		return
	}

	recordAudit(r, h.audit, "approve", "workflow_instance", id)
	writeData(w, map[string]string{"status": models.InstanceCompleted}, http.StatusOK)
}
