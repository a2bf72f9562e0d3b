package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/opshq/backoffice/internal/models"
	"github.com/opshq/backoffice/internal/notify"
	"github.com/opshq/backoffice/internal/workflow"
	"github.com/opshq/backoffice/pkg/repository"
)

// Triggerer feeds domain events into the workflow engine; satisfied by
// workflow.Engine. Handlers fire events after the row is committed and never
// fail the request on engine errors.
type Triggerer interface {
	Trigger(ctx context.Context, orgID int64, ev workflow.Event) ([]models.WorkflowInstance, error)
}

type FeedbackHandler struct {
	repo   repository.FeedbackRepo
	audit  repository.AuditRepo
	notes  repository.NotificationRepo
	engine Triggerer
	pub    Publisher
}

func NewFeedbackHandler(fr repository.FeedbackRepo, ar repository.AuditRepo, nr repository.NotificationRepo, engine Triggerer, pub Publisher) *FeedbackHandler {
	return &FeedbackHandler{repo: fr, audit: ar, notes: nr, engine: engine, pub: pub}
}

type feedbackRequest struct {
	Subject  string `json:"subject"`
	Body     string `json:"body"`
	Category string `json:"category"`
	Rating   *int   `json:"rating,omitempty"`
}

var feedbackStatuses = []string{
	models.FeedbackNew, models.FeedbackUnderReview, models.FeedbackResponded,
	models.FeedbackResolved, models.FeedbackClosed,
}

func (h *FeedbackHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req feedbackRequest
	if !decode(w, r, &req) {
		return
	}

	req.Subject = strings.TrimSpace(req.Subject)
	req.Category = strings.TrimSpace(req.Category)
	if req.Subject == "" || req.Body == "" || req.Category == "" {
		writeError(w, "subject, body and category are required", http.StatusBadRequest)
		return
	}
	if req.Rating != nil && (*req.Rating < 1 || *req.Rating > 5) {
		writeError(w, "rating must be between 1 and 5", http.StatusBadRequest)
		return
	}

	fb := &models.Feedback{
		OrgID:     orgID(r),
		Subject:   req.Subject,
		Body:      req.Body,
		Category:  req.Category,
		Rating:    req.Rating,
		Status:    models.FeedbackNew,
		CreatedBy: userID(r),
	}
	id, err := h.repo.CreateFeedback(r.Context(), fb)
	if err != nil {
		logHandlerError("create feedback", err)
		writeError(w, "failed to create feedback", http.StatusInternalServerError)
		return
	}
	fb.ID = id

	recordAudit(r, h.audit, "create", "feedback", strconv.FormatInt(id, 10))
	h.fireCreated(r, fb)

	writeData(w, fb, http.StatusCreated)
}

// fireCreated runs workflow rules registered for feedback.created.
func (h *FeedbackHandler) fireCreated(r *http.Request, fb *models.Feedback) {
	if h.engine == nil {
		return
	}

	data := map[string]any{"category": fb.Category, "subject": fb.Subject}
	if fb.Rating != nil {
		data["rating"] = float64(*fb.Rating)
	}
	ev := workflow.Event{
		Name:    "feedback.created",
		Data:    data,
		Context: map[string]any{"feedback_id": float64(fb.ID), "created_by": float64(fb.CreatedBy)},
	}
	if _, err := h.engine.Trigger(r.Context(), fb.OrgID, ev); err != nil {
		logHandlerError("trigger feedback.created", err)
	}
}

func (h *FeedbackHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := pathID(r, "id")
	if id == 0 {
		writeError(w, "invalid id", http.StatusBadRequest)
		return
	}

	fb, err := h.repo.GetFeedback(r.Context(), orgID(r), id)
	if err != nil {
		logHandlerError("get feedback", err)
		writeError(w, "failed to get feedback", http.StatusInternalServerError)
		return
	}
	if fb == nil {
		writeError(w, "feedback not found", http.StatusNotFound)
		return
	}

	writeData(w, fb, http.StatusOK)
}

func (h *FeedbackHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, offset := pageParams(q)

	items, total, err := h.repo.ListFeedback(r.Context(), repository.ListFilter{
		OrgID:    orgID(r),
		Status:   q.Get("status"),
		Category: q.Get("category"),
		Limit:    limit,
		Offset:   offset,
	})
	if err != nil {
		logHandlerError("list feedback", err)
		writeError(w, "failed to list feedback", http.StatusInternalServerError)
		return
	}
	if items == nil {
		items = []models.Feedback{}
	}

	writeData(w, listEnvelope{Total: total, Limit: limit, Offset: offset, Items: items}, http.StatusOK)
}

type feedbackStatusRequest struct {
	Status string `json:"status"`
}

func (h *FeedbackHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	id := pathID(r, "id")
	if id == 0 {
		writeError(w, "invalid id", http.StatusBadRequest)
		return
	}

	var req feedbackStatusRequest
	if !decode(w, r, &req) {
		return
	}
	if !models.ValidStatus(req.Status, feedbackStatuses...) {
		writeError(w, "invalid status", http.StatusBadRequest)
		return
	}

	if err := h.repo.UpdateFeedbackStatus(r.Context(), orgID(r), id, req.Status); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, "feedback not found", http.StatusNotFound)
			return
		}
		logHandlerError("update feedback status", err)
		writeError(w, "failed to update feedback", http.StatusInternalServerError)
		return
	}

	recordAudit(r, h.audit, "status:"+req.Status, "feedback", strconv.FormatInt(id, 10))
	writeData(w, map[string]string{"status": req.Status}, http.StatusOK)
}

type feedbackRespondRequest struct {
	Response string `json:"response"`
}

// Respond stores the official reply. The row moves to the responded status
// and has_response flips on.
func (h *FeedbackHandler) Respond(w http.ResponseWriter, r *http.Request) {
	id := pathID(r, "id")
	if id == 0 {
		writeError(w, "invalid id", http.StatusBadRequest)
		return
	}

	var req feedbackRespondRequest
	if !decode(w, r, &req) {
		return
	}
	req.Response = strings.TrimSpace(req.Response)
	if req.Response == "" {
		writeError(w, "response is required", http.StatusBadRequest)
		return
	}

	if err := h.repo.RespondFeedback(r.Context(), orgID(r), id, req.Response, userID(r)); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, "feedback not found", http.StatusNotFound)
			return
		}
		logHandlerError("respond feedback", err)
		writeError(w, "failed to respond", http.StatusInternalServerError)
		return
	}

	fb, err := h.repo.GetFeedback(r.Context(), orgID(r), id)
	if err != nil || fb == nil {
		logHandlerError("reload feedback", err)
		writeError(w, "failed to respond", http.StatusInternalServerError)
		return
	}

	recordAudit(r, h.audit, "respond", "feedback", strconv.FormatInt(id, 10))
	publishNotification(r, h.notes, h.pub, notify.KindFeedback, "feedback responded: "+fb.Subject)
	writeData(w, fb, http.StatusOK)
}

func (h *FeedbackHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := pathID(r, "id")
	if id == 0 {
		writeError(w, "invalid id", http.StatusBadRequest)
		return
	}

	if err := h.repo.DeleteFeedback(r.Context(), orgID(r), id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, "feedback not found", http.StatusNotFound)
			return
		}
		logHandlerError("delete feedback", err)
		writeError(w, "failed to delete feedback", http.StatusInternalServerError)
		return
	}

	recordAudit(r, h.audit, "delete", "feedback", strconv.FormatInt(id, 10))
	writeData(w, map[string]string{"message": "deleted"}, http.StatusOK)
}
