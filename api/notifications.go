package api

import (
	"errors"
	"net/http"

	"github.com/opshq/backoffice/internal/models"
	"github.com/opshq/backoffice/internal/notify"
	"github.com/opshq/backoffice/pkg/repository"
)

type NotificationsHandler struct {
	repo repository.NotificationRepo
	hub  *notify.Hub
}

func NewNotificationsHandler(nr repository.NotificationRepo, hub *notify.Hub) *NotificationsHandler {
	return &NotificationsHandler{repo: nr, hub: hub}
}

func (h *NotificationsHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, offset := pageParams(q)
	unreadOnly := q.Get("unread") == "true"

	items, total, err := h.repo.ListNotifications(r.Context(), orgID(r), unreadOnly, limit, offset)
	if err != nil {
		logHandlerError("list notifications", err)
		writeError(w, "failed to list notifications", http.StatusInternalServerError)
		return
	}
	if items == nil {
		items = []models.Notification{}
	}

	writeData(w, listEnvelope{Total: total, Limit: limit, Offset: offset, Items: items}, http.StatusOK)
}

func (h *NotificationsHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	id := pathID(r, "id")
	if id == 0 {
		writeError(w, "invalid id", http.StatusBadRequest)
		return
	}

	if err := h.repo.MarkNotificationRead(r.Context(), orgID(r), id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, "notification not found", http.StatusNotFound)
			return
		}
		logHandlerError("mark notification read", err)
		writeError(w, "failed to mark read", http.StatusInternalServerError)
		return
	}

	writeData(w, map[string]string{"message": "read"}, http.StatusOK)
}

// Stream upgrades the connection and joins the caller's organization room.
func (h *NotificationsHandler) Stream(w http.ResponseWriter, r *http.Request) {
	if h.hub == nil {
		writeError(w, "streaming not available", http.StatusServiceUnavailable)
		return
	}
	notify.ServeWS(h.hub, w, r, orgID(r))
}

type AuditHandler struct {
	repo repository.AuditRepo
}

func NewAuditHandler(ar repository.AuditRepo) *AuditHandler {
	return &AuditHandler{repo: ar}
}

func (h *AuditHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, offset := pageParams(q)

	items, total, err := h.repo.ListAudit(r.Context(), orgID(r), q.Get("entity"), limit, offset)
	if err != nil {
		logHandlerError("list audit events", err)
		writeError(w, "failed to list audit events", http.StatusInternalServerError)
		return
	}
	if items == nil {
		items = []models.AuditEvent{}
	}

	writeData(w, listEnvelope{Total: total, Limit: limit, Offset: offset, Items: items}, http.StatusOK)
}
