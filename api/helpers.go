package api

import (
	"net/http"
	"net/url"
	"strconv"
	"time"

	"log/slog"

	"github.com/gorilla/mux"

	"github.com/opshq/backoffice/internal/models"
	"github.com/opshq/backoffice/pkg/repository"
)

// pathID reads a positive integer path variable; 0 means missing or invalid.
func pathID(r *http.Request, name string) int64 {
	v, err := strconv.ParseInt(mux.Vars(r)[name], 10, 64)
	if err != nil || v <= 0 {
		return 0
	}
	return v
}

// pageParams reads limit/offset query parameters with the shared defaults.
func pageParams(q url.Values) (limit, offset int) {
	limit = 50
	if l := q.Get("limit"); l != "" {
		if v, err := strconv.Atoi(l); err == nil && v > 0 && v <= 500 {
			limit = v
		}
	}
	offset = 0
	if o := q.Get("offset"); o != "" {
		if v, err := strconv.Atoi(o); err == nil && v >= 0 {
			offset = v
		}
	}
	return limit, offset
}

// dateRange parses optional from/to query parameters (YYYY-MM-DD) into unix
// millisecond bounds. The `to` bound is inclusive of the whole day.
func dateRange(q url.Values) (from, to int64, err error) {
	if s := q.Get("from"); s != "" {
		t, perr := time.Parse("2006-01-02", s)
		if perr != nil {
			return 0, 0, perr
		}
		from = t.UTC().UnixMilli()
	}
	if s := q.Get("to"); s != "" {
		t, perr := time.Parse("2006-01-02", s)
		if perr != nil {
			return 0, 0, perr
		}
		to = t.UTC().Add(24*time.Hour - time.Millisecond).UnixMilli()
	}
	return from, to, nil
}

// recordAudit writes an audit row for a mutating request. Failures are logged
// by the repository and never fail the request.
func recordAudit(r *http.Request, audit repository.AuditRepo, action, entity, entityID string) {
	if audit == nil {
		return
	}
	_ = audit.RecordAudit(r.Context(), &models.AuditEvent{
		OrgID:    orgID(r),
		ActorID:  userID(r),
		Action:   action,
		Entity:   entity,
		EntityID: entityID,
	})
}

// Publisher pushes an event to connected websocket clients; satisfied by
// notify.Hub. Handlers treat it as optional.
type Publisher interface {
	Publish(orgID int64, kind, message string)
}

// publishNotification persists a notification row and pushes it to the
// organization's room. The request already succeeded, so failures are only
// logged.
func publishNotification(r *http.Request, notes repository.NotificationRepo, pub Publisher, kind, message string) {
	if notes != nil {
		n := &models.Notification{OrgID: orgID(r), Kind: kind, Message: message}
		if _, err := notes.CreateNotification(r.Context(), n); err != nil {
			logHandlerError("persist notification", err)
		}
	}
	if pub != nil {
		pub.Publish(orgID(r), kind, message)
	}
}

func logHandlerError(msg string, err error) {
	logger.Error(msg, slog.Any("err", err))
}
