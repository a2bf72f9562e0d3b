package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/opshq/backoffice/internal/models"
	"github.com/opshq/backoffice/internal/notify"
	"github.com/opshq/backoffice/internal/workflow"
	"github.com/opshq/backoffice/pkg/repository"
)

type PayoutsHandler struct {
	repo   repository.PayoutRepo
	audit  repository.AuditRepo
	notes  repository.NotificationRepo
	engine Triggerer
	pub    Publisher
}

func NewPayoutsHandler(pr repository.PayoutRepo, ar repository.AuditRepo, nr repository.NotificationRepo, engine Triggerer, pub Publisher) *PayoutsHandler {
	return &PayoutsHandler{repo: pr, audit: ar, notes: nr, engine: engine, pub: pub}
}

type payoutRequest struct {
	Affiliate string  `json:"affiliate"`
	Amount    float64 `json:"amount"`
	Currency  string  `json:"currency"`
}

func (h *PayoutsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req payoutRequest
	if !decode(w, r, &req) {
		return
	}

	req.Affiliate = strings.TrimSpace(req.Affiliate)
	req.Currency = strings.ToUpper(strings.TrimSpace(req.Currency))
	if req.Affiliate == "" {
		writeError(w, "affiliate is required", http.StatusBadRequest)
		return
	}
	if req.Amount <= 0 {
		writeError(w, "amount must be positive", http.StatusBadRequest)
		return
	}
	if len(req.Currency) != 3 {
		writeError(w, "currency must be a 3-letter code", http.StatusBadRequest)
		return
	}

	p := &models.Payout{
		OrgID:     orgID(r),
		Affiliate: req.Affiliate,
		Amount:    req.Amount,
		Currency:  req.Currency,
		Status:    models.PayoutPending,
		CreatedBy: userID(r),
		UpdatedBy: userID(r),
	}
	id, err := h.repo.CreatePayout(r.Context(), p)
	if err != nil {
		logHandlerError("create payout", err)
		writeError(w, "failed to create payout", http.StatusInternalServerError)
		return
	}
	p.ID = id

	recordAudit(r, h.audit, "create", "payout", strconv.FormatInt(id, 10))
	h.fireRequested(r, p)

	writeData(w, p, http.StatusCreated)
}

// fireRequested runs workflow rules registered for payout.requested.
func (h *PayoutsHandler) fireRequested(r *http.Request, p *models.Payout) {
	if h.engine == nil {
		return
	}

	ev := workflow.Event{
		Name: "payout.requested",
		Data: map[string]any{
			"amount":    p.Amount,
			"currency":  p.Currency,
			"affiliate": p.Affiliate,
		},
		Context: map[string]any{"payout_id": float64(p.ID), "created_by": float64(p.CreatedBy)},
	}
	if _, err := h.engine.Trigger(r.Context(), p.OrgID, ev); err != nil {
		logHandlerError("trigger payout.requested", err)
	}
}

func (h *PayoutsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := pathID(r, "id")
	if id == 0 {
		writeError(w, "invalid id", http.StatusBadRequest)
		return
	}

	p, err := h.repo.GetPayout(r.Context(), orgID(r), id)
	if err != nil {
		logHandlerError("get payout", err)
		writeError(w, "failed to get payout", http.StatusInternalServerError)
		return
	}
	if p == nil {
		writeError(w, "payout not found", http.StatusNotFound)
		return
	}

	writeData(w, p, http.StatusOK)
}

func (h *PayoutsHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, offset := pageParams(q)

	items, total, err := h.repo.ListPayouts(r.Context(), repository.ListFilter{
		OrgID:  orgID(r),
		Status: q.Get("status"),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		logHandlerError("list payouts", err)
		writeError(w, "failed to list payouts", http.StatusInternalServerError)
		return
	}
	if items == nil {
		items = []models.Payout{}
	}

	writeData(w, listEnvelope{Total: total, Limit: limit, Offset: offset, Items: items}, http.StatusOK)
}

// Approve moves pending -> approved.
func (h *PayoutsHandler) Approve(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "approve", models.PayoutApproved, nil, models.PayoutPending)
}

// MarkPaid moves approved -> paid and stamps paid_at.
func (h *PayoutsHandler) MarkPaid(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "mark-paid", models.PayoutPaid, nil, models.PayoutApproved)
}

type rejectRequest struct {
	Reason string `json:"reason"`
}

// Reject moves pending or approved -> rejected with a required reason.
func (h *PayoutsHandler) Reject(w http.ResponseWriter, r *http.Request) {
	var req rejectRequest
	if !decode(w, r, &req) {
		return
	}
	req.Reason = strings.TrimSpace(req.Reason)
	if req.Reason == "" {
		writeError(w, "reason is required", http.StatusBadRequest)
		return
	}

	h.transition(w, r, "reject", models.PayoutRejected, &req.Reason, models.PayoutPending, models.PayoutApproved)
}

func (h *PayoutsHandler) transition(w http.ResponseWriter, r *http.Request, action, to string, reason *string, allowedFrom ...string) {
	id := pathID(r, "id")
	if id == 0 {
		writeError(w, "invalid id", http.StatusBadRequest)
		return
	}

	err := h.repo.SetPayoutStatus(r.Context(), orgID(r), id, to, reason, userID(r), allowedFrom...)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			writeError(w, "payout not found", http.StatusNotFound)
		case errors.Is(err, repository.ErrBadTransition):
			writeError(w, "payout cannot move to "+to, http.StatusConflict)
		default:
			logHandlerError("set payout status", err)
			writeError(w, "failed to update payout", http.StatusInternalServerError)
		}
		return
	}

	p, err := h.repo.GetPayout(r.Context(), orgID(r), id)
	if err != nil || p == nil {
		logHandlerError("reload payout", err)
		writeError(w, "failed to update payout", http.StatusInternalServerError)
		return
	}

	recordAudit(r, h.audit, action, "payout", strconv.FormatInt(id, 10))
	if to == models.PayoutPaid {
		publishNotification(r, h.notes, h.pub, notify.KindPayout,
			fmt.Sprintf("payout paid: %.2f %s to %s", p.Amount, p.Currency, p.Affiliate))
	}
	writeData(w, p, http.StatusOK)
}
