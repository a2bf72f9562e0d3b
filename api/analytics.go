package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/opshq/backoffice/internal/analytics"
	"github.com/opshq/backoffice/pkg/rates"
)

type AnalyticsHandler struct {
	svc *analytics.Service
}

func NewAnalyticsHandler(svc *analytics.Service) *AnalyticsHandler {
	return &AnalyticsHandler{svc: svc}
}

func (h *AnalyticsHandler) rangeOf(w http.ResponseWriter, r *http.Request) (analytics.Range, bool) {
	from, to, err := dateRange(r.URL.Query())
	if err != nil {
		writeError(w, "from/to must be YYYY-MM-DD", http.StatusBadRequest)
		return analytics.Range{}, false
	}
	return analytics.Range{From: from, To: to}, true
}

func (h *AnalyticsHandler) Feedback(w http.ResponseWriter, r *http.Request) {
	rng, ok := h.rangeOf(w, r)
	if !ok {
		return
	}

	out, err := h.svc.FeedbackSummary(r.Context(), orgID(r), rng)
	if err != nil {
		logHandlerError("feedback summary", err)
		writeError(w, "failed to build report", http.StatusInternalServerError)
		return
	}

	writeData(w, out, http.StatusOK)
}

func (h *AnalyticsHandler) Projects(w http.ResponseWriter, r *http.Request) {
	rng, ok := h.rangeOf(w, r)
	if !ok {
		return
	}

	out, err := h.svc.ProjectBreakdown(r.Context(), orgID(r), rng)
	if err != nil {
		logHandlerError("project breakdown", err)
		writeError(w, "failed to build report", http.StatusInternalServerError)
		return
	}
	if out == nil {
		out = []analytics.StatusCount{}
	}

	writeData(w, out, http.StatusOK)
}

func (h *AnalyticsHandler) Headcount(w http.ResponseWriter, r *http.Request) {
	out, err := h.svc.Headcount(r.Context(), orgID(r))
	if err != nil {
		logHandlerError("headcount", err)
		writeError(w, "failed to build report", http.StatusInternalServerError)
		return
	}
	if out == nil {
		out = []analytics.DepartmentCount{}
	}

	writeData(w, out, http.StatusOK)
}

// Payouts sums payouts per status, converted into the requested currency
// (default USD). Currency conversion failures surface as 502 since the rate
// source is an upstream dependency.
func (h *AnalyticsHandler) Payouts(w http.ResponseWriter, r *http.Request) {
	rng, ok := h.rangeOf(w, r)
	if !ok {
		return
	}

	currency := strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("currency")))
	if currency == "" {
		currency = "USD"
	}
	if len(currency) != 3 {
		writeError(w, "currency must be a 3-letter code", http.StatusBadRequest)
		return
	}

	out, err := h.svc.PayoutTotals(r.Context(), orgID(r), rng, currency)
	if err != nil {
		switch {
		case errors.Is(err, rates.ErrUnknownCurrency):
			writeError(w, "unknown currency", http.StatusBadRequest)
		case errors.Is(err, rates.ErrCircuitOpen), errors.Is(err, rates.ErrStaleRate):
			writeError(w, "exchange rates unavailable", http.StatusBadGateway)
		default:
			logHandlerError("payout totals", err)
			writeError(w, "failed to build report", http.StatusInternalServerError)
		}
		return
	}
	if out == nil {
		out = []analytics.PayoutTotal{}
	}

	writeData(w, out, http.StatusOK)
}

func (h *AnalyticsHandler) Surveys(w http.ResponseWriter, r *http.Request) {
	rng, ok := h.rangeOf(w, r)
	if !ok {
		return
	}

	out, err := h.svc.SurveyActivity(r.Context(), orgID(r), rng)
	if err != nil {
		logHandlerError("survey activity", err)
		writeError(w, "failed to build report", http.StatusInternalServerError)
		return
	}
	if out == nil {
		out = []analytics.SurveyActivity{}
	}

	writeData(w, out, http.StatusOK)
}
