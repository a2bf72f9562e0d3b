package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/qri-io/jsonschema"

	"github.com/opshq/backoffice/internal/models"
	"github.com/opshq/backoffice/pkg/repository"
)

// questionsSchema constrains the questions document of a survey: a non-empty
// array of typed questions, where choice questions must list options.
const questionsSchema = `{
  "type": "array",
  "minItems": 1,
  "items": {
    "type": "object",
    "required": ["id", "label", "type"],
    "properties": {
      "id": {"type": "string", "minLength": 1},
      "label": {"type": "string", "minLength": 1},
      "type": {"enum": ["text", "rating", "single-choice", "multi-choice"]},
      "options": {"type": "array", "items": {"type": "string"}}
    }
  }
}`

var questionsValidator = mustSchema(questionsSchema)

func mustSchema(src string) *jsonschema.Schema {
	rs := &jsonschema.Schema{}
	if err := json.Unmarshal([]byte(src), rs); err != nil {
		panic("invalid embedded schema: " + err.Error())
	}
	return rs
}

func validQuestions(ctx context.Context, doc json.RawMessage) bool {
	if len(doc) == 0 {
		return false
	}
	errs, err := questionsValidator.ValidateBytes(ctx, doc)
	return err == nil && len(errs) == 0
}

type SurveysHandler struct {
	repo  repository.SurveyRepo
	audit repository.AuditRepo
}

func NewSurveysHandler(sr repository.SurveyRepo, ar repository.AuditRepo) *SurveysHandler {
	return &SurveysHandler{repo: sr, audit: ar}
}

type surveyRequest struct {
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Questions   json.RawMessage `json:"questions"`
}

func (h *SurveysHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req surveyRequest
	if !decode(w, r, &req) {
		return
	}

	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		writeError(w, "title is required", http.StatusBadRequest)
		return
	}
	if !validQuestions(r.Context(), req.Questions) {
		writeError(w, "invalid questions document", http.StatusBadRequest)
		return
	}

	s := &models.Survey{
		OrgID:       orgID(r),
		Title:       req.Title,
		Description: req.Description,
		Questions:   req.Questions,
		Status:      models.SurveyDraft,
		CreatedBy:   userID(r),
	}
	id, err := h.repo.CreateSurvey(r.Context(), s)
	if err != nil {
		logHandlerError("create survey", err)
		writeError(w, "failed to create survey", http.StatusInternalServerError)
		return
	}
	s.ID = id

	recordAudit(r, h.audit, "create", "survey", strconv.FormatInt(id, 10))
	writeData(w, s, http.StatusCreated)
}

func (h *SurveysHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := pathID(r, "id")
	if id == 0 {
		writeError(w, "invalid id", http.StatusBadRequest)
		return
	}

	s, err := h.repo.GetSurvey(r.Context(), orgID(r), id)
	if err != nil {
		logHandlerError("get survey", err)
		writeError(w, "failed to get survey", http.StatusInternalServerError)
		return
	}
	if s == nil {
		writeError(w, "survey not found", http.StatusNotFound)
		return
	}

	writeData(w, s, http.StatusOK)
}

func (h *SurveysHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, offset := pageParams(q)

	items, total, err := h.repo.ListSurveys(r.Context(), repository.ListFilter{
		OrgID:  orgID(r),
		Status: q.Get("status"),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		logHandlerError("list surveys", err)
		writeError(w, "failed to list surveys", http.StatusInternalServerError)
		return
	}
	if items == nil {
		items = []models.Survey{}
	}

	writeData(w, listEnvelope{Total: total, Limit: limit, Offset: offset, Items: items}, http.StatusOK)
}

// Update edits a survey's metadata and questions. Only drafts can be edited;
// once a survey is open its questions are frozen.
func (h *SurveysHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := pathID(r, "id")
	if id == 0 {
		writeError(w, "invalid id", http.StatusBadRequest)
		return
	}

	var req surveyRequest
	if !decode(w, r, &req) {
		return
	}
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		writeError(w, "title is required", http.StatusBadRequest)
		return
	}
	if !validQuestions(r.Context(), req.Questions) {
		writeError(w, "invalid questions document", http.StatusBadRequest)
		return
	}

	existing, err := h.repo.GetSurvey(r.Context(), orgID(r), id)
	if err != nil {
		logHandlerError("get survey", err)
		writeError(w, "failed to update survey", http.StatusInternalServerError)
		return
	}
	if existing == nil {
		writeError(w, "survey not found", http.StatusNotFound)
		return
	}
	if existing.Status != models.SurveyDraft {
		writeError(w, "only draft surveys can be edited", http.StatusConflict)
		return
	}

	existing.Title = req.Title
	existing.Description = req.Description
	existing.Questions = req.Questions

	if err := h.repo.UpdateSurvey(r.Context(), existing); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, "survey not found", http.StatusNotFound)
			return
		}
		logHandlerError("update survey", err)
		writeError(w, "failed to update survey", http.StatusInternalServerError)
		return
	}

	recordAudit(r, h.audit, "update", "survey", strconv.FormatInt(id, 10))
	writeData(w, existing, http.StatusOK)
}

// Open and Close transition a survey. draft -> open -> closed; no reopening.
func (h *SurveysHandler) Open(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, models.SurveyOpen, models.SurveyDraft)
}

func (h *SurveysHandler) Close(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, models.SurveyClosed, models.SurveyOpen)
}

func (h *SurveysHandler) transition(w http.ResponseWriter, r *http.Request, to string, from ...string) {
	id := pathID(r, "id")
	if id == 0 {
		writeError(w, "invalid id", http.StatusBadRequest)
		return
	}

	existing, err := h.repo.GetSurvey(r.Context(), orgID(r), id)
	if err != nil {
		logHandlerError("get survey", err)
		writeError(w, "failed to update survey", http.StatusInternalServerError)
		return
	}
	if existing == nil {
		writeError(w, "survey not found", http.StatusNotFound)
		return
	}
	if !models.ValidStatus(existing.Status, from...) {
		writeError(w, "survey is "+existing.Status, http.StatusConflict)
		return
	}

	if err := h.repo.SetSurveyStatus(r.Context(), orgID(r), id, to); err != nil {
		logHandlerError("set survey status", err)
		writeError(w, "failed to update survey", http.StatusInternalServerError)
		return
	}

	recordAudit(r, h.audit, "status:"+to, "survey", strconv.FormatInt(id, 10))
	writeData(w, map[string]string{"status": to}, http.StatusOK)
}

func (h *SurveysHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := pathID(r, "id")
	if id == 0 {
		writeError(w, "invalid id", http.StatusBadRequest)
		return
	}

	if err := h.repo.DeleteSurvey(r.Context(), orgID(r), id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, "survey not found", http.StatusNotFound)
			return
		}
		logHandlerError("delete survey", err)
		writeError(w, "failed to delete survey", http.StatusInternalServerError)
		return
	}

	recordAudit(r, h.audit, "delete", "survey", strconv.FormatInt(id, 10))
	writeData(w, map[string]string{"message": "deleted"}, http.StatusOK)
}

type surveyResponseRequest struct {
	Answers json.RawMessage `json:"answers"`
}

// Respond records an answer set. Responses are only accepted while the survey
// is open.
func (h *SurveysHandler) Respond(w http.ResponseWriter, r *http.Request) {
	id := pathID(r, "id")
	if id == 0 {
		writeError(w, "invalid id", http.StatusBadRequest)
		return
	}

	var req surveyResponseRequest
	if !decode(w, r, &req) {
		return
	}
	if len(req.Answers) == 0 || !json.Valid(req.Answers) {
		writeError(w, "answers are required", http.StatusBadRequest)
		return
	}

	survey, err := h.repo.GetSurvey(r.Context(), orgID(r), id)
	if err != nil {
		logHandlerError("get survey", err)
		writeError(w, "failed to record response", http.StatusInternalServerError)
		return
	}
	if survey == nil {
		writeError(w, "survey not found", http.StatusNotFound)
		return
	}
	if survey.Status != models.SurveyOpen {
		writeError(w, "survey is not open", http.StatusConflict)
		return
	}

	resp := &models.SurveyResponse{
		SurveyID:   id,
		Respondent: userID(r),
		Answers:    req.Answers,
	}
	respID, err := h.repo.CreateSurveyResponse(r.Context(), resp)
	if err != nil {
		logHandlerError("create survey response", err)
		writeError(w, "failed to record response", http.StatusInternalServerError)
		return
	}
	resp.ID = respID

	writeData(w, resp, http.StatusCreated)
}

func (h *SurveysHandler) ListResponses(w http.ResponseWriter, r *http.Request) {
	id := pathID(r, "id")
	if id == 0 {
		writeError(w, "invalid id", http.StatusBadRequest)
		return
	}

	survey, err := h.repo.GetSurvey(r.Context(), orgID(r), id)
	if err != nil {
		logHandlerError("get survey", err)
		writeError(w, "failed to list responses", http.StatusInternalServerError)
		return
	}
	if survey == nil {
		writeError(w, "survey not found", http.StatusNotFound)
		return
	}

	limit, offset := pageParams(r.URL.Query())
	items, total, err := h.repo.ListSurveyResponses(r.Context(), id, limit, offset)
	if err != nil {
		logHandlerError("list survey responses", err)
		writeError(w, "failed to list responses", http.StatusInternalServerError)
		return
	}
	if items == nil {
		items = []models.SurveyResponse{}
	}

	writeData(w, listEnvelope{Total: total, Limit: limit, Offset: offset, Items: items}, http.StatusOK)
}
