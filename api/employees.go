package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/opshq/backoffice/internal/models"
	"github.com/opshq/backoffice/pkg/repository"
)

type EmployeesHandler struct {
	repo  repository.EmployeeRepo
	audit repository.AuditRepo
}

func NewEmployeesHandler(er repository.EmployeeRepo, ar repository.AuditRepo) *EmployeesHandler {
	return &EmployeesHandler{repo: er, audit: ar}
}

type employeeRequest struct {
	FullName       string  `json:"full_name"`
	Email          string  `json:"email"`
	Department     string  `json:"department"`
	Position       string  `json:"position"`
	Status         string  `json:"status"`
	SalaryAmount   float64 `json:"salary_amount"`
	SalaryCurrency string  `json:"salary_currency"`
	HiredAt        *int64  `json:"hired_at,omitempty"`
}

var employeeStatuses = []string{
	models.EmployeeActive, models.EmployeeOnLeave, models.EmployeeTerminated,
}

func (req *employeeRequest) validate() string {
	req.FullName = strings.TrimSpace(req.FullName)
	req.Email = strings.TrimSpace(req.Email)
	req.Department = strings.TrimSpace(req.Department)
	if req.FullName == "" || req.Email == "" || req.Department == "" {
		return "full_name, email and department are required"
	}
	if req.Status != "" && !models.ValidStatus(req.Status, employeeStatuses...) {
		return "invalid status"
	}
	if req.SalaryAmount < 0 {
		return "salary_amount must not be negative"
	}
	if req.SalaryCurrency != "" && len(req.SalaryCurrency) != 3 {
		return "salary_currency must be a 3-letter code"
	}
	return ""
}

func (h *EmployeesHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req employeeRequest
	if !decode(w, r, &req) {
		return
	}
	if msg := req.validate(); msg != "" {
		writeError(w, msg, http.StatusBadRequest)
		return
	}
	if req.Status == "" {
		req.Status = models.EmployeeActive
	}
	if req.SalaryCurrency == "" {
		req.SalaryCurrency = "USD"
	}

	e := &models.Employee{
		OrgID:          orgID(r),
		FullName:       req.FullName,
		Email:          req.Email,
		Department:     req.Department,
		Position:       req.Position,
		Status:         req.Status,
		SalaryAmount:   req.SalaryAmount,
		SalaryCurrency: strings.ToUpper(req.SalaryCurrency),
		HiredAt:        req.HiredAt,
		CreatedBy:      userID(r),
		UpdatedBy:      userID(r),
	}
	id, err := h.repo.CreateEmployee(r.Context(), e)
	if err != nil {
		logHandlerError("create employee", err)
		writeError(w, "failed to create employee", http.StatusInternalServerError)
		return
	}
	e.ID = id

	recordAudit(r, h.audit, "create", "employee", strconv.FormatInt(id, 10))
	writeData(w, e, http.StatusCreated)
}

func (h *EmployeesHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := pathID(r, "id")
	if id == 0 {
		writeError(w, "invalid id", http.StatusBadRequest)
		return
	}

	e, err := h.repo.GetEmployee(r.Context(), orgID(r), id)
	if err != nil {
		logHandlerError("get employee", err)
		writeError(w, "failed to get employee", http.StatusInternalServerError)
		return
	}
	if e == nil {
		writeError(w, "employee not found", http.StatusNotFound)
		return
	}

	writeData(w, e, http.StatusOK)
}

func (h *EmployeesHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, offset := pageParams(q)

	items, total, err := h.repo.ListEmployees(r.Context(), repository.ListFilter{
		OrgID:  orgID(r),
		Status: q.Get("status"),
		Limit:  limit,
		Offset: offset,
	}, q.Get("department"))
	if err != nil {
		logHandlerError("list employees", err)
		writeError(w, "failed to list employees", http.StatusInternalServerError)
		return
	}
	if items == nil {
		items = []models.Employee{}
	}

	writeData(w, listEnvelope{Total: total, Limit: limit, Offset: offset, Items: items}, http.StatusOK)
}

func (h *EmployeesHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := pathID(r, "id")
	if id == 0 {
		writeError(w, "invalid id", http.StatusBadRequest)
		return
	}

	var req employeeRequest
	if !decode(w, r, &req) {
		return
	}
	if msg := req.validate(); msg != "" {
		writeError(w, msg, http.StatusBadRequest)
		return
	}

	existing, err := h.repo.GetEmployee(r.Context(), orgID(r), id)
	if err != nil {
		logHandlerError("get employee", err)
		writeError(w, "failed to update employee", http.StatusInternalServerError)
		return
	}
	if existing == nil {
		writeError(w, "employee not found", http.StatusNotFound)
		return
	}

	existing.FullName = req.FullName
	existing.Email = req.Email
	existing.Department = req.Department
	existing.Position = req.Position
	if req.Status != "" {
		existing.Status = req.Status
	}
	if req.SalaryAmount > 0 {
		existing.SalaryAmount = req.SalaryAmount
	}
	if req.SalaryCurrency != "" {
		existing.SalaryCurrency = strings.ToUpper(req.SalaryCurrency)
	}
	if req.HiredAt != nil {
		existing.HiredAt = req.HiredAt
	}
	existing.UpdatedBy = userID(r)

	if err := h.repo.UpdateEmployee(r.Context(), existing); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, "employee not found", http.StatusNotFound)
			return
		}
		logHandlerError("update employee", err)
		writeError(w, "failed to update employee", http.StatusInternalServerError)
		return
	}

	recordAudit(r, h.audit, "update", "employee", strconv.FormatInt(id, 10))
	writeData(w, existing, http.StatusOK)
}

func (h *EmployeesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := pathID(r, "id")
	if id == 0 {
		writeError(w, "invalid id", http.StatusBadRequest)
		return
	}

	if err := h.repo.DeleteEmployee(r.Context(), orgID(r), id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, "employee not found", http.StatusNotFound)
			return
		}
		logHandlerError("delete employee", err)
		writeError(w, "failed to delete employee", http.StatusInternalServerError)
		return
	}

	recordAudit(r, h.audit, "delete", "employee", strconv.FormatInt(id, 10))
	writeData(w, map[string]string{"message": "deleted"}, http.StatusOK)
}
