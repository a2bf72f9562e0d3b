package models

import "encoding/json"

// Domain models matching the database schema in db/migrations/0001_init.sql.
// Timestamps are unix milliseconds.

type Organization struct {
	ID      int64  `json:"id" db:"id"`
	Name    string `json:"name" db:"name"`
	Created int64  `json:"created" db:"created"`
	Updated int64  `json:"updated" db:"updated"`
}

type User struct {
	ID           int64  `json:"id" db:"id"`
	OrgID        int64  `json:"org_id" db:"org_id"`
	Name         string `json:"name" db:"name"`
	Email        string `json:"email" db:"email"`
	PasswordHash string `json:"-" db:"password_hash"`
	Created      int64  `json:"created" db:"created"`
	Updated      int64  `json:"updated" db:"updated"`
}

// Project statuses.
const (
	ProjectPlanning  = "planning"
	ProjectActive    = "active"
	ProjectOnHold    = "on-hold"
	ProjectCompleted = "completed"
	ProjectArchived  = "archived"
)

type Project struct {
	ID          int64  `json:"id" db:"id"`
	OrgID       int64  `json:"org_id" db:"org_id"`
	Name        string `json:"name" db:"name"`
	Description string `json:"description,omitempty" db:"description"`
	Status      string `json:"status" db:"status"`
	CreatedBy   int64  `json:"created_by" db:"created_by"`
	UpdatedBy   int64  `json:"updated_by" db:"updated_by"`
	Created     int64  `json:"created" db:"created"`
	Updated     int64  `json:"updated" db:"updated"`
}

// Employee statuses.
const (
	EmployeeActive     = "active"
	EmployeeOnLeave    = "on-leave"
	EmployeeTerminated = "terminated"
)

type Employee struct {
	ID             int64   `json:"id" db:"id"`
	OrgID          int64   `json:"org_id" db:"org_id"`
	FullName       string  `json:"full_name" db:"full_name"`
	Email          string  `json:"email" db:"email"`
	Department     string  `json:"department" db:"department"`
	Position       string  `json:"position" db:"position"`
	Status         string  `json:"status" db:"status"`
	SalaryAmount   float64 `json:"salary_amount" db:"salary_amount"`
	SalaryCurrency string  `json:"salary_currency" db:"salary_currency"`
	HiredAt        *int64  `json:"hired_at,omitempty" db:"hired_at"`
	CreatedBy      int64   `json:"created_by" db:"created_by"`
	UpdatedBy      int64   `json:"updated_by" db:"updated_by"`
	Created        int64   `json:"created" db:"created"`
	Updated        int64   `json:"updated" db:"updated"`
}

// Feedback statuses.
const (
	FeedbackNew         = "new"
	FeedbackUnderReview = "under-review"
	FeedbackResponded   = "responded"
	FeedbackResolved    = "resolved"
	FeedbackClosed      = "closed"
)

type Feedback struct {
	ID          int64   `json:"id" db:"id"`
	OrgID       int64   `json:"org_id" db:"org_id"`
	Subject     string  `json:"subject" db:"subject"`
	Body        string  `json:"body" db:"body"`
	Category    string  `json:"category" db:"category"`
	Rating      *int    `json:"rating,omitempty" db:"rating"`
	Status      string  `json:"status" db:"status"`
	HasResponse bool    `json:"has_response" db:"has_response"`
	Response    *string `json:"response,omitempty" db:"response"`
	RespondedBy *int64  `json:"responded_by,omitempty" db:"responded_by"`
	CreatedBy   int64   `json:"created_by" db:"created_by"`
	Created     int64   `json:"created" db:"created"`
	Updated     int64   `json:"updated" db:"updated"`
}

// Suggestion statuses.
const (
	SuggestionOpen       = "open"
	SuggestionPlanned    = "planned"
	SuggestionInProgress = "in-progress"
	SuggestionDone       = "done"
	SuggestionDeclined   = "declined"
)

// Vote directions for suggestions.
const (
	VoteUp   = "up"
	VoteDown = "down"
)

type Suggestion struct {
	ID        int64  `json:"id" db:"id"`
	OrgID     int64  `json:"org_id" db:"org_id"`
	Title     string `json:"title" db:"title"`
	Body      string `json:"body" db:"body"`
	Status    string `json:"status" db:"status"`
	Upvotes   int64  `json:"upvotes" db:"upvotes"`
	Downvotes int64  `json:"downvotes" db:"downvotes"`
	CreatedBy int64  `json:"created_by" db:"created_by"`
	Created   int64  `json:"created" db:"created"`
	Updated   int64  `json:"updated" db:"updated"`
}

// Survey statuses.
const (
	SurveyDraft  = "draft"
	SurveyOpen   = "open"
	SurveyClosed = "closed"
)

type Survey struct {
	ID          int64           `json:"id" db:"id"`
	OrgID       int64           `json:"org_id" db:"org_id"`
	Title       string          `json:"title" db:"title"`
	Description string          `json:"description,omitempty" db:"description"`
	Questions   json.RawMessage `json:"questions" db:"questions_json"`
	Status      string          `json:"status" db:"status"`
	CreatedBy   int64           `json:"created_by" db:"created_by"`
	Created     int64           `json:"created" db:"created"`
	Updated     int64           `json:"updated" db:"updated"`
}

type SurveyResponse struct {
	ID          int64           `json:"id" db:"id"`
	SurveyID    int64           `json:"survey_id" db:"survey_id"`
	Respondent  int64           `json:"respondent" db:"respondent"`
	Answers     json.RawMessage `json:"answers" db:"answers_json"`
	SubmittedAt int64           `json:"submitted_at" db:"submitted_at"`
}

// Job posting statuses.
const (
	PostingDraft     = "draft"
	PostingPublished = "published"
	PostingClosed    = "closed"
)

type JobPosting struct {
	ID          int64  `json:"id" db:"id"`
	OrgID       int64  `json:"org_id" db:"org_id"`
	Title       string `json:"title" db:"title"`
	Description string `json:"description" db:"description"`
	Department  string `json:"department" db:"department"`
	Location    string `json:"location,omitempty" db:"location"`
	Status      string `json:"status" db:"status"`
	PublishedAt *int64 `json:"published_at,omitempty" db:"published_at"`
	ClosedAt    *int64 `json:"closed_at,omitempty" db:"closed_at"`
	CreatedBy   int64  `json:"created_by" db:"created_by"`
	UpdatedBy   int64  `json:"updated_by" db:"updated_by"`
	Created     int64  `json:"created" db:"created"`
	Updated     int64  `json:"updated" db:"updated"`
}

type Document struct {
	ID        int64   `json:"id" db:"id"`
	OrgID     int64   `json:"org_id" db:"org_id"`
	Title     string  `json:"title" db:"title"`
	Category  string  `json:"category" db:"category"`
	Tags      string  `json:"tags,omitempty" db:"tags"`
	FileKey   *string `json:"file_key,omitempty" db:"file_key"`
	FileName  *string `json:"file_name,omitempty" db:"file_name"`
	FileSize  int64   `json:"file_size" db:"file_size"`
	CreatedBy int64   `json:"created_by" db:"created_by"`
	UpdatedBy int64   `json:"updated_by" db:"updated_by"`
	Created   int64   `json:"created" db:"created"`
	Updated   int64   `json:"updated" db:"updated"`
}

// Payout statuses.
const (
	PayoutPending  = "pending"
	PayoutApproved = "approved"
	PayoutPaid     = "paid"
	PayoutRejected = "rejected"
)

type Payout struct {
	ID        int64   `json:"id" db:"id"`
	OrgID     int64   `json:"org_id" db:"org_id"`
	Affiliate string  `json:"affiliate" db:"affiliate"`
	Amount    float64 `json:"amount" db:"amount"`
	Currency  string  `json:"currency" db:"currency"`
	Status    string  `json:"status" db:"status"`
	Reason    *string `json:"reason,omitempty" db:"reason"`
	PaidAt    *int64  `json:"paid_at,omitempty" db:"paid_at"`
	CreatedBy int64   `json:"created_by" db:"created_by"`
	UpdatedBy int64   `json:"updated_by" db:"updated_by"`
	Created   int64   `json:"created" db:"created"`
	Updated   int64   `json:"updated" db:"updated"`
}

// Billing template kinds.
const (
	TemplateInvoice = "invoice"
	TemplateReceipt = "receipt"
)

type BillingTemplate struct {
	ID        int64  `json:"id" db:"id"`
	OrgID     int64  `json:"org_id" db:"org_id"`
	Kind      string `json:"kind" db:"kind"`
	Name      string `json:"name" db:"name"`
	Body      string `json:"body" db:"body"`
	IsDefault bool   `json:"is_default" db:"is_default"`
	CreatedBy int64  `json:"created_by" db:"created_by"`
	UpdatedBy int64  `json:"updated_by" db:"updated_by"`
	Created   int64  `json:"created" db:"created"`
	Updated   int64  `json:"updated" db:"updated"`
}

// Workflow instance statuses.
const (
	InstanceCompleted       = "completed"
	InstancePendingApproval = "pending-approval"
	InstanceEscalated       = "escalated"
)

type WorkflowRule struct {
	ID         int64           `json:"id" db:"id"`
	OrgID      int64           `json:"org_id" db:"org_id"`
	Name       string          `json:"name" db:"name"`
	Event      string          `json:"event" db:"event"`
	Conditions json.RawMessage `json:"conditions" db:"conditions_json"`
	Actions    json.RawMessage `json:"actions" db:"actions_json"`
	Enabled    bool            `json:"enabled" db:"enabled"`
	CreatedBy  int64           `json:"created_by" db:"created_by"`
	Created    int64           `json:"created" db:"created"`
	Updated    int64           `json:"updated" db:"updated"`
}

type WorkflowInstance struct {
	ID        string          `json:"id" db:"id"`
	OrgID     int64           `json:"org_id" db:"org_id"`
	RuleID    int64           `json:"rule_id" db:"rule_id"`
	Event     string          `json:"event" db:"event"`
	Status    string          `json:"status" db:"status"`
	ActionLog json.RawMessage `json:"action_log" db:"action_log_json"`
	Created   int64           `json:"created" db:"created"`
	Updated   int64           `json:"updated" db:"updated"`
}

type Notification struct {
	ID      int64  `json:"id" db:"id"`
	OrgID   int64  `json:"org_id" db:"org_id"`
	Kind    string `json:"kind" db:"kind"`
	Message string `json:"message" db:"message"`
	Read    bool   `json:"read" db:"read"`
	Created int64  `json:"created" db:"created"`
}

type AuditEvent struct {
	ID       int64  `json:"id" db:"id"`
	OrgID    int64  `json:"org_id" db:"org_id"`
	ActorID  int64  `json:"actor_id" db:"actor_id"`
	Action   string `json:"action" db:"action"`
	Entity   string `json:"entity" db:"entity"`
	EntityID string `json:"entity_id" db:"entity_id"`
	Created  int64  `json:"created" db:"created"`
}

// ValidStatus reports whether s is one of allowed.
func ValidStatus(s string, allowed ...string) bool {
	for _, a := range allowed {
		if s == a {
			return true
		}
	}
	return false
}
